package captions

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/coursedex/internal/core/domain"
)

var (
	// cueTiming matches "00:01:02.500 --> 00:01:04.000" with optional hours
	// and either "." or "," before the milliseconds.
	cueTiming = regexp.MustCompile(`^\s*((?:\d+:)?\d{1,2}:\d{2}[.,]\d{1,3})\s+-->\s+((?:\d+:)?\d{1,2}:\d{2}[.,]\d{1,3})`)
	cueTags   = regexp.MustCompile(`<[^>]*>`)
	spaces    = regexp.MustCompile(`\s+`)
)

// Parse reads WebVTT or SRT captions into ordered timed segments.
// Malformed timestamps are rejected with domain.ErrInvalidInput.
func Parse(data []byte) ([]domain.TimedSegment, error) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var (
		segs    []domain.TimedSegment
		current *domain.TimedSegment
		lines   []string
		lineNo  int
	)
	flush := func() {
		if current == nil {
			return
		}
		text := cleanCue(strings.Join(lines, " "))
		if text != "" {
			segs = appendCue(segs, domain.TimedSegment{Start: current.Start, End: current.End, Text: text})
		}
		current = nil
		lines = nil
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")

		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if m := cueTiming.FindStringSubmatch(line); m != nil {
			flush()
			start, err := parseTimestamp(m[1])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", domain.ErrInvalidInput, lineNo, err)
			}
			end, err := parseTimestamp(m[2])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", domain.ErrInvalidInput, lineNo, err)
			}
			if end < start {
				return nil, fmt.Errorf("%w: line %d: cue ends before it starts", domain.ErrInvalidInput, lineNo)
			}
			current = &domain.TimedSegment{Start: start, End: end}
			continue
		}
		if current != nil {
			lines = append(lines, line)
		}
		// Headers, NOTE/STYLE blocks and SRT cue numbers fall through here.
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read captions: %v", domain.ErrInvalidInput, err)
	}
	flush()
	return segs, nil
}

// appendCue merges a cue into the previous one when the text repeats.
func appendCue(segs []domain.TimedSegment, seg domain.TimedSegment) []domain.TimedSegment {
	if n := len(segs); n > 0 && segs[n-1].Text == seg.Text {
		if seg.End > segs[n-1].End {
			segs[n-1].End = seg.End
		}
		return segs
	}
	return append(segs, seg)
}

func cleanCue(s string) string {
	s = cueTags.ReplaceAllString(s, "")
	s = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&nbsp;", " ").Replace(s)
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

// parseTimestamp converts "hh:mm:ss.mmm" or "mm:ss,mmm" to seconds.
func parseTimestamp(ts string) (float64, error) {
	ts = strings.Replace(ts, ",", ".", 1)
	parts := strings.Split(ts, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("bad timestamp %q", ts)
	}

	var total float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, fmt.Errorf("bad timestamp %q", ts)
		}
		if i < len(parts)-1 {
			total = (total + v) * 60
		} else {
			total += v
		}
	}
	return total, nil
}
