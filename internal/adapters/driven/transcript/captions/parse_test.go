package captions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/coursedex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/coursedex/internal/core/domain"
)

const vtt = "WEBVTT\n" +
	"Kind: captions\n" +
	"\n" +
	"NOTE this is ignored\n" +
	"\n" +
	"00:00.000 --> 00:02.500\n" +
	"<v Ada>Hello <c.yellow>there</c></v>\n" +
	"\n" +
	"intro-2\n" +
	"00:00:02.500 --> 00:00:05.000 align:start\n" +
	"General\n" +
	"Kenobi &amp; friends\n" +
	"\n" +
	"00:00:05.000 --> 00:00:06.000\n" +
	"Kenobi &amp; friends\n"

const srt = "1\r\n" +
	"00:00:01,000 --> 00:00:03,000\r\n" +
	"First line\r\n" +
	"\r\n" +
	"2\r\n" +
	"01:00:03,500 --> 01:00:04,250\r\n" +
	"Second <i>line</i>\r\n"

func TestParse_WebVTT(t *testing.T) {
	segs, err := Parse([]byte(vtt))

	require.NoError(t, err)
	assert.Equal(t, []domain.TimedSegment{
		{Start: 0, End: 2.5, Text: "Hello there"},
		{Start: 2.5, End: 5, Text: "General Kenobi & friends"},
		{Start: 5, End: 6, Text: "Kenobi & friends"},
	}, segs)
}

func TestParse_SRT(t *testing.T) {
	segs, err := Parse([]byte(srt))

	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, domain.TimedSegment{Start: 1, End: 3, Text: "First line"}, segs[0])
	assert.InDelta(t, 3603.5, segs[1].Start, 1e-9)
	assert.InDelta(t, 3604.25, segs[1].End, 1e-9)
	assert.Equal(t, "Second line", segs[1].Text)
}

func TestParse_MergesRepeatedCues(t *testing.T) {
	data := "WEBVTT\n\n00:01.000 --> 00:02.000\nsame\n\n00:02.000 --> 00:03.000\nsame\n"

	segs, err := Parse([]byte(data))

	require.NoError(t, err)
	assert.Equal(t, []domain.TimedSegment{{Start: 1, End: 3, Text: "same"}}, segs)
}

func TestParse_RejectsBackwardsCue(t *testing.T) {
	_, err := Parse([]byte("00:05.000 --> 00:01.000\nx\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestParse_Empty(t *testing.T) {
	segs, err := Parse([]byte("WEBVTT\n\n"))
	require.NoError(t, err)
	assert.Empty(t, segs)
}

func TestDeriver(t *testing.T) {
	ctx := context.Background()
	blobs := memory.NewBlobStore()
	require.NoError(t, blobs.Upload(ctx, []byte(srt), "captions/v1.srt"))
	require.NoError(t, blobs.Upload(ctx, []byte("WEBVTT\n"), "captions/empty.vtt"))
	d := New(blobs)

	segs, err := d.Derive(ctx, &domain.Video{ID: "v1", CaptionsPath: "captions/v1.srt"})
	require.NoError(t, err)
	assert.Len(t, segs, 2)

	_, err = d.Derive(ctx, &domain.Video{ID: "v2"})
	assert.ErrorIs(t, err, domain.ErrNoTranscript)

	_, err = d.Derive(ctx, &domain.Video{ID: "v3", CaptionsPath: "captions/missing.vtt"})
	assert.ErrorIs(t, err, domain.ErrNoTranscript)

	_, err = d.Derive(ctx, &domain.Video{ID: "v4", CaptionsPath: "captions/empty.vtt"})
	assert.ErrorIs(t, err, domain.ErrNoTranscript)
}
