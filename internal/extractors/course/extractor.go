// Package course extracts text from structured course lessons.
package course

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

var formatMIME = map[domain.LessonFormat]string{
	domain.LessonFormatText:     "text/plain",
	domain.LessonFormatMarkdown: "text/markdown",
	domain.LessonFormatHTML:     "text/html",
}

// Extractor concatenates the stored lesson bodies of a course.
type Extractor struct {
	content     driven.ContentRepository
	normalisers driven.NormaliserRegistry
}

// New creates a course extractor.
func New(content driven.ContentRepository, normalisers driven.NormaliserRegistry) *Extractor {
	return &Extractor{content: content, normalisers: normalisers}
}

// ContentType returns domain.ContentTypeCourse.
func (e *Extractor) ContentType() domain.ContentType {
	return domain.ContentTypeCourse
}

// Extract returns the lesson texts in position order, each preceded by its
// title. A course without lesson text yields empty content.
func (e *Extractor) Extract(ctx context.Context, contentID string) (*domain.ExtractedContent, error) {
	ref := domain.ContentRef{ID: contentID, Type: domain.ContentTypeCourse}

	course, err := e.content.GetCourse(ctx, contentID)
	if err != nil {
		return nil, &domain.ExtractionError{Ref: ref, Reason: "load course", Err: err}
	}

	lessons := make([]domain.Lesson, len(course.Lessons))
	copy(lessons, course.Lessons)
	sort.SliceStable(lessons, func(i, j int) bool {
		return lessons[i].Position < lessons[j].Position
	})

	var parts []string
	included := 0
	for i, lesson := range lessons {
		text, err := e.lessonText(ctx, lesson)
		if err != nil {
			return nil, &domain.ExtractionError{
				Ref:    ref,
				Reason: fmt.Sprintf("lesson %d (%q)", i, lesson.Title),
				Err:    err,
			}
		}
		if text == "" {
			continue
		}
		if title := strings.TrimSpace(lesson.Title); title != "" && !strings.HasPrefix(text, title) {
			parts = append(parts, title)
		}
		parts = append(parts, text)
		included++
	}

	return &domain.ExtractedContent{
		Text: strings.Join(parts, "\n\n"),
		Metadata: map[string]any{
			domain.MetaTitle:   course.Title,
			domain.MetaOwnerID: course.OwnerID,
			"lessons":          included,
		},
	}, nil
}

func (e *Extractor) lessonText(ctx context.Context, lesson domain.Lesson) (string, error) {
	if strings.TrimSpace(lesson.Body) == "" {
		return "", nil
	}

	format := lesson.Format
	if format == "" {
		format = domain.LessonFormatText
	}
	mime, ok := formatMIME[format]
	if !ok {
		return "", fmt.Errorf("%w: lesson format %q", domain.ErrUnsupportedType, lesson.Format)
	}

	result, err := e.normalisers.Normalise(ctx, &domain.RawFile{
		Name:     lesson.Title,
		MIMEType: mime,
		Content:  []byte(lesson.Body),
	})
	if err != nil {
		return "", fmt.Errorf("normalise %s lesson: %w", format, err)
	}
	return strings.TrimSpace(result.Text), nil
}
