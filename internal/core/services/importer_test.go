package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driving"
)

func TestImportService_ImportAndProcess(t *testing.T) {
	p := newPipeline(t, newStubEmbedding())
	ctx := context.Background()

	dir := t.TempDir()
	bookFile := filepath.Join(dir, "golang.txt")
	require.NoError(t, os.WriteFile(bookFile, []byte(longLesson), 0o600))
	captions := filepath.Join(dir, "intro.vtt")
	require.NoError(t, os.WriteFile(captions, []byte("WEBVTT\n\n00:00:00.000 --> 00:00:05.000\nHello golang\n"), 0o600))

	manifest := &domain.ImportManifest{
		Books:  []domain.ImportBook{{ID: "b1", Title: "Go", Source: bookFile}},
		Videos: []domain.ImportVideo{{ID: "v1", Title: "Intro", CaptionsSource: captions}},
		Courses: []domain.Course{{
			ID:      "c1",
			Lessons: []domain.Lesson{{Title: "One", Format: domain.LessonFormatText, Body: "Golang basics."}},
		}},
	}

	importer := NewImportService(p.content, p.blobs, p.indexer)
	result, err := importer.Import(ctx, manifest, driving.ImportOptions{Enqueue: true, Priority: 2})
	require.NoError(t, err)
	assert.Len(t, result.Refs, 3)
	assert.Equal(t, 2, result.Uploaded)
	assert.Equal(t, 3, result.Enqueued)

	book, err := p.content.GetBook(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "books/b1/golang.txt", book.FilePath)
	data, err := p.blobs.Download(ctx, book.FilePath)
	require.NoError(t, err)
	assert.Equal(t, longLesson, string(data))

	video, err := p.content.GetVideo(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "videos/v1/intro.vtt", video.CaptionsPath)

	entry, err := p.queue.Get(ctx, domain.ContentRef{ID: "c1", Type: domain.ContentTypeCourse})
	require.NoError(t, err)
	assert.Equal(t, 2, entry.Priority)

	res, err := p.indexer.Process(ctx, domain.ContentRef{ID: "b1", Type: domain.ContentTypeBook})
	require.NoError(t, err)
	assert.Positive(t, res.ChunkCount)
}

func TestImportService_WithoutEnqueue(t *testing.T) {
	p := newPipeline(t, newStubEmbedding())
	ctx := context.Background()

	manifest := &domain.ImportManifest{
		Books: []domain.ImportBook{{ID: "b1", FilePath: "existing/book.pdf"}},
	}
	result, err := NewImportService(p.content, p.blobs, p.indexer).Import(ctx, manifest, driving.ImportOptions{})
	require.NoError(t, err)
	assert.Zero(t, result.Uploaded)
	assert.Zero(t, result.Enqueued)

	book, err := p.content.GetBook(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "existing/book.pdf", book.FilePath)

	stats, err := p.queue.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Total())
}

func TestImportService_Errors(t *testing.T) {
	p := newPipeline(t, newStubEmbedding())
	importer := NewImportService(p.content, p.blobs, p.indexer)
	ctx := context.Background()

	_, err := importer.Import(ctx, nil, driving.ImportOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = importer.Import(ctx, &domain.ImportManifest{
		Courses: []domain.Course{{ID: "c1"}, {ID: "c1"}},
	}, driving.ImportOptions{})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = importer.Import(ctx, &domain.ImportManifest{
		Books: []domain.ImportBook{{ID: "b1", Source: filepath.Join(t.TempDir(), "missing.pdf")}},
	}, driving.ImportOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
