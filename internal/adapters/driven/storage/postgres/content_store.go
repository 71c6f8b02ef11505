package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
)

// Ensure contentStore implements the interfaces.
var (
	_ driven.ContentRepository = (*contentStore)(nil)
	_ driven.ContentWriter     = (*contentStore)(nil)
)

// contentStore wraps Store to implement the content record ports.
type contentStore struct {
	store *Store
}

// ==================== Records ====================

// SaveBook inserts or updates a book record. Status columns are preserved.
func (c *contentStore) SaveBook(ctx context.Context, book *domain.Book) error {
	_, err := c.store.pool.Exec(ctx, `
		INSERT INTO books (id, owner_id, title, author, file_path, file_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			title = EXCLUDED.title,
			author = EXCLUDED.author,
			file_path = EXCLUDED.file_path,
			file_type = EXCLUDED.file_type`,
		book.ID, book.OwnerID, book.Title, book.Author, book.FilePath, book.FileType)
	if err != nil {
		return fmt.Errorf("saving book: %w", err)
	}
	return nil
}

// SaveVideo inserts or updates a video record. Status columns are preserved.
func (c *contentStore) SaveVideo(ctx context.Context, video *domain.Video) error {
	segments, err := marshalJSON(video.TranscriptSegments, "[]")
	if err != nil {
		return fmt.Errorf("marshalling transcript: %w", err)
	}
	chapters, err := marshalJSON(video.Chapters, "[]")
	if err != nil {
		return fmt.Errorf("marshalling chapters: %w", err)
	}

	_, err = c.store.pool.Exec(ctx, `
		INSERT INTO videos (id, owner_id, title, url, duration, transcript_segments, transcript, chapters, captions_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			title = EXCLUDED.title,
			url = EXCLUDED.url,
			duration = EXCLUDED.duration,
			transcript_segments = EXCLUDED.transcript_segments,
			transcript = EXCLUDED.transcript,
			chapters = EXCLUDED.chapters,
			captions_path = EXCLUDED.captions_path`,
		video.ID, video.OwnerID, video.Title, video.URL, video.Duration,
		segments, video.Transcript, chapters, video.CaptionsPath)
	if err != nil {
		return fmt.Errorf("saving video: %w", err)
	}
	return nil
}

// SaveCourse inserts or updates a course and replaces its lessons.
func (c *contentStore) SaveCourse(ctx context.Context, course *domain.Course) error {
	tx, err := c.store.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO courses (id, owner_id, title) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET owner_id = EXCLUDED.owner_id, title = EXCLUDED.title`,
		course.ID, course.OwnerID, course.Title)
	if err != nil {
		return fmt.Errorf("saving course: %w", err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM lessons WHERE course_id = $1", course.ID); err != nil {
		return fmt.Errorf("clearing lessons: %w", err)
	}

	batch := &pgx.Batch{}
	for i, l := range course.Lessons {
		batch.Queue(`
			INSERT INTO lessons (course_id, lesson_index, position, title, format, body)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			course.ID, i, l.Position, l.Title, string(l.Format), l.Body)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("saving lessons: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// GetBook retrieves a book record.
func (c *contentStore) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	var b domain.Book
	err := c.store.pool.QueryRow(ctx, `
		SELECT id, owner_id, title, author, file_path, file_type FROM books WHERE id = $1`, id).
		Scan(&b.ID, &b.OwnerID, &b.Title, &b.Author, &b.FilePath, &b.FileType)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting book: %w", err)
	}
	return &b, nil
}

// GetVideo retrieves a video record.
func (c *contentStore) GetVideo(ctx context.Context, id string) (*domain.Video, error) {
	var (
		v                  domain.Video
		segments, chapters []byte
	)
	err := c.store.pool.QueryRow(ctx, `
		SELECT id, owner_id, title, url, duration, transcript_segments, transcript, chapters, captions_path
		FROM videos WHERE id = $1`, id).
		Scan(&v.ID, &v.OwnerID, &v.Title, &v.URL, &v.Duration, &segments, &v.Transcript, &chapters, &v.CaptionsPath)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting video: %w", err)
	}
	if err := json.Unmarshal(segments, &v.TranscriptSegments); err != nil {
		return nil, fmt.Errorf("unmarshalling transcript: %w", err)
	}
	if err := json.Unmarshal(chapters, &v.Chapters); err != nil {
		return nil, fmt.Errorf("unmarshalling chapters: %w", err)
	}
	return &v, nil
}

// GetCourse retrieves a course record with its lessons in stored order.
func (c *contentStore) GetCourse(ctx context.Context, id string) (*domain.Course, error) {
	var course domain.Course
	err := c.store.pool.QueryRow(ctx,
		"SELECT id, owner_id, title FROM courses WHERE id = $1", id).
		Scan(&course.ID, &course.OwnerID, &course.Title)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting course: %w", err)
	}

	rows, err := c.store.pool.Query(ctx, `
		SELECT position, title, format, body FROM lessons
		WHERE course_id = $1 ORDER BY lesson_index`, id)
	if err != nil {
		return nil, fmt.Errorf("getting lessons: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.Lesson
		var format string
		if err := rows.Scan(&l.Position, &l.Title, &format, &l.Body); err != nil {
			return nil, fmt.Errorf("scanning lesson: %w", err)
		}
		l.Format = domain.LessonFormat(format)
		course.Lessons = append(course.Lessons, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("getting lessons: %w", err)
	}
	return &course, nil
}

// CacheTranscript stores derived transcript segments on the video.
func (c *contentStore) CacheTranscript(ctx context.Context, videoID string, segments []domain.TimedSegment) error {
	data, err := marshalJSON(segments, "[]")
	if err != nil {
		return fmt.Errorf("marshalling transcript: %w", err)
	}
	tag, err := c.store.pool.Exec(ctx,
		"UPDATE videos SET transcript_segments = $1 WHERE id = $2", data, videoID)
	if err != nil {
		return fmt.Errorf("caching transcript: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ==================== Status ====================

// SetStatus writes the status columns of the content record.
// Returns domain.ErrNotFound if the record does not exist.
func (c *contentStore) SetStatus(ctx context.Context, status domain.ContentStatus) error {
	table, err := contentTable(status.Ref.Type)
	if err != nil {
		return err
	}
	updated := status.UpdatedAt
	if updated.IsZero() {
		updated = c.store.now()
	}

	tag, err := c.store.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE %s SET status = $1, status_message = $2, chunk_count = $3, processed_at = $4, status_updated_at = $5
		WHERE id = $6`, table),
		string(status.Status), status.Message, status.ChunkCount, status.ProcessedAt, updated, status.Ref.ID)
	if err != nil {
		return fmt.Errorf("setting status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetStatus reads the status columns of the content record.
func (c *contentStore) GetStatus(ctx context.Context, ref domain.ContentRef) (*domain.ContentStatus, error) {
	table, err := contentTable(ref.Type)
	if err != nil {
		return nil, err
	}

	out := domain.ContentStatus{Ref: ref}
	var (
		status  *string
		updated *time.Time
	)
	err = c.store.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT status, status_message, chunk_count, processed_at, status_updated_at
		FROM %s WHERE id = $1`, table), ref.ID).
		Scan(&status, &out.Message, &out.ChunkCount, &out.ProcessedAt, &updated)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && status == nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting status: %w", err)
	}

	out.Status = domain.ProcessingStatus(*status)
	if updated != nil {
		out.UpdatedAt = *updated
	}
	return &out, nil
}

func contentTable(t domain.ContentType) (string, error) {
	switch t {
	case domain.ContentTypeBook:
		return "books", nil
	case domain.ContentTypeVideo:
		return "videos", nil
	case domain.ContentTypeCourse:
		return "courses", nil
	default:
		return "", fmt.Errorf("%w: content type %q", domain.ErrUnsupportedType, t)
	}
}
