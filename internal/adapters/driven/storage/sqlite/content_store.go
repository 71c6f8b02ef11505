package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
)

// Ensure contentStore implements the interfaces.
var (
	_ driven.ContentRepository = (*contentStore)(nil)
	_ driven.ContentWriter     = (*contentStore)(nil)
)

// contentStore wraps Store to implement driven.ContentRepository and
// driven.ContentWriter over the books, videos and courses tables.
type contentStore struct {
	store *Store
}

// ==================== Records ====================

// SaveBook inserts or updates a book record. Status columns are preserved.
func (c *contentStore) SaveBook(ctx context.Context, book *domain.Book) error {
	_, err := c.store.db.ExecContext(ctx, `
		INSERT INTO books (id, owner_id, title, author, file_path, file_type)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			title = excluded.title,
			author = excluded.author,
			file_path = excluded.file_path,
			file_type = excluded.file_type`,
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

	_, err = c.store.db.ExecContext(ctx, `
		INSERT INTO videos (id, owner_id, title, url, duration, transcript_segments, transcript, chapters, captions_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			title = excluded.title,
			url = excluded.url,
			duration = excluded.duration,
			transcript_segments = excluded.transcript_segments,
			transcript = excluded.transcript,
			chapters = excluded.chapters,
			captions_path = excluded.captions_path`,
		video.ID, video.OwnerID, video.Title, video.URL, video.Duration,
		segments, video.Transcript, chapters, video.CaptionsPath)
	if err != nil {
		return fmt.Errorf("saving video: %w", err)
	}
	return nil
}

// SaveCourse inserts or updates a course and replaces its lessons.
func (c *contentStore) SaveCourse(ctx context.Context, course *domain.Course) error {
	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO courses (id, owner_id, title) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET owner_id = excluded.owner_id, title = excluded.title`,
		course.ID, course.OwnerID, course.Title)
	if err != nil {
		return fmt.Errorf("saving course: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM lessons WHERE course_id = ?", course.ID); err != nil {
		return fmt.Errorf("clearing lessons: %w", err)
	}
	for i, l := range course.Lessons {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO lessons (course_id, lesson_index, position, title, format, body)
			VALUES (?, ?, ?, ?, ?, ?)`,
			course.ID, i, l.Position, l.Title, string(l.Format), l.Body)
		if err != nil {
			return fmt.Errorf("saving lesson %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// GetBook retrieves a book record.
func (c *contentStore) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	var b domain.Book
	err := c.store.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, author, file_path, file_type FROM books WHERE id = ?`, id).
		Scan(&b.ID, &b.OwnerID, &b.Title, &b.Author, &b.FilePath, &b.FileType)
	if errors.Is(err, sql.ErrNoRows) {
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
		segments, chapters string
	)
	err := c.store.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, url, duration, transcript_segments, transcript, chapters, captions_path
		FROM videos WHERE id = ?`, id).
		Scan(&v.ID, &v.OwnerID, &v.Title, &v.URL, &v.Duration, &segments, &v.Transcript, &chapters, &v.CaptionsPath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting video: %w", err)
	}
	if err := json.Unmarshal([]byte(segments), &v.TranscriptSegments); err != nil {
		return nil, fmt.Errorf("unmarshalling transcript: %w", err)
	}
	if err := json.Unmarshal([]byte(chapters), &v.Chapters); err != nil {
		return nil, fmt.Errorf("unmarshalling chapters: %w", err)
	}
	return &v, nil
}

// GetCourse retrieves a course record with its lessons in stored order.
func (c *contentStore) GetCourse(ctx context.Context, id string) (*domain.Course, error) {
	var course domain.Course
	err := c.store.db.QueryRowContext(ctx,
		"SELECT id, owner_id, title FROM courses WHERE id = ?", id).
		Scan(&course.ID, &course.OwnerID, &course.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting course: %w", err)
	}

	rows, err := c.store.db.QueryContext(ctx, `
		SELECT position, title, format, body FROM lessons
		WHERE course_id = ? ORDER BY lesson_index`, id)
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
	result, err := c.store.db.ExecContext(ctx,
		"UPDATE videos SET transcript_segments = ? WHERE id = ?", data, videoID)
	if err != nil {
		return fmt.Errorf("caching transcript: %w", err)
	}
	return requireRow(result)
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

	result, err := c.store.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET status = ?, status_message = ?, chunk_count = ?, processed_at = ?, status_updated_at = ?
		WHERE id = ?`, table),
		string(status.Status), status.Message, status.ChunkCount,
		nanos(status.ProcessedAt), updated.UnixNano(), status.Ref.ID)
	if err != nil {
		return fmt.Errorf("setting status: %w", err)
	}
	return requireRow(result)
}

// GetStatus reads the status columns of the content record.
func (c *contentStore) GetStatus(ctx context.Context, ref domain.ContentRef) (*domain.ContentStatus, error) {
	table, err := contentTable(ref.Type)
	if err != nil {
		return nil, err
	}

	out := domain.ContentStatus{Ref: ref}
	var (
		status             sql.NullString
		processed, updated sql.NullInt64
	)
	err = c.store.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT status, status_message, chunk_count, processed_at, status_updated_at
		FROM %s WHERE id = ?`, table), ref.ID).
		Scan(&status, &out.Message, &out.ChunkCount, &processed, &updated)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !status.Valid) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting status: %w", err)
	}

	out.Status = domain.ProcessingStatus(status.String)
	out.ProcessedAt = fromNanos(processed)
	if updated.Valid {
		out.UpdatedAt = time.Unix(0, updated.Int64)
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

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
