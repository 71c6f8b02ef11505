package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
)

// Ensure ContentStore implements the interfaces.
var (
	_ driven.ContentRepository = (*ContentStore)(nil)
	_ driven.ContentWriter     = (*ContentStore)(nil)
)

// ContentStore is an in-memory implementation of driven.ContentRepository.
type ContentStore struct {
	mu       sync.RWMutex
	books    map[string]domain.Book
	videos   map[string]domain.Video
	courses  map[string]domain.Course
	statuses map[domain.ContentRef]domain.ContentStatus
}

// NewContentStore creates a new in-memory content store.
func NewContentStore() *ContentStore {
	return &ContentStore{
		books:    make(map[string]domain.Book),
		videos:   make(map[string]domain.Video),
		courses:  make(map[string]domain.Course),
		statuses: make(map[domain.ContentRef]domain.ContentStatus),
	}
}

// SaveBook stores or replaces a book record.
func (s *ContentStore) SaveBook(_ context.Context, book *domain.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books[book.ID] = *book
	return nil
}

// SaveVideo stores or replaces a video record.
func (s *ContentStore) SaveVideo(_ context.Context, video *domain.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[video.ID] = copyVideo(*video)
	return nil
}

// SaveCourse stores or replaces a course record.
func (s *ContentStore) SaveCourse(_ context.Context, course *domain.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *course
	c.Lessons = append([]domain.Lesson(nil), course.Lessons...)
	s.courses[course.ID] = c
	return nil
}

// GetBook retrieves a book record.
func (s *ContentStore) GetBook(_ context.Context, id string) (*domain.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &b, nil
}

// GetVideo retrieves a video record.
func (s *ContentStore) GetVideo(_ context.Context, id string) (*domain.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.videos[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	v = copyVideo(v)
	return &v, nil
}

// GetCourse retrieves a course record.
func (s *ContentStore) GetCourse(_ context.Context, id string) (*domain.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c.Lessons = append([]domain.Lesson(nil), c.Lessons...)
	return &c, nil
}

// CacheTranscript stores derived transcript segments on the video.
func (s *ContentStore) CacheTranscript(_ context.Context, videoID string, segments []domain.TimedSegment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[videoID]
	if !ok {
		return domain.ErrNotFound
	}
	v.TranscriptSegments = append([]domain.TimedSegment(nil), segments...)
	s.videos[videoID] = v
	return nil
}

// SetStatus records the processing status of a content item.
// Returns domain.ErrNotFound if the record does not exist.
func (s *ContentStore) SetStatus(_ context.Context, status domain.ContentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exists(status.Ref) {
		return domain.ErrNotFound
	}
	if status.UpdatedAt.IsZero() {
		status.UpdatedAt = time.Now()
	}
	s.statuses[status.Ref] = status
	return nil
}

// GetStatus returns the processing status of a content item.
func (s *ContentStore) GetStatus(_ context.Context, ref domain.ContentRef) (*domain.ContentStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.statuses[ref]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &st, nil
}

func (s *ContentStore) exists(ref domain.ContentRef) bool {
	var ok bool
	switch ref.Type {
	case domain.ContentTypeBook:
		_, ok = s.books[ref.ID]
	case domain.ContentTypeVideo:
		_, ok = s.videos[ref.ID]
	case domain.ContentTypeCourse:
		_, ok = s.courses[ref.ID]
	}
	return ok
}

func copyVideo(v domain.Video) domain.Video {
	v.TranscriptSegments = append([]domain.TimedSegment(nil), v.TranscriptSegments...)
	v.Chapters = append([]domain.Chapter(nil), v.Chapters...)
	return v
}
