package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
	"github.com/custodia-labs/coursedex/internal/core/ports/driving"
	"github.com/custodia-labs/coursedex/internal/logger"
)

// Ensure ImportService implements the interface.
var _ driving.Importer = (*ImportService)(nil)

// ImportService registers manifest records and uploads their files.
type ImportService struct {
	content  driven.ContentWriter
	blobs    driven.BlobStorage
	indexer  driving.Indexer
	readFile func(string) ([]byte, error)
	log      *slog.Logger
}

// NewImportService creates a new import service.
func NewImportService(content driven.ContentWriter, blobs driven.BlobStorage, indexer driving.Indexer) *ImportService {
	return &ImportService{
		content:  content,
		blobs:    blobs,
		indexer:  indexer,
		readFile: os.ReadFile,
		log:      logger.Component("import"),
	}
}

// Import saves every record in the manifest. It stops at the first error;
// records saved before it are kept.
func (s *ImportService) Import(ctx context.Context, manifest *domain.ImportManifest, opts driving.ImportOptions) (*driving.ImportResult, error) {
	if manifest == nil {
		return nil, fmt.Errorf("%w: nil manifest", domain.ErrInvalidInput)
	}
	if err := manifest.Validate(); err != nil {
		return nil, fmt.Errorf("validate manifest: %w", err)
	}

	result := &driving.ImportResult{}

	for _, b := range manifest.Books {
		filePath, uploaded, err := s.upload(ctx, b.Source, b.FilePath, "books", b.ID)
		if err != nil {
			return result, fmt.Errorf("import book %s: %w", b.ID, err)
		}
		if uploaded {
			result.Uploaded++
		}
		if err := s.content.SaveBook(ctx, b.Book(filePath)); err != nil {
			return result, fmt.Errorf("save book %s: %w", b.ID, err)
		}
		result.Refs = append(result.Refs, domain.ContentRef{ID: b.ID, Type: domain.ContentTypeBook})
	}

	for _, v := range manifest.Videos {
		captionsPath, uploaded, err := s.upload(ctx, v.CaptionsSource, v.CaptionsPath, "videos", v.ID)
		if err != nil {
			return result, fmt.Errorf("import video %s: %w", v.ID, err)
		}
		if uploaded {
			result.Uploaded++
		}
		if err := s.content.SaveVideo(ctx, v.Video(captionsPath)); err != nil {
			return result, fmt.Errorf("save video %s: %w", v.ID, err)
		}
		result.Refs = append(result.Refs, domain.ContentRef{ID: v.ID, Type: domain.ContentTypeVideo})
	}

	for i := range manifest.Courses {
		c := &manifest.Courses[i]
		if err := s.content.SaveCourse(ctx, c); err != nil {
			return result, fmt.Errorf("save course %s: %w", c.ID, err)
		}
		result.Refs = append(result.Refs, domain.ContentRef{ID: c.ID, Type: domain.ContentTypeCourse})
	}

	if opts.Enqueue {
		for _, ref := range result.Refs {
			if _, err := s.indexer.Enqueue(ctx, ref, opts.Priority, map[string]any{"source": "import"}); err != nil {
				return result, err
			}
			result.Enqueued++
		}
	}

	s.log.Info("manifest imported",
		"records", len(result.Refs),
		"uploaded", result.Uploaded,
		"enqueued", result.Enqueued)
	return result, nil
}

// upload copies a local file into blob storage under prefix/id/.
// Without a source the existing blob path is returned unchanged.
func (s *ImportService) upload(ctx context.Context, source, existing, prefix, id string) (string, bool, error) {
	if source == "" {
		return existing, false, nil
	}
	data, err := s.readFile(source)
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", source, err)
	}
	blobPath := path.Join(prefix, id, filepath.Base(source))
	if err := s.blobs.Upload(ctx, data, blobPath); err != nil {
		return "", false, fmt.Errorf("upload %s: %w", blobPath, err)
	}
	s.log.Debug("file uploaded", "source", source, "path", blobPath, "bytes", len(data))
	return blobPath, true, nil
}
