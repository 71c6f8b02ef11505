package extractors

import (
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
	"github.com/custodia-labs/coursedex/internal/extractors/book"
	"github.com/custodia-labs/coursedex/internal/extractors/course"
	"github.com/custodia-labs/coursedex/internal/extractors/video"
)

// Dependencies are the collaborators shared by the built-in extractors.
type Dependencies struct {
	Content     driven.ContentRepository
	Blobs       driven.BlobStorage
	Normalisers driven.NormaliserRegistry

	// Transcripts is optional. When nil, videos without a cached
	// transcript are skipped.
	Transcripts driven.TranscriptDeriver
}

// Defaults returns a registry with the book, video and course extractors.
func Defaults(deps Dependencies) *Registry {
	return NewRegistry(
		book.New(deps.Content, deps.Blobs, deps.Normalisers),
		video.New(deps.Content, video.WithDeriver(deps.Transcripts)),
		course.New(deps.Content, deps.Normalisers),
	)
}
