package driving

import (
	"context"

	"github.com/custodia-labs/coursedex/internal/core/domain"
)

// Retriever serves semantic similarity queries over indexed chunks.
type Retriever interface {
	// Search embeds the query and returns the topK most similar chunks in
	// scope, best first. Content that is still processing or failed simply
	// contributes fewer or no hits.
	Search(ctx context.Context, query string, scope domain.SearchScope, topK int) ([]domain.SearchHit, error)
}
