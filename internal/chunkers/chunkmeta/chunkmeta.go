// Package chunkmeta assigns identity and shared metadata to chunker output.
package chunkmeta

import (
	"github.com/google/uuid"

	"github.com/custodia-labs/coursedex/internal/core/domain"
)

// Finalise stamps chunks with IDs, the content reference, contiguous
// indexes from 0 and the metadata every chunk carries. Keys already set on
// a chunk win over content-level metadata.
func Finalise(ref domain.ContentRef, strategy string, contentMeta map[string]any, chunks []domain.Chunk) []domain.Chunk {
	for i := range chunks {
		meta := make(map[string]any, len(contentMeta)+len(chunks[i].Metadata)+2)
		for k, v := range contentMeta {
			meta[k] = v
		}
		for k, v := range chunks[i].Metadata {
			meta[k] = v
		}
		if _, ok := meta[domain.MetaStrategy]; !ok {
			meta[domain.MetaStrategy] = strategy
		}
		meta[domain.MetaTotalChunks] = len(chunks)

		chunks[i].ID = uuid.New().String()
		chunks[i].ContentID = ref.ID
		chunks[i].ContentType = ref.Type
		chunks[i].ChunkIndex = i
		chunks[i].Metadata = meta
	}
	return chunks
}
