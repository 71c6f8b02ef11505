// Package domain defines the core business entities for coursedex.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - ContentRef: A reference to an externally owned book, video or course
//   - ExtractedContent: Normalised text or timed segments (never persisted)
//   - Chunk: A bounded, retrievable slice of content with its embedding
//   - QueueEntry: A unit of background indexing work
//   - ContentStatus: The processing status written back to a content record
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
