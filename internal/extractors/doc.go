// Package extractors selects the content extractor for a content type.
//
// Each sub-package implements driven.Extractor for one content type:
//
//   - book: stored file bytes through the format normalisers
//   - video: cached transcript, else on-demand derivation
//   - course: stored lesson bodies in position order
package extractors
