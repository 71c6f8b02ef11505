// Package normalisers provides the registry that dispatches raw files to
// format-specific normalisers. Each normaliser subpackage knows how to
// extract text content from a specific MIME type.
//
// Normalisers are registered with the Registry at startup via Defaults.
package normalisers
