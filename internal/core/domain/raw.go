package domain

// RawFile represents opaque bytes resolved from blob storage.
// It is the input of a format normaliser.
type RawFile struct {
	// Name is the file name or storage path.
	Name string

	// MIMEType is the content type (e.g., "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte

	// Metadata contains record-level key-value pairs.
	Metadata map[string]any
}
