package normalisers

import (
	"github.com/custodia-labs/coursedex/internal/normalisers/docx"
	"github.com/custodia-labs/coursedex/internal/normalisers/epub"
	"github.com/custodia-labs/coursedex/internal/normalisers/html"
	"github.com/custodia-labs/coursedex/internal/normalisers/markdown"
	"github.com/custodia-labs/coursedex/internal/normalisers/pdf"
	"github.com/custodia-labs/coursedex/internal/normalisers/plaintext"
)

// RegisterDefaults registers all built-in normalisers with the registry.
func RegisterDefaults(r *Registry) {
	r.Register(pdf.New())
	r.Register(epub.New())
	r.Register(docx.New())
	r.Register(html.New())
	r.Register(markdown.New())
	r.Register(plaintext.New())
}

// Defaults returns a registry holding every built-in normaliser.
func Defaults() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}
