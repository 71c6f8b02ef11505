// Package epub provides a Normaliser for EPUB books. It follows the OPF
// spine so chapters come out in reading order, and renders each XHTML
// content document through the html normaliser's text walker.
package epub

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
	"github.com/custodia-labs/coursedex/internal/normalisers/html"
	"github.com/custodia-labs/coursedex/internal/normalisers/textclean"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles EPUB documents.
type Normaliser struct{}

// New creates a new EPUB normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/epub+zip"}
}

// SupportedExtensions returns the file extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{"epub"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 60
}

type container struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type opfPackage struct {
	Title    []string `xml:"metadata>title"`
	Creator  []string `xml:"metadata>creator"`
	Language string   `xml:"metadata>language"`
	Manifest []struct {
		ID        string `xml:"id,attr"`
		Href      string `xml:"href,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"manifest>item"`
	Spine []struct {
		IDRef  string `xml:"idref,attr"`
		Linear string `xml:"linear,attr"`
	} `xml:"spine>itemref"`
}

// Normalise extracts the spine documents of an EPUB in reading order.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawFile) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	zr, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: open epub: %v", domain.ErrInvalidInput, err)
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	var c container
	if err := readXML(files, "META-INF/container.xml", &c); err != nil {
		return nil, err
	}
	if len(c.Rootfiles) == 0 || c.Rootfiles[0].FullPath == "" {
		return nil, fmt.Errorf("%w: epub container has no rootfile", domain.ErrInvalidInput)
	}
	opfPath := c.Rootfiles[0].FullPath

	var pkg opfPackage
	if err := readXML(files, opfPath, &pkg); err != nil {
		return nil, err
	}

	hrefs := make(map[string]string, len(pkg.Manifest))
	for _, item := range pkg.Manifest {
		if isHTML(item.MediaType) {
			hrefs[item.ID] = resolve(opfPath, item.Href)
		}
	}

	var parts []string
	for _, ref := range pkg.Spine {
		if ref.Linear == "no" {
			continue
		}
		name, ok := hrefs[ref.IDRef]
		if !ok {
			continue
		}
		data, err := readFile(files, name)
		if err != nil {
			return nil, err
		}
		_, text, err := html.ExtractText(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("chapter %s: %w", name, err)
		}
		if text != "" {
			parts = append(parts, text)
		}
	}

	title := first(pkg.Title)
	if title == "" {
		title = textclean.TitleFromName(raw.Name)
	}

	meta := textclean.CopyMetadata(raw.Metadata)
	meta["mime_type"] = raw.MIMEType
	meta["format"] = "epub"
	meta["chapters"] = len(parts)
	if pkg.Language != "" {
		meta["language"] = strings.TrimSpace(pkg.Language)
	}

	return &driven.NormaliseResult{
		Text:     strings.Join(parts, "\n\n"),
		Title:    title,
		Author:   strings.Join(trimAll(pkg.Creator), ", "),
		Metadata: meta,
	}, nil
}

func isHTML(mediaType string) bool {
	return mediaType == "application/xhtml+xml" || mediaType == "text/html"
}

// resolve turns a manifest href into a zip entry name relative to the OPF.
func resolve(opfPath, href string) string {
	if unescaped, err := url.PathUnescape(href); err == nil {
		href = unescaped
	}
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}
	return path.Join(path.Dir(opfPath), href)
}

func readFile(files map[string]*zip.File, name string) ([]byte, error) {
	f, ok := files[name]
	if !ok {
		return nil, fmt.Errorf("%w: epub missing %s", domain.ErrInvalidInput, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrInvalidInput, name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrInvalidInput, name, err)
	}
	return data, nil
}

func readXML(files map[string]*zip.File, name string, v any) error {
	data, err := readFile(files, name)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: parse %s: %v", domain.ErrInvalidInput, name, err)
	}
	return nil
}

func first(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
