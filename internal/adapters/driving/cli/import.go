package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driving"
)

var (
	importEnqueue  bool
	importPriority int
)

var importCmd = &cobra.Command{
	Use:   "import <manifest.toml>",
	Short: "Register books, videos and courses from a manifest",
	Long: `Reads a TOML manifest of content records, uploads referenced local files
to blob storage and saves the records. Relative file paths are resolved
against the manifest's directory.

Example manifest:

  [[books]]
  id = "go-book"
  title = "The Go Programming Language"
  source = "books/gopl.pdf"

  [[videos]]
  id = "intro"
  title = "Introduction"
  captions_source = "captions/intro.vtt"

  [[courses]]
  id = "go-101"
  title = "Go 101"
  [[courses.lessons]]
  title = "Hello"
  format = "markdown"
  body = "# Hello\n\nPrograms start in main."`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importEnqueue, "enqueue", false, "queue every imported item for indexing")
	importCmd.Flags().IntVarP(&importPriority, "priority", "p", 0, "queue priority for --enqueue")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	if importerService == nil {
		return errors.New("import service not configured")
	}

	manifest, err := loadManifest(args[0])
	if err != nil {
		return err
	}

	result, err := importerService.Import(cmd.Context(), manifest, driving.ImportOptions{
		Enqueue:  importEnqueue,
		Priority: importPriority,
	})
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	cmd.Printf("Imported %d records (%d files uploaded", len(result.Refs), result.Uploaded)
	if importEnqueue {
		cmd.Printf(", %d queued", result.Enqueued)
	}
	cmd.Println(")")
	return nil
}

// loadManifest decodes a manifest and resolves relative sources against
// the manifest's directory.
func loadManifest(path string) (*domain.ImportManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var manifest domain.ImportManifest
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	for i := range manifest.Books {
		manifest.Books[i].Source = resolve(manifest.Books[i].Source)
	}
	for i := range manifest.Videos {
		manifest.Videos[i].CaptionsSource = resolve(manifest.Videos[i].CaptionsSource)
	}
	return &manifest, nil
}
