package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/coursedex/internal/core/domain"
)

// snippetLength is the number of runes of chunk text shown per hit.
const snippetLength = 160

var (
	searchTypes    []string
	searchContents []string
	searchOwner    string
	searchTopK     int
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed content",
	Long: `Embeds the query and returns the most similar chunks, best first.
Results can be scoped by content type, content ID and owner.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringSliceVarP(&searchTypes, "type", "t", nil, "restrict to content types (book, video, course)")
	searchCmd.Flags().StringSliceVar(&searchContents, "content", nil, "restrict to content IDs")
	searchCmd.Flags().StringVar(&searchOwner, "owner", "", "restrict to one owner")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if retrieverService == nil {
		return errors.New("search service not configured")
	}

	scope := domain.SearchScope{
		ContentIDs: searchContents,
		OwnerID:    searchOwner,
	}
	for _, t := range searchTypes {
		ct, err := domain.ParseContentType(t)
		if err != nil {
			return err
		}
		scope.ContentTypes = append(scope.ContentTypes, ct)
	}

	hits, err := retrieverService.Search(cmd.Context(), strings.Join(args, " "), scope, searchTopK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, hits)
	}
	outputSearchTable(cmd, hits)
	return nil
}

func outputSearchJSON(cmd *cobra.Command, hits []domain.SearchHit) error {
	if hits == nil {
		hits = []domain.SearchHit{}
	}
	data, err := json.MarshalIndent(hits, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, hits []domain.SearchHit) {
	if len(hits) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, hit := range hits {
		c := hit.Chunk
		cmd.Printf("  [%d] %s #%d (%.2f)%s\n", i+1, c.Ref(), c.ChunkIndex, hit.Score, timeRange(c))
		if title, ok := c.Metadata[domain.MetaTitle].(string); ok && title != "" {
			cmd.Printf("      %s\n", title)
		}
		cmd.Printf("      %s\n", snippet(c.Text, snippetLength))
		cmd.Println()
	}
}

// timeRange renders " [mm:ss-mm:ss]" for timed chunks.
func timeRange(c domain.Chunk) string {
	if c.StartTime == nil || c.EndTime == nil {
		return ""
	}
	return fmt.Sprintf(" [%s-%s]", clock(*c.StartTime), clock(*c.EndTime))
}

func clock(seconds float64) string {
	total := int(seconds)
	if total >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", total/3600, total%3600/60, total%60)
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
