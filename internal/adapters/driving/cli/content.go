package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driving"
)

var (
	enqueuePriority int
	statusJSON      bool
)

var processCmd = &cobra.Command{
	Use:   "process <type> <id>",
	Short: "Index one content item now",
	Long: `Runs the extract, chunk, embed and store pipeline for one content item
and waits for it to finish. Types are book, video and course.`,
	Args: cobra.ExactArgs(2),
	RunE: runProcess,
}

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <type> <id>",
	Short: "Queue content for background indexing",
	Args:  cobra.ExactArgs(2),
	RunE:  runEnqueue,
}

var removeCmd = &cobra.Command{
	Use:   "remove <type> <id>",
	Short: "Delete the indexed chunks of a content item",
	Args:  cobra.ExactArgs(2),
	RunE:  runRemove,
}

var statusCmd = &cobra.Command{
	Use:   "status <type> <id>",
	Short: "Show the indexing status of a content item",
	Args:  cobra.ExactArgs(2),
	RunE:  runStatus,
}

func init() {
	enqueueCmd.Flags().IntVarP(&enqueuePriority, "priority", "p", 0, "queue priority; higher runs first")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	rootCmd.AddCommand(processCmd, enqueueCmd, removeCmd, statusCmd)
}

func requireIndexer() error {
	if indexerService == nil {
		return errors.New("indexer not configured")
	}
	return nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	if err := requireIndexer(); err != nil {
		return err
	}
	ref, err := parseRef(args)
	if err != nil {
		return err
	}

	result, err := indexerService.Process(cmd.Context(), ref)
	if err != nil {
		return fmt.Errorf("process failed: %w", err)
	}

	if result.Skipped {
		cmd.Printf("Skipped %s: %s\n", ref, result.SkipReason)
		return nil
	}
	cmd.Printf("Indexed %s: %d chunks (%s) in %s\n",
		ref, result.ChunkCount, result.Strategy, result.Duration.Round(time.Millisecond))
	return nil
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	if err := requireIndexer(); err != nil {
		return err
	}
	ref, err := parseRef(args)
	if err != nil {
		return err
	}

	entry, err := indexerService.Enqueue(cmd.Context(), ref, enqueuePriority, map[string]any{"source": "cli"})
	if err != nil {
		return fmt.Errorf("enqueue failed: %w", err)
	}
	cmd.Printf("Queued %s (entry %s, status %s, priority %d)\n", ref, entry.ID, entry.Status, entry.Priority)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	if err := requireIndexer(); err != nil {
		return err
	}
	ref, err := parseRef(args)
	if err != nil {
		return err
	}

	if err := indexerService.Remove(cmd.Context(), ref); err != nil {
		return fmt.Errorf("remove failed: %w", err)
	}
	cmd.Printf("Removed chunks of %s\n", ref)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := requireIndexer(); err != nil {
		return err
	}
	ref, err := parseRef(args)
	if err != nil {
		return err
	}

	status, err := indexerService.Status(cmd.Context(), ref)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%s has not been processed or queued", ref)
	}
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	if statusJSON {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printStatus(cmd, ref, status)
	return nil
}

func printStatus(cmd *cobra.Command, ref domain.ContentRef, status *driving.IndexStatus) {
	cmd.Printf("%s\n", ref)
	if c := status.Content; c != nil {
		cmd.Printf("  Status:    %s\n", c.Status)
		if c.Message != "" {
			cmd.Printf("  Message:   %s\n", c.Message)
		}
		if c.ProcessedAt != nil {
			cmd.Printf("  Processed: %s\n", c.ProcessedAt.Format(time.RFC3339))
		}
	}
	cmd.Printf("  Chunks:    %d\n", status.Chunks)
	if q := status.Queue; q != nil {
		cmd.Printf("  Queue:     %s (priority %d)\n", q.Status, q.Priority)
		if q.ErrorMessage != "" {
			cmd.Printf("  Error:     %s\n", q.ErrorMessage)
		}
	}
}
