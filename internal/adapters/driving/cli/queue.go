package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/coursedex/internal/core/domain"
)

var (
	queueListStatus string
	queueListLimit  int
	queueListJSON   bool
	queueOlderThan  time.Duration
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and maintain the processing queue",
	RunE:  runQueueStats,
}

var queueStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count entries by status",
	RunE:  runQueueStats,
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queue entries, oldest first",
	RunE:  runQueueList,
}

var queueRetryCmd = &cobra.Command{
	Use:   "retry-failed",
	Short: "Return failed entries to pending",
	RunE:  runQueueRetry,
}

var queuePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete old completed entries",
	RunE:  runQueuePurge,
}

func init() {
	queueListCmd.Flags().StringVarP(&queueListStatus, "status", "s", "", "filter by status (pending, processing, completed, failed)")
	queueListCmd.Flags().IntVarP(&queueListLimit, "limit", "n", 50, "maximum number of entries")
	queueListCmd.Flags().BoolVar(&queueListJSON, "json", false, "output entries as JSON")
	queuePurgeCmd.Flags().DurationVar(&queueOlderThan, "older-than", 7*24*time.Hour, "minimum age of purged entries")

	queueCmd.AddCommand(queueStatsCmd, queueListCmd, queueRetryCmd, queuePurgeCmd)
	rootCmd.AddCommand(queueCmd)
}

func requireQueue() error {
	if queueService == nil {
		return errors.New("queue service not configured")
	}
	return nil
}

func runQueueStats(cmd *cobra.Command, _ []string) error {
	if err := requireQueue(); err != nil {
		return err
	}
	stats, err := queueService.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get queue stats: %w", err)
	}

	cmd.Println("Queue")
	cmd.Println("=====")
	cmd.Printf("  Pending:    %d\n", stats.Pending)
	cmd.Printf("  Processing: %d\n", stats.Processing)
	cmd.Printf("  Completed:  %d\n", stats.Completed)
	cmd.Printf("  Failed:     %d\n", stats.Failed)
	cmd.Printf("  Total:      %d\n", stats.Total())
	return nil
}

func runQueueList(cmd *cobra.Command, _ []string) error {
	if err := requireQueue(); err != nil {
		return err
	}
	entries, err := queueService.List(cmd.Context(), domain.QueueStatus(queueListStatus), queueListLimit)
	if err != nil {
		return fmt.Errorf("failed to list queue: %w", err)
	}

	if queueListJSON {
		if entries == nil {
			entries = []domain.QueueEntry{}
		}
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal entries: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(entries) == 0 {
		cmd.Println("Queue is empty.")
		return nil
	}
	for _, e := range entries {
		cmd.Printf("  %-10s %-24s p=%d  %s\n", e.Status, e.Ref(), e.Priority, e.CreatedAt.Format(time.RFC3339))
		if e.ErrorMessage != "" {
			cmd.Printf("             %s\n", e.ErrorMessage)
		}
	}
	return nil
}

func runQueueRetry(cmd *cobra.Command, _ []string) error {
	if err := requireQueue(); err != nil {
		return err
	}
	n, err := queueService.RetryFailed(cmd.Context())
	if err != nil {
		return fmt.Errorf("retry failed: %w", err)
	}
	cmd.Printf("Requeued %d failed entries\n", n)
	return nil
}

func runQueuePurge(cmd *cobra.Command, _ []string) error {
	if err := requireQueue(); err != nil {
		return err
	}
	n, err := queueService.Purge(cmd.Context(), queueOlderThan)
	if err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}
	cmd.Printf("Purged %d completed entries\n", n)
	return nil
}
