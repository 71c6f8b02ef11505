package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	workerCount int
	workerDrain bool
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run background indexing workers",
	Long: `Starts worker loops that claim queued content and index it.

By default the workers run until interrupted. With --drain they process
the queue until nothing is pending and then exit.`,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().IntVarP(&workerCount, "workers", "w", 0, "number of worker loops (default from config)")
	workerCmd.Flags().BoolVar(&workerDrain, "drain", false, "exit once the queue is empty")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	if newWorkerPool == nil {
		return errors.New("worker pool not configured")
	}
	ctx := cmd.Context()
	pool := newWorkerPool(workerCount)

	if workerDrain {
		result, err := pool.Drain(ctx)
		if err != nil {
			return fmt.Errorf("drain failed: %w", err)
		}
		cmd.Printf("Drained queue: %d completed, %d failed\n", result.Completed, result.Failed)
		return nil
	}

	if err := pool.Start(ctx); err != nil {
		return fmt.Errorf("start workers: %w", err)
	}
	cmd.Println("Workers running. Press Ctrl+C to stop.")
	<-ctx.Done()
	pool.Stop()
	cmd.Println("Workers stopped.")
	return nil
}
