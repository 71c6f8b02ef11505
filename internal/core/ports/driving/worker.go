package driving

import "context"

// WorkerPool runs background loops that drain the processing queue.
type WorkerPool interface {
	// Start launches the worker loops. Loops run until ctx is cancelled
	// or Stop is called.
	Start(ctx context.Context) error

	// Stop signals the loops to exit and waits for in-flight items.
	Stop()

	// Drain processes queued entries until none are pending, then returns
	// the number of entries handled.
	Drain(ctx context.Context) (*DrainResult, error)
}

// DrainResult counts entries handled by Drain.
type DrainResult struct {
	Completed int
	Failed    int
}
