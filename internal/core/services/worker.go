package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
	"github.com/custodia-labs/coursedex/internal/core/ports/driving"
	"github.com/custodia-labs/coursedex/internal/logger"
)

// Ensure WorkerPool implements the interface.
var _ driving.WorkerPool = (*WorkerPool)(nil)

// WorkerPool runs a fixed number of loops that claim queue entries and
// process them. Loops run on an ants goroutine pool.
type WorkerPool struct {
	indexer  driving.Indexer
	queue    driven.ProcessingQueue
	embedder *EmbeddingGenerator
	settings domain.WorkerSettings
	log      *slog.Logger

	// submit hands a loop to the pool; replaced in tests.
	submit func(pool *ants.Pool, task func()) error

	mu      sync.Mutex
	running bool
	pool    *ants.Pool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewWorkerPool creates a worker pool. The worker count is clamped to
// [1, domain.MaxWorkerCount]; zero values take the defaults.
// embedder may be nil, in which case no start-up ping is made.
func NewWorkerPool(
	indexer driving.Indexer,
	queue driven.ProcessingQueue,
	embedder *EmbeddingGenerator,
	settings domain.WorkerSettings,
) *WorkerPool {
	defaults := domain.DefaultAppSettings().Worker
	if settings.Count <= 0 {
		settings.Count = defaults.Count
	}
	if settings.Count > domain.MaxWorkerCount {
		settings.Count = domain.MaxWorkerCount
	}
	if settings.IdleInterval <= 0 {
		settings.IdleInterval = defaults.IdleInterval
	}
	if settings.ItemTimeout <= 0 {
		settings.ItemTimeout = defaults.ItemTimeout
	}
	return &WorkerPool{
		indexer:  indexer,
		queue:    queue,
		embedder: embedder,
		settings: settings,
		log:      logger.Component("worker"),
		submit:   submitTask,
	}
}

func submitTask(pool *ants.Pool, task func()) error {
	return pool.Submit(task)
}

// Count returns the effective number of worker loops.
func (w *WorkerPool) Count() int {
	return w.settings.Count
}

// Start pings the embedding backend and launches the worker loops.
// It returns immediately; loops run until ctx is cancelled or Stop is called.
func (w *WorkerPool) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	if err := w.ping(ctx); err != nil {
		return err
	}

	pool, err := w.newPool()
	if err != nil {
		return err
	}
	stopCh := make(chan struct{})
	w.stopCh = stopCh

	for i := 0; i < w.settings.Count; i++ {
		id := i
		w.wg.Add(1)
		if err := w.submit(pool, func() {
			defer w.wg.Done()
			w.loop(ctx, id)
		}); err != nil {
			w.wg.Done()
			// Stop the loops already launched.
			close(stopCh)
			w.wg.Wait()
			pool.Release()
			return fmt.Errorf("start worker %d: %w", id, err)
		}
	}
	w.pool = pool
	w.running = true

	w.log.Info("workers started", "count", w.settings.Count, "idle_interval", w.settings.IdleInterval)
	return nil
}

// Stop signals the loops to exit and waits for in-flight items to finish.
func (w *WorkerPool) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	w.wg.Wait()
	w.pool.Release()
	w.log.Info("workers stopped")
}

// Drain processes entries until none are pending and reports the outcomes.
func (w *WorkerPool) Drain(ctx context.Context) (*driving.DrainResult, error) {
	if err := w.ping(ctx); err != nil {
		return nil, err
	}

	pool, err := w.newPool()
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var completed, failed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < w.settings.Count; i++ {
		wg.Add(1)
		if err := w.submit(pool, func() {
			defer wg.Done()
			for ctx.Err() == nil {
				status, ok := w.runOnce(ctx)
				if !ok {
					return
				}
				switch status {
				case domain.QueueStatusCompleted:
					completed.Add(1)
				case domain.QueueStatusFailed:
					failed.Add(1)
				}
			}
		}); err != nil {
			wg.Done()
			cancel()
			wg.Wait()
			return nil, fmt.Errorf("start drain worker: %w", err)
		}
	}
	wg.Wait()

	result := &driving.DrainResult{Completed: int(completed.Load()), Failed: int(failed.Load())}
	w.log.Info("queue drained", "completed", result.Completed, "failed", result.Failed)
	return result, ctx.Err()
}

func (w *WorkerPool) newPool() (*ants.Pool, error) {
	pool, err := ants.NewPool(w.settings.Count, ants.WithPanicHandler(func(r any) {
		w.log.Error("worker loop panicked", "panic", r)
	}))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return pool, nil
}

func (w *WorkerPool) ping(ctx context.Context) error {
	if w.embedder == nil || !w.embedder.Available() {
		return nil
	}
	if err := w.embedder.Ping(ctx); err != nil {
		return fmt.Errorf("embedding backend %s unreachable: %w", w.embedder.ModelName(), err)
	}
	return nil
}

// loop claims and processes entries until stopped, sleeping when idle.
func (w *WorkerPool) loop(ctx context.Context, id int) {
	log := w.log.With("worker", id)
	log.Debug("worker loop started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		default:
		}

		if _, ok := w.runOnce(ctx); ok {
			continue
		}

		timer := time.NewTimer(w.settings.IdleInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-w.stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// runOnce claims one entry and processes it. ok is false when nothing was
// claimed.
func (w *WorkerPool) runOnce(ctx context.Context) (status domain.QueueStatus, ok bool) {
	entry, err := w.queue.DequeueNext(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error("dequeue failed", "error", err)
		}
		return "", false
	}
	if entry == nil {
		return "", false
	}
	return w.handle(ctx, entry), true
}

// handle processes a claimed entry to completion. The item runs on a
// context detached from shutdown and bounded by the item timeout, so a
// claimed entry is never left half done by Stop.
func (w *WorkerPool) handle(ctx context.Context, entry *domain.QueueEntry) domain.QueueStatus {
	itemCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.settings.ItemTimeout)
	defer cancel()

	ref := entry.Ref()
	_, err := w.process(itemCtx, ref)
	if err != nil {
		if markErr := w.queue.MarkFailed(itemCtx, entry, err.Error()); markErr != nil {
			w.log.Error("mark failed", "ref", ref.String(), "error", markErr)
		}
		w.logRerun(entry)
		return domain.QueueStatusFailed
	}
	if markErr := w.queue.MarkCompleted(itemCtx, entry); markErr != nil {
		w.log.Error("mark completed", "ref", ref.String(), "error", markErr)
	}
	w.logRerun(entry)
	return domain.QueueStatusCompleted
}

func (w *WorkerPool) logRerun(entry *domain.QueueEntry) {
	if entry.Status == domain.QueueStatusPending {
		w.log.Info("entry enqueued again while processing, requeued", "ref", entry.Ref().String())
	}
}

// process runs the indexer, turning a panic into an error.
func (w *WorkerPool) process(ctx context.Context, ref domain.ContentRef) (result *driving.ProcessResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("processing panicked", "ref", ref.String(), "panic", r)
			err = fmt.Errorf("panic while processing %s: %v", ref, r)
		}
	}()
	result, err = w.indexer.Process(ctx, ref)
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("item timeout %s exceeded: %w", w.settings.ItemTimeout, err)
	}
	return result, err
}
