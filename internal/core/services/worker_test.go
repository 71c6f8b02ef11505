package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driving"
)

func fastWorkerSettings(count int) domain.WorkerSettings {
	return domain.WorkerSettings{
		Count:        count,
		IdleInterval: 10 * time.Millisecond,
		ItemTimeout:  5 * time.Second,
	}
}

func TestNewWorkerPool_ClampsCount(t *testing.T) {
	p := newPipeline(t, newStubEmbedding())

	assert.Equal(t, domain.MaxWorkerCount, NewWorkerPool(p.indexer, p.queue, nil, fastWorkerSettings(50)).Count())
	assert.Equal(t, domain.DefaultWorkerCount, NewWorkerPool(p.indexer, p.queue, nil, domain.WorkerSettings{}).Count())
}

func TestWorkerPool_DrainCompletesQueue(t *testing.T) {
	p := newPipeline(t, newStubEmbedding())
	ctx := context.Background()

	for _, id := range []string{"c1", "c2"} {
		ref := p.addCourse(t, id, "", longLesson)
		_, err := p.indexer.Enqueue(ctx, ref, 0, nil)
		require.NoError(t, err)
	}

	pool := NewWorkerPool(p.indexer, p.queue, p.embedder, fastWorkerSettings(1))
	result, err := pool.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Completed)
	assert.Zero(t, result.Failed)

	stats, err := p.queue.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Pending)
	assert.Zero(t, stats.Processing)
	assert.Equal(t, 2, stats.Completed)

	for _, id := range []string{"c1", "c2"} {
		ref := domain.ContentRef{ID: id, Type: domain.ContentTypeCourse}
		assert.Equal(t, domain.StatusCompleted, p.status(t, ref).Status)
	}
}

func TestWorkerPool_DrainRecordsFailures(t *testing.T) {
	p := newPipeline(t, newStubEmbedding())
	ctx := context.Background()

	good := p.addCourse(t, "c1", "", longLesson)
	bad := p.addBook(t, "b1", "missing.pdf", nil)
	for _, ref := range []domain.ContentRef{good, bad} {
		_, err := p.indexer.Enqueue(ctx, ref, 0, nil)
		require.NoError(t, err)
	}

	pool := NewWorkerPool(p.indexer, p.queue, p.embedder, fastWorkerSettings(2))
	result, err := pool.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Completed)
	assert.Equal(t, 1, result.Failed)

	entry, err := p.queue.Get(ctx, bad)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueStatusFailed, entry.Status)
	assert.NotEmpty(t, entry.ErrorMessage)
	assert.NotNil(t, entry.CompletedAt)

	assert.Equal(t, domain.StatusFailed, p.status(t, bad).Status)
	n, err := p.chunks.Count(ctx, bad)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// panicIndexer panics on every Process call.
type panicIndexer struct {
	driving.Indexer
}

func (panicIndexer) Process(context.Context, domain.ContentRef) (*driving.ProcessResult, error) {
	panic("boom")
}

func TestWorkerPool_RecoversPanics(t *testing.T) {
	p := newPipeline(t, newStubEmbedding())
	ctx := context.Background()
	ref := p.addCourse(t, "c1", "", longLesson)
	_, err := p.queue.Enqueue(ctx, ref, 0, nil)
	require.NoError(t, err)

	pool := NewWorkerPool(panicIndexer{}, p.queue, nil, fastWorkerSettings(1))
	result, err := pool.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)

	entry, err := p.queue.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueStatusFailed, entry.Status)
	assert.Contains(t, entry.ErrorMessage, "panic")
}

func TestWorkerPool_StartProcessesAndIdles(t *testing.T) {
	p := newPipeline(t, newStubEmbedding())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := NewWorkerPool(p.indexer, p.queue, p.embedder, fastWorkerSettings(2))
	require.NoError(t, pool.Start(ctx))
	defer pool.Stop()

	// A second Start is a no-op.
	require.NoError(t, pool.Start(ctx))

	ref := p.addCourse(t, "c1", "", longLesson)
	_, err := p.indexer.Enqueue(ctx, ref, 0, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		entry, err := p.queue.Get(ctx, ref)
		return err == nil && entry.Status == domain.QueueStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	// Idle workers do not busy-loop the backend.
	calls := p.backend.callCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, p.backend.callCount())
}

func TestWorkerPool_StopWaitsAndIsIdempotent(t *testing.T) {
	p := newPipeline(t, newStubEmbedding())
	pool := NewWorkerPool(p.indexer, p.queue, nil, fastWorkerSettings(1))

	pool.Stop()
	require.NoError(t, pool.Start(context.Background()))
	pool.Stop()
	pool.Stop()
}

func TestWorkerPool_StartFailsWhenBackendUnreachable(t *testing.T) {
	backend := newStubEmbedding()
	backend.pingErr = errors.New("connection refused")
	p := newPipeline(t, backend)

	pool := NewWorkerPool(p.indexer, p.queue, p.embedder, fastWorkerSettings(1))
	err := pool.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")

	_, err = pool.Drain(context.Background())
	assert.Error(t, err)
}

func TestWorkerPool_StartUnwindsOnSubmitFailure(t *testing.T) {
	p := newPipeline(t, newStubEmbedding())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := NewWorkerPool(p.indexer, p.queue, nil, fastWorkerSettings(2))
	submitted := 0
	pool.submit = func(ap *ants.Pool, task func()) error {
		submitted++
		if submitted == 2 {
			return ants.ErrPoolOverload
		}
		return ap.Submit(task)
	}

	err := pool.Start(ctx)
	require.ErrorIs(t, err, ants.ErrPoolOverload)

	// The loop that did start has exited: queued work stays pending.
	ref := p.addCourse(t, "c1", "", longLesson)
	_, err = p.indexer.Enqueue(ctx, ref, 0, nil)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	entry, err := p.queue.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueStatusPending, entry.Status)

	// A later Start launches fresh loops.
	pool.submit = submitTask
	require.NoError(t, pool.Start(ctx))
	defer pool.Stop()
	require.Eventually(t, func() bool {
		entry, err := p.queue.Get(ctx, ref)
		return err == nil && entry.Status == domain.QueueStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}
