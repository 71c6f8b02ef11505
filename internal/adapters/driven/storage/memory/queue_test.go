package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/coursedex/internal/core/domain"
)

func ref(id string) domain.ContentRef {
	return domain.ContentRef{ID: id, Type: domain.ContentTypeBook}
}

func TestQueue_EnqueueIsIdempotent(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()

	first, err := q.Enqueue(ctx, ref("a"), 1, nil)
	require.NoError(t, err)
	second, err := q.Enqueue(ctx, ref("a"), 5, map[string]any{"k": "v"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Priority)
	stats, _ := q.Stats(ctx)
	assert.Equal(t, 1, stats.Total())
}

func TestQueue_EnqueueRejectsInvalidRef(t *testing.T) {
	_, err := NewQueue().Enqueue(context.Background(), domain.ContentRef{ID: "x", Type: "podcast"}, 0, nil)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestQueue_DequeueOrder(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	q.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	_, _ = q.Enqueue(ctx, ref("low-old"), 0, nil)
	_, _ = q.Enqueue(ctx, ref("high"), 10, nil)
	_, _ = q.Enqueue(ctx, ref("low-new"), 0, nil)

	var order []string
	for {
		e, err := q.DequeueNext(ctx)
		require.NoError(t, err)
		if e == nil {
			break
		}
		assert.Equal(t, domain.QueueStatusProcessing, e.Status)
		assert.NotNil(t, e.StartedAt)
		order = append(order, e.ContentID)
	}
	assert.Equal(t, []string{"high", "low-old", "low-new"}, order)
}

func TestQueue_DequeueEmpty(t *testing.T) {
	e, err := NewQueue().DequeueNext(context.Background())
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestQueue_ConcurrentClaimSingleWinner(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()
	_, err := q.Enqueue(ctx, ref("only"), 0, nil)
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := q.DequeueNext(ctx)
			if err == nil && e != nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestQueue_Lifecycle(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()
	_, _ = q.Enqueue(ctx, ref("a"), 0, nil)
	_, _ = q.Enqueue(ctx, ref("b"), 0, nil)

	a, _ := q.DequeueNext(ctx)
	b, _ := q.DequeueNext(ctx)
	require.NoError(t, q.MarkCompleted(ctx, a))
	require.NoError(t, q.MarkFailed(ctx, b, "boom"))

	got, err := q.Get(ctx, b.Ref())
	require.NoError(t, err)
	assert.Equal(t, domain.QueueStatusFailed, got.Status)
	assert.Equal(t, "boom", got.ErrorMessage)
	assert.NotNil(t, got.CompletedAt)

	stats, _ := q.Stats(ctx)
	assert.Equal(t, domain.QueueStats{Completed: 1, Failed: 1}, stats)

	// Re-enqueueing resets terminal entries.
	again, err := q.Enqueue(ctx, b.Ref(), 0, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueStatusPending, again.Status)
	assert.Empty(t, again.ErrorMessage)
	assert.Nil(t, again.CompletedAt)
}

func TestQueue_EnqueueKeepsProcessing(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()
	_, _ = q.Enqueue(ctx, ref("a"), 0, nil)
	_, _ = q.DequeueNext(ctx)

	e, err := q.Enqueue(ctx, ref("a"), 3, nil)

	require.NoError(t, err)
	assert.Equal(t, domain.QueueStatusProcessing, e.Status)
	assert.Equal(t, 3, e.Priority)
}

func TestQueue_EnqueueWhileProcessingReruns(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()
	_, _ = q.Enqueue(ctx, ref("a"), 0, nil)
	claimed, err := q.DequeueNext(ctx)
	require.NoError(t, err)

	again, err := q.Enqueue(ctx, ref("a"), 0, nil)
	require.NoError(t, err)
	assert.True(t, again.Rerun)

	require.NoError(t, q.MarkFailed(ctx, claimed, "boom"))
	assert.Equal(t, domain.QueueStatusPending, claimed.Status)
	assert.Empty(t, claimed.ErrorMessage)

	next, err := q.DequeueNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.False(t, next.Rerun)
	require.NoError(t, q.MarkCompleted(ctx, next))

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueStats{Completed: 1}, stats)
}

func TestQueue_MarkUnknown(t *testing.T) {
	q := NewQueue()
	err := q.MarkCompleted(context.Background(), &domain.QueueEntry{ID: "x", ContentID: "x", ContentType: domain.ContentTypeBook})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQueue_Maintenance(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_, _ = q.Enqueue(ctx, ref(id), 0, nil)
	}
	a, _ := q.DequeueNext(ctx)
	b, _ := q.DequeueNext(ctx)
	require.NoError(t, q.MarkCompleted(ctx, a))
	require.NoError(t, q.MarkFailed(ctx, b, "err"))

	failed, err := q.List(ctx, domain.QueueStatusFailed, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)

	all, err := q.List(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	n, err := q.RequeueFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = q.PurgeCompleted(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stats, _ := q.Stats(ctx)
	assert.Equal(t, domain.QueueStats{Pending: 2}, stats)
}
