package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/coursedex/internal/core/domain"
)

func resetQueueFlags() {
	queueListStatus = ""
	queueListLimit = 50
	queueListJSON = false
	queueOlderThan = 7 * 24 * time.Hour
}

func TestQueueCmds(t *testing.T) {
	env, cleanup := setupTestServices(t)
	defer cleanup()
	defer resetQueueFlags()
	ctx := context.Background()

	env.addCourse(t, "c1", "Golang basics.")
	_, err := env.queue.Enqueue(ctx, domain.ContentRef{ID: "c1", Type: domain.ContentTypeCourse}, 0, nil)
	require.NoError(t, err)
	_, err = env.queue.Enqueue(ctx, domain.ContentRef{ID: "missing", Type: domain.ContentTypeBook}, 0, nil)
	require.NoError(t, err)

	out, err := executeCommand(t, "queue")
	require.NoError(t, err)
	assert.Contains(t, out, "Pending:    2")

	out, err = executeCommand(t, "queue", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "course/c1")
	assert.Contains(t, out, "book/missing")

	out, err = executeCommand(t, "worker", "--drain")
	require.NoError(t, err)
	assert.Contains(t, out, "Drained queue: 1 completed, 1 failed")

	out, err = executeCommand(t, "queue", "list", "--status", "failed", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"ContentID": "missing"`)
	assert.NotContains(t, out, `"ContentID": "c1"`)

	out, err = executeCommand(t, "queue", "retry-failed")
	require.NoError(t, err)
	assert.Contains(t, out, "Requeued 1 failed entries")

	out, err = executeCommand(t, "queue", "purge", "--older-than", "0s")
	require.NoError(t, err)
	assert.Contains(t, out, "Purged 1 completed entries")

	out, err = executeCommand(t, "queue", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Pending:    1")
	assert.Contains(t, out, "Completed:  0")
}

func TestQueueListCmd_InvalidStatus(t *testing.T) {
	_, cleanup := setupTestServices(t)
	defer cleanup()
	defer resetQueueFlags()

	_, err := executeCommand(t, "queue", "list", "--status", "stuck")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestQueueListCmd_Empty(t *testing.T) {
	_, cleanup := setupTestServices(t)
	defer cleanup()
	defer resetQueueFlags()

	out, err := executeCommand(t, "queue", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Queue is empty.")
}

func TestWorkerCmd_NotConfigured(t *testing.T) {
	SetServices(nil)
	defer func() { workerDrain = false }()

	_, err := executeCommand(t, "worker", "--drain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker pool not configured")
}
