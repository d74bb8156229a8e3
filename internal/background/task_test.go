package background

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryTaskStoreLifecycle(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx := context.Background()

	result := &TaskResult{
		ProcessID: "lookup_abc",
		Status:    TaskStatusAccepted,
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.Store(ctx, result))

	got, err := store.Get(ctx, "lookup_abc")
	require.NoError(t, err)
	assert.Equal(t, TaskStatusAccepted, got.Status)

	result.Status = TaskStatusSuccess
	now := time.Now()
	result.CompletedAt = &now
	require.NoError(t, store.Update(ctx, result))

	got, err = store.Get(ctx, "lookup_abc")
	require.NoError(t, err)
	assert.Equal(t, TaskStatusSuccess, got.Status)
	assert.NotNil(t, got.CompletedAt)

	require.NoError(t, store.Delete(ctx, "lookup_abc"))
	_, err = store.Get(ctx, "lookup_abc")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestInMemoryTaskStoreUnknownTask(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "lookup_missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	assert.ErrorIs(t, store.Update(ctx, &TaskResult{ProcessID: "lookup_missing"}), ErrTaskNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "lookup_missing"), ErrTaskNotFound)
}

func TestInMemoryTaskStoreCleanup(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx := context.Background()

	old := &TaskResult{
		ProcessID: "lookup_old",
		Status:    TaskStatusSuccess,
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}
	recent := &TaskResult{
		ProcessID: "lookup_recent",
		Status:    TaskStatusProcessing,
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.Store(ctx, old))
	require.NoError(t, store.Store(ctx, recent))

	require.NoError(t, store.Cleanup(ctx, 24*time.Hour))

	_, err := store.Get(ctx, "lookup_old")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, err = store.Get(ctx, "lookup_recent")
	assert.NoError(t, err)

	results, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
