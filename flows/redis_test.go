package flows

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupMiniRedis creates a test Redis server using miniredis
func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, string) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}
	return mr, "redis://" + mr.Addr()
}

func TestRedisBackendConnect(t *testing.T) {
	t.Run("SuccessfulConnection", func(t *testing.T) {
		mr, url := setupMiniRedis(t)
		defer mr.Close()

		backend := NewRedisBackend(url)
		require.NoError(t, backend.Connect(context.Background()))
		assert.NoError(t, backend.Close(context.Background()))
	})

	t.Run("InvalidURL", func(t *testing.T) {
		backend := NewRedisBackend("::not-a-url")
		assert.Error(t, backend.Connect(context.Background()))
	})

	t.Run("UnreachableServer", func(t *testing.T) {
		backend := NewRedisBackend("redis://127.0.0.1:1")
		err := backend.Connect(context.Background())
		assert.Error(t, err)

		// The failed connect leaves the backend unusable, not half-open.
		_, err = backend.Get(context.Background(), "k")
		assert.ErrorIs(t, err, ErrNotConnected)
	})
}

func TestRedisBackendNotConnected(t *testing.T) {
	backend := NewRedisBackend("redis://localhost:6379")
	ctx := context.Background()

	_, err := backend.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, backend.Set(ctx, "k", "v"), ErrNotConnected)
	assert.NoError(t, backend.Close(ctx))
}

func TestRedisBackendRoundTrip(t *testing.T) {
	mr, url := setupMiniRedis(t)
	defer mr.Close()
	ctx := context.Background()

	backend := NewRedisBackend(url)
	require.NoError(t, backend.Connect(ctx))
	defer backend.Close(ctx)

	_, err := backend.Get(ctx, "flow-progress:onboarding")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	record := `{"completedSteps":[0],"completedTasks":{}}`
	require.NoError(t, backend.Set(ctx, "flow-progress:onboarding", record))

	value, err := backend.Get(ctx, "flow-progress:onboarding")
	require.NoError(t, err)
	assert.Equal(t, record, value)

	stored, err := mr.Get("flow-progress:onboarding")
	require.NoError(t, err)
	assert.Equal(t, record, stored)
}

func TestRedisBackendCloseIsIdempotent(t *testing.T) {
	mr, url := setupMiniRedis(t)
	defer mr.Close()
	ctx := context.Background()

	backend := NewRedisBackend(url)
	require.NoError(t, backend.Connect(ctx))
	assert.NoError(t, backend.Close(ctx))
	assert.NoError(t, backend.Close(ctx))

	_, err := backend.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestRedisBackendWithProgressStore(t *testing.T) {
	mr, url := setupMiniRedis(t)
	defer mr.Close()
	ctx := context.Background()

	backend := NewRedisBackend(url)
	require.NoError(t, backend.Connect(ctx))
	defer backend.Close(ctx)

	store := NewProgressStore(backend, "", nil)
	store.ToggleStepComplete(ctx, "onboarding", 0)
	store.ToggleTaskComplete(ctx, "onboarding", 1, 2)

	// A second store over a fresh connection reads the same state back.
	restoredBackend := NewRedisBackend(url)
	require.NoError(t, restoredBackend.Connect(ctx))
	defer restoredBackend.Close(ctx)

	restored := NewProgressStore(restoredBackend, "", nil)
	progress := restored.GetFlowProgress(ctx, "onboarding")
	assert.True(t, progress.IsStepComplete(0))
	assert.True(t, progress.IsTaskComplete(1, 2))
}
