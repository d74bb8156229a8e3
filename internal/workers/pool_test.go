package workers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multascan/internal/config"
	"multascan/internal/sources"
	"multascan/pkg/models"
)

type stubAdapter struct {
	id           string
	jurisdiction string
	result       sources.Result
}

func (s *stubAdapter) ID() string           { return s.id }
func (s *stubAdapter) Jurisdiction() string { return s.jurisdiction }

func (s *stubAdapter) Fetch(ctx context.Context, query sources.Query) sources.Result {
	return s.result
}

func poolTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Workers.PoolSize = 1
	cfg.Workers.QueueSize = 4
	cfg.Workers.RateLimit = 600
	cfg.Workers.Timeout = 5 * time.Second
	return cfg
}

func newTestPool(t *testing.T, lookups *sources.Dispatcher) *WorkerPool {
	t.Helper()
	pool := NewWorkerPool(poolTestConfig(), lookups)
	require.NoError(t, pool.Start())
	t.Cleanup(func() {
		pool.Stop()
		pool.rateLimiter.Stop()
	})
	return pool
}

func TestSubmitJobRunsLookupThroughAdapter(t *testing.T) {
	lookups := sources.NewDispatcher("nacional")
	lookups.Register(&stubAdapter{
		id:           "nacional",
		jurisdiction: "Registro Nacional",
		result:       sources.Found([]models.ViolationRecord{{Jurisdiccion: "Registro Nacional"}}),
	})
	pool := newTestPool(t, lookups)

	result, err := pool.SubmitJob(context.Background(), "nacional", "AB123CD")
	require.NoError(t, err)
	assert.Equal(t, sources.KindFound, result.Result.Kind)
	assert.Equal(t, "nacional", result.SourceID)
	assert.Equal(t, "Registro Nacional", result.Jurisdiction)
}

func TestSubmitJobWithoutRegisteredDefaultFailsCleanly(t *testing.T) {
	// Dispatcher whose default adapter was never registered
	pool := newTestPool(t, sources.NewDispatcher("nacional"))

	result, err := pool.SubmitJob(context.Background(), "nacional", "AB123CD")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "no adapter registered")
}

func TestSubmitJobRejectedWhenPoolStopped(t *testing.T) {
	lookups := sources.NewDispatcher("nacional")
	lookups.Register(&stubAdapter{id: "nacional", jurisdiction: "Registro Nacional", result: sources.Empty()})

	pool := NewWorkerPool(poolTestConfig(), lookups)
	defer pool.rateLimiter.Stop()

	_, err := pool.SubmitJob(context.Background(), "nacional", "AB123CD")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not running")
}
