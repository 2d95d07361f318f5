package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VolScan/internal/domain/models"
	"VolScan/pkg/cache"
)

type blockingRunner struct {
	started chan struct{}
	release chan struct{}
}

func (r *blockingRunner) Run(ctx context.Context, _ RunParams) (*models.Report, error) {
	close(r.started)
	<-r.release
	return &models.Report{RunID: "r1"}, nil
}

func (r *blockingRunner) Params() models.AnalysisParams { return models.DefaultAnalysisParams() }

func TestGuardedRunner_RejectsConcurrentRun(t *testing.T) {
	inner := &blockingRunner{started: make(chan struct{}), release: make(chan struct{})}
	mc := cache.NewMemoryCache()
	g := NewGuardedRunner(inner, mc, "volscan:run", time.Minute, nil)

	done := make(chan error, 1)
	go func() {
		_, err := g.Run(context.Background(), RunParams{})
		done <- err
	}()
	<-inner.started

	_, err := g.Run(context.Background(), RunParams{})
	assert.ErrorIs(t, err, models.ErrRunInProgress)

	close(inner.release)
	require.NoError(t, <-done)

	ok, err := mc.TryLock(context.Background(), "volscan:run", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "lock released after run")
	assert.Equal(t, 20, g.Params().TopN)
}
