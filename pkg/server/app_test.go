package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VolScan/internal/domain/models"
	"VolScan/internal/usecase"
	"VolScan/pkg/config"
)

type recordingRunner struct {
	mu    sync.Mutex
	calls []usecase.RunParams
	err   error
	ran   chan struct{}
}

func (r *recordingRunner) Run(_ context.Context, rp usecase.RunParams) (*models.Report, error) {
	r.mu.Lock()
	r.calls = append(r.calls, rp)
	r.mu.Unlock()
	if r.ran != nil {
		select {
		case r.ran <- struct{}{}:
		default:
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return &models.Report{RunID: "run-1", Tickers: []string{"AAPL"}}, nil
}

func (r *recordingRunner) Params() models.AnalysisParams { return models.DefaultAnalysisParams() }

func (r *recordingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func newConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Analysis.IVDate = "2024-03-15"
	return cfg
}

func TestRunOnce_UsesConfiguredDateAndCloses(t *testing.T) {
	runner := &recordingRunner{}
	closed := 0
	app := New(newConfig(), nil, runner, nil, Closer{Name: "x", Close: func() error {
		closed++
		return nil
	}})

	require.NoError(t, app.run(context.Background(), true))
	require.Equal(t, 1, runner.count())
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), runner.calls[0].Date)
	assert.Equal(t, 1, closed)
}

func TestRunOnce_ReturnsBatchError(t *testing.T) {
	boom := errors.New("boom")
	app := New(newConfig(), nil, &recordingRunner{err: boom}, nil)
	assert.ErrorIs(t, app.run(context.Background(), true), boom)
}

func TestRunBatch_RunInProgressIsNotAnError(t *testing.T) {
	app := New(newConfig(), nil, &recordingRunner{err: models.ErrRunInProgress}, nil)
	assert.NoError(t, app.RunBatch(context.Background()))
}

func TestRun_ScheduleRepeatsUntilCancelled(t *testing.T) {
	cfg := newConfig()
	cfg.Schedule.Interval = 5 * time.Millisecond
	runner := &recordingRunner{ran: make(chan struct{}, 1)}
	closeErr := errors.New("close failed")
	app := New(cfg, nil, runner, nil, Closer{Name: "x", Close: func() error { return closeErr }})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.run(ctx, false) }()

	for i := 0; i < 3; i++ {
		select {
		case <-runner.ran:
		case <-time.After(2 * time.Second):
			t.Fatal("scheduler did not run")
		}
	}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.GreaterOrEqual(t, runner.count(), 3)
}
