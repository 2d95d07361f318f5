package repository

import (
	"context"
	"sync"

	"VolScan/internal/domain/models"
	domrepo "VolScan/internal/domain/repository"
	applogger "VolScan/pkg/logger"
)

// LogReportSink writes the headline of each report to the structured log.
type LogReportSink struct {
	l *applogger.Logger
}

func NewLogReportSink(l *applogger.Logger) *LogReportSink {
	return &LogReportSink{l: l}
}

var _ domrepo.ResultSink = (*LogReportSink)(nil)

func (s *LogReportSink) Name() string { return "log" }

func (s *LogReportSink) Publish(_ context.Context, r *models.Report) error {
	for _, tr := range r.Comparison.TopPositive.Triples {
		s.l.Info("top positive",
			applogger.String("run_id", r.RunID),
			applogger.String("horizon", tr.Horizon),
			applogger.String("ticker", tr.Ticker),
			applogger.Float64("value", tr.Value),
		)
	}
	for _, tr := range r.Comparison.TopNegative.Triples {
		s.l.Info("top negative",
			applogger.String("run_id", r.RunID),
			applogger.String("horizon", tr.Horizon),
			applogger.String("ticker", tr.Ticker),
			applogger.Float64("value", tr.Value),
		)
	}
	for _, sk := range r.Skips {
		s.l.Debug("ticker skipped",
			applogger.String("run_id", r.RunID),
			applogger.String("ticker", sk.Ticker),
			applogger.String("stage", sk.Stage),
			applogger.String("reason", sk.Reason),
			applogger.String("detail", sk.Detail),
		)
	}
	return nil
}

// LatestReportStore keeps the most recent report in memory for the HTTP API.
type LatestReportStore struct {
	mu     sync.RWMutex
	report *models.Report
}

func NewLatestReportStore() *LatestReportStore {
	return &LatestReportStore{}
}

var _ domrepo.ResultSink = (*LatestReportStore)(nil)

func (s *LatestReportStore) Name() string { return "latest" }

func (s *LatestReportStore) Publish(_ context.Context, r *models.Report) error {
	s.mu.Lock()
	s.report = r
	s.mu.Unlock()
	return nil
}

// Latest returns the last published report, if any.
func (s *LatestReportStore) Latest() (*models.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report, s.report != nil
}
