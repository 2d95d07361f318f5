package repository

import (
	"context"

	"VolScan/internal/domain/models"
)

// MarketData loads per-ticker inputs. Missing data is reported as models.ErrNotFound.
type MarketData interface {
	LoadDailyBars(ctx context.Context, ticker string) (models.BarSeries, error)
	LoadOptionsChain(ctx context.Context, ticker string) (models.OptionsChain, error)
}

// TickerSource supplies the ordered, deduplicated ticker universe.
type TickerSource interface {
	LoadTickers(ctx context.Context) ([]string, error)
}

// ResultSink consumes a finished report.
type ResultSink interface {
	Name() string
	Publish(ctx context.Context, r *models.Report) error
}

type Metrics interface {
	RecordTicker(stage, outcome string)
	RecordSkip(stage, reason string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
