package service

import (
	"time"

	"github.com/guregu/null/v6"

	"VolScan/internal/domain/models"
)

// RealizedVolEstimator computes one value per horizon for a ticker's bars.
type RealizedVolEstimator interface {
	CloseClose(series models.BarSeries) ([]null.Float, error)
	GKYZ(series models.BarSeries) ([]null.Float, error)
}

// ImpliedVolAggregator reduces an options chain snapshot to one implied vol.
type ImpliedVolAggregator interface {
	Aggregate(chain models.OptionsChain, date time.Time) (null.Float, []models.ExpiryIV, error)
}

// Comparator runs the cross-sectional relative difference analysis.
type Comparator interface {
	Compare(gkyz, closeClose models.VolMatrix, iv map[string]null.Float, p models.AnalysisParams) (models.Comparison, error)
}
