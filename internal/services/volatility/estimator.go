package volatility

import (
	"fmt"
	"time"

	"github.com/guregu/null/v6"

	"VolScan/internal/domain/models"
	domsvc "VolScan/internal/domain/service"
)

// Estimator evaluates both realized volatility estimators over a HorizonSpec.
type Estimator struct {
	horizons models.HorizonSpec
	scale    float64
	from, to time.Time
}

type Option func(*Estimator)

// WithScale sets the GKYZ F multiplier.
func WithScale(scale float64) Option {
	return func(e *Estimator) {
		if scale > 0 {
			e.scale = scale
		}
	}
}

// WithGKYZRange restricts GKYZ input bars to [from, to]. Zero bounds are open.
func WithGKYZRange(from, to time.Time) Option {
	return func(e *Estimator) { e.from, e.to = from, to }
}

func NewEstimator(horizons models.HorizonSpec, opts ...Option) *Estimator {
	e := &Estimator{horizons: horizons, scale: DefaultGKYZScale}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Horizons returns the horizon menu the estimator reports on.
func (e *Estimator) Horizons() models.HorizonSpec { return e.horizons }

func (e *Estimator) CloseClose(series models.BarSeries) ([]null.Float, error) {
	if !series.Columns.Has(models.ColClose) {
		return nil, fmt.Errorf("close-to-close requires a close column: %w", models.ErrShapeMismatch)
	}
	return CloseToCloseHorizons(series, e.horizons), nil
}

func (e *Estimator) GKYZ(series models.BarSeries) ([]null.Float, error) {
	return GKYZHorizons(series, e.horizons, e.scale, e.from, e.to)
}

var _ domsvc.RealizedVolEstimator = (*Estimator)(nil)
