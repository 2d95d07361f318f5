package volatility

import (
	"fmt"
	"math"
	"time"

	"github.com/guregu/null/v6"
	"gonum.org/v1/gonum/floats"

	"VolScan/internal/domain/models"
)

// DefaultGKYZScale is the F multiplier of the GKYZ scaling factor.
const DefaultGKYZScale = 1.0

var gkyzCoef = 2*math.Ln2 - 1

// GKYZVariance returns the per-day Garman-Klass-Yang-Zhang variance terms
//
//	v_t = ln(O_t/C_{t-1})^2 + 0.5*ln(H_t/L_t)^2 - (2ln2-1)*ln(C_t/O_t)^2
//
// The first term needs a previous close, so v_0 is always undefined.
func GKYZVariance(bars []models.Bar) []null.Float {
	out := make([]null.Float, len(bars))
	for t := 1; t < len(bars); t++ {
		cur, prev := bars[t], bars[t-1]
		a := math.Log(cur.Open / prev.Close)
		b := math.Log(cur.High / cur.Low)
		c := math.Log(cur.Close / cur.Open)
		v := a*a + 0.5*b*b - gkyzCoef*c*c
		if finite(v) {
			out[t] = null.FloatFrom(v)
		}
	}
	return out
}

// RollingGKYZ computes the rolling GKYZ volatility series
//
//	sqrt(scale*252/window) * sqrt(sum of the last window variance terms)
//
// A point is defined only when every term in its window is defined, so at
// least window+1 bars are needed for a defined value. A zero start or end
// leaves that side of the date filter open.
func RollingGKYZ(series models.BarSeries, window int, scale float64, start, end time.Time) ([]null.Float, error) {
	if !series.Columns.Has(models.ColOHLC) {
		return nil, fmt.Errorf("gkyz requires open, high, low and close columns: %w", models.ErrShapeMismatch)
	}
	if window <= 0 {
		return nil, fmt.Errorf("gkyz window must be > 0, got %d", window)
	}
	bars := series.Between(start, end)
	terms := GKYZVariance(bars)
	factor := math.Sqrt(scale * TradingDaysPerYear / float64(window))

	out := make([]null.Float, len(bars))
	buf := make([]float64, window)
	for t := window - 1; t < len(bars); t++ {
		complete := true
		for i, term := range terms[t-window+1 : t+1] {
			if !term.Valid {
				complete = false
				break
			}
			buf[i] = term.Float64
		}
		if !complete {
			continue
		}
		vol := factor * math.Sqrt(floats.Sum(buf))
		if finite(vol) {
			out[t] = null.FloatFrom(vol)
		}
	}
	return out, nil
}

// LastDefined returns the last defined value of a series.
func LastDefined(values []null.Float) null.Float {
	for i := len(values) - 1; i >= 0; i-- {
		if values[i].Valid {
			return values[i]
		}
	}
	return null.Float{}
}

// GKYZHorizons reports, per horizon, the last defined rolling GKYZ value with
// window equal to the horizon's trading days.
func GKYZHorizons(series models.BarSeries, h models.HorizonSpec, scale float64, start, end time.Time) ([]null.Float, error) {
	out := make([]null.Float, len(h))
	for i, hz := range h {
		rolling, err := RollingGKYZ(series, hz.TradingDays, scale, start, end)
		if err != nil {
			return nil, fmt.Errorf("horizon %q: %w", hz.Label, err)
		}
		out[i] = LastDefined(rolling)
	}
	return out, nil
}
