package volatility

import (
	"math"
	"time"

	"github.com/guregu/null/v6"
	"gonum.org/v1/gonum/floats"

	"VolScan/internal/domain/models"
	"VolScan/pkg/util"
)

// CloseToClose computes annualized close-to-close realized volatility over the
// bars dated within [start, end]:
//
//	sqrt(sum(r^2)/N) * N/(N-1) * sqrt(252)
//
// where r are the N log returns of the filtered rows. Fewer than two returns
// give an undefined result.
func CloseToClose(series models.BarSeries, start, end time.Time) null.Float {
	returns := LogReturns(series.Between(start, end))
	n := float64(len(returns))
	if n < 2 {
		return null.Float{}
	}
	vol := math.Sqrt(floats.Dot(returns, returns)/n) * (n / (n - 1)) * math.Sqrt(TradingDaysPerYear)
	if !finite(vol) {
		return null.Float{}
	}
	return null.FloatFrom(vol)
}

// HorizonStart returns the first date of a trailing window of tradingDays
// business days ending on the last bar. ok is false when the window would
// start before the first bar.
func HorizonStart(series models.BarSeries, tradingDays int) (start time.Time, ok bool) {
	if series.Len() == 0 {
		return time.Time{}, false
	}
	start = util.SubtractBusinessDays(series.Last(), tradingDays)
	if start.Before(series.First()) {
		return start, false
	}
	return start, true
}

// CloseToCloseHorizons evaluates CloseToClose once per horizon, ordered like h.
func CloseToCloseHorizons(series models.BarSeries, h models.HorizonSpec) []null.Float {
	out := make([]null.Float, len(h))
	end := series.Last()
	for i, hz := range h {
		start, ok := HorizonStart(series, hz.TradingDays)
		if !ok {
			continue
		}
		out[i] = CloseToClose(series, start, end)
	}
	return out
}
