package models

import "time"

// Columns is a bit set of the price columns a loader found for a series.
type Columns uint8

const (
	ColOpen Columns = 1 << iota
	ColHigh
	ColLow
	ColClose
)

// ColOHLC is the full column set required by range-based estimators.
const ColOHLC = ColOpen | ColHigh | ColLow | ColClose

// Has reports whether every column in want is present.
func (c Columns) Has(want Columns) bool { return c&want == want }

// Bar is one daily OHLC record.
type Bar struct {
	Date   time.Time `json:"date"`
	Symbol string    `json:"symbol"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
}

// BarSeries holds the daily bars of one ticker ordered by date.
// Dates are strictly increasing; OHLC consistency is assumed, not enforced.
type BarSeries struct {
	Symbol  string  `json:"symbol"`
	Columns Columns `json:"columns"`
	Bars    []Bar   `json:"bars"`
}

// Len returns the number of bars.
func (s BarSeries) Len() int { return len(s.Bars) }

// First returns the earliest bar date, or zero time for an empty series.
func (s BarSeries) First() time.Time {
	if len(s.Bars) == 0 {
		return time.Time{}
	}
	return s.Bars[0].Date
}

// Last returns the latest bar date, or zero time for an empty series.
func (s BarSeries) Last() time.Time {
	if len(s.Bars) == 0 {
		return time.Time{}
	}
	return s.Bars[len(s.Bars)-1].Date
}

// Between returns the bars whose date lies in [from, to]. A zero bound is open.
func (s BarSeries) Between(from, to time.Time) []Bar {
	out := make([]Bar, 0, len(s.Bars))
	for _, b := range s.Bars {
		if !from.IsZero() && b.Date.Before(from) {
			continue
		}
		if !to.IsZero() && b.Date.After(to) {
			continue
		}
		out = append(out, b)
	}
	return out
}
