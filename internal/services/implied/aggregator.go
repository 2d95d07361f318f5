package implied

import (
	"fmt"
	"sort"
	"time"

	"github.com/guregu/null/v6"
	"gonum.org/v1/gonum/stat"

	"VolScan/internal/domain/models"
	domsvc "VolScan/internal/domain/service"
	"VolScan/pkg/util"
)

// Expiry labels are contract months or last trade dates.
var expiryLayouts = []string{"20060102", "200601", "2006-01-02"}

// Aggregator reduces an options chain snapshot to a single implied volatility:
// quotes on the observation date are averaged per expiry, the nearest expiry
// is excluded, and the model IVs of the remaining expiries are averaged.
type Aggregator struct{}

func NewAggregator() *Aggregator { return &Aggregator{} }

// Aggregate returns the ticker implied vol and the per-expiry means it was
// derived from, nearest expiry first (the excluded bucket included).
func (a *Aggregator) Aggregate(chain models.OptionsChain, date time.Time) (null.Float, []models.ExpiryIV, error) {
	groups := GroupByExpiry(FilterDate(chain.Quotes, date))
	if len(groups) == 0 {
		return null.Float{}, nil, fmt.Errorf("%s on %s: %w", chain.Symbol, date.Format(time.DateOnly), models.ErrNoQuotesOnDate)
	}
	SortExpiries(groups)

	var model []float64
	for _, g := range groups[1:] {
		if g.ModelIV.Valid {
			model = append(model, g.ModelIV.Float64)
		}
	}
	return mean(model), groups, nil
}

// FilterDate keeps the quotes whose timestamp falls on date.
func FilterDate(quotes []models.OptionQuote, date time.Time) []models.OptionQuote {
	out := make([]models.OptionQuote, 0, len(quotes))
	for _, q := range quotes {
		if util.SameDay(q.Time, date) {
			out = append(out, q)
		}
	}
	return out
}

// GroupByExpiry averages each IV field per expiry label, ignoring undefined
// values. Groups are returned in first-seen order.
func GroupByExpiry(quotes []models.OptionQuote) []models.ExpiryIV {
	type acc struct{ last, bid, ask, model []float64 }
	var order []string
	byExpiry := make(map[string]*acc)
	for _, q := range quotes {
		g, ok := byExpiry[q.Expiry]
		if !ok {
			g = &acc{}
			byExpiry[q.Expiry] = g
			order = append(order, q.Expiry)
		}
		g.last = appendValid(g.last, q.LastIV)
		g.bid = appendValid(g.bid, q.BidIV)
		g.ask = appendValid(g.ask, q.AskIV)
		g.model = appendValid(g.model, q.ModelIV)
	}

	out := make([]models.ExpiryIV, 0, len(order))
	for _, exp := range order {
		g := byExpiry[exp]
		out = append(out, models.ExpiryIV{
			Expiry:  exp,
			LastIV:  mean(g.last),
			BidIV:   mean(g.bid),
			AskIV:   mean(g.ask),
			ModelIV: mean(g.model),
		})
	}
	return out
}

// SortExpiries orders groups nearest expiry first. Labels that parse as dates
// sort chronologically; the rest follow in lexicographic order.
func SortExpiries(groups []models.ExpiryIV) {
	sort.SliceStable(groups, func(i, j int) bool {
		ti, okI := ParseExpiry(groups[i].Expiry)
		tj, okJ := ParseExpiry(groups[j].Expiry)
		switch {
		case okI && okJ:
			if !ti.Equal(tj) {
				return ti.Before(tj)
			}
			return groups[i].Expiry < groups[j].Expiry
		case okI != okJ:
			return okI
		default:
			return groups[i].Expiry < groups[j].Expiry
		}
	})
}

// ParseExpiry parses an expiry label in one of the supported layouts.
func ParseExpiry(label string) (time.Time, bool) {
	for _, layout := range expiryLayouts {
		if len(label) != len(layout) {
			continue
		}
		if t, err := time.Parse(layout, label); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func appendValid(dst []float64, v null.Float) []float64 {
	if v.Valid {
		return append(dst, v.Float64)
	}
	return dst
}

func mean(xs []float64) null.Float {
	if len(xs) == 0 {
		return null.Float{}
	}
	return null.FloatFrom(stat.Mean(xs, nil))
}

var _ domsvc.ImpliedVolAggregator = (*Aggregator)(nil)
