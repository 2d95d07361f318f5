package usecase

import (
	"github.com/guregu/null/v6"

	"VolScan/internal/domain/models"
)

// tickerResult is what one worker produced for one ticker.
type tickerResult struct {
	ticker     string
	realized   bool // both estimators produced a column
	closeClose []null.Float
	gkyz       []null.Float
	iv         null.Float
	skips      []models.Skip
}

func (r *tickerResult) skip(stage, reason string, err error) {
	s := models.Skip{Ticker: r.ticker, Stage: stage, Reason: reason}
	if err != nil {
		s.Detail = err.Error()
	}
	r.skips = append(r.skips, s)
}

// RunCollection gathers per-ticker results of a single run. Each worker owns
// exactly one slot; matrices are assembled afterwards in ticker order.
type RunCollection struct {
	horizons models.HorizonSpec
	tickers  []string
	slots    []tickerResult
}

func newRunCollection(horizons models.HorizonSpec, tickers []string) *RunCollection {
	c := &RunCollection{
		horizons: horizons,
		tickers:  tickers,
		slots:    make([]tickerResult, len(tickers)),
	}
	for i, t := range tickers {
		c.slots[i].ticker = t
	}
	return c
}

func (c *RunCollection) slot(i int) *tickerResult { return &c.slots[i] }

// cancelled marks tickers that were never scheduled and returns their skips.
// Only the control goroutine calls it, on slots no worker owns.
func (c *RunCollection) cancelled(from int, err error) []models.Skip {
	var out []models.Skip
	for i := from; i < len(c.slots); i++ {
		c.slots[i].skip(models.StageBars, models.ReasonCancelled, err)
		out = append(out, c.slots[i].skips...)
	}
	return out
}

// Matrices assembles both realized matrices and the implied vol map.
func (c *RunCollection) Matrices() (closeClose, gkyz models.VolMatrix, iv map[string]null.Float, err error) {
	labels := c.horizons.Labels()
	closeClose = models.NewMatrix[null.Float](labels)
	gkyz = models.NewMatrix[null.Float](labels)
	iv = make(map[string]null.Float)
	for i := range c.slots {
		r := &c.slots[i]
		if r.realized {
			if err = closeClose.AddColumn(r.ticker, r.closeClose); err != nil {
				return
			}
			if err = gkyz.AddColumn(r.ticker, r.gkyz); err != nil {
				return
			}
		}
		if r.iv.Valid {
			iv[r.ticker] = r.iv
		}
	}
	return
}

// Skips returns all skip records in ticker order.
func (c *RunCollection) Skips() []models.Skip {
	out := []models.Skip{}
	for i := range c.slots {
		out = append(out, c.slots[i].skips...)
	}
	return out
}
