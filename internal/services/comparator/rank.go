package comparator

import (
	"sort"

	"VolScan/internal/domain/models"
)

// Flatten walks the matrix row-major and returns the defined cells whose
// value lies within [low, high].
func Flatten(m models.DiffMatrix, low, high float64) []models.Triple {
	out := make([]models.Triple, 0, len(m.Rows)*len(m.Cols))
	for r, horizon := range m.Rows {
		for c, ticker := range m.Cols {
			cell := m.Cells[r][c]
			if !cell.Defined() {
				continue
			}
			v := cell.Value.Float64
			if v < low || v > high {
				continue
			}
			out = append(out, models.Triple{Horizon: horizon, Ticker: ticker, Value: v})
		}
	}
	return out
}

// Largest returns the n largest triples. Ties keep flattening order.
func Largest(triples []models.Triple, n int) []models.Triple {
	return topN(triples, n, func(a, b float64) bool { return a > b })
}

// Smallest returns the n smallest triples. Ties keep flattening order.
func Smallest(triples []models.Triple, n int) []models.Triple {
	return topN(triples, n, func(a, b float64) bool { return a < b })
}

func topN(triples []models.Triple, n int, less func(a, b float64) bool) []models.Triple {
	if n <= 0 {
		return []models.Triple{}
	}
	sorted := make([]models.Triple, len(triples))
	copy(sorted, triples)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i].Value, sorted[j].Value) })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// DistinctTickers returns the tickers of triples in order of first appearance.
func DistinctTickers(triples []models.Triple) []string {
	seen := make(map[string]struct{}, len(triples))
	out := make([]string, 0, len(triples))
	for _, t := range triples {
		if _, ok := seen[t.Ticker]; ok {
			continue
		}
		seen[t.Ticker] = struct{}{}
		out = append(out, t.Ticker)
	}
	return out
}

// Selection resolves ranked triples to their tickers and slices the uncapped
// blended matrix down to them.
func Selection(blended models.DiffMatrix, triples []models.Triple) (models.Selection, error) {
	tickers := DistinctTickers(triples)
	slice, err := blended.Select(tickers)
	if err != nil {
		return models.Selection{}, err
	}
	return models.Selection{Triples: triples, Tickers: tickers, Slice: slice}, nil
}

// Thresholds counts, per ticker, the horizons at or beyond each threshold and
// returns up to n tickers per side ordered by count. Tickers with no
// exceedance are left out; ties keep column order.
func Thresholds(blended models.DiffMatrix, positive, negative float64, n int) models.ThresholdSummary {
	pos := make([]models.ThresholdCount, 0, len(blended.Cols))
	neg := make([]models.ThresholdCount, 0, len(blended.Cols))
	for c, ticker := range blended.Cols {
		var up, down int
		for r := range blended.Rows {
			cell := blended.Cells[r][c]
			if !cell.Defined() {
				continue
			}
			if cell.Value.Float64 >= positive {
				up++
			}
			if cell.Value.Float64 <= negative {
				down++
			}
		}
		if up > 0 {
			pos = append(pos, models.ThresholdCount{Ticker: ticker, Count: up})
		}
		if down > 0 {
			neg = append(neg, models.ThresholdCount{Ticker: ticker, Count: down})
		}
	}
	return models.ThresholdSummary{Positive: rankCounts(pos, n), Negative: rankCounts(neg, n)}
}

func rankCounts(counts []models.ThresholdCount, n int) []models.ThresholdCount {
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	if n >= 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}
