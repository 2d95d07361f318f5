package comparator

import (
	"fmt"
	"slices"

	"github.com/guregu/null/v6"

	"VolScan/internal/domain/models"
	domsvc "VolScan/internal/domain/service"
)

// Comparator blends GKYZ and close-to-close relative differences against
// implied vol and ranks the cross-section.
type Comparator struct{}

func NewComparator() *Comparator { return &Comparator{} }

// Compare runs alignment, relative differences, blending, ranking and
// threshold counting. Tickers without an implied vol are left out of every
// derived matrix. No comparable ticker yields an empty Comparison.
func (c *Comparator) Compare(gkyz, closeClose models.VolMatrix, iv map[string]null.Float, p models.AnalysisParams) (models.Comparison, error) {
	if gkyz.Empty() && closeClose.Empty() {
		return emptyComparison(gkyz.Rows), nil
	}
	gkyz, closeClose, err := Align(gkyz, closeClose, p.Tickers)
	if err != nil {
		return models.Comparison{}, err
	}
	gkyz, closeClose = WithImpliedVol(gkyz, iv), WithImpliedVol(closeClose, iv)
	if gkyz.Empty() {
		return emptyComparison(gkyz.Rows), nil
	}

	dG := RelativeDiff(gkyz, iv)
	dC := RelativeDiff(closeClose, iv)
	blended, err := Blend(dG, dC, p.WeightGKYZ, p.WeightCloseClose)
	if err != nil {
		return models.Comparison{}, err
	}

	triples := Flatten(blended, p.CapLow, p.CapHigh)
	pos, err := Selection(blended, Largest(triples, p.TopN))
	if err != nil {
		return models.Comparison{}, fmt.Errorf("top positive: %w", err)
	}
	neg, err := Selection(blended, Smallest(triples, p.TopN))
	if err != nil {
		return models.Comparison{}, fmt.Errorf("top negative: %w", err)
	}

	return models.Comparison{
		RelDiffGKYZ:       dG,
		RelDiffCloseClose: dC,
		Blended:           blended,
		TopPositive:       pos,
		TopNegative:       neg,
		Thresholds:        Thresholds(blended, p.ThresholdPositive, p.ThresholdNegative, p.TopN),
	}, nil
}

// Align checks both matrices share rows and columns and returns them with
// the same column order. A non-empty restriction selects those tickers, in
// order, from both.
func Align(gkyz, closeClose models.VolMatrix, restrict []string) (models.VolMatrix, models.VolMatrix, error) {
	if !slices.Equal(gkyz.Rows, closeClose.Rows) {
		return gkyz, closeClose, fmt.Errorf("horizon rows differ: %v vs %v: %w", gkyz.Rows, closeClose.Rows, models.ErrShapeMismatch)
	}
	if !sameSet(gkyz.Cols, closeClose.Cols) {
		return gkyz, closeClose, fmt.Errorf("ticker columns differ (%d gkyz, %d close-close): %w", len(gkyz.Cols), len(closeClose.Cols), models.ErrShapeMismatch)
	}
	cols := gkyz.Cols
	if len(restrict) > 0 {
		cols = restrict
	}
	g, err := gkyz.Select(cols)
	if err != nil {
		return gkyz, closeClose, fmt.Errorf("restrict gkyz: %w", err)
	}
	cc, err := closeClose.Select(cols)
	if err != nil {
		return gkyz, closeClose, fmt.Errorf("restrict close-close: %w", err)
	}
	return g, cc, nil
}

// WithImpliedVol keeps the columns whose ticker has a defined implied vol.
func WithImpliedVol(rv models.VolMatrix, iv map[string]null.Float) models.VolMatrix {
	cols := make([]string, 0, len(rv.Cols))
	for _, ticker := range rv.Cols {
		if iv[ticker].Valid {
			cols = append(cols, ticker)
		}
	}
	// cols is a subset of rv.Cols
	out, _ := rv.Select(cols)
	return out
}

// RelativeDiff computes (iv - rv) / rv with iv broadcast down each ticker column.
func RelativeDiff(rv models.VolMatrix, iv map[string]null.Float) models.DiffMatrix {
	out := models.NewMatrix[models.Cell](rv.Rows)
	for _, ticker := range rv.Cols {
		col, _ := rv.Column(ticker)
		implied := iv[ticker]
		cells := make([]models.Cell, len(col))
		for i, r := range col {
			cells[i] = relDiff(implied, r)
		}
		// columns come from a valid matrix, so shape errors are impossible
		_ = out.AddColumn(ticker, cells)
	}
	return out
}

func relDiff(iv, rv null.Float) models.Cell {
	switch {
	case !iv.Valid || !rv.Valid:
		return models.Cell{}
	case rv.Float64 == 0:
		return models.SingularCell()
	default:
		return models.DefinedCell((iv.Float64 - rv.Float64) / rv.Float64)
	}
}

// Blend computes wG*dG + wC*dC cell by cell. Both matrices must have the same shape and labels.
func Blend(dG, dC models.DiffMatrix, wG, wC float64) (models.DiffMatrix, error) {
	if !slices.Equal(dG.Rows, dC.Rows) || !slices.Equal(dG.Cols, dC.Cols) {
		return models.DiffMatrix{}, fmt.Errorf("blend inputs differ: %w", models.ErrShapeMismatch)
	}
	out := models.NewMatrix[models.Cell](dG.Rows)
	for c, ticker := range dG.Cols {
		cells := make([]models.Cell, len(dG.Rows))
		for r := range dG.Rows {
			g, cc := dG.Cells[r][c], dC.Cells[r][c]
			switch {
			case g.Singular || cc.Singular:
				cells[r] = models.SingularCell()
			case !g.Value.Valid || !cc.Value.Valid:
			default:
				cells[r] = models.DefinedCell(wG*g.Value.Float64 + wC*cc.Value.Float64)
			}
		}
		if err := out.AddColumn(ticker, cells); err != nil {
			return models.DiffMatrix{}, err
		}
	}
	return out, nil
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as, bs := slices.Clone(a), slices.Clone(b)
	slices.Sort(as)
	slices.Sort(bs)
	return slices.Equal(as, bs)
}

func emptyComparison(rows []string) models.Comparison {
	empty := models.NewMatrix[models.Cell](rows)
	sel := models.Selection{Triples: []models.Triple{}, Tickers: []string{}, Slice: empty}
	return models.Comparison{
		RelDiffGKYZ:       empty,
		RelDiffCloseClose: empty,
		Blended:           empty,
		TopPositive:       sel,
		TopNegative:       sel,
		Thresholds:        models.ThresholdSummary{Positive: []models.ThresholdCount{}, Negative: []models.ThresholdCount{}},
	}
}

var _ domsvc.Comparator = (*Comparator)(nil)
