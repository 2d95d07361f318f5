package models

import (
	"time"

	"github.com/guregu/null/v6"
)

// Pipeline stages a ticker can be skipped at.
const (
	StageBars       = "bars"
	StageCloseClose = "close_close"
	StageGKYZ       = "gkyz"
	StageImpliedVol = "implied_vol"
)

// Skip reasons.
const (
	ReasonMissingInput  = "missing_input"
	ReasonShapeMismatch = "shape_mismatch"
	ReasonNoData        = "no_data"
	ReasonUndefined     = "undefined"
	ReasonLoadError     = "load_error"
	ReasonCancelled     = "cancelled"
)

// Skip records why a ticker is missing from one stage of a run.
type Skip struct {
	Ticker string `json:"ticker"`
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// AnalysisParams are the comparison knobs of a run.
type AnalysisParams struct {
	WeightGKYZ        float64  `yaml:"weight_gkyz" json:"weight_gkyz"`
	WeightCloseClose  float64  `yaml:"weight_close_close" json:"weight_close_close"`
	CapLow            float64  `yaml:"cap_low" json:"cap_low"`
	CapHigh           float64  `yaml:"cap_high" json:"cap_high"`
	ThresholdPositive float64  `yaml:"threshold_positive" json:"threshold_positive"`
	ThresholdNegative float64  `yaml:"threshold_negative" json:"threshold_negative"`
	TopN              int      `yaml:"top_n" json:"top_n"`
	Tickers           []string `yaml:"-" json:"tickers,omitempty"` // optional column restriction
}

// DefaultAnalysisParams returns the tuned defaults.
func DefaultAnalysisParams() AnalysisParams {
	return AnalysisParams{
		WeightGKYZ:        0.6,
		WeightCloseClose:  0.4,
		CapLow:            -1.75,
		CapHigh:           2.0,
		ThresholdPositive: 0.75,
		ThresholdNegative: -0.5,
		TopN:              20,
	}
}

// Triple is one flattened (horizon, ticker, value) entry of the blended matrix.
type Triple struct {
	Horizon string  `json:"horizon"`
	Ticker  string  `json:"ticker"`
	Value   float64 `json:"value"`
}

// Selection is a top-N pick: the ranked triples, the distinct tickers they
// resolve to, and the uncapped blended values of those tickers.
type Selection struct {
	Triples []Triple   `json:"triples"`
	Tickers []string   `json:"tickers"`
	Slice   DiffMatrix `json:"slice"`
}

// ThresholdCount is the number of horizons a ticker crossed a threshold at.
type ThresholdCount struct {
	Ticker string `json:"ticker"`
	Count  int    `json:"count"`
}

// ThresholdSummary ranks tickers by threshold exceedances.
type ThresholdSummary struct {
	Positive []ThresholdCount `json:"positive"`
	Negative []ThresholdCount `json:"negative"`
}

// Comparison is the output of the cross-sectional comparator.
type Comparison struct {
	RelDiffGKYZ       DiffMatrix       `json:"rel_diff_gkyz"`
	RelDiffCloseClose DiffMatrix       `json:"rel_diff_close_close"`
	Blended           DiffMatrix       `json:"blended"`
	TopPositive       Selection        `json:"top_positive"`
	TopNegative       Selection        `json:"top_negative"`
	Thresholds        ThresholdSummary `json:"thresholds"`
}

// Report is everything one pipeline run produced.
type Report struct {
	RunID       string                `json:"run_id"`
	Date        time.Time             `json:"date"`
	GeneratedAt time.Time             `json:"generated_at"`
	Params      AnalysisParams        `json:"params"`
	Horizons    HorizonSpec           `json:"horizons"`
	Tickers     []string              `json:"tickers"`
	CloseClose  VolMatrix             `json:"close_close"`
	GKYZ        VolMatrix             `json:"gkyz"`
	ImpliedVol  map[string]null.Float `json:"implied_vol"`
	Comparison  Comparison            `json:"comparison"`
	Skips       []Skip                `json:"skips"`
}
