package models

import "fmt"

// Horizon is a named trailing window measured in trading days.
type Horizon struct {
	Label       string `yaml:"label" json:"label"`
	TradingDays int    `yaml:"trading_days" json:"trading_days"`
}

// HorizonSpec is the ordered horizon menu shared by both realized estimators.
// Its order is the row order of every matrix.
type HorizonSpec []Horizon

// DefaultHorizons returns the standard menu, longest first.
func DefaultHorizons() HorizonSpec {
	return HorizonSpec{
		{"1 year", 252},
		{"9 month", 189},
		{"6 month", 126},
		{"3 month", 63},
		{"1 month", 21},
		{"2 week", 10},
		{"1 week", 5},
	}
}

// Labels returns the horizon labels in order.
func (h HorizonSpec) Labels() []string {
	out := make([]string, len(h))
	for i, hz := range h {
		out[i] = hz.Label
	}
	return out
}

// Validate checks labels are unique and non-empty and windows positive.
func (h HorizonSpec) Validate() error {
	if len(h) == 0 {
		return fmt.Errorf("horizons cannot be empty")
	}
	seen := make(map[string]struct{}, len(h))
	for _, hz := range h {
		if hz.Label == "" {
			return fmt.Errorf("horizon label is required")
		}
		if hz.TradingDays <= 0 {
			return fmt.Errorf("horizon %q: trading_days must be > 0, got %d", hz.Label, hz.TradingDays)
		}
		if _, dup := seen[hz.Label]; dup {
			return fmt.Errorf("duplicate horizon label %q", hz.Label)
		}
		seen[hz.Label] = struct{}{}
	}
	return nil
}
