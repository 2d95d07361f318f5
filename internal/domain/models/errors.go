package models

import "errors"

var (
	// ErrNotFound marks missing per-ticker input (bars or options chain).
	ErrNotFound = errors.New("data not found")
	// ErrInsufficientData marks a computation without enough observations.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrShapeMismatch marks missing columns or misaligned matrices.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrNoQuotesOnDate marks an options chain with no rows on the observation date.
	ErrNoQuotesOnDate = errors.New("no option quotes on date")
	// ErrNoTickers marks an empty or missing ticker list.
	ErrNoTickers = errors.New("no tickers")
	// ErrRunInProgress marks a run request while another run holds the lock.
	ErrRunInProgress = errors.New("run already in progress")
)
