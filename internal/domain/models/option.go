package models

import (
	"time"

	"github.com/guregu/null/v6"
)

// OptionQuote is one row of an options chain snapshot.
type OptionQuote struct {
	Time    time.Time  `json:"time"`
	Expiry  string     `json:"expiry"` // contract month or last trade date, e.g. 20240621
	LastIV  null.Float `json:"last_iv"`
	BidIV   null.Float `json:"bid_iv"`
	AskIV   null.Float `json:"ask_iv"`
	ModelIV null.Float `json:"model_iv"`
}

// OptionsChain is the option quote table of one ticker.
type OptionsChain struct {
	Symbol string        `json:"symbol"`
	Quotes []OptionQuote `json:"quotes"`
}

// ExpiryIV is the per-expiry mean of the implied vol quotes.
type ExpiryIV struct {
	Expiry  string     `json:"expiry"`
	LastIV  null.Float `json:"last_iv"`
	BidIV   null.Float `json:"bid_iv"`
	AskIV   null.Float `json:"ask_iv"`
	ModelIV null.Float `json:"model_iv"`
}
