package models

// RunRequest triggers a pipeline run over HTTP. Unset fields fall back to config.
type RunRequest struct {
	Date             string   `json:"date" validate:"omitempty,datetime=2006-01-02"`
	TopN             int      `json:"top_n" validate:"omitempty,gte=1,lte=500"`
	WeightGKYZ       *float64 `json:"weight_gkyz" validate:"omitempty,gte=0,lte=1"`
	WeightCloseClose *float64 `json:"weight_close_close" validate:"omitempty,gte=0,lte=1"`
	Tickers          []string `json:"tickers" validate:"omitempty,max=5000,dive,required"`
}
