package repository

import (
	"time"

	"github.com/guregu/null/v6"

	"VolScan/internal/domain/models"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

// sampleReport has two horizons and two tickers; MSFT at "1 week" is singular.
func sampleReport() *models.Report {
	rows := []string{"1 month", "1 week"}

	cc := models.NewMatrix[null.Float](rows)
	_ = cc.AddColumn("AAPL", []null.Float{null.FloatFrom(0.20), null.FloatFrom(0.25)})
	_ = cc.AddColumn("MSFT", []null.Float{null.FloatFrom(0.30), null.FloatFrom(0)})
	gk := models.NewMatrix[null.Float](rows)
	_ = gk.AddColumn("AAPL", []null.Float{null.FloatFrom(0.22), {}})
	_ = gk.AddColumn("MSFT", []null.Float{null.FloatFrom(0.28), null.FloatFrom(0)})

	diff := func(a, b []models.Cell) models.DiffMatrix {
		m := models.NewMatrix[models.Cell](rows)
		_ = m.AddColumn("AAPL", a)
		_ = m.AddColumn("MSFT", b)
		return m
	}
	blended := diff(
		[]models.Cell{models.DefinedCell(0.5), {}},
		[]models.Cell{models.DefinedCell(-0.25), models.SingularCell()},
	)
	top, _ := blended.Select([]string{"AAPL"})

	return &models.Report{
		RunID:       "0f8d2c1e-1111-2222-3333-444455556666",
		Date:        day("2024-06-03"),
		GeneratedAt: time.Date(2024, 6, 3, 21, 0, 0, 0, time.UTC),
		Params:      models.DefaultAnalysisParams(),
		Horizons:    models.HorizonSpec{{Label: "1 month", TradingDays: 21}, {Label: "1 week", TradingDays: 5}},
		Tickers:     []string{"AAPL", "MSFT", "TSLA"},
		CloseClose:  cc,
		GKYZ:        gk,
		ImpliedVol:  map[string]null.Float{"AAPL": null.FloatFrom(0.3), "MSFT": null.FloatFrom(0.21)},
		Comparison: models.Comparison{
			RelDiffGKYZ: diff(
				[]models.Cell{models.DefinedCell(0.3/0.22 - 1), {}},
				[]models.Cell{models.DefinedCell(0.21/0.28 - 1), models.SingularCell()},
			),
			RelDiffCloseClose: diff(
				[]models.Cell{models.DefinedCell(0.5), models.DefinedCell(0.2)},
				[]models.Cell{models.DefinedCell(-0.3), models.SingularCell()},
			),
			Blended: blended,
			TopPositive: models.Selection{
				Triples: []models.Triple{{Horizon: "1 month", Ticker: "AAPL", Value: 0.5}},
				Tickers: []string{"AAPL"},
				Slice:   top,
			},
			Thresholds: models.ThresholdSummary{
				Negative: []models.ThresholdCount{{Ticker: "MSFT", Count: 1}},
			},
		},
		Skips: []models.Skip{{Ticker: "TSLA", Stage: models.StageBars, Reason: models.ReasonMissingInput}},
	}
}
