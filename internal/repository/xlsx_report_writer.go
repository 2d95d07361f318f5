package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"VolScan/internal/domain/models"
	domrepo "VolScan/internal/domain/repository"
	applogger "VolScan/pkg/logger"
)

// Sheet names of the heatmap workbook.
const (
	SheetTopPositive = "Top Positive"
	SheetTopNegative = "Top Negative"
	SheetBlended     = "Blended"
	SheetThresholds  = "Thresholds"
)

// Diverging colour scale of the heatmaps, centred at 0 over [-2, 2].
var heatmapScale = excelize.ConditionalFormatOptions{
	Type:     "3_color_scale",
	Criteria: "=",
	MinType:  "num",
	MidType:  "num",
	MaxType:  "num",
	MinValue: "-2",
	MidValue: "0",
	MaxValue: "2",
	MinColor: "#3B4CC0",
	MidColor: "#F7F7F7",
	MaxColor: "#B40426",
}

// XLSXReportWriter renders each report as an XLSX workbook of heatmaps.
type XLSXReportWriter struct {
	dir string
	l   *applogger.Logger
}

func NewXLSXReportWriter(dir string) *XLSXReportWriter {
	return &XLSXReportWriter{dir: dir}
}

// SetLogger injects a structured logger.
func (w *XLSXReportWriter) SetLogger(l *applogger.Logger) { w.l = l }

var _ domrepo.ResultSink = (*XLSXReportWriter)(nil)

func (w *XLSXReportWriter) Name() string { return "xlsx" }

// Path returns the workbook path for a report.
func (w *XLSXReportWriter) Path(r *models.Report) string {
	id := r.RunID
	if len(id) > 8 {
		id = id[:8]
	}
	return filepath.Join(w.dir, fmt.Sprintf("volscan_%s_%s.xlsx", r.Date.Format("20060102"), id))
}

func (w *XLSXReportWriter) Publish(_ context.Context, r *models.Report) error {
	start := time.Now()
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	if err := f.SetSheetName(f.GetSheetName(0), SheetTopPositive); err != nil {
		return err
	}
	if err := writeHeatmap(f, SheetTopPositive, r.Comparison.TopPositive.Slice, bold); err != nil {
		return err
	}
	for _, s := range []struct {
		name string
		m    models.DiffMatrix
	}{
		{SheetTopNegative, r.Comparison.TopNegative.Slice},
		{SheetBlended, r.Comparison.Blended},
	} {
		if _, err := f.NewSheet(s.name); err != nil {
			return err
		}
		if err := writeHeatmap(f, s.name, s.m, bold); err != nil {
			return err
		}
	}
	if _, err := f.NewSheet(SheetThresholds); err != nil {
		return err
	}
	if err := writeThresholds(f, r.Comparison.Thresholds, bold); err != nil {
		return err
	}

	path := w.Path(r)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	if w.l != nil {
		w.l.Info("xlsx report written",
			applogger.String("run_id", r.RunID),
			applogger.String("path", path),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

// writeHeatmap lays m out with horizons down column A and tickers across
// row 1. Undefined cells stay blank; singular cells read "singular".
func writeHeatmap(f *excelize.File, sheet string, m models.DiffMatrix, headerStyle int) error {
	if err := f.SetCellValue(sheet, "A1", "horizon"); err != nil {
		return err
	}
	for c, col := range m.Cols {
		if err := setCell(f, sheet, c+2, 1, col); err != nil {
			return err
		}
	}
	for r, row := range m.Rows {
		if err := setCell(f, sheet, 1, r+2, row); err != nil {
			return err
		}
		for c := range m.Cols {
			cell := m.Cells[r][c]
			switch {
			case cell.Singular:
				if err := setCell(f, sheet, c+2, r+2, "singular"); err != nil {
					return err
				}
			case cell.Value.Valid:
				if err := setCell(f, sheet, c+2, r+2, cell.Value.Float64); err != nil {
					return err
				}
			}
		}
	}

	last, err := excelize.CoordinatesToCellName(len(m.Cols)+1, 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}
	if len(m.Cols) == 0 || len(m.Rows) == 0 {
		return nil
	}
	end, err := excelize.CoordinatesToCellName(len(m.Cols)+1, len(m.Rows)+1)
	if err != nil {
		return err
	}
	return f.SetConditionalFormat(sheet, "B2:"+end, []excelize.ConditionalFormatOptions{heatmapScale})
}

func writeThresholds(f *excelize.File, t models.ThresholdSummary, headerStyle int) error {
	header := []string{"positive ticker", "count", "negative ticker", "count"}
	for i, h := range header {
		if err := setCell(f, SheetThresholds, i+1, 1, h); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(SheetThresholds, "A1", "D1", headerStyle); err != nil {
		return err
	}
	for i, tc := range t.Positive {
		if err := setCell(f, SheetThresholds, 1, i+2, tc.Ticker); err != nil {
			return err
		}
		if err := setCell(f, SheetThresholds, 2, i+2, tc.Count); err != nil {
			return err
		}
	}
	for i, tc := range t.Negative {
		if err := setCell(f, SheetThresholds, 3, i+2, tc.Ticker); err != nil {
			return err
		}
		if err := setCell(f, SheetThresholds, 4, i+2, tc.Count); err != nil {
			return err
		}
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, v interface{}) error {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, name, v)
}
