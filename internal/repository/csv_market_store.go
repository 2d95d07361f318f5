package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"VolScan/internal/domain/models"
	domrepo "VolScan/internal/domain/repository"
	applogger "VolScan/pkg/logger"
	"VolScan/pkg/util"
)

// Header aliases accepted by the CSV loaders, lower-cased.
var (
	barDateCols   = []string{"date", "time", "timestamp"}
	barSymbolCols = []string{"symbol", "ticker"}
	barOpenCols   = []string{"open"}
	barHighCols   = []string{"high"}
	barLowCols    = []string{"low"}
	barCloseCols  = []string{"close", "adj close"}

	optTimeCols   = []string{"time", "timestamp", "date"}
	optExpiryCols = []string{"expiry", "lasttradedateorcontractmonth"}
	optLastCols   = []string{"last_iv", "lastgreeks_iv"}
	optBidCols    = []string{"bid_iv", "bidgreeks_iv"}
	optAskCols    = []string{"ask_iv", "askgreeks_iv"}
	optModelCols  = []string{"model_iv", "modelgreeks_iv"}
)

// CSVMarketStore reads one file per ticker: <BarsDir>/<TICKER>.csv for daily
// bars and <OptionsDir>/<TICKER>.csv for option chain snapshots.
type CSVMarketStore struct {
	barsDir    string
	optionsDir string
	l          *applogger.Logger
}

func NewCSVMarketStore(barsDir, optionsDir string) *CSVMarketStore {
	return &CSVMarketStore{barsDir: barsDir, optionsDir: optionsDir}
}

// SetLogger injects a structured logger.
func (s *CSVMarketStore) SetLogger(l *applogger.Logger) { s.l = l }

var _ domrepo.MarketData = (*CSVMarketStore)(nil)

func (s *CSVMarketStore) LoadDailyBars(ctx context.Context, ticker string) (models.BarSeries, error) {
	if err := ctx.Err(); err != nil {
		return models.BarSeries{}, err
	}
	path := tickerFile(s.barsDir, ticker)
	header, rows, err := readCSV(path)
	if err != nil {
		return models.BarSeries{}, fmt.Errorf("bars %s: %w", ticker, err)
	}

	idx := indexHeader(header)
	dateCol := idx.find(barDateCols)
	closeCol := idx.find(barCloseCols)
	if dateCol < 0 {
		return models.BarSeries{}, fmt.Errorf("bars %s: no date column: %w", ticker, models.ErrShapeMismatch)
	}
	symCol := idx.find(barSymbolCols)
	openCol, highCol, lowCol := idx.find(barOpenCols), idx.find(barHighCols), idx.find(barLowCols)

	series := models.BarSeries{Symbol: ticker}
	for i, col := range []int{openCol, highCol, lowCol, closeCol} {
		if col >= 0 {
			series.Columns |= models.ColOpen << i
		}
	}

	skipped := 0
	for _, row := range rows {
		if symCol >= 0 && !strings.EqualFold(cell(row, symCol), ticker) {
			continue
		}
		date, ok := util.ParseTime(cell(row, dateCol))
		if !ok {
			skipped++
			continue
		}
		b := models.Bar{Date: date, Symbol: ticker}
		if closeCol >= 0 {
			v := util.ParseNullFloat(cell(row, closeCol))
			if !v.Valid {
				skipped++
				continue
			}
			b.Close = v.Float64
		}
		b.Open = util.ParseNullFloat(cell(row, openCol)).Float64
		b.High = util.ParseNullFloat(cell(row, highCol)).Float64
		b.Low = util.ParseNullFloat(cell(row, lowCol)).Float64
		series.Bars = append(series.Bars, b)
	}

	series.Bars = sortBars(series.Bars)
	if s.l != nil {
		s.l.Debug("csv bars loaded",
			applogger.String("ticker", ticker),
			applogger.String("path", path),
			applogger.Int("rows", len(series.Bars)),
			applogger.Int("skipped", skipped),
		)
	}
	return series, nil
}

func (s *CSVMarketStore) LoadOptionsChain(ctx context.Context, ticker string) (models.OptionsChain, error) {
	if err := ctx.Err(); err != nil {
		return models.OptionsChain{}, err
	}
	path := tickerFile(s.optionsDir, ticker)
	header, rows, err := readCSV(path)
	if err != nil {
		return models.OptionsChain{}, fmt.Errorf("options %s: %w", ticker, err)
	}

	idx := indexHeader(header)
	timeCol, expCol := idx.find(optTimeCols), idx.find(optExpiryCols)
	if timeCol < 0 || expCol < 0 {
		return models.OptionsChain{}, fmt.Errorf("options %s: time and expiry columns required: %w", ticker, models.ErrShapeMismatch)
	}
	lastCol, bidCol, askCol, modelCol := idx.find(optLastCols), idx.find(optBidCols), idx.find(optAskCols), idx.find(optModelCols)

	chain := models.OptionsChain{Symbol: ticker, Quotes: make([]models.OptionQuote, 0, len(rows))}
	for _, row := range rows {
		ts, ok := util.ParseTime(cell(row, timeCol))
		if !ok {
			continue
		}
		chain.Quotes = append(chain.Quotes, models.OptionQuote{
			Time:    ts,
			Expiry:  cell(row, expCol),
			LastIV:  util.ParseNullFloat(cell(row, lastCol)),
			BidIV:   util.ParseNullFloat(cell(row, bidCol)),
			AskIV:   util.ParseNullFloat(cell(row, askCol)),
			ModelIV: util.ParseNullFloat(cell(row, modelCol)),
		})
	}
	return chain, nil
}

func tickerFile(dir, ticker string) string {
	return filepath.Join(dir, ticker+".csv")
}

// readCSV returns the header and data rows of path. A missing file is ErrNotFound.
func readCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%s: %w", path, models.ErrNotFound)
		}
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("%s: empty file: %w", path, models.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}
	return header, rows, nil
}

type headerIndex map[string]int

func indexHeader(header []string) headerIndex {
	idx := make(headerIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// find returns the position of the first alias present, or -1.
func (h headerIndex) find(aliases []string) int {
	for _, a := range aliases {
		if i, ok := h[a]; ok {
			return i
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// sortBars orders bars by date and keeps the last row of duplicated dates.
func sortBars(bars []models.Bar) []models.Bar {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Date.Equal(b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
