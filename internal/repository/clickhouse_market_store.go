package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/guregu/null/v6"

	"VolScan/internal/domain/models"
	domrepo "VolScan/internal/domain/repository"
	pkgch "VolScan/pkg/clickhouse"
	applogger "VolScan/pkg/logger"
)

// CHMarketStore implements MarketData backed by ClickHouse.
type CHMarketStore struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

func NewCHMarketStore(ch *pkgch.Client, database string) *CHMarketStore {
	return &CHMarketStore{db: ch.DB(), database: database}
}

// SetLogger injects a structured logger.
func (s *CHMarketStore) SetLogger(l *applogger.Logger) { s.l = l }

var _ domrepo.MarketData = (*CHMarketStore)(nil)

func (s *CHMarketStore) LoadDailyBars(ctx context.Context, ticker string) (models.BarSeries, error) {
	start := time.Now()
	const qtpl = `
        SELECT date, open, high, low, close
        FROM %s.%s FINAL
        WHERE symbol = ?
        ORDER BY date ASC
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.database, pkgch.TableDailyBars), ticker)
	if err != nil {
		s.logErr("clickhouse daily_bars query error", ticker, err)
		return models.BarSeries{}, fmt.Errorf("query bars %s: %w", ticker, err)
	}
	defer rows.Close()

	var raw []barRow
	for rows.Next() {
		var r barRow
		if err := rows.Scan(&r.date, &r.open, &r.high, &r.low, &r.close); err != nil {
			s.logErr("clickhouse daily_bars scan error", ticker, err)
			return models.BarSeries{}, fmt.Errorf("scan bar: %w", err)
		}
		raw = append(raw, r)
	}
	if err := rows.Err(); err != nil {
		s.logErr("clickhouse daily_bars rows error", ticker, err)
		return models.BarSeries{}, fmt.Errorf("rows: %w", err)
	}
	if len(raw) == 0 {
		return models.BarSeries{}, fmt.Errorf("bars %s: %w", ticker, models.ErrNotFound)
	}
	series := barSeriesFromRows(ticker, raw)
	if s.l != nil {
		s.l.Debug("clickhouse daily_bars ok",
			applogger.String("ticker", ticker),
			applogger.Int("rows", len(series.Bars)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return series, nil
}

func (s *CHMarketStore) LoadOptionsChain(ctx context.Context, ticker string) (models.OptionsChain, error) {
	start := time.Now()
	const qtpl = `
        SELECT time, expiry, last_iv, bid_iv, ask_iv, model_iv
        FROM %s.%s
        WHERE symbol = ?
        ORDER BY time ASC
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.database, pkgch.TableOptionQuotes), ticker)
	if err != nil {
		s.logErr("clickhouse option_quotes query error", ticker, err)
		return models.OptionsChain{}, fmt.Errorf("query options %s: %w", ticker, err)
	}
	defer rows.Close()

	chain := models.OptionsChain{Symbol: ticker}
	for rows.Next() {
		var q models.OptionQuote
		if err := rows.Scan(&q.Time, &q.Expiry, &q.LastIV, &q.BidIV, &q.AskIV, &q.ModelIV); err != nil {
			s.logErr("clickhouse option_quotes scan error", ticker, err)
			return models.OptionsChain{}, fmt.Errorf("scan quote: %w", err)
		}
		chain.Quotes = append(chain.Quotes, q)
	}
	if err := rows.Err(); err != nil {
		s.logErr("clickhouse option_quotes rows error", ticker, err)
		return models.OptionsChain{}, fmt.Errorf("rows: %w", err)
	}
	if len(chain.Quotes) == 0 {
		return models.OptionsChain{}, fmt.Errorf("options %s: %w", ticker, models.ErrNotFound)
	}
	if s.l != nil {
		s.l.Debug("clickhouse option_quotes ok",
			applogger.String("ticker", ticker),
			applogger.Int("rows", len(chain.Quotes)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return chain, nil
}

func (s *CHMarketStore) logErr(msg, ticker string, err error) {
	if s.l == nil {
		return
	}
	s.l.Error(msg, applogger.String("ticker", ticker), applogger.Error(err))
}

type barRow struct {
	date            time.Time
	open, high, low null.Float
	close           float64
}

// barSeriesFromRows builds a series. A price column counts as present only
// when every row carries it.
func barSeriesFromRows(ticker string, raw []barRow) models.BarSeries {
	series := models.BarSeries{Symbol: ticker, Columns: models.ColOHLC, Bars: make([]models.Bar, 0, len(raw))}
	for _, r := range raw {
		if !r.open.Valid {
			series.Columns &^= models.ColOpen
		}
		if !r.high.Valid {
			series.Columns &^= models.ColHigh
		}
		if !r.low.Valid {
			series.Columns &^= models.ColLow
		}
		series.Bars = append(series.Bars, models.Bar{
			Date:   r.date,
			Symbol: ticker,
			Open:   r.open.Float64,
			High:   r.high.Float64,
			Low:    r.low.Float64,
			Close:  r.close,
		})
	}
	return series
}
