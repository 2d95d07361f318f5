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

// CHResultStore persists every report cell and skip to ClickHouse.
type CHResultStore struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

func NewCHResultStore(ch *pkgch.Client, database string) *CHResultStore {
	return &CHResultStore{db: ch.DB(), database: database}
}

// SetLogger injects a structured logger.
func (s *CHResultStore) SetLogger(l *applogger.Logger) { s.l = l }

var _ domrepo.ResultSink = (*CHResultStore)(nil)

func (s *CHResultStore) Name() string { return "clickhouse" }

func (s *CHResultStore) Publish(ctx context.Context, r *models.Report) error {
	start := time.Now()
	results := volResultRows(r)
	skips := r.Skips

	resultsQ := fmt.Sprintf(`INSERT INTO %s.%s (run_id, run_date, generated_at, horizon, symbol, close_close, gkyz, implied_vol, rel_diff_gkyz, rel_diff_close_close, blended, singular)`, s.database, pkgch.TableVolResults)
	if err := s.batch(ctx, resultsQ, len(results), func(stmt *sql.Stmt, i int) error {
		row := results[i]
		_, err := stmt.ExecContext(ctx,
			r.RunID, r.Date, r.GeneratedAt, row.horizon, row.symbol,
			row.closeClose, row.gkyz, row.iv, row.relGKYZ, row.relCloseClose, row.blended, row.singular,
		)
		return err
	}); err != nil {
		return fmt.Errorf("insert vol results: %w", err)
	}

	skipsQ := fmt.Sprintf(`INSERT INTO %s.%s (run_id, run_date, symbol, stage, reason, detail)`, s.database, pkgch.TableRunSkips)
	if err := s.batch(ctx, skipsQ, len(skips), func(stmt *sql.Stmt, i int) error {
		sk := skips[i]
		_, err := stmt.ExecContext(ctx, r.RunID, r.Date, sk.Ticker, sk.Stage, sk.Reason, sk.Detail)
		return err
	}); err != nil {
		return fmt.Errorf("insert run skips: %w", err)
	}

	if s.l != nil {
		s.l.Info("clickhouse results stored",
			applogger.String("run_id", r.RunID),
			applogger.Int("rows", len(results)),
			applogger.Int("skips", len(skips)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

// batch runs n inserts through one prepared statement; clickhouse-go sends
// them as a single block on commit.
func (s *CHResultStore) batch(ctx context.Context, query string, n int, exec func(*sql.Stmt, int) error) error {
	if n == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for i := 0; i < n; i++ {
		if err := exec(stmt, i); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

type volResultRow struct {
	horizon, symbol        string
	closeClose, gkyz, iv   null.Float
	relGKYZ, relCloseClose null.Float
	blended                null.Float
	singular               uint8
}

// volResultRows flattens a report into one row per (horizon, ticker) of the
// realized matrices, in row-major order.
func volResultRows(r *models.Report) []volResultRow {
	cmp := r.Comparison
	out := make([]volResultRow, 0, len(r.CloseClose.Rows)*len(r.CloseClose.Cols))
	for _, h := range r.CloseClose.Rows {
		for _, t := range r.CloseClose.Cols {
			row := volResultRow{horizon: h, symbol: t, iv: r.ImpliedVol[t]}
			row.closeClose, _ = r.CloseClose.Get(h, t)
			row.gkyz, _ = r.GKYZ.Get(h, t)
			var singular bool
			row.relGKYZ, singular = diffValue(&cmp.RelDiffGKYZ, h, t)
			rcc, s2 := diffValue(&cmp.RelDiffCloseClose, h, t)
			row.relCloseClose = rcc
			row.blended, _ = diffValue(&cmp.Blended, h, t)
			if singular || s2 {
				row.singular = 1
			}
			out = append(out, row)
		}
	}
	return out
}

func diffValue(m *models.DiffMatrix, row, col string) (null.Float, bool) {
	c, ok := m.Get(row, col)
	if !ok || !c.Defined() {
		return null.Float{}, ok && c.Singular
	}
	return c.Value, false
}
