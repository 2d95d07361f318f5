package repository

import (
	"context"
	"fmt"
	"strings"

	"VolScan/internal/domain/models"
	domrepo "VolScan/internal/domain/repository"
)

// ManifestTickerSource reads the ticker universe from the Symbol column of a CSV manifest.
type ManifestTickerSource struct {
	path string
}

func NewManifestTickerSource(path string) *ManifestTickerSource {
	return &ManifestTickerSource{path: path}
}

var _ domrepo.TickerSource = (*ManifestTickerSource)(nil)

func (s *ManifestTickerSource) LoadTickers(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	header, rows, err := readCSV(s.path)
	if err != nil {
		return nil, fmt.Errorf("ticker manifest: %w", err)
	}
	col := indexHeader(header).find(barSymbolCols)
	if col < 0 {
		return nil, fmt.Errorf("ticker manifest %s: no Symbol column: %w", s.path, models.ErrShapeMismatch)
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if sym := cell(row, col); sym != "" {
			out = append(out, sym)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ticker manifest %s: %w", s.path, models.ErrNoTickers)
	}
	return out, nil
}

// StaticTickerSource serves a fixed list, typically from config or env.
type StaticTickerSource struct {
	tickers []string
}

func NewStaticTickerSource(tickers []string) *StaticTickerSource {
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return &StaticTickerSource{tickers: out}
}

var _ domrepo.TickerSource = (*StaticTickerSource)(nil)

func (s *StaticTickerSource) LoadTickers(context.Context) ([]string, error) {
	if len(s.tickers) == 0 {
		return nil, models.ErrNoTickers
	}
	out := make([]string, len(s.tickers))
	copy(out, s.tickers)
	return out, nil
}
