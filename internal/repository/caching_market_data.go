package repository

import (
	"context"
	"errors"
	"time"

	"VolScan/internal/domain/models"
	domrepo "VolScan/internal/domain/repository"
	"VolScan/pkg/cache"
	applogger "VolScan/pkg/logger"
)

const (
	barsKeyPrefix    = "bars"
	optionsKeyPrefix = "options"
)

// CachingMarketData memoizes bars and option chains of another MarketData.
// Load errors are never cached; cache failures fall through to the source.
type CachingMarketData struct {
	next domrepo.MarketData
	c    cache.Service
	ttl  time.Duration
	l    *applogger.Logger
}

func NewCachingMarketData(next domrepo.MarketData, c cache.Service, ttl time.Duration) *CachingMarketData {
	return &CachingMarketData{next: next, c: c, ttl: ttl}
}

// SetLogger injects a structured logger.
func (m *CachingMarketData) SetLogger(l *applogger.Logger) { m.l = l }

var _ domrepo.MarketData = (*CachingMarketData)(nil)

func (m *CachingMarketData) LoadDailyBars(ctx context.Context, ticker string) (models.BarSeries, error) {
	key := cache.Key(barsKeyPrefix, ticker)
	var series models.BarSeries
	if m.lookup(ctx, key, &series) {
		return series, nil
	}
	series, err := m.next.LoadDailyBars(ctx, ticker)
	if err != nil {
		return models.BarSeries{}, err
	}
	m.store(ctx, key, series)
	return series, nil
}

func (m *CachingMarketData) LoadOptionsChain(ctx context.Context, ticker string) (models.OptionsChain, error) {
	key := cache.Key(optionsKeyPrefix, ticker)
	var chain models.OptionsChain
	if m.lookup(ctx, key, &chain) {
		return chain, nil
	}
	chain, err := m.next.LoadOptionsChain(ctx, ticker)
	if err != nil {
		return models.OptionsChain{}, err
	}
	m.store(ctx, key, chain)
	return chain, nil
}

func (m *CachingMarketData) lookup(ctx context.Context, key string, dest interface{}) bool {
	err := m.c.Get(ctx, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, cache.ErrCacheMiss) && m.l != nil {
		m.l.Warn("market cache get failed", applogger.String("key", key), applogger.Error(err))
	}
	return false
}

func (m *CachingMarketData) store(ctx context.Context, key string, value interface{}) {
	if err := m.c.Set(ctx, key, value, m.ttl); err != nil && m.l != nil {
		m.l.Warn("market cache set failed", applogger.String("key", key), applogger.Error(err))
	}
}
