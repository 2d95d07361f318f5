package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VolScan/internal/domain/models"
	"VolScan/internal/services/comparator"
	"VolScan/internal/services/implied"
	"VolScan/internal/services/volatility"
	"VolScan/pkg/util"
)

var runDate = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

type fakeMarket struct {
	bars   map[string]models.BarSeries
	chains map[string]models.OptionsChain
	delay  map[string]time.Duration
}

func (f *fakeMarket) LoadDailyBars(ctx context.Context, ticker string) (models.BarSeries, error) {
	if d := f.delay[ticker]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return models.BarSeries{}, ctx.Err()
		}
	}
	s, ok := f.bars[ticker]
	if !ok {
		return models.BarSeries{}, fmt.Errorf("bars %s: %w", ticker, models.ErrNotFound)
	}
	return s, nil
}

func (f *fakeMarket) LoadOptionsChain(_ context.Context, ticker string) (models.OptionsChain, error) {
	c, ok := f.chains[ticker]
	if !ok {
		return models.OptionsChain{}, fmt.Errorf("chain %s: %w", ticker, models.ErrNotFound)
	}
	return c, nil
}

type staticTickers []string

func (s staticTickers) LoadTickers(context.Context) ([]string, error) { return s, nil }

type recordingSink struct {
	name    string
	err     error
	mu      sync.Mutex
	reports []*models.Report
	ctxErrs []error
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Publish(ctx context.Context, r *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	return s.err
}

type countingMetrics struct {
	mu     sync.Mutex
	skips  map[string]int
	errors map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{skips: map[string]int{}, errors: map[string]int{}}
}

func (m *countingMetrics) RecordTicker(string, string) {}
func (m *countingMetrics) RecordSkip(stage, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skips[stage+"/"+reason]++
}
func (m *countingMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}
func (m *countingMetrics) RecordLatency(string, float64) {}

// wavySeries returns n business-day bars ending on runDate with a
// deterministic oscillating price path.
func wavySeries(ticker string, n int, amp float64) models.BarSeries {
	s := models.BarSeries{Symbol: ticker, Columns: models.ColOHLC, Bars: make([]models.Bar, n)}
	d := runDate
	for i := n - 1; i >= 0; i-- {
		c := 100 * (1 + amp*math.Sin(float64(i)/3))
		s.Bars[i] = models.Bar{Date: d, Symbol: ticker, Open: c * 0.995, High: c * 1.01, Low: c * 0.985, Close: c}
		d = util.SubtractBusinessDays(d, 1)
	}
	return s
}

func chainWith(ticker string, ivs map[string]float64) models.OptionsChain {
	c := models.OptionsChain{Symbol: ticker}
	for exp, iv := range ivs {
		c.Quotes = append(c.Quotes, models.OptionQuote{
			Time:    runDate.Add(15 * time.Hour),
			Expiry:  exp,
			ModelIV: null.FloatFrom(iv),
		})
	}
	return c
}

func newTestPipeline(market *fakeMarket, tickers []string, opts ...PipelineOption) *VolPipeline {
	h := models.DefaultHorizons()
	return NewVolPipeline(
		staticTickers(tickers),
		market,
		volatility.NewEstimator(h),
		implied.NewAggregator(),
		comparator.NewComparator(),
		h,
		append([]PipelineOption{WithClock(func() time.Time { return runDate.Add(20 * time.Hour) })}, opts...)...,
	)
}

func hasSkip(skips []models.Skip, ticker, stage, reason string) bool {
	for _, s := range skips {
		if s.Ticker == ticker && s.Stage == stage && s.Reason == reason {
			return true
		}
	}
	return false
}

func TestRunMixedUniverse(t *testing.T) {
	closeOnly := wavySeries("CCC", 300, 0.02)
	closeOnly.Columns = models.ColClose

	market := &fakeMarket{
		bars: map[string]models.BarSeries{
			"AAA": wavySeries("AAA", 300, 0.02),
			"CCC": closeOnly,
			"DDD": wavySeries("DDD", 300, 0.05),
		},
		chains: map[string]models.OptionsChain{
			"AAA": chainWith("AAA", map[string]float64{"20240621": 0.9, "20240920": 0.3, "20241220": 0.4}),
			"CCC": chainWith("CCC", map[string]float64{"20240621": 0.2, "20240920": 0.25}),
			"DDD": chainWith("DDD", map[string]float64{"20240621": 0.5}),
		},
	}
	metrics := newCountingMetrics()
	sink := &recordingSink{name: "rec"}
	p := newTestPipeline(market, []string{"AAA", "BBB", "CCC", "DDD", "AAA"}, WithMetrics(metrics), WithSinks(sink))

	report, err := p.Run(context.Background(), RunParams{})
	require.NoError(t, err)

	assert.Equal(t, []string{"AAA", "BBB", "CCC", "DDD"}, report.Tickers)
	assert.Equal(t, runDate, report.Date)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, []string{"AAA", "DDD"}, report.CloseClose.Cols)
	assert.Equal(t, report.CloseClose.Cols, report.GKYZ.Cols)
	assert.Equal(t, models.DefaultHorizons().Labels(), report.CloseClose.Rows)

	require.Contains(t, report.ImpliedVol, "AAA")
	assert.InDelta(t, 0.35, report.ImpliedVol["AAA"].Float64, 1e-12)
	assert.Contains(t, report.ImpliedVol, "CCC")
	assert.NotContains(t, report.ImpliedVol, "DDD")

	assert.True(t, hasSkip(report.Skips, "BBB", models.StageBars, models.ReasonMissingInput))
	assert.True(t, hasSkip(report.Skips, "BBB", models.StageImpliedVol, models.ReasonMissingInput))
	assert.True(t, hasSkip(report.Skips, "CCC", models.StageGKYZ, models.ReasonShapeMismatch))
	assert.True(t, hasSkip(report.Skips, "DDD", models.StageImpliedVol, models.ReasonUndefined))

	assert.Equal(t, 1, metrics.skips["bars/missing_input"])
	require.Len(t, sink.reports, 1)
	assert.Same(t, report, sink.reports[0])

	assert.Equal(t, []string{"AAA"}, report.Comparison.Blended.Cols)
	assert.Equal(t, []string{"AAA"}, report.Comparison.RelDiffGKYZ.Cols)
}

func TestRunDeterministicColumnOrder(t *testing.T) {
	tickers := []string{"T1", "T2", "T3", "T4", "T5", "T6"}
	market := &fakeMarket{bars: map[string]models.BarSeries{}, chains: map[string]models.OptionsChain{}, delay: map[string]time.Duration{}}
	for i, tk := range tickers {
		market.bars[tk] = wavySeries(tk, 80, 0.01*float64(i+1))
		market.delay[tk] = time.Duration(len(tickers)-i) * 5 * time.Millisecond
	}
	p := newTestPipeline(market, tickers, WithWorkers(6))

	report, err := p.Run(context.Background(), RunParams{})
	require.NoError(t, err)
	assert.Equal(t, tickers, report.CloseClose.Cols)
	assert.Equal(t, tickers, report.GKYZ.Cols)
}

func TestRunIsFreshEachTime(t *testing.T) {
	market := &fakeMarket{bars: map[string]models.BarSeries{"AAA": wavySeries("AAA", 100, 0.02)}}
	p := newTestPipeline(market, []string{"AAA"})

	first, err := p.Run(context.Background(), RunParams{})
	require.NoError(t, err)

	second, err := p.Run(context.Background(), RunParams{Tickers: []string{"BBB"}})
	require.NoError(t, err)
	assert.Empty(t, second.CloseClose.Cols)
	assert.Equal(t, []string{"AAA"}, first.CloseClose.Cols)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.True(t, second.Comparison.Blended.Empty())
}

func TestRunNoTickers(t *testing.T) {
	p := newTestPipeline(&fakeMarket{}, nil)
	_, err := p.Run(context.Background(), RunParams{})
	assert.ErrorIs(t, err, models.ErrNoTickers)
}

func TestRunCancelled(t *testing.T) {
	market := &fakeMarket{bars: map[string]models.BarSeries{"AAA": wavySeries("AAA", 100, 0.02)}}
	metrics := newCountingMetrics()
	sink := &recordingSink{name: "rec"}
	p := newTestPipeline(market, []string{"AAA", "BBB"}, WithMetrics(metrics), WithSinks(sink))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := p.Run(ctx, RunParams{})
	require.NoError(t, err)
	assert.True(t, hasSkip(report.Skips, "AAA", models.StageBars, models.ReasonCancelled))
	assert.True(t, hasSkip(report.Skips, "BBB", models.StageBars, models.ReasonCancelled))
	assert.True(t, report.CloseClose.Empty())
	assert.Equal(t, 2, metrics.skips["bars/cancelled"], "unscheduled tickers are counted")

	require.Len(t, sink.ctxErrs, 1)
	assert.NoError(t, sink.ctxErrs[0])
}

func TestRunTimeoutPublishesPartialReport(t *testing.T) {
	market := &fakeMarket{
		bars: map[string]models.BarSeries{
			"AAA": wavySeries("AAA", 100, 0.02),
			"BBB": wavySeries("BBB", 100, 0.03),
		},
		chains: map[string]models.OptionsChain{
			"AAA": chainWith("AAA", map[string]float64{"20240621": 0.9, "20240920": 0.3}),
		},
		delay: map[string]time.Duration{"BBB": time.Second},
	}
	metrics := newCountingMetrics()
	sink := &recordingSink{name: "rec"}
	p := newTestPipeline(market, []string{"AAA", "BBB"},
		WithRunTimeout(50*time.Millisecond), WithSinks(sink), WithMetrics(metrics))

	report, err := p.Run(context.Background(), RunParams{})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA"}, report.CloseClose.Cols)
	assert.Equal(t, []string{"AAA"}, report.Comparison.Blended.Cols)
	assert.True(t, hasSkip(report.Skips, "BBB", models.StageBars, models.ReasonCancelled))
	assert.Equal(t, 1, metrics.skips["bars/cancelled"])

	require.Len(t, sink.reports, 1)
	assert.Same(t, report, sink.reports[0])
	assert.NoError(t, sink.ctxErrs[0], "sinks get a live context after the run timeout")
}

func TestRunSinkFailureDoesNotAbort(t *testing.T) {
	market := &fakeMarket{bars: map[string]models.BarSeries{"AAA": wavySeries("AAA", 100, 0.02)}}
	metrics := newCountingMetrics()
	bad := &recordingSink{name: "bad", err: errors.New("unavailable")}
	good := &recordingSink{name: "good"}
	p := newTestPipeline(market, []string{"AAA"}, WithSinks(bad, good), WithMetrics(metrics))

	report, err := p.Run(context.Background(), RunParams{})
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Len(t, good.reports, 1)
	assert.Equal(t, 1, metrics.errors["sink_bad"])
}

func TestRunShapeErrorFromRestriction(t *testing.T) {
	market := &fakeMarket{bars: map[string]models.BarSeries{"AAA": wavySeries("AAA", 100, 0.02)}}
	p := newTestPipeline(market, []string{"AAA"})

	params := models.DefaultAnalysisParams()
	params.Tickers = []string{"AAA", "ZZZ"}
	_, err := p.Run(context.Background(), RunParams{Params: &params})
	assert.ErrorIs(t, err, models.ErrShapeMismatch)
}

func TestRunExplicitDate(t *testing.T) {
	market := &fakeMarket{
		bars:   map[string]models.BarSeries{"AAA": wavySeries("AAA", 100, 0.02)},
		chains: map[string]models.OptionsChain{"AAA": chainWith("AAA", map[string]float64{"20240621": 0.9, "20240920": 0.3})},
	}
	p := newTestPipeline(market, []string{"AAA"})

	report, err := p.Run(context.Background(), RunParams{Date: runDate.AddDate(0, 0, 1)})
	require.NoError(t, err)
	assert.Empty(t, report.ImpliedVol)
	assert.True(t, hasSkip(report.Skips, "AAA", models.StageImpliedVol, models.ReasonNoData))
}
