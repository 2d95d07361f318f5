package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/guregu/null/v6"
	"golang.org/x/sync/errgroup"

	"VolScan/internal/domain/models"
	drepo "VolScan/internal/domain/repository"
	domsvc "VolScan/internal/domain/service"
	applogger "VolScan/pkg/logger"
)

const (
	defaultWorkers        = 8
	defaultPublishTimeout = time.Minute
)

// VolPipeline runs one volatility scan: per-ticker realized and implied vol,
// then the cross-sectional comparison, then every sink.
type VolPipeline struct {
	tickers    drepo.TickerSource
	market     drepo.MarketData
	estimator  domsvc.RealizedVolEstimator
	implied    domsvc.ImpliedVolAggregator
	comparator domsvc.Comparator
	horizons   models.HorizonSpec
	sinks      []drepo.ResultSink
	metrics    drepo.Metrics
	log        *applogger.Logger
	workers    int
	timeout    time.Duration
	pubTimeout time.Duration
	params     models.AnalysisParams
	now        func() time.Time
}

type PipelineOption func(*VolPipeline)

func WithWorkers(n int) PipelineOption {
	return func(p *VolPipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithRunTimeout bounds ticker loading and estimation. Zero disables the
// bound. Publishing is bounded separately.
func WithRunTimeout(d time.Duration) PipelineOption {
	return func(p *VolPipeline) { p.timeout = d }
}

// WithPublishTimeout bounds delivery of a report to all sinks.
func WithPublishTimeout(d time.Duration) PipelineOption {
	return func(p *VolPipeline) {
		if d > 0 {
			p.pubTimeout = d
		}
	}
}

func WithSinks(sinks ...drepo.ResultSink) PipelineOption {
	return func(p *VolPipeline) { p.sinks = append(p.sinks, sinks...) }
}

func WithMetrics(m drepo.Metrics) PipelineOption {
	return func(p *VolPipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

func WithLogger(l *applogger.Logger) PipelineOption {
	return func(p *VolPipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithParams sets the default comparison parameters.
func WithParams(params models.AnalysisParams) PipelineOption {
	return func(p *VolPipeline) { p.params = params }
}

func WithClock(now func() time.Time) PipelineOption {
	return func(p *VolPipeline) { p.now = now }
}

func NewVolPipeline(
	tickers drepo.TickerSource,
	market drepo.MarketData,
	estimator domsvc.RealizedVolEstimator,
	implied domsvc.ImpliedVolAggregator,
	comparator domsvc.Comparator,
	horizons models.HorizonSpec,
	opts ...PipelineOption,
) *VolPipeline {
	p := &VolPipeline{
		tickers:    tickers,
		market:     market,
		estimator:  estimator,
		implied:    implied,
		comparator: comparator,
		horizons:   horizons,
		metrics:    noopMetrics{},
		log:        applogger.Nop(),
		workers:    defaultWorkers,
		pubTimeout: defaultPublishTimeout,
		params:     models.DefaultAnalysisParams(),
		now:        time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Params returns the default comparison parameters.
func (p *VolPipeline) Params() models.AnalysisParams { return p.params }

// RunParams overrides pipeline defaults for a single run.
type RunParams struct {
	Date    time.Time              // implied vol observation date; zero means today
	Tickers []string               // replaces the ticker source when non-empty
	Params  *models.AnalysisParams // nil means the pipeline defaults
}

// Run executes one scan. Per-ticker failures become skips; only an empty
// ticker list or a comparison shape error fails the run.
func (p *VolPipeline) Run(ctx context.Context, rp RunParams) (*models.Report, error) {
	start := p.now()
	defer func() { p.metrics.RecordLatency("run", time.Since(start).Seconds()) }()

	collectCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		collectCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	params := p.params
	if rp.Params != nil {
		params = *rp.Params
	}
	date := rp.Date
	if date.IsZero() {
		y, m, d := p.now().Date()
		date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	tickers, err := p.resolveTickers(collectCtx, rp.Tickers)
	if err != nil {
		p.metrics.RecordError("tickers")
		return nil, err
	}

	runID := uuid.NewString()
	log := p.log.With(applogger.String("run_id", runID))
	log.Info("run started",
		applogger.Int("tickers", len(tickers)),
		applogger.String("date", date.Format(time.DateOnly)),
		applogger.Int("workers", p.workers),
	)

	coll := newRunCollection(p.horizons, tickers)
	p.collect(collectCtx, coll, date, log)

	closeClose, gkyz, iv, err := coll.Matrices()
	if err != nil {
		return nil, fmt.Errorf("assemble matrices: %w", err)
	}
	cmp, err := p.comparator.Compare(gkyz, closeClose, iv, params)
	if err != nil {
		p.metrics.RecordError("compare")
		log.Error("comparison failed", applogger.Error(err))
		return nil, fmt.Errorf("compare: %w", err)
	}

	report := &models.Report{
		RunID:       runID,
		Date:        date,
		GeneratedAt: p.now(),
		Params:      params,
		Horizons:    p.horizons,
		Tickers:     tickers,
		CloseClose:  closeClose,
		GKYZ:        gkyz,
		ImpliedVol:  iv,
		Comparison:  cmp,
		Skips:       coll.Skips(),
	}
	if closeClose.Empty() {
		log.Warn("no realized volatility data, comparison is empty")
	}
	log.Info("run finished",
		applogger.Int("columns", len(closeClose.Cols)),
		applogger.Int("implied", len(iv)),
		applogger.Int("skips", len(report.Skips)),
		applogger.Strings("top_positive", cmp.TopPositive.Tickers),
		applogger.Strings("top_negative", cmp.TopNegative.Tickers),
		applogger.Duration("took", time.Since(start)),
	)

	// a timed out or cancelled run still delivers its partial report
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.pubTimeout)
	defer cancel()
	p.publish(pubCtx, report, log)
	return report, nil
}

func (p *VolPipeline) resolveTickers(ctx context.Context, override []string) ([]string, error) {
	tickers := override
	if len(tickers) == 0 {
		loaded, err := p.tickers.LoadTickers(ctx)
		if err != nil {
			return nil, fmt.Errorf("load tickers: %w", err)
		}
		tickers = loaded
	}
	tickers = dedupe(tickers)
	if len(tickers) == 0 {
		return nil, models.ErrNoTickers
	}
	return tickers, nil
}

// collect fans per-ticker work out on a bounded pool. Workers never fail the
// group; cancellation stops scheduling and marks the rest as cancelled.
func (p *VolPipeline) collect(ctx context.Context, coll *RunCollection, date time.Time, log *applogger.Logger) {
	g := new(errgroup.Group)
	g.SetLimit(p.workers)
	for i := range coll.tickers {
		if err := ctx.Err(); err != nil {
			log.Warn("run cancelled, skipping remaining tickers",
				applogger.Int("remaining", len(coll.tickers)-i), applogger.Error(err))
			p.recordSkips(coll.cancelled(i, err), log)
			break
		}
		slot := coll.slot(i)
		g.Go(func() error {
			p.processTicker(ctx, slot, date, log)
			return nil
		})
	}
	_ = g.Wait()
}

func (p *VolPipeline) processTicker(ctx context.Context, r *tickerResult, date time.Time, log *applogger.Logger) {
	start := time.Now()
	defer func() { p.metrics.RecordLatency("ticker", time.Since(start).Seconds()) }()
	if err := ctx.Err(); err != nil {
		r.skip(models.StageBars, models.ReasonCancelled, err)
	} else {
		p.realized(ctx, r)
		p.impliedVol(ctx, r, date)
	}
	p.recordSkips(r.skips, log)
}

func (p *VolPipeline) recordSkips(skips []models.Skip, log *applogger.Logger) {
	for _, s := range skips {
		p.metrics.RecordSkip(s.Stage, s.Reason)
		log.Warn("ticker skipped",
			applogger.String("ticker", s.Ticker),
			applogger.String("stage", s.Stage),
			applogger.String("reason", s.Reason),
			applogger.String("detail", s.Detail),
		)
	}
}

func (p *VolPipeline) realized(ctx context.Context, r *tickerResult) {
	series, err := p.market.LoadDailyBars(ctx, r.ticker)
	if err != nil {
		r.skip(models.StageBars, loadReason(err), err)
		return
	}
	if series.Len() == 0 {
		r.skip(models.StageBars, models.ReasonNoData, nil)
		return
	}

	cc, err := p.estimator.CloseClose(series)
	if err != nil {
		r.skip(models.StageCloseClose, computeReason(err), err)
		p.metrics.RecordTicker(models.StageCloseClose, "failed")
		return
	}
	gkyz, err := p.estimator.GKYZ(series)
	if err != nil {
		// drop the ticker from both matrices so their column sets stay equal
		r.skip(models.StageGKYZ, computeReason(err), err)
		p.metrics.RecordTicker(models.StageGKYZ, "failed")
		return
	}
	r.closeClose, r.gkyz, r.realized = cc, gkyz, true
	p.metrics.RecordTicker(models.StageCloseClose, "ok")
	p.metrics.RecordTicker(models.StageGKYZ, "ok")
	if allUndefined(cc) {
		r.skip(models.StageCloseClose, models.ReasonUndefined, fmt.Errorf("every horizon is undefined: %w", models.ErrInsufficientData))
	}
	if allUndefined(gkyz) {
		r.skip(models.StageGKYZ, models.ReasonUndefined, fmt.Errorf("every horizon is undefined: %w", models.ErrInsufficientData))
	}
}

func (p *VolPipeline) impliedVol(ctx context.Context, r *tickerResult, date time.Time) {
	chain, err := p.market.LoadOptionsChain(ctx, r.ticker)
	if err != nil {
		r.skip(models.StageImpliedVol, loadReason(err), err)
		return
	}
	iv, _, err := p.implied.Aggregate(chain, date)
	switch {
	case errors.Is(err, models.ErrNoQuotesOnDate):
		r.skip(models.StageImpliedVol, models.ReasonNoData, err)
	case err != nil:
		r.skip(models.StageImpliedVol, models.ReasonLoadError, err)
	case !iv.Valid:
		r.skip(models.StageImpliedVol, models.ReasonUndefined, nil)
	default:
		r.iv = iv
		p.metrics.RecordTicker(models.StageImpliedVol, "ok")
	}
}

func (p *VolPipeline) publish(ctx context.Context, report *models.Report, log *applogger.Logger) {
	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, report); err != nil {
			p.metrics.RecordError("sink_" + sink.Name())
			log.Error("sink publish failed", applogger.String("sink", sink.Name()), applogger.Error(err))
			continue
		}
		log.Debug("report published", applogger.String("sink", sink.Name()))
	}
}

func loadReason(err error) string {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return models.ReasonMissingInput
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return models.ReasonCancelled
	case errors.Is(err, models.ErrShapeMismatch):
		return models.ReasonShapeMismatch
	default:
		return models.ReasonLoadError
	}
}

func computeReason(err error) string {
	if errors.Is(err, models.ErrShapeMismatch) {
		return models.ReasonShapeMismatch
	}
	return models.ReasonUndefined
}

func allUndefined(values []null.Float) bool {
	for _, v := range values {
		if v.Valid {
			return false
		}
	}
	return true
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

type noopMetrics struct{}

func (noopMetrics) RecordTicker(string, string)   {}
func (noopMetrics) RecordSkip(string, string)     {}
func (noopMetrics) RecordError(string)            {}
func (noopMetrics) RecordLatency(string, float64) {}
