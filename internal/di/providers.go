package di

import (
	"context"
	"fmt"
	"time"

	"VolScan/internal/domain/models"
	drepo "VolScan/internal/domain/repository"
	domsvc "VolScan/internal/domain/service"
	"VolScan/internal/handler/api"
	internalrepo "VolScan/internal/repository"
	"VolScan/internal/services/comparator"
	"VolScan/internal/services/implied"
	"VolScan/internal/services/volatility"
	"VolScan/internal/usecase"
	"VolScan/pkg/cache"
	pkgch "VolScan/pkg/clickhouse"
	"VolScan/pkg/config"
	xhttp "VolScan/pkg/http"
	pkgkafka "VolScan/pkg/kafka"
	applogger "VolScan/pkg/logger"
	"VolScan/pkg/metrics"
	"VolScan/pkg/server"
	"VolScan/pkg/util"
)

const (
	defaultDatabase = "volscan"
	runLockKey      = "run-lock"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder, or nil when metrics are off.
func ProvideMetrics(cfg *config.Config) drepo.Metrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and its schema, or
// returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config, log *applogger.Logger) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(pkgch.WithConfig(cfg.ClickHouse))
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := chDatabase(cfg)
	if err := client.EnsureSchema(ctx, db); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	log.Info("clickhouse connected", applogger.String("database", db))
	return client, nil
}

// ProvideCache creates the Redis cache when enabled, else an in-process one.
func ProvideCache(cfg *config.Config, log *applogger.Logger) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	c, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, 2, 0),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	log.Info("redis connected", applogger.String("addr", cfg.Redis.Addr))
	return c, nil
}

// ProvideMarketData selects the bar and option chain store. With Redis
// enabled, loads are memoized for redis.cache_ttl.
func ProvideMarketData(cfg *config.Config, ch *pkgch.Client, c cache.Service, log *applogger.Logger) (drepo.MarketData, error) {
	var md drepo.MarketData
	switch cfg.Data.Source {
	case config.SourceClickHouse:
		if ch == nil {
			return nil, fmt.Errorf("market data: clickhouse source without a client")
		}
		s := internalrepo.NewCHMarketStore(ch, chDatabase(cfg))
		s.SetLogger(log)
		md = s
	default:
		s := internalrepo.NewCSVMarketStore(cfg.Data.BarsDir, cfg.Data.OptionsDir)
		s.SetLogger(log)
		md = s
	}
	if !cfg.Redis.Enabled {
		return md, nil
	}
	cached := internalrepo.NewCachingMarketData(md, c, cfg.Redis.CacheTTL)
	cached.SetLogger(log)
	return cached, nil
}

// ProvideTickerSource prefers the configured list over the manifest file.
func ProvideTickerSource(cfg *config.Config) drepo.TickerSource {
	if len(cfg.Data.Tickers) > 0 {
		return internalrepo.NewStaticTickerSource(cfg.Data.Tickers)
	}
	return internalrepo.NewManifestTickerSource(cfg.Data.Manifest)
}

// ProvideHorizons returns the configured horizon menu or the standard one.
func ProvideHorizons(cfg *config.Config) (models.HorizonSpec, error) {
	if len(cfg.Analysis.Horizons) == 0 {
		return models.DefaultHorizons(), nil
	}
	spec := make(models.HorizonSpec, len(cfg.Analysis.Horizons))
	for i, h := range cfg.Analysis.Horizons {
		spec[i] = models.Horizon{Label: h.Label, TradingDays: h.TradingDays}
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("horizons: %w", err)
	}
	return spec, nil
}

// ProvideEstimator creates the realized volatility estimator.
func ProvideEstimator(cfg *config.Config, horizons models.HorizonSpec) domsvc.RealizedVolEstimator {
	from, _ := util.ParseDate(cfg.Analysis.GKYZFrom)
	to, _ := util.ParseDate(cfg.Analysis.GKYZTo)
	return volatility.NewEstimator(horizons,
		volatility.WithScale(cfg.Analysis.GKYZScale),
		volatility.WithGKYZRange(from, to),
	)
}

func ProvideAggregator() domsvc.ImpliedVolAggregator {
	return implied.NewAggregator()
}

func ProvideComparator() domsvc.Comparator {
	return comparator.NewComparator()
}

// ProvideAnalysisParams maps the analysis section onto comparison parameters.
func ProvideAnalysisParams(cfg *config.Config) models.AnalysisParams {
	a := cfg.Analysis
	return models.AnalysisParams{
		WeightGKYZ:        a.WeightGKYZ,
		WeightCloseClose:  a.WeightCloseClose,
		CapLow:            a.CapLow,
		CapHigh:           a.CapHigh,
		ThresholdPositive: a.ThresholdPositive,
		ThresholdNegative: a.ThresholdNegative,
		TopN:              a.TopN,
	}
}

func ProvideLatestStore() *internalrepo.LatestReportStore {
	return internalrepo.NewLatestReportStore()
}

func ProvideReportHub(log *applogger.Logger, latest *internalrepo.LatestReportStore) *api.ReportHub {
	return api.NewReportHub(log, latest)
}

// ProvideKafkaPublisher creates the report publisher, or nil when Kafka is disabled.
func ProvideKafkaPublisher(cfg *config.Config) (*internalrepo.KafkaReportPublisher, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithConfig(cfg.Kafka),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaReportPublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideSinks assembles the enabled result sinks. The latest store comes
// first so the API serves a report as soon as it is published.
func ProvideSinks(
	cfg *config.Config,
	log *applogger.Logger,
	latest *internalrepo.LatestReportStore,
	hub *api.ReportHub,
	ch *pkgch.Client,
	kafka *internalrepo.KafkaReportPublisher,
) []drepo.ResultSink {
	sinks := []drepo.ResultSink{latest, internalrepo.NewLogReportSink(log)}
	if cfg.Report.XLSXEnabled {
		w := internalrepo.NewXLSXReportWriter(cfg.Report.XLSXDir)
		w.SetLogger(log)
		sinks = append(sinks, w)
	}
	if ch != nil {
		s := internalrepo.NewCHResultStore(ch, chDatabase(cfg))
		s.SetLogger(log)
		sinks = append(sinks, s)
	}
	if kafka != nil {
		sinks = append(sinks, kafka)
	}
	if cfg.Server.Enabled {
		sinks = append(sinks, hub)
	}
	return sinks
}

// ProvidePipeline creates the scan pipeline.
func ProvidePipeline(
	cfg *config.Config,
	log *applogger.Logger,
	tickers drepo.TickerSource,
	market drepo.MarketData,
	estimator domsvc.RealizedVolEstimator,
	aggregator domsvc.ImpliedVolAggregator,
	cmp domsvc.Comparator,
	horizons models.HorizonSpec,
	params models.AnalysisParams,
	sinks []drepo.ResultSink,
	m drepo.Metrics,
) *usecase.VolPipeline {
	return usecase.NewVolPipeline(tickers, market, estimator, aggregator, cmp, horizons,
		usecase.WithWorkers(cfg.Analysis.Workers),
		usecase.WithRunTimeout(cfg.Analysis.RunTimeout),
		usecase.WithPublishTimeout(cfg.Analysis.PublishTimeout),
		usecase.WithParams(params),
		usecase.WithSinks(sinks...),
		usecase.WithMetrics(m),
		usecase.WithLogger(log),
	)
}

// ProvideRunner guards the pipeline with the cache run lock.
func ProvideRunner(cfg *config.Config, p *usecase.VolPipeline, c cache.Service, log *applogger.Logger) usecase.Runner {
	return usecase.NewGuardedRunner(p, c, cache.Key(runLockKey), cfg.Redis.LockTTL, log)
}

// ProvideHTTPServer creates the API server, or nil when the server is disabled.
func ProvideHTTPServer(
	cfg *config.Config,
	log *applogger.Logger,
	runner usecase.Runner,
	latest *internalrepo.LatestReportStore,
	hub *api.ReportHub,
) *xhttp.Server {
	if !cfg.Server.Enabled {
		return nil
	}
	handlers := []xhttp.Handler{
		api.NewReportEchoHandler(log, runner, latest),
		hub,
	}
	return xhttp.NewServer(handlers,
		xhttp.WithConfig(cfg.Server),
		xhttp.WithLogger(log),
	)
}

// ProvideApp creates the application and hands it every resource to close.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	runner usecase.Runner,
	httpServer *xhttp.Server,
	hub *api.ReportHub,
	kafka *internalrepo.KafkaReportPublisher,
	ch *pkgch.Client,
	c cache.Service,
) *server.App {
	var closers []server.Closer
	if httpServer != nil {
		closers = append(closers, server.Closer{Name: "websocket", Close: func() error {
			hub.Close()
			return nil
		}})
	}
	if kafka != nil {
		closers = append(closers, server.Closer{Name: "kafka", Close: kafka.Close})
	}
	if ch != nil {
		closers = append(closers, server.Closer{Name: "clickhouse", Close: ch.Close})
	}
	if rc, ok := c.(*cache.RedisCache); ok {
		closers = append(closers, server.Closer{Name: "redis", Close: rc.Close})
	}
	return server.New(cfg, log, runner, httpServer, closers...)
}

func chDatabase(cfg *config.Config) string {
	if cfg.ClickHouse.Database == "" {
		return defaultDatabase
	}
	return cfg.ClickHouse.Database
}
