package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	pkgch "VolScan/pkg/clickhouse"
	xhttp "VolScan/pkg/http"
	pkgkafka "VolScan/pkg/kafka"
	applogger "VolScan/pkg/logger"
	"VolScan/pkg/util"
)

// Data sources.
const (
	SourceCSV        = "csv"
	SourceClickHouse = "clickhouse"
)

type Config struct {
	Environment string             `yaml:"environment" default:"development"`
	Log         applogger.Config   `yaml:"log"`
	Server      xhttp.ServerConfig `yaml:"server"`
	Metrics     struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
	Data       DataConfig              `yaml:"data"`
	Analysis   AnalysisConfig          `yaml:"analysis"`
	ClickHouse pkgch.ClientConfig      `yaml:"clickhouse"`
	Redis      RedisConfig             `yaml:"redis"`
	Kafka      pkgkafka.ProducerConfig `yaml:"kafka"`
	Report     struct {
		XLSXEnabled bool   `yaml:"xlsx_enabled"`
		XLSXDir     string `yaml:"xlsx_dir" default:"reports"`
	} `yaml:"report"`
	Schedule struct {
		// Interval between batch runs; zero runs a single batch.
		Interval time.Duration `yaml:"interval"`
	} `yaml:"schedule"`
}

// DataConfig locates the market data and the ticker universe.
type DataConfig struct {
	Source     string   `yaml:"source" default:"csv"`
	BarsDir    string   `yaml:"bars_dir" default:"data/daily-bars"`
	OptionsDir string   `yaml:"options_dir" default:"data/options-data"`
	Manifest   string   `yaml:"manifest" default:"options-tickers.csv"`
	Tickers    []string `yaml:"tickers"` // overrides the manifest when set
}

// Horizon is one trailing window of the horizon menu.
type Horizon struct {
	Label       string `yaml:"label"`
	TradingDays int    `yaml:"trading_days"`
}

// AnalysisConfig holds the estimator and comparator knobs.
type AnalysisConfig struct {
	Horizons          []Horizon     `yaml:"horizons"` // empty means the standard menu
	WeightGKYZ        float64       `yaml:"weight_gkyz" default:"0.6"`
	WeightCloseClose  float64       `yaml:"weight_close_close" default:"0.4"`
	CapLow            float64       `yaml:"cap_low" default:"-1.75"`
	CapHigh           float64       `yaml:"cap_high" default:"2"`
	ThresholdPositive float64       `yaml:"threshold_positive" default:"0.75"`
	ThresholdNegative float64       `yaml:"threshold_negative" default:"-0.5"`
	TopN              int           `yaml:"top_n" default:"20"`
	IVDate            string        `yaml:"iv_date"` // YYYY-MM-DD; empty means today
	GKYZScale         float64       `yaml:"gkyz_scale"`
	GKYZFrom          string        `yaml:"gkyz_from"`
	GKYZTo            string        `yaml:"gkyz_to"`
	Workers           int           `yaml:"workers" default:"8"`
	RunTimeout        time.Duration `yaml:"run_timeout" default:"10m"`
	PublishTimeout    time.Duration `yaml:"publish_timeout" default:"1m"`
}

// RedisConfig enables the market data cache and the distributed run lock.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr" default:"localhost:6379"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"pool_size" default:"10"`
	Prefix   string        `yaml:"prefix" default:"volscan"`
	CacheTTL time.Duration `yaml:"cache_ttl" default:"6h"`
	LockTTL  time.Duration `yaml:"lock_ttl" default:"30m"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	return load(path, nil)
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, lookup)
}

// Parse decodes YAML, applies env overrides when lookup is set, fills
// defaults and validates.
func Parse(b []byte, lookup func(string) (string, bool)) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if lookup != nil {
		c.ApplyEnv(lookup)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	get := func(k string) (string, bool) {
		v, ok := lookup(k)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}
	if v, ok := get("VOLSCAN_TICKERS"); ok {
		c.Data.Tickers = util.SplitList(v)
	}
	if v, ok := get("VOLSCAN_DATA_SOURCE"); ok {
		c.Data.Source = v
	}
	if v, ok := get("VOLSCAN_BARS_DIR"); ok {
		c.Data.BarsDir = v
	}
	if v, ok := get("VOLSCAN_OPTIONS_DIR"); ok {
		c.Data.OptionsDir = v
	}
	if v, ok := get("VOLSCAN_IV_DATE"); ok {
		c.Analysis.IVDate = v
	}
	if v, ok := get("VOLSCAN_WORKERS"); ok {
		c.Analysis.Workers = util.ParseIntDefault(v, c.Analysis.Workers)
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := get("CLICKHOUSE_HOST"); ok {
		c.ClickHouse.Host = v
	}
	if v, ok := get("KAFKA_BROKERS"); ok {
		c.Kafka.Brokers = util.SplitList(v)
	}
	if v, ok := get("KAFKA_TOPIC"); ok {
		c.Kafka.Topic = v
	}
	if v, ok := get("REDIS_ADDR"); ok {
		c.Redis.Addr = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Data.Source {
	case SourceCSV:
		if c.Data.BarsDir == "" || c.Data.OptionsDir == "" {
			return fmt.Errorf("data.bars_dir and data.options_dir are required for the csv source")
		}
	case SourceClickHouse:
		if !c.ClickHouse.Enabled {
			return fmt.Errorf("data.source clickhouse requires clickhouse.enabled")
		}
	default:
		return fmt.Errorf("data.source must be '%s' or '%s', got '%s'", SourceCSV, SourceClickHouse, c.Data.Source)
	}
	if len(c.Data.Tickers) == 0 && c.Data.Manifest == "" {
		return fmt.Errorf("data.tickers or data.manifest is required")
	}
	if err := c.Analysis.validate(); err != nil {
		return err
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("kafka.brokers and kafka.topic are required when kafka is enabled")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	if c.Schedule.Interval < 0 {
		return fmt.Errorf("schedule.interval must be >= 0")
	}
	return nil
}

func (a *AnalysisConfig) validate() error {
	for name, w := range map[string]float64{"weight_gkyz": a.WeightGKYZ, "weight_close_close": a.WeightCloseClose} {
		if w < 0 || w > 1 {
			return fmt.Errorf("analysis.%s must be in [0, 1], got %v", name, w)
		}
	}
	if a.CapLow >= a.CapHigh {
		return fmt.Errorf("analysis.cap_low must be below cap_high")
	}
	if a.TopN <= 0 {
		return fmt.Errorf("analysis.top_n must be > 0")
	}
	if a.Workers <= 0 {
		return fmt.Errorf("analysis.workers must be > 0")
	}
	if a.GKYZScale < 0 {
		return fmt.Errorf("analysis.gkyz_scale must be >= 0")
	}
	for field, v := range map[string]string{"iv_date": a.IVDate, "gkyz_from": a.GKYZFrom, "gkyz_to": a.GKYZTo} {
		if v == "" {
			continue
		}
		if _, ok := util.ParseDate(v); !ok {
			return fmt.Errorf("analysis.%s must be YYYY-MM-DD, got '%s'", field, v)
		}
	}
	seen := make(map[string]struct{}, len(a.Horizons))
	for _, h := range a.Horizons {
		if h.Label == "" || h.TradingDays <= 0 {
			return fmt.Errorf("analysis.horizons: label and positive trading_days required")
		}
		if _, dup := seen[h.Label]; dup {
			return fmt.Errorf("analysis.horizons: duplicate label '%s'", h.Label)
		}
		seen[h.Label] = struct{}{}
	}
	return nil
}
