package clickhouse

import "fmt"

// Table names, relative to the configured database.
const (
	TableDailyBars    = "daily_bars"
	TableOptionQuotes = "option_quotes"
	TableVolResults   = "vol_results"
	TableRunSkips     = "run_skips"
)

// Schema returns the idempotent DDL for the volscan tables in database.
func Schema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			symbol String,
			date Date,
			open Nullable(Float64),
			high Nullable(Float64),
			low Nullable(Float64),
			close Float64
		) ENGINE = ReplacingMergeTree ORDER BY (symbol, date)`, database, TableDailyBars),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			symbol String,
			time DateTime64(3),
			expiry String,
			last_iv Nullable(Float64),
			bid_iv Nullable(Float64),
			ask_iv Nullable(Float64),
			model_iv Nullable(Float64)
		) ENGINE = MergeTree ORDER BY (symbol, time, expiry)`, database, TableOptionQuotes),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			run_id String,
			run_date Date,
			generated_at DateTime64(3),
			horizon String,
			symbol String,
			close_close Nullable(Float64),
			gkyz Nullable(Float64),
			implied_vol Nullable(Float64),
			rel_diff_gkyz Nullable(Float64),
			rel_diff_close_close Nullable(Float64),
			blended Nullable(Float64),
			singular UInt8
		) ENGINE = MergeTree ORDER BY (run_date, run_id, symbol, horizon)`, database, TableVolResults),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			run_id String,
			run_date Date,
			symbol String,
			stage LowCardinality(String),
			reason LowCardinality(String),
			detail String
		) ENGINE = MergeTree ORDER BY (run_date, run_id, symbol)`, database, TableRunSkips),
	}
}
