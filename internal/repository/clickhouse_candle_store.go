package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"AutoTrade/internal/domain/models"
	domrepo "AutoTrade/internal/domain/repository"
	applogger "AutoTrade/pkg/logger"
)

// CHCandleStore reads OHLCV candles aggregated by ClickHouse.
type CHCandleStore struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

func NewCHCandleStore(db *sql.DB, database string, l *applogger.Logger) *CHCandleStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHCandleStore{db: db, database: database, l: l}
}

const candleColumns = `bucket, symbol, argMinMerge(open) AS open, max(high) AS high, min(low) AS low, argMaxMerge(close) AS close, sum(volume) AS volume`

func (s *CHCandleStore) GetCandles(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.Candle, error) {
	table, err := s.tableForTF(tf)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`
        SELECT %s
        FROM %s
        WHERE symbol = ? AND bucket >= ? AND bucket <= ?
        GROUP BY bucket, symbol
        ORDER BY bucket ASC
    `, candleColumns, table)
	return s.query(ctx, "get_candles", table, symbol, tf, q, symbol, from, to)
}

// GetLatestNCandles returns up to n most recent candles, oldest first.
func (s *CHCandleStore) GetLatestNCandles(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Candle, error) {
	table, err := s.tableForTF(tf)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`
        SELECT %s
        FROM %s
        WHERE symbol = ?
        GROUP BY bucket, symbol
        ORDER BY bucket DESC
        LIMIT ?
    `, candleColumns, table)
	out, err := s.query(ctx, "latest_candles", table, symbol, tf, q, symbol, n)
	if err != nil {
		return nil, err
	}
	// reverse to ASC
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *CHCandleStore) query(ctx context.Context, op, table, symbol string, tf domrepo.Timeframe, q string, args ...interface{}) ([]models.Candle, error) {
	start := time.Now()
	fields := []applogger.Field{
		applogger.String("table", table),
		applogger.String("symbol", symbol),
		applogger.String("tf", string(tf)),
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse "+op+" query error", append(fields, applogger.Error(err))...)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, 256)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Bucket, &c.Symbol, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			s.l.Error("clickhouse "+op+" scan error", append(fields, applogger.Error(err))...)
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		s.l.Error("clickhouse "+op+" rows error", append(fields, applogger.Error(err))...)
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse "+op+" ok", append(fields,
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)))...)
	return out, nil
}

func (s *CHCandleStore) tableForTF(tf domrepo.Timeframe) (string, error) {
	switch tf {
	case domrepo.TF1s, domrepo.TF1m:
		// 1s folds to 1m; no second-level table is kept
		return s.database + ".candles_1m", nil
	case domrepo.TF5m:
		return s.database + ".candles_5m", nil
	default:
		return "", fmt.Errorf("unsupported timeframe: %s", tf)
	}
}

// Schema returns the DDL for ticks, candle tables and their views.
func Schema(database string) []string {
	candleTable := func(name string) string {
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
            bucket DateTime,
            symbol LowCardinality(String),
            open AggregateFunction(argMin, Float64, DateTime64(3)),
            high SimpleAggregateFunction(max, Float64),
            low SimpleAggregateFunction(min, Float64),
            close AggregateFunction(argMax, Float64, DateTime64(3)),
            volume SimpleAggregateFunction(sum, Float64)
        ) ENGINE = AggregatingMergeTree ORDER BY (symbol, bucket)`, database, name)
	}
	candleView := func(name, bucketFn string) string {
		return fmt.Sprintf(`CREATE MATERIALIZED VIEW IF NOT EXISTS %[1]s.%[2]s_mv TO %[1]s.%[2]s AS
            SELECT %[3]s(ts) AS bucket, symbol,
                argMinState(price, ts) AS open, max(price) AS high, min(price) AS low,
                argMaxState(price, ts) AS close, sum(volume) AS volume
            FROM %[1]s.ticks_raw GROUP BY bucket, symbol`, database, name, bucketFn)
	}
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.ticks_raw (
            ts DateTime64(3),
            symbol LowCardinality(String),
            price Float64,
            volume Float64
        ) ENGINE = MergeTree ORDER BY (symbol, ts) TTL toDateTime(ts) + INTERVAL 30 DAY`, database),
		candleTable("candles_1m"),
		candleTable("candles_5m"),
		candleView("candles_1m", "toStartOfMinute"),
		candleView("candles_5m", "toStartOfFiveMinutes"),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.trades (
            id String,
            symbol LowCardinality(String),
            side LowCardinality(String),
            quantity Int64,
            price Float64,
            value Float64,
            strategy String,
            ts DateTime64(3),
            outcome LowCardinality(String),
            pnl Float64,
            updated_at DateTime64(3)
        ) ENGINE = ReplacingMergeTree(updated_at) ORDER BY id`, database),
	}
}

var _ domrepo.CandleStore = (*CHCandleStore)(nil)
