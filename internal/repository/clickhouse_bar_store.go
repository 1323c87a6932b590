package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FinPredict/internal/domain/models"
	"FinPredict/internal/domain/repository"
	pkgch "FinPredict/pkg/clickhouse"
	applogger "FinPredict/pkg/logger"
)

// Schema statements for the daily bar table, applied on Init (idempotent).
var barSchema = []string{
	`CREATE DATABASE IF NOT EXISTS finpredict`,
	`CREATE TABLE IF NOT EXISTS finpredict.ohlcv_daily (
        symbol LowCardinality(String),
        ts     DateTime,
        open   Float64,
        high   Float64,
        low    Float64,
        close  Float64,
        volume Float64
    ) ENGINE = ReplacingMergeTree
    ORDER BY (symbol, ts)`,
}

var _ repository.BarStore = (*ClickHouseBarStore)(nil)

// ClickHouseBarStore implements BarStore over the finpredict.ohlcv_daily
// table.
type ClickHouseBarStore struct {
	client *pkgch.Client
	db     *sql.DB
	table  string
	l      *applogger.Logger
}

func NewClickHouseBarStore(client *pkgch.Client) *ClickHouseBarStore {
	return &ClickHouseBarStore{
		client: client,
		db:     client.DB(),
		table:  "finpredict.ohlcv_daily",
	}
}

// SetLogger injects a structured logger.
func (s *ClickHouseBarStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *ClickHouseBarStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, barSchema)
}

func (s *ClickHouseBarStore) Append(ctx context.Context, bars []*models.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}
	// multi-row VALUES insert, chunked to bound statement size
	const chunkSize = 2000
	for start := 0; start < len(bars); start += chunkSize {
		end := start + chunkSize
		if end > len(bars) {
			end = len(bars)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for _, b := range bars[start:end] {
			if b == nil || b.Symbol == "" || b.Timestamp.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				strings.ToUpper(b.Symbol),
				b.Timestamp,
				b.Open,
				b.High,
				b.Low,
				b.Close,
				b.Volume,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, ts, open, high, low, close, volume) VALUES %s",
			s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("append bars: %w", err)
		}
	}
	return nil
}

// Series returns the most recent bars for a symbol in ascending time order.
// limit <= 0 returns the full history.
func (s *ClickHouseBarStore) Series(ctx context.Context, symbol string, limit int) ([]*models.PriceBar, error) {
	start := time.Now()
	symbol = strings.ToUpper(symbol)

	q := fmt.Sprintf("SELECT symbol, ts, open, high, low, close, volume FROM %s WHERE symbol = ? ORDER BY ts DESC", s.table)
	args := []interface{}{symbol}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse series query error",
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("query series: %w", err)
	}
	defer rows.Close()

	var out []*models.PriceBar
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(&b.Symbol, &b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		out = append(out, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	// reverse to ASC
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}

	if s.l != nil {
		s.l.Debug("clickhouse series ok",
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *ClickHouseBarStore) Symbols(ctx context.Context) ([]string, error) {
	q := fmt.Sprintf("SELECT DISTINCT symbol FROM %s ORDER BY symbol", s.table)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

func (s *ClickHouseBarStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseBarStore) Close() error {
	return nil // pool owned by pkg/clickhouse client
}
