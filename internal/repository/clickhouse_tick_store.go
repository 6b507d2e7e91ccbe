package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"AutoTrade/internal/domain/models"
	domrepo "AutoTrade/internal/domain/repository"
)

// CHTickStore writes raw ticks into ClickHouse. Candle tables are filled by
// materialized views on the ticks table.
type CHTickStore struct {
	db    *sql.DB
	table string
}

func NewCHTickStore(db *sql.DB, database string) *CHTickStore {
	return &CHTickStore{db: db, table: database + ".ticks_raw"}
}

func (s *CHTickStore) StoreBatch(ctx context.Context, ticks []*models.PriceTick) error {
	if len(ticks) == 0 {
		return nil
	}
	const chunkSize = 2000
	for start := 0; start < len(ticks); start += chunkSize {
		end := start + chunkSize
		if end > len(ticks) {
			end = len(ticks)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*4)
		for _, t := range ticks[start:end] {
			if t == nil || t.Symbol == "" || t.Timestamp == 0 {
				continue
			}
			values = append(values, "(?, ?, ?, ?)")
			args = append(args, time.Unix(t.Timestamp, 0).UTC(), t.Symbol, t.Price, t.Volume)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, symbol, price, volume) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert ticks: %w", err)
		}
	}
	return nil
}

var _ domrepo.TickStore = (*CHTickStore)(nil)
