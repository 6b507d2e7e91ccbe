package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"AutoTrade/internal/domain/models"
	domrepo "AutoTrade/internal/domain/repository"
	"AutoTrade/pkg/util"
)

// CHTradeStore keeps trade history in a ReplacingMergeTree keyed by id.
// Outcome updates insert a newer version of the row.
type CHTradeStore struct {
	db    *sql.DB
	table string
	now   func() time.Time
}

func NewCHTradeStore(db *sql.DB, database string) *CHTradeStore {
	return &CHTradeStore{db: db, table: database + ".trades", now: time.Now}
}

func (s *CHTradeStore) Save(ctx context.Context, t models.TradeRecord) error {
	q := fmt.Sprintf(`INSERT INTO %s (id, symbol, side, quantity, price, value, strategy, ts, outcome, pnl, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	_, err := s.db.ExecContext(ctx, q,
		t.ID, t.Symbol, string(t.Side), int64(t.Quantity), t.Price, t.Value, t.Strategy,
		t.Timestamp.UTC(), string(t.Outcome), t.PnL, s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert trade %s: %w", t.ID, err)
	}
	return nil
}

// UpdateOutcome re-inserts the trade with its resolved outcome.
func (s *CHTradeStore) UpdateOutcome(ctx context.Context, o models.TradeOutcome) error {
	var n uint64
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT count() FROM %s WHERE id = ?", s.table), o.TradeID).Scan(&n); err != nil {
		return fmt.Errorf("lookup trade %s: %w", o.TradeID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", models.ErrUnknownTrade, o.TradeID)
	}
	q := fmt.Sprintf(`INSERT INTO %[1]s (id, symbol, side, quantity, price, value, strategy, ts, outcome, pnl, updated_at)
        SELECT id, symbol, side, quantity, price, value, strategy, ts, ?, ?, ?
        FROM %[1]s FINAL WHERE id = ?`, s.table)
	if _, err := s.db.ExecContext(ctx, q, string(o.Outcome), o.PnL, s.now().UTC(), o.TradeID); err != nil {
		return fmt.Errorf("update outcome %s: %w", o.TradeID, err)
	}
	return nil
}

// Recent returns the latest trades, newest first.
func (s *CHTradeStore) Recent(ctx context.Context, limit int) ([]models.TradeRecord, error) {
	q := fmt.Sprintf(`SELECT id, symbol, side, quantity, price, value, strategy, ts, outcome, pnl
        FROM %s FINAL ORDER BY ts DESC LIMIT ?`, s.table)
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("recent trades: %w", err)
	}
	defer rows.Close()

	out := make([]models.TradeRecord, 0, limit)
	for rows.Next() {
		var (
			t             models.TradeRecord
			side, outcome string
			qty           int64
		)
		if err := rows.Scan(&t.ID, &t.Symbol, &side, &qty, &t.Price, &t.Value, &t.Strategy, &t.Timestamp, &outcome, &t.PnL); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.Side, t.Outcome, t.Quantity = models.Side(side), models.Outcome(outcome), int(qty)
		out = append(out, t)
	}
	return out, rows.Err()
}

// Performance aggregates trades whose outcome is resolved.
func (s *CHTradeStore) Performance(ctx context.Context) (models.PerformanceSummary, error) {
	q := fmt.Sprintf(`SELECT count(), countIf(outcome != 'PENDING'), countIf(outcome != 'PENDING' AND pnl > 0), sumIf(pnl, outcome != 'PENDING')
        FROM %s FINAL`, s.table)
	var (
		total, resolved, profitable uint64
		pnl                         float64
	)
	if err := s.db.QueryRowContext(ctx, q).Scan(&total, &resolved, &profitable, &pnl); err != nil {
		return models.PerformanceSummary{}, fmt.Errorf("performance: %w", err)
	}
	return Summarize(int(total), int(resolved), int(profitable), pnl), nil
}

// Summarize derives win rate (percent) and average P&L, rounded to cents.
func Summarize(total, resolved, profitable int, pnl float64) models.PerformanceSummary {
	out := models.PerformanceSummary{
		TotalTrades:      total,
		ResolvedTrades:   resolved,
		ProfitableTrades: profitable,
		TotalPnL:         util.Round2(pnl),
	}
	if resolved > 0 {
		out.WinRate = util.Round2(float64(profitable) / float64(resolved) * 100)
		out.AveragePnL = util.Round2(pnl / float64(resolved))
	}
	return out
}

var _ domrepo.TradeStore = (*CHTradeStore)(nil)
