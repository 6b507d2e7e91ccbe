package models

import "time"

// Outcome is the deferred label of a trade.
type Outcome string

const (
	OutcomePending Outcome = "PENDING"
	OutcomeProfit  Outcome = "PROFIT"
	OutcomeLoss    Outcome = "LOSS"
)

// Resolved reports whether the outcome is a usable label.
func (o Outcome) Resolved() bool {
	return o == OutcomeProfit || o == OutcomeLoss
}

// TradeRecord is an executed simulated trade.
type TradeRecord struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Side      Side      `json:"side"`
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
	Value     float64   `json:"value"`
	Strategy  string    `json:"strategy"`
	Timestamp time.Time `json:"timestamp"`
	Outcome   Outcome   `json:"outcome"`
	PnL       float64   `json:"pnl"`
}

// TradeOutcome is an externally resolved label for a prior trade.
type TradeOutcome struct {
	TradeID string  `json:"trade_id"`
	Outcome Outcome `json:"outcome"`
	PnL     float64 `json:"pnl"`
}

// PortfolioStatus is a rounded view of the ledger.
type PortfolioStatus struct {
	Cash             float64        `json:"cash"`
	Positions        map[string]int `json:"positions"`
	TotalValue       float64        `json:"total_value"`
	TotalReturn      float64        `json:"total_return"`
	ReturnPercentage float64        `json:"return_percentage"`
}

// PerformanceSummary aggregates resolved trades.
type PerformanceSummary struct {
	TotalTrades      int     `json:"total_trades"`
	ResolvedTrades   int     `json:"resolved_trades"`
	ProfitableTrades int     `json:"profitable_trades"`
	WinRate          float64 `json:"win_rate"`
	TotalPnL         float64 `json:"total_pnl"`
	AveragePnL       float64 `json:"average_pnl"`
}
