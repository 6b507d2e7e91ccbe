package models

// Requests for the control API.

type StartTradingRequest struct {
	Strategy string `json:"strategy" default:"AI_Strategy" validate:"max=64"`
}

type OutcomeRequest struct {
	Outcome Outcome `json:"outcome" validate:"required,oneof=PROFIT LOSS"`
	PnL     float64 `json:"pnl"`
}

type RiskLimitsRequest struct {
	MaxPositionSize  *float64 `json:"max_position_size" validate:"omitempty,gt=0,lte=1"`
	MaxDailyLoss     *float64 `json:"max_daily_loss" validate:"omitempty,gt=0,lt=1"`
	MaxPortfolioRisk *float64 `json:"max_portfolio_risk" validate:"omitempty,gt=0,lte=1"`
	StopLossPct      *float64 `json:"stop_loss_pct" validate:"omitempty,gt=0,lt=1"`
	TakeProfitPct    *float64 `json:"take_profit_pct" validate:"omitempty,gt=0"`
}

type RiskCheckQuery struct {
	TradeValue float64 `query:"trade_value" validate:"gte=0"`
}
