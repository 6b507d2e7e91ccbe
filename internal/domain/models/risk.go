package models

// RiskLevel is the LOW/MEDIUM/HIGH tier gating trades.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Risk level thresholds on the [0,1] score.
const (
	RiskLowBelow    = 0.3
	RiskMediumBelow = 0.6
)

// LevelForScore maps a score onto its tier. Boundaries belong to the riskier tier.
func LevelForScore(score float64) RiskLevel {
	switch {
	case score < RiskLowBelow:
		return RiskLow
	case score < RiskMediumBelow:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// RiskAssessment is the assessor's verdict for one cycle.
type RiskAssessment struct {
	Level               RiskLevel `json:"risk_level"`
	Score               float64   `json:"risk_score"`
	RecommendedQuantity int       `json:"recommended_quantity"`
	StopLoss            float64   `json:"stop_loss"`
	TakeProfit          float64   `json:"take_profit"`
	MaxLoss             float64   `json:"max_loss"`
	Warnings            []string  `json:"warnings"`
}

// RiskLimits are the tunable risk parameters.
type RiskLimits struct {
	MaxPositionSize  float64 `json:"max_position_size"`
	MaxDailyLoss     float64 `json:"max_daily_loss"`
	MaxPortfolioRisk float64 `json:"max_portfolio_risk"`
	StopLossPct      float64 `json:"stop_loss_pct"`
	TakeProfitPct    float64 `json:"take_profit_pct"`
}

// RiskState is RiskLimits plus the assessor's running state.
type RiskState struct {
	RiskLimits
	CurrentRiskLevel RiskLevel `json:"current_risk_level"`
	DailyPnL         float64   `json:"daily_pnl"`
	PortfolioValue   float64   `json:"portfolio_value"`
}
