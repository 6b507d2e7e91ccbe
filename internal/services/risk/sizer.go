package risk

import (
	"math"

	"AutoTrade/internal/domain/models"
)

// Sizer converts a risk tier into a whole share count.
// LOW allocates MaxPositionSize of the portfolio, MEDIUM half of it, HIGH nothing.
type Sizer struct {
	MaxPositionSize float64
}

// Allocation is the fraction of portfolio value a tier may commit.
func (s Sizer) Allocation(level models.RiskLevel) float64 {
	switch level {
	case models.RiskLow:
		return s.MaxPositionSize
	case models.RiskMedium:
		return s.MaxPositionSize * 0.5
	default:
		return 0
	}
}

// Quantity floors allocation*portfolioValue/price. It is never negative.
func (s Sizer) Quantity(level models.RiskLevel, portfolioValue, price float64) int {
	if price <= 0 || portfolioValue <= 0 {
		return 0
	}
	q := math.Floor(portfolioValue * s.Allocation(level) / price)
	if q <= 0 || math.IsNaN(q) {
		return 0
	}
	return int(q)
}
