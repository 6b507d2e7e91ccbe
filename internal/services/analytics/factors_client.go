package analytics

import (
	"context"
	"math"

	"AutoTrade/internal/domain/models"
	dsvc "AutoTrade/internal/domain/service"
	"AutoTrade/pkg/config"
)

// remoteFactors are the readings the factors service may supply. Calendar
// flags are computed locally.
var remoteFactors = []string{
	models.FactorVolatilityIndex,
	models.FactorNewsSentiment,
	models.FactorMarketSentiment,
	models.FactorInterestRate,
	models.FactorEconomicIndicator,
}

type factorsResponse struct {
	Symbol  string             `json:"symbol"`
	Factors map[string]float64 `json:"factors"`
}

// FactorsClient fetches external factor readings from the factors service.
type FactorsClient struct {
	*HTTPServiceBase
}

func NewFactorsClient(cfg *config.Config) *FactorsClient {
	return &FactorsClient{HTTPServiceBase: NewHTTPServiceBase(cfg)}
}

// Fetch returns the known factors for symbol. With no service configured it
// returns empty factors so downstream falls back to neutral defaults.
func (c *FactorsClient) Fetch(ctx context.Context, symbol string) (models.ExternalFactors, error) {
	out := models.ExternalFactors{}
	if !c.Enabled() {
		return out, nil
	}
	var resp factorsResponse
	if err := c.GetJSON(ctx, "/factors", map[string][]string{"symbol": {symbol}}, &resp); err != nil {
		return out, err
	}
	for _, name := range remoteFactors {
		v, ok := resp.Factors[name]
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[name] = v
	}
	return out, nil
}

var _ dsvc.FactorsSource = (*FactorsClient)(nil)
