package service

import (
	"context"

	"AutoTrade/internal/domain/models"
)

// FactorsSource fetches external factor readings for a symbol.
type FactorsSource interface {
	Fetch(ctx context.Context, symbol string) (models.ExternalFactors, error)
}

// FeatureExtractor turns a snapshot and factors into the classifier's input vector.
type FeatureExtractor interface {
	Extract(snapshot *models.MarketSnapshot, factors models.ExternalFactors) (models.FeatureVector, error)
}
