// Package provider defines the read-only collaborator interfaces the engine
// consumes. Implementations live in subpackages; tests use in-memory fakes.
package provider

import (
	"context"
	"time"

	"github.com/andresuchdata/demandcast/internal/domain"
)

// SalesHistoryProvider supplies raw per-product order lines.
type SalesHistoryProvider interface {
	GetOrderLines(ctx context.Context, productID int64, from, to time.Time) ([]domain.OrderLine, error)
}

// CatalogProvider supplies the catalog snapshot for a product.
type CatalogProvider interface {
	GetProduct(ctx context.Context, productID int64) (*domain.Product, error)
	ListProductIDs(ctx context.Context) ([]int64, error)
}

// AnalyticsProvider supplies the externally computed 0-100 demand score.
type AnalyticsProvider interface {
	GetDemandScore(ctx context.Context, productID int64) (float64, bool, error)
}

// CompetitorPriceProvider is an optional feed of sampled competitor prices.
type CompetitorPriceProvider interface {
	GetCompetitorPrices(ctx context.Context, productID int64) ([]domain.CompetitorPrice, error)
}

// PriceHistoryStore records applied price changes for auditing and
// confidence scoring.
type PriceHistoryStore interface {
	GetPriceChanges(ctx context.Context, productID int64) ([]domain.PriceChange, error)
	AppendPriceChange(ctx context.Context, change domain.PriceChange) error
}
