// Package orchestrator wires the collaborators to the pure computation
// components. Each single-product run walks Fetching -> Computing; failures
// are surfaced per product and never abort sibling items in bulk mode.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/demandcast/internal/cache"
	"github.com/andresuchdata/demandcast/internal/config"
	"github.com/andresuchdata/demandcast/internal/domain"
	"github.com/andresuchdata/demandcast/internal/forecast"
	"github.com/andresuchdata/demandcast/internal/inventory"
	"github.com/andresuchdata/demandcast/internal/pricing"
	"github.com/andresuchdata/demandcast/internal/provider"
	"github.com/rs/zerolog/log"
)

// Deps bundles the external collaborators. Competitors and History are
// optional; Cache defaults to a noop. Now defaults to time.Now and is
// injectable for deterministic runs.
type Deps struct {
	Sales       provider.SalesHistoryProvider
	Catalog     provider.CatalogProvider
	Analytics   provider.AnalyticsProvider
	Competitors provider.CompetitorPriceProvider
	History     provider.PriceHistoryStore
	Cache       cache.MarketCache
	Now         func() time.Time
}

type Orchestrator struct {
	deps Deps

	forecaster *forecast.Forecaster
	inventory  *inventory.Optimizer
	pricing    *pricing.Optimizer

	windowDays     int
	horizonDays    int
	leadTimeDays   int
	workerCount    int
	fetchTimeout   time.Duration
	retryAttempts  int
	defaultCostRte float64
}

func New(deps Deps, fcfg config.ForecastConfig, pcfg config.PricingConfig) *Orchestrator {
	if deps.Cache == nil {
		deps.Cache = cache.NewNoopMarketCache()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	windowDays := fcfg.WindowDays
	if windowDays <= 0 {
		windowDays = 90
	}
	horizonDays := fcfg.HorizonDays
	if horizonDays <= 0 {
		horizonDays = 30
	}
	leadTimeDays := fcfg.LeadTimeDays
	if leadTimeDays <= 0 {
		leadTimeDays = 7
	}
	workerCount := fcfg.WorkerCount
	if workerCount < 1 {
		workerCount = 1
	}
	fetchTimeout := time.Duration(fcfg.ProviderTimeoutMillis) * time.Millisecond
	if fetchTimeout <= 0 {
		fetchTimeout = 5 * time.Second
	}

	return &Orchestrator{
		deps:           deps,
		forecaster:     forecast.NewForecaster(fcfg.MonthFactors),
		inventory:      inventory.NewOptimizer(fcfg.ServiceZ, fcfg.OrderCost, fcfg.HoldingCostRate),
		pricing:        pricing.NewOptimizer(pcfg.MinMargin, pcfg.MaxMargin, pcfg.Elasticity, pcfg.DefaultCostRate),
		windowDays:     windowDays,
		horizonDays:    horizonDays,
		leadTimeDays:   leadTimeDays,
		workerCount:    workerCount,
		fetchTimeout:   fetchTimeout,
		retryAttempts:  fcfg.RetryAttempts,
		defaultCostRte: pcfg.DefaultCostRate,
	}
}

// DefaultHorizon exposes the configured horizon for handlers that accept an
// optional horizon parameter.
func (o *Orchestrator) DefaultHorizon() int {
	return o.horizonDays
}

// ForecastDemand runs the full forecast for one product: sales history and
// catalog fetch, daily aggregation, decomposition, demand forecast,
// inventory policy and advisory recommendations.
func (o *Orchestrator) ForecastDemand(ctx context.Context, productID int64, horizonDays int) (*domain.ForecastResult, error) {
	if horizonDays <= 0 {
		return nil, fmt.Errorf("%w: horizon must be positive, got %d", domain.ErrInvalidInput, horizonDays)
	}

	now := o.deps.Now()

	// Fetching
	product, err := o.fetchProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	lines, err := o.fetchOrderLines(ctx, productID, now)
	if err != nil {
		return nil, err
	}

	// Computing
	start := now.AddDate(0, 0, -o.windowDays)
	series := o.forecaster.Aggregate(lines, start, o.windowDays)

	fc, err := o.forecaster.Forecast(series, now, horizonDays)
	if err != nil {
		return nil, err
	}
	fc.ProductID = productID

	leadTime := o.leadTimeDays
	if product.LeadTimeDays != nil && *product.LeadTimeDays > 0 {
		leadTime = *product.LeadTimeDays
	}
	unitCost := product.Price * o.defaultCostRte
	if product.CostPrice != nil && *product.CostPrice > 0 {
		unitCost = *product.CostPrice
	}

	policy, err := o.inventory.Policy(series, fc, product.Stock, leadTime, unitCost)
	if err != nil {
		return nil, err
	}
	policy.ProductID = productID

	result := &domain.ForecastResult{
		ProductID:       productID,
		SKU:             product.SKU,
		Forecast:        fc,
		Policy:          policy,
		Recommendations: o.inventory.Recommend(policy, fc, now),
	}

	log.Debug().
		Int64("product_id", productID).
		Int("horizon_days", horizonDays).
		Int("total_predicted", fc.TotalPredicted).
		Int("confidence", fc.Confidence).
		Msg("forecast computed")

	return result, nil
}

// OptimizePrice computes a bounded price recommendation for one product from
// the demand score, competitor samples, inventory pressure and seasonality.
func (o *Orchestrator) OptimizePrice(ctx context.Context, productID int64) (*domain.PriceRecommendation, error) {
	now := o.deps.Now()

	product, err := o.fetchProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Price <= 0 {
		return nil, fmt.Errorf("%w: product %d has no positive price", domain.ErrInvalidInput, productID)
	}

	score, hasScore, err := o.fetchDemandScore(ctx, productID)
	if err != nil {
		// The demand score improves the recommendation but is not required.
		log.Warn().Err(err).Int64("product_id", productID).Msg("demand score unavailable")
		hasScore = false
	}

	competitors, err := o.fetchCompetitorPrices(ctx, productID)
	if err != nil {
		log.Warn().Err(err).Int64("product_id", productID).Msg("competitor prices unavailable")
		competitors = nil
	}

	changes, err := o.fetchPriceChanges(ctx, productID)
	if err != nil {
		log.Warn().Err(err).Int64("product_id", productID).Msg("price history unavailable")
		changes = nil
	}

	costPrice := 0.0
	if product.CostPrice != nil {
		costPrice = *product.CostPrice
	}
	reorderLevel := 0
	if product.ReorderLevel != nil {
		reorderLevel = *product.ReorderLevel
	}

	rec, err := o.pricing.Optimize(pricing.Inputs{
		ProductID:        productID,
		CurrentPrice:     product.Price,
		CostPrice:        costPrice,
		Category:         product.Category,
		DemandScore:      score,
		HasDemandScore:   hasScore,
		CompetitorPrices: competitors,
		Stock:            product.Stock,
		ReorderLevel:     reorderLevel,
		PriceChanges:     len(changes),
		Now:              now,
	})
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// ApplyPriceChange writes an audited price change through to the price
// history store. A failed write is surfaced to the caller and never silently
// retried; retrying could duplicate the side effect.
func (o *Orchestrator) ApplyPriceChange(ctx context.Context, productID int64, newPrice float64, reason string) (*domain.PriceChange, error) {
	if newPrice <= 0 {
		return nil, fmt.Errorf("%w: new price must be positive, got %.2f", domain.ErrInvalidInput, newPrice)
	}
	if o.deps.History == nil {
		return nil, fmt.Errorf("%w: price history store not configured", domain.ErrCollaboratorUnavailable)
	}

	product, err := o.fetchProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	change := domain.PriceChange{
		ProductID: productID,
		OldPrice:  product.Price,
		NewPrice:  newPrice,
		ChangedAt: o.deps.Now(),
		Reason:    reason,
	}

	writeCtx, cancel := context.WithTimeout(ctx, o.fetchTimeout)
	defer cancel()
	if err := o.deps.History.AppendPriceChange(writeCtx, change); err != nil {
		return nil, fmt.Errorf("%w: append price change: %v", domain.ErrCollaboratorUnavailable, err)
	}

	if err := o.deps.Cache.InvalidateProduct(ctx, productID); err != nil {
		log.Warn().Err(err).Int64("product_id", productID).Msg("cache invalidation failed")
	}

	return &change, nil
}

// fetchProduct resolves the catalog snapshot; a missing product maps to
// ErrNotFound.
func (o *Orchestrator) fetchProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	var product *domain.Product
	err := o.retryRead(ctx, "get product", func(ctx context.Context) error {
		var err error
		product, err = o.deps.Catalog.GetProduct(ctx, productID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("product %d: %w", productID, domain.ErrNotFound)
	}
	return product, nil
}

func (o *Orchestrator) fetchOrderLines(ctx context.Context, productID int64, now time.Time) ([]domain.OrderLine, error) {
	from := now.AddDate(0, 0, -o.windowDays)

	var lines []domain.OrderLine
	err := o.retryRead(ctx, "get order lines", func(ctx context.Context) error {
		var err error
		lines, err = o.deps.Sales.GetOrderLines(ctx, productID, from, now)
		return err
	})
	return lines, err
}

func (o *Orchestrator) fetchDemandScore(ctx context.Context, productID int64) (float64, bool, error) {
	if score, ok, err := o.deps.Cache.GetDemandScore(ctx, productID); err == nil && ok {
		return score, true, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("market cache: demand score get failed")
	}

	var (
		score float64
		found bool
	)
	err := o.retryRead(ctx, "get demand score", func(ctx context.Context) error {
		var err error
		score, found, err = o.deps.Analytics.GetDemandScore(ctx, productID)
		return err
	})
	if err != nil || !found {
		return 0, false, err
	}

	if err := o.deps.Cache.SetDemandScore(ctx, productID, score); err != nil {
		log.Warn().Err(err).Msg("market cache: demand score set failed")
	}
	return score, true, nil
}

func (o *Orchestrator) fetchCompetitorPrices(ctx context.Context, productID int64) ([]domain.CompetitorPrice, error) {
	if o.deps.Competitors == nil {
		return nil, nil
	}

	if prices, ok, err := o.deps.Cache.GetCompetitorPrices(ctx, productID); err == nil && ok {
		return prices, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("market cache: competitor get failed")
	}

	var prices []domain.CompetitorPrice
	err := o.retryRead(ctx, "get competitor prices", func(ctx context.Context) error {
		var err error
		prices, err = o.deps.Competitors.GetCompetitorPrices(ctx, productID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := o.deps.Cache.SetCompetitorPrices(ctx, productID, prices); err != nil {
		log.Warn().Err(err).Msg("market cache: competitor set failed")
	}
	return prices, nil
}

func (o *Orchestrator) fetchPriceChanges(ctx context.Context, productID int64) ([]domain.PriceChange, error) {
	if o.deps.History == nil {
		return nil, nil
	}

	if changes, ok, err := o.deps.Cache.GetPriceChanges(ctx, productID); err == nil && ok {
		return changes, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("market cache: price history get failed")
	}

	var changes []domain.PriceChange
	err := o.retryRead(ctx, "get price changes", func(ctx context.Context) error {
		var err error
		changes, err = o.deps.History.GetPriceChanges(ctx, productID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := o.deps.Cache.SetPriceChanges(ctx, productID, changes); err != nil {
		log.Warn().Err(err).Msg("market cache: price history set failed")
	}
	return changes, nil
}

// retryRead runs an idempotent collaborator read with a per-attempt timeout
// and a small bounded retry. NotFound and invalid input are never retried.
func (o *Orchestrator) retryRead(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := o.retryAttempts
	if attempts < 0 {
		attempts = 0
	}

	var lastErr error
	for attempt := 0; attempt <= attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, o.fetchTimeout)
		err := fn(callCtx)
		cancel()

		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidInput) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = err
		log.Warn().Err(err).Str("op", op).Int("attempt", attempt+1).Msg("collaborator read failed")
	}

	return fmt.Errorf("%w: %s: %v", domain.ErrCollaboratorUnavailable, op, lastErr)
}
