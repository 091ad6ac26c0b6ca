package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/demandcast/internal/config"
	"github.com/andresuchdata/demandcast/internal/domain"
)

// fixedNow pins the clock so two runs over the same data see the same window
// and the same forecast dates.
var fixedNow = time.Date(2025, 4, 30, 12, 0, 0, 0, time.UTC) // Wednesday

type fakeSales struct {
	mu    sync.Mutex
	lines map[int64][]domain.OrderLine
	// failID makes reads for that product fail with a transient error.
	failID int64
}

func (f *fakeSales) GetOrderLines(_ context.Context, productID int64, from, to time.Time) ([]domain.OrderLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failID != 0 && productID == f.failID {
		return nil, errors.New("connection reset")
	}
	var out []domain.OrderLine
	for _, line := range f.lines[productID] {
		if line.Date.Before(from) || line.Date.After(to) {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}

type fakeCatalog struct {
	mu       sync.Mutex
	products map[int64]*domain.Product
	// failures makes the next N calls fail with a transient error.
	failures int
	calls    int
}

func (f *fakeCatalog) GetProduct(_ context.Context, productID int64) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("connection reset")
	}
	p, ok := f.products[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeCatalog) ListProductIDs(_ context.Context) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(f.products))
	for id := range f.products {
		ids = append(ids, id)
	}
	return ids, nil
}

type fakeAnalytics struct {
	scores map[int64]float64
	err    error
	calls  int
}

func (f *fakeAnalytics) GetDemandScore(_ context.Context, productID int64) (float64, bool, error) {
	f.calls++
	if f.err != nil {
		return 0, false, f.err
	}
	score, ok := f.scores[productID]
	return score, ok, nil
}

type fakeCompetitors struct {
	prices map[int64][]domain.CompetitorPrice
}

func (f *fakeCompetitors) GetCompetitorPrices(_ context.Context, productID int64) ([]domain.CompetitorPrice, error) {
	return f.prices[productID], nil
}

type fakeHistory struct {
	mu          sync.Mutex
	changes     map[int64][]domain.PriceChange
	appendErr   error
	appendCalls int
}

func (f *fakeHistory) GetPriceChanges(_ context.Context, productID int64) ([]domain.PriceChange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.changes[productID], nil
}

func (f *fakeHistory) AppendPriceChange(_ context.Context, change domain.PriceChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appendCalls++
	if f.appendErr != nil {
		return f.appendErr
	}
	if f.changes == nil {
		f.changes = make(map[int64][]domain.PriceChange)
	}
	f.changes[change.ProductID] = append(f.changes[change.ProductID], change)
	return nil
}

// fakeMarketCache is a map-backed MarketCache used to verify read-through
// behavior.
type fakeMarketCache struct {
	mu          sync.Mutex
	scores      map[int64]float64
	invalidated []int64
}

func (f *fakeMarketCache) GetCompetitorPrices(context.Context, int64) ([]domain.CompetitorPrice, bool, error) {
	return nil, false, nil
}

func (f *fakeMarketCache) SetCompetitorPrices(context.Context, int64, []domain.CompetitorPrice) error {
	return nil
}

func (f *fakeMarketCache) GetDemandScore(_ context.Context, productID int64) (float64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	score, ok := f.scores[productID]
	return score, ok, nil
}

func (f *fakeMarketCache) SetDemandScore(_ context.Context, productID int64, score float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scores == nil {
		f.scores = make(map[int64]float64)
	}
	f.scores[productID] = score
	return nil
}

func (f *fakeMarketCache) GetPriceChanges(context.Context, int64) ([]domain.PriceChange, bool, error) {
	return nil, false, nil
}

func (f *fakeMarketCache) SetPriceChanges(context.Context, int64, []domain.PriceChange) error {
	return nil
}

func (f *fakeMarketCache) InvalidateProduct(_ context.Context, productID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, productID)
	return nil
}

func (f *fakeMarketCache) InvalidateAll(context.Context) error { return nil }

func steadyLines(days, perDay int) []domain.OrderLine {
	start := fixedNow.AddDate(0, 0, -days)
	lines := make([]domain.OrderLine, 0, days)
	for i := 0; i < days; i++ {
		lines = append(lines, domain.OrderLine{
			Date:     start.AddDate(0, 0, i),
			Quantity: perDay,
			Revenue:  float64(perDay) * 25,
		})
	}
	return lines
}

func ptrFloat(v float64) *float64 { return &v }
func ptrInt(v int) *int           { return &v }

func testConfigs() (config.ForecastConfig, config.PricingConfig) {
	fcfg := config.ForecastConfig{
		WindowDays:            90,
		HorizonDays:           30,
		LeadTimeDays:          7,
		ServiceZ:              1.65,
		OrderCost:             50,
		HoldingCostRate:       0.25,
		WorkerCount:           4,
		ProviderTimeoutMillis: 1000,
		RetryAttempts:         2,
	}
	pcfg := config.PricingConfig{
		MinMargin:       0.10,
		MaxMargin:       0.50,
		Elasticity:      -1.5,
		DefaultCostRate: 0.60,
	}
	return fcfg, pcfg
}

func newTestDeps() (Deps, *fakeCatalog, *fakeAnalytics, *fakeHistory) {
	catalog := &fakeCatalog{products: map[int64]*domain.Product{
		1: {
			ID:           1,
			SKU:          "WIDGET-1",
			Name:         "Widget",
			Category:     "electronics",
			Price:        25,
			CostPrice:    ptrFloat(12),
			Stock:        100,
			LeadTimeDays: ptrInt(7),
			ReorderLevel: ptrInt(40),
		},
	}}
	analytics := &fakeAnalytics{scores: map[int64]float64{1: 72}}
	history := &fakeHistory{}
	deps := Deps{
		Sales:       &fakeSales{lines: map[int64][]domain.OrderLine{1: steadyLines(90, 5)}},
		Catalog:     catalog,
		Analytics:   analytics,
		Competitors: &fakeCompetitors{prices: map[int64][]domain.CompetitorPrice{}},
		History:     history,
		Now:         func() time.Time { return fixedNow },
	}
	return deps, catalog, analytics, history
}

func TestForecastDemand(t *testing.T) {
	deps, _, _, _ := newTestDeps()
	fcfg, pcfg := testConfigs()
	orch := New(deps, fcfg, pcfg)

	result, err := orch.ForecastDemand(context.Background(), 1, 7)
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.ProductID)
	assert.Equal(t, "WIDGET-1", result.SKU)
	assert.Len(t, result.Forecast.Daily, 7)
	assert.InDelta(t, 35, result.Forecast.TotalPredicted, 2)
	assert.Greater(t, result.Forecast.Confidence, 50)
	assert.GreaterOrEqual(t, result.Policy.ReorderPoint, result.Policy.SafetyStock)
}

func TestForecastDemandUnknownProduct(t *testing.T) {
	deps, _, _, _ := newTestDeps()
	fcfg, pcfg := testConfigs()
	orch := New(deps, fcfg, pcfg)

	_, err := orch.ForecastDemand(context.Background(), 999, 7)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestForecastDemandInvalidHorizon(t *testing.T) {
	deps, _, _, _ := newTestDeps()
	fcfg, pcfg := testConfigs()
	orch := New(deps, fcfg, pcfg)

	_, err := orch.ForecastDemand(context.Background(), 1, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestForecastDemandIdempotent(t *testing.T) {
	deps, _, _, _ := newTestDeps()
	fcfg, pcfg := testConfigs()
	orch := New(deps, fcfg, pcfg)

	first, err := orch.ForecastDemand(context.Background(), 1, 14)
	require.NoError(t, err)
	second, err := orch.ForecastDemand(context.Background(), 1, 14)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestForecastDemandRecoversFromTransientError(t *testing.T) {
	deps, catalog, _, _ := newTestDeps()
	catalog.failures = 1
	fcfg, pcfg := testConfigs()
	orch := New(deps, fcfg, pcfg)

	result, err := orch.ForecastDemand(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Equal(t, "WIDGET-1", result.SKU)
}

func TestForecastDemandExhaustsRetries(t *testing.T) {
	deps, catalog, _, _ := newTestDeps()
	catalog.failures = 100
	fcfg, pcfg := testConfigs()
	orch := New(deps, fcfg, pcfg)

	_, err := orch.ForecastDemand(context.Background(), 1, 7)
	assert.ErrorIs(t, err, domain.ErrCollaboratorUnavailable)
	// Initial attempt plus the configured retries, nothing more.
	assert.Equal(t, 3, catalog.calls)
}

func TestOptimizePrice(t *testing.T) {
	deps, _, _, _ := newTestDeps()
	fcfg, pcfg := testConfigs()
	orch := New(deps, fcfg, pcfg)

	rec, err := orch.OptimizePrice(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, int64(1), rec.ProductID)
	assert.Equal(t, 25.0, rec.CurrentPrice)
	// Demand score present, no competitors, no history.
	assert.Equal(t, 65, rec.ConfidenceScore)
	// Corridor on cost 12: [13.20, 18].
	assert.GreaterOrEqual(t, rec.SuggestedPrice, 12*1.10)
	assert.LessOrEqual(t, rec.SuggestedPrice, 12*1.50)
}

func TestOptimizePriceSoftFailsOnAnalyticsError(t *testing.T) {
	deps, _, analytics, _ := newTestDeps()
	analytics.err = errors.New("analytics down")
	fcfg, pcfg := testConfigs()
	orch := New(deps, fcfg, pcfg)

	rec, err := orch.OptimizePrice(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 50, rec.ConfidenceScore)
}

func TestOptimizePriceCachesDemandScore(t *testing.T) {
	deps, _, analytics, _ := newTestDeps()
	mc := &fakeMarketCache{}
	deps.Cache = mc
	fcfg, pcfg := testConfigs()
	fcfg.RetryAttempts = 0
	orch := New(deps, fcfg, pcfg)

	_, err := orch.OptimizePrice(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, analytics.calls)

	_, err = orch.OptimizePrice(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, analytics.calls, "second run should hit the cache")
}

func TestApplyPriceChange(t *testing.T) {
	deps, _, _, history := newTestDeps()
	mc := &fakeMarketCache{}
	deps.Cache = mc
	fcfg, pcfg := testConfigs()
	orch := New(deps, fcfg, pcfg)

	change, err := orch.ApplyPriceChange(context.Background(), 1, 27.99, "seasonal uplift")
	require.NoError(t, err)

	assert.Equal(t, 25.0, change.OldPrice)
	assert.Equal(t, 27.99, change.NewPrice)
	assert.Equal(t, fixedNow, change.ChangedAt)
	assert.Equal(t, 1, history.appendCalls)
	assert.Equal(t, []int64{1}, mc.invalidated)
}

func TestApplyPriceChangeRejectsNonPositivePrice(t *testing.T) {
	deps, _, _, history := newTestDeps()
	fcfg, pcfg := testConfigs()
	orch := New(deps, fcfg, pcfg)

	_, err := orch.ApplyPriceChange(context.Background(), 1, 0, "typo")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, history.appendCalls)
}

func TestApplyPriceChangeNeverRetriesWrites(t *testing.T) {
	deps, _, _, history := newTestDeps()
	history.appendErr = errors.New("disk full")
	fcfg, pcfg := testConfigs()
	orch := New(deps, fcfg, pcfg)

	_, err := orch.ApplyPriceChange(context.Background(), 1, 27.99, "seasonal uplift")
	assert.ErrorIs(t, err, domain.ErrCollaboratorUnavailable)
	assert.Equal(t, 1, history.appendCalls, "a failed write must not be retried")
}

func TestBulkForecastRecordsPerItemFailures(t *testing.T) {
	deps, _, _, _ := newTestDeps()
	fcfg, pcfg := testConfigs()
	orch := New(deps, fcfg, pcfg)

	items := orch.BulkForecast(context.Background(), []int64{1, 999}, 7)
	require.Len(t, items, 2)

	assert.Equal(t, int64(1), items[0].ProductID)
	require.NotNil(t, items[0].Result)
	assert.Empty(t, items[0].Error)

	assert.Equal(t, int64(999), items[1].ProductID)
	assert.Nil(t, items[1].Result)
	assert.Contains(t, items[1].Error, "not found")
}

func TestBulkOptimizePrice(t *testing.T) {
	deps, _, _, _ := newTestDeps()
	fcfg, pcfg := testConfigs()
	orch := New(deps, fcfg, pcfg)

	items := orch.BulkOptimizePrice(context.Background(), []int64{1, 999})
	require.Len(t, items, 2)
	require.NotNil(t, items[0].Result)
	assert.Equal(t, int64(1), items[0].Result.ProductID)
	assert.NotEmpty(t, items[1].Error)
}

func TestListReorderAlertsSortedCriticalFirst(t *testing.T) {
	deps, catalog, _, _ := newTestDeps()
	sales := deps.Sales.(*fakeSales)

	// Product 2 is out of stock, product 3 sits at its reorder point, the
	// seeded product 1 is comfortably stocked.
	catalog.products[2] = &domain.Product{ID: 2, SKU: "GADGET-2", Price: 30, Stock: 0}
	catalog.products[3] = &domain.Product{ID: 3, SKU: "GIZMO-3", Price: 30, Stock: 35, CostPrice: ptrFloat(15)}
	sales.lines[2] = steadyLines(90, 5)
	sales.lines[3] = steadyLines(90, 5)

	fcfg, pcfg := testConfigs()
	orch := New(deps, fcfg, pcfg)

	alerts, err := orch.ListReorderAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	assert.Equal(t, domain.PriorityCritical, alerts[0].Priority)
	assert.Equal(t, int64(2), alerts[0].ProductID)
	assert.Equal(t, domain.PriorityHigh, alerts[1].Priority)
	assert.Equal(t, int64(3), alerts[1].ProductID)
}

func TestListReorderAlertsReportsSkippedProducts(t *testing.T) {
	deps, catalog, _, _ := newTestDeps()
	sales := deps.Sales.(*fakeSales)

	catalog.products[2] = &domain.Product{ID: 2, SKU: "GADGET-2", Price: 30, Stock: 0}
	sales.lines[2] = steadyLines(90, 5)
	catalog.products[4] = &domain.Product{ID: 4, SKU: "GIZMO-4", Price: 30, Stock: 10}
	sales.failID = 4

	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	fcfg, pcfg := testConfigs()
	fcfg.WorkerCount = 1
	orch := New(deps, fcfg, pcfg)

	alerts, err := orch.ListReorderAlerts(context.Background())
	require.NoError(t, err)

	// The failed product is skipped, not an alert, and the skip is logged.
	require.Len(t, alerts, 1)
	assert.Equal(t, int64(2), alerts[0].ProductID)
	assert.Contains(t, buf.String(), `"product_id":4`)
	assert.Contains(t, buf.String(), "product skipped")
}
