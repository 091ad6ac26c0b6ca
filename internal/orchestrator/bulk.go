package orchestrator

import (
	"context"
	"sort"

	"github.com/andresuchdata/demandcast/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// priorityRank orders reorder alerts critical-first.
var priorityRank = map[string]int{
	domain.PriorityCritical: 0,
	domain.PriorityHigh:     1,
	domain.PriorityMedium:   2,
	domain.PriorityInfo:     3,
}

// BulkForecast fans out ForecastDemand over the given products with bounded
// concurrency. Per-item failures are recorded in place; the batch always
// completes.
func (o *Orchestrator) BulkForecast(ctx context.Context, productIDs []int64, horizonDays int) []domain.BulkItem[domain.ForecastResult] {
	return fanOut(ctx, o.workerCount, productIDs, func(ctx context.Context, id int64) (*domain.ForecastResult, error) {
		return o.ForecastDemand(ctx, id, horizonDays)
	})
}

// BulkOptimizePrice fans out OptimizePrice the same way.
func (o *Orchestrator) BulkOptimizePrice(ctx context.Context, productIDs []int64) []domain.BulkItem[domain.PriceRecommendation] {
	return fanOut(ctx, o.workerCount, productIDs, func(ctx context.Context, id int64) (*domain.PriceRecommendation, error) {
		return o.OptimizePrice(ctx, id)
	})
}

// ListReorderAlerts forecasts the whole catalog and keeps the products whose
// stock position triggered a reorder or overstock advisory, sorted
// critical-first.
func (o *Orchestrator) ListReorderAlerts(ctx context.Context) ([]domain.ReorderAlert, error) {
	ids, err := o.listProductIDs(ctx)
	if err != nil {
		return nil, err
	}

	items := o.BulkForecast(ctx, ids, o.horizonDays)

	alerts := make([]domain.ReorderAlert, 0)
	for _, item := range items {
		if item.Result == nil {
			// A failed product is not an alert, but the sweep must not
			// shrink silently.
			log.Warn().
				Int64("product_id", item.ProductID).
				Str("error", item.Error).
				Msg("reorder alert sweep: product skipped")
			continue
		}
		priority, ok := topPriority(item.Result.Recommendations)
		if !ok {
			continue
		}
		alerts = append(alerts, domain.ReorderAlert{
			ProductID:       item.ProductID,
			SKU:             item.Result.SKU,
			Priority:        priority,
			Policy:          item.Result.Policy,
			Recommendations: item.Result.Recommendations,
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return priorityRank[alerts[i].Priority] < priorityRank[alerts[j].Priority]
	})

	return alerts, nil
}

func (o *Orchestrator) listProductIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := o.retryRead(ctx, "list products", func(ctx context.Context) error {
		var err error
		ids, err = o.deps.Catalog.ListProductIDs(ctx)
		return err
	})
	return ids, err
}

func topPriority(recs []domain.Recommendation) (string, bool) {
	best := ""
	for _, rec := range recs {
		if best == "" || priorityRank[rec.Priority] < priorityRank[best] {
			best = rec.Priority
		}
	}
	if best == "" || best == domain.PriorityInfo {
		return "", false
	}
	return best, true
}

// fanOut runs fn per product on a bounded pool and returns items in input
// order. One product's error never aborts the others.
func fanOut[T any](ctx context.Context, workers int, productIDs []int64, fn func(ctx context.Context, id int64) (*T, error)) []domain.BulkItem[T] {
	if workers < 1 {
		workers = 1
	}

	items := make([]domain.BulkItem[T], len(productIDs))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, id := range productIDs {
		g.Go(func() error {
			result, err := fn(ctx, id)
			if err != nil {
				items[i] = domain.BulkItem[T]{ProductID: id, Error: err.Error()}
				return nil
			}
			items[i] = domain.BulkItem[T]{ProductID: id, Result: result}
			return nil
		})
	}
	g.Wait()

	return items
}
