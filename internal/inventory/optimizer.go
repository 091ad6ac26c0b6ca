package inventory

import (
	"fmt"
	"math"
	"time"

	"github.com/andresuchdata/demandcast/internal/domain"
	"github.com/andresuchdata/demandcast/internal/forecast"
)

const (
	defaultLeadTimeDays = 7
	// trendThreshold is the fractional daily trend beyond which growth or
	// decline advisories fire.
	trendThreshold = 0.05
	// overstockDays flags slow movers for promotional pricing.
	overstockDays = 90
)

// preHolidayMonths is the seasonal peak window that triggers a stock
// build-up advisory.
var preHolidayMonths = map[time.Month]bool{
	time.October:  true,
	time.November: true,
	time.December: true,
}

// Optimizer derives inventory control parameters from a demand forecast and
// the historical daily variance.
type Optimizer struct {
	serviceZ        float64
	orderCost       float64
	holdingCostRate float64
}

func NewOptimizer(serviceZ, orderCost, holdingCostRate float64) *Optimizer {
	if serviceZ <= 0 {
		serviceZ = 1.65
	}
	if orderCost <= 0 {
		orderCost = 50
	}
	if holdingCostRate <= 0 {
		holdingCostRate = 0.25
	}
	return &Optimizer{
		serviceZ:        serviceZ,
		orderCost:       orderCost,
		holdingCostRate: holdingCostRate,
	}
}

// Policy computes safety stock, reorder point, projected days of stock and
// the economic order quantity for one product.
func (o *Optimizer) Policy(series []domain.SalesObservation, fc domain.DemandForecast, currentStock, leadTimeDays int, unitCost float64) (domain.InventoryPolicy, error) {
	if currentStock < 0 {
		return domain.InventoryPolicy{}, fmt.Errorf("%w: stock must be non-negative, got %d", domain.ErrInvalidInput, currentStock)
	}
	if leadTimeDays <= 0 {
		leadTimeDays = defaultLeadTimeDays
	}

	policy := domain.InventoryPolicy{
		ProductID:    fc.ProductID,
		CurrentStock: currentStock,
	}

	// Safety stock absorbs demand variance over the replenishment lead time.
	sigma := forecast.StdDev(series)
	policy.SafetyStock = int(math.Ceil(o.serviceZ * sigma * math.Sqrt(float64(leadTimeDays))))

	// Reorder point = lead-time demand + safety stock.
	leadDemand := 0
	for i, day := range fc.Daily {
		if i >= leadTimeDays {
			break
		}
		leadDemand += day.Quantity
	}
	policy.ReorderPoint = leadDemand + policy.SafetyStock

	policy.DaysOfStock = daysOfStock(currentStock, fc.Daily)
	policy.EconomicOrderQuantity = o.economicOrderQuantity(fc, unitCost)

	return policy, nil
}

// daysOfStock simulates depleting the stock by each forecast day's demand,
// capped at the horizon when never exhausted.
func daysOfStock(stock int, daily []domain.DailyPrediction) int {
	remaining := stock
	for i, day := range daily {
		remaining -= day.Quantity
		if remaining <= 0 {
			return i
		}
	}
	return len(daily)
}

// economicOrderQuantity applies the classic EOQ formula against the forecast
// extrapolated to a full year.
func (o *Optimizer) economicOrderQuantity(fc domain.DemandForecast, unitCost float64) int {
	if fc.HorizonDays <= 0 || fc.TotalPredicted <= 0 {
		return 1
	}
	annualDemand := float64(fc.TotalPredicted) / float64(fc.HorizonDays) * 365

	holdingCost := unitCost * o.holdingCostRate
	if holdingCost <= 0 {
		holdingCost = o.holdingCostRate
	}

	eoq := int(math.Round(math.Sqrt(2 * annualDemand * o.orderCost / holdingCost)))
	if eoq < 1 {
		eoq = 1
	}
	return eoq
}

// Recommend produces the prioritized advisory list; several entries may fire
// for the same product.
func (o *Optimizer) Recommend(policy domain.InventoryPolicy, fc domain.DemandForecast, now time.Time) []domain.Recommendation {
	var recs []domain.Recommendation

	switch {
	case policy.CurrentStock <= policy.SafetyStock:
		recs = append(recs, domain.Recommendation{
			Priority:          domain.PriorityCritical,
			Action:            "reorder_immediately",
			Reason:            fmt.Sprintf("stock %d at or below safety stock %d", policy.CurrentStock, policy.SafetyStock),
			SuggestedQuantity: 2 * policy.ReorderPoint,
		})
	case policy.CurrentStock <= policy.ReorderPoint:
		recs = append(recs, domain.Recommendation{
			Priority:          domain.PriorityHigh,
			Action:            "reorder",
			Reason:            fmt.Sprintf("stock %d at or below reorder point %d", policy.CurrentStock, policy.ReorderPoint),
			SuggestedQuantity: policy.ReorderPoint,
		})
	}

	if policy.DaysOfStock > overstockDays {
		recs = append(recs, domain.Recommendation{
			Priority: domain.PriorityMedium,
			Action:   "promotional_pricing",
			Reason:   fmt.Sprintf("overstock: %d days of stock on hand", policy.DaysOfStock),
		})
	}

	if fc.Trend > trendThreshold {
		recs = append(recs, domain.Recommendation{
			Priority: domain.PriorityInfo,
			Action:   "increase_safety_stock",
			Reason:   "demand trending up, consider +20% safety stock",
		})
	} else if fc.Trend < -trendThreshold {
		recs = append(recs, domain.Recommendation{
			Priority: domain.PriorityInfo,
			Action:   "reduce_next_order",
			Reason:   "demand trending down, consider -20% next order",
		})
	}

	if preHolidayMonths[now.Month()] {
		recs = append(recs, domain.Recommendation{
			Priority: domain.PriorityMedium,
			Action:   "seasonal_stock_up",
			Reason:   "pre-holiday peak window, consider +30% stock",
		})
	}

	return recs
}
