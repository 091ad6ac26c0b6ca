// internal/domain/models.go
package domain

import "time"

// OrderLine is a single raw sales event for a product, as returned by the
// sales history provider.
type OrderLine struct {
	Date     time.Time `json:"date" db:"order_date"`
	Quantity int       `json:"quantity" db:"quantity"`
	Revenue  float64   `json:"revenue" db:"revenue"`
}

// SalesObservation is one day of the gap-filled daily series. The aggregator
// emits exactly one observation per calendar day in the window, including
// zero-quantity days.
type SalesObservation struct {
	Date     time.Time `json:"date"`
	Quantity int       `json:"quantity"`
	Revenue  float64   `json:"revenue"`
	Weekday  int       `json:"weekday"`
}

// SeasonalProfile holds demand multipliers normalized around 1.0.
type SeasonalProfile struct {
	WeekdayFactors [7]float64  `json:"weekday_factors"`
	MonthFactors   [12]float64 `json:"month_factors"`
}

// DailyPrediction is a single forecast day with its ±10% band.
type DailyPrediction struct {
	Date     time.Time `json:"date"`
	Quantity int       `json:"quantity"`
	Low      int       `json:"low"`
	High     int       `json:"high"`
}

// DemandForecast is the day-by-day demand forecast for one product.
type DemandForecast struct {
	ProductID      int64             `json:"product_id"`
	HorizonDays    int               `json:"horizon_days"`
	Daily          []DailyPrediction `json:"daily_predictions"`
	TotalPredicted int               `json:"total_predicted"`
	Trend          float64           `json:"trend"`
	Confidence     int               `json:"confidence"`
}

// InventoryPolicy is the set of inventory control parameters derived from a
// forecast. ReorderPoint >= SafetyStock always holds.
type InventoryPolicy struct {
	ProductID             int64 `json:"product_id"`
	CurrentStock          int   `json:"current_stock"`
	SafetyStock           int   `json:"safety_stock"`
	ReorderPoint          int   `json:"reorder_point"`
	DaysOfStock           int   `json:"days_of_stock"`
	EconomicOrderQuantity int   `json:"economic_order_quantity"`
}

// Recommendation priorities, ordered critical-first.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityInfo     = "info"
)

// Recommendation is an advisory inventory action. Never auto-executed.
type Recommendation struct {
	Priority          string `json:"priority"`
	Action            string `json:"action"`
	Reason            string `json:"reason"`
	SuggestedQuantity int    `json:"suggested_quantity,omitempty"`
}

// Product is the catalog snapshot the engine computes against.
type Product struct {
	ID           int64    `json:"id" db:"id"`
	SKU          string   `json:"sku" db:"sku"`
	Name         string   `json:"name" db:"name"`
	Category     string   `json:"category" db:"category"`
	Price        float64  `json:"price" db:"price"`
	CostPrice    *float64 `json:"cost_price,omitempty" db:"cost_price"`
	Stock        int      `json:"stock" db:"stock"`
	LeadTimeDays *int     `json:"lead_time_days,omitempty" db:"lead_time_days"`
	ReorderLevel *int     `json:"reorder_level,omitempty" db:"reorder_level"`
}

// CompetitorPrice is one sampled competitor price point.
type CompetitorPrice struct {
	Source string  `json:"source" db:"source"`
	Price  float64 `json:"price" db:"price"`
}

// PriceChange is a single audited price change record.
type PriceChange struct {
	ProductID int64     `json:"product_id" db:"product_id"`
	OldPrice  float64   `json:"old_price" db:"old_price"`
	NewPrice  float64   `json:"new_price" db:"new_price"`
	ChangedAt time.Time `json:"changed_at" db:"changed_at"`
	Reason    string    `json:"reason" db:"reason"`
}

// Recommendation classes, bucketed by signed percentage price change.
const (
	ClassStrongIncrease   = "STRONG_INCREASE"
	ClassModerateIncrease = "MODERATE_INCREASE"
	ClassSlightIncrease   = "SLIGHT_INCREASE"
	ClassSlightDecrease   = "SLIGHT_DECREASE"
	ClassModerateDecrease = "MODERATE_DECREASE"
	ClassStrongDecrease   = "STRONG_DECREASE"
)

// PriceRecommendation is the bounded, rounded price suggestion.
type PriceRecommendation struct {
	ProductID           int64   `json:"product_id"`
	CurrentPrice        float64 `json:"current_price"`
	SuggestedPrice      float64 `json:"suggested_price"`
	PriceChangePercent  float64 `json:"price_change_percent"`
	ConfidenceScore     int     `json:"confidence_score"`
	RecommendationClass string  `json:"recommendation_class"`
	EstimatedImpactPct  float64 `json:"estimated_impact_pct"`
}

// ForecastResult bundles everything forecastDemand returns for one product.
type ForecastResult struct {
	ProductID       int64            `json:"product_id"`
	SKU             string           `json:"sku"`
	Forecast        DemandForecast   `json:"forecast"`
	Policy          InventoryPolicy  `json:"inventory_policy"`
	Recommendations []Recommendation `json:"recommendations"`
}

// BulkItem is the per-product outcome of a bulk operation: exactly one of
// Result or Error is set.
type BulkItem[T any] struct {
	ProductID int64  `json:"product_id"`
	Result    *T     `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ReorderAlert pairs an inventory policy with the recommendations that fired
// for it; Priority is the most urgent one.
type ReorderAlert struct {
	ProductID       int64            `json:"product_id"`
	SKU             string           `json:"sku"`
	Priority        string           `json:"priority"`
	Policy          InventoryPolicy  `json:"inventory_policy"`
	Recommendations []Recommendation `json:"recommendations"`
}
