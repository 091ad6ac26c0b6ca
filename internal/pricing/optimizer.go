package pricing

import (
	"fmt"
	"math"
	"time"

	"github.com/andresuchdata/demandcast/internal/domain"
)

const maxConfidence = 95

// Inputs carries everything a single price computation needs. All fields are
// snapshots; the optimizer itself performs no I/O.
type Inputs struct {
	ProductID    int64
	CurrentPrice float64
	// CostPrice <= 0 means unknown; it defaults to DefaultCostRate of the
	// current price.
	CostPrice        float64
	Category         string
	DemandScore      float64 // 0-100, externally supplied
	HasDemandScore   bool
	CompetitorPrices []domain.CompetitorPrice
	Stock            int
	ReorderLevel     int
	PriceChanges     int // number of historical price-change records
	Now              time.Time
}

// Optimizer computes bounded, psychologically rounded price recommendations.
type Optimizer struct {
	minMargin       float64
	maxMargin       float64
	elasticity      float64
	defaultCostRate float64
}

func NewOptimizer(minMargin, maxMargin, elasticity, defaultCostRate float64) *Optimizer {
	if minMargin <= 0 {
		minMargin = 0.10
	}
	if maxMargin <= minMargin {
		maxMargin = 0.50
	}
	if elasticity >= 0 {
		elasticity = -1.5
	}
	if defaultCostRate <= 0 || defaultCostRate >= 1 {
		defaultCostRate = 0.60
	}
	return &Optimizer{
		minMargin:       minMargin,
		maxMargin:       maxMargin,
		elasticity:      elasticity,
		defaultCostRate: defaultCostRate,
	}
}

// Optimize blends demand, inventory pressure, seasonality and competitor
// pull into a single multiplier, then clamps the result into the margin
// corridor and rounds it.
func (o *Optimizer) Optimize(in Inputs) (domain.PriceRecommendation, error) {
	if in.CurrentPrice <= 0 {
		return domain.PriceRecommendation{}, fmt.Errorf("%w: current price must be positive, got %.2f", domain.ErrInvalidInput, in.CurrentPrice)
	}
	if in.Stock < 0 {
		return domain.PriceRecommendation{}, fmt.Errorf("%w: stock must be non-negative, got %d", domain.ErrInvalidInput, in.Stock)
	}

	costPrice := in.CostPrice
	if costPrice <= 0 {
		costPrice = in.CurrentPrice * o.defaultCostRate
	}

	multiplier := 1.0
	multiplier += demandAdjustment(in.DemandScore, in.HasDemandScore)
	multiplier += inventoryAdjustment(in.Stock, in.ReorderLevel)
	multiplier += seasonalAdjustment(in.Category, in.Now)
	multiplier += competitorAdjustment(in.CurrentPrice, in.CompetitorPrices)

	// Margin corridor is non-negotiable regardless of the factors above.
	floor := costPrice * (1 + o.minMargin)
	ceiling := costPrice * (1 + o.maxMargin)
	suggested := clamp(in.CurrentPrice*multiplier, floor, ceiling)
	suggested = psychologicalRound(suggested)
	// Rounding may nudge past the corridor; re-clamp without re-rounding.
	suggested = clamp(suggested, floor, ceiling)

	changePct := (suggested - in.CurrentPrice) / in.CurrentPrice * 100

	rec := domain.PriceRecommendation{
		ProductID:          in.ProductID,
		CurrentPrice:       in.CurrentPrice,
		SuggestedPrice:     math.Round(suggested*100) / 100,
		PriceChangePercent: math.Round(changePct*100) / 100,
		ConfidenceScore:    o.confidence(in),
		// The class reflects the direction the signals push in, before the
		// margin corridor flattens it.
		RecommendationClass: classify((multiplier - 1) * 100),
		EstimatedImpactPct:  o.estimateImpact(changePct),
	}

	return rec, nil
}

func demandAdjustment(score float64, available bool) float64 {
	if !available {
		return 0
	}
	switch {
	case score > 80:
		return 0.15
	case score > 60:
		return 0.08
	case score < 30:
		return -0.10
	default:
		return 0
	}
}

func inventoryAdjustment(stock, reorderLevel int) float64 {
	if reorderLevel <= 0 {
		return 0
	}
	s := float64(stock)
	r := float64(reorderLevel)
	switch {
	case s <= 0.5*r:
		return 0.10
	case s <= r:
		return 0.05
	case s > 5*r:
		return -0.10
	case s > 3*r:
		return -0.05
	default:
		return 0
	}
}

// categorySeasons maps a category to its peak and trough months; peaks add
// 0.08, troughs subtract 0.08.
var categorySeasons = map[string]struct {
	peaks   []time.Month
	troughs []time.Month
}{
	"electronics": {peaks: []time.Month{time.November, time.December}, troughs: []time.Month{time.February}},
	"fashion":     {peaks: []time.Month{time.March, time.September}, troughs: []time.Month{time.January}},
	"toys":        {peaks: []time.Month{time.November, time.December}, troughs: []time.Month{time.February, time.March}},
	"sports":      {peaks: []time.Month{time.May, time.June}, troughs: []time.Month{time.December}},
	"garden":      {peaks: []time.Month{time.April, time.May}, troughs: []time.Month{time.November, time.December}},
}

func seasonalAdjustment(category string, now time.Time) float64 {
	adj := 0.0
	month := now.Month()

	if season, ok := categorySeasons[category]; ok {
		for _, m := range season.peaks {
			if m == month {
				adj += 0.08
			}
		}
		for _, m := range season.troughs {
			if m == month {
				adj -= 0.08
			}
		}
	}

	// General holiday season on top of category peaks.
	if month == time.November || month == time.December {
		adj += 0.10
	} else if month == time.January {
		adj -= 0.10
	}

	// Small weekend bump.
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		adj += 0.02
	}

	return adj
}

// competitorAdjustment nudges toward the average competitor price but damps
// the pull to half and clamps it, to avoid race-to-the-bottom behavior.
func competitorAdjustment(currentPrice float64, prices []domain.CompetitorPrice) float64 {
	if len(prices) == 0 || currentPrice <= 0 {
		return 0
	}
	var sum float64
	for _, p := range prices {
		sum += p.Price
	}
	avg := sum / float64(len(prices))
	return clamp((avg-currentPrice)/currentPrice*0.5, -0.1, 0.1)
}

// psychologicalRound applies charm pricing tiers: x.99 under 10, 5-steps
// minus a cent under 100, 10-steps minus a unit above.
func psychologicalRound(price float64) float64 {
	switch {
	case price < 10:
		return math.Floor(price) + 0.99
	case price < 100:
		return math.Round(price/5)*5 - 0.01
	default:
		return math.Round(price/10)*10 - 1
	}
}

func (o *Optimizer) confidence(in Inputs) int {
	score := 50
	if in.HasDemandScore {
		score += 15
	}
	samples := len(in.CompetitorPrices)
	if samples > 3 {
		samples = 3
	}
	score += 10 * samples
	if in.PriceChanges >= 5 {
		score += 15
	}
	if score > maxConfidence {
		score = maxConfidence
	}
	return score
}

func classify(changePct float64) string {
	switch {
	case changePct > 10:
		return domain.ClassStrongIncrease
	case changePct > 5:
		return domain.ClassModerateIncrease
	// A flat signal rounds up; calling it a decrease would mislead.
	case changePct >= 0:
		return domain.ClassSlightIncrease
	case changePct < -10:
		return domain.ClassStrongDecrease
	case changePct < -5:
		return domain.ClassModerateDecrease
	default:
		return domain.ClassSlightDecrease
	}
}

// estimateImpact projects the revenue delta from a fixed price elasticity.
// This is a linear approximation, not a learned model.
func (o *Optimizer) estimateImpact(changePct float64) float64 {
	demandChangePct := changePct * o.elasticity
	newPriceFactor := 1 + changePct/100
	newDemandFactor := 1 + demandChangePct/100
	if newDemandFactor < 0 {
		newDemandFactor = 0
	}
	revenueDelta := newPriceFactor*newDemandFactor - 1
	return math.Round(revenueDelta*10000) / 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
