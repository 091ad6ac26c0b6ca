package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/demandcast/internal/domain"
)

func newTestOptimizer() *Optimizer {
	return NewOptimizer(0.10, 0.50, -1.5, 0.60)
}

// neutralDate is a weekday outside every seasonal window.
var neutralDate = time.Date(2025, 4, 15, 12, 0, 0, 0, time.UTC) // Tuesday

func TestOptimizeRejectsInvalidInputs(t *testing.T) {
	opt := newTestOptimizer()

	_, err := opt.Optimize(Inputs{CurrentPrice: 0, Now: neutralDate})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = opt.Optimize(Inputs{CurrentPrice: 50, Stock: -1, Now: neutralDate})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestOptimizeRespectsMarginCeiling(t *testing.T) {
	opt := newTestOptimizer()

	// Every upward signal at once: demand > 80, stock at half the reorder
	// level, electronics in November, competitors 40% above, weekend.
	rec, err := opt.Optimize(Inputs{
		ProductID:      1,
		CurrentPrice:   50,
		CostPrice:      20,
		Category:       "electronics",
		DemandScore:    90,
		HasDemandScore: true,
		CompetitorPrices: []domain.CompetitorPrice{
			{Source: "rival-a", Price: 70},
		},
		Stock:        5,
		ReorderLevel: 10,
		Now:          time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC), // Saturday
	})
	require.NoError(t, err)

	assert.LessOrEqual(t, rec.SuggestedPrice, 20*1.50)
	assert.GreaterOrEqual(t, rec.SuggestedPrice, 20*1.10)
	assert.Equal(t, 29.99, rec.SuggestedPrice)
	assert.Equal(t, domain.ClassStrongIncrease, rec.RecommendationClass)
}

func TestOptimizeRespectsMarginFloor(t *testing.T) {
	opt := newTestOptimizer()

	// Every downward signal at once: weak demand, heavy overstock, January,
	// competitors far below. Raw price 21 sits under the floor of 22, and the
	// rounded 19.99 is clamped back without re-rounding.
	rec, err := opt.Optimize(Inputs{
		ProductID:      2,
		CurrentPrice:   35,
		CostPrice:      20,
		DemandScore:    10,
		HasDemandScore: true,
		CompetitorPrices: []domain.CompetitorPrice{
			{Source: "rival-a", Price: 10},
		},
		Stock:        100,
		ReorderLevel: 10,
		Now:          time.Date(2026, 1, 14, 12, 0, 0, 0, time.UTC), // Wednesday
	})
	require.NoError(t, err)

	assert.Equal(t, 22.0, rec.SuggestedPrice)
	assert.Equal(t, domain.ClassStrongDecrease, rec.RecommendationClass)
}

func TestOptimizeClassFollowsSignalDirection(t *testing.T) {
	opt := newTestOptimizer()

	// A mild upward signal pushed against a tight margin corridor: the
	// suggested price drops to the ceiling, but the class still reports the
	// direction the signals point in.
	rec, err := opt.Optimize(Inputs{
		ProductID:    3,
		CurrentPrice: 50,
		CostPrice:    20,
		Stock:        8,
		ReorderLevel: 10,
		Now:          neutralDate,
	})
	require.NoError(t, err)

	assert.Equal(t, 29.99, rec.SuggestedPrice)
	assert.Less(t, rec.PriceChangePercent, 0.0)
	assert.Equal(t, domain.ClassSlightIncrease, rec.RecommendationClass)
}

func TestOptimizeDefaultsCostPrice(t *testing.T) {
	opt := newTestOptimizer()

	// Unknown cost defaults to 60% of the current price: corridor [33, 45].
	rec, err := opt.Optimize(Inputs{
		ProductID:    4,
		CurrentPrice: 50,
		Now:          neutralDate,
	})
	require.NoError(t, err)

	assert.Equal(t, 44.99, rec.SuggestedPrice)
}

func TestPsychologicalRound(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{8.3, 8.99},
		{9.5, 9.99},
		{12, 9.99},
		{47, 44.99},
		{48, 49.99},
		{100, 99},
		{152, 149},
		{156, 159},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, psychologicalRound(tc.in), 1e-9, "round(%v)", tc.in)
	}
}

func TestSeasonalAdjustment(t *testing.T) {
	// Electronics peak plus holiday season on a weekday.
	nov := time.Date(2025, 11, 5, 0, 0, 0, 0, time.UTC) // Wednesday
	assert.InDelta(t, 0.18, seasonalAdjustment("electronics", nov), 1e-9)

	// Garden trough offsets the holiday bump.
	assert.InDelta(t, 0.02, seasonalAdjustment("garden", nov), 1e-9)

	// January discount.
	jan := time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC)
	assert.InDelta(t, -0.10, seasonalAdjustment("books", jan), 1e-9)

	// Weekend bump alone.
	sat := time.Date(2025, 4, 19, 0, 0, 0, 0, time.UTC)
	assert.InDelta(t, 0.02, seasonalAdjustment("books", sat), 1e-9)
}

func TestCompetitorAdjustmentDampedAndClamped(t *testing.T) {
	assert.Zero(t, competitorAdjustment(50, nil))

	// 10% above current, damped to half.
	adj := competitorAdjustment(50, []domain.CompetitorPrice{{Price: 55}})
	assert.InDelta(t, 0.05, adj, 1e-9)

	// Far above: clamped to +0.10.
	adj = competitorAdjustment(50, []domain.CompetitorPrice{{Price: 200}})
	assert.InDelta(t, 0.10, adj, 1e-9)

	// Far below: clamped to -0.10.
	adj = competitorAdjustment(50, []domain.CompetitorPrice{{Price: 5}})
	assert.InDelta(t, -0.10, adj, 1e-9)
}

func TestConfidenceScoring(t *testing.T) {
	opt := newTestOptimizer()

	base := opt.confidence(Inputs{})
	assert.Equal(t, 50, base)

	withScore := opt.confidence(Inputs{HasDemandScore: true})
	assert.Equal(t, 65, withScore)

	twoCompetitors := opt.confidence(Inputs{
		CompetitorPrices: []domain.CompetitorPrice{{Price: 1}, {Price: 2}},
	})
	assert.Equal(t, 70, twoCompetitors)

	full := opt.confidence(Inputs{
		HasDemandScore: true,
		CompetitorPrices: []domain.CompetitorPrice{
			{Price: 1}, {Price: 2}, {Price: 3}, {Price: 4},
		},
		PriceChanges: 6,
	})
	assert.Equal(t, maxConfidence, full)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, domain.ClassStrongIncrease, classify(12))
	assert.Equal(t, domain.ClassModerateIncrease, classify(7))
	assert.Equal(t, domain.ClassSlightIncrease, classify(2))
	assert.Equal(t, domain.ClassSlightIncrease, classify(0))
	assert.Equal(t, domain.ClassSlightDecrease, classify(-3))
	assert.Equal(t, domain.ClassModerateDecrease, classify(-7))
	assert.Equal(t, domain.ClassStrongDecrease, classify(-12))
}

func TestEstimateImpact(t *testing.T) {
	opt := newTestOptimizer()

	// +10% price with elasticity -1.5: demand -15%, revenue 1.10*0.85 - 1.
	assert.InDelta(t, -6.5, opt.estimateImpact(10), 1e-9)

	// -10% price: demand +15%, revenue 0.90*1.15 - 1.
	assert.InDelta(t, 3.5, opt.estimateImpact(-10), 1e-9)

	assert.Zero(t, opt.estimateImpact(0))
}
