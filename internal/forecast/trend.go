package forecast

import "github.com/andresuchdata/demandcast/internal/domain"

// minTrendObservations is the shortest series the regression is trusted on.
const minTrendObservations = 7

// TrendEstimator fits an ordinary least-squares line of quantity against
// day index and normalizes the slope by the mean quantity.
type TrendEstimator struct{}

func NewTrendEstimator() *TrendEstimator {
	return &TrendEstimator{}
}

// Estimate returns the fractional daily change in demand. Fewer than 7
// observations or an all-zero series is treated as no trend, not an error.
func (e *TrendEstimator) Estimate(series []domain.SalesObservation) float64 {
	n := len(series)
	if n < minTrendObservations {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, obs := range series {
		x := float64(i)
		y := float64(obs.Quantity)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	mean := sumY / float64(n)
	if mean == 0 {
		return 0
	}

	denom := float64(n)*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}

	slope := (float64(n)*sumXY - sumX*sumY) / denom
	return slope / mean
}
