package forecast

import (
	"fmt"
	"math"
	"time"

	"github.com/andresuchdata/demandcast/internal/domain"
)

// maxConfidence caps every confidence score; the model never claims
// near-certainty.
const maxConfidence = 95

// Forecaster composes mean demand, trend and seasonal factors into a
// day-by-day forecast with a fixed ±10% band.
type Forecaster struct {
	aggregator *Aggregator
	seasonal   *SeasonalDecomposer
	trend      *TrendEstimator
}

func NewForecaster(monthOverride []float64) *Forecaster {
	return &Forecaster{
		aggregator: NewAggregator(),
		seasonal:   NewSeasonalDecomposer(monthOverride),
		trend:      NewTrendEstimator(),
	}
}

// Aggregate exposes the underlying daily-series aggregation.
func (f *Forecaster) Aggregate(lines []domain.OrderLine, start time.Time, windowDays int) []domain.SalesObservation {
	return f.aggregator.DailySeries(lines, start, windowDays)
}

// Forecast predicts demand for each of the horizonDays days following
// `today`. An all-zero history yields an all-zero forecast with low
// confidence; a non-positive horizon is an input error.
func (f *Forecaster) Forecast(series []domain.SalesObservation, today time.Time, horizonDays int) (domain.DemandForecast, error) {
	if horizonDays <= 0 {
		return domain.DemandForecast{}, fmt.Errorf("%w: horizon must be positive, got %d", domain.ErrInvalidInput, horizonDays)
	}

	profile := f.seasonal.Decompose(series)
	trend := f.trend.Estimate(series)
	mean := meanQuantity(series)
	today = truncateDay(today)

	fc := domain.DemandForecast{
		HorizonDays: horizonDays,
		Daily:       make([]domain.DailyPrediction, 0, horizonDays),
		Trend:       trend,
	}

	for i := 1; i <= horizonDays; i++ {
		date := today.AddDate(0, 0, i)

		// Trend compounds linearly with horizon distance to avoid runaway
		// extrapolation.
		base := mean * (1 + trend*float64(i))
		predicted := base * profile.WeekdayFactors[int(date.Weekday())] * profile.MonthFactors[int(date.Month())-1]

		quantity := int(math.Max(0, math.Round(predicted)))
		low := int(math.Max(0, math.Round(predicted*0.9)))
		high := int(math.Max(0, math.Round(predicted*1.1)))
		if low > quantity {
			low = quantity
		}
		if high < quantity {
			high = quantity
		}

		fc.Daily = append(fc.Daily, domain.DailyPrediction{
			Date:     date,
			Quantity: quantity,
			Low:      low,
			High:     high,
		})
		fc.TotalPredicted += quantity
	}

	fc.Confidence = confidenceScore(series)

	return fc, nil
}

// confidenceScore weighs data volume (40), day-to-day consistency (30),
// recent activity (15) and sales coverage (15), capped at 95.
func confidenceScore(series []domain.SalesObservation) int {
	if len(series) == 0 {
		return 0
	}

	score := 0.0

	// Data volume: linear up to a 90-day window.
	volume := math.Min(float64(len(series))/90.0, 1)
	score += 40 * volume

	// Consistency: inverse of the coefficient of variation.
	mean := meanQuantity(series)
	if mean > 0 {
		cv := stdDevQuantity(series) / mean
		score += 30 * math.Max(0, 1-math.Min(cv, 1))
	}

	// Recent activity: any sales in the last 7 observed days.
	recent := series
	if len(recent) > 7 {
		recent = recent[len(recent)-7:]
	}
	for _, obs := range recent {
		if obs.Quantity > 0 {
			score += 15
			break
		}
	}

	// Coverage: fraction of days with any sales.
	nonZero := 0
	for _, obs := range series {
		if obs.Quantity > 0 {
			nonZero++
		}
	}
	score += 15 * float64(nonZero) / float64(len(series))

	if score > maxConfidence {
		score = maxConfidence
	}
	return int(math.Round(score))
}

func meanQuantity(series []domain.SalesObservation) float64 {
	if len(series) == 0 {
		return 0
	}
	var sum float64
	for _, obs := range series {
		sum += float64(obs.Quantity)
	}
	return sum / float64(len(series))
}

func stdDevQuantity(series []domain.SalesObservation) float64 {
	n := len(series)
	if n == 0 {
		return 0
	}
	mean := meanQuantity(series)
	var sq float64
	for _, obs := range series {
		d := float64(obs.Quantity) - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(n))
}

// StdDev exposes the daily-quantity standard deviation for the inventory
// safety stock model.
func StdDev(series []domain.SalesObservation) float64 {
	return stdDevQuantity(series)
}
