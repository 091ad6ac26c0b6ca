package forecast

import (
	"time"

	"github.com/andresuchdata/demandcast/internal/domain"
)

// Aggregator turns raw order lines into a gap-free daily sales series.
type Aggregator struct{}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// DailySeries sums quantity and revenue per calendar day over [start, start+windowDays)
// and emits exactly one observation per day, zero-filled where no events exist.
// A non-positive window yields an empty series; callers treat that as
// insufficient data.
func (a *Aggregator) DailySeries(lines []domain.OrderLine, start time.Time, windowDays int) []domain.SalesObservation {
	if windowDays <= 0 {
		return nil
	}

	start = truncateDay(start)

	type bucket struct {
		quantity int
		revenue  float64
	}
	byDay := make(map[time.Time]bucket, len(lines))
	for _, line := range lines {
		day := truncateDay(line.Date)
		if day.Before(start) || !day.Before(start.AddDate(0, 0, windowDays)) {
			continue
		}
		if line.Quantity < 0 {
			continue
		}
		b := byDay[day]
		b.quantity += line.Quantity
		b.revenue += line.Revenue
		byDay[day] = b
	}

	series := make([]domain.SalesObservation, 0, windowDays)
	for i := 0; i < windowDays; i++ {
		day := start.AddDate(0, 0, i)
		b := byDay[day]
		series = append(series, domain.SalesObservation{
			Date:     day,
			Quantity: b.quantity,
			Revenue:  b.revenue,
			Weekday:  int(day.Weekday()),
		})
	}

	return series
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
