package forecast

import "github.com/andresuchdata/demandcast/internal/domain"

// factorEpsilon floors seasonal factors so a quiet weekday never forecasts
// permanent zero demand.
const factorEpsilon = 0.01

// defaultMonthFactors is a general annual retail curve: post-holiday trough
// in January, build-up through Q4. Per-product monthly history is too short
// to estimate reliably from a 90-day window, so a fixed profile is used.
var defaultMonthFactors = [12]float64{
	0.85, // Jan
	0.90, // Feb
	0.95, // Mar
	1.00, // Apr
	1.00, // May
	1.05, // Jun
	1.00, // Jul
	0.95, // Aug
	1.00, // Sep
	1.05, // Oct
	1.20, // Nov
	1.30, // Dec
}

// SeasonalDecomposer derives weekday demand multipliers from an observation
// series. Monthly factors come from the fixed default curve unless an
// override is configured.
type SeasonalDecomposer struct {
	monthFactors [12]float64
}

func NewSeasonalDecomposer(monthOverride []float64) *SeasonalDecomposer {
	d := &SeasonalDecomposer{monthFactors: defaultMonthFactors}
	if len(monthOverride) == 12 {
		for i, f := range monthOverride {
			if f > factorEpsilon {
				d.monthFactors[i] = f
			}
		}
	}
	return d
}

// Decompose computes per-weekday mean quantity divided by the overall mean.
// A zero overall mean or an unobserved weekday yields a factor of 1.
func (d *SeasonalDecomposer) Decompose(series []domain.SalesObservation) domain.SeasonalProfile {
	profile := domain.SeasonalProfile{MonthFactors: d.monthFactors}
	for i := range profile.WeekdayFactors {
		profile.WeekdayFactors[i] = 1
	}

	if len(series) == 0 {
		return profile
	}

	var total float64
	var sums [7]float64
	var counts [7]int
	for _, obs := range series {
		total += float64(obs.Quantity)
		sums[obs.Weekday] += float64(obs.Quantity)
		counts[obs.Weekday]++
	}

	overallMean := total / float64(len(series))
	if overallMean == 0 {
		return profile
	}

	for wd := 0; wd < 7; wd++ {
		if counts[wd] == 0 {
			continue
		}
		factor := (sums[wd] / float64(counts[wd])) / overallMean
		if factor < factorEpsilon {
			factor = factorEpsilon
		}
		profile.WeekdayFactors[wd] = factor
	}

	return profile
}
