package policy

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/emcare/emcare/internal/domain/cohort"
)

const (
	// DefaultForecastWeeks is the horizon used by the dashboard.
	DefaultForecastWeeks = 4

	trendWeeks       = 4
	weeklyGrowth     = 0.05
	icuReserveFactor = 1.5
	ambulanceFactor  = 0.3
	minICUReserve    = 2
	minAmbulances    = 1
)

type isoWeek struct{ year, week int }

// DistrictForecast projects weekly case volume for a district from the mean
// of its last four observed ISO weeks, growing 5% per week, and sizes ICU
// and ambulance reserves from the expected critical share.
func DistrictForecast(patients []cohort.PatientRecord, district string, weeks int) (*Forecast, error) {
	if weeks <= 0 {
		return nil, fmt.Errorf("forecast horizon must be positive, got %d: %w", weeks, cohort.ErrInvalidInput)
	}

	counts := map[isoWeek]float64{}
	total, critical := 0, 0
	for _, p := range patients {
		if p.District != district {
			continue
		}
		y, w := p.FirstContactTime.ISOWeek()
		counts[isoWeek{y, w}]++
		total++
		if p.IsCritical() {
			critical++
		}
	}
	if total == 0 {
		return nil, fmt.Errorf("forecast %q: %w", district, cohort.ErrEmptyDataset)
	}

	keys := make([]isoWeek, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].week < keys[j].week
	})
	if len(keys) > trendWeeks {
		keys = keys[len(keys)-trendWeeks:]
	}
	recent := make([]float64, len(keys))
	for i, k := range keys {
		recent[i] = counts[k]
	}
	level := stat.Mean(recent, nil)

	f := &Forecast{
		District:      district,
		WeeklyCases:   make([]float64, weeks),
		CriticalRatio: float64(critical) / float64(total),
	}
	sum := 0.0
	for i := range f.WeeklyCases {
		f.WeeklyCases[i] = level * (1 + weeklyGrowth*float64(i))
		sum += f.WeeklyCases[i]
	}
	f.ExpectedCritical = sum * f.CriticalRatio
	f.ICUBedsToReserve = max(minICUReserve, int(f.ExpectedCritical*icuReserveFactor))
	f.Ambulances = max(minAmbulances, int(f.ExpectedCritical*ambulanceFactor))
	return f, nil
}
