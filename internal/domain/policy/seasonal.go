package policy

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/emcare/emcare/internal/domain/cohort"
)

// Season names.
const (
	Autumn  = "Autumn"
	Monsoon = "Monsoon"
	Summer  = "Summer"
	Winter  = "Winter"
)

// Seasons in tie-break order.
var Seasons = []string{Autumn, Monsoon, Summer, Winter}

// SeasonOf maps a month to its season: Winter Dec-Feb, Summer Mar-May,
// Monsoon Jun-Aug, Autumn Sep-Nov.
func SeasonOf(m time.Month) string {
	switch m {
	case time.December, time.January, time.February:
		return Winter
	case time.March, time.April, time.May:
		return Summer
	case time.June, time.July, time.August:
		return Monsoon
	default:
		return Autumn
	}
}

// SeasonalDemand projects per-complaint volume for every season observed in
// the cohort. A complaint's baseline is its mean count over the observed
// seasons; Current is the projection for the season of asOf, or the
// baseline when that season was never observed.
func SeasonalDemand(patients []cohort.PatientRecord, asOf time.Time) map[string]SeasonalProjection {
	counts := map[string]map[string]float64{}
	observed := map[string]bool{}
	for _, p := range patients {
		season := SeasonOf(p.FirstContactTime.Month())
		observed[season] = true
		if counts[p.Complaint] == nil {
			counts[p.Complaint] = map[string]float64{}
		}
		counts[p.Complaint][season]++
	}

	var seasons []string
	for _, s := range Seasons {
		if observed[s] {
			seasons = append(seasons, s)
		}
	}
	current := SeasonOf(asOf.Month())

	out := make(map[string]SeasonalProjection, len(counts))
	for complaint, bySeason := range counts {
		series := make([]float64, len(seasons))
		for i, s := range seasons {
			series[i] = bySeason[s]
		}
		baseline := stat.Mean(series, nil)

		proj := SeasonalProjection{Projected: make(map[string]float64, len(seasons))}
		for i, s := range seasons {
			factor := series[i] / baseline
			proj.Projected[s] = baseline * factor
		}
		if v, ok := proj.Projected[current]; ok {
			proj.Current = v
		} else {
			proj.Current = baseline
		}
		out[complaint] = proj
	}
	return out
}
