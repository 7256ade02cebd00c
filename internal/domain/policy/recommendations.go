package policy

import (
	"fmt"
	"sort"
	"time"

	"github.com/emcare/emcare/internal/domain/cohort"
)

const (
	icuUtilizationLimit    = 0.8
	infrastructureMinutes  = 90
	seasonalSurgeThreshold = 1.3
)

// Recommendations derives planning actions from the resource, corridor and
// seasonal analyses, in that order. Within a group districts and
// complaints appear in alphabetical order.
func Recommendations(patients []cohort.PatientRecord, facilities []cohort.FacilityRecord, asOf time.Time) []Recommendation {
	out := []Recommendation{}

	for _, g := range ResourceGaps(patients, facilities) {
		if g.ICUUtilization <= icuUtilizationLimit {
			continue
		}
		out = append(out, Recommendation{
			Type:           TypeResourceAllocation,
			Priority:       PriorityHigh,
			District:       g.District,
			Recommendation: fmt.Sprintf("Increase ICU bed capacity in %s. Current utilization: %.1f%%", g.District, g.ICUUtilization*100),
			Impact:         "Reduce critical case transfer delays",
		})
	}

	for _, c := range HighRiskCorridors(patients, facilities) {
		if c.AvgTransportTime <= infrastructureMinutes {
			continue
		}
		out = append(out, Recommendation{
			Type:           TypeInfrastructure,
			Priority:       PriorityHigh,
			District:       c.District,
			Recommendation: fmt.Sprintf("Improve emergency transport infrastructure in %s. Avg transport time: %.0fmin", c.District, c.AvgTransportTime),
			Impact:         "Reduce mortality in time-sensitive emergencies",
		})
	}

	demand := SeasonalDemand(patients, asOf)
	complaints := make([]string, 0, len(demand))
	for c := range demand {
		complaints = append(complaints, c)
	}
	sort.Strings(complaints)

	for _, complaint := range complaints {
		proj := demand[complaint]
		season, peak := proj.Peak()
		if peak <= proj.Current*seasonalSurgeThreshold {
			continue
		}
		text := fmt.Sprintf("Prepare for %s surge in %s cases.", season, complaint)
		if proj.Current > 0 {
			text += fmt.Sprintf(" Expected increase: %.0f%%", (peak/proj.Current-1)*100)
		}
		out = append(out, Recommendation{
			Type:           TypeSeasonalPlanning,
			Priority:       PriorityMedium,
			District:       AllDistricts,
			Recommendation: text,
			Impact:         "Better resource allocation during peak seasons",
		})
	}
	return out
}
