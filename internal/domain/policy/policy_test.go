package policy

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/emcare/emcare/internal/domain/cohort"
	"github.com/emcare/emcare/internal/domain/scoring"
)

var asOf = time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)

func patient(district string, color scoring.Color, transport int, contact time.Time) cohort.PatientRecord {
	return cohort.PatientRecord{
		PatientID:            "P",
		District:             district,
		Complaint:            "Cardiac",
		TriageColor:          color,
		TransportTimeMinutes: transport,
		FirstContactTime:     contact,
	}
}

func generated(t *testing.T, n int) ([]cohort.PatientRecord, []cohort.FacilityRecord) {
	t.Helper()
	ds, err := cohort.NewGenerator(cohort.Options{Seed: 42, Clock: func() time.Time { return asOf }}).Generate(n)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return ds.Patients, ds.Facilities
}

func TestResourceGaps(t *testing.T) {
	patients := []cohort.PatientRecord{
		patient("Ri-Bhoi", scoring.Red, 100, asOf),
		patient("Ri-Bhoi", scoring.Green, 50, asOf),
		patient("East Khasi Hills", scoring.Red, 30, asOf),
	}
	facilities := []cohort.FacilityRecord{
		{District: "East Khasi Hills", ICUBeds: 10, ICUAvailable: 1, GeneralBeds: 100, GeneralAvailable: 40},
		{District: "East Khasi Hills", ICUBeds: 10, ICUAvailable: 1},
		{District: "Ri-Bhoi", ICUBeds: 0, ICUAvailable: 0, GeneralBeds: 50},
	}

	gaps := ResourceGaps(patients, facilities)
	if len(gaps) != 2 {
		t.Fatalf("expected 2 districts, got %d", len(gaps))
	}
	ekh, rb := gaps[0], gaps[1]
	if ekh.District != "East Khasi Hills" || rb.District != "Ri-Bhoi" {
		t.Fatalf("unexpected order: %s, %s", ekh.District, rb.District)
	}
	if ekh.ICUBeds != 20 || ekh.ICUAvailable != 2 {
		t.Errorf("capacity not summed: %+v", ekh)
	}
	if math.Abs(ekh.ICUUtilization-0.9) > 1e-9 {
		t.Errorf("utilization = %v, want 0.9", ekh.ICUUtilization)
	}
	if rb.ICUUtilization != 0 {
		t.Errorf("zero-ICU district utilization = %v, want 0", rb.ICUUtilization)
	}
	if rb.CriticalCasesPerBed != 1 {
		t.Errorf("critical per bed = %v, want 1", rb.CriticalCasesPerBed)
	}
	if rb.TotalCases != 2 || rb.CriticalCases != 1 || rb.AvgTransportTime != 75 {
		t.Errorf("unexpected Ri-Bhoi load: %+v", rb)
	}
}

func TestResourceGaps_DistrictWithoutFacilities(t *testing.T) {
	gaps := ResourceGaps([]cohort.PatientRecord{patient("Ri-Bhoi", scoring.Red, 20, asOf)}, nil)
	if len(gaps) != 1 || gaps[0].ICUBeds != 0 || gaps[0].ICUUtilization != 0 {
		t.Errorf("unexpected gaps: %+v", gaps)
	}
}

func TestQuantile(t *testing.T) {
	tests := []struct {
		values []float64
		q      float64
		want   float64
	}{
		{[]float64{1, 2, 3, 4}, 0.75, 3.25},
		{[]float64{5}, 0.75, 5},
		{[]float64{4, 1, 3, 2, 5}, 0.5, 3},
		{[]float64{10, 0}, 1, 10},
		{nil, 0.75, 0},
	}
	for _, tt := range tests {
		if got := quantile(tt.values, tt.q); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("quantile(%v, %v) = %v, want %v", tt.values, tt.q, got, tt.want)
		}
	}
}

func TestHighRiskCorridors(t *testing.T) {
	var patients []cohort.PatientRecord
	// Slow transport, no critical cases.
	patients = append(patients, patient("A", scoring.Green, 120, asOf))
	// Fast transport, critical load above the upper quartile.
	for i := 0; i < 5; i++ {
		patients = append(patients, patient("B", scoring.Red, 20, asOf))
	}
	// Fast and light.
	patients = append(patients, patient("C", scoring.Red, 30, asOf))
	patients = append(patients, patient("D", scoring.Green, 30, asOf))

	corridors := HighRiskCorridors(patients, nil)
	got := map[string]Corridor{}
	for _, c := range corridors {
		got[c.District] = c
	}
	if len(got) != 2 {
		t.Fatalf("expected corridors A and B, got %+v", corridors)
	}
	if a, ok := got["A"]; !ok || a.MaxTransportTime != 120 {
		t.Errorf("A missing or wrong: %+v", a)
	}
	if b, ok := got["B"]; !ok || b.CriticalCases != 5 || b.TotalCases != 5 {
		t.Errorf("B missing or wrong: %+v", b)
	}
}

func TestSeasonOf(t *testing.T) {
	tests := map[time.Month]string{
		time.January: Winter, time.February: Winter, time.December: Winter,
		time.March: Summer, time.May: Summer,
		time.June: Monsoon, time.August: Monsoon,
		time.September: Autumn, time.November: Autumn,
	}
	for m, want := range tests {
		if got := SeasonOf(m); got != want {
			t.Errorf("SeasonOf(%s) = %s, want %s", m, got, want)
		}
	}
}

func TestSeasonalDemand(t *testing.T) {
	jan := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	jul := time.Date(2024, time.July, 10, 0, 0, 0, 0, time.UTC)
	var patients []cohort.PatientRecord
	for i := 0; i < 3; i++ {
		patients = append(patients, patient("A", scoring.Green, 10, jan))
	}
	patients = append(patients, patient("A", scoring.Green, 10, jul))
	stroke := patient("A", scoring.Green, 10, jul)
	stroke.Complaint = "Stroke"
	patients = append(patients, stroke)

	demand := SeasonalDemand(patients, asOf)
	cardiac := demand["Cardiac"]
	if len(cardiac.Projected) != 2 {
		t.Fatalf("expected projections for observed seasons only, got %v", cardiac.Projected)
	}
	if math.Abs(cardiac.Projected[Winter]-3) > 1e-9 || math.Abs(cardiac.Projected[Monsoon]-1) > 1e-9 {
		t.Errorf("unexpected projections: %v", cardiac.Projected)
	}
	if math.Abs(cardiac.Current-1) > 1e-9 {
		t.Errorf("current = %v, want the Monsoon projection 1", cardiac.Current)
	}

	// Stroke was never seen in winter but winter is observed, so it projects 0.
	if v, ok := demand["Stroke"].Projected[Winter]; !ok || v != 0 {
		t.Errorf("stroke winter projection = %v (present %v), want 0", v, ok)
	}

	unobserved := SeasonalDemand(patients, time.Date(2024, time.October, 1, 0, 0, 0, 0, time.UTC))
	if math.Abs(unobserved["Cardiac"].Current-2) > 1e-9 {
		t.Errorf("unobserved season current = %v, want baseline 2", unobserved["Cardiac"].Current)
	}
}

func TestSeasonalDemand_Properties(t *testing.T) {
	patients, _ := generated(t, 1000)
	for complaint, proj := range SeasonalDemand(patients, asOf) {
		_, peak := proj.Peak()
		if proj.Current < 0 {
			t.Errorf("%s: negative current %v", complaint, proj.Current)
		}
		for s, v := range proj.Projected {
			if v < 0 {
				t.Errorf("%s/%s: negative projection %v", complaint, s, v)
			}
		}
		if peak < proj.Current {
			t.Errorf("%s: peak %v below current %v", complaint, peak, proj.Current)
		}
	}
}

func TestRecommendations(t *testing.T) {
	jan := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	patients := []cohort.PatientRecord{
		patient("East Khasi Hills", scoring.Red, 120, asOf),
		patient("Ri-Bhoi", scoring.Green, 30, asOf),
		patient("Ri-Bhoi", scoring.Green, 30, jan),
		patient("Ri-Bhoi", scoring.Green, 30, jan),
		patient("Ri-Bhoi", scoring.Green, 30, jan),
	}
	facilities := []cohort.FacilityRecord{
		{District: "East Khasi Hills", ICUBeds: 10, ICUAvailable: 1},
		{District: "Ri-Bhoi", ICUBeds: 10, ICUAvailable: 5},
	}

	recs := Recommendations(patients, facilities, asOf)
	wantTypes := []string{TypeResourceAllocation, TypeInfrastructure, TypeSeasonalPlanning}
	if len(recs) != len(wantTypes) {
		t.Fatalf("expected %d recommendations, got %+v", len(wantTypes), recs)
	}
	for i, want := range wantTypes {
		if recs[i].Type != want {
			t.Errorf("recommendation %d type = %s, want %s", i, recs[i].Type, want)
		}
	}
	if recs[0].District != "East Khasi Hills" || !strings.Contains(recs[0].Recommendation, "90.0%") {
		t.Errorf("unexpected resource recommendation: %+v", recs[0])
	}
	if !strings.Contains(recs[1].Recommendation, "120min") {
		t.Errorf("unexpected infrastructure recommendation: %+v", recs[1])
	}
	if recs[2].District != AllDistricts || recs[2].Priority != PriorityMedium ||
		!strings.Contains(recs[2].Recommendation, "Winter surge in Cardiac") ||
		!strings.Contains(recs[2].Recommendation, "50%") {
		t.Errorf("unexpected seasonal recommendation: %+v", recs[2])
	}
}

func TestRecommendations_NoHighResourceBelowLimit(t *testing.T) {
	patients, facilities := generated(t, 1000)
	gaps := map[string]DistrictGap{}
	for _, g := range ResourceGaps(patients, facilities) {
		gaps[g.District] = g
	}
	for _, r := range Recommendations(patients, facilities, asOf) {
		if r.Type != TypeResourceAllocation {
			continue
		}
		if gaps[r.District].ICUUtilization <= icuUtilizationLimit {
			t.Errorf("%s: resource recommendation at utilization %v", r.District, gaps[r.District].ICUUtilization)
		}
	}
}

func TestEmptyInput(t *testing.T) {
	if got := ResourceGaps(nil, nil); len(got) != 0 {
		t.Errorf("ResourceGaps(nil) = %v", got)
	}
	if got := HighRiskCorridors(nil, nil); len(got) != 0 {
		t.Errorf("HighRiskCorridors(nil) = %v", got)
	}
	if got := SeasonalDemand(nil, asOf); len(got) != 0 {
		t.Errorf("SeasonalDemand(nil) = %v", got)
	}
	if got := Recommendations(nil, nil, asOf); got == nil || len(got) != 0 {
		t.Errorf("Recommendations(nil) = %v", got)
	}
	if _, err := BuildOverview(nil); !errors.Is(err, cohort.ErrEmptyDataset) {
		t.Errorf("BuildOverview(nil) error = %v, want ErrEmptyDataset", err)
	}
}

func TestBuildOverview(t *testing.T) {
	patients, _ := generated(t, 300)
	o, err := BuildOverview(patients)
	if err != nil {
		t.Fatalf("BuildOverview: %v", err)
	}
	if o.TotalPatients != 300 {
		t.Errorf("total = %d, want 300", o.TotalPatients)
	}
	sum, critical := 0, 0
	for _, d := range o.ByDistrict {
		sum += d.TotalCases
		critical += d.CriticalCases
	}
	if sum != 300 || critical != o.CriticalCases || o.Triage[string(scoring.Red)] != o.CriticalCases {
		t.Errorf("district table inconsistent with totals: %+v", o)
	}
	if o.Districts != len(o.ByDistrict) {
		t.Errorf("districts = %d, table has %d rows", o.Districts, len(o.ByDistrict))
	}
}

func TestDistrictForecast(t *testing.T) {
	base := time.Date(2024, time.June, 3, 9, 0, 0, 0, time.UTC) // Monday, ISO week 23
	var patients []cohort.PatientRecord
	// Weeks 23..27 carry 1..5 cases; only the last four count.
	for w := 0; w < 5; w++ {
		for i := 0; i <= w; i++ {
			color := scoring.Green
			if i == 0 {
				color = scoring.Red
			}
			patients = append(patients, patient("Ri-Bhoi", color, 30, base.AddDate(0, 0, 7*w)))
		}
	}
	patients = append(patients, patient("Other", scoring.Red, 30, base))

	f, err := DistrictForecast(patients, "Ri-Bhoi", DefaultForecastWeeks)
	if err != nil {
		t.Fatalf("DistrictForecast: %v", err)
	}
	want := []float64{3.5, 3.675, 3.85, 4.025}
	for i, w := range want {
		if math.Abs(f.WeeklyCases[i]-w) > 1e-9 {
			t.Errorf("week %d = %v, want %v", i, f.WeeklyCases[i], w)
		}
	}
	if math.Abs(f.CriticalRatio-5.0/15.0) > 1e-9 {
		t.Errorf("critical ratio = %v", f.CriticalRatio)
	}
	// expected = 15.05 / 3 ~= 5.017
	if f.ICUBedsToReserve != 7 || f.Ambulances != 1 {
		t.Errorf("reserves = %d ICU / %d ambulances, want 7 / 1", f.ICUBedsToReserve, f.Ambulances)
	}
}

func TestDistrictForecast_Errors(t *testing.T) {
	patients := []cohort.PatientRecord{patient("Ri-Bhoi", scoring.Green, 10, asOf)}
	if _, err := DistrictForecast(patients, "Nowhere", 4); !errors.Is(err, cohort.ErrEmptyDataset) {
		t.Errorf("unknown district error = %v, want ErrEmptyDataset", err)
	}
	if _, err := DistrictForecast(patients, "Ri-Bhoi", 0); !errors.Is(err, cohort.ErrInvalidInput) {
		t.Errorf("zero horizon error = %v, want ErrInvalidInput", err)
	}
	f, err := DistrictForecast(patients, "Ri-Bhoi", 4)
	if err != nil {
		t.Fatalf("DistrictForecast: %v", err)
	}
	if f.ICUBedsToReserve != 2 || f.Ambulances != 1 {
		t.Errorf("minimum reserves not applied: %+v", f)
	}
}
