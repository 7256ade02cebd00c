package policy

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/emcare/emcare/internal/domain/cohort"
)

const (
	corridorTransportMinutes = 60
	corridorCriticalQuantile = 0.75
)

type districtStats struct {
	name         string
	total        int
	critical     int
	transport    []float64
	maxTransport int
}

func (s *districtStats) avgTransport() float64 {
	if len(s.transport) == 0 {
		return 0
	}
	return stat.Mean(s.transport, nil)
}

// byDistrict groups encounters per district, sorted by district name.
func byDistrict(patients []cohort.PatientRecord) []*districtStats {
	index := map[string]*districtStats{}
	for _, p := range patients {
		s, ok := index[p.District]
		if !ok {
			s = &districtStats{name: p.District}
			index[p.District] = s
		}
		s.total++
		if p.IsCritical() {
			s.critical++
		}
		s.transport = append(s.transport, float64(p.TransportTimeMinutes))
		if p.TransportTimeMinutes > s.maxTransport {
			s.maxTransport = p.TransportTimeMinutes
		}
	}

	out := make([]*districtStats, 0, len(index))
	for _, s := range index {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

type capacity struct {
	icuBeds, icuAvailable, generalBeds, generalAvailable int
}

func capacityByDistrict(facilities []cohort.FacilityRecord) map[string]capacity {
	out := map[string]capacity{}
	for _, f := range facilities {
		c := out[f.District]
		c.icuBeds += f.ICUBeds
		c.icuAvailable += f.ICUAvailable
		c.generalBeds += f.GeneralBeds
		c.generalAvailable += f.GeneralAvailable
		out[f.District] = c
	}
	return out
}

// ResourceGaps joins the case load of every district seen in patients with
// the facility capacity in that district. Districts without facilities
// report zero capacity and zero utilization.
func ResourceGaps(patients []cohort.PatientRecord, facilities []cohort.FacilityRecord) []DistrictGap {
	capByDistrict := capacityByDistrict(facilities)
	stats := byDistrict(patients)

	out := make([]DistrictGap, 0, len(stats))
	for _, s := range stats {
		c := capByDistrict[s.name]
		g := DistrictGap{
			District:         s.name,
			TotalCases:       s.total,
			CriticalCases:    s.critical,
			AvgTransportTime: s.avgTransport(),
			ICUBeds:          c.icuBeds,
			ICUAvailable:     c.icuAvailable,
			GeneralBeds:      c.generalBeds,
			GeneralAvailable: c.generalAvailable,
		}
		if c.icuBeds > 0 {
			g.ICUUtilization = 1 - float64(c.icuAvailable)/float64(c.icuBeds)
		}
		beds := c.icuBeds
		if beds == 0 {
			beds = 1
		}
		g.CriticalCasesPerBed = float64(s.critical) / float64(beds)
		out = append(out, g)
	}
	return out
}

// HighRiskCorridors returns the districts whose mean transport time exceeds
// an hour or whose critical count is above the upper quartile across
// districts.
func HighRiskCorridors(patients []cohort.PatientRecord, _ []cohort.FacilityRecord) []Corridor {
	stats := byDistrict(patients)
	if len(stats) == 0 {
		return []Corridor{}
	}

	critical := make([]float64, len(stats))
	for i, s := range stats {
		critical[i] = float64(s.critical)
	}
	threshold := quantile(critical, corridorCriticalQuantile)

	out := []Corridor{}
	for _, s := range stats {
		avg := s.avgTransport()
		if avg <= corridorTransportMinutes && float64(s.critical) <= threshold {
			continue
		}
		out = append(out, Corridor{
			District:         s.name,
			AvgTransportTime: avg,
			MaxTransportTime: s.maxTransport,
			TotalCases:       s.total,
			CriticalCases:    s.critical,
		})
	}
	return out
}

// BuildOverview summarises a cohort. An empty cohort has no mean transport
// time and reports ErrEmptyDataset.
func BuildOverview(patients []cohort.PatientRecord) (*Overview, error) {
	if len(patients) == 0 {
		return nil, fmt.Errorf("overview: %w", cohort.ErrEmptyDataset)
	}

	o := &Overview{
		TotalPatients: len(patients),
		Triage:        map[string]int{},
		Complaints:    map[string]int{},
	}
	transport := make([]float64, len(patients))
	for i, p := range patients {
		transport[i] = float64(p.TransportTimeMinutes)
		o.Triage[string(p.TriageColor)]++
		o.Complaints[p.Complaint]++
		if p.IsCritical() {
			o.CriticalCases++
		}
	}
	o.AvgTransportTime = stat.Mean(transport, nil)

	for _, s := range byDistrict(patients) {
		o.ByDistrict = append(o.ByDistrict, DistrictLoad{
			District:         s.name,
			TotalCases:       s.total,
			CriticalCases:    s.critical,
			AvgTransportTime: s.avgTransport(),
		})
	}
	o.Districts = len(o.ByDistrict)
	return o, nil
}
