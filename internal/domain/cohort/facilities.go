package cohort

type facilitySeed struct {
	FacilityRecord
	icuAvail     [2]int
	generalAvail [2]int
}

var facilitySeeds = []facilitySeed{
	{
		FacilityRecord: FacilityRecord{
			Name: "NEIGRIHMS, Shillong", Type: "Public", District: "East Khasi Hills",
			Lat: 25.5788, Lon: 91.8933, ICUBeds: 30, GeneralBeds: 500,
			Specialties: []string{"Cardiology", "Neurosurgery", "Oncology", "Multi-specialty"},
			Contact:     "0364-2538010", Level: "Tertiary",
		},
		icuAvail: [2]int{5, 25}, generalAvail: [2]int{100, 300},
	},
	{
		FacilityRecord: FacilityRecord{
			Name: "Civil Hospital Shillong", Type: "Public", District: "East Khasi Hills",
			Lat: 25.5745, Lon: 91.8793, ICUBeds: 8, GeneralBeds: 300,
			Specialties: []string{"General Medicine", "Surgery", "Orthopedics"},
			Contact:     "0364-2220105", Level: "Secondary",
		},
		icuAvail: [2]int{1, 6}, generalAvail: [2]int{50, 200},
	},
	{
		FacilityRecord: FacilityRecord{
			Name: "KJP Synod Hospital", Type: "Private", District: "East Khasi Hills",
			Lat: 25.5720, Lon: 91.8815, ICUBeds: 6, GeneralBeds: 150,
			Specialties: []string{"General Medicine", "Surgery", "Maternal"},
			Contact:     "0364-2502111", Level: "Secondary",
		},
		icuAvail: [2]int{1, 4}, generalAvail: [2]int{30, 100},
	},
	{
		FacilityRecord: FacilityRecord{
			Name: "Tura Civil Hospital", Type: "Public", District: "West Garo Hills",
			Lat: 25.5145, Lon: 90.2201, ICUBeds: 4, GeneralBeds: 200,
			Specialties: []string{"General Medicine", "Surgery", "Emergency"},
			Contact:     "03651-222247", Level: "Secondary",
		},
		icuAvail: [2]int{0, 3}, generalAvail: [2]int{40, 120},
	},
	{
		FacilityRecord: FacilityRecord{
			Name: "Mawphlang CHC", Type: "Public", District: "East Khasi Hills",
			Lat: 25.4480, Lon: 91.8510, ICUBeds: 0, GeneralBeds: 50,
			Specialties: []string{"Primary Care", "Emergency"},
			Contact:     "0364-2570001", Level: "Primary",
		},
		icuAvail: [2]int{0, 0}, generalAvail: [2]int{10, 30},
	},
}

// Facilities returns the five-hospital roster with bed availability drawn
// inside each facility's capacity.
func (g *Generator) Facilities() []FacilityRecord {
	out := make([]FacilityRecord, 0, len(facilitySeeds))
	for _, s := range facilitySeeds {
		f := s.FacilityRecord
		f.Specialties = append([]string(nil), s.Specialties...)
		f.ICUAvailable = g.intBetween(s.icuAvail[0], s.icuAvail[1])
		f.GeneralAvailable = g.intBetween(s.generalAvail[0], s.generalAvail[1])
		out = append(out, f)
	}
	return out
}
