package policy

// Recommendation types and priorities.
const (
	TypeResourceAllocation = "RESOURCE_ALLOCATION"
	TypeInfrastructure     = "INFRASTRUCTURE"
	TypeSeasonalPlanning   = "SEASONAL_PLANNING"

	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"

	// AllDistricts marks a recommendation that applies region-wide.
	AllDistricts = "All"
)

// DistrictGap compares the case load of a district with its facility capacity.
type DistrictGap struct {
	District            string  `json:"district"`
	TotalCases          int     `json:"total_cases"`
	CriticalCases       int     `json:"critical_cases"`
	AvgTransportTime    float64 `json:"avg_transport_time"`
	ICUBeds             int     `json:"icu_beds"`
	ICUAvailable        int     `json:"icu_available"`
	GeneralBeds         int     `json:"general_beds"`
	GeneralAvailable    int     `json:"general_available"`
	ICUUtilization      float64 `json:"icu_utilization"`
	CriticalCasesPerBed float64 `json:"critical_cases_per_bed"`
}

// SeasonalProjection is the expected case volume of one complaint per season.
type SeasonalProjection struct {
	Current   float64            `json:"current"`
	Projected map[string]float64 `json:"projected"`
}

// Peak returns the season with the highest projection. Ties resolve to the
// alphabetically first season.
func (p SeasonalProjection) Peak() (string, float64) {
	peak, best := "", -1.0
	for _, s := range Seasons {
		v, ok := p.Projected[s]
		if ok && v > best {
			peak, best = s, v
		}
	}
	if peak == "" {
		return "", 0
	}
	return peak, best
}

// Corridor is a district with long transport times or a heavy critical load.
type Corridor struct {
	District         string  `json:"district"`
	AvgTransportTime float64 `json:"avg_transport_time"`
	MaxTransportTime int     `json:"max_transport_time"`
	TotalCases       int     `json:"total_cases"`
	CriticalCases    int     `json:"critical_cases"`
}

// Recommendation is one actionable planning item.
type Recommendation struct {
	Type           string `json:"type"`
	Priority       string `json:"priority"`
	District       string `json:"district"`
	Recommendation string `json:"recommendation"`
	Impact         string `json:"impact"`
}

// DistrictLoad summarises the encounters of one district.
type DistrictLoad struct {
	District         string  `json:"district"`
	TotalCases       int     `json:"total_cases"`
	CriticalCases    int     `json:"critical_cases"`
	AvgTransportTime float64 `json:"avg_transport_time"`
}

// Overview is the headline summary of a cohort.
type Overview struct {
	TotalPatients    int            `json:"total_patients"`
	Districts        int            `json:"districts_covered"`
	CriticalCases    int            `json:"critical_cases"`
	AvgTransportTime float64        `json:"avg_transport_time"`
	Triage           map[string]int `json:"triage_distribution"`
	Complaints       map[string]int `json:"complaint_distribution"`
	ByDistrict       []DistrictLoad `json:"by_district"`
}

// Forecast is a short-horizon case projection for one district.
type Forecast struct {
	District         string    `json:"district"`
	WeeklyCases      []float64 `json:"weekly_cases"`
	CriticalRatio    float64   `json:"critical_ratio"`
	ExpectedCritical float64   `json:"expected_critical"`
	ICUBedsToReserve int       `json:"icu_beds_to_reserve"`
	Ambulances       int       `json:"ambulance_deployments"`
}
