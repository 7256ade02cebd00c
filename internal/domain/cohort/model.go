package cohort

import (
	"time"

	"github.com/google/uuid"

	"github.com/emcare/emcare/internal/domain/scoring"
)

// Districts of Meghalaya covered by the synthetic cohort.
var Districts = []string{
	"East Khasi Hills", "West Garo Hills", "East Garo Hills",
	"Ri-Bhoi", "South West Khasi Hills", "West Jaintia Hills",
	"East Jaintia Hills",
}

// Encounter outcomes.
var Outcomes = []string{"Admitted", "Discharged", "Transferred", "ICU", "Expired"}

// PatientRecord is one synthetic emergency encounter.
type PatientRecord struct {
	PatientID            string        `json:"patient_id"`
	Age                  int           `json:"age"`
	Sex                  string        `json:"sex"`
	District             string        `json:"district"`
	Complaint            string        `json:"complaint"`
	ICDCode              string        `json:"icd_code"`
	Diagnosis            string        `json:"provisional_diagnosis"`
	HR                   int           `json:"hr"`
	SBP                  int           `json:"sbp"`
	RR                   int           `json:"rr"`
	SpO2                 int           `json:"spo2"`
	Temp                 float64       `json:"temp"`
	NEWS2Score           int           `json:"news2_score"`
	TriageColor          scoring.Color `json:"triage_color"`
	OnsetTime            time.Time     `json:"onset_time"`
	FirstContactTime     time.Time     `json:"first_contact_time"`
	Lat                  float64       `json:"location_lat"`
	Lon                  float64       `json:"location_lon"`
	Outcome              string        `json:"outcome"`
	LengthOfStayHours    int           `json:"length_of_stay_hours"`
	TransportTimeMinutes int           `json:"transport_time_minutes"`
}

// Vitals returns the record's vital signs.
func (p PatientRecord) Vitals() scoring.Vitals {
	return scoring.Vitals{HR: p.HR, SBP: p.SBP, RR: p.RR, SpO2: p.SpO2, Temp: p.Temp}
}

// IsCritical reports whether the encounter was triaged RED.
func (p PatientRecord) IsCritical() bool {
	return p.TriageColor == scoring.Red
}

// FacilityRecord is a hospital in the regional reference roster.
type FacilityRecord struct {
	Name             string   `json:"name"`
	Type             string   `json:"type"`
	District         string   `json:"district"`
	Lat              float64  `json:"lat"`
	Lon              float64  `json:"lon"`
	ICUBeds          int      `json:"icu_beds"`
	ICUAvailable     int      `json:"icu_available"`
	GeneralBeds      int      `json:"general_beds"`
	GeneralAvailable int      `json:"general_available"`
	Specialties      []string `json:"specialties"`
	Contact          string   `json:"contact"`
	Level            string   `json:"level"`
}

// Dataset is one generated cohort together with the facility roster.
type Dataset struct {
	ID          uuid.UUID        `json:"id"`
	Seed        int64            `json:"seed"`
	GeneratedAt time.Time        `json:"generated_at"`
	Patients    []PatientRecord  `json:"patients"`
	Facilities  []FacilityRecord `json:"facilities"`
}
