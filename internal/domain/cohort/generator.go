package cohort

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/emcare/emcare/internal/domain/protocol"
	"github.com/emcare/emcare/internal/domain/scoring"
)

const (
	diagnosisCandidates = 3
	onsetWindow         = 30 * 24 * time.Hour
)

// DiagnosisSource supplies candidate diagnoses for a chief complaint.
type DiagnosisSource interface {
	DiagnosesFor(complaint string, limit int) []protocol.Diagnosis
}

type vitalRanges struct {
	hr, sbp, rr, spo2 [2]int
}

var (
	highSeverityVitals = vitalRanges{hr: [2]int{110, 160}, sbp: [2]int{70, 100}, rr: [2]int{24, 35}, spo2: [2]int{85, 92}}
	baselineVitals     = vitalRanges{hr: [2]int{60, 110}, sbp: [2]int{90, 160}, rr: [2]int{12, 22}, spo2: [2]int{92, 99}}
)

type bbox struct {
	lat, lon, latSpan, lonSpan float64
}

var districtBounds = map[string]bbox{
	"East Khasi Hills": {lat: 25.5, lon: 91.8, latSpan: 0.2, lonSpan: 0.2},
	"West Garo Hills":  {lat: 25.4, lon: 90.1, latSpan: 0.3, lonSpan: 0.3},
}

var regionBounds = bbox{lat: 25.3, lon: 90.5, latSpan: 0.6, lonSpan: 1.0}

// Options configures a Generator.
type Options struct {
	Seed int64
	// Lookup defaults to the static ICD table.
	Lookup DiagnosisSource
	// Clock anchors the onset window; defaults to time.Now.
	Clock func() time.Time
}

// Generator produces synthetic encounters. Output is fully determined by
// the seed and the clock. A Generator is not safe for concurrent use.
type Generator struct {
	seed   int64
	rng    *rand.Rand
	lookup DiagnosisSource
	clock  func() time.Time
}

// NewGenerator creates a generator from the given options.
func NewGenerator(opts Options) *Generator {
	if opts.Lookup == nil {
		opts.Lookup = protocol.Lookup{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Generator{
		seed:   opts.Seed,
		rng:    rand.New(rand.NewSource(opts.Seed)),
		lookup: opts.Lookup,
		clock:  opts.Clock,
	}
}

// Generate builds a dataset of n patients plus the facility roster.
func (g *Generator) Generate(n int) (*Dataset, error) {
	patients, err := g.Patients(n)
	if err != nil {
		return nil, err
	}
	return &Dataset{
		ID:          uuid.New(),
		Seed:        g.seed,
		GeneratedAt: g.clock(),
		Patients:    patients,
		Facilities:  g.Facilities(),
	}, nil
}

// Patients generates n encounters with ids starting at MEGH_00000.
func (g *Generator) Patients(n int) ([]PatientRecord, error) {
	return g.PatientsFrom(0, n)
}

// PatientsFrom generates n encounters with ids starting at start.
func (g *Generator) PatientsFrom(start, n int) ([]PatientRecord, error) {
	if n <= 0 {
		return nil, fmt.Errorf("patient count must be positive, got %d: %w", n, ErrInvalidInput)
	}
	if start < 0 {
		return nil, fmt.Errorf("start index must not be negative, got %d: %w", start, ErrInvalidInput)
	}
	now := g.clock()
	out := make([]PatientRecord, 0, n)
	for i := start; i < start+n; i++ {
		out = append(out, g.patient(i, now))
	}
	return out, nil
}

func (g *Generator) patient(i int, now time.Time) PatientRecord {
	p := PatientRecord{
		PatientID: fmt.Sprintf("MEGH_%05d", i),
		Age:       g.intBetween(18, 80),
		Sex:       pick(g.rng, []string{"M", "F"}),
		District:  pick(g.rng, Districts),
	}

	box, ok := districtBounds[p.District]
	if !ok {
		box = regionBounds
	}
	p.Lat = round(box.lat+g.rng.Float64()*box.latSpan, 4)
	p.Lon = round(box.lon+g.rng.Float64()*box.lonSpan, 4)

	p.Complaint = pick(g.rng, protocol.Complaints)
	p.ICDCode, p.Diagnosis = "R69", "Unknown"
	severity := ""
	if options := g.lookup.DiagnosesFor(p.Complaint, diagnosisCandidates); len(options) > 0 {
		d := options[g.rng.Intn(len(options))]
		p.ICDCode, p.Diagnosis, severity = d.Code, d.Diagnosis, d.Severity
	}

	r := baselineVitals
	if severity == protocol.SeverityHigh {
		r = highSeverityVitals
	}
	p.HR = g.intBetween(r.hr[0], r.hr[1])
	p.SBP = g.intBetween(r.sbp[0], r.sbp[1])
	p.RR = g.intBetween(r.rr[0], r.rr[1])
	p.SpO2 = g.intBetween(r.spo2[0], r.spo2[1])
	p.Temp = round(36.0+g.rng.Float64()*3.5, 1)

	p.NEWS2Score, p.TriageColor = scoring.Assess(p.Vitals())

	p.OnsetTime = now.Add(-time.Duration(g.rng.Int63n(int64(onsetWindow/time.Second))) * time.Second)
	p.FirstContactTime = p.OnsetTime.Add(time.Duration(g.intBetween(5, 120)) * time.Minute)

	p.Outcome = pick(g.rng, Outcomes)
	p.LengthOfStayHours = g.intBetween(1, 240)
	p.TransportTimeMinutes = g.intBetween(15, 180)
	return p
}

// intBetween draws uniformly from the closed interval [lo, hi].
func (g *Generator) intBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.rng.Intn(hi-lo+1)
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.Intn(len(values))]
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
