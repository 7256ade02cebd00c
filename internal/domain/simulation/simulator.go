// Package simulation replays a live emergency feed: every tick admits a batch
// of synthetic encounters into a fixed-size rolling window.
package simulation

import (
	"fmt"
	"sort"

	"github.com/emcare/emcare/internal/domain/cohort"
	"github.com/emcare/emcare/internal/domain/protocol"
)

const (
	DefaultWindow = 100
	DefaultBatch  = 15

	recentCritical   = 5
	immediateActions = 3
)

// Source generates encounters with ids starting at start.
type Source interface {
	PatientsFrom(start, n int) ([]cohort.PatientRecord, error)
}

// Options configures a Simulator. Zero sizes select the defaults.
type Options struct {
	Window int
	Batch  int
	Source Source
}

// CriticalCase is a RED encounter with its immediate actions.
type CriticalCase struct {
	PatientID        string   `json:"patient_id"`
	Complaint        string   `json:"complaint"`
	District         string   `json:"district"`
	Age              int      `json:"age"`
	HR               int      `json:"hr"`
	SBP              int      `json:"sbp"`
	SpO2             int      `json:"spo2"`
	Diagnosis        string   `json:"provisional_diagnosis"`
	ICDCode          string   `json:"icd_code"`
	ImmediateActions []string `json:"immediate_actions"`
}

// DistrictCount is the number of active encounters in a district.
type DistrictCount struct {
	District string `json:"district"`
	Cases    int    `json:"cases"`
}

// Snapshot describes the window after a tick.
type Snapshot struct {
	Cycle           int             `json:"cycle"`
	Active          int             `json:"active_emergencies"`
	Critical        int             `json:"critical_cases"`
	LatestComplaint string          `json:"latest_emergency,omitempty"`
	ActiveDistricts int             `json:"active_districts"`
	RecentCritical  []CriticalCase  `json:"recent_critical"`
	DistrictLoad    []DistrictCount `json:"district_load"`
}

// Simulator keeps the most recent encounters of a simulated feed. It is not
// safe for concurrent use.
type Simulator struct {
	window int
	batch  int
	source Source

	cases []cohort.PatientRecord
	next  int
	cycle int
}

// New validates the options and returns an empty simulator.
func New(opts Options) (*Simulator, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("simulation source is required: %w", cohort.ErrInvalidInput)
	}
	if opts.Window == 0 {
		opts.Window = DefaultWindow
	}
	if opts.Batch == 0 {
		opts.Batch = DefaultBatch
	}
	if opts.Batch < 0 || opts.Window < opts.Batch {
		return nil, fmt.Errorf("window %d must hold at least one batch of %d: %w", opts.Window, opts.Batch, cohort.ErrInvalidInput)
	}
	return &Simulator{window: opts.Window, batch: opts.Batch, source: opts.Source}, nil
}

// Tick admits one batch, evicts the oldest encounters beyond the window and
// returns the resulting snapshot.
func (s *Simulator) Tick() (*Snapshot, error) {
	batch, err := s.source.PatientsFrom(s.next, s.batch)
	if err != nil {
		return nil, fmt.Errorf("simulation tick %d: %w", s.cycle+1, err)
	}
	s.next += len(batch)
	s.cycle++

	s.cases = append(s.cases, batch...)
	if over := len(s.cases) - s.window; over > 0 {
		s.cases = append([]cohort.PatientRecord(nil), s.cases[over:]...)
	}
	return s.Snapshot(), nil
}

// Reset empties the window. Ids keep increasing across resets.
func (s *Simulator) Reset() {
	s.cases = nil
	s.cycle = 0
}

// Cases returns a copy of the active window, oldest first.
func (s *Simulator) Cases() []cohort.PatientRecord {
	return append([]cohort.PatientRecord(nil), s.cases...)
}

// Snapshot summarises the current window.
func (s *Simulator) Snapshot() *Snapshot {
	snap := &Snapshot{
		Cycle:          s.cycle,
		Active:         len(s.cases),
		RecentCritical: []CriticalCase{},
		DistrictLoad:   []DistrictCount{},
	}
	if len(s.cases) == 0 {
		return snap
	}
	snap.LatestComplaint = s.cases[len(s.cases)-1].Complaint

	load := map[string]int{}
	var critical []cohort.PatientRecord
	for _, p := range s.cases {
		load[p.District]++
		if p.IsCritical() {
			critical = append(critical, p)
		}
	}
	snap.Critical = len(critical)
	snap.ActiveDistricts = len(load)

	for d, n := range load {
		snap.DistrictLoad = append(snap.DistrictLoad, DistrictCount{District: d, Cases: n})
	}
	sort.Slice(snap.DistrictLoad, func(i, j int) bool {
		return snap.DistrictLoad[i].District < snap.DistrictLoad[j].District
	})

	if len(critical) > recentCritical {
		critical = critical[len(critical)-recentCritical:]
	}
	for _, p := range critical {
		snap.RecentCritical = append(snap.RecentCritical, CriticalCase{
			PatientID:        p.PatientID,
			Complaint:        p.Complaint,
			District:         p.District,
			Age:              p.Age,
			HR:               p.HR,
			SBP:              p.SBP,
			SpO2:             p.SpO2,
			Diagnosis:        p.Diagnosis,
			ICDCode:          p.ICDCode,
			ImmediateActions: actionsFor(p.Complaint),
		})
	}
	return snap
}

// actionsFor returns the first initial-assessment steps for a complaint, or
// none when no general protocol exists.
func actionsFor(complaint string) []string {
	p, err := protocol.ResuscitationSteps(complaint, "")
	if err != nil || !p.HasGeneralSteps() {
		return []string{}
	}
	steps := p.InitialAssessment
	if len(steps) > immediateActions {
		steps = steps[:immediateActions]
	}
	return append([]string(nil), steps...)
}
