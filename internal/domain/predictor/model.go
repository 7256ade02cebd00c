package predictor

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/emcare/emcare/internal/domain/cohort"
	"github.com/emcare/emcare/internal/domain/scoring"
)

const (
	// DefaultSeed fixes the split and the forest so demo runs are reproducible.
	DefaultSeed  = 42
	DefaultTrees = 100
	testFraction = 0.2
)

// FeatureNames is the model's input column order.
var FeatureNames = []string{"age", "hr", "sbp", "rr", "spo2", "temp", "complaint", "district"}

// Features is a single model input.
type Features struct {
	Age       int     `json:"age"`
	HR        int     `json:"hr"`
	SBP       int     `json:"sbp"`
	RR        int     `json:"rr"`
	SpO2      int     `json:"spo2"`
	Temp      float64 `json:"temp"`
	Complaint string  `json:"complaint"`
	District  string  `json:"district"`
}

// FeaturesOf extracts the model inputs from a patient record.
func FeaturesOf(p cohort.PatientRecord) Features {
	return Features{
		Age: p.Age, HR: p.HR, SBP: p.SBP, RR: p.RR, SpO2: p.SpO2, Temp: p.Temp,
		Complaint: p.Complaint, District: p.District,
	}
}

// Encoders bundles the categorical encoders fitted at training time.
type Encoders struct {
	Complaint *Encoder
	District  *Encoder
}

// FitEncoders builds the complaint and district vocabularies from records.
func FitEncoders(records []cohort.PatientRecord) Encoders {
	complaints := make([]string, len(records))
	districts := make([]string, len(records))
	for i, r := range records {
		complaints[i] = r.Complaint
		districts[i] = r.District
	}
	return Encoders{
		Complaint: NewEncoder("complaint", complaints),
		District:  NewEncoder("district", districts),
	}
}

// Row encodes one input in FeatureNames order.
func (e Encoders) Row(f Features) ([]float64, error) {
	complaint, err := e.Complaint.Encode(f.Complaint)
	if err != nil {
		return nil, err
	}
	district, err := e.District.Encode(f.District)
	if err != nil {
		return nil, err
	}
	return []float64{
		float64(f.Age), float64(f.HR), float64(f.SBP), float64(f.RR), float64(f.SpO2), f.Temp,
		float64(complaint), float64(district),
	}, nil
}

// PrepareFeatures encodes records into a feature matrix and label vector.
func PrepareFeatures(records []cohort.PatientRecord, enc Encoders) ([][]float64, []scoring.Color, error) {
	x := make([][]float64, 0, len(records))
	y := make([]scoring.Color, 0, len(records))
	for _, r := range records {
		row, err := enc.Row(FeaturesOf(r))
		if err != nil {
			return nil, nil, fmt.Errorf("record %s: %w", r.PatientID, err)
		}
		x = append(x, row)
		y = append(y, r.TriageColor)
	}
	return x, y, nil
}

// FeatureImportance is one entry of the importance ranking.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// TrainOptions tunes the forest. Zero values select the defaults.
type TrainOptions struct {
	Trees int
	Seed  int64
}

// TrainedModel bundles the fitted encoders and forest. It is immutable and
// safe to share between readers.
type TrainedModel struct {
	ID          uuid.UUID           `json:"id"`
	TrainedAt   time.Time           `json:"trained_at"`
	Accuracy    float64             `json:"accuracy"`
	Importances []FeatureImportance `json:"feature_importance"`
	Classes     []scoring.Color     `json:"classes"`
	TrainSize   int                 `json:"train_size"`
	TestSize    int                 `json:"test_size"`
	Trees       int                 `json:"trees"`

	encoders Encoders
	forest   *forest
}

// Prediction is the model output for one input.
type Prediction struct {
	Class         scoring.Color             `json:"predicted_class"`
	Probabilities map[scoring.Color]float64 `json:"class_probabilities"`
}

// Train fits a triage classifier on an 80/20 split of records and reports
// held-out accuracy and the feature importance ranking.
func Train(records []cohort.PatientRecord, opts TrainOptions) (*TrainedModel, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("train triage model: %w", cohort.ErrEmptyDataset)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("train triage model: need at least 2 records, got %d: %w", len(records), cohort.ErrInvalidInput)
	}
	if opts.Trees < 0 {
		return nil, fmt.Errorf("train triage model: tree count must be positive: %w", cohort.ErrInvalidInput)
	}
	if opts.Trees == 0 {
		opts.Trees = DefaultTrees
	}
	if opts.Seed == 0 {
		opts.Seed = DefaultSeed
	}

	enc := FitEncoders(records)
	x, labels, err := PrepareFeatures(records, enc)
	if err != nil {
		return nil, err
	}

	classes := distinctColors(labels)
	classIndex := make(map[scoring.Color]int, len(classes))
	for i, c := range classes {
		classIndex[c] = i
	}
	y := make([]int, len(labels))
	for i, l := range labels {
		y[i] = classIndex[l]
	}

	trainIdx, testIdx := split(len(records), opts.Seed)
	xTrain, yTrain := subset(x, y, trainIdx)
	f := fitForest(xTrain, yTrain, len(classes), opts.Trees, opts.Seed)

	correct := 0
	for _, i := range testIdx {
		if f.predict(x[i]) == y[i] {
			correct++
		}
	}

	ranking := make([]FeatureImportance, len(FeatureNames))
	for i, name := range FeatureNames {
		ranking[i] = FeatureImportance{Feature: name, Importance: f.importances[i]}
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Importance > ranking[j].Importance
	})

	return &TrainedModel{
		ID:          uuid.New(),
		TrainedAt:   time.Now(),
		Accuracy:    float64(correct) / float64(len(testIdx)),
		Importances: ranking,
		Classes:     classes,
		TrainSize:   len(trainIdx),
		TestSize:    len(testIdx),
		Trees:       opts.Trees,
		encoders:    enc,
		forest:      f,
	}, nil
}

// Predict classifies one input. A nil model reports ErrModelNotTrained.
func (m *TrainedModel) Predict(f Features) (*Prediction, error) {
	if m == nil || m.forest == nil {
		return nil, ErrModelNotTrained
	}
	row, err := m.encoders.Row(f)
	if err != nil {
		return nil, err
	}

	proba := m.forest.proba(row)
	out := &Prediction{Probabilities: make(map[scoring.Color]float64, len(scoring.Colors))}
	for _, c := range scoring.Colors {
		out.Probabilities[c] = 0
	}
	best := -1.0
	for i, c := range m.Classes {
		out.Probabilities[c] = proba[i]
		if proba[i] > best {
			best = proba[i]
			out.Class = c
		}
	}
	return out, nil
}

// Vocabulary returns the categories the model accepts for a column.
func (m *TrainedModel) Vocabulary(column string) []string {
	if m == nil {
		return nil
	}
	switch column {
	case "complaint":
		return m.encoders.Complaint.Values()
	case "district":
		return m.encoders.District.Values()
	}
	return nil
}

// split shuffles [0, n) and holds out ceil(0.2n) indices for testing.
func split(n int, seed int64) (train, test []int) {
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	nTest := int(math.Ceil(testFraction * float64(n)))
	if nTest >= n {
		nTest = n - 1
	}
	return perm[nTest:], perm[:nTest]
}

func subset(x [][]float64, y []int, idx []int) ([][]float64, []int) {
	xs := make([][]float64, len(idx))
	ys := make([]int, len(idx))
	for i, j := range idx {
		xs[i] = x[j]
		ys[i] = y[j]
	}
	return xs, ys
}

func distinctColors(labels []scoring.Color) []scoring.Color {
	seen := map[scoring.Color]bool{}
	var out []scoring.Color
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
