// Package session holds the live working set of the service: the current
// cohort, the trained triage model and the running simulation. Mutations are
// serialized so one regeneration or training run completes before the next
// begins; readers see immutable snapshots.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/emcare/emcare/internal/domain/cohort"
	"github.com/emcare/emcare/internal/domain/predictor"
	"github.com/emcare/emcare/internal/domain/simulation"
)

// Topics and kinds of the events a Store publishes.
const (
	TopicDataset    = "dataset"
	TopicModel      = "model"
	TopicSimulation = "simulation"

	EventDatasetRegenerated = "dataset.regenerated"
	EventModelTrained       = "model.trained"
	EventSimulationTick     = "simulation.tick"
	EventSimulationReset    = "simulation.reset"
)

// Publisher receives state changes.
type Publisher interface {
	Publish(ctx context.Context, topic, kind string, payload any) error
}

// DatasetSummary describes a cohort without its rows.
type DatasetSummary struct {
	ID          string    `json:"id"`
	Seed        int64     `json:"seed"`
	GeneratedAt time.Time `json:"generated_at"`
	Patients    int       `json:"patients"`
	Facilities  int       `json:"facilities"`
}

func Summarize(ds *cohort.Dataset) DatasetSummary {
	return DatasetSummary{
		ID:          ds.ID.String(),
		Seed:        ds.Seed,
		GeneratedAt: ds.GeneratedAt,
		Patients:    len(ds.Patients),
		Facilities:  len(ds.Facilities),
	}
}

// Options configures a Store.
type Options struct {
	Patients  int
	Seed      int64
	Trees     int
	SimWindow int
	SimBatch  int
	// Clock defaults to time.Now.
	Clock     func() time.Time
	Logger    zerolog.Logger
	Publisher Publisher
}

// Store is safe for concurrent use.
type Store struct {
	opts   Options
	logger zerolog.Logger

	// mu serializes regeneration and training.
	mu      sync.Mutex
	dataset *cohort.Dataset
	model   *predictor.TrainedModel

	simMu sync.Mutex
	sim   *simulation.Simulator

	// state guards the published pointers for readers.
	state sync.RWMutex
}

// New generates the initial cohort and prepares an idle simulator.
func New(opts Options) (*Store, error) {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Seed == 0 {
		opts.Seed = opts.Clock().UnixNano()
	}
	s := &Store{opts: opts, logger: opts.Logger.With().Str("component", "session").Logger()}

	if _, err := s.Regenerate(context.Background(), opts.Patients, opts.Seed); err != nil {
		return nil, err
	}
	sim, err := s.newSimulator()
	if err != nil {
		return nil, err
	}
	s.sim = sim
	return s, nil
}

func (s *Store) newSimulator() (*simulation.Simulator, error) {
	return simulation.New(simulation.Options{
		Window: s.opts.SimWindow,
		Batch:  s.opts.SimBatch,
		Source: cohort.NewGenerator(cohort.Options{Seed: s.opts.Clock().UnixNano(), Clock: s.opts.Clock}),
	})
}

// Dataset returns the current cohort.
func (s *Store) Dataset() *cohort.Dataset {
	s.state.RLock()
	defer s.state.RUnlock()
	return s.dataset
}

// Model returns the current model, or nil before the first training run.
func (s *Store) Model() *predictor.TrainedModel {
	s.state.RLock()
	defer s.state.RUnlock()
	return s.model
}

// Regenerate replaces the cohort with n fresh encounters. Zero n uses the
// configured cohort size and a zero seed picks a time-based one. The current
// model, if any, is kept.
func (s *Store) Regenerate(ctx context.Context, n int, seed int64) (*cohort.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n == 0 {
		n = s.opts.Patients
	}
	if seed == 0 {
		seed = s.opts.Clock().UnixNano()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	ds, err := cohort.NewGenerator(cohort.Options{Seed: seed, Clock: s.opts.Clock}).Generate(n)
	if err != nil {
		return nil, fmt.Errorf("regenerate cohort: %w", err)
	}

	s.state.Lock()
	s.dataset = ds
	s.state.Unlock()

	s.logger.Info().
		Str("dataset_id", ds.ID.String()).
		Int("patients", len(ds.Patients)).
		Int64("seed", seed).
		Dur("duration", time.Since(start)).
		Msg("cohort generated")
	s.publish(ctx, TopicDataset, EventDatasetRegenerated, Summarize(ds))
	return ds, nil
}

// Train fits a new model on the current cohort and publishes it.
func (s *Store) Train(ctx context.Context) (*predictor.TrainedModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ds := s.Dataset()
	start := time.Now()
	m, err := predictor.Train(ds.Patients, predictor.TrainOptions{Trees: s.opts.Trees})
	if err != nil {
		s.logger.Error().Err(err).Str("dataset_id", ds.ID.String()).Msg("training failed")
		return nil, err
	}

	s.state.Lock()
	s.model = m
	s.state.Unlock()

	s.logger.Info().
		Str("model_id", m.ID.String()).
		Str("dataset_id", ds.ID.String()).
		Float64("accuracy", m.Accuracy).
		Int("trees", m.Trees).
		Dur("duration", time.Since(start)).
		Msg("triage model trained")
	s.publish(ctx, TopicModel, EventModelTrained, m)
	return m, nil
}

// Predict classifies f with the current model.
func (s *Store) Predict(f predictor.Features) (*predictor.Prediction, error) {
	return s.Model().Predict(f)
}

// Tick advances the simulation by one batch.
func (s *Store) Tick() (*simulation.Snapshot, error) {
	s.simMu.Lock()
	defer s.simMu.Unlock()

	snap, err := s.sim.Tick()
	if err != nil {
		return nil, err
	}
	s.logger.Debug().
		Int("cycle", snap.Cycle).
		Int("active", snap.Active).
		Int("critical", snap.Critical).
		Msg("simulation tick")
	s.publish(context.Background(), TopicSimulation, EventSimulationTick, snap)
	return snap, nil
}

// Simulation returns the current simulation snapshot.
func (s *Store) Simulation() *simulation.Snapshot {
	s.simMu.Lock()
	defer s.simMu.Unlock()
	return s.sim.Snapshot()
}

// ResetSimulation clears the simulated feed.
func (s *Store) ResetSimulation() {
	s.simMu.Lock()
	defer s.simMu.Unlock()
	s.sim.Reset()
	s.logger.Info().Msg("simulation reset")
	s.publish(context.Background(), TopicSimulation, EventSimulationReset, s.sim.Snapshot())
}

func (s *Store) publish(ctx context.Context, topic, kind string, payload any) {
	if s.opts.Publisher == nil {
		return
	}
	if err := s.opts.Publisher.Publish(ctx, topic, kind, payload); err != nil {
		s.logger.Warn().Err(err).Str("topic", topic).Str("event", kind).Msg("failed to publish event")
	}
}
