package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/playoff-sim/internal/bracket"
	"github.com/stitts-dev/playoff-sim/internal/models"
	"github.com/stitts-dev/playoff-sim/pkg/config"
)

// ErrTooManyTrials is returned when a request asks for more trials than the
// service allows.
var ErrTooManyTrials = errors.New("trial count exceeds the configured maximum")

// ProgressPublisher receives engine progress and lifecycle events for a run
type ProgressPublisher interface {
	PublishProgress(runID string, p bracket.Progress)
	PublishEvent(runID string, message interface{})
}

// RunCompletedEvent is published once a run is stored or served from cache
type RunCompletedEvent struct {
	Type       string `json:"type"`
	RunID      string `json:"run_id"`
	InputHash  string `json:"input_hash"`
	DurationMS int64  `json:"duration_ms"`
	Cached     bool   `json:"cached"`
}

// SimulationRequest describes one run. Zero values fall back to configuration.
type SimulationRequest struct {
	RunID             uuid.UUID
	Teams             []bracket.Team
	Trials            int
	Seed              uint64
	Workers           int
	CountOvertimeWins *bool
	Source            string
}

// SimulationService validates requests, runs the engine, persists the run and
// caches it by input hash.
type SimulationService struct {
	store     *RunStore
	cache     *CacheService
	publisher ProgressPublisher
	cfg       *config.Config
	logger    *logrus.Logger
}

func NewSimulationService(store *RunStore, cache *CacheService, publisher ProgressPublisher, cfg *config.Config, logger *logrus.Logger) *SimulationService {
	return &SimulationService{
		store:     store,
		cache:     cache,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// Simulate runs or reuses a simulation. The boolean reports a cache hit.
// Only runs with an explicit seed and no preset run id are looked up in the
// cache: a time seeded run is not reproducible, and a caller that picked a
// run id is waiting for progress under that id.
func (s *SimulationService) Simulate(ctx context.Context, req SimulationRequest) (*models.SimulationRun, bool, error) {
	trials := req.Trials
	if trials <= 0 {
		trials = s.cfg.SimulationTrials
	}
	if trials > s.cfg.MaxSimulationTrials {
		return nil, false, fmt.Errorf("%w: %d > %d", ErrTooManyTrials, trials, s.cfg.MaxSimulationTrials)
	}
	workers := req.Workers
	if workers <= 0 {
		workers = s.cfg.SimulationWorkers
	}
	source := req.Source
	if source == "" {
		source = models.SourceAPI
	}

	bc := s.cfg.Bracket()
	if req.CountOvertimeWins != nil {
		bc.Policy = bracket.PolicyFor(*req.CountOvertimeWins)
	}
	field, err := bracket.NewField(req.Teams, bc)
	if err != nil {
		return nil, false, err
	}

	seed := req.Seed
	if seed == 0 {
		seed = s.cfg.SimulationSeed
	}
	cacheable := seed != 0
	if !cacheable {
		seed = bracket.NewSeed()
	}
	hash := InputHash(field.Teams(), trials, seed, bc)

	if cacheable && req.RunID == uuid.Nil {
		var cached models.SimulationRun
		if err := s.cache.Get(ctx, SimulationCacheKey(hash), &cached); err == nil {
			s.logger.WithField("input_hash", hash).Debug("Simulation cache hit")
			s.publishCompleted(&cached, true)
			return &cached, true, nil
		} else if !errors.Is(err, ErrCacheMiss) {
			s.logger.WithError(err).Warn("Simulation cache lookup failed")
		}
	}

	runID := req.RunID
	if runID == uuid.Nil {
		runID = uuid.New()
	}
	log := s.logger.WithFields(logrus.Fields{
		"run_id": runID.String(),
		"source": source,
		"trials": trials,
		"seed":   seed,
		"policy": bc.Policy.String(),
	})

	opts := bracket.Options{
		Trials:  trials,
		Workers: workers,
		Seed:    seed,
		Logger:  s.logger,
	}
	if s.publisher != nil {
		id := runID.String()
		opts.Observer = func(p bracket.Progress) {
			s.publisher.PublishProgress(id, p)
		}
	}

	result, err := bracket.NewSimulator(field, opts).Run(ctx)
	if err != nil {
		log.WithError(err).Error("Simulation failed")
		return nil, false, err
	}

	run, err := models.NewSimulationRun(result, field.Teams(), source, hash)
	if err != nil {
		return nil, false, err
	}
	run.ID = runID
	for i := range run.Projections {
		run.Projections[i].RunID = runID
	}
	if err := s.store.Save(ctx, run); err != nil {
		return nil, false, err
	}

	if cacheable {
		if err := s.cache.SetWithRetry(ctx, SimulationCacheKey(hash), run, s.cacheTTL(), 3); err != nil {
			log.WithError(err).Warn("Failed to cache simulation run")
		}
	}
	if err := s.cache.Set(ctx, RunCacheKey(run.ID.String()), run, s.cacheTTL()); err != nil {
		log.WithError(err).Warn("Failed to cache simulation run by id")
	}

	log.WithField("duration_ms", run.DurationMS).Info("Simulation run stored")
	s.publishCompleted(run, false)
	return run, false, nil
}

func (s *SimulationService) publishCompleted(run *models.SimulationRun, cached bool) {
	if s.publisher == nil {
		return
	}
	id := run.ID.String()
	s.publisher.PublishEvent(id, RunCompletedEvent{
		Type:       "completed",
		RunID:      id,
		InputHash:  run.InputHash,
		DurationMS: run.DurationMS,
		Cached:     cached,
	})
}

func (s *SimulationService) cacheTTL() time.Duration {
	if s.cfg.CacheTTL <= 0 {
		return 30 * time.Minute
	}
	return s.cfg.CacheTTL
}

// Get loads a run, preferring the cached copy
func (s *SimulationService) Get(ctx context.Context, id uuid.UUID) (*models.SimulationRun, error) {
	key := RunCacheKey(id.String())
	var cached models.SimulationRun
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	run, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, run, s.cacheTTL()); err != nil {
		s.logger.WithError(err).Warn("Failed to cache simulation run by id")
	}
	return run, nil
}

// List pages through stored runs
func (s *SimulationService) List(ctx context.Context, page, perPage int) ([]models.SimulationRun, int64, error) {
	return s.store.List(ctx, page, perPage)
}

// Latest returns the newest stored run, optionally restricted to one source
func (s *SimulationService) Latest(ctx context.Context, source string) (*models.SimulationRun, error) {
	return s.store.Latest(ctx, source)
}

// Prune deletes runs older than age along with their cached copies. The
// input hash keys go too, so a later seeded request never resolves to a
// deleted run.
func (s *SimulationService) Prune(ctx context.Context, age time.Duration) (int64, error) {
	pruned, err := s.store.DeleteOlderThan(ctx, time.Now().UTC().Add(-age))
	if err != nil {
		return 0, err
	}

	keys := make([]string, 0, 2*len(pruned))
	for _, run := range pruned {
		keys = append(keys, RunCacheKey(run.ID.String()))
		if run.InputHash != "" {
			keys = append(keys, SimulationCacheKey(run.InputHash))
		}
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.WithError(err).Warn("Failed to evict pruned runs from cache")
	}
	return int64(len(pruned)), nil
}
