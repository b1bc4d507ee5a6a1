package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/playoff-sim/internal/loader"
	"github.com/stitts-dev/playoff-sim/internal/models"
)

// Scheduler reruns the configured team table on a cron schedule and stores
// each run with source "scheduled".
type Scheduler struct {
	simulations *SimulationService
	teamsFile   string
	schedule    string
	timeout     time.Duration
	logger      *logrus.Logger
	cron        *cron.Cron
	mu          sync.Mutex
	isRunning   bool
	lastRunID   string
	lastError   error
}

func NewScheduler(simulations *SimulationService, teamsFile, schedule string, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		simulations: simulations,
		teamsFile:   teamsFile,
		schedule:    schedule,
		timeout:     30 * time.Minute,
		logger:      logger,
		cron:        cron.New(),
	}
}

// Start registers the rerun job. An empty schedule leaves the scheduler idle.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if s.schedule == "" {
		s.logger.Info("No rerun schedule configured, scheduler idle")
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.scheduledRerun); err != nil {
		return fmt.Errorf("failed to schedule rerun %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("schedule", s.schedule).Info("Rerun scheduler started")
	return nil
}

// Stop halts the schedule and waits for a running job to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.logger.Info("Rerun scheduler stopped")
}

func (s *Scheduler) scheduledRerun() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.RunNow(ctx); err != nil {
		s.logger.WithError(err).Error("Scheduled rerun failed")
	}
}

// RunNow loads the team table and runs a simulation immediately
func (s *Scheduler) RunNow(ctx context.Context) (*models.SimulationRun, error) {
	teams, err := loader.LoadTeams(s.teamsFile, loader.Options{})
	if err != nil {
		s.record("", err)
		return nil, err
	}

	run, _, err := s.simulations.Simulate(ctx, SimulationRequest{
		Teams:  teams,
		Source: models.SourceScheduled,
	})
	if err != nil {
		s.record("", err)
		return nil, err
	}

	s.logger.WithField("run_id", run.ID.String()).Info("Rerun completed")
	s.record(run.ID.String(), nil)
	return run, nil
}

func (s *Scheduler) record(runID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if runID != "" {
		s.lastRunID = runID
	}
	s.lastError = err
}

// Status reports the schedule, next fire times and the last outcome
func (s *Scheduler) Status() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	nextRuns := make([]time.Time, 0, len(entries))
	for _, entry := range entries {
		nextRuns = append(nextRuns, entry.Next)
	}

	status := map[string]interface{}{
		"is_running":  s.isRunning,
		"schedule":    s.schedule,
		"teams_file":  s.teamsFile,
		"next_runs":   nextRuns,
		"last_run_id": s.lastRunID,
	}
	if s.lastError != nil {
		status["last_error"] = s.lastError.Error()
	}
	return status
}
