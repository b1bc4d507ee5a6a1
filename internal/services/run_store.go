package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stitts-dev/playoff-sim/internal/models"
	"github.com/stitts-dev/playoff-sim/pkg/database"
)

var ErrRunNotFound = errors.New("simulation run not found")

// RunStore persists simulation runs and their team projections
type RunStore struct {
	db *database.DB
}

func NewRunStore(db *database.DB) *RunStore {
	return &RunStore{db: db}
}

func orderedProjections(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

// Save inserts a run together with its projections
func (s *RunStore) Save(ctx context.Context, run *models.SimulationRun) error {
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to save simulation run: %w", err)
	}
	return nil
}

// Get loads one run with projections in engine order
func (s *RunStore) Get(ctx context.Context, id uuid.UUID) (*models.SimulationRun, error) {
	var run models.SimulationRun
	err := s.db.WithContext(ctx).
		Preload("Projections", orderedProjections).
		Where("id = ?", id).
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to fetch simulation run: %w", err)
	}
	return &run, nil
}

// List returns one page of runs, newest first, without projections
func (s *RunStore) List(ctx context.Context, page, perPage int) ([]models.SimulationRun, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.SimulationRun{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count simulation runs: %w", err)
	}

	var runs []models.SimulationRun
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&runs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list simulation runs: %w", err)
	}
	return runs, total, nil
}

// Latest returns the newest run, optionally restricted to one source
func (s *RunStore) Latest(ctx context.Context, source string) (*models.SimulationRun, error) {
	q := s.db.WithContext(ctx).Preload("Projections", orderedProjections).Order("created_at DESC")
	if source != "" {
		q = q.Where("source = ?", source)
	}

	var run models.SimulationRun
	if err := q.First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to fetch latest simulation run: %w", err)
	}
	return &run, nil
}

// PrunedRun identifies a deleted run and the input hash it was cached under
type PrunedRun struct {
	ID        uuid.UUID
	InputHash string
}

// DeleteOlderThan removes runs created before cutoff and returns what was
// removed
func (s *RunStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]PrunedRun, error) {
	var pruned []PrunedRun
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.SimulationRun{}).
			Select("id", "input_hash").
			Where("created_at < ?", cutoff).
			Find(&pruned).Error
		if err != nil {
			return err
		}
		if len(pruned) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, len(pruned))
		for i, p := range pruned {
			ids[i] = p.ID
		}
		if err := tx.Where("run_id IN ?", ids).Delete(&models.TeamProjection{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&models.SimulationRun{}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to prune simulation runs: %w", err)
	}
	return pruned, nil
}
