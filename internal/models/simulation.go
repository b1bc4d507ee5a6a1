package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/stitts-dev/playoff-sim/internal/bracket"
)

// Run sources
const (
	SourceAPI       = "api"
	SourceScheduled = "scheduled"
	SourceCLI       = "cli"
)

// SimulationRun is one completed engine run with its inputs
type SimulationRun struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Source            string         `gorm:"size:20;not null;index" json:"source"`
	InputHash         string         `gorm:"size:64;not null;index" json:"input_hash"`
	Trials            int            `gorm:"not null" json:"trials"`
	Workers           int            `json:"workers"`
	Seed              string         `gorm:"size:20;not null" json:"seed"` // decimal uint64, out of range for signed columns
	Policy            string         `gorm:"size:40;not null" json:"policy"`
	CountOvertimeWins bool           `json:"count_overtime_wins"`
	SeasonLength      int            `gorm:"not null" json:"season_length"`
	BestOf            int            `gorm:"not null" json:"best_of"`
	DurationMS        int64          `json:"duration_ms"`
	Teams             datatypes.JSON `json:"teams"`
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`

	// Associations
	Projections []TeamProjection `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"projections,omitempty"`
}

func (SimulationRun) TableName() string {
	return "simulation_runs"
}

// BeforeCreate assigns an id when none was set
func (r *SimulationRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// TeamProjection is one team's normalized outcome within a run
type TeamProjection struct {
	ID                      uint      `gorm:"primaryKey" json:"-"`
	RunID                   uuid.UUID `gorm:"type:uuid;not null;index" json:"run_id"`
	Team                    string    `gorm:"size:50;not null" json:"team"`
	Conference              string    `gorm:"size:20;not null" json:"conference"`
	Seed                    int       `json:"seed"`
	ExpectedGames           float64   `json:"expected_games"`
	ChampionshipProbability float64   `json:"championship_probability"`
	TotalGames              int64     `json:"total_games"`
	Championships           int64     `json:"championships"`
}

func (TeamProjection) TableName() string {
	return "team_projections"
}

// NewSimulationRun snapshots a finished run. Projections keep the engine's
// team order.
func NewSimulationRun(result *bracket.Result, teams []bracket.Team, source, inputHash string) (*SimulationRun, error) {
	snapshot, err := json.Marshal(teams)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal teams: %w", err)
	}

	run := &SimulationRun{
		ID:                uuid.New(),
		Source:            source,
		InputHash:         inputHash,
		Trials:            result.Trials,
		Workers:           result.Workers,
		Seed:              strconv.FormatUint(result.Seed, 10),
		Policy:            result.Policy.String(),
		CountOvertimeWins: result.Policy.CountOvertimeWins,
		SeasonLength:      result.SeasonLength,
		BestOf:            result.BestOf,
		DurationMS:        result.Duration.Milliseconds(),
		Teams:             datatypes.JSON(snapshot),
	}
	for _, t := range result.Teams {
		run.Projections = append(run.Projections, TeamProjection{
			RunID:                   run.ID,
			Team:                    t.Name,
			Conference:              t.Conference,
			Seed:                    t.Seed,
			ExpectedGames:           t.ExpectedGames,
			ChampionshipProbability: t.ChampionshipProbability,
			TotalGames:              t.TotalGames,
			Championships:           t.Championships,
		})
	}
	return run, nil
}

// TeamRecords decodes the input snapshot
func (r *SimulationRun) TeamRecords() ([]bracket.Team, error) {
	var teams []bracket.Team
	if len(r.Teams) == 0 {
		return teams, nil
	}
	if err := json.Unmarshal(r.Teams, &teams); err != nil {
		return nil, fmt.Errorf("failed to unmarshal teams: %w", err)
	}
	return teams, nil
}

// ExpectedGames maps team name to expected games for player scoring
func (r *SimulationRun) ExpectedGames() map[string]float64 {
	out := make(map[string]float64, len(r.Projections))
	for _, p := range r.Projections {
		out[p.Team] = p.ExpectedGames
	}
	return out
}

// Result rebuilds the engine result from the stored row
func (r *SimulationRun) Result() (*bracket.Result, error) {
	seed, err := strconv.ParseUint(r.Seed, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid stored seed %q: %w", r.Seed, err)
	}
	policy := bracket.PolicyFor(r.CountOvertimeWins)

	res := &bracket.Result{
		Trials:       r.Trials,
		Seed:         seed,
		Workers:      r.Workers,
		Policy:       policy,
		SeasonLength: r.SeasonLength,
		BestOf:       r.BestOf,
		Duration:     time.Duration(r.DurationMS) * time.Millisecond,
	}
	for _, p := range r.Projections {
		res.Teams = append(res.Teams, bracket.TeamOutcome{
			Name:                    p.Team,
			Conference:              p.Conference,
			Seed:                    p.Seed,
			ExpectedGames:           p.ExpectedGames,
			ChampionshipProbability: p.ChampionshipProbability,
			TotalGames:              p.TotalGames,
			Championships:           p.Championships,
		})
	}
	return res, nil
}

// AllModels lists every table managed by migrations, parents first
func AllModels() []interface{} {
	return []interface{}{
		&SimulationRun{},
		&TeamProjection{},
	}
}

// Migrate creates or updates every table
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}
	return nil
}

// DropAll removes every table, children first
func DropAll(db *gorm.DB) error {
	all := AllModels()
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(all[i]); err != nil {
			return fmt.Errorf("failed to drop %T: %w", all[i], err)
		}
	}
	return nil
}
