package bracket

import "fmt"

const (
	// DefaultSeasonLength is the number of regular season games every record sums to
	DefaultSeasonLength = 48
	// DefaultBestOf is the playoff series length
	DefaultBestOf = 7
	// DefaultTrials is the number of full-bracket trials per run
	DefaultTrials = 100000
)

// Team holds one team's regular season record. Name is the identity key.
type Team struct {
	Name             string `json:"name"`
	Conference       string `json:"conference"`
	Seed             int    `json:"seed"`
	RegulationWins   int    `json:"regulation_wins"`
	RegulationLosses int    `json:"regulation_losses"`
	OvertimeWins     int    `json:"overtime_wins"`
	OvertimeLosses   int    `json:"overtime_losses"`
}

func (t Team) String() string {
	return t.Name
}

// GamesPlayed returns the season total across all four record columns
func (t Team) GamesPlayed() int {
	return t.RegulationWins + t.RegulationLosses + t.OvertimeWins + t.OvertimeLosses
}

// Validate checks the record against the season length
func (t Team) Validate(seasonLength int) error {
	if t.Name == "" {
		return &InvalidTeamError{Reason: "missing name"}
	}
	if t.Conference == "" {
		return &InvalidTeamError{Team: t.Name, Reason: "missing conference"}
	}
	if t.Seed <= 0 {
		return &InvalidTeamError{Team: t.Name, Reason: fmt.Sprintf("seed must be positive, got %d", t.Seed)}
	}
	if t.RegulationWins < 0 || t.RegulationLosses < 0 || t.OvertimeWins < 0 || t.OvertimeLosses < 0 {
		return &InvalidTeamError{Team: t.Name, Reason: "record columns must be non-negative"}
	}
	if gp := t.GamesPlayed(); gp != seasonLength {
		return &InvalidTeamError{
			Team:   t.Name,
			Reason: fmt.Sprintf("record sums to %d games, season length is %d", gp, seasonLength),
		}
	}
	return nil
}
