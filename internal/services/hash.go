package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/stitts-dev/playoff-sim/internal/bracket"
)

type hashInput struct {
	Teams        []bracket.Team `json:"teams"`
	Trials       int            `json:"trials"`
	Seed         uint64         `json:"seed"`
	Policy       string         `json:"policy"`
	OT           bool           `json:"ot"`
	Rejection    string         `json:"rejection"`
	SeasonLength int            `json:"season_length"`
	BestOf       int            `json:"best_of"`
}

// InputHash identifies everything that determines a run's result. Worker
// count is left out because results do not depend on it.
func InputHash(teams []bracket.Team, trials int, seed uint64, cfg bracket.Config) string {
	data, _ := json.Marshal(hashInput{
		Teams:        teams,
		Trials:       trials,
		Seed:         seed,
		Policy:       cfg.Policy.Name,
		OT:           cfg.Policy.CountOvertimeWins,
		Rejection:    cfg.Policy.Rejection.String(),
		SeasonLength: cfg.SeasonLength,
		BestOf:       cfg.BestOf,
	})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
