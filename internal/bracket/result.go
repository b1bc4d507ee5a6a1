package bracket

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// TeamOutcome is one team's normalized result
type TeamOutcome struct {
	Name                    string  `json:"name"`
	Conference              string  `json:"conference"`
	Seed                    int     `json:"seed"`
	ExpectedGames           float64 `json:"expected_games"`
	ChampionshipProbability float64 `json:"championship_probability"`
	TotalGames              int64   `json:"total_games"`
	Championships           int64   `json:"championships"`
}

// Result is the normalized output of a run. It is not modified after Run
// returns it.
type Result struct {
	Trials       int           `json:"trials"`
	Seed         uint64        `json:"seed"`
	Workers      int           `json:"workers"`
	Policy       WinPolicy     `json:"policy"`
	SeasonLength int           `json:"season_length"`
	BestOf       int           `json:"best_of"`
	Duration     time.Duration `json:"duration"`
	Teams        []TeamOutcome `json:"teams"`
}

func newResult(f *Field, acc *Accumulator, trials int) *Result {
	r := &Result{
		Trials:       trials,
		Policy:       f.config.Policy,
		SeasonLength: f.config.SeasonLength,
		BestOf:       f.config.BestOf,
		Teams:        make([]TeamOutcome, f.Len()),
	}
	n := float64(trials)
	for i, t := range f.teams {
		r.Teams[i] = TeamOutcome{
			Name:                    t.Name,
			Conference:              t.Conference,
			Seed:                    t.Seed,
			ExpectedGames:           float64(acc.Games[i]) / n,
			ChampionshipProbability: float64(acc.Championships[i]) / n,
			TotalGames:              acc.Games[i],
			Championships:           acc.Championships[i],
		}
	}
	return r
}

// ExpectedGames maps team name to expected games played
func (r *Result) ExpectedGames() map[string]float64 {
	out := make(map[string]float64, len(r.Teams))
	for _, t := range r.Teams {
		out[t.Name] = t.ExpectedGames
	}
	return out
}

// ChampionshipProbabilities maps team name to the fraction of trials won
func (r *Result) ChampionshipProbabilities() map[string]float64 {
	out := make(map[string]float64, len(r.Teams))
	for _, t := range r.Teams {
		out[t.Name] = t.ChampionshipProbability
	}
	return out
}

// Outcome looks up a team's outcome by name
func (r *Result) Outcome(name string) (TeamOutcome, bool) {
	for _, t := range r.Teams {
		if t.Name == name {
			return t, true
		}
	}
	return TeamOutcome{}, false
}

// StdErr is the binomial standard error of a team's championship probability
func (r *Result) StdErr(name string) float64 {
	t, ok := r.Outcome(name)
	if !ok || r.Trials == 0 {
		return 0
	}
	p := t.ChampionshipProbability
	return stat.StdErr(math.Sqrt(p*(1-p)), float64(r.Trials))
}

// Ranked returns outcomes ordered by championship probability, then expected
// games, then name.
func (r *Result) Ranked() []TeamOutcome {
	out := make([]TeamOutcome, len(r.Teams))
	copy(out, r.Teams)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ChampionshipProbability != out[j].ChampionshipProbability {
			return out[i].ChampionshipProbability > out[j].ChampionshipProbability
		}
		if out[i].ExpectedGames != out[j].ExpectedGames {
			return out[i].ExpectedGames > out[j].ExpectedGames
		}
		return out[i].Name < out[j].Name
	})
	return out
}
