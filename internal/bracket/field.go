package bracket

import (
	"fmt"
	"math/bits"
	"sort"
)

// Config holds the rules shared by every series in a run
type Config struct {
	SeasonLength int       `json:"season_length"`
	BestOf       int       `json:"best_of"`
	Policy       WinPolicy `json:"policy"`
}

// DefaultConfig returns a 48 game season, best-of-7 series, regulation wins only
func DefaultConfig() Config {
	return Config{
		SeasonLength: DefaultSeasonLength,
		BestOf:       DefaultBestOf,
		Policy:       PolicyRegulationOnly,
	}
}

// WinsNeeded returns the series wins required to advance
func (c Config) WinsNeeded() int {
	return c.BestOf/2 + 1
}

func (c Config) validate() error {
	if c.SeasonLength <= 0 {
		return fmt.Errorf("season length must be positive, got %d", c.SeasonLength)
	}
	if c.BestOf <= 0 || c.BestOf%2 == 0 {
		return fmt.Errorf("series length must be a positive odd number, got %d", c.BestOf)
	}
	return nil
}

// Field is the validated set of teams for a run. Each team is identified by
// its index in the slice passed to NewField.
type Field struct {
	teams      []Team
	thresholds []int
	index      map[string]int
	config     Config
}

// NewField validates teams and the bracket shape. Every conference must hold
// the same power-of-two number of teams so that each round pairs perfectly.
func NewField(teams []Team, config Config) (*Field, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	if len(teams) < 2 {
		return nil, &BracketConfigurationError{Reason: fmt.Sprintf("need at least 2 teams, got %d", len(teams))}
	}

	f := &Field{
		teams:      make([]Team, len(teams)),
		thresholds: make([]int, len(teams)),
		index:      make(map[string]int, len(teams)),
		config:     config,
	}
	copy(f.teams, teams)

	seeds := make(map[string]map[int]string)
	for i, t := range f.teams {
		if err := t.Validate(config.SeasonLength); err != nil {
			return nil, err
		}
		if _, dup := f.index[t.Name]; dup {
			return nil, &BracketConfigurationError{Teams: []string{t.Name}, Reason: "duplicate team name"}
		}
		f.index[t.Name] = i

		if seeds[t.Conference] == nil {
			seeds[t.Conference] = make(map[int]string)
		}
		if other, dup := seeds[t.Conference][t.Seed]; dup {
			return nil, &BracketConfigurationError{
				Conference: t.Conference,
				Teams:      []string{other, t.Name},
				Reason:     fmt.Sprintf("duplicate seed %d", t.Seed),
			}
		}
		seeds[t.Conference][t.Seed] = t.Name

		f.thresholds[i] = config.Policy.Threshold(t)
	}

	if err := checkShape(seeds); err != nil {
		return nil, err
	}
	return f, nil
}

func checkShape(seeds map[string]map[int]string) error {
	confs := make([]string, 0, len(seeds))
	for c := range seeds {
		confs = append(confs, c)
	}
	sort.Strings(confs)

	if len(confs) != 2 {
		return &BracketConfigurationError{
			Teams:  confs,
			Reason: fmt.Sprintf("bracket needs exactly two conferences, got %d", len(confs)),
		}
	}
	a, b := len(seeds[confs[0]]), len(seeds[confs[1]])
	if a != b {
		return &BracketConfigurationError{
			Reason: fmt.Sprintf("conferences %s and %s have %d and %d teams", confs[0], confs[1], a, b),
		}
	}
	if bits.OnesCount(uint(a)) != 1 {
		return &BracketConfigurationError{
			Conference: confs[0],
			Reason:     fmt.Sprintf("%d teams per conference is not a power of two", a),
		}
	}
	return nil
}

// Len returns the number of teams
func (f *Field) Len() int {
	return len(f.teams)
}

// Team returns the team with the given id
func (f *Field) Team(id int) Team {
	return f.teams[id]
}

// Teams returns a copy of the teams in id order
func (f *Field) Teams() []Team {
	out := make([]Team, len(f.teams))
	copy(out, f.teams)
	return out
}

// ID looks up a team id by name
func (f *Field) ID(name string) (int, bool) {
	id, ok := f.index[name]
	return id, ok
}

// Threshold returns the per-game win threshold for id under the field's policy
func (f *Field) Threshold(id int) int {
	return f.thresholds[id]
}

func (f *Field) Config() Config {
	return f.config
}

// Rounds returns how many rounds one trial takes
func (f *Field) Rounds() int {
	return bits.Len(uint(len(f.teams))) - 1
}

// All returns every team id, the initial round state of a trial
func (f *Field) All() []int {
	ids := make([]int, len(f.teams))
	for i := range ids {
		ids[i] = i
	}
	return ids
}
