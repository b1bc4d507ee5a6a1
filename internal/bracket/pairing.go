package bracket

import (
	"fmt"
	"slices"
	"strings"
)

// Matchup is one series between two team ids alive in the same round.
// A is the side that sorts first by conference then seed.
type Matchup struct {
	A int `json:"a"`
	B int `json:"b"`
}

// Pair produces the matchups for one round. Teams are ordered by conference
// then seed; the best remaining seed meets the worst remaining seed of its
// own conference. A two-team round is the final and must span both
// conferences.
func (f *Field) Pair(alive []int) ([]Matchup, error) {
	if len(alive) < 2 {
		return nil, &BracketConfigurationError{Reason: fmt.Sprintf("cannot pair %d team(s)", len(alive))}
	}

	sorted := slices.Clone(alive)
	slices.SortFunc(sorted, func(a, b int) int {
		ta, tb := f.teams[a], f.teams[b]
		if c := strings.Compare(ta.Conference, tb.Conference); c != 0 {
			return c
		}
		return ta.Seed - tb.Seed
	})

	if len(sorted) == 2 {
		a, b := f.teams[sorted[0]], f.teams[sorted[1]]
		if a.Conference == b.Conference {
			return nil, &BracketConfigurationError{
				Conference: a.Conference,
				Teams:      []string{a.Name, b.Name},
				Reason:     "final round needs one team from each conference",
			}
		}
		return []Matchup{{A: sorted[0], B: sorted[1]}}, nil
	}

	if err := f.checkParity(sorted); err != nil {
		return nil, err
	}

	matchups := make([]Matchup, 0, len(sorted)/2)
	for len(sorted) > 0 {
		top := f.teams[sorted[0]]
		partner := -1
		for i := len(sorted) - 1; i > 0; i-- {
			if f.teams[sorted[i]].Conference == top.Conference {
				partner = i
				break
			}
		}
		if partner < 0 {
			return nil, &BracketConfigurationError{
				Conference: top.Conference,
				Teams:      []string{top.Name},
				Reason:     "no same-conference opponent left",
			}
		}

		matchups = append(matchups, Matchup{A: sorted[0], B: sorted[partner]})
		sorted = slices.Delete(sorted, partner, partner+1)
		sorted = sorted[1:]
	}
	return matchups, nil
}

// checkParity expects ids already sorted by conference
func (f *Field) checkParity(sorted []int) error {
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i < len(sorted) && f.teams[sorted[i]].Conference == f.teams[sorted[start]].Conference {
			continue
		}
		if (i-start)%2 != 0 {
			names := make([]string, 0, i-start)
			for _, id := range sorted[start:i] {
				names = append(names, f.teams[id].Name)
			}
			return &BracketConfigurationError{
				Conference: f.teams[sorted[start]].Conference,
				Teams:      names,
				Reason:     fmt.Sprintf("odd number of teams (%d) alive", i-start),
			}
		}
		start = i
	}
	return nil
}
