package bracket

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

// team builds a regulation-only record over a 48 game season
func team(name, conf string, seed, wins int) Team {
	return Team{
		Name:             name,
		Conference:       conf,
		Seed:             seed,
		RegulationWins:   wins,
		RegulationLosses: DefaultSeasonLength - wins,
	}
}

// conferenceTeams returns perConf teams in each of E and W named E1..En, W1..Wn
// with wins descending by seed.
func conferenceTeams(perConf int) []Team {
	teams := make([]Team, 0, perConf*2)
	for _, conf := range []string{"E", "W"} {
		for seed := 1; seed <= perConf; seed++ {
			teams = append(teams, team(fmt.Sprintf("%s%d", conf, seed), conf, seed, 36-seed))
		}
	}
	return teams
}

func newTestField(t *testing.T, teams []Team) *Field {
	t.Helper()
	f, err := NewField(teams, DefaultConfig())
	require.NoError(t, err)
	return f
}

func ids(t *testing.T, f *Field, names ...string) []int {
	t.Helper()
	out := make([]int, 0, len(names))
	for _, n := range names {
		id, ok := f.ID(n)
		require.True(t, ok, "unknown team %s", n)
		out = append(out, id)
	}
	return out
}

func pairNames(f *Field, matchups []Matchup) [][2]string {
	out := make([][2]string, 0, len(matchups))
	for _, m := range matchups {
		out = append(out, [2]string{f.Team(m.A).Name, f.Team(m.B).Name})
	}
	return out
}

func testRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x5eed))
}
