package bracket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func TestSimulate_AlwaysEndsWithOneSideAtFour(t *testing.T) {
	sim := NewSeriesSimulator(DefaultConfig())
	pairs := [][2]Team{
		{team("A", "E", 1, 40), team("B", "W", 1, 8)},
		{team("A", "E", 1, 24), team("B", "W", 1, 24)},
		{team("A", "E", 1, 1), team("B", "W", 1, 47)},
		{team("A", "E", 1, 0), team("B", "W", 1, 30)},
		{team("A", "E", 1, 48), team("B", "W", 1, 12)},
	}

	for _, p := range pairs {
		rng := testRNG(11)
		for i := 0; i < 500; i++ {
			res, err := sim.Simulate(rng, p[0], p[1])
			require.NoError(t, err)

			if res.AWon() {
				assert.Equal(t, 4, res.WinsA)
				assert.GreaterOrEqual(t, res.WinsB, 0)
				assert.LessOrEqual(t, res.WinsB, 3)
			} else {
				assert.Equal(t, 4, res.WinsB)
				assert.GreaterOrEqual(t, res.WinsA, 0)
				assert.LessOrEqual(t, res.WinsA, 3)
			}
			assert.GreaterOrEqual(t, res.Games(), 4)
			assert.LessOrEqual(t, res.Games(), 7)
		}
	}
}

func TestSimulate_SweepWhenOneSideCannotWin(t *testing.T) {
	sim := NewSeriesSimulator(DefaultConfig())
	res, err := sim.Simulate(testRNG(3), team("A", "E", 1, 48), team("B", "W", 1, 0))
	require.NoError(t, err)
	assert.Equal(t, SeriesResult{WinsA: 4, WinsB: 0}, res)
}

func TestSimulate_DegenerateInputFailsFast(t *testing.T) {
	cases := []struct {
		name   string
		a, b   Team
		policy WinPolicy
	}{
		{"both winless", team("A", "E", 1, 0), team("B", "W", 1, 0), PolicyRegulationOnly},
		{"both unbeaten", team("A", "E", 1, 48), team("B", "W", 1, 48), PolicyRegulationOnly},
		{
			name:   "overtime wins ignored",
			a:      Team{Name: "A", Conference: "E", Seed: 1, RegulationLosses: 40, OvertimeWins: 8},
			b:      Team{Name: "B", Conference: "W", Seed: 1, RegulationLosses: 44, OvertimeWins: 4},
			policy: PolicyRegulationOnly,
		},
		{"both winless, overtime policy", team("A", "E", 1, 0), team("B", "W", 1, 0), PolicyOvertimeAsWins},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Policy = tc.policy
			_, err := NewSeriesSimulator(cfg).Simulate(testRNG(1), tc.a, tc.b)

			var degErr *DegenerateInputError
			require.ErrorAs(t, err, &degErr)
			assert.Equal(t, "A", degErr.TeamA)
			assert.Equal(t, "B", degErr.TeamB)
		})
	}
}

func TestSimulate_OvertimeWinsRescueOtherwiseDegenerateMatchup(t *testing.T) {
	a := Team{Name: "A", Conference: "E", Seed: 1, RegulationLosses: 40, OvertimeWins: 8}
	b := Team{Name: "B", Conference: "W", Seed: 1, RegulationLosses: 44, OvertimeWins: 4}

	cfg := DefaultConfig()
	cfg.Policy = PolicyOvertimeAsWins
	res, err := NewSeriesSimulator(cfg).Simulate(testRNG(5), a, b)
	require.NoError(t, err)
	assert.Equal(t, 4, max(res.WinsA, res.WinsB))
}

// A draw where neither side won credits nobody under either rejection rule
// and both rules consume the same draws, so the series outcome is identical.
func TestSimulate_RejectionRulesConsumeTheSameDraws(t *testing.T) {
	a, b := team("A", "E", 1, 30), team("B", "W", 1, 22)

	bothWon := DefaultConfig()
	bothWon.Policy = WinPolicy{Rejection: RejectBothWon}
	tied := DefaultConfig()
	tied.Policy = WinPolicy{Rejection: RejectTied}

	rngA, rngB := testRNG(99), testRNG(99)
	for i := 0; i < 200; i++ {
		r1, err := NewSeriesSimulator(bothWon).Simulate(rngA, a, b)
		require.NoError(t, err)
		r2, err := NewSeriesSimulator(tied).Simulate(rngB, a, b)
		require.NoError(t, err)
		assert.Equal(t, r1, r2)
	}
}

func TestSimulate_StrongerRecordWinsMoreGames(t *testing.T) {
	sim := NewSeriesSimulator(DefaultConfig())
	a, b := team("A", "E", 1, 34), team("B", "W", 1, 18)
	rng := testRNG(21)

	winsA := make([]float64, 0, 2000)
	winsB := make([]float64, 0, 2000)
	for i := 0; i < 2000; i++ {
		res, err := sim.Simulate(rng, a, b)
		require.NoError(t, err)
		winsA = append(winsA, float64(res.WinsA))
		winsB = append(winsB, float64(res.WinsB))
	}
	assert.Greater(t, stat.Mean(winsA, nil), stat.Mean(winsB, nil)+1)
}

func TestSimulate_BestOfFive(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BestOf = 5
	sim := NewSeriesSimulator(cfg)
	require.Equal(t, 3, sim.WinsNeeded)

	rng := testRNG(8)
	for i := 0; i < 200; i++ {
		res, err := sim.Simulate(rng, team("A", "E", 1, 26), team("B", "W", 1, 25))
		require.NoError(t, err)
		assert.Equal(t, 3, max(res.WinsA, res.WinsB))
		assert.Less(t, min(res.WinsA, res.WinsB), 3)
	}
}

func TestSimulate_RejectsRecordsThatDoNotSumToSeason(t *testing.T) {
	bad := team("A", "E", 1, 30)
	bad.RegulationLosses = 5

	_, err := NewSeriesSimulator(DefaultConfig()).Simulate(testRNG(1), bad, team("B", "W", 1, 20))
	var teamErr *InvalidTeamError
	assert.ErrorAs(t, err, &teamErr)
}
