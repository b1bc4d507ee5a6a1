package bracket

import (
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRound_HalvesUntilChampion(t *testing.T) {
	for _, perConf := range []int{1, 2, 4, 8} {
		f := newTestField(t, conferenceTeams(perConf))
		sim := NewSimulator(f, Options{Trials: 1, Seed: 17})
		acc := NewAccumulator(f.Len())
		rng := testRNG(uint64(perConf))

		alive := f.All()
		rounds := 0
		for len(alive) > 1 {
			before := len(alive)
			next, err := sim.RunRound(rng, alive, acc)
			require.NoError(t, err)
			assert.Equal(t, before/2, len(next))
			alive = next
			rounds++
		}
		assert.Len(t, alive, 1)
		assert.Equal(t, bits.Len(uint(f.Len()))-1, rounds, "log2(%d) rounds", f.Len())
	}
}

func TestRunRound_CreditsEachSideItsSeriesWins(t *testing.T) {
	f := newTestField(t, conferenceTeams(4))
	sim := NewSimulator(f, Options{Trials: 1, Seed: 1})
	acc := NewAccumulator(f.Len())

	winners, err := sim.RunRound(testRNG(4), f.All(), acc)
	require.NoError(t, err)
	require.Len(t, winners, 4)

	matchups, err := f.Pair(f.All())
	require.NoError(t, err)
	for i, m := range matchups {
		w := winners[i]
		assert.True(t, w == m.A || w == m.B, "winner must come from its matchup")
		assert.Equal(t, int64(4), acc.Games[w])

		loser := m.A
		if w == m.A {
			loser = m.B
		}
		assert.GreaterOrEqual(t, acc.Games[loser], int64(0))
		assert.LessOrEqual(t, acc.Games[loser], int64(3))
	}
}

func TestRunRound_AddsToExistingTotals(t *testing.T) {
	f := newTestField(t, conferenceTeams(1))
	sim := NewSimulator(f, Options{Trials: 1, Seed: 1})
	acc := NewAccumulator(f.Len())
	acc.Games[0], acc.Games[1] = 10, 20

	winners, err := sim.RunRound(testRNG(2), f.All(), acc)
	require.NoError(t, err)
	require.Len(t, winners, 1)

	gained := []int64{acc.Games[0] - 10, acc.Games[1] - 20}
	w := winners[0]
	assert.Equal(t, int64(4), gained[w])
	assert.Less(t, gained[1-w], int64(4))
	assert.GreaterOrEqual(t, gained[1-w], int64(0))
}

func TestPlayTrial_CreditsOneChampion(t *testing.T) {
	f := newTestField(t, conferenceTeams(4))
	sim := NewSimulator(f, Options{Trials: 1, Seed: 1})
	acc := NewAccumulator(f.Len())

	champ, err := sim.PlayTrial(testRNG(12), acc)
	require.NoError(t, err)

	var titles int64
	for i, c := range acc.Championships {
		titles += c
		if i == champ {
			assert.Equal(t, int64(1), c)
		}
	}
	assert.Equal(t, int64(1), titles)
	// the champion won three series of four games each
	assert.Equal(t, int64(12), acc.Games[champ])
}

func TestAccumulator_Merge(t *testing.T) {
	a := &Accumulator{Games: []int64{1, 2}, Championships: []int64{0, 1}}
	b := &Accumulator{Games: []int64{3, 4}, Championships: []int64{1, 1}}
	a.Merge(b)
	assert.Equal(t, []int64{4, 6}, a.Games)
	assert.Equal(t, []int64{1, 2}, a.Championships)
}
