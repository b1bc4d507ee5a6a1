package bracket

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runField(t *testing.T, f *Field, opts Options) *Result {
	t.Helper()
	res, err := NewSimulator(f, opts).Run(context.Background())
	require.NoError(t, err)
	return res
}

func TestRun_DeterministicForFixedSeed(t *testing.T) {
	f := newTestField(t, conferenceTeams(4))

	first := runField(t, f, Options{Trials: 5000, Workers: 4, Seed: 2024})
	second := runField(t, f, Options{Trials: 5000, Workers: 4, Seed: 2024})
	assert.Equal(t, first.Teams, second.Teams)

	// per-trial streams make the worker count irrelevant
	single := runField(t, f, Options{Trials: 5000, Workers: 1, Seed: 2024})
	odd := runField(t, f, Options{Trials: 5000, Workers: 7, Seed: 2024})
	assert.Equal(t, first.Teams, single.Teams)
	assert.Equal(t, first.Teams, odd.Teams)

	other := runField(t, f, Options{Trials: 5000, Workers: 4, Seed: 2025})
	assert.NotEqual(t, first.Teams, other.Teams)
}

func TestRun_SingleTrialHasNoNormalizationArtifact(t *testing.T) {
	f := newTestField(t, conferenceTeams(4))
	streams := PCGStreams{Seed: 77}

	res := runField(t, f, Options{Trials: 1, Streams: streams})

	acc := NewAccumulator(f.Len())
	champ, err := NewSimulator(f, Options{Trials: 1}).PlayTrial(streams.Trial(0), acc)
	require.NoError(t, err)

	for i, outcome := range res.Teams {
		assert.Equal(t, float64(acc.Games[i]), outcome.ExpectedGames, outcome.Name)
		assert.Equal(t, acc.Games[i], outcome.TotalGames)
	}
	assert.Equal(t, 1.0, res.Teams[champ].ChampionshipProbability)
}

func TestRun_TwoTeamsStrongerSideDominates(t *testing.T) {
	a := Team{Name: "A", Conference: "E", Seed: 1, RegulationWins: 40, RegulationLosses: 8}
	b := Team{Name: "B", Conference: "W", Seed: 1, RegulationWins: 20, RegulationLosses: 28}
	f := newTestField(t, []Team{a, b})

	res := runField(t, f, Options{Trials: 50000, Seed: 48})

	outA, ok := res.Outcome("A")
	require.True(t, ok)
	outB, ok := res.Outcome("B")
	require.True(t, ok)

	// one series per trial, so expected games is the mean series win count
	assert.Greater(t, outA.ExpectedGames, outB.ExpectedGames)
	assert.Greater(t, outA.ChampionshipProbability, 0.9)
	assert.InDelta(t, 1.0, outA.ChampionshipProbability+outB.ChampionshipProbability, 1e-9)
	assert.Less(t, res.StdErr("A"), 0.01)
}

func TestRun_OvertimePolicyChangesOutcomes(t *testing.T) {
	teams := []Team{
		{Name: "OT", Conference: "E", Seed: 1, RegulationWins: 20, RegulationLosses: 20, OvertimeWins: 8},
		{Name: "REG", Conference: "W", Seed: 1, RegulationWins: 24, RegulationLosses: 24},
	}

	regOnly, err := NewField(teams, DefaultConfig())
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.Policy = PolicyOvertimeAsWins
	withOT, err := NewField(teams, cfg)
	require.NoError(t, err)

	off := runField(t, regOnly, Options{Trials: 20000, Seed: 3})
	on := runField(t, withOT, Options{Trials: 20000, Seed: 3})

	offOT, _ := off.Outcome("OT")
	onOT, _ := on.Outcome("OT")
	assert.Less(t, offOT.ChampionshipProbability, 0.5)
	assert.Greater(t, onOT.ChampionshipProbability, 0.5)
	assert.Greater(t, onOT.ChampionshipProbability-offOT.ChampionshipProbability, 0.2)
	assert.Greater(t, onOT.ExpectedGames, offOT.ExpectedGames)
}

func TestRun_ProbabilitiesSumToOne(t *testing.T) {
	f := newTestField(t, conferenceTeams(8))
	res := runField(t, f, Options{Trials: 3000, Seed: 5})

	var total float64
	var games int64
	for _, o := range res.Teams {
		total += o.ChampionshipProbability
		games += o.TotalGames
	}
	assert.InDelta(t, 1.0, total, 1e-9)
	// 15 series per trial, each with four to seven decisive games
	assert.GreaterOrEqual(t, games, int64(3000*15*4))
	assert.LessOrEqual(t, games, int64(3000*15*7))
}

func TestRun_ObserverSeesMonotonicProgressWithoutChangingResults(t *testing.T) {
	f := newTestField(t, conferenceTeams(2))

	var mu sync.Mutex
	var seen []Progress
	observed := runField(t, f, Options{Trials: 1000, Workers: 3, Seed: 9, Observer: func(p Progress) {
		mu.Lock()
		seen = append(seen, p)
		mu.Unlock()
	}})
	plain := runField(t, f, Options{Trials: 1000, Workers: 3, Seed: 9})

	assert.Equal(t, plain.Teams, observed.Teams)
	require.Len(t, seen, 101)
	for i, p := range seen {
		assert.Equal(t, i, p.Percent)
		assert.Equal(t, 1000, p.Total)
	}
	assert.Equal(t, 1000, seen[len(seen)-1].Completed)
}

func TestRun_DegenerateMatchupAbortsRun(t *testing.T) {
	f := newTestField(t, []Team{team("A", "E", 1, 0), team("B", "W", 1, 0)})

	_, err := NewSimulator(f, Options{Trials: 100, Seed: 1}).Run(context.Background())
	var degErr *DegenerateInputError
	assert.ErrorAs(t, err, &degErr)
}

func TestRun_CanceledContext(t *testing.T) {
	f := newTestField(t, conferenceTeams(4))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSimulator(f, Options{Trials: 10000, Workers: 2, Seed: 1}).Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRun_ResultMetadata(t *testing.T) {
	f := newTestField(t, conferenceTeams(2))
	res := runField(t, f, Options{Trials: 10, Workers: 64, Seed: 31})

	assert.Equal(t, 10, res.Trials)
	assert.Equal(t, uint64(31), res.Seed)
	assert.Equal(t, 10, res.Workers, "workers are capped at the trial count")
	assert.Equal(t, PolicyRegulationOnly, res.Policy)
	assert.Equal(t, 48, res.SeasonLength)
	assert.Equal(t, 7, res.BestOf)

	ranked := res.Ranked()
	require.Len(t, ranked, 4)
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].ChampionshipProbability, ranked[i].ChampionshipProbability)
	}
	assert.Len(t, res.ExpectedGames(), 4)
	assert.Len(t, res.ChampionshipProbabilities(), 4)
}

func TestResult_StdErrIsBinomial(t *testing.T) {
	res := &Result{Trials: 400, Teams: []TeamOutcome{
		{Name: "A", ChampionshipProbability: 0.5},
		{Name: "B", ChampionshipProbability: 1},
	}}

	assert.InDelta(t, 0.025, res.StdErr("A"), 1e-12)
	assert.Zero(t, res.StdErr("B"))
	assert.Zero(t, res.StdErr("missing"))
	assert.Zero(t, (&Result{}).StdErr("A"))
}
