package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/playoff-sim/internal/bracket"
	"github.com/stitts-dev/playoff-sim/internal/scoring"
)

func sampleResult() *bracket.Result {
	return &bracket.Result{
		Trials:       1000,
		Seed:         7,
		Workers:      2,
		Policy:       bracket.PolicyRegulationOnly,
		SeasonLength: 48,
		BestOf:       7,
		Duration:     1500 * time.Millisecond,
		Teams: []bracket.TeamOutcome{
			{Name: "BOS", Conference: "E", Seed: 2, ExpectedGames: 5.25, ChampionshipProbability: 0.0525},
			{Name: "PIT", Conference: "E", Seed: 1, ExpectedGames: 9.5, ChampionshipProbability: 0.6},
			{Name: "CHI", Conference: "W", Seed: 1, ExpectedGames: 8, ChampionshipProbability: 0.3475},
		},
	}
}

func TestWriteScores(t *testing.T) {
	projections := scoring.Project([]scoring.Player{
		{Name: "Sidney Crosby", Team: "PIT", Position: "F", GamesPlayed: 36, Points: 54},
		{Name: "Zdeno Chara", Team: "BOS", Position: "D", GamesPlayed: 48, Points: 19},
	}, map[string]float64{"PIT": 10, "BOS": 4})

	var buf bytes.Buffer
	require.NoError(t, WriteScores(&buf, projections))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Sidney Crosby                 F PIT 36 15.00", lines[0])
	assert.Equal(t, "Zdeno Chara                   D BOS 48 1.58", lines[1])
}

func TestWriteWinners(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWinners(&buf, sampleResult()))

	assert.Equal(t, "PIT 60.00%\nCHI 34.75%\nBOS 05.25%\n", buf.String())
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, sampleResult()))

	out := buf.String()
	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Contains(t, lines[0], "EXP GAMES")
	assert.Contains(t, lines[1], "PIT")
	assert.Contains(t, lines[1], "9.500")
	assert.Contains(t, lines[1], "60.00")
	assert.Contains(t, lines[3], "BOS")
	assert.Contains(t, out, "1000 trials, seed 7, regulation_only, best of 7, 48 game season, 2 workers, 1.5s")
}
