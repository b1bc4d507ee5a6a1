package loader

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/playoff-sim/internal/bracket"
	"github.com/stitts-dev/playoff-sim/internal/scoring"
)

const teamTable = `# 2013 standings
name,conf,seed,w,l,otl

PIT, E, 1, 36, 12, 0
BOS,E,2,28,14,6
CHI,W,1,36,7,5
`

func TestReadTeams_SixColumns(t *testing.T) {
	teams, err := ReadTeams(strings.NewReader(teamTable), Options{})
	require.NoError(t, err)

	assert.Equal(t, []bracket.Team{
		{Name: "PIT", Conference: "E", Seed: 1, RegulationWins: 36, RegulationLosses: 12},
		{Name: "BOS", Conference: "E", Seed: 2, RegulationWins: 28, RegulationLosses: 14, OvertimeLosses: 6},
		{Name: "CHI", Conference: "W", Seed: 1, RegulationWins: 36, RegulationLosses: 7, OvertimeLosses: 5},
	}, teams)
}

func TestReadTeams_SixthColumnAsOvertimeWins(t *testing.T) {
	teams, err := ReadTeams(strings.NewReader("BOS,E,2,28,14,6\n"), Options{SixthColumn: OvertimeWins})
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, 6, teams[0].OvertimeWins)
	assert.Equal(t, 0, teams[0].OvertimeLosses)
}

func TestReadTeams_SevenColumnsAndDelimiter(t *testing.T) {
	teams, err := ReadTeams(strings.NewReader("MTL;E;3;20;16;8;4\n"), Options{Comma: ';'})
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, bracket.Team{
		Name: "MTL", Conference: "E", Seed: 3,
		RegulationWins: 20, RegulationLosses: 16, OvertimeWins: 8, OvertimeLosses: 4,
	}, teams[0])
	assert.Equal(t, 48, teams[0].GamesPlayed())
}

func TestReadTeams_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
		field string
		is    error
	}{
		{"bad seed", "PIT,E,1,36,12,0\nBOS,E,two,28,14,6\n", 2, "seed", strconv.ErrSyntax},
		{"bad overtime", "PIT,E,1,36,12,x\n", 1, "overtime_losses", strconv.ErrSyntax},
		{"short row", "PIT,E,1,36\n", 1, "", ErrFieldCount},
		{"empty", "# nothing here\n\n", 0, "", ErrEmpty},
		{"header only", "name,conf,seed,w,l,otl\n", 0, "", ErrEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTeams(strings.NewReader(tt.input), Options{})
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.line, perr.Line)
			assert.Equal(t, tt.field, perr.Field)
			assert.True(t, errors.Is(err, tt.is), "got %v", err)
		})
	}
}

func TestLoadTeams_ReportsPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "teamdata.csv")
	require.NoError(t, os.WriteFile(path, []byte("PIT,E,1,36,12,0\nBOS,E,x,28,14,6\n"), 0o644))

	_, err := LoadTeams(path, Options{})
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, path, perr.Path)
	assert.Contains(t, err.Error(), "teamdata.csv:2")

	_, err = LoadTeams(filepath.Join(dir, "missing.csv"), Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadPlayers(t *testing.T) {
	input := "player,team,gp,pts\nSidney Crosby, PIT, 36, 56\nNew Guy,BOS,0,0\n"

	players, err := ReadPlayers(strings.NewReader(input), scoring.PositionForward, Options{})
	require.NoError(t, err)
	assert.Equal(t, []scoring.Player{
		{Name: "Sidney Crosby", Team: "PIT", Position: "F", GamesPlayed: 36, Points: 56},
		{Name: "New Guy", Team: "BOS", Position: "F", GamesPlayed: 0, Points: 0},
	}, players)
}

func TestLoadPlayers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defense.csv")
	require.NoError(t, os.WriteFile(path, []byte("Kris Letang,PIT,35,38\nZdeno Chara,BOS,48,notanumber\n"), 0o644))

	_, err := LoadPlayers(path, scoring.PositionDefense, Options{})
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Line)
	assert.Equal(t, "points", perr.Field)
	assert.Equal(t, "notanumber", perr.Value)
}

func TestWritePlayers_ReadableByReadPlayers(t *testing.T) {
	players := []scoring.Player{
		{Name: "Patrick Kane", Team: "CHI", GamesPlayed: 47, Points: 55},
		{Name: "St. Louis, Martin", Team: "NYR", GamesPlayed: 48, Points: 60},
	}

	var b strings.Builder
	require.NoError(t, WritePlayers(&b, players, Options{}))
	assert.True(t, strings.HasPrefix(b.String(), "name,team,games_played,points\n"))

	back, err := ReadPlayers(strings.NewReader(b.String()), scoring.PositionForward, Options{})
	require.NoError(t, err)
	require.Len(t, back, 2)
	for i := range players {
		players[i].Position = scoring.PositionForward
	}
	assert.Equal(t, players, back)
}
