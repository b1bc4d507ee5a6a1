// Package loader reads team records and player lines from delimited text
// tables.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/stitts-dev/playoff-sim/internal/bracket"
	"github.com/stitts-dev/playoff-sim/internal/scoring"
)

// Column names the sixth column of a six column team table
type Column int

const (
	OvertimeLosses Column = iota
	OvertimeWins
)

func (c Column) String() string {
	if c == OvertimeWins {
		return "overtime_wins"
	}
	return "overtime_losses"
}

// Options controls how tables are parsed
type Options struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune
	// SixthColumn says how to read the last column of six column team rows.
	// Seven column rows always carry overtime wins then overtime losses.
	SixthColumn Column
}

// ParseError reports the location of a malformed table cell
type ParseError struct {
	Path  string
	Line  int
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	loc := e.Path
	if loc == "" {
		loc = "input"
	}
	if e.Field == "" {
		return fmt.Sprintf("%s:%d: %v", loc, e.Line, e.Err)
	}
	return fmt.Sprintf("%s:%d: %s %q: %v", loc, e.Line, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var (
	ErrFieldCount = errors.New("wrong number of fields")
	ErrEmpty      = errors.New("table has no rows")
)

var teamFields = []string{"name", "conference", "seed", "regulation_wins", "regulation_losses"}

// ReadTeams parses a team table with rows of
// name, conference, seed, wins, losses, and one or two overtime columns.
func ReadTeams(r io.Reader, opts Options) ([]bracket.Team, error) {
	return readTeams(r, "", opts)
}

// LoadTeams reads a team table from a file
func LoadTeams(path string, opts Options) ([]bracket.Team, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open team table: %w", err)
	}
	defer f.Close()
	return readTeams(f, path, opts)
}

func readTeams(r io.Reader, path string, opts Options) ([]bracket.Team, error) {
	rows, err := readRows(r, path, opts.Comma)
	if err != nil {
		return nil, err
	}

	var teams []bracket.Team
	for i, row := range rows {
		if len(row.fields) != 6 && len(row.fields) != 7 {
			return nil, &ParseError{Path: path, Line: row.line, Err: fmt.Errorf("%w: got %d, want 6 or 7", ErrFieldCount, len(row.fields))}
		}
		if i == 0 && isHeader(row.fields[2]) {
			continue
		}

		t := bracket.Team{
			Name:       row.fields[0],
			Conference: row.fields[1],
		}
		ints := make([]int, len(row.fields)-2)
		for j := 2; j < len(row.fields); j++ {
			n, err := strconv.Atoi(row.fields[j])
			if err != nil {
				return nil, &ParseError{Path: path, Line: row.line, Field: teamField(j, len(row.fields), opts.SixthColumn), Value: row.fields[j], Err: err}
			}
			ints[j-2] = n
		}

		t.Seed, t.RegulationWins, t.RegulationLosses = ints[0], ints[1], ints[2]
		if len(ints) == 5 {
			t.OvertimeWins, t.OvertimeLosses = ints[3], ints[4]
		} else if opts.SixthColumn == OvertimeWins {
			t.OvertimeWins = ints[3]
		} else {
			t.OvertimeLosses = ints[3]
		}
		teams = append(teams, t)
	}
	if len(teams) == 0 {
		return nil, &ParseError{Path: path, Err: ErrEmpty}
	}
	return teams, nil
}

func teamField(col, width int, sixth Column) string {
	if col < len(teamFields) {
		return teamFields[col]
	}
	if width == 7 {
		if col == 5 {
			return OvertimeWins.String()
		}
		return OvertimeLosses.String()
	}
	return sixth.String()
}

// ReadPlayers parses a player table with rows of name, team, games played,
// points. Every player is tagged with position.
func ReadPlayers(r io.Reader, position string, opts Options) ([]scoring.Player, error) {
	return readPlayers(r, "", position, opts)
}

// LoadPlayers reads a player table from a file
func LoadPlayers(path, position string, opts Options) ([]scoring.Player, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open player table: %w", err)
	}
	defer f.Close()
	return readPlayers(f, path, position, opts)
}

func readPlayers(r io.Reader, path, position string, opts Options) ([]scoring.Player, error) {
	rows, err := readRows(r, path, opts.Comma)
	if err != nil {
		return nil, err
	}

	var players []scoring.Player
	for i, row := range rows {
		if len(row.fields) != 4 {
			return nil, &ParseError{Path: path, Line: row.line, Err: fmt.Errorf("%w: got %d, want 4", ErrFieldCount, len(row.fields))}
		}
		if i == 0 && isHeader(row.fields[2]) {
			continue
		}

		gp, err := strconv.Atoi(row.fields[2])
		if err != nil {
			return nil, &ParseError{Path: path, Line: row.line, Field: "games_played", Value: row.fields[2], Err: err}
		}
		pts, err := strconv.Atoi(row.fields[3])
		if err != nil {
			return nil, &ParseError{Path: path, Line: row.line, Field: "points", Value: row.fields[3], Err: err}
		}
		players = append(players, scoring.Player{
			Name:        row.fields[0],
			Team:        row.fields[1],
			Position:    position,
			GamesPlayed: gp,
			Points:      pts,
		})
	}
	return players, nil
}

type row struct {
	line   int
	fields []string
}

func readRows(r io.Reader, path string, comma rune) ([]row, error) {
	cr := csv.NewReader(r)
	if comma != 0 {
		cr.Comma = comma
	}
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var rows []row
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				return nil, &ParseError{Path: path, Line: csvErr.Line, Err: csvErr.Err}
			}
			return nil, fmt.Errorf("read table: %w", err)
		}
		line, _ := cr.FieldPos(0)
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
		rows = append(rows, row{line: line, fields: record})
	}
	return rows, nil
}

func isHeader(cell string) bool {
	_, err := strconv.Atoi(cell)
	return err != nil
}

// WritePlayers writes players in the layout ReadPlayers accepts, with a header
func WritePlayers(w io.Writer, players []scoring.Player, opts Options) error {
	cw := csv.NewWriter(w)
	if opts.Comma != 0 {
		cw.Comma = opts.Comma
	}
	if err := cw.Write([]string{"name", "team", "games_played", "points"}); err != nil {
		return err
	}
	for _, p := range players {
		record := []string{p.Name, p.Team, strconv.Itoa(p.GamesPlayed), strconv.Itoa(p.Points)}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
