package report

import (
	"bufio"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/stitts-dev/playoff-sim/internal/bracket"
	"github.com/stitts-dev/playoff-sim/internal/scoring"
)

// WriteScores writes one fixed width line per projection: name, position,
// team, games played and expected playoff points.
func WriteScores(w io.Writer, projections []scoring.Projection) error {
	bw := bufio.NewWriter(w)
	for _, p := range projections {
		if _, err := fmt.Fprintf(bw, "%-30s%s %-4s%-3d%.2f\n",
			p.Name, p.Position, p.Team, p.GamesPlayed, p.ExpectedPoints); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteWinners writes each team's championship probability as a percentage,
// most likely champion first.
func WriteWinners(w io.Writer, result *bracket.Result) error {
	bw := bufio.NewWriter(w)
	for _, t := range result.Ranked() {
		if _, err := fmt.Fprintf(bw, "%-4s%05.2f%%\n", t.Name, t.ChampionshipProbability*100); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteSummary writes an aligned table of every team's outcome followed by
// the run parameters.
func WriteSummary(w io.Writer, result *bracket.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "TEAM\tCONF\tSEED\tEXP GAMES\tCHAMP %\t± SE\t")
	for _, t := range result.Ranked() {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.3f\t%.2f\t%.2f\t\n",
			t.Name, t.Conference, t.Seed, t.ExpectedGames,
			t.ChampionshipProbability*100, result.StdErr(t.Name)*100)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d trials, seed %d, %s, best of %d, %d game season, %d workers, %s\n",
		result.Trials, result.Seed, result.Policy, result.BestOf, result.SeasonLength, result.Workers, result.Duration)
	return err
}
