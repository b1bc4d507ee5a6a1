// Package calibration searches for the blend of historical seasons whose
// simulated playoff games best match an observed postseason.
package calibration

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/stitts-dev/playoff-sim/internal/bracket"
)

const (
	DefaultSteps  = 10
	DefaultTrials = 2000
	DefaultSeed   = 1
)

// SeasonRecord is one regular season for one team
type SeasonRecord struct {
	Wins         int `json:"wins"`
	OvertimeWins int `json:"overtime_wins"`
	Games        int `json:"games"`
}

// TeamHistory holds a playoff team's bracket position, its previous seasons
// and the games it was actually credited in the postseason being fitted.
type TeamHistory struct {
	Name          string         `json:"name"`
	Conference    string         `json:"conference"`
	Seed          int            `json:"seed"`
	Seasons       []SeasonRecord `json:"seasons"`
	ObservedGames float64        `json:"observed_games"`
}

type Options struct {
	// Steps is the grid resolution; weights are multiples of 1/Steps
	Steps   int
	Trials  int
	Workers int
	Seed    uint64
	Config  bracket.Config
	Logger  *logrus.Logger
}

// Point is one evaluated weight vector
type Point struct {
	Weights []float64 `json:"weights"`
	MSE     float64   `json:"mse"`
}

// Calibration is the outcome of a grid search
type Calibration struct {
	Weights []float64 `json:"weights"`
	MSE     float64   `json:"mse"`
	Points  []Point   `json:"points"`
}

var ErrNoHistory = errors.New("calibration needs at least one team with at least one season")

// Calibrate evaluates every weight vector on the grid and returns the one
// with the lowest mean squared error between simulated expected games and
// observed games. Every evaluation uses the same seed so points differ only
// by their weights.
func Calibrate(ctx context.Context, histories []TeamHistory, opts Options) (*Calibration, error) {
	opts = withDefaults(opts)
	seasons, err := checkHistories(histories, opts.Config)
	if err != nil {
		return nil, err
	}

	observed := make([]float64, len(histories))
	for i, h := range histories {
		observed[i] = h.ObservedGames
	}

	best := &Calibration{MSE: math.Inf(1)}
	grid := Grid(seasons, opts.Steps)
	for _, weights := range grid {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		mse, err := evaluate(ctx, histories, weights, observed, opts)
		if err != nil {
			return nil, fmt.Errorf("weights %v: %w", weights, err)
		}
		best.Points = append(best.Points, Point{Weights: weights, MSE: mse})
		if mse < best.MSE {
			best.MSE = mse
			best.Weights = weights
		}
	}

	if opts.Logger != nil {
		opts.Logger.WithFields(logrus.Fields{
			"points":  len(grid),
			"weights": best.Weights,
			"mse":     best.MSE,
		}).Info("Calibration completed")
	}
	return best, nil
}

func withDefaults(opts Options) Options {
	if opts.Steps <= 0 {
		opts.Steps = DefaultSteps
	}
	if opts.Trials <= 0 {
		opts.Trials = DefaultTrials
	}
	if opts.Seed == 0 {
		opts.Seed = DefaultSeed
	}
	if opts.Config.SeasonLength == 0 {
		opts.Config = bracket.DefaultConfig()
	}
	return opts
}

func checkHistories(histories []TeamHistory, cfg bracket.Config) (int, error) {
	if len(histories) == 0 || len(histories[0].Seasons) == 0 {
		return 0, ErrNoHistory
	}
	k := len(histories[0].Seasons)
	for _, h := range histories {
		if len(h.Seasons) != k {
			return 0, fmt.Errorf("team %s has %d seasons, want %d", h.Name, len(h.Seasons), k)
		}
		for i, s := range h.Seasons {
			if s.Games <= 0 || s.Wins < 0 || s.OvertimeWins < 0 || s.Wins+s.OvertimeWins > s.Games {
				return 0, fmt.Errorf("team %s season %d: invalid record %d+%d of %d", h.Name, i, s.Wins, s.OvertimeWins, s.Games)
			}
		}
	}
	return k, nil
}

func evaluate(ctx context.Context, histories []TeamHistory, weights, observed []float64, opts Options) (float64, error) {
	field, err := bracket.NewField(Blend(histories, weights, opts.Config), opts.Config)
	if err != nil {
		return 0, err
	}
	result, err := bracket.NewSimulator(field, bracket.Options{
		Trials:  opts.Trials,
		Workers: opts.Workers,
		Seed:    opts.Seed,
	}).Run(ctx)
	if err != nil {
		return 0, err
	}

	simulated := make([]float64, len(result.Teams))
	for i, t := range result.Teams {
		simulated[i] = t.ExpectedGames
	}
	d := floats.Distance(simulated, observed, 2)
	return d * d / float64(len(observed)), nil
}

// Blend turns each team's weighted per-season win rate into a synthetic
// record over cfg.SeasonLength games. Wins land in the regulation column so
// the threshold is the same under either policy.
func Blend(histories []TeamHistory, weights []float64, cfg bracket.Config) []bracket.Team {
	teams := make([]bracket.Team, len(histories))
	rates := make([]float64, len(weights))
	for i, h := range histories {
		for k, s := range h.Seasons {
			wins := s.Wins
			if cfg.Policy.CountOvertimeWins {
				wins += s.OvertimeWins
			}
			rates[k] = float64(wins) / float64(s.Games)
		}
		wins := int(math.Round(floats.Dot(weights, rates) * float64(cfg.SeasonLength)))
		teams[i] = bracket.Team{
			Name:             h.Name,
			Conference:       h.Conference,
			Seed:             h.Seed,
			RegulationWins:   wins,
			RegulationLosses: cfg.SeasonLength - wins,
		}
	}
	return teams
}

// Grid returns every vector of k non-negative multiples of 1/steps that sums
// to one.
func Grid(k, steps int) [][]float64 {
	var out [][]float64
	parts := make([]int, k)
	var fill func(i, left int)
	fill = func(i, left int) {
		if i == k-1 {
			parts[i] = left
			w := make([]float64, k)
			for j, p := range parts {
				w[j] = float64(p) / float64(steps)
			}
			out = append(out, w)
			return
		}
		for p := 0; p <= left; p++ {
			parts[i] = p
			fill(i+1, left-p)
		}
	}
	if k > 0 && steps > 0 {
		fill(0, steps)
	}
	return out
}
