package bracket

import (
	"fmt"
	"math/rand/v2"
)

// Accumulator sums per-team series wins and titles, indexed by team id.
// It is only ever added to.
type Accumulator struct {
	Games         []int64
	Championships []int64
}

func NewAccumulator(teams int) *Accumulator {
	return &Accumulator{
		Games:         make([]int64, teams),
		Championships: make([]int64, teams),
	}
}

// Merge adds other into a
func (a *Accumulator) Merge(other *Accumulator) {
	for i, g := range other.Games {
		a.Games[i] += g
	}
	for i, c := range other.Championships {
		a.Championships[i] += c
	}
}

// RunRound plays every matchup of one round and returns the winners, which
// form the next round. Each side's series wins are added to acc.
func (s *Simulator) RunRound(rng *rand.Rand, alive []int, acc *Accumulator) ([]int, error) {
	matchups, err := s.field.Pair(alive)
	if err != nil {
		return nil, err
	}

	winners := make([]int, 0, len(matchups))
	for _, m := range matchups {
		res, err := s.series.play(rng,
			s.field.teams[m.A].Name, s.field.teams[m.B].Name,
			s.field.thresholds[m.A], s.field.thresholds[m.B])
		if err != nil {
			return nil, err
		}

		acc.Games[m.A] += int64(res.WinsA)
		acc.Games[m.B] += int64(res.WinsB)

		if res.WinsA == s.series.WinsNeeded {
			winners = append(winners, m.A)
		} else {
			winners = append(winners, m.B)
		}
	}
	return winners, nil
}

// PlayTrial runs one full bracket and credits the champion in acc
func (s *Simulator) PlayTrial(rng *rand.Rand, acc *Accumulator) (int, error) {
	alive := s.field.All()
	for round := 1; len(alive) > 1; round++ {
		next, err := s.RunRound(rng, alive, acc)
		if err != nil {
			return -1, fmt.Errorf("round %d: %w", round, err)
		}
		alive = next
	}
	acc.Championships[alive[0]]++
	return alive[0], nil
}
