package bracket

import (
	"math/rand/v2"
)

// SeriesResult holds each side's win count in a finished series
type SeriesResult struct {
	WinsA int `json:"wins_a"`
	WinsB int `json:"wins_b"`
}

// AWon reports whether side A took the series
func (r SeriesResult) AWon() bool {
	return r.WinsA > r.WinsB
}

// Games returns the number of decisive games played
func (r SeriesResult) Games() int {
	return r.WinsA + r.WinsB
}

// SeriesSimulator plays out one series by rejection sampling against each
// team's season record.
type SeriesSimulator struct {
	SeasonLength int
	WinsNeeded   int
	Policy       WinPolicy
}

// NewSeriesSimulator builds a simulator from run rules
func NewSeriesSimulator(config Config) SeriesSimulator {
	return SeriesSimulator{
		SeasonLength: config.SeasonLength,
		WinsNeeded:   config.WinsNeeded(),
		Policy:       config.Policy,
	}
}

// Simulate plays a series between a and b using rng
func (s SeriesSimulator) Simulate(rng *rand.Rand, a, b Team) (SeriesResult, error) {
	if err := a.Validate(s.SeasonLength); err != nil {
		return SeriesResult{}, err
	}
	if err := b.Validate(s.SeasonLength); err != nil {
		return SeriesResult{}, err
	}
	return s.play(rng, a.Name, b.Name, s.Policy.Threshold(a), s.Policy.Threshold(b))
}

func (s SeriesSimulator) play(rng *rand.Rand, nameA, nameB string, thresholdA, thresholdB int) (SeriesResult, error) {
	// A decisive draw needs one side able to win while the other can lose.
	decisive := (thresholdA > 0 && thresholdB < s.SeasonLength) || (thresholdB > 0 && thresholdA < s.SeasonLength)
	if !decisive {
		return SeriesResult{}, &DegenerateInputError{
			TeamA:        nameA,
			TeamB:        nameB,
			ThresholdA:   thresholdA,
			ThresholdB:   thresholdB,
			SeasonLength: s.SeasonLength,
		}
	}

	var result SeriesResult
	for result.WinsA < s.WinsNeeded && result.WinsB < s.WinsNeeded {
		aWon := rng.IntN(s.SeasonLength)+1 <= thresholdA
		bWon := rng.IntN(s.SeasonLength)+1 <= thresholdB

		if !s.Policy.accept(aWon, bWon) {
			continue
		}
		if aWon {
			result.WinsA++
		}
		if bWon {
			result.WinsB++
		}
	}
	return result, nil
}
