package bracket

import (
	"fmt"
	"strings"
)

// BracketConfigurationError is returned when a set of teams cannot be paired
// into a valid elimination bracket.
type BracketConfigurationError struct {
	Conference string
	Teams      []string
	Reason     string
}

func (e *BracketConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("bracket configuration: ")
	b.WriteString(e.Reason)
	if e.Conference != "" {
		fmt.Fprintf(&b, " (conference %s)", e.Conference)
	}
	if len(e.Teams) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.Teams, ", "))
	}
	return b.String()
}

// DegenerateInputError is returned when neither side of a matchup can ever
// produce a decisive game, which would keep the series sampler looping forever.
type DegenerateInputError struct {
	TeamA        string
	TeamB        string
	ThresholdA   int
	ThresholdB   int
	SeasonLength int
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("degenerate matchup %s vs %s: win thresholds %d and %d of %d never yield a decisive game",
		e.TeamA, e.TeamB, e.ThresholdA, e.ThresholdB, e.SeasonLength)
}

// InvalidTeamError reports a team record that fails validation
type InvalidTeamError struct {
	Team   string
	Reason string
}

func (e *InvalidTeamError) Error() string {
	if e.Team == "" {
		return "invalid team: " + e.Reason
	}
	return fmt.Sprintf("invalid team %s: %s", e.Team, e.Reason)
}
