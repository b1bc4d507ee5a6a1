package bracket

import "fmt"

// Rejection selects which paired draws the series sampler discards.
type Rejection int

const (
	// RejectBothWon discards a draw only when both sides were judged winners.
	// A draw where neither side won is accepted but credits nobody.
	RejectBothWon Rejection = iota
	// RejectTied discards a draw when both or neither side won.
	RejectTied
)

func (r Rejection) String() string {
	switch r {
	case RejectBothWon:
		return "both_won"
	case RejectTied:
		return "tied"
	}
	return "unknown"
}

// WinPolicy decides how a season record turns into a per-game win threshold
// and which draws are rejected.
type WinPolicy struct {
	Name              string    `json:"name"`
	CountOvertimeWins bool      `json:"count_overtime_wins"`
	Rejection         Rejection `json:"rejection"`
}

var (
	// PolicyOvertimeAsWins counts overtime wins toward the threshold and
	// rejects draws where both sides won.
	PolicyOvertimeAsWins = WinPolicy{Name: "overtime_as_wins", CountOvertimeWins: true, Rejection: RejectBothWon}
	// PolicyRegulationOnly counts regulation wins only and rejects draws where
	// both or neither side won.
	PolicyRegulationOnly = WinPolicy{Name: "regulation_only", CountOvertimeWins: false, Rejection: RejectTied}
)

// PolicyFor maps the "count overtime wins" switch onto a named policy
func PolicyFor(countOvertimeWins bool) WinPolicy {
	if countOvertimeWins {
		return PolicyOvertimeAsWins
	}
	return PolicyRegulationOnly
}

// Threshold returns the highest draw in [1, seasonLength] that counts as a win for t
func (p WinPolicy) Threshold(t Team) int {
	if p.CountOvertimeWins {
		return t.RegulationWins + t.OvertimeWins
	}
	return t.RegulationWins
}

func (p WinPolicy) accept(aWon, bWon bool) bool {
	if p.Rejection == RejectBothWon {
		return !(aWon && bWon)
	}
	return aWon != bWon
}

func (p WinPolicy) String() string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("ot=%t,reject=%s", p.CountOvertimeWins, p.Rejection)
}
