package scoring

import (
	"sort"
)

const (
	PositionForward = "F"
	PositionDefense = "D"
)

// Player is one skater's regular season line
type Player struct {
	Name        string `json:"name"`
	Team        string `json:"team"`
	Position    string `json:"position"`
	GamesPlayed int    `json:"games_played"`
	Points      int    `json:"points"`
}

// PointsPerGame returns points over games played, 0 for a player with no games
func (p Player) PointsPerGame() float64 {
	if p.GamesPlayed == 0 {
		return 0
	}
	return float64(p.Points) / float64(p.GamesPlayed)
}

// Projection is a player's expected playoff points
type Projection struct {
	Player
	PointsPerGame  float64 `json:"points_per_game"`
	ExpectedGames  float64 `json:"expected_games"`
	ExpectedPoints float64 `json:"expected_points"`
}

// Project multiplies each player's points per game by the expected playoff
// games of the player's team. Players on teams missing from expectedGames
// project to zero. The result is sorted by expected points descending, then
// name.
func Project(players []Player, expectedGames map[string]float64) []Projection {
	projections := make([]Projection, 0, len(players))
	for _, p := range players {
		ppg := p.PointsPerGame()
		games := expectedGames[p.Team]
		projections = append(projections, Projection{
			Player:         p,
			PointsPerGame:  ppg,
			ExpectedGames:  games,
			ExpectedPoints: ppg * games,
		})
	}

	sort.SliceStable(projections, func(i, j int) bool {
		if projections[i].ExpectedPoints != projections[j].ExpectedPoints {
			return projections[i].ExpectedPoints > projections[j].ExpectedPoints
		}
		return projections[i].Name < projections[j].Name
	})
	return projections
}

// Top returns at most n leading projections
func Top(projections []Projection, n int) []Projection {
	if n < 0 {
		n = 0
	}
	if n > len(projections) {
		n = len(projections)
	}
	return projections[:n]
}

// ByPosition filters projections to one position, keeping their order
func ByPosition(projections []Projection, position string) []Projection {
	var out []Projection
	for _, p := range projections {
		if p.Position == position {
			out = append(out, p)
		}
	}
	return out
}
