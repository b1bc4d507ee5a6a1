// Package stats imports player scoring tables from HTML stats pages.
package stats

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/stitts-dev/playoff-sim/internal/scoring"
)

// ErrNoTable is returned when a page has no table with player, team, games
// played and points columns.
var ErrNoTable = errors.New("no player stats table found")

// Options configures a Client. Zero values pick defaults.
type Options struct {
	Timeout           time.Duration
	MaxRequests       uint32
	RequestsPerSecond float64
	UserAgent         string
	Logger            *logrus.Logger
}

// Client fetches stats pages behind a rate limiter and a circuit breaker
type Client struct {
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker
	limiter   *rate.Limiter
	userAgent string
	logger    *logrus.Logger
}

func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxRequests == 0 {
		opts.MaxRequests = 5
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 1
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "playoff-sim/1.0"
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	return &Client{
		http:      &http.Client{Timeout: opts.Timeout},
		breaker:   newBreaker("stats", opts.MaxRequests, opts.Logger),
		limiter:   rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		userAgent: opts.UserAgent,
		logger:    opts.Logger,
	}
}

func newBreaker(name string, maxRequests uint32, logger *logrus.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: maxRequests,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Info("Circuit breaker state changed")
		},
	})
}

// State reports the breaker state
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// Fetch downloads url and parses its player table
func (c *Client) Fetch(ctx context.Context, url string) ([]scoring.Player, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, url)
	})
	if err != nil {
		return nil, err
	}
	players := out.([]scoring.Player)

	c.logger.WithFields(logrus.Fields{
		"url":     url,
		"players": len(players),
	}).Info("Imported player stats")
	return players, nil
}

func (c *Client) fetch(ctx context.Context, url string) ([]scoring.Player, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("non-200 status code: %d %s", resp.StatusCode, resp.Status)
	}
	return Parse(resp.Body)
}

type columns struct {
	name, team, gp, points, pos int
}

func (c columns) complete() bool {
	return c.name >= 0 && c.team >= 0 && c.gp >= 0 && c.points >= 0
}

func detectColumns(headers []string) columns {
	cols := columns{name: -1, team: -1, gp: -1, points: -1, pos: -1}
	for i, h := range headers {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "player", "name":
			cols.name = i
		case "team", "tm":
			cols.team = i
		case "gp", "games":
			cols.gp = i
		case "p", "pts", "points":
			cols.points = i
		case "pos", "position":
			cols.pos = i
		}
	}
	return cols
}

func cellTexts(s *goquery.Selection) []string {
	var out []string
	s.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
		out = append(out, strings.TrimSpace(cell.Text()))
	})
	return out
}

// Parse reads the first table whose header names player, team, games played
// and points columns. Rows with non-numeric counts, such as repeated headers,
// are skipped. Players listed as "D" are defensemen, everyone else forwards.
func Parse(r io.Reader) ([]scoring.Player, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}

	var players []scoring.Player
	found := false
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		rows := table.Find("tr")
		if rows.Length() == 0 {
			return true
		}
		cols := detectColumns(cellTexts(rows.First()))
		if !cols.complete() {
			return true
		}
		found = true

		rows.Slice(1, goquery.ToEnd).Each(func(_ int, tr *goquery.Selection) {
			if p, ok := parseRow(cellTexts(tr), cols); ok {
				players = append(players, p)
			}
		})
		return false
	})

	if !found {
		return nil, ErrNoTable
	}
	return players, nil
}

func parseRow(cells []string, cols columns) (scoring.Player, bool) {
	need := max(cols.name, cols.team, cols.gp, cols.points, cols.pos)
	if len(cells) <= need {
		return scoring.Player{}, false
	}
	gp, err := strconv.Atoi(cells[cols.gp])
	if err != nil {
		return scoring.Player{}, false
	}
	pts, err := strconv.Atoi(cells[cols.points])
	if err != nil {
		return scoring.Player{}, false
	}

	position := scoring.PositionForward
	if cols.pos >= 0 && strings.EqualFold(cells[cols.pos], scoring.PositionDefense) {
		position = scoring.PositionDefense
	}
	return scoring.Player{
		Name:        cells[cols.name],
		Team:        strings.ToUpper(cells[cols.team]),
		Position:    position,
		GamesPlayed: gp,
		Points:      pts,
	}, true
}
