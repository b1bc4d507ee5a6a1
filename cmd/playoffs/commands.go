package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stitts-dev/playoff-sim/internal/api/middleware"
	"github.com/stitts-dev/playoff-sim/internal/bracket"
	"github.com/stitts-dev/playoff-sim/internal/calibration"
	"github.com/stitts-dev/playoff-sim/internal/loader"
	"github.com/stitts-dev/playoff-sim/internal/models"
	"github.com/stitts-dev/playoff-sim/internal/report"
	"github.com/stitts-dev/playoff-sim/internal/scoring"
	"github.com/stitts-dev/playoff-sim/internal/services"
	"github.com/stitts-dev/playoff-sim/internal/stats"
	"github.com/stitts-dev/playoff-sim/pkg/config"
	"github.com/stitts-dev/playoff-sim/pkg/database"
	"github.com/stitts-dev/playoff-sim/pkg/logger"
)

func tableOptions(delim, sixth string) (loader.Options, error) {
	var opts loader.Options
	if delim != "" {
		if len([]rune(delim)) != 1 {
			return opts, fmt.Errorf("delimiter must be a single character, got %q", delim)
		}
		opts.Comma = []rune(delim)[0]
	}
	switch sixth {
	case "otl", "":
		opts.SixthColumn = loader.OvertimeLosses
	case "otw":
		opts.SixthColumn = loader.OvertimeWins
	default:
		return opts, fmt.Errorf("sixth column must be otl or otw, got %q", sixth)
	}
	return opts, nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func runSimulate(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	teamsFile := fs.String("teams", cfg.TeamsFile, "team table")
	players := fs.String("players", strings.Join(cfg.PlayersFiles, ","), "comma separated path:position player tables")
	trials := fs.Int("trials", cfg.SimulationTrials, "number of bracket trials")
	seed := fs.Uint64("seed", cfg.SimulationSeed, "random seed, 0 picks one")
	workers := fs.Int("workers", cfg.SimulationWorkers, "worker goroutines, 0 uses every CPU")
	overtime := fs.Bool("ot", cfg.CountOvertimeWins, "count overtime wins toward win strength")
	delim := fs.String("delim", "", "table delimiter (default ,)")
	sixth := fs.String("sixth", "otl", "meaning of the sixth team column: otl or otw")
	outDir := fs.String("out", ".", "directory for scores.txt and winners.txt")
	store := fs.Bool("store", false, "persist the run to DATABASE_URL")
	fs.Parse(args)

	opts, err := tableOptions(*delim, *sixth)
	if err != nil {
		return err
	}
	teams, err := loader.LoadTeams(*teamsFile, opts)
	if err != nil {
		return err
	}

	bc := cfg.Bracket()
	bc.Policy = bracket.PolicyFor(*overtime)
	field, err := bracket.NewField(teams, bc)
	if err != nil {
		return err
	}
	if *seed == 0 {
		*seed = bracket.NewSeed()
	}

	runID := uuid.New()
	log := logger.WithRunContext(runID.String(), *trials, *seed, bc.Policy.String())
	result, err := bracket.NewSimulator(field, bracket.Options{
		Trials:  *trials,
		Workers: *workers,
		Seed:    *seed,
		Logger:  logger.GetLogger(),
		Observer: func(p bracket.Progress) {
			if p.Percent%10 == 0 {
				log.WithField("percent", p.Percent).Debug("Simulation progress")
			}
		},
	}).Run(ctx)
	if err != nil {
		return err
	}

	var all []scoring.Player
	cfg.PlayersFiles = nil
	for _, entry := range strings.Split(*players, ",") {
		if entry = strings.TrimSpace(entry); entry != "" {
			cfg.PlayersFiles = append(cfg.PlayersFiles, entry)
		}
	}
	sources, err := cfg.PlayerSources()
	if err != nil {
		return err
	}
	for _, src := range sources {
		ps, err := loader.LoadPlayers(src.Path, src.Position, opts)
		if err != nil {
			return err
		}
		all = append(all, ps...)
	}
	projections := scoring.Project(all, result.ExpectedGames())

	if err := writeFile(filepath.Join(*outDir, "scores.txt"), func(f *os.File) error {
		return report.WriteScores(f, projections)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(*outDir, "winners.txt"), func(f *os.File) error {
		return report.WriteWinners(f, result)
	}); err != nil {
		return err
	}
	if err := report.WriteSummary(os.Stdout, result); err != nil {
		return err
	}

	if *store {
		if err := storeRun(ctx, cfg, runID, result, field); err != nil {
			return err
		}
		log.Info("Run stored")
	}
	return nil
}

func storeRun(ctx context.Context, cfg *config.Config, runID uuid.UUID, result *bracket.Result, field *bracket.Field) error {
	db, err := database.NewConnection(cfg.DatabaseURL, false)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := models.Migrate(db.DB); err != nil {
		return err
	}

	teams := field.Teams()
	hash := services.InputHash(teams, result.Trials, result.Seed, field.Config())
	run, err := models.NewSimulationRun(result, teams, models.SourceCLI, hash)
	if err != nil {
		return err
	}
	run.ID = runID
	for i := range run.Projections {
		run.Projections[i].RunID = runID
	}
	return services.NewRunStore(db).Save(ctx, run)
}

func runCalibrate(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("calibrate", flag.ExitOnError)
	historyFile := fs.String("history", "history.json", "JSON list of team histories")
	steps := fs.Int("steps", calibration.DefaultSteps, "grid steps per unit weight")
	trials := fs.Int("trials", calibration.DefaultTrials, "trials per grid point")
	seed := fs.Uint64("seed", calibration.DefaultSeed, "seed shared by every grid point")
	workers := fs.Int("workers", cfg.SimulationWorkers, "worker goroutines, 0 uses every CPU")
	out := fs.String("out", "", "write every evaluated point as JSON to this file")
	fs.Parse(args)

	data, err := os.ReadFile(*historyFile)
	if err != nil {
		return err
	}
	var histories []calibration.TeamHistory
	if err := json.Unmarshal(data, &histories); err != nil {
		return fmt.Errorf("parse %s: %w", *historyFile, err)
	}

	best, err := calibration.Calibrate(ctx, histories, calibration.Options{
		Steps:   *steps,
		Trials:  *trials,
		Workers: *workers,
		Seed:    *seed,
		Config:  cfg.Bracket(),
		Logger:  logger.GetLogger(),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "best weights %v, mse %.4f over %d points\n", best.Weights, best.MSE, len(best.Points))
	if *out == "" {
		return nil
	}
	return writeFile(*out, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(best)
	})
}

func runImport(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	url := fs.String("url", cfg.StatsURL, "stats page URL")
	out := fs.String("out", "players.csv", "players CSV to write")
	position := fs.String("position", "", "keep only F or D players")
	fs.Parse(args)

	if *url == "" {
		return errors.New("no stats URL, set -url or STATS_URL")
	}

	client := stats.NewClient(stats.Options{
		Timeout:     cfg.ExternalAPITimeout,
		MaxRequests: uint32(cfg.CircuitBreakerThreshold),
		Logger:      logger.GetLogger(),
	})
	players, err := client.Fetch(ctx, *url)
	if err != nil {
		return err
	}

	if *position != "" {
		kept := players[:0]
		for _, p := range players {
			if strings.EqualFold(p.Position, *position) {
				kept = append(kept, p)
			}
		}
		players = kept
	}

	if err := writeFile(*out, func(f *os.File) error {
		return loader.WritePlayers(f, players, loader.Options{})
	}); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "wrote %d players to %s\n", len(players), *out)
	return nil
}

func runToken(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	subject := fs.String("subject", "admin", "token subject")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	fs.Parse(args)

	token, err := middleware.GenerateToken(cfg.JWTSecret, *subject, middleware.RoleAdmin, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, token)
	return nil
}
