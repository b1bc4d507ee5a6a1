package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/playoff-sim/pkg/config"
	"github.com/stitts-dev/playoff-sim/pkg/logger"
)

const usage = `Usage: playoffs <command> [flags]

Commands:
  simulate   run the bracket and write scores.txt and winners.txt
  calibrate  search season weights against observed playoff games
  import     scrape a stats page into a players CSV
  token      print an admin token for the HTTP API

Run "playoffs <command> -h" for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	log.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	args := os.Args[2:]
	switch command := os.Args[1]; command {
	case "simulate":
		err = runSimulate(ctx, cfg, args)
	case "calibrate":
		err = runCalibrate(ctx, cfg, args)
	case "import":
		err = runImport(ctx, cfg, args)
	case "token":
		err = runToken(cfg, args)
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}

	if err != nil {
		logger.WithService(os.Args[1]).WithError(err).Error("Command failed")
		os.Exit(1)
	}
}
