package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/playoff-sim/internal/api"
	"github.com/stitts-dev/playoff-sim/internal/models"
	"github.com/stitts-dev/playoff-sim/internal/services"
	"github.com/stitts-dev/playoff-sim/internal/websocket"
	"github.com/stitts-dev/playoff-sim/pkg/config"
	"github.com/stitts-dev/playoff-sim/pkg/database"
	"github.com/stitts-dev/playoff-sim/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := models.Migrate(db.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ctx := context.Background()
	cache, err := services.NewCacheServiceFromURL(ctx, cfg.RedisURL)
	if err != nil {
		log.Warnf("Redis unavailable, result caching disabled: %v", err)
		cache = services.NewCacheService(nil)
	}
	defer cache.Close()

	hub := websocket.NewHub(log)
	go hub.Run()
	defer hub.Shutdown()

	simulations := services.NewSimulationService(services.NewRunStore(db), cache, hub, cfg, log)

	scheduler := services.NewScheduler(simulations, cfg.TeamsFile, cfg.RerunSchedule, log)
	if err := scheduler.Start(); err != nil {
		log.Errorf("Failed to start rerun scheduler: %v", err)
	}
	defer scheduler.Stop()

	router := api.NewRouter(api.Dependencies{
		DB:          db,
		Cache:       cache,
		Hub:         hub,
		Simulations: simulations,
		Scheduler:   scheduler,
		Config:      cfg,
		Logger:      log,
	})

	// Simulation requests can run for a while at high trial counts
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port":    cfg.Port,
			"env":     cfg.Env,
			"policy":  cfg.Policy().String(),
			"caching": cache.Enabled(),
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}
	log.Info("Server exited")
}
