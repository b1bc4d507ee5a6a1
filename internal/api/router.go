package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/playoff-sim/internal/api/handlers"
	"github.com/stitts-dev/playoff-sim/internal/api/middleware"
	"github.com/stitts-dev/playoff-sim/internal/services"
	"github.com/stitts-dev/playoff-sim/internal/websocket"
	"github.com/stitts-dev/playoff-sim/pkg/config"
	"github.com/stitts-dev/playoff-sim/pkg/database"
)

// Dependencies are the services the routes are built on
type Dependencies struct {
	DB          *database.DB
	Cache       *services.CacheService
	Hub         *websocket.Hub
	Simulations *services.SimulationService
	Scheduler   *services.Scheduler
	Config      *config.Config
	Logger      *logrus.Logger
}

// NewRouter builds the engine with middleware, health probes, the websocket
// endpoint and the /api/v1 routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.CORS(deps.Config.CorsOrigins))

	health := handlers.NewHealthHandler(deps.DB, deps.Cache)
	router.GET("/health", health.GetHealth)
	router.GET("/ready", health.GetReady)

	router.GET("/ws/progress", deps.Hub.HandleWebSocket)
	router.GET("/ws/progress/:run_id", deps.Hub.HandleWebSocket)

	SetupRoutes(router.Group("/api/v1"), deps)
	return router
}

// SetupRoutes configures all API routes on the given router group
func SetupRoutes(group *gin.RouterGroup, deps Dependencies) {
	simulationHandler := handlers.NewSimulationHandler(deps.Simulations, deps.Scheduler, deps.Logger)
	limiter := middleware.NewIPRateLimiter(deps.Config.RateLimitRPS, deps.Config.RateLimitBurst)

	group.POST("/simulate", middleware.RateLimit(limiter), simulationHandler.Simulate)
	group.GET("/simulations", simulationHandler.ListSimulations)
	group.GET("/simulations/latest", simulationHandler.GetLatestSimulation)
	group.GET("/simulations/:id", simulationHandler.GetSimulation)
	group.POST("/simulations/:id/projections", simulationHandler.ProjectPlayers)

	admin := group.Group("/admin")
	admin.Use(middleware.AuthRequired(deps.Config.JWTSecret))
	{
		admin.POST("/rerun", simulationHandler.Rerun)
		admin.GET("/scheduler", simulationHandler.SchedulerStatus)
		admin.DELETE("/simulations", simulationHandler.PruneSimulations)
	}
}
