package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/playoff-sim/internal/bracket"
	"github.com/stitts-dev/playoff-sim/internal/loader"
	"github.com/stitts-dev/playoff-sim/internal/scoring"
	"github.com/stitts-dev/playoff-sim/internal/services"
	"github.com/stitts-dev/playoff-sim/pkg/utils"
)

type SimulationHandler struct {
	simulations *services.SimulationService
	scheduler   *services.Scheduler
	logger      *logrus.Logger
}

func NewSimulationHandler(simulations *services.SimulationService, scheduler *services.Scheduler, logger *logrus.Logger) *SimulationHandler {
	return &SimulationHandler{
		simulations: simulations,
		scheduler:   scheduler,
		logger:      logger,
	}
}

type simulateRequest struct {
	RunID             string         `json:"run_id"`
	Teams             []bracket.Team `json:"teams" binding:"required,min=2"`
	Trials            int            `json:"trials" binding:"min=0"`
	Seed              uint64         `json:"seed"`
	Workers           int            `json:"workers" binding:"min=0"`
	CountOvertimeWins *bool          `json:"count_overtime_wins"`
}

// Simulate runs the bracket for the posted teams. A client may pick run_id
// up front to subscribe to /ws/progress/:run_id before posting; such a
// request always runs fresh under that id instead of reusing a cached run.
func (h *SimulationHandler) Simulate(c *gin.Context) {
	var req simulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	runID := uuid.Nil
	if req.RunID != "" {
		id, err := uuid.Parse(req.RunID)
		if err != nil {
			utils.SendValidationError(c, "Invalid run ID", err.Error())
			return
		}
		runID = id
	}

	run, cached, err := h.simulations.Simulate(c.Request.Context(), services.SimulationRequest{
		RunID:             runID,
		Teams:             req.Teams,
		Trials:            req.Trials,
		Seed:              req.Seed,
		Workers:           req.Workers,
		CountOvertimeWins: req.CountOvertimeWins,
	})
	if err != nil {
		h.sendError(c, err)
		return
	}

	if cached {
		utils.SendSuccessWithMeta(c, run, &utils.Meta{Cached: true})
		return
	}
	utils.SendCreated(c, run)
}

// ListSimulations pages through stored runs, newest first
func (h *SimulationHandler) ListSimulations(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	runs, total, err := h.simulations.List(c.Request.Context(), page, perPage)
	if err != nil {
		h.sendError(c, err)
		return
	}
	utils.SendSuccessWithMeta(c, runs, utils.NewMeta(page, perPage, total))
}

// GetSimulation returns one run with its team projections
func (h *SimulationHandler) GetSimulation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.SendValidationError(c, "Invalid simulation ID", err.Error())
		return
	}

	run, err := h.simulations.Get(c.Request.Context(), id)
	if err != nil {
		h.sendError(c, err)
		return
	}
	utils.SendSuccess(c, run)
}

// GetLatestSimulation returns the newest run, optionally filtered by source
func (h *SimulationHandler) GetLatestSimulation(c *gin.Context) {
	run, err := h.simulations.Latest(c.Request.Context(), c.Query("source"))
	if err != nil {
		h.sendError(c, err)
		return
	}
	utils.SendSuccess(c, run)
}

type projectionsRequest struct {
	Players  []scoring.Player `json:"players" binding:"required,min=1"`
	Position string           `json:"position"`
	Top      int              `json:"top" binding:"min=0"`
}

// ProjectPlayers scores the posted players against a stored run's expected
// games per team.
func (h *SimulationHandler) ProjectPlayers(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.SendValidationError(c, "Invalid simulation ID", err.Error())
		return
	}

	var req projectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	run, err := h.simulations.Get(c.Request.Context(), id)
	if err != nil {
		h.sendError(c, err)
		return
	}

	projections := scoring.Project(req.Players, run.ExpectedGames())
	if req.Position != "" {
		projections = scoring.ByPosition(projections, req.Position)
	}
	if req.Top > 0 {
		projections = scoring.Top(projections, req.Top)
	}
	utils.SendSuccess(c, projections)
}

// Rerun triggers the scheduled rerun immediately
func (h *SimulationHandler) Rerun(c *gin.Context) {
	run, err := h.scheduler.RunNow(c.Request.Context())
	if err != nil {
		h.sendError(c, err)
		return
	}
	utils.SendCreated(c, run)
}

// SchedulerStatus reports the rerun schedule and its last outcome
func (h *SimulationHandler) SchedulerStatus(c *gin.Context) {
	utils.SendSuccess(c, h.scheduler.Status())
}

// PruneSimulations deletes runs older than the older_than duration
func (h *SimulationHandler) PruneSimulations(c *gin.Context) {
	age, err := time.ParseDuration(c.DefaultQuery("older_than", "720h"))
	if err != nil || age <= 0 {
		utils.SendValidationError(c, "Invalid older_than duration", c.Query("older_than"))
		return
	}

	deleted, err := h.simulations.Prune(c.Request.Context(), age)
	if err != nil {
		h.sendError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"older_than": age.String(),
		"deleted":    deleted,
	}).Info("Pruned simulation runs")
	utils.SendSuccess(c, gin.H{"deleted": deleted})
}

func (h *SimulationHandler) sendError(c *gin.Context, err error) {
	var (
		invalidTeam *bracket.InvalidTeamError
		bracketErr  *bracket.BracketConfigurationError
		degenerate  *bracket.DegenerateInputError
		parseErr    *loader.ParseError
	)

	switch {
	case errors.Is(err, services.ErrRunNotFound):
		utils.SendNotFound(c, "Simulation not found")
	case errors.Is(err, services.ErrTooManyTrials):
		utils.SendValidationError(c, "Too many trials", err.Error())
	case errors.As(err, &invalidTeam):
		utils.SendUnprocessable(c, utils.ErrCodeInvalidTeam, "Invalid team record", err.Error())
	case errors.As(err, &bracketErr):
		utils.SendUnprocessable(c, utils.ErrCodeBracket, "Teams do not form a valid bracket", err.Error())
	case errors.As(err, &degenerate):
		utils.SendUnprocessable(c, utils.ErrCodeDegenerate, "Matchup can never be decided", err.Error())
	case errors.As(err, &parseErr):
		utils.SendUnprocessable(c, utils.ErrCodeUnprocessable, "Team table could not be parsed", err.Error())
	default:
		h.logger.WithError(err).Error("Simulation request failed")
		_ = c.Error(err)
		utils.SendInternalError(c, "Simulation failed")
	}
}
