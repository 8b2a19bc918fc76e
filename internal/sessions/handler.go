package sessions

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gaming-workshop/backend/pkg/response"
)

// Handler exposes the session state machine over HTTP. Every route is keyed by
// registration id; trackers are loaded on demand.
type Handler struct {
	manager *Manager
	logger  *zap.Logger
}

// NewHandler creates a sessions handler.
func NewHandler(manager *Manager, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{manager: manager, logger: logger}
}

func (h *Handler) tracker(c *gin.Context) *Tracker {
	t, err := h.manager.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrRegistrationNotFound) {
			response.NotFound(c, "no registration found for this id")
		} else {
			h.logger.Error("load session", zap.Error(err), zap.String("registration_id", c.Param("id")))
			response.Internal(c, "failed to load session")
		}
		return nil
	}
	return t
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrConfirmationRequired):
		response.BadRequest(c, "this action is destructive; pass confirm=true")
	case errors.Is(err, ErrPayloadTooLarge):
		response.PayloadTooLarge(c, "screenshot must be smaller than 5MB")
	case errors.Is(err, ErrInvalidState):
		response.Conflict(c, err.Error())
	default:
		h.logger.Error("session operation", zap.Error(err))
		response.Internal(c, "session operation failed")
	}
}

// Load handles POST /sessions/:id/load, restoring any prior session so work
// resumes where it left off.
func (h *Handler) Load(c *gin.Context) {
	t := h.tracker(c)
	if t == nil {
		return
	}
	response.OK(c, gin.H{"state": t.State(), "session": t.Session()})
}

// Get handles GET /sessions/:id.
func (h *Handler) Get(c *gin.Context) {
	t := h.tracker(c)
	if t == nil {
		return
	}
	response.OK(c, gin.H{"state": t.State(), "session": t.Session()})
}

// Unload handles POST /sessions/:id/unload. Persists and drops the tracker.
func (h *Handler) Unload(c *gin.Context) {
	if err := h.manager.Unload(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"unloaded": c.Param("id")})
}

// StartTimer handles POST /sessions/:id/timer/start.
func (h *Handler) StartTimer(c *gin.Context) {
	t := h.tracker(c)
	if t == nil {
		return
	}
	state, err := t.Start(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, state)
}

// PauseTimer handles POST /sessions/:id/timer/pause.
func (h *Handler) PauseTimer(c *gin.Context) {
	t := h.tracker(c)
	if t == nil {
		return
	}
	state, err := t.Pause(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, state)
}

// ResetTimer handles POST /sessions/:id/timer/reset?confirm=true.
func (h *Handler) ResetTimer(c *gin.Context) {
	t := h.tracker(c)
	if t == nil {
		return
	}
	state, err := t.Reset(c.Request.Context(), c.Query("confirm") == "true")
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, state)
}

type addGameRequest struct {
	Game string `json:"game" binding:"required"`
}

// AddGameTask handles POST /sessions/:id/games.
func (h *Handler) AddGameTask(c *gin.Context) {
	t := h.tracker(c)
	if t == nil {
		return
	}
	var req addGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	task, err := t.AddGameTask(c.Request.Context(), req.Game)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, task)
}

// StartGameTimer handles POST /sessions/:id/games/:game/timer/start.
func (h *Handler) StartGameTimer(c *gin.Context) {
	t := h.tracker(c)
	if t == nil {
		return
	}
	if err := t.StartGameTimer(c.Request.Context(), c.Param("game")); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"game": c.Param("game"), "timer": "running"})
}

// PauseGameTimer handles POST /sessions/:id/games/:game/timer/pause.
func (h *Handler) PauseGameTimer(c *gin.Context) {
	t := h.tracker(c)
	if t == nil {
		return
	}
	game := c.Param("game")
	if err := t.PauseGameTimer(c.Request.Context(), game); err != nil {
		h.fail(c, err)
		return
	}
	playTime, _ := t.GamePlayTime(game)
	response.OK(c, gin.H{"game": game, "timer": "paused", "totalPlayTime": playTime.Milliseconds()})
}

// RecordCrash handles POST /sessions/:id/games/:game/crashes.
func (h *Handler) RecordCrash(c *gin.Context) {
	t := h.tracker(c)
	if t == nil {
		return
	}
	crashes, err := t.RecordCrash(c.Request.Context(), c.Param("game"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"game": c.Param("game"), "crashes": crashes})
}

type observationRequest struct {
	Note string `json:"note" binding:"required"`
}

// AddObservation handles POST /sessions/:id/games/:game/observations.
func (h *Handler) AddObservation(c *gin.Context) {
	t := h.tracker(c)
	if t == nil {
		return
	}
	var req observationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := t.AddObservation(c.Request.Context(), c.Param("game"), req.Note); err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, gin.H{"game": c.Param("game")})
}

type completionRequest struct {
	CompletionPercentage *int `json:"completionPercentage" binding:"required"`
}

// SetCompletion handles PUT /sessions/:id/games/:game/completion.
func (h *Handler) SetCompletion(c *gin.Context) {
	t := h.tracker(c)
	if t == nil {
		return
	}
	var req completionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := t.SetCompletion(c.Request.Context(), c.Param("game"), *req.CompletionPercentage); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"game": c.Param("game"), "completionPercentage": *req.CompletionPercentage})
}

// AddScreenshot handles POST /sessions/:id/games/:game/screenshots.
func (h *Handler) AddScreenshot(c *gin.Context) {
	t := h.tracker(c)
	if t == nil {
		return
	}
	var req ScreenshotInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	shot, err := t.AddScreenshot(c.Request.Context(), c.Param("game"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	// echo metadata only; the payload can be megabytes
	response.Created(c, gin.H{
		"id":               shot.ID,
		"timestamp":        shot.Timestamp,
		"filename":         shot.Filename,
		"completionAtTime": shot.CompletionAtTime,
	})
}

// CompleteGameTask handles POST /sessions/:id/games/:game/complete.
func (h *Handler) CompleteGameTask(c *gin.Context) {
	t := h.tracker(c)
	if t == nil {
		return
	}
	task, err := t.CompleteGameTask(c.Request.Context(), c.Param("game"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, task)
}
