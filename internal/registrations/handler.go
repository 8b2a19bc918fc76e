package registrations

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gaming-workshop/backend/internal/availability"
	"github.com/gaming-workshop/backend/internal/realtime"
	"github.com/gaming-workshop/backend/pkg/response"
)

// TrackerDropper evicts a live session tracker when its registration goes
// away. Satisfied by the session manager.
type TrackerDropper interface {
	Drop(registrationID string)
}

// Handler handles registration HTTP endpoints.
type Handler struct {
	service  *Service
	engine   *availability.Engine
	hub      *realtime.Hub
	trackers TrackerDropper
	logger   *zap.Logger
}

// NewHandler creates a registrations handler. hub and trackers may be nil.
func NewHandler(service *Service, engine *availability.Engine, hub *realtime.Hub, trackers TrackerDropper, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, engine: engine, hub: hub, trackers: trackers, logger: logger}
}

// Register handles POST /registrations.
func (h *Handler) Register(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	reg, err := h.service.Register(c.Request.Context(), in)
	if err != nil {
		var vErr *ValidationError
		switch {
		case errors.As(err, &vErr):
			response.BadRequest(c, vErr.Error())
		case errors.Is(err, availability.ErrSlotFull):
			response.Conflict(c, "this slot is now full, please select another time slot")
		case errors.Is(err, availability.ErrDuplicateEmail):
			response.Conflict(c, "you are already registered for this specific time slot")
		case errors.Is(err, availability.ErrDuplicateWWID):
			response.Conflict(c, "this wwid is already registered for this specific time slot")
		default:
			h.logger.Error("register failed", zap.Error(err))
			response.Internal(c, "failed to save registration")
		}
		return
	}

	h.broadcastOccupancy(c, reg.Date)
	response.Created(c, reg)
}

// Search handles GET /registrations?identity=. Returns the registrations held
// by one email or wwid, for the dashboard session picker.
func (h *Handler) Search(c *gin.Context) {
	term := c.Query("identity")
	if term == "" {
		response.BadRequest(c, "identity query parameter (email or wwid) required")
		return
	}
	regs, err := h.service.ListByIdentity(c.Request.Context(), term)
	if err != nil {
		response.Internal(c, "failed to search registrations")
		return
	}
	response.OK(c, regs)
}

// List handles GET /admin/registrations.
func (h *Handler) List(c *gin.Context) {
	regs, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list registrations")
		return
	}
	response.OK(c, regs)
}

// Remove handles DELETE /admin/registrations/:id. Destructive; requires
// confirm=true and cascade-deletes the correlated session.
func (h *Handler) Remove(c *gin.Context) {
	if c.Query("confirm") != "true" {
		response.BadRequest(c, "removal is destructive; pass confirm=true")
		return
	}
	id := c.Param("id")

	reg, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "registration not found")
			return
		}
		response.Internal(c, "failed to load registration")
		return
	}
	if err := h.service.Remove(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "registration not found")
			return
		}
		h.logger.Error("remove failed", zap.Error(err), zap.String("registration_id", id))
		response.Internal(c, "failed to remove registration")
		return
	}
	if h.trackers != nil {
		h.trackers.Drop(id)
	}

	h.broadcastOccupancy(c, reg.Date)
	response.OK(c, gin.H{"removed": id})
}

func (h *Handler) broadcastOccupancy(c *gin.Context, date string) {
	if h.hub == nil {
		return
	}
	occupancy, err := h.engine.Occupancy(c.Request.Context(), date)
	if err != nil {
		h.logger.Warn("occupancy broadcast skipped", zap.Error(err), zap.String("date", date))
		return
	}
	h.hub.BroadcastAndPublish(date, "occupancy", occupancy)
}
