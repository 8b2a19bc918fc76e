package availability

import (
	"github.com/gin-gonic/gin"

	"github.com/gaming-workshop/backend/internal/workshop"
	"github.com/gaming-workshop/backend/pkg/response"
)

// Handler serves the slot-availability grid.
type Handler struct {
	engine *Engine
}

// NewHandler creates an availability handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// SlotStatus is one row of the slot grid for a date.
type SlotStatus struct {
	Slot      string `json:"slot"`
	Occupied  int    `json:"occupied"`
	Available int    `json:"available"`
	Full      bool   `json:"full"`
}

// GetSlots handles GET /slots/:date.
func (h *Handler) GetSlots(c *gin.Context) {
	date := c.Param("date")
	if !workshop.ContainsDate(date) {
		response.BadRequest(c, "date must be a YYYY-MM-DD day inside the workshop period")
		return
	}

	occupancy, err := h.engine.Occupancy(c.Request.Context(), date)
	if err != nil {
		response.Internal(c, "failed to load occupancy")
		return
	}

	slots := make([]SlotStatus, 0, len(workshop.TimeSlots))
	for _, slot := range workshop.TimeSlots {
		occupied := occupancy[workshop.SlotKey(date, slot)]
		slots = append(slots, SlotStatus{
			Slot:      slot,
			Occupied:  occupied,
			Available: workshop.MaxUsersPerSlot - occupied,
			Full:      occupied >= workshop.MaxUsersPerSlot,
		})
	}
	response.OK(c, gin.H{"date": date, "maxUsersPerSlot": workshop.MaxUsersPerSlot, "slots": slots})
}

// GetWorkshopInfo handles GET /workshop.
func (h *Handler) GetWorkshopInfo(c *gin.Context) {
	response.OK(c, gin.H{
		"startDate":       workshop.StartDate,
		"endDate":         workshop.EndDate,
		"timeSlots":       workshop.TimeSlots,
		"totalDays":       workshop.TotalDays(),
		"slotsPerDay":     len(workshop.TimeSlots),
		"maxUsersPerSlot": workshop.MaxUsersPerSlot,
		"totalSlots":      workshop.TotalSlots(),
	})
}
