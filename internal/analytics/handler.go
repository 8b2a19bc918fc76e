package analytics

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gaming-workshop/backend/pkg/response"
)

// Handler serves the analytics read endpoints.
type Handler struct {
	aggregator *Aggregator
	logger     *zap.Logger
}

func NewHandler(aggregator *Aggregator, logger *zap.Logger) *Handler {
	return &Handler{aggregator: aggregator, logger: logger}
}

// GetOverview handles GET /analytics/overview.
func (h *Handler) GetOverview(c *gin.Context) {
	overview, err := h.aggregator.Overview(c.Request.Context())
	if err != nil {
		h.logger.Error("analytics overview failed", zap.Error(err))
		response.Internal(c, "failed to compute overview")
		return
	}
	response.OK(c, overview)
}

// GetGames handles GET /analytics/games.
func (h *Handler) GetGames(c *gin.Context) {
	games, err := h.aggregator.Games(c.Request.Context())
	if err != nil {
		h.logger.Error("analytics games failed", zap.Error(err))
		response.Internal(c, "failed to list games")
		return
	}
	response.OK(c, gin.H{"games": games})
}

// GetGameReport handles GET /analytics/games/:game.
func (h *Handler) GetGameReport(c *gin.Context) {
	game := c.Param("game")
	if game == "" {
		response.BadRequest(c, "game name is required")
		return
	}
	report, err := h.aggregator.GameReport(c.Request.Context(), game)
	if err != nil {
		h.logger.Error("analytics game report failed", zap.String("game", game), zap.Error(err))
		response.Internal(c, "failed to compute game report")
		return
	}
	response.OK(c, report)
}
