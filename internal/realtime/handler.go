package realtime

import (
	"github.com/gin-gonic/gin"
	"github.com/richxcame/transitflow/pkg/common"
	"github.com/richxcame/transitflow/pkg/jwtkeys"
	"github.com/richxcame/transitflow/pkg/middleware"
	"github.com/richxcame/transitflow/pkg/models"
	ws "github.com/richxcame/transitflow/pkg/websocket"
)

// Handler handles HTTP requests for the real-time service
type Handler struct {
	service    *Service
	provider   jwtkeys.KeyProvider
	sendBuffer int
}

// NewHandler creates a new handler
func NewHandler(service *Service, provider jwtkeys.KeyProvider, sendBuffer int) *Handler {
	return &Handler{service: service, provider: provider, sendBuffer: sendBuffer}
}

// HandleWebSocket upgrades an authenticated request to a websocket
// GET /api/v1/ws?token=..
func (h *Handler) HandleWebSocket(c *gin.Context) {
	ws.HandleWebSocket(c, h.service.GetHub(), h.provider, h.sendBuffer)
}

// GetStats returns connection statistics
// GET /api/v1/realtime/stats
func (h *Handler) GetStats(c *gin.Context) {
	common.SuccessResponse(c, h.service.GetStats())
}

// RegisterWebSocket mounts the websocket endpoint. It authenticates the
// token itself so the group must not require auth.
func (h *Handler) RegisterWebSocket(rg *gin.RouterGroup) {
	rg.GET("/ws", h.HandleWebSocket)
}

// RegisterRoutes mounts the admin endpoints on an authenticated group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/realtime/stats", middleware.RequireRole(models.RoleAdmin), h.GetStats)
}
