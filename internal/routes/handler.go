package routes

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/transitflow/pkg/common"
	"github.com/richxcame/transitflow/pkg/geo"
	"github.com/richxcame/transitflow/pkg/middleware"
	"github.com/richxcame/transitflow/pkg/ratelimit"
	"github.com/richxcame/transitflow/pkg/validation"
)

// Handler handles HTTP requests for routes
type Handler struct {
	service *Service
}

// NewHandler creates a new routes handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ListRoutes returns the active routes
// GET /api/v1/routes
func (h *Handler) ListRoutes(c *gin.Context) {
	routes, err := h.service.ListRoutes(c.Request.Context())
	if common.HandleServiceError(c, err, "failed to list routes") {
		return
	}

	common.SuccessResponseWithMeta(c, routes, &common.Meta{Total: int64(len(routes))})
}

// GetRoute returns one route
// GET /api/v1/routes/:id
func (h *Handler) GetRoute(c *gin.Context) {
	routeID, ok := common.RequireParam(c, "id", "route id")
	if !ok {
		return
	}

	route, err := h.service.GetRoute(c.Request.Context(), routeID)
	if common.HandleServiceError(c, err, "failed to get route") {
		return
	}

	common.SuccessResponse(c, route)
}

// FindRoutes ranks routes for ?origin=..&destination=.. in textual encoding
// GET /api/v1/routes/find
func (h *Handler) FindRoutes(c *gin.Context) {
	origin, destination, ok := queryTrip(c)
	if !ok {
		return
	}
	h.findRoutes(c, origin, destination)
}

// FindRoutesJSON ranks routes for a structured body
// POST /api/v1/routes/find
func (h *Handler) FindRoutesJSON(c *gin.Context) {
	var req FindRoutesRequest
	if !common.BindJSON(c, &req) {
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		common.HandleServiceError(c, err, "invalid request")
		return
	}
	h.findRoutes(c, req.Origin.Point(), req.Destination.Point())
}

func (h *Handler) findRoutes(c *gin.Context, origin, destination geo.Point) {
	matched, err := h.service.FindOptimalRoutes(c.Request.Context(), origin, destination)
	if common.HandleServiceError(c, err, "failed to find routes") {
		return
	}

	common.SuccessResponse(c, FindRoutesResponse{
		Routes: matched,
		Tier:   TierOf(matched),
		Count:  len(matched),
	})
}

// GetDirections plans a trip on one route
// GET /api/v1/routes/:id/directions
func (h *Handler) GetDirections(c *gin.Context) {
	routeID, ok := common.RequireParam(c, "id", "route id")
	if !ok {
		return
	}
	origin, destination, ok := queryTrip(c)
	if !ok {
		return
	}

	itinerary, err := h.service.PlanDirections(c.Request.Context(), routeID, origin, destination)
	if common.HandleServiceError(c, err, "failed to plan directions") {
		return
	}

	common.SuccessResponse(c, itinerary)
}

// queryTrip parses the origin and destination query parameters.
func queryTrip(c *gin.Context) (geo.Point, geo.Point, bool) {
	origin, err := geo.ParsePoint(c.Query("origin"))
	if err != nil {
		common.HandleServiceError(c, common.NewValidationError("origin: "+messageOf(err)), "invalid origin")
		return geo.Point{}, geo.Point{}, false
	}
	destination, err := geo.ParsePoint(c.Query("destination"))
	if err != nil {
		common.HandleServiceError(c, common.NewValidationError("destination: "+messageOf(err)), "invalid destination")
		return geo.Point{}, geo.Point{}, false
	}
	return origin, destination, true
}

func messageOf(err error) string {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// RegisterRoutes mounts the route endpoints on an authenticated group.
// Route search is throttled by limiter; a nil limiter disables throttling.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, limiter *ratelimit.Limiter) {
	throttle := middleware.RateLimit(limiter, ratelimit.EndpointRouteFind)
	routes := rg.Group("/routes")
	{
		routes.GET("", h.ListRoutes)
		routes.GET("/find", throttle, h.FindRoutes)
		routes.POST("/find", throttle, h.FindRoutesJSON)
		routes.GET("/:id", h.GetRoute)
		routes.GET("/:id/directions", h.GetDirections)
	}
}
