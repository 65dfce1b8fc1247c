package tracking

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/transitflow/pkg/common"
	"github.com/richxcame/transitflow/pkg/geo"
	"github.com/richxcame/transitflow/pkg/middleware"
	"github.com/richxcame/transitflow/pkg/models"
	"github.com/richxcame/transitflow/pkg/ratelimit"
	"github.com/richxcame/transitflow/pkg/validation"
)

// Handler handles HTTP requests for vehicle tracking
type Handler struct {
	service *Service
}

// NewHandler creates a new tracking handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// PushLocation records the calling driver's position
// POST /api/v1/drivers/location
func (h *Handler) PushLocation(c *gin.Context) {
	driverID, err := middleware.GetUserID(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	var req PushLocationRequest
	if !common.BindJSON(c, &req) {
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		common.HandleServiceError(c, err, "invalid request")
		return
	}

	push := LocationPush{
		DriverID:  driverID,
		VehicleID: req.VehicleID,
		RouteID:   req.RouteID,
		Location:  geo.Point{Latitude: *req.Latitude, Longitude: *req.Longitude},
	}
	if req.Timestamp != nil {
		push.Timestamp = req.Timestamp.UTC()
	}

	push, err = h.service.ResolveTrip(c.Request.Context(), push, middleware.GetVehicleID(c))
	if common.HandleServiceError(c, err, "failed to resolve trip") {
		return
	}

	pos, err := h.service.PushLocation(c.Request.Context(), push)
	if common.HandleServiceError(c, err, "failed to record location") {
		return
	}

	common.SuccessResponse(c, pos)
}

// StartTrip starts a trip for the calling driver
// POST /api/v1/drivers/trip/start
func (h *Handler) StartTrip(c *gin.Context) {
	driverID, err := middleware.GetUserID(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	var req StartTripRequest
	if !common.BindJSON(c, &req) {
		return
	}
	if req.VehicleID == "" {
		req.VehicleID = middleware.GetVehicleID(c)
	}
	if err := validation.ValidateStruct(&req); err != nil {
		common.HandleServiceError(c, err, "invalid request")
		return
	}

	trip, err := h.service.StartTrip(c.Request.Context(), driverID, req.VehicleID, req.RouteID)
	if common.HandleServiceError(c, err, "failed to start trip") {
		return
	}

	common.CreatedResponse(c, trip)
}

// EndTrip ends the calling driver's trip
// POST /api/v1/drivers/trip/end
func (h *Handler) EndTrip(c *gin.Context) {
	driverID, err := middleware.GetUserID(c)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError("unauthorized"))
		return
	}

	trip, err := h.service.EndTrip(c.Request.Context(), driverID)
	if common.HandleServiceError(c, err, "failed to end trip") {
		return
	}

	common.SuccessResponse(c, trip)
}

// GetRouteVehicles lists the vehicles on a route with their positions
// GET /api/v1/routes/:id/vehicles
func (h *Handler) GetRouteVehicles(c *gin.Context) {
	routeID, ok := common.RequireParam(c, "id", "route id")
	if !ok {
		return
	}

	vehicles, err := h.service.GetVehiclesOnRoute(c.Request.Context(), routeID)
	if common.HandleServiceError(c, err, "failed to list route vehicles") {
		return
	}

	common.SuccessResponseWithMeta(c, vehicles, &common.Meta{Total: int64(len(vehicles))})
}

// GetNearbyVehicles finds live vehicles around a point
// GET /api/v1/vehicles/nearby?latitude=..&longitude=..&radius=..
func (h *Handler) GetNearbyVehicles(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("latitude"), 64)
	if err != nil {
		common.HandleServiceError(c, common.NewValidationError("latitude must be a number"), "invalid latitude")
		return
	}
	lng, err := strconv.ParseFloat(c.Query("longitude"), 64)
	if err != nil {
		common.HandleServiceError(c, common.NewValidationError("longitude must be a number"), "invalid longitude")
		return
	}
	var radius float64
	if raw := c.Query("radius"); raw != "" {
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			common.HandleServiceError(c, common.NewValidationError("radius must be a number"), "invalid radius")
			return
		}
	}

	nearby, err := h.service.GetNearbyVehicles(c.Request.Context(), geo.Point{Latitude: lat, Longitude: lng}, radius)
	if common.HandleServiceError(c, err, "failed to find nearby vehicles") {
		return
	}

	common.SuccessResponseWithMeta(c, nearby, &common.Meta{Total: int64(len(nearby))})
}

// GetVehicleLocation returns the live position of a vehicle
// GET /api/v1/vehicles/:id/location
func (h *Handler) GetVehicleLocation(c *gin.Context) {
	vehicleID, ok := common.RequireParam(c, "id", "vehicle id")
	if !ok {
		return
	}

	pos, err := h.service.GetVehiclePosition(c.Request.Context(), vehicleID)
	if common.HandleServiceError(c, err, "failed to get vehicle location") {
		return
	}

	common.SuccessResponse(c, pos)
}

// RegisterRoutes mounts the tracking endpoints on an authenticated group.
// Location pushes are throttled by limiter; a nil limiter disables throttling.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, limiter *ratelimit.Limiter) {
	drivers := rg.Group("/drivers")
	drivers.Use(middleware.RequireRole(models.RoleDriver, models.RoleAdmin))
	{
		drivers.POST("/location", middleware.RateLimit(limiter, ratelimit.EndpointLocationPush), h.PushLocation)
		drivers.POST("/trip/start", h.StartTrip)
		drivers.POST("/trip/end", h.EndTrip)
	}

	rg.GET("/routes/:id/vehicles", h.GetRouteVehicles)

	vehicles := rg.Group("/vehicles")
	{
		vehicles.GET("/nearby", h.GetNearbyVehicles)
		vehicles.GET("/:id/location", h.GetVehicleLocation)
	}
}
