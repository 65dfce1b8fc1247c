package feed

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/transitflow/pkg/common"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// ContentTypeProtobuf is served for the binary feed
const ContentTypeProtobuf = "application/x-protobuf"

// Handler serves GTFS-Realtime feeds
type Handler struct {
	service *Service
}

// NewHandler creates a new feed handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetVehiclePositions serves the vehicle positions feed as protobuf, or as
// JSON with ?format=json
// GET /api/v1/feeds/vehicle-positions
func (h *Handler) GetVehiclePositions(c *gin.Context) {
	feed, err := h.service.VehiclePositions(c.Request.Context(), c.Query("routeId"))
	if common.HandleServiceError(c, err, "failed to build vehicle positions feed") {
		return
	}

	if c.Query("format") == "json" {
		data, err := protojson.MarshalOptions{UseProtoNames: true}.Marshal(feed)
		if common.HandleServiceError(c, err, "failed to encode feed") {
			return
		}
		c.Data(http.StatusOK, "application/json", data)
		return
	}

	data, err := proto.Marshal(feed)
	if common.HandleServiceError(c, err, "failed to encode feed") {
		return
	}
	c.Data(http.StatusOK, ContentTypeProtobuf, data)
}

// RegisterRoutes mounts the feed endpoints
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	feeds := rg.Group("/feeds")
	{
		feeds.GET("/vehicle-positions", h.GetVehiclePositions)
	}
}
