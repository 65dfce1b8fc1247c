package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/richxcame/transitflow/pkg/common"
	"github.com/richxcame/transitflow/pkg/jwtkeys"
	"github.com/richxcame/transitflow/pkg/logger"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Browsers and mobile apps connect from arbitrary origins; the JWT is the gate.
		return true
	},
}

// HandleWebSocket authenticates the request, upgrades it and starts the
// client pumps. The token comes from the "token" query parameter or the
// Authorization header.
func HandleWebSocket(c *gin.Context, hub *Hub, jwtProvider jwtkeys.KeyProvider, sendBuffer int) {
	tokenString := c.Query("token")
	if tokenString == "" {
		bearer, ok := jwtkeys.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			common.AppErrorResponse(c, common.NewUnauthorizedError("invalid authorization header format"))
			return
		}
		tokenString = bearer
	}

	claims, err := jwtkeys.ParseToken(jwtProvider, tokenString)
	if err != nil {
		common.AppErrorResponse(c, common.NewUnauthorizedError(err.Error()))
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WarnContext(c.Request.Context(), "failed to upgrade websocket", zap.Error(err))
		return
	}

	client := NewClient(conn, hub, claims.UserID, claims.Role, sendBuffer)
	client.VehicleID = claims.VehicleID
	hub.Register(client)

	logger.InfoContext(c.Request.Context(), "websocket client connected",
		zap.String("client_id", client.ID()),
		zap.String("user_id", claims.UserID),
		zap.String("role", string(claims.Role)),
	)

	go client.WritePump()
	go client.ReadPump()
}
