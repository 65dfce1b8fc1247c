package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/richxcame/transitflow/pkg/jwtkeys"
	"github.com/richxcame/transitflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "ws-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func testToken(t *testing.T, userID string, role models.UserRole) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtkeys.Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	s, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	provider := jwtkeys.NewStaticProvider(testSecret)
	router := gin.New()
	router.GET("/ws", func(c *gin.Context) {
		HandleWebSocket(c, hub, provider, 8)
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHandleWebSocket_RejectsMissingToken(t *testing.T) {
	server := newTestServer(t, NewHub())

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestClient_JoinAndReceive(t *testing.T) {
	hub := NewHub()
	hub.RegisterHandler("join", func(c *Client, msg *Message) {
		hub.Join(c, msg.RouteID)
		reply, _ := NewMessage("joined", msg.RouteID, nil)
		c.Deliver(reply)
	})
	server := newTestServer(t, hub)

	conn := dial(t, server, testToken(t, "passenger-1", models.RolePassenger))
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "join", "routeId": "route-1"}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var joined Message
	require.NoError(t, conn.ReadJSON(&joined))
	assert.Equal(t, "joined", joined.Type)
	assert.Equal(t, 1, hub.RoomSize("route-1"))

	update, err := NewMessage("location-update", "route-1", map[string]string{"vehicleId": "bus-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, hub.Publish(nil, "route-1", update))

	var got Message
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "location-update", got.Type)
	assert.JSONEq(t, `{"vehicleId":"bus-1"}`, string(got.Data))
}

func TestClient_UnknownMessageTypeGetsError(t *testing.T) {
	hub := NewHub()
	server := newTestServer(t, hub)

	conn := dial(t, server, testToken(t, "passenger-1", models.RolePassenger))
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "teleport"}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply Message
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, MessageTypeError, reply.Type)
	assert.Contains(t, string(reply.Data), "teleport")
}

func TestClient_ConnectionLossDisconnects(t *testing.T) {
	hub := NewHub()
	hub.RegisterHandler("join", func(c *Client, msg *Message) {
		hub.Join(c, msg.RouteID)
		reply, _ := NewMessage("joined", msg.RouteID, nil)
		c.Deliver(reply)
	})
	server := newTestServer(t, hub)

	conn := dial(t, server, testToken(t, "passenger-1", models.RolePassenger))
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "join", "routeId": "route-1"}))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var joined Message
	require.NoError(t, conn.ReadJSON(&joined))

	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		return hub.ClientCount() == 0 && hub.RoomCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	hub := NewHub()
	client := NewClient(nil, hub, "driver-1", models.RoleDriver, 1)
	hub.Join(client, "route-1")

	client.Close()
	client.Close()

	select {
	case <-client.Done():
	default:
		t.Fatal("done channel not closed")
	}
	assert.Equal(t, 0, hub.ClientCount())

	msg, _ := NewMessage("location-update", "route-1", nil)
	assert.False(t, client.Deliver(msg))
}

func TestClient_DeliverDropsWhenFull(t *testing.T) {
	client := NewClient(nil, NewHub(), "passenger-1", models.RolePassenger, 1)
	msg, _ := NewMessage("location-update", "route-1", nil)

	assert.True(t, client.Deliver(msg))
	assert.False(t, client.Deliver(msg))
}
