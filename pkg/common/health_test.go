package common_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/transitflow/pkg/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveHealth(t *testing.T, handler gin.HandlerFunc) (int, common.HealthResponse) {
	t.Helper()
	router := gin.New()
	router.GET("/health", handler)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body common.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestLivenessProbe(t *testing.T) {
	code, body := serveHealth(t, common.LivenessProbe("transitflow", "1.0.0"))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alive", body.Status)
	assert.Equal(t, "transitflow", body.Service)
}

func TestReadinessProbe_AllHealthy(t *testing.T) {
	code, body := serveHealth(t, common.ReadinessProbe("transitflow", "1.0.0", map[string]func() error{
		"database": func() error { return nil },
		"redis":    func() error { return nil },
	}))

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", body.Status)
	require.Len(t, body.Checks, 2)
	assert.Equal(t, "healthy", body.Checks["redis"].Status)
}

func TestReadinessProbe_OneFailing(t *testing.T) {
	code, body := serveHealth(t, common.ReadinessProbe("transitflow", "1.0.0", map[string]func() error{
		"database": func() error { return nil },
		"nats":     func() error { return errors.New("nats: not connected") },
	}))

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not ready", body.Status)
	assert.Equal(t, "unhealthy", body.Checks["nats"].Status)
	assert.Equal(t, "nats: not connected", body.Checks["nats"].Message)
	assert.Equal(t, "healthy", body.Checks["database"].Status)
}
