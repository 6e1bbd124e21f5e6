package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upstreamFunc func(ctx context.Context) error

func (f upstreamFunc) Health(ctx context.Context) error { return f(ctx) }

func getHealth(t *testing.T, handler *HealthHandler, path string) HealthResponse {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	handler.RegisterRoutes(router)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var response HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	return response
}

func TestHealthCheck(t *testing.T) {
	response := getHealth(t, NewHealthHandler("test-service", "1.0.0", nil, nil), "/health")

	assert.Equal(t, "healthy", response.Status)
	assert.Equal(t, "test-service", response.Service)
	assert.Equal(t, "1.0.0", response.Version)
	assert.Equal(t, "disabled", response.Redis)
	assert.Equal(t, "disabled", response.Upstream)
	assert.False(t, response.Timestamp.IsZero())
}

func TestHealthCheck_Dependencies(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	up := upstreamFunc(func(context.Context) error { return nil })
	response := getHealth(t, NewHealthHandler("svc", "v", client, up), "/healthz")
	assert.Equal(t, "up", response.Redis)
	assert.Equal(t, "up", response.Upstream)

	mr.Close()
	down := upstreamFunc(func(context.Context) error { return errors.New("refused") })
	response = getHealth(t, NewHealthHandler("svc", "v", client, down), "/health")
	assert.Equal(t, "healthy", response.Status)
	assert.Equal(t, "down", response.Redis)
	assert.Equal(t, "down", response.Upstream)
}

func TestHealthCheckMethodNotAllowed(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.HandleMethodNotAllowed = true
	NewHealthHandler("test-service", "1.0.0", nil, nil).RegisterRoutes(router)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
