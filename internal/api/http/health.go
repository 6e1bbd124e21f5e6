package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const pingTimeout = 1 * time.Second

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Redis     string    `json:"redis,omitempty"`
	Upstream  string    `json:"upstream,omitempty"`
}

// UpstreamChecker is the health endpoint of the text understanding service.
type UpstreamChecker interface {
	Health(ctx context.Context) error
}

type HealthHandler struct {
	serviceName string
	version     string
	redis       *redis.Client
	upstream    UpstreamChecker
}

// NewHealthHandler creates a health handler. rdb and upstream may be nil;
// their status is then reported as "disabled".
func NewHealthHandler(serviceName, version string, rdb *redis.Client, upstream UpstreamChecker) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		redis:       rdb,
		upstream:    upstream,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	redisStatus := "disabled"
	if h.redis != nil {
		redisStatus = probe(c.Request.Context(), func(ctx context.Context) error {
			return h.redis.Ping(ctx).Err()
		})
	}
	upstreamStatus := "disabled"
	if h.upstream != nil {
		upstreamStatus = probe(c.Request.Context(), h.upstream.Health)
	}

	// Dependencies degrade onboarding to the default factory; they never
	// make the service itself unhealthy.
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		Redis:     redisStatus,
		Upstream:  upstreamStatus,
	})
}

func probe(ctx context.Context, ping func(context.Context) error) string {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := ping(pingCtx); err != nil {
		return "down"
	}
	return "up"
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}
