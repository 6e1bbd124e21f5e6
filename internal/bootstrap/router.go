package bootstrap

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	httpapi "github.com/GoSim-25-26J-441/factory-onboarding/internal/api/http"
	"github.com/GoSim-25-26J-441/factory-onboarding/internal/api/http/middleware"
	"github.com/GoSim-25-26J-441/factory-onboarding/internal/api/http/routes"
	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/service"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	CORSOrigins []string
	APIKey      string
	Onboarding  *service.OnboardingService
	Redis       *redis.Client
	Upstream    httpapi.UpstreamChecker
	Registry    *prometheus.Registry
	Logger      *zap.Logger
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(dep.CORSOrigins)))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.Redis, dep.Upstream)
	healthHandler.RegisterRoutes(r)

	if dep.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(dep.Registry, promhttp.HandlerOpts{})))
	}

	routes.RegisterV1(r, routes.V1Deps{
		Onboarding: dep.Onboarding,
		APIKey:     dep.APIKey,
		Logger:     dep.Logger,
	})

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.APIKeyHeader, middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
