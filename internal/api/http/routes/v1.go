package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/factory-onboarding/internal/api/http/middleware"
	fohttp "github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/http"
	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/service"
)

type V1Deps struct {
	Onboarding *service.OnboardingService
	APIKey     string
	Logger     *zap.Logger
}

func RegisterV1(r *gin.Engine, dep V1Deps) {
	api := r.Group("/api/v1")
	api.Use(middleware.RequestIDMiddleware(dep.Logger))

	factory := api.Group("/factory")
	factory.Use(middleware.APIKeyMiddleware(dep.APIKey))

	fohttp.New(dep.Onboarding).Register(factory)
}
