package http

import (
	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/domain"
	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/service"
)

// maxCandidateBytes bounds the body of a normalize request.
const maxCandidateBytes = 1 << 20

// Handler handles HTTP requests for factory onboarding
type Handler struct {
	onboarding *service.OnboardingService
}

// New creates a new Handler
func New(onboarding *service.OnboardingService) *Handler {
	return &Handler{onboarding: onboarding}
}

// OnboardRequest is the body of POST /onboard.
type OnboardRequest struct {
	Description *string `json:"description" binding:"required"`
}

// NormalizeResponse is returned by POST /normalize.
type NormalizeResponse struct {
	Factory domain.Factory `json:"factory"`
	Notes   []string       `json:"notes"`
	Error   string         `json:"error,omitempty"`
}
