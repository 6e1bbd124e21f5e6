package http

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/factory-onboarding/internal/factory_onboarding/normalize"
)

// Onboard turns a free-text description into a factory. Any description
// gets a 200 with both factory and meta; only a malformed body is rejected.
func (h *Handler) Onboard(c *gin.Context) {
	var body OnboardRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: description is required"})
		return
	}

	res := h.onboarding.Onboard(c.Request.Context(), *body.Description)
	c.JSON(http.StatusOK, res)
}

// Normalize repairs a candidate document without calling the text
// understanding service.
func (h *Handler) Normalize(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCandidateBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}
	cand, err := normalize.ParseCandidate(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	f, notes, err := h.onboarding.Normalize(cand)
	if notes == nil {
		notes = []string{}
	}
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, NormalizeResponse{Factory: f, Notes: notes, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, NormalizeResponse{Factory: f, Notes: notes})
}

// DefaultFactory returns the fallback factory.
func (h *Handler) DefaultFactory(c *gin.Context) {
	c.JSON(http.StatusOK, h.onboarding.DefaultFactory())
}

// Schema returns the candidate schema sent upstream.
func (h *Handler) Schema(c *gin.Context) {
	c.Data(http.StatusOK, "application/schema+json", []byte(h.onboarding.Schema()))
}
