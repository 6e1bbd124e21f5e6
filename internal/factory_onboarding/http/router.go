package http

import "github.com/gin-gonic/gin"

// Register registers the onboarding routes
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/onboard", h.Onboard)
	rg.POST("/normalize", h.Normalize)
	rg.GET("/default", h.DefaultFactory)
	rg.GET("/schema", h.Schema)
}
