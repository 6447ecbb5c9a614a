package devserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Auth      string    `json:"auth"`
}

type HealthHandler struct {
	serviceName string
	version     string
	authMode    string
}

func NewHealthHandler(serviceName, version, authMode string) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		authMode:    authMode,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		Auth:      h.authMode,
	})
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}
