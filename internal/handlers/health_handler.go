package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var startTime = time.Now()

type HealthHandler struct {
	db  *gorm.DB
	env string
}

type HealthStatus struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Environment string            `json:"environment"`
	Services    map[string]string `json:"services"`
	Uptime      string            `json:"uptime"`
}

type ReadinessStatus struct {
	Ready    bool              `json:"ready"`
	Services map[string]string `json:"services"`
}

func NewHealthHandler(db *gorm.DB, env string) *HealthHandler {
	return &HealthHandler{
		db:  db,
		env: env,
	}
}

// Health reports overall service health with a database probe.
func (h *HealthHandler) Health(c *gin.Context) {
	services := make(map[string]string)
	services["database"] = h.checkDatabase(c.Request.Context())

	status := "healthy"
	for _, serviceStatus := range services {
		if serviceStatus != "healthy" {
			status = "degraded"
			break
		}
	}

	healthStatus := HealthStatus{
		Status:      status,
		Timestamp:   time.Now(),
		Environment: h.env,
		Services:    services,
		Uptime:      time.Since(startTime).String(),
	}

	statusCode := http.StatusOK
	if status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, healthStatus)
}

// Readiness reports whether the service can take traffic.
func (h *HealthHandler) Readiness(c *gin.Context) {
	services := make(map[string]string)
	services["database"] = h.checkDatabase(c.Request.Context())

	ready := true
	for _, serviceStatus := range services {
		if serviceStatus != "healthy" {
			ready = false
			break
		}
	}

	statusCode := http.StatusOK
	if !ready {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, ReadinessStatus{
		Ready:    ready,
		Services: services,
	})
}

// Liveness reports that the process is up.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"alive":     true,
		"timestamp": time.Now(),
	})
}

func (h *HealthHandler) checkDatabase(ctx context.Context) string {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	sqlDB, err := h.db.DB()
	if err != nil {
		return "unhealthy"
	}

	if err := sqlDB.PingContext(probeCtx); err != nil {
		return "unhealthy"
	}

	return "healthy"
}
