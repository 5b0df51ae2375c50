package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SchedulerStatus is the minimal scheduler view the probes need.
type SchedulerStatus interface {
	Running() bool
}

// HealthHandler serves liveness and readiness probes. Readiness requires the
// database; the scheduler state is reported but never fails the probe, a
// paused pipeline can still serve the API.
type HealthHandler struct {
	DB        *gorm.DB
	Scheduler SchedulerStatus
}

func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health)
	r.GET("/readyz", h.ready)
}

// @Summary Health check
// @Tags health
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *HealthHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Readiness check
// @Tags health
// @Success 200 {object} map[string]any
// @Router /readyz [get]
func (h *HealthHandler) ready(c *gin.Context) {
	if h.DB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_missing"})
		return
	}
	sqlDB, err := h.DB.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_error"})
		return
	}
	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_unreachable"})
		return
	}
	scheduling := h.Scheduler != nil && h.Scheduler.Running()
	c.JSON(http.StatusOK, gin.H{"status": "ready", "scheduler_running": scheduling})
}
