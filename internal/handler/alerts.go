package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"exasignal/internal/repository"
)

type AlertHandler struct {
	Repo repository.Repository
}

func (h *AlertHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/alerts", h.listAlerts)
}

// @Summary List sent alerts, newest first
// @Tags alerts
// @Router /api/v1/alerts [get]
func (h *AlertHandler) listAlerts(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit, offset := pageArgs(c, 50)
	items, err := h.Repo.ListAlerts(c.Request.Context(), limit, offset)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, pageMeta(limit, offset, len(items)))
}
