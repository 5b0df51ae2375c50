package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"exasignal/internal/repository"
	"exasignal/internal/scheduler"
)

type SignalHandler struct {
	Repo      repository.Repository
	Scheduler *scheduler.Scheduler
}

func (h *SignalHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/signals")
	group.GET("", h.listSignals)
	group.GET("/recent", h.recentSignals)
}

// @Summary List stored signals
// @Tags signals
// @Param market_id query string false "filter by market"
// @Param trigger_type query string false "WHALE or NEWS"
// @Param since query string false "RFC3339 lower bound"
// @Param min_score query number false "minimum alignment score"
// @Router /api/v1/signals [get]
func (h *SignalHandler) listSignals(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit, offset := pageArgs(c, 50)

	items, err := h.Repo.ListSignals(c.Request.Context(), repository.ListSignalsParams{
		MarketID:    strings.TrimSpace(c.Query("market_id")),
		TriggerType: strings.ToUpper(strings.TrimSpace(c.Query("trigger_type"))),
		Since:       timeQueryPtr(c, "since"),
		MinScore:    floatQueryPtr(c, "min_score"),
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, pageMeta(limit, offset, len(items)))
}

// @Summary Most recent in-memory signals
// @Tags signals
// @Router /api/v1/signals/recent [get]
func (h *SignalHandler) recentSignals(c *gin.Context) {
	if h.Scheduler == nil {
		Error(c, http.StatusInternalServerError, "scheduler unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 10)
	Ok(c, h.Scheduler.RecentSignals(limit), nil)
}
