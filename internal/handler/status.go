package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"exasignal/internal/config"
	"exasignal/internal/models"
	"exasignal/internal/repository"
	"exasignal/internal/scheduler"
	"exasignal/internal/whale"
)

type StatusHandler struct {
	Repo        repository.Repository
	Scheduler   *scheduler.Scheduler
	Filter      *whale.Filter
	ResearchCfg config.ResearchConfig
}

func (h *StatusHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/status", h.status)
}

// @Summary Pipeline status: scheduler counters, provider quotas, exclusions
// @Tags status
// @Router /api/v1/status [get]
func (h *StatusHandler) status(c *gin.Context) {
	resp := map[string]any{}

	if h.Scheduler != nil {
		resp["scheduler"] = h.Scheduler.GetStatus()
	}
	if h.Filter != nil {
		resp["blacklisted_wallets"] = h.Filter.BlacklistSize()
	}
	if h.Repo != nil {
		day := models.QuotaDay(time.Now())
		quotas := map[string]any{}
		for provider, limit := range map[string]int{
			models.SourceNewsAPI: h.ResearchCfg.NewsAPIDailyLimit,
			models.SourceExa:     h.ResearchCfg.ExaDailyLimit,
		} {
			used, err := h.Repo.GetQuotaUsed(c.Request.Context(), provider, day)
			if err != nil {
				continue
			}
			quotas[provider] = map[string]any{
				"used":      used,
				"limit":     limit,
				"remaining": limit - used,
			}
		}
		resp["quotas"] = quotas
	}

	Ok(c, resp, nil)
}
