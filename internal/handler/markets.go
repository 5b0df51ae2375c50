package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"exasignal/internal/models"
	"exasignal/internal/repository"
)

type MarketHandler struct {
	Repo repository.Repository
}

func (h *MarketHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/markets")
	group.GET("", h.listMarkets)
	group.GET("/:id", h.getMarket)
	group.POST("", h.upsertMarkets)
}

type marketPayload struct {
	ID            string     `json:"id" binding:"required"`
	Name          string     `json:"name" binding:"required"`
	Slug          string     `json:"slug"`
	Category      string     `json:"category" binding:"required"`
	YesDefinition string     `json:"yes_definition"`
	NoDefinition  string     `json:"no_definition"`
	Description   string     `json:"description"`
	Tags          []string   `json:"tags"`
	EndDate       *time.Time `json:"end_date"`
	Active        *bool      `json:"active"`
}

// @Summary List the active watchlist
// @Tags markets
// @Router /api/v1/markets [get]
func (h *MarketHandler) listMarkets(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListActiveMarkets(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

// @Summary Fetch one watchlist market
// @Tags markets
// @Router /api/v1/markets/{id} [get]
func (h *MarketHandler) getMarket(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	item, err := h.Repo.GetMarket(c.Request.Context(), c.Param("id"))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "market not found", nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary Add or update watchlist markets
// @Tags markets
// @Router /api/v1/markets [post]
func (h *MarketHandler) upsertMarkets(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var payload []marketPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if len(payload) == 0 {
		Error(c, http.StatusBadRequest, "empty market list", nil)
		return
	}

	items := make([]models.Market, 0, len(payload))
	for _, p := range payload {
		m := models.Market{
			ID:            p.ID,
			Name:          p.Name,
			Slug:          p.Slug,
			Category:      p.Category,
			YesDefinition: p.YesDefinition,
			NoDefinition:  p.NoDefinition,
			Description:   p.Description,
			EndDate:       p.EndDate,
			Active:        true,
		}
		if p.Active != nil {
			m.Active = *p.Active
		}
		if len(p.Tags) > 0 {
			if raw, err := json.Marshal(p.Tags); err == nil {
				m.Tags = raw
			}
		}
		if err := m.Validate(); err != nil {
			Error(c, http.StatusBadRequest, err.Error(), map[string]any{"market_id": p.ID})
			return
		}
		items = append(items, m)
	}

	if err := h.Repo.UpsertMarkets(c.Request.Context(), items); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, map[string]any{"upserted": len(items)}, nil)
}
