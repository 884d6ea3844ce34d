package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"stroomweg/internal/broker"
	"stroomweg/internal/repository"
	"stroomweg/internal/wire"
)

type JourneyTimeHandler struct {
	Repo  repository.Repository
	Redis *redis.Client
}

func (h *JourneyTimeHandler) Register(r *gin.Engine) {
	group := r.Group("/journey-times")
	group.GET("", h.listLatest)
	group.GET("/congestion", h.congestion)
	group.GET("/:site_id/history", h.history)
}

// journeyTimeItem is the client form with the derived delay fields attached.
// Derived values are computed here, never stored.
type journeyTimeItem struct {
	repository.JourneyTimeSiteRow
	DelaySec   *float64 `json:"delay_sec"`
	DelayRatio *float64 `json:"delay_ratio"`
}

func journeyTimeItems(rows []repository.JourneyTimeSiteRow) []journeyTimeItem {
	out := make([]journeyTimeItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, journeyTimeItem{
			JourneyTimeSiteRow: row,
			DelaySec:           row.DelaySec(),
			DelayRatio:         row.DelayRatio(),
		})
	}
	return out
}

func (h *JourneyTimeHandler) listLatest(c *gin.Context) {
	sites, ok := siteParamsFromQuery(c)
	if !ok {
		return
	}
	if !hasSiteFilter(sites) {
		Error(c, http.StatusBadRequest, "at least one filter required: bbox, road, or site_id", nil)
		return
	}
	latest, ok := h.latestTimestamp(c)
	if !ok {
		return
	}
	params := repository.LatestJourneyTimeParams{
		Sites:      sites,
		Timestamp:  latest,
		MinQuality: floatQueryPtr(c, "min_quality"),
		Limit:      intQuery(c, "limit", 100),
		Offset:     intQuery(c, "offset", 0),
	}
	total, err := h.Repo.CountLatestJourneyTimes(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	rows, err := h.Repo.ListLatestJourneyTimes(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, journeyTimeItems(rows), paginationMeta(params.Limit, params.Offset, total))
}

// congestion lists segments whose delay ratio meets the threshold this cycle.
func (h *JourneyTimeHandler) congestion(c *gin.Context) {
	threshold := floatQueryDefault(c, "threshold", 1.5)
	latest, ok := h.latestTimestamp(c)
	if !ok {
		return
	}
	sites, ok := siteParamsFromQuery(c)
	if !ok {
		return
	}
	params := repository.LatestJourneyTimeParams{
		Sites:         sites,
		Timestamp:     latest,
		MinDelayRatio: &threshold,
		Limit:         intQuery(c, "limit", 100),
		Offset:        intQuery(c, "offset", 0),
	}
	rows, err := h.Repo.ListLatestJourneyTimes(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, journeyTimeItems(rows), map[string]any{"threshold": threshold, "count": len(rows)})
}

func (h *JourneyTimeHandler) history(c *gin.Context) {
	siteID := c.Param("site_id")
	window := durationQuery(c, "since", time.Hour)
	items, err := h.Repo.JourneyTimeHistory(c.Request.Context(), siteID, time.Now().UTC().Add(-window))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"site_id": siteID, "window": window.String(), "count": len(items)})
}

func (h *JourneyTimeHandler) latestTimestamp(c *gin.Context) (time.Time, bool) {
	raw, err := h.Redis.Get(c.Request.Context(), broker.KeyJourneyTimeTimestamp).Result()
	if err == redis.Nil || raw == "" {
		Error(c, http.StatusServiceUnavailable, "no journey time data available yet", nil)
		return time.Time{}, false
	}
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return time.Time{}, false
	}
	ts, err := wire.ParseTime(raw)
	if err != nil {
		Error(c, http.StatusServiceUnavailable, "no journey time data available yet", nil)
		return time.Time{}, false
	}
	return ts, true
}
