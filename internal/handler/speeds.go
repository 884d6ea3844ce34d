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

type SpeedHandler struct {
	Repo  repository.Repository
	Redis *redis.Client
}

func (h *SpeedHandler) Register(r *gin.Engine) {
	group := r.Group("/speeds")
	group.GET("", h.listLatest)
	group.GET("/:site_id", h.siteLanes)
	group.GET("/:site_id/history", h.history)
}

var speedSortFields = map[string]string{
	"speed_kmh":   "speed_kmh",
	"flow_veh_hr": "flow_veh_hr",
	"site_id":     "sp.site_id",
}

func (h *SpeedHandler) listLatest(c *gin.Context) {
	sites, ok := siteParamsFromQuery(c)
	if !ok {
		return
	}
	if !hasSiteFilter(sites) {
		Error(c, http.StatusBadRequest, "at least one filter required: bbox, road, or site_id", nil)
		return
	}
	orderBy, asc, ok := parseSort(c.Query("sort"), speedSortFields)
	if !ok {
		Error(c, http.StatusBadRequest, "sort must be one of: speed_kmh, flow_veh_hr, site_id (prefix with - for descending)", nil)
		return
	}

	latest, ok := h.latestTimestamp(c)
	if !ok {
		return
	}
	params := repository.LatestSpeedParams{
		Sites:     sites,
		Timestamp: latest,
		OrderBy:   orderBy,
		Asc:       asc,
		Limit:     intQuery(c, "limit", 100),
		Offset:    intQuery(c, "offset", 0),
	}
	total, err := h.Repo.CountLatestSpeeds(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	rows, err := h.Repo.ListLatestSpeeds(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, rows, paginationMeta(params.Limit, params.Offset, total))
}

func (h *SpeedHandler) siteLanes(c *gin.Context) {
	siteID := c.Param("site_id")
	items, err := h.Repo.ListSiteLanes(c.Request.Context(), siteID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if len(items) == 0 {
		Error(c, http.StatusNotFound, "no speed data for site "+siteID, nil)
		return
	}
	Ok(c, items, nil)
}

func (h *SpeedHandler) history(c *gin.Context) {
	siteID := c.Param("site_id")
	window := durationQuery(c, "since", time.Hour)
	items, err := h.Repo.SpeedHistory(c.Request.Context(), siteID, time.Now().UTC().Add(-window))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"site_id": siteID, "window": window.String(), "count": len(items)})
}

// latestTimestamp reads the freshness marker set by the ingest service. A
// missing marker means no data has been published yet.
func (h *SpeedHandler) latestTimestamp(c *gin.Context) (time.Time, bool) {
	raw, err := h.Redis.Get(c.Request.Context(), broker.KeySpeedsTimestamp).Result()
	if err == redis.Nil || raw == "" {
		Error(c, http.StatusServiceUnavailable, "no speed data available yet", nil)
		return time.Time{}, false
	}
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return time.Time{}, false
	}
	ts, err := wire.ParseTime(raw)
	if err != nil {
		Error(c, http.StatusServiceUnavailable, "no speed data available yet", nil)
		return time.Time{}, false
	}
	return ts, true
}
