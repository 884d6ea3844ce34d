package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stroomweg/internal/filter"
	"stroomweg/internal/repository"
)

type SiteHandler struct {
	Repo repository.Repository
}

func (h *SiteHandler) Register(r *gin.Engine) {
	group := r.Group("/sites")
	group.GET("", h.listSites)
	group.GET("/:site_id", h.getSite)
}

func (h *SiteHandler) listSites(c *gin.Context) {
	params, ok := siteParamsFromQuery(c)
	if !ok {
		return
	}
	params.Limit = intQuery(c, "limit", 100)
	params.Offset = intQuery(c, "offset", 0)

	total, err := h.Repo.CountSites(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	items, err := h.Repo.ListSites(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

func (h *SiteHandler) getSite(c *gin.Context) {
	siteID := c.Param("site_id")
	site, err := h.Repo.GetSite(c.Request.Context(), siteID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if site == nil {
		Error(c, http.StatusNotFound, "site "+siteID+" not found", nil)
		return
	}
	Ok(c, site, nil)
}

// siteParamsFromQuery parses the shared bbox/road/site_id query filters.
// A malformed bbox answers 400 and returns ok=false.
func siteParamsFromQuery(c *gin.Context) (repository.SiteParams, bool) {
	params := repository.SiteParams{
		SiteID: strQueryPtr(c, "site_id"),
		Road:   strQueryPtr(c, "road"),
	}
	if raw := c.Query("bbox"); raw != "" {
		box, err := filter.ParseBBox(raw)
		if err != nil {
			Error(c, http.StatusBadRequest, err.Error(), nil)
			return repository.SiteParams{}, false
		}
		params.BBox = &box
	}
	return params, true
}

func hasSiteFilter(params repository.SiteParams) bool {
	return params.SiteID != nil || params.Road != nil || params.BBox != nil
}
