package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"stroomweg/internal/broker"
	"stroomweg/internal/filter"
	"stroomweg/internal/repository"
	"stroomweg/internal/wire"
)

// StreamHandler serves the one-way live endpoints. Each request holds its own
// Redis subscription; the filter is resolved once at connect time.
type StreamHandler struct {
	Repo   repository.Repository
	Redis  *redis.Client
	Logger *zap.Logger
}

func (h *StreamHandler) Register(r *gin.Engine) {
	r.GET("/speeds/stream", h.streamSpeeds)
	r.GET("/journey-times/stream", h.streamJourneyTimes)
}

func (h *StreamHandler) streamSpeeds(c *gin.Context) {
	resolved, ok := h.resolveStreamFilter(c)
	if !ok {
		return
	}
	h.stream(c, broker.ChannelSpeeds, func(payload string) (any, bool) {
		var batch wire.SpeedBatch
		if err := json.Unmarshal([]byte(payload), &batch); err != nil {
			h.logDecodeError(broker.ChannelSpeeds, err)
			return nil, false
		}
		entries := filterSpeedEntries(wire.ExpandSpeeds(batch), resolved)
		if len(entries) == 0 {
			return nil, false
		}
		return entries, true
	})
}

func (h *StreamHandler) streamJourneyTimes(c *gin.Context) {
	resolved, ok := h.resolveStreamFilter(c)
	if !ok {
		return
	}
	minQuality := floatQueryPtr(c, "min_quality")
	h.stream(c, broker.ChannelJourneyTimes, func(payload string) (any, bool) {
		var batch wire.JourneyTimeBatch
		if err := json.Unmarshal([]byte(payload), &batch); err != nil {
			h.logDecodeError(broker.ChannelJourneyTimes, err)
			return nil, false
		}
		entries := filterJourneyEntries(wire.ExpandJourneyTimes(batch), resolved, minQuality)
		if len(entries) == 0 {
			return nil, false
		}
		return entries, true
	})
}

// resolveStreamFilter parses and materializes the connect-time filter. Live
// endpoints refuse unfiltered subscriptions.
func (h *StreamHandler) resolveStreamFilter(c *gin.Context) (*filter.Resolved, bool) {
	f, err := filter.Parse(c.Query("site_id"), c.Query("road"), c.Query("bbox"))
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return nil, false
	}
	if f.IsWildcard() {
		Error(c, http.StatusBadRequest, "at least one filter required: bbox, road, or site_id", nil)
		return nil, false
	}
	resolved, err := f.Resolve(c.Request.Context(), h.Repo)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return nil, false
	}
	return resolved, true
}

// stream pumps one channel's messages through convert and writes the
// non-empty results as server-sent events until the client goes away.
func (h *StreamHandler) stream(c *gin.Context, channel string, convert func(payload string) (any, bool)) {
	ctx := c.Request.Context()
	pubsub := h.Redis.Subscribe(ctx, channel)
	defer pubsub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	messages := pubsub.Channel()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, open := <-messages:
			if !open {
				return false
			}
			data, ok := convert(msg.Payload)
			if !ok {
				return true
			}
			c.SSEvent(channel, data)
			return true
		}
	})
}

func (h *StreamHandler) logDecodeError(channel string, err error) {
	if h.Logger != nil {
		h.Logger.Warn("dropping undecodable live message", zap.String("channel", channel), zap.Error(err))
	}
}

// filterSpeedEntries keeps the site entries the resolved predicate admits.
func filterSpeedEntries(entries []wire.ExpandedSpeedSite, resolved *filter.Resolved) []wire.ExpandedSpeedSite {
	if resolved.IsWildcard() {
		return entries
	}
	out := make([]wire.ExpandedSpeedSite, 0, len(entries))
	for _, e := range entries {
		if resolved.Match(e.SiteID) {
			out = append(out, e)
		}
	}
	return out
}

// filterJourneyEntries keeps the segments the resolved predicate admits,
// additionally dropping segments below the optional quality floor. A floor
// also drops segments with no quality value, matching the latest-snapshot
// query's quality predicate.
func filterJourneyEntries(entries []wire.ExpandedJourneyTime, resolved *filter.Resolved, minQuality *float64) []wire.ExpandedJourneyTime {
	out := make([]wire.ExpandedJourneyTime, 0, len(entries))
	for _, e := range entries {
		if !resolved.Match(e.SiteID) {
			continue
		}
		if minQuality != nil && (e.Quality == nil || *e.Quality < *minQuality) {
			continue
		}
		out = append(out, e)
	}
	return out
}
