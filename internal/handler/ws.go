package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"stroomweg/internal/broker"
	"stroomweg/internal/filter"
	"stroomweg/internal/repository"
	"stroomweg/internal/wire"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler serves the bidirectional live endpoint. A connection starts idle
// and may subscribe to any known channel, each with its own filter; one
// listener goroutine per connection forwards matching entries.
type WSHandler struct {
	Repo   repository.Repository
	Redis  *redis.Client
	Logger *zap.Logger
}

func (h *WSHandler) Register(r *gin.Engine) {
	r.GET("/ws", h.serve)
}

// wsRequest is the client message shape. Exactly one of Subscribe or
// Unsubscribe names a channel; filter fields accompany a subscribe.
type wsRequest struct {
	Subscribe   string `json:"subscribe"`
	Unsubscribe string `json:"unsubscribe"`
	SiteID      string `json:"site_id"`
	Road        string `json:"road"`
	BBox        string `json:"bbox"`
}

const wsUsage = "send {\"subscribe\": \"speeds\"} or {\"unsubscribe\": \"speeds\"}"

func (h *WSHandler) serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("websocket upgrade failed", zap.Error(err))
		}
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sess := &wsSession{
		conn:    conn,
		pubsub:  h.Redis.Subscribe(ctx),
		repo:    h.Repo,
		logger:  h.Logger,
		filters: make(map[string]*filter.Resolved),
	}
	defer sess.pubsub.Close()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req wsRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			sess.send(map[string]any{"error": wsUsage})
			continue
		}
		switch {
		case req.Subscribe != "":
			sess.subscribe(ctx, req)
		case req.Unsubscribe != "":
			sess.unsubscribe(ctx, req.Unsubscribe)
		default:
			sess.send(map[string]any{"error": wsUsage})
		}
	}
}

// wsSession is one connection's private state. The read loop and the listener
// goroutine share the filter table and the write side, nothing else.
type wsSession struct {
	conn   *websocket.Conn
	pubsub *redis.PubSub
	repo   repository.Repository
	logger *zap.Logger

	writeMu sync.Mutex

	mu        sync.Mutex
	filters   map[string]*filter.Resolved
	listening bool
}

// subscribe validates the channel, resolves the filter, and stores it,
// replacing any prior subscription on the same channel. A resolution failure
// leaves the prior subscription untouched.
func (s *wsSession) subscribe(ctx context.Context, req wsRequest) {
	channel := req.Subscribe
	if !broker.KnownChannel(channel) {
		s.send(map[string]any{"error": "unknown channel, use 'speeds' or 'journey-times'"})
		return
	}
	f, err := filter.Parse(req.SiteID, req.Road, req.BBox)
	if err != nil {
		s.send(map[string]any{"error": err.Error()})
		return
	}
	resolved, err := f.Resolve(ctx, s.repo)
	if err != nil {
		s.send(map[string]any{"error": "filter resolution failed"})
		if s.logger != nil {
			s.logger.Warn("websocket filter resolution failed", zap.String("channel", channel), zap.Error(err))
		}
		return
	}
	if err := s.pubsub.Subscribe(ctx, channel); err != nil {
		s.send(map[string]any{"error": "subscribe failed"})
		if s.logger != nil {
			s.logger.Warn("websocket broker subscribe failed", zap.String("channel", channel), zap.Error(err))
		}
		return
	}

	if s.setFilter(channel, resolved) {
		go s.listen(ctx)
	}

	s.send(map[string]any{"subscribed": channel, "filter_count": resolved.CountLabel()})
}

// setFilter stores the channel's filter, replacing any prior one, and
// reports whether the caller must start the connection's listener.
func (s *wsSession) setFilter(channel string, resolved *filter.Resolved) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters[channel] = resolved
	start := !s.listening
	s.listening = true
	return start
}

// removeFilter drops the channel's filter and reports whether it existed.
func (s *wsSession) removeFilter(channel string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, subscribed := s.filters[channel]
	delete(s.filters, channel)
	return subscribed
}

// unsubscribe drops the channel's filter. Unsubscribing a channel that was
// never subscribed is a no-op with no reply.
func (s *wsSession) unsubscribe(ctx context.Context, channel string) {
	if !s.removeFilter(channel) {
		return
	}
	if err := s.pubsub.Unsubscribe(ctx, channel); err != nil && s.logger != nil {
		s.logger.Warn("websocket broker unsubscribe failed", zap.String("channel", channel), zap.Error(err))
	}
	s.send(map[string]any{"unsubscribed": channel})
}

// listen is the single background forwarder for one connection. It reads
// every broadcast message, discards channels the connection dropped, and
// forwards non-empty filtered batches. The loop ends with the connection
// context or when the broker stream closes.
func (s *wsSession) listen(ctx context.Context) {
	messages := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, open := <-messages:
			if !open {
				if s.logger != nil {
					s.logger.Warn("websocket broker stream closed")
				}
				return
			}
			data, ok := s.forwardable(msg.Channel, msg.Payload)
			if !ok {
				continue
			}
			s.send(map[string]any{"event": msg.Channel, "data": data})
		}
	}
}

// forwardable decides one broadcast message's fate for this connection:
// discard if the channel is not subscribed, otherwise decode and filter by
// the channel's stored filter; empty results are not forwarded.
func (s *wsSession) forwardable(channel, payload string) (any, bool) {
	s.mu.Lock()
	resolved, subscribed := s.filters[channel]
	s.mu.Unlock()
	if !subscribed {
		return nil, false
	}
	return s.decode(channel, payload, resolved)
}

func (s *wsSession) decode(channel, payload string, resolved *filter.Resolved) (any, bool) {
	switch channel {
	case broker.ChannelSpeeds:
		var batch wire.SpeedBatch
		if err := json.Unmarshal([]byte(payload), &batch); err != nil {
			s.logDecodeError(channel, err)
			return nil, false
		}
		entries := filterSpeedEntries(wire.ExpandSpeeds(batch), resolved)
		return entries, len(entries) > 0
	case broker.ChannelJourneyTimes:
		var batch wire.JourneyTimeBatch
		if err := json.Unmarshal([]byte(payload), &batch); err != nil {
			s.logDecodeError(channel, err)
			return nil, false
		}
		entries := filterJourneyEntries(wire.ExpandJourneyTimes(batch), resolved, nil)
		return entries, len(entries) > 0
	default:
		return nil, false
	}
}

// send serializes writes; gorilla connections allow one concurrent writer.
func (s *wsSession) send(v any) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(v); err != nil && s.logger != nil {
		s.logger.Debug("websocket write failed", zap.Error(err))
	}
}

func (s *wsSession) logDecodeError(channel string, err error) {
	if s.logger != nil {
		s.logger.Warn("dropping undecodable live message", zap.String("channel", channel), zap.Error(err))
	}
}
