package handler

import (
	"testing"

	"stroomweg/internal/broker"
	"stroomweg/internal/filter"
	"stroomweg/internal/wire"
)

const (
	speedPayload   = `[{"s":"RWS01_A","t":"2026-02-17T12:00:00+00:00","l":[[1,92.4,450]]}]`
	journeyPayload = `{"t":"2026-02-17T12:00:00+00:00","d":[["RWS03_Y",245,180,65,90.5]]}`
)

func newSession() *wsSession {
	return &wsSession{filters: make(map[string]*filter.Resolved)}
}

func TestSessionDiscardsUnsubscribedChannel(t *testing.T) {
	s := newSession()
	if _, ok := s.forwardable(broker.ChannelSpeeds, speedPayload); ok {
		t.Fatalf("idle connection must not forward anything")
	}
}

func TestSessionSubscribeAndForward(t *testing.T) {
	s := newSession()
	if !s.setFilter(broker.ChannelSpeeds, filter.Wildcard()) {
		t.Fatalf("first subscribe must start the listener")
	}
	if s.setFilter(broker.ChannelJourneyTimes, filter.Wildcard()) {
		t.Fatalf("second subscribe must not start another listener")
	}

	data, ok := s.forwardable(broker.ChannelSpeeds, speedPayload)
	if !ok {
		t.Fatalf("subscribed channel must forward")
	}
	entries, isSpeed := data.([]wire.ExpandedSpeedSite)
	if !isSpeed || len(entries) != 1 || entries[0].SiteID != "RWS01_A" {
		t.Fatalf("unexpected speed delivery: %#v", data)
	}

	data, ok = s.forwardable(broker.ChannelJourneyTimes, journeyPayload)
	if !ok {
		t.Fatalf("journey-time channel must forward")
	}
	jt, isJT := data.([]wire.ExpandedJourneyTime)
	if !isJT || len(jt) != 1 || jt[0].SiteID != "RWS03_Y" {
		t.Fatalf("unexpected journey-time delivery: %#v", data)
	}
}

// Dropping one channel stops its delivery while the other keeps flowing.
func TestSessionUnsubscribeOneChannelOfTwo(t *testing.T) {
	s := newSession()
	s.setFilter(broker.ChannelSpeeds, filter.Wildcard())
	s.setFilter(broker.ChannelJourneyTimes, filter.Wildcard())

	if !s.removeFilter(broker.ChannelSpeeds) {
		t.Fatalf("removing a subscribed channel must report true")
	}
	if _, ok := s.forwardable(broker.ChannelSpeeds, speedPayload); ok {
		t.Fatalf("unsubscribed channel must stop delivering")
	}
	if _, ok := s.forwardable(broker.ChannelJourneyTimes, journeyPayload); !ok {
		t.Fatalf("remaining channel must be unaffected")
	}
}

func TestSessionRemoveFilterNeverSubscribed(t *testing.T) {
	s := newSession()
	if s.removeFilter(broker.ChannelSpeeds) {
		t.Fatalf("removing a never-subscribed channel must report false")
	}
}

// Re-subscribing a channel replaces its filter rather than widening it.
func TestSessionResubscribeReplacesFilter(t *testing.T) {
	s := newSession()
	s.setFilter(broker.ChannelSpeeds, resolveSite(t, "RWS01_OTHER"))
	if _, ok := s.forwardable(broker.ChannelSpeeds, speedPayload); ok {
		t.Fatalf("entry outside the filter must be discarded")
	}

	s.setFilter(broker.ChannelSpeeds, resolveSite(t, "RWS01_A"))
	if _, ok := s.forwardable(broker.ChannelSpeeds, speedPayload); !ok {
		t.Fatalf("replaced filter must apply")
	}
}

func TestSessionDropsUndecodablePayload(t *testing.T) {
	s := newSession()
	s.setFilter(broker.ChannelSpeeds, filter.Wildcard())
	if _, ok := s.forwardable(broker.ChannelSpeeds, "not json"); ok {
		t.Fatalf("undecodable payload must be dropped")
	}
}
