// Package wire defines the compact encodings used on the broadcast bus and
// their expansion into the full JSON form delivered to live clients. The
// compact shapes are consumed by existing subscribers and must not change:
//
//	speeds:        [{"s": site, "t": ts, "l": [[lane, speed, flow], ...]}, ...]
//	journey-times: {"t": ts, "d": [[site, duration, ref, delay, quality], ...]}
package wire

import (
	"encoding/json"
	"fmt"
	"time"

	"stroomweg/internal/models"
)

// ISO8601 with a numeric offset, matching the timestamps existing consumers
// parse ("2026-02-17T12:00:00+00:00").
const TimeLayout = "2006-01-02T15:04:05-07:00"

// LaneValue is one [lane, speed_kmh, flow_veh_hr] triple. Nil fields encode
// as JSON null.
type LaneValue struct {
	Lane      int
	SpeedKMH  *float64
	FlowVehHr *int
}

func (v LaneValue) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{v.Lane, v.SpeedKMH, v.FlowVehHr})
}

func (v *LaneValue) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 3 {
		return fmt.Errorf("lane value: want 3 elements, got %d", len(parts))
	}
	if err := json.Unmarshal(parts[0], &v.Lane); err != nil {
		return err
	}
	if err := json.Unmarshal(parts[1], &v.SpeedKMH); err != nil {
		return err
	}
	return json.Unmarshal(parts[2], &v.FlowVehHr)
}

// SpeedSite is one site's entry in the compact speed message.
type SpeedSite struct {
	SiteID    string      `json:"s"`
	Timestamp string      `json:"t"`
	Lanes     []LaneValue `json:"l"`
}

// SpeedBatch is the full compact speed message: one entry per site that has
// at least one reading this cycle, in first-seen order.
type SpeedBatch []SpeedSite

// CompactSpeeds groups one cycle's readings by site. The first reading's
// timestamp is the cycle timestamp for every entry.
func CompactSpeeds(readings []models.SpeedReading) SpeedBatch {
	if len(readings) == 0 {
		return SpeedBatch{}
	}
	ts := readings[0].Timestamp.Format(TimeLayout)
	batch := SpeedBatch{}
	bySite := map[string]int{}
	for _, r := range readings {
		i, ok := bySite[r.SiteID]
		if !ok {
			i = len(batch)
			bySite[r.SiteID] = i
			batch = append(batch, SpeedSite{SiteID: r.SiteID, Timestamp: ts})
		}
		batch[i].Lanes = append(batch[i].Lanes, LaneValue{
			Lane:      r.Lane,
			SpeedKMH:  r.SpeedKMH,
			FlowVehHr: r.FlowVehHr,
		})
	}
	return batch
}

// ExpandedLane is the client-facing form of one lane reading.
type ExpandedLane struct {
	Lane      int      `json:"lane"`
	SpeedKMH  *float64 `json:"speed_kmh"`
	FlowVehHr *int     `json:"flow_veh_hr"`
}

// ExpandedSpeedSite is the client-facing form of one site entry.
type ExpandedSpeedSite struct {
	SiteID    string         `json:"site_id"`
	Timestamp string         `json:"timestamp"`
	Lanes     []ExpandedLane `json:"lanes"`
}

// ExpandSpeeds converts a compact batch into the expanded form sent on live
// channels.
func ExpandSpeeds(batch SpeedBatch) []ExpandedSpeedSite {
	out := make([]ExpandedSpeedSite, 0, len(batch))
	for _, entry := range batch {
		lanes := make([]ExpandedLane, 0, len(entry.Lanes))
		for _, l := range entry.Lanes {
			lanes = append(lanes, ExpandedLane{
				Lane:      l.Lane,
				SpeedKMH:  l.SpeedKMH,
				FlowVehHr: l.FlowVehHr,
			})
		}
		out = append(out, ExpandedSpeedSite{
			SiteID:    entry.SiteID,
			Timestamp: entry.Timestamp,
			Lanes:     lanes,
		})
	}
	return out
}

// FormatTime renders a cycle timestamp in the wire layout.
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

// ParseTime parses a wire-layout timestamp, e.g. a freshness marker.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeLayout, s)
}
