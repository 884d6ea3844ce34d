package wire

import (
	"encoding/json"
	"fmt"

	"stroomweg/internal/models"
)

// JourneySegment is one [site, duration, ref_duration, delay, quality] tuple.
// Delay is precomputed (2 decimals) so downstream consumers never re-derive it.
type JourneySegment struct {
	SiteID         string
	DurationSec    *float64
	RefDurationSec *float64
	DelaySec       *float64
	Quality        *float64
}

func (s JourneySegment) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{s.SiteID, s.DurationSec, s.RefDurationSec, s.DelaySec, s.Quality})
}

func (s *JourneySegment) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 5 {
		return fmt.Errorf("journey segment: want 5 elements, got %d", len(parts))
	}
	if err := json.Unmarshal(parts[0], &s.SiteID); err != nil {
		return err
	}
	if err := json.Unmarshal(parts[1], &s.DurationSec); err != nil {
		return err
	}
	if err := json.Unmarshal(parts[2], &s.RefDurationSec); err != nil {
		return err
	}
	if err := json.Unmarshal(parts[3], &s.DelaySec); err != nil {
		return err
	}
	return json.Unmarshal(parts[4], &s.Quality)
}

// JourneyTimeBatch is the full compact journey-time message.
type JourneyTimeBatch struct {
	Timestamp string           `json:"t"`
	Segments  []JourneySegment `json:"d"`
}

// CompactJourneyTimes flattens one cycle's readings. The first reading's
// timestamp is the cycle timestamp.
func CompactJourneyTimes(readings []models.JourneyTimeReading) JourneyTimeBatch {
	batch := JourneyTimeBatch{Segments: []JourneySegment{}}
	for _, r := range readings {
		if batch.Timestamp == "" {
			batch.Timestamp = r.Timestamp.Format(TimeLayout)
		}
		batch.Segments = append(batch.Segments, JourneySegment{
			SiteID:         r.SiteID,
			DurationSec:    r.DurationSec,
			RefDurationSec: r.RefDurationSec,
			DelaySec:       r.DelaySec(),
			Quality:        r.Quality,
		})
	}
	return batch
}

// ExpandedJourneyTime is the client-facing form of one segment.
type ExpandedJourneyTime struct {
	SiteID         string   `json:"site_id"`
	Timestamp      string   `json:"timestamp"`
	DurationSec    *float64 `json:"duration_sec"`
	RefDurationSec *float64 `json:"ref_duration_sec"`
	DelaySec       *float64 `json:"delay_sec"`
	Quality        *float64 `json:"quality"`
}

// ExpandJourneyTimes converts a compact batch into the expanded form sent on
// live channels.
func ExpandJourneyTimes(batch JourneyTimeBatch) []ExpandedJourneyTime {
	out := make([]ExpandedJourneyTime, 0, len(batch.Segments))
	for _, seg := range batch.Segments {
		out = append(out, ExpandedJourneyTime{
			SiteID:         seg.SiteID,
			Timestamp:      batch.Timestamp,
			DurationSec:    seg.DurationSec,
			RefDurationSec: seg.RefDurationSec,
			DelaySec:       seg.DelaySec,
			Quality:        seg.Quality,
		})
	}
	return out
}
