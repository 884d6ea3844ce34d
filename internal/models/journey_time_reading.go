package models

import (
	"math"
	"time"
)

// JourneyTimeReading is one route-segment travel time for one cycle.
// RefDurationSec is the optional free-flow baseline; nil means "no baseline
// available" this cycle, which is structurally distinct from zero.
type JourneyTimeReading struct {
	Timestamp      time.Time `gorm:"primaryKey;type:timestamptz" json:"timestamp"`
	SiteID         string    `gorm:"primaryKey;type:text" json:"site_id"`
	DurationSec    *float64  `json:"duration_sec"`
	RefDurationSec *float64  `json:"ref_duration_sec"`
	Accuracy       *float64  `json:"accuracy"`
	Quality        *float64  `json:"quality"`
	InputValues    *int      `json:"input_values"`
}

func (JourneyTimeReading) TableName() string {
	return "journey_times_raw"
}

// DelaySec derives duration - baseline, rounded to 2 decimals. Nil when
// either operand is nil; derived values are never stored.
func (r JourneyTimeReading) DelaySec() *float64 {
	if r.DurationSec == nil || r.RefDurationSec == nil {
		return nil
	}
	d := math.Round((*r.DurationSec-*r.RefDurationSec)*100) / 100
	return &d
}

// DelayRatio derives duration / baseline, rounded to 3 decimals. Nil when
// either operand is nil or the baseline is zero.
func (r JourneyTimeReading) DelayRatio() *float64 {
	if r.DurationSec == nil || r.RefDurationSec == nil || *r.RefDurationSec == 0 {
		return nil
	}
	d := math.Round(*r.DurationSec / *r.RefDurationSec * 1000) / 1000
	return &d
}
