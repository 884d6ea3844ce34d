package models

import "time"

// SpeedReading is one per-lane measurement for one cycle. (Timestamp, SiteID,
// Lane) uniquely identifies a row; both value fields are independently
// nullable — the raw sentinel -1 maps to nil, never to zero.
type SpeedReading struct {
	Timestamp time.Time `gorm:"primaryKey;type:timestamptz" json:"timestamp"`
	SiteID    string    `gorm:"primaryKey;type:text" json:"site_id"`
	Lane      int       `gorm:"primaryKey" json:"lane"`
	SpeedKMH  *float64  `json:"speed_kmh"`
	FlowVehHr *int      `json:"flow_veh_hr"`
}

func (SpeedReading) TableName() string {
	return "speeds_raw"
}
