package models

import (
	"time"

	"gorm.io/datatypes"
)

// Site is a fixed physical sensor location. Rows are overwritten wholesale on
// every reference refresh; between refreshes they are read-only input to the
// normalizers and the subscription filters.
type Site struct {
	SiteID    string   `gorm:"primaryKey;type:text" json:"site_id"`
	Name      *string  `gorm:"type:text" json:"name"`
	Road      *string  `gorm:"type:text;index" json:"road"`
	Lanes     *int     `json:"lanes"`
	Equipment *string  `gorm:"type:text" json:"equipment"`
	Direction *string  `gorm:"type:text" json:"direction"`
	Lat       *float64 `gorm:"index:idx_sites_lat_lon" json:"lat"`
	Lon       *float64 `gorm:"index:idx_sites_lat_lon" json:"lon"`

	// IndexMapping is the per-lane raw-array position table, stored as the
	// JSON form of models.IndexMapping. Empty for sites without speed
	// equipment; such sites yield zero speed readings per cycle.
	IndexMapping datatypes.JSON `gorm:"type:jsonb" json:"-"`

	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"-"`
}

func (Site) TableName() string {
	return "sites"
}
