package repository

import (
	"context"
	"time"

	"stroomweg/internal/models"
)

// BoundingBox is a lat/lon envelope with normalized corners
// (Min <= Max on both axes).
type BoundingBox struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

// SiteParams narrows site queries. Nil fields are no restriction.
type SiteParams struct {
	SiteID *string
	Road   *string
	BBox   *BoundingBox
	Limit  int
	Offset int
}

type LatestSpeedParams struct {
	Sites     SiteParams
	Timestamp time.Time
	OrderBy   string
	Asc       *bool
	Limit     int
	Offset    int
}

// SpeedSiteRow is one site's aggregated latest snapshot joined with its
// reference attributes: average speed across lanes, summed flow.
type SpeedSiteRow struct {
	SiteID    string    `json:"site_id"`
	Name      *string   `json:"name"`
	Timestamp time.Time `json:"timestamp"`
	SpeedKMH  *float64  `json:"speed_kmh"`
	FlowVehHr *int      `json:"flow_veh_hr"`
	Road      *string   `json:"road"`
	Lat       *float64  `json:"lat"`
	Lon       *float64  `json:"lon"`
}

type LatestJourneyTimeParams struct {
	Sites         SiteParams
	Timestamp     time.Time
	MinQuality    *float64
	MinDelayRatio *float64
	Limit         int
	Offset        int
}

// JourneyTimeSiteRow is one segment's latest reading joined with its
// reference attributes.
type JourneyTimeSiteRow struct {
	models.JourneyTimeReading
	Name *string  `json:"name"`
	Road *string  `json:"road"`
	Lat  *float64 `json:"lat"`
	Lon  *float64 `json:"lon"`
}

// Repository is the storage sink and reference/history source. Reading
// inserts are idempotent: duplicate uniqueness keys are no-ops, never errors.
type Repository interface {
	// Reference store.
	UpsertSites(ctx context.Context, items []models.Site) error
	ListSites(ctx context.Context, params SiteParams) ([]models.Site, error)
	CountSites(ctx context.Context, params SiteParams) (int64, error)
	GetSite(ctx context.Context, siteID string) (*models.Site, error)
	// SiteIDs materializes the concrete id set for a subscription filter.
	SiteIDs(ctx context.Context, params SiteParams) ([]string, error)

	// Persistence sink.
	InsertSpeedReadings(ctx context.Context, items []models.SpeedReading) error
	InsertJourneyTimeReadings(ctx context.Context, items []models.JourneyTimeReading) error

	// Query reads.
	ListLatestSpeeds(ctx context.Context, params LatestSpeedParams) ([]SpeedSiteRow, error)
	CountLatestSpeeds(ctx context.Context, params LatestSpeedParams) (int64, error)
	ListSiteLanes(ctx context.Context, siteID string) ([]models.SpeedReading, error)
	SpeedHistory(ctx context.Context, siteID string, since time.Time) ([]models.SpeedReading, error)
	ListLatestJourneyTimes(ctx context.Context, params LatestJourneyTimeParams) ([]JourneyTimeSiteRow, error)
	CountLatestJourneyTimes(ctx context.Context, params LatestJourneyTimeParams) (int64, error)
	JourneyTimeHistory(ctx context.Context, siteID string, since time.Time) ([]models.JourneyTimeReading, error)
}
