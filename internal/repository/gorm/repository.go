package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stroomweg/internal/models"
	"stroomweg/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- Reference store --------------------------------------------------------

func (s *Store) UpsertSites(ctx context.Context, items []models.Site) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "site_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "road", "lanes", "equipment", "direction",
			"lat", "lon", "index_mapping", "updated_at",
		}),
	}).CreateInBatches(items, 500).Error
}

func (s *Store) ListSites(ctx context.Context, params repository.SiteParams) ([]models.Site, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applySiteParams(s.db.WithContext(ctx).Model(&models.Site{}), params, "")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Site
	if err := query.Order("site_id asc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountSites(ctx context.Context, params repository.SiteParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := applySiteParams(s.db.WithContext(ctx).Model(&models.Site{}), params, "")
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) GetSite(ctx context.Context, siteID string) (*models.Site, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Site
	err := s.db.WithContext(ctx).Where("site_id = ?", siteID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SiteIDs(ctx context.Context, params repository.SiteParams) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applySiteParams(s.db.WithContext(ctx).Model(&models.Site{}), params, "")
	var ids []string
	if err := query.Pluck("site_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// --- Persistence sink -------------------------------------------------------

// InsertSpeedReadings is idempotent on (timestamp, site_id, lane); duplicate
// keys from an overlapping or retried cycle are silently skipped.
func (s *Store) InsertSpeedReadings(ctx context.Context, items []models.SpeedReading) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "timestamp"}, {Name: "site_id"}, {Name: "lane"}},
		DoNothing: true,
	}).CreateInBatches(items, 1000).Error
}

// InsertJourneyTimeReadings is idempotent on (timestamp, site_id).
func (s *Store) InsertJourneyTimeReadings(ctx context.Context, items []models.JourneyTimeReading) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "timestamp"}, {Name: "site_id"}},
		DoNothing: true,
	}).CreateInBatches(items, 1000).Error
}

// --- Query reads ------------------------------------------------------------

func (s *Store) ListLatestSpeeds(ctx context.Context, params repository.LatestSpeedParams) ([]repository.SpeedSiteRow, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := latestSpeedQuery(s.db.WithContext(ctx), params).
		Select(`sp.site_id, s.name, sp.timestamp,
			AVG(sp.speed_kmh) AS speed_kmh,
			SUM(sp.flow_veh_hr) AS flow_veh_hr,
			s.road, s.lat, s.lon`).
		Group("sp.site_id, sp.timestamp, s.name, s.road, s.lat, s.lon")
	query = applyOrder(query, params.OrderBy, params.Asc, "sp.site_id")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var rows []repository.SpeedSiteRow
	if err := query.Limit(limit).Offset(offset).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) CountLatestSpeeds(ctx context.Context, params repository.LatestSpeedParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := latestSpeedQuery(s.db.WithContext(ctx), params).
		Distinct("sp.site_id").
		Count(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) ListSiteLanes(ctx context.Context, siteID string) ([]models.SpeedReading, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.SpeedReading
	err := s.db.WithContext(ctx).
		Where("site_id = ?", siteID).
		Where("timestamp = (?)", s.db.Model(&models.SpeedReading{}).
			Select("MAX(timestamp)").Where("site_id = ?", siteID)).
		Order("lane asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) SpeedHistory(ctx context.Context, siteID string, since time.Time) ([]models.SpeedReading, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.SpeedReading
	err := s.db.WithContext(ctx).
		Where("site_id = ?", siteID).
		Where("timestamp >= ?", since).
		Order("timestamp asc, lane asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListLatestJourneyTimes(ctx context.Context, params repository.LatestJourneyTimeParams) ([]repository.JourneyTimeSiteRow, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := latestJourneyTimeQuery(s.db.WithContext(ctx), params).
		Select(`jt.timestamp, jt.site_id, jt.duration_sec, jt.ref_duration_sec,
			jt.accuracy, jt.quality, jt.input_values,
			s.name, s.road, s.lat, s.lon`).
		Order("jt.site_id asc")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var rows []repository.JourneyTimeSiteRow
	if err := query.Limit(limit).Offset(offset).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) CountLatestJourneyTimes(ctx context.Context, params repository.LatestJourneyTimeParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := latestJourneyTimeQuery(s.db.WithContext(ctx), params).
		Distinct("jt.site_id").
		Count(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) JourneyTimeHistory(ctx context.Context, siteID string, since time.Time) ([]models.JourneyTimeReading, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.JourneyTimeReading
	err := s.db.WithContext(ctx).
		Where("site_id = ?", siteID).
		Where("timestamp >= ?", since).
		Order("timestamp asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- helpers ----------------------------------------------------------------

// applySiteParams adds the fixed, parameterized predicate shape shared by
// every site-scoped query. prefix qualifies the sites table alias in joins.
func applySiteParams(query *gorm.DB, params repository.SiteParams, prefix string) *gorm.DB {
	col := func(name string) string {
		if prefix == "" {
			return name
		}
		return prefix + "." + name
	}
	if params.SiteID != nil && strings.TrimSpace(*params.SiteID) != "" {
		query = query.Where(col("site_id")+" = ?", strings.TrimSpace(*params.SiteID))
	}
	if params.Road != nil && strings.TrimSpace(*params.Road) != "" {
		query = query.Where(col("road")+" = ?", strings.TrimSpace(*params.Road))
	}
	if params.BBox != nil {
		box := *params.BBox
		query = query.
			Where(col("lat")+" BETWEEN ? AND ?", box.MinLat, box.MaxLat).
			Where(col("lon")+" BETWEEN ? AND ?", box.MinLon, box.MaxLon)
	}
	return query
}

func latestSpeedQuery(db *gorm.DB, params repository.LatestSpeedParams) *gorm.DB {
	query := db.Table("speeds_raw AS sp").
		Joins("JOIN sites s ON s.site_id = sp.site_id").
		Where("sp.timestamp = ?", params.Timestamp)
	sites := params.Sites
	if sites.SiteID != nil && strings.TrimSpace(*sites.SiteID) != "" {
		query = query.Where("sp.site_id = ?", strings.TrimSpace(*sites.SiteID))
		sites.SiteID = nil
	}
	return applySiteParams(query, sites, "s")
}

func latestJourneyTimeQuery(db *gorm.DB, params repository.LatestJourneyTimeParams) *gorm.DB {
	query := db.Table("journey_times_raw AS jt").
		Joins("JOIN sites s ON s.site_id = jt.site_id").
		Where("jt.timestamp = ?", params.Timestamp)
	if params.MinQuality != nil {
		query = query.Where("jt.quality IS NOT NULL AND jt.quality >= ?", *params.MinQuality)
	}
	if params.MinDelayRatio != nil {
		query = query.Where(
			"jt.ref_duration_sec IS NOT NULL AND jt.ref_duration_sec > 0 AND jt.duration_sec / jt.ref_duration_sec >= ?",
			*params.MinDelayRatio)
	}
	sites := params.Sites
	if sites.SiteID != nil && strings.TrimSpace(*sites.SiteID) != "" {
		query = query.Where("jt.site_id = ?", strings.TrimSpace(*sites.SiteID))
		sites.SiteID = nil
	}
	return applySiteParams(query, sites, "s")
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "asc"
	if asc != nil && !*asc {
		direction = "desc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
