// Package ingest implements the 60s ingestion-normalization pipeline: the
// reference (metadata) resolver, the speed and journey-time normalizers, and
// the cycle runner that drives them.
package ingest

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"stroomweg/internal/datex"
	"stroomweg/internal/models"
	"stroomweg/internal/repository"
)

// laneNumber maps a DATEX lane identifier to the small-integer lane:
// lane1..lane9 -> 1..9, the whole-carriageway aggregate -> 0. Shoulder and
// unknown lanes are dropped.
func laneNumber(name string) (int, bool) {
	if name == "allLanesCompleteCarriageway" {
		return 0, true
	}
	if len(name) == 5 && strings.HasPrefix(name, "lane") {
		if d := name[4]; d >= '1' && d <= '9' {
			return int(d - '0'), true
		}
	}
	return 0, false
}

// BuildIndexMapping scans a site's measurement descriptors and records, for
// every aggregate ("any vehicle") descriptor, its array position as the
// flow or speed index of its lane. Lanes appear in first-seen order.
func BuildIndexMapping(rec datex.SiteRecord) models.IndexMapping {
	var mapping models.IndexMapping
	byLane := map[int]int{}
	for _, char := range rec.Specifics {
		inner := char.Inner
		if inner.VehicleType != datex.VehicleTypeAny {
			continue
		}
		lane, ok := laneNumber(inner.Lane)
		if !ok {
			continue
		}
		i, seen := byLane[lane]
		if !seen {
			i = len(mapping)
			byLane[lane] = i
			mapping = append(mapping, models.LaneIndexes{Lane: lane})
		}
		switch inner.ValueType {
		case datex.ValueTypeFlow:
			mapping[i].FlowIndex = char.Index
		case datex.ValueTypeSpeed:
			mapping[i].SpeedIndex = char.Index
		}
	}
	return mapping
}

// SiteFromRecord converts a metadata record into the reference row. The road
// name is the first token of the display name ("A2" from "A2 hmp 34.6 Re").
func SiteFromRecord(rec datex.SiteRecord) (models.Site, models.IndexMapping) {
	site := models.Site{
		SiteID: rec.ID,
		Lanes:  rec.Lanes,
		Lat:    rec.Location.Latitude,
		Lon:    rec.Location.Longitude,
	}
	if name := strings.TrimSpace(rec.Name); name != "" {
		site.Name = &name
		road := strings.Fields(name)[0]
		site.Road = &road
	}
	if eq := strings.TrimSpace(rec.Equipment); eq != "" {
		site.Equipment = &eq
	}
	if side := strings.TrimSpace(rec.Side); side != "" {
		site.Direction = &side
	}
	mapping := BuildIndexMapping(rec)
	if len(mapping) > 0 {
		if raw, err := json.Marshal(mapping); err == nil {
			site.IndexMapping = datatypes.JSON(raw)
		}
	}
	return site, mapping
}

// ReferenceLoader downloads and parses the site-metadata feed, upserts the
// reference rows, and returns the per-site index mappings the speed
// normalizer needs. Sites without a usable mapping are tolerated.
type ReferenceLoader struct {
	Client *datex.Client
	Repo   repository.Repository
	Logger *zap.Logger
	URL    string
}

func (l *ReferenceLoader) Load(ctx context.Context) (map[string]models.IndexMapping, error) {
	body, err := l.Client.Fetch(ctx, l.URL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var sites []models.Site
	mappings := map[string]models.IndexMapping{}
	err = datex.DecodeSiteRecords(body, func(rec datex.SiteRecord) error {
		if rec.ID == "" {
			return nil
		}
		site, mapping := SiteFromRecord(rec)
		sites = append(sites, site)
		if len(mapping) > 0 {
			mappings[rec.ID] = mapping
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := l.Repo.UpsertSites(ctx, sites); err != nil {
		return nil, err
	}
	if l.Logger != nil {
		l.Logger.Info("reference data loaded",
			zap.Int("sites", len(sites)),
			zap.Int("speed_sites", len(mappings)),
		)
	}
	return mappings, nil
}
