package ingest

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"stroomweg/internal/datex"
	"stroomweg/internal/models"
)

// JourneyTimeNormalizer decodes a raw travel-time snapshot into canonical
// per-segment readings.
type JourneyTimeNormalizer struct {
	Client *datex.Client
	Logger *zap.Logger
	URL    string
}

func (n *JourneyTimeNormalizer) Fetch(ctx context.Context) ([]models.JourneyTimeReading, error) {
	body, err := n.Client.Fetch(ctx, n.URL)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return DecodeJourneyTimes(body)
}

func DecodeJourneyTimes(r io.Reader) ([]models.JourneyTimeReading, error) {
	var readings []models.JourneyTimeReading
	err := datex.DecodeSiteMeasurements(r, func(m datex.SiteMeasurement) error {
		if reading, ok := NormalizeJourneyTimeSegment(m); ok {
			readings = append(readings, reading)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return readings, nil
}

// NormalizeJourneyTimeSegment extracts one segment's reading. A malformed
// segment is skipped (ok=false); the cycle continues with the rest. A missing
// reference sub-block is a normal outcome and yields a nil baseline; the
// source does not distinguish "never provides a baseline" from "temporarily
// missing", and neither do we.
func NormalizeJourneyTimeSegment(m datex.SiteMeasurement) (models.JourneyTimeReading, bool) {
	if m.SiteRef.ID == "" || m.Time == "" || len(m.Values) == 0 {
		return models.JourneyTimeReading{}, false
	}
	ts, err := time.Parse(time.RFC3339, m.Time)
	if err != nil {
		return models.JourneyTimeReading{}, false
	}

	// The travel time is carried by the first measured value.
	inner := m.Values[0].Inner
	tt := inner.BasicData.TravelTime
	if tt == nil {
		return models.JourneyTimeReading{}, false
	}

	reading := models.JourneyTimeReading{
		Timestamp:   ts.UTC(),
		SiteID:      m.SiteRef.ID,
		DurationSec: sentinelFloat(tt.Duration),
		Accuracy:    tt.Accuracy,
		Quality:     tt.Quality,
		InputValues: tt.InputValues,
	}

	if ext := inner.Extension; ext != nil && ext.Reference != nil && ext.Reference.TravelTime != nil {
		reading.RefDurationSec = sentinelFloat(ext.Reference.TravelTime.Duration)
	}
	return reading, true
}

// sentinelFloat applies the "no data" rule: -1 at the source means unknown,
// never zero.
func sentinelFloat(v *float64) *float64 {
	if v == nil || *v == -1 {
		return nil
	}
	out := *v
	return &out
}
