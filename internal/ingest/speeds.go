package ingest

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"stroomweg/internal/datex"
	"stroomweg/internal/models"
)

// SpeedNormalizer decodes a raw measurement snapshot into canonical per-lane
// readings using the current index mapping.
type SpeedNormalizer struct {
	Client *datex.Client
	Logger *zap.Logger
	URL    string
}

// Fetch retrieves one snapshot and normalizes it. Sites absent from the
// mapping contribute zero readings; that is steady state for sites without
// speed equipment, not an error.
func (n *SpeedNormalizer) Fetch(ctx context.Context, mappings map[string]models.IndexMapping) ([]models.SpeedReading, error) {
	body, err := n.Client.Fetch(ctx, n.URL)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return DecodeSpeeds(body, mappings)
}

// DecodeSpeeds normalizes every site in the snapshot stream.
func DecodeSpeeds(r io.Reader, mappings map[string]models.IndexMapping) ([]models.SpeedReading, error) {
	var readings []models.SpeedReading
	err := datex.DecodeSiteMeasurements(r, func(m datex.SiteMeasurement) error {
		readings = append(readings, NormalizeSpeedSite(m, mappings)...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return readings, nil
}

// NormalizeSpeedSite emits exactly one reading per lane the site's mapping
// defines, never more. The raw sentinel -1 maps to nil independently for
// flow and speed.
func NormalizeSpeedSite(m datex.SiteMeasurement, mappings map[string]models.IndexMapping) []models.SpeedReading {
	if m.SiteRef.ID == "" || m.Time == "" {
		return nil
	}
	mapping, ok := mappings[m.SiteRef.ID]
	if !ok {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, m.Time)
	if err != nil {
		return nil
	}

	// Position -> decoded value lookup, classified by declared type.
	flows := map[int]int{}
	speeds := map[int]float64{}
	for _, mv := range m.Values {
		basic := mv.Inner.BasicData
		switch datex.TypeName(basic.Type) {
		case datex.BasicDataFlow:
			if basic.FlowRate != nil {
				flows[mv.Index] = *basic.FlowRate
			}
		case datex.BasicDataSpeed:
			if basic.Speed != nil {
				speeds[mv.Index] = *basic.Speed
			}
		}
	}

	readings := make([]models.SpeedReading, 0, len(mapping))
	for _, lane := range mapping {
		reading := models.SpeedReading{
			Timestamp: ts.UTC(),
			SiteID:    m.SiteRef.ID,
			Lane:      lane.Lane,
		}
		if lane.FlowIndex > 0 {
			if v, ok := flows[lane.FlowIndex]; ok && v != -1 {
				flow := v
				reading.FlowVehHr = &flow
			}
		}
		if lane.SpeedIndex > 0 {
			if v, ok := speeds[lane.SpeedIndex]; ok && v != -1 {
				speed := v
				reading.SpeedKMH = &speed
			}
		}
		readings = append(readings, reading)
	}
	return readings
}
