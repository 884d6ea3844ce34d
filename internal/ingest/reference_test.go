package ingest

import (
	"strings"
	"testing"

	"stroomweg/internal/datex"
	"stroomweg/internal/models"
)

func TestLaneNumber(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"lane1", 1, true},
		{"lane9", 9, true},
		{"allLanesCompleteCarriageway", 0, true},
		{"hardShoulder", 0, false},
		{"lane0", 0, false},
		{"lane10", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := laneNumber(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("laneNumber(%q) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestBuildIndexMapping(t *testing.T) {
	rec := datex.SiteRecord{
		ID: "RWS01_X",
		Specifics: []datex.CharacteristicIndex{
			{Index: 1, Inner: datex.SpecificCharacteristics{VehicleType: "anyVehicle", Lane: "lane1", ValueType: "trafficFlow"}},
			{Index: 2, Inner: datex.SpecificCharacteristics{VehicleType: "anyVehicle", Lane: "lane1", ValueType: "trafficSpeed"}},
			{Index: 3, Inner: datex.SpecificCharacteristics{VehicleType: "car", Lane: "lane2", ValueType: "trafficFlow"}},
			{Index: 4, Inner: datex.SpecificCharacteristics{VehicleType: "anyVehicle", Lane: "hardShoulder", ValueType: "trafficFlow"}},
			{Index: 5, Inner: datex.SpecificCharacteristics{VehicleType: "anyVehicle", Lane: "allLanesCompleteCarriageway", ValueType: "trafficSpeed"}},
		},
	}
	mapping := BuildIndexMapping(rec)
	want := models.IndexMapping{
		{Lane: 1, FlowIndex: 1, SpeedIndex: 2},
		{Lane: 0, SpeedIndex: 5},
	}
	if len(mapping) != len(want) {
		t.Fatalf("mapping = %#v, want %#v", mapping, want)
	}
	for i := range want {
		if mapping[i] != want[i] {
			t.Fatalf("mapping[%d] = %#v, want %#v", i, mapping[i], want[i])
		}
	}
}

func TestBuildIndexMappingNoAggregateDescriptors(t *testing.T) {
	rec := datex.SiteRecord{
		ID: "RWS01_X",
		Specifics: []datex.CharacteristicIndex{
			{Index: 1, Inner: datex.SpecificCharacteristics{VehicleType: "car", Lane: "lane1", ValueType: "trafficFlow"}},
		},
	}
	if mapping := BuildIndexMapping(rec); len(mapping) != 0 {
		t.Fatalf("expected empty mapping, got %#v", mapping)
	}
}

func TestSiteFromRecord(t *testing.T) {
	lanes := 3
	lat, lon := 52.1, 5.04
	rec := datex.SiteRecord{
		ID:        "RWS01_X",
		Name:      "A2 hmp 34.6 Re",
		Lanes:     &lanes,
		Equipment: "loop",
		Side:      "positive",
		Location:  datex.SiteLocation{Latitude: &lat, Longitude: &lon},
		Specifics: []datex.CharacteristicIndex{
			{Index: 1, Inner: datex.SpecificCharacteristics{VehicleType: "anyVehicle", Lane: "lane1", ValueType: "trafficFlow"}},
		},
	}
	site, mapping := SiteFromRecord(rec)
	if site.SiteID != "RWS01_X" {
		t.Fatalf("site_id = %q", site.SiteID)
	}
	if site.Road == nil || *site.Road != "A2" {
		t.Fatalf("road = %v, want A2", site.Road)
	}
	if site.Name == nil || *site.Name != "A2 hmp 34.6 Re" {
		t.Fatalf("name = %v", site.Name)
	}
	if site.Lat == nil || *site.Lat != 52.1 || site.Lon == nil || *site.Lon != 5.04 {
		t.Fatalf("position = %v,%v", site.Lat, site.Lon)
	}
	if len(mapping) != 1 || mapping[0].Lane != 1 || mapping[0].FlowIndex != 1 {
		t.Fatalf("mapping = %#v", mapping)
	}
	if len(site.IndexMapping) == 0 {
		t.Fatalf("index mapping column not set")
	}
	decoded, err := models.DecodeIndexMapping(site.IndexMapping)
	if err != nil {
		t.Fatalf("decode stored mapping: %v", err)
	}
	if len(decoded) != 1 || decoded[0] != mapping[0] {
		t.Fatalf("stored mapping = %#v, want %#v", decoded, mapping)
	}
}

const siteRecordXML = `<?xml version="1.0" encoding="UTF-8"?>
<d2LogicalModel xmlns="http://datex2.eu/schema/2/2_0">
  <payloadPublication>
    <measurementSiteTable>
      <measurementSiteRecord id="RWS01_X">
        <measurementSiteName><values><value>A2 hmp 34.6 Re</value></values></measurementSiteName>
        <measurementSiteNumberOfLanes>2</measurementSiteNumberOfLanes>
        <measurementSide>positive</measurementSide>
        <measurementSiteLocation>
          <locationForDisplay><latitude>52.1</latitude><longitude>5.04</longitude></locationForDisplay>
        </measurementSiteLocation>
        <measurementSpecificCharacteristics index="1">
          <measurementSpecificCharacteristics>
            <specificLane>lane1</specificLane>
            <specificMeasurementValueType>trafficFlow</specificMeasurementValueType>
            <specificVehicleCharacteristics><vehicleType>anyVehicle</vehicleType></specificVehicleCharacteristics>
          </measurementSpecificCharacteristics>
        </measurementSpecificCharacteristics>
        <measurementSpecificCharacteristics index="2">
          <measurementSpecificCharacteristics>
            <specificLane>lane1</specificLane>
            <specificMeasurementValueType>trafficSpeed</specificMeasurementValueType>
            <specificVehicleCharacteristics><vehicleType>anyVehicle</vehicleType></specificVehicleCharacteristics>
          </measurementSpecificCharacteristics>
        </measurementSpecificCharacteristics>
      </measurementSiteRecord>
    </measurementSiteTable>
  </payloadPublication>
</d2LogicalModel>`

func TestDecodeSiteRecordsXML(t *testing.T) {
	var recs []datex.SiteRecord
	err := datex.DecodeSiteRecords(strings.NewReader(siteRecordXML), func(rec datex.SiteRecord) error {
		recs = append(recs, rec)
		return nil
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	mapping := BuildIndexMapping(recs[0])
	if len(mapping) != 1 {
		t.Fatalf("mapping = %#v", mapping)
	}
	if mapping[0].Lane != 1 || mapping[0].FlowIndex != 1 || mapping[0].SpeedIndex != 2 {
		t.Fatalf("mapping[0] = %#v", mapping[0])
	}
}
