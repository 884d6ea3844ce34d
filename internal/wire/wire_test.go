package wire

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"stroomweg/internal/models"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

var cycleTS = time.Date(2026, 2, 17, 12, 0, 0, 0, time.UTC)

func TestCompactSpeedsJSON(t *testing.T) {
	readings := []models.SpeedReading{
		{Timestamp: cycleTS, SiteID: "RWS01_A", Lane: 1, SpeedKMH: fptr(92.4), FlowVehHr: iptr(450)},
		{Timestamp: cycleTS, SiteID: "RWS01_A", Lane: 2, SpeedKMH: nil, FlowVehHr: iptr(1200)},
		{Timestamp: cycleTS, SiteID: "RWS01_B", Lane: 0, SpeedKMH: fptr(101), FlowVehHr: nil},
	}
	raw, err := json.Marshal(CompactSpeeds(readings))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `[{"s":"RWS01_A","t":"2026-02-17T12:00:00+00:00","l":[[1,92.4,450],[2,null,1200]]},` +
		`{"s":"RWS01_B","t":"2026-02-17T12:00:00+00:00","l":[[0,101,null]]}]`
	if string(raw) != want {
		t.Fatalf("compact speed message\n got %s\nwant %s", raw, want)
	}
}

func TestCompactSpeedsEmpty(t *testing.T) {
	raw, err := json.Marshal(CompactSpeeds(nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != "[]" {
		t.Fatalf("empty batch = %s, want []", raw)
	}
}

func TestSpeedRoundTrip(t *testing.T) {
	in := CompactSpeeds([]models.SpeedReading{
		{Timestamp: cycleTS, SiteID: "RWS01_A", Lane: 1, SpeedKMH: fptr(92.4), FlowVehHr: iptr(450)},
		{Timestamp: cycleTS, SiteID: "RWS01_A", Lane: 0, SpeedKMH: nil, FlowVehHr: nil},
	})
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out SpeedBatch
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip\n got %#v\nwant %#v", out, in)
	}
}

func TestExpandSpeeds(t *testing.T) {
	batch := CompactSpeeds([]models.SpeedReading{
		{Timestamp: cycleTS, SiteID: "RWS01_A", Lane: 1, SpeedKMH: fptr(92.4), FlowVehHr: iptr(450)},
		{Timestamp: cycleTS, SiteID: "RWS01_A", Lane: 2, SpeedKMH: fptr(88), FlowVehHr: iptr(300)},
	})
	expanded := ExpandSpeeds(batch)
	if len(expanded) != 1 {
		t.Fatalf("expected 1 site entry, got %d", len(expanded))
	}
	e := expanded[0]
	if e.SiteID != "RWS01_A" || e.Timestamp != "2026-02-17T12:00:00+00:00" {
		t.Fatalf("unexpected entry header: %#v", e)
	}
	if len(e.Lanes) != 2 || e.Lanes[0].Lane != 1 || *e.Lanes[0].SpeedKMH != 92.4 || *e.Lanes[0].FlowVehHr != 450 {
		t.Fatalf("unexpected lanes: %#v", e.Lanes)
	}
}

func TestCompactJourneyTimesJSON(t *testing.T) {
	readings := []models.JourneyTimeReading{
		{Timestamp: cycleTS, SiteID: "RWS03_Y", DurationSec: fptr(245), RefDurationSec: fptr(180), Quality: fptr(90.5)},
		{Timestamp: cycleTS, SiteID: "RWS03_Z", DurationSec: fptr(310), RefDurationSec: nil, Quality: nil},
	}
	raw, err := json.Marshal(CompactJourneyTimes(readings))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"t":"2026-02-17T12:00:00+00:00","d":[["RWS03_Y",245,180,65,90.5],["RWS03_Z",310,null,null,null]]}`
	if string(raw) != want {
		t.Fatalf("compact journey-time message\n got %s\nwant %s", raw, want)
	}
}

func TestJourneyTimeRoundTrip(t *testing.T) {
	in := CompactJourneyTimes([]models.JourneyTimeReading{
		{Timestamp: cycleTS, SiteID: "RWS03_Y", DurationSec: fptr(245.5), RefDurationSec: fptr(180.25), Quality: fptr(100)},
		{Timestamp: cycleTS, SiteID: "RWS03_Z", DurationSec: nil},
	})
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out JourneyTimeBatch
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip\n got %#v\nwant %#v", out, in)
	}
}

func TestExpandJourneyTimes(t *testing.T) {
	batch := CompactJourneyTimes([]models.JourneyTimeReading{
		{Timestamp: cycleTS, SiteID: "RWS03_Y", DurationSec: fptr(245), RefDurationSec: fptr(180), Quality: fptr(90.5)},
	})
	expanded := ExpandJourneyTimes(batch)
	if len(expanded) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(expanded))
	}
	e := expanded[0]
	if e.SiteID != "RWS03_Y" || e.Timestamp != "2026-02-17T12:00:00+00:00" {
		t.Fatalf("unexpected entry: %#v", e)
	}
	if e.DelaySec == nil || *e.DelaySec != 65 {
		t.Fatalf("delay = %v, want 65", e.DelaySec)
	}
}

func TestLaneValueUnmarshalRejectsWrongArity(t *testing.T) {
	var v LaneValue
	if err := json.Unmarshal([]byte(`[1,92.4]`), &v); err == nil {
		t.Fatalf("expected error for 2-element lane value")
	}
}

func TestTimeLayoutMatchesConsumers(t *testing.T) {
	got := FormatTime(cycleTS)
	if got != "2026-02-17T12:00:00+00:00" {
		t.Fatalf("FormatTime = %q", got)
	}
	back, err := ParseTime(got)
	if err != nil {
		t.Fatalf("ParseTime: %v", err)
	}
	if !back.Equal(cycleTS) {
		t.Fatalf("ParseTime = %v, want %v", back, cycleTS)
	}
}
