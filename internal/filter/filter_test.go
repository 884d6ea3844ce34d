package filter

import (
	"context"
	"testing"

	"stroomweg/internal/repository"
)

// stubRepo records SiteIDs calls; everything else is unused by resolution.
type stubRepo struct {
	repository.Repository

	siteIDs    []string
	calls      int
	lastParams repository.SiteParams
}

func (s *stubRepo) SiteIDs(ctx context.Context, params repository.SiteParams) ([]string, error) {
	s.calls++
	s.lastParams = params
	return s.siteIDs, nil
}

func TestParseBBox(t *testing.T) {
	box, err := ParseBBox("52.0,4.9,52.2,5.1")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := repository.BoundingBox{MinLat: 52.0, MinLon: 4.9, MaxLat: 52.2, MaxLon: 5.1}
	if box != want {
		t.Fatalf("box = %#v, want %#v", box, want)
	}
}

func TestParseBBoxNormalizesCorners(t *testing.T) {
	box, err := ParseBBox("52.2,5.1,52.0,4.9")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if box.MinLat != 52.0 || box.MaxLat != 52.2 || box.MinLon != 4.9 || box.MaxLon != 5.1 {
		t.Fatalf("box not normalized: %#v", box)
	}
}

func TestParseBBoxMalformed(t *testing.T) {
	for _, raw := range []string{"52.0,4.9,52.2", "a,b,c,d", "1,2,3,4,5", ""} {
		if _, err := ParseBBox(raw); err == nil {
			t.Fatalf("ParseBBox(%q) expected error", raw)
		}
	}
}

func TestParseMalformedBBoxFailsFilter(t *testing.T) {
	if _, err := Parse("", "", "not-a-bbox"); err == nil {
		t.Fatalf("expected error for malformed geometry")
	}
}

func TestResolveExplicitSiteNeedsNoLookup(t *testing.T) {
	repo := &stubRepo{}
	f, err := Parse("RWS01_X", "", "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	resolved, err := f.Resolve(context.Background(), repo)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if repo.calls != 0 {
		t.Fatalf("explicit id must not hit the store, got %d calls", repo.calls)
	}
	if !resolved.Match("RWS01_X") || resolved.Match("RWS01_Y") {
		t.Fatalf("unexpected match behavior")
	}
	if resolved.CountLabel() != 1 {
		t.Fatalf("count label = %v, want 1", resolved.CountLabel())
	}
}

func TestResolveRoadReadsStoreOnce(t *testing.T) {
	repo := &stubRepo{siteIDs: []string{"RWS01_A", "RWS01_B"}}
	f, err := Parse("", "A2", "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	resolved, err := f.Resolve(context.Background(), repo)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if repo.calls != 1 {
		t.Fatalf("expected exactly one store read, got %d", repo.calls)
	}
	if repo.lastParams.Road == nil || *repo.lastParams.Road != "A2" {
		t.Fatalf("road param = %v", repo.lastParams.Road)
	}
	if !resolved.Match("RWS01_A") || !resolved.Match("RWS01_B") || resolved.Match("RWS01_C") {
		t.Fatalf("unexpected match behavior")
	}
	if resolved.CountLabel() != 2 {
		t.Fatalf("count label = %v, want 2", resolved.CountLabel())
	}
}

func TestResolveBBox(t *testing.T) {
	repo := &stubRepo{siteIDs: []string{"RWS01_A"}}
	f, err := Parse("", "", "52.0,4.9,52.2,5.1")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := f.Resolve(context.Background(), repo); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if repo.lastParams.BBox == nil || repo.lastParams.BBox.MinLat != 52.0 {
		t.Fatalf("bbox param = %#v", repo.lastParams.BBox)
	}
}

func TestResolveWildcard(t *testing.T) {
	repo := &stubRepo{}
	f, err := Parse("", "", "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !f.IsWildcard() {
		t.Fatalf("empty filter must be wildcard")
	}
	resolved, err := f.Resolve(context.Background(), repo)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if repo.calls != 0 {
		t.Fatalf("wildcard must not hit the store")
	}
	if !resolved.Match("anything") {
		t.Fatalf("wildcard must match everything")
	}
	if resolved.CountLabel() != "all" {
		t.Fatalf("count label = %v, want all", resolved.CountLabel())
	}
}

// Resolution is a snapshot: later reference changes do not refresh it.
func TestResolveIsSnapshot(t *testing.T) {
	repo := &stubRepo{siteIDs: []string{"RWS01_A"}}
	f, _ := Parse("", "A2", "")
	resolved, err := f.Resolve(context.Background(), repo)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	repo.siteIDs = []string{"RWS01_A", "RWS01_NEW"}
	if resolved.Match("RWS01_NEW") {
		t.Fatalf("resolved set must not follow later reference changes")
	}
	if !resolved.Match("RWS01_A") {
		t.Fatalf("original member must still match")
	}
}
