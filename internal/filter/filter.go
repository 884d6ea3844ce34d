// Package filter resolves client-supplied subscription filters into concrete
// site-id predicates. Resolution is a snapshot taken at subscribe time: if
// the site set behind a road or bbox changes later, the subscription is not
// refreshed.
package filter

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"stroomweg/internal/repository"
)

// SiteFilter is the typed predicate evaluated against the site store through
// a fixed, parameterized query shape. All fields empty means wildcard.
type SiteFilter struct {
	SiteID string
	Road   string
	BBox   *repository.BoundingBox
}

// Parse validates raw filter input. Malformed geometry fails with a
// client-visible error; empty input yields a wildcard filter.
func Parse(siteID, road, bbox string) (SiteFilter, error) {
	f := SiteFilter{
		SiteID: strings.TrimSpace(siteID),
		Road:   strings.TrimSpace(road),
	}
	if strings.TrimSpace(bbox) != "" {
		box, err := ParseBBox(bbox)
		if err != nil {
			return SiteFilter{}, err
		}
		f.BBox = &box
	}
	return f, nil
}

// ParseBBox parses "lat1,lon1,lat2,lon2" into a normalized envelope.
func ParseBBox(raw string) (repository.BoundingBox, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return repository.BoundingBox{}, fmt.Errorf("bbox must be lat1,lon1,lat2,lon2")
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return repository.BoundingBox{}, fmt.Errorf("bbox must be lat1,lon1,lat2,lon2")
		}
		vals[i] = v
	}
	box := repository.BoundingBox{
		MinLat: vals[0], MinLon: vals[1],
		MaxLat: vals[2], MaxLon: vals[3],
	}
	if box.MinLat > box.MaxLat {
		box.MinLat, box.MaxLat = box.MaxLat, box.MinLat
	}
	if box.MinLon > box.MaxLon {
		box.MinLon, box.MaxLon = box.MaxLon, box.MinLon
	}
	return box, nil
}

func (f SiteFilter) IsWildcard() bool {
	return f.SiteID == "" && f.Road == "" && f.BBox == nil
}

// Resolved is the concrete decision predicate for one subscription.
type Resolved struct {
	ids map[string]struct{}
	all bool
}

// Wildcard matches every entry.
func Wildcard() *Resolved {
	return &Resolved{all: true}
}

// Resolve materializes the filter. An explicit site id needs no lookup; a
// road or bbox predicate reads the site store once; wildcard restricts
// nothing.
func (f SiteFilter) Resolve(ctx context.Context, repo repository.Repository) (*Resolved, error) {
	if f.IsWildcard() {
		return Wildcard(), nil
	}
	if f.SiteID != "" {
		return &Resolved{ids: map[string]struct{}{f.SiteID: {}}}, nil
	}
	params := repository.SiteParams{BBox: f.BBox}
	if f.Road != "" {
		road := f.Road
		params.Road = &road
	}
	ids, err := repo.SiteIDs(ctx, params)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return &Resolved{ids: set}, nil
}

func (r *Resolved) Match(siteID string) bool {
	if r == nil || r.all {
		return true
	}
	_, ok := r.ids[siteID]
	return ok
}

func (r *Resolved) IsWildcard() bool {
	return r == nil || r.all
}

// CountLabel is the subscribe-reply value: the resolved set's size, or "all"
// under wildcard.
func (r *Resolved) CountLabel() any {
	if r.IsWildcard() {
		return "all"
	}
	return len(r.ids)
}
