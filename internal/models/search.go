package models

import (
	"fmt"
	"strings"
)

// SortField selects the trail attribute search results are ordered by.
type SortField string

const (
	SortByRating     SortField = "rating"
	SortByDistance   SortField = "distance"
	SortByDifficulty SortField = "difficulty"
	SortByPopularity SortField = "popularity"
	SortByElevation  SortField = "elevation"
	SortByName       SortField = "name"
	SortByCreated    SortField = "created"
)

// SortFields lists the supported sort fields.
var SortFields = []SortField{SortByRating, SortByDistance, SortByDifficulty, SortByPopularity, SortByElevation, SortByName, SortByCreated}

// Valid reports whether f is a supported sort field.
func (f SortField) Valid() bool {
	for _, known := range SortFields {
		if f == known {
			return true
		}
	}
	return false
}

// SortOrder is ascending or descending.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Valid reports whether o is asc or desc.
func (o SortOrder) Valid() bool {
	return o == SortAsc || o == SortDesc
}

const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

// Range is an inclusive numeric interval; either bound may be absent.
type Range struct {
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// NewRange returns a range with both bounds set.
func NewRange(min, max float64) *Range {
	return &Range{Min: &min, Max: &max}
}

// GeoFilter restricts results to a radius around a point. Accepted for API compatibility;
// geospatial filtering is not implemented and the filter is ignored.
type GeoFilter struct {
	Coordinates Coordinates `json:"coordinates"`
	Radius      float64     `json:"radius"` // km
}

// FilterSet holds the optional typed search filters. Zero values mean "no constraint".
type FilterSet struct {
	Difficulty       []Difficulty `json:"difficulty,omitempty"`
	Distance         *Range       `json:"distance,omitempty"`
	Duration         *Range       `json:"duration,omitempty"`
	ElevationGain    *Range       `json:"elevationGain,omitempty"`
	Rating           *Range       `json:"rating,omitempty"`
	TrailType        []TrailType  `json:"trailType,omitempty"`
	Features         []string     `json:"features,omitempty"`
	Amenities        []string     `json:"amenities,omitempty"`
	Region           string       `json:"region,omitempty"`
	Park             string       `json:"park,omitempty"`
	SeasonalMonth    int          `json:"seasonalMonth,omitempty"`
	MaxRiskLevel     int          `json:"maxRiskLevel,omitempty"`
	NoPermitRequired bool         `json:"noPermitRequired,omitempty"`
	Location         *GeoFilter   `json:"location,omitempty"`
}

// SearchRequest is a structured trail search.
type SearchRequest struct {
	Query     string     `json:"query,omitempty"`
	Filters   *FilterSet `json:"filters,omitempty"`
	SortBy    SortField  `json:"sortBy,omitempty"`
	SortOrder SortOrder  `json:"sortOrder,omitempty"`
	Limit     *int       `json:"limit,omitempty"`
	Offset    *int       `json:"offset,omitempty"`
}

// Validate rejects enum values the API does not know about and fills sort defaults.
// Numeric limits are clamped later by the query builder rather than rejected here.
func (r *SearchRequest) Validate() error {
	if len(r.Query) > 200 {
		return &ValidationError{Field: "query", Reason: "must be at most 200 characters"}
	}
	if r.SortBy == "" {
		r.SortBy = SortByRating
	}
	if r.SortOrder == "" {
		r.SortOrder = SortDesc
	}
	r.SortOrder = SortOrder(strings.ToLower(string(r.SortOrder)))
	if !r.SortBy.Valid() {
		return &ValidationError{Field: "sortBy", Reason: fmt.Sprintf("unknown sort field %q", r.SortBy)}
	}
	if !r.SortOrder.Valid() {
		return &ValidationError{Field: "sortOrder", Reason: fmt.Sprintf("unknown sort order %q", r.SortOrder)}
	}
	if r.Filters == nil {
		return nil
	}
	for _, d := range r.Filters.Difficulty {
		if !d.Valid() {
			return &ValidationError{Field: "filters.difficulty", Reason: fmt.Sprintf("unknown difficulty %q", d)}
		}
	}
	for _, t := range r.Filters.TrailType {
		if !t.Valid() {
			return &ValidationError{Field: "filters.trailType", Reason: fmt.Sprintf("unknown trail type %q", t)}
		}
	}
	if loc := r.Filters.Location; loc != nil && (loc.Radius < 1 || loc.Radius > 500) {
		return &ValidationError{Field: "filters.location.radius", Reason: "must be between 1 and 500 km"}
	}
	return nil
}

// LimitOr returns the requested limit, or def when none was given.
func (r *SearchRequest) LimitOr(def int) int {
	if r.Limit == nil {
		return def
	}
	return *r.Limit
}

// OffsetOr returns the requested offset, or def when none was given.
func (r *SearchRequest) OffsetOr(def int) int {
	if r.Offset == nil {
		return def
	}
	return *r.Offset
}

// SearchResult is one page of matching trails.
type SearchResult struct {
	Trails  []*Trail `json:"trails"`
	Total   int      `json:"total"`
	HasMore bool     `json:"hasMore"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}
