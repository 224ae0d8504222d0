package server

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/hyperjump/hikeplanner/internal/models"
	"github.com/hyperjump/hikeplanner/internal/trails"
)

// searchRequestFromQuery builds a search request from query-string parameters, e.g.
// ?q=falls&difficulty=beginner,intermediate&maxDistance=10&sortBy=distance&limit=5.
func searchRequestFromQuery(q url.Values) (*models.SearchRequest, error) {
	req := &models.SearchRequest{
		Query:     firstOf(q, "q", "query"),
		SortBy:    models.SortField(q.Get("sortBy")),
		SortOrder: models.SortOrder(q.Get("sortOrder")),
	}
	var err error
	if req.Limit, err = optionalInt(q, "limit"); err != nil {
		return nil, err
	}
	if req.Offset, err = optionalInt(q, "offset"); err != nil {
		return nil, err
	}

	f := &models.FilterSet{
		Region:    q.Get("region"),
		Park:      q.Get("park"),
		Features:  listParam(q, "features"),
		Amenities: listParam(q, "amenities"),
	}
	for _, d := range listParam(q, "difficulty") {
		f.Difficulty = append(f.Difficulty, models.Difficulty(d))
	}
	for _, t := range listParam(q, "trailType") {
		f.TrailType = append(f.TrailType, models.TrailType(t))
	}
	ranges := []struct {
		name string
		dst  **models.Range
	}{
		{"Distance", &f.Distance},
		{"Duration", &f.Duration},
		{"Elevation", &f.ElevationGain},
		{"Rating", &f.Rating},
	}
	for _, r := range ranges {
		lo, err := optionalFloat(q, "min"+r.name)
		if err != nil {
			return nil, err
		}
		hi, err := optionalFloat(q, "max"+r.name)
		if err != nil {
			return nil, err
		}
		if lo != nil || hi != nil {
			*r.dst = &models.Range{Min: lo, Max: hi}
		}
	}
	if f.SeasonalMonth, err = intParam(q, "month"); err != nil {
		return nil, err
	}
	if f.MaxRiskLevel, err = intParam(q, "maxRiskLevel"); err != nil {
		return nil, err
	}
	if v := q.Get("noPermit"); v != "" {
		if f.NoPermitRequired, err = strconv.ParseBool(v); err != nil {
			return nil, &models.ValidationError{Field: "noPermit", Reason: "must be true or false"}
		}
	}
	req.Filters = f
	return req, nil
}

func recommendationFromQuery(q url.Values) (*trails.Recommendation, error) {
	rec := &trails.Recommendation{
		FitnessLevel: models.Difficulty(q.Get("fitnessLevel")),
		Region:       q.Get("region"),
		Features:     listParam(q, "features"),
	}
	var err error
	if rec.Limit, err = intParam(q, "limit"); err != nil {
		return nil, err
	}
	maxDistance, err := optionalFloat(q, "maxDistance")
	if err != nil {
		return nil, err
	}
	if maxDistance != nil {
		rec.MaxDistance = *maxDistance
	}
	return rec, nil
}

func firstOf(q url.Values, keys ...string) string {
	for _, k := range keys {
		if v := q.Get(k); v != "" {
			return v
		}
	}
	return ""
}

// listParam accepts both repeated keys and comma-separated values.
func listParam(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// intParam returns 0 when key is absent.
func intParam(q url.Values, key string) (int, error) {
	v, err := optionalInt(q, key)
	if err != nil || v == nil {
		return 0, err
	}
	return *v, nil
}

func optionalInt(q url.Values, key string) (*int, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, &models.ValidationError{Field: key, Reason: "must be an integer"}
	}
	return &v, nil
}

func optionalFloat(q url.Values, key string) (*float64, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &models.ValidationError{Field: key, Reason: "must be a number"}
	}
	return &v, nil
}
