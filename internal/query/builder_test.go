package query

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/hikeplanner/internal/models"
)

func ptr(v float64) *float64 { return &v }

const baseline = "SELECT * FROM c WHERE c.isActive = true"

func paramNames(d Descriptor) []string {
	names := make([]string, len(d.Parameters))
	for i, p := range d.Parameters {
		names[i] = p.Name
	}
	return names
}

func TestBuilder_EndToEnd(t *testing.T) {
	d := NewBuilder().
		WithTextSearch("Mountain").
		WithDifficulty([]models.Difficulty{"intermediate", "advanced"}).
		WithDistanceRange(ptr(5), ptr(20)).
		SortBy("rating", "desc").
		WithPagination(0, 10).
		Build()

	want := baseline +
		" AND (CONTAINS(LOWER(c.name), LOWER(@searchTerm))" +
		" OR CONTAINS(LOWER(c.description), LOWER(@searchTerm))" +
		" OR CONTAINS(LOWER(c.location.park), LOWER(@searchTerm))" +
		" OR CONTAINS(LOWER(c.location.region), LOWER(@searchTerm)))" +
		" AND (c.characteristics.difficulty = @difficulty0 OR c.characteristics.difficulty = @difficulty1)" +
		" AND c.characteristics.distance >= @minDistance" +
		" AND c.characteristics.distance <= @maxDistance" +
		" ORDER BY c.ratings.average DESC" +
		" OFFSET 0 LIMIT 10"
	if d.Text != want {
		t.Errorf("query text:\n got: %s\nwant: %s", d.Text, want)
	}

	wantParams := []Parameter{
		{Name: "@searchTerm", Value: "mountain"},
		{Name: "@difficulty0", Value: "intermediate"},
		{Name: "@difficulty1", Value: "advanced"},
		{Name: "@minDistance", Value: 5.0},
		{Name: "@maxDistance", Value: 20.0},
	}
	if !reflect.DeepEqual(d.Parameters, wantParams) {
		t.Errorf("parameters: got %+v, want %+v", d.Parameters, wantParams)
	}
}

func TestBuilder_BuildIsIdempotent(t *testing.T) {
	b := NewBuilder().
		WithTextSearch("lake").
		WithTrailTypes([]models.TrailType{models.TrailTypeLoop}).
		WithFeatures([]string{"wildlife", "bears"}).
		SortBy(models.SortByDifficulty, models.SortAsc).
		WithPagination(20, 20)

	first := b.Build()
	second := b.Build()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Build() not idempotent:\n%+v\n%+v", first, second)
	}
	if !reflect.DeepEqual(b.BuildCountQuery(), b.BuildCountQuery()) {
		t.Error("BuildCountQuery() not idempotent")
	}
}

func TestBuilder_NoOpOnEmptyInput(t *testing.T) {
	tests := []struct {
		name  string
		apply func(*Builder)
	}{
		{"empty text", func(b *Builder) { b.WithTextSearch("") }},
		{"whitespace text", func(b *Builder) { b.WithTextSearch("   ") }},
		{"no difficulty", func(b *Builder) { b.WithDifficulty(nil) }},
		{"no trail types", func(b *Builder) { b.WithTrailTypes([]models.TrailType{}) }},
		{"no features", func(b *Builder) { b.WithFeatures(nil) }},
		{"no amenities", func(b *Builder) { b.WithAmenities(nil) }},
		{"no distance bounds", func(b *Builder) { b.WithDistanceRange(nil, nil) }},
		{"empty region", func(b *Builder) { b.WithRegion("  ") }},
		{"zero month", func(b *Builder) { b.WithSeasonalAvailability(0) }},
		{"zero risk", func(b *Builder) { b.WithMaxRiskLevel(0) }},
		{"zero rating", func(b *Builder) { b.WithMinimumRating(0) }},
		{"nil filters", func(b *Builder) { b.WithFilters(nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder().WithRegion("utah")
			before := b.Build()
			tt.apply(b)
			after := b.Build()
			if !reflect.DeepEqual(before, after) {
				t.Errorf("expected no change:\nbefore: %+v\n after: %+v", before, after)
			}
			if len(b.Issues()) != 0 {
				t.Errorf("absent input should not record issues, got %v", b.Issues())
			}
		})
	}
}

func TestBuilder_InvalidValuesAreIgnoredAndRecorded(t *testing.T) {
	tests := []struct {
		name   string
		apply  func(*Builder)
		filter string
	}{
		{"negative distance", func(b *Builder) { b.WithDistanceRange(ptr(-1), nil) }, "distance"},
		{"zero max distance", func(b *Builder) { b.WithDistanceRange(nil, ptr(0)) }, "distance"},
		{"negative duration", func(b *Builder) { b.WithDurationRange(ptr(-2), nil) }, "duration"},
		{"negative elevation", func(b *Builder) { b.WithElevationRange(nil, ptr(-10)) }, "elevation"},
		{"rating above 5", func(b *Builder) { b.WithMinimumRating(7) }, "rating"},
		{"negative rating", func(b *Builder) { b.WithMinimumRating(-1) }, "rating"},
		{"max rating above 5", func(b *Builder) { b.WithMaximumRating(5.5) }, "rating"},
		{"month 13", func(b *Builder) { b.WithSeasonalAvailability(13) }, "seasonalMonth"},
		{"negative month", func(b *Builder) { b.WithSeasonalAvailability(-1) }, "seasonalMonth"},
		{"risk 6", func(b *Builder) { b.WithMaxRiskLevel(6) }, "maxRiskLevel"},
		{"unknown amenity", func(b *Builder) { b.WithAmenities([]string{"hot tub"}) }, "amenities"},
		{"blank feature", func(b *Builder) { b.WithFeatures([]string{" "}) }, "features"},
		{"negative rating count", func(b *Builder) { b.WithMinimumRatingCount(-1) }, "ratingCount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			tt.apply(b)
			if got := b.Build().Text; got != baseline {
				t.Errorf("expected invalid value to be ignored, got %s", got)
			}
			var ife *InvalidFilterError
			if !errors.As(b.Err(), &ife) {
				t.Fatalf("expected *InvalidFilterError, got %v", b.Err())
			}
			if ife.Filter != tt.filter {
				t.Errorf("filter: got %q, want %q", ife.Filter, tt.filter)
			}
		})
	}
}

func TestBuilder_ParameterNamesAreUnique(t *testing.T) {
	b := NewBuilder().
		WithTextSearch("falls").
		WithTextSearch("canyon").
		WithDifficulty([]models.Difficulty{"beginner", "expert"}).
		WithDifficulty([]models.Difficulty{"beginner", "expert"}).
		WithDifficulty([]models.Difficulty{"advanced"}).
		WithDistanceRange(ptr(1), ptr(3)).
		WithDistanceRange(ptr(2), ptr(4)).
		WithFeatures([]string{"elk", "moose", "scenic views"}).
		WithFeatures([]string{"elk"}).
		WithRegion("a").
		WithRegion("b").
		WithSeasonalAvailability(6).
		WithSeasonalAvailability(7)

	d := b.Build()
	seen := make(map[string]bool)
	for _, name := range paramNames(d) {
		if seen[name] {
			t.Errorf("duplicate parameter %s in %v", name, paramNames(d))
		}
		seen[name] = true
		if !strings.Contains(d.Text, name) {
			t.Errorf("parameter %s not referenced by query %s", name, d.Text)
		}
	}
}

func TestBuilder_AndAcrossOrWithin(t *testing.T) {
	d := NewBuilder().
		WithDifficulty([]models.Difficulty{"easy", "hard"}).
		WithDistanceRange(ptr(5), ptr(10)).
		Build()

	want := baseline +
		" AND (c.characteristics.difficulty = @difficulty0 OR c.characteristics.difficulty = @difficulty1)" +
		" AND c.characteristics.distance >= @minDistance AND c.characteristics.distance <= @maxDistance"
	if d.Text != want {
		t.Errorf("got:  %s\nwant: %s", d.Text, want)
	}
}

func TestBuilder_SingleDifficultyIsEquality(t *testing.T) {
	d := NewBuilder().WithDifficulty([]models.Difficulty{"expert"}).Build()
	if want := baseline + " AND c.characteristics.difficulty = @difficulty"; d.Text != want {
		t.Errorf("got %s, want %s", d.Text, want)
	}
	if len(d.Parameters) != 1 || d.Parameters[0].Value != "expert" {
		t.Errorf("unexpected parameters %+v", d.Parameters)
	}
}

func TestBuilder_PaginationClamping(t *testing.T) {
	tests := []struct {
		offset, limit int
		want          string
	}{
		{-5, 500, "OFFSET 0 LIMIT 100"},
		{10, 0, "OFFSET 10 LIMIT 1"},
		{40, 20, "OFFSET 40 LIMIT 20"},
	}
	for _, tt := range tests {
		d := NewBuilder().WithPagination(tt.offset, tt.limit).Build()
		if !strings.HasSuffix(d.Text, " "+tt.want) {
			t.Errorf("WithPagination(%d, %d): got %s, want suffix %q", tt.offset, tt.limit, d.Text, tt.want)
		}
	}
}

func TestBuilder_SortFallback(t *testing.T) {
	bogus := NewBuilder().SortBy("bogus-field", "desc").Build()
	rating := NewBuilder().SortBy("rating", "desc").Build()
	if bogus.Text != rating.Text {
		t.Errorf("fallback sort:\n got: %s\nwant: %s", bogus.Text, rating.Text)
	}
	if !strings.HasSuffix(rating.Text, "ORDER BY c.ratings.average DESC") {
		t.Errorf("unexpected rating order: %s", rating.Text)
	}

	sideways := NewBuilder().SortBy(models.SortByName, "sideways").Build()
	if !strings.HasSuffix(sideways.Text, "ORDER BY c.name DESC") {
		t.Errorf("unknown order should descend: %s", sideways.Text)
	}
}

func TestBuilder_SortFields(t *testing.T) {
	tests := []struct {
		field models.SortField
		order models.SortOrder
		want  string
	}{
		{models.SortByDistance, models.SortAsc, "ORDER BY c.characteristics.distance ASC"},
		{models.SortByPopularity, models.SortDesc, "ORDER BY c.ratings.count DESC"},
		{models.SortByElevation, "ASC", "ORDER BY c.characteristics.elevationGain ASC"},
		{models.SortByCreated, models.SortDesc, "ORDER BY c.createdAt DESC"},
		{models.SortByDifficulty, models.SortAsc, "ORDER BY (CASE c.characteristics.difficulty" +
			" WHEN 'beginner' THEN 1 WHEN 'intermediate' THEN 2 WHEN 'advanced' THEN 3 WHEN 'expert' THEN 4" +
			" ELSE 5 END) ASC"},
	}
	for _, tt := range tests {
		t.Run(string(tt.field), func(t *testing.T) {
			got := NewBuilder().SortBy(tt.field, tt.order).Summary().OrderBy
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBuilder_ResetRestoresBaseline(t *testing.T) {
	fresh := NewBuilder().Build()
	if fresh.Text != baseline || len(fresh.Parameters) != 0 {
		t.Fatalf("unexpected fresh descriptor %+v", fresh)
	}

	b := NewBuilder().
		WithTextSearch("ridge").
		WithMaxRiskLevel(9).
		WithoutPermitRequired().
		SortBy(models.SortByName, models.SortAsc).
		WithPagination(5, 5)
	b.Reset()

	if got := b.Build(); !reflect.DeepEqual(got, fresh) {
		t.Errorf("after Reset: got %+v, want %+v", got, fresh)
	}
	if b.Err() != nil {
		t.Errorf("Reset should clear issues, got %v", b.Err())
	}
}

func TestBuilder_CountQueryOmitsOrderAndPagination(t *testing.T) {
	b := NewBuilder().
		WithTextSearch("peak").
		WithMinimumRating(4).
		SortBy(models.SortByDifficulty, models.SortDesc).
		WithPagination(30, 10)

	count := b.BuildCountQuery()
	for _, s := range []string{"ORDER BY", "OFFSET", "LIMIT"} {
		if strings.Contains(count.Text, s) {
			t.Errorf("count query contains %q: %s", s, count.Text)
		}
	}
	if !strings.HasPrefix(count.Text, "SELECT VALUE COUNT(1) FROM c WHERE c.isActive = true AND ") {
		t.Errorf("unexpected count query %s", count.Text)
	}

	data := b.Build()
	where := strings.TrimPrefix(count.Text, "SELECT VALUE COUNT(1) FROM c")
	if !strings.HasPrefix(data.Text, "SELECT * FROM c"+where+" ORDER BY") {
		t.Errorf("count and data queries should share the WHERE clause:\n%s\n%s", count.Text, data.Text)
	}
	if !reflect.DeepEqual(count.Parameters, data.Parameters) {
		t.Errorf("parameter mismatch: %+v vs %+v", count.Parameters, data.Parameters)
	}
}

func TestBuilder_UserInputIsNeverInterpolated(t *testing.T) {
	hostile := "x') OR 1=1 --"
	d := NewBuilder().
		WithTextSearch(hostile).
		WithRegion(hostile).
		WithPark(hostile).
		WithDifficulty([]models.Difficulty{models.Difficulty(hostile)}).
		WithFeatures([]string{hostile}).
		WithTrailTypes([]models.TrailType{models.TrailType(hostile)}).
		Build()
	if strings.Contains(d.Text, "1=1") {
		t.Errorf("user input leaked into query text: %s", d.Text)
	}
	if len(d.Parameters) != 6 {
		t.Errorf("expected 6 parameters, got %d", len(d.Parameters))
	}
}

func TestBuilder_Features(t *testing.T) {
	tests := []struct {
		name     string
		features []string
		want     string
		params   int
	}{
		{"single flag", []string{"Scenic Views"}, " AND c.features.scenicViews = true", 0},
		{"duplicates collapse", []string{"scenicviews", "scenic views"}, " AND c.features.scenicViews = true", 0},
		{"flags are or-ed", []string{"water features", "wildlife"},
			" AND (c.features.waterFeatures = true OR ARRAY_LENGTH(c.features.wildlife) > 0)", 0},
		{"unknown falls back to wildlife", []string{"eagles", "waterfeatures"},
			" AND (ARRAY_CONTAINS(c.features.wildlife, @feature0) OR c.features.waterFeatures = true)", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewBuilder().WithFeatures(tt.features).Build()
			if d.Text != baseline+tt.want {
				t.Errorf("got %s, want %s", d.Text, baseline+tt.want)
			}
			if len(d.Parameters) != tt.params {
				t.Errorf("parameters: got %d, want %d", len(d.Parameters), tt.params)
			}
		})
	}
}

func TestBuilder_Amenities(t *testing.T) {
	b := NewBuilder().WithAmenities([]string{"Parking", "drinking water", "helipad"})
	want := baseline + " AND (c.amenities.parking = true OR c.amenities.drinkingWater = true)"
	if got := b.Build().Text; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	if len(b.Issues()) != 1 {
		t.Errorf("expected one issue for the unknown amenity, got %v", b.Issues())
	}
}

func TestBuilder_WithFiltersOrder(t *testing.T) {
	f := &models.FilterSet{
		Difficulty:       []models.Difficulty{models.DifficultyBeginner},
		Distance:         models.NewRange(1, 10),
		Duration:         &models.Range{Max: ptr(4)},
		ElevationGain:    &models.Range{Min: ptr(100)},
		TrailType:        []models.TrailType{models.TrailTypeLoop, models.TrailTypeShuttle},
		Rating:           &models.Range{Min: ptr(3.5)},
		Features:         []string{"wildlife"},
		Amenities:        []string{"camping"},
		Region:           "colorado",
		Park:             "Rocky Mountain",
		SeasonalMonth:    7,
		MaxRiskLevel:     3,
		NoPermitRequired: true,
		Location:         &models.GeoFilter{Radius: 50},
	}
	s := NewBuilder().WithFilters(f).Summary()

	want := []string{
		"c.isActive = true",
		"c.characteristics.difficulty = @difficulty",
		"c.characteristics.distance >= @minDistance",
		"c.characteristics.distance <= @maxDistance",
		"c.characteristics.duration.max <= @maxDuration",
		"c.characteristics.elevationGain >= @minElevation",
		"c.characteristics.trailType IN (@trailTypes)",
		"c.ratings.average >= @minRating",
		"ARRAY_LENGTH(c.features.wildlife) > 0",
		"c.amenities.camping = true",
		"c.location.region = @region",
		"c.location.park = @park",
		"ARRAY_CONTAINS(c.features.seasonality.accessibleMonths, @month)",
		"c.safety.riskLevel <= @maxRiskLevel",
		"c.safety.requiresPermit = false",
	}
	if !reflect.DeepEqual(s.Filters, want) {
		t.Errorf("filters:\n got: %q\nwant: %q", s.Filters, want)
	}
	if s.ParameterCount != 11 {
		t.Errorf("parameter count: got %d, want 11", s.ParameterCount)
	}
}

func TestBuilder_TextSearchLowercases(t *testing.T) {
	d := NewBuilder().WithTextSearch("  ÉCRINS Ridge ").Build()
	if len(d.Parameters) != 1 || d.Parameters[0].Value != "écrins ridge" {
		t.Errorf("unexpected parameters %+v", d.Parameters)
	}
}

func TestFromRequest(t *testing.T) {
	limit := 500
	req := &models.SearchRequest{
		Query:     "lake",
		Filters:   &models.FilterSet{Region: "oregon"},
		SortBy:    models.SortByDistance,
		SortOrder: models.SortAsc,
		Limit:     &limit,
	}
	s := FromRequest(req, 20).Summary()
	if len(s.Filters) != 3 {
		t.Errorf("expected active, text and region predicates, got %q", s.Filters)
	}
	if s.OrderBy != "ORDER BY c.characteristics.distance ASC" {
		t.Errorf("order by: %s", s.OrderBy)
	}
	if s.Pagination != "OFFSET 0 LIMIT 100" {
		t.Errorf("pagination: %s", s.Pagination)
	}

	if got := FromRequest(&models.SearchRequest{}, 15).Summary().Pagination; got != "OFFSET 0 LIMIT 15" {
		t.Errorf("default limit: %s", got)
	}
}
