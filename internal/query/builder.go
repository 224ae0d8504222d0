package query

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/hyperjump/hikeplanner/internal/models"
)

// featureFlags maps recognized feature tokens to the predicate they stand for.
var featureFlags = map[string]Expr{
	"scenic views":   Flag{Field: FieldScenicViews, Value: true},
	"scenicviews":    Flag{Field: FieldScenicViews, Value: true},
	"water features": Flag{Field: FieldWaterFeatures, Value: true},
	"waterfeatures":  Flag{Field: FieldWaterFeatures, Value: true},
	"wildlife":       ArrayNotEmpty{Field: FieldWildlife},
}

var amenityFlags = map[string]Expr{
	"parking":        Flag{Field: FieldParking, Value: true},
	"restrooms":      Flag{Field: FieldRestrooms, Value: true},
	"camping":        Flag{Field: FieldCamping, Value: true},
	"drinking water": Flag{Field: FieldDrinkingWater, Value: true},
	"drinkingwater":  Flag{Field: FieldDrinkingWater, Value: true},
}

// Builder accumulates search predicates and their parameters.
// A Builder is not safe for concurrent use; create one per request.
type Builder struct {
	where  []Expr
	params []Param
	sort   *Sort
	page   *Page
	issues []error
}

// NewBuilder returns a builder holding only the implicit active-only predicate.
func NewBuilder() *Builder {
	return &Builder{}
}

// FromRequest applies the whole request: text, filters, sort and pagination.
// defaultLimit is used when the request carries no limit.
func FromRequest(req *models.SearchRequest, defaultLimit int) *Builder {
	b := NewBuilder().WithTextSearch(req.Query)
	if req.Filters != nil {
		b.WithFilters(req.Filters)
	}
	return b.
		SortBy(req.SortBy, req.SortOrder).
		WithPagination(req.OffsetOr(0), req.LimitOr(defaultLimit))
}

// bind adds a parameter and returns its final name, suffixed when name is already taken.
func (b *Builder) bind(name string, value any) string {
	final := name
	for n := 1; b.bound(final); n++ {
		final = fmt.Sprintf("%s_%d", name, n)
	}
	b.params = append(b.params, Param{Name: final, Value: value})
	return final
}

func (b *Builder) bound(name string) bool {
	for _, p := range b.params {
		if p.Name == name {
			return true
		}
	}
	return false
}

func (b *Builder) reject(filter string, value any, reason string) {
	b.issues = append(b.issues, &InvalidFilterError{Filter: filter, Value: value, Reason: reason})
}

// group adds exprs as one predicate, or as an OR-group when there are several.
func (b *Builder) group(exprs []Expr) {
	switch len(exprs) {
	case 0:
	case 1:
		b.where = append(b.where, exprs[0])
	default:
		b.where = append(b.where, Or{Exprs: exprs})
	}
}

// Lower folds s for case-insensitive matching. Search terms, the SQLite lowering function and
// the lower-cased index fields all fold through it.
func Lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// WithTextSearch matches term case-insensitively against name, description, park and region.
func (b *Builder) WithTextSearch(term string) *Builder {
	term = strings.TrimSpace(term)
	if term == "" {
		return b
	}
	p := b.bind("searchTerm", Lower(term))
	b.where = append(b.where, Or{Exprs: []Expr{
		Contains{Field: FieldName, Param: p},
		Contains{Field: FieldDescription, Param: p},
		Contains{Field: FieldPark, Param: p},
		Contains{Field: FieldRegion, Param: p},
	}})
	return b
}

// WithDifficulty restricts results to any of the given difficulty levels.
func (b *Builder) WithDifficulty(values []models.Difficulty) *Builder {
	levels := make([]string, 0, len(values))
	for _, v := range values {
		s := strings.TrimSpace(string(v))
		if s == "" {
			b.reject("difficulty", v, "empty value")
			continue
		}
		levels = append(levels, s)
	}
	switch len(levels) {
	case 0:
	case 1:
		b.where = append(b.where, Eq{Field: FieldDifficulty, Param: b.bind("difficulty", levels[0])})
	default:
		exprs := make([]Expr, len(levels))
		for i, l := range levels {
			exprs[i] = Eq{Field: FieldDifficulty, Param: b.bind(fmt.Sprintf("difficulty%d", i), l)}
		}
		b.where = append(b.where, Or{Exprs: exprs})
	}
	return b
}

// boundOn applies an inclusive bound when valid accepts it.
func (b *Builder) boundOn(filter string, field Field, op Op, name string, v *float64, valid func(float64) bool, reason string) {
	if v == nil {
		return
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) || !valid(*v) {
		b.reject(filter, *v, reason)
		return
	}
	b.where = append(b.where, Cmp{Field: field, Op: op, Param: b.bind(name, *v)})
}

func positive(v float64) bool    { return v > 0 }
func nonNegative(v float64) bool { return v >= 0 }

// WithDistanceRange bounds the trail length in km. Bounds must be positive.
func (b *Builder) WithDistanceRange(min, max *float64) *Builder {
	b.boundOn("distance", FieldDistance, OpGte, "minDistance", min, positive, "must be greater than 0")
	b.boundOn("distance", FieldDistance, OpLte, "maxDistance", max, positive, "must be greater than 0")
	return b
}

// WithDurationRange bounds the estimated hiking time in hours. The minimum applies to the
// trail's shortest estimate and the maximum to its longest.
func (b *Builder) WithDurationRange(min, max *float64) *Builder {
	b.boundOn("duration", FieldDurationMin, OpGte, "minDuration", min, nonNegative, "must not be negative")
	b.boundOn("duration", FieldDurationMax, OpLte, "maxDuration", max, nonNegative, "must not be negative")
	return b
}

// WithElevationRange bounds the elevation gain in meters.
func (b *Builder) WithElevationRange(min, max *float64) *Builder {
	b.boundOn("elevation", FieldElevationGain, OpGte, "minElevation", min, nonNegative, "must not be negative")
	b.boundOn("elevation", FieldElevationGain, OpLte, "maxElevation", max, nonNegative, "must not be negative")
	return b
}

// WithMinimumRating requires an average rating of at least min. Zero means no constraint.
func (b *Builder) WithMinimumRating(min float64) *Builder {
	switch {
	case math.IsNaN(min) || min < 0 || min > 5:
		b.reject("rating", min, "must be between 0 and 5")
	case min > 0:
		b.where = append(b.where, Cmp{Field: FieldRatingAverage, Op: OpGte, Param: b.bind("minRating", min)})
	}
	return b
}

// WithMaximumRating requires an average rating of at most max. Zero means no constraint.
func (b *Builder) WithMaximumRating(max float64) *Builder {
	switch {
	case math.IsNaN(max) || max < 0 || max > 5:
		b.reject("rating", max, "must be between 0 and 5")
	case max > 0:
		b.where = append(b.where, Cmp{Field: FieldRatingAverage, Op: OpLte, Param: b.bind("maxRating", max)})
	}
	return b
}

// WithMinimumRatingCount requires at least n ratings.
func (b *Builder) WithMinimumRatingCount(n int) *Builder {
	switch {
	case n < 0:
		b.reject("ratingCount", n, "must not be negative")
	case n > 0:
		b.where = append(b.where, Cmp{Field: FieldRatingCount, Op: OpGte, Param: b.bind("minRatingCount", n)})
	}
	return b
}

// WithTrailTypes restricts results to the given trail types, bound as one array parameter.
func (b *Builder) WithTrailTypes(values []models.TrailType) *Builder {
	types := make([]string, 0, len(values))
	for _, v := range values {
		s := strings.TrimSpace(string(v))
		if s == "" {
			b.reject("trailType", v, "empty value")
			continue
		}
		types = append(types, s)
	}
	if len(types) == 0 {
		return b
	}
	b.where = append(b.where, In{Field: FieldTrailType, Param: b.bind("trailTypes", types)})
	return b
}

// WithFeatures matches trails having any of the requested features. Unrecognized tokens are
// looked up in the trail's wildlife list.
func (b *Builder) WithFeatures(values []string) *Builder {
	var exprs []Expr
	seen := make(map[Expr]bool)
	for i, v := range values {
		token := strings.ToLower(strings.TrimSpace(v))
		if token == "" {
			b.reject("features", v, "empty value")
			continue
		}
		if e, ok := featureFlags[token]; ok {
			if !seen[e] {
				seen[e] = true
				exprs = append(exprs, e)
			}
			continue
		}
		exprs = append(exprs, ArrayContains{Field: FieldWildlife, Param: b.bind(fmt.Sprintf("feature%d", i), strings.TrimSpace(v))})
	}
	b.group(exprs)
	return b
}

// WithAmenities matches trails offering any of the requested amenities.
func (b *Builder) WithAmenities(values []string) *Builder {
	var exprs []Expr
	seen := make(map[Expr]bool)
	for _, v := range values {
		token := strings.ToLower(strings.TrimSpace(v))
		e, ok := amenityFlags[token]
		if !ok {
			b.reject("amenities", v, "unknown amenity")
			continue
		}
		if !seen[e] {
			seen[e] = true
			exprs = append(exprs, e)
		}
	}
	b.group(exprs)
	return b
}

// WithRegion requires an exact region match.
func (b *Builder) WithRegion(region string) *Builder {
	if region = strings.TrimSpace(region); region != "" {
		b.where = append(b.where, Eq{Field: FieldRegion, Param: b.bind("region", region)})
	}
	return b
}

// WithPark requires an exact park match.
func (b *Builder) WithPark(park string) *Builder {
	if park = strings.TrimSpace(park); park != "" {
		b.where = append(b.where, Eq{Field: FieldPark, Param: b.bind("park", park)})
	}
	return b
}

// WithSeasonalAvailability requires the trail to be accessible in month (1-12).
func (b *Builder) WithSeasonalAvailability(month int) *Builder {
	switch {
	case month == 0:
	case month < 1 || month > 12:
		b.reject("seasonalMonth", month, "must be between 1 and 12")
	default:
		b.where = append(b.where, ArrayContains{Field: FieldAccessibleMonths, Param: b.bind("month", month)})
	}
	return b
}

// WithMaxRiskLevel caps the trail risk level (1-5).
func (b *Builder) WithMaxRiskLevel(level int) *Builder {
	switch {
	case level == 0:
	case level < 1 || level > 5:
		b.reject("maxRiskLevel", level, "must be between 1 and 5")
	default:
		b.where = append(b.where, Cmp{Field: FieldRiskLevel, Op: OpLte, Param: b.bind("maxRiskLevel", level)})
	}
	return b
}

// WithoutPermitRequired excludes trails that need a permit.
func (b *Builder) WithoutPermitRequired() *Builder {
	b.where = append(b.where, Flag{Field: FieldRequiresPermit, Value: false})
	return b
}

// SortBy sets the result order. Unknown fields sort by rating and unknown orders descend.
func (b *Builder) SortBy(field models.SortField, order models.SortOrder) *Builder {
	if !field.Valid() {
		if field != "" {
			b.reject("sortBy", field, "unknown sort field")
		}
		field = models.SortByRating
	}
	order = models.SortOrder(strings.ToLower(string(order)))
	if !order.Valid() {
		if order != "" {
			b.reject("sortOrder", order, "unknown sort order")
		}
		order = models.SortDesc
	}
	b.sort = &Sort{Field: field, Order: order}
	return b
}

// WithPagination sets the result window, clamping offset to >= 0 and limit to [1, 100].
func (b *Builder) WithPagination(offset, limit int) *Builder {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 1
	}
	if limit > models.MaxSearchLimit {
		limit = models.MaxSearchLimit
	}
	b.page = &Page{Offset: offset, Limit: limit}
	return b
}

// WithFilters applies every populated field of f. Location filters are not supported and
// are ignored.
func (b *Builder) WithFilters(f *models.FilterSet) *Builder {
	if f == nil {
		return b
	}
	b.WithDifficulty(f.Difficulty)
	if f.Distance != nil {
		b.WithDistanceRange(f.Distance.Min, f.Distance.Max)
	}
	if f.Duration != nil {
		b.WithDurationRange(f.Duration.Min, f.Duration.Max)
	}
	if f.ElevationGain != nil {
		b.WithElevationRange(f.ElevationGain.Min, f.ElevationGain.Max)
	}
	b.WithTrailTypes(f.TrailType)
	if f.Rating != nil {
		if f.Rating.Min != nil {
			b.WithMinimumRating(*f.Rating.Min)
		}
		if f.Rating.Max != nil {
			b.WithMaximumRating(*f.Rating.Max)
		}
	}
	b.WithFeatures(f.Features)
	b.WithAmenities(f.Amenities)
	b.WithRegion(f.Region)
	b.WithPark(f.Park)
	b.WithSeasonalAvailability(f.SeasonalMonth)
	b.WithMaxRiskLevel(f.MaxRiskLevel)
	if f.NoPermitRequired {
		b.WithoutPermitRequired()
	}
	return b
}

// Plan returns the data query: every predicate, sort and pagination.
func (b *Builder) Plan() Plan {
	p := Plan{
		Where:  append([]Expr{activeOnly}, b.where...),
		Params: append([]Param(nil), b.params...),
	}
	if b.sort != nil {
		s := *b.sort
		p.Sort = &s
	}
	if b.page != nil {
		pg := *b.page
		p.Page = &pg
	}
	return p
}

// CountPlan returns the count query over the same predicates, without sort or pagination.
func (b *Builder) CountPlan() Plan {
	return Plan{
		Where:  append([]Expr{activeOnly}, b.where...),
		Params: append([]Param(nil), b.params...),
		Count:  true,
	}
}

// Build renders the data query in the document-store dialect.
func (b *Builder) Build() Descriptor {
	return Render(b.Plan(), Cosmos)
}

// BuildCountQuery renders the count query in the document-store dialect.
func (b *Builder) BuildCountQuery() Descriptor {
	return Render(b.CountPlan(), Cosmos)
}

// Reset returns b to its initial state.
func (b *Builder) Reset() *Builder {
	*b = Builder{}
	return b
}

// Issues returns the invalid filter values ignored so far.
func (b *Builder) Issues() []error {
	return append([]error(nil), b.issues...)
}

// Err joins all issues, or returns nil when there are none.
func (b *Builder) Err() error {
	return errors.Join(b.issues...)
}

// Summary describes the accumulated query state.
type Summary struct {
	Filters        []string `json:"filters"`
	ParameterCount int      `json:"parameterCount"`
	OrderBy        string   `json:"orderBy,omitempty"`
	Pagination     string   `json:"pagination,omitempty"`
}

// Summary renders each predicate separately, for logging and debugging.
func (b *Builder) Summary() Summary {
	plan := b.Plan()
	s := Summary{ParameterCount: len(plan.Params)}
	for _, e := range plan.Where {
		s.Filters = append(s.Filters, RenderExpr(e, plan, Cosmos))
	}
	if plan.Sort != nil {
		s.OrderBy = renderer{dialect: Cosmos}.orderBy(*plan.Sort)
	}
	if plan.Page != nil {
		s.Pagination = Cosmos.Page(*plan.Page)
	}
	return s
}
