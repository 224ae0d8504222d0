package keyword

import (
	"fmt"
	"regexp"

	"github.com/blevesearch/bleve/v2"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/hikeplanner/internal/models"
	"github.com/hyperjump/hikeplanner/internal/query"
)

// fieldNames maps document paths to indexed field names.
var fieldNames = map[string]string{
	query.FieldIsActive.Path:         "is_active",
	query.FieldName.Path:             "name",
	query.FieldPark.Path:             "park",
	query.FieldRegion.Path:           "region",
	query.FieldDifficulty.Path:       "difficulty",
	query.FieldDistance.Path:         "distance",
	query.FieldDurationMin.Path:      "duration_min",
	query.FieldDurationMax.Path:      "duration_max",
	query.FieldElevationGain.Path:    "elevation_gain",
	query.FieldTrailType.Path:        "trail_type",
	query.FieldScenicViews.Path:      "scenic_views",
	query.FieldWaterFeatures.Path:    "water_features",
	query.FieldWildlife.Path:         "wildlife",
	query.FieldAccessibleMonths.Path: "accessible_months",
	query.FieldRiskLevel.Path:        "risk_level",
	query.FieldRequiresPermit.Path:   "requires_permit",
	query.FieldParking.Path:          "parking",
	query.FieldRestrooms.Path:        "restrooms",
	query.FieldCamping.Path:          "camping",
	query.FieldDrinkingWater.Path:    "drinking_water",
	query.FieldRatingAverage.Path:    "rating_average",
	query.FieldRatingCount.Path:      "rating_count",
	query.FieldCreatedAt.Path:        "created_at",
}

// lowerFieldNames are the lower-cased copies used for substring matching.
var lowerFieldNames = map[string]string{
	query.FieldName.Path:        "name_lc",
	query.FieldDescription.Path: "description_lc",
	query.FieldPark.Path:        "park_lc",
	query.FieldRegion.Path:      "region_lc",
}

func indexField(f query.Field) (string, error) {
	name, ok := fieldNames[f.Path]
	if !ok {
		return "", fmt.Errorf("field %s is not indexed", f.Path)
	}
	return name, nil
}

// compileWhere turns the conjunctive predicates of plan into one Bleve query.
func compileWhere(plan query.Plan) (blevequery.Query, error) {
	if len(plan.Where) == 0 {
		return bleve.NewMatchAllQuery(), nil
	}
	return compile(query.And{Exprs: plan.Where}, plan)
}

func compile(e query.Expr, plan query.Plan) (blevequery.Query, error) {
	param := func(name string) (any, error) {
		v, ok := plan.Param(name)
		if !ok {
			return nil, fmt.Errorf("unbound parameter %s", name)
		}
		return v, nil
	}

	switch e := e.(type) {
	case query.Eq:
		field, err := indexField(e.Field)
		if err != nil {
			return nil, err
		}
		v, err := param(e.Param)
		if err != nil {
			return nil, err
		}
		q := bleve.NewTermQuery(fmt.Sprint(v))
		q.SetField(field)
		return q, nil

	case query.Cmp:
		field, err := indexField(e.Field)
		if err != nil {
			return nil, err
		}
		v, err := param(e.Param)
		if err != nil {
			return nil, err
		}
		n, err := toFloat(v)
		if err != nil {
			return nil, err
		}
		inclusive := true
		var q *blevequery.NumericRangeQuery
		if e.Op == query.OpGte {
			q = bleve.NewNumericRangeInclusiveQuery(&n, nil, &inclusive, nil)
		} else {
			q = bleve.NewNumericRangeInclusiveQuery(nil, &n, nil, &inclusive)
		}
		q.SetField(field)
		return q, nil

	case query.In:
		field, err := indexField(e.Field)
		if err != nil {
			return nil, err
		}
		v, err := param(e.Param)
		if err != nil {
			return nil, err
		}
		values, ok := v.([]string)
		if !ok {
			return nil, fmt.Errorf("parameter %s: expected []string, got %T", e.Param, v)
		}
		terms := make([]blevequery.Query, len(values))
		for i, s := range values {
			tq := bleve.NewTermQuery(s)
			tq.SetField(field)
			terms[i] = tq
		}
		return bleve.NewDisjunctionQuery(terms...), nil

	case query.Contains:
		field, ok := lowerFieldNames[e.Field.Path]
		if !ok {
			return nil, fmt.Errorf("field %s does not support substring matching", e.Field.Path)
		}
		v, err := param(e.Param)
		if err != nil {
			return nil, err
		}
		// (?s) lets the match span line breaks in multi-line descriptions.
		q := bleve.NewRegexpQuery("(?s).*" + regexp.QuoteMeta(query.Lower(fmt.Sprint(v))) + ".*")
		q.SetField(field)
		return q, nil

	case query.ArrayContains:
		field, err := indexField(e.Field)
		if err != nil {
			return nil, err
		}
		v, err := param(e.Param)
		if err != nil {
			return nil, err
		}
		if e.Field.Elem == query.KindNumber {
			n, err := toFloat(v)
			if err != nil {
				return nil, err
			}
			inclusive := true
			q := bleve.NewNumericRangeInclusiveQuery(&n, &n, &inclusive, &inclusive)
			q.SetField(field)
			return q, nil
		}
		q := bleve.NewTermQuery(fmt.Sprint(v))
		q.SetField(field)
		return q, nil

	case query.ArrayNotEmpty:
		if e.Field.Path != query.FieldWildlife.Path {
			return nil, fmt.Errorf("field %s has no indexed length", e.Field.Path)
		}
		one, inclusive := 1.0, true
		q := bleve.NewNumericRangeInclusiveQuery(&one, nil, &inclusive, nil)
		q.SetField("wildlife_count")
		return q, nil

	case query.Flag:
		field, err := indexField(e.Field)
		if err != nil {
			return nil, err
		}
		q := bleve.NewBoolFieldQuery(e.Value)
		q.SetField(field)
		return q, nil

	case query.Or:
		children, err := compileAll(e.Exprs, plan)
		if err != nil {
			return nil, err
		}
		return bleve.NewDisjunctionQuery(children...), nil

	case query.And:
		children, err := compileAll(e.Exprs, plan)
		if err != nil {
			return nil, err
		}
		return bleve.NewConjunctionQuery(children...), nil
	}
	return nil, fmt.Errorf("unsupported expression %T", e)
}

func compileAll(exprs []query.Expr, plan query.Plan) ([]blevequery.Query, error) {
	out := make([]blevequery.Query, 0, len(exprs))
	for _, e := range exprs {
		q, err := compile(e, plan)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("expected a number, got %T", v)
}

// sortFieldNames are the indexed fields each sort orders by.
var sortFieldNames = map[models.SortField]string{
	models.SortByRating:     "rating_average",
	models.SortByDistance:   "distance",
	models.SortByDifficulty: "difficulty_rank",
	models.SortByPopularity: "rating_count",
	models.SortByElevation:  "elevation_gain",
	models.SortByName:       "name",
	models.SortByCreated:    "created_at",
}

func sortOrder(s query.Sort) []string {
	field, ok := sortFieldNames[s.Field]
	if !ok {
		field = sortFieldNames[models.SortByRating]
	}
	if s.Order == models.SortDesc {
		field = "-" + field
	}
	return []string{field, "_id"}
}
