package query

import (
	"github.com/hyperjump/hikeplanner/internal/models"
)

// Param is a named value bound by the builder. Name carries no dialect prefix.
type Param struct {
	Name  string
	Value any
}

// Sort is the resolved ordering of a plan.
type Sort struct {
	Field models.SortField
	Order models.SortOrder
}

// Page is the resolved pagination window of a plan.
type Page struct {
	Offset int
	Limit  int
}

// Plan is a dialect-neutral query: conjunctive predicates, their parameters, optional
// ordering and pagination. Count plans select the number of matches and carry neither.
type Plan struct {
	Where  []Expr
	Params []Param
	Sort   *Sort
	Page   *Page
	Count  bool
}

// Param returns the value bound to name.
func (p Plan) Param(name string) (any, bool) {
	for _, prm := range p.Params {
		if prm.Name == name {
			return prm.Value, true
		}
	}
	return nil, false
}

// sortFields maps each sort field to the document field it orders by.
// Difficulty is absent: it orders by the ordinal rank of the level instead.
var sortFields = map[models.SortField]Field{
	models.SortByRating:     FieldRatingAverage,
	models.SortByDistance:   FieldDistance,
	models.SortByPopularity: FieldRatingCount,
	models.SortByElevation:  FieldElevationGain,
	models.SortByName:       FieldName,
	models.SortByCreated:    FieldCreatedAt,
}

// SortFieldFor returns the document field a sort orders by and false for difficulty.
func SortFieldFor(f models.SortField) (Field, bool) {
	field, ok := sortFields[f]
	return field, ok
}
