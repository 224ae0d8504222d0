// Package query builds parameterized trail-search queries for document stores.
//
// A Builder accumulates filter predicates as a small expression tree. Values supplied by
// callers never appear in the tree directly: each one is bound to a uniquely named
// parameter and the tree references it by name. A Plan (predicates, parameters, sort and
// pagination) is then rendered to query text by a Dialect, one per backend.
package query

import "strings"

// Kind is the JSON type of a document field, used by dialects that need explicit casts.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindArray
)

// Field is a dotted path into a trail document. Elem is the element kind of array fields.
type Field struct {
	Path string
	Kind Kind
	Elem Kind
}

// Segments splits the path on dots.
func (f Field) Segments() []string {
	return strings.Split(f.Path, ".")
}

// Trail document fields referenced by the builder.
var (
	FieldIsActive         = Field{Path: "isActive", Kind: KindBool}
	FieldName             = Field{Path: "name", Kind: KindString}
	FieldDescription      = Field{Path: "description", Kind: KindString}
	FieldPark             = Field{Path: "location.park", Kind: KindString}
	FieldRegion           = Field{Path: "location.region", Kind: KindString}
	FieldDifficulty       = Field{Path: "characteristics.difficulty", Kind: KindString}
	FieldDistance         = Field{Path: "characteristics.distance", Kind: KindNumber}
	FieldDurationMin      = Field{Path: "characteristics.duration.min", Kind: KindNumber}
	FieldDurationMax      = Field{Path: "characteristics.duration.max", Kind: KindNumber}
	FieldElevationGain    = Field{Path: "characteristics.elevationGain", Kind: KindNumber}
	FieldTrailType        = Field{Path: "characteristics.trailType", Kind: KindString}
	FieldScenicViews      = Field{Path: "features.scenicViews", Kind: KindBool}
	FieldWaterFeatures    = Field{Path: "features.waterFeatures", Kind: KindBool}
	FieldWildlife         = Field{Path: "features.wildlife", Kind: KindArray, Elem: KindString}
	FieldAccessibleMonths = Field{Path: "features.seasonality.accessibleMonths", Kind: KindArray, Elem: KindNumber}
	FieldRiskLevel        = Field{Path: "safety.riskLevel", Kind: KindNumber}
	FieldRequiresPermit   = Field{Path: "safety.requiresPermit", Kind: KindBool}
	FieldParking          = Field{Path: "amenities.parking", Kind: KindBool}
	FieldRestrooms        = Field{Path: "amenities.restrooms", Kind: KindBool}
	FieldCamping          = Field{Path: "amenities.camping", Kind: KindBool}
	FieldDrinkingWater    = Field{Path: "amenities.drinkingWater", Kind: KindBool}
	FieldRatingAverage    = Field{Path: "ratings.average", Kind: KindNumber}
	FieldRatingCount      = Field{Path: "ratings.count", Kind: KindNumber}
	FieldCreatedAt        = Field{Path: "createdAt", Kind: KindString}
)

// Op is a comparison operator.
type Op string

const (
	OpGte Op = ">="
	OpLte Op = "<="
)

// Expr is a node of the predicate tree. The concrete types below are the only implementations.
type Expr interface {
	isExpr()
}

// Eq matches documents whose field equals the parameter.
type Eq struct {
	Field Field
	Param string
}

// Cmp compares a numeric field against the parameter.
type Cmp struct {
	Field Field
	Op    Op
	Param string
}

// In matches documents whose field is one of the values of an array parameter.
type In struct {
	Field Field
	Param string
}

// Contains is a case-insensitive substring match of the parameter in a string field.
type Contains struct {
	Field Field
	Param string
}

// ArrayContains matches documents whose array field has the parameter as an element.
type ArrayContains struct {
	Field Field
	Param string
}

// ArrayNotEmpty matches documents whose array field has at least one element.
type ArrayNotEmpty struct {
	Field Field
}

// Flag compares a boolean field against a fixed literal. It never carries caller input.
type Flag struct {
	Field Field
	Value bool
}

// Or matches when any child matches.
type Or struct {
	Exprs []Expr
}

// And matches when every child matches.
type And struct {
	Exprs []Expr
}

func (Eq) isExpr()            {}
func (Cmp) isExpr()           {}
func (In) isExpr()            {}
func (Contains) isExpr()      {}
func (ArrayContains) isExpr() {}
func (ArrayNotEmpty) isExpr() {}
func (Flag) isExpr()          {}
func (Or) isExpr()            {}
func (And) isExpr()           {}

// activeOnly is the implicit predicate present in every plan.
var activeOnly Expr = Flag{Field: FieldIsActive, Value: true}
