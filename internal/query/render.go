package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hyperjump/hikeplanner/internal/models"
)

// Parameter is a rendered parameter as it appears in query text.
type Parameter struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Descriptor is rendered query text plus its ordered parameters.
type Descriptor struct {
	Text       string      `json:"query"`
	Parameters []Parameter `json:"parameters"`
}

// Dialect renders predicate primitives for one query language.
type Dialect interface {
	Name() string
	// Select returns the projection and source, e.g. "SELECT * FROM c".
	Select(count bool) string
	// Field returns the expression reading f from the current document.
	Field(f Field) string
	// Placeholder returns how the parameter at 1-based position pos is referenced in text.
	Placeholder(name string, pos int) string
	Contains(field, param string) string
	In(field, param string) string
	ArrayContains(f Field, param string) string
	ArrayNotEmpty(f Field) string
	// TieBreak returns a secondary ORDER BY key that keeps page boundaries stable among equal
	// sort values, or "" for none.
	TieBreak() string
	Page(p Page) string
	// Args converts rendered parameters into driver arguments.
	Args(params []Parameter) []any
}

// Render renders plan for dialect d.
func Render(plan Plan, d Dialect) Descriptor {
	r := renderer{dialect: d, positions: make(map[string]int, len(plan.Params))}
	for i, p := range plan.Params {
		r.positions[p.Name] = i + 1
	}

	var sb strings.Builder
	sb.WriteString(d.Select(plan.Count))
	if where := r.conjunction(plan.Where); where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	if !plan.Count {
		if plan.Sort != nil {
			sb.WriteString(" ")
			sb.WriteString(r.orderBy(*plan.Sort))
		}
		if plan.Page != nil {
			sb.WriteString(" ")
			sb.WriteString(d.Page(*plan.Page))
		}
	}

	params := make([]Parameter, len(plan.Params))
	for i, p := range plan.Params {
		params[i] = Parameter{Name: "@" + p.Name, Value: p.Value}
	}
	return Descriptor{Text: sb.String(), Parameters: params}
}

// RenderExpr renders a single predicate, as used in filter summaries.
func RenderExpr(e Expr, plan Plan, d Dialect) string {
	r := renderer{dialect: d, positions: make(map[string]int, len(plan.Params))}
	for i, p := range plan.Params {
		r.positions[p.Name] = i + 1
	}
	return r.expr(e, false)
}

type renderer struct {
	dialect   Dialect
	positions map[string]int
}

func (r renderer) param(name string) string {
	return r.dialect.Placeholder(name, r.positions[name])
}

func (r renderer) conjunction(exprs []Expr) string {
	parts := make([]string, 0, len(exprs))
	for _, e := range exprs {
		parts = append(parts, r.expr(e, false))
	}
	return strings.Join(parts, " AND ")
}

// expr renders e; nested marks an And that must be parenthesized inside an Or.
func (r renderer) expr(e Expr, nested bool) string {
	d := r.dialect
	switch e := e.(type) {
	case Eq:
		return d.Field(e.Field) + " = " + r.param(e.Param)
	case Cmp:
		return d.Field(e.Field) + " " + string(e.Op) + " " + r.param(e.Param)
	case In:
		return d.In(d.Field(e.Field), r.param(e.Param))
	case Contains:
		return d.Contains(d.Field(e.Field), r.param(e.Param))
	case ArrayContains:
		return d.ArrayContains(e.Field, r.param(e.Param))
	case ArrayNotEmpty:
		return d.ArrayNotEmpty(e.Field)
	case Flag:
		return d.Field(e.Field) + " = " + strconv.FormatBool(e.Value)
	case Or:
		parts := make([]string, 0, len(e.Exprs))
		for _, child := range e.Exprs {
			parts = append(parts, r.expr(child, true))
		}
		return "(" + strings.Join(parts, " OR ") + ")"
	case And:
		s := r.conjunction(e.Exprs)
		if nested {
			return "(" + s + ")"
		}
		return s
	default:
		panic(fmt.Sprintf("query: unknown expression %T", e))
	}
}

func (r renderer) orderBy(s Sort) string {
	dir := strings.ToUpper(string(s.Order))
	key := "(" + r.difficultyRank() + ")"
	if field, ok := SortFieldFor(s.Field); ok {
		key = r.dialect.Field(field)
	}
	out := "ORDER BY " + key + " " + dir
	if tb := r.dialect.TieBreak(); tb != "" {
		out += ", " + tb
	}
	return out
}

// difficultyRank orders levels by ordinal rather than alphabetically.
func (r renderer) difficultyRank() string {
	var sb strings.Builder
	sb.WriteString("CASE ")
	sb.WriteString(r.dialect.Field(FieldDifficulty))
	for _, d := range models.Difficulties {
		fmt.Fprintf(&sb, " WHEN '%s' THEN %d", d, d.Rank())
	}
	fmt.Fprintf(&sb, " ELSE %d END", len(models.Difficulties)+1)
	return sb.String()
}
