// Package plan defines the query plan model: a flat, post-order sequence
// of operators (not a tree) plus a list of result identifiers.
// internal/exec interprets a *Plan with its pull-based executor.
//
// Operators are modeled the same way internal/expr and internal/gvalue
// model their own variants — one struct tagged by an enum, carrying only
// the fields its Tag uses — rather than one Go type per operator, so a
// Plan can be a single flat []Operator slice the executor indexes
// directly by position.
package plan

import (
	"github.com/orneryd/nornicdb-core/internal/expr"
	"github.com/orneryd/nornicdb-core/internal/storage"
)

// Tag identifies an operator kind.
type Tag int

const (
	TagNodeScan Tag = iota
	TagEdgeScan
	TagNodeById
	TagEdgeById
	TagStep
	TagBegin
	TagArgument
	TagJoin
	TagSemiJoin
	TagAnti
	TagUnionAll
	TagProject
	TagFilter
	TagLimit
	TagSkip
	TagEmptyResult
	TagInsertNode
	TagInsertEdge
)

func (t Tag) String() string {
	names := [...]string{
		"NodeScan", "EdgeScan", "NodeById", "EdgeById", "Step", "Begin",
		"Argument", "Join", "SemiJoin", "Anti", "UnionAll", "Project",
		"Filter", "Limit", "Skip", "EmptyResult", "InsertNode", "InsertEdge",
	}
	if int(t) < 0 || int(t) >= len(names) {
		return "Tag(?)"
	}
	return names[t]
}

// IsJoinLike reports whether t consumes a right-hand subquery delimited by
// a Begin marker.
func (t Tag) IsJoinLike() bool {
	return t == TagJoin || t == TagSemiJoin || t == TagUnionAll
}

// Direction selects which of the 7 adjacency scan shapes a Step operator
// uses.
type Direction int

const (
	DirLeft Direction = iota
	DirRight
	DirUndirected
	DirLeftOrUndirected
	DirRightOrUndirected
	DirAny
	DirLeftOrRight
)

// Bounds returns the (min, max) InOut scan bounds for every direction
// except DirLeftOrRight, which instead runs as two non-contiguous scans;
// ok is false for that case and the executor handles it with its own
// two-phase state machine.
func (d Direction) Bounds() (min, max storage.InOut, ok bool) {
	switch d {
	case DirLeft:
		return storage.InOutIn, storage.InOutIn, true
	case DirRight:
		return storage.InOutOut, storage.InOutOut, true
	case DirUndirected:
		return storage.InOutSimple, storage.InOutSimple, true
	case DirLeftOrUndirected:
		return storage.InOutSimple, storage.InOutIn, true
	case DirRightOrUndirected:
		return storage.InOutOut, storage.InOutSimple, true
	case DirAny:
		return storage.InOutOut, storage.InOutIn, true
	default: // DirLeftOrRight
		return 0, 0, false
	}
}

// Expr aliases the shared expression tree so plan construction sites can
// build clauses without importing internal/expr themselves.
type Expr = expr.Expr

// NoIdent marks an optional identifier slot as unused.
const NoIdent = -1

// ProjectClause evaluates Expr and writes its result into assignment slot
// TargetIdent, in clause order.
type ProjectClause struct {
	TargetIdent int
	Expr        *Expr
}

// FilterClause is either a boolean expression or an ident-carries-label
// check. Exactly one of the two shapes is meaningful, selected by
// IsIdentLabel — the same single-struct tagged shape used throughout this
// module for small variant sets.
type FilterClause struct {
	IsIdentLabel bool

	// bool_exp clause
	BoolExpr *Expr

	// ident_label clause
	Ident int
	Label string
}

// PropertyExpr evaluates Expr and assigns its result to property Key when
// materializing an InsertNode/InsertEdge.
type PropertyExpr struct {
	Key  string
	Expr *Expr
}

// Operator is one step of a Plan. Only the fields relevant to Tag are
// meaningful; see the per-field comments below for which Tag(s) use them.
type Operator struct {
	Tag Tag

	// NodeScan / EdgeScan
	OutIdent int
	Label    string // "" means unfiltered

	// NodeById / EdgeById
	RefIdent int
	IDIdent  int

	// Step
	SrcIdent  int
	EdgeIdent int // NoIdent if the edge ref is not requested
	DstIdent  int // NoIdent if the dst ref is not requested
	Direction Direction
	EdgeLabel string // "" means unconstrained

	// Argument
	ArgIdent int

	// Project
	ProjectClauses []ProjectClause

	// Filter
	FilterClauses []FilterClause

	// Limit / Skip
	Count int64

	// InsertNode
	InsertLabels   []string
	InsertProps    []PropertyExpr
	InsertOutIdent int // NoIdent if unused

	// InsertEdge
	InsertSrcIdent     int
	InsertDstIdent     int
	InsertDirected     bool
	InsertEdgeLabels   []string
	InsertEdgeProps    []PropertyExpr
	InsertEdgeOutIdent int // NoIdent if unused
}
