// Package planfile loads a plan.Plan from a YAML description, for the
// demonstration CLI. The real query planner is an external collaborator
// that constructs plans in memory; this package exists so a plan can be
// authored by hand and fed to the executor without one.
//
// Example file:
//
//	results: [0, 1, 2]
//	operators:
//	  - op: node_scan
//	    out: 0
//	    label: Person
//	  - op: step
//	    src: 0
//	    edge: 1
//	    dst: 2
//	    direction: right
package planfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/orneryd/nornicdb-core/internal/dberr"
	"github.com/orneryd/nornicdb-core/internal/expr"
	"github.com/orneryd/nornicdb-core/internal/gvalue"
	"github.com/orneryd/nornicdb-core/internal/plan"
)

// File is the YAML document shape.
type File struct {
	Results   []int          `yaml:"results"`
	Operators []OperatorSpec `yaml:"operators"`
}

// OperatorSpec is one operator entry. Optional identifier fields use
// pointers so that absence maps to plan.NoIdent rather than slot 0.
type OperatorSpec struct {
	Op string `yaml:"op"`

	Out       *int   `yaml:"out"`
	Label     string `yaml:"label"`
	Ref       *int   `yaml:"ref"`
	ID        *int   `yaml:"id"`
	Src       *int   `yaml:"src"`
	Edge      *int   `yaml:"edge"`
	Dst       *int   `yaml:"dst"`
	Direction string `yaml:"direction"`
	EdgeLabel string `yaml:"edge_label"`
	Arg       *int   `yaml:"arg"`
	Count     int64  `yaml:"count"`
	Directed  bool   `yaml:"directed"`

	Project []ProjectSpec `yaml:"project"`
	Filter  []FilterSpec  `yaml:"filter"`
	Labels  []string      `yaml:"labels"`
	Props   []PropSpec    `yaml:"props"`
}

// ProjectSpec is one Project clause.
type ProjectSpec struct {
	Target int       `yaml:"target"`
	Expr   *ExprSpec `yaml:"expr"`
}

// FilterSpec is one Filter clause: either an expression or an ident/label
// pair.
type FilterSpec struct {
	Expr  *ExprSpec `yaml:"expr"`
	Ident *int      `yaml:"ident"`
	Label string    `yaml:"label"`
}

// PropSpec is one property assignment for an insert operator.
type PropSpec struct {
	Key  string    `yaml:"key"`
	Expr *ExprSpec `yaml:"expr"`
}

// ExprSpec is a YAML expression tree. Exactly one of the literal fields,
// Var, Param, or Op should be set.
type ExprSpec struct {
	Int    *int64   `yaml:"int"`
	Float  *float64 `yaml:"float"`
	String *string  `yaml:"string"`
	Bool   *bool    `yaml:"bool"`
	Null   bool     `yaml:"null"`

	Var   *int    `yaml:"var"`
	Param *string `yaml:"param"`

	Op    string    `yaml:"op"`
	Left  *ExprSpec `yaml:"left"`
	Right *ExprSpec `yaml:"right"`
}

// Load reads and builds a plan from the YAML file at path.
func Load(path string) (*plan.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("planfile: reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a plan from YAML bytes.
func Parse(data []byte) (*plan.Plan, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("planfile: %w: %v", dberr.ErrMalformedPlan, err)
	}
	return f.Build()
}

// Build translates the file into a validated plan.Plan.
func (f *File) Build() (*plan.Plan, error) {
	ops := make([]plan.Operator, 0, len(f.Operators))
	for i, spec := range f.Operators {
		op, err := spec.build()
		if err != nil {
			return nil, fmt.Errorf("planfile: operator %d: %w", i, err)
		}
		ops = append(ops, op)
	}
	return plan.New(ops, f.Results)
}

func (s *OperatorSpec) build() (plan.Operator, error) {
	var op plan.Operator
	switch s.Op {
	case "node_scan":
		op.Tag = plan.TagNodeScan
		op.OutIdent = identOf(s.Out)
		op.Label = s.Label
	case "edge_scan":
		op.Tag = plan.TagEdgeScan
		op.OutIdent = identOf(s.Out)
		op.Label = s.Label
	case "node_by_id":
		op.Tag = plan.TagNodeById
		op.RefIdent = identOf(s.Ref)
		op.IDIdent = identOf(s.ID)
	case "edge_by_id":
		op.Tag = plan.TagEdgeById
		op.RefIdent = identOf(s.Ref)
		op.IDIdent = identOf(s.ID)
	case "step":
		op.Tag = plan.TagStep
		op.SrcIdent = identOf(s.Src)
		op.EdgeIdent = identOf(s.Edge)
		op.DstIdent = identOf(s.Dst)
		op.EdgeLabel = s.EdgeLabel
		dir, err := directionOf(s.Direction)
		if err != nil {
			return op, err
		}
		op.Direction = dir
	case "begin":
		op.Tag = plan.TagBegin
	case "argument":
		op.Tag = plan.TagArgument
		op.ArgIdent = identOf(s.Arg)
	case "join":
		op.Tag = plan.TagJoin
	case "semi_join":
		op.Tag = plan.TagSemiJoin
	case "anti":
		op.Tag = plan.TagAnti
	case "union_all":
		op.Tag = plan.TagUnionAll
	case "project":
		op.Tag = plan.TagProject
		for _, c := range s.Project {
			e, err := buildExpr(c.Expr)
			if err != nil {
				return op, err
			}
			op.ProjectClauses = append(op.ProjectClauses, plan.ProjectClause{TargetIdent: c.Target, Expr: e})
		}
	case "filter":
		op.Tag = plan.TagFilter
		for _, c := range s.Filter {
			if c.Ident != nil {
				op.FilterClauses = append(op.FilterClauses, plan.FilterClause{
					IsIdentLabel: true, Ident: *c.Ident, Label: c.Label,
				})
				continue
			}
			e, err := buildExpr(c.Expr)
			if err != nil {
				return op, err
			}
			op.FilterClauses = append(op.FilterClauses, plan.FilterClause{BoolExpr: e})
		}
	case "limit":
		op.Tag = plan.TagLimit
		op.Count = s.Count
	case "skip":
		op.Tag = plan.TagSkip
		op.Count = s.Count
	case "empty_result":
		op.Tag = plan.TagEmptyResult
	case "insert_node":
		op.Tag = plan.TagInsertNode
		op.InsertLabels = s.Labels
		op.InsertOutIdent = identOf(s.Out)
		for _, p := range s.Props {
			e, err := buildExpr(p.Expr)
			if err != nil {
				return op, err
			}
			op.InsertProps = append(op.InsertProps, plan.PropertyExpr{Key: p.Key, Expr: e})
		}
	case "insert_edge":
		op.Tag = plan.TagInsertEdge
		op.InsertSrcIdent = identOf(s.Src)
		op.InsertDstIdent = identOf(s.Dst)
		op.InsertDirected = s.Directed
		op.InsertEdgeLabels = s.Labels
		op.InsertEdgeOutIdent = identOf(s.Out)
		for _, p := range s.Props {
			e, err := buildExpr(p.Expr)
			if err != nil {
				return op, err
			}
			op.InsertEdgeProps = append(op.InsertEdgeProps, plan.PropertyExpr{Key: p.Key, Expr: e})
		}
	default:
		return op, fmt.Errorf("unknown op %q: %w", s.Op, dberr.ErrMalformedPlan)
	}
	return op, nil
}

func identOf(p *int) int {
	if p == nil {
		return plan.NoIdent
	}
	return *p
}

func directionOf(s string) (plan.Direction, error) {
	switch s {
	case "left":
		return plan.DirLeft, nil
	case "right":
		return plan.DirRight, nil
	case "undirected":
		return plan.DirUndirected, nil
	case "left_or_undirected":
		return plan.DirLeftOrUndirected, nil
	case "right_or_undirected":
		return plan.DirRightOrUndirected, nil
	case "any":
		return plan.DirAny, nil
	case "left_or_right":
		return plan.DirLeftOrRight, nil
	default:
		return 0, fmt.Errorf("unknown direction %q: %w", s, dberr.ErrMalformedPlan)
	}
}

func buildExpr(s *ExprSpec) (*expr.Expr, error) {
	if s == nil {
		return nil, fmt.Errorf("missing expression: %w", dberr.ErrMalformedPlan)
	}
	switch {
	case s.Int != nil:
		return expr.Literal(gvalue.Int(*s.Int)), nil
	case s.Float != nil:
		return expr.Literal(gvalue.Float(*s.Float)), nil
	case s.String != nil:
		return expr.Literal(gvalue.StringOf(*s.String)), nil
	case s.Bool != nil:
		return expr.Literal(gvalue.Bool(*s.Bool)), nil
	case s.Null:
		return expr.Literal(gvalue.Null), nil
	case s.Var != nil:
		return expr.Variable(*s.Var), nil
	case s.Param != nil:
		return expr.Parameter(*s.Param), nil
	case s.Op != "":
		op, err := opOf(s.Op)
		if err != nil {
			return nil, err
		}
		left, err := buildExpr(s.Left)
		if err != nil {
			return nil, err
		}
		right, err := buildExpr(s.Right)
		if err != nil {
			return nil, err
		}
		return expr.Binary(op, left, right), nil
	default:
		return nil, fmt.Errorf("empty expression: %w", dberr.ErrMalformedPlan)
	}
}

func opOf(s string) (expr.Op, error) {
	switch s {
	case "add":
		return expr.OpAdd, nil
	case "sub":
		return expr.OpSub, nil
	case "eql":
		return expr.OpEql, nil
	case "neq":
		return expr.OpNeq, nil
	case "and":
		return expr.OpAnd, nil
	case "or":
		return expr.OpOr, nil
	default:
		return 0, fmt.Errorf("unknown operator %q: %w", s, dberr.ErrMalformedPlan)
	}
}
