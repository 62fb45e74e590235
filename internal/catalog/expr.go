package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExprOp discriminates prerequisite expression nodes.
type ExprOp string

const (
	OpCourse ExprOp = "course"
	OpAnd    ExprOp = "and"
	OpOr     ExprOp = "or"
)

// Expr is a boolean prerequisite formula over course ids.
// A nil *Expr means the course has no prerequisite.
type Expr struct {
	Op     ExprOp  `json:"op"`
	Course string  `json:"course,omitempty"` // set when Op == OpCourse
	Args   []*Expr `json:"args,omitempty"`   // set when Op == OpAnd | OpOr
}

// CourseLeaf builds a single-course expression.
func CourseLeaf(id string) *Expr { return &Expr{Op: OpCourse, Course: id} }

// All builds a conjunction over the given expressions.
func All(args ...*Expr) *Expr { return &Expr{Op: OpAnd, Args: args} }

// Any builds a disjunction over the given expressions.
func Any(args ...*Expr) *Expr { return &Expr{Op: OpOr, Args: args} }

// Satisfied evaluates the formula. A leaf holds when the course is in the
// satisfied set; And/Or recurse. A nil expression is vacuously true.
func (e *Expr) Satisfied(have func(courseID string) bool) bool {
	if e == nil {
		return true
	}
	switch e.Op {
	case OpCourse:
		return have(e.Course)
	case OpAnd:
		for _, a := range e.Args {
			if !a.Satisfied(have) {
				return false
			}
		}
		return true
	case OpOr:
		for _, a := range e.Args {
			if a.Satisfied(have) {
				return true
			}
		}
		return len(e.Args) == 0
	}
	return false
}

// Leaves appends every course id referenced by the formula to dst.
func (e *Expr) Leaves(dst []string) []string {
	if e == nil {
		return dst
	}
	if e.Op == OpCourse {
		return append(dst, e.Course)
	}
	for _, a := range e.Args {
		dst = a.Leaves(dst)
	}
	return dst
}

// validate checks structural sanity: leaves carry a course id, branches
// carry children, and no unknown operator appears.
func (e *Expr) validate() error {
	if e == nil {
		return nil
	}
	switch e.Op {
	case OpCourse:
		if e.Course == "" {
			return fmt.Errorf("course leaf with empty id")
		}
		if len(e.Args) != 0 {
			return fmt.Errorf("course leaf %s with children", e.Course)
		}
		return nil
	case OpAnd, OpOr:
		if len(e.Args) == 0 {
			return fmt.Errorf("%s node with no children", e.Op)
		}
		for _, a := range e.Args {
			if err := a.validate(); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown operator %q", e.Op)
	}
}

// String renders the formula in infix form, e.g. "(CS101 AND (MATH20 OR MATH21))".
func (e *Expr) String() string {
	if e == nil {
		return ""
	}
	switch e.Op {
	case OpCourse:
		return e.Course
	case OpAnd, OpOr:
		parts := make([]string, len(e.Args))
		for i, a := range e.Args {
			parts[i] = a.String()
		}
		sep := " AND "
		if e.Op == OpOr {
			sep = " OR "
		}
		return "(" + strings.Join(parts, sep) + ")"
	}
	return "?"
}

// UnmarshalJSON accepts either the canonical object form or a bare string,
// which is shorthand for a single-course leaf.
func (e *Expr) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		e.Op = OpCourse
		e.Course = id
		return nil
	}
	type alias Expr
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*e = Expr(a)
	return nil
}
