// Package lpsolve assembles and solves the small linear programs behind
// pairwise regret computation.
package lpsolve

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var (
	ErrInfeasible        = errors.New("lp: problem is infeasible")
	ErrUnbounded         = errors.New("lp: problem is unbounded")
	ErrSolverUnavailable = errors.New("lp: solver unavailable")
	ErrMalformedProblem  = errors.New("lp: malformed problem")
)

// Relation is the comparison operator of a linear constraint.
type Relation int

const (
	GreaterEqual Relation = iota
	LessEqual
	Equal
)

func (r Relation) String() string {
	switch r {
	case GreaterEqual:
		return ">="
	case LessEqual:
		return "<="
	case Equal:
		return "="
	default:
		return fmt.Sprintf("Relation(%d)", int(r))
	}
}

// ParseRelation accepts ">=", "<=", "=" and "==".
func ParseRelation(s string) (Relation, error) {
	switch s {
	case ">=":
		return GreaterEqual, nil
	case "<=":
		return LessEqual, nil
	case "=", "==":
		return Equal, nil
	}
	return 0, fmt.Errorf("unknown relation %q", s)
}

func (r Relation) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Relation) UnmarshalText(b []byte) error {
	v, err := ParseRelation(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// holds reports whether lhs <rel> rhs within tol.
func (r Relation) holds(lhs, rhs, tol float64) bool {
	switch r {
	case GreaterEqual:
		return lhs >= rhs-tol
	case LessEqual:
		return lhs <= rhs+tol
	default:
		return math.Abs(lhs-rhs) <= tol
	}
}

// Constraint is sum_i Coefficients[i]*x_i <Relation> RHS.
type Constraint struct {
	Coefficients []float64 `json:"coefficients"`
	Relation     Relation  `json:"relation"`
	RHS          float64   `json:"rhs"`
}

// Satisfied evaluates the constraint at x.
func (c Constraint) Satisfied(x []float64, tol float64) bool {
	var lhs float64
	for i, a := range c.Coefficients {
		lhs += a * x[i]
	}
	return c.Relation.holds(lhs, c.RHS, tol)
}

type Sense int

const (
	Maximize Sense = iota
	Minimize
)

// Problem is an LP over NumVars non-negative variables.
type Problem struct {
	NumVars     int
	Constraints []Constraint
	Objective   []float64
	Sense       Sense
}

// Validate checks vector lengths and finiteness.
func (p Problem) Validate() error {
	if p.NumVars <= 0 {
		return fmt.Errorf("%w: no variables", ErrMalformedProblem)
	}
	if len(p.Objective) != p.NumVars {
		return fmt.Errorf("%w: objective has %d coefficients, want %d", ErrMalformedProblem, len(p.Objective), p.NumVars)
	}
	if !finite(p.Objective) {
		return fmt.Errorf("%w: non-finite objective", ErrMalformedProblem)
	}
	for i, c := range p.Constraints {
		if len(c.Coefficients) != p.NumVars {
			return fmt.Errorf("%w: constraint %d has %d coefficients, want %d", ErrMalformedProblem, i, len(c.Coefficients), p.NumVars)
		}
		if !finite(c.Coefficients) || math.IsNaN(c.RHS) || math.IsInf(c.RHS, 0) {
			return fmt.Errorf("%w: constraint %d is not finite", ErrMalformedProblem, i)
		}
		if c.Relation < GreaterEqual || c.Relation > Equal {
			return fmt.Errorf("%w: constraint %d has %v", ErrMalformedProblem, i, c.Relation)
		}
	}
	return nil
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

type Status int

const (
	StatusOptimal Status = iota
	StatusInfeasible
	StatusUnbounded
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	default:
		return "error"
	}
}

// Solution is the outcome of a solve. X and Objective are only meaningful
// when Status is StatusOptimal.
type Solution struct {
	Status    Status
	Objective float64
	X         []float64
}

// Solver solves LPs. Implementations must be safe for concurrent use.
type Solver interface {
	Solve(ctx context.Context, p Problem) (Solution, error)
}

// SolverFunc adapts a function to Solver.
type SolverFunc func(ctx context.Context, p Problem) (Solution, error)

func (f SolverFunc) Solve(ctx context.Context, p Problem) (Solution, error) { return f(ctx, p) }
