package lpsolve

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

const (
	DefaultTolerance = 1e-10
	// DefaultMaxConcurrent caps in-flight solves when MaxConcurrent is zero.
	DefaultMaxConcurrent = 64
)

// Simplex solves problems with gonum's simplex implementation. The zero
// value is usable.
type Simplex struct {
	// Tolerance passed to lp.Simplex; DefaultTolerance when zero.
	Tolerance float64
	// Timeout bounds how long Solve waits when positive. lp.Simplex cannot
	// be interrupted, so a timed-out solve keeps running in the background
	// and holds its slot until it finishes.
	Timeout time.Duration
	// MaxConcurrent caps solves running at once, abandoned ones included.
	// DefaultMaxConcurrent when zero.
	MaxConcurrent int

	once  sync.Once
	slots chan struct{}
}

func NewSimplex(tol float64, timeout time.Duration) *Simplex {
	return &Simplex{Tolerance: tol, Timeout: timeout}
}

func (s *Simplex) sem() chan struct{} {
	s.once.Do(func() {
		n := s.MaxConcurrent
		if n <= 0 {
			n = DefaultMaxConcurrent
		}
		s.slots = make(chan struct{}, n)
	})
	return s.slots
}

func (s *Simplex) Solve(ctx context.Context, p Problem) (Solution, error) {
	if err := p.Validate(); err != nil {
		return Solution{Status: StatusError}, err
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return Solution{Status: StatusError}, fmt.Errorf("%w: %w", ErrSolverUnavailable, err)
	}

	slots := s.sem()
	select {
	case slots <- struct{}{}:
	case <-ctx.Done():
		return Solution{Status: StatusError}, fmt.Errorf("%w: %w", ErrSolverUnavailable, ctx.Err())
	}

	type result struct {
		sol Solution
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() { <-slots }()
		defer func() {
			if r := recover(); r != nil {
				ch <- result{Solution{Status: StatusError}, fmt.Errorf("simplex panic: %v", r)}
			}
		}()
		sol, err := s.solve(p)
		ch <- result{sol, err}
	}()

	select {
	case <-ctx.Done():
		return Solution{Status: StatusError}, fmt.Errorf("%w: %w", ErrSolverUnavailable, ctx.Err())
	case r := <-ch:
		return r.sol, r.err
	}
}

func (s *Simplex) tol() float64 {
	if s.Tolerance > 0 {
		return s.Tolerance
	}
	return DefaultTolerance
}

// solve converts p to the standard form lp.Simplex expects,
//
//	minimize cᵀz  s.t.  A z = b, z >= 0
//
// with one slack column per inequality row. Only the first equality row is
// kept as is; later ones become a >= and <= pair, each with its own slack,
// so a repeated or scaled equality cannot leave A rank deficient. Variables that appear in no
// constraint are fixed at zero, or make the problem unbounded if raising
// them improves the objective.
func (s *Simplex) solve(p Problem) (Solution, error) {
	tol := s.tol()
	n := p.NumVars
	sign := 1.0
	if p.Sense == Maximize {
		sign = -1
	}

	active := make([]bool, n)
	var rows []Constraint
	slackCount := 0
	equality := false
	for _, con := range p.Constraints {
		zero := true
		for j, a := range con.Coefficients {
			if a != 0 {
				active[j] = true
				zero = false
			}
		}
		if zero {
			if !con.Relation.holds(0, con.RHS, tol) {
				return Solution{Status: StatusInfeasible}, ErrInfeasible
			}
			continue
		}
		switch {
		case con.Relation != Equal:
			rows = append(rows, con)
			slackCount++
		case !equality:
			rows = append(rows, con)
			equality = true
		default:
			ge, le := con, con
			ge.Relation, le.Relation = GreaterEqual, LessEqual
			rows = append(rows, ge, le)
			slackCount += 2
		}
	}

	var cols []int
	for j := 0; j < n; j++ {
		if active[j] {
			cols = append(cols, j)
			continue
		}
		if sign*p.Objective[j] < 0 {
			return Solution{Status: StatusUnbounded}, ErrUnbounded
		}
	}

	x := make([]float64, n)
	if len(cols) == 0 {
		return Solution{Status: StatusOptimal, Objective: 0, X: x}, nil
	}

	nc := len(cols) + slackCount
	if len(rows) > nc {
		return Solution{Status: StatusError}, fmt.Errorf("%w: %d rows exceed %d columns", ErrMalformedProblem, len(rows), nc)
	}

	A := mat.NewDense(len(rows), nc, nil)
	b := make([]float64, len(rows))
	c := make([]float64, nc)
	for k, j := range cols {
		c[k] = sign * p.Objective[j]
	}
	slack := len(cols)
	for i, con := range rows {
		rowSign := 1.0
		if con.RHS < 0 {
			rowSign = -1
		}
		for k, j := range cols {
			A.Set(i, k, rowSign*con.Coefficients[j])
		}
		switch con.Relation {
		case GreaterEqual:
			A.Set(i, slack, -rowSign)
			slack++
		case LessEqual:
			A.Set(i, slack, rowSign)
			slack++
		}
		b[i] = rowSign * con.RHS
	}

	optF, optZ, err := lp.Simplex(c, A, b, tol, nil)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return Solution{Status: StatusInfeasible}, ErrInfeasible
	case errors.Is(err, lp.ErrUnbounded):
		return Solution{Status: StatusUnbounded}, ErrUnbounded
	case err != nil:
		return Solution{Status: StatusError}, fmt.Errorf("simplex: %w", err)
	}

	for k, j := range cols {
		x[j] = optZ[k]
	}
	return Solution{Status: StatusOptimal, Objective: sign * optF, X: x}, nil
}
