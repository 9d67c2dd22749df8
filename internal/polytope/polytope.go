// Package polytope maintains Omega, the set of weight vectors consistent with
// every preference stated so far, as a conjunction of linear constraints.
// Snapshots are immutable: every update returns a new Polytope.
package polytope

import (
	"fmt"

	"github.com/MikeSquared-Agency/Elicit/internal/lpsolve"
	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

// Kind tags where a constraint came from.
type Kind int

const (
	KindNormalization Kind = iota
	KindPreference
	KindCustom
)

func (k Kind) String() string {
	switch k {
	case KindNormalization:
		return "normalization"
	case KindPreference:
		return "preference"
	default:
		return "custom"
	}
}

// Polytope is an ordered, append-only list of constraints over weight
// vectors of a fixed dimension. The first constraint is always the simplex
// normalization sum(w) = 1.
type Polytope struct {
	dim         int
	constraints []lpsolve.Constraint
	kinds       []Kind
}

// Initial returns the polytope containing only sum(w_i) = 1.
func Initial(m int) (*Polytope, error) {
	if m < 1 {
		return nil, fmt.Errorf("polytope needs at least one criterion, got %d", m)
	}
	coef := make([]float64, m)
	for i := range coef {
		coef[i] = 1
	}
	return &Polytope{
		dim:         m,
		constraints: []lpsolve.Constraint{{Coefficients: coef, Relation: lpsolve.Equal, RHS: 1}},
		kinds:       []Kind{KindNormalization},
	}, nil
}

// WithPreference returns a new polytope that additionally requires
// dot(w, winner) >= dot(w, loser). Redundant or repeated preferences are
// kept as-is.
func (p *Polytope) WithPreference(winner, loser scoring.Alternative) (*Polytope, error) {
	if err := scoring.CheckDim(p.dim, winner.Dim()); err != nil {
		return nil, fmt.Errorf("winner: %w", err)
	}
	if err := scoring.CheckDim(p.dim, loser.Dim()); err != nil {
		return nil, fmt.Errorf("loser: %w", err)
	}
	coef := make([]float64, p.dim)
	for i := range coef {
		coef[i] = winner[i] - loser[i]
	}
	return p.extend(lpsolve.Constraint{Coefficients: coef, Relation: lpsolve.GreaterEqual, RHS: 0}, KindPreference), nil
}

// With appends an arbitrary linear constraint.
func (p *Polytope) With(c lpsolve.Constraint) (*Polytope, error) {
	if err := scoring.CheckDim(p.dim, len(c.Coefficients)); err != nil {
		return nil, err
	}
	coef := make([]float64, len(c.Coefficients))
	copy(coef, c.Coefficients)
	c.Coefficients = coef
	return p.extend(c, KindCustom), nil
}

// extend never appends into p's backing arrays, so snapshots held by other
// goroutines stay untouched.
func (p *Polytope) extend(c lpsolve.Constraint, k Kind) *Polytope {
	cs := make([]lpsolve.Constraint, len(p.constraints), len(p.constraints)+1)
	copy(cs, p.constraints)
	ks := make([]Kind, len(p.kinds), len(p.kinds)+1)
	copy(ks, p.kinds)
	return &Polytope{
		dim:         p.dim,
		constraints: append(cs, c),
		kinds:       append(ks, k),
	}
}

// Dim returns the weight-vector dimension m.
func (p *Polytope) Dim() int { return p.dim }

// Len returns the number of constraints, normalization included.
func (p *Polytope) Len() int { return len(p.constraints) }

// Preferences counts preference constraints.
func (p *Polytope) Preferences() int {
	n := 0
	for _, k := range p.kinds {
		if k == KindPreference {
			n++
		}
	}
	return n
}

// Kind returns the origin of the i-th constraint.
func (p *Polytope) Kind(i int) Kind { return p.kinds[i] }

// Constraints returns a deep copy of the constraint list.
func (p *Polytope) Constraints() []lpsolve.Constraint {
	out := make([]lpsolve.Constraint, len(p.constraints))
	for i, c := range p.constraints {
		coef := make([]float64, len(c.Coefficients))
		copy(coef, c.Coefficients)
		out[i] = lpsolve.Constraint{Coefficients: coef, Relation: c.Relation, RHS: c.RHS}
	}
	return out
}

// Problem builds the LP maximizing objective over the polytope. The
// constraint rows are shared with p and must be treated as read-only.
func (p *Polytope) Problem(objective []float64) lpsolve.Problem {
	return lpsolve.Problem{
		NumVars:     p.dim,
		Constraints: p.constraints,
		Objective:   objective,
		Sense:       lpsolve.Maximize,
	}
}

// Contains reports whether w is non-negative and satisfies every constraint
// within tol.
func (p *Polytope) Contains(w scoring.WeightVector, tol float64) bool {
	if len(w) != p.dim {
		return false
	}
	for _, v := range w {
		if v < -tol {
			return false
		}
	}
	for _, c := range p.constraints {
		if !c.Satisfied(w, tol) {
			return false
		}
	}
	return true
}
