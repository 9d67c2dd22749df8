package lpsolve

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simplexRow(m int) Constraint {
	coef := make([]float64, m)
	for i := range coef {
		coef[i] = 1
	}
	return Constraint{Coefficients: coef, Relation: Equal, RHS: 1}
}

func TestSimplexMaximizeOnSimplex(t *testing.T) {
	s := NewSimplex(0, 0)
	sol, err := s.Solve(context.Background(), Problem{
		NumVars:     2,
		Constraints: []Constraint{simplexRow(2)},
		Objective:   []float64{0.2, -0.1},
		Sense:       Maximize,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 0.2, sol.Objective, 1e-9)
	assert.InDelta(t, 1.0, sol.X[0], 1e-9)
	assert.InDelta(t, 0.0, sol.X[1], 1e-9)
}

func TestSimplexWithPreferenceRow(t *testing.T) {
	// w1 >= w0 caps w0 at one half.
	s := NewSimplex(0, 0)
	sol, err := s.Solve(context.Background(), Problem{
		NumVars: 2,
		Constraints: []Constraint{
			simplexRow(2),
			{Coefficients: []float64{-1, 1}, Relation: GreaterEqual, RHS: 0},
		},
		Objective: []float64{1, 0},
		Sense:     Maximize,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, sol.Objective, 1e-9)
	assert.InDelta(t, 1.0, sol.X[0]+sol.X[1], 1e-9)
}

func TestSimplexLessEqual(t *testing.T) {
	s := NewSimplex(0, 0)
	sol, err := s.Solve(context.Background(), Problem{
		NumVars: 2,
		Constraints: []Constraint{
			{Coefficients: []float64{1, 2}, Relation: LessEqual, RHS: 4},
			{Coefficients: []float64{3, 1}, Relation: LessEqual, RHS: 6},
		},
		Objective: []float64{1, 1},
		Sense:     Maximize,
	})
	require.NoError(t, err)
	assert.InDelta(t, 2.8, sol.Objective, 1e-9)
	assert.InDelta(t, 1.6, sol.X[0], 1e-9)
	assert.InDelta(t, 1.2, sol.X[1], 1e-9)
}

func TestSimplexMinimize(t *testing.T) {
	s := NewSimplex(0, 0)
	sol, err := s.Solve(context.Background(), Problem{
		NumVars:     3,
		Constraints: []Constraint{simplexRow(3)},
		Objective:   []float64{0.4, 0.1, 0.7},
		Sense:       Minimize,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.1, sol.Objective, 1e-9)
	assert.InDelta(t, 1.0, sol.X[1], 1e-9)
}

func TestSimplexInfeasible(t *testing.T) {
	s := NewSimplex(0, 0)
	sol, err := s.Solve(context.Background(), Problem{
		NumVars: 2,
		Constraints: []Constraint{
			simplexRow(2),
			{Coefficients: []float64{1, 0}, Relation: GreaterEqual, RHS: 2},
		},
		Objective: []float64{1, 1},
	})
	require.ErrorIs(t, err, ErrInfeasible)
	assert.Equal(t, StatusInfeasible, sol.Status)
}

func TestSimplexContradictoryPreferences(t *testing.T) {
	// w0 >= w1 + 0.2 and w1 >= w0 + 0.2 cannot both hold.
	s := NewSimplex(0, 0)
	_, err := s.Solve(context.Background(), Problem{
		NumVars: 2,
		Constraints: []Constraint{
			simplexRow(2),
			{Coefficients: []float64{1, -1}, Relation: GreaterEqual, RHS: 0.2},
			{Coefficients: []float64{-1, 1}, Relation: GreaterEqual, RHS: 0.2},
		},
		Objective: []float64{1, 0},
	})
	require.ErrorIs(t, err, ErrInfeasible)
}

func TestSimplexUnbounded(t *testing.T) {
	s := NewSimplex(0, 0)
	t.Run("free column", func(t *testing.T) {
		sol, err := s.Solve(context.Background(), Problem{
			NumVars:     3,
			Constraints: []Constraint{{Coefficients: []float64{1, 1, 0}, Relation: Equal, RHS: 1}},
			Objective:   []float64{0, 0, 1},
			Sense:       Maximize,
		})
		require.ErrorIs(t, err, ErrUnbounded)
		assert.Equal(t, StatusUnbounded, sol.Status)
	})

	t.Run("free column that cannot help is fixed at zero", func(t *testing.T) {
		sol, err := s.Solve(context.Background(), Problem{
			NumVars:     3,
			Constraints: []Constraint{{Coefficients: []float64{1, 1, 0}, Relation: Equal, RHS: 1}},
			Objective:   []float64{1, 0, -1},
			Sense:       Maximize,
		})
		require.NoError(t, err)
		assert.InDelta(t, 1.0, sol.Objective, 1e-9)
		assert.Equal(t, 0.0, sol.X[2])
	})
}

func TestSimplexZeroRows(t *testing.T) {
	s := NewSimplex(0, 0)
	_, err := s.Solve(context.Background(), Problem{
		NumVars: 2,
		Constraints: []Constraint{
			simplexRow(2),
			{Coefficients: []float64{0, 0}, Relation: GreaterEqual, RHS: 1},
		},
		Objective: []float64{1, 0},
	})
	require.ErrorIs(t, err, ErrInfeasible)

	sol, err := s.Solve(context.Background(), Problem{
		NumVars: 2,
		Constraints: []Constraint{
			simplexRow(2),
			{Coefficients: []float64{0, 0}, Relation: GreaterEqual, RHS: 0},
		},
		Objective: []float64{1, 0},
	})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sol.Objective, 1e-9)
}

func TestSimplexMalformed(t *testing.T) {
	s := NewSimplex(0, 0)
	_, err := s.Solve(context.Background(), Problem{
		NumVars:     2,
		Constraints: []Constraint{{Coefficients: []float64{1}, Relation: Equal, RHS: 1}},
		Objective:   []float64{1, 0},
	})
	assert.ErrorIs(t, err, ErrMalformedProblem)

	_, err = s.Solve(context.Background(), Problem{NumVars: 2, Objective: []float64{1}})
	assert.ErrorIs(t, err, ErrMalformedProblem)
}

func TestSimplexCancelledContext(t *testing.T) {
	s := NewSimplex(0, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Solve(ctx, Problem{
		NumVars:     2,
		Constraints: []Constraint{simplexRow(2)},
		Objective:   []float64{1, 0},
	})
	require.ErrorIs(t, err, ErrSolverUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimplexRepeatedEquality(t *testing.T) {
	s := NewSimplex(0, 0)
	t.Run("scaled copy is redundant", func(t *testing.T) {
		sol, err := s.Solve(context.Background(), Problem{
			NumVars: 2,
			Constraints: []Constraint{
				simplexRow(2),
				{Coefficients: []float64{2, 2}, Relation: Equal, RHS: 2},
			},
			Objective: []float64{0.2, -0.1},
			Sense:     Maximize,
		})
		require.NoError(t, err)
		assert.Equal(t, StatusOptimal, sol.Status)
		assert.InDelta(t, 0.2, sol.Objective, 1e-9)
	})

	t.Run("conflicting copy is infeasible", func(t *testing.T) {
		_, err := s.Solve(context.Background(), Problem{
			NumVars: 2,
			Constraints: []Constraint{
				simplexRow(2),
				{Coefficients: []float64{1, 1}, Relation: Equal, RHS: 2},
			},
			Objective: []float64{1, 0},
			Sense:     Maximize,
		})
		require.ErrorIs(t, err, ErrInfeasible)
	})

	t.Run("independent equality still binds", func(t *testing.T) {
		sol, err := s.Solve(context.Background(), Problem{
			NumVars: 2,
			Constraints: []Constraint{
				simplexRow(2),
				{Coefficients: []float64{1, -1}, Relation: Equal, RHS: 0},
			},
			Objective: []float64{1, 0},
			Sense:     Maximize,
		})
		require.NoError(t, err)
		assert.InDelta(t, 0.5, sol.Objective, 1e-9)
		assert.InDelta(t, 0.5, sol.X[1], 1e-9)
	})
}

func TestSimplexBoundsConcurrentSolves(t *testing.T) {
	s := &Simplex{Timeout: 20 * time.Millisecond, MaxConcurrent: 1}
	p := Problem{
		NumVars:     2,
		Constraints: []Constraint{simplexRow(2)},
		Objective:   []float64{1, 0},
		Sense:       Maximize,
	}

	// An abandoned solve still holding the only slot.
	s.sem() <- struct{}{}
	_, err := s.Solve(context.Background(), p)
	require.ErrorIs(t, err, ErrSolverUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	<-s.sem()
	sol, err := s.Solve(context.Background(), p)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sol.Objective, 1e-9)
	assert.Eventually(t, func() bool { return len(s.sem()) == 0 }, time.Second, time.Millisecond)
}

func TestRelationText(t *testing.T) {
	for _, r := range []Relation{GreaterEqual, LessEqual, Equal} {
		got, err := ParseRelation(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
	_, err := ParseRelation("!=")
	assert.Error(t, err)

	var c Constraint
	require.NoError(t, json.Unmarshal([]byte(`{"coefficients":[1,-1],"relation":">=","rhs":0}`), &c))
	assert.Equal(t, GreaterEqual, c.Relation)
	assert.True(t, c.Satisfied([]float64{0.6, 0.4}, 1e-9))
	assert.False(t, c.Satisfied([]float64{0.4, 0.6}, 1e-9))
}

type recorder struct {
	statuses []Status
}

func (r *recorder) ObserveSolve(s Status, _ time.Duration) { r.statuses = append(r.statuses, s) }

func TestInstrumented(t *testing.T) {
	rec := &recorder{}
	s := Instrument(NewSimplex(0, 0), rec)

	_, err := s.Solve(context.Background(), Problem{
		NumVars:     2,
		Constraints: []Constraint{simplexRow(2)},
		Objective:   []float64{1, 0},
	})
	require.NoError(t, err)
	_, err = s.Solve(context.Background(), Problem{NumVars: 2, Objective: []float64{1}})
	require.Error(t, err)

	assert.Equal(t, []Status{StatusOptimal, StatusError}, rec.statuses)
}
