package regret

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Elicit/internal/lpsolve"
	"github.com/MikeSquared-Agency/Elicit/internal/polytope"
	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

var (
	altA = scoring.Alternative{0.5, 0.2}
	altB = scoring.Alternative{0.7, 0.1}
	altC = scoring.Alternative{0.6, 0.3}
)

func exampleSet(t *testing.T) *scoring.CandidateSet {
	t.Helper()
	set, err := scoring.NewCandidateSet([]scoring.Alternative{altA, altB, altC})
	require.NoError(t, err)
	return set
}

func initial(t *testing.T, m int) *polytope.Polytope {
	t.Helper()
	p, err := polytope.Initial(m)
	require.NoError(t, err)
	return p
}

func newEngine(workers int) *Engine {
	return NewEngine(lpsolve.NewSimplex(0, 0), Options{Workers: workers})
}

func TestPairwiseMaxRegretOnFullSimplex(t *testing.T) {
	// Over the whole simplex the maximum sits on a vertex:
	// PMR(x, y) = max_i (y_i - x_i).
	e := newEngine(1)
	omega := initial(t, 2)
	tests := []struct {
		name string
		x, y scoring.Alternative
		want float64
	}{
		{"a vs b", altA, altB, 0.2},
		{"a vs c", altA, altC, 0.1},
		{"b vs a", altB, altA, 0.1},
		{"b vs c", altB, altC, 0.2},
		{"c vs a dominated", altC, altA, -0.1},
		{"c vs b", altC, altB, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.PairwiseMaxRegret(context.Background(), tt.x, tt.y, omega)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestPairwiseMaxRegretUsesLPNotSample(t *testing.T) {
	// At w=(0.5,0.5) the gap is 0.05, but the simplex admits w=(1,0).
	e := newEngine(1)
	got, err := e.PairwiseMaxRegret(context.Background(), altA, altB, initial(t, 2))
	require.NoError(t, err)
	assert.Greater(t, got, 0.05+1e-6)
	assert.InDelta(t, 0.2, got, 1e-9)
}

func TestPairwiseWitnessIsNormalized(t *testing.T) {
	e := newEngine(1)
	omega := initial(t, 3)
	omega, err := omega.WithPreference(scoring.Alternative{0.2, 0.5, 0.3}, scoring.Alternative{0.4, 0.4, 0.2})
	require.NoError(t, err)

	w, err := e.PairwiseWitness(context.Background(), scoring.Alternative{0.3, 0.3, 0.4}, scoring.Alternative{0.1, 0.8, 0.1}, omega)
	require.NoError(t, err)
	require.Len(t, w.Weights, 3)
	assert.NoError(t, w.Weights.Validate(1e-9))
	assert.True(t, omega.Contains(w.Weights, 1e-9))
}

func TestPairwiseSelfComparison(t *testing.T) {
	e := newEngine(1)
	_, err := e.PairwiseMaxRegret(context.Background(), altA, scoring.Alternative{0.5, 0.2}, initial(t, 2))
	assert.ErrorIs(t, err, ErrSelfComparison)
}

func TestPairwiseDimensionMismatch(t *testing.T) {
	e := newEngine(1)
	_, err := e.PairwiseMaxRegret(context.Background(), scoring.Alternative{1, 0, 0}, altA, initial(t, 2))
	assert.ErrorIs(t, err, scoring.ErrDimensionMismatch)
}

func TestMonotonicRegret(t *testing.T) {
	e := newEngine(2)
	ctx := context.Background()
	alts := []scoring.Alternative{
		{0.31, 0.52, 0.17},
		{0.44, 0.23, 0.33},
		{0.12, 0.71, 0.17},
		{0.58, 0.11, 0.31},
	}
	answers := [][2]scoring.Alternative{
		{alts[1], alts[2]},
		{alts[3], alts[0]},
		{alts[1], alts[3]},
	}

	omega := initial(t, 3)
	prev := map[[2]int]float64{}
	for i := range alts {
		for j := range alts {
			if i == j {
				continue
			}
			v, err := e.PairwiseMaxRegret(ctx, alts[i], alts[j], omega)
			require.NoError(t, err)
			prev[[2]int{i, j}] = v
		}
	}

	for _, ans := range answers {
		next, err := omega.WithPreference(ans[0], ans[1])
		require.NoError(t, err)
		for i := range alts {
			for j := range alts {
				if i == j {
					continue
				}
				v, err := e.PairwiseMaxRegret(ctx, alts[i], alts[j], next)
				require.NoError(t, err)
				key := [2]int{i, j}
				assert.LessOrEqual(t, v, prev[key]+1e-9, "PMR(%d,%d) grew", i, j)
				prev[key] = v
			}
		}
		omega = next
	}
}

func TestMinimaxRegretExample(t *testing.T) {
	e := newEngine(4)
	res, err := e.MinimaxRegret(context.Background(), exampleSet(t), initial(t, 2))
	require.NoError(t, err)

	assert.InDelta(t, 0.1, res.MaxRegret, 1e-9)
	assert.Equal(t, 2, res.XIndex)
	assert.Equal(t, 1, res.YIndex)
	assert.Equal(t, altC, res.XStar)
	assert.Equal(t, altB, res.YStar)
	assert.Equal(t, 6, res.Solves)
}

func TestMinimaxRegretAfterAnswer(t *testing.T) {
	e := newEngine(2)
	omega, err := initial(t, 2).WithPreference(altB, altC)
	require.NoError(t, err)

	res, err := e.MinimaxRegret(context.Background(), exampleSet(t), omega)
	require.NoError(t, err)
	assert.Equal(t, altB, res.XStar)
	assert.InDelta(t, 0.0, res.MaxRegret, 1e-9)
}

func TestMinimaxRegretTieBreaksOnFirst(t *testing.T) {
	e := newEngine(3)
	set, err := scoring.FromRows([][]float64{{1, 0}, {0, 1}})
	require.NoError(t, err)

	res, err := e.MinimaxRegret(context.Background(), set, initial(t, 2))
	require.NoError(t, err)
	assert.Equal(t, 0, res.XIndex)
	assert.Equal(t, 1, res.YIndex)
	assert.InDelta(t, 1.0, res.MaxRegret, 1e-9)
}

func TestMinimaxRegretYieldsToDominatingWitness(t *testing.T) {
	// {0.5,0.1} and {0.9,0.1} both have regret 0.4, but the second dominates
	// the first, so recommending the first would pose a settled query.
	e := newEngine(2)
	set, err := scoring.FromRows([][]float64{{0.5, 0.1}, {0.9, 0.1}, {0.3, 0.5}})
	require.NoError(t, err)

	res, err := e.MinimaxRegret(context.Background(), set, initial(t, 2))
	require.NoError(t, err)
	assert.Equal(t, 1, res.XIndex)
	assert.Equal(t, 2, res.YIndex)
	assert.InDelta(t, 0.4, res.MaxRegret, 1e-9)
}

func TestMinimaxRegretIdempotent(t *testing.T) {
	e := newEngine(4)
	set := exampleSet(t)
	omega, err := initial(t, 2).WithPreference(altC, altB)
	require.NoError(t, err)

	first, err := e.MinimaxRegret(context.Background(), set, omega)
	require.NoError(t, err)
	second, err := e.MinimaxRegret(context.Background(), set, omega)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMinimaxRegretWorkerCountDoesNotChangeResult(t *testing.T) {
	set, err := scoring.FromRows([][]float64{
		{0.31, 0.52, 0.17},
		{0.44, 0.23, 0.33},
		{0.12, 0.71, 0.17},
		{0.58, 0.11, 0.31},
		{0.27, 0.36, 0.37},
	})
	require.NoError(t, err)
	omega := initial(t, 3)

	seq, err := newEngine(1).MinimaxRegret(context.Background(), set, omega)
	require.NoError(t, err)
	par, err := newEngine(8).MinimaxRegret(context.Background(), set, omega)
	require.NoError(t, err)

	assert.Equal(t, seq.XIndex, par.XIndex)
	assert.Equal(t, seq.YIndex, par.YIndex)
	assert.InDelta(t, seq.MaxRegret, par.MaxRegret, 1e-12)
}

// spySolver records every objective it is asked to optimize.
type spySolver struct {
	mu         sync.Mutex
	objectives [][]float64
	next       lpsolve.Solver
}

func (s *spySolver) Solve(ctx context.Context, p lpsolve.Problem) (lpsolve.Solution, error) {
	s.mu.Lock()
	s.objectives = append(s.objectives, append([]float64(nil), p.Objective...))
	s.mu.Unlock()
	return s.next.Solve(ctx, p)
}

func TestMinimaxRegretNeverComparesAlternativeWithItself(t *testing.T) {
	spy := &spySolver{next: lpsolve.NewSimplex(0, 0)}
	e := NewEngine(spy, Options{Workers: 4})

	set, err := scoring.NewCandidateSet([]scoring.Alternative{altA, altA.Clone(), altB, altC})
	require.NoError(t, err)
	_, err = e.MinimaxRegret(context.Background(), set, initial(t, 2))
	require.NoError(t, err)

	// 4*3 ordered pairs minus the two (a, a') pairs.
	assert.Len(t, spy.objectives, 10)
	for _, obj := range spy.objectives {
		zero := true
		for _, v := range obj {
			if v != 0 {
				zero = false
			}
		}
		assert.False(t, zero, "self comparison dispatched")
	}
}

func TestMinimaxRegretInsufficientCandidates(t *testing.T) {
	e := newEngine(1)
	single, err := scoring.NewCandidateSet([]scoring.Alternative{altA})
	require.NoError(t, err)
	_, err = e.MinimaxRegret(context.Background(), single, initial(t, 2))
	assert.ErrorIs(t, err, ErrInsufficientCandidates)

	dup, err := scoring.NewCandidateSet([]scoring.Alternative{altA, altA.Clone()})
	require.NoError(t, err)
	_, err = e.MinimaxRegret(context.Background(), dup, initial(t, 2))
	assert.ErrorIs(t, err, ErrInsufficientCandidates)

	_, _, err = e.MaxRegret(context.Background(), altA, dup, initial(t, 2))
	assert.ErrorIs(t, err, ErrInsufficientCandidates)
}

func TestMinimaxRegretDimensionMismatch(t *testing.T) {
	e := newEngine(1)
	_, err := e.MinimaxRegret(context.Background(), exampleSet(t), initial(t, 3))
	assert.ErrorIs(t, err, scoring.ErrDimensionMismatch)
}

func TestMinimaxRegretInfeasible(t *testing.T) {
	e := newEngine(2)
	omega, err := initial(t, 2).With(lpsolve.Constraint{Coefficients: []float64{1, -1}, Relation: lpsolve.GreaterEqual, RHS: 0.5})
	require.NoError(t, err)
	omega, err = omega.With(lpsolve.Constraint{Coefficients: []float64{-1, 1}, Relation: lpsolve.GreaterEqual, RHS: 0.5})
	require.NoError(t, err)

	_, err = e.MinimaxRegret(context.Background(), exampleSet(t), omega)
	require.ErrorIs(t, err, ErrInfeasiblePolytope)
	assert.ErrorIs(t, err, lpsolve.ErrInfeasible)
}

func TestPairwiseMaxRegretRedundantEquality(t *testing.T) {
	// 2w1 + 2w2 = 2 restates the simplex equality.
	e := newEngine(1)
	omega, err := initial(t, 2).With(lpsolve.Constraint{Coefficients: []float64{2, 2}, Relation: lpsolve.Equal, RHS: 2})
	require.NoError(t, err)

	got, err := e.PairwiseMaxRegret(context.Background(), altA, altB, omega)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, got, 1e-9)
}

type MockSolver struct {
	mock.Mock
}

func (m *MockSolver) Solve(ctx context.Context, p lpsolve.Problem) (lpsolve.Solution, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(lpsolve.Solution), args.Error(1)
}

func TestSolverErrorsPropagateVerbatim(t *testing.T) {
	boom := errors.New("solver backend down")
	ms := new(MockSolver)
	ms.On("Solve", mock.Anything, mock.Anything).Return(lpsolve.Solution{Status: lpsolve.StatusError}, boom)

	e := NewEngine(ms, Options{Workers: 2})
	_, err := e.MinimaxRegret(context.Background(), exampleSet(t), initial(t, 2))
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrInfeasiblePolytope)
	ms.AssertCalled(t, "Solve", mock.Anything, mock.Anything)
}

type minimaxRecorder struct {
	calls  int
	solves int
}

func (r *minimaxRecorder) ObserveMinimax(_ time.Duration, solves int) {
	r.calls++
	r.solves += solves
}

func TestMinimaxRecorder(t *testing.T) {
	rec := &minimaxRecorder{}
	e := NewEngine(lpsolve.NewSimplex(0, 0), Options{Workers: 2, Recorder: rec})
	_, err := e.MinimaxRegret(context.Background(), exampleSet(t), initial(t, 2))
	require.NoError(t, err)
	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, 6, rec.solves)
}

func TestMaxRegret(t *testing.T) {
	e := newEngine(1)
	mr, y, err := e.MaxRegret(context.Background(), altA, exampleSet(t), initial(t, 2))
	require.NoError(t, err)
	assert.InDelta(t, 0.2, mr, 1e-9)
	assert.Equal(t, altB, y)
}
