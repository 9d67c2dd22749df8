// Package regret computes pairwise max regret (PMR), max regret (MR) and
// minimax regret (mMR) of alternatives under a linear utility model whose
// weights are only known to lie in a polytope.
package regret

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/Elicit/internal/lpsolve"
	"github.com/MikeSquared-Agency/Elicit/internal/polytope"
	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

var (
	ErrInsufficientCandidates = errors.New("at least two distinct candidates required")
	ErrInfeasiblePolytope     = errors.New("preference polytope is infeasible")
	ErrSelfComparison         = errors.New("pairwise regret of an alternative against itself")
)

// Recorder observes every minimax computation.
type Recorder interface {
	ObserveMinimax(d time.Duration, solves int)
}

type Options struct {
	// Workers bounds concurrent LP solves inside one MinimaxRegret call.
	// Values below 1 mean sequential.
	Workers  int
	Logger   *slog.Logger
	Recorder Recorder
}

// Engine evaluates regret through an LP solver. It holds no per-call state
// and is safe for concurrent use when the solver is.
type Engine struct {
	solver   lpsolve.Solver
	workers  int
	logger   *slog.Logger
	recorder Recorder
}

func NewEngine(solver lpsolve.Solver, opts Options) *Engine {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{solver: solver, workers: workers, logger: logger, recorder: opts.Recorder}
}

// Witness is a PMR value together with a weight vector attaining it.
type Witness struct {
	Regret  float64              `json:"regret"`
	Weights scoring.WeightVector `json:"weights"`
}

// PairwiseWitness solves max_{w in omega} dot(w, y) - dot(w, x).
func (e *Engine) PairwiseWitness(ctx context.Context, x, y scoring.Alternative, omega *polytope.Polytope) (Witness, error) {
	if err := scoring.CheckDim(omega.Dim(), x.Dim()); err != nil {
		return Witness{}, err
	}
	if err := scoring.CheckDim(omega.Dim(), y.Dim()); err != nil {
		return Witness{}, err
	}
	if x.Equal(y) {
		return Witness{}, ErrSelfComparison
	}

	objective := make([]float64, x.Dim())
	for i := range objective {
		objective[i] = y[i] - x[i]
	}
	sol, err := e.solver.Solve(ctx, omega.Problem(objective))
	if err != nil {
		if errors.Is(err, lpsolve.ErrInfeasible) {
			return Witness{}, fmt.Errorf("%w: %w", ErrInfeasiblePolytope, err)
		}
		return Witness{}, err
	}
	return Witness{Regret: sol.Objective, Weights: scoring.WeightVector(sol.X)}, nil
}

// PairwiseMaxRegret returns PMR(x, y, omega). It may be negative when x
// beats y under every feasible weight vector.
func (e *Engine) PairwiseMaxRegret(ctx context.Context, x, y scoring.Alternative, omega *polytope.Polytope) (float64, error) {
	w, err := e.PairwiseWitness(ctx, x, y, omega)
	if err != nil {
		return 0, err
	}
	return w.Regret, nil
}

// MaxRegret returns MR(x) = max over y in set, y != x, of PMR(x, y) along
// with the first y attaining it.
func (e *Engine) MaxRegret(ctx context.Context, x scoring.Alternative, set *scoring.CandidateSet, omega *polytope.Polytope) (float64, scoring.Alternative, error) {
	var (
		best    float64
		witness scoring.Alternative
	)
	for i := 0; i < set.Len(); i++ {
		y := set.At(i)
		if y.Equal(x) {
			continue
		}
		v, err := e.PairwiseMaxRegret(ctx, x, y, omega)
		if err != nil {
			return 0, nil, err
		}
		if witness == nil || v > best {
			best, witness = v, y
		}
	}
	if witness == nil {
		return 0, nil, ErrInsufficientCandidates
	}
	return best, witness.Clone(), nil
}

// Result is the outcome of a minimax regret computation.
type Result struct {
	MaxRegret float64             `json:"max_regret"`
	XStar     scoring.Alternative `json:"x_star"`
	YStar     scoring.Alternative `json:"y_star"`
	XIndex    int                 `json:"x_index"`
	YIndex    int                 `json:"y_index"`
	Solves    int                 `json:"solves"`
}

// MinimaxRegret finds the alternative with the smallest max regret and the
// competitor witnessing it. Ties go to the earliest candidate, unless its
// witness is at least as good under every weight in omega (see
// yieldToDominator). The PMR matrix is filled concurrently; omega is only
// read.
func (e *Engine) MinimaxRegret(ctx context.Context, set *scoring.CandidateSet, omega *polytope.Polytope) (Result, error) {
	if set.Distinct() < 2 {
		return Result{}, ErrInsufficientCandidates
	}
	if err := scoring.CheckDim(omega.Dim(), set.Dim()); err != nil {
		return Result{}, err
	}
	start := time.Now()
	n := set.Len()

	pmr := make([][]float64, n)
	comparable := make([][]bool, n)
	for i := range pmr {
		pmr[i] = make([]float64, n)
		comparable[i] = make([]bool, n)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	solves := 0
dispatch:
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j || set.At(i).Equal(set.At(j)) {
				continue
			}
			if gctx.Err() != nil {
				break dispatch
			}
			comparable[i][j] = true
			solves++
			g.Go(func() error {
				v, err := e.PairwiseMaxRegret(gctx, set.At(i), set.At(j), omega)
				if err != nil {
					return fmt.Errorf("pmr(%d, %d): %w", i, j, err)
				}
				pmr[i][j] = v
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res := Result{XIndex: -1, YIndex: -1, Solves: solves}
	for i := 0; i < n; i++ {
		mr, y := rowMax(pmr[i], comparable[i])
		if res.XIndex < 0 || mr < res.MaxRegret {
			res.MaxRegret, res.XIndex, res.YIndex = mr, i, y
		}
	}
	res.XIndex, res.YIndex, res.MaxRegret = yieldToDominator(pmr, comparable, res.XIndex, res.YIndex, res.MaxRegret)
	res.XStar = set.At(res.XIndex).Clone()
	res.YStar = set.At(res.YIndex).Clone()

	elapsed := time.Since(start)
	if e.recorder != nil {
		e.recorder.ObserveMinimax(elapsed, solves)
	}
	e.logger.Debug("minimax regret computed",
		"candidates", n,
		"constraints", omega.Len(),
		"max_regret", res.MaxRegret,
		"x_index", res.XIndex,
		"y_index", res.YIndex,
		"solves", solves,
		"duration_ms", elapsed.Milliseconds(),
	)
	return res, nil
}

// dominanceTol absorbs solver noise when testing PMR(y, x) <= 0.
const dominanceTol = 1e-12

// yieldToDominator moves the recommendation from x to its witness y while
// y weakly dominates x over omega, i.e. PMR(y, x) <= 0. Then MR(y) <= MR(x),
// so y ties for the minimum, and asking "x or y?" could only be answered y,
// adding a constraint omega already implies. Each move goes strictly up the
// dominance order, so at most n moves happen.
func yieldToDominator(pmr [][]float64, ok [][]bool, x, y int, mr float64) (int, int, float64) {
	for range len(pmr) {
		if mr <= dominanceTol || pmr[y][x] > dominanceTol {
			break
		}
		x = y
		mr, y = rowMax(pmr[x], ok[x])
	}
	return x, y, mr
}

// rowMax returns the first maximum over comparable entries. Every row has at
// least one comparable entry once the set has two distinct members.
func rowMax(row []float64, ok []bool) (float64, int) {
	best, idx := 0.0, -1
	for j, v := range row {
		if !ok[j] {
			continue
		}
		if idx < 0 || v > best {
			best, idx = v, j
		}
	}
	return best, idx
}
