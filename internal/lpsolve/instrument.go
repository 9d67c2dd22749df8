package lpsolve

import (
	"context"
	"time"
)

// SolveRecorder receives the status and latency of every solve.
type SolveRecorder interface {
	ObserveSolve(status Status, d time.Duration)
}

// Instrumented wraps a Solver and reports each call to a SolveRecorder.
type Instrumented struct {
	next     Solver
	recorder SolveRecorder
}

func Instrument(next Solver, rec SolveRecorder) *Instrumented {
	return &Instrumented{next: next, recorder: rec}
}

func (s *Instrumented) Solve(ctx context.Context, p Problem) (Solution, error) {
	start := time.Now()
	sol, err := s.next.Solve(ctx, p)
	status := sol.Status
	if err != nil && status == StatusOptimal {
		status = StatusError
	}
	if s.recorder != nil {
		s.recorder.ObserveSolve(status, time.Since(start))
	}
	return sol, err
}
