// Package oracle provides decision-makers that answer pairwise preference
// queries: simulated, scripted, random, interactive and remote.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

var ErrScriptExhausted = errors.New("scripted oracle has no answers left")

// Utility answers according to a fixed, hidden weight vector: it prefers
// x when dot(w, x) >= dot(w, y). Its answers are always mutually consistent.
type Utility struct {
	Weights scoring.WeightVector
}

func NewUtility(w scoring.WeightVector) (*Utility, error) {
	if err := w.Validate(scoring.DefaultTolerance); err != nil {
		return nil, fmt.Errorf("utility oracle: %w", err)
	}
	return &Utility{Weights: w.Clone()}, nil
}

func (u *Utility) Ask(_ context.Context, x, y scoring.Alternative) (scoring.Alternative, error) {
	ux, err := u.Weights.Utility(x)
	if err != nil {
		return nil, err
	}
	uy, err := u.Weights.Utility(y)
	if err != nil {
		return nil, err
	}
	if ux >= uy {
		return x, nil
	}
	return y, nil
}

// Pick selects one side of a query.
type Pick int

const (
	First Pick = iota
	Second
)

// Scripted replays a fixed sequence of picks.
type Scripted struct {
	mu    sync.Mutex
	picks []Pick
	next  int
}

func NewScripted(picks ...Pick) *Scripted {
	return &Scripted{picks: append([]Pick(nil), picks...)}
}

func (s *Scripted) Ask(_ context.Context, x, y scoring.Alternative) (scoring.Alternative, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.picks) {
		return nil, ErrScriptExhausted
	}
	p := s.picks[s.next]
	s.next++
	if p == First {
		return x, nil
	}
	return y, nil
}

// Asked returns how many answers have been consumed.
func (s *Scripted) Asked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Random flips a fair coin. Its answers can contradict each other, which
// eventually surfaces as an infeasible polytope.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandom(seed uint64) *Random {
	return &Random{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (r *Random) Ask(_ context.Context, x, y scoring.Alternative) (scoring.Alternative, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rng.Float64() > 0.5 {
		return x, nil
	}
	return y, nil
}
