// Package elicit runs the incremental elicitation loop: compute minimax
// regret, ask the decision-maker about the current recommendation and its
// strongest competitor, fold the answer into the weight polytope, and stop
// once the worst-case regret drops below epsilon.
package elicit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Elicit/internal/polytope"
	"github.com/MikeSquared-Agency/Elicit/internal/regret"
	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

var (
	ErrInvalidEpsilon        = errors.New("epsilon must be positive")
	ErrOracleContract        = errors.New("oracle answer is neither of the queried alternatives")
	ErrQueryBudgetExhausted  = errors.New("query budget exhausted before convergence")
	ErrSessionAlreadyStarted = errors.New("session already started")
)

// Oracle is the decision-maker. Ask blocks until it states which of x and y
// it prefers and must return a value equal to one of them.
type Oracle interface {
	Ask(ctx context.Context, x, y scoring.Alternative) (scoring.Alternative, error)
}

// OracleFunc adapts a function to Oracle.
type OracleFunc func(ctx context.Context, x, y scoring.Alternative) (scoring.Alternative, error)

func (f OracleFunc) Ask(ctx context.Context, x, y scoring.Alternative) (scoring.Alternative, error) {
	return f(ctx, x, y)
}

type State int

const (
	StateInitialized State = iota
	StateQuerying
	StateUpdating
	StateConverged
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateQuerying:
		return "querying"
	case StateUpdating:
		return "updating"
	case StateConverged:
		return "converged"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Config struct {
	// Epsilon is the convergence tolerance; the loop stops when the minimax
	// regret is strictly below it.
	Epsilon float64
	// MaxQueries caps oracle calls. Zero means unlimited.
	MaxQueries int
}

func (c Config) Validate() error {
	if !(c.Epsilon > 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidEpsilon, c.Epsilon)
	}
	if c.MaxQueries < 0 {
		return fmt.Errorf("max queries must be non-negative, got %d", c.MaxQueries)
	}
	return nil
}

// Round records one mMR evaluation and, unless it converged, the query that
// followed.
type Round struct {
	Iteration int                 `json:"iteration"`
	MaxRegret float64             `json:"max_regret"`
	XStar     scoring.Alternative `json:"x_star"`
	YStar     scoring.Alternative `json:"y_star"`
	Answer    scoring.Alternative `json:"answer,omitempty"`
}

// Outcome is returned by a converged session.
type Outcome struct {
	SessionID      uuid.UUID           `json:"session_id"`
	Recommendation scoring.Alternative `json:"recommendation"`
	MaxRegret      float64             `json:"max_regret"`
	Queries        int                 `json:"queries"`
	Rounds         []Round             `json:"rounds"`
	Polytope       *polytope.Polytope  `json:"-"`
	Duration       time.Duration       `json:"duration"`
}

// Session is a single elicitation run. It is not safe for concurrent use.
type Session struct {
	id       uuid.UUID
	engine   *regret.Engine
	set      *scoring.CandidateSet
	oracle   Oracle
	cfg      Config
	omega    *polytope.Polytope
	state    State
	rounds   []Round
	listener Listener
	logger   *slog.Logger
}

type Option func(*Session)

// WithPolytope seeds the session with prior knowledge instead of the bare
// simplex.
func WithPolytope(p *polytope.Polytope) Option {
	return func(s *Session) { s.omega = p }
}

func WithListener(l Listener) Option {
	return func(s *Session) { s.listener = l }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

func WithID(id uuid.UUID) Option {
	return func(s *Session) { s.id = id }
}

func NewSession(engine *regret.Engine, set *scoring.CandidateSet, oracle Oracle, cfg Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if oracle == nil {
		return nil, fmt.Errorf("oracle required")
	}
	if set.Distinct() < 2 {
		return nil, regret.ErrInsufficientCandidates
	}
	s := &Session{
		id:       uuid.New(),
		engine:   engine,
		set:      set,
		oracle:   oracle,
		cfg:      cfg,
		state:    StateInitialized,
		listener: NopListener{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.omega == nil {
		p, err := polytope.Initial(set.Dim())
		if err != nil {
			return nil, err
		}
		s.omega = p
	}
	if err := scoring.CheckDim(set.Dim(), s.omega.Dim()); err != nil {
		return nil, fmt.Errorf("seed polytope: %w", err)
	}
	return s, nil
}

func (s *Session) ID() uuid.UUID                { return s.id }
func (s *Session) State() State                 { return s.state }
func (s *Session) Polytope() *polytope.Polytope { return s.omega }

// Rounds returns the transcript so far.
func (s *Session) Rounds() []Round {
	out := make([]Round, len(s.rounds))
	copy(out, s.rounds)
	return out
}

// Run drives the loop to convergence. Any error is terminal and leaves the
// session in StateFailed; the polytope and transcript up to the failure
// remain readable.
func (s *Session) Run(ctx context.Context) (*Outcome, error) {
	if s.state != StateInitialized {
		return nil, ErrSessionAlreadyStarted
	}
	start := time.Now()
	s.listener.SessionStarted(s.id, s.set.Len(), s.set.Dim(), s.cfg.Epsilon)
	s.logger.Info("elicitation started",
		"session_id", s.id,
		"candidates", s.set.Len(),
		"criteria", s.set.Dim(),
		"epsilon", s.cfg.Epsilon,
	)

	queries := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, s.fail(err)
		}

		res, err := s.engine.MinimaxRegret(ctx, s.set, s.omega)
		if err != nil {
			return nil, s.fail(err)
		}
		round := Round{
			Iteration: len(s.rounds),
			MaxRegret: res.MaxRegret,
			XStar:     res.XStar,
			YStar:     res.YStar,
		}

		if res.MaxRegret < s.cfg.Epsilon {
			s.rounds = append(s.rounds, round)
			s.state = StateConverged
			out := &Outcome{
				SessionID:      s.id,
				Recommendation: res.XStar,
				MaxRegret:      res.MaxRegret,
				Queries:        queries,
				Rounds:         s.Rounds(),
				Polytope:       s.omega,
				Duration:       time.Since(start),
			}
			s.listener.Converged(s.id, *out)
			s.logger.Info("elicitation converged",
				"session_id", s.id,
				"max_regret", res.MaxRegret,
				"queries", queries,
				"recommendation", res.XStar.String(),
			)
			return out, nil
		}

		if s.cfg.MaxQueries > 0 && queries >= s.cfg.MaxQueries {
			s.rounds = append(s.rounds, round)
			return nil, s.fail(fmt.Errorf("%w: %d queries, regret %g", ErrQueryBudgetExhausted, queries, res.MaxRegret))
		}

		s.state = StateQuerying
		s.listener.QueryPosed(s.id, round)
		s.logger.Debug("query posed",
			"session_id", s.id,
			"iteration", round.Iteration,
			"max_regret", res.MaxRegret,
			"x", res.XStar.String(),
			"y", res.YStar.String(),
		)
		answer, err := s.oracle.Ask(ctx, res.XStar.Clone(), res.YStar.Clone())
		if err != nil {
			s.rounds = append(s.rounds, round)
			return nil, s.fail(fmt.Errorf("oracle: %w", err))
		}
		queries++

		var winner, loser scoring.Alternative
		switch {
		case answer.Equal(res.XStar):
			winner, loser = res.XStar, res.YStar
		case answer.Equal(res.YStar):
			winner, loser = res.YStar, res.XStar
		default:
			s.rounds = append(s.rounds, round)
			return nil, s.fail(fmt.Errorf("%w: got %s for %s vs %s", ErrOracleContract, answer, res.XStar, res.YStar))
		}

		s.state = StateUpdating
		next, err := s.omega.WithPreference(winner, loser)
		if err != nil {
			s.rounds = append(s.rounds, round)
			return nil, s.fail(err)
		}
		s.omega = next
		round.Answer = winner.Clone()
		s.rounds = append(s.rounds, round)
		s.listener.AnswerRecorded(s.id, round)
	}
}

func (s *Session) fail(err error) error {
	s.state = StateFailed
	s.listener.Failed(s.id, err)
	s.logger.Warn("elicitation failed", "session_id", s.id, "rounds", len(s.rounds), "error", err)
	return err
}
