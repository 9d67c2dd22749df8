// Package broker runs elicitation sessions asynchronously on behalf of API
// and NATS callers, bounding how many run at once.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Elicit/internal/config"
	"github.com/MikeSquared-Agency/Elicit/internal/elicit"
	"github.com/MikeSquared-Agency/Elicit/internal/hermes"
	"github.com/MikeSquared-Agency/Elicit/internal/oracle"
	"github.com/MikeSquared-Agency/Elicit/internal/regret"
	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
	"github.com/MikeSquared-Agency/Elicit/internal/store"
)

var (
	ErrStopped         = errors.New("broker stopped")
	ErrNoCandidates    = errors.New("request names neither a catalog nor alternatives")
	ErrCatalogNotFound = errors.New("catalog not found")
	ErrInvalidRequest  = errors.New("invalid session request")
)

type Broker struct {
	store    store.Store
	hermes   hermes.Client
	engine   *regret.Engine
	cfg      *config.Config
	listener elicit.Listener
	logger   *slog.Logger

	sem chan struct{}

	recordsMu sync.RWMutex
	records   map[uuid.UUID]*SessionRecord

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New builds a broker. listener, if non-nil, observes every session in
// addition to the event publisher.
func New(s store.Store, h hermes.Client, engine *regret.Engine, cfg *config.Config, listener elicit.Listener, logger *slog.Logger) *Broker {
	limit := cfg.Elicitation.MaxConcurrentSessions
	if limit < 1 {
		limit = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		store:    s,
		hermes:   h,
		engine:   engine,
		cfg:      cfg,
		listener: listener,
		logger:   logger,
		sem:      make(chan struct{}, limit),
		records:  make(map[uuid.UUID]*SessionRecord),
		ctx:      ctx,
		cancel:   cancel,
		stopCh:   make(chan struct{}),
	}
}

// Start ties the broker's lifetime to ctx and starts the retention sweep.
func (b *Broker) Start(ctx context.Context) {
	context.AfterFunc(ctx, b.cancel)
	b.wg.Add(1)
	go b.retentionLoop(ctx)
}

// Stop cancels running sessions and waits for every goroutine to exit.
func (b *Broker) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
		b.cancel()
	})
	b.wg.Wait()
}

func (b *Broker) stopped() bool {
	select {
	case <-b.stopCh:
		return true
	default:
		return false
	}
}

// NewSession resolves a request into a ready-to-run session. The returned
// catalog is nil when the request carried raw alternatives.
func (b *Broker) NewSession(ctx context.Context, req hermes.SessionRequestEvent) (*elicit.Session, *store.Catalog, error) {
	id := uuid.New()
	if req.SessionID != "" {
		parsed, err := uuid.Parse(req.SessionID)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: session_id: %w", ErrInvalidRequest, err)
		}
		id = parsed
	}

	set, catalog, err := b.candidates(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	if req.PruneDominated || b.cfg.Elicitation.PruneDominated {
		if set, err = scoring.PruneDominated(set); err != nil {
			return nil, nil, err
		}
	}

	eps := req.Epsilon
	if eps == 0 {
		eps = b.cfg.Elicitation.Epsilon
	}
	maxQueries := req.MaxQueries
	if maxQueries == 0 {
		maxQueries = b.cfg.Elicitation.MaxQueries
	}

	dm, err := req.Oracle.Build(oracle.Remote{URL: b.cfg.Oracle.URL, Token: b.cfg.Oracle.Token}, id.String())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	listeners := elicit.MultiListener{hermes.NewSessionPublisher(b.hermes, b.logger), b.listener}
	sess, err := elicit.NewSession(b.engine, set, dm, elicit.Config{Epsilon: eps, MaxQueries: maxQueries},
		elicit.WithID(id),
		elicit.WithListener(listeners),
		elicit.WithLogger(b.logger),
	)
	if err != nil {
		return nil, nil, err
	}
	return sess, catalog, nil
}

func (b *Broker) candidates(ctx context.Context, req hermes.SessionRequestEvent) (*scoring.CandidateSet, *store.Catalog, error) {
	switch {
	case req.CatalogID != "":
		id, err := uuid.Parse(req.CatalogID)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: catalog_id: %w", ErrInvalidRequest, err)
		}
		c, err := b.store.GetCatalog(ctx, id)
		if err != nil {
			return nil, nil, fmt.Errorf("load catalog: %w", err)
		}
		if c == nil {
			return nil, nil, fmt.Errorf("%w: %s", ErrCatalogNotFound, id)
		}
		set, err := c.CandidateSet()
		return set, c, err
	case len(req.Alternatives) > 0:
		set, err := scoring.FromRows(req.Alternatives)
		return set, nil, err
	}
	return nil, nil, ErrNoCandidates
}

// Run executes a session in the caller's goroutine, waiting for a free
// slot first. Used by synchronous API calls.
func (b *Broker) Run(ctx context.Context, req hermes.SessionRequestEvent) (*elicit.Outcome, *store.Catalog, error) {
	if b.stopped() {
		return nil, nil, ErrStopped
	}
	sess, catalog, err := b.NewSession(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	select {
	case b.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, catalog, ctx.Err()
	case <-b.stopCh:
		return nil, catalog, ErrStopped
	}
	defer func() { <-b.sem }()

	out, err := sess.Run(ctx)
	return out, catalog, err
}

// Submit validates req, queues the session and returns its id without
// waiting for it to run.
func (b *Broker) Submit(req hermes.SessionRequestEvent) (uuid.UUID, error) {
	if b.stopped() {
		return uuid.Nil, ErrStopped
	}
	sess, catalog, err := b.NewSession(b.ctx, req)
	if err != nil {
		return uuid.Nil, err
	}

	rec := &SessionRecord{
		ID:          sess.ID(),
		Status:      StatusQueued,
		Source:      req.Source,
		SubmittedAt: time.Now().UTC(),
	}
	if catalog != nil {
		rec.CatalogID = catalog.ID.String()
	}
	b.recordsMu.Lock()
	if _, dup := b.records[rec.ID]; dup {
		b.recordsMu.Unlock()
		return uuid.Nil, fmt.Errorf("%w: session %s already exists", ErrInvalidRequest, rec.ID)
	}
	b.records[rec.ID] = rec
	b.recordsMu.Unlock()

	b.wg.Add(1)
	go b.run(sess)
	return sess.ID(), nil
}

func (b *Broker) run(sess *elicit.Session) {
	defer b.wg.Done()

	select {
	case b.sem <- struct{}{}:
	case <-b.ctx.Done():
		b.finish(sess.ID(), nil, fmt.Errorf("%w before start: %w", ErrStopped, b.ctx.Err()))
		return
	}
	defer func() { <-b.sem }()

	b.update(sess.ID(), func(r *SessionRecord) { r.Status = StatusRunning })
	out, err := sess.Run(b.ctx)
	b.finish(sess.ID(), out, err)
}

func (b *Broker) finish(id uuid.UUID, out *elicit.Outcome, err error) {
	now := time.Now().UTC()
	b.update(id, func(r *SessionRecord) {
		r.FinishedAt = &now
		if err != nil {
			r.Status = StatusFailed
			r.Error = err.Error()
			return
		}
		r.Status = StatusConverged
		r.Outcome = out
	})
	if err != nil {
		b.logger.Warn("async session failed", "session_id", id, "error", err)
		return
	}
	b.logger.Info("async session converged", "session_id", id, "queries", out.Queries)
}

func (b *Broker) update(id uuid.UUID, fn func(*SessionRecord)) {
	b.recordsMu.Lock()
	defer b.recordsMu.Unlock()
	if r, ok := b.records[id]; ok {
		fn(r)
	}
}

// Get returns a snapshot of a submitted session.
func (b *Broker) Get(id uuid.UUID) (SessionRecord, bool) {
	b.recordsMu.RLock()
	defer b.recordsMu.RUnlock()
	r, ok := b.records[id]
	if !ok {
		return SessionRecord{}, false
	}
	return *r, true
}

// Stats counts tracked sessions by status.
func (b *Broker) Stats() map[Status]int {
	b.recordsMu.RLock()
	defer b.recordsMu.RUnlock()
	out := make(map[Status]int)
	for _, r := range b.records {
		out[r.Status]++
	}
	return out
}

// SetupSubscriptions registers the NATS session request handler.
func (b *Broker) SetupSubscriptions() {
	if b.hermes == nil {
		return
	}

	err := b.hermes.Subscribe(hermes.SubjectSessionRequest, func(_ string, data []byte) {
		var req hermes.SessionRequestEvent
		if err := json.Unmarshal(data, &req); err != nil {
			b.logger.Warn("invalid session request event", "error", err)
			return
		}
		if req.Source == "" {
			req.Source = "nats"
		}
		id, err := b.Submit(req)
		if err != nil {
			b.logger.Error("failed to start session from NATS request", "error", err)
			if req.SessionID != "" {
				_ = b.hermes.Publish(hermes.SubjectSessionFailed(req.SessionID), hermes.SessionFailedEvent{
					SessionID: req.SessionID,
					Error:     err.Error(),
				})
			}
			return
		}
		b.logger.Info("session queued from NATS request", "session_id", id)
	})
	if err != nil {
		b.logger.Error("failed to subscribe to session requests", "subject", hermes.SubjectSessionRequest, "error", err)
	}
}
