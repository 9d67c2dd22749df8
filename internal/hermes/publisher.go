package hermes

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Elicit/internal/elicit"
)

// SessionPublisher mirrors session lifecycle transitions onto the event
// bus. Publish failures are logged and never abort the session.
type SessionPublisher struct {
	client Client
	logger *slog.Logger
}

func NewSessionPublisher(c Client, logger *slog.Logger) *SessionPublisher {
	return &SessionPublisher{client: c, logger: logger}
}

func (p *SessionPublisher) publish(subject string, data interface{}) {
	if p.client == nil {
		return
	}
	if err := p.client.Publish(subject, data); err != nil {
		p.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}

func (p *SessionPublisher) SessionStarted(id uuid.UUID, candidates, criteria int, epsilon float64) {
	p.publish(SubjectSessionStarted(id.String()), SessionStartedEvent{
		SessionID:  id.String(),
		Candidates: candidates,
		Criteria:   criteria,
		Epsilon:    epsilon,
		Timestamp:  time.Now().UTC(),
	})
}

func (p *SessionPublisher) QueryPosed(id uuid.UUID, r elicit.Round) {
	p.publish(SubjectSessionQuery(id.String()), SessionQueryEvent{
		SessionID: id.String(),
		Iteration: r.Iteration,
		MaxRegret: r.MaxRegret,
		X:         r.XStar,
		Y:         r.YStar,
	})
}

func (p *SessionPublisher) AnswerRecorded(id uuid.UUID, r elicit.Round) {
	p.publish(SubjectSessionAnswer(id.String()), SessionAnswerEvent{
		SessionID: id.String(),
		Iteration: r.Iteration,
		Preferred: r.Answer,
	})
}

func (p *SessionPublisher) Converged(id uuid.UUID, out elicit.Outcome) {
	p.publish(SubjectSessionConverged(id.String()), SessionConvergedEvent{
		SessionID:      id.String(),
		Recommendation: out.Recommendation,
		MaxRegret:      out.MaxRegret,
		Queries:        out.Queries,
		DurationMs:     out.Duration.Milliseconds(),
	})
}

func (p *SessionPublisher) Failed(id uuid.UUID, err error) {
	p.publish(SubjectSessionFailed(id.String()), SessionFailedEvent{
		SessionID: id.String(),
		Error:     err.Error(),
	})
}
