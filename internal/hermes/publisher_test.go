package hermes

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Elicit/internal/elicit"
	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

type published struct {
	subject string
	data    interface{}
}

type mockClient struct {
	published []published
	err       error
}

func (m *mockClient) Publish(subject string, data interface{}) error {
	m.published = append(m.published, published{subject, data})
	return m.err
}
func (m *mockClient) Subscribe(string, func(string, []byte)) error { return nil }
func (m *mockClient) Close()                                       {}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSessionPublisherSubjects(t *testing.T) {
	mc := &mockClient{}
	p := NewSessionPublisher(mc, discardLogger())
	id := uuid.New()
	round := elicit.Round{
		Iteration: 0,
		MaxRegret: 0.1,
		XStar:     scoring.Alternative{0.6, 0.3},
		YStar:     scoring.Alternative{0.7, 0.1},
		Answer:    scoring.Alternative{0.7, 0.1},
	}

	p.SessionStarted(id, 3, 2, 0.01)
	p.QueryPosed(id, round)
	p.AnswerRecorded(id, round)
	p.Converged(id, elicit.Outcome{SessionID: id, Recommendation: round.Answer, Queries: 1, Duration: 3 * time.Millisecond})
	p.Failed(id, errors.New("boom"))

	require.Len(t, mc.published, 5)
	sid := id.String()
	assert.Equal(t, "elicit.session."+sid+".started", mc.published[0].subject)
	assert.Equal(t, "elicit.session."+sid+".query", mc.published[1].subject)
	assert.Equal(t, "elicit.session."+sid+".answer", mc.published[2].subject)
	assert.Equal(t, "elicit.session."+sid+".converged", mc.published[3].subject)
	assert.Equal(t, "elicit.session."+sid+".failed", mc.published[4].subject)

	q, ok := mc.published[1].data.(SessionQueryEvent)
	require.True(t, ok)
	assert.Equal(t, []float64{0.6, 0.3}, q.X)
	assert.Equal(t, []float64{0.7, 0.1}, q.Y)

	c, ok := mc.published[3].data.(SessionConvergedEvent)
	require.True(t, ok)
	assert.Equal(t, int64(3), c.DurationMs)
	assert.Equal(t, 1, c.Queries)

	f, ok := mc.published[4].data.(SessionFailedEvent)
	require.True(t, ok)
	assert.Equal(t, "boom", f.Error)
}

func TestSessionPublisherSwallowsErrors(t *testing.T) {
	mc := &mockClient{err: errors.New("nats down")}
	p := NewSessionPublisher(mc, discardLogger())
	assert.NotPanics(t, func() { p.SessionStarted(uuid.New(), 2, 2, 0.1) })
	assert.Len(t, mc.published, 1)
}

func TestSessionPublisherNilClient(t *testing.T) {
	p := NewSessionPublisher(nil, discardLogger())
	assert.NotPanics(t, func() { p.Failed(uuid.New(), errors.New("x")) })
}

func TestSessionRequestEventJSON(t *testing.T) {
	raw := `{"catalog_id":"abc","epsilon":0.05,"oracle":{"kind":"utility","weights":[0.3,0.7]}}`
	var evt SessionRequestEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &evt))
	assert.Equal(t, "abc", evt.CatalogID)
	assert.Equal(t, 0.05, evt.Epsilon)
	assert.Equal(t, "utility", evt.Oracle.Kind)
	assert.Equal(t, []float64{0.3, 0.7}, evt.Oracle.Weights)
}
