package hermes

import (
	"time"

	"github.com/MikeSquared-Agency/Elicit/internal/oracle"
)

// SessionRequestEvent asks the broker to run an elicitation. Either
// CatalogID or Alternatives must be set.
type SessionRequestEvent struct {
	SessionID      string      `json:"session_id,omitempty"`
	CatalogID      string      `json:"catalog_id,omitempty"`
	Alternatives   [][]float64 `json:"alternatives,omitempty"`
	Epsilon        float64     `json:"epsilon,omitempty"`
	MaxQueries     int         `json:"max_queries,omitempty"`
	PruneDominated bool        `json:"prune_dominated,omitempty"`
	Oracle         oracle.Spec `json:"oracle"`
	Source         string      `json:"source,omitempty"`
}

type SessionStartedEvent struct {
	SessionID  string    `json:"session_id"`
	Candidates int       `json:"candidates"`
	Criteria   int       `json:"criteria"`
	Epsilon    float64   `json:"epsilon"`
	Timestamp  time.Time `json:"timestamp"`
}

type SessionQueryEvent struct {
	SessionID string    `json:"session_id"`
	Iteration int       `json:"iteration"`
	MaxRegret float64   `json:"max_regret"`
	X         []float64 `json:"x"`
	Y         []float64 `json:"y"`
}

type SessionAnswerEvent struct {
	SessionID string    `json:"session_id"`
	Iteration int       `json:"iteration"`
	Preferred []float64 `json:"preferred"`
}

type SessionConvergedEvent struct {
	SessionID      string    `json:"session_id"`
	Recommendation []float64 `json:"recommendation"`
	MaxRegret      float64   `json:"max_regret"`
	Queries        int       `json:"queries"`
	DurationMs     int64     `json:"duration_ms"`
}

type SessionFailedEvent struct {
	SessionID string `json:"session_id"`
	Error     string `json:"error"`
}
