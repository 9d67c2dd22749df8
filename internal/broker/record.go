package broker

import (
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Elicit/internal/elicit"
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusConverged Status = "converged"
	StatusFailed    Status = "failed"
)

// SessionRecord tracks an async session. Records live in memory only and
// are swept after the configured retention.
type SessionRecord struct {
	ID          uuid.UUID       `json:"session_id"`
	Status      Status          `json:"status"`
	CatalogID   string          `json:"catalog_id,omitempty"`
	Source      string          `json:"source,omitempty"`
	Outcome     *elicit.Outcome `json:"outcome,omitempty"`
	Error       string          `json:"error,omitempty"`
	SubmittedAt time.Time       `json:"submitted_at"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
}

func (r *SessionRecord) Finished() bool {
	return r.Status == StatusConverged || r.Status == StatusFailed
}
