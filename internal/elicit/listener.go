package elicit

import "github.com/google/uuid"

// Listener observes session lifecycle transitions. Implementations must not
// block for long; they run on the session goroutine.
type Listener interface {
	SessionStarted(id uuid.UUID, candidates, criteria int, epsilon float64)
	QueryPosed(id uuid.UUID, r Round)
	AnswerRecorded(id uuid.UUID, r Round)
	Converged(id uuid.UUID, out Outcome)
	Failed(id uuid.UUID, err error)
}

type NopListener struct{}

func (NopListener) SessionStarted(uuid.UUID, int, int, float64) {}
func (NopListener) QueryPosed(uuid.UUID, Round)                 {}
func (NopListener) AnswerRecorded(uuid.UUID, Round)             {}
func (NopListener) Converged(uuid.UUID, Outcome)                {}
func (NopListener) Failed(uuid.UUID, error)                     {}

// MultiListener fans out to every non-nil listener in order.
type MultiListener []Listener

func (m MultiListener) SessionStarted(id uuid.UUID, candidates, criteria int, epsilon float64) {
	for _, l := range m {
		if l != nil {
			l.SessionStarted(id, candidates, criteria, epsilon)
		}
	}
}

func (m MultiListener) QueryPosed(id uuid.UUID, r Round) {
	for _, l := range m {
		if l != nil {
			l.QueryPosed(id, r)
		}
	}
}

func (m MultiListener) AnswerRecorded(id uuid.UUID, r Round) {
	for _, l := range m {
		if l != nil {
			l.AnswerRecorded(id, r)
		}
	}
}

func (m MultiListener) Converged(id uuid.UUID, out Outcome) {
	for _, l := range m {
		if l != nil {
			l.Converged(id, out)
		}
	}
}

func (m MultiListener) Failed(id uuid.UUID, err error) {
	for _, l := range m {
		if l != nil {
			l.Failed(id, err)
		}
	}
}
