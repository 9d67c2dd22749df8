package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

var ErrUnknownKind = errors.New("unknown oracle kind")

// Spec describes a decision-maker in request payloads. Kind selects the
// implementation; the remaining fields are read only by the kind that uses
// them.
type Spec struct {
	Kind    string    `json:"kind" yaml:"kind"`
	Weights []float64 `json:"weights,omitempty" yaml:"weights,omitempty"`
	Picks   []string  `json:"picks,omitempty" yaml:"picks,omitempty"`
	Seed    uint64    `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// Remote is where the "remote" kind sends its queries.
type Remote struct {
	URL   string
	Token string
}

// ParsePick accepts "first"/"x"/"1" and "second"/"y"/"2".
func ParsePick(s string) (Pick, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "first", "x", "1":
		return First, nil
	case "second", "y", "2":
		return Second, nil
	}
	return 0, fmt.Errorf("invalid pick %q", s)
}

// Asker is satisfied by every oracle in this package.
type Asker interface {
	Ask(ctx context.Context, x, y scoring.Alternative) (scoring.Alternative, error)
}

// Build turns a spec into a decision-maker for session id. Interactive
// prompts are not buildable from a spec.
func (s Spec) Build(remote Remote, sessionID string) (Asker, error) {
	switch s.Kind {
	case "utility":
		return NewUtility(scoring.WeightVector(s.Weights))
	case "scripted":
		picks := make([]Pick, len(s.Picks))
		for i, p := range s.Picks {
			pk, err := ParsePick(p)
			if err != nil {
				return nil, err
			}
			picks[i] = pk
		}
		return NewScripted(picks...), nil
	case "random":
		return NewRandom(s.Seed), nil
	case "remote":
		if remote.URL == "" {
			return nil, fmt.Errorf("remote oracle: no url configured")
		}
		return NewHTTPClient(remote.URL, remote.Token).ForSession(sessionID), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
}
