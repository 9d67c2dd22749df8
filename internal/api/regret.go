package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Elicit/internal/lpsolve"
	"github.com/MikeSquared-Agency/Elicit/internal/polytope"
	"github.com/MikeSquared-Agency/Elicit/internal/regret"
	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
	"github.com/MikeSquared-Agency/Elicit/internal/store"
)

// RegretHandler exposes one-shot regret computations against a polytope
// built from the preferences in the request.
type RegretHandler struct {
	engine *regret.Engine
	store  store.Store
}

func NewRegretHandler(engine *regret.Engine, s store.Store) *RegretHandler {
	return &RegretHandler{engine: engine, store: s}
}

// Preference states that Winner is at least as good as Loser.
type Preference struct {
	Winner []float64 `json:"winner"`
	Loser  []float64 `json:"loser"`
}

// PolytopeInput describes Omega as the simplex plus stated preferences and
// any extra linear constraints.
type PolytopeInput struct {
	Preferences []Preference         `json:"preferences,omitempty"`
	Constraints []lpsolve.Constraint `json:"constraints,omitempty"`
}

func (in PolytopeInput) build(m int) (*polytope.Polytope, error) {
	omega, err := polytope.Initial(m)
	if err != nil {
		return nil, err
	}
	for i, p := range in.Preferences {
		if omega, err = omega.WithPreference(p.Winner, p.Loser); err != nil {
			return nil, fmt.Errorf("preference %d: %w", i, err)
		}
	}
	for i, c := range in.Constraints {
		if omega, err = omega.With(c); err != nil {
			return nil, fmt.Errorf("constraint %d: %w", i, err)
		}
	}
	return omega, nil
}

type PairwiseRequest struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
	PolytopeInput
}

func (h *RegretHandler) Pairwise(w http.ResponseWriter, r *http.Request) {
	var req PairwiseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	x, y := scoring.Alternative(req.X), scoring.Alternative(req.Y)
	if err := x.Validate(); err != nil {
		writeErr(w, fmt.Errorf("x: %w", err))
		return
	}
	if err := y.Validate(); err != nil {
		writeErr(w, fmt.Errorf("y: %w", err))
		return
	}
	omega, err := req.build(x.Dim())
	if err != nil {
		writeErr(w, err)
		return
	}

	witness, err := h.engine.PairwiseWitness(r.Context(), x, y, omega)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, witness)
}

type MinimaxRequest struct {
	Alternatives   [][]float64 `json:"alternatives,omitempty"`
	CatalogID      string      `json:"catalog_id,omitempty"`
	PruneDominated bool        `json:"prune_dominated,omitempty"`
	PolytopeInput
}

// MinimaxResponse reports indices into the submitted set, even when
// dominated candidates were pruned before solving.
type MinimaxResponse struct {
	regret.Result
	XLabel     string `json:"x_label,omitempty"`
	YLabel     string `json:"y_label,omitempty"`
	Candidates int    `json:"candidates"`
}

func (h *RegretHandler) Minimax(w http.ResponseWriter, r *http.Request) {
	var req MinimaxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	set, catalog, status, err := h.candidates(r.Context(), req)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	solveSet := set
	if req.PruneDominated {
		if solveSet, err = scoring.PruneDominated(set); err != nil {
			writeErr(w, err)
			return
		}
	}
	omega, err := req.build(set.Dim())
	if err != nil {
		writeErr(w, err)
		return
	}

	res, err := h.engine.MinimaxRegret(r.Context(), solveSet, omega)
	if err != nil {
		writeErr(w, err)
		return
	}
	res.XIndex = set.IndexOf(res.XStar)
	res.YIndex = set.IndexOf(res.YStar)

	resp := MinimaxResponse{Result: res, Candidates: solveSet.Len()}
	if catalog != nil {
		resp.XLabel = catalog.LabelOf(res.XStar)
		resp.YLabel = catalog.LabelOf(res.YStar)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *RegretHandler) candidates(ctx context.Context, req MinimaxRequest) (*scoring.CandidateSet, *store.Catalog, int, error) {
	if req.CatalogID == "" {
		if len(req.Alternatives) == 0 {
			return nil, nil, http.StatusBadRequest, fmt.Errorf("alternatives or catalog_id required")
		}
		set, err := scoring.FromRows(req.Alternatives)
		if err != nil {
			return nil, nil, statusFor(err), err
		}
		return set, nil, 0, nil
	}

	id, err := uuid.Parse(req.CatalogID)
	if err != nil {
		return nil, nil, http.StatusBadRequest, fmt.Errorf("invalid catalog_id")
	}
	c, err := h.store.GetCatalog(ctx, id)
	if err != nil {
		return nil, nil, http.StatusInternalServerError, err
	}
	if c == nil {
		return nil, nil, http.StatusNotFound, fmt.Errorf("catalog not found")
	}
	set, err := c.CandidateSet()
	if err != nil {
		return nil, nil, http.StatusInternalServerError, err
	}
	return set, c, 0, nil
}
