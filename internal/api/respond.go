package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MikeSquared-Agency/Elicit/internal/broker"
	"github.com/MikeSquared-Agency/Elicit/internal/elicit"
	"github.com/MikeSquared-Agency/Elicit/internal/lpsolve"
	"github.com/MikeSquared-Agency/Elicit/internal/oracle"
	"github.com/MikeSquared-Agency/Elicit/internal/regret"
	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
	"github.com/MikeSquared-Agency/Elicit/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeErr(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

// statusFor maps domain errors onto HTTP statuses. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, scoring.ErrDimensionMismatch),
		errors.Is(err, scoring.ErrEmptyAlternative),
		errors.Is(err, scoring.ErrNonFinite),
		errors.Is(err, regret.ErrInsufficientCandidates),
		errors.Is(err, regret.ErrSelfComparison),
		errors.Is(err, elicit.ErrInvalidEpsilon),
		errors.Is(err, lpsolve.ErrMalformedProblem),
		errors.Is(err, oracle.ErrUnknownKind),
		errors.Is(err, broker.ErrNoCandidates),
		errors.Is(err, broker.ErrInvalidRequest),
		errors.Is(err, store.ErrInvalidCatalog):
		return http.StatusBadRequest
	case errors.Is(err, broker.ErrCatalogNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, elicit.ErrQueryBudgetExhausted):
		return http.StatusConflict
	case errors.Is(err, regret.ErrInfeasiblePolytope),
		errors.Is(err, elicit.ErrOracleContract),
		errors.Is(err, oracle.ErrScriptExhausted):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, lpsolve.ErrSolverUnavailable),
		errors.Is(err, broker.ErrStopped):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
