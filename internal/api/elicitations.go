package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Elicit/internal/broker"
	"github.com/MikeSquared-Agency/Elicit/internal/elicit"
	"github.com/MikeSquared-Agency/Elicit/internal/hermes"
)

type ElicitationsHandler struct {
	broker *broker.Broker
}

func NewElicitationsHandler(b *broker.Broker) *ElicitationsHandler {
	return &ElicitationsHandler{broker: b}
}

type ElicitationResponse struct {
	*elicit.Outcome
	CatalogID           string `json:"catalog_id,omitempty"`
	RecommendationLabel string `json:"recommendation_label,omitempty"`
}

func decodeSessionRequest(r *http.Request) (hermes.SessionRequestEvent, error) {
	var req hermes.SessionRequestEvent
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, err
	}
	req.Source = "api:" + r.Header.Get(clientIDHeader)
	return req, nil
}

// Create runs an elicitation to completion within the request. Only
// non-interactive oracles make sense here.
func (h *ElicitationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSessionRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	out, catalog, err := h.broker.Run(r.Context(), req)
	if err != nil {
		writeErr(w, err)
		return
	}
	resp := ElicitationResponse{Outcome: out}
	if catalog != nil {
		resp.CatalogID = catalog.ID.String()
		resp.RecommendationLabel = catalog.LabelOf(out.Recommendation)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Submit queues an elicitation and returns its id immediately.
func (h *ElicitationsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSessionRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.broker.Submit(req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"session_id": id.String(),
		"status":     string(broker.StatusQueued),
	})
}

func (h *ElicitationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	rec, ok := h.broker.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *ElicitationsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.broker.Stats())
}
