package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Elicit/internal/store"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type CatalogsHandler struct {
	store store.Store
}

func NewCatalogsHandler(s store.Store) *CatalogsHandler {
	return &CatalogsHandler{store: s}
}

type CreateCatalogRequest struct {
	Name         string       `json:"name"`
	Description  string       `json:"description,omitempty"`
	Criteria     []string     `json:"criteria,omitempty"`
	Alternatives []store.Item `json:"alternatives"`
}

func (h *CatalogsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCatalogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c := &store.Catalog{
		Name:         req.Name,
		Description:  req.Description,
		Criteria:     req.Criteria,
		Alternatives: req.Alternatives,
	}
	if err := c.Validate(); err != nil {
		writeErr(w, err)
		return
	}
	if err := h.store.CreateCatalog(r.Context(), c); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CatalogsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxListLimit)
	}

	catalogs, err := h.store.ListCatalogs(r.Context(), limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	if catalogs == nil {
		catalogs = []*store.Catalog{}
	}
	writeJSON(w, http.StatusOK, catalogs)
}

func (h *CatalogsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid catalog id")
		return
	}
	c, err := h.store.GetCatalog(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "catalog not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CatalogsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid catalog id")
		return
	}
	if err := h.store.DeleteCatalog(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "catalog not found")
			return
		}
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "catalog_id": id.String()})
}
