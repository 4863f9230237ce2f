// Package rest exposes stored rebalancing results over HTTP.
package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fd1az/debt-rebalancer/business/rebalancing/app"
	"github.com/fd1az/debt-rebalancer/business/rebalancing/domain"
	"github.com/fd1az/debt-rebalancer/internal/apperror"
	"github.com/fd1az/debt-rebalancer/internal/health"
)

const defaultListLimit = 20

// LatestFunc returns the most recent in-memory result, or nil.
type LatestFunc func() *domain.RebalancingResult

// ResultsHandler serves /results.
type ResultsHandler struct {
	store  app.ResultStore
	latest LatestFunc
}

// NewResultsHandler creates a ResultsHandler. store may be nil when
// persistence is disabled; latest may be nil.
func NewResultsHandler(store app.ResultStore, latest LatestFunc) *ResultsHandler {
	return &ResultsHandler{store: store, latest: latest}
}

// Routes registers the handler's routes on r.
func (h *ResultsHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/latest", h.getLatest)
	r.Get("/{id}", h.get)
}

func (h *ResultsHandler) list(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, r, apperror.New(apperror.CodeStorageError, apperror.WithContext("persistence disabled")))
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, r, apperror.Validation(apperror.CodeInvalidInput, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	summaries, err := h.store.List(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if summaries == nil {
		summaries = []domain.ResultSummary{}
	}
	health.WriteJSON(w, http.StatusOK, summaries)
}

func (h *ResultsHandler) getLatest(w http.ResponseWriter, r *http.Request) {
	if h.latest != nil {
		if res := h.latest(); res != nil {
			health.WriteJSON(w, http.StatusOK, res)
			return
		}
	}
	if h.store != nil {
		summaries, err := h.store.List(r.Context(), 1)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if len(summaries) > 0 {
			h.writeStored(w, r, summaries[0].ID)
			return
		}
	}
	writeError(w, r, apperror.NotFound(apperror.CodeResultNotFound, "no results yet"))
}

func (h *ResultsHandler) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.latest != nil {
		if res := h.latest(); res != nil && res.ID == id {
			health.WriteJSON(w, http.StatusOK, res)
			return
		}
	}
	if h.store == nil {
		writeError(w, r, apperror.NotFound(apperror.CodeResultNotFound, id))
		return
	}
	h.writeStored(w, r, id)
}

func (h *ResultsHandler) writeStored(w http.ResponseWriter, r *http.Request, id string) {
	res, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	health.WriteJSON(w, http.StatusOK, res)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = apperror.Wrap(err, apperror.CodeInternalError, "")
	}
	resp := appErr.ToResponse()
	resp.Error.RequestID = middleware.GetReqID(r.Context())
	health.WriteJSON(w, appErr.StatusCode, resp)
}
