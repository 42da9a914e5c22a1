package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Brownie44l1/cropdoc/internal/history"
)

const maxHistoryLimit = 100

// HistoryReader is the read side of the prediction history.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Record, error)
	Counts(ctx context.Context) (map[string]int, error)
}

type Option func(*Handler)

// WithHistory exposes stored predictions under /history.
func WithHistory(r HistoryReader) Option {
	return func(h *Handler) {
		h.history = r
	}
}

type HistoryResponse struct {
	Records []history.Record `json:"records"`
	Counts  map[string]int   `json:"counts"`
}

// History lists the latest predictions, newest first, and the per class
// totals. The optional "limit" query parameter takes 1 to 100.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		http.Error(w, "History is disabled", http.StatusNotFound)
		return
	}

	limit := history.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || validate.Var(n, "min=1,max="+strconv.Itoa(maxHistoryLimit)) != nil {
			http.Error(w, "limit must be between 1 and "+strconv.Itoa(maxHistoryLimit), http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		h.log.Error("Read history", "error", err)
		http.Error(w, "Failed to read history", http.StatusInternalServerError)
		return
	}
	counts, err := h.history.Counts(r.Context())
	if err != nil {
		h.log.Error("Count history", "error", err)
		http.Error(w, "Failed to read history", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, HistoryResponse{Records: records, Counts: counts})
}
