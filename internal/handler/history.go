package handler

import (
	"net/http"
	"time"

	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/config"
	"github.com/hitanshuthegr8/inventory-bot-StockMaster/internal/model"
)

// HistoryHandler exposes the query audit log.
type HistoryHandler struct {
	store *config.Store
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(store *config.Store) *HistoryHandler {
	return &HistoryHandler{store: store}
}

type historyResponse struct {
	Resource []model.QueryRecord `json:"resource"`
	Meta     model.ResponseMeta  `json:"meta"`
}

// List returns the most recent history entries.
// GET /api/v1/history?limit=50&status=error
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	status := r.URL.Query().Get("status")
	if status != "" && status != model.QueryStatusOK && status != model.QueryStatusError {
		writeError(w, http.StatusBadRequest, "status must be ok or error")
		return
	}

	records, err := h.store.ListQueries(r.Context(), config.HistoryFilter{
		Status: status,
		Limit:  clampInt(queryInt(r, "limit", 50), 1, 1000),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list history: "+err.Error())
		return
	}
	if records == nil {
		records = []model.QueryRecord{}
	}

	writeJSON(w, http.StatusOK, historyResponse{
		Resource: records,
		Meta:     newMeta(r, start),
	})
}
