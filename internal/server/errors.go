package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/datagate/datagate/internal/models"
)

const defaultErrorLimit = 100

// ErrorLog is the ingestion error store exposed under /errors.
type ErrorLog interface {
	List(ctx context.Context, limit int, unresolvedOnly bool) ([]models.IngestionError, error)
	CountUnresolved(ctx context.Context) (int, error)
	MarkResolved(ctx context.Context, id string) error
}

// registerErrorRoutes serves
//
//	GET  /errors?limit=100&unresolved_only=true
//	POST /errors/{id}/resolve
func registerErrorRoutes(mux *http.ServeMux, log ErrorLog, logger *slog.Logger) {
	mux.HandleFunc("GET /errors", func(w http.ResponseWriter, req *http.Request) {
		limit := defaultErrorLimit
		if v := req.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
				return
			}
			limit = n
		}
		unresolvedOnly := req.URL.Query().Get("unresolved_only") == "true"

		list, err := log.List(req.Context(), limit, unresolvedOnly)
		if err != nil {
			logger.Error("failed to list ingestion errors", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list errors"})
			return
		}
		unresolved, err := log.CountUnresolved(req.Context())
		if err != nil {
			logger.Warn("failed to count unresolved errors", "error", err)
		}
		if list == nil {
			list = []models.IngestionError{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"errors":           list,
			"count":            len(list),
			"unresolved_count": unresolved,
		})
	})

	mux.HandleFunc("POST /errors/{id}/resolve", func(w http.ResponseWriter, req *http.Request) {
		id := req.PathValue("id")
		if err := log.MarkResolved(req.Context(), id); err != nil {
			logger.Error("failed to resolve ingestion error", "id", id, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to resolve error"})
			return
		}
		logger.Info("resolved ingestion error", "id", id)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
	})
}
