package api

import (
	"net/http"
	"strconv"

	"github.com/user/lrctype/internal/db"
)

type runDetail struct {
	Run    *db.Run         `json:"run"`
	Errors []*db.RunError `json:"errors"`
}

func (h *handler) listRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		jsonError(w, http.StatusServiceUnavailable, "run history disabled")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			jsonError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	runs, err := h.runs.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("list runs", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	jsonResponse(w, http.StatusOK, runs)
}

func (h *handler) getRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		jsonError(w, http.StatusServiceUnavailable, "run history disabled")
		return
	}
	id := r.PathValue("id")
	run, err := h.runs.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("get run", "run_id", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	if run == nil {
		jsonError(w, http.StatusNotFound, "run not found")
		return
	}
	errs, err := h.runs.ListErrors(r.Context(), id)
	if err != nil {
		h.logger.Error("list run errors", "run_id", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load run errors")
		return
	}
	jsonResponse(w, http.StatusOK, runDetail{Run: run, Errors: errs})
}
