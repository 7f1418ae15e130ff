package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/user/lrctype/internal/sequence"
)

type importSequenceRequest struct {
	ID      string          `json:"id"`
	Name    string          `json:"name,omitempty"`
	Actions json.RawMessage `json:"actions"`
}

type selectSequenceResponse struct {
	SequenceID string             `json:"sequence_id"`
	Sequence   *sequence.Sequence `json:"sequence"`
}

func (h *handler) listSequences(w http.ResponseWriter, r *http.Request) {
	if h.sequences == nil {
		jsonError(w, http.StatusInternalServerError, "sequence registry unavailable")
		return
	}
	jsonResponse(w, http.StatusOK, h.sequences.List())
}

func (h *handler) getSequence(w http.ResponseWriter, r *http.Request) {
	if h.sequences == nil {
		jsonError(w, http.StatusInternalServerError, "sequence registry unavailable")
		return
	}
	seq := h.sequences.Get(r.PathValue("id"))
	if seq == nil {
		jsonError(w, http.StatusNotFound, "sequence not found")
		return
	}
	jsonResponse(w, http.StatusOK, seq)
}

func (h *handler) createSequence(w http.ResponseWriter, r *http.Request) {
	if h.sequences == nil {
		jsonError(w, http.StatusInternalServerError, "sequence registry unavailable")
		return
	}
	var req sequence.Sequence
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	id := normalizeID(req.ID)
	if h.sequences.Get(id) != nil {
		jsonError(w, http.StatusConflict, "sequence already exists")
		return
	}
	if err := h.sequences.Save(&req); err != nil {
		jsonError(w, sequenceStatusCode(err), err.Error())
		return
	}
	jsonResponse(w, http.StatusCreated, h.sequences.Get(id))
}

func (h *handler) updateSequence(w http.ResponseWriter, r *http.Request) {
	if h.sequences == nil {
		jsonError(w, http.StatusInternalServerError, "sequence registry unavailable")
		return
	}
	id := r.PathValue("id")
	if h.sequences.Get(id) == nil {
		jsonError(w, http.StatusNotFound, "sequence not found")
		return
	}
	var req sequence.Sequence
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.ID != "" && req.ID != id {
		jsonError(w, http.StatusBadRequest, "sequence id in path and body must match")
		return
	}
	req.ID = id
	if err := h.sequences.Save(&req); err != nil {
		jsonError(w, sequenceStatusCode(err), err.Error())
		return
	}
	saved := h.sequences.Get(id)
	if activeID, _ := h.controller.Sequence(); activeID == id {
		h.controller.SetSequence(id, saved.Actions)
	}
	jsonResponse(w, http.StatusOK, saved)
}

func (h *handler) deleteSequence(w http.ResponseWriter, r *http.Request) {
	if h.sequences == nil {
		jsonError(w, http.StatusInternalServerError, "sequence registry unavailable")
		return
	}
	id := r.PathValue("id")
	if activeID, _ := h.controller.Sequence(); activeID == id {
		jsonError(w, http.StatusConflict, "sequence is selected; select another one first")
		return
	}
	if err := h.sequences.Delete(id); err != nil {
		jsonError(w, sequenceStatusCode(err), err.Error())
		return
	}
	jsonResponse(w, http.StatusNoContent, nil)
}

func (h *handler) selectSequence(w http.ResponseWriter, r *http.Request) {
	if h.sequences == nil {
		jsonError(w, http.StatusInternalServerError, "sequence registry unavailable")
		return
	}
	id := r.PathValue("id")
	seq := h.sequences.Get(id)
	if seq == nil {
		jsonError(w, http.StatusNotFound, "sequence not found")
		return
	}
	h.controller.SetSequence(seq.ID, seq.Actions)
	jsonResponse(w, http.StatusOK, selectSequenceResponse{SequenceID: seq.ID, Sequence: seq})
}

func (h *handler) importSequence(w http.ResponseWriter, r *http.Request) {
	if h.sequences == nil {
		jsonError(w, http.StatusInternalServerError, "sequence registry unavailable")
		return
	}
	var req importSequenceRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if h.sequences.Get(normalizeID(req.ID)) != nil {
		jsonError(w, http.StatusConflict, "sequence already exists")
		return
	}
	seq, err := h.sequences.ImportLegacy(req.ID, req.Name, req.Actions)
	if err != nil {
		jsonError(w, sequenceStatusCode(err), err.Error())
		return
	}
	jsonResponse(w, http.StatusCreated, seq)
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func sequenceStatusCode(err error) int {
	switch {
	case errors.Is(err, sequence.ErrInvalidSequence):
		return http.StatusBadRequest
	case errors.Is(err, sequence.ErrSequenceNotFound):
		return http.StatusNotFound
	case errors.Is(err, sequence.ErrSequenceStorage):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
