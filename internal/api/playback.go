package api

import (
	"errors"
	"net/http"

	"github.com/user/lrctype/internal/playback"
)

type statusResponse struct {
	Playback   playback.Status `json:"playback"`
	SequenceID string          `json:"sequence_id"`
	Lyrics     *lyricsSummary  `json:"lyrics,omitempty"`
}

func (h *handler) getStatus(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, h.status())
}

func (h *handler) status() statusResponse {
	id, _ := h.controller.Sequence()
	resp := statusResponse{Playback: h.controller.Status(), SequenceID: id}
	if lyrics := h.controller.Lyrics(); lyrics != nil {
		summary := summarizeLyrics(lyrics)
		resp.Lyrics = &summary
	}
	return resp
}

func (h *handler) startPlayback(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.Start(); err != nil {
		jsonError(w, playbackStatusCode(err), err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, h.status())
}

func (h *handler) stopPlayback(w http.ResponseWriter, r *http.Request) {
	h.controller.Stop()
	jsonResponse(w, http.StatusOK, h.status())
}

func (h *handler) togglePlayback(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.Toggle(); err != nil {
		jsonError(w, playbackStatusCode(err), err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, h.status())
}

func playbackStatusCode(err error) int {
	switch {
	case errors.Is(err, playback.ErrNoRecords):
		return http.StatusConflict
	case errors.Is(err, playback.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
