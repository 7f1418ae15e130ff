package api

import (
	"net/http"
	"strings"

	"github.com/user/lrctype/internal/lrc"
)

type lyricsSummary struct {
	Path    string   `json:"path"`
	Tags    lrc.Tags `json:"tags"`
	Records int      `json:"records"`
}

type recordView struct {
	Index     int    `json:"index"`
	OffsetMS  int64  `json:"offset_ms"`
	Timestamp string `json:"timestamp"`
	Text      string `json:"text"`
}

type lyricsResponse struct {
	lyricsSummary
	Lines []recordView `json:"lines"`
}

// putLyricsRequest loads either a file on the server (Path) or LRC text
// sent in the body (Content).
type putLyricsRequest struct {
	Path    string `json:"path,omitempty"`
	Content string `json:"content,omitempty"`
}

func summarizeLyrics(lyrics *lrc.Lyrics) lyricsSummary {
	return lyricsSummary{Path: lyrics.Path, Tags: lyrics.Tags, Records: lyrics.Len()}
}

func lyricsView(lyrics *lrc.Lyrics) lyricsResponse {
	lines := make([]recordView, len(lyrics.Records))
	for i, rec := range lyrics.Records {
		lines[i] = recordView{
			Index:     i,
			OffsetMS:  rec.Offset.Milliseconds(),
			Timestamp: rec.Timestamp(),
			Text:      rec.Text,
		}
	}
	return lyricsResponse{lyricsSummary: summarizeLyrics(lyrics), Lines: lines}
}

func (h *handler) getLyrics(w http.ResponseWriter, r *http.Request) {
	lyrics := h.controller.Lyrics()
	if lyrics == nil {
		jsonError(w, http.StatusNotFound, "no lyrics loaded")
		return
	}
	jsonResponse(w, http.StatusOK, lyricsView(lyrics))
}

func (h *handler) putLyrics(w http.ResponseWriter, r *http.Request) {
	var req putLyricsRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	path := strings.TrimSpace(req.Path)
	switch {
	case path != "" && req.Content != "":
		jsonError(w, http.StatusBadRequest, "send either path or content, not both")
		return
	case path != "":
		lyrics, err := h.controller.Load(path)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		jsonResponse(w, http.StatusOK, lyricsView(lyrics))
	case req.Content != "":
		lyrics, err := lrc.ParseReader(strings.NewReader(req.Content))
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.controller.SetLyrics(lyrics)
		jsonResponse(w, http.StatusOK, lyricsView(lyrics))
	default:
		jsonError(w, http.StatusBadRequest, "path or content is required")
	}
}
