// Package api exposes playback control, lyrics, sequences and run history
// over HTTP.
package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/user/lrctype/internal/action"
	"github.com/user/lrctype/internal/db"
	"github.com/user/lrctype/internal/lrc"
	"github.com/user/lrctype/internal/playback"
	"github.com/user/lrctype/internal/sequence"
)

type controller interface {
	Start() error
	Stop()
	Toggle() error
	Status() playback.Status
	Load(path string) (*lrc.Lyrics, error)
	SetLyrics(lyrics *lrc.Lyrics)
	Lyrics() *lrc.Lyrics
	SetSequence(id string, seq action.Sequence)
	Sequence() (string, action.Sequence)
}

type handler struct {
	controller controller
	sequences  *sequence.Registry
	runs       *db.RunRepo
	logger     *slog.Logger
}

type Options struct {
	Controller controller
	Sequences  *sequence.Registry
	// Runs is optional; run history endpoints answer 503 without it.
	Runs   *db.RunRepo
	Token  string
	Logger *slog.Logger
}

func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	handler := &handler{
		controller: opts.Controller,
		sequences:  opts.Sequences,
		runs:       opts.Runs,
		logger:     logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", handler.getStatus)
	mux.HandleFunc("POST /api/playback/start", handler.startPlayback)
	mux.HandleFunc("POST /api/playback/stop", handler.stopPlayback)
	mux.HandleFunc("POST /api/playback/toggle", handler.togglePlayback)

	mux.HandleFunc("GET /api/lyrics", handler.getLyrics)
	mux.HandleFunc("PUT /api/lyrics", handler.putLyrics)

	mux.HandleFunc("GET /api/sequences", handler.listSequences)
	mux.HandleFunc("POST /api/sequences", handler.createSequence)
	mux.HandleFunc("POST /api/sequences/import", handler.importSequence)
	mux.HandleFunc("GET /api/sequences/{id}", handler.getSequence)
	mux.HandleFunc("PUT /api/sequences/{id}", handler.updateSequence)
	mux.HandleFunc("DELETE /api/sequences/{id}", handler.deleteSequence)
	mux.HandleFunc("POST /api/sequences/{id}/select", handler.selectSequence)

	mux.HandleFunc("GET /api/runs", handler.listRuns)
	mux.HandleFunc("GET /api/runs/{id}", handler.getRun)

	wrapped := authMiddleware(opts.Token)(jsonMiddleware(corsMiddleware(mux)))
	return wrapped
}

func authMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
			if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
				if strings.TrimSpace(authHeader[7:]) == token {
					next.ServeHTTP(w, r)
					return
				}
			}

			if r.URL.Query().Get("token") == token {
				next.ServeHTTP(w, r)
				return
			}

			jsonError(w, http.StatusUnauthorized, "unauthorized")
		})
	}
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return io.ErrUnexpectedEOF
	}
	return nil
}
