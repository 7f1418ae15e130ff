package api

import (
	"encoding/json"
	"net/http"
)

// errorBody is the shape of every non-2xx response: {"error": "..."}.
type errorBody struct {
	Error string `json:"error"`
}

// jsonResponse writes data with status. 204 responses and nil data carry no
// body, which DELETE /api/sequences/{id} relies on.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	header := w.Header()
	if header.Get("Content-Type") == "" {
		header.Set("Content-Type", "application/json")
	}
	header.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if status == http.StatusNoContent || data == nil {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data)
}

func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, errorBody{Error: message})
}
