package hub

import "github.com/user/lrctype/internal/playback"

// PlaybackMessage carries one scheduler event, including highlight changes
// (activated with index -1 clears the highlight).
type PlaybackMessage struct {
	Type  string         `json:"type"`
	Event playback.Event `json:"event"`
}

type StatusMessage struct {
	Type   string          `json:"type"`
	Status playback.Status `json:"status"`
}

// ClientMessage is a request from a connected client: start, stop, toggle
// or status.
type ClientMessage struct {
	Type string `json:"type"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
