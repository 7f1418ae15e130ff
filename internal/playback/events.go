package playback

import (
	"errors"
	"log/slog"
	"time"

	"github.com/user/lrctype/internal/action"
	"github.com/user/lrctype/internal/inject"
)

// NoIndex is the activated index meaning "no record is current".
const NoIndex = -1

type EventType string

const (
	EventStarted   EventType = "started"
	EventActivated EventType = "activated"
	EventCompleted EventType = "completed"
	EventStopped   EventType = "stopped"
	EventHalted    EventType = "halted"
	EventError     EventType = "error"
)

type ErrorKind string

const (
	ErrorNoRecords     ErrorKind = "no_records"
	ErrorConfiguration ErrorKind = "configuration"
	ErrorInjection     ErrorKind = "injection"
	ErrorHalted        ErrorKind = "halted"
	ErrorOther         ErrorKind = "other"
)

// Event is the outbound notification emitted by the playback loop. Index is
// set for activated and error events and is NoIndex otherwise. Fired counts
// the records dispatched so far in the run.
type Event struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
	Index     int       `json:"index"`
	Total     int       `json:"total,omitempty"`
	Fired     int       `json:"fired,omitempty"`
	Text      string    `json:"text,omitempty"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Message   string    `json:"message,omitempty"`
	At        time.Time `json:"at"`
}

// Observer receives playback events on the loop goroutine. Implementations
// must return quickly and hand work to their own goroutine when needed.
type Observer interface {
	Notify(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) Notify(ev Event) { f(ev) }

// Observers fans an event out to every non-nil member in order.
type Observers []Observer

func (o Observers) Notify(ev Event) {
	for _, obs := range o {
		if obs != nil {
			obs.Notify(ev)
		}
	}
}

func classifyError(err error) ErrorKind {
	var cfgErr *action.ConfigurationError
	var injErr *inject.InjectionError
	switch {
	case errors.Is(err, ErrNoRecords):
		return ErrorNoRecords
	case errors.As(err, &cfgErr):
		return ErrorConfiguration
	case errors.As(err, &injErr):
		return ErrorInjection
	default:
		return ErrorOther
	}
}

// LogObserver writes every event to logger.
func LogObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return ObserverFunc(func(ev Event) {
		switch ev.Type {
		case EventError:
			logger.Warn("playback error", "run_id", ev.RunID, "index", ev.Index, "kind", ev.ErrorKind, "error", ev.Message)
		case EventActivated:
			if ev.Index == NoIndex {
				logger.Debug("playback cleared", "run_id", ev.RunID)
				return
			}
			logger.Info("line", "run_id", ev.RunID, "index", ev.Index, "text", ev.Text)
		default:
			logger.Info("playback "+string(ev.Type), "run_id", ev.RunID, "fired", ev.Fired, "total", ev.Total)
		}
	})
}
