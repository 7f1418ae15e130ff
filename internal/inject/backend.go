// Package inject delivers synthetic keyboard input to whatever currently has
// focus. Injection is fire-and-forget: no backend can verify that the
// intended text field actually received the input.
package inject

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Backend interface {
	TypeText(ctx context.Context, text string) error
	PressKey(ctx context.Context, key Key) error
}

// InjectionError reports a backend failure such as the OS refusing synthetic
// input or the target process having exited.
type InjectionError struct {
	Op  string
	Err error
}

func (e *InjectionError) Error() string {
	return fmt.Sprintf("inject %s: %v", e.Op, e.Err)
}

func (e *InjectionError) Unwrap() error { return e.Err }

type EventKind string

const (
	EventText EventKind = "text"
	EventKey  EventKind = "key"
)

type Event struct {
	Kind  EventKind
	Value string
	At    time.Time
}

// Recorder is a Backend that remembers every call instead of touching the OS.
type Recorder struct {
	// Now stamps events when set.
	Now func() time.Time
	// Fail, when set, is consulted before each call and its error returned.
	Fail func(Event) error

	mu     sync.Mutex
	events []Event
}

func (r *Recorder) TypeText(ctx context.Context, text string) error {
	return r.record(Event{Kind: EventText, Value: text})
}

func (r *Recorder) PressKey(ctx context.Context, key Key) error {
	return r.record(Event{Kind: EventKey, Value: key.Name()})
}

func (r *Recorder) record(ev Event) error {
	if r.Now != nil {
		ev.At = r.Now()
	}
	if r.Fail != nil {
		if err := r.Fail(ev); err != nil {
			return err
		}
	}
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// DryRun logs what would be typed.
type DryRun struct {
	Logger *slog.Logger
}

func (d DryRun) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d DryRun) TypeText(ctx context.Context, text string) error {
	d.logger().Info("dry-run type", "text", text)
	return nil
}

func (d DryRun) PressKey(ctx context.Context, key Key) error {
	d.logger().Info("dry-run key", "key", key.Name())
	return nil
}
