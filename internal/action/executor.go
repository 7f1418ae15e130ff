package action

import (
	"context"
	"fmt"

	"github.com/user/lrctype/internal/clock"
	"github.com/user/lrctype/internal/inject"
)

// ConfigurationError reports an action that cannot run as configured, such
// as a key name missing from the key table. It is raised when the action is
// first executed, not when the sequence is loaded.
type ConfigurationError struct {
	Action Action
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("action %s: %v", e.Action, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Executor runs actions against an injection backend. Wait actions block the
// calling goroutine, which must be the playback loop and never a UI thread.
type Executor struct {
	backend inject.Backend
	clock   clock.Clock
}

func NewExecutor(backend inject.Backend, clk clock.Clock) *Executor {
	if clk == nil {
		clk = clock.Real()
	}
	return &Executor{backend: backend, clock: clk}
}

// Run performs a single action. lyric is the text typed by KindLyric steps.
func (e *Executor) Run(ctx context.Context, a Action, lyric string) error {
	switch a.Kind {
	case KindLyric:
		return e.typeText(ctx, lyric)
	case KindLiteral:
		return e.typeText(ctx, a.Text)
	case KindKey:
		key, err := inject.LookupKey(a.Key)
		if err != nil {
			return &ConfigurationError{Action: a, Err: err}
		}
		if err := e.backend.PressKey(ctx, key); err != nil {
			return &inject.InjectionError{Op: "key " + key.Name(), Err: err}
		}
		return nil
	case KindWait:
		return e.clock.Sleep(ctx, a.Duration)
	default:
		return &ConfigurationError{Action: a, Err: fmt.Errorf("%w: unknown kind %q", ErrInvalidAction, a.Kind)}
	}
}

func (e *Executor) typeText(ctx context.Context, text string) error {
	if err := e.backend.TypeText(ctx, text); err != nil {
		return &inject.InjectionError{Op: "type", Err: err}
	}
	return nil
}

// RunSequence performs every action in order for one record. The first
// failure ends the invocation; later actions are skipped.
func (e *Executor) RunSequence(ctx context.Context, seq Sequence, lyric string) error {
	for i, a := range seq {
		if err := e.Run(ctx, a, lyric); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}
