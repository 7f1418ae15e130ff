package trigger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

var (
	ErrNotTerminal = errors.New("stdin is not a terminal")
	// ErrQuit is returned by Run when the user pressed q or Ctrl-C.
	ErrQuit = errors.New("quit requested")
)

// Terminal reads hotkeys from a terminal in raw mode.
type Terminal struct {
	in      *os.File
	decoder *Decoder
	target  Target
	logger  *slog.Logger
}

func NewTerminal(in *os.File, startKey, stopKey string, target Target, logger *slog.Logger) (*Terminal, error) {
	if in == nil || !(isatty.IsTerminal(in.Fd()) || isatty.IsCygwinTerminal(in.Fd())) {
		return nil, ErrNotTerminal
	}
	decoder, err := NewDecoder(startKey, stopKey)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Terminal{in: in, decoder: decoder, target: target, logger: logger}, nil
}

// Run puts the terminal in raw mode and dispatches hotkeys until ctx is
// done, the input closes, or the user quits.
func (t *Terminal) Run(ctx context.Context) error {
	fd := int(t.in.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("enable raw mode: %w", err)
	}
	defer func() {
		if err := term.Restore(fd, state); err != nil {
			t.logger.Warn("restore terminal", "error", err)
		}
	}()
	return Dispatch(ctx, t.in, t.decoder, t.target, t.logger)
}

// Dispatch feeds r through decoder and applies commands to target. The read
// loop runs on its own goroutine since a blocked Read cannot be cancelled.
func Dispatch(ctx context.Context, r io.Reader, decoder *Decoder, target Target, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	chunks := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		buf := make([]byte, 64)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				chunk := append([]byte(nil), buf[:n]...)
				select {
				case chunks <- chunk:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read terminal: %w", err)
		case chunk := <-chunks:
			for _, cmd := range decoder.Feed(chunk) {
				switch cmd {
				case CommandStart:
					if err := target.Start(); err != nil {
						logger.Warn("hotkey start", "error", err)
					}
				case CommandStop:
					target.Stop()
				case CommandQuit:
					return ErrQuit
				}
			}
		}
	}
}
