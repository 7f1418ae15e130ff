package trigger

import (
	"context"
	"errors"
	"io"
	"os"
	"reflect"
	"sync"
	"syscall"
	"testing"
	"time"
)

func TestDecoderFeed(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		want   []Command
	}{
		{name: "f6 starts", chunks: []string{"\x1b[17~"}, want: []Command{CommandStart}},
		{name: "f7 stops", chunks: []string{"\x1b[18~"}, want: []Command{CommandStop}},
		{name: "split sequence", chunks: []string{"\x1b[", "17", "~"}, want: []Command{CommandStart}},
		{name: "back to back", chunks: []string{"\x1b[17~\x1b[18~"}, want: []Command{CommandStart, CommandStop}},
		{name: "quit", chunks: []string{"xq"}, want: []Command{CommandQuit}},
		{name: "ctrl-c", chunks: []string{"\x03"}, want: []Command{CommandQuit}},
		{name: "other f-key ignored", chunks: []string{"\x1b[19~", "\x1b[18~"}, want: []Command{CommandStop}},
		{name: "broken sequence then q", chunks: []string{"\x1b[1q"}, want: []Command{CommandQuit}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDecoder("f6", "f7")
			if err != nil {
				t.Fatalf("NewDecoder() error = %v", err)
			}
			var got []Command
			for _, chunk := range tt.chunks {
				got = append(got, d.Feed([]byte(chunk))...)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("commands = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewDecoderRejectsBadBindings(t *testing.T) {
	tests := []struct {
		name        string
		start, stop string
	}{
		{name: "unknown", start: "f13", stop: "f7"},
		{name: "same", start: "f6", stop: "F6"},
		{name: "quit key", start: "q", stop: "f7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewDecoder(tt.start, tt.stop); err == nil {
				t.Fatalf("NewDecoder(%q, %q) should fail", tt.start, tt.stop)
			}
		})
	}
}

type fakeTarget struct {
	mu     sync.Mutex
	calls  []string
	called chan string
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{called: make(chan string, 16)}
}

func (f *fakeTarget) Start() error {
	f.record("start")
	return nil
}

func (f *fakeTarget) Stop() {
	f.record("stop")
}

func (f *fakeTarget) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	f.called <- call
}

func (f *fakeTarget) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func TestDispatchAppliesCommandsUntilQuit(t *testing.T) {
	target := newFakeTarget()
	d, err := NewDecoder("f6", "f7")
	if err != nil {
		t.Fatalf("NewDecoder() error = %v", err)
	}
	r, w := io.Pipe()
	done := make(chan error, 1)
	go func() { done <- Dispatch(context.Background(), r, d, target, nil) }()

	if _, err := w.Write([]byte("\x1b[17~\x1b[18~q")); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case err := <-done:
		if !errors.Is(err, ErrQuit) {
			t.Fatalf("Dispatch() error = %v, want ErrQuit", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Dispatch did not return")
	}
	if got := target.snapshot(); !reflect.DeepEqual(got, []string{"start", "stop"}) {
		t.Fatalf("calls = %v", got)
	}
	_ = w.Close()
}

func TestDispatchReturnsOnEOFAndCancel(t *testing.T) {
	d, _ := NewDecoder("f6", "f7")
	r, w := io.Pipe()
	_ = w.Close()
	if err := Dispatch(context.Background(), r, d, newFakeTarget(), nil); err != nil {
		t.Fatalf("Dispatch(EOF) error = %v", err)
	}

	r2, w2 := io.Pipe()
	defer w2.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Dispatch(ctx, r2, d, newFakeTarget(), nil); err != nil {
		t.Fatalf("Dispatch(cancelled) error = %v", err)
	}
}

func TestNewTerminalRequiresTTY(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	if err != nil {
		t.Fatalf("create temp: %v", err)
	}
	defer f.Close()
	if _, err := NewTerminal(f, "f6", "f7", newFakeTarget(), nil); !errors.Is(err, ErrNotTerminal) {
		t.Fatalf("NewTerminal() error = %v, want ErrNotTerminal", err)
	}
}

func TestHandleSignals(t *testing.T) {
	target := newFakeTarget()
	ch := make(chan os.Signal)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		handleSignals(ctx, ch, target, nil)
		close(done)
	}()

	ch <- syscall.SIGUSR1
	ch <- syscall.SIGUSR2
	ch <- syscall.SIGHUP
	cancel()
	<-done

	if got := target.snapshot(); !reflect.DeepEqual(got, []string{"start", "stop"}) {
		t.Fatalf("calls = %v", got)
	}
}
