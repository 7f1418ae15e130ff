package inject

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"

	creackpty "github.com/creack/pty"
)

// ErrTargetExited is returned once the child behind a PTYBackend has exited.
var ErrTargetExited = errors.New("pty target exited")

// PTYBackend runs a program inside a pseudo-terminal and types into it.
// The program's output is copied to the writer given to NewPTY.
type PTYBackend struct {
	cmd  *exec.Cmd
	ptmx *os.File

	mu        sync.Mutex
	exited    bool
	done      chan struct{}
	closeOnce sync.Once
}

// NewPTY spawns argv with a 120x30 terminal.
func NewPTY(argv []string, out io.Writer) (*PTYBackend, error) {
	if len(argv) == 0 {
		return nil, errors.New("pty: argv must not be empty")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	ptmx, err := creackpty.StartWithSize(cmd, &creackpty.Winsize{Cols: 120, Rows: 30})
	if err != nil {
		return nil, err
	}

	b := &PTYBackend{
		cmd:  cmd,
		ptmx: ptmx,
		done: make(chan struct{}),
	}
	if out == nil {
		out = io.Discard
	}
	go func() {
		_, _ = io.Copy(out, ptmx)
	}()
	go b.waitExit()
	return b, nil
}

func (b *PTYBackend) waitExit() {
	_ = b.cmd.Wait()
	b.mu.Lock()
	b.exited = true
	b.mu.Unlock()
	close(b.done)
}

// Done is closed when the child exits.
func (b *PTYBackend) Done() <-chan struct{} { return b.done }

func (b *PTYBackend) write(s string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.exited {
		return ErrTargetExited
	}
	_, err := io.WriteString(b.ptmx, s)
	return err
}

func (b *PTYBackend) TypeText(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	return b.write(text)
}

func (b *PTYBackend) PressKey(ctx context.Context, key Key) error {
	return b.write(key.Sequence())
}

// Close kills the child and releases the terminal. It is safe to call twice.
func (b *PTYBackend) Close() error {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		exited := b.exited
		b.mu.Unlock()
		if !exited && b.cmd.Process != nil {
			_ = b.cmd.Process.Kill()
		}
		<-b.done
		_ = b.ptmx.Close()
	})
	return nil
}
