package trigger

import (
	"fmt"
	"strings"

	"github.com/user/lrctype/internal/inject"
)

const ctrlC = 0x03

// Decoder maps raw terminal bytes to commands. Escape sequences may arrive
// split across reads, so a partial match is held until the next Feed.
type Decoder struct {
	bindings map[string]Command
	pending  []byte
}

// NewDecoder binds startKey and stopKey by name, e.g. "f6" and "f7".
// "q" and Ctrl-C always quit and cannot be bound.
func NewDecoder(startKey, stopKey string) (*Decoder, error) {
	bindings := make(map[string]Command, 2)
	for _, b := range []struct {
		name string
		cmd  Command
	}{{startKey, CommandStart}, {stopKey, CommandStop}} {
		key, err := inject.LookupKey(b.name)
		if err != nil {
			return nil, fmt.Errorf("%s key: %w", b.cmd, err)
		}
		seq := key.Sequence()
		if seq == "q" {
			return nil, fmt.Errorf("%s key: q is reserved for quit", b.cmd)
		}
		if _, dup := bindings[seq]; dup {
			return nil, fmt.Errorf("start and stop keys must differ")
		}
		bindings[seq] = b.cmd
	}
	return &Decoder{bindings: bindings}, nil
}

func (d *Decoder) Feed(data []byte) []Command {
	var out []Command
	for _, b := range data {
		d.pending = append(d.pending, b)
		out = d.drain(out)
	}
	return out
}

func (d *Decoder) drain(out []Command) []Command {
	for len(d.pending) > 0 {
		buf := string(d.pending)
		if cmd, ok := d.bindings[buf]; ok {
			d.pending = d.pending[:0]
			return append(out, cmd)
		}
		if d.isPrefix(buf) {
			return out
		}
		if buf[0] == 'q' || buf[0] == ctrlC {
			out = append(out, CommandQuit)
		}
		d.pending = d.pending[1:]
	}
	return out
}

func (d *Decoder) isPrefix(buf string) bool {
	for seq := range d.bindings {
		if len(seq) > len(buf) && strings.HasPrefix(seq, buf) {
			return true
		}
	}
	return false
}
