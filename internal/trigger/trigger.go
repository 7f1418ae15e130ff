// Package trigger turns outside input (terminal hotkeys, POSIX signals)
// into start and stop requests.
package trigger

// Target receives start and stop requests.
type Target interface {
	Start() error
	Stop()
}

type Command int

const (
	CommandNone Command = iota
	CommandStart
	CommandStop
	CommandQuit
)

func (c Command) String() string {
	switch c {
	case CommandStart:
		return "start"
	case CommandStop:
		return "stop"
	case CommandQuit:
		return "quit"
	default:
		return "none"
	}
}
