package inject

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"
)

const (
	TextPlaceholder = "{text}"
	KeyPlaceholder  = "{key}"
)

type runFunc func(ctx context.Context, argv []string) error

func execRun(ctx context.Context, argv []string) error {
	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s: %w: %s", argv[0], err, msg)
		}
		return fmt.Errorf("%s: %w", argv[0], err)
	}
	return nil
}

// CommandBackend shells out to an external tool for every call. Templates
// are shell-quoted command lines containing {text} or {key}; placeholders
// are substituted inside argv elements, never re-parsed by a shell.
type CommandBackend struct {
	typeArgv []string
	keyArgv  []string
	run      runFunc
}

func NewCommand(typeTemplate, keyTemplate string) (*CommandBackend, error) {
	typeArgv, err := parseTemplate(typeTemplate, TextPlaceholder)
	if err != nil {
		return nil, fmt.Errorf("type command: %w", err)
	}
	keyArgv, err := parseTemplate(keyTemplate, KeyPlaceholder)
	if err != nil {
		return nil, fmt.Errorf("key command: %w", err)
	}
	return &CommandBackend{typeArgv: typeArgv, keyArgv: keyArgv, run: execRun}, nil
}

// NewXdotool targets X11 sessions.
func NewXdotool() *CommandBackend {
	b, _ := NewCommand(
		"xdotool type --clearmodifiers --delay 0 -- {text}",
		"xdotool key --clearmodifiers {key}",
	)
	return b
}

// NewWtype targets Wayland compositors implementing virtual-keyboard.
func NewWtype() *CommandBackend {
	b, _ := NewCommand("wtype -- {text}", "wtype -k {key}")
	return b
}

func parseTemplate(template, placeholder string) ([]string, error) {
	argv, err := shellquote.Split(template)
	if err != nil {
		return nil, err
	}
	if len(argv) == 0 {
		return nil, errors.New("template is empty")
	}
	found := false
	for _, arg := range argv {
		if strings.Contains(arg, placeholder) {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("template %q has no %s placeholder", template, placeholder)
	}
	return argv, nil
}

func expand(argv []string, placeholder, value string) []string {
	out := make([]string, len(argv))
	for i, arg := range argv {
		out[i] = strings.ReplaceAll(arg, placeholder, value)
	}
	return out
}

func (b *CommandBackend) TypeText(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	return b.run(ctx, expand(b.typeArgv, TextPlaceholder, text))
}

func (b *CommandBackend) PressKey(ctx context.Context, key Key) error {
	return b.run(ctx, expand(b.keyArgv, KeyPlaceholder, key.Keysym()))
}

// Describe renders both templates for logging.
func (b *CommandBackend) Describe() string {
	return shellquote.Join(b.typeArgv...) + " | " + shellquote.Join(b.keyArgv...)
}

// TmuxBackend types into a tmux pane with send-keys.
type TmuxBackend struct {
	target string
	run    runFunc
}

func NewTmux(target string) (*TmuxBackend, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, errors.New("tmux target is required")
	}
	return &TmuxBackend{target: target, run: execRun}, nil
}

func (b *TmuxBackend) TypeText(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	return b.run(ctx, []string{"tmux", "send-keys", "-t", b.target, "-l", "--", text})
}

func (b *TmuxBackend) PressKey(ctx context.Context, key Key) error {
	if key.Code == CodeRune {
		return b.run(ctx, []string{"tmux", "send-keys", "-t", b.target, "-l", "--", key.TmuxName()})
	}
	return b.run(ctx, []string{"tmux", "send-keys", "-t", b.target, key.TmuxName()})
}
