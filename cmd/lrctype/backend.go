package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kballard/go-shellquote"
	"github.com/user/lrctype/internal/config"
	"github.com/user/lrctype/internal/inject"
)

func newBackend(cfg *config.Config) (inject.Backend, func(), error) {
	noop := func() {}
	switch cfg.Backend {
	case config.BackendXdotool:
		return inject.NewXdotool(), noop, nil
	case config.BackendWtype:
		return inject.NewWtype(), noop, nil
	case config.BackendCommand:
		b, err := inject.NewCommand(cfg.TypeCommand, cfg.KeyCommand)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("command backend", "commands", b.Describe())
		return b, noop, nil
	case config.BackendTmux:
		b, err := inject.NewTmux(cfg.TmuxTarget)
		if err != nil {
			return nil, nil, err
		}
		return b, noop, nil
	case config.BackendPTY:
		argv, err := shellquote.Split(cfg.PTYCommand)
		if err != nil {
			return nil, nil, fmt.Errorf("parse pty command: %w", err)
		}
		b, err := inject.NewPTY(argv, os.Stdout)
		if err != nil {
			return nil, nil, fmt.Errorf("start %q: %w", cfg.PTYCommand, err)
		}
		return b, func() {
			if err := b.Close(); err != nil {
				slog.Warn("close pty target", "error", err)
			}
		}, nil
	case config.BackendDryRun:
		return inject.DryRun{Logger: slog.Default()}, noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
