package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/user/lrctype/internal/action"
	"github.com/user/lrctype/internal/api"
	"github.com/user/lrctype/internal/clock"
	"github.com/user/lrctype/internal/config"
	"github.com/user/lrctype/internal/db"
	"github.com/user/lrctype/internal/history"
	"github.com/user/lrctype/internal/hub"
	"github.com/user/lrctype/internal/lrc"
	"github.com/user/lrctype/internal/playback"
	"github.com/user/lrctype/internal/sequence"
	"github.com/user/lrctype/internal/server"
	"github.com/user/lrctype/internal/trigger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		slog.Error("failed to load config", "error", err)
		os.Exit(2)
	}

	level, _ := cfg.SlogLevel()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if err := run(cfg); err != nil {
		slog.Error("lrctype exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var database *db.DB
	if cfg.DBPath != "" {
		var err error
		database, err = db.Open(ctx, cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open history db: %w", err)
		}
		defer database.Close()
	}

	if cfg.History > 0 {
		if database == nil {
			return errors.New("-history needs a database; set -db")
		}
		return printHistory(ctx, os.Stdout, database.Runs(), cfg.History)
	}

	registry, err := sequence.NewRegistry(cfg.SequencesDir)
	if err != nil {
		return fmt.Errorf("load sequences: %w", err)
	}

	if cfg.ImportSequence != "" {
		return importSequence(registry, cfg.ImportSequence, cfg.ImportAs)
	}

	if database != nil {
		if n, err := database.Runs().MarkInterrupted(ctx); err != nil {
			slog.Warn("mark interrupted runs", "error", err)
		} else if n > 0 {
			slog.Info("marked interrupted runs as stopped", "count", n)
		}
	}

	selected := registry.Get(cfg.Sequence)
	if selected == nil {
		return fmt.Errorf("sequence %q not found in %s", cfg.Sequence, cfg.SequencesDir)
	}

	backend, closeBackend, err := newBackend(cfg)
	if err != nil {
		return fmt.Errorf("input backend: %w", err)
	}
	defer closeBackend()

	var wg sync.WaitGroup
	defer wg.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var controller *playback.Controller
	observers := playback.Observers{playback.LogObserver(slog.Default())}

	var h *hub.Hub
	if cfg.Listen {
		h = hub.New(cfg.Token, controlsFunc(func() hub.Controls { return controller }))
		observers = append(observers, h)
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Run(ctx)
		}()
	}

	var recorder *history.Recorder
	if database != nil {
		recorder = history.New(database.Runs(), func() history.Meta {
			meta := history.Meta{}
			if controller == nil {
				return meta
			}
			meta.SequenceID, _ = controller.Sequence()
			if lyrics := controller.Lyrics(); lyrics != nil {
				meta.LRCPath = lyrics.Path
				meta.Title = lyrics.Tags.Title
			}
			return meta
		}, slog.Default())
		observers = append(observers, recorder)
		recorderCtx, stopRecorder := context.WithCancel(context.Background())
		recorderDone := make(chan struct{})
		go func() {
			recorder.Run(recorderCtx)
			close(recorderDone)
		}()
		defer func() {
			stopRecorder()
			<-recorderDone
			if n := recorder.Dropped(); n > 0 {
				slog.Warn("history events dropped", "count", n)
			}
		}()
	}

	sched := playback.New(action.NewExecutor(backend, clock.Real()), playback.Options{
		Tick:                   cfg.Tick,
		MaxConsecutiveFailures: cfg.MaxFailures,
		Observer:               observers,
		Logger:                 slog.Default(),
	})
	defer sched.Close()

	controller = playback.NewController(sched, slog.Default())
	controller.SetSequence(selected.ID, selected.Actions)

	if cfg.LRCPath != "" {
		if _, err := controller.Load(cfg.LRCPath); err != nil {
			return fmt.Errorf("load lyrics: %w", err)
		}
		if cfg.Watch {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := lrc.Watch(ctx, cfg.LRCPath, controller.SetLyrics, func(err error) {
					slog.Warn("reload lyrics", "path", cfg.LRCPath, "error", err)
				})
				if err != nil {
					slog.Error("watch lyrics", "path", cfg.LRCPath, "error", err)
				}
			}()
		}
	} else if !cfg.Listen {
		return errors.New("no LRC file given; pass one or use -listen to load lyrics over HTTP")
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		trigger.Signals(ctx, controller, slog.Default())
	}()

	errCh := make(chan error, 2)
	if cfg.Listen {
		handler := api.NewRouter(api.Options{
			Controller: controller,
			Sequences:  registry,
			Runs:       runRepo(database),
			Token:      cfg.Token,
			Logger:     slog.Default(),
		})
		srv := server.New(server.Addr(cfg.Host, cfg.Port), h.HandleWebSocket, handler, slog.Default())
		if cfg.PrintToken {
			fmt.Printf("\nlrctype API at http://%s:%d/api/status?token=%s\n\n", cfg.Host, cfg.Port, cfg.Token)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Start(ctx); err != nil {
				errCh <- fmt.Errorf("server: %w", err)
			}
		}()
	}

	if cfg.Hotkeys {
		term, err := trigger.NewTerminal(os.Stdin, cfg.StartKey, cfg.StopKey, controller, slog.Default())
		switch {
		case errors.Is(err, trigger.ErrNotTerminal):
			slog.Info("stdin is not a terminal; hotkeys disabled")
		case err != nil:
			return fmt.Errorf("hotkeys: %w", err)
		default:
			fmt.Fprintf(os.Stderr, "%s starts, %s stops, q quits\r\n", cfg.StartKey, cfg.StopKey)
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := term.Run(ctx)
				if errors.Is(err, trigger.ErrQuit) {
					cancel()
					return
				}
				if err != nil {
					errCh <- err
				}
			}()
		}
	}

	slog.Info("lrctype ready", "backend", cfg.Backend, "sequence", selected.ID, "listen", cfg.Listen)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		cancel()
		controller.Stop()
		return err
	}
	controller.Stop()
	return nil
}

// controlsFunc defers resolving the controller until the first websocket
// message, since the hub is built before the scheduler it observes.
type controlsFunc func() hub.Controls

func (f controlsFunc) Start() error            { return f().Start() }
func (f controlsFunc) Stop()                   { f().Stop() }
func (f controlsFunc) Toggle() error           { return f().Toggle() }
func (f controlsFunc) Status() playback.Status { return f().Status() }

func runRepo(database *db.DB) *db.RunRepo {
	if database == nil {
		return nil
	}
	return database.Runs()
}

func importSequence(registry *sequence.Registry, path, id string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read legacy sequence: %w", err)
	}
	seq, err := registry.ImportLegacy(id, "", data)
	if err != nil {
		return err
	}
	fmt.Printf("imported %s: %s\n", seq.ID, seq.Actions)
	return nil
}
