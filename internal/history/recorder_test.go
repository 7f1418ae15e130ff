package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/lrctype/internal/action"
	"github.com/user/lrctype/internal/clock"
	"github.com/user/lrctype/internal/db"
	"github.com/user/lrctype/internal/inject"
	"github.com/user/lrctype/internal/lrc"
	"github.com/user/lrctype/internal/playback"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func runRecorder(t *testing.T, rec *Recorder) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rec.Run(ctx)
		close(done)
	}()
	return func() {
		cancel()
		<-done
	}
}

func TestRecorderStoresRunAndErrors(t *testing.T) {
	database := openTestDB(t)
	runs := database.Runs()
	meta := Meta{LRCPath: "/tmp/song.lrc", Title: "Song", SequenceID: "default"}
	rec := New(runs, func() Meta { return meta }, nil)
	stop := runRecorder(t, rec)

	clk := clock.NewFake(time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC))
	backend := &inject.Recorder{Fail: func(ev inject.Event) error {
		if ev.Value == "bad" {
			return errors.New("refused")
		}
		return nil
	}}
	sched := playback.New(action.NewExecutor(backend, clk), playback.Options{Clock: clk, Observer: rec})
	defer sched.Close()

	records := []lrc.Record{{Text: "one"}, {Offset: time.Second, Text: "bad"}, {Offset: 2 * time.Second, Text: "three"}}
	if err := sched.Start(records, action.Default()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	sched.Wait()
	stop()

	list, err := runs.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("runs = %d, want 1", len(list))
	}
	run := list[0]
	if run.Status != db.RunStatusCompleted || run.Fired != 3 || run.Total != 3 || run.ErrorCount != 1 {
		t.Fatalf("run = %#v", run)
	}
	if run.Title != "Song" || run.LRCPath != "/tmp/song.lrc" || run.SequenceID != "default" {
		t.Fatalf("run meta = %#v", run)
	}
	if run.Duration() != 2*time.Second {
		t.Fatalf("run duration = %v, want 2s", run.Duration())
	}

	errs, err := runs.ListErrors(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("ListErrors() error = %v", err)
	}
	if len(errs) != 1 || errs[0].RecordIndex != 1 || errs[0].Kind != string(playback.ErrorInjection) {
		t.Fatalf("errors = %#v", errs)
	}
}

type countingStore struct {
	created int
}

func (s *countingStore) Create(context.Context, *db.Run) error {
	s.created++
	return nil
}

func (s *countingStore) Finish(context.Context, string, string, int, time.Time) error {
	return nil
}

func (s *countingStore) RecordError(context.Context, *db.RunError) error {
	return nil
}

func TestRecorderIgnoresUntrackedEventsAndFlushesOnCancel(t *testing.T) {
	store := &countingStore{}
	rec := New(store, nil, nil)

	rec.Notify(playback.Event{Type: playback.EventError, Index: playback.NoIndex, ErrorKind: playback.ErrorNoRecords})
	rec.Notify(playback.Event{Type: playback.EventActivated, RunID: "r", Index: 0})
	rec.Notify(playback.Event{Type: playback.EventStarted, RunID: "r"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec.Run(ctx)

	if store.created != 1 {
		t.Fatalf("created = %d, want 1", store.created)
	}
}

func TestRecorderDropsWhenQueueIsFull(t *testing.T) {
	rec := New(&countingStore{}, nil, nil)
	for i := 0; i < queueSize+5; i++ {
		rec.Notify(playback.Event{Type: playback.EventError, RunID: "r", Index: i})
	}
	if got := rec.Dropped(); got != 5 {
		t.Fatalf("Dropped() = %d, want 5", got)
	}
}
