// Package history persists a summary of every playback run.
package history

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/user/lrctype/internal/db"
	"github.com/user/lrctype/internal/playback"
)

const queueSize = 256

type Store interface {
	Create(ctx context.Context, run *db.Run) error
	Finish(ctx context.Context, runID string, status string, fired int, finishedAt time.Time) error
	RecordError(ctx context.Context, item *db.RunError) error
}

// Meta describes what a run is playing, captured when it starts.
type Meta struct {
	LRCPath    string
	Title      string
	SequenceID string
}

type entry struct {
	ev   playback.Event
	meta Meta
}

// Recorder is a playback observer. Notify only queues the event; Run writes
// queued events to the store on its own goroutine.
type Recorder struct {
	store    Store
	describe func() Meta
	logger   *slog.Logger
	events   chan entry
	dropped  atomic.Int64
}

func New(store Store, describe func() Meta, logger *slog.Logger) *Recorder {
	if describe == nil {
		describe = func() Meta { return Meta{} }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:    store,
		describe: describe,
		logger:   logger,
		events:   make(chan entry, queueSize),
	}
}

func (r *Recorder) Notify(ev playback.Event) {
	if ev.RunID == "" {
		return
	}
	switch ev.Type {
	case playback.EventStarted, playback.EventError,
		playback.EventCompleted, playback.EventStopped, playback.EventHalted:
	default:
		return
	}
	e := entry{ev: ev}
	if ev.Type == playback.EventStarted {
		e.meta = r.describe()
	}
	select {
	case r.events <- e:
	default:
		r.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded because the queue was full.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Run drains the queue until ctx is done, then flushes what is left.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.flush()
			return
		case e := <-r.events:
			r.handle(ctx, e)
		}
	}
}

func (r *Recorder) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		select {
		case e := <-r.events:
			r.handle(ctx, e)
		default:
			return
		}
	}
}

func (r *Recorder) handle(ctx context.Context, e entry) {
	ev := e.ev
	var err error
	switch ev.Type {
	case playback.EventStarted:
		err = r.store.Create(ctx, &db.Run{
			ID:         ev.RunID,
			LRCPath:    e.meta.LRCPath,
			Title:      e.meta.Title,
			SequenceID: e.meta.SequenceID,
			Status:     db.RunStatusRunning,
			Total:      ev.Total,
			StartedAt:  ev.At,
		})
	case playback.EventError:
		err = r.store.RecordError(ctx, &db.RunError{
			RunID:       ev.RunID,
			RecordIndex: ev.Index,
			Kind:        string(ev.ErrorKind),
			Message:     ev.Message,
			CreatedAt:   ev.At,
		})
	case playback.EventCompleted:
		err = r.store.Finish(ctx, ev.RunID, db.RunStatusCompleted, ev.Fired, ev.At)
	case playback.EventStopped:
		err = r.store.Finish(ctx, ev.RunID, db.RunStatusStopped, ev.Fired, ev.At)
	case playback.EventHalted:
		err = r.store.Finish(ctx, ev.RunID, db.RunStatusHalted, ev.Fired, ev.At)
	}
	if err != nil {
		r.logger.Warn("record run history", "run_id", ev.RunID, "event", ev.Type, "error", err)
	}
}
