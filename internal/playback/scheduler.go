// Package playback runs the timing loop that fires an action sequence for
// every lyric record at its offset from the moment playback started.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/lrctype/internal/action"
	"github.com/user/lrctype/internal/clock"
	"github.com/user/lrctype/internal/lrc"
)

const (
	DefaultTick                   = 10 * time.Millisecond
	DefaultMaxConsecutiveFailures = 5
)

var (
	ErrNoRecords = errors.New("no records loaded")
	ErrClosed    = errors.New("scheduler closed")
)

type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

type Options struct {
	Clock clock.Clock
	// Tick is the poll interval while waiting for the next record.
	Tick time.Duration
	// MaxConsecutiveFailures halts a run after that many failed records in
	// a row. Zero never halts.
	MaxConsecutiveFailures int
	Observer               Observer
	Logger                 *slog.Logger
}

type Status struct {
	State     State         `json:"state"`
	RunID     string        `json:"run_id,omitempty"`
	Index     int           `json:"index"`
	Total     int           `json:"total"`
	StartedAt *time.Time    `json:"started_at,omitempty"`
	Elapsed   time.Duration `json:"-"`
	ElapsedMS int64         `json:"elapsed_ms"`
}

type session struct {
	runID   string
	records []lrc.Record
	seq     action.Sequence
	start   time.Time
	index   int
	stopped bool
	done    chan struct{}
}

// Scheduler owns at most one running session. Start and Stop never block;
// the loop runs on its own goroutine and reports through the observer.
type Scheduler struct {
	exec        *action.Executor
	clock       clock.Clock
	tick        time.Duration
	maxFailures int
	observer    Observer
	logger      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	state   State
	current *session
	closed  bool
}

func New(exec *action.Executor, opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.MaxConsecutiveFailures < 0 {
		opts.MaxConsecutiveFailures = 0
	}
	if opts.Observer == nil {
		opts.Observer = Observers(nil)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		exec:        exec,
		clock:       opts.Clock,
		tick:        opts.Tick,
		maxFailures: opts.MaxConsecutiveFailures,
		observer:    opts.Observer,
		logger:      opts.Logger,
		ctx:         ctx,
		cancel:      cancel,
		state:       StateIdle,
	}
}

// Start begins playback of records from the current instant. It is a no-op
// while a session is running. An empty record list is refused with
// ErrNoRecords, which is also reported to the observer.
func (s *Scheduler) Start(records []lrc.Record, seq action.Sequence) error {
	if len(records) == 0 {
		s.observer.Notify(Event{
			Type:      EventError,
			Index:     NoIndex,
			ErrorKind: ErrorNoRecords,
			Message:   ErrNoRecords.Error(),
			At:        s.clock.Now(),
		})
		return ErrNoRecords
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state == StateRunning {
		s.mu.Unlock()
		return nil
	}
	prev := s.current
	sess := &session{
		runID:   uuid.NewString(),
		records: append([]lrc.Record(nil), records...),
		seq:     seq.Clone(),
		start:   s.clock.Now(),
		done:    make(chan struct{}),
	}
	s.current = sess
	s.state = StateRunning
	s.mu.Unlock()

	go s.loop(prev, sess)
	return nil
}

// Stop ends the running session. The scheduler is Idle when Stop returns;
// the loop exits after any in-flight sequence finishes.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning || s.current == nil {
		return
	}
	s.current.stopped = true
	s.state = StateIdle
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning || s.current == nil {
		return Status{State: StateIdle}
	}
	sess := s.current
	started := sess.start
	elapsed := s.clock.Now().Sub(started)
	return Status{
		State:     StateRunning,
		RunID:     sess.runID,
		Index:     sess.index,
		Total:     len(sess.records),
		StartedAt: &started,
		Elapsed:   elapsed,
		ElapsedMS: elapsed.Milliseconds(),
	}
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateRunning
}

// Wait blocks until the most recent session's loop has exited.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	sess := s.current
	s.mu.Unlock()
	if sess != nil {
		<-sess.done
	}
}

// Close stops playback, interrupts any wait in progress and waits for the
// loop to exit. Start fails with ErrClosed afterwards.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.Stop()
	s.cancel()
	s.Wait()
}

func (s *Scheduler) loop(prev, sess *session) {
	defer close(sess.done)
	if prev != nil {
		<-prev.done
	}

	total := len(sess.records)
	s.observer.Notify(Event{Type: EventStarted, RunID: sess.runID, Index: NoIndex, Total: total, At: s.clock.Now()})
	s.logger.Debug("playback loop started", "run_id", sess.runID, "records", total, "tick", s.tick)

	failures := 0
	for {
		s.mu.Lock()
		stopped := sess.stopped
		idx := sess.index
		s.mu.Unlock()

		if stopped || s.ctx.Err() != nil {
			s.finish(sess, EventStopped, idx)
			return
		}
		if idx >= total {
			s.finish(sess, EventCompleted, idx)
			return
		}

		rec := sess.records[idx]
		if s.clock.Now().Sub(sess.start) < rec.Offset {
			// Interrupted only by Close; the next check reports stopped.
			_ = s.clock.Sleep(s.ctx, s.tick)
			continue
		}

		s.observer.Notify(Event{Type: EventActivated, RunID: sess.runID, Index: idx, Total: total, Text: rec.Text, At: s.clock.Now()})
		err := s.exec.RunSequence(s.ctx, sess.seq, rec.Text)

		s.mu.Lock()
		sess.index++
		s.mu.Unlock()

		if err == nil {
			failures = 0
			continue
		}
		if s.ctx.Err() != nil {
			continue
		}
		failures++
		s.observer.Notify(Event{
			Type:      EventError,
			RunID:     sess.runID,
			Index:     idx,
			Total:     total,
			ErrorKind: classifyError(err),
			Message:   fmt.Sprintf("record %d: %v", idx, err),
			At:        s.clock.Now(),
		})
		if s.maxFailures > 0 && failures >= s.maxFailures {
			s.observer.Notify(Event{
				Type:      EventError,
				RunID:     sess.runID,
				Index:     idx,
				Total:     total,
				ErrorKind: ErrorHalted,
				Message:   fmt.Sprintf("halted after %d consecutive failures", failures),
				At:        s.clock.Now(),
			})
			s.finish(sess, EventHalted, idx+1)
			return
		}
	}
}

// finish returns the scheduler to Idle when sess is still the active run,
// clears the highlight and reports how the run ended.
func (s *Scheduler) finish(sess *session, how EventType, fired int) {
	s.mu.Lock()
	sess.stopped = true
	if s.current == sess {
		s.state = StateIdle
	}
	s.mu.Unlock()

	now := s.clock.Now()
	total := len(sess.records)
	s.observer.Notify(Event{Type: EventActivated, RunID: sess.runID, Index: NoIndex, Total: total, At: now})
	s.observer.Notify(Event{Type: how, RunID: sess.runID, Index: NoIndex, Total: total, Fired: fired, At: now})
	s.logger.Debug("playback loop exited", "run_id", sess.runID, "result", how, "fired", fired)
}
