package playback

import (
	"log/slog"
	"sync"

	"github.com/user/lrctype/internal/action"
	"github.com/user/lrctype/internal/lrc"
)

// Controller binds the loaded lyrics and the selected sequence to a
// scheduler. Trigger sources call Start and Stop without knowing either.
type Controller struct {
	scheduler *Scheduler
	logger    *slog.Logger

	mu         sync.RWMutex
	lyrics     *lrc.Lyrics
	sequenceID string
	sequence   action.Sequence
}

func NewController(scheduler *Scheduler, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		scheduler:  scheduler,
		logger:     logger,
		sequenceID: "default",
		sequence:   action.Default(),
	}
}

// Load parses path and makes it the lyrics used by the next Start.
func (c *Controller) Load(path string) (*lrc.Lyrics, error) {
	lyrics, err := lrc.Load(path)
	if err != nil {
		return nil, err
	}
	c.SetLyrics(lyrics)
	return lyrics, nil
}

// SetLyrics replaces the loaded lyrics. A running session keeps the records
// it started with.
func (c *Controller) SetLyrics(lyrics *lrc.Lyrics) {
	c.mu.Lock()
	c.lyrics = lyrics
	c.mu.Unlock()
	if lyrics != nil {
		c.logger.Info("lyrics loaded", "path", lyrics.Path, "records", lyrics.Len(), "title", lyrics.Tags.Title)
	}
}

func (c *Controller) Lyrics() *lrc.Lyrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lyrics
}

func (c *Controller) SetSequence(id string, seq action.Sequence) {
	c.mu.Lock()
	c.sequenceID = id
	c.sequence = seq.Clone()
	c.mu.Unlock()
	c.logger.Info("sequence selected", "sequence", id, "steps", len(seq))
}

func (c *Controller) Sequence() (string, action.Sequence) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sequenceID, c.sequence.Clone()
}

// Start is the "start" trigger.
func (c *Controller) Start() error {
	c.mu.RLock()
	var records []lrc.Record
	if c.lyrics != nil {
		records = c.lyrics.Records
	}
	seq := c.sequence
	c.mu.RUnlock()
	return c.scheduler.Start(records, seq)
}

// Stop is the "stop" trigger.
func (c *Controller) Stop() {
	c.scheduler.Stop()
}

// Toggle starts when idle and stops when running.
func (c *Controller) Toggle() error {
	if c.scheduler.Running() {
		c.Stop()
		return nil
	}
	return c.Start()
}

func (c *Controller) Status() Status {
	return c.scheduler.Status()
}
