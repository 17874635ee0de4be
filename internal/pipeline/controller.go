// Package pipeline queues transcription tasks and drives each one through
// transcription, correction and persistence.
package pipeline

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/snarg/mallok/internal/metrics"
	"github.com/snarg/mallok/internal/task"
)

// ErrQueueFull is returned by Submit when no queue slot is free.
var ErrQueueFull = errors.New("task queue is full")

// Transcriber produces the raw transcript for a task.
type Transcriber interface {
	Transcribe(ctx context.Context, t task.Task) (string, error)
}

// Corrector produces the final corrected transcript.
type Corrector interface {
	Correct(ctx context.Context, taskID, raw string, ct task.ContentType, lang task.Language) (string, error)
}

// RecordStore persists finished task records.
type RecordStore interface {
	InsertRecord(ctx context.Context, rec *task.Record) error
}

// Archiver keeps a copy of the source audio after transcription.
type Archiver interface {
	Archive(ctx context.Context, t task.Task) error
}

// Publisher receives status transitions.
type Publisher interface {
	Publish(ev task.StatusEvent)
}

// ControllerOptions wires the controller's collaborators. Archiver and
// Publisher are optional.
type ControllerOptions struct {
	Transcriber Transcriber
	Corrector   Corrector
	Store       RecordStore
	Archiver    Archiver
	Publisher   Publisher
	Engine      string

	Workers    int
	QueueSize  int
	JobTimeout time.Duration
	Log        zerolog.Logger
}

// Controller owns the status map and the worker pool.
type Controller struct {
	opts   ControllerOptions
	status *StatusStore
	pool   *WorkerPool
	log    zerolog.Logger

	newID  func() string
	now    func() time.Time
	remove func(string) error
}

func NewController(opts ControllerOptions) *Controller {
	c := &Controller{
		opts:   opts,
		status: NewStatusStore(),
		log:    opts.Log,
		newID:  uuid.NewString,
		now:    time.Now,
		remove: os.Remove,
	}
	c.pool = NewWorkerPool(WorkerPoolOptions{
		Workers:    opts.Workers,
		QueueSize:  opts.QueueSize,
		JobTimeout: opts.JobTimeout,
		Handler:    c.process,
		Log:        opts.Log,
	})
	return c
}

func (c *Controller) Start() { c.pool.Start() }
func (c *Controller) Stop()  { c.pool.Stop() }

// Engine is the "stt+llm" identifier stored on records.
func (c *Controller) Engine() string { return c.opts.Engine }

func (c *Controller) Stats() QueueStats { return c.pool.Stats() }

// Pool exposes the worker pool for queue metrics.
func (c *Controller) Pool() *WorkerPool { return c.pool }

// Status exposes the in-process status map.
func (c *Controller) Status() *StatusStore { return c.status }

// Submit queues audioPath for processing and returns the new task id. The
// pipeline takes ownership of audioPath; on ErrQueueFull the caller keeps it.
func (c *Controller) Submit(userID string, ct task.ContentType, lang task.Language, audioPath string) (string, error) {
	t := task.Task{
		ID:          c.newID(),
		UserID:      userID,
		ContentType: ct,
		Language:    lang,
		AudioPath:   audioPath,
		CreatedAt:   c.now(),
	}
	c.status.Init(t.ID, userID, audioPath)
	if !c.pool.Enqueue(t) {
		c.status.Remove(t.ID)
		return "", ErrQueueFull
	}
	c.publish(t, task.StatusQueued, "")
	c.log.Info().
		Str("task_id", t.ID).
		Str("user_id", userID).
		Str("type", string(ct)).
		Str("lang", string(lang)).
		Msg("task queued")
	return t.ID, nil
}

// LiveStatus returns the in-process state of a task owned by userID.
func (c *Controller) LiveStatus(taskID, userID string) (LiveState, bool) {
	return c.status.Lookup(taskID, userID)
}

func (c *Controller) process(ctx context.Context, log zerolog.Logger, t task.Task) error {
	start := time.Now()
	c.advance(t, task.StatusProcessing, "")

	rec, err := c.run(ctx, log, t)
	if err != nil {
		c.fail(ctx, log, t, err)
		return err
	}

	c.advance(t, task.StatusCompleted, "")
	metrics.TasksTotal.WithLabelValues(string(task.StatusCompleted)).Inc()
	log.Info().
		Int("characters", rec.Characters).
		Dur("elapsed", time.Since(start)).
		Msg("task completed")
	return nil
}

func (c *Controller) run(ctx context.Context, log zerolog.Logger, t task.Task) (*task.Record, error) {
	defer c.removeSource(log, t.AudioPath)

	raw, err := c.opts.Transcriber.Transcribe(ctx, t)
	if err != nil {
		return nil, err
	}
	log.Info().Int("raw_chars", len([]rune(raw))).Msg("transcription done")

	if c.opts.Archiver != nil {
		if err := c.opts.Archiver.Archive(ctx, t); err != nil {
			log.Warn().Err(err).Msg("source archive failed")
		}
	}

	corrected, err := c.opts.Corrector.Correct(ctx, t.ID, raw, t.ContentType, t.Language)
	if err != nil {
		return nil, err
	}

	rec := &task.Record{
		TaskID:        t.ID,
		UserID:        t.UserID,
		Status:        task.StatusCompleted,
		CreatedAt:     c.now(),
		Language:      t.Language,
		RawText:       raw,
		CorrectedText: corrected,
		Characters:    len([]rune(corrected)),
		ContentType:   t.ContentType,
		Engine:        c.opts.Engine,
	}
	if err := c.opts.Store.InsertRecord(ctx, rec); err != nil {
		return nil, &task.PersistenceError{Op: "insert completed record", Err: err}
	}
	return rec, nil
}

// fail records the error state. The durable write is best-effort.
func (c *Controller) fail(ctx context.Context, log zerolog.Logger, t task.Task, cause error) {
	msg := task.UserMessage(cause)
	log.Error().Err(cause).Msg("task failed")

	rec := &task.Record{
		TaskID:      t.ID,
		UserID:      t.UserID,
		Status:      task.StatusError,
		CreatedAt:   c.now(),
		Language:    t.Language,
		ContentType: t.ContentType,
		Engine:      c.opts.Engine,
		Error:       msg,
	}
	// The task context may be what failed; give the error write its own budget.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := c.opts.Store.InsertRecord(wctx, rec); err != nil {
		log.Error().Err(&task.PersistenceError{Op: "insert error record", Err: err}).Msg("failed to persist error state")
	}

	c.advance(t, task.StatusError, msg)
	metrics.TasksTotal.WithLabelValues(string(task.StatusError)).Inc()
}

func (c *Controller) advance(t task.Task, s task.Status, errMsg string) {
	var moved bool
	if s == task.StatusError {
		moved = c.status.Fail(t.ID, errMsg)
	} else {
		moved = c.status.Advance(t.ID, s)
	}
	if moved {
		c.publish(t, s, errMsg)
	}
}

func (c *Controller) publish(t task.Task, s task.Status, errMsg string) {
	if c.opts.Publisher == nil {
		return
	}
	c.opts.Publisher.Publish(task.StatusEvent{
		TaskID: t.ID,
		UserID: t.UserID,
		Status: s,
		Error:  errMsg,
		At:     c.now(),
	})
}

func (c *Controller) removeSource(log zerolog.Logger, path string) {
	if path == "" {
		return
	}
	if err := c.remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", path).Msg("failed to remove source audio")
	}
}
