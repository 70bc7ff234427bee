package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cuestionarios/internal/engine"
	"cuestionarios/internal/model"
	"cuestionarios/internal/store"
)

const (
	DefaultQuietPeriod      = 1500 * time.Millisecond
	DefaultShortQuietPeriod = 500 * time.Millisecond
)

// ErrUnknownQuestion is returned when submitting for a question outside the catalog
var ErrUnknownQuestion = errors.New("question not in catalog")

// ErrReadOnly is returned when submitting to a finalized questionnaire
var ErrReadOnly = errors.New("questionnaire is read-only")

// Persister writes one normalized answer to the backend
type Persister interface {
	SaveAnswer(ctx context.Context, questionID int, respuesta json.RawMessage) error
}

// PersisterFunc adapts a function to Persister
type PersisterFunc func(ctx context.Context, questionID int, respuesta json.RawMessage) error

func (f PersisterFunc) SaveAnswer(ctx context.Context, questionID int, respuesta json.RawMessage) error {
	return f(ctx, questionID, respuesta)
}

// NotifyFunc receives state changes produced by the channel
type NotifyFunc func(eventType model.EventType, payload any)

// Options tunes the quiet periods
type Options struct {
	QuietPeriod      time.Duration
	ShortQuietPeriod time.Duration
}

// Channel debounces answer writes per question and keeps the store in step with
// what reached the backend.
type Channel struct {
	store     *store.Store
	persister Persister
	notify    NotifyFunc
	logger    *zap.Logger
	opts      Options
	tasks     *Coalescer[int]
}

// NewChannel creates a channel over st. notify may be nil.
func NewChannel(ctx context.Context, st *store.Store, persister Persister, notify NotifyFunc, logger *zap.Logger, opts Options) *Channel {
	if opts.QuietPeriod <= 0 {
		opts.QuietPeriod = DefaultQuietPeriod
	}
	if opts.ShortQuietPeriod <= 0 {
		opts.ShortQuietPeriod = DefaultShortQuietPeriod
	}
	if notify == nil {
		notify = func(model.EventType, any) {}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Channel{
		store:     st,
		persister: persister,
		notify:    notify,
		logger:    logger.Named("sync"),
		opts:      opts,
		tasks:     NewCoalescer[int](ctx),
	}
}

// Submit records answer locally right away and schedules its write. An answer
// that fails validation never reaches the backend; the question is flagged as
// unanswered instead and any pending write for it is dropped.
func (c *Channel) Submit(questionID int, answer model.Answer) error {
	q, ok := c.store.Catalog().Question(questionID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownQuestion, questionID)
	}
	if !engine.KnownType(q.Tipo) {
		c.logger.Error("unknown question type", zap.Int("pregunta", questionID), zap.String("tipo", string(q.Tipo)))
		return fmt.Errorf("pregunta %d: %w", questionID, engine.ErrUnknownQuestionType)
	}
	if c.store.Finalized() {
		return ErrReadOnly
	}

	c.store.SetAnswer(questionID, answer)

	if !engine.IsValid(answer, q.Tipo, q) {
		c.tasks.Cancel(questionID)
		c.reject(q)
		return nil
	}

	c.store.ClearUnanswered(questionID)
	c.setState(questionID, model.SubmissionPending, nil)
	return c.tasks.Schedule(questionID, c.quietPeriod(q), c.writeTask(q, answer))
}

// Retry re-sends the current local answer of a question without waiting
func (c *Channel) Retry(questionID int) error {
	q, ok := c.store.Catalog().Question(questionID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownQuestion, questionID)
	}
	if c.store.Finalized() {
		return ErrReadOnly
	}
	answer, _ := c.store.Answer(questionID)
	if !engine.IsValid(answer, q.Tipo, q) {
		c.reject(q)
		return nil
	}

	c.setState(questionID, model.SubmissionRetrying, nil)
	return c.tasks.Schedule(questionID, 0, c.writeTask(q, answer))
}

// Flush sends every pending write now and waits for them
func (c *Channel) Flush(ctx context.Context) error {
	return c.tasks.Flush(ctx)
}

// Pending returns the number of questions with a write scheduled or in flight
func (c *Channel) Pending() int {
	return c.tasks.Pending()
}

// Close aborts every pending and in-flight write
func (c *Channel) Close() {
	c.tasks.Close()
}

func (c *Channel) quietPeriod(q *model.Question) time.Duration {
	if engine.UsesShortQuietPeriod(q.Tipo) {
		return c.opts.ShortQuietPeriod
	}
	return c.opts.QuietPeriod
}

func (c *Channel) reject(q *model.Question) {
	msg := engine.UnansweredMessage(q)
	c.store.MarkUnanswered(q.ID, msg)
	c.store.MarkSubmissionState(q.ID, model.SubmissionNone)
	c.notify(model.EventValidation, model.ValidationEvent{Pregunta: q.ID, Message: msg})
	c.notify(model.EventProgress, c.store.Progress())
}

func (c *Channel) writeTask(q *model.Question, answer model.Answer) Task {
	return func(ctx context.Context) {
		// The local value may have changed to something invalid since scheduling.
		if current, ok := c.store.Answer(q.ID); ok && !engine.IsValid(current, q.Tipo, q) {
			return
		}

		normalized, err := engine.Normalize(q, answer)
		if err != nil {
			c.logger.Error("normalize failed", zap.Int("pregunta", q.ID), zap.Error(err))
			c.setState(q.ID, model.SubmissionError, err)
			return
		}

		if ctx.Err() != nil {
			return
		}
		c.setState(q.ID, model.SubmissionLoading, nil)
		err = c.persister.SaveAnswer(ctx, q.ID, normalized.Payload)
		if ctx.Err() != nil {
			// Superseded by a newer edit or the session closed.
			c.logger.Debug("write aborted", zap.Int("pregunta", q.ID))
			return
		}
		if err != nil {
			c.logger.Warn("save answer failed", zap.Int("pregunta", q.ID), zap.Error(err))
			c.setState(q.ID, model.SubmissionError, err)
			return
		}

		c.setState(q.ID, model.SubmissionSuccess, nil)
		if unlocked, changed := c.store.RecomputeUnlocked(); changed {
			c.notify(model.EventUnlocked, model.UnlockedEvent{Preguntas: unlocked.Sorted()})
		}
		c.notify(model.EventProgress, c.store.Progress())
	}
}

func (c *Channel) setState(questionID int, state model.SubmissionState, err error) {
	c.store.MarkSubmissionState(questionID, state)
	ev := model.SubmissionEvent{Pregunta: questionID, State: state}
	if err != nil {
		ev.Error = err.Error()
	}
	c.notify(model.EventSubmissionState, ev)
}
