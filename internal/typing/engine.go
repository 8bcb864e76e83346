// Package typing runs the timed typing assessment.
//
// The engine is a plain state machine. It never starts timers; the caller
// delivers one Tick per elapsed second.
package typing

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verte-zerg/typegate/internal/model"
)

// DefaultDurationSec is the session clock start value.
const DefaultDurationSec = 600

// State is an engine lifecycle state.
type State int

const (
	Idle State = iota
	Loading
	Running
	Ended
	Reviewing
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Running:
		return "running"
	case Ended:
		return "ended"
	case Reviewing:
		return "reviewing"
	default:
		return "idle"
	}
}

var (
	ErrNotIdle         = errors.New("assessment already in progress")
	ErrNotRunning      = errors.New("assessment is not running")
	ErrNotEnded        = errors.New("assessment has not ended")
	ErrIndexOutOfRange = errors.New("sentence index out of range")
)

// ContentSource produces the text for a topic.
type ContentSource interface {
	Generate(topic string, length int) (string, error)
}

// Session is the ephemeral state of one assessment.
type Session struct {
	ID              string
	Topic           string
	Content         string
	Sentences       []string
	UserInputs      []string
	TimeLeftSeconds int
	TotalChars      int
	StartedAt       time.Time
	EndedAt         time.Time
}

// Options configures an Engine. Zero values take the defaults.
type Options struct {
	DurationSec   int
	ContentLength int
}

// Engine drives a single assessment at a time.
type Engine struct {
	src      ContentSource
	log      *zap.Logger
	duration int
	length   int
	now      func() time.Time

	state   State
	session *Session
	final   model.Stats
}

// New constructs an idle Engine.
func New(src ContentSource, log *zap.Logger, opts Options) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.DurationSec <= 0 {
		opts.DurationSec = DefaultDurationSec
	}
	return &Engine{
		src:      src,
		log:      log,
		duration: opts.DurationSec,
		length:   opts.ContentLength,
		now:      time.Now,
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return e.state
}

// Session returns the live session, or nil when idle.
func (e *Engine) Session() *Session {
	return e.session
}

// Begin generates content for topic and starts the clock.
func (e *Engine) Begin(topic string) (*Session, error) {
	if e.state != Idle {
		return nil, ErrNotIdle
	}
	e.state = Loading
	content, err := e.src.Generate(topic, e.length)
	if err != nil {
		e.state = Idle
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	sentences := SplitSentences(content)
	e.session = &Session{
		ID:              uuid.NewString(),
		Topic:           topic,
		Content:         content,
		Sentences:       sentences,
		UserInputs:      make([]string, len(sentences)),
		TimeLeftSeconds: e.duration,
		TotalChars:      utf8.RuneCountInString(content),
		StartedAt:       e.now(),
	}
	e.final = model.Stats{}
	e.state = Running
	e.log.Info("assessment started",
		zap.String("session", e.session.ID),
		zap.String("topic", topic),
		zap.Int("sentences", len(sentences)),
		zap.Int("total_chars", e.session.TotalChars),
	)
	return e.session, nil
}

// RecordInput replaces the typed text for one sentence.
func (e *Engine) RecordInput(index int, text string) error {
	if e.state != Running {
		return ErrNotRunning
	}
	if index < 0 || index >= len(e.session.UserInputs) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	e.session.UserInputs[index] = text
	return nil
}

// Tick decrements the clock by one second and ends the session when it runs
// out. Ticks outside Running are ignored, so termination happens once.
func (e *Engine) Tick() (ended bool) {
	if e.state != Running {
		return false
	}
	e.session.TimeLeftSeconds--
	if e.session.TimeLeftSeconds <= 0 {
		e.session.TimeLeftSeconds = 0
		_, err := e.End()
		return err == nil
	}
	return false
}

// End stops the clock, freezes input and returns the final stats.
func (e *Engine) End() (model.Stats, error) {
	if e.state != Running {
		return model.Stats{}, ErrNotRunning
	}
	e.session.EndedAt = e.now()
	e.final = e.ComputeStats()
	e.state = Ended
	e.log.Info("assessment ended",
		zap.String("session", e.session.ID),
		zap.Int("correct", e.final.CorrectChars),
		zap.Int("errors", e.final.ErrorChars),
		zap.Int("wpm", e.final.WPM),
		zap.Int("accuracy", e.final.AccuracyPercent),
		zap.Duration("elapsed", e.session.EndedAt.Sub(e.session.StartedAt)),
	)
	return e.final, nil
}

// ComputeStats scores the current inputs. It has no side effects.
func (e *Engine) ComputeStats() model.Stats {
	if e.session == nil {
		return model.Stats{}
	}
	return Score(e.session.Sentences, e.session.UserInputs, e.session.TotalChars)
}

// Result returns the stats frozen by End.
func (e *Engine) Result() (model.Stats, error) {
	if e.state != Ended && e.state != Reviewing {
		return model.Stats{}, ErrNotEnded
	}
	return e.final, nil
}

// Review returns the per-character reconstruction of the ended session and
// moves to Reviewing.
func (e *Engine) Review() ([]model.ReviewLine, error) {
	if e.state != Ended && e.state != Reviewing {
		return nil, ErrNotEnded
	}
	e.state = Reviewing
	lines := make([]model.ReviewLine, len(e.session.Sentences))
	for i, original := range e.session.Sentences {
		lines[i] = ReviewSentence(i, original, e.session.UserInputs[i])
	}
	return lines, nil
}

// BackToResult leaves the review.
func (e *Engine) BackToResult() error {
	if e.state != Reviewing {
		return ErrNotEnded
	}
	e.state = Ended
	return nil
}

// Reset discards the session and returns to Idle.
func (e *Engine) Reset() {
	if e.session != nil && e.state == Running {
		e.log.Info("assessment abandoned", zap.String("session", e.session.ID))
	}
	e.session = nil
	e.final = model.Stats{}
	e.state = Idle
}
