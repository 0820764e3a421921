// Package conversation runs the dialogue that turns what the user says into
// a playlist request.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tunetalk/tunetalk/internal/ai"
	"github.com/tunetalk/tunetalk/internal/extract"
	"github.com/tunetalk/tunetalk/internal/history"
	"github.com/tunetalk/tunetalk/internal/prompt"
	"github.com/tunetalk/tunetalk/internal/request"
)

const (
	// DefaultHistoryWindow is how many recent turns feed a clarification prompt.
	DefaultHistoryWindow = 6

	fallbackGreeting      = "Hey! I'm your playlist assistant. Tell me what kind of music you're in the mood for."
	fallbackClarification = "Sorry, I couldn't quite work that out. Could you describe the genres, artists or mood you're after?"
	revisePrompt          = "No problem! Tell me what you'd like instead."

	userPrompt    = "You: "
	confirmPrompt = "Create this playlist? [Y/n] "
)

// ErrGaveUp is matched by every *GaveUpError.
var ErrGaveUp = errors.New("conversation gave up")

// GaveUpError ends a conversation that produced no request.
type GaveUpError struct {
	Reason string
}

func (e *GaveUpError) Error() string {
	return "conversation gave up: " + e.Reason
}

func (e *GaveUpError) Is(target error) bool {
	return target == ErrGaveUp
}

// State is a step of the conversation.
type State int

const (
	StateStart State = iota
	StateAwaitingInput
	StateConfirming
	StateDone
	StateGaveUp
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateAwaitingInput:
		return "awaiting_input"
	case StateConfirming:
		return "confirming"
	case StateDone:
		return "done"
	case StateGaveUp:
		return "gave_up"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Reader supplies user input one line at a time.
type Reader interface {
	ReadLine(prompt string) (string, error)
}

// Writer shows conversation output.
type Writer interface {
	Assistant(text string)
	Info(msg string)
	Warn(msg string)
}

// Config tunes a Loop. Zero values use the defaults.
type Config struct {
	MaxAttempts   int
	HistoryWindow int
	Confirm       bool
}

// Loop is a single conversation. It is not safe for concurrent use.
type Loop struct {
	gen    ai.Generator
	in     Reader
	out    Writer
	log    logrus.FieldLogger
	cfg    Config
	policy RetryPolicy

	id       string
	history  history.Log
	state    State
	failures int
	reason   string
	pending  request.PlaylistRequest
}

// NewLoop creates a conversation in the Start state.
func NewLoop(gen ai.Generator, in Reader, out Writer, cfg Config, log logrus.FieldLogger) *Loop {
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = DefaultHistoryWindow
	}
	id := uuid.New().String()
	return &Loop{
		gen:    gen,
		in:     in,
		out:    out,
		cfg:    cfg,
		policy: RetryPolicy{MaxAttempts: cfg.MaxAttempts},
		id:     id,
		log:    log.WithFields(logrus.Fields{"session": id, "provider": gen.Name()}),
		state:  StateStart,
	}
}

// SessionID identifies this conversation in logs.
func (l *Loop) SessionID() string { return l.id }

// State returns the current state.
func (l *Loop) State() State { return l.state }

// History returns a copy of every turn so far.
func (l *Loop) History() []history.Turn { return l.history.Turns() }

// UserText joins everything the user has said.
func (l *Loop) UserText() string { return l.history.UserText() }

// Run drives the conversation until a request is accepted, the retry
// budget runs out, input ends or ctx is cancelled.
func (l *Loop) Run(ctx context.Context) (request.PlaylistRequest, error) {
	for {
		if err := ctx.Err(); err != nil {
			return request.PlaylistRequest{}, err
		}

		switch l.state {
		case StateStart:
			l.greet(ctx)
			l.transition(StateAwaitingInput)

		case StateAwaitingInput:
			if err := l.awaitInput(ctx); err != nil {
				return request.PlaylistRequest{}, err
			}

		case StateConfirming:
			if err := l.confirm(ctx); err != nil {
				return request.PlaylistRequest{}, err
			}

		case StateDone:
			l.log.WithField("attempts", l.failures+1).Info("playlist request accepted")
			return l.pending, nil

		case StateGaveUp:
			l.log.WithField("reason", l.reason).Warn("conversation gave up")
			return request.PlaylistRequest{}, &GaveUpError{Reason: l.reason}

		default:
			return request.PlaylistRequest{}, fmt.Errorf("invalid conversation state %v", l.state)
		}
	}
}

func (l *Loop) transition(to State) {
	l.log.WithFields(logrus.Fields{"from": l.state, "to": to}).Debug("state change")
	l.state = to
}

func (l *Loop) giveUp(reason string) {
	l.reason = reason
	l.transition(StateGaveUp)
}

func (l *Loop) say(text string) {
	l.out.Assistant(text)
	l.history.Append(history.RoleAssistant, text)
}

func (l *Loop) greet(ctx context.Context) {
	l.say(ai.GenerateOr(ctx, l.gen, prompt.BuildGreetingPrompt(), fallbackGreeting, l.log))
}

type readResult struct {
	text string
	err  error
}

// readLine reads one line but returns as soon as ctx is done. A read still
// pending at that point is abandoned.
func (l *Loop) readLine(ctx context.Context, prompt string) (string, error) {
	ch := make(chan readResult, 1)
	go func() {
		text, err := l.in.ReadLine(prompt)
		ch <- readResult{text, err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.text, r.err
	}
}

func (l *Loop) awaitInput(ctx context.Context) error {
	text, err := l.readLine(ctx, userPrompt)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			l.giveUp("input closed")
			return nil
		}
		return fmt.Errorf("failed to read input: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	l.history.Append(history.RoleUser, text)

	raw := ai.GenerateOr(ctx, l.gen, prompt.BuildExtractionPrompt(text), "", l.log)
	if err := ctx.Err(); err != nil {
		return err
	}
	req, err := extract.Parse(raw)
	if err == nil {
		l.pending = req
		if l.cfg.Confirm {
			l.transition(StateConfirming)
		} else {
			l.transition(StateDone)
		}
		return nil
	}

	l.failures++
	l.logExtractionFailure(err)

	outcome := l.policy.Next(l.failures)
	if outcome.Kind == GiveUp {
		l.giveUp(outcome.Reason)
		return nil
	}
	l.clarify(ctx)
	return nil
}

func (l *Loop) clarify(ctx context.Context) {
	turns := l.history.Tail(l.cfg.HistoryWindow)
	l.say(ai.GenerateOr(ctx, l.gen, prompt.BuildClarificationPrompt(turns), fallbackClarification, l.log))
}

func (l *Loop) confirm(ctx context.Context) error {
	l.out.Info(l.pending.Summary())
	answer, err := l.readLine(ctx, confirmPrompt)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			l.giveUp("input closed")
			return nil
		}
		return fmt.Errorf("failed to read input: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "", "y", "yes":
		l.transition(StateDone)
	default:
		l.pending = request.PlaylistRequest{}
		l.say(revisePrompt)
		l.transition(StateAwaitingInput)
	}
	return nil
}

func (l *Loop) logExtractionFailure(err error) {
	entry := l.log.WithError(err).WithField("attempt", l.failures)
	var malformed *extract.MalformedJSONError
	switch {
	case errors.Is(err, extract.ErrNoJSONStructure):
		entry = entry.WithField("kind", "no_json")
	case errors.As(err, &malformed):
		entry = entry.WithFields(logrus.Fields{"kind": "malformed_json", "slice": malformed.Slice})
	case errors.Is(err, request.ErrSchemaViolation):
		entry = entry.WithField("kind", "schema_violation")
	}
	entry.Info("could not extract a playlist request")
	l.out.Warn("I couldn't turn that into playlist settings yet.")
}
