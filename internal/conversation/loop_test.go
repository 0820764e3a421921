package conversation

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunetalk/tunetalk/internal/history"
	"github.com/tunetalk/tunetalk/internal/prompt"
	"github.com/tunetalk/tunetalk/internal/request"
)

const workoutJSON = `{"seed_genres": ["hip-hop"], "seed_artists": ["artists of 90s hip-hop"], "target_audio_features": {"energy": 0.8, "danceability": 0.7}, "seed_tracks": [], "keywords": ["90s", "workout"], "negative_keywords": []}`

// scriptedModel answers greeting, clarification and extraction prompts from
// separate queues.
type scriptedModel struct {
	greeting   string
	greetErr   error
	clarify    string
	clarifyErr error
	extraction []string

	prompts []string
}

func (m *scriptedModel) Name() string { return "scripted" }

func (m *scriptedModel) Generate(_ context.Context, p string) (string, error) {
	m.prompts = append(m.prompts, p)
	switch {
	case strings.Contains(p, "Greet the user"):
		return m.greeting, m.greetErr
	case strings.Contains(p, "Conversation so far:"):
		return m.clarify, m.clarifyErr
	default:
		if len(m.extraction) == 0 {
			return "", errors.New("no scripted extraction left")
		}
		next := m.extraction[0]
		m.extraction = m.extraction[1:]
		return next, nil
	}
}

func (m *scriptedModel) extractionCalls() int {
	n := 0
	for _, p := range m.prompts {
		if strings.Contains(p, "User Request:") && !strings.Contains(p, "Conversation so far:") {
			n++
		}
	}
	return n
}

type lines struct {
	queue   []string
	prompts []string
}

func (l *lines) ReadLine(p string) (string, error) {
	l.prompts = append(l.prompts, p)
	if len(l.queue) == 0 {
		return "", io.EOF
	}
	next := l.queue[0]
	l.queue = l.queue[1:]
	return next, nil
}

type transcript struct {
	assistant []string
	info      []string
	warn      []string
}

func (t *transcript) Assistant(text string) { t.assistant = append(t.assistant, text) }
func (t *transcript) Info(msg string)       { t.info = append(t.info, msg) }
func (t *transcript) Warn(msg string)       { t.warn = append(t.warn, msg) }

func newLoop(model *scriptedModel, input []string, cfg Config) (*Loop, *lines, *transcript, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	in := &lines{queue: input}
	out := &transcript{}
	return NewLoop(model, in, out, cfg, log), in, out, hook
}

func TestRunAcceptsExampleJSON(t *testing.T) {
	model := &scriptedModel{greeting: "Hi! What are we listening to?", extraction: []string{workoutJSON}}
	loop, _, out, _ := newLoop(model, []string{"Energetic workout music with 90s hip-hop"}, Config{})

	req, err := loop.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"hip-hop"}, req.SeedGenres)
	assert.Equal(t, 0.8, req.TargetAudioFeatures[request.FeatureEnergy])
	assert.Equal(t, StateDone, loop.State())
	assert.Equal(t, []string{"Hi! What are we listening to?"}, out.assistant)

	require.Len(t, model.prompts, 2)
	assert.Equal(t, prompt.BuildExtractionPrompt("Energetic workout music with 90s hip-hop"), model.prompts[1])
}

func TestRunAcceptsFencedJSON(t *testing.T) {
	model := &scriptedModel{greeting: "Hey", extraction: []string{"Sure! ```json\n{\"seed_genres\": [\"chill\"]}\n```"}}
	loop, _, _, _ := newLoop(model, []string{"something chill"}, Config{})

	req, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, request.PlaylistRequest{SeedGenres: []string{"chill"}}, req)
}

func TestRunClarifiesOnProse(t *testing.T) {
	model := &scriptedModel{
		greeting:   "Hey",
		clarify:    "Which artists do you like?",
		extraction: []string{"I'm not sure what you mean.", `{"seed_artists": ["Radiohead"]}`},
	}
	loop, in, out, hook := newLoop(model, []string{"music", "Radiohead please"}, Config{})

	req, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Radiohead"}, req.SeedArtists)

	assert.Equal(t, []string{"Hey", "Which artists do you like?"}, out.assistant)
	assert.Len(t, out.warn, 1)
	assert.Equal(t, []string{userPrompt, userPrompt}, in.prompts)

	assert.Equal(t, []history.Turn{
		{Role: history.RoleAssistant, Text: "Hey"},
		{Role: history.RoleUser, Text: "music"},
		{Role: history.RoleAssistant, Text: "Which artists do you like?"},
		{Role: history.RoleUser, Text: "Radiohead please"},
	}, loop.History())
	assert.Equal(t, "music Radiohead please", loop.UserText())

	var kinds []any
	for _, e := range hook.AllEntries() {
		if k, ok := e.Data["kind"]; ok {
			kinds = append(kinds, k)
		}
	}
	assert.Equal(t, []any{"no_json"}, kinds)
}

func TestRunClarificationUsesRecentTurns(t *testing.T) {
	model := &scriptedModel{
		greeting:   "Hey",
		clarify:    "More detail?",
		extraction: []string{"nope", "nope", workoutJSON},
	}
	loop, _, _, _ := newLoop(model, []string{"first", "second", "third"}, Config{HistoryWindow: 2})

	_, err := loop.Run(context.Background())
	require.NoError(t, err)

	var clarifications []string
	for _, p := range model.prompts {
		if strings.Contains(p, "Conversation so far:") {
			clarifications = append(clarifications, p)
		}
	}
	require.Len(t, clarifications, 2)
	assert.Contains(t, clarifications[1], "Assistant: More detail?\nUser: second\n")
	assert.NotContains(t, clarifications[1], "User: first")
}

func TestRunSchemaViolationCountsAsFailure(t *testing.T) {
	model := &scriptedModel{
		greeting:   "Hey",
		clarify:    "Try again?",
		extraction: []string{`{"target_audio_features": {"energy": 3}}`, workoutJSON},
	}
	loop, _, _, hook := newLoop(model, []string{"loud", "workout"}, Config{})

	_, err := loop.Run(context.Background())
	require.NoError(t, err)

	found := false
	for _, e := range hook.AllEntries() {
		if e.Data["kind"] == "schema_violation" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRunGivesUpAfterMaxAttempts(t *testing.T) {
	model := &scriptedModel{
		greeting:   "Hey",
		clarify:    "Hmm?",
		extraction: []string{"no", "still no", "never", workoutJSON},
	}
	loop, in, out, _ := newLoop(model, []string{"a", "b", "c", "d"}, Config{MaxAttempts: 3})

	_, err := loop.Run(context.Background())
	require.ErrorIs(t, err, ErrGaveUp)

	var gaveUp *GaveUpError
	require.ErrorAs(t, err, &gaveUp)
	assert.Equal(t, "no usable playlist request after 3 attempts", gaveUp.Reason)
	assert.Equal(t, StateGaveUp, loop.State())

	assert.Equal(t, 3, model.extractionCalls())
	assert.Equal(t, []string{"d"}, in.queue)
	// greeting plus two clarifications; the third failure ends the session
	assert.Len(t, out.assistant, 3)
}

func TestRunFallbackGreeting(t *testing.T) {
	model := &scriptedModel{greetErr: errors.New("quota exceeded"), extraction: []string{workoutJSON}}
	loop, _, out, hook := newLoop(model, []string{"workout"}, Config{})

	_, err := loop.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, out.assistant)
	assert.Equal(t, fallbackGreeting, out.assistant[0])

	warned := false
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["provider"] == "scripted" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestRunFallbackClarificationWhenModelFails(t *testing.T) {
	model := &scriptedModel{greeting: "Hey", clarifyErr: errors.New("timeout"), extraction: []string{"no"}}
	loop, _, out, _ := newLoop(model, []string{"x", "y"}, Config{})

	_, err := loop.Run(context.Background())
	// the second extraction call fails outright and counts as a failed attempt
	var gaveUp *GaveUpError
	require.ErrorAs(t, err, &gaveUp)
	assert.Equal(t, "input closed", gaveUp.Reason)
	assert.Equal(t, []string{"Hey", fallbackClarification, fallbackClarification}, out.assistant)
	assert.Equal(t, 2, model.extractionCalls())
}

func TestRunSkipsBlankLines(t *testing.T) {
	model := &scriptedModel{greeting: "Hey", extraction: []string{workoutJSON}}
	loop, in, _, _ := newLoop(model, []string{"", "   ", "workout"}, Config{MaxAttempts: 1})

	_, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, in.prompts, 3)
	assert.Equal(t, 1, model.extractionCalls())
}

func TestRunInputClosed(t *testing.T) {
	model := &scriptedModel{greeting: "Hey"}
	loop, _, _, _ := newLoop(model, nil, Config{})

	_, err := loop.Run(context.Background())
	var gaveUp *GaveUpError
	require.ErrorAs(t, err, &gaveUp)
	assert.Equal(t, "input closed", gaveUp.Reason)
}

func TestRunConfirmAccepts(t *testing.T) {
	model := &scriptedModel{greeting: "Hey", extraction: []string{workoutJSON}}
	loop, in, out, _ := newLoop(model, []string{"workout", "y"}, Config{Confirm: true})

	req, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"hip-hop"}, req.SeedGenres)
	assert.Equal(t, []string{userPrompt, confirmPrompt}, in.prompts)
	require.Len(t, out.info, 1)
	assert.Contains(t, out.info[0], "hip-hop")
}

func TestRunConfirmRejectsThenRevises(t *testing.T) {
	model := &scriptedModel{
		greeting:   "Hey",
		extraction: []string{workoutJSON, `{"seed_genres": ["jazz"]}`},
	}
	loop, _, out, _ := newLoop(model, []string{"workout", "no", "jazz instead", ""}, Config{Confirm: true})

	req, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"jazz"}, req.SeedGenres)
	assert.Equal(t, []string{"Hey", revisePrompt}, out.assistant)
	assert.Len(t, out.info, 2)
}

func TestRunConfirmInputClosed(t *testing.T) {
	model := &scriptedModel{greeting: "Hey", extraction: []string{workoutJSON}}
	loop, _, _, _ := newLoop(model, []string{"workout"}, Config{Confirm: true})

	_, err := loop.Run(context.Background())
	assert.ErrorIs(t, err, ErrGaveUp)
}

func TestRunHonoursCancelledContext(t *testing.T) {
	model := &scriptedModel{greeting: "Hey"}
	loop, _, out, _ := newLoop(model, []string{"anything"}, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := loop.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.assistant)
	assert.Empty(t, model.prompts)
}

// stalledReader cancels the conversation and then blocks, like Ctrl-C
// pressed at the prompt before any line is entered.
type stalledReader struct {
	cancel  context.CancelFunc
	release chan struct{}
}

func (r stalledReader) ReadLine(string) (string, error) {
	r.cancel()
	<-r.release
	return "late line", nil
}

func TestRunCancelledWhileWaitingForInput(t *testing.T) {
	model := &scriptedModel{greeting: "Hey", extraction: []string{workoutJSON}}
	log, _ := test.NewNullLogger()
	out := &transcript{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	loop := NewLoop(model, stalledReader{cancel: cancel, release: release}, out, Config{}, log)
	_, err := loop.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, model.extractionCalls())
	assert.Empty(t, out.warn)
	assert.Len(t, loop.History(), 1)
}

func TestRunCancelledConfirmation(t *testing.T) {
	model := &scriptedModel{greeting: "Hey", extraction: []string{workoutJSON}}
	log, _ := test.NewNullLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	in := &confirmThenStall{first: "workout", stall: stalledReader{cancel: cancel, release: release}}
	loop := NewLoop(model, in, &transcript{}, Config{Confirm: true}, log)
	_, err := loop.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateConfirming, loop.State())
}

type confirmThenStall struct {
	first string
	used  bool
	stall stalledReader
}

func (c *confirmThenStall) ReadLine(p string) (string, error) {
	if !c.used {
		c.used = true
		return c.first, nil
	}
	return c.stall.ReadLine(p)
}

// interruptedModel cancels the conversation during the extraction call.
type interruptedModel struct {
	cancel context.CancelFunc
	calls  int
}

func (m *interruptedModel) Name() string { return "interrupted" }

func (m *interruptedModel) Generate(ctx context.Context, p string) (string, error) {
	m.calls++
	if strings.Contains(p, "Greet the user") {
		return "Hey", nil
	}
	m.cancel()
	return "", ctx.Err()
}

func TestRunCancelledDuringModelCallIsNotAFailedAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	model := &interruptedModel{cancel: cancel}
	log, hook := test.NewNullLogger()
	out := &transcript{}

	loop := NewLoop(model, &lines{queue: []string{"something chill"}}, out, Config{}, log)
	_, err := loop.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, model.calls)
	assert.Empty(t, out.warn)
	assert.Equal(t, StateAwaitingInput, loop.State())
	for _, e := range hook.AllEntries() {
		assert.NotEqual(t, "could not extract a playlist request", e.Message)
	}
}

func TestRunReadError(t *testing.T) {
	model := &scriptedModel{greeting: "Hey"}
	log, _ := test.NewNullLogger()
	loop := NewLoop(model, failingReader{}, &transcript{}, Config{}, log)

	_, err := loop.Run(context.Background())
	assert.ErrorContains(t, err, "failed to read input: terminal gone")
}

type failingReader struct{}

func (failingReader) ReadLine(string) (string, error) { return "", errors.New("terminal gone") }

func TestSessionIDIsLogged(t *testing.T) {
	model := &scriptedModel{greeting: "Hey", extraction: []string{workoutJSON}}
	loop, _, _, hook := newLoop(model, []string{"workout"}, Config{})

	_, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, loop.SessionID())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, loop.SessionID(), hook.LastEntry().Data["session"])
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "awaiting_input", StateAwaitingInput.String())
	assert.Equal(t, "confirming", StateConfirming.String())
	assert.Equal(t, "state(42)", State(42).String())
}
