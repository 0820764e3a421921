package logging

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLevels(t *testing.T) {
	var buf bytes.Buffer

	log := Setup(&buf, false)
	assert.Equal(t, logrus.WarnLevel, log.GetLevel())
	log.Info("hidden")
	log.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	log = Setup(&buf, true)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestInitSentryWithoutDSN(t *testing.T) {
	log := logrus.New()
	flush, err := InitSentry(log, "", "dev")
	require.NoError(t, err)
	flush()
	assert.Empty(t, log.Hooks)
}

func TestInitSentryInvalidDSN(t *testing.T) {
	_, err := InitSentry(logrus.New(), "not a dsn", "dev")
	assert.ErrorContains(t, err, "failed to initialise sentry")
}

type captured struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (c *captured) hub(t *testing.T) *sentry.Hub {
	t.Helper()
	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.events = append(c.events, event)
			return nil
		},
	})
	require.NoError(t, err)
	return sentry.NewHub(client, sentry.NewScope())
}

func TestSentryHookForwardsErrors(t *testing.T) {
	var c captured
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	log.AddHook(NewSentryHook(c.hub(t)))

	log.WithField("session", "abc").Warn("not forwarded")
	log.WithError(errors.New("forbidden")).WithField("session", "abc").Error("failed to create playlist")
	log.Error("plain message")

	require.Len(t, c.events, 2)

	first := c.events[0]
	assert.Equal(t, sentry.LevelError, first.Level)
	var values []string
	for _, ex := range first.Exception {
		values = append(values, ex.Value)
	}
	assert.Contains(t, values, "failed to create playlist: forbidden")
	assert.Equal(t, "abc", first.Contexts["log"]["session"])

	assert.Equal(t, "plain message", c.events[1].Message)
}

func TestSentryLevel(t *testing.T) {
	assert.Equal(t, sentry.LevelFatal, sentryLevel(logrus.PanicLevel))
	assert.Equal(t, sentry.LevelError, sentryLevel(logrus.ErrorLevel))
	assert.Equal(t, sentry.LevelWarning, sentryLevel(logrus.WarnLevel))
}
