// Package logging configures the process logger and optional Sentry
// reporting.
package logging

import (
	"fmt"
	"io"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

const flushTimeout = 2 * time.Second

// Setup points the standard logrus logger at w. Warnings and above are
// shown unless verbose is set.
func Setup(w io.Writer, verbose bool) *logrus.Logger {
	log := logrus.StandardLogger()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: !verbose, FullTimestamp: true})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}
	return log
}

// InitSentry installs a Sentry hook on log when dsn is set. The returned
// function flushes pending events and is always safe to call.
func InitSentry(log *logrus.Logger, dsn, release string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:     dsn,
		Release: "tunetalk@" + release,
	})
	if err != nil {
		return func() {}, fmt.Errorf("failed to initialise sentry: %w", err)
	}
	hub := sentry.NewHub(client, sentry.NewScope())
	log.AddHook(NewSentryHook(hub))
	return func() { hub.Flush(flushTimeout) }, nil
}

// SentryHook forwards error-level entries to a Sentry hub.
type SentryHook struct {
	hub *sentry.Hub
}

func NewSentryHook(hub *sentry.Hub) *SentryHook {
	return &SentryHook{hub: hub}
}

func (h *SentryHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel}
}

func (h *SentryHook) Fire(entry *logrus.Entry) error {
	h.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentryLevel(entry.Level))
		extra := sentry.Context{}
		for k, v := range entry.Data {
			if k == logrus.ErrorKey {
				continue
			}
			if s, ok := v.(fmt.Stringer); ok {
				v = s.String()
			}
			extra[k] = v
		}
		scope.SetContext("log", extra)

		if err, ok := entry.Data[logrus.ErrorKey].(error); ok && err != nil {
			h.hub.CaptureException(fmt.Errorf("%s: %w", entry.Message, err))
			return
		}
		h.hub.CaptureMessage(entry.Message)
	})
	return nil
}

func sentryLevel(l logrus.Level) sentry.Level {
	switch l {
	case logrus.PanicLevel, logrus.FatalLevel:
		return sentry.LevelFatal
	case logrus.WarnLevel:
		return sentry.LevelWarning
	case logrus.InfoLevel:
		return sentry.LevelInfo
	case logrus.DebugLevel, logrus.TraceLevel:
		return sentry.LevelDebug
	default:
		return sentry.LevelError
	}
}
