package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrRequestFailed wraps every transport or model failure.
var ErrRequestFailed = errors.New("model request failed")

// Generator sends a prompt to a language model and returns its raw text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Provider names accepted by NewGenerator.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Options configure a generator backend.
type Options struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// NewGenerator builds the backend named by opts.Provider.
func NewGenerator(ctx context.Context, opts Options) (Generator, error) {
	switch strings.ToLower(opts.Provider) {
	case ProviderGemini, "":
		return NewGemini(ctx, opts.APIKey, opts.Model)
	case ProviderOpenAI:
		return NewOpenAI(opts.APIKey, opts.Model, opts.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q (want %q or %q)", opts.Provider, ProviderGemini, ProviderOpenAI)
	}
}

// GenerateOr calls gen and returns fallback when the call fails. The failure
// is logged and never returned.
func GenerateOr(ctx context.Context, gen Generator, prompt, fallback string, log logrus.FieldLogger) string {
	text, err := gen.Generate(ctx, prompt)
	if err != nil {
		log.WithError(err).WithField("provider", gen.Name()).Warn("model request failed, using fallback text")
		return fallback
	}
	return text
}

func requestFailed(provider string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrRequestFailed, provider, err)
}

// WithTimeout bounds every Generate call on gen by d. A non-positive d
// returns gen unchanged.
func WithTimeout(gen Generator, d time.Duration) Generator {
	if d <= 0 {
		return gen
	}
	return timeoutGenerator{gen: gen, timeout: d}
}

type timeoutGenerator struct {
	gen     Generator
	timeout time.Duration
}

func (t timeoutGenerator) Name() string { return t.gen.Name() }

func (t timeoutGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.gen.Generate(ctx, prompt)
}
