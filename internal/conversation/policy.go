package conversation

import "fmt"

// DefaultMaxAttempts bounds failed extractions when no limit is configured.
const DefaultMaxAttempts = 5

// OutcomeKind tells the loop what to do after a failed extraction.
type OutcomeKind int

const (
	// Continue asks a clarifying question and waits for more input.
	Continue OutcomeKind = iota
	// GiveUp ends the conversation without a request.
	GiveUp
)

// Outcome is the retry policy's verdict. Reason is set for GiveUp.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
}

// RetryPolicy decides whether another clarification round is allowed.
type RetryPolicy struct {
	MaxAttempts int
}

// Next returns the outcome after failures failed extractions.
func (p RetryPolicy) Next(failures int) Outcome {
	max := p.MaxAttempts
	if max <= 0 {
		max = DefaultMaxAttempts
	}
	if failures >= max {
		return Outcome{Kind: GiveUp, Reason: fmt.Sprintf("no usable playlist request after %d attempts", failures)}
	}
	return Outcome{Kind: Continue}
}
