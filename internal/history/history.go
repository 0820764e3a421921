// Package history holds the append-only record of a conversation.
package history

import "strings"

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single utterance.
type Turn struct {
	Role Role
	Text string
}

// Label is the speaker prefix used when a turn is rendered into a prompt.
func (t Turn) Label() string {
	if t.Role == RoleUser {
		return "User"
	}
	return "Assistant"
}

// Log is an append-only sequence of turns. The zero value is ready to use.
// It is owned by a single goroutine.
type Log struct {
	turns []Turn
}

// Append adds a turn at the end of the log.
func (l *Log) Append(role Role, text string) {
	l.turns = append(l.turns, Turn{Role: role, Text: text})
}

// Len returns the number of turns recorded.
func (l *Log) Len() int {
	return len(l.turns)
}

// Turns returns a copy of every turn.
func (l *Log) Turns() []Turn {
	return l.Tail(len(l.turns))
}

// Tail returns a copy of at most the last n turns.
func (l *Log) Tail(n int) []Turn {
	if n <= 0 {
		return nil
	}
	if n > len(l.turns) {
		n = len(l.turns)
	}
	out := make([]Turn, n)
	copy(out, l.turns[len(l.turns)-n:])
	return out
}

// UserText joins everything the user said, oldest first.
func (l *Log) UserText() string {
	var parts []string
	for _, t := range l.turns {
		if t.Role == RoleUser {
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, " ")
}
