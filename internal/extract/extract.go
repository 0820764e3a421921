// Package extract pulls a JSON object out of free-form model output.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tunetalk/tunetalk/internal/request"
)

var (
	// ErrNoJSONStructure means the text has no '{' ... '}' pair.
	ErrNoJSONStructure = errors.New("no JSON structure found in model output")
	// ErrMalformedJSON is matched by every *MalformedJSONError.
	ErrMalformedJSON = errors.New("malformed JSON in model output")
)

// MalformedJSONError carries the slice that failed to decode.
type MalformedJSONError struct {
	Slice string
	Err   error
}

func (e *MalformedJSONError) Error() string {
	return fmt.Sprintf("malformed JSON in model output: %v", e.Err)
}

func (e *MalformedJSONError) Unwrap() error { return e.Err }

func (e *MalformedJSONError) Is(target error) bool {
	return target == ErrMalformedJSON
}

// Everything from "//" to the end of a line. This also eats "//" inside
// string values such as URLs.
var lineComment = regexp.MustCompile(`//[^\n]*`)

// Extract locates the text between the first '{' and the last '}' of raw,
// strips line comments and decodes it. The decoded object is returned as-is.
func Extract(raw string) (map[string]any, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < 0 || end <= start {
		return nil, ErrNoJSONStructure
	}

	slice := StripLineComments(raw[start : end+1])

	var out map[string]any
	if err := json.Unmarshal([]byte(slice), &out); err != nil {
		return nil, &MalformedJSONError{Slice: slice, Err: err}
	}
	return out, nil
}

// StripLineComments removes "//" comments line by line.
func StripLineComments(s string) string {
	return lineComment.ReplaceAllString(s, "")
}

// Parse extracts and validates a playlist request from raw model output.
func Parse(raw string) (request.PlaylistRequest, error) {
	m, err := Extract(raw)
	if err != nil {
		return request.PlaylistRequest{}, err
	}
	return request.FromMap(m)
}
