package request

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrSchemaViolation is matched by every *SchemaViolationError.
var ErrSchemaViolation = errors.New("schema violation")

// SchemaViolationError lists everything wrong with a decoded request.
type SchemaViolationError struct {
	Problems []string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("schema violation: %s", strings.Join(e.Problems, "; "))
}

func (e *SchemaViolationError) Is(target error) bool {
	return target == ErrSchemaViolation
}

const (
	keySeedGenres       = "seed_genres"
	keySeedArtists      = "seed_artists"
	keySeedTracks       = "seed_tracks"
	keyTargetFeatures   = "target_audio_features"
	keyKeywords         = "keywords"
	keyNegativeKeywords = "negative_keywords"
)

var knownKeys = map[string]bool{
	keySeedGenres:       true,
	keySeedArtists:      true,
	keySeedTracks:       true,
	keyTargetFeatures:   true,
	keyKeywords:         true,
	keyNegativeKeywords: true,
}

// FromMap validates a decoded JSON object and converts it into a
// PlaylistRequest. Unknown keys, non-string list items, unknown feature
// names and feature values outside [0,1] are rejected. Null values count as
// absent. Seed lists are de-duplicated, genres are lower-cased.
func FromMap(m map[string]any) (PlaylistRequest, error) {
	var (
		req      PlaylistRequest
		problems []string
	)

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !knownKeys[k] {
			problems = append(problems, fmt.Sprintf("unknown key %q", k))
		}
	}

	list := func(key string, lower, dedupe bool) []string {
		v, ok := m[key]
		if !ok || v == nil {
			return nil
		}
		items, ok := v.([]any)
		if !ok {
			problems = append(problems, fmt.Sprintf("%s must be a list of strings", key))
			return nil
		}
		out := make([]string, 0, len(items))
		seen := map[string]bool{}
		for i, item := range items {
			s, ok := item.(string)
			if !ok {
				problems = append(problems, fmt.Sprintf("%s[%d] must be a string", key, i))
				continue
			}
			s = strings.TrimSpace(s)
			if lower {
				s = strings.ToLower(s)
			}
			if s == "" {
				continue
			}
			if dedupe {
				if seen[strings.ToLower(s)] {
					continue
				}
				seen[strings.ToLower(s)] = true
			}
			out = append(out, s)
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}

	req.SeedGenres = list(keySeedGenres, true, true)
	req.SeedArtists = list(keySeedArtists, false, true)
	req.SeedTracks = list(keySeedTracks, false, true)
	req.Keywords = list(keyKeywords, false, false)
	req.NegativeKeywords = list(keyNegativeKeywords, false, false)

	if v, ok := m[keyTargetFeatures]; ok && v != nil {
		obj, ok := v.(map[string]any)
		if !ok {
			problems = append(problems, keyTargetFeatures+" must be an object")
		} else {
			names := make([]string, 0, len(obj))
			for name := range obj {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				if !IsFeature(name) {
					problems = append(problems, fmt.Sprintf("unknown audio feature %q", name))
					continue
				}
				raw := obj[name]
				if raw == nil {
					continue
				}
				val, ok := raw.(float64)
				if !ok {
					problems = append(problems, fmt.Sprintf("audio feature %q must be a number", name))
					continue
				}
				if val < 0 || val > 1 {
					problems = append(problems, fmt.Sprintf("audio feature %q = %g is outside [0,1]", name, val))
					continue
				}
				if req.TargetAudioFeatures == nil {
					req.TargetAudioFeatures = map[Feature]float64{}
				}
				req.TargetAudioFeatures[Feature(name)] = val
			}
		}
	}

	if len(problems) > 0 {
		return PlaylistRequest{}, &SchemaViolationError{Problems: problems}
	}
	return req, nil
}
