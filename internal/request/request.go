// Package request defines the structured playlist request extracted from a
// conversation and the schema checks applied to decoded model output.
package request

import (
	"fmt"
	"sort"
	"strings"
)

// Feature is one of the audio feature dials the recommendation engine
// accepts as a target value.
type Feature string

const (
	FeatureEnergy           Feature = "energy"
	FeatureDanceability     Feature = "danceability"
	FeatureValence          Feature = "valence"
	FeatureInstrumentalness Feature = "instrumentalness"
	FeatureAcousticness     Feature = "acousticness"
)

// Features lists every supported feature in a fixed order.
var Features = []Feature{
	FeatureEnergy,
	FeatureDanceability,
	FeatureValence,
	FeatureInstrumentalness,
	FeatureAcousticness,
}

// IsFeature reports whether name is a supported feature key.
func IsFeature(name string) bool {
	for _, f := range Features {
		if string(f) == name {
			return true
		}
	}
	return false
}

// PlaylistRequest is the structured description of a playlist extracted
// from a conversation.
type PlaylistRequest struct {
	SeedGenres          []string            `json:"seed_genres,omitempty"`
	SeedArtists         []string            `json:"seed_artists,omitempty"`
	SeedTracks          []string            `json:"seed_tracks,omitempty"`
	TargetAudioFeatures map[Feature]float64 `json:"target_audio_features,omitempty"`
	Keywords            []string            `json:"keywords,omitempty"`
	NegativeKeywords    []string            `json:"negative_keywords,omitempty"`
}

// SeedCount returns the number of seeds before any truncation.
func (r PlaylistRequest) SeedCount() int {
	return len(r.SeedGenres) + len(r.SeedArtists) + len(r.SeedTracks)
}

// IsEmpty reports whether the request carries no seeds, features or keywords.
func (r PlaylistRequest) IsEmpty() bool {
	return r.SeedCount() == 0 && len(r.TargetAudioFeatures) == 0 && len(r.Keywords) == 0
}

// Summary renders a short human readable description, used when asking the
// user to confirm.
func (r PlaylistRequest) Summary() string {
	var lines []string
	if len(r.SeedGenres) > 0 {
		lines = append(lines, "Genres:   "+strings.Join(r.SeedGenres, ", "))
	}
	if len(r.SeedArtists) > 0 {
		lines = append(lines, "Artists:  "+strings.Join(r.SeedArtists, ", "))
	}
	if len(r.SeedTracks) > 0 {
		lines = append(lines, "Tracks:   "+strings.Join(r.SeedTracks, ", "))
	}
	if len(r.TargetAudioFeatures) > 0 {
		keys := make([]string, 0, len(r.TargetAudioFeatures))
		for f := range r.TargetAudioFeatures {
			keys = append(keys, string(f))
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s %.2f", k, r.TargetAudioFeatures[Feature(k)]))
		}
		lines = append(lines, "Features: "+strings.Join(parts, ", "))
	}
	if len(r.Keywords) > 0 {
		lines = append(lines, "Keywords: "+strings.Join(r.Keywords, ", "))
	}
	if len(r.NegativeKeywords) > 0 {
		lines = append(lines, "Avoid:    "+strings.Join(r.NegativeKeywords, ", "))
	}
	if len(lines) == 0 {
		return "(no parameters)"
	}
	return strings.Join(lines, "\n")
}
