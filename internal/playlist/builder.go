// Package playlist turns a playlist request into a populated Spotify
// playlist.
package playlist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/zmb3/spotify/v2"

	"github.com/tunetalk/tunetalk/internal/request"
	spotifyx "github.com/tunetalk/tunetalk/internal/spotify"
)

const (
	// DefaultName is used when the request has no keywords.
	DefaultName = "AI Generated Vibes"
	// DefaultLimit is the number of recommendations requested.
	DefaultLimit = 40

	// DescriptionPrefix starts the description of every generated playlist.
	DescriptionPrefix = "Generated by tunetalk"

	nameSuffix          = " Toon"
	maxTracksPerRequest = 100
	keywordSearchLimit  = 10
)

var (
	// ErrNoTracks means neither recommendations nor keyword search found
	// anything; no playlist is created.
	ErrNoTracks = errors.New("no tracks found for this request")
	// ErrCreatePlaylist wraps failures creating the playlist.
	ErrCreatePlaylist = errors.New("could not create playlist")
	// ErrAddTracks wraps failures adding tracks to the created playlist.
	ErrAddTracks = errors.New("could not add tracks")
)

// Options tune a Builder. Zero values fall back to the defaults.
type Options struct {
	Limit       int
	DefaultName string
	Public      bool
	Description string
}

// Result describes the created playlist.
type Result struct {
	ID         spotify.ID
	Name       string
	URL        string
	TrackCount int
}

// Builder runs the recommendation → create → populate pipeline.
type Builder struct {
	catalog spotifyx.Catalog
	opts    Options
	log     logrus.FieldLogger
}

// NewBuilder creates a builder over catalog.
func NewBuilder(catalog spotifyx.Catalog, opts Options, log logrus.FieldLogger) *Builder {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.DefaultName == "" {
		opts.DefaultName = DefaultName
	}
	return &Builder{catalog: catalog, opts: opts, log: log}
}

// Build creates a playlist for req. It stops at the first empty result:
// with no tracks nothing is created.
func (b *Builder) Build(ctx context.Context, req request.PlaylistRequest) (*Result, error) {
	uris := b.Tracks(ctx, req)
	if len(uris) == 0 {
		b.log.Warn("no tracks to add")
		return nil, ErrNoTracks
	}
	b.log.WithField("tracks", len(uris)).Info("found tracks")

	name := GenerateName(req, b.opts.DefaultName)

	userID, err := b.catalog.CurrentUserID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreatePlaylist, err)
	}

	description := b.opts.Description
	if description == "" {
		description = fmt.Sprintf("%s - %d tracks picked from a conversation", DescriptionPrefix, len(uris))
	}
	pl, err := b.catalog.CreatePlaylist(ctx, userID, name, description, b.opts.Public)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreatePlaylist, err)
	}
	b.log.WithFields(logrus.Fields{"playlist": pl.ID, "url": pl.URL}).Info("created playlist")

	for i := 0; i < len(uris); i += maxTracksPerRequest {
		end := i + maxTracksPerRequest
		if end > len(uris) {
			end = len(uris)
		}
		if err := b.catalog.AddTracks(ctx, pl.ID, uris[i:end]); err != nil {
			return nil, fmt.Errorf("%w (batch %d-%d): %v", ErrAddTracks, i+1, end, err)
		}
	}

	return &Result{ID: pl.ID, Name: name, URL: pl.URL, TrackCount: len(uris)}, nil
}

// Tracks returns the track URIs for req: recommendations first, then a
// keyword search when recommendations come back empty or fail.
func (b *Builder) Tracks(ctx context.Context, req request.PlaylistRequest) []spotify.URI {
	args := spotifyx.ToRecommendationArgs(req, b.opts.Limit)

	var uris []spotify.URI
	tracks, err := b.catalog.Recommend(ctx, args)
	if err != nil {
		b.log.WithError(err).Warn("recommendations failed")
	}
	for _, t := range tracks {
		if t.URI != "" {
			uris = append(uris, t.URI)
		}
	}
	if len(uris) > 0 {
		return uris
	}

	if len(req.Keywords) == 0 {
		b.log.Warn("recommendations returned no tracks and there are no keywords to search")
		return nil
	}
	b.log.WithField("keywords", req.Keywords).Info("recommendations empty, searching by keyword")
	return b.searchKeywords(ctx, req)
}

func (b *Builder) searchKeywords(ctx context.Context, req request.PlaylistRequest) []spotify.URI {
	seen := map[spotify.URI]bool{}
	var uris []spotify.URI
	for _, kw := range req.Keywords {
		res, err := b.catalog.Search(ctx, kw, spotify.SearchTypeTrack, keywordSearchLimit)
		if err != nil {
			b.log.WithError(err).WithField("keyword", kw).Warn("keyword search failed")
			continue
		}
		if res == nil || res.Tracks == nil {
			continue
		}
		for _, t := range res.Tracks.Tracks {
			if t.URI == "" || seen[t.URI] || matchesAny(t.Name, req.NegativeKeywords) {
				continue
			}
			seen[t.URI] = true
			uris = append(uris, t.URI)
			if len(uris) == b.opts.Limit {
				return uris
			}
		}
	}
	return uris
}

func matchesAny(name string, words []string) bool {
	lower := strings.ToLower(name)
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" && strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// IsGenerated reports whether a playlist description was written by Build.
func IsGenerated(description string) bool {
	return strings.HasPrefix(description, DescriptionPrefix)
}

// GenerateName builds a playlist name from the request keywords, or returns
// fallback when there are none.
func GenerateName(req request.PlaylistRequest, fallback string) string {
	var words []string
	for _, kw := range req.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		r := []rune(kw)
		words = append(words, strings.ToUpper(string(r[:1]))+strings.ToLower(string(r[1:])))
	}
	if len(words) == 0 {
		return fallback
	}
	return strings.Join(words, " ") + nameSuffix
}
