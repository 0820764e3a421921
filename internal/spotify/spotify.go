package spotify

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/zmb3/spotify/v2"

	"github.com/tunetalk/tunetalk/internal/request"
)

// MaxRecommendations is the largest limit the recommendation endpoint accepts.
const MaxRecommendations = 100

// Playlist is a freshly created playlist.
type Playlist struct {
	ID   spotify.ID
	Name string
	URL  string
}

// Catalog is the subset of the Spotify Web API the playlist pipeline needs.
type Catalog interface {
	CurrentUserID(ctx context.Context) (string, error)
	Search(ctx context.Context, query string, kind spotify.SearchType, limit int) (*spotify.SearchResult, error)
	Recommend(ctx context.Context, args RecommendationArgs) ([]spotify.SimpleTrack, error)
	CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (Playlist, error)
	AddTracks(ctx context.Context, playlistID spotify.ID, uris []spotify.URI) error
}

// Client implements Catalog on top of an authenticated spotify.Client.
type Client struct {
	api *spotify.Client
	log logrus.FieldLogger
}

var _ Catalog = (*Client)(nil)

// NewClient wraps an authenticated client.
func NewClient(api *spotify.Client, log logrus.FieldLogger) *Client {
	return &Client{api: api, log: log}
}

func (c *Client) CurrentUserID(ctx context.Context) (string, error) {
	user, err := c.api.CurrentUser(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get current user: %w", err)
	}
	return user.ID, nil
}

func (c *Client) Search(ctx context.Context, query string, kind spotify.SearchType, limit int) (*spotify.SearchResult, error) {
	res, err := c.api.Search(ctx, query, kind, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return res, nil
}

// Recommend resolves artist and track names to IDs, then queries the
// recommendation endpoint. Seeds that cannot be resolved are dropped.
func (c *Client) Recommend(ctx context.Context, args RecommendationArgs) ([]spotify.SimpleTrack, error) {
	seeds := spotify.Seeds{Genres: args.Genres}
	for _, name := range args.Artists {
		if id, ok := c.resolve(ctx, name, spotify.SearchTypeArtist); ok {
			seeds.Artists = append(seeds.Artists, id)
		}
	}
	for _, name := range args.Tracks {
		if id, ok := c.resolve(ctx, name, spotify.SearchTypeTrack); ok {
			seeds.Tracks = append(seeds.Tracks, id)
		}
	}

	attrs := spotify.NewTrackAttributes()
	for _, f := range request.Features {
		v, ok := args.Targets[f]
		if !ok {
			continue
		}
		switch f {
		case request.FeatureEnergy:
			attrs = attrs.TargetEnergy(v)
		case request.FeatureDanceability:
			attrs = attrs.TargetDanceability(v)
		case request.FeatureValence:
			attrs = attrs.TargetValence(v)
		case request.FeatureInstrumentalness:
			attrs = attrs.TargetInstrumentalness(v)
		case request.FeatureAcousticness:
			attrs = attrs.TargetAcousticness(v)
		}
	}

	recs, err := c.api.GetRecommendations(ctx, seeds, attrs, spotify.Limit(clampLimit(args.Limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendations: %w", err)
	}
	return recs.Tracks, nil
}

func (c *Client) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (Playlist, error) {
	pl, err := c.api.CreatePlaylistForUser(ctx, userID, name, description, public, false)
	if err != nil {
		return Playlist{}, fmt.Errorf("failed to create playlist: %w", err)
	}
	return Playlist{ID: pl.ID, Name: pl.Name, URL: pl.ExternalURLs["spotify"]}, nil
}

// MaxPlaylistPage is the largest page the playlists endpoint returns.
const MaxPlaylistPage = 50

// OwnPlaylists returns up to limit playlists owned by the current user.
func (c *Client) OwnPlaylists(ctx context.Context, limit int) ([]spotify.SimplePlaylist, error) {
	if limit < 1 || limit > MaxPlaylistPage {
		limit = MaxPlaylistPage
	}
	userID, err := c.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}
	page, err := c.api.CurrentUsersPlaylists(ctx, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get playlists: %w", err)
	}
	var own []spotify.SimplePlaylist
	for _, pl := range page.Playlists {
		if pl.Owner.ID == userID {
			own = append(own, pl)
		}
	}
	return own, nil
}

// AddTracks adds uris in a single request; callers batch.
func (c *Client) AddTracks(ctx context.Context, playlistID spotify.ID, uris []spotify.URI) error {
	ids := make([]spotify.ID, 0, len(uris))
	for _, uri := range uris {
		if id := IDFromURI(uri); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("no valid track IDs found")
	}
	if _, err := c.api.AddTracksToPlaylist(ctx, playlistID, ids...); err != nil {
		return fmt.Errorf("failed to add tracks to playlist: %w", err)
	}
	return nil
}

var idPattern = regexp.MustCompile(`^[0-9A-Za-z]{22}$`)

// resolve turns a seed into an ID. IDs and spotify: URIs pass through;
// anything else is looked up by name.
func (c *Client) resolve(ctx context.Context, seed string, kind spotify.SearchType) (spotify.ID, bool) {
	if strings.HasPrefix(seed, "spotify:") {
		if id := IDFromURI(spotify.URI(seed)); id != "" {
			return id, true
		}
	}
	if idPattern.MatchString(seed) {
		return spotify.ID(seed), true
	}

	log := c.log.WithField("seed", seed)
	res, err := c.api.Search(ctx, seed, kind, spotify.Limit(1))
	if err != nil {
		log.WithError(err).Warn("seed lookup failed, dropping seed")
		return "", false
	}
	switch kind {
	case spotify.SearchTypeArtist:
		if res.Artists != nil && len(res.Artists.Artists) > 0 {
			return res.Artists.Artists[0].ID, true
		}
	case spotify.SearchTypeTrack:
		if res.Tracks != nil && len(res.Tracks.Tracks) > 0 {
			return res.Tracks.Tracks[0].ID, true
		}
	}
	log.Warn("seed not found, dropping seed")
	return "", false
}

// IDFromURI extracts the ID from a URI of the form spotify:track:ID.
func IDFromURI(uri spotify.URI) spotify.ID {
	parts := strings.Split(string(uri), ":")
	if len(parts) < 3 {
		return ""
	}
	return spotify.ID(parts[len(parts)-1])
}

func clampLimit(limit int) int {
	if limit < 1 {
		return 20
	}
	if limit > MaxRecommendations {
		return MaxRecommendations
	}
	return limit
}

// ParseYear extracts the year from a Spotify release date, which may be
// "YYYY", "YYYY-MM" or "YYYY-MM-DD".
func ParseYear(releaseDate string) int {
	if len(releaseDate) >= 4 {
		if year, err := strconv.Atoi(releaseDate[:4]); err == nil {
			return year
		}
	}
	return 0
}
