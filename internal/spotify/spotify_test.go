package spotify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zmb3/spotify/v2"

	"github.com/tunetalk/tunetalk/internal/request"
)

const artistID = "3qm84nBOXUEQ2vnTfUTTFC"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log, _ := test.NewNullLogger()
	api := spotify.New(srv.Client(), spotify.WithBaseURL(srv.URL+"/"))
	return NewClient(api, log)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestRecommendResolvesNames(t *testing.T) {
	var recQuery map[string][]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			assert.Equal(t, "Nas", r.URL.Query().Get("q"))
			assert.Equal(t, "artist", r.URL.Query().Get("type"))
			writeJSON(w, http.StatusOK, map[string]any{
				"artists": map[string]any{
					"items": []map[string]any{{"id": artistID, "name": "Nas"}},
					"total": 1,
				},
			})
		case "/recommendations":
			recQuery = r.URL.Query()
			writeJSON(w, http.StatusOK, map[string]any{
				"seeds": []any{},
				"tracks": []map[string]any{{
					"id":   "t1",
					"name": "N.Y. State of Mind",
					"uri":  "spotify:track:t1",
				}},
			})
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	tracks, err := client.Recommend(context.Background(), RecommendationArgs{
		Genres:  []string{"hip-hop"},
		Artists: []string{"Nas"},
		Targets: map[request.Feature]float64{request.FeatureEnergy: 0.8},
		Limit:   40,
	})
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, spotify.URI("spotify:track:t1"), tracks[0].URI)

	require.NotNil(t, recQuery)
	assert.Equal(t, "hip-hop", recQuery["seed_genres"][0])
	assert.Equal(t, artistID, recQuery["seed_artists"][0])
	assert.Equal(t, "40", recQuery["limit"][0])
	assert.True(t, strings.HasPrefix(recQuery["target_energy"][0], "0.8"))
}

func TestRecommendPassesIDsThrough(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recommendations", r.URL.Path, "IDs must not trigger a search")
		assert.Equal(t, artistID, r.URL.Query().Get("seed_artists"))
		assert.Equal(t, "4iV5W9uYEdYUVa79Axb7Rh", r.URL.Query().Get("seed_tracks"))
		writeJSON(w, http.StatusOK, map[string]any{"seeds": []any{}, "tracks": []any{}})
	})

	tracks, err := client.Recommend(context.Background(), RecommendationArgs{
		Artists: []string{artistID},
		Tracks:  []string{"spotify:track:4iV5W9uYEdYUVa79Axb7Rh"},
		Limit:   10,
	})
	require.NoError(t, err)
	assert.Empty(t, tracks)
}

func TestCreatePlaylistAndAddTracks(t *testing.T) {
	var added []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/users/user-1/playlists":
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "Rainy Jazz Toon", body["name"])
			assert.Equal(t, false, body["public"])
			writeJSON(w, http.StatusCreated, map[string]any{
				"id":            "pl1",
				"name":          "Rainy Jazz Toon",
				"external_urls": map[string]string{"spotify": "https://open.spotify.com/playlist/pl1"},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/playlists/pl1/tracks":
			b, _ := io.ReadAll(r.Body)
			var body struct {
				URIs []string `json:"uris"`
			}
			assert.NoError(t, json.Unmarshal(b, &body))
			added = body.URIs
			writeJSON(w, http.StatusCreated, map[string]any{"snapshot_id": "snap"})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	ctx := context.Background()
	pl, err := client.CreatePlaylist(ctx, "user-1", "Rainy Jazz Toon", "desc", false)
	require.NoError(t, err)
	assert.Equal(t, spotify.ID("pl1"), pl.ID)
	assert.Equal(t, "https://open.spotify.com/playlist/pl1", pl.URL)

	err = client.AddTracks(ctx, pl.ID, []spotify.URI{"spotify:track:a", "spotify:track:b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"spotify:track:a", "spotify:track:b"}, added)
}

func TestAddTracksRejectsInvalidURIs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	})
	err := client.AddTracks(context.Background(), "pl1", []spotify.URI{"garbage"})
	assert.ErrorContains(t, err, "no valid track IDs")
}

func TestIDFromURI(t *testing.T) {
	assert.Equal(t, spotify.ID("abc"), IDFromURI("spotify:track:abc"))
	assert.Equal(t, spotify.ID(""), IDFromURI("abc"))
}

func TestParseYear(t *testing.T) {
	assert.Equal(t, 1994, ParseYear("1994"))
	assert.Equal(t, 1994, ParseYear("1994-04-19"))
	assert.Equal(t, 0, ParseYear("94"))
	assert.Equal(t, 0, ParseYear("abcd-01"))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 20, clampLimit(0))
	assert.Equal(t, 40, clampLimit(40))
	assert.Equal(t, 100, clampLimit(500))
}

func TestOwnPlaylists(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/me":
			writeJSON(w, http.StatusOK, map[string]any{"id": "me"})
		case "/me/playlists":
			assert.Equal(t, "50", r.URL.Query().Get("limit"))
			writeJSON(w, http.StatusOK, map[string]any{
				"items": []map[string]any{
					{"id": "p1", "name": "Chill Study Toon", "owner": map[string]any{"id": "me"}},
					{"id": "p2", "name": "Someone Else's", "owner": map[string]any{"id": "other"}},
				},
				"total": 2,
			})
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	own, err := client.OwnPlaylists(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "Chill Study Toon", own[0].Name)
}
