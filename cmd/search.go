package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/zmb3/spotify/v2"

	"github.com/tunetalk/tunetalk/internal/auth"
	spotifyx "github.com/tunetalk/tunetalk/internal/spotify"
)

var (
	searchType  string
	searchLimit int
)

var searchTypes = map[string]spotify.SearchType{
	"track":    spotify.SearchTypeTrack,
	"artist":   spotify.SearchTypeArtist,
	"album":    spotify.SearchTypeAlbum,
	"playlist": spotify.SearchTypePlaylist,
}

func init() {
	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the Spotify catalog",
		Long: `Search Spotify for tracks, artists, albums or playlists and print their
URIs. Handy for finding exact seeds to mention in a chat.

Examples:
  tunetalk search nujabes
  tunetalk search "daft punk" --type artist
  tunetalk search "kind of blue" --type album -n 3`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearch,
	}
	searchCmd.Flags().StringVarP(&searchType, "type", "t", "track", "result type: track, artist, album or playlist")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "number of results (1-50)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	con := newConsole(cmd)
	query := strings.Join(args, " ")

	kind, ok := searchTypes[strings.ToLower(searchType)]
	if !ok {
		return fmt.Errorf("unknown search type %q (want track, artist, album or playlist)", searchType)
	}
	if searchLimit < 1 || searchLimit > 50 {
		searchLimit = 10
	}

	if err := cfg.RequireSpotify(); err != nil {
		con.Error("🔐 Spotify credentials are missing. Run 'tunetalk setup' first.")
		return err
	}

	log := logrus.StandardLogger()
	api, err := auth.Client(cmd.Context(), authConfig(), log)
	if err != nil {
		if errors.Is(err, auth.ErrNotLoggedIn) {
			con.Error("🔐 Authentication required! Run: tunetalk login")
		}
		return err
	}

	res, err := spotifyx.NewClient(api, log).Search(cmd.Context(), query, kind, searchLimit)
	if err != nil {
		con.Error("❌ Search failed.")
		return err
	}

	printSearchResults(cmd.OutOrStdout(), res, kind)
	return nil
}

const resultSeparator = "--------------------"

// printSearchResults writes one block per result for the given type.
func printSearchResults(w io.Writer, res *spotify.SearchResult, kind spotify.SearchType) {
	n := 0
	switch kind {
	case spotify.SearchTypeTrack:
		if res.Tracks != nil {
			for i, t := range res.Tracks.Tracks {
				fmt.Fprintf(w, "%d. %s - %s\n", i+1, t.Name, artistNames(t.Artists, ","))
				fmt.Fprintf(w, "   Album: %s", t.Album.Name)
				if year := spotifyx.ParseYear(t.Album.ReleaseDate); year > 0 {
					fmt.Fprintf(w, " (%d)", year)
				}
				fmt.Fprintf(w, "\n   URI: %s\n%s\n", t.URI, resultSeparator)
			}
			n = len(res.Tracks.Tracks)
		}
	case spotify.SearchTypeArtist:
		if res.Artists != nil {
			for i, a := range res.Artists.Artists {
				fmt.Fprintf(w, "%d. %s\n   URI: %s\n   Image URL: %s\n%s\n", i+1, a.Name, a.URI, firstImage(a.Images), resultSeparator)
			}
			n = len(res.Artists.Artists)
		}
	case spotify.SearchTypeAlbum:
		if res.Albums != nil {
			for i, a := range res.Albums.Albums {
				fmt.Fprintf(w, "%d. %s - %s\n   URI: %s\n   Image URL: %s\n%s\n", i+1, a.Name, artistNames(a.Artists, ", "), a.URI, firstImage(a.Images), resultSeparator)
			}
			n = len(res.Albums.Albums)
		}
	case spotify.SearchTypePlaylist:
		if res.Playlists != nil {
			for i, p := range res.Playlists.Playlists {
				fmt.Fprintf(w, "%d. %s - %s\n   URI: %s\n   Image URL: %s\n%s\n", i+1, p.Name, p.Owner.DisplayName, p.URI, firstImage(p.Images), resultSeparator)
			}
			n = len(res.Playlists.Playlists)
		}
	}
	if n == 0 {
		fmt.Fprintln(w, "No results found.")
	}
}

func artistNames(artists []spotify.SimpleArtist, sep string) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, sep)
}

func firstImage(images []spotify.Image) string {
	if len(images) == 0 {
		return "No image available"
	}
	return images[0].URL
}
