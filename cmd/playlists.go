package cmd

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/zmb3/spotify/v2"

	"github.com/tunetalk/tunetalk/internal/auth"
	"github.com/tunetalk/tunetalk/internal/playlist"
	spotifyx "github.com/tunetalk/tunetalk/internal/spotify"
)

var (
	playlistsAll   bool
	playlistsLimit int
)

func init() {
	playlistsCmd := &cobra.Command{
		Use:   "playlists",
		Short: "List the playlists tunetalk created for you",
		Long: `List playlists on your account that tunetalk generated.
Use --all to include every playlist you own.`,
		Args: cobra.NoArgs,
		RunE: runPlaylists,
	}

	playlistsCmd.Flags().BoolVar(&playlistsAll, "all", false, "show every playlist you own")
	playlistsCmd.Flags().IntVarP(&playlistsLimit, "limit", "n", 50, "number of playlists to scan (max 50)")

	rootCmd.AddCommand(playlistsCmd)
}

func runPlaylists(cmd *cobra.Command, _ []string) error {
	con := newConsole(cmd)
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

	own, err := spotifyx.NewClient(api, log).OwnPlaylists(cmd.Context(), playlistsLimit)
	if err != nil {
		return err
	}

	shown := filterPlaylists(own, playlistsAll)
	if len(shown) == 0 {
		con.Info("📭 No playlists found")
		con.Info("Create your first one with: tunetalk chat")
		return nil
	}

	for i, pl := range shown {
		visibility := "🔒 Private"
		if pl.IsPublic {
			visibility = "🌍 Public"
		}
		con.Printf("%2d. %s\n", i+1, con.Bold(pl.Name))
		con.Printf("    %s • %d tracks\n", visibility, pl.Tracks.Total)
		if url := pl.ExternalURLs["spotify"]; url != "" {
			con.Printf("    🔗 %s\n", url)
		}
	}
	con.Info(fmt.Sprintf("\n📊 Showing %d of %d playlists you own", len(shown), len(own)))
	return nil
}

func filterPlaylists(pls []spotify.SimplePlaylist, all bool) []spotify.SimplePlaylist {
	if all {
		return pls
	}
	var out []spotify.SimplePlaylist
	for _, pl := range pls {
		if playlist.IsGenerated(pl.Description) {
			out = append(out, pl)
		}
	}
	return out
}
