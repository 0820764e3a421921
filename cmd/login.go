package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tunetalk/tunetalk/internal/auth"
)

const loginTimeout = 5 * time.Minute

func init() {
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with Spotify using OAuth2 PKCE flow",
		Long: `Login to Spotify using the Authorization Code Flow with PKCE.
This will open your browser to authorize the application and store your
token in ~/.config/tunetalk.

The callback server listens on the port of SPOTIFY_REDIRECT_URI, which must
also be registered on your Spotify app.`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}

	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, _ []string) error {
	con := newConsole(cmd)
	if err := cfg.RequireSpotify(); err != nil {
		con.Error("🔐 Spotify credentials are missing. Run 'tunetalk setup' first.")
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), loginTimeout)
	defer cancel()

	config := authConfig()
	con.Info("🎵 Starting Spotify authentication...")
	con.Muted(fmt.Sprintf("   Redirect URI: %s", config.RedirectURI))
	con.Muted(fmt.Sprintf("   Client ID: %s", maskSecret(config.ClientID)))

	if err := auth.Login(ctx, config, cmd.OutOrStdout()); err != nil {
		return reportFailure(logrus.StandardLogger(), "login", fmt.Errorf("authentication failed: %w", err))
	}

	con.Success("✓ Successfully authenticated and saved credentials!")
	con.Info("\n🎉 You're ready to go! Try: tunetalk chat")
	return nil
}
