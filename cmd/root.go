package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tunetalk/tunetalk/internal/auth"
	"github.com/tunetalk/tunetalk/internal/config"
	"github.com/tunetalk/tunetalk/internal/console"
	"github.com/tunetalk/tunetalk/internal/logging"
	"github.com/tunetalk/tunetalk/internal/playlist"
)

// version is set via ldflags at build time
var version = "dev"

var (
	cfgFile string
	verbose bool
	noColor bool

	cfg         config.Config
	flushSentry = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "tunetalk",
	Short: "Chat your way to a Spotify playlist",
	Long: `🎵 Chat your way to a Spotify playlist

Describe the music you want in plain words. tunetalk asks a language model to
turn the conversation into seeds and audio features, then builds the playlist
on your Spotify account.

Examples:
  tunetalk setup                             # Save Spotify and model credentials
  tunetalk login                             # Authorise with Spotify (opens browser)
  tunetalk chat                              # Talk until the playlist is ready
  tunetalk parse chill lofi for studying     # Show what the model extracts
  tunetalk search "daft punk" --type artist  # Search the catalog`,
	Version:           version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

func Execute() {
	err := rootCmd.Execute()
	flushSentry()
	if err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.config/tunetalk/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	// child commands added in other files' init()
}

func initConfig(cmd *cobra.Command, _ []string) error {
	log := logging.Setup(os.Stderr, verbose)

	dir, err := config.Dir()
	if err != nil {
		return err
	}
	cfg, err = config.Load(dir, cfgFile)
	if err != nil {
		return err
	}

	flush, err := logging.InitSentry(log, cfg.SentryDSN, version)
	if err != nil {
		log.WithError(err).Warn("error reporting disabled")
	}
	flushSentry = flush

	log.WithFields(logrus.Fields{"dir": cfg.Dir, "provider": cfg.Provider}).Debug("configuration loaded")
	return nil
}

func newConsole(cmd *cobra.Command) *console.Console {
	return console.New(cmd.InOrStdin(), cmd.OutOrStdout(), noColor)
}

func authConfig() *auth.Config {
	return auth.NewConfig(cfg.SpotifyClientID, cfg.SpotifyClientSecret, cfg.SpotifyRedirectURI, cfg.Dir)
}

// reportFailure logs err at error level, which forwards it to Sentry when
// configured. Cancellation and problems the user fixes with another command
// stay at warn level.
func reportFailure(log logrus.FieldLogger, stage string, err error) error {
	entry := log.WithError(err).WithField("stage", stage)
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, auth.ErrNotLoggedIn),
		errors.Is(err, config.ErrMissingCredentials),
		errors.Is(err, playlist.ErrNoTracks):
		entry.Warn("command stopped")
	default:
		entry.Error("command failed")
	}
	return err
}
