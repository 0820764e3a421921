package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tunetalk/tunetalk/internal/ai"
	"github.com/tunetalk/tunetalk/internal/auth"
	"github.com/tunetalk/tunetalk/internal/conversation"
	"github.com/tunetalk/tunetalk/internal/playlist"
	"github.com/tunetalk/tunetalk/internal/request"
	spotifyx "github.com/tunetalk/tunetalk/internal/spotify"
)

var (
	chatLimit       int
	chatPublic      bool
	chatFallback    bool
	chatConfirm     bool
	chatMaxAttempts int
)

func init() {
	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Describe a playlist in conversation and create it on Spotify",
		Long: `Start a conversation about the music you want. Once the model can turn
what you said into seeds and audio features, tunetalk creates the playlist on
your Spotify account and prints its link.

If the model cannot make sense of your answers after --max-attempts tries the
conversation ends. With --fallback tunetalk then guesses from keywords instead.

Examples:
  tunetalk chat
  tunetalk chat --confirm --limit 60
  tunetalk chat --public --fallback`,
		Args: cobra.NoArgs,
		RunE: runChat,
	}
	chatCmd.Flags().IntVarP(&chatLimit, "limit", "n", 0, "number of tracks to request (1-100, default from config)")
	chatCmd.Flags().BoolVar(&chatPublic, "public", false, "make the playlist public")
	chatCmd.Flags().BoolVar(&chatFallback, "fallback", false, "guess from keywords when the conversation gives up")
	chatCmd.Flags().BoolVar(&chatConfirm, "confirm", false, "show the extracted request and ask before creating")
	chatCmd.Flags().IntVar(&chatMaxAttempts, "max-attempts", 0, "failed extractions before giving up (default from config)")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	con := newConsole(cmd)
	log := logrus.StandardLogger()

	if err := cfg.RequireCredentials(); err != nil {
		con.Error("🔐 Some credentials are missing. Run 'tunetalk setup' first.")
		return err
	}
	applyChatFlags(cmd)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	go func() {
		// a second Ctrl-C kills the process
		<-ctx.Done()
		stop()
	}()

	client, err := auth.Client(ctx, authConfig(), log)
	if err != nil {
		if errors.Is(err, auth.ErrNotLoggedIn) {
			con.Error("🔐 Authentication required! Run: tunetalk login")
		}
		return reportFailure(log, "auth", err)
	}

	gen, err := ai.NewGenerator(ctx, cfg.Generator())
	if err != nil {
		return reportFailure(log, "model", err)
	}
	gen = ai.WithTimeout(gen, cfg.RequestTimeout)

	loop := conversation.NewLoop(gen, con, con, conversation.Config{
		MaxAttempts:   cfg.MaxAttempts,
		HistoryWindow: cfg.HistoryWindow,
		Confirm:       cfg.Confirm,
	}, log)

	req, err := loop.Run(ctx)
	if err != nil {
		req, err = recoverGaveUp(con, loop, err)
		if err != nil {
			return reportFailure(log.WithField("session", loop.SessionID()), "conversation", err)
		}
	}

	if verbose {
		con.Muted(req.Summary())
	}

	builder := playlist.NewBuilder(spotifyx.NewClient(client, log), playlist.Options{
		Limit:       cfg.TrackLimit,
		DefaultName: cfg.DefaultPlaylistName,
		Public:      cfg.Public,
	}, log.WithField("session", loop.SessionID()))

	con.Info("🔎 Finding tracks...")
	res, err := builder.Build(ctx, req)
	if err != nil {
		if errors.Is(err, playlist.ErrNoTracks) {
			con.Warn("😕 Nothing matched that vibe, so no playlist was created.")
		} else {
			con.Error("❌ Could not create your playlist.")
		}
		return reportFailure(log.WithField("session", loop.SessionID()), "playlist", err)
	}

	con.Success(fmt.Sprintf("✅ Created %q with %d tracks!", res.Name, res.TrackCount))
	con.Printf("🔗 %s\n", res.URL)
	return nil
}

func applyChatFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("limit") {
		cfg.TrackLimit = chatLimit
	}
	if flags.Changed("public") {
		cfg.Public = chatPublic
	}
	if flags.Changed("confirm") {
		cfg.Confirm = chatConfirm
	}
	if flags.Changed("max-attempts") {
		cfg.MaxAttempts = chatMaxAttempts
	}
	if cfg.TrackLimit > spotifyx.MaxRecommendations {
		cfg.TrackLimit = spotifyx.MaxRecommendations
	}
}

type notifier interface {
	Warn(msg string)
	Info(msg string)
}

// recoverGaveUp turns a given-up conversation into a keyword guess when
// --fallback is set. Other errors pass through.
func recoverGaveUp(out notifier, loop *conversation.Loop, err error) (request.PlaylistRequest, error) {
	var gaveUp *conversation.GaveUpError
	if !errors.As(err, &gaveUp) {
		return request.PlaylistRequest{}, err
	}
	out.Warn(fmt.Sprintf("🤷 Giving up on the conversation: %s", gaveUp.Reason))
	if !chatFallback {
		return request.PlaylistRequest{}, err
	}

	req := ai.HeuristicRequest(loop.UserText())
	if req.IsEmpty() {
		out.Warn("No keywords to fall back on either.")
		return request.PlaylistRequest{}, err
	}
	out.Info("📝 Falling back to a keyword guess:")
	out.Info(req.Summary())
	return req, nil
}
