package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tunetalk/tunetalk/internal/config"
)

func init() {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Check authentication status and configuration",
		Long: `Display which credentials are configured, the selected model provider,
token expiry and where files are stored.`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	con := newConsole(cmd)
	con.Info(con.Bold("🔍 tunetalk Status"))
	con.Info("═════════════════")
	con.Info("")

	con.Info("📱 Configuration:")
	con.Info(credentialLine("Spotify client ID", cfg.SpotifyClientID, true))
	con.Info(credentialLine("Spotify client secret", cfg.SpotifyClientSecret, false))
	if cfg.SpotifyRedirectURI == "" {
		con.Info(credentialLine("Redirect URI", "", true))
	} else {
		con.Info(fmt.Sprintf("   Redirect URI: %s", cfg.SpotifyRedirectURI))
	}
	model := cfg.Model
	if model == "" {
		model = "default model"
	}
	con.Info(fmt.Sprintf("   Provider: %s (%s)", cfg.Provider, model))
	con.Info(credentialLine(cfg.APIKeyEnv(), cfg.APIKey(), false))
	con.Info(fmt.Sprintf("   Tracks per playlist: %d, attempts before giving up: %d", cfg.TrackLimit, cfg.MaxAttempts))
	con.Info("")

	ac := authConfig()
	con.Info("🔐 Authentication:")
	if token, err := ac.LoadToken(); err != nil {
		con.Info("   Status: ❌ Not authenticated")
		con.Info("   Action: Run 'tunetalk login' to authenticate")
	} else if left := time.Until(token.Expiry); left > 0 {
		con.Info("   Status: ✅ Authenticated and ready")
		con.Info(fmt.Sprintf("   Token expires: %s (%s from now)", token.Expiry.Format("2006-01-02 15:04:05"), formatDuration(left)))
	} else {
		con.Info("   Status: ✅ Authenticated")
		con.Info("   Token expires: ⚠️  Expired (will auto-refresh on next use)")
	}
	con.Info("")

	con.Info("📁 Storage:")
	con.Info(fmt.Sprintf("   Config directory: %s", cfg.Dir))
	con.Info(fileLine("Config file", cfg.Dir+string(os.PathSeparator)+config.FileName))
	con.Info(fileLine("Token file", ac.TokenPath()))
	con.Info("")

	con.Info("💡 Available Actions:")
	if err := cfg.RequireCredentials(); err != nil {
		con.Info("   • tunetalk setup     - Save your Spotify app and model credentials")
	}
	if !ac.LoggedIn() {
		con.Info("   • tunetalk login     - Authenticate with Spotify")
	} else {
		con.Info("   • tunetalk chat      - Build a playlist")
		con.Info("   • tunetalk logout    - Remove stored credentials")
	}
	return nil
}

func credentialLine(label, value string, show bool) string {
	switch {
	case value == "":
		return fmt.Sprintf("   %s: ❌ Not configured", label)
	case show:
		return fmt.Sprintf("   %s: ✅ %s", label, maskSecret(value))
	default:
		return fmt.Sprintf("   %s: ✅ set", label)
	}
}

func fileLine(label, path string) string {
	if _, err := os.Stat(path); err == nil {
		return fmt.Sprintf("   %s: %s ✅", label, path)
	}
	return fmt.Sprintf("   %s: %s ❌ (not found)", label, path)
}

func maskSecret(s string) string {
	if len(s) < 8 {
		return s
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func formatDuration(d time.Duration) string {
	if d < time.Hour {
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	} else if d < 24*time.Hour {
		return fmt.Sprintf("%d hours", int(d.Hours()))
	}
	return fmt.Sprintf("%d days", int(d.Hours()/24))
}
