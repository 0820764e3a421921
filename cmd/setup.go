package cmd

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tunetalk/tunetalk/internal/ai"
	"github.com/tunetalk/tunetalk/internal/config"
	"github.com/tunetalk/tunetalk/internal/console"
)

func init() {
	setupCmd := &cobra.Command{
		Use:   "setup",
		Short: "Setup wizard for Spotify and model credentials",
		Long: `Interactive wizard that walks you through creating a Spotify app and
saves your credentials to ~/.config/tunetalk/.env:

  SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET, SPOTIFY_REDIRECT_URI
  GEMINI_API_KEY or OPENAI_API_KEY

Values already exported in your shell take precedence over the file.`,
		Args: cobra.NoArgs,
		RunE: runSetup,
	}

	rootCmd.AddCommand(setupCmd)
}

type lineReader interface {
	ReadLine(prompt string) (string, error)
}

var clientIDPattern = regexp.MustCompile(`^[a-f0-9]{32}$`)

func runSetup(cmd *cobra.Command, _ []string) error {
	con := newConsole(cmd)
	con.Info(con.Bold("🔧 tunetalk Setup"))
	con.Info("═════════════════════════════")
	con.Info("")

	if err := cfg.RequireCredentials(); err == nil {
		con.Success("✅ All credentials are already configured.")
		if !askYesNo(con, "Do you want to reconfigure them?") {
			return nil
		}
	}

	redirectURI := cfg.SpotifyRedirectURI
	if redirectURI == "" {
		redirectURI = config.DefaultRedirectURI
	}

	con.Info("🌐 Step 1: Create Your Spotify App")
	con.Info("1. Open: https://developer.spotify.com/dashboard")
	con.Info("2. Click 'Create app' and check 'Web API'")
	con.Info(fmt.Sprintf("3. Add this Redirect URI: %s", redirectURI))
	con.Info("4. Save, then open the app's settings")
	con.Info("")

	values := map[string]string{}

	clientID, err := askUntil(con, "Client ID: ", cfg.SpotifyClientID, isValidClientID,
		"That doesn't look like a Spotify Client ID (32 hex characters).")
	if err != nil {
		return err
	}
	values[config.EnvSpotifyClientID] = clientID

	secret, err := askUntil(hidden{con}, "Client Secret: ", cfg.SpotifyClientSecret, isValidClientID,
		"That doesn't look like a Spotify Client Secret (32 hex characters).")
	if err != nil {
		return err
	}
	values[config.EnvSpotifyClientSecret] = secret

	redirect, err := askDefault(con, fmt.Sprintf("Redirect URI [%s]: ", redirectURI), redirectURI)
	if err != nil {
		return err
	}
	values[config.EnvSpotifyRedirectURI] = redirect
	con.Info("")

	con.Info("🤖 Step 2: Choose a Model Provider")
	provider, err := askUntil(con, fmt.Sprintf("Provider (gemini/openai) [%s]: ", cfg.Provider), cfg.Provider,
		func(s string) bool { s = strings.ToLower(s); return s == ai.ProviderGemini || s == ai.ProviderOpenAI },
		"Please answer gemini or openai.")
	if err != nil {
		return err
	}
	cfg.Provider = strings.ToLower(provider)

	keyEnv := cfg.APIKeyEnv()
	key, err := askUntil(hidden{con}, keyEnv+": ", cfg.APIKey(), func(s string) bool { return s != "" }, "The API key cannot be empty.")
	if err != nil {
		return err
	}
	values[keyEnv] = key
	con.Info("")

	con.Info("💾 Step 3: Save Configuration")
	path, err := config.SaveEnv(cfg.Dir, values)
	if err != nil {
		return err
	}
	con.Success(fmt.Sprintf("✅ Saved credentials to %s", path))
	if err := cfg.Save(); err != nil {
		return err
	}
	con.Success(fmt.Sprintf("✅ Saved settings to %s/%s", cfg.Dir, config.FileName))

	con.Info("")
	con.Info("🎉 Setup Complete! Next steps:")
	con.Info("1. Run: tunetalk login")
	con.Info("2. Try: tunetalk chat")
	return nil
}

// askDefault returns the trimmed answer, or def when it is blank.
func askDefault(in lineReader, prompt, def string) (string, error) {
	answer, err := in.ReadLine(prompt)
	if err != nil {
		return "", err
	}
	if answer = strings.TrimSpace(answer); answer == "" {
		return def, nil
	}
	return answer, nil
}

// hidden reads answers without echoing them.
type hidden struct{ *console.Console }

func (h hidden) ReadLine(prompt string) (string, error) { return h.ReadSecret(prompt) }

type warner interface {
	lineReader
	Warn(msg string)
}

// askUntil repeats prompt until valid accepts the answer. A blank answer
// keeps current when current is valid.
func askUntil(con warner, prompt, current string, valid func(string) bool, hint string) (string, error) {
	if current != "" && valid(current) {
		prompt = fmt.Sprintf("%s(enter to keep %s) ", prompt, maskSecret(current))
	}
	for {
		answer, err := askDefault(con, prompt, current)
		if err != nil {
			return "", err
		}
		if valid(answer) {
			return answer, nil
		}
		con.Warn("❌ " + hint)
	}
}

func askYesNo(in lineReader, question string) bool {
	input, err := in.ReadLine(question + " (y/n): ")
	if err != nil {
		return false
	}
	input = strings.ToLower(strings.TrimSpace(input))
	return input == "y" || input == "yes"
}

func isValidClientID(clientID string) bool {
	return clientIDPattern.MatchString(strings.ToLower(clientID))
}
