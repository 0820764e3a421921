package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

const (
	TokenFileName = "token.json"

	refreshMargin = 5 * time.Minute
)

// ErrNotLoggedIn is returned when no token has been stored yet.
var ErrNotLoggedIn = errors.New("not logged in, run `tunetalk login` first")

// Scopes needed to read the profile and to list and write playlists.
var Scopes = []string{
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopeUserReadPrivate,
}

// Config holds authentication configuration
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	// Dir is where the token file lives.
	Dir string
}

// NewConfig returns a configuration with the default scopes.
func NewConfig(clientID, clientSecret, redirectURI, dir string) *Config {
	return &Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  redirectURI,
		Scopes:       Scopes,
		Dir:          dir,
	}
}

// Port returns the callback port taken from the redirect URI.
func (c *Config) Port() (string, error) {
	u, err := url.Parse(c.RedirectURI)
	if err != nil {
		return "", fmt.Errorf("invalid redirect URI %q: %w", c.RedirectURI, err)
	}
	if port := u.Port(); port != "" {
		return port, nil
	}
	switch u.Scheme {
	case "http":
		return "80", nil
	case "https":
		return "443", nil
	}
	return "", fmt.Errorf("redirect URI %q has no port", c.RedirectURI)
}

func (c *Config) callbackPath() string {
	u, err := url.Parse(c.RedirectURI)
	if err != nil || u.Path == "" {
		return "/callback"
	}
	return u.Path
}

func (c *Config) authenticator() *spotifyauth.Authenticator {
	return spotifyauth.New(
		spotifyauth.WithClientID(c.ClientID),
		spotifyauth.WithClientSecret(c.ClientSecret),
		spotifyauth.WithRedirectURL(c.RedirectURI),
		spotifyauth.WithScopes(c.Scopes...),
	)
}

// TokenPath returns the path to the token file
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFileName)
}

// storedToken is the on-disk token format
type storedToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	Expiry       time.Time `json:"expiry"`
}

// generateCodeVerifier generates a random code verifier for PKCE
func generateCodeVerifier() (string, error) {
	return randomString(32)
}

// generateCodeChallenge generates a code challenge from a verifier
func generateCodeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SaveToken saves a token to disk with secure permissions
func (c *Config) SaveToken(token *oauth2.Token) error {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(storedToken{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	// readable/writable only by owner
	if err := os.WriteFile(c.TokenPath(), data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// LoadToken loads a token from disk
func (c *Config) LoadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(c.TokenPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotLoggedIn
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var st storedToken
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}

	return &oauth2.Token{
		AccessToken:  st.AccessToken,
		RefreshToken: st.RefreshToken,
		TokenType:    st.TokenType,
		Expiry:       st.Expiry,
	}, nil
}

// Logout removes stored credentials
func (c *Config) Logout() error {
	if err := os.Remove(c.TokenPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

// LoggedIn reports whether a stored token is still valid.
func (c *Config) LoggedIn() bool {
	token, err := c.LoadToken()
	if err != nil {
		return false
	}
	return token.Expiry.After(time.Now().Add(time.Minute))
}

// Login runs the PKCE authorization code flow and stores the token.
// Status lines go to out.
func Login(ctx context.Context, config *Config, out io.Writer) error {
	port, err := config.Port()
	if err != nil {
		return err
	}
	if !isPortAvailable(port) {
		return fmt.Errorf("port %s is in use; change SPOTIFY_REDIRECT_URI", port)
	}

	verifier, err := generateCodeVerifier()
	if err != nil {
		return err
	}
	state, err := randomString(16)
	if err != nil {
		return err
	}

	auth := config.authenticator()
	authURL := auth.AuthURL(state,
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		oauth2.SetAuthURLParam("code_challenge", generateCodeChallenge(verifier)),
	)

	tokenChan := make(chan *oauth2.Token, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.Handle(config.callbackPath(), callbackHandler(ctx, auth, state, verifier, tokenChan, errChan))
	server := &http.Server{
		Addr:              "127.0.0.1:" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("callback server error: %w", err)
		}
	}()
	defer server.Shutdown(context.Background())

	fmt.Fprintln(out, "🌐 Opening browser for Spotify authentication...")
	if err := openBrowser(authURL); err != nil {
		fmt.Fprintf(out, "Could not open browser automatically. Please visit this URL:\n\n%s\n\n", authURL)
	}

	select {
	case token := <-tokenChan:
		if err := config.SaveToken(token); err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}
		return nil
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return fmt.Errorf("authentication cancelled: %w", ctx.Err())
	}
}

const successPage = `<!DOCTYPE html>
<html>
<head><title>tunetalk</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 50px;">
<h2>✓ Authentication successful</h2>
<p>You can close this tab and return to your terminal.</p>
</body>
</html>`

func callbackHandler(ctx context.Context, auth *spotifyauth.Authenticator, state, verifier string, tokens chan<- *oauth2.Token, errs chan<- error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if authError := r.FormValue("error"); authError != "" {
			http.Error(w, "Authorization failed: "+authError, http.StatusBadRequest)
			report(errs, fmt.Errorf("authorization error: %s", authError))
			return
		}

		token, err := auth.Token(ctx, state, r, oauth2.SetAuthURLParam("code_verifier", verifier))
		if err != nil {
			http.Error(w, "Failed to exchange code for token", http.StatusForbidden)
			report(errs, fmt.Errorf("failed to exchange code for token: %w", err))
			return
		}

		fmt.Fprint(w, successPage)
		report(tokens, token)
	}
}

// report delivers v unless a result is already pending.
func report[T any](ch chan<- T, v T) {
	select {
	case ch <- v:
	default:
	}
}

// Client returns an authenticated Spotify client, refreshing the stored
// token when it is close to expiry.
func Client(ctx context.Context, config *Config, log logrus.FieldLogger) (*spotify.Client, error) {
	token, err := config.LoadToken()
	if err != nil {
		return nil, err
	}

	auth := config.authenticator()
	if token.Expiry.Before(time.Now().Add(refreshMargin)) {
		log.Debug("token expired or expiring soon, refreshing")
		refreshed, err := auth.RefreshToken(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("failed to refresh token: %w", err)
		}
		if refreshed.RefreshToken == "" {
			refreshed.RefreshToken = token.RefreshToken
		}
		if err := config.SaveToken(refreshed); err != nil {
			log.WithError(err).Warn("failed to save refreshed token")
		}
		token = refreshed
	}

	return spotify.New(auth.Client(ctx, token)), nil
}

// Helper functions for command execution
var (
	execCommand  = execCommandImpl
	execLookPath = exec.LookPath
)

func execCommandImpl(name string, arg ...string) error {
	return exec.Command(name, arg...).Run()
}

// openBrowser attempts to open the given URL in the user's browser
func openBrowser(url string) error {
	switch {
	case isCommandAvailable("xdg-open"):
		return execCommand("xdg-open", url)
	case isCommandAvailable("open"):
		return execCommand("open", url)
	case isCommandAvailable("cmd"):
		return execCommand("cmd", "/c", "start", url)
	default:
		return fmt.Errorf("no browser opener found")
	}
}

func isCommandAvailable(name string) bool {
	_, err := execLookPath(name)
	return err == nil
}

// isPortAvailable checks if a port is available for listening
func isPortAvailable(port string) bool {
	ln, err := net.Listen("tcp", "127.0.0.1:"+port)
	if err != nil {
		return false
	}
	ln.Close()
	return true
}
