package drive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gdrive "google.golang.org/api/drive/v3"
)

// authTimeout bounds how long an interactive consent flow may stay open.
const authTimeout = 5 * time.Minute

// Authenticator obtains a bearer access token through the interactive
// consent flow: it opens a loopback redirect listener, hands the user an
// authorization URL, and exchanges the returned code. The token lives in
// memory only; nothing is persisted across sessions.
type Authenticator struct {
	cfg  *oauth2.Config
	port string

	// PromptURL receives the authorization URL the user must open.
	// Defaults to logging it.
	PromptURL func(url string)
}

func NewAuthenticator(clientID, clientSecret, redirectPort string) *Authenticator {
	return &Authenticator{
		port: redirectPort,
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gdrive.DriveFileScope},
			RedirectURL:  "http://localhost:" + redirectPort + "/callback",
		},
		PromptURL: func(url string) {
			slog.Info("Open this URL to authorize Drive access", "url", url)
		},
	}
}

// Authorize runs the consent flow and returns the bearer access token.
// Cancellation or a denied consent surfaces as an error; no token is
// retained in either case.
func (a *Authenticator) Authorize(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	srv := &http.Server{Addr: ":" + a.port, Handler: mux}
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if errStr := r.URL.Query().Get("error"); errStr != "" {
			http.Error(w, "OAuth error: "+errStr, http.StatusBadRequest)
			errCh <- errors.New("authorization denied: " + errStr)
			return
		}
		fmt.Fprintln(w, "You may close this window and return to Money Map.")
		codeCh <- r.URL.Query().Get("code")
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("redirect listener: %w", err)
		}
	}()
	defer srv.Close()

	a.PromptURL(a.cfg.AuthCodeURL("state-token", oauth2.AccessTypeOnline))

	select {
	case code := <-codeCh:
		tok, err := a.cfg.Exchange(ctx, code)
		if err != nil {
			return "", fmt.Errorf("token exchange: %w", err)
		}
		return tok.AccessToken, nil
	case err := <-errCh:
		return "", err
	case <-ctx.Done():
		return "", fmt.Errorf("authorization timed out: %w", ctx.Err())
	}
}
