// Package realtime implements the repository interfaces backed by the
// Firebase Realtime Database. Point reads, writes and patch updates go
// through the official Admin SDK; live path subscriptions use the RTDB REST
// streaming protocol (Server-Sent Events), since the Go SDK exposes no
// listener API.
package realtime

import (
	"bufio"
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"ordinem/config"
	"ordinem/internal/domain/repository"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// OAuth scopes required by the RTDB REST streaming endpoint.
var streamingScopes = []string{
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/firebase.database",
}

const (
	reconnectBaseDelay = time.Second
	reconnectMaxDelay  = 30 * time.Second
)

// Client wraps the Admin SDK database client together with the streaming
// transport.
type Client struct {
	db          *db.Client
	databaseURL string
	tokenSource oauth2.TokenSource
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient creates a realtime database client from the Firebase
// configuration.
func NewClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if cfg.Firebase == nil {
		return nil, errors.New("firebase configuration is required")
	}

	app, err := firebase.NewApp(ctx,
		&firebase.Config{
			ProjectID:   cfg.Firebase.ProjectID,
			DatabaseURL: cfg.Firebase.DatabaseURL,
		},
		option.WithCredentialsFile(cfg.Firebase.CredentialsPath),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize Firebase app")
	}

	dbClient, err := app.Database(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get database client")
	}

	credJSON, err := os.ReadFile(cfg.Firebase.CredentialsPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read Firebase credentials")
	}
	creds, err := google.CredentialsFromJSON(ctx, credJSON, streamingScopes...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build streaming credentials")
	}

	return &Client{
		db:          dbClient,
		databaseURL: strings.TrimSuffix(cfg.Firebase.DatabaseURL, "/"),
		tokenSource: creds.TokenSource,
		httpClient:  &http.Client{},
		logger:      logger,
	}, nil
}

// Ref returns the database reference for a path.
func (c *Client) Ref(path string) *db.Ref {
	return c.db.NewRef(path)
}

// Watch attaches an SSE listener on a database path. onChange fires on the
// stream's initial snapshot event and on every subsequent put/patch under
// the path. The connection is re-established with backoff until the
// subscription is closed or ctx is cancelled.
func (c *Client) Watch(ctx context.Context, path string, onChange func()) (repository.Subscription, error) {
	if _, err := c.tokenSource.Token(); err != nil {
		return nil, errors.Wrap(err, "failed to obtain streaming token")
	}

	watchCtx, cancel := context.WithCancel(ctx)
	sub := &sseSubscription{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go c.watchLoop(watchCtx, path, onChange, sub.done)

	return sub, nil
}

func (c *Client) watchLoop(ctx context.Context, path string, onChange func(), done chan<- struct{}) {
	defer close(done)

	delay := reconnectBaseDelay
	for {
		if ctx.Err() != nil {
			return
		}

		if err := c.stream(ctx, path, onChange); err != nil && ctx.Err() == nil {
			c.logger.Warn("realtime stream interrupted, reconnecting",
				slog.String("path", path),
				slog.Duration("delay", delay),
				slog.Any("error", err),
			)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay = min(delay*2, reconnectMaxDelay)
	}
}

// stream opens one SSE connection and pumps events until it breaks.
func (c *Client) stream(ctx context.Context, path string, onChange func()) error {
	token, err := c.tokenSource.Token()
	if err != nil {
		return errors.Wrap(err, "failed to refresh streaming token")
	}

	url := c.databaseURL + "/" + strings.Trim(path, "/") + ".json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Accept", "text/event-stream")
	token.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("streaming endpoint returned status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var event string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			switch event {
			case "put", "patch":
				onChange()
			case "auth_revoked":
				// Token expired server-side; reconnect with a fresh one.
				return errors.New("streaming auth revoked")
			case "cancel":
				return errors.New("stream cancelled by server")
			}
		}
	}

	return errors.Wrap(scanner.Err(), "stream closed")
}

// sseSubscription is the handle for one active SSE listener.
type sseSubscription struct {
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// Close detaches the listener. It blocks until the watch goroutine has
// exited, so no callback fires after Close returns. Idempotent.
func (s *sseSubscription) Close() error {
	s.closeOnce.Do(s.cancel)
	<-s.done

	return nil
}
