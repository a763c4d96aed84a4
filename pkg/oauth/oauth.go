// Package oauth provides the client-credentials token exchange used to talk
// to the game metadata API.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

var (
	ErrTokenNotFound      = errors.New("token not found")
	ErrMissingCredentials = errors.New("missing client credentials")
)

const defaultTokenURL = "https://id.twitch.tv/oauth2/token" // #nosec G101 -- public token endpoint, not a credential

// expirySkew renews tokens slightly before the issuer would reject them.
const expirySkew = time.Minute

type Config struct {
	ClientID     string
	ClientSecret string // #nosec G117 - JSON field for OAuth config, not an exposed secret
	TokenURL     string
}

// TwitchConfig returns the client-credentials config for the IGDB token issuer.
func TwitchConfig(clientID, clientSecret string) Config {
	return Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     defaultTokenURL,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ClientID) == "" || strings.TrimSpace(c.ClientSecret) == "" {
		return ErrMissingCredentials
	}
	if strings.TrimSpace(c.TokenURL) == "" {
		return errors.New("token url required")
	}
	return nil
}

type Token struct {
	AccessToken string    `json:"access_token"` // #nosec G117 - JSON field for OAuth token, not an exposed secret
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	ObtainedAt  time.Time `json:"obtained_at"`
}

// Expired reports whether the token should be renewed at now.
func (t *Token) Expired(now time.Time) bool {
	if t == nil || t.AccessToken == "" {
		return true
	}
	if t.ExpiresIn <= 0 || t.ObtainedAt.IsZero() {
		return true
	}
	expiresAt := t.ObtainedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
	return !now.Add(expirySkew).Before(expiresAt)
}

type Flow struct {
	config Config
	http   *resty.Client
	now    func() time.Time
}

type FlowOption func(*Flow)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(client *http.Client) FlowOption {
	return func(f *Flow) {
		if client != nil {
			f.http = resty.NewWithClient(client)
		}
	}
}

// WithClock overrides the time source stamped onto issued tokens.
func WithClock(now func() time.Time) FlowOption {
	return func(f *Flow) { f.now = now }
}

func NewFlow(config Config, opts ...FlowOption) *Flow {
	f := &Flow{config: config, http: resty.New(), now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	f.http.SetTimeout(15 * time.Second)
	return f
}

// ClientCredentials exchanges the client id and secret for a bearer token.
func (f *Flow) ClientCredentials(ctx context.Context) (*Token, error) {
	if err := f.config.Validate(); err != nil {
		return nil, err
	}

	res, err := f.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"client_id":     f.config.ClientID,
			"client_secret": f.config.ClientSecret,
			"grant_type":    "client_credentials",
		}).
		Post(f.config.TokenURL)
	if err != nil {
		return nil, fmt.Errorf("failed to request token: %w", err)
	}

	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("token exchange failed: status %d", res.StatusCode())
	}

	var token Token
	if err := json.Unmarshal(res.Body(), &token); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, errors.New("token exchange failed: empty access token")
	}
	token.ObtainedAt = f.now()

	return &token, nil
}

type TokenStorage struct {
	dir string
}

func NewTokenStorage(dir string) *TokenStorage {
	return &TokenStorage{dir: dir}
}

func (s *TokenStorage) Save(provider string, token *Token) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	cleanProvider := filepath.Base(provider)
	return os.WriteFile(filepath.Join(s.dir, cleanProvider+"_token.json"), data, 0600)
}

func (s *TokenStorage) Load(provider string) (*Token, error) {
	cleanProvider := filepath.Base(provider)
	data, err := os.ReadFile(filepath.Join(s.dir, cleanProvider+"_token.json")) // #nosec G304 -- provider is sanitized
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to read token: %w", err)
	}

	var token Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}

	return &token, nil
}

// Source hands out a valid token, reusing a cached one until it expires.
// A nil storage disables caching.
type Source struct {
	flow     *Flow
	storage  *TokenStorage
	provider string
	logger   *slog.Logger
}

func NewSource(flow *Flow, storage *TokenStorage, provider string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{flow: flow, storage: storage, provider: provider, logger: logger}
}

// Token returns a cached token when still valid, otherwise a fresh one.
// Cache failures are logged and never fail the exchange.
func (s *Source) Token(ctx context.Context) (*Token, error) {
	if s.storage != nil {
		cached, err := s.storage.Load(s.provider)
		switch {
		case err == nil && !cached.Expired(s.flow.now()):
			s.logger.Debug("using cached token", "provider", s.provider)
			return cached, nil
		case err != nil && !errors.Is(err, ErrTokenNotFound):
			s.logger.Warn("token cache unreadable", "provider", s.provider, "error", err)
		}
	}

	token, err := s.flow.ClientCredentials(ctx)
	if err != nil {
		return nil, err
	}

	if s.storage != nil {
		if err := s.storage.Save(s.provider, token); err != nil {
			s.logger.Warn("token cache not written", "provider", s.provider, "error", err)
		}
	}
	return token, nil
}
