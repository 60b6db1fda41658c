// Package auth performs the OAuth1 three-legged authorization against the
// E*Trade API and persists the resulting session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dghubble/oauth1"
	"gopkg.in/yaml.v3"
)

// Env selects the API environment
type Env string

const (
	Sandbox Env = "sandbox"
	Prod    Env = "prod"
)

var baseURLs = map[Env]string{
	Sandbox: "https://apisb.etrade.com",
	Prod:    "https://api.etrade.com",
}

// authorizeURL is where the user approves the request token
const authorizeURL = "https://us.etrade.com/e/t/etws/authorize"

// ParseEnv validates an environment name
func ParseEnv(s string) (Env, error) {
	env := Env(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := baseURLs[env]; !ok {
		return "", fmt.Errorf("unknown environment %q (must be sandbox or prod)", s)
	}
	return env, nil
}

// BaseURL returns the API base URL of env
func BaseURL(env Env) (string, error) {
	u, ok := baseURLs[env]
	if !ok {
		return "", fmt.Errorf("unknown environment %q", env)
	}
	return u, nil
}

// LookupFunc reads an environment variable, like os.LookupEnv
type LookupFunc func(key string) (string, bool)

// ConsumerKey reads ETRADE_<ENV>_KEY and ETRADE_<ENV>_SECRET
func ConsumerKey(env Env, lookup LookupFunc) (key, secret string, err error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	prefix := "ETRADE_" + strings.ToUpper(string(env))

	key, ok := lookup(prefix + "_KEY")
	if !ok || key == "" {
		return "", "", fmt.Errorf("%s_KEY is not set", prefix)
	}
	secret, ok = lookup(prefix + "_SECRET")
	if !ok || secret == "" {
		return "", "", fmt.Errorf("%s_SECRET is not set", prefix)
	}
	return key, secret, nil
}

// Flow walks through the three OAuth1 legs: request token, user
// authorization and access token
type Flow struct {
	env           Env
	config        *oauth1.Config
	authorizeBase string

	requestToken  string
	requestSecret string
}

// NewFlow creates a flow for env using the given consumer credentials
func NewFlow(env Env, consumerKey, consumerSecret string) (*Flow, error) {
	base, err := BaseURL(env)
	if err != nil {
		return nil, err
	}
	return newFlow(env, base, authorizeURL, consumerKey, consumerSecret), nil
}

func newFlow(env Env, base, authorize, consumerKey, consumerSecret string) *Flow {
	return &Flow{
		env:           env,
		authorizeBase: authorize,
		config: &oauth1.Config{
			ConsumerKey:    consumerKey,
			ConsumerSecret: consumerSecret,
			CallbackURL:    "oob",
			Endpoint: oauth1.Endpoint{
				RequestTokenURL: base + "/oauth/request_token",
				AuthorizeURL:    authorize,
				AccessTokenURL:  base + "/oauth/access_token",
			},
		},
	}
}

// Begin obtains a request token and returns the URL the user must open to
// get a verification code
func (f *Flow) Begin(ctx context.Context) (string, error) {
	token, secret, err := tokenCall(ctx, f.config.RequestToken)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("failed to get request token: %w", err)
	}
	f.requestToken = token
	f.requestSecret = secret

	// E*Trade expects key/token instead of the standard oauth_token parameter
	q := url.Values{}
	q.Set("key", f.config.ConsumerKey)
	q.Set("token", token)
	return f.authorizeBase + "?" + q.Encode(), nil
}

// Complete exchanges the verification code for an access token
func (f *Flow) Complete(ctx context.Context, verifier string) (*Session, error) {
	if f.requestToken == "" {
		return nil, errors.New("authorization not started")
	}
	verifier = strings.TrimSpace(verifier)
	if verifier == "" {
		return nil, errors.New("verification code is required")
	}

	token, secret, err := tokenCall(ctx, func() (string, string, error) {
		return f.config.AccessToken(f.requestToken, f.requestSecret, verifier)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	return &Session{
		Env:            f.env,
		ConsumerKey:    f.config.ConsumerKey,
		ConsumerSecret: f.config.ConsumerSecret,
		AccessToken:    token,
		AccessSecret:   secret,
	}, nil
}

type tokenResult struct {
	token, secret string
	err           error
}

// tokenCall runs a token request and returns early once ctx is done. The
// oauth1 token requests take no context, so an abandoned request still runs
// to completion in the background.
func tokenCall(ctx context.Context, fn func() (string, string, error)) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	done := make(chan tokenResult, 1)
	go func() {
		token, secret, err := fn()
		done <- tokenResult{token: token, secret: secret, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", "", ctx.Err()
	case r := <-done:
		return r.token, r.secret, r.err
	}
}

// Session holds the credentials of an authorized user
type Session struct {
	Env            Env    `yaml:"env"`
	ConsumerKey    string `yaml:"consumer_key"`
	ConsumerSecret string `yaml:"consumer_secret"`
	AccessToken    string `yaml:"access_token"`
	AccessSecret   string `yaml:"access_secret"`
}

// Client returns an HTTP client that signs every request with the session's
// access token
func (s *Session) Client(ctx context.Context) *http.Client {
	config := oauth1.NewConfig(s.ConsumerKey, s.ConsumerSecret)
	return config.Client(ctx, oauth1.NewToken(s.AccessToken, s.AccessSecret))
}

// SaveSession writes s to path, readable only by the current user
func SaveSession(path string, s *Session) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// LoadSession reads a session written by SaveSession
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session (run authorize first): %w", err)
	}

	var s Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}
	if s.AccessToken == "" || s.AccessSecret == "" {
		return nil, fmt.Errorf("session %s has no access token", path)
	}
	if _, err := BaseURL(s.Env); err != nil {
		return nil, err
	}
	return &s, nil
}
