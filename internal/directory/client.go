// Package directory talks to the external identity service that owns accounts,
// sessions and display names.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/yakoovad/teambuilder/pkg/logger"
	"go.uber.org/zap"
)

var (
	// ErrAuth means the directory rejected the credentials or session.
	ErrAuth = errors.New("directory: authorization failed")
	// ErrNotFound means the directory has no account for the email.
	ErrNotFound = errors.New("directory: account not found")
	// ErrUnavailable covers transport failures, timeouts and malformed replies.
	ErrUnavailable = errors.New("directory: unavailable")
)

type Token string

type Config struct {
	BaseURL string
	// Email and Password are the service credentials used by Authorize.
	Email    string
	Password string
	// LookupEmail is the identity the service presents on read queries.
	LookupEmail string
	Timeout     time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// envelope is the directory's reply shape: transport status 200 with the real status inside.
type envelope struct {
	StatusCode int             `json:"statusCode"`
	Body       json.RawMessage `json:"body"`
}

// Authorize obtains a service token for subsequent reads.
func (c *Client) Authorize(ctx context.Context) (Token, error) {
	env, err := c.call(ctx, "/authorize", map[string]any{
		"email":    c.cfg.Email,
		"password": c.cfg.Password,
	})
	if err != nil {
		return "", err
	}
	if env.StatusCode != http.StatusOK {
		return "", ErrAuth
	}

	var body struct {
		Auth struct {
			Token string `json:"token"`
		} `json:"auth"`
	}
	if err = json.Unmarshal(env.Body, &body); err != nil || body.Auth.Token == "" {
		return "", errors.Wrap(ErrUnavailable, "authorize: malformed body")
	}
	return Token(body.Auth.Token), nil
}

// Validate checks that token is a live session for email.
func (c *Client) Validate(ctx context.Context, email string, token string) error {
	env, err := c.call(ctx, "/validate", map[string]any{
		"email": email,
		"token": token,
	})
	if err != nil {
		return err
	}

	switch env.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return ErrAuth
	default:
		return errors.Wrapf(ErrUnavailable, "validate: status %d", env.StatusCode)
	}
}

// ResolveName returns "first last" for email, trimmed of missing parts.
func (c *Client) ResolveName(ctx context.Context, token Token, email string) (string, error) {
	env, err := c.call(ctx, "/read", map[string]any{
		"email": c.cfg.LookupEmail,
		"token": string(token),
		"query": map[string]string{"email": email},
	})
	if err != nil {
		return "", err
	}

	switch env.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", ErrAuth
	default:
		return "", errors.Wrapf(ErrUnavailable, "read: status %d", env.StatusCode)
	}

	var people []struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err = json.Unmarshal(env.Body, &people); err != nil {
		return "", errors.Wrap(ErrUnavailable, "read: malformed body")
	}
	if len(people) == 0 {
		return "", ErrNotFound
	}

	return strings.TrimSpace(people[0].FirstName + " " + people[0].LastName), nil
}

func (c *Client) call(ctx context.Context, path string, payload any) (*envelope, error) {
	l := logger.FromContext(ctx)

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "encode directory request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(err, "build directory request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		l.Warn("directory call failed", zap.String("path", path), zap.Error(err))
		return nil, errors.Wrap(ErrUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		l.Warn("directory returned non-2xx", zap.String("path", path), zap.Int("status", resp.StatusCode))
		return nil, errors.Wrapf(ErrUnavailable, "%s: http %d", path, resp.StatusCode)
	}

	env := &envelope{}
	if err = json.NewDecoder(resp.Body).Decode(env); err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "%s: decode: %v", path, err)
	}
	return env, nil
}
