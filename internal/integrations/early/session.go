package early

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/vthunder/early-mcp/internal/logging"
)

const (
	// DefaultBaseURL is the Timeular v3 API.
	DefaultBaseURL = "https://api.timeular.com/api/v3"
	// DefaultTimeout bounds every request, sign-in included.
	DefaultTimeout = 30 * time.Second

	signInPath = "/developer/sign-in"
)

// Credentials are the developer API key pair exchanged for a bearer token.
type Credentials struct {
	APIKey    string `validate:"required"`
	APISecret string `validate:"required"`
}

// Options configures a Session.
type Options struct {
	Credentials Credentials
	BaseURL     string        // defaults to DefaultBaseURL
	Timeout     time.Duration // defaults to DefaultTimeout
	Transport   http.RoundTripper
}

// Session lazily signs in and hands out one authenticated Client for its
// whole lifetime. The token is never refreshed: if it expires server-side,
// later calls fail with the remote error until the process restarts.
type Session struct {
	opts       Options
	httpClient *http.Client
	validate   *validator.Validate
	group      singleflight.Group

	mu     sync.Mutex
	client *Client
	fatal  error // configuration or authentication failure, returned forever
}

// NewSession creates a Session. No network traffic happens until Client is
// called.
func NewSession(opts Options) *Session {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Session{
		opts: opts,
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: opts.Transport,
		},
		validate: validator.New(),
	}
}

// Client returns the authenticated client, signing in on first use.
// Concurrent first callers share a single sign-in. A caller whose ctx ends
// stops waiting, but the shared sign-in runs to completion.
func (s *Session) Client(ctx context.Context) (*Client, error) {
	if c, err := s.cached(); c != nil || err != nil {
		return c, err
	}

	ch := s.group.DoChan("sign-in", func() (any, error) {
		if c, err := s.cached(); c != nil || err != nil {
			return c, err
		}
		c, err := s.signIn(context.WithoutCancel(ctx))

		s.mu.Lock()
		defer s.mu.Unlock()
		switch {
		case err == nil:
			s.client = c
		case isFatal(err):
			s.fatal = err
		}
		return c, err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Client), nil
	}
}

func (s *Session) cached() (*Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client, s.fatal
}

type signInRequest struct {
	APIKey    string `json:"apiKey"`
	APISecret string `json:"apiSecret"`
}

type signInResponse struct {
	Token string `json:"token"`
}

func (s *Session) signIn(ctx context.Context) (*Client, error) {
	if err := s.validate.Struct(s.opts.Credentials); err != nil {
		return nil, credentialsError(err)
	}

	data, err := json.Marshal(signInRequest{
		APIKey:    s.opts.Credentials.APIKey,
		APISecret: s.opts.Credentials.APISecret,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal sign-in: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.opts.BaseURL+signInPath, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create sign-in request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sign-in request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read sign-in response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &AuthenticationError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body)}
	}

	var out signInResponse
	if err := json.Unmarshal(body, &out); err != nil || out.Token == "" {
		return nil, &AuthenticationError{StatusCode: resp.StatusCode, Status: resp.Status, Body: "no token in response"}
	}

	logging.Info("early", "Signed in to %s", s.opts.BaseURL)
	return newClient(s.opts.BaseURL, out.Token, s.httpClient), nil
}

// credentialsError names the missing credentials by their environment
// variables.
func credentialsError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ConfigurationError{Reason: err.Error()}
	}
	var missing []string
	for _, fe := range verrs {
		switch fe.Field() {
		case "APIKey":
			missing = append(missing, "EARLY_API_KEY")
		case "APISecret":
			missing = append(missing, "EARLY_API_SECRET")
		default:
			missing = append(missing, fe.Field())
		}
	}
	return &ConfigurationError{Reason: strings.Join(missing, " and ") + " required"}
}

func isFatal(err error) bool {
	var cfgErr *ConfigurationError
	var authErr *AuthenticationError
	return errors.As(err, &cfgErr) || errors.As(err, &authErr)
}
