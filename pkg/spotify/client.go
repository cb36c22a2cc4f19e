// Package spotify fetches playlist tracks and audio features from the Spotify
// Web API for catalog collection. Requests go through client-credentials
// OAuth, a rate limiter, and a circuit breaker.
package spotify

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the Spotify Web API root.
	DefaultBaseURL = "https://api.spotify.com/v1"
	// TokenURL is the Spotify accounts token endpoint.
	TokenURL = "https://accounts.spotify.com/api/token"

	defaultRatePerSec = 8
	defaultBurst      = 4
)

// Config configures a Client. HTTPClient overrides the OAuth transport when
// set, which tests use to point at a fake server.
type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	HTTPClient   *http.Client
	MaxRetries   int
	BaseBackoff  time.Duration
}

// Client is the Spotify Web API client.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker[*http.Response]
	maxRetries  int
	baseBackoff time.Duration
}

// NewClient constructs a Spotify client. When cfg.HTTPClient is nil the
// client authenticates via the client-credentials flow.
func NewClient(ctx context.Context, cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     TokenURL,
		}
		httpClient = cc.Client(ctx)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:    "spotify",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(baseURL, "/"),
		limiter:     rate.NewLimiter(rate.Limit(defaultRatePerSec), defaultBurst),
		breaker:     breaker,
		maxRetries:  cfg.MaxRetries,
		baseBackoff: cfg.BaseBackoff,
	}
}

// do sends a request through the rate limiter and circuit breaker, with
// retry on transient failures.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return c.breaker.Execute(func() (*http.Response, error) {
		return c.doRequestWithRetry(req)
	})
}
