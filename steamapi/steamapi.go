package steamapi

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/k64z/steamstacks/steamweb"
)

// defaultBaseURL is Steam's public Web API host.
const defaultBaseURL = "https://api.steampowered.com"

type API struct {
	httpClient  *http.Client
	accessToken string
	logger      *slog.Logger
	baseURL     string
}

type config struct {
	httpClient  *http.Client
	logger      *slog.Logger
	baseURL     string
	rateLimiter *steamweb.Limiter
}

type Option func(options *config) error

func WithHTTPClient(httpClient *http.Client) Option {
	return func(options *config) error {
		if httpClient == nil {
			return errors.New("httpClient should be non-nil")
		}
		options.httpClient = httpClient
		return nil
	}
}

// WithLogger sets the structured logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(options *config) error {
		if logger == nil {
			return errors.New("logger should be non-nil")
		}
		options.logger = logger
		return nil
	}
}

// WithBaseURL overrides the Steam Web API host. Used by tests to point
// the client at a local server instead of api.steampowered.com.
func WithBaseURL(baseURL string) Option {
	return func(options *config) error {
		if baseURL == "" {
			return errors.New("baseURL should be non-empty")
		}
		options.baseURL = strings.TrimSuffix(baseURL, "/")
		return nil
	}
}

// WithRateLimiter installs a host-keyed request throttle shared with
// whatever else the caller wires it into (e.g. a steamcommunity.Community
// built against the same limiter), so the two clients' Web API and
// community-site traffic stays under one combined budget per host.
func WithRateLimiter(limiter *steamweb.Limiter) Option {
	return func(options *config) error {
		if limiter == nil {
			return errors.New("limiter should be non-nil")
		}
		options.rateLimiter = limiter
		return nil
	}
}

func New(opts ...Option) (*API, error) {
	var cfg config
	for _, opt := range opts {
		err := opt(&cfg)
		if err != nil {
			return nil, err
		}
	}

	a := &API{}

	if cfg.httpClient != nil {
		a.httpClient = cfg.httpClient
	} else {
		a.httpClient = http.DefaultClient
	}

	if cfg.rateLimiter != nil {
		// Copy rather than mutate the caller's client: two packages may
		// share the same *http.Client to share cookies, and each wants
		// its own rate-limited Transport layered on top without
		// clobbering the other's wrapping.
		limited := *a.httpClient
		limited.Transport = steamweb.NewLimitedTransport(cfg.rateLimiter, a.httpClient.Transport)
		a.httpClient = &limited
	}

	if cfg.logger != nil {
		a.logger = cfg.logger
	} else {
		a.logger = slog.Default()
	}

	if cfg.baseURL != "" {
		a.baseURL = cfg.baseURL
	} else {
		a.baseURL = defaultBaseURL
	}

	// Extract access token from cookie jar (if available)
	if a.httpClient.Jar != nil {
		a.accessToken, _ = extractAccessToken(a.httpClient.Jar)
	}

	return a, nil
}

// extractAccessToken extracts the access token from the steamLoginSecure cookie.
// The cookie format is "{steamid}||{access_token}" (URL encoded as "%7C%7C").
func extractAccessToken(jar http.CookieJar) (string, error) {
	u, _ := url.Parse("https://steamcommunity.com")
	cookies := jar.Cookies(u)

	for _, cookie := range cookies {
		if cookie.Name == "steamLoginSecure" {
			parts := strings.Split(cookie.Value, "%7C%7C") // URL encoded "||"
			if len(parts) < 2 {
				return "", errors.New("unsplittable steamLoginSecure cookie")
			}
			return parts[1], nil
		}
	}

	return "", errors.New("missing steamLoginSecure cookie")
}

// DoRequest executes an arbitrary HTTP request using the API's httpClient
func (a *API) DoRequest(req *http.Request) (*http.Response, error) {
	return a.httpClient.Do(req)
}
