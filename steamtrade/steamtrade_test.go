package steamtrade

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/k64z/steamstacks/steamapi"
	"github.com/k64z/steamstacks/steamcommunity"
)

// rewriteTransport points every outgoing request at srv regardless of
// the scheme/host the caller dialed, mirroring how steamcommunity's own
// tests reach hardcoded steamcommunity.com URLs.
type rewriteTransport struct {
	srv  *httptest.Server
	base http.RoundTripper
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	srvURL, _ := url.Parse(t.srv.URL)
	req.URL.Scheme = srvURL.Scheme
	req.URL.Host = srvURL.Host
	return t.base.RoundTrip(req)
}

// newTestStack builds a steamapi.API and steamcommunity.Community both
// pointed at srv: the API via WithBaseURL, the Community via a
// rewriting RoundTripper since its trade endpoints are hardcoded to
// steamcommunity.com.
func newTestStack(t *testing.T, srv *httptest.Server) (*steamapi.API, *steamcommunity.Community) {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("create cookie jar: %v", err)
	}
	for _, raw := range []string{srv.URL, "https://steamcommunity.com"} {
		u, _ := url.Parse(raw)
		jar.SetCookies(u, []*http.Cookie{
			{Name: "sessionid", Value: "test-session-id"},
			{Name: "steamLoginSecure", Value: "76561198000000001%7C%7Ctoken"},
		})
	}

	client := &http.Client{
		Jar:       jar,
		Transport: &rewriteTransport{srv: srv, base: http.DefaultTransport},
	}

	api, err := steamapi.New(steamapi.WithHTTPClient(client), steamapi.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("create api: %v", err)
	}

	community, err := steamcommunity.New(steamcommunity.WithHTTPClient(client))
	if err != nil {
		t.Fatalf("create community: %v", err)
	}

	return api, community
}

func newTestEngine(t *testing.T, srv *httptest.Server, opts ...Option) *Engine {
	t.Helper()
	api, community := newTestStack(t, srv)
	e, err := New(api, community, opts...)
	if err != nil {
		t.Fatalf("create engine: %v", err)
	}
	return e
}

func TestNewRequiresAPIAndCommunity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	api, community := newTestStack(t, srv)

	if _, err := New(nil, community); err == nil {
		t.Error("expected error for nil api")
	}
	if _, err := New(api, nil); err == nil {
		t.Error("expected error for nil community")
	}
	if _, err := New(api, community); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
