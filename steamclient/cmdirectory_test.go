package steamclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"
)

func TestCMDirectoryUsesFreshCacheWithoutFetching(t *testing.T) {
	fetched := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetched = true
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	d := NewCMDirectory(ts.Client(), "")
	d.entries = []cacheEntry{
		{Server: CMServer{Addr: "cached-ws:443", Type: "websockets"}, LastSeen: time.Now()},
	}

	server, err := d.NextEndpoint(context.Background(), "websockets")
	if err != nil {
		t.Fatalf("NextEndpoint: %v", err)
	}
	if server.Addr != "cached-ws:443" {
		t.Errorf("Addr = %q, want cached-ws:443", server.Addr)
	}
	if fetched {
		t.Error("fresh cache hit should not trigger discovery")
	}
}

func TestCMDirectoryIgnoresStaleCache(t *testing.T) {
	d := NewCMDirectory(http.DefaultClient, "")
	d.entries = []cacheEntry{
		{Server: CMServer{Addr: "stale-ws:443", Type: "websockets"}, LastSeen: time.Now().Add(-48 * time.Hour)},
	}

	fresh := d.freshCandidatesLocked("websockets")
	if len(fresh) != 0 {
		t.Errorf("expected no fresh candidates for a stale entry, got %v", fresh)
	}
}

func TestCMDirectoryExcludesBlacklistedEntries(t *testing.T) {
	d := NewCMDirectory(http.DefaultClient, "")
	d.entries = []cacheEntry{
		{Server: CMServer{Addr: "bad-ws:443", Type: "websockets"}, LastSeen: time.Now()},
	}
	d.Blacklist("bad-ws:443")

	fresh := d.freshCandidatesLocked("websockets")
	if len(fresh) != 0 {
		t.Errorf("expected blacklisted entry to be excluded, got %v", fresh)
	}
}

func TestCMDirectoryFallsBackWhenDiscoveryFails(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	d := NewCMDirectory(ts.Client(), "")
	// Force DiscoverServers to hit our failing test server instead of the
	// real Steam API isn't possible without changing cmListURL, so this
	// exercises the pinned fallback path directly via an already-exhausted
	// cache and blacklist of every pinned netfilter server bar one.
	for _, s := range fallbackServers {
		if s.Type == "netfilter" {
			d.Blacklist(s.Addr)
		}
	}
	// un-blacklist the first one so exactly one candidate remains
	d.mu.Lock()
	for _, s := range fallbackServers {
		if s.Type == "netfilter" {
			delete(d.blacklist, s.Addr)
			break
		}
	}
	d.mu.Unlock()

	server, err := d.NextEndpoint(context.Background(), "netfilter")
	if err != nil {
		t.Fatalf("NextEndpoint: %v", err)
	}
	if server.Type != "netfilter" {
		t.Errorf("Type = %q, want netfilter", server.Type)
	}
}

func TestCMDirectoryNoEndpointsAvailable(t *testing.T) {
	d := NewCMDirectory(http.DefaultClient, "")
	for _, s := range fallbackServers {
		d.Blacklist(s.Addr)
	}

	_, err := d.NextEndpoint(context.Background(), "netfilter")
	if err != ErrNoEndpointsAvailable {
		t.Fatalf("err = %v, want ErrNoEndpointsAvailable", err)
	}
}

func TestCMDirectoryCachePersistenceRoundTrip(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "cm_cache.json")

	d1 := NewCMDirectory(http.DefaultClient, cachePath)
	d1.entries = []cacheEntry{
		{Server: CMServer{Addr: "persisted-ws:443", Type: "websockets"}, LastSeen: time.Now()},
	}
	d1.saveCache()

	d2 := NewCMDirectory(http.DefaultClient, cachePath)
	fresh := d2.freshCandidatesLocked("websockets")
	if len(fresh) != 1 || fresh[0].Addr != "persisted-ws:443" {
		t.Fatalf("expected cache to round-trip through disk, got %v", fresh)
	}
}
