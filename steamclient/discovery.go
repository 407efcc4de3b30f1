package steamclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"sync"
	"time"
)

// CMServer represents a Steam CM server endpoint.
type CMServer struct {
	Addr string // "host:port" for TCP, "host" for WebSocket
	Type string // "websockets" or "netfilter"
}

const cmListURL = "https://api.steampowered.com/ISteamDirectory/GetCMListForConnect/v1/?cellid=0"

// cacheStaleAfter is how long a cached CM directory entry is trusted
// before a fresh fetch is required.
const cacheStaleAfter = 24 * time.Hour

// fallbackServers is a pinned list compiled into the binary, used when
// discovery fails and the cache holds nothing usable.
var fallbackServers = []CMServer{
	{Addr: "162.254.197.40:27019", Type: "netfilter"},
	{Addr: "162.254.197.42:27019", Type: "netfilter"},
	{Addr: "cm2-fra1.cm.steampowered.com:443", Type: "websockets"},
	{Addr: "cm2-ams1.cm.steampowered.com:443", Type: "websockets"},
}

// ErrNoEndpointsAvailable is returned when discovery fails and no
// fallback endpoint of the requested type remains usable.
var ErrNoEndpointsAvailable = errors.New("steamclient: no CM endpoints available")

// DiscoverServers fetches the CM server list from the Steam Web API.
func DiscoverServers(ctx context.Context, httpClient *http.Client) ([]CMServer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cmListURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return parseCMList(body)
}

type cmListResponse struct {
	Response struct {
		ServerList []struct {
			Endpoint string `json:"endpoint"`
			Type     string `json:"type"`
		} `json:"serverlist"`
	} `json:"response"`
}

func parseCMList(data []byte) ([]CMServer, error) {
	var resp cmListResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	servers := make([]CMServer, 0, len(resp.Response.ServerList))
	for _, s := range resp.Response.ServerList {
		servers = append(servers, CMServer{
			Addr: s.Endpoint,
			Type: s.Type,
		})
	}

	if len(servers) == 0 {
		return nil, fmt.Errorf("no servers in response")
	}

	return servers, nil
}

type cacheEntry struct {
	Server   CMServer
	LastSeen time.Time
}

// CMDirectory resolves which CM server to connect to next. It caches the
// Steam Web API's discovery response (optionally to a file, so restarts
// don't always hit the network), blacklists endpoints that failed during
// the current process's lifetime, and falls back to a pinned server list
// compiled into the binary when discovery is unreachable.
type CMDirectory struct {
	httpClient *http.Client
	cachePath  string

	mu        sync.Mutex
	entries   []cacheEntry
	blacklist map[string]struct{}
}

// NewCMDirectory creates a directory resolver. cachePath may be empty, in
// which case the cache lives only in memory for the process's lifetime.
func NewCMDirectory(httpClient *http.Client, cachePath string) *CMDirectory {
	d := &CMDirectory{
		httpClient: httpClient,
		cachePath:  cachePath,
		blacklist:  make(map[string]struct{}),
	}
	d.loadCache()
	return d
}

func (d *CMDirectory) loadCache() {
	if d.cachePath == "" {
		return
	}
	data, err := os.ReadFile(d.cachePath)
	if err != nil {
		return
	}
	var entries []cacheEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return
	}
	d.entries = entries
}

func (d *CMDirectory) saveCache() {
	if d.cachePath == "" {
		return
	}
	data, err := json.Marshal(d.entries)
	if err != nil {
		return
	}
	_ = os.WriteFile(d.cachePath, data, 0600)
}

// Blacklist marks addr as unusable for the rest of the process's
// lifetime, typically after a dial or handshake against it fails.
func (d *CMDirectory) Blacklist(addr string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.blacklist[addr] = struct{}{}
}

// NextEndpoint returns a CM server of the requested type ("websockets" or
// "netfilter"), following the cache → fetch → pinned-fallback policy.
func (d *CMDirectory) NextEndpoint(ctx context.Context, serverType string) (CMServer, error) {
	d.mu.Lock()
	fresh := d.freshCandidatesLocked(serverType)
	d.mu.Unlock()

	if len(fresh) > 0 {
		return fresh[rand.IntN(len(fresh))], nil
	}

	if servers, err := DiscoverServers(ctx, d.httpClient); err == nil {
		d.mu.Lock()
		now := time.Now()
		d.entries = make([]cacheEntry, 0, len(servers))
		for _, s := range servers {
			d.entries = append(d.entries, cacheEntry{Server: s, LastSeen: now})
		}
		d.saveCache()
		fresh = d.freshCandidatesLocked(serverType)
		d.mu.Unlock()

		if len(fresh) > 0 {
			return fresh[rand.IntN(len(fresh))], nil
		}
	}

	d.mu.Lock()
	var pinned []CMServer
	for _, s := range fallbackServers {
		if s.Type != serverType {
			continue
		}
		if _, blacklisted := d.blacklist[s.Addr]; blacklisted {
			continue
		}
		pinned = append(pinned, s)
	}
	d.mu.Unlock()

	if len(pinned) == 0 {
		return CMServer{}, ErrNoEndpointsAvailable
	}

	return pinned[rand.IntN(len(pinned))], nil
}

// freshCandidatesLocked returns non-blacklisted, non-stale cached entries
// of the given type. Caller must hold d.mu.
func (d *CMDirectory) freshCandidatesLocked(serverType string) []CMServer {
	var out []CMServer
	now := time.Now()
	for _, e := range d.entries {
		if e.Server.Type != serverType {
			continue
		}
		if now.Sub(e.LastSeen) > cacheStaleAfter {
			continue
		}
		if _, blacklisted := d.blacklist[e.Server.Addr]; blacklisted {
			continue
		}
		out = append(out, e.Server)
	}
	return out
}
