package steamcommunity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func setReplayRetryDelayForTest(t *testing.T, d time.Duration) {
	t.Helper()
	replayRetryDelay = d
}

func queryTimeHandler(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"response":{"server_time":"1700000000"}}`))
}

func TestGetConfirmations_UsesAndroidPlatform(t *testing.T) {
	var gotM string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "QueryTime"):
			queryTimeHandler(w)
		case r.URL.Path == "/mobileconf/getlist":
			gotM = r.URL.Query().Get("m")
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"success": true, "conf": []}`))
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestCommunity(t, srv.URL)
	c.httpClient.Transport = rewriteHostTransport(srv)

	if _, err := c.GetConfirmations(context.Background(), []byte("identity-secret")); err != nil {
		t.Fatalf("GetConfirmations: %v", err)
	}

	if gotM != "android" {
		t.Errorf("m param = %q; want %q", gotM, "android")
	}
}

func TestGetConfirmations_RetriesOnReplay(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "QueryTime"):
			queryTimeHandler(w)
		case r.URL.Path == "/mobileconf/getlist":
			n := calls.Add(1)
			w.Header().Set("Content-Type", "application/json")
			if n == 1 {
				w.Write([]byte(`{"success": false, "message": "replayed"}`))
				return
			}
			w.Write([]byte(`{"success": true, "conf": [
				{"id": "1", "type": 2, "creator_id": "999", "nonce": "nonce-1", "type_name": "Trade", "creation_time": 1700000000}
			]}`))
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestCommunity(t, srv.URL)
	c.httpClient.Transport = rewriteHostTransport(srv)

	origDelay := replayRetryDelay
	setReplayRetryDelayForTest(t, 0)
	defer setReplayRetryDelayForTest(t, origDelay)

	confs, err := c.GetConfirmations(context.Background(), []byte("identity-secret"))
	if err != nil {
		t.Fatalf("GetConfirmations: %v", err)
	}
	if got, want := calls.Load(), int32(2); got != want {
		t.Fatalf("calls = %d; want %d", got, want)
	}
	if got, want := len(confs), 1; got != want {
		t.Fatalf("len(confs) = %d; want %d", got, want)
	}
	if got, want := confs[0].CreatorID, "999"; got != want {
		t.Errorf("CreatorID = %q; want %q", got, want)
	}
}

func TestGetConfirmations_ReplayOnlyRetriesOnce(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "QueryTime"):
			queryTimeHandler(w)
		case r.URL.Path == "/mobileconf/getlist":
			calls.Add(1)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"success": false, "message": "replayed"}`))
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestCommunity(t, srv.URL)
	c.httpClient.Transport = rewriteHostTransport(srv)

	origDelay := replayRetryDelay
	setReplayRetryDelayForTest(t, 0)
	defer setReplayRetryDelayForTest(t, origDelay)

	if _, err := c.GetConfirmations(context.Background(), []byte("identity-secret")); err == nil {
		t.Fatal("expected error after a single replay retry")
	}
	if got, want := calls.Load(), int32(2); got != want {
		t.Fatalf("calls = %d; want %d", got, want)
	}
}
