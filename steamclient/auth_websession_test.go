package steamclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/k64z/steamstacks/protocol"
	"github.com/k64z/steamstacks/steamid"
)

// rewriteHostTransport points every outgoing request at ts regardless of
// the host the caller dialed, mirroring the rewrite-transport helpers
// used by steamcommunity's and steamtrade's tests to reach steamclient's
// own hardcoded api.steampowered.com URLs.
type rewriteHostTransport struct {
	ts   *httptest.Server
	base http.RoundTripper
}

func (t *rewriteHostTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	tsURL, _ := url.Parse(t.ts.URL)
	req.URL.Scheme = tsURL.Scheme
	req.URL.Host = tsURL.Host
	return t.base.RoundTrip(req)
}

func TestAuthenticateWebSessionSuccess(t *testing.T) {
	var gotForm url.Values
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart form: %v", err)
		}
		gotForm = r.Form
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"authenticateuser": map[string]string{
				"token":       "steamLoginToken",
				"tokensecure": "steamLoginSecureToken",
			},
		})
	}))
	defer ts.Close()

	c, mc := newLoginTestClient(t)
	c.httpClient = &http.Client{Transport: &rewriteHostTransport{ts: ts, base: http.DefaultTransport}}
	c.mu.Lock()
	c.steamID = steamid.SteamID(0).SetUniverse(1).SetType(1).SetInstance(1).SetAccountID(1)
	c.mu.Unlock()

	resultCh := make(chan struct {
		login, secure string
		err           error
	}, 1)
	go func() {
		login, secure, err := c.AuthenticateWebSession(context.Background())
		resultCh <- struct {
			login, secure string
			err           error
		}{login, secure, err}
	}()

	sentData := <-mc.writeCh
	sentPkt, err := decodePacket(sentData)
	if err != nil {
		t.Fatalf("decode nonce request: %v", err)
	}
	if sentPkt.EMsg != EMsgClientRequestWebAPIAuthenticateUserNonce {
		t.Fatalf("EMsg = %v, want EMsgClientRequestWebAPIAuthenticateUserNonce", sentPkt.EMsg)
	}

	respBody, _ := protocol.Marshal(&protocol.CMsgClientRequestWebAPIAuthenticateUserNonceResponse{
		Eresult:                     protocol.Int32(1),
		Webapiauthenticateusernonce: protocol.String("test-nonce"),
	})
	c.handlePacket(&Packet{
		EMsg:    EMsgClientRequestWebAPIAuthenticateUserNonceResponse,
		IsProto: true,
		Header:  &protocol.CMsgProtoBufHeader{},
		Body:    respBody,
	})

	select {
	case got := <-resultCh:
		if got.err != nil {
			t.Fatalf("AuthenticateWebSession returned error: %v", got.err)
		}
		if got.login != "steamLoginToken" {
			t.Errorf("steamLogin = %q, want steamLoginToken", got.login)
		}
		if got.secure != "steamLoginSecureToken" {
			t.Errorf("steamLoginSecure = %q, want steamLoginSecureToken", got.secure)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("AuthenticateWebSession did not return within 2s")
	}

	if gotForm.Get("steamid") == "" {
		t.Error("expected the AuthenticateUser request to carry a steamid field")
	}
	if gotForm.Get("sessionkey") == "" {
		t.Error("expected the AuthenticateUser request to carry an RSA-wrapped session key")
	}
	if gotForm.Get("encrypted_loginkey") == "" {
		t.Error("expected the AuthenticateUser request to carry the encrypted nonce")
	}
}

func TestAuthenticateWebSessionBadEresult(t *testing.T) {
	c, mc := newLoginTestClient(t)

	resultCh := make(chan error, 1)
	go func() {
		_, _, err := c.AuthenticateWebSession(context.Background())
		resultCh <- err
	}()

	sentData := <-mc.writeCh
	sentPkt, err := decodePacket(sentData)
	if err != nil {
		t.Fatalf("decode nonce request: %v", err)
	}
	if sentPkt.EMsg != EMsgClientRequestWebAPIAuthenticateUserNonce {
		t.Fatalf("EMsg = %v, want EMsgClientRequestWebAPIAuthenticateUserNonce", sentPkt.EMsg)
	}

	respBody, _ := protocol.Marshal(&protocol.CMsgClientRequestWebAPIAuthenticateUserNonceResponse{
		Eresult: protocol.Int32(5), // EResultInvalidPassword or similar failure
	})
	c.handlePacket(&Packet{
		EMsg:    EMsgClientRequestWebAPIAuthenticateUserNonceResponse,
		IsProto: true,
		Header:  &protocol.CMsgProtoBufHeader{},
		Body:    respBody,
	})

	select {
	case err := <-resultCh:
		if err == nil {
			t.Fatal("expected an error for a non-OK nonce eresult")
		}
		var resultErr *ResultError
		if !errors.As(err, &resultErr) {
			t.Fatalf("expected a *ResultError, got %T: %v", err, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("AuthenticateWebSession did not return within 2s")
	}
}
