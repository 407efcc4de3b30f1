package steamclient

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/k64z/steamstacks/protocol"
	"github.com/k64z/steamstacks/steamid"
	"github.com/k64z/steamstacks/steamtotp"
)

// GenerateAccessTokenForApp requests a new access token (and optionally a
// rotated refresh token) via the CM service method protocol. Unlike the Web API
// variant, this works for SteamClient platform tokens.
func (c *Client) GenerateAccessTokenForApp(ctx context.Context, refreshToken string) (accessToken, newRefreshToken string, err error) {
	c.mu.Lock()
	sid := c.steamID.ToSteamID64()
	c.mu.Unlock()

	body, err := protocol.Marshal(&protocol.CAuthentication_AccessToken_GenerateForApp_Request{
		RefreshToken: protocol.String(refreshToken),
		Steamid:      protocol.Uint64(sid),
	})
	if err != nil {
		return "", "", fmt.Errorf("marshal GenerateAccessTokenForApp request: %w", err)
	}

	pkt, err := c.callServiceMethod(ctx, "Authentication.GenerateAccessTokenForApp#1", body)
	if err != nil {
		return "", "", err
	}

	var resp protocol.CAuthentication_AccessToken_GenerateForApp_Response
	if err := protocol.Unmarshal(pkt.Body, &resp); err != nil {
		return "", "", fmt.Errorf("unmarshal GenerateAccessTokenForApp response: %w", err)
	}

	return resp.GetAccessToken(), resp.GetRefreshToken(), nil
}

// LoginError reports a classic ClientLogon attempt the server did not
// reject outright but cannot complete without more input from the caller.
type LoginError struct {
	NeedEmailCode bool // AccountLogonDenied: caller must supply an emailed Steam Guard code and retry
	NeedTwoFactor bool // AccountLoginDeniedNeedTwoFactor: caller must supply a mobile authenticator code and retry
	EResult       int32
}

func (e *LoginError) Error() string {
	switch {
	case e.NeedEmailCode:
		return "steamclient: login requires an emailed Steam Guard code"
	case e.NeedTwoFactor:
		return "steamclient: login requires a two-factor authenticator code"
	default:
		return fmt.Sprintf("steamclient: login denied, eresult=%d", e.EResult)
	}
}

// MachineAuthStore persists the sentry-file hash the server issues the
// first time a given machine logs into an account, so later logins on the
// same machine skip the email Steam Guard prompt.
type MachineAuthStore interface {
	// Load returns the stored hash for accountName, or (nil, nil) if none
	// has been stored yet.
	Load(accountName string) ([]byte, error)
	Save(accountName string, shaHash []byte) error
}

// FileMachineAuthStore is the default MachineAuthStore: a single JSON file
// at Path mapping account names to hex-encoded SHA-1 sentry hashes.
type FileMachineAuthStore struct {
	Path string
}

type sentryFile struct {
	Hashes map[string]string `json:"hashes"`
}

func (f *FileMachineAuthStore) Load(accountName string) ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sentry file: %w", err)
	}

	var sf sentryFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse sentry file: %w", err)
	}

	hexHash, ok := sf.Hashes[accountName]
	if !ok {
		return nil, nil
	}
	return hex.DecodeString(hexHash)
}

func (f *FileMachineAuthStore) Save(accountName string, shaHash []byte) error {
	sf := sentryFile{Hashes: map[string]string{}}
	if data, err := os.ReadFile(f.Path); err == nil {
		_ = json.Unmarshal(data, &sf)
	}
	if sf.Hashes == nil {
		sf.Hashes = map[string]string{}
	}
	sf.Hashes[accountName] = hex.EncodeToString(shaHash)

	data, err := json.Marshal(sf)
	if err != nil {
		return fmt.Errorf("marshal sentry file: %w", err)
	}
	return os.WriteFile(f.Path, data, 0600)
}

// PasswordLoginOptions configures LoginWithPassword.
type PasswordLoginOptions struct {
	// TwoFactorCode is a caller-supplied mobile authenticator or email
	// Steam Guard code for this attempt.
	TwoFactorCode string
	// SharedSecret, if set, lets LoginWithPassword compute its own
	// authenticator codes (via steamtotp) instead of surfacing
	// LoginError.NeedTwoFactor to the caller.
	SharedSecret string
	// MachineAuth persists the sentry hash across logins. Nil disables
	// sentry handling: the server will re-prompt for an email code on
	// every login from this "machine".
	MachineAuth MachineAuthStore
	// RememberPassword sets ClientLogon's should_remember_password flag.
	RememberPassword bool
}

// LoginWithPassword performs the classic RSA-wrapped password logon
// (account name + password, plus a stored sentry hash and/or a two-factor
// code as needed) instead of the refresh-token logon Login performs.
func (c *Client) LoginWithPassword(ctx context.Context, accountName, password string, opts PasswordLoginOptions) error {
	keyReqBody, err := protocol.Marshal(&protocol.CAuthentication_GetPasswordRSAPublicKey_Request{
		AccountName: &accountName,
	})
	if err != nil {
		return fmt.Errorf("marshal GetPasswordRSAPublicKey request: %w", err)
	}

	pkt, err := c.callServiceMethod(ctx, "Authentication.GetPasswordRSAPublicKey#1", keyReqBody)
	if err != nil {
		return fmt.Errorf("fetch RSA public key: %w", err)
	}

	var keyResp protocol.CAuthentication_GetPasswordRSAPublicKey_Response
	if err := protocol.Unmarshal(pkt.Body, &keyResp); err != nil {
		return fmt.Errorf("unmarshal RSA public key response: %w", err)
	}
	if keyResp.PublickeyMod == nil || keyResp.PublickeyExp == nil {
		return errors.New("steamclient: unknown account name (no RSA key returned)")
	}

	exp, err := strconv.ParseInt(*keyResp.PublickeyExp, 16, 32)
	if err != nil {
		return fmt.Errorf("parse RSA exponent: %w", err)
	}

	encryptedPassword, err := wrapPassword(password, *keyResp.PublickeyMod, exp)
	if err != nil {
		return fmt.Errorf("wrap password: %w", err)
	}

	var sentryHash []byte
	if opts.MachineAuth != nil {
		sentryHash, err = opts.MachineAuth.Load(accountName)
		if err != nil {
			return fmt.Errorf("load sentry file: %w", err)
		}
	}

	twoFactorCode := opts.TwoFactorCode
	if twoFactorCode == "" && opts.SharedSecret != "" {
		code, err := steamtotp.GenerateAuthCode(opts.SharedSecret, 0)
		if err != nil {
			return fmt.Errorf("generate steam guard code: %w", err)
		}
		twoFactorCode = code
	}

	return c.sendClientLogon(ctx, accountName, encryptedPassword, twoFactorCode, sentryHash, opts)
}

// sendClientLogon sends one ClientLogon attempt and handles its response,
// recursing once to retry with a freshly computed two-factor code when the
// server demands one and a shared secret is configured.
func (c *Client) sendClientLogon(ctx context.Context, accountName, encryptedPassword, twoFactorCode string, sentryHash []byte, opts PasswordLoginOptions) error {
	sentrySub, sentryCh := c.dispatcher.Subscribe(EMsgClientUpdateMachineAuth, nil)

	responseCh := c.expectEMsg(EMsgClientLogOnResponse)

	osType := int32(20) // EOSType Windows 11
	lang := "english"

	var tfcField *string
	if twoFactorCode != "" {
		tfcField = &twoFactorCode
	}

	logonBody, err := protocol.Marshal(&protocol.CMsgClientLogon{
		AccountName:            &accountName,
		Password:               &encryptedPassword,
		TwoFactorCode:          tfcField,
		ShaSentryfile:          sentryHash,
		ShouldRememberPassword: protocol.Bool(opts.RememberPassword),
		ProtocolVersion:        protocol.Uint32(ProtoVersion),
		ClientOsType:           &osType,
		ClientLanguage:         &lang,
	})
	if err != nil {
		c.dispatcher.Unsubscribe(sentrySub)
		return fmt.Errorf("marshal ClientLogon: %w", err)
	}

	anonSID := steamid.SteamID(0).SetUniverse(1).SetType(1).SetInstance(1)
	sidU64 := anonSID.ToSteamID64()
	if err := c.sendPacket(ctx, EMsgClientLogon, &protocol.CMsgProtoBufHeader{
		Steamid:         &sidU64,
		ClientSessionid: protocol.Int32(0),
	}, logonBody); err != nil {
		c.dispatcher.Unsubscribe(sentrySub)
		return fmt.Errorf("send ClientLogon: %w", err)
	}

	pkt, err := c.awaitPacket(ctx, responseCh)
	if err != nil {
		c.dispatcher.Unsubscribe(sentrySub)
		return fmt.Errorf("wait for logon response: %w", err)
	}

	var resp protocol.CMsgClientLogonResponse
	if err := protocol.Unmarshal(pkt.Body, &resp); err != nil {
		c.dispatcher.Unsubscribe(sentrySub)
		return fmt.Errorf("unmarshal logon response: %w", err)
	}

	switch EResult(resp.GetEresult()) {
	case EResultOK:
		// handled below

	case EResultAccountLogonDenied:
		c.dispatcher.Unsubscribe(sentrySub)
		return &LoginError{NeedEmailCode: true, EResult: resp.GetEresult()}

	case EResultAccountLoginDeniedNeedTwoFactor:
		c.dispatcher.Unsubscribe(sentrySub)
		if opts.SharedSecret == "" {
			return &LoginError{NeedTwoFactor: true, EResult: resp.GetEresult()}
		}
		code, err := steamtotp.GenerateAuthCode(opts.SharedSecret, 0)
		if err != nil {
			return fmt.Errorf("generate steam guard code: %w", err)
		}
		retryOpts := opts
		retryOpts.SharedSecret = ""
		return c.sendClientLogon(ctx, accountName, encryptedPassword, code, sentryHash, retryOpts)

	default:
		c.dispatcher.Unsubscribe(sentrySub)
		return &ResultError{Method: "ClientLogon", EResult: resp.GetEresult()}
	}

	c.mu.Lock()
	c.steamID = steamid.FromSteamID64(pkt.Header.GetSteamid())
	c.sessionID = pkt.Header.GetClientSessionid()
	c.loggedIn = true
	c.mu.Unlock()
	c.setState(StateLoggedOn)

	heartbeatSec := resp.GetHeartbeatSeconds()
	if heartbeatSec <= 0 {
		heartbeatSec = 30
	}
	interval := time.Duration(heartbeatSec) * time.Second
	c.wg.Add(1)
	go c.heartbeatLoop(interval)
	c.startHeartbeatWatchdog(interval)

	if opts.MachineAuth != nil {
		go c.watchMachineAuth(accountName, opts.MachineAuth, sentryCh)
	} else {
		c.dispatcher.Unsubscribe(sentrySub)
	}

	c.logger.Info("logged in via password",
		"steamid", c.steamID.String(),
		"session_id", c.sessionID,
		"heartbeat_sec", heartbeatSec,
	)
	return nil
}

// watchMachineAuth answers sentry-file challenges for the lifetime of the
// connection: hash the blob the server hands over, persist it, and echo
// the hash back so the server stops re-prompting for email codes.
func (c *Client) watchMachineAuth(accountName string, store MachineAuthStore, ch <-chan *Packet) {
	for {
		select {
		case pkt, ok := <-ch:
			if !ok {
				return
			}
			var challenge protocol.CMsgClientUpdateMachineAuth
			if err := protocol.Unmarshal(pkt.Body, &challenge); err != nil {
				c.logger.Error("unmarshal ClientUpdateMachineAuth", "err", err)
				continue
			}
			sum := sha1.Sum(challenge.GetBytes())
			hash := sum[:]
			if err := store.Save(accountName, hash); err != nil {
				c.logger.Error("save sentry file", "err", err)
			}

			hdr := &protocol.CMsgProtoBufHeader{}
			if jobID := pkt.Header.GetJobidSource(); jobID != 0 {
				hdr.JobidTarget = protocol.Uint64(jobID)
			}
			respBody, err := protocol.Marshal(&protocol.CMsgClientUpdateMachineAuthResponse{
				ShaFile: &hash,
				Eresult: protocol.Int32(1),
			})
			if err != nil {
				c.logger.Error("marshal ClientUpdateMachineAuthResponse", "err", err)
				continue
			}
			if err := c.sendPacket(context.Background(), EMsgClientUpdateMachineAuthResponse, hdr, respBody); err != nil {
				c.logger.Error("send ClientUpdateMachineAuthResponse", "err", err)
			}
		case <-c.done:
			return
		}
	}
}

// AuthenticateWebSession exchanges a freshly issued CM nonce for legacy
// steamLogin/steamLoginSecure web cookies (§6's ISteamUserAuth/
// AuthenticateUser/v1 nonce flow). The session key is RSA-encrypted under
// Steam's static public key exactly as the channel-encryption handshake
// encrypts its own session key; the nonce is then AES-CBC encrypted under
// that session key, matching what the Web API expects to decrypt.
func (c *Client) AuthenticateWebSession(ctx context.Context) (steamLogin, steamLoginSecure string, err error) {
	nonceBody, err := protocol.Marshal(&protocol.CMsgClientRequestWebAPIAuthenticateUserNonce{})
	if err != nil {
		return "", "", fmt.Errorf("marshal nonce request: %w", err)
	}

	responseCh := c.expectEMsg(EMsgClientRequestWebAPIAuthenticateUserNonceResponse)
	if err := c.sendPacket(ctx, EMsgClientRequestWebAPIAuthenticateUserNonce, nil, nonceBody); err != nil {
		return "", "", fmt.Errorf("send nonce request: %w", err)
	}

	pkt, err := c.awaitPacket(ctx, responseCh)
	if err != nil {
		return "", "", fmt.Errorf("wait for nonce response: %w", err)
	}

	var nonceResp protocol.CMsgClientRequestWebAPIAuthenticateUserNonceResponse
	if err := protocol.Unmarshal(pkt.Body, &nonceResp); err != nil {
		return "", "", fmt.Errorf("unmarshal nonce response: %w", err)
	}
	if nonceResp.GetEresult() != 1 {
		return "", "", &ResultError{Method: "ClientRequestWebAPIAuthenticateUserNonce", EResult: nonceResp.GetEresult()}
	}

	sessionKey := make([]byte, 32)
	if _, err := rand.Read(sessionKey); err != nil {
		return "", "", fmt.Errorf("generate session key: %w", err)
	}

	encryptedSessionKey, err := rsaEncryptSessionKey(sessionKey, nil)
	if err != nil {
		return "", "", fmt.Errorf("rsa encrypt session key: %w", err)
	}

	cipher, err := newChannelCipher(sessionKey, false)
	if err != nil {
		return "", "", fmt.Errorf("build session cipher: %w", err)
	}
	encryptedLoginKey, err := cipher.encrypt([]byte(nonceResp.GetNonce()))
	if err != nil {
		return "", "", fmt.Errorf("encrypt nonce: %w", err)
	}

	c.mu.Lock()
	sidU64 := c.steamID.ToSteamID64()
	c.mu.Unlock()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("steamid", strconv.FormatUint(sidU64, 10))
	_ = w.WriteField("sessionkey", string(encryptedSessionKey))
	_ = w.WriteField("encrypted_loginkey", string(encryptedLoginKey))
	if err := w.Close(); err != nil {
		return "", "", fmt.Errorf("build form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://api.steampowered.com/ISteamUserAuth/AuthenticateUser/v1", &buf)
	if err != nil {
		return "", "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("read response: %w", err)
	}

	var authResp struct {
		Authenticateuser struct {
			Token       string `json:"token"`
			Tokensecure string `json:"tokensecure"`
		} `json:"authenticateuser"`
	}
	if err := json.Unmarshal(respBody, &authResp); err != nil {
		return "", "", fmt.Errorf("unmarshal AuthenticateUser response: %w", err)
	}

	return authResp.Authenticateuser.Token, authResp.Authenticateuser.Tokensecure, nil
}
