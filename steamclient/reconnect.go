package steamclient

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// ErrDisconnected is returned by awaitPacket when the connection is closed.
var ErrDisconnected = errors.New("steamclient: disconnected")

// EResult is Steam's wire-level status code, carried in most response
// messages and in EMsgClientLoggedOff.
type EResult int32

const (
	EResultOK                              EResult = 1
	EResultInvalidPassword                 EResult = 5
	EResultLoggedInElsewhere               EResult = 6
	EResultBanned                          EResult = 17
	EResultLogonSessionReplaced            EResult = 34
	EResultTryAnotherCM                    EResult = 48
	EResultAccountLogonDenied              EResult = 63
	EResultRateLimitExceeded               EResult = 84
	EResultAccountLoginDeniedNeedTwoFactor EResult = 85
)

// reconnectBackoffBase and reconnectBackoffCap are the defaults behind
// WithReconnectBackoff; SPEC_FULL.md's reconnect_base_seconds/
// reconnect_cap_seconds configuration options.
const (
	reconnectBackoffBase = 1 * time.Second
	reconnectBackoffCap  = 60 * time.Second
)

// ErrInvalidPassword is returned by ReconnectLoop when the server rejects
// re-login with InvalidPassword: the credentials changed and retrying
// won't help.
var ErrInvalidPassword = errors.New("steamclient: invalid password on re-login")

// DisconnectEvent describes why the client disconnected.
type DisconnectEvent struct {
	// Err is the underlying transport error (nil for server-initiated logoff).
	Err error
	// ServerInitiated is true when the server sent EMsgClientLoggedOff.
	ServerInitiated bool
	// EResult is the server's reason code (only meaningful when ServerInitiated is true).
	EResult int32
}

// WithDisconnectHandler sets a callback that fires when the connection drops.
func WithDisconnectHandler(fn func(*DisconnectEvent)) Option {
	return func(c *config) { c.onDisconnect = fn }
}

// fireDisconnect invokes the OnDisconnect callback at most once per connection lifecycle.
// The callback runs in a new goroutine so the caller can safely call Reconnect.
func (c *Client) fireDisconnect(evt *DisconnectEvent) {
	c.disconnectOnce.Do(func() {
		c.mu.Lock()
		c.loggedIn = false
		c.mu.Unlock()
		c.dispatcher.closeAll()
		if c.OnDisconnect != nil {
			go c.OnDisconnect(evt)
		}
	})
}

// Reconnect tears down the existing connection and establishes a new one.
// After Reconnect returns successfully the caller should call Login again.
func (c *Client) Reconnect(ctx context.Context) error {
	// Signal goroutines to stop (safe if already closed).
	c.closeOnce.Do(func() { close(c.done) })

	// Close transport to unblock pending I/O.
	if c.conn != nil {
		c.conn.Close()
	}

	// Wait for readLoop + heartbeatLoop to finish.
	c.wg.Wait()

	// Reset sync primitives for new connection cycle.
	c.closeOnce = sync.Once{}
	c.disconnectOnce = sync.Once{}
	c.dispatcher = newDispatcher()
	c.mu.Lock()
	c.loggedIn = false
	c.mu.Unlock()

	// Establish new connection (new c.done, new readLoop).
	return c.Connect(ctx)
}

// nextBackoff computes the next decorrelated-jitter sleep duration:
// min(cap, random(base, prev*3)). Pass the previous sleep (or 0 on the
// first attempt) and use the returned value as prev on the next call.
func nextBackoff(prev, base, maxBackoff time.Duration) time.Duration {
	if prev <= 0 {
		prev = base
	}
	upper := prev * 3
	lo := int64(base)
	hi := int64(upper)
	if hi <= lo {
		return base
	}
	d := time.Duration(lo + rand.Int64N(hi-lo))
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// ReconnectPolicy configures ReconnectLoop's behavior on specific
// server-reported disconnect reasons.
type ReconnectPolicy struct {
	// KickOthersOnLoggedInElsewhere re-logs in once more after
	// LoggedInElsewhere before surrendering, on the assumption the other
	// session will be kicked. Zero value is false (surrender immediately);
	// Client.ReconnectPolicy() returns the Option-configured default
	// (kick_others_on_reconnect, true unless WithKickOthersOnReconnect(false)
	// was passed to New).
	KickOthersOnLoggedInElsewhere bool
}

// ReconnectPolicy returns the ReconnectPolicy built from c's configuration
// (WithKickOthersOnReconnect), for callers that want ReconnectLoop's
// spec-mandated default instead of constructing ReconnectPolicy by hand.
func (c *Client) ReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{KickOthersOnLoggedInElsewhere: c.kickOthersOnReconnect}
}

// ReconnectLoop drives reconnect attempts after the given disconnect
// event, backing off with decorrelated jitter between attempts and
// branching on the server's reported EResult. login is called after each
// successful Connect to re-establish the session; it should return nil on
// success. ReconnectLoop returns when login succeeds, when ctx is
// cancelled, or when a fatal condition (InvalidPassword) is hit.
func (c *Client) ReconnectLoop(ctx context.Context, evt *DisconnectEvent, policy ReconnectPolicy, login func(context.Context) error) error {
	kickAttempted := false
	var sleep time.Duration

	for attempt := 0; ; attempt++ {
		if evt != nil && evt.ServerInitiated {
			switch EResult(evt.EResult) {
			case EResultInvalidPassword:
				return ErrInvalidPassword
			case EResultLoggedInElsewhere, EResultLogonSessionReplaced:
				if !policy.KickOthersOnLoggedInElsewhere || kickAttempted {
					return fmt.Errorf("steamclient: logged in elsewhere (eresult=%d)", evt.EResult)
				}
				kickAttempted = true
			case EResultTryAnotherCM:
				if c.conn != nil && c.directory != nil {
					c.directory.Blacklist(c.conn.RemoteAddr())
				}
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if attempt > 0 {
			sleep = nextBackoff(sleep, c.reconnectBackoffBase, c.reconnectBackoffCap)
			timer := time.NewTimer(sleep)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}

		if err := c.Reconnect(ctx); err != nil {
			evt = &DisconnectEvent{Err: err}
			continue
		}

		if err := login(ctx); err != nil {
			var resultErr *ResultError
			if errors.As(err, &resultErr) && EResult(resultErr.EResult) == EResultInvalidPassword {
				return ErrInvalidPassword
			}
			evt = &DisconnectEvent{Err: err}
			continue
		}

		return nil
	}
}
