// Package steamtrade polls a Steam account's trade offers and turns
// raw state snapshots into an ordered stream of events: offers
// received, sent, accepted, declined, cancelled, expired, or
// countered. It sits on top of steamapi (for reads) and
// steamcommunity (for the accept/decline/cancel/counter actions and
// mobile confirmations), the way steamclient sits on top of the CM
// protocol.
package steamtrade

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/k64z/steamstacks/steamapi"
	"github.com/k64z/steamstacks/steamcommunity"
)

// ErrAlreadyClosed is returned by Accept, Decline, Cancel, and Counter
// when called against an offer the engine has already observed in a
// terminal state. Operations are idempotent: a repeat call is a no-op,
// not an error the caller needs to treat as failure.
var ErrAlreadyClosed = errors.New("steamtrade: offer already closed")

// ErrOfferNotTracked is returned when an operation is issued against a
// trade offer ID the engine has never seen in a snapshot.
var ErrOfferNotTracked = errors.New("steamtrade: offer not tracked")

const (
	defaultPollInterval = 5 * time.Second
	maxPollInterval     = 30 * time.Second
	errorRetryInterval  = 15 * time.Second
)

// Engine polls IEconService for trade offer changes and emits
// exactly-once events as offers transition between states.
type Engine struct {
	api       *steamapi.API
	community *steamcommunity.Community
	logger    *slog.Logger

	onEvent        func(Event)
	pollInterval   time.Duration
	identitySecret []byte
	replayHistory  bool

	mu           sync.Mutex // guards snapshot, lastPollTime, bootstrapped, curInterval
	snapshot     map[string]trackedOffer
	lastPollTime int64
	bootstrapped bool
	curInterval  time.Duration
}

// trackedOffer is what the engine remembers about an offer between
// polls: its last known state, so the next poll's diff can classify
// the transition, and whether a terminal event has already fired for
// it (so a retried poll can never double-emit).
type trackedOffer struct {
	offer    steamapi.TradeOffer
	reported bool
}

type config struct {
	logger         *slog.Logger
	onEvent        func(Event)
	pollInterval   time.Duration
	identitySecret []byte
	replayHistory  bool
}

// Option configures an Engine.
type Option func(*config)

// WithLogger sets the structured logger used for poll tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithEventHandler sets the callback invoked for every trade event the
// engine emits. Events are delivered synchronously from the poll loop
// goroutine, in the order described by the diff algorithm within a
// single poll, so handlers that need ordering guarantees across polls
// should not block for long.
func WithEventHandler(fn func(Event)) Option {
	return func(c *config) { c.onEvent = fn }
}

// WithPollInterval sets the starting poll interval. The engine doubles
// this on consecutive empty polls up to a 30-second ceiling, and resets
// it to this value as soon as a poll returns a change.
func WithPollInterval(d time.Duration) Option {
	return func(c *config) { c.pollInterval = d }
}

// WithIdentitySecret sets the base64-decoded identity_secret used to
// generate mobile confirmation keys for Accept.
func WithIdentitySecret(secret []byte) Option {
	return func(c *config) { c.identitySecret = secret }
}

// WithReplayHistoricalTrades controls whether the engine emits terminal
// events for offers whose non-terminal predecessor state it never
// observed. Default is off: the very first poll only seeds the
// snapshot, it never emits events for what it finds there.
func WithReplayHistoricalTrades(replay bool) Option {
	return func(c *config) { c.replayHistory = replay }
}

// New creates an Engine backed by the given Web API and community
// session. Both must already be authenticated.
func New(api *steamapi.API, community *steamcommunity.Community, opts ...Option) (*Engine, error) {
	if api == nil {
		return nil, errors.New("steamtrade: api must be non-nil")
	}
	if community == nil {
		return nil, errors.New("steamtrade: community must be non-nil")
	}

	cfg := config{
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	return &Engine{
		api:            api,
		community:      community,
		logger:         cfg.logger,
		onEvent:        cfg.onEvent,
		pollInterval:   cfg.pollInterval,
		identitySecret: cfg.identitySecret,
		replayHistory:  cfg.replayHistory,
		snapshot:       make(map[string]trackedOffer),
		curInterval:    cfg.pollInterval,
	}, nil
}
