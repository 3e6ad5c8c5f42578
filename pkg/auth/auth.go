// Package auth manages the access token for the device's cloud connection.
//
// A Delegate wraps the OAuth refresh-token flow: collaborators ask it for a
// bearer token before each connection attempt and it refreshes transparently
// when the cached token is stale. State observers get notified when the
// token is refreshed or becomes unrecoverable, which transport components
// use to tear down and re-establish the downchannel.
package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/alexa/avs-device-sdk-go/internal/httpc"
)

// State describes the authorization lifecycle.
type State int

const (
	// StateUninitialized means no token has been obtained yet.
	StateUninitialized State = iota
	// StateRefreshed means a valid access token is available.
	StateRefreshed
	// StateExpired means the cached token is stale and a refresh is due.
	StateExpired
	// StateUnrecoverable means refreshing failed in a way that retrying
	// will not fix (for example a revoked refresh token).
	StateUnrecoverable
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateRefreshed:
		return "REFRESHED"
	case StateExpired:
		return "EXPIRED"
	case StateUnrecoverable:
		return "UNRECOVERABLE"
	default:
		return "UNKNOWN"
	}
}

// Observer receives state change notifications.
type Observer func(state State)

// Delegate provides bearer tokens for cloud requests.
type Delegate struct {
	cfg    Config
	logger *slog.Logger
	source oauth2.TokenSource

	mu        sync.Mutex
	state     State
	observers []Observer
}

// New creates a Delegate. It validates the configuration but performs no
// network I/O; the first token is fetched lazily.
func New(opts ...Option) (*Delegate, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default().With("component", "auth")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = httpc.Client
	}

	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL: cfg.TokenURL,
		},
	}

	// Seed the source with an already-expired token so the first request
	// triggers the refresh grant.
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, client)
	seed := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
		Expiry:       time.Now().Add(-time.Hour),
	}

	return &Delegate{
		cfg:    cfg,
		logger: logger,
		source: oauth2.ReuseTokenSource(nil, oc.TokenSource(ctx, seed)),
		state:  StateUninitialized,
	}, nil
}

// AddObserver registers a state observer and returns a function that
// removes it.
func (d *Delegate) AddObserver(obs Observer) func() {
	d.mu.Lock()
	d.observers = append(d.observers, obs)
	idx := len(d.observers) - 1
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if idx < len(d.observers) {
			d.observers[idx] = nil
		}
	}
}

// State returns the current authorization state.
func (d *Delegate) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Delegate) setState(s State) {
	d.mu.Lock()
	if d.state == s {
		d.mu.Unlock()
		return
	}
	d.state = s
	observers := make([]Observer, len(d.observers))
	copy(observers, d.observers)
	d.mu.Unlock()

	for _, obs := range observers {
		if obs != nil {
			obs(s)
		}
	}
}

// AccessToken returns a valid bearer token, refreshing if needed. The
// refresh request inherits ctx's deadline.
func (d *Delegate) AccessToken(ctx context.Context) (string, error) {
	// oauth2.TokenSource carries its own context from construction; ctx
	// here bounds the overall wait.
	type result struct {
		token *oauth2.Token
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		tok, err := d.source.Token()
		ch <- result{tok, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.err != nil {
			d.setState(StateUnrecoverable)
			return "", &TokenError{Err: res.err}
		}
		d.setState(StateRefreshed)
		return res.token.AccessToken, nil
	}
}

// ExpiresSoon reports whether the token hint says the current access token
// expires within the refresh slack. Tokens that carry no hint report false.
func (d *Delegate) ExpiresSoon(token string) bool {
	expiry, ok := ExpiryHint(token)
	if !ok {
		return false
	}
	return time.Until(expiry) < refreshSlack
}
