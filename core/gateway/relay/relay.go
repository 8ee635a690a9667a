// Package relay connects the voice session engine to the session relay
// over a websocket. The relay terminates our bearer credentials and
// forwards session events to the model gateway, so this client only has
// to speak JSON text frames.
package relay

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adastralabs/vox-core/core/gateway"
	"github.com/adastralabs/vox-core/core/protocol"
	"github.com/gorilla/websocket"
)

const (
	endpointEnvVar = "VOX_GATEWAY_URL"
	tokenEnvVar    = "VOX_GATEWAY_TOKEN"

	handshakeTimeout = 10 * time.Second
	closeGracePeriod = time.Second
)

// TokenProvider mints a bearer token for the next dial. It is consulted
// on every [Client.EnsureReady] so that sessions never start with a
// token that expired while the client sat idle.
type TokenProvider func(ctx context.Context) (string, error)

func staticTokenProvider(token string) TokenProvider {
	return func(context.Context) (string, error) {
		return token, nil
	}
}

// Client dials relay connections. It implements [gateway.Dialer].
//
// The zero value is not usable, construct it with [NewClient]. Endpoint
// and credentials fall back to the VOX_GATEWAY_URL and VOX_GATEWAY_TOKEN
// environment variables when no option supplies them.
type Client struct {
	endpoint    string
	token       TokenProvider
	bearerToken string

	dialer *websocket.Dialer
}

// Option configures a [Client].
type Option func(*Client)

// WithEndpoint sets the relay endpoint. Both ws(s) and http(s) schemes
// are accepted.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithToken authorizes every dial with the same bearer token.
func WithToken(token string) Option {
	return func(c *Client) {
		if token != "" {
			c.token = staticTokenProvider(token)
		}
	}
}

// WithTokenProvider authorizes dials with freshly minted bearer tokens.
func WithTokenProvider(provider TokenProvider) Option {
	return func(c *Client) {
		c.token = provider
	}
}

func NewClient(opts ...Option) *Client {
	client := &Client{
		dialer: &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// EnsureReady resolves the endpoint and mints a bearer token for the
// next [Client.Dial].
func (c *Client) EnsureReady(ctx context.Context) error {
	if c.endpoint == "" {
		c.endpoint = os.Getenv(endpointEnvVar)
	}
	if c.endpoint == "" {
		return gateway.ErrMissingEndpoint
	}

	if c.token == nil {
		if token := os.Getenv(tokenEnvVar); token != "" {
			c.token = staticTokenProvider(token)
		}
	}
	if c.token == nil {
		return gateway.ErrMissingCredentials
	}

	token, err := c.token(ctx)
	if err != nil {
		return fmt.Errorf("failed to mint relay token: %w", err)
	}
	if token == "" {
		return gateway.ErrMissingCredentials
	}
	c.bearerToken = token

	return nil
}

// Dial opens a websocket to the relay, authorizing the handshake with
// the bearer token resolved by [Client.EnsureReady].
func (c *Client) Dial(ctx context.Context) (gateway.Connection, error) {
	ctx, span := tracer.Start(ctx, "dial relay")
	defer span.End()

	if c.bearerToken == "" {
		if err := c.EnsureReady(ctx); err != nil {
			return nil, err
		}
	}

	endpoint, err := websocketEndpoint(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid relay endpoint: %w", err)
	}

	ws, resp, err := c.dialer.DialContext(ctx, endpoint,
		http.Header{"Authorization": {"Bearer " + c.bearerToken}})
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: relay rejected the handshake with status %d",
				gateway.ErrAuthorizationExpired, resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to open relay connection: %w", err)
	}

	logger.InfoContext(ctx, "Relay connection established", "endpoint", endpoint)
	return &connection{ws: ws}, nil
}

// websocketEndpoint rewrites http(s) endpoints to their ws(s)
// equivalents so callers can hand us the URL they got from service
// discovery unchanged.
func websocketEndpoint(endpoint string) (string, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}

	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	return parsed.String(), nil
}

type connection struct {
	ws      *websocket.Conn
	writeMu sync.Mutex

	localClose atomic.Bool
	closeOnce  sync.Once
	closeErr   error
}

func (c *connection) Send(ctx context.Context, envelope protocol.Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.localClose.Load() {
		return gateway.ErrConnectionClosed
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.ws.SetWriteDeadline(deadline)
		defer c.ws.SetWriteDeadline(time.Time{})
	}

	if err := c.ws.WriteJSON(envelope); err != nil {
		if c.localClose.Load() {
			return gateway.ErrConnectionClosed
		}
		return fmt.Errorf("failed to write to relay: %w", err)
	}
	return nil
}

func (c *connection) Receive(ctx context.Context, onMessage func(payload []byte)) error {
	// ReadMessage cannot be interrupted directly, tearing the socket
	// down is the documented way to unblock it.
	watcherDone := make(chan struct{})
	defer close(watcherDone)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-watcherDone:
		}
	}()

	for {
		msgType, payload, err := c.ws.ReadMessage()
		if err != nil {
			return c.classifyReadError(ctx, err)
		}
		if msgType != websocket.TextMessage {
			logger.Debug("Ignoring non-text relay frame", "type", msgType)
			continue
		}
		onMessage(payload)
	}
}

func (c *connection) classifyReadError(ctx context.Context, err error) error {
	switch {
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		return nil
	case websocket.IsCloseError(err, websocket.ClosePolicyViolation):
		return fmt.Errorf("%w: relay closed the stream with a policy violation",
			gateway.ErrAuthorizationExpired)
	case ctx.Err() != nil:
		return ctx.Err()
	case c.localClose.Load():
		return nil
	default:
		return fmt.Errorf("relay connection lost: %w", err)
	}
}

func (c *connection) Close() error {
	c.closeOnce.Do(func() {
		c.localClose.Store(true)

		// Best effort close handshake. WriteControl is safe to call
		// concurrently with WriteJSON, so no write lock here.
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeGracePeriod))

		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}
