// Package gateway defines the contract between the voice session engine
// and the bidirectional stream it talks to. Implementations live in
// subpackages; the engine only sees these interfaces.
package gateway

import (
	"context"
	"errors"

	"github.com/adastralabs/vox-core/core/protocol"
)

var (
	// ErrAuthorizationExpired signals that the gateway rejected our
	// credentials and the caller has to mint fresh ones before retrying.
	ErrAuthorizationExpired = errors.New("gateway authorization expired")

	// ErrMissingEndpoint is returned when no gateway endpoint was
	// configured through options or the environment.
	ErrMissingEndpoint = errors.New("gateway endpoint not configured")

	// ErrMissingCredentials is returned when no token or token source
	// was configured through options or the environment.
	ErrMissingCredentials = errors.New("gateway credentials not configured")

	// ErrConnectionClosed is returned by writes that race with a close.
	ErrConnectionClosed = errors.New("gateway connection closed")
)

// Dialer prepares and opens gateway connections.
type Dialer interface {
	// EnsureReady resolves endpoint and credentials, refreshing tokens
	// if a token source is configured. It is called before every dial
	// so that a session never starts with stale credentials.
	EnsureReady(ctx context.Context) error
	// Dial opens a live bidirectional connection.
	Dial(ctx context.Context) (Connection, error)
}

// Connection is a single live bidirectional stream.
//
// Send may be called from any goroutine. Receive is meant to be driven
// by exactly one goroutine; it blocks until the stream ends.
type Connection interface {
	// Send writes one envelope to the stream.
	Send(ctx context.Context, envelope protocol.Envelope) error
	// Receive delivers every inbound payload to onMessage until the
	// stream ends. It returns nil on an orderly shutdown (remote close
	// or local Close) and an error otherwise.
	Receive(ctx context.Context, onMessage func(payload []byte)) error
	// Close tears the connection down. Safe to call more than once.
	Close() error
}
