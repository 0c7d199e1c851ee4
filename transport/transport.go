// Package transport moves opaque payloads to and from a peer over a
// stream, datagram, or multicast-subscribe socket. Stream payloads are
// length-prefix framed on the wire; datagram payloads map one-to-one
// onto datagrams.
package transport

import (
	"errors"
	"net"
	"time"
)

// Frame payload bounds on stream transports. A frame outside these
// bounds closes the connection.
const (
	MinFramePayload = 1
	MaxFramePayload = 65535
)

// MaxDatagramSize bounds a single received datagram.
const MaxDatagramSize = 65536

var (
	// ErrClosed reports an operation on a closed transport.
	ErrClosed = errors.New("transport: closed")
	// ErrFrameTooLarge reports a stream frame outside the accepted payload bounds.
	ErrFrameTooLarge = errors.New("transport: frame too large")
	// ErrSendOnReadOnly reports a send on a receive-only transport.
	ErrSendOnReadOnly = errors.New("transport: send on read-only transport")
)

// Transport is the capability a session drives: send one payload,
// receive one payload with a deadline, close.
//
// Recv returns (payload, true, nil) when a payload arrived before the
// deadline, (nil, false, nil) on deadline, and a non-nil error on
// transport death. Close is idempotent; Connected is never true after
// Close.
type Transport interface {
	Send(p []byte) error
	Recv(deadline time.Time) ([]byte, bool, error)
	Close() error
	Connected() bool
}

// isTimeout reports whether err is a deadline expiry rather than a
// transport failure.
func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
