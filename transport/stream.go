package transport

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"
)

// Stream is a connection-oriented transport over TCP with 4-byte
// big-endian length-prefix framing. Orders are latency-sensitive, so
// the socket runs with Nagle disabled.
type Stream struct {
	conn   net.Conn
	br     *bufio.Reader
	closed atomic.Bool
}

// DialStream connects to addr within connectTimeout.
func DialStream(ctx context.Context, addr string, connectTimeout time.Duration) (*Stream, error) {
	d := net.Dialer{Timeout: connectTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: connect %s: %w", addr, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return NewStream(conn), nil
}

// NewStream wraps an established connection. The read buffer holds a
// maximum frame so a partially arrived frame survives a read deadline
// without losing sync.
func NewStream(conn net.Conn) *Stream {
	return &Stream{
		conn: conn,
		br:   bufio.NewReaderSize(conn, 4+MaxFramePayload),
	}
}

// Send frames and writes one payload.
func (s *Stream) Send(p []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if len(p) < MinFramePayload || len(p) > MaxFramePayload {
		_ = s.Close()
		return ErrFrameTooLarge
	}
	if err := WriteFrame(s.conn, p); err != nil {
		return err
	}
	return nil
}

// Recv returns the next whole payload, or ok=false once the deadline
// passes. Bytes of a frame still in flight stay buffered across calls.
func (s *Stream) Recv(deadline time.Time) ([]byte, bool, error) {
	if s.closed.Load() {
		return nil, false, ErrClosed
	}
	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return nil, false, fmt.Errorf("transport: set read deadline: %w", err)
	}

	hdr, err := s.br.Peek(4)
	if err != nil {
		return nil, false, s.recvErr(err)
	}
	n := int(binary.BigEndian.Uint32(hdr))
	if n < MinFramePayload || n > MaxFramePayload {
		_ = s.Close()
		return nil, false, ErrFrameTooLarge
	}

	frame, err := s.br.Peek(4 + n)
	if err != nil {
		return nil, false, s.recvErr(err)
	}
	payload := make([]byte, n)
	copy(payload, frame[4:])
	_, _ = s.br.Discard(4 + n)
	return payload, true, nil
}

func (s *Stream) recvErr(err error) error {
	if isTimeout(err) {
		return nil
	}
	if s.closed.Load() {
		return ErrClosed
	}
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		_ = s.Close()
		return ErrClosed
	}
	return fmt.Errorf("transport: read: %w", err)
}

// Close shuts the connection down. Idempotent; pending receives
// terminate with ErrClosed.
func (s *Stream) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.conn.Close()
}

// Connected reports handle liveness; never true after Close.
func (s *Stream) Connected() bool {
	return !s.closed.Load()
}
