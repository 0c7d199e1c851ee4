package transport

import (
	"encoding/binary"
	"fmt"
	"io"
)

// WriteFrame writes one length-prefixed frame: a 4-byte big-endian
// payload length, then the payload. Shared by the stream transport and
// the listener side of test stubs.
func WriteFrame(w io.Writer, p []byte) error {
	if len(p) < MinFramePayload || len(p) > MaxFramePayload {
		return ErrFrameTooLarge
	}
	buf := make([]byte, 4+len(p))
	binary.BigEndian.PutUint32(buf[:4], uint32(len(p)))
	copy(buf[4:], p)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("transport: write frame: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame, blocking until the whole
// payload is in.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("transport: read frame header: %w", err)
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n < MinFramePayload || n > MaxFramePayload {
		return nil, ErrFrameTooLarge
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("transport: read frame payload: %w", err)
	}
	return payload, nil
}
