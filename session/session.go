// Package session composes a transport with the wire codec into a
// bidirectional engine session: protocol discovery, encoded sends,
// timed receives, and bounded drains. A session never spawns
// goroutines; callers that want a background reader spin their own.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/mickamy/engine-tap/transport"
	"github.com/mickamy/engine-tap/wire"
)

// Protocol is the wire form a session speaks.
type Protocol int32

const (
	Unknown Protocol = iota
	Binary
	CSV
)

func (p Protocol) String() string {
	switch p {
	case Binary:
		return "binary"
	case CSV:
		return "csv"
	case Unknown:
		return "unknown"
	}
	return fmt.Sprintf("UnknownProtocol(%d)", int32(p))
}

// Drain pacing: short polls until the budget deadline or a run of
// empty polls, whichever comes first.
const (
	drainPoll     = 100 * time.Millisecond
	maxEmptyPolls = 100
)

// Session drives one transport with one protocol state.
type Session struct {
	tr transport.Transport

	mu          sync.Mutex
	detected    Protocol
	nextOrderID uint32
}

// New wraps an open transport. The protocol starts Unknown; sends
// encode binary until discovery or an override says otherwise.
func New(tr transport.Transport) *Session {
	return &Session{tr: tr}
}

// Protocol returns the detected wire form.
func (s *Session) Protocol() Protocol {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detected
}

// SetProtocol overrides the detected wire form. This and Detect are
// the only transitions out of Unknown.
func (s *Session) SetProtocol(p Protocol) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detected = p
}

// NextOrderID returns a strictly increasing order id.
func (s *Session) NextOrderID() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextOrderID++
	return s.nextOrderID
}

// ResetOrderIDs rewinds the send-side sequence, as scenario setup does
// between runs.
func (s *Session) ResetOrderIDs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextOrderID = 0
}

// SendRequest encodes req in the detected wire form (binary while
// Unknown) and hands it to the transport.
func (s *Session) SendRequest(req wire.Request) error {
	var b []byte
	if s.Protocol() == CSV {
		b = wire.EncodeCSV(req)
	} else {
		b = wire.EncodeBinary(req)
	}
	if err := s.tr.Send(b); err != nil {
		return fmt.Errorf("session: send: %w", err)
	}
	return nil
}

// Recv returns the next event, or ok=false on deadline. A payload that
// fails to decode comes back as a ParseError event; the session stays
// open.
func (s *Session) Recv(deadline time.Time) (wire.Event, bool, error) {
	payload, ok, err := s.tr.Recv(deadline)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	ev, derr := wire.DecodeEvent(payload)
	if derr != nil {
		raw := make([]byte, len(payload))
		copy(raw, payload)
		return wire.ParseError{Err: derr, Raw: raw}, true, nil
	}
	return ev, true, nil
}

// Drain consumes queued events until the budget deadline passes or
// maxEmptyPolls consecutive polls come up empty. Transport death ends
// the drain with whatever was collected.
func (s *Session) Drain(deadline time.Time) []wire.Event {
	var events []wire.Event
	empty := 0
	for empty < maxEmptyPolls {
		now := time.Now()
		if !now.Before(deadline) {
			break
		}
		poll := now.Add(drainPoll)
		if poll.After(deadline) {
			poll = deadline
		}
		ev, ok, err := s.Recv(poll)
		if err != nil {
			break
		}
		if !ok {
			empty++
			continue
		}
		empty = 0
		events = append(events, ev)
	}
	return events
}

// Close closes the underlying transport. Idempotent.
func (s *Session) Close() error {
	return s.tr.Close()
}

// Connected reports the underlying handle's liveness.
func (s *Session) Connected() bool {
	return s.tr.Connected()
}
