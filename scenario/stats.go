// Package scenario drives an engine session through pre-registered
// load programs: scripted order flow at configurable batch and delay
// shapes, response draining interleaved with sending, and a
// completeness verdict at the end. Verdicts are values, never errors.
package scenario

import (
	"fmt"

	"github.com/mickamy/engine-tap/wire"
)

// Stats tallies the response stream of one run. Each field is
// monotonically non-decreasing during a run and reset at run start.
type Stats struct {
	Acks        uint64
	CancelAcks  uint64
	Trades      uint64
	TopOfBook   uint64
	Rejects     uint64
	ParseErrors uint64
}

// Observe tallies one event.
func (s *Stats) Observe(ev wire.Event) {
	switch ev.Kind() {
	case wire.KindAck:
		s.Acks++
	case wire.KindCancelAck:
		s.CancelAcks++
	case wire.KindTrade:
		s.Trades++
	case wire.KindTopOfBook:
		s.TopOfBook++
	case wire.KindReject, wire.KindCancelReject:
		s.Rejects++
	case wire.KindParseError:
		s.ParseErrors++
	}
}

// ObserveAll tallies a drained batch.
func (s *Stats) ObserveAll(events []wire.Event) {
	for _, ev := range events {
		s.Observe(ev)
	}
}

// Total is the number of events tallied.
func (s *Stats) Total() uint64 {
	return s.Acks + s.CancelAcks + s.Trades + s.TopOfBook + s.Rejects + s.ParseErrors
}

func (s *Stats) String() string {
	return fmt.Sprintf("acks=%d cancel_acks=%d trades=%d tob=%d rejects=%d parse_errors=%d",
		s.Acks, s.CancelAcks, s.Trades, s.TopOfBook, s.Rejects, s.ParseErrors)
}
