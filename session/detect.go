package session

import (
	"fmt"
	"time"

	"github.com/mickamy/engine-tap/wire"
)

// Probe identities. The ids sit far above anything a scenario issues,
// so a stray probe response is recognizable in engine logs.
const (
	probeUser     = 999999
	probeOrderID  = 999999
	csvProbeOrder = 1000000
	probeSymbol   = "PROBE"

	detectWait  = 500 * time.Millisecond
	detectDrain = 100 * time.Millisecond
)

// Detect discovers which wire form the peer speaks by probing with a
// tiny order and classifying the first response byte. A silent peer
// defaults to Binary. The result sticks until SetProtocol overrides it.
func (s *Session) Detect() (Protocol, error) {
	probe := wire.NewOrder{
		User: probeUser, Symbol: probeSymbol,
		Price: 1, Qty: 1, Side: wire.Buy, OrderID: probeOrderID,
	}

	if err := s.tr.Send(wire.EncodeBinary(probe)); err != nil {
		return Unknown, fmt.Errorf("session: detect: binary probe: %w", err)
	}
	payload, ok, err := s.tr.Recv(time.Now().Add(detectWait))
	if err != nil {
		return Unknown, fmt.Errorf("session: detect: %w", err)
	}
	if ok {
		if wire.IsBinary(payload) {
			s.SetProtocol(Binary)
			// Withdraw the probe order and swallow its responses.
			_ = s.tr.Send(wire.EncodeBinary(wire.Cancel{
				User: probeUser, Symbol: probeSymbol, OrderID: probeOrderID,
			}))
			s.drainRaw(detectDrain)
			return Binary, nil
		}
		// A CSV engine never parsed the binary probe, so there is
		// nothing to withdraw.
		s.SetProtocol(CSV)
		s.drainRaw(detectDrain)
		return CSV, nil
	}

	// No response to binary; try a CSV probe with its own order id.
	probe.OrderID = csvProbeOrder
	if err := s.tr.Send(wire.EncodeCSV(probe)); err != nil {
		return Unknown, fmt.Errorf("session: detect: csv probe: %w", err)
	}
	payload, ok, err = s.tr.Recv(time.Now().Add(detectWait))
	if err != nil {
		return Unknown, fmt.Errorf("session: detect: %w", err)
	}
	if ok && wire.IsBinary(payload) {
		s.SetProtocol(Binary)
		_ = s.tr.Send(wire.EncodeBinary(wire.Cancel{
			User: probeUser, Symbol: probeSymbol, OrderID: csvProbeOrder,
		}))
		s.drainRaw(detectDrain)
		return Binary, nil
	}
	if ok {
		s.SetProtocol(CSV)
		_ = s.tr.Send(wire.EncodeCSV(wire.Cancel{
			User: probeUser, Symbol: probeSymbol, OrderID: csvProbeOrder,
		}))
		s.drainRaw(detectDrain)
		return CSV, nil
	}

	// Silent peer: assume binary.
	s.SetProtocol(Binary)
	return Binary, nil
}

// drainRaw swallows raw payloads for d without decoding them.
func (s *Session) drainRaw(d time.Duration) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if _, ok, err := s.tr.Recv(deadline); err != nil || !ok {
			return
		}
	}
}
