package transport

import (
	"fmt"
	"net"
	"sync/atomic"
	"time"
)

// multicastReadBuffer sizes the socket receive buffer; market-data
// feeds burst well past the kernel default.
const multicastReadBuffer = 4 << 20

// Multicast is a receive-only transport joined to a multicast group.
type Multicast struct {
	conn   *net.UDPConn
	closed atomic.Bool
}

// JoinMulticast joins group ("host:port"), optionally on the named
// interface.
func JoinMulticast(group, ifaceName string) (*Multicast, error) {
	gaddr, err := net.ResolveUDPAddr("udp", group)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve group %s: %w", group, err)
	}
	var ifi *net.Interface
	if ifaceName != "" {
		ifi, err = net.InterfaceByName(ifaceName)
		if err != nil {
			return nil, fmt.Errorf("transport: interface %s: %w", ifaceName, err)
		}
	}
	conn, err := net.ListenMulticastUDP("udp", ifi, gaddr)
	if err != nil {
		return nil, fmt.Errorf("transport: join %s: %w", group, err)
	}
	_ = conn.SetReadBuffer(multicastReadBuffer)
	return &Multicast{conn: conn}, nil
}

// Send is forbidden on a subscription.
func (m *Multicast) Send([]byte) error {
	return ErrSendOnReadOnly
}

// Recv returns the next datagram from the group, or ok=false on deadline.
func (m *Multicast) Recv(deadline time.Time) ([]byte, bool, error) {
	if m.closed.Load() {
		return nil, false, ErrClosed
	}
	if err := m.conn.SetReadDeadline(deadline); err != nil {
		return nil, false, fmt.Errorf("transport: set read deadline: %w", err)
	}
	buf := make([]byte, MaxDatagramSize)
	n, _, err := m.conn.ReadFromUDP(buf)
	if err != nil {
		if isTimeout(err) {
			return nil, false, nil
		}
		if m.closed.Load() {
			return nil, false, ErrClosed
		}
		return nil, false, fmt.Errorf("transport: recv multicast: %w", err)
	}
	return buf[:n], true, nil
}

// Close leaves the group. Idempotent.
func (m *Multicast) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	return m.conn.Close()
}

// Connected reports handle liveness; never true after Close.
func (m *Multicast) Connected() bool {
	return !m.closed.Load()
}
