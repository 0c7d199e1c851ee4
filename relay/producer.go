package relay

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mickamy/engine-tap/session"
	"github.com/mickamy/engine-tap/transport"
	"github.com/mickamy/engine-tap/wire"
)

const (
	// producerPoll keeps the reader responsive to shutdown without
	// busy-spinning an idle engine.
	producerPoll = 100 * time.Millisecond
	// readRetryDelay backs off a transient read error.
	readRetryDelay = 100 * time.Millisecond
)

// ErrProducerDead reports a terminal engine transport close; the relay
// shuts down in order when it sees this.
var ErrProducerDead = errors.New("relay: engine transport closed")

// Filter is the set of event kinds the relay forwards.
type Filter map[wire.Kind]bool

// DefaultFilter forwards every engine event kind.
func DefaultFilter() Filter {
	return Filter{
		wire.KindAck:          true,
		wire.KindCancelAck:    true,
		wire.KindReject:       true,
		wire.KindCancelReject: true,
		wire.KindTrade:        true,
		wire.KindTopOfBook:    true,
	}
}

// ParseFilter reads a comma-separated list of kebab-case event names.
// An empty list means the default filter.
func ParseFilter(s string) (Filter, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultFilter(), nil
	}
	f := make(Filter)
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		kind, ok := wire.KindFromString(name)
		if !ok || kind == wire.KindParseError {
			return nil, fmt.Errorf("relay: unknown event kind %q", name)
		}
		f[kind] = true
	}
	return f, nil
}

func (f Filter) String() string {
	names := make([]string, 0, len(f))
	for kind, on := range f {
		if on {
			names = append(names, kind.String())
		}
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// Producer owns the engine session for reads: one goroutine runs its
// loop, decoding events and handing filtered ones to the hub. No other
// code touches the session while it runs.
type Producer struct {
	sess    *session.Session
	hub     *Hub
	filter  Filter
	log     zerolog.Logger
	metrics *Metrics
}

// NewProducer wires an open session to a hub.
func NewProducer(sess *session.Session, hub *Hub, filter Filter, log zerolog.Logger, metrics *Metrics) *Producer {
	if filter == nil {
		filter = DefaultFilter()
	}
	return &Producer{sess: sess, hub: hub, filter: filter, log: log, metrics: metrics}
}

// Run reads until the context ends or the engine transport dies.
// Transient read errors are logged and retried; a terminal close
// returns ErrProducerDead.
func (p *Producer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		ev, ok, err := p.sess.Recv(time.Now().Add(producerPoll))
		if err != nil {
			if errors.Is(err, transport.ErrClosed) {
				p.log.Warn().Msg("engine transport closed")
				return ErrProducerDead
			}
			p.log.Warn().Err(err).Msg("engine read error, retrying")
			time.Sleep(readRetryDelay)
			continue
		}
		if !ok {
			continue
		}

		if perr, isParseErr := ev.(wire.ParseError); isParseErr {
			p.metrics.ParseErrors.Inc()
			p.log.Debug().Err(perr.Err).Int("raw_len", len(perr.Raw)).Msg("undecodable payload")
			continue
		}

		p.metrics.EventsRead.Inc()
		if !p.filter[ev.Kind()] {
			continue
		}
		payload, err := MarshalEvent(ev)
		if err != nil {
			p.log.Warn().Err(err).Msg("serialize event")
			continue
		}
		p.metrics.EventsBroadcast.Inc()
		p.hub.Broadcast(payload)
	}
}
