package scenario

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mickamy/engine-tap/session"
	"github.com/mickamy/engine-tap/wire"
)

// Order flow constants shared by every scenario: two users trading one
// price level keeps the engine's book shallow and the expected event
// counts exact.
const (
	buyUser  = 1
	sellUser = 2
	price    = 10_000
	qty      = 100
)

var dualSymbols = [2]string{"IBM", "AAPL"}

// Reset pacing between scenarios.
const (
	resetSettle = 200 * time.Millisecond
	resetDrain  = 500 * time.Millisecond
)

// Driver runs scenarios against one session. The driver is
// single-threaded: it writes requests and drains responses from the
// same goroutine, never overlapping the two.
type Driver struct {
	sess *session.Session
	log  zerolog.Logger

	// Settle is the pause between the last send and the final drain,
	// letting in-flight writes reach the wire. Tests shrink it.
	Settle time.Duration
	// BatchPoll is the per-poll deadline of the aggressive
	// inter-batch drain.
	BatchPoll time.Duration
}

// New returns a driver with production pacing.
func New(sess *session.Session, log zerolog.Logger) *Driver {
	return &Driver{
		sess:      sess,
		log:       log,
		Settle:    3 * time.Second,
		BatchPoll: 2 * time.Millisecond,
	}
}

// Run executes the scenario registered under id and returns its
// verdict. An unknown id logs the catalog and fails without touching
// the engine.
func (d *Driver) Run(id int) Verdict {
	spec, ok := Lookup(id)
	if !ok {
		d.log.Error().Int("scenario", id).Msg("unknown scenario")
		for _, s := range Catalog() {
			d.log.Info().Int("id", s.ID).Str("name", s.Name).Msg("available")
		}
		return Verdict{Detail: fmt.Sprintf("unknown scenario %d", id)}
	}

	d.log.Info().Int("scenario", spec.ID).Str("name", spec.Name).Msg("starting scenario")
	if err := d.reset(); err != nil {
		return d.abort(Stats{}, Expected{}, err)
	}

	switch spec.Shape {
	case ShapeSimple:
		return d.runSimple()
	case ShapeMatch:
		return d.runMatch()
	case ShapeCancel:
		return d.runCancel()
	case ShapeUnmatched:
		return d.runStress(spec, false, false)
	case ShapeMatching:
		return d.runStress(spec, true, false)
	case ShapeDual:
		return d.runStress(spec, true, true)
	}
	return Verdict{Detail: fmt.Sprintf("unhandled shape %d", spec.Shape)}
}

// reset flushes engine state and rewinds send-side sequences so each
// scenario starts from a known book.
func (d *Driver) reset() error {
	if err := d.sess.SendRequest(wire.Flush{}); err != nil {
		return err
	}
	time.Sleep(resetSettle)
	d.sess.Drain(time.Now().Add(resetDrain))
	d.sess.ResetOrderIDs()
	return nil
}

// runSimple places a non-crossing pair: two acks, no trade.
func (d *Driver) runSimple() Verdict {
	sym := dualSymbols[0]
	orders := []wire.Request{
		wire.NewOrder{User: buyUser, Symbol: sym, Price: price, Qty: qty, Side: wire.Buy, OrderID: d.sess.NextOrderID()},
		wire.NewOrder{User: sellUser, Symbol: sym, Price: price + 100, Qty: qty, Side: wire.Sell, OrderID: d.sess.NextOrderID()},
	}
	return d.runBasic(orders, Expected{Acks: 2})
}

// runMatch places one crossing pair: two acks, one trade.
func (d *Driver) runMatch() Verdict {
	sym := dualSymbols[0]
	orders := []wire.Request{
		wire.NewOrder{User: buyUser, Symbol: sym, Price: price, Qty: qty, Side: wire.Buy, OrderID: d.sess.NextOrderID()},
		wire.NewOrder{User: sellUser, Symbol: sym, Price: price, Qty: qty, Side: wire.Sell, OrderID: d.sess.NextOrderID()},
	}
	return d.runBasic(orders, Expected{Acks: 2, Trades: 1})
}

// runCancel places one order and withdraws it: one ack plus a cancel
// ack, no trade.
func (d *Driver) runCancel() Verdict {
	sym := dualSymbols[0]
	id := d.sess.NextOrderID()
	orders := []wire.Request{
		wire.NewOrder{User: buyUser, Symbol: sym, Price: price, Qty: qty, Side: wire.Buy, OrderID: id},
		wire.Cancel{User: buyUser, Symbol: sym, OrderID: id},
	}
	return d.runBasic(orders, Expected{Acks: 1})
}

func (d *Driver) runBasic(orders []wire.Request, exp Expected) Verdict {
	var stats Stats
	for _, req := range orders {
		if err := d.sess.SendRequest(req); err != nil {
			return d.abort(stats, exp, err)
		}
	}
	time.Sleep(d.Settle)
	stats.ObserveAll(d.sess.Drain(time.Now().Add(pacingFor(0).finalDrain)))
	return d.report(validate(stats, exp))
}

// runStress is the interleaved send/drain loop. Each iteration emits
// one order (unmatched) or one crossing pair (matching; alternating
// symbols when dual). After every batch the driver aggressively
// consumes queued responses, then sleeps the inter-batch delay so the
// peer's buffers never run away.
func (d *Driver) runStress(spec Spec, matching, dual bool) Verdict {
	n := spec.Pairs
	pac := pacingFor(n)
	interval := progressInterval(n)

	exp := Expected{Acks: uint64(n)}
	if matching {
		exp = Expected{Acks: 2 * uint64(n), Trades: uint64(n)}
	}

	symbols := dualSymbols[:1]
	if dual {
		symbols = dualSymbols[:]
	}

	var stats Stats
	start := time.Now()
	for i := range n {
		sym := symbols[i%len(symbols)]
		if err := d.sendIteration(sym, matching); err != nil {
			return d.abort(stats, exp, err)
		}

		if i > 0 && i%pac.batch == 0 {
			if err := d.drainBatch(&stats, pac.drainTarget()); err != nil {
				return d.abort(stats, exp, err)
			}
			time.Sleep(pac.sleep)
		}

		if i > 0 && i%interval == 0 {
			elapsed := time.Since(start)
			d.log.Info().
				Int("pct", i*100/n).
				Int("pairs", i).
				Dur("elapsed", elapsed).
				Float64("pairs_per_sec", float64(i)/elapsed.Seconds()).
				Uint64("events", stats.Total()).
				Msg("progress")
		}
	}

	time.Sleep(d.Settle)
	d.log.Info().Dur("bound", pac.finalDrain).Msg("final drain")
	stats.ObserveAll(d.sess.Drain(time.Now().Add(pac.finalDrain)))

	elapsed := time.Since(start)
	d.log.Info().
		Dur("elapsed", elapsed).
		Float64("pairs_per_sec", float64(n)/elapsed.Seconds()).
		Uint64("events", stats.Total()).
		Msg("run complete")
	return d.report(validate(stats, exp))
}

func (d *Driver) sendIteration(sym string, matching bool) error {
	buy := wire.NewOrder{
		User: buyUser, Symbol: sym, Price: price, Qty: qty,
		Side: wire.Buy, OrderID: d.sess.NextOrderID(),
	}
	if err := d.sess.SendRequest(buy); err != nil {
		return err
	}
	if !matching {
		return nil
	}
	sell := wire.NewOrder{
		User: sellUser, Symbol: sym, Price: price, Qty: qty,
		Side: wire.Sell, OrderID: d.sess.NextOrderID(),
	}
	return d.sess.SendRequest(sell)
}

// drainBatch consumes up to target queued events with a tight per-poll
// deadline, stopping early on the first empty poll.
func (d *Driver) drainBatch(stats *Stats, target int) error {
	for range target {
		ev, ok, err := d.sess.Recv(time.Now().Add(d.BatchPoll))
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		stats.Observe(ev)
	}
	return nil
}

// abort reports a mid-run transport failure, closes the session, and
// returns the failing verdict. Scenario failures are ordinary return
// values.
func (d *Driver) abort(stats Stats, exp Expected, err error) Verdict {
	d.log.Error().Err(err).Msg("transport failure mid-run")
	_ = d.sess.Close()
	return d.report(failed(stats, exp, SendErrors, err.Error()))
}

func (d *Driver) report(v Verdict) Verdict {
	ev := d.log.Info()
	if !v.Passed {
		ev = d.log.Error()
	}
	ev.Bool("passed", v.Passed).
		Str("stats", v.Stats.String()).
		Str("detail", v.Detail).
		Msg("verdict")
	return v
}
