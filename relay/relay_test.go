package relay_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/mickamy/engine-tap/relay"
	"github.com/mickamy/engine-tap/session"
	"github.com/mickamy/engine-tap/transport"
	"github.com/mickamy/engine-tap/wire"
)

func startRelay(t *testing.T) (*relay.Hub, *httptest.Server) {
	t.Helper()

	metrics := relay.NewMetrics()
	hub := relay.NewHub(zerolog.Nop(), metrics)
	srv := relay.NewServer(hub, zerolog.Nop(), metrics)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(hub.CloseAll)
	return hub, ts
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestBroadcastFanOut(t *testing.T) {
	t.Parallel()

	hub, ts := startRelay(t)
	a := dialWS(t, ts)
	b := dialWS(t, ts)
	waitFor(t, func() bool { return hub.Len() == 2 }, "subscribers never registered")

	payloads := []string{`{"seq":1}`, `{"seq":2}`, `{"seq":3}`}
	for _, p := range payloads {
		hub.Broadcast([]byte(p))
	}

	// Every subscriber sees every payload, in producer order.
	for _, conn := range []*websocket.Conn{a, b} {
		for i, want := range payloads {
			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			mt, got, err := conn.ReadMessage()
			if err != nil {
				t.Fatalf("read %d: %v", i, err)
			}
			if mt != websocket.TextMessage {
				t.Fatalf("read %d: message type %d, want text", i, mt)
			}
			if string(got) != want {
				t.Fatalf("read %d: got %s, want %s", i, got, want)
			}
		}
	}
}

func TestSlowSubscriberIsolation(t *testing.T) {
	t.Parallel()

	hub, ts := startRelay(t)

	fast := dialWS(t, ts)
	var fastReads atomic.Int64
	go func() {
		for {
			_ = fast.SetReadDeadline(time.Now().Add(10 * time.Second))
			if _, _, err := fast.ReadMessage(); err != nil {
				return
			}
			fastReads.Add(1)
		}
	}()

	// The slow subscriber never reads.
	_ = dialWS(t, ts)
	waitFor(t, func() bool { return hub.Len() == 2 }, "subscribers never registered")

	// Push bulk at a pace the fast subscriber can absorb until the
	// slow subscriber's socket buffers and queue fill and it is shed.
	payload := []byte(strings.Repeat("x", 8<<10))
	for i := 0; i < 5000 && hub.Len() == 2; i++ {
		hub.Broadcast(payload)
		time.Sleep(time.Millisecond)
	}

	waitFor(t, func() bool { return hub.Len() == 1 }, "slow subscriber never dropped")
	waitFor(t, func() bool { return fastReads.Load() > 0 }, "fast subscriber starved")
}

func TestSubscriberCloseDeregisters(t *testing.T) {
	t.Parallel()

	hub, ts := startRelay(t)
	conn := dialWS(t, ts)
	waitFor(t, func() bool { return hub.Len() == 1 }, "subscriber never registered")

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	_ = conn.Close()

	waitFor(t, func() bool { return hub.Len() == 0 }, "closed subscriber never removed")
}

func TestPingAnsweredWithPong(t *testing.T) {
	t.Parallel()

	_, ts := startRelay(t)
	conn := dialWS(t, ts)

	pong := make(chan struct{}, 1)
	conn.SetPongHandler(func(string) error {
		select {
		case pong <- struct{}{}:
		default:
		}
		return nil
	})
	go func() {
		for {
			_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteControl(websocket.PingMessage, []byte("hi"), time.Now().Add(time.Second)); err != nil {
		t.Fatalf("ping: %v", err)
	}
	select {
	case <-pong:
	case <-time.After(2 * time.Second):
		t.Fatal("no pong")
	}
}

func TestHealthAndClients(t *testing.T) {
	t.Parallel()

	hub, ts := startRelay(t)
	_ = dialWS(t, ts)
	waitFor(t, func() bool { return hub.Len() == 1 }, "subscriber never registered")

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	var health struct {
		Status      string `json:"status"`
		Subscribers int    `json:"subscribers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "ok" || health.Subscribers != 1 {
		t.Fatalf("health %+v", health)
	}

	resp, err = http.Get(ts.URL + "/clients")
	if err != nil {
		t.Fatalf("get clients: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	var clients []relay.SubscriberInfo
	if err := json.NewDecoder(resp.Body).Decode(&clients); err != nil {
		t.Fatalf("decode clients: %v", err)
	}
	if len(clients) != 1 || clients[0].ID == "" || clients[0].Remote == "" {
		t.Fatalf("clients %+v", clients)
	}
}

func TestProducerFiltersAndForwards(t *testing.T) {
	t.Parallel()

	// Engine side: a loopback TCP peer feeding framed binary events.
	var lc net.ListenConfig
	lis, err := lc.Listen(t.Context(), "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = lis.Close() })

	engineConn := make(chan net.Conn, 1)
	go func() {
		conn, err := lis.Accept()
		if err != nil {
			return
		}
		engineConn <- conn
	}()

	st, err := transport.DialStream(t.Context(), lis.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	sess := session.New(st)
	t.Cleanup(func() { _ = sess.Close() })

	hub, ts := startRelay(t)
	filter, err := relay.ParseFilter("trade")
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	producer := relay.NewProducer(sess, hub, filter, zerolog.Nop(), relay.NewMetrics())

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	ran := make(chan error, 1)
	go func() { ran <- producer.Run(ctx) }()

	sub := dialWS(t, ts)
	waitFor(t, func() bool { return hub.Len() == 1 }, "subscriber never registered")

	engine := <-engineConn
	t.Cleanup(func() { _ = engine.Close() })

	// An ack (filtered out), garbage (parse error), then a trade.
	_ = transport.WriteFrame(engine, wire.EncodeBinaryEvent(wire.Ack{Symbol: "IBM", User: 1, OrderID: 1}))
	_ = transport.WriteFrame(engine, []byte("Z,garbage\n"))
	trade := wire.Trade{Symbol: "IBM", BuyUser: 1, BuyOrder: 1, SellUser: 2, SellOrder: 2, Price: 10000, Qty: 100}
	_ = transport.WriteFrame(engine, wire.EncodeBinaryEvent(trade))

	_ = sub.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, got, err := sub.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want, _ := relay.MarshalEvent(trade)
	if string(got) != string(want) {
		t.Fatalf("got  %s\nwant %s", got, want)
	}

	// A terminal engine close ends the producer.
	_ = engine.Close()
	select {
	case err := <-ran:
		if !errors.Is(err, relay.ErrProducerDead) {
			t.Fatalf("producer returned %v, want ErrProducerDead", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("producer did not stop on engine close")
	}
}
