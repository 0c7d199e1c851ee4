package wire_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/mickamy/engine-tap/wire"
)

func TestEncodeBinaryNewOrder(t *testing.T) {
	t.Parallel()

	got := wire.EncodeBinary(wire.NewOrder{
		User: 1, Symbol: "IBM", Price: 10050, Qty: 50, Side: wire.Buy, OrderID: 7,
	})
	want := []byte{
		0x4D, 0x4E,
		0x00, 0x00, 0x00, 0x01,
		0x49, 0x42, 0x4D, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x27, 0x42,
		0x00, 0x00, 0x00, 0x32,
		0x42,
		0x00, 0x00, 0x00, 0x07,
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got  % X\nwant % X", got, want)
	}
}

func TestDecodeBinaryRequestSymbolPadding(t *testing.T) {
	t.Parallel()

	// Both NUL and space padding must decode to the same symbol.
	b := wire.EncodeBinary(wire.NewOrder{
		User: 1, Symbol: "IBM", Price: 10050, Qty: 50, Side: wire.Buy, OrderID: 7,
	})
	spacePadded := append([]byte(nil), b...)
	for i := 9; i < 14; i++ {
		spacePadded[i] = 0x20
	}

	for _, tt := range [][]byte{b, spacePadded} {
		req, err := wire.DecodeBinaryRequest(tt)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		no, ok := req.(wire.NewOrder)
		if !ok {
			t.Fatalf("got %T, want NewOrder", req)
		}
		if no.Symbol != "IBM" {
			t.Fatalf("got symbol %q, want IBM", no.Symbol)
		}
	}
}

func TestDecodeBinaryTopOfBook(t *testing.T) {
	t.Parallel()

	b := []byte{
		0x4D, 0x42,
		0x49, 0x42, 0x4D, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x53,
		0x00, 0x00, 0x27, 0x10,
		0x00, 0x00, 0x00, 0x64,
		0x00,
	}
	ev, err := wire.DecodeBinaryEvent(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	tob, ok := ev.(wire.TopOfBook)
	if !ok {
		t.Fatalf("got %T, want TopOfBook", ev)
	}
	want := wire.TopOfBook{Symbol: "IBM", Side: wire.Sell, Price: 10000, Qty: 100}
	if tob != want {
		t.Fatalf("got %+v, want %+v", tob, want)
	}
	if tob.Eliminated() {
		t.Fatal("unexpected eliminated level")
	}
}

func TestBinaryRequestRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  wire.Request
	}{
		{"new order", wire.NewOrder{User: 42, Symbol: "GOOG", Price: 2500, Qty: 10, Side: wire.Sell, OrderID: 99}},
		{"new order max symbol", wire.NewOrder{User: 1, Symbol: "ABCDEFGH", Price: 1, Qty: 1, Side: wire.Buy, OrderID: 1}},
		{"cancel", wire.Cancel{User: 7, Symbol: "IBM", OrderID: 3}},
		{"flush", wire.Flush{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := wire.DecodeBinaryRequest(wire.EncodeBinary(tt.req))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got != tt.req {
				t.Fatalf("got %+v, want %+v", got, tt.req)
			}
		})
	}
}

func TestBinaryEventRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ev   wire.Event
	}{
		{"ack", wire.Ack{Symbol: "IBM", User: 1, OrderID: 7}},
		{"cancel ack", wire.CancelAck{Symbol: "IBM", User: 1, OrderID: 7}},
		{"trade", wire.Trade{Symbol: "GOOG", BuyUser: 1, BuyOrder: 11, SellUser: 2, SellOrder: 22, Price: 2500, Qty: 10}},
		{"top of book", wire.TopOfBook{Symbol: "IBM", Side: wire.Sell, Price: 10000, Qty: 100}},
		{"eliminated top of book", wire.TopOfBook{Symbol: "IBM", Side: wire.Buy}},
		{"reject", wire.Reject{Symbol: "IBM", User: 1, OrderID: 7, Reason: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := wire.DecodeBinaryEvent(wire.EncodeBinaryEvent(tt.ev))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got != tt.ev {
				t.Fatalf("got %+v, want %+v", got, tt.ev)
			}
		})
	}
}

func TestDecodeBinaryEventErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []byte
		kind wire.ErrorKind
	}{
		{"empty", nil, wire.BadMagic},
		{"wrong magic", []byte{0x41, 0x41}, wire.BadMagic},
		{"magic only", []byte{0x4D}, wire.Truncated},
		{"unknown type", []byte{0x4D, 0x5A}, wire.UnknownType},
		{"truncated ack", []byte{0x4D, 0x41, 0x49, 0x42}, wire.Truncated},
		{"truncated trade", append([]byte{0x4D, 0x54}, make([]byte, 10)...), wire.Truncated},
		{"bad tob side", func() []byte {
			b := wire.EncodeBinaryEvent(wire.TopOfBook{Symbol: "IBM", Side: wire.Buy, Price: 1, Qty: 1})
			b[10] = 'Q'
			return b
		}(), wire.UnknownSide},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := wire.DecodeBinaryEvent(tt.in)
			var derr *wire.DecodeError
			if !errors.As(err, &derr) {
				t.Fatalf("got %v, want DecodeError", err)
			}
			if derr.Kind != tt.kind {
				t.Fatalf("got kind %s, want %s", derr.Kind, tt.kind)
			}
		})
	}
}
