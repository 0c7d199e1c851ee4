package wire_test

import (
	"errors"
	"testing"

	"github.com/mickamy/engine-tap/wire"
)

func TestDecodeCSVEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want wire.Event
	}{
		{"trade", "T,GOOG,1,11,2,22,2500,10\n",
			wire.Trade{Symbol: "GOOG", BuyUser: 1, BuyOrder: 11, SellUser: 2, SellOrder: 22, Price: 2500, Qty: 10}},
		{"ack", "A,IBM,1,7\n", wire.Ack{Symbol: "IBM", User: 1, OrderID: 7}},
		{"cancel ack", "X,IBM,1,7\n", wire.CancelAck{Symbol: "IBM", User: 1, OrderID: 7}},
		{"reject", "R,IBM,1,7,2\n", wire.Reject{Symbol: "IBM", User: 1, OrderID: 7, Reason: 2}},
		{"top of book", "B,IBM,S,10000,100\n", wire.TopOfBook{Symbol: "IBM", Side: wire.Sell, Price: 10000, Qty: 100}},
		{"eliminated zeros", "B,IBM,B,0,0\n", wire.TopOfBook{Symbol: "IBM", Side: wire.Buy}},
		{"eliminated dashes", "B,IBM,B,-,-\n", wire.TopOfBook{Symbol: "IBM", Side: wire.Buy}},
		{"whitespace tolerated", " A , IBM , 1 , 7 \n", wire.Ack{Symbol: "IBM", User: 1, OrderID: 7}},
		{"no trailing newline", "A,IBM,1,7", wire.Ack{Symbol: "IBM", User: 1, OrderID: 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := wire.DecodeCSVEvent([]byte(tt.in))
			if err != nil {
				t.Fatalf("decode %q: %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodeCSVEventErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		kind wire.ErrorKind
	}{
		{"empty", "", wire.Truncated},
		{"unknown record", "Q,IBM,1\n", wire.UnknownType},
		{"short trade", "T,GOOG,1,11\n", wire.Truncated},
		{"non-decimal user", "A,IBM,one,7\n", wire.ParseField},
		{"non-decimal reason", "R,IBM,1,7,bad\n", wire.ParseField},
		{"bad side", "B,IBM,Q,0,0\n", wire.UnknownSide},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := wire.DecodeCSVEvent([]byte(tt.in))
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

func TestCSVRequestRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  wire.Request
	}{
		{"new order", wire.NewOrder{User: 1, Symbol: "IBM", Price: 10050, Qty: 50, Side: wire.Buy, OrderID: 7}},
		{"cancel", wire.Cancel{User: 7, Symbol: "GOOG", OrderID: 3}},
		{"flush", wire.Flush{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := wire.DecodeCSVRequest(wire.EncodeCSV(tt.req))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got != tt.req {
				t.Fatalf("got %+v, want %+v", got, tt.req)
			}
		})
	}
}

func TestCSVEventRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ev   wire.Event
	}{
		{"ack", wire.Ack{Symbol: "IBM", User: 1, OrderID: 7}},
		{"trade", wire.Trade{Symbol: "GOOG", BuyUser: 1, BuyOrder: 11, SellUser: 2, SellOrder: 22, Price: 2500, Qty: 10}},
		{"top of book", wire.TopOfBook{Symbol: "IBM", Side: wire.Sell, Price: 10000, Qty: 100}},
		{"eliminated top of book", wire.TopOfBook{Symbol: "IBM", Side: wire.Buy}},
		{"reject", wire.Reject{Symbol: "IBM", User: 1, OrderID: 7, Reason: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := wire.DecodeCSVEvent(wire.EncodeCSVEvent(tt.ev))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got != tt.ev {
				t.Fatalf("got %+v, want %+v", got, tt.ev)
			}
		})
	}
}
