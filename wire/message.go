// Package wire implements the matching-engine wire protocol: a compact
// binary form and a line-oriented CSV form, plus automatic detection of
// which form a peer speaks.
//
// Both forms carry the same message set. Requests flow client to
// engine (NewOrder, Cancel, Flush); events flow engine to client (Ack,
// CancelAck, Trade, TopOfBook, Reject, CancelReject). Decoders return
// the tagged Event sum; a payload that cannot be decoded surfaces as a
// ParseError event at the session layer, never as a partial message.
package wire

import "fmt"

// Magic is the first byte of every binary message. No CSV event starts
// with it, so one byte disambiguates the two forms.
const Magic byte = 0x4D // 'M'

// MaxSymbolLen is the fixed width of the symbol field on the binary wire.
const MaxSymbolLen = 8

// Side is the side of an order or book level.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	}
	return fmt.Sprintf("UnknownSide(%d)", uint8(s))
}

// wireByte returns the single-byte wire form of the side.
func (s Side) wireByte() byte {
	if s == Sell {
		return 'S'
	}
	return 'B'
}

func sideFromByte(b byte) (Side, bool) {
	switch b {
	case 'B':
		return Buy, true
	case 'S':
		return Sell, true
	}
	return 0, false
}

// Request is a client-to-engine message.
type Request interface {
	isRequest()
}

// NewOrder places a limit order.
type NewOrder struct {
	User    uint32
	Symbol  string
	Price   uint32 // smallest quotable unit (cents)
	Qty     uint32
	Side    Side
	OrderID uint32
}

// Cancel withdraws a resting order.
type Cancel struct {
	User    uint32
	Symbol  string
	OrderID uint32
}

// Flush asks the engine to clear its books.
type Flush struct{}

func (NewOrder) isRequest() {}
func (Cancel) isRequest()   {}
func (Flush) isRequest()    {}

// Kind identifies an Event variant.
type Kind int32

const (
	KindAck Kind = iota
	KindCancelAck
	KindReject
	KindCancelReject
	KindTrade
	KindTopOfBook
	KindParseError
)

func (k Kind) String() string {
	switch k {
	case KindAck:
		return "ack"
	case KindCancelAck:
		return "cancel-ack"
	case KindReject:
		return "reject"
	case KindCancelReject:
		return "cancel-reject"
	case KindTrade:
		return "trade"
	case KindTopOfBook:
		return "top-of-book"
	case KindParseError:
		return "parse-error"
	}
	return fmt.Sprintf("UnknownKind(%d)", int32(k))
}

// KindFromString maps the kebab-case name back to a Kind.
func KindFromString(s string) (Kind, bool) {
	switch s {
	case "ack":
		return KindAck, true
	case "cancel-ack":
		return KindCancelAck, true
	case "reject":
		return KindReject, true
	case "cancel-reject":
		return KindCancelReject, true
	case "trade":
		return KindTrade, true
	case "top-of-book":
		return KindTopOfBook, true
	case "parse-error":
		return KindParseError, true
	}
	return 0, false
}

// Event is an engine-to-client message. Consumers switch on the
// concrete type or on Kind.
type Event interface {
	Kind() Kind
}

// Ack acknowledges a NewOrder.
type Ack struct {
	Symbol  string
	User    uint32
	OrderID uint32
}

// CancelAck acknowledges a Cancel.
type CancelAck struct {
	Symbol  string
	User    uint32
	OrderID uint32
}

// Reject refuses a NewOrder.
type Reject struct {
	Symbol  string
	User    uint32
	OrderID uint32
	Reason  uint8
}

// CancelReject refuses a Cancel.
type CancelReject struct {
	Symbol  string
	User    uint32
	OrderID uint32
	Reason  uint8
}

// Trade reports a match between two resting orders.
type Trade struct {
	Symbol    string
	BuyUser   uint32
	BuyOrder  uint32
	SellUser  uint32
	SellOrder uint32
	Price     uint32
	Qty       uint32
}

// TopOfBook reports the best level of one side of a book.
type TopOfBook struct {
	Symbol string
	Side   Side
	Price  uint32
	Qty    uint32
}

// Eliminated reports whether the level has been removed entirely.
func (t TopOfBook) Eliminated() bool { return t.Price == 0 && t.Qty == 0 }

// ParseError stands in for a payload that could not be decoded. It is
// a sibling event variant so consumers see exactly one value per
// received payload, complete or not.
type ParseError struct {
	Err error  // the codec error (*DecodeError)
	Raw []byte // the offending payload
}

func (Ack) Kind() Kind          { return KindAck }
func (CancelAck) Kind() Kind    { return KindCancelAck }
func (Reject) Kind() Kind       { return KindReject }
func (CancelReject) Kind() Kind { return KindCancelReject }
func (Trade) Kind() Kind        { return KindTrade }
func (TopOfBook) Kind() Kind    { return KindTopOfBook }
func (ParseError) Kind() Kind   { return KindParseError }
