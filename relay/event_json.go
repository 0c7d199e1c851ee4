package relay

import (
	"encoding/json"
	"fmt"

	"github.com/mickamy/engine-tap/wire"
)

// The text-object form subscribers receive: kebab-case field names,
// numbers as numbers, side as "buy"/"sell", type as the kebab-case
// event name.

type ackJSON struct {
	Type    string `json:"type"`
	Symbol  string `json:"symbol"`
	User    uint32 `json:"user"`
	OrderID uint32 `json:"order-id"`
}

type rejectJSON struct {
	Type    string `json:"type"`
	Symbol  string `json:"symbol"`
	User    uint32 `json:"user"`
	OrderID uint32 `json:"order-id"`
	Reason  uint8  `json:"reason"`
}

type tradeJSON struct {
	Type      string `json:"type"`
	Symbol    string `json:"symbol"`
	BuyUser   uint32 `json:"buy-user"`
	BuyOrder  uint32 `json:"buy-order"`
	SellUser  uint32 `json:"sell-user"`
	SellOrder uint32 `json:"sell-order"`
	Price     uint32 `json:"price"`
	Qty       uint32 `json:"qty"`
}

type topOfBookJSON struct {
	Type       string `json:"type"`
	Symbol     string `json:"symbol"`
	Side       string `json:"side"`
	Price      uint32 `json:"price"`
	Qty        uint32 `json:"qty"`
	Eliminated bool   `json:"eliminated"`
}

// MarshalEvent serializes one event to the subscriber wire form. The
// broadcast step calls it once per event, not once per subscriber.
func MarshalEvent(ev wire.Event) ([]byte, error) {
	switch e := ev.(type) {
	case wire.Ack:
		return json.Marshal(ackJSON{Type: e.Kind().String(), Symbol: e.Symbol, User: e.User, OrderID: e.OrderID})
	case wire.CancelAck:
		return json.Marshal(ackJSON{Type: e.Kind().String(), Symbol: e.Symbol, User: e.User, OrderID: e.OrderID})
	case wire.Reject:
		return json.Marshal(rejectJSON{Type: e.Kind().String(), Symbol: e.Symbol, User: e.User, OrderID: e.OrderID, Reason: e.Reason})
	case wire.CancelReject:
		return json.Marshal(rejectJSON{Type: e.Kind().String(), Symbol: e.Symbol, User: e.User, OrderID: e.OrderID, Reason: e.Reason})
	case wire.Trade:
		return json.Marshal(tradeJSON{
			Type: e.Kind().String(), Symbol: e.Symbol,
			BuyUser: e.BuyUser, BuyOrder: e.BuyOrder,
			SellUser: e.SellUser, SellOrder: e.SellOrder,
			Price: e.Price, Qty: e.Qty,
		})
	case wire.TopOfBook:
		return json.Marshal(topOfBookJSON{
			Type: e.Kind().String(), Symbol: e.Symbol, Side: e.Side.String(),
			Price: e.Price, Qty: e.Qty, Eliminated: e.Eliminated(),
		})
	}
	return nil, fmt.Errorf("relay: no wire form for %T", ev)
}
