package wire

import (
	"fmt"
	"strconv"
	"strings"
)

// EncodeCSV encodes a request as one LF-terminated CSV record.
func EncodeCSV(req Request) []byte {
	switch r := req.(type) {
	case NewOrder:
		return []byte(fmt.Sprintf("N,%d,%s,%d,%d,%c,%d\n",
			r.User, r.Symbol, r.Price, r.Qty, r.Side.wireByte(), r.OrderID))
	case Cancel:
		return []byte(fmt.Sprintf("C,%d,%s,%d\n", r.User, r.Symbol, r.OrderID))
	case Flush:
		return []byte("F\n")
	}
	return nil
}

// EncodeCSVEvent encodes an engine-to-client message as one
// LF-terminated CSV record. An eliminated top-of-book is emitted in
// the 0,0 form. ParseError and CancelReject have no CSV representation.
func EncodeCSVEvent(ev Event) []byte {
	switch e := ev.(type) {
	case Ack:
		return []byte(fmt.Sprintf("A,%s,%d,%d\n", e.Symbol, e.User, e.OrderID))
	case CancelAck:
		return []byte(fmt.Sprintf("X,%s,%d,%d\n", e.Symbol, e.User, e.OrderID))
	case Trade:
		return []byte(fmt.Sprintf("T,%s,%d,%d,%d,%d,%d,%d\n",
			e.Symbol, e.BuyUser, e.BuyOrder, e.SellUser, e.SellOrder, e.Price, e.Qty))
	case TopOfBook:
		return []byte(fmt.Sprintf("B,%s,%c,%d,%d\n", e.Symbol, e.Side.wireByte(), e.Price, e.Qty))
	case Reject:
		return []byte(fmt.Sprintf("R,%s,%d,%d,%d\n", e.Symbol, e.User, e.OrderID, e.Reason))
	}
	return nil
}

// csvFields splits one record and trims whitespace around each field.
func csvFields(line string) []string {
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	fields := strings.Split(line, ",")
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}

func csvUint32(fields []string, i int) (uint32, error) {
	v, err := strconv.ParseUint(fields[i], 10, 32)
	if err != nil {
		return 0, decodeErr(ParseField, "field %d: %q", i, fields[i])
	}
	return uint32(v), nil
}

func csvUint8(fields []string, i int) (uint8, error) {
	v, err := strconv.ParseUint(fields[i], 10, 8)
	if err != nil {
		return 0, decodeErr(ParseField, "field %d: %q", i, fields[i])
	}
	return uint8(v), nil
}

// csvLevel parses a top-of-book price or qty field, where "-" denotes
// an eliminated level and reads as 0.
func csvLevel(fields []string, i int) (uint32, error) {
	if fields[i] == "-" {
		return 0, nil
	}
	return csvUint32(fields, i)
}

func csvSide(fields []string, i int) (Side, error) {
	f := fields[i]
	if len(f) == 1 {
		if s, ok := sideFromByte(f[0]); ok {
			return s, nil
		}
	}
	return 0, decodeErr(UnknownSide, "field %d: %q", i, f)
}

// DecodeCSVEvent decodes one engine-to-client CSV record.
func DecodeCSVEvent(b []byte) (Event, error) {
	fields := csvFields(string(b))
	if len(fields) == 0 || fields[0] == "" {
		return nil, decodeErr(Truncated, "empty record")
	}
	switch fields[0] {
	case "A", "X":
		if len(fields) < 4 {
			return nil, decodeErr(Truncated, "%s: %d fields", fields[0], len(fields))
		}
		user, err := csvUint32(fields, 2)
		if err != nil {
			return nil, err
		}
		order, err := csvUint32(fields, 3)
		if err != nil {
			return nil, err
		}
		if fields[0] == "X" {
			return CancelAck{Symbol: fields[1], User: user, OrderID: order}, nil
		}
		return Ack{Symbol: fields[1], User: user, OrderID: order}, nil
	case "T":
		if len(fields) < 8 {
			return nil, decodeErr(Truncated, "T: %d fields", len(fields))
		}
		var vals [6]uint32
		for i := range vals {
			v, err := csvUint32(fields, i+2)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		return Trade{
			Symbol:  fields[1],
			BuyUser: vals[0], BuyOrder: vals[1],
			SellUser: vals[2], SellOrder: vals[3],
			Price: vals[4], Qty: vals[5],
		}, nil
	case "B":
		if len(fields) < 5 {
			return nil, decodeErr(Truncated, "B: %d fields", len(fields))
		}
		side, err := csvSide(fields, 2)
		if err != nil {
			return nil, err
		}
		price, err := csvLevel(fields, 3)
		if err != nil {
			return nil, err
		}
		qty, err := csvLevel(fields, 4)
		if err != nil {
			return nil, err
		}
		return TopOfBook{Symbol: fields[1], Side: side, Price: price, Qty: qty}, nil
	case "R":
		if len(fields) < 5 {
			return nil, decodeErr(Truncated, "R: %d fields", len(fields))
		}
		user, err := csvUint32(fields, 2)
		if err != nil {
			return nil, err
		}
		order, err := csvUint32(fields, 3)
		if err != nil {
			return nil, err
		}
		reason, err := csvUint8(fields, 4)
		if err != nil {
			return nil, err
		}
		return Reject{Symbol: fields[1], User: user, OrderID: order, Reason: reason}, nil
	}
	return nil, decodeErr(UnknownType, "record type %q", fields[0])
}

// DecodeCSVRequest decodes one client-to-engine CSV record. The engine
// side of the protocol; here it serves test stubs and round-trips.
func DecodeCSVRequest(b []byte) (Request, error) {
	fields := csvFields(string(b))
	if len(fields) == 0 || fields[0] == "" {
		return nil, decodeErr(Truncated, "empty record")
	}
	switch fields[0] {
	case "N":
		if len(fields) < 7 {
			return nil, decodeErr(Truncated, "N: %d fields", len(fields))
		}
		user, err := csvUint32(fields, 1)
		if err != nil {
			return nil, err
		}
		price, err := csvUint32(fields, 3)
		if err != nil {
			return nil, err
		}
		qty, err := csvUint32(fields, 4)
		if err != nil {
			return nil, err
		}
		side, err := csvSide(fields, 5)
		if err != nil {
			return nil, err
		}
		order, err := csvUint32(fields, 6)
		if err != nil {
			return nil, err
		}
		return NewOrder{
			User: user, Symbol: fields[2],
			Price: price, Qty: qty, Side: side, OrderID: order,
		}, nil
	case "C":
		if len(fields) < 4 {
			return nil, decodeErr(Truncated, "C: %d fields", len(fields))
		}
		user, err := csvUint32(fields, 1)
		if err != nil {
			return nil, err
		}
		order, err := csvUint32(fields, 3)
		if err != nil {
			return nil, err
		}
		return Cancel{User: user, Symbol: fields[2], OrderID: order}, nil
	case "F":
		return Flush{}, nil
	}
	return nil, decodeErr(UnknownType, "record type %q", fields[0])
}
