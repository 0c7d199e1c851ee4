package wire

import "encoding/binary"

// Binary message type bytes, following the magic byte.
const (
	binNewOrder  byte = 'N'
	binCancel    byte = 'C'
	binFlush     byte = 'F'
	binAck       byte = 'A'
	binCancelAck byte = 'X'
	binTrade     byte = 'T'
	binTopOfBook byte = 'B'
	binReject    byte = 'R'
)

// Fixed binary message sizes, magic and type byte included.
const (
	binNewOrderLen  = 27
	binCancelLen    = 18
	binFlushLen     = 2
	binAckLen       = 18
	binTradeLen     = 34
	binTopOfBookLen = 20
	binRejectLen    = 19
)

// putSymbol writes sym into an 8-byte field, NUL-padded.
func putSymbol(dst []byte, sym string) {
	n := copy(dst[:MaxSymbolLen], sym)
	for i := n; i < MaxSymbolLen; i++ {
		dst[i] = 0x00
	}
}

// symbolField strips trailing NUL or space padding from an 8-byte field.
func symbolField(b []byte) string {
	end := len(b)
	for end > 0 && (b[end-1] == 0x00 || b[end-1] == 0x20) {
		end--
	}
	return string(b[:end])
}

// EncodeBinary encodes a request in the binary form. All multi-byte
// integers are big-endian; the symbol field is 8 bytes, NUL-padded.
func EncodeBinary(req Request) []byte {
	switch r := req.(type) {
	case NewOrder:
		b := make([]byte, binNewOrderLen)
		b[0], b[1] = Magic, binNewOrder
		binary.BigEndian.PutUint32(b[2:6], r.User)
		putSymbol(b[6:14], r.Symbol)
		binary.BigEndian.PutUint32(b[14:18], r.Price)
		binary.BigEndian.PutUint32(b[18:22], r.Qty)
		b[22] = r.Side.wireByte()
		binary.BigEndian.PutUint32(b[23:27], r.OrderID)
		return b
	case Cancel:
		b := make([]byte, binCancelLen)
		b[0], b[1] = Magic, binCancel
		binary.BigEndian.PutUint32(b[2:6], r.User)
		putSymbol(b[6:14], r.Symbol)
		binary.BigEndian.PutUint32(b[14:18], r.OrderID)
		return b
	case Flush:
		return []byte{Magic, binFlush}
	}
	return nil
}

// DecodeBinaryEvent decodes one engine-to-client binary message.
func DecodeBinaryEvent(b []byte) (Event, error) {
	if len(b) < 1 || b[0] != Magic {
		return nil, decodeErr(BadMagic, "leading byte %#x", leadByte(b))
	}
	if len(b) < 2 {
		return nil, decodeErr(Truncated, "no type byte")
	}
	typ, payload := b[1], b[2:]
	switch typ {
	case binAck, binCancelAck:
		if len(b) < binAckLen {
			return nil, decodeErr(Truncated, "%c: %d of %d bytes", typ, len(b), binAckLen)
		}
		sym := symbolField(payload[0:8])
		user := binary.BigEndian.Uint32(payload[8:12])
		order := binary.BigEndian.Uint32(payload[12:16])
		if typ == binCancelAck {
			return CancelAck{Symbol: sym, User: user, OrderID: order}, nil
		}
		return Ack{Symbol: sym, User: user, OrderID: order}, nil
	case binTrade:
		if len(b) < binTradeLen {
			return nil, decodeErr(Truncated, "T: %d of %d bytes", len(b), binTradeLen)
		}
		return Trade{
			Symbol:    symbolField(payload[0:8]),
			BuyUser:   binary.BigEndian.Uint32(payload[8:12]),
			BuyOrder:  binary.BigEndian.Uint32(payload[12:16]),
			SellUser:  binary.BigEndian.Uint32(payload[16:20]),
			SellOrder: binary.BigEndian.Uint32(payload[20:24]),
			Price:     binary.BigEndian.Uint32(payload[24:28]),
			Qty:       binary.BigEndian.Uint32(payload[28:32]),
		}, nil
	case binTopOfBook:
		if len(b) < binTopOfBookLen {
			return nil, decodeErr(Truncated, "B: %d of %d bytes", len(b), binTopOfBookLen)
		}
		side, ok := sideFromByte(payload[8])
		if !ok {
			return nil, decodeErr(UnknownSide, "side byte %#x", payload[8])
		}
		// payload[17] is a single pad byte, consumed but not validated.
		return TopOfBook{
			Symbol: symbolField(payload[0:8]),
			Side:   side,
			Price:  binary.BigEndian.Uint32(payload[9:13]),
			Qty:    binary.BigEndian.Uint32(payload[13:17]),
		}, nil
	case binReject:
		if len(b) < binRejectLen {
			return nil, decodeErr(Truncated, "R: %d of %d bytes", len(b), binRejectLen)
		}
		return Reject{
			Symbol:  symbolField(payload[0:8]),
			User:    binary.BigEndian.Uint32(payload[8:12]),
			OrderID: binary.BigEndian.Uint32(payload[12:16]),
			Reason:  payload[16],
		}, nil
	}
	return nil, decodeErr(UnknownType, "type byte %#x", typ)
}

// DecodeBinaryRequest decodes one client-to-engine binary message.
// The engine side of the protocol; here it serves test stubs and
// symmetric round-trip checks.
func DecodeBinaryRequest(b []byte) (Request, error) {
	if len(b) < 1 || b[0] != Magic {
		return nil, decodeErr(BadMagic, "leading byte %#x", leadByte(b))
	}
	if len(b) < 2 {
		return nil, decodeErr(Truncated, "no type byte")
	}
	typ, payload := b[1], b[2:]
	switch typ {
	case binNewOrder:
		if len(b) < binNewOrderLen {
			return nil, decodeErr(Truncated, "N: %d of %d bytes", len(b), binNewOrderLen)
		}
		side, ok := sideFromByte(payload[20])
		if !ok {
			return nil, decodeErr(UnknownSide, "side byte %#x", payload[20])
		}
		return NewOrder{
			User:    binary.BigEndian.Uint32(payload[0:4]),
			Symbol:  symbolField(payload[4:12]),
			Price:   binary.BigEndian.Uint32(payload[12:16]),
			Qty:     binary.BigEndian.Uint32(payload[16:20]),
			Side:    side,
			OrderID: binary.BigEndian.Uint32(payload[21:25]),
		}, nil
	case binCancel:
		if len(b) < binCancelLen {
			return nil, decodeErr(Truncated, "C: %d of %d bytes", len(b), binCancelLen)
		}
		return Cancel{
			User:    binary.BigEndian.Uint32(payload[0:4]),
			Symbol:  symbolField(payload[4:12]),
			OrderID: binary.BigEndian.Uint32(payload[12:16]),
		}, nil
	case binFlush:
		return Flush{}, nil
	}
	return nil, decodeErr(UnknownType, "type byte %#x", typ)
}

// EncodeBinaryEvent encodes an engine-to-client message. The engine
// side of the protocol; here it serves test stubs and round-trips.
// ParseError and CancelReject have no binary representation.
func EncodeBinaryEvent(ev Event) []byte {
	switch e := ev.(type) {
	case Ack:
		return encodeAck(binAck, e.Symbol, e.User, e.OrderID)
	case CancelAck:
		return encodeAck(binCancelAck, e.Symbol, e.User, e.OrderID)
	case Trade:
		b := make([]byte, binTradeLen)
		b[0], b[1] = Magic, binTrade
		putSymbol(b[2:10], e.Symbol)
		binary.BigEndian.PutUint32(b[10:14], e.BuyUser)
		binary.BigEndian.PutUint32(b[14:18], e.BuyOrder)
		binary.BigEndian.PutUint32(b[18:22], e.SellUser)
		binary.BigEndian.PutUint32(b[22:26], e.SellOrder)
		binary.BigEndian.PutUint32(b[26:30], e.Price)
		binary.BigEndian.PutUint32(b[30:34], e.Qty)
		return b
	case TopOfBook:
		b := make([]byte, binTopOfBookLen)
		b[0], b[1] = Magic, binTopOfBook
		putSymbol(b[2:10], e.Symbol)
		b[10] = e.Side.wireByte()
		binary.BigEndian.PutUint32(b[11:15], e.Price)
		binary.BigEndian.PutUint32(b[15:19], e.Qty)
		b[19] = 0x00
		return b
	case Reject:
		b := make([]byte, binRejectLen)
		b[0], b[1] = Magic, binReject
		putSymbol(b[2:10], e.Symbol)
		binary.BigEndian.PutUint32(b[10:14], e.User)
		binary.BigEndian.PutUint32(b[14:18], e.OrderID)
		b[18] = e.Reason
		return b
	}
	return nil
}

func encodeAck(typ byte, sym string, user, order uint32) []byte {
	b := make([]byte, binAckLen)
	b[0], b[1] = Magic, typ
	putSymbol(b[2:10], sym)
	binary.BigEndian.PutUint32(b[10:14], user)
	binary.BigEndian.PutUint32(b[14:18], order)
	return b
}

// IsBinary reports whether a payload classifies as binary under the
// auto-detect rule.
func IsBinary(b []byte) bool {
	return len(b) >= 1 && b[0] == Magic
}

func leadByte(b []byte) byte {
	if len(b) == 0 {
		return 0
	}
	return b[0]
}
