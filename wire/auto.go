package wire

// DecodeEvent decodes a received payload in whichever form it is in:
// a payload whose first byte is the magic byte is binary, anything
// else is CSV. No CSV event starts with 'M', so classification never
// misfires on a correctly framed input.
func DecodeEvent(b []byte) (Event, error) {
	if IsBinary(b) {
		return DecodeBinaryEvent(b)
	}
	return DecodeCSVEvent(b)
}

// DecodeRequest is the auto-detect entrypoint for the engine side.
func DecodeRequest(b []byte) (Request, error) {
	if IsBinary(b) {
		return DecodeBinaryRequest(b)
	}
	return DecodeCSVRequest(b)
}
