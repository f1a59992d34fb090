package pdu

// BuildPDU builds the function-code-plus-payload portion of a frame for
// req, with no transport wrapper.
func BuildPDU(req Request) []byte {
	out := make([]byte, 0, 8+len(req.Values)*2)
	out = append(out, req.SlaveID, byte(req.Function))
	out = append(out, byte(req.StartAddress>>8), byte(req.StartAddress))

	switch req.Function {
	case WriteSingle:
		var v uint16
		if len(req.Values) > 0 {
			v = req.Values[0]
		}
		return append(out, byte(v>>8), byte(v))

	case WriteMultiple:
		count := uint16(len(req.Values))
		out = append(out, byte(count>>8), byte(count))
		out = append(out, byte(count*2))
		for _, v := range req.Values {
			out = append(out, byte(v>>8), byte(v))
		}
		return out

	default: // ReadHolding, ReadInput
		return append(out, byte(req.Count>>8), byte(req.Count))
	}
}

// EncodeTCP wraps a request's PDU with a 6-byte MBAP header. transactionID
// may be held constant at 1 since the host never has more than one
// outstanding request per session.
func EncodeTCP(req Request, transactionID uint16) []byte {
	body := BuildPDU(req)
	length := uint16(len(body))

	frame := make([]byte, 0, 6+len(body))
	frame = append(frame,
		byte(transactionID>>8), byte(transactionID),
		0x00, 0x00, // protocol id
		byte(length>>8), byte(length),
	)
	return append(frame, body...)
}

// EncodeRTU appends a CRC-16/Modbus trailer, low byte first, to a
// request's PDU.
func EncodeRTU(req Request) []byte {
	return AppendCRC(BuildPDU(req))
}

// Decode parses a bare PDU (no transport wrapper) into a Response.
// Malformed byte counts never produce an error; they yield a response with
// as many values as could be read, so the caller's correlation can still
// proceed.
func Decode(body []byte) (Response, error) {
	if len(body) < 2 {
		return Response{}, ErrPduTooShort
	}

	resp := Response{
		SlaveID:  body[0],
		Function: FunctionCode(body[1]),
	}

	if body[1]&0x80 != 0 {
		resp.IsException = true
		if len(body) > 2 {
			resp.ExceptionCode = body[2]
		}
		return resp, nil
	}

	switch resp.Function {
	case ReadHolding, ReadInput:
		if len(body) < 3 {
			return resp, nil
		}
		byteCount := int(body[2])
		for i := 0; i+1 < byteCount && 3+i+1 < len(body); i += 2 {
			resp.Values = append(resp.Values, uint16(body[3+i])<<8|uint16(body[3+i+1]))
		}
	default:
		// WriteSingle/WriteMultiple confirmations carry echoed fields the
		// core has no need to extract into Values.
	}

	return resp, nil
}
