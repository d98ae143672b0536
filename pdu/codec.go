package pdu

// SerializeRequest encodes a request PDU as it goes on the wire: function
// code byte followed by the body bytes.
func SerializeRequest(req Request) []byte {
	return append([]byte{byte(req.FunctionCode())}, req.Bytes()...)
}

// SerializeResponse encodes a response PDU as it goes on the wire.
func SerializeResponse(resp Response) []byte {
	return append([]byte{byte(resp.FunctionCode())}, resp.Bytes()...)
}

// SerializeException encodes an exception response PDU.
func SerializeException(resp *ExceptionResponse) []byte {
	return append([]byte{byte(resp.FunctionCode())}, resp.Bytes()...)
}
