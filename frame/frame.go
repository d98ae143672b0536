// Package frame implements the two Application Data Unit encodings named in
// spec.md §4: the MBAP header used over TCP/TLS and the RTU header/CRC used
// over serial lines. It owns framing and checksums only; PDU bytes are
// opaque here and decoded by the pdu package one layer up.
package frame

import (
	"github.com/modbuscore/gomodbus/pdu"
	"go.uber.org/zap/zapcore"
)

// Header identifies the addressing information carried by a frame: the
// transaction id and unit id for MBAP, or the unit id alone for RTU.
type Header interface {
	zapcore.ObjectMarshaler
	UnitId() pdu.UnitId
}

// Frame is a decoded Application Data Unit: a Header plus the raw PDU bytes
// (function code byte followed by body), with framing/checksum already
// validated.
type Frame struct {
	Header Header
	// FunctionCode is the first byte of PDU, duplicated here for convenient
	// dispatch without re-parsing.
	FunctionCode pdu.FunctionCode
	// PDU is the full protocol data unit: function code byte followed by body.
	PDU []byte
}

func (f Frame) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddObject("Header", f.Header)
	enc.AddString("Function", f.FunctionCode.String())
	return nil
}
