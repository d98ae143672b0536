package frame

import (
	"fmt"
	"io"

	"github.com/modbuscore/gomodbus/common"
	"github.com/modbuscore/gomodbus/pdu"
	"go.uber.org/zap/zapcore"
)

// MBAPHeaderSize is the fixed length of the MBAP header: transaction id (2),
// protocol id (2), length (2), unit id (1).
const MBAPHeaderSize = 7

// MaxADUSize is the largest Application Data Unit a conforming device may
// send, per the Modbus TCP specification (spec.md §4.1).
const MaxADUSize = 260

// MaxMBAPPDUSize is the largest PDU MBAPHeader.Length may declare: MaxADUSize
// minus the 6 header bytes that precede the unit id (which Length includes).
const MaxMBAPPDUSize = MaxADUSize - 6

// MBAPHeader is the 7-byte header that precedes every TCP/TLS PDU.
type MBAPHeader struct {
	TransactionId uint16
	ProtocolId    uint16
	UnitId_       pdu.UnitId
}

func (h MBAPHeader) UnitId() pdu.UnitId { return h.UnitId_ }

func (h MBAPHeader) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint16("TransactionId", h.TransactionId)
	enc.AddUint16("ProtocolId", h.ProtocolId)
	enc.AddUint8("UnitId", byte(h.UnitId_))
	return nil
}

// DecodeMBAP reads one complete MBAP frame from r: the 7-byte header,
// validates it, then reads the PDU bytes the length field declares.
//
// The parser is logically the two-state machine of spec.md §4.1
// (AwaitHeader, AwaitBody); because the header is fixed-size, both states
// collapse to two sequential io.ReadFull calls.
func DecodeMBAP(r io.Reader) (*Frame, error) {
	header := make([]byte, MBAPHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, common.WrapIo(err)
	}
	txId := uint16(header[0])<<8 | uint16(header[1])
	protoId := uint16(header[2])<<8 | uint16(header[3])
	length := uint16(header[4])<<8 | uint16(header[5])
	unitId := pdu.UnitId(header[6])

	if protoId != 0 {
		return nil, &common.BadFrameError{Reason: fmt.Errorf("%w: 0x%04X", common.ErrUnknownProtocolId, protoId)}
	}
	if length == 0 {
		return nil, &common.BadFrameError{Reason: common.ErrMbapLengthZero}
	}
	if length > MaxMBAPPDUSize {
		return nil, &common.BadFrameError{Reason: fmt.Errorf("%w: length=%d", common.ErrFrameLengthTooBig, length)}
	}

	// length counts the unit id byte plus the PDU; we already consumed the
	// unit id as part of the fixed header.
	pduLen := int(length) - 1
	body := make([]byte, pduLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, common.WrapIo(err)
	}
	if pduLen == 0 {
		return nil, &common.BadFrameError{Reason: common.ErrEmptyPayload}
	}

	return &Frame{
		Header:       MBAPHeader{TransactionId: txId, ProtocolId: protoId, UnitId_: unitId},
		FunctionCode: pdu.FunctionCode(body[0]),
		PDU:          body,
	}, nil
}

// EncodeMBAP serializes header and pduBytes (function code byte + body) into
// a wire-ready MBAP frame, computing the length field.
func EncodeMBAP(header MBAPHeader, pduBytes []byte) []byte {
	length := uint16(len(pduBytes) + 1)
	out := make([]byte, MBAPHeaderSize+len(pduBytes))
	out[0] = byte(header.TransactionId >> 8)
	out[1] = byte(header.TransactionId)
	out[2] = byte(header.ProtocolId >> 8)
	out[3] = byte(header.ProtocolId)
	out[4] = byte(length >> 8)
	out[5] = byte(length)
	out[6] = byte(header.UnitId_)
	copy(out[MBAPHeaderSize:], pduBytes)
	return out
}
