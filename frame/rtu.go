package frame

import (
	"fmt"

	"github.com/modbuscore/gomodbus/common"
	"github.com/modbuscore/gomodbus/pdu"
	"go.uber.org/zap/zapcore"
)

// Role distinguishes a request ADU from a response ADU; the Modbus function
// codes that carry a fixed body length differ between the two directions.
type Role int

const (
	RequestRole Role = iota
	ResponseRole
)

// RTUHeader carries the single unit-id byte that precedes every serial PDU.
type RTUHeader struct {
	UnitId_ pdu.UnitId
}

func (h RTUHeader) UnitId() pdu.UnitId { return h.UnitId_ }

func (h RTUHeader) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint8("UnitId", byte(h.UnitId_))
	return nil
}

// MaxRTUFrameSize bounds a single RTU frame (address + PDU + CRC).
const MaxRTUFrameSize = 256

// fixedRequestLength reports the request function codes whose total frame
// length (address + function code + body + CRC) is always 8 bytes.
func fixedRequestLength(fc pdu.FunctionCode) (int, bool) {
	switch fc {
	case pdu.ReadCoils, pdu.ReadDiscreteInputs, pdu.ReadHoldingRegisters, pdu.ReadInputRegisters,
		pdu.WriteSingleCoil, pdu.WriteSingleRegister:
		return 8, true
	default:
		return 0, false
	}
}

// NeededRequestLength implements the length-determination table a server's
// session task runs while assembling an inbound RTU request, mirroring the
// progressive-read pattern used throughout the teacher's RTU transport: it
// is called again as more bytes arrive until ok is true.
//
// header must contain at least the bytes already read, starting from byte 0
// (address). Returns the total frame length (including CRC) once
// determinable.
func NeededRequestLength(header []byte) (total int, ok bool, err error) {
	if len(header) < 2 {
		return 0, false, nil
	}
	fc := pdu.FunctionCode(header[1])
	if n, fixed := fixedRequestLength(fc); fixed {
		return n, true, nil
	}
	switch fc {
	case pdu.WriteMultipleCoils, pdu.WriteMultipleRegisters:
		if len(header) < 7 {
			return 0, false, nil
		}
		count := uint16(header[4])<<8 | uint16(header[5])
		byteCount := int(header[6])
		if fc == pdu.WriteMultipleRegisters {
			if byteCount%2 != 0 || byteCount != int(count)*2 {
				return 0, false, fmt.Errorf("%w: byte count %d inconsistent with register count %d", common.ErrInsufficientBytesForByteCount, byteCount, count)
			}
		} else {
			if byteCount != (int(count)+7)/8 {
				return 0, false, fmt.Errorf("%w: byte count %d inconsistent with coil count %d", common.ErrInsufficientBytesForByteCount, byteCount, count)
			}
		}
		// address + function + 4 header bytes + byte count byte + data + crc
		return 9 + byteCount, true, nil
	case pdu.ReadDeviceIdentification:
		// address + function + MEI type + read code + object id + crc
		return 7, true, nil
	default:
		if pdu.IsCustomFunctionCode(fc) {
			return 0, false, fmt.Errorf("%w: custom function codes are not self-delimiting over RTU", common.ErrUnsupportedOnWire)
		}
		return 0, false, fmt.Errorf("%w: 0x%02X", common.ErrUnknownFunctionCode, byte(fc))
	}
}

// NeededResponseLength is the response-direction counterpart of
// NeededRequestLength. requestCount is the value count the eliciting request
// asked for (0 if not applicable); the length is worked out from the
// response bytes alone and requestCount is not consulted.
func NeededResponseLength(header []byte, fc pdu.FunctionCode, requestCount uint16) (total int, ok bool, err error) {
	if len(header) < 2 {
		return 0, false, nil
	}
	if fc.IsException() {
		return 5, true, nil
	}
	switch fc {
	case pdu.ReadCoils, pdu.ReadDiscreteInputs, pdu.ReadHoldingRegisters, pdu.ReadInputRegisters:
		if len(header) < 3 {
			return 0, false, nil
		}
		byteCount := int(header[2])
		return 5 + byteCount, true, nil
	case pdu.WriteSingleCoil, pdu.WriteSingleRegister, pdu.WriteMultipleCoils, pdu.WriteMultipleRegisters:
		return 8, true, nil
	case pdu.ReadDeviceIdentification:
		return neededDeviceIdentificationResponseLength(header)
	default:
		if pdu.IsCustomFunctionCode(fc) {
			return 0, false, fmt.Errorf("%w: custom function codes are not self-delimiting over RTU", common.ErrUnsupportedOnWire)
		}
		return 0, false, fmt.Errorf("%w: 0x%02X", common.ErrUnknownFunctionCode, byte(fc))
	}
}

// neededDeviceIdentificationResponseLength scans the variable-length object
// list of a ReadDeviceIdentification response as bytes become available. The
// fixed preamble is address, function, MEI type, read code, conformity
// level, more-follows, next object id, object count: 8 bytes, followed by
// (id, length, value...) tuples and a trailing CRC.
func neededDeviceIdentificationResponseLength(header []byte) (int, bool, error) {
	const preamble = 8
	if len(header) < preamble {
		return 0, false, nil
	}
	objectCount := int(header[7])
	offset := preamble
	for i := 0; i < objectCount; i++ {
		if offset+2 > len(header) {
			return 0, false, nil
		}
		length := int(header[offset+1])
		offset += 2 + length
	}
	return offset + 2, true, nil
}

// DecodeRTU validates the CRC over a fully-read frame (address, PDU, CRC)
// and returns the decoded Frame.
func DecodeRTU(raw []byte) (*Frame, error) {
	if len(raw) < 4 {
		return nil, &common.BadFrameError{Reason: fmt.Errorf("%w: rtu frame too short", common.ErrInvalidPacket)}
	}
	body := raw[:len(raw)-2]
	received := uint16(raw[len(raw)-2]) | uint16(raw[len(raw)-1])<<8
	expected := CRC16(body)
	if received != expected {
		return nil, common.NewCrcError(received, expected)
	}
	return &Frame{
		Header:       RTUHeader{UnitId_: pdu.UnitId(raw[0])},
		FunctionCode: pdu.FunctionCode(raw[1]),
		PDU:          raw[1 : len(raw)-2],
	}, nil
}

// EncodeRTU serializes a unit id and PDU bytes (function code + body) into a
// wire-ready RTU frame, appending the CRC.
func EncodeRTU(unitId pdu.UnitId, pduBytes []byte) []byte {
	body := make([]byte, 1+len(pduBytes))
	body[0] = byte(unitId)
	copy(body[1:], pduBytes)
	crc := CRC16(body)
	return append(body, byte(crc), byte(crc>>8))
}
