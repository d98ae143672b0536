package pdu

import (
	"fmt"

	"github.com/modbuscore/gomodbus/common"
	"go.uber.org/zap/zapcore"
)

// Response is the sum type of every typed Modbus response PDU. Like Request,
// it is implemented by concrete structs rather than a tagged enum.
type Response interface {
	zapcore.ObjectMarshaler
	FunctionCode() FunctionCode
	Bytes() []byte
}

// BitReadResponse carries the bit values returned by ReadCoils/ReadDiscreteInputs.
// Values is truncated to exactly the requested count, mirroring the teacher's
// byte-count-to-value-count truncation pattern: the wire carries a byte-aligned
// array, the last byte's unused high bits are padding and are discarded.
type BitReadResponse struct {
	fc     FunctionCode
	Values []bool
}

// NewBitReadResponse constructs a ReadCoils/ReadDiscreteInputs response from
// the handler's values. fc selects which of the two it serializes as.
func NewBitReadResponse(fc FunctionCode, values []bool) *BitReadResponse {
	return &BitReadResponse{fc: fc, Values: values}
}

func (r *BitReadResponse) FunctionCode() FunctionCode { return r.fc }

func (r *BitReadResponse) Bytes() []byte {
	byteCount := bitsToBytes(len(r.Values))
	out := make([]byte, 1+byteCount)
	out[0] = byte(byteCount)
	for i, v := range r.Values {
		if v {
			out[1+i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

func (r BitReadResponse) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("Function", r.fc.String())
	enc.AddInt("Count", len(r.Values))
	return nil
}

func parseBitReadResponse(fc FunctionCode, requestCount uint16, body []byte) (*BitReadResponse, error) {
	if len(body) < 1 {
		return nil, fmt.Errorf("%w: empty read response", common.ErrInvalidPacket)
	}
	byteCount := int(body[0])
	if len(body) != 1+byteCount {
		return nil, fmt.Errorf("%w: byte count %d does not match body length %d", common.ErrInsufficientBytesForByteCount, byteCount, len(body)-1)
	}
	if byteCount < bitsToBytes(int(requestCount)) {
		return nil, fmt.Errorf("%w: byte count %d too small for requested count %d", common.ErrInsufficientBytesForByteCount, byteCount, requestCount)
	}
	values := make([]bool, byteCount*8)
	for i := range values {
		values[i] = body[1+i/8]&(1<<uint(i%8)) != 0
	}
	// Truncate to exactly the requested count: trailing bits in the last
	// byte are padding, not data.
	values = values[:requestCount]
	return &BitReadResponse{fc: fc, Values: values}, nil
}

// RegisterReadResponse carries the register values returned by
// ReadHoldingRegisters/ReadInputRegisters, truncated to exactly the
// requested count.
type RegisterReadResponse struct {
	fc     FunctionCode
	Values []uint16
}

// NewRegisterReadResponse constructs a ReadHoldingRegisters/ReadInputRegisters
// response from the handler's values.
func NewRegisterReadResponse(fc FunctionCode, values []uint16) *RegisterReadResponse {
	return &RegisterReadResponse{fc: fc, Values: values}
}

func (r *RegisterReadResponse) FunctionCode() FunctionCode { return r.fc }

func (r *RegisterReadResponse) Bytes() []byte {
	byteCount := 2 * len(r.Values)
	out := make([]byte, 1+byteCount)
	out[0] = byte(byteCount)
	for i, v := range r.Values {
		out[1+2*i] = byte(v >> 8)
		out[2+2*i] = byte(v)
	}
	return out
}

func (r RegisterReadResponse) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("Function", r.fc.String())
	enc.AddInt("Count", len(r.Values))
	return nil
}

func parseRegisterReadResponse(fc FunctionCode, requestCount uint16, body []byte) (*RegisterReadResponse, error) {
	if len(body) < 1 {
		return nil, fmt.Errorf("%w: empty read response", common.ErrInvalidPacket)
	}
	byteCount := int(body[0])
	if len(body) != 1+byteCount {
		return nil, fmt.Errorf("%w: byte count %d does not match body length %d", common.ErrInsufficientBytesForByteCount, byteCount, len(body)-1)
	}
	count := byteCount / 2
	if byteCount%2 != 0 || uint16(count) < requestCount {
		return nil, fmt.Errorf("%w: byte count %d inconsistent with requested count %d", common.ErrInsufficientBytesForByteCount, byteCount, requestCount)
	}
	values := make([]uint16, count)
	for i := range values {
		values[i] = uint16(body[1+2*i])<<8 | uint16(body[2+2*i])
	}
	return &RegisterReadResponse{fc: fc, Values: values[:requestCount]}, nil
}

// WriteSingleCoilResponse echoes the address and value written.
type WriteSingleCoilResponse struct {
	Point Indexed[bool]
}

// NewWriteSingleCoilResponse builds the server's echo reply to a
// WriteSingleCoil request.
func NewWriteSingleCoilResponse(index uint16, value bool) *WriteSingleCoilResponse {
	return &WriteSingleCoilResponse{Point: NewIndexed(index, value)}
}

func (r *WriteSingleCoilResponse) FunctionCode() FunctionCode { return WriteSingleCoil }

func (r *WriteSingleCoilResponse) Bytes() []byte {
	wire := EncodeCoilValue(r.Point.Value)
	return []byte{byte(r.Point.Index >> 8), byte(r.Point.Index), byte(wire >> 8), byte(wire)}
}

func (r WriteSingleCoilResponse) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint16("Offset", r.Point.Index)
	enc.AddBool("Value", r.Point.Value)
	return nil
}

func parseWriteSingleCoilResponse(req *WriteSingleCoilRequest, body []byte) (*WriteSingleCoilResponse, error) {
	if len(body) != 4 {
		return nil, fmt.Errorf("%w: write single coil response body must be 4 bytes", common.ErrInvalidPacket)
	}
	index := uint16(body[0])<<8 | uint16(body[1])
	wire := uint16(body[2])<<8 | uint16(body[3])
	v, err := DecodeCoilValue(wire)
	if err != nil {
		return nil, err
	}
	if req != nil && (index != req.Point.Index || v != req.Point.Value) {
		return nil, fmt.Errorf("%w: write single coil", common.ErrReplyEchoMismatch)
	}
	return &WriteSingleCoilResponse{Point: NewIndexed(index, v)}, nil
}

// WriteSingleRegisterResponse echoes the address and value written.
type WriteSingleRegisterResponse struct {
	Point Indexed[uint16]
}

// NewWriteSingleRegisterResponse builds the server's echo reply to a
// WriteSingleRegister request.
func NewWriteSingleRegisterResponse(index, value uint16) *WriteSingleRegisterResponse {
	return &WriteSingleRegisterResponse{Point: NewIndexed(index, value)}
}

func (r *WriteSingleRegisterResponse) FunctionCode() FunctionCode { return WriteSingleRegister }

func (r *WriteSingleRegisterResponse) Bytes() []byte {
	return []byte{byte(r.Point.Index >> 8), byte(r.Point.Index), byte(r.Point.Value >> 8), byte(r.Point.Value)}
}

func (r WriteSingleRegisterResponse) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint16("Offset", r.Point.Index)
	enc.AddUint16("Value", r.Point.Value)
	return nil
}

func parseWriteSingleRegisterResponse(req *WriteSingleRegisterRequest, body []byte) (*WriteSingleRegisterResponse, error) {
	if len(body) != 4 {
		return nil, fmt.Errorf("%w: write single register response body must be 4 bytes", common.ErrInvalidPacket)
	}
	index := uint16(body[0])<<8 | uint16(body[1])
	value := uint16(body[2])<<8 | uint16(body[3])
	if req != nil && (index != req.Point.Index || value != req.Point.Value) {
		return nil, fmt.Errorf("%w: write single register", common.ErrReplyEchoMismatch)
	}
	return &WriteSingleRegisterResponse{Point: NewIndexed(index, value)}, nil
}

// WriteMultipleResponse echoes the starting address and count written by a
// WriteMultipleCoils or WriteMultipleRegisters request.
type WriteMultipleResponse struct {
	fc    FunctionCode
	Range AddressRange
}

// NewWriteMultipleCoilsResponse builds the server's echo reply to a
// WriteMultipleCoils request.
func NewWriteMultipleCoilsResponse(start, count uint16) *WriteMultipleResponse {
	return &WriteMultipleResponse{fc: WriteMultipleCoils, Range: AddressRange{Start: start, Count: count}}
}

// NewWriteMultipleRegistersResponse builds the server's echo reply to a
// WriteMultipleRegisters request.
func NewWriteMultipleRegistersResponse(start, count uint16) *WriteMultipleResponse {
	return &WriteMultipleResponse{fc: WriteMultipleRegisters, Range: AddressRange{Start: start, Count: count}}
}

func (r *WriteMultipleResponse) FunctionCode() FunctionCode { return r.fc }

func (r *WriteMultipleResponse) Bytes() []byte {
	return []byte{
		byte(r.Range.Start >> 8), byte(r.Range.Start),
		byte(r.Range.Count >> 8), byte(r.Range.Count),
	}
}

func (r WriteMultipleResponse) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("Function", r.fc.String())
	return enc.AddObject("Range", r.Range)
}

func parseWriteMultipleResponse(fc FunctionCode, expect AddressRange, body []byte) (*WriteMultipleResponse, error) {
	if len(body) != 4 {
		return nil, fmt.Errorf("%w: write multiple response body must be 4 bytes", common.ErrInvalidPacket)
	}
	start := uint16(body[0])<<8 | uint16(body[1])
	count := uint16(body[2])<<8 | uint16(body[3])
	if start != expect.Start || count != expect.Count {
		return nil, fmt.Errorf("%w: write multiple", common.ErrReplyEchoMismatch)
	}
	return &WriteMultipleResponse{fc: fc, Range: AddressRange{Start: start, Count: count}}, nil
}

// ParseResponse parses a response PDU body given the request that elicited
// it. isException reports whether the caller saw the exception bit set on
// the function code byte read off the wire: when it is true, body is the
// single-byte exception code and req is still needed to report which
// function failed.
func ParseResponse(req Request, isException bool, body []byte) (Response, error) {
	if isException {
		if len(body) != 1 {
			return nil, fmt.Errorf("%w: exception response body must be 1 byte", common.ErrInvalidPacket)
		}
		return nil, &common.ExceptionError{
			FunctionCode: byte(req.FunctionCode()),
			Code:         body[0],
			Name:         ExceptionCode(body[0]).String(),
		}
	}
	switch r := req.(type) {
	case *ReadRequest:
		switch r.fc {
		case ReadCoils, ReadDiscreteInputs:
			return parseBitReadResponse(r.fc, r.Range.Count, body)
		default:
			return parseRegisterReadResponse(r.fc, r.Range.Count, body)
		}
	case *WriteSingleCoilRequest:
		return parseWriteSingleCoilResponse(r, body)
	case *WriteSingleRegisterRequest:
		return parseWriteSingleRegisterResponse(r, body)
	case *WriteMultipleCoilsRequest:
		return parseWriteMultipleResponse(WriteMultipleCoils, r.Write.Range(), body)
	case *WriteMultipleRegistersRequest:
		return parseWriteMultipleResponse(WriteMultipleRegisters, r.Write.Range(), body)
	case *DeviceIdentificationRequest:
		return parseDeviceIdentificationResponse(body)
	case *CustomRequest:
		return parseCustomResponse(r, body)
	default:
		return nil, fmt.Errorf("%w: unrecognized request type", common.ErrInternal)
	}
}
