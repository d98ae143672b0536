package pdu

import (
	"fmt"

	"github.com/modbuscore/gomodbus/common"
	"go.uber.org/zap/zapcore"
)

// Request is the sum type of every typed Modbus request PDU named in
// spec.md §3 (ReadCoils | ReadDiscreteInputs | ReadHoldingRegisters |
// ReadInputRegisters | WriteSingleCoil | WriteSingleRegister |
// WriteMultipleCoils | WriteMultipleRegisters | ReadDeviceIdentification |
// CustomFunctionCode). Implementations are realized as the concrete structs
// below rather than as a tagged enum; callers type-switch on the concrete
// type where needed (mirroring the teacher's data.ModbusOperation pattern).
type Request interface {
	zapcore.ObjectMarshaler
	FunctionCode() FunctionCode
	// Bytes returns the serialized request body, not including the function
	// code byte itself.
	Bytes() []byte
}

// Broadcastable reports whether fc may be sent to the RTU broadcast unit id.
// Reads and device identification must not be broadcast (spec.md §4.5).
func Broadcastable(fc FunctionCode) bool {
	switch fc {
	case ReadCoils, ReadDiscreteInputs, ReadHoldingRegisters, ReadInputRegisters, ReadDeviceIdentification:
		return false
	default:
		return true
	}
}

// ReadRequest is shared by the four read function codes; it carries an
// AddressRange with the function-specific count cap already enforced at
// construction time.
type ReadRequest struct {
	fc    FunctionCode
	Range AddressRange
}

func (r *ReadRequest) FunctionCode() FunctionCode { return r.fc }
func (r *ReadRequest) Offset() uint16             { return r.Range.Start }
func (r *ReadRequest) Count() uint16              { return r.Range.Count }

func (r *ReadRequest) Bytes() []byte {
	return []byte{
		byte(r.Range.Start >> 8), byte(r.Range.Start),
		byte(r.Range.Count >> 8), byte(r.Range.Count),
	}
}

func (r ReadRequest) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("Function", r.fc.String())
	return enc.AddObject("Range", r.Range)
}

func newBitReadRequest(fc FunctionCode, start, count uint16) (*ReadRequest, error) {
	r, err := NewBitReadRange(start, count)
	if err != nil {
		return nil, err
	}
	return &ReadRequest{fc: fc, Range: r}, nil
}

func newRegisterReadRequest(fc FunctionCode, start, count uint16) (*ReadRequest, error) {
	r, err := NewRegisterReadRange(start, count)
	if err != nil {
		return nil, err
	}
	return &ReadRequest{fc: fc, Range: r}, nil
}

// NewReadCoilsRequest validates and constructs a ReadCoils request (count <= 2000).
func NewReadCoilsRequest(start, count uint16) (*ReadRequest, error) {
	return newBitReadRequest(ReadCoils, start, count)
}

// NewReadDiscreteInputsRequest validates and constructs a ReadDiscreteInputs request.
func NewReadDiscreteInputsRequest(start, count uint16) (*ReadRequest, error) {
	return newBitReadRequest(ReadDiscreteInputs, start, count)
}

// NewReadHoldingRegistersRequest validates and constructs a ReadHoldingRegisters request (count <= 125).
func NewReadHoldingRegistersRequest(start, count uint16) (*ReadRequest, error) {
	return newRegisterReadRequest(ReadHoldingRegisters, start, count)
}

// NewReadInputRegistersRequest validates and constructs a ReadInputRegisters request.
func NewReadInputRegistersRequest(start, count uint16) (*ReadRequest, error) {
	return newRegisterReadRequest(ReadInputRegisters, start, count)
}

func parseReadRequest(fc FunctionCode, body []byte) (*ReadRequest, error) {
	if len(body) != 4 {
		return nil, fmt.Errorf("%w: read request body must be 4 bytes, got %d", common.ErrInvalidPacket, len(body))
	}
	start := uint16(body[0])<<8 | uint16(body[1])
	count := uint16(body[2])<<8 | uint16(body[3])
	switch fc {
	case ReadCoils, ReadDiscreteInputs:
		return newBitReadRequest(fc, start, count)
	default:
		return newRegisterReadRequest(fc, start, count)
	}
}

// WriteSingleCoilRequest writes a single coil.
type WriteSingleCoilRequest struct {
	Point Indexed[bool]
}

// NewWriteSingleCoilRequest constructs a WriteSingleCoil request.
func NewWriteSingleCoilRequest(index uint16, value bool) *WriteSingleCoilRequest {
	return &WriteSingleCoilRequest{Point: NewIndexed(index, value)}
}

func (r *WriteSingleCoilRequest) FunctionCode() FunctionCode { return WriteSingleCoil }
func (r *WriteSingleCoilRequest) Offset() uint16             { return r.Point.Index }
func (r *WriteSingleCoilRequest) Value() bool                { return r.Point.Value }

func (r *WriteSingleCoilRequest) Bytes() []byte {
	wire := EncodeCoilValue(r.Point.Value)
	return []byte{byte(r.Point.Index >> 8), byte(r.Point.Index), byte(wire >> 8), byte(wire)}
}

func (r WriteSingleCoilRequest) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint16("Offset", r.Point.Index)
	enc.AddBool("Value", r.Point.Value)
	return nil
}

func parseWriteSingleCoilRequest(body []byte) (*WriteSingleCoilRequest, error) {
	if len(body) != 4 {
		return nil, fmt.Errorf("%w: write single coil body must be 4 bytes", common.ErrInvalidPacket)
	}
	index := uint16(body[0])<<8 | uint16(body[1])
	wire := uint16(body[2])<<8 | uint16(body[3])
	v, err := DecodeCoilValue(wire)
	if err != nil {
		return nil, err
	}
	return NewWriteSingleCoilRequest(index, v), nil
}

// WriteSingleRegisterRequest writes a single holding register.
type WriteSingleRegisterRequest struct {
	Point Indexed[uint16]
}

// NewWriteSingleRegisterRequest constructs a WriteSingleRegister request.
func NewWriteSingleRegisterRequest(index, value uint16) *WriteSingleRegisterRequest {
	return &WriteSingleRegisterRequest{Point: NewIndexed(index, value)}
}

func (r *WriteSingleRegisterRequest) FunctionCode() FunctionCode { return WriteSingleRegister }
func (r *WriteSingleRegisterRequest) Offset() uint16             { return r.Point.Index }
func (r *WriteSingleRegisterRequest) Value() uint16              { return r.Point.Value }

func (r *WriteSingleRegisterRequest) Bytes() []byte {
	return []byte{byte(r.Point.Index >> 8), byte(r.Point.Index), byte(r.Point.Value >> 8), byte(r.Point.Value)}
}

func (r WriteSingleRegisterRequest) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint16("Offset", r.Point.Index)
	enc.AddUint16("Value", r.Point.Value)
	return nil
}

func parseWriteSingleRegisterRequest(body []byte) (*WriteSingleRegisterRequest, error) {
	if len(body) != 4 {
		return nil, fmt.Errorf("%w: write single register body must be 4 bytes", common.ErrInvalidPacket)
	}
	index := uint16(body[0])<<8 | uint16(body[1])
	value := uint16(body[2])<<8 | uint16(body[3])
	return NewWriteSingleRegisterRequest(index, value), nil
}

// WriteMultipleCoilsRequest writes a contiguous span of coils.
type WriteMultipleCoilsRequest struct {
	Write WriteMultiple[bool]
}

// NewWriteMultipleCoilsRequestPDU validates and constructs the request.
func NewWriteMultipleCoilsRequestPDU(start uint16, values []bool) (*WriteMultipleCoilsRequest, error) {
	w, err := NewWriteMultipleCoils(start, values)
	if err != nil {
		return nil, err
	}
	return &WriteMultipleCoilsRequest{Write: w}, nil
}

func (r *WriteMultipleCoilsRequest) FunctionCode() FunctionCode { return WriteMultipleCoils }
func (r *WriteMultipleCoilsRequest) Offset() uint16             { return r.Write.Start }
func (r *WriteMultipleCoilsRequest) Values() []bool             { return r.Write.Values }

func (r *WriteMultipleCoilsRequest) Bytes() []byte {
	count := len(r.Write.Values)
	byteCount := bitsToBytes(count)
	out := make([]byte, 5+byteCount)
	out[0] = byte(r.Write.Start >> 8)
	out[1] = byte(r.Write.Start)
	out[2] = byte(count >> 8)
	out[3] = byte(count)
	out[4] = byte(byteCount)
	for i, v := range r.Write.Values {
		if v {
			out[5+i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

func (r WriteMultipleCoilsRequest) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint16("Offset", r.Write.Start)
	enc.AddInt("Count", len(r.Write.Values))
	return nil
}

func bitsToBytes(count int) int {
	return (count + 7) / 8
}

func parseWriteMultipleCoilsRequest(body []byte) (*WriteMultipleCoilsRequest, error) {
	if len(body) < 5 {
		return nil, fmt.Errorf("%w: write multiple coils body too short", common.ErrInvalidPacket)
	}
	start := uint16(body[0])<<8 | uint16(body[1])
	count := uint16(body[2])<<8 | uint16(body[3])
	byteCount := int(body[4])
	if len(body) != 5+byteCount {
		return nil, fmt.Errorf("%w: byte count %d does not match body length %d", common.ErrInsufficientBytesForByteCount, byteCount, len(body)-5)
	}
	if bitsToBytes(int(count)) != byteCount {
		return nil, fmt.Errorf("%w: byte count %d inconsistent with coil count %d", common.ErrInsufficientBytesForByteCount, byteCount, count)
	}
	values := make([]bool, count)
	for i := range values {
		values[i] = body[5+i/8]&(1<<uint(i%8)) != 0
	}
	return NewWriteMultipleCoilsRequestPDU(start, values)
}

// WriteMultipleRegistersRequest writes a contiguous span of holding registers.
type WriteMultipleRegistersRequest struct {
	Write WriteMultiple[uint16]
}

// NewWriteMultipleRegistersRequestPDU validates and constructs the request.
func NewWriteMultipleRegistersRequestPDU(start uint16, values []uint16) (*WriteMultipleRegistersRequest, error) {
	w, err := NewWriteMultipleRegisters(start, values)
	if err != nil {
		return nil, err
	}
	return &WriteMultipleRegistersRequest{Write: w}, nil
}

func (r *WriteMultipleRegistersRequest) FunctionCode() FunctionCode { return WriteMultipleRegisters }
func (r *WriteMultipleRegistersRequest) Offset() uint16             { return r.Write.Start }
func (r *WriteMultipleRegistersRequest) Values() []uint16           { return r.Write.Values }

func (r *WriteMultipleRegistersRequest) Bytes() []byte {
	count := len(r.Write.Values)
	byteCount := 2 * count
	out := make([]byte, 5+byteCount)
	out[0] = byte(r.Write.Start >> 8)
	out[1] = byte(r.Write.Start)
	out[2] = byte(count >> 8)
	out[3] = byte(count)
	out[4] = byte(byteCount)
	for i, v := range r.Write.Values {
		out[5+2*i] = byte(v >> 8)
		out[6+2*i] = byte(v)
	}
	return out
}

func (r WriteMultipleRegistersRequest) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint16("Offset", r.Write.Start)
	enc.AddInt("Count", len(r.Write.Values))
	return nil
}

func parseWriteMultipleRegistersRequest(body []byte) (*WriteMultipleRegistersRequest, error) {
	if len(body) < 5 {
		return nil, fmt.Errorf("%w: write multiple registers body too short", common.ErrInvalidPacket)
	}
	start := uint16(body[0])<<8 | uint16(body[1])
	count := uint16(body[2])<<8 | uint16(body[3])
	byteCount := int(body[4])
	if len(body) != 5+byteCount {
		return nil, fmt.Errorf("%w: byte count %d does not match body length %d", common.ErrInsufficientBytesForByteCount, byteCount, len(body)-5)
	}
	if int(count)*2 != byteCount {
		return nil, fmt.Errorf("%w: byte count %d inconsistent with register count %d", common.ErrInsufficientBytesForByteCount, byteCount, count)
	}
	values := make([]uint16, count)
	for i := range values {
		values[i] = uint16(body[5+2*i])<<8 | uint16(body[6+2*i])
	}
	return NewWriteMultipleRegistersRequestPDU(start, values)
}

// ParseRequest parses a request PDU body for the given function code. It is
// consulted by the server session task (spec.md §4.5 step 3).
func ParseRequest(fc FunctionCode, body []byte) (Request, error) {
	switch fc {
	case ReadCoils, ReadDiscreteInputs, ReadHoldingRegisters, ReadInputRegisters:
		return parseReadRequest(fc, body)
	case WriteSingleCoil:
		return parseWriteSingleCoilRequest(body)
	case WriteSingleRegister:
		return parseWriteSingleRegisterRequest(body)
	case WriteMultipleCoils:
		return parseWriteMultipleCoilsRequest(body)
	case WriteMultipleRegisters:
		return parseWriteMultipleRegistersRequest(body)
	case ReadDeviceIdentification:
		return parseDeviceIdentificationRequest(body)
	default:
		if IsCustomFunctionCode(fc) {
			return parseCustomRequest(fc, body)
		}
		return nil, fmt.Errorf("%w: 0x%02X", common.ErrUnknownFunctionCode, byte(fc))
	}
}
