package pdu

import (
	"fmt"

	"github.com/modbuscore/gomodbus/common"
	"go.uber.org/zap/zapcore"
)

// CustomRequest carries a user-defined function code in either of the two
// ranges the Modbus specification reserves for private use (65-72, 100-110).
// The body is an opaque sequence of big-endian 16-bit words; this library
// neither interprets nor validates their meaning (spec.md §4.3).
type CustomRequest struct {
	fc     FunctionCode
	Values []uint16
}

// NewCustomRequest constructs a request for a user-defined function code.
// It returns an error if fc is not in one of the two reserved ranges.
func NewCustomRequest(fc FunctionCode, values []uint16) (*CustomRequest, error) {
	if !IsCustomFunctionCode(fc) {
		return nil, fmt.Errorf("%w: 0x%02X is not a reserved custom function code", common.ErrInvalidValue, byte(fc))
	}
	return &CustomRequest{fc: fc, Values: values}, nil
}

func (r *CustomRequest) FunctionCode() FunctionCode { return r.fc }

func (r *CustomRequest) Bytes() []byte {
	out := make([]byte, 2*len(r.Values))
	for i, v := range r.Values {
		out[2*i] = byte(v >> 8)
		out[2*i+1] = byte(v)
	}
	return out
}

func (r CustomRequest) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint8("FunctionCode", byte(r.fc))
	enc.AddInt("WordCount", len(r.Values))
	return nil
}

func parseCustomRequest(fc FunctionCode, body []byte) (*CustomRequest, error) {
	values, err := decodeU16Words(body)
	if err != nil {
		return nil, err
	}
	return &CustomRequest{fc: fc, Values: values}, nil
}

// CustomResponse is the reply to a CustomRequest, carrying whatever
// big-endian 16-bit words the remote application chose to send back.
type CustomResponse struct {
	fc     FunctionCode
	Values []uint16
}

// NewCustomResponse builds a reply for a user-defined function code. fc must
// match the request's function code.
func NewCustomResponse(fc FunctionCode, values []uint16) *CustomResponse {
	return &CustomResponse{fc: fc, Values: values}
}

func (r *CustomResponse) FunctionCode() FunctionCode { return r.fc }

func (r *CustomResponse) Bytes() []byte {
	out := make([]byte, 2*len(r.Values))
	for i, v := range r.Values {
		out[2*i] = byte(v >> 8)
		out[2*i+1] = byte(v)
	}
	return out
}

func (r CustomResponse) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint8("FunctionCode", byte(r.fc))
	enc.AddInt("WordCount", len(r.Values))
	return nil
}

func parseCustomResponse(req *CustomRequest, body []byte) (*CustomResponse, error) {
	values, err := decodeU16Words(body)
	if err != nil {
		return nil, err
	}
	return &CustomResponse{fc: req.fc, Values: values}, nil
}

func decodeU16Words(body []byte) ([]uint16, error) {
	if len(body)%2 != 0 {
		return nil, fmt.Errorf("%w: custom function body length %d is not a multiple of 2", common.ErrInvalidPacket, len(body))
	}
	values := make([]uint16, len(body)/2)
	for i := range values {
		values[i] = uint16(body[2*i])<<8 | uint16(body[2*i+1])
	}
	return values, nil
}
