// Package pdu implements the typed Modbus request/response Protocol Data
// Units: function codes, exception codes, the address-range and indexed-value
// types, and the serializers/parsers for every function family named in
// spec.md §4.3, including the device-identification and custom function-code
// extensions.
package pdu

import "go.uber.org/zap/zapcore"

// FunctionCode identifies the Modbus operation carried by a PDU.
type FunctionCode byte

const (
	ReadCoils              FunctionCode = 0x01
	ReadDiscreteInputs     FunctionCode = 0x02
	ReadHoldingRegisters   FunctionCode = 0x03
	ReadInputRegisters     FunctionCode = 0x04
	WriteSingleCoil        FunctionCode = 0x05
	WriteSingleRegister    FunctionCode = 0x06
	WriteMultipleCoils     FunctionCode = 0x0F
	WriteMultipleRegisters FunctionCode = 0x10
	ReadDeviceIdentification FunctionCode = 0x2B // FC 43, MEI type 14

	// exceptionBit is OR'd into the request function code to form an
	// exception response (spec.md §6).
	exceptionBit FunctionCode = 0x80
)

// MEIDeviceIdentification is the MEI (Modbus Encapsulated Interface)
// sub-function selecting "Read Device Identification" under FC 43.
const MEIDeviceIdentification byte = 0x0E

// IsCustomFunctionCode reports whether fc falls in one of the two
// user-defined ranges reserved by the Modbus spec (65-72, 100-110),
// per spec.md §4.3/§6.
func IsCustomFunctionCode(fc FunctionCode) bool {
	v := byte(fc)
	return (v >= 65 && v <= 72) || (v >= 100 && v <= 110)
}

// WithException sets the high bit, turning a request function code into the
// function code of its exception response.
func (f FunctionCode) WithException() FunctionCode { return f | exceptionBit }

// IsException reports whether the high bit is set, i.e. this function code
// was read from an exception response.
func (f FunctionCode) IsException() bool { return f&exceptionBit != 0 }

// WithoutException clears the high bit, recovering the original request
// function code from an exception response's function code.
func (f FunctionCode) WithoutException() FunctionCode { return f &^ exceptionBit }

func (f FunctionCode) String() string {
	switch f.WithoutException() {
	case ReadCoils:
		return "ReadCoils"
	case ReadDiscreteInputs:
		return "ReadDiscreteInputs"
	case ReadHoldingRegisters:
		return "ReadHoldingRegisters"
	case ReadInputRegisters:
		return "ReadInputRegisters"
	case WriteSingleCoil:
		return "WriteSingleCoil"
	case WriteSingleRegister:
		return "WriteSingleRegister"
	case WriteMultipleCoils:
		return "WriteMultipleCoils"
	case WriteMultipleRegisters:
		return "WriteMultipleRegisters"
	case ReadDeviceIdentification:
		return "ReadDeviceIdentification"
	default:
		if IsCustomFunctionCode(f.WithoutException()) {
			return "Custom"
		}
		return "Unknown"
	}
}

// ExceptionCode is the single byte carried by an exception response body.
type ExceptionCode byte

const (
	IllegalFunction                    ExceptionCode = 0x01
	IllegalDataAddress                 ExceptionCode = 0x02
	IllegalDataValue                   ExceptionCode = 0x03
	ServerDeviceFailure                ExceptionCode = 0x04
	Acknowledge                        ExceptionCode = 0x05
	ServerDeviceBusy                   ExceptionCode = 0x06
	MemoryParityError                  ExceptionCode = 0x08
	GatewayPathUnavailable             ExceptionCode = 0x0A
	GatewayTargetDeviceFailedToRespond ExceptionCode = 0x0B
)

func (e ExceptionCode) String() string {
	switch e {
	case IllegalFunction:
		return "IllegalFunction"
	case IllegalDataAddress:
		return "IllegalDataAddress"
	case IllegalDataValue:
		return "IllegalDataValue"
	case ServerDeviceFailure:
		return "ServerDeviceFailure"
	case Acknowledge:
		return "Acknowledge"
	case ServerDeviceBusy:
		return "ServerDeviceBusy"
	case MemoryParityError:
		return "MemoryParityError"
	case GatewayPathUnavailable:
		return "GatewayPathUnavailable"
	case GatewayTargetDeviceFailedToRespond:
		return "GatewayTargetDeviceFailedToRespond"
	default:
		return "Unknown"
	}
}

// ExceptionResponse is the body of an exception reply: function code with
// the high bit set, followed by a single exception-code byte.
type ExceptionResponse struct {
	Request FunctionCode
	Code    ExceptionCode
}

func (r *ExceptionResponse) FunctionCode() FunctionCode { return r.Request.WithException() }

func (r *ExceptionResponse) Bytes() []byte { return []byte{byte(r.Code)} }

func (r ExceptionResponse) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("ExceptionCode", r.Code.String())
	enc.AddString("Request", r.Request.String())
	return nil
}
