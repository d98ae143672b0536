// Package server implements the server-side session dispatch named in
// spec.md §4.5/§4.6: a RequestHandler per unit id, looked up through a
// ServerHandlerMap, consulted through an AuthorizationHandler, and driven by
// a per-connection/port session task.
package server

import (
	"sync"

	"github.com/modbuscore/gomodbus/pdu"
	"go.uber.org/zap"
)

const (
	// DefaultCoilCount is the default number of coils a DefaultHandler holds.
	DefaultCoilCount = 65535
	// DefaultDiscreteInputCount is the default number of discrete inputs.
	DefaultDiscreteInputCount = 65535
	// DefaultHoldingRegisterCount is the default number of holding registers.
	DefaultHoldingRegisterCount = 65535
	// DefaultInputRegisterCount is the default number of input registers.
	DefaultInputRegisterCount = 65535
)

// RequestHandler implements the data-model side of a Modbus server: one
// method per function-code family. A handler returns an ExceptionCode, not a
// Go error, for protocol-level failures (address out of range, bad value);
// no method returns a Go error, so an internal fault is also reported as an
// ExceptionCode (for example ServerDeviceFailure).
type RequestHandler interface {
	ReadCoils(start, count uint16) ([]bool, pdu.ExceptionCode)
	ReadDiscreteInputs(start, count uint16) ([]bool, pdu.ExceptionCode)
	ReadHoldingRegisters(start, count uint16) ([]uint16, pdu.ExceptionCode)
	ReadInputRegisters(start, count uint16) ([]uint16, pdu.ExceptionCode)
	WriteSingleCoil(index uint16, value bool) pdu.ExceptionCode
	WriteSingleRegister(index, value uint16) pdu.ExceptionCode
	WriteMultipleCoils(start uint16, values []bool) pdu.ExceptionCode
	WriteMultipleRegisters(start uint16, values []uint16) pdu.ExceptionCode
	// ReadDeviceIdentification returns one page of objects for readCode
	// starting at objectId, plus whether more pages follow and, if so, the
	// next object id to request (spec.md §7 paging protocol).
	ReadDeviceIdentification(readCode pdu.ReadDeviceIdCode, objectId byte) (objects []pdu.DeviceIdentificationObject, conformity pdu.ConformityLevel, more bool, nextObjectId byte, exc pdu.ExceptionCode)
	// HandleCustomFunctionCode answers a user-defined function code request.
	// The default handler always returns IllegalFunction.
	HandleCustomFunctionCode(fc pdu.FunctionCode, values []uint16) ([]uint16, pdu.ExceptionCode)
}

// DefaultHandler is the default RequestHandler: four flat register/coil
// arrays guarded by a RWMutex, with no device-identification objects and no
// custom function codes (both return IllegalFunction).
type DefaultHandler struct {
	logger *zap.Logger
	mu     sync.RWMutex

	Coils            []bool
	DiscreteInputs   []bool
	HoldingRegisters []uint16
	InputRegisters   []uint16
}

// NewDefaultHandler creates a DefaultHandler with the given register counts.
// A zero count is replaced with the corresponding Default*Count.
func NewDefaultHandler(logger *zap.Logger, coilCount, discreteInputCount, holdingRegisterCount, inputRegisterCount uint16) *DefaultHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if coilCount == 0 {
		coilCount = DefaultCoilCount
	}
	if discreteInputCount == 0 {
		discreteInputCount = DefaultDiscreteInputCount
	}
	if holdingRegisterCount == 0 {
		holdingRegisterCount = DefaultHoldingRegisterCount
	}
	if inputRegisterCount == 0 {
		inputRegisterCount = DefaultInputRegisterCount
	}
	return &DefaultHandler{
		logger:           logger,
		Coils:            make([]bool, coilCount),
		DiscreteInputs:   make([]bool, discreteInputCount),
		HoldingRegisters: make([]uint16, holdingRegisterCount),
		InputRegisters:   make([]uint16, inputRegisterCount),
	}
}

func addressRange(start uint16, count int) (int, int) {
	return int(start), int(start) + count
}

func (h *DefaultHandler) ReadCoils(start, count uint16) ([]bool, pdu.ExceptionCode) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, e := addressRange(start, int(count))
	if e > len(h.Coils) {
		return nil, pdu.IllegalDataAddress
	}
	out := make([]bool, count)
	copy(out, h.Coils[s:e])
	return out, 0
}

func (h *DefaultHandler) ReadDiscreteInputs(start, count uint16) ([]bool, pdu.ExceptionCode) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, e := addressRange(start, int(count))
	if e > len(h.DiscreteInputs) {
		return nil, pdu.IllegalDataAddress
	}
	out := make([]bool, count)
	copy(out, h.DiscreteInputs[s:e])
	return out, 0
}

func (h *DefaultHandler) ReadHoldingRegisters(start, count uint16) ([]uint16, pdu.ExceptionCode) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, e := addressRange(start, int(count))
	if e > len(h.HoldingRegisters) {
		return nil, pdu.IllegalDataAddress
	}
	out := make([]uint16, count)
	copy(out, h.HoldingRegisters[s:e])
	return out, 0
}

func (h *DefaultHandler) ReadInputRegisters(start, count uint16) ([]uint16, pdu.ExceptionCode) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, e := addressRange(start, int(count))
	if e > len(h.InputRegisters) {
		return nil, pdu.IllegalDataAddress
	}
	out := make([]uint16, count)
	copy(out, h.InputRegisters[s:e])
	return out, 0
}

func (h *DefaultHandler) WriteSingleCoil(index uint16, value bool) pdu.ExceptionCode {
	h.mu.Lock()
	defer h.mu.Unlock()
	if int(index) >= len(h.Coils) {
		return pdu.IllegalDataAddress
	}
	h.Coils[index] = value
	return 0
}

func (h *DefaultHandler) WriteSingleRegister(index, value uint16) pdu.ExceptionCode {
	h.mu.Lock()
	defer h.mu.Unlock()
	if int(index) >= len(h.HoldingRegisters) {
		return pdu.IllegalDataAddress
	}
	h.HoldingRegisters[index] = value
	return 0
}

func (h *DefaultHandler) WriteMultipleCoils(start uint16, values []bool) pdu.ExceptionCode {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, e := addressRange(start, len(values))
	if e > len(h.Coils) {
		return pdu.IllegalDataAddress
	}
	copy(h.Coils[s:e], values)
	return 0
}

func (h *DefaultHandler) WriteMultipleRegisters(start uint16, values []uint16) pdu.ExceptionCode {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, e := addressRange(start, len(values))
	if e > len(h.HoldingRegisters) {
		return pdu.IllegalDataAddress
	}
	copy(h.HoldingRegisters[s:e], values)
	return 0
}

func (h *DefaultHandler) ReadDeviceIdentification(readCode pdu.ReadDeviceIdCode, objectId byte) ([]pdu.DeviceIdentificationObject, pdu.ConformityLevel, bool, byte, pdu.ExceptionCode) {
	return nil, 0, false, 0, pdu.IllegalFunction
}

func (h *DefaultHandler) HandleCustomFunctionCode(fc pdu.FunctionCode, values []uint16) ([]uint16, pdu.ExceptionCode) {
	return nil, pdu.IllegalFunction
}
