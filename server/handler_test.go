package server

import (
	"testing"

	"github.com/modbuscore/gomodbus/pdu"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestDefaultHandlerReadWriteRoundTrip(t *testing.T) {
	logger := zaptest.NewLogger(t)
	h := NewDefaultHandler(logger, 10, 10, 10, 10)

	exc := h.WriteSingleCoil(3, true)
	assert.Equal(t, pdu.ExceptionCode(0), exc)
	values, exc := h.ReadCoils(0, 10)
	assert.Equal(t, pdu.ExceptionCode(0), exc)
	assert.True(t, values[3])

	exc = h.WriteSingleRegister(5, 0xBEEF)
	assert.Equal(t, pdu.ExceptionCode(0), exc)
	regs, exc := h.ReadHoldingRegisters(0, 10)
	assert.Equal(t, pdu.ExceptionCode(0), exc)
	assert.Equal(t, uint16(0xBEEF), regs[5])

	exc = h.WriteMultipleCoils(0, []bool{true, false, true})
	assert.Equal(t, pdu.ExceptionCode(0), exc)
	values, _ = h.ReadCoils(0, 3)
	assert.Equal(t, []bool{true, false, true}, values)

	exc = h.WriteMultipleRegisters(0, []uint16{1, 2, 3})
	assert.Equal(t, pdu.ExceptionCode(0), exc)
	regs, _ = h.ReadHoldingRegisters(0, 3)
	assert.Equal(t, []uint16{1, 2, 3}, regs)
}

func TestDefaultHandlerOutOfRangeIsIllegalDataAddress(t *testing.T) {
	logger := zaptest.NewLogger(t)
	h := NewDefaultHandler(logger, 10, 10, 10, 10)

	_, exc := h.ReadCoils(5, 10)
	assert.Equal(t, pdu.IllegalDataAddress, exc)

	_, exc = h.ReadDiscreteInputs(0, 11)
	assert.Equal(t, pdu.IllegalDataAddress, exc)

	_, exc = h.ReadHoldingRegisters(9, 5)
	assert.Equal(t, pdu.IllegalDataAddress, exc)

	_, exc = h.ReadInputRegisters(20, 1)
	assert.Equal(t, pdu.IllegalDataAddress, exc)

	exc = h.WriteSingleCoil(10, true)
	assert.Equal(t, pdu.IllegalDataAddress, exc)

	exc = h.WriteSingleRegister(10, 1)
	assert.Equal(t, pdu.IllegalDataAddress, exc)

	exc = h.WriteMultipleCoils(8, []bool{true, true, true})
	assert.Equal(t, pdu.IllegalDataAddress, exc)

	exc = h.WriteMultipleRegisters(8, []uint16{1, 2, 3})
	assert.Equal(t, pdu.IllegalDataAddress, exc)
}

func TestDefaultHandlerDoesNotSupportDeviceIdOrCustomCodes(t *testing.T) {
	logger := zaptest.NewLogger(t)
	h := NewDefaultHandler(logger, 10, 10, 10, 10)

	_, _, _, _, exc := h.ReadDeviceIdentification(pdu.BasicDeviceId, 0)
	assert.Equal(t, pdu.IllegalFunction, exc)

	_, exc = h.HandleCustomFunctionCode(pdu.FunctionCode(65), []uint16{1})
	assert.Equal(t, pdu.IllegalFunction, exc)
}

func TestDefaultHandlerReadsReturnCopies(t *testing.T) {
	logger := zaptest.NewLogger(t)
	h := NewDefaultHandler(logger, 4, 0, 0, 0)
	exc := h.WriteSingleCoil(0, true)
	assert.Equal(t, pdu.ExceptionCode(0), exc)

	values, _ := h.ReadCoils(0, 4)
	values[0] = false

	again, _ := h.ReadCoils(0, 4)
	assert.True(t, again[0], "mutating a returned slice must not corrupt handler state")
}
