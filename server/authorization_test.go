package server

import (
	"testing"

	"github.com/modbuscore/gomodbus/pdu"
	"github.com/stretchr/testify/assert"
)

func TestAllowAllHandlerAllowsEverything(t *testing.T) {
	auth := AllowAllHandler{}
	readReq, _ := pdu.NewReadHoldingRegistersRequest(0, 1)
	writeReq := pdu.NewWriteSingleCoilRequest(0, true)
	assert.Equal(t, Allow, authorize(auth, 1, readReq, "any"))
	assert.Equal(t, Allow, authorize(auth, 1, writeReq, "any"))
}

func TestDenyAllHandlerDeniesEverything(t *testing.T) {
	auth := DenyAllHandler{}
	readReq, _ := pdu.NewReadHoldingRegistersRequest(0, 1)
	writeReq := pdu.NewWriteSingleCoilRequest(0, true)
	assert.Equal(t, Deny, authorize(auth, 1, readReq, "any"))
	assert.Equal(t, Deny, authorize(auth, 1, writeReq, "any"))
}

func TestReadOnlyHandlerAllowsReadsDeniesWrites(t *testing.T) {
	auth := ReadOnlyHandler{}

	readCoils, _ := pdu.NewReadCoilsRequest(0, 1)
	assert.Equal(t, Allow, authorize(auth, 1, readCoils, "any"))

	readHolding, _ := pdu.NewReadHoldingRegistersRequest(0, 1)
	assert.Equal(t, Allow, authorize(auth, 1, readHolding, "any"))

	writeSingleCoil := pdu.NewWriteSingleCoilRequest(0, true)
	assert.Equal(t, Deny, authorize(auth, 1, writeSingleCoil, "any"))

	writeSingleReg := pdu.NewWriteSingleRegisterRequest(0, 1)
	assert.Equal(t, Deny, authorize(auth, 1, writeSingleReg, "any"))

	writeMultiCoils, _ := pdu.NewWriteMultipleCoilsRequestPDU(0, []bool{true})
	assert.Equal(t, Deny, authorize(auth, 1, writeMultiCoils, "any"))

	writeMultiRegs, _ := pdu.NewWriteMultipleRegistersRequestPDU(0, []uint16{1})
	assert.Equal(t, Deny, authorize(auth, 1, writeMultiRegs, "any"))
}

func TestReadOnlyHandlerAllowsDeviceIdentification(t *testing.T) {
	auth := ReadOnlyHandler{}
	req := pdu.NewDeviceIdentificationRequest(pdu.BasicDeviceId, 0)
	assert.Equal(t, Allow, authorize(auth, 1, req, "any"))
}

func TestAuthorizeAllowsCustomFunctionCodesByDefault(t *testing.T) {
	auth := DenyAllHandler{}
	req, err := pdu.NewCustomRequest(pdu.FunctionCode(65), []uint16{1, 2})
	assert.NoError(t, err)
	// Authorization has no per-custom-function hook in any of the three
	// bundled implementations; authorize falls through to Allow for them
	// regardless of which handler is active (spec.md §4.6 names only the
	// ten standard function families).
	assert.Equal(t, Allow, authorize(auth, 1, req, "any"))
}
