package pdu

import (
	"testing"

	"github.com/modbuscore/gomodbus/common"
	"github.com/stretchr/testify/assert"
)

func TestNewCustomRequestRejectsNonReservedFunctionCode(t *testing.T) {
	_, err := NewCustomRequest(ReadCoils, nil)
	assert.ErrorIs(t, err, common.ErrInvalidValue)
}

func TestCustomRequestSerializeParseRoundTrip(t *testing.T) {
	req, err := NewCustomRequest(FunctionCode(65), []uint16{0x0102, 0x0304})
	assert.NoError(t, err)

	parsed, err := ParseRequest(FunctionCode(65), req.Bytes())
	assert.NoError(t, err)
	cr := parsed.(*CustomRequest)
	assert.Equal(t, []uint16{0x0102, 0x0304}, cr.Values)
}

func TestCustomResponseRoundTrip(t *testing.T) {
	req, _ := NewCustomRequest(FunctionCode(100), []uint16{7})
	resp := NewCustomResponse(FunctionCode(100), []uint16{42, 43})
	parsed, err := ParseResponse(req, false, resp.Bytes())
	assert.NoError(t, err)
	cr := parsed.(*CustomResponse)
	assert.Equal(t, []uint16{42, 43}, cr.Values)
	assert.Equal(t, FunctionCode(100), cr.FunctionCode())
}

func TestParseCustomRequestRejectsOddBodyLength(t *testing.T) {
	_, err := ParseRequest(FunctionCode(65), []byte{0x01})
	assert.ErrorIs(t, err, common.ErrInvalidPacket)
}
