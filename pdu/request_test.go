package pdu

import (
	"testing"

	"github.com/modbuscore/gomodbus/common"
	"github.com/stretchr/testify/assert"
)

func TestBroadcastable(t *testing.T) {
	assert.False(t, Broadcastable(ReadCoils))
	assert.False(t, Broadcastable(ReadDiscreteInputs))
	assert.False(t, Broadcastable(ReadHoldingRegisters))
	assert.False(t, Broadcastable(ReadInputRegisters))
	assert.False(t, Broadcastable(ReadDeviceIdentification))
	assert.True(t, Broadcastable(WriteSingleCoil))
	assert.True(t, Broadcastable(WriteSingleRegister))
	assert.True(t, Broadcastable(WriteMultipleCoils))
	assert.True(t, Broadcastable(WriteMultipleRegisters))
}

func TestReadRequestSerializeParseRoundTrip(t *testing.T) {
	req, err := NewReadHoldingRegistersRequest(10, 4)
	assert.NoError(t, err)
	body := req.Bytes()
	assert.Len(t, body, 4)

	parsed, err := ParseRequest(ReadHoldingRegisters, body)
	assert.NoError(t, err)
	rr := parsed.(*ReadRequest)
	assert.Equal(t, uint16(10), rr.Offset())
	assert.Equal(t, uint16(4), rr.Count())
}

func TestParseReadRequestRejectsWrongBodyLength(t *testing.T) {
	_, err := ParseRequest(ReadCoils, []byte{0x00, 0x01})
	assert.ErrorIs(t, err, common.ErrInvalidPacket)
}

func TestWriteSingleCoilRequestSerializeParseRoundTrip(t *testing.T) {
	req := NewWriteSingleCoilRequest(7, true)
	parsed, err := ParseRequest(WriteSingleCoil, req.Bytes())
	assert.NoError(t, err)
	wr := parsed.(*WriteSingleCoilRequest)
	assert.Equal(t, uint16(7), wr.Offset())
	assert.True(t, wr.Value())
}

func TestParseWriteSingleCoilRequestRejectsInvalidCoilValue(t *testing.T) {
	// index=0, wire value 0x1234 is neither 0xFF00 nor 0x0000
	_, err := ParseRequest(WriteSingleCoil, []byte{0x00, 0x00, 0x12, 0x34})
	assert.ErrorIs(t, err, common.ErrInvalidValue)
}

func TestWriteSingleRegisterRequestSerializeParseRoundTrip(t *testing.T) {
	req := NewWriteSingleRegisterRequest(3, 0xCAFE)
	parsed, err := ParseRequest(WriteSingleRegister, req.Bytes())
	assert.NoError(t, err)
	wr := parsed.(*WriteSingleRegisterRequest)
	assert.Equal(t, uint16(3), wr.Offset())
	assert.Equal(t, uint16(0xCAFE), wr.Value())
}

func TestWriteMultipleCoilsRequestSerializeParseRoundTrip(t *testing.T) {
	req, err := NewWriteMultipleCoilsRequestPDU(0, []bool{true, false, true, true, false, false, false, false, true})
	assert.NoError(t, err)
	body := req.Bytes()

	parsed, err := ParseRequest(WriteMultipleCoils, body)
	assert.NoError(t, err)
	wr := parsed.(*WriteMultipleCoilsRequest)
	assert.Equal(t, req.Values(), wr.Values())
	assert.Equal(t, uint16(0), wr.Offset())
}

func TestParseWriteMultipleCoilsRequestRejectsByteCountMismatch(t *testing.T) {
	// declares byteCount=2 but supplies only 1 data byte
	_, err := ParseRequest(WriteMultipleCoils, []byte{0x00, 0x00, 0x00, 0x08, 0x02, 0xFF})
	assert.ErrorIs(t, err, common.ErrInsufficientBytesForByteCount)
}

func TestWriteMultipleRegistersRequestSerializeParseRoundTrip(t *testing.T) {
	req, err := NewWriteMultipleRegistersRequestPDU(20, []uint16{1, 2, 3})
	assert.NoError(t, err)
	body := req.Bytes()

	parsed, err := ParseRequest(WriteMultipleRegisters, body)
	assert.NoError(t, err)
	wr := parsed.(*WriteMultipleRegistersRequest)
	assert.Equal(t, []uint16{1, 2, 3}, wr.Values())
	assert.Equal(t, uint16(20), wr.Offset())
}

func TestParseWriteMultipleRegistersRequestRejectsByteCountMismatch(t *testing.T) {
	_, err := ParseRequest(WriteMultipleRegisters, []byte{0x00, 0x00, 0x00, 0x02, 0x03, 0x00, 0x01})
	assert.ErrorIs(t, err, common.ErrInsufficientBytesForByteCount)
}

func TestParseRequestUnknownFunctionCode(t *testing.T) {
	_, err := ParseRequest(FunctionCode(0x99), []byte{0x00})
	assert.ErrorIs(t, err, common.ErrUnknownFunctionCode)
}
