package frame

import (
	"testing"

	"github.com/modbuscore/gomodbus/common"
	"github.com/modbuscore/gomodbus/pdu"
	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeRTURoundTrip(t *testing.T) {
	pduBytes := []byte{byte(pdu.ReadHoldingRegisters), 0x00, 0x00, 0x00, 0x0A}
	wire := EncodeRTU(1, pduBytes)

	f, err := DecodeRTU(wire)
	assert.NoError(t, err)
	assert.Equal(t, pdu.UnitId(1), f.Header.UnitId())
	assert.Equal(t, pdu.ReadHoldingRegisters, f.FunctionCode)
	assert.Equal(t, pduBytes, f.PDU)
}

func TestDecodeRTURejectsBadCRC(t *testing.T) {
	wire := EncodeRTU(1, []byte{byte(pdu.ReadHoldingRegisters), 0x00, 0x00, 0x00, 0x0A})
	wire[len(wire)-1] ^= 0xFF // flip a CRC bit
	_, err := DecodeRTU(wire)
	assert.ErrorIs(t, err, common.ErrCrcValidationFailed)
}

func TestDecodeRTURejectsTooShortFrame(t *testing.T) {
	_, err := DecodeRTU([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, common.ErrInvalidPacket)
}

func TestNeededRequestLengthFixedFunctions(t *testing.T) {
	n, ok, err := NeededRequestLength([]byte{0x01, byte(pdu.ReadCoils)})
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 8, n)
}

func TestNeededRequestLengthAwaitsMoreHeaderBytes(t *testing.T) {
	n, ok, err := NeededRequestLength([]byte{0x01})
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, n)
}

func TestNeededRequestLengthWriteMultipleCoils(t *testing.T) {
	// address, fc, start hi/lo, count hi/lo=8, byteCount=1
	header := []byte{0x01, byte(pdu.WriteMultipleCoils), 0x00, 0x00, 0x00, 0x08, 0x01}
	n, ok, err := NeededRequestLength(header)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 9+1, n)
}

func TestNeededRequestLengthWriteMultipleCoilsRejectsInconsistentByteCount(t *testing.T) {
	header := []byte{0x01, byte(pdu.WriteMultipleCoils), 0x00, 0x00, 0x00, 0x08, 0x02}
	_, _, err := NeededRequestLength(header)
	assert.ErrorIs(t, err, common.ErrInsufficientBytesForByteCount)
}

func TestNeededRequestLengthWriteMultipleRegisters(t *testing.T) {
	header := []byte{0x01, byte(pdu.WriteMultipleRegisters), 0x00, 0x00, 0x00, 0x02, 0x04}
	n, ok, err := NeededRequestLength(header)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 9+4, n)
}

func TestNeededRequestLengthDeviceIdentification(t *testing.T) {
	n, ok, err := NeededRequestLength([]byte{0x01, byte(pdu.ReadDeviceIdentification)})
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7, n)
}

func TestNeededRequestLengthRejectsCustomFunctionCode(t *testing.T) {
	_, _, err := NeededRequestLength([]byte{0x01, 65})
	assert.ErrorIs(t, err, common.ErrUnsupportedOnWire)
}

func TestNeededRequestLengthRejectsUnknownFunctionCode(t *testing.T) {
	_, _, err := NeededRequestLength([]byte{0x01, 0x99})
	assert.ErrorIs(t, err, common.ErrUnknownFunctionCode)
}

func TestNeededResponseLengthException(t *testing.T) {
	n, ok, err := NeededResponseLength([]byte{0x01, byte(pdu.ReadCoils.WithException())}, pdu.ReadCoils.WithException(), 0)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 5, n)
}

func TestNeededResponseLengthReadFunctions(t *testing.T) {
	header := []byte{0x01, byte(pdu.ReadCoils), 0x02}
	n, ok, err := NeededResponseLength(header, pdu.ReadCoils, 10)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 5+2, n)
}

func TestNeededResponseLengthWriteFunctionsFixed(t *testing.T) {
	n, ok, err := NeededResponseLength([]byte{0x01, byte(pdu.WriteSingleCoil)}, pdu.WriteSingleCoil, 0)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 8, n)
}

func TestNeededResponseLengthDeviceIdentificationAwaitsPreamble(t *testing.T) {
	header := []byte{0x01, byte(pdu.ReadDeviceIdentification), 0x0E, 0x01}
	_, ok, err := NeededResponseLength(header, pdu.ReadDeviceIdentification, 0)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestNeededResponseLengthDeviceIdentificationResolvesAfterObjects(t *testing.T) {
	// preamble (8 bytes) + one object: id, length=3, 3 value bytes
	header := []byte{0x01, byte(pdu.ReadDeviceIdentification), 0x0E, 0x01, 0x00, 0x00, 0x00, 0x01, 0x00, 0x03}
	n, ok, err := NeededResponseLength(header, pdu.ReadDeviceIdentification, 0)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, len(header)+3+2, n)
}
