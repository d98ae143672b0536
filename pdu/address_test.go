package pdu

import (
	"errors"
	"testing"

	"github.com/modbuscore/gomodbus/common"
	"github.com/stretchr/testify/assert"
)

func TestNewAddressRangeRejectsZeroCount(t *testing.T) {
	_, err := NewAddressRange(0, 0)
	assert.ErrorIs(t, err, common.ErrCountZero)
}

func TestNewAddressRangeRejectsOverflow(t *testing.T) {
	_, err := NewAddressRange(0xFFFF, 2)
	assert.ErrorIs(t, err, common.ErrAddressOverflow)
}

func TestNewAddressRangeAcceptsBoundary(t *testing.T) {
	r, err := NewAddressRange(0xFFFE, 2)
	assert.NoError(t, err)
	assert.Equal(t, AddressRange{Start: 0xFFFE, Count: 2}, r)
}

func TestNewBitReadRangeEnforcesProtocolMax(t *testing.T) {
	_, err := NewBitReadRange(0, MaxBitRead+1)
	assert.ErrorIs(t, err, common.ErrCountTooLarge)

	r, err := NewBitReadRange(0, MaxBitRead)
	assert.NoError(t, err)
	assert.Equal(t, uint16(MaxBitRead), r.Count)
}

func TestNewRegisterReadRangeEnforcesProtocolMax(t *testing.T) {
	_, err := NewRegisterReadRange(0, MaxRegisterRead+1)
	assert.ErrorIs(t, err, common.ErrCountTooLarge)

	r, err := NewRegisterReadRange(0, MaxRegisterRead)
	assert.NoError(t, err)
	assert.Equal(t, uint16(MaxRegisterRead), r.Count)
}

func TestDecodeCoilValue(t *testing.T) {
	v, err := DecodeCoilValue(0xFF00)
	assert.NoError(t, err)
	assert.True(t, v)

	v, err = DecodeCoilValue(0x0000)
	assert.NoError(t, err)
	assert.False(t, v)

	_, err = DecodeCoilValue(0x1234)
	assert.True(t, errors.Is(err, common.ErrInvalidValue))
}

func TestEncodeCoilValue(t *testing.T) {
	assert.Equal(t, uint16(0xFF00), EncodeCoilValue(true))
	assert.Equal(t, uint16(0x0000), EncodeCoilValue(false))
}

func TestNewWriteMultipleCoilsEnforcesLimitsAndRange(t *testing.T) {
	_, err := NewWriteMultipleCoils(0, nil)
	assert.ErrorIs(t, err, common.ErrCountZero)

	oversized := make([]bool, MaxMultipleCoilWrite+1)
	_, err = NewWriteMultipleCoils(0, oversized)
	assert.ErrorIs(t, err, common.ErrCountTooLarge)

	_, err = NewWriteMultipleCoils(0xFFFF, []bool{true, true})
	assert.ErrorIs(t, err, common.ErrAddressOverflow)

	w, err := NewWriteMultipleCoils(10, []bool{true, false, true})
	assert.NoError(t, err)
	assert.Equal(t, AddressRange{Start: 10, Count: 3}, w.Range())
}

func TestNewWriteMultipleRegistersEnforcesLimitsAndRange(t *testing.T) {
	_, err := NewWriteMultipleRegisters(0, nil)
	assert.ErrorIs(t, err, common.ErrCountZero)

	oversized := make([]uint16, MaxMultipleRegisterWrite+1)
	_, err = NewWriteMultipleRegisters(0, oversized)
	assert.ErrorIs(t, err, common.ErrCountTooLarge)

	w, err := NewWriteMultipleRegisters(5, []uint16{1, 2})
	assert.NoError(t, err)
	assert.Equal(t, AddressRange{Start: 5, Count: 2}, w.Range())
}

func TestUnitIdBroadcastAndReserved(t *testing.T) {
	assert.True(t, BroadcastUnitId.IsBroadcast())
	assert.False(t, UnitId(1).IsBroadcast())

	assert.True(t, UnitId(248).IsReserved())
	assert.True(t, UnitId(255).IsReserved())
	assert.False(t, UnitId(247).IsReserved())
}
