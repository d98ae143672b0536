package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPduDecodeLevelThresholds(t *testing.T) {
	assert.False(t, PduDecodeNothing.Enabled())
	assert.True(t, PduDecodeFunctionCode.Enabled())
	assert.False(t, PduDecodeFunctionCode.DataHeaders())
	assert.True(t, PduDecodeDataHeaders.DataHeaders())
	assert.False(t, PduDecodeDataHeaders.DataValues())
	assert.True(t, PduDecodeDataValues.DataValues())
}

func TestAduDecodeLevelThresholds(t *testing.T) {
	assert.False(t, AduDecodeNothing.Enabled())
	assert.True(t, AduDecodeHeader.Enabled())
	assert.False(t, AduDecodeHeader.Payload())
	assert.True(t, AduDecodePayload.Payload())
}

func TestPhysDecodeLevelThresholds(t *testing.T) {
	assert.False(t, PhysDecodeNothing.Enabled())
	assert.True(t, PhysDecodeLength.Enabled())
	assert.False(t, PhysDecodeLength.Data())
	assert.True(t, PhysDecodeData.Data())
}

func TestDecodeNothingIsZeroValue(t *testing.T) {
	assert.Equal(t, DecodeLevel{}, DecodeNothing())
}
