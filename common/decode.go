package common

// PduDecodeLevel controls how much of a PDU is logged at Debug level.
type PduDecodeLevel int

const (
	PduDecodeNothing PduDecodeLevel = iota
	PduDecodeFunctionCode
	PduDecodeDataHeaders
	PduDecodeDataValues
)

func (l PduDecodeLevel) Enabled() bool     { return l >= PduDecodeFunctionCode }
func (l PduDecodeLevel) DataHeaders() bool { return l >= PduDecodeDataHeaders }
func (l PduDecodeLevel) DataValues() bool  { return l >= PduDecodeDataValues }

// AduDecodeLevel controls how much of a frame header is logged at Debug level.
type AduDecodeLevel int

const (
	AduDecodeNothing AduDecodeLevel = iota
	AduDecodeHeader
	AduDecodePayload
)

func (l AduDecodeLevel) Enabled() bool { return l >= AduDecodeHeader }
func (l AduDecodeLevel) Payload() bool { return l >= AduDecodePayload }

// PhysDecodeLevel controls how much of the raw physical-layer byte stream is
// logged at Debug level.
type PhysDecodeLevel int

const (
	PhysDecodeNothing PhysDecodeLevel = iota
	PhysDecodeLength
	PhysDecodeData
)

func (l PhysDecodeLevel) Enabled() bool { return l >= PhysDecodeLength }
func (l PhysDecodeLevel) Data() bool    { return l >= PhysDecodeData }

// DecodeLevel controls decoding/logging verbosity at each layer of the
// stack. A client channel's SetDecodeLevel command (spec.md §4.4) updates
// this value and it takes effect immediately on the next frame.
type DecodeLevel struct {
	Pdu      PduDecodeLevel
	Adu      AduDecodeLevel
	Physical PhysDecodeLevel
}

// DecodeNothing is the default, silent decode level.
func DecodeNothing() DecodeLevel { return DecodeLevel{} }
