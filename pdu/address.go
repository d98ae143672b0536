package pdu

import (
	"fmt"

	"github.com/modbuscore/gomodbus/common"
	"go.uber.org/zap/zapcore"
)

// UnitId selects a target device on a bus. 0 is the RTU broadcast address;
// 248-255 are reserved by the RTU specification (an RTU server session logs
// a warning if one is seen, but parsing still proceeds per spec.md §4.2).
type UnitId byte

// BroadcastUnitId is the RTU broadcast address: the server processes the
// request but never replies (spec.md §4.2, §4.5).
const BroadcastUnitId UnitId = 0

// IsBroadcast reports whether this unit id is the RTU broadcast address.
func (u UnitId) IsBroadcast() bool { return u == BroadcastUnitId }

// IsReserved reports whether this unit id falls in the RTU-reserved range.
func (u UnitId) IsReserved() bool { return u >= 248 }

// AddressRange is a contiguous span of 16-bit register/coil addresses.
// start+count-1 must not overflow 16 bits, and count must be > 0.
type AddressRange struct {
	Start uint16
	Count uint16
}

// NewAddressRange validates and constructs an AddressRange per the
// invariants in spec.md §3 and §8 (count > 0; start+count-1 <= 65535).
func NewAddressRange(start, count uint16) (AddressRange, error) {
	if count == 0 {
		return AddressRange{}, fmt.Errorf("%w: count is zero", common.ErrCountZero)
	}
	if uint32(start)+uint32(count)-1 > 0xFFFF {
		return AddressRange{}, fmt.Errorf("%w: start=%d count=%d", common.ErrAddressOverflow, start, count)
	}
	return AddressRange{Start: start, Count: count}, nil
}

func (r AddressRange) withMax(max uint16, errFn func() error) (AddressRange, error) {
	if r.Count > max {
		return AddressRange{}, errFn()
	}
	return r, nil
}

// MaxBitRead is the protocol limit on the coil/discrete-input count of a
// single read request (spec.md §6).
const MaxBitRead = 2000

// MaxRegisterRead is the protocol limit on the holding/input register count
// of a single read request.
const MaxRegisterRead = 125

// MaxMultipleCoilWrite is the protocol limit on the coil count of a single
// WriteMultipleCoils request.
const MaxMultipleCoilWrite = 1968

// MaxMultipleRegisterWrite is the protocol limit on the register count of a
// single WriteMultipleRegisters request.
const MaxMultipleRegisterWrite = 123

// NewBitReadRange validates a coil/discrete-input read address range,
// including the function-specific 2000-count cap.
func NewBitReadRange(start, count uint16) (AddressRange, error) {
	r, err := NewAddressRange(start, count)
	if err != nil {
		return r, err
	}
	return r.withMax(MaxBitRead, func() error {
		return fmt.Errorf("%w: count=%d max=%d", common.ErrCountTooLarge, count, MaxBitRead)
	})
}

// NewRegisterReadRange validates a holding/input register read address
// range, including the function-specific 125-count cap.
func NewRegisterReadRange(start, count uint16) (AddressRange, error) {
	r, err := NewAddressRange(start, count)
	if err != nil {
		return r, err
	}
	return r.withMax(MaxRegisterRead, func() error {
		return fmt.Errorf("%w: count=%d max=%d", common.ErrCountTooLarge, count, MaxRegisterRead)
	})
}

func (r AddressRange) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint16("Start", r.Start)
	enc.AddUint16("Count", r.Count)
	return nil
}

// Indexed pairs a single address with the value written or read at it. For
// coils, the wire encoding of the boolean is 0xFF00 (true) / 0x0000 (false);
// any other 16-bit value is a parse error (spec.md §3, §6).
type Indexed[T any] struct {
	Index uint16
	Value T
}

// NewIndexed constructs an Indexed[T] point.
func NewIndexed[T any](index uint16, value T) Indexed[T] {
	return Indexed[T]{Index: index, Value: value}
}

// DecodeCoilValue decodes the wire representation of a single coil value.
func DecodeCoilValue(wire uint16) (bool, error) {
	switch wire {
	case 0xFF00:
		return true, nil
	case 0x0000:
		return false, nil
	default:
		return false, fmt.Errorf("%w: coil value 0x%04X", common.ErrInvalidValue, wire)
	}
}

// EncodeCoilValue encodes a boolean as its wire representation.
func EncodeCoilValue(v bool) uint16 {
	if v {
		return 0xFF00
	}
	return 0x0000
}

// WriteMultiple is the body of a WriteMultipleCoils/WriteMultipleRegisters
// request: a starting address plus a sequence of values. Constructing one
// validates that the derived AddressRange is in range for the function
// (spec.md §3).
type WriteMultiple[T any] struct {
	Start  uint16
	Values []T
}

// NewWriteMultipleCoils validates and constructs a WriteMultiple[bool],
// enforcing the 1968-coil write limit.
func NewWriteMultipleCoils(start uint16, values []bool) (WriteMultiple[bool], error) {
	if len(values) == 0 {
		return WriteMultiple[bool]{}, fmt.Errorf("%w: no values", common.ErrCountZero)
	}
	if len(values) > MaxMultipleCoilWrite {
		return WriteMultiple[bool]{}, fmt.Errorf("%w: count=%d max=%d", common.ErrCountTooLarge, len(values), MaxMultipleCoilWrite)
	}
	if _, err := NewAddressRange(start, uint16(len(values))); err != nil {
		return WriteMultiple[bool]{}, err
	}
	return WriteMultiple[bool]{Start: start, Values: values}, nil
}

// NewWriteMultipleRegisters validates and constructs a WriteMultiple[uint16],
// enforcing the 123-register write limit.
func NewWriteMultipleRegisters(start uint16, values []uint16) (WriteMultiple[uint16], error) {
	if len(values) == 0 {
		return WriteMultiple[uint16]{}, fmt.Errorf("%w: no values", common.ErrCountZero)
	}
	if len(values) > MaxMultipleRegisterWrite {
		return WriteMultiple[uint16]{}, fmt.Errorf("%w: count=%d max=%d", common.ErrCountTooLarge, len(values), MaxMultipleRegisterWrite)
	}
	if _, err := NewAddressRange(start, uint16(len(values))); err != nil {
		return WriteMultiple[uint16]{}, err
	}
	return WriteMultiple[uint16]{Start: start, Values: values}, nil
}

// Range returns the AddressRange covered by this write.
func (w WriteMultiple[T]) Range() AddressRange {
	return AddressRange{Start: w.Start, Count: uint16(len(w.Values))}
}
