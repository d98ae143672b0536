package pdu

import (
	"fmt"

	"github.com/modbuscore/gomodbus/common"
	"go.uber.org/zap/zapcore"
)

// ReadDeviceIdCode selects which category of device-identification objects a
// ReadDeviceIdentification request retrieves (spec.md §4.3).
type ReadDeviceIdCode byte

const (
	BasicDeviceId    ReadDeviceIdCode = 0x01
	RegularDeviceId  ReadDeviceIdCode = 0x02
	ExtendedDeviceId ReadDeviceIdCode = 0x03
	SpecificDeviceId ReadDeviceIdCode = 0x04
)

func (c ReadDeviceIdCode) String() string {
	switch c {
	case BasicDeviceId:
		return "Basic"
	case RegularDeviceId:
		return "Regular"
	case ExtendedDeviceId:
		return "Extended"
	case SpecificDeviceId:
		return "Specific"
	default:
		return "Unknown"
	}
}

// ConformityLevel reports which object categories a device supports and
// whether it also supports individual access, echoed back unmodified by this
// library (spec.md §4.3).
type ConformityLevel byte

// DeviceIdentificationObject is a single (object id, raw bytes) pair, e.g.
// VendorName (0x00), ProductCode (0x01), MajorMinorRevision (0x02).
type DeviceIdentificationObject struct {
	Id    byte
	Value []byte
}

func (o DeviceIdentificationObject) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint8("Id", o.Id)
	enc.AddString("Value", string(o.Value))
	return nil
}

// DeviceIdentificationRequest is FC 43 / MEI type 14 (spec.md §4.3).
type DeviceIdentificationRequest struct {
	ReadCode ReadDeviceIdCode
	ObjectId byte
}

// NewDeviceIdentificationRequest constructs a ReadDeviceIdentification
// request. ObjectId is the starting object for Basic/Regular/Extended reads
// and the single requested object for SpecificDeviceId.
func NewDeviceIdentificationRequest(readCode ReadDeviceIdCode, objectId byte) *DeviceIdentificationRequest {
	return &DeviceIdentificationRequest{ReadCode: readCode, ObjectId: objectId}
}

func (r *DeviceIdentificationRequest) FunctionCode() FunctionCode { return ReadDeviceIdentification }

func (r *DeviceIdentificationRequest) Bytes() []byte {
	return []byte{MEIDeviceIdentification, byte(r.ReadCode), r.ObjectId}
}

func (r DeviceIdentificationRequest) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("ReadCode", r.ReadCode.String())
	enc.AddUint8("ObjectId", r.ObjectId)
	return nil
}

func parseDeviceIdentificationRequest(body []byte) (*DeviceIdentificationRequest, error) {
	if len(body) != 3 {
		return nil, fmt.Errorf("%w: device identification request body must be 3 bytes", common.ErrInvalidPacket)
	}
	if body[0] != MEIDeviceIdentification {
		return nil, fmt.Errorf("%w: unsupported MEI type 0x%02X", common.ErrInvalidPacket, body[0])
	}
	return NewDeviceIdentificationRequest(ReadDeviceIdCode(body[1]), body[2]), nil
}

// DeviceIdentificationResponse is the reply to a ReadDeviceIdentification
// request. MoreFollows/NextObjectId implement the paging protocol: when
// MoreFollows is true the caller resubmits a request with ObjectId set to
// NextObjectId to fetch the remaining objects (spec.md §7, following
// rodbus's read_device_identification continuation loop).
type DeviceIdentificationResponse struct {
	ReadCode        ReadDeviceIdCode
	ConformityLevel ConformityLevel
	MoreFollows     bool
	NextObjectId    byte
	Objects         []DeviceIdentificationObject
}

// NewDeviceIdentificationResponse builds one page of a device-identification
// reply. Callers paginating a large object list set more/nextObjectId per
// the continuation protocol described on DeviceIdentificationResponse.
// Objects that would push the serialized body past
// deviceIdentificationMaxPayload bytes are left out of this page, with more
// set and nextObjectId naming the first object left out.
func NewDeviceIdentificationResponse(readCode ReadDeviceIdCode, conformity ConformityLevel, more bool, nextObjectId byte, objects []DeviceIdentificationObject) *DeviceIdentificationResponse {
	size := 6
	for i, o := range objects {
		size += 2 + len(o.Value)
		if size > deviceIdentificationMaxPayload {
			more = true
			nextObjectId = o.Id
			objects = objects[:i]
			break
		}
	}
	return &DeviceIdentificationResponse{
		ReadCode:        readCode,
		ConformityLevel: conformity,
		MoreFollows:     more,
		NextObjectId:    nextObjectId,
		Objects:         objects,
	}
}

func (r *DeviceIdentificationResponse) FunctionCode() FunctionCode { return ReadDeviceIdentification }

func (r *DeviceIdentificationResponse) Bytes() []byte {
	out := []byte{
		MEIDeviceIdentification,
		byte(r.ReadCode),
		byte(r.ConformityLevel),
		moreFollowsByte(r.MoreFollows),
		r.NextObjectId,
		byte(len(r.Objects)),
	}
	for _, o := range r.Objects {
		out = append(out, o.Id, byte(len(o.Value)))
		out = append(out, o.Value...)
	}
	return out
}

func moreFollowsByte(more bool) byte {
	if more {
		return 0xFF
	}
	return 0x00
}

func (r DeviceIdentificationResponse) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("ReadCode", r.ReadCode.String())
	enc.AddBool("MoreFollows", r.MoreFollows)
	enc.AddUint8("NextObjectId", r.NextObjectId)
	enc.AddInt("ObjectCount", len(r.Objects))
	return nil
}

// deviceIdentificationMaxPayload bounds a single device-identification
// response to fit comfortably inside one MBAP frame (spec.md §7).
const deviceIdentificationMaxPayload = 246

func parseDeviceIdentificationResponse(body []byte) (*DeviceIdentificationResponse, error) {
	if len(body) < 6 {
		return nil, fmt.Errorf("%w: device identification response too short", common.ErrInvalidPacket)
	}
	if body[0] != MEIDeviceIdentification {
		return nil, fmt.Errorf("%w: unsupported MEI type 0x%02X", common.ErrInvalidPacket, body[0])
	}
	resp := &DeviceIdentificationResponse{
		ReadCode:        ReadDeviceIdCode(body[1]),
		ConformityLevel: ConformityLevel(body[2]),
		MoreFollows:     body[3] == 0xFF,
		NextObjectId:    body[4],
	}
	objectCount := int(body[5])
	offset := 6
	for i := 0; i < objectCount; i++ {
		if offset+2 > len(body) {
			return nil, fmt.Errorf("%w: truncated device identification object header", common.ErrInsufficientBytesForByteCount)
		}
		id := body[offset]
		length := int(body[offset+1])
		offset += 2
		if offset+length > len(body) {
			return nil, fmt.Errorf("%w: truncated device identification object value", common.ErrInsufficientBytesForByteCount)
		}
		value := make([]byte, length)
		copy(value, body[offset:offset+length])
		offset += length
		resp.Objects = append(resp.Objects, DeviceIdentificationObject{Id: id, Value: value})
	}
	if offset != len(body) {
		return nil, fmt.Errorf("%w: device identification response", common.ErrTrailingBytes)
	}
	return resp, nil
}
