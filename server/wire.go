package server

import (
	"context"

	"github.com/modbuscore/gomodbus/common"
	"github.com/modbuscore/gomodbus/frame"
	"github.com/modbuscore/gomodbus/pdu"
	"github.com/modbuscore/gomodbus/transport"
)

// wire is the server-side counterpart of the client package's wire
// interface: it hides whether a session is framed as MBAP or RTU from the
// dispatch loop in session.go.
type wire interface {
	readRequest(ctx context.Context, t transport.Transport) (unitId pdu.UnitId, txId uint16, pduBytes []byte, err error)
	writeResponse(ctx context.Context, t transport.Transport, unitId pdu.UnitId, txId uint16, pduBytes []byte) error
}

type transportReader struct {
	ctx context.Context
	t   transport.Transport
}

func (r transportReader) Read(p []byte) (int, error) {
	return r.t.Read(r.ctx, p)
}

// mbapWire implements wire for TCP and TLS sessions.
type mbapWire struct{}

func (mbapWire) readRequest(ctx context.Context, t transport.Transport) (pdu.UnitId, uint16, []byte, error) {
	f, err := frame.DecodeMBAP(transportReader{ctx, t})
	if err != nil {
		return 0, 0, nil, err
	}
	header := f.Header.(frame.MBAPHeader)
	return header.UnitId_, header.TransactionId, f.PDU, nil
}

func (mbapWire) writeResponse(ctx context.Context, t transport.Transport, unitId pdu.UnitId, txId uint16, pduBytes []byte) error {
	header := frame.MBAPHeader{TransactionId: txId, ProtocolId: 0, UnitId_: unitId}
	return t.Write(ctx, frame.EncodeMBAP(header, pduBytes))
}

// rtuWire implements wire for serial RTU sessions.
type rtuWire struct{}

func (rtuWire) readRequest(ctx context.Context, t transport.Transport) (pdu.UnitId, uint16, []byte, error) {
	raw, err := readRTUFrame(ctx, t, frame.NeededRequestLength)
	if err != nil {
		return 0, 0, nil, err
	}
	f, err := frame.DecodeRTU(raw)
	if err != nil {
		return 0, 0, nil, err
	}
	header := f.Header.(frame.RTUHeader)
	return header.UnitId_, 0, f.PDU, nil
}

func (rtuWire) writeResponse(ctx context.Context, t transport.Transport, unitId pdu.UnitId, _ uint16, pduBytes []byte) error {
	return t.Write(ctx, frame.EncodeRTU(unitId, pduBytes))
}

// readRTUFrame grows buf byte by byte, consulting determineLength after
// every read, until the total frame length is known; it then reads the
// remainder in one call. Mirrors client.readRTUFrame for the inbound
// (request) direction.
func readRTUFrame(ctx context.Context, t transport.Transport, determineLength func(header []byte) (total int, ok bool, err error)) ([]byte, error) {
	buf := make([]byte, 2, frame.MaxRTUFrameSize)
	if _, err := t.Read(ctx, buf); err != nil {
		return nil, err
	}
	for {
		total, ok, err := determineLength(buf)
		if err != nil {
			return nil, err
		}
		if ok {
			if total > cap(buf) {
				return nil, &common.BadFrameError{Reason: common.ErrFrameLengthTooBig}
			}
			if total > len(buf) {
				rest := make([]byte, total-len(buf))
				if _, err := t.Read(ctx, rest); err != nil {
					return nil, err
				}
				buf = append(buf, rest...)
			}
			return buf[:total], nil
		}
		extra := make([]byte, 1)
		if _, err := t.Read(ctx, extra); err != nil {
			return nil, err
		}
		buf = append(buf, extra[0])
	}
}
