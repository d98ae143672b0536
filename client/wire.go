package client

import (
	"context"
	"io"

	"github.com/modbuscore/gomodbus/common"
	"github.com/modbuscore/gomodbus/frame"
	"github.com/modbuscore/gomodbus/pdu"
	"github.com/modbuscore/gomodbus/transport"
)

// wire abstracts the one difference between a TCP/TLS channel and a serial
// channel that the rest of the channel task does not want to know about:
// how a request is framed on write, and how a response frame's boundary is
// found on read. Everything else (retry, queueing, timeouts, promises) is
// shared.
type wire interface {
	// writeRequest frames and writes one request PDU.
	writeRequest(ctx context.Context, t transport.Transport, unitId pdu.UnitId, txId uint16, pduBytes []byte) error
	// readResponse reads one complete response frame and returns its unit
	// id, transaction id (0 for RTU, which has none), and PDU bytes
	// (function code byte + body).
	readResponse(ctx context.Context, t transport.Transport, requestCount uint16) (respUnitId pdu.UnitId, txId uint16, pduBytes []byte, err error)
}

// transportReader adapts transport.Transport to io.Reader for a single call
// chain bound to ctx, so frame.DecodeMBAP (written against io.Reader) can
// read from it directly.
type transportReader struct {
	ctx context.Context
	t   transport.Transport
}

func (r transportReader) Read(p []byte) (int, error) {
	return r.t.Read(r.ctx, p)
}

// mbapWire implements wire for TCP and TLS channels.
type mbapWire struct{}

func (mbapWire) writeRequest(ctx context.Context, t transport.Transport, unitId pdu.UnitId, txId uint16, pduBytes []byte) error {
	header := frame.MBAPHeader{TransactionId: txId, ProtocolId: 0, UnitId_: unitId}
	return t.Write(ctx, frame.EncodeMBAP(header, pduBytes))
}

func (mbapWire) readResponse(ctx context.Context, t transport.Transport, requestCount uint16) (pdu.UnitId, uint16, []byte, error) {
	f, err := frame.DecodeMBAP(transportReader{ctx, t})
	if err != nil {
		return 0, 0, nil, err
	}
	header := f.Header.(frame.MBAPHeader)
	return header.UnitId_, header.TransactionId, f.PDU, nil
}

// rtuWire implements wire for serial RTU channels.
type rtuWire struct{}

func (rtuWire) writeRequest(ctx context.Context, t transport.Transport, unitId pdu.UnitId, _ uint16, pduBytes []byte) error {
	return t.Write(ctx, frame.EncodeRTU(unitId, pduBytes))
}

func (rtuWire) readResponse(ctx context.Context, t transport.Transport, requestCount uint16) (pdu.UnitId, uint16, []byte, error) {
	raw, err := readRTUFrame(ctx, t, func(header []byte) (int, bool, error) {
		if len(header) < 2 {
			return 0, false, nil
		}
		return frame.NeededResponseLength(header, pdu.FunctionCode(header[1]), requestCount)
	})
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

// readRTUFrame grows buf byte by byte, consulting determineLength after
// every read, until determineLength reports the total frame length; it then
// reads the remainder in one call. This mirrors the progressive read the
// teacher's RTU transport performs by hand for each function-code family.
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

var _ io.Reader = transportReader{}
