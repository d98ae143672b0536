package server

import (
	"context"
	"errors"

	"github.com/modbuscore/gomodbus/common"
	"github.com/modbuscore/gomodbus/pdu"
	"github.com/modbuscore/gomodbus/transport"
	"go.uber.org/zap"
)

// Session runs the per-connection (TCP/TLS) or per-port (RTU) dispatch loop
// described in spec.md §4.5: read one frame, locate its handler(s), parse,
// authorize, invoke, and reply, then read the next frame.
type Session struct {
	wire      wire
	transport transport.Transport
	handlers  *HandlerMap
	auth      AuthorizationHandler
	role      string
	logger    *zap.Logger
	decode    common.DecodeLevel
}

// NewSession constructs a session over an already-open transport. auth may
// be nil, in which case every request is allowed (the plain TCP/RTU case
// from spec.md §4.6); role is the authenticated identity passed to auth and
// is meaningless without one.
func NewSession(t transport.Transport, isRTU bool, handlers *HandlerMap, auth AuthorizationHandler, role string, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if auth == nil {
		auth = AllowAllHandler{}
	}
	var w wire = mbapWire{}
	if isRTU {
		w = rtuWire{}
	}
	return &Session{wire: w, transport: t, handlers: handlers, auth: auth, role: role, logger: logger}
}

// SetDecodeLevel adjusts wire-logging verbosity for this session.
func (s *Session) SetDecodeLevel(level common.DecodeLevel) {
	s.decode = level
}

// Run drives the session until ctx is cancelled or a framing error occurs,
// at which point the transport is closed and Run returns. A framing error
// (malformed MBAP header, bad RTU CRC) is session-terminating per spec.md
// §4.5 step 1; a malformed PDU body is not, and is instead answered with an
// IllegalDataValue exception (step 3).
func (s *Session) Run(ctx context.Context) error {
	defer s.transport.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		unitId, txId, pduBytes, err := s.wire.readRequest(ctx, s.transport)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			s.logger.Debug("Session ending on frame error", zap.Error(err))
			return err
		}
		if _, isRTU := s.wire.(rtuWire); isRTU && unitId.IsReserved() {
			s.logger.Warn("Request addressed to RTU-reserved unit id", zap.Uint8("UnitId", byte(unitId)))
		}
		if s.decode.Adu.Enabled() {
			s.logger.Debug("Request frame", zap.Uint8("UnitId", byte(unitId)), zap.Uint16("TxId", txId))
		}
		if err := s.handleFrame(ctx, unitId, txId, pduBytes); err != nil {
			return err
		}
	}
}

func (s *Session) handleFrame(ctx context.Context, unitId pdu.UnitId, txId uint16, pduBytes []byte) error {
	if len(pduBytes) == 0 {
		s.logger.Warn("Received empty frame")
		return nil
	}
	fc := pdu.FunctionCode(pduBytes[0])
	body := pduBytes[1:]

	if unitId.IsBroadcast() {
		for _, id := range s.handlers.UnitIds() {
			handler, ok := s.handlers.Get(id)
			if !ok {
				continue
			}
			s.dispatchOne(id, fc, body, handler, true)
		}
		return nil
	}

	handler, ok := s.handlers.Get(unitId)
	if !ok {
		s.logger.Debug("Received frame for unmapped unit id", zap.Uint8("UnitId", byte(unitId)))
		return nil
	}
	replyPDU, shouldReply := s.dispatchOne(unitId, fc, body, handler, false)
	if !shouldReply {
		return nil
	}
	if s.decode.Pdu.Enabled() {
		s.logger.Debug("Response", zap.Int("Bytes", len(replyPDU)))
	}
	return s.wire.writeResponse(ctx, s.transport, unitId, txId, replyPDU)
}

// dispatchOne implements spec.md §4.5 steps 2-7 for a single handler.
// broadcast requests never produce a reply regardless of outcome.
func (s *Session) dispatchOne(unitId pdu.UnitId, fc pdu.FunctionCode, body []byte, handler RequestHandler, broadcast bool) (replyPDU []byte, shouldReply bool) {
	if broadcast && !pdu.Broadcastable(fc) {
		s.logger.Debug("Ignoring non-broadcastable function code on broadcast", zap.String("Function", fc.String()))
		return nil, false
	}

	req, err := pdu.ParseRequest(fc, body)
	if err != nil {
		s.logger.Debug("Malformed request body", zap.Error(err))
		return s.exceptionReply(fc, pdu.IllegalDataValue, broadcast)
	}

	if authorize(s.auth, unitId, req, s.role) == Deny {
		s.logger.Debug("Request denied by authorization handler", zap.String("Function", fc.String()))
		return s.exceptionReply(fc, pdu.IllegalFunction, broadcast)
	}

	resp, exc := invokeHandler(handler, req)
	if exc != 0 {
		return s.exceptionReply(fc, exc, broadcast)
	}
	if !validResponse(req, resp) {
		s.logger.Error("Handler returned a value count that does not match the request", zap.String("Function", fc.String()))
		return s.exceptionReply(fc, pdu.ServerDeviceFailure, broadcast)
	}
	if broadcast {
		return nil, false
	}
	return pdu.SerializeResponse(resp), true
}

func (s *Session) exceptionReply(fc pdu.FunctionCode, code pdu.ExceptionCode, broadcast bool) ([]byte, bool) {
	if broadcast {
		return nil, false
	}
	return pdu.SerializeException(&pdu.ExceptionResponse{Request: fc.WithoutException(), Code: code}), true
}

// validResponse checks the read-count invariant from spec.md §4.5 step 6: a
// read response must carry exactly the requested number of values.
func validResponse(req pdu.Request, resp pdu.Response) bool {
	r, ok := req.(*pdu.ReadRequest)
	if !ok {
		return true
	}
	switch v := resp.(type) {
	case *pdu.BitReadResponse:
		return uint16(len(v.Values)) == r.Count()
	case *pdu.RegisterReadResponse:
		return uint16(len(v.Values)) == r.Count()
	default:
		return true
	}
}

// invokeHandler implements spec.md §4.5 step 5: dispatch the parsed request
// to the matching RequestHandler method and build the typed response.
func invokeHandler(h RequestHandler, req pdu.Request) (pdu.Response, pdu.ExceptionCode) {
	switch r := req.(type) {
	case *pdu.ReadRequest:
		switch r.FunctionCode() {
		case pdu.ReadCoils:
			values, exc := h.ReadCoils(r.Offset(), r.Count())
			if exc != 0 {
				return nil, exc
			}
			return pdu.NewBitReadResponse(pdu.ReadCoils, values), 0
		case pdu.ReadDiscreteInputs:
			values, exc := h.ReadDiscreteInputs(r.Offset(), r.Count())
			if exc != 0 {
				return nil, exc
			}
			return pdu.NewBitReadResponse(pdu.ReadDiscreteInputs, values), 0
		case pdu.ReadHoldingRegisters:
			values, exc := h.ReadHoldingRegisters(r.Offset(), r.Count())
			if exc != 0 {
				return nil, exc
			}
			return pdu.NewRegisterReadResponse(pdu.ReadHoldingRegisters, values), 0
		default:
			values, exc := h.ReadInputRegisters(r.Offset(), r.Count())
			if exc != 0 {
				return nil, exc
			}
			return pdu.NewRegisterReadResponse(pdu.ReadInputRegisters, values), 0
		}
	case *pdu.WriteSingleCoilRequest:
		if exc := h.WriteSingleCoil(r.Offset(), r.Value()); exc != 0 {
			return nil, exc
		}
		return pdu.NewWriteSingleCoilResponse(r.Offset(), r.Value()), 0
	case *pdu.WriteSingleRegisterRequest:
		if exc := h.WriteSingleRegister(r.Offset(), r.Value()); exc != 0 {
			return nil, exc
		}
		return pdu.NewWriteSingleRegisterResponse(r.Offset(), r.Value()), 0
	case *pdu.WriteMultipleCoilsRequest:
		if exc := h.WriteMultipleCoils(r.Offset(), r.Values()); exc != 0 {
			return nil, exc
		}
		return pdu.NewWriteMultipleCoilsResponse(r.Offset(), uint16(len(r.Values()))), 0
	case *pdu.WriteMultipleRegistersRequest:
		if exc := h.WriteMultipleRegisters(r.Offset(), r.Values()); exc != 0 {
			return nil, exc
		}
		return pdu.NewWriteMultipleRegistersResponse(r.Offset(), uint16(len(r.Values()))), 0
	case *pdu.DeviceIdentificationRequest:
		objects, conformity, more, next, exc := h.ReadDeviceIdentification(r.ReadCode, r.ObjectId)
		if exc != 0 {
			return nil, exc
		}
		return pdu.NewDeviceIdentificationResponse(r.ReadCode, conformity, more, next, objects), 0
	case *pdu.CustomRequest:
		values, exc := h.HandleCustomFunctionCode(r.FunctionCode(), r.Values)
		if exc != 0 {
			return nil, exc
		}
		return pdu.NewCustomResponse(r.FunctionCode(), values), 0
	default:
		return nil, pdu.IllegalFunction
	}
}
