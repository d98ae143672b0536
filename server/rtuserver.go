package server

import (
	"context"

	"github.com/modbuscore/gomodbus/transport"
	"go.uber.org/zap"
)

// SerialServer runs a single RTU session over one already-open serial port
// (spec.md §4.5: "per opened serial port, a session task runs").
type SerialServer struct {
	session *Session
}

// NewSerialServer wraps an open serial transport.Transport in a single RTU
// session against handlers.
func NewSerialServer(t transport.Transport, handlers *HandlerMap, auth AuthorizationHandler, logger *zap.Logger) *SerialServer {
	return &SerialServer{session: NewSession(t, true, handlers, auth, "", logger)}
}

// Run drives the session until ctx is cancelled or a framing error closes
// the port.
func (s *SerialServer) Run(ctx context.Context) error {
	return s.session.Run(ctx)
}
