package transport

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/modbuscore/gomodbus/common"
	"go.uber.org/zap"
)

// TLSDialer dials a Modbus/TCP Security connection. Certificate validation
// and identity extraction are entirely the caller's concern via tls.Config;
// this library treats the handshake as opaque (spec.md §1 Non-goals).
type TLSDialer struct {
	Endpoint string
	Config   *tls.Config
	Logger   *zap.Logger
	Level    common.PhysDecodeLevel
}

func (d *TLSDialer) Dial(ctx context.Context) (Transport, error) {
	dialer := tls.Dialer{Config: d.Config}
	conn, err := dialer.DialContext(ctx, "tcp", d.Endpoint)
	if err != nil {
		return nil, common.WrapIo(err)
	}
	return newTCPTransport(conn, d.Logger, d.Level), nil
}

// TLSListener accepts Modbus/TCP Security connections.
type TLSListener struct {
	listener net.Listener
	logger   *zap.Logger
	level    common.PhysDecodeLevel
}

// ListenTLS binds endpoint under the given TLS server configuration.
func ListenTLS(endpoint string, config *tls.Config, logger *zap.Logger, level common.PhysDecodeLevel) (*TLSListener, error) {
	l, err := tls.Listen("tcp", endpoint, config)
	if err != nil {
		return nil, common.WrapIo(err)
	}
	return &TLSListener{listener: l, logger: logger, level: level}, nil
}

func (l *TLSListener) Accept(ctx context.Context) (Transport, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := l.listener.Accept()
		done <- result{conn, err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, common.WrapIo(r.err)
		}
		l.logger.Debug("Accepted TLS connection", zap.String("remoteAddr", r.conn.RemoteAddr().String()))
		return newTCPTransport(r.conn, l.logger, l.level), nil
	}
}

func (l *TLSListener) Close() error {
	return l.listener.Close()
}
