package transport

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/modbuscore/gomodbus/common"
	"go.uber.org/zap"
)

// tcpTransport wraps a net.Conn (bare TCP or TLS; crypto/tls.Conn satisfies
// net.Conn so TLSDialer in tls.go reuses this type directly).
type tcpTransport struct {
	conn   net.Conn
	logger *zap.Logger
	level  common.PhysDecodeLevel
}

func newTCPTransport(conn net.Conn, logger *zap.Logger, level common.PhysDecodeLevel) Transport {
	return &tcpTransport{conn: conn, logger: logger, level: level}
}

// Read fully populates p, respecting ctx cancellation the way the teacher's
// serial readWithTimeout helper does: a background goroutine performs the
// blocking read and the caller races it against ctx.Done.
func (t *tcpTransport) Read(ctx context.Context, p []byte) (int, error) {
	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := io.ReadFull(t.conn, p)
		done <- result{n, err}
	}()
	select {
	case <-ctx.Done():
		t.conn.SetReadDeadline(time.Now())
		<-done
		return 0, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return r.n, common.WrapIo(r.err)
		}
		if t.level.Enabled() {
			t.logger.Debug("Read", zap.Binary("bytes", p[:r.n]))
		}
		return r.n, nil
	}
}

func (t *tcpTransport) Write(ctx context.Context, p []byte) error {
	if t.level.Enabled() {
		t.logger.Debug("Write", zap.Binary("bytes", p))
	}
	n, err := t.conn.Write(p)
	if err != nil {
		return common.WrapIo(err)
	}
	if n < len(p) {
		return common.WrapIo(io.ErrShortWrite)
	}
	return nil
}

func (t *tcpTransport) Close() error {
	return t.conn.Close()
}

// RemoteAddr reports the address of the peer, so a server can consult an
// AddressFilter before dispatching a session. Callers type-assert a
// Transport against this interface since not every physical layer (serial)
// has a meaningful remote address.
func (t *tcpTransport) RemoteAddr() net.Addr {
	return t.conn.RemoteAddr()
}

// TCPDialer dials a plain TCP connection. It implements Dialer for client
// channels configured with a bare tcp:// endpoint.
type TCPDialer struct {
	Endpoint string
	Logger   *zap.Logger
	Level    common.PhysDecodeLevel
}

func (d *TCPDialer) Dial(ctx context.Context) (Transport, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", d.Endpoint)
	if err != nil {
		return nil, common.WrapIo(err)
	}
	return newTCPTransport(conn, d.Logger, d.Level), nil
}

// TCPListener accepts plain TCP connections for a server's session loop.
type TCPListener struct {
	listener net.Listener
	logger   *zap.Logger
	level    common.PhysDecodeLevel
}

// ListenTCP binds endpoint and returns a Listener.
func ListenTCP(endpoint string, logger *zap.Logger, level common.PhysDecodeLevel) (*TCPListener, error) {
	l, err := net.Listen("tcp", endpoint)
	if err != nil {
		return nil, common.WrapIo(err)
	}
	return &TCPListener{listener: l, logger: logger, level: level}, nil
}

func (l *TCPListener) Accept(ctx context.Context) (Transport, error) {
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
		l.logger.Debug("Accepted connection", zap.String("remoteAddr", r.conn.RemoteAddr().String()))
		return newTCPTransport(r.conn, l.logger, l.level), nil
	}
}

func (l *TCPListener) Close() error {
	return l.listener.Close()
}
