// Package transport implements the duplex byte-stream abstraction shared by
// every physical layer named in spec.md §4.6: TCP, TLS and serial. The frame
// package decodes the bytes a Transport hands it; a Transport never parses
// PDUs itself.
package transport

import (
	"context"
	"io"
	"net"
)

// Transport is a duplex byte stream a client channel or server session reads
// frames from and writes frames to. Read must respect ctx cancellation so a
// channel task can abandon an in-flight read on shutdown or reconnect.
type Transport interface {
	io.Closer
	// Read blocks until len(p) bytes have been read, ctx is done, or an
	// error occurs. It returns ctx.Err() if ctx is done first, and a
	// *common.IoError for any other failure.
	Read(ctx context.Context, p []byte) (int, error)
	// Write writes p in full or returns an error: ctx.Err() if ctx is done
	// before the write starts, otherwise a *common.IoError.
	Write(ctx context.Context, p []byte) error
}

// Dialer opens a new Transport to a remote endpoint. Client channels use one
// to (re)establish the connection each time they leave the Disabled state.
type Dialer interface {
	Dial(ctx context.Context) (Transport, error)
}

// Listener accepts inbound Transports. A TCP server session loop uses one to
// admit new client connections.
type Listener interface {
	Accept(ctx context.Context) (Transport, error)
	io.Closer
}

// RemoteAddresser is implemented by Transports with a meaningful peer
// address (TCP, TLS) so a server can consult an address filter before
// dispatching a session. A serial Transport does not implement it.
type RemoteAddresser interface {
	RemoteAddr() net.Addr
}
