package transport

import (
	"context"
	"io"
	"time"

	sp "github.com/goburrow/serial"
	"github.com/modbuscore/gomodbus/common"
	"go.uber.org/zap"
)

// PortState mirrors the open/closed lifecycle of a serial port so a caller
// can react to a cable being pulled or a device driver disappearing, the way
// rodbus's PortStateListener does for its RTU transport.
type PortState int

const (
	PortClosed PortState = iota
	PortOpen
)

func (s PortState) String() string {
	if s == PortOpen {
		return "Open"
	}
	return "Closed"
}

// PortStateListener is notified whenever a serial Transport's underlying
// port opens or closes.
type PortStateListener func(PortState)

// SerialSettings configures the physical serial line. Device identifies the
// OS-level port (e.g. "/dev/ttyUSB0" or "COM3").
type SerialSettings struct {
	Device   string
	BaudRate int
	DataBits int
	Parity   string
	StopBits int
}

func (s SerialSettings) toPortConfig() *sp.Config {
	return &sp.Config{
		Address:  s.Device,
		BaudRate: s.BaudRate,
		DataBits: s.DataBits,
		Parity:   s.Parity,
		StopBits: s.StopBits,
	}
}

// InterCharacterDelay returns the minimum idle time the RTU framing
// algorithm must observe between frames at this baud rate: 3.5 character
// times, or a flat 1750µs when the baud rate is fast enough that 3.5
// character times would be unreasonably short (spec.md §4.2).
func (s SerialSettings) InterCharacterDelay() time.Duration {
	if s.BaudRate <= 19200 {
		bitsPerChar := 1 + s.DataBits + stopBitsAsInt(s.StopBits) + parityBitCount(s.Parity)
		charTime := time.Second * time.Duration(bitsPerChar) / time.Duration(s.BaudRate)
		return charTime * 7 / 2
	}
	return 1750 * time.Microsecond
}

func stopBitsAsInt(stopBits int) int {
	if stopBits == 0 {
		return 1
	}
	return stopBits
}

func parityBitCount(parity string) int {
	if parity == "N" {
		return 0
	}
	return 1
}

// serialTransport wraps a goburrow/serial port, enforcing the RTU
// inter-character delay before every write and notifying a PortStateListener
// across open/close transitions.
type serialTransport struct {
	port         sp.Port
	logger       *zap.Logger
	level        common.PhysDecodeLevel
	delay        time.Duration
	lastActivity time.Time
	onState      PortStateListener
}

// OpenSerial opens the configured port and returns a ready Transport for
// the RTU client and server tasks; the frame package has no ASCII decoder.
func OpenSerial(settings SerialSettings, logger *zap.Logger, level common.PhysDecodeLevel, onState PortStateListener) (Transport, error) {
	port, err := sp.Open(settings.toPortConfig())
	if err != nil {
		return nil, common.WrapIo(err)
	}
	if onState != nil {
		onState(PortOpen)
	}
	return &serialTransport{
		port:   port,
		logger: logger,
		level:  level,
		delay:  settings.InterCharacterDelay(),
		onState: onState,
	}, nil
}

func (t *serialTransport) Read(ctx context.Context, p []byte) (int, error) {
	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := io.ReadFull(t.port, p)
		done <- result{n, err}
	}()
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case r := <-done:
		t.lastActivity = currentTime()
		if r.err != nil {
			return r.n, common.WrapIo(r.err)
		}
		if t.level.Enabled() {
			t.logger.Debug("Read", zap.Binary("bytes", p[:r.n]))
		}
		return r.n, nil
	}
}

// Write enforces the RTU inter-character silence period before
// transmitting, guaranteeing the line has been idle long enough for every
// receiver on the bus to have recognized the previous frame as complete.
func (t *serialTransport) Write(ctx context.Context, p []byte) error {
	if wait := t.delay - currentTime().Sub(t.lastActivity); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	if t.level.Enabled() {
		t.logger.Debug("Write", zap.Binary("bytes", p))
	}
	n, err := t.port.Write(p)
	t.lastActivity = currentTime()
	if err != nil {
		return common.WrapIo(err)
	}
	if n < len(p) {
		return common.WrapIo(io.ErrShortWrite)
	}
	return nil
}

func (t *serialTransport) Close() error {
	err := t.port.Close()
	if t.onState != nil {
		t.onState(PortClosed)
	}
	return common.WrapIo(err)
}

// currentTime is the sole indirection point over time.Now so tests can
// substitute a deterministic clock without faking the whole transport.
var currentTime = time.Now
