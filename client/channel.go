package client

import (
	"context"
	"errors"
	"time"

	"github.com/modbuscore/gomodbus/common"
	"github.com/modbuscore/gomodbus/pdu"
	"github.com/modbuscore/gomodbus/transport"
	"go.uber.org/zap"
)

// commandQueueDepth bounds how many requests may be queued ahead of the one
// currently in flight before submitting a request starts blocking the caller.
const commandQueueDepth = 64

// channel runs the single-goroutine state machine described in spec.md
// §4.4: Disabled -> Connecting -> Connected -> WaitAfterFailedConnect /
// WaitAfterDisconnect -> Connecting, with at most one request in flight and
// every command processed strictly in the order it was submitted.
type channel struct {
	dialer transport.Dialer
	wire   wire
	// badResponseIsFatal is true for RTU (a malformed response is
	// session-terminating) and false for TCP/TLS, where it only fails the
	// one outstanding request (spec.md §7).
	badResponseIsFatal bool
	logger             *zap.Logger
	retry              RetryStrategy

	commands chan command

	state       ChannelState
	onState     StateListener
	decodeLevel common.DecodeLevel
	nextTxId    uint16
	transport   transport.Transport
}

func newChannel(dialer transport.Dialer, w wire, badResponseIsFatal bool, logger *zap.Logger, retry RetryStrategy, onState StateListener) *channel {
	return &channel{
		dialer:             dialer,
		wire:               w,
		badResponseIsFatal: badResponseIsFatal,
		logger:             logger,
		retry:              retry,
		commands:           make(chan command, commandQueueDepth),
		state:              Disabled,
		onState:            onState,
	}
}

func (ch *channel) setState(s ChannelState) {
	ch.state = s
	if ch.onState != nil {
		ch.onState(s)
	}
}

// run drives the state machine until ctx is cancelled, at which point the
// channel transitions to Shutdown and fails every queued and future command.
func (ch *channel) run(ctx context.Context) {
	for {
		switch ch.state {
		case Disabled:
			if !ch.idleLoop(ctx) {
				ch.runShutdown()
				return
			}
		case Connecting:
			ch.runConnecting(ctx)
		case Connected:
			ch.runConnected(ctx)
			if ctx.Err() != nil {
				ch.runShutdown()
				return
			}
		case WaitAfterFailedConnect, WaitAfterDisconnect:
			if !ch.runWait(ctx, ch.delayForState(ch.state)) {
				ch.runShutdown()
				return
			}
		default:
			ch.runShutdown()
			return
		}
	}
}

func (ch *channel) delayForState(s ChannelState) time.Duration {
	if s == WaitAfterFailedConnect {
		return ch.retry.OnFailedConnect()
	}
	return ch.retry.OnDisconnect()
}

// idleLoop processes commands while there is no connection and none is
// being attempted (Disabled). Submitted requests fail immediately. It
// returns true once an Enable command moves the channel to Connecting, or
// false if ctx was cancelled first.
func (ch *channel) idleLoop(ctx context.Context) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case cmd := <-ch.commands:
			switch c := cmd.(type) {
			case submitRequestCommand:
				c.promise.Reject(common.ErrNoConnection)
			case enableCommand:
				ch.setState(Connecting)
				close(c.done)
				return true
			case disableCommand:
				close(c.done)
			case setDecodeLevelCommand:
				ch.decodeLevel = c.level
			}
		}
	}
}

func (ch *channel) runShutdown() {
	ch.setState(Shutdown)
	if ch.transport != nil {
		ch.transport.Close()
		ch.transport = nil
	}
	for {
		select {
		case cmd := <-ch.commands:
			switch c := cmd.(type) {
			case submitRequestCommand:
				c.promise.Reject(common.ErrShutdown)
			case enableCommand:
				close(c.done)
			case disableCommand:
				close(c.done)
			case setDecodeLevelCommand:
				ch.decodeLevel = c.level
			}
		default:
			return
		}
	}
}

func (ch *channel) runConnecting(ctx context.Context) {
	ch.setState(Connecting)
	t, err := ch.dialer.Dial(ctx)
	if err != nil {
		ch.logger.Debug("Failed to connect", zap.Error(err))
		ch.setState(WaitAfterFailedConnect)
		return
	}
	ch.retry.Reset()
	ch.transport = t
	ch.setState(Connected)
}

// runWait blocks for delay while still draining commands the way idleLoop
// does, so a caller can Enable/Disable/SetDecodeLevel during the reconnect
// backoff. Returns false if ctx was cancelled.
func (ch *channel) runWait(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			ch.setState(Connecting)
			return true
		case cmd := <-ch.commands:
			switch c := cmd.(type) {
			case submitRequestCommand:
				c.promise.Reject(common.ErrNoConnection)
			case enableCommand:
				close(c.done)
			case disableCommand:
				ch.setState(Disabled)
				close(c.done)
				return true
			case setDecodeLevelCommand:
				ch.decodeLevel = c.level
			}
		}
	}
}

// runConnected processes commands while a transport is open. At most one
// request is ever outstanding: the goroutine blocks on the full
// write-then-read exchange for a submitted request before pulling the next
// command. A session-terminating error drops the transport and moves to
// WaitAfterDisconnect.
func (ch *channel) runConnected(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-ch.commands:
			switch c := cmd.(type) {
			case submitRequestCommand:
				if !ch.exchange(ctx, c) {
					ch.transport.Close()
					ch.transport = nil
					ch.setState(WaitAfterDisconnect)
					return
				}
			case enableCommand:
				close(c.done)
			case disableCommand:
				ch.transport.Close()
				ch.transport = nil
				ch.setState(Disabled)
				close(c.done)
				return
			case setDecodeLevelCommand:
				ch.decodeLevel = c.level
			}
		}
	}
}

// exchange performs one request/response round trip. It returns false if
// the failure is session-terminating (I/O failure, corrupt frame, or on
// RTU a malformed response), in which case the caller reconnects; otherwise
// the promise is settled and the channel stays Connected.
func (ch *channel) exchange(ctx context.Context, c submitRequestCommand) bool {
	reqCtx := ctx
	var cancel context.CancelFunc
	if c.param.ResponseTimeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, c.param.ResponseTimeout)
		defer cancel()
	}

	ch.nextTxId++
	txId := ch.nextTxId
	reqBytes := pdu.SerializeRequest(c.request)

	if ch.decodeLevel.Pdu.Enabled() {
		ch.logger.Debug("Request", zap.Object("Request", c.request))
	}

	if err := ch.wire.writeRequest(reqCtx, ch.transport, c.param.UnitId, txId, reqBytes); err != nil {
		c.promise.Reject(err)
		return false
	}

	if c.param.UnitId.IsBroadcast() {
		c.promise.Resolve(nil)
		return true
	}

	requestCount := requestValueCount(c.request)
	respUnitId, respTxId, pduBytes, err := ch.wire.readResponse(reqCtx, ch.transport, requestCount)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			c.promise.Reject(common.ErrResponseTimeout)
			return true
		}
		c.promise.Reject(err)
		return false
	}

	if respTxId != 0 && respTxId != txId {
		c.promise.Reject(&common.BadFrameError{Reason: common.ErrUnexpectedFunctionCode})
		return !ch.badResponseIsFatal
	}
	if respUnitId != c.param.UnitId {
		c.promise.Reject(common.ErrReplyEchoMismatch)
		return !ch.badResponseIsFatal
	}
	if len(pduBytes) == 0 {
		c.promise.Reject(common.ErrEmptyPayload)
		return !ch.badResponseIsFatal
	}

	fc := pdu.FunctionCode(pduBytes[0])
	resp, err := pdu.ParseResponse(c.request, fc.IsException(), pduBytes[1:])
	if err != nil {
		c.promise.Reject(err)
		var exc *common.ExceptionError
		if errors.As(err, &exc) {
			return true
		}
		return !ch.badResponseIsFatal
	}
	if ch.decodeLevel.Pdu.Enabled() {
		ch.logger.Debug("Response", zap.Object("Response", resp))
	}
	c.promise.Resolve(resp)
	return true
}

func requestValueCount(req pdu.Request) uint16 {
	if r, ok := req.(*pdu.ReadRequest); ok {
		return r.Count()
	}
	return 0
}
