// Package client implements the asynchronous Modbus client channel named in
// spec.md §4.4: a single background task owns the connection, retries, and
// in-flight request for a channel, while ModbusClient exposes a synchronous
// request/response API built on top of it.
package client

import (
	"context"
	"time"

	"github.com/modbuscore/gomodbus/common"
	"github.com/modbuscore/gomodbus/pdu"
	"github.com/modbuscore/gomodbus/transport"
	"go.uber.org/zap"
)

// ModbusClient is the public handle to a channel. All methods except
// SetStateListener are safe to call concurrently; the channel task
// serializes them internally.
type ModbusClient struct {
	ch     *channel
	cancel context.CancelFunc
}

// NewTCPClient creates a client channel that dials dialer using MBAP
// framing (TCP or TLS). The background task starts Disabled; call Enable to
// begin connecting.
func NewTCPClient(dialer transport.Dialer, logger *zap.Logger, retry RetryStrategy) *ModbusClient {
	return newClient(dialer, mbapWire{}, false, logger, retry)
}

// NewRTUClient creates a client channel that dials dialer using serial RTU
// framing.
func NewRTUClient(dialer transport.Dialer, logger *zap.Logger, retry RetryStrategy) *ModbusClient {
	return newClient(dialer, rtuWire{}, true, logger, retry)
}

func newClient(dialer transport.Dialer, w wire, isRTU bool, logger *zap.Logger, retry RetryStrategy) *ModbusClient {
	if retry == nil {
		retry = NewDoublingRetryStrategy(100*time.Millisecond, 10*time.Second)
	}
	ctx, cancel := context.WithCancel(context.Background())
	ch := newChannel(dialer, w, isRTU, logger, retry, nil)
	go ch.run(ctx)
	return &ModbusClient{ch: ch, cancel: cancel}
}

// SetStateListener installs a callback invoked on every channel state
// transition. Not safe to call concurrently with Enable/Disable; set it
// immediately after construction.
func (c *ModbusClient) SetStateListener(listener StateListener) {
	c.ch.onState = listener
}

// Enable starts the channel connecting. It blocks until the channel task has
// accepted the command.
func (c *ModbusClient) Enable(ctx context.Context) error {
	done := make(chan struct{})
	if err := c.enqueue(ctx, enableCommand{done: done}); err != nil {
		return err
	}
	return c.awaitDone(ctx, done)
}

// Disable drops any connection and stops the channel from reconnecting
// until Enable is called again.
func (c *ModbusClient) Disable(ctx context.Context) error {
	done := make(chan struct{})
	if err := c.enqueue(ctx, disableCommand{done: done}); err != nil {
		return err
	}
	return c.awaitDone(ctx, done)
}

func (c *ModbusClient) enqueue(ctx context.Context, cmd command) error {
	select {
	case c.ch.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *ModbusClient) awaitDone(ctx context.Context, done chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetDecodeLevel adjusts wire-logging verbosity; it takes effect on the next
// frame the channel sends or receives. The channel consults only the Pdu
// level; physical-layer logging uses the level the Dialer was built with.
func (c *ModbusClient) SetDecodeLevel(level common.DecodeLevel) {
	c.ch.commands <- setDecodeLevelCommand{level: level}
}

// Shutdown stops the channel task permanently. The client must not be used
// afterwards.
func (c *ModbusClient) Shutdown() {
	c.cancel()
}

// submit queues req and blocks for its response.
func (c *ModbusClient) submit(ctx context.Context, req pdu.Request, param RequestParam) (pdu.Response, error) {
	promise := NewPromise[pdu.Response]()
	if err := c.enqueue(ctx, submitRequestCommand{request: req, param: param, promise: promise}); err != nil {
		return nil, err
	}
	return promise.Wait(ctx)
}

// ReadCoils reads count coils starting at start.
func (c *ModbusClient) ReadCoils(ctx context.Context, param RequestParam, start, count uint16) ([]bool, error) {
	req, err := pdu.NewReadCoilsRequest(start, count)
	if err != nil {
		return nil, err
	}
	resp, err := c.submit(ctx, req, param)
	if err != nil {
		return nil, err
	}
	return resp.(*pdu.BitReadResponse).Values, nil
}

// ReadDiscreteInputs reads count discrete inputs starting at start.
func (c *ModbusClient) ReadDiscreteInputs(ctx context.Context, param RequestParam, start, count uint16) ([]bool, error) {
	req, err := pdu.NewReadDiscreteInputsRequest(start, count)
	if err != nil {
		return nil, err
	}
	resp, err := c.submit(ctx, req, param)
	if err != nil {
		return nil, err
	}
	return resp.(*pdu.BitReadResponse).Values, nil
}

// ReadHoldingRegisters reads count holding registers starting at start.
func (c *ModbusClient) ReadHoldingRegisters(ctx context.Context, param RequestParam, start, count uint16) ([]uint16, error) {
	req, err := pdu.NewReadHoldingRegistersRequest(start, count)
	if err != nil {
		return nil, err
	}
	resp, err := c.submit(ctx, req, param)
	if err != nil {
		return nil, err
	}
	return resp.(*pdu.RegisterReadResponse).Values, nil
}

// ReadInputRegisters reads count input registers starting at start.
func (c *ModbusClient) ReadInputRegisters(ctx context.Context, param RequestParam, start, count uint16) ([]uint16, error) {
	req, err := pdu.NewReadInputRegistersRequest(start, count)
	if err != nil {
		return nil, err
	}
	resp, err := c.submit(ctx, req, param)
	if err != nil {
		return nil, err
	}
	return resp.(*pdu.RegisterReadResponse).Values, nil
}

// WriteSingleCoil writes a single coil.
func (c *ModbusClient) WriteSingleCoil(ctx context.Context, param RequestParam, index uint16, value bool) error {
	req := pdu.NewWriteSingleCoilRequest(index, value)
	_, err := c.submit(ctx, req, param)
	return err
}

// WriteSingleRegister writes a single holding register.
func (c *ModbusClient) WriteSingleRegister(ctx context.Context, param RequestParam, index, value uint16) error {
	req := pdu.NewWriteSingleRegisterRequest(index, value)
	_, err := c.submit(ctx, req, param)
	return err
}

// WriteMultipleCoils writes a contiguous span of coils.
func (c *ModbusClient) WriteMultipleCoils(ctx context.Context, param RequestParam, start uint16, values []bool) error {
	req, err := pdu.NewWriteMultipleCoilsRequestPDU(start, values)
	if err != nil {
		return err
	}
	_, err = c.submit(ctx, req, param)
	return err
}

// WriteMultipleRegisters writes a contiguous span of holding registers.
func (c *ModbusClient) WriteMultipleRegisters(ctx context.Context, param RequestParam, start uint16, values []uint16) error {
	req, err := pdu.NewWriteMultipleRegistersRequestPDU(start, values)
	if err != nil {
		return err
	}
	_, err = c.submit(ctx, req, param)
	return err
}

// ReadDeviceIdentification retrieves every object of the given category,
// transparently resubmitting requests as long as the server reports
// MoreFollows (spec.md §7).
func (c *ModbusClient) ReadDeviceIdentification(ctx context.Context, param RequestParam, readCode pdu.ReadDeviceIdCode) ([]pdu.DeviceIdentificationObject, error) {
	var all []pdu.DeviceIdentificationObject
	objectId := byte(0)
	for {
		req := pdu.NewDeviceIdentificationRequest(readCode, objectId)
		resp, err := c.submit(ctx, req, param)
		if err != nil {
			return nil, err
		}
		page := resp.(*pdu.DeviceIdentificationResponse)
		all = append(all, page.Objects...)
		if !page.MoreFollows {
			return all, nil
		}
		objectId = page.NextObjectId
	}
}

// SendCustomFunctionCode submits a request using one of the two
// user-defined function code ranges and returns the raw words the server
// replied with.
func (c *ModbusClient) SendCustomFunctionCode(ctx context.Context, param RequestParam, fc pdu.FunctionCode, values []uint16) ([]uint16, error) {
	req, err := pdu.NewCustomRequest(fc, values)
	if err != nil {
		return nil, err
	}
	resp, err := c.submit(ctx, req, param)
	if err != nil {
		return nil, err
	}
	return resp.(*pdu.CustomResponse).Values, nil
}
