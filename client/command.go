package client

import (
	"time"

	"github.com/modbuscore/gomodbus/common"
	"github.com/modbuscore/gomodbus/pdu"
)

// RequestParam carries the per-request addressing and timeout data a
// channel needs to frame and bound a single request (spec.md §4.4).
type RequestParam struct {
	UnitId          pdu.UnitId
	ResponseTimeout time.Duration
}

// command is the sum type the channel task's single goroutine consumes from
// its queue, in FIFO order, one at a time.
type command interface {
	isCommand()
}

type submitRequestCommand struct {
	request  pdu.Request
	param    RequestParam
	promise  *Promise[pdu.Response]
}

func (submitRequestCommand) isCommand() {}

type enableCommand struct {
	done chan struct{}
}

func (enableCommand) isCommand() {}

type disableCommand struct {
	done chan struct{}
}

func (disableCommand) isCommand() {}

type setDecodeLevelCommand struct {
	level common.DecodeLevel
}

func (setDecodeLevelCommand) isCommand() {}
