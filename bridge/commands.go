// Package bridge carries core.HAL calls over the serial protocol, so the
// driver core can run on a host while the HRTIM sits on the board.
package bridge

import (
	"errors"
	"fmt"
)

// Command IDs. Arguments follow as VLQ integers in the order listed.
const (
	CmdInit             uint16 = 1
	CmdDLLStart         uint16 = 2
	CmdDLLStatus        uint16 = 3  // reply value: 1 when locked
	CmdTimeBase         uint16 = 4  // timer, period, repetition, prescaler, continuous
	CmdWaveform         uint16 = 5  // timer, waveform flags
	CmdCompareConfig    uint16 = 6  // timer, compare, value
	CmdOutputConfig     uint16 = 7  // timer, output, polarity, set, reset
	CmdGPIO             uint16 = 8  // port, pin, alternate function
	CmdADCTrigger       uint16 = 9  // trigger, source, update, postscaler
	CmdStartCounter     uint16 = 10 // timer
	CmdStartOutputs     uint16 = 11 // outputs
	CmdStopOutputs      uint16 = 12 // outputs
	CmdResetCounters    uint16 = 13 // resets
	CmdSetCompare       uint16 = 14 // timer, compare, value; no reply
	RespStatus          uint16 = 0x40
	maxErrorMessageSize        = 40
)

// Reply status codes.
const (
	StatusOK uint32 = iota
	StatusError
	StatusUnknownCommand
	StatusBadArguments
)

var (
	ErrUnknownCommand = errors.New("unknown bridge command")
	ErrBadArguments   = errors.New("malformed bridge command arguments")
)

// RemoteError is a HAL failure reported by the board.
type RemoteError struct {
	Cmd     uint16
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("board: %s: %s", CommandName(e.Cmd), e.Message)
}

var commandNames = map[uint16]string{
	CmdInit:          "init",
	CmdDLLStart:      "dll_start",
	CmdDLLStatus:     "dll_status",
	CmdTimeBase:      "time_base",
	CmdWaveform:      "waveform",
	CmdCompareConfig: "compare_config",
	CmdOutputConfig:  "output_config",
	CmdGPIO:          "gpio",
	CmdADCTrigger:    "adc_trigger",
	CmdStartCounter:  "start_counter",
	CmdStartOutputs:  "start_outputs",
	CmdStopOutputs:   "stop_outputs",
	CmdResetCounters: "reset_counters",
	CmdSetCompare:    "set_compare",
}

func CommandName(id uint16) string {
	if n, ok := commandNames[id]; ok {
		return n
	}
	return fmt.Sprintf("cmd%d", id)
}

// Waveform flag bits.
const (
	wfUpDown = 1 << iota
	wfRollover
	wfPreload
	wfResetUpdate
)

func boolArg(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
