package bridge

import (
	"fmt"
	"io"
	"sync"
	"time"

	"hrpwm/core"
	"hrpwm/protocol"
)

// DefaultTimeout bounds each remote call.
const DefaultTimeout = time.Second

// Client is a core.HAL whose calls run on a remote board.
type Client struct {
	mu      sync.Mutex
	tr      *protocol.HostTransport
	timeout time.Duration

	// failure of the last SetCompare, which has no error return
	compareErr error
}

// NewClient speaks the bridge protocol over port. A zero timeout selects
// DefaultTimeout.
func NewClient(port io.ReadWriteCloser, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{tr: protocol.NewHostTransport(port), timeout: timeout}
}

// Close shuts the link down.
func (c *Client) Close() error {
	return c.tr.Close()
}

// SetCompareErr returns and clears the failure of the last SetCompare.
func (c *Client) SetCompareErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.compareErr
	c.compareErr = nil
	return err
}

func uints(vals ...uint32) func(protocol.OutputBuffer) {
	return func(out protocol.OutputBuffer) {
		for _, v := range vals {
			protocol.EncodeVLQUint(out, v)
		}
	}
}

// call sends one command and waits for its status reply.
func (c *Client) call(cmd uint16, args ...uint32) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.tr.SendCommandWithTimeout(cmd, uints(args...), c.timeout); err != nil {
		return 0, err
	}
	deadline := time.Now().Add(c.timeout)
	for {
		msg, err := c.tr.ReceiveResponse(time.Until(deadline))
		if err != nil {
			return 0, fmt.Errorf("%s: %w", CommandName(cmd), err)
		}
		st, ok := decodeStatus(msg.Payload)
		if !ok || st.cmd != cmd {
			// reply to an earlier, timed out call
			continue
		}
		switch st.code {
		case StatusOK:
			return st.value, nil
		case StatusUnknownCommand:
			return 0, fmt.Errorf("%s: %w", CommandName(cmd), ErrUnknownCommand)
		case StatusBadArguments:
			return 0, fmt.Errorf("%s: %w", CommandName(cmd), ErrBadArguments)
		default:
			return 0, &RemoteError{Cmd: cmd, Message: st.message}
		}
	}
}

type status struct {
	cmd     uint16
	code    uint32
	value   uint32
	message string
}

func decodeStatus(payload []byte) (st status, ok bool) {
	op, err := protocol.DecodeVLQUint(&payload)
	if err != nil || uint16(op) != RespStatus {
		return st, false
	}
	cmd, err1 := protocol.DecodeVLQUint(&payload)
	code, err2 := protocol.DecodeVLQUint(&payload)
	value, err3 := protocol.DecodeVLQUint(&payload)
	msg, err4 := protocol.DecodeVLQString(&payload)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return st, false
	}
	return status{cmd: uint16(cmd), code: code, value: value, message: msg}, true
}

func (c *Client) Init() error {
	_, err := c.call(CmdInit)
	return err
}

func (c *Client) StartDLLCalibration() error {
	_, err := c.call(CmdDLLStart)
	return err
}

// DLLCalibrated reports false when the board cannot be reached.
func (c *Client) DLLCalibrated() bool {
	v, err := c.call(CmdDLLStatus)
	return err == nil && v != 0
}

func (c *Client) ConfigureTimeBase(t core.TimerUnit, tb core.TimeBase) error {
	_, err := c.call(CmdTimeBase, uint32(t), tb.Period, tb.Repetition, uint32(tb.Prescaler), boolArg(tb.Continuous))
	return err
}

func (c *Client) ConfigureWaveform(t core.TimerUnit, wf core.Waveform) error {
	var flags uint32
	if wf.UpDown {
		flags |= wfUpDown
	}
	if wf.Rollover {
		flags |= wfRollover
	}
	if wf.Preload {
		flags |= wfPreload
	}
	if wf.ResetUpdate {
		flags |= wfResetUpdate
	}
	_, err := c.call(CmdWaveform, uint32(t), flags)
	return err
}

func (c *Client) ConfigureCompare(t core.TimerUnit, cu core.CompareUnit, value uint32) error {
	_, err := c.call(CmdCompareConfig, uint32(t), uint32(cu), value)
	return err
}

func (c *Client) ConfigureOutput(t core.TimerUnit, out core.Output, cfg core.OutputConfig) error {
	_, err := c.call(CmdOutputConfig, uint32(t), uint32(out), uint32(cfg.Polarity), uint32(cfg.Set), uint32(cfg.Reset))
	return err
}

func (c *Client) ConfigureGPIO(g core.GPIOConfig) error {
	_, err := c.call(CmdGPIO, uint32(g.Port), uint32(g.Pin), uint32(g.AltFunc))
	return err
}

func (c *Client) ConfigureADCTrigger(cfg core.ADCTriggerConfig) error {
	_, err := c.call(CmdADCTrigger, uint32(cfg.Trigger), uint32(cfg.Source), uint32(cfg.Update), uint32(cfg.Postscaler))
	return err
}

func (c *Client) StartCounter(t core.TimerUnit) error {
	_, err := c.call(CmdStartCounter, uint32(t))
	return err
}

func (c *Client) StartOutputs(outs core.Output) error {
	_, err := c.call(CmdStartOutputs, uint32(outs))
	return err
}

func (c *Client) StopOutputs(outs core.Output) error {
	_, err := c.call(CmdStopOutputs, uint32(outs))
	return err
}

func (c *Client) ResetCounters(resets core.TimerReset) error {
	_, err := c.call(CmdResetCounters, uint32(resets))
	return err
}

// SetCompare only waits for the frame to be acknowledged. A failure is kept
// for SetCompareErr.
func (c *Client) SetCompare(t core.TimerUnit, cu core.CompareUnit, value uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.tr.SendCommandWithTimeout(CmdSetCompare, uints(uint32(t), uint32(cu), value), c.timeout)
	if err != nil {
		c.compareErr = err
	}
}

var _ core.HAL = (*Client)(nil)
