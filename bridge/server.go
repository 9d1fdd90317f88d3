package bridge

import (
	"context"
	"io"
	"time"

	"hrpwm/core"
	"hrpwm/protocol"
)

// Server executes bridge commands against a local HAL.
type Server struct {
	hal core.HAL
	log core.Logger
	out *protocol.ScratchOutput
	tr  *protocol.Transport
}

// NewServer returns a server driving hal. log may be nil.
func NewServer(hal core.HAL, log core.Logger) *Server {
	if log == nil {
		log = core.NopLogger
	}
	s := &Server{hal: hal, log: log, out: protocol.NewScratchOutput()}
	s.tr = protocol.NewTransport(s.out, s.handle)
	s.tr.SetResetCallback(func() {
		s.log.Infof("bridge: host restarted the link")
	})
	return s
}

// Receive processes queued input; replies accumulate for Output.
func (s *Server) Receive(input protocol.InputBuffer) {
	s.tr.Receive(input)
}

// Output returns the pending reply bytes and clears them.
func (s *Server) Output() []byte {
	b := append([]byte(nil), s.out.Result()...)
	s.out.Reset()
	return b
}

func (s *Server) reply(cmd uint16, code, value uint32, msg string) {
	if len(msg) > maxErrorMessageSize {
		msg = msg[:maxErrorMessageSize]
	}
	s.tr.SendCommand(RespStatus, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, uint32(cmd))
		protocol.EncodeVLQUint(out, code)
		protocol.EncodeVLQUint(out, value)
		protocol.EncodeVLQString(out, msg)
	})
}

func (s *Server) result(cmd uint16, err error) {
	if err != nil {
		s.log.Warnf("bridge: %s: %v", CommandName(cmd), err)
		s.reply(cmd, StatusError, 0, err.Error())
		return
	}
	s.reply(cmd, StatusOK, 0, "")
}

// args decodes n arguments.
func args(data *[]byte, n int) ([5]uint32, error) {
	var a [5]uint32
	for i := 0; i < n; i++ {
		v, err := protocol.DecodeVLQUint(data)
		if err != nil {
			return a, err
		}
		a[i] = v
	}
	return a, nil
}

var argCount = map[uint16]int{
	CmdInit:          0,
	CmdDLLStart:      0,
	CmdDLLStatus:     0,
	CmdTimeBase:      5,
	CmdWaveform:      2,
	CmdCompareConfig: 3,
	CmdOutputConfig:  5,
	CmdGPIO:          3,
	CmdADCTrigger:    4,
	CmdStartCounter:  1,
	CmdStartOutputs:  1,
	CmdStopOutputs:   1,
	CmdResetCounters: 1,
	CmdSetCompare:    3,
}

func (s *Server) handle(cmd uint16, data *[]byte) error {
	n, known := argCount[cmd]
	if !known {
		// argument layout unknown, the rest of the frame is lost
		*data = nil
		s.log.Warnf("bridge: unknown command %d", cmd)
		s.reply(cmd, StatusUnknownCommand, 0, "")
		return nil
	}
	a, err := args(data, n)
	if err != nil {
		s.reply(cmd, StatusBadArguments, 0, "")
		return ErrBadArguments
	}

	t := core.TimerUnit(a[0])
	switch cmd {
	case CmdInit:
		s.result(cmd, s.hal.Init())
	case CmdDLLStart:
		s.result(cmd, s.hal.StartDLLCalibration())
	case CmdDLLStatus:
		s.reply(cmd, StatusOK, boolArg(s.hal.DLLCalibrated()), "")
	case CmdTimeBase:
		s.result(cmd, s.hal.ConfigureTimeBase(t, core.TimeBase{
			Period:     a[1],
			Repetition: a[2],
			Prescaler:  core.Prescaler(a[3]),
			Continuous: a[4] != 0,
		}))
	case CmdWaveform:
		s.result(cmd, s.hal.ConfigureWaveform(t, core.Waveform{
			UpDown:      a[1]&wfUpDown != 0,
			Rollover:    a[1]&wfRollover != 0,
			Preload:     a[1]&wfPreload != 0,
			ResetUpdate: a[1]&wfResetUpdate != 0,
		}))
	case CmdCompareConfig:
		s.result(cmd, s.hal.ConfigureCompare(t, core.CompareUnit(a[1]), a[2]))
	case CmdOutputConfig:
		s.result(cmd, s.hal.ConfigureOutput(t, core.Output(a[1]), core.OutputConfig{
			Polarity: core.Polarity(a[2]),
			Set:      core.OutputEvent(a[3]),
			Reset:    core.OutputEvent(a[4]),
		}))
	case CmdGPIO:
		s.result(cmd, s.hal.ConfigureGPIO(core.GPIOConfig{
			Port:    core.GPIOPort(a[0]),
			Pin:     uint8(a[1]),
			AltFunc: uint8(a[2]),
		}))
	case CmdADCTrigger:
		s.result(cmd, s.hal.ConfigureADCTrigger(core.ADCTriggerConfig{
			Trigger:    uint8(a[0]),
			Source:     core.TimerUnit(a[1]),
			Update:     core.TimerUnit(a[2]),
			Postscaler: uint8(a[3]),
		}))
	case CmdStartCounter:
		s.result(cmd, s.hal.StartCounter(t))
	case CmdStartOutputs:
		s.result(cmd, s.hal.StartOutputs(core.Output(a[0])))
	case CmdStopOutputs:
		s.result(cmd, s.hal.StopOutputs(core.Output(a[0])))
	case CmdResetCounters:
		s.result(cmd, s.hal.ResetCounters(core.TimerReset(a[0])))
	case CmdSetCompare:
		s.hal.SetCompare(t, core.CompareUnit(a[1]), a[2])
	}
	return nil
}

// idleDelay is how long Serve sleeps when a non-blocking reader has nothing.
const idleDelay = 200 * time.Microsecond

// Serve runs a bridge server on rw until ctx is done or rw fails. Readers
// that return no data without an error (a polled UART) are retried.
func Serve(ctx context.Context, rw io.ReadWriter, hal core.HAL, log core.Logger) error {
	s := NewServer(hal, log)
	fifo := protocol.NewFifoBuffer(protocol.MessageMax)
	buf := make([]byte, 64)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := rw.Read(buf[:min(len(buf), fifo.Free())])
		if n > 0 {
			fifo.Write(buf[:n])
			s.Receive(fifo)
			if out := s.Output(); len(out) > 0 {
				if _, werr := rw.Write(out); werr != nil {
					return werr
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if n == 0 {
			time.Sleep(idleDelay)
		}
	}
}
