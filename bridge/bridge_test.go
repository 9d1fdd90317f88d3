package bridge

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"hrpwm/core"
	"hrpwm/hal/sim"
)

// startBridge serves hw on one end of a pipe and returns a client on the other.
func startBridge(t *testing.T, hw core.HAL) (*Client, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	hostEnd, boardEnd := net.Pipe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, boardEnd, hw, logger) }()

	c := NewClient(hostEnd, time.Second)
	t.Cleanup(func() {
		cancel()
		c.Close()
		boardEnd.Close()
		<-done
	})
	return c, hook
}

func TestClientDrivesRemoteHRTIM(t *testing.T) {
	hw := sim.New()
	client, _ := startBridge(t, hw)

	logger, hook := test.NewNullLogger()
	cx := core.NewComplex(client, core.ComplexConfig{SystemClock: 170000000, Logger: logger})
	a := core.MustChannel(cx, core.PWM1Out, core.Config{})
	b := core.MustChannel(cx, core.PWM2Out, core.Config{Rollover: true})
	a.Start()
	b.Start()
	a.SyncWith(b)
	a.Write(0.5)

	if len(hook.AllEntries()) != 0 {
		for _, e := range hook.AllEntries() {
			t.Logf("%s: %s", e.Level, e.Message)
		}
		t.Fatal("bridged bring-up logged diagnostics")
	}
	if !cx.Calibrated() {
		t.Error("DLL status did not cross the link")
	}
	if got := hw.Timer(core.TimerC).TimeBase.Period; got != 64762 {
		t.Errorf("timer C period %d, expected 64762", got)
	}
	if wf := hw.Timer(core.TimerD).Waveform; !wf.UpDown || !wf.Rollover {
		t.Errorf("timer D waveform %+v, expected rollover", wf)
	}
	if hw.Enabled() != core.OutputTC1|core.OutputTD1 {
		t.Errorf("enabled outputs %#x", uint32(hw.Enabled()))
	}
	if hw.Timer(core.TimerC).LastReset != hw.Timer(core.TimerD).LastReset {
		t.Error("timers not reset together")
	}
	if got := hw.CompareValue(core.TimerC, core.Compare1); got != 32381 {
		t.Errorf("compare %d, expected 32381", got)
	}
	if err := client.SetCompareErr(); err != nil {
		t.Errorf("SetCompare failed: %v", err)
	}
	cfg, _ := hw.OutputConfig(core.OutputTD1)
	if cfg.Set != core.EventNone || cfg.Reset != core.EventCompare1 {
		t.Errorf("output config %+v did not cross the link", cfg)
	}
}

func TestRemoteError(t *testing.T) {
	hw := sim.New()
	hw.FailOn(sim.OpStartCounter, errors.New("counter locked"))
	client, hook := startBridge(t, hw)

	err := client.StartCounter(core.TimerB)
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected a RemoteError, got %v", err)
	}
	if remote.Cmd != CmdStartCounter || remote.Message != "counter locked" {
		t.Errorf("unexpected error %+v", remote)
	}
	if hook.LastEntry() == nil || hook.LastEntry().Level != logrus.WarnLevel {
		t.Error("server should log the failure")
	}

	// the link keeps working after a failure
	if err := client.StartOutputs(core.OutputTB1); err != nil {
		t.Errorf("follow-up call failed: %v", err)
	}
}

func TestUnknownCommand(t *testing.T) {
	client, _ := startBridge(t, sim.New())
	if _, err := client.call(99, 1, 2); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", err)
	}
	if err := client.Init(); err != nil {
		t.Errorf("link broken after unknown command: %v", err)
	}
}

func TestDLLStatus(t *testing.T) {
	hw := sim.New()
	hw.SetDLLReadyAfter(1)
	client, _ := startBridge(t, hw)

	if client.DLLCalibrated() {
		t.Error("DLL locked before calibration started")
	}
	client.StartDLLCalibration()
	if client.DLLCalibrated() {
		t.Error("DLL locked on the first poll")
	}
	if !client.DLLCalibrated() {
		t.Error("DLL not locked on the second poll")
	}
}

func TestServerStopsOnCancel(t *testing.T) {
	hostEnd, boardEnd := net.Pipe()
	defer hostEnd.Close()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, boardEnd, sim.New(), nil) }()

	cancel()
	// unblock the pending read
	boardEnd.Close()
	select {
	case err := <-done:
		if err == nil {
			t.Error("expected an error from a closed link")
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestUnreachableBoard(t *testing.T) {
	hostEnd, boardEnd := net.Pipe()
	go func() {
		buf := make([]byte, 64)
		for {
			if _, err := boardEnd.Read(buf); err != nil {
				return
			}
		}
	}()
	client := NewClient(hostEnd, 20*time.Millisecond)
	defer client.Close()
	defer boardEnd.Close()

	if client.DLLCalibrated() {
		t.Error("an unreachable board cannot report a locked DLL")
	}
	client.SetCompare(core.TimerA, core.Compare1, 10)
	if client.SetCompareErr() == nil {
		t.Error("SetCompare failure not recorded")
	}
	if client.SetCompareErr() != nil {
		t.Error("SetCompareErr must clear the failure")
	}
}
