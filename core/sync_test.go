package core_test

import (
	"testing"

	"github.com/sirupsen/logrus"

	"hrpwm/core"
	"hrpwm/hal/sim"
)

func TestSyncTwoUnits(t *testing.T) {
	cx, hw, _ := newTestComplex(t)
	a := core.MustChannel(cx, core.PWM1Out, core.Config{})
	b := core.MustChannel(cx, core.PWM2Out, core.Config{})
	a.Start()
	b.Start()

	before := len(hw.Calls())
	a.SyncWith(b)

	calls := hw.Calls()[before:]
	expected := []string{
		sim.OpStopOutputs + " 0x50",
		sim.OpResetCounters + " 0x1800",
		sim.OpStartOutputs + " 0x50",
	}
	if len(calls) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, calls)
	}
	for i := range expected {
		if calls[i] != expected[i] {
			t.Errorf("call %d: expected %q, got %q", i, expected[i], calls[i])
		}
	}
	tc, td := hw.Timer(core.TimerC), hw.Timer(core.TimerD)
	if tc.Resets != 1 || td.Resets != 1 || tc.LastReset != td.LastReset {
		t.Error("counters must be reset by one combined request")
	}
	if hw.Enabled() != core.OutputTC1|core.OutputTD1 {
		t.Errorf("outputs not restarted, enabled=%#x", uint32(hw.Enabled()))
	}
}

func TestSyncThreeUnits(t *testing.T) {
	cx, hw, _ := newTestComplex(t)
	a := core.MustChannel(cx, core.PWM1Out, core.Config{})
	b := core.MustChannel(cx, core.PWM2Out, core.Config{})
	c := core.MustChannel(cx, core.PWM3Out, core.Config{})
	for _, ch := range []*core.Channel{a, b, c} {
		ch.Start()
	}

	a.SyncWith(b, c)

	seq := hw.Timer(core.TimerC).LastReset
	for _, u := range []core.TimerUnit{core.TimerD, core.TimerF} {
		if hw.Timer(u).LastReset != seq {
			t.Errorf("timer %s not reset with timer C", u)
		}
	}
	if hw.Count(sim.OpResetCounters) != 1 {
		t.Errorf("expected one combined reset, got %d", hw.Count(sim.OpResetCounters))
	}
}

func TestSyncSharedUnitIsNoop(t *testing.T) {
	cx, hw, _ := newTestComplex(t)
	a := core.MustChannel(cx, core.PWM2Out, core.Config{})
	b := core.MustChannel(cx, core.DIO7, core.Config{})
	a.Start()
	b.Start()

	before := len(hw.Calls())
	a.SyncWith(b)
	if len(hw.Calls()) != before {
		t.Errorf("channels on one counter are already in phase, got calls %v", hw.Calls()[before:])
	}
}

func TestSyncMasksAreUnions(t *testing.T) {
	cx, hw, _ := newTestComplex(t)
	a := core.MustChannel(cx, core.PWM2Out, core.Config{})
	b := core.MustChannel(cx, core.DIO7, core.Config{})
	c := core.MustChannel(cx, core.PWM3Out, core.Config{})
	for _, ch := range []*core.Channel{a, b, c} {
		ch.Start()
	}

	before := len(hw.Calls())
	a.SyncWith(b, c)
	calls := hw.Calls()[before:]
	// TD1|TD2|TF1 and TDRST|TFRST: a shared unit contributes its bits once
	if len(calls) != 3 || calls[0] != sim.OpStopOutputs+" 0x4c0" || calls[1] != sim.OpResetCounters+" 0x5000" {
		t.Errorf("unexpected sync sequence %v", calls)
	}
	if hw.Timer(core.TimerD).Resets != 1 {
		t.Errorf("timer D reset %d times", hw.Timer(core.TimerD).Resets)
	}
}

func TestSyncUnstartedWarns(t *testing.T) {
	cx, hw, hook := newTestComplex(t)
	a := core.MustChannel(cx, core.PWM1Out, core.Config{})
	b := core.MustChannel(cx, core.PWM2Out, core.Config{})
	a.Start()
	hook.Reset()

	a.SyncWith(b)
	if countLevel(hook, logrus.WarnLevel) != 1 {
		t.Errorf("expected one warning, got %d", countLevel(hook, logrus.WarnLevel))
	}
	if hw.Count(sim.OpResetCounters) != 1 {
		t.Error("sync must still run")
	}
	if !b.Running() {
		t.Error("sync restarts every output of the set")
	}
}

func TestSyncAcrossComplexesRefused(t *testing.T) {
	cx1, hw1, hook := newTestComplex(t)
	cx2, _, _ := newTestComplex(t)
	a := core.MustChannel(cx1, core.PWM1Out, core.Config{})
	b := core.MustChannel(cx2, core.PWM2Out, core.Config{})

	a.SyncWith(b)
	if hw1.Count(sim.OpStopOutputs) != 0 {
		t.Error("channels of different complexes must not be synced")
	}
	if countLevel(hook, logrus.ErrorLevel) != 1 {
		t.Error("expected an error diagnostic")
	}
}
