package core_test

import (
	"testing"

	"hrpwm/core"
)

func TestParsePin(t *testing.T) {
	testCases := []struct {
		name string
		pin  core.Pin
		ok   bool
	}{
		{"PB12", core.PB12, true},
		{"pb14", core.PB14, true},
		{" PC7 ", core.PC7, true},
		{"PWM1_OUT", core.PB12, true},
		{"pwm3_out", core.PC6, true},
		{"DIO7", core.PB15, true},
		{"DIO8", core.PC7, true},
		{"PA0", core.PinNone, false},
		{"NC", core.PinNone, false},
		{"", core.PinNone, false},
	}

	for _, tc := range testCases {
		p, ok := core.ParsePin(tc.name)
		if p != tc.pin || ok != tc.ok {
			t.Errorf("ParsePin(%q): expected (%s, %t), got (%s, %t)", tc.name, tc.pin, tc.ok, p, ok)
		}
	}
}

func TestLookupBoardAliases(t *testing.T) {
	testCases := []struct {
		pin     core.Pin
		timer   core.TimerUnit
		compare core.CompareUnit
		output  core.Output
	}{
		{core.PWM1Out, core.TimerC, core.Compare1, core.OutputTC1},
		{core.PWM2Out, core.TimerD, core.Compare1, core.OutputTD1},
		{core.PWM3Out, core.TimerF, core.Compare1, core.OutputTF1},
		{core.DIO7, core.TimerD, core.Compare3, core.OutputTD2},
		{core.DIO8, core.TimerF, core.Compare2, core.OutputTF2},
	}

	for _, tc := range testCases {
		t.Run(tc.pin.String(), func(t *testing.T) {
			res, ok := core.Lookup(tc.pin)
			if !ok {
				t.Fatal("no binding")
			}
			if res.Timer != tc.timer || res.Compare != tc.compare || res.Output != tc.output {
				t.Errorf("got timer %s %s output %#x", res.Timer, res.Compare, uint32(res.Output))
			}
		})
	}
}

func TestResourceTableConsistent(t *testing.T) {
	seen := make(map[core.Output]core.Pin)
	for _, p := range core.Pins() {
		res, ok := core.Lookup(p)
		if !ok {
			t.Fatalf("%s: listed but not bound", p)
		}
		if prev, dup := seen[res.Output]; dup {
			t.Errorf("%s and %s drive the same output", prev, p)
		}
		seen[res.Output] = p
		if res.CounterReset != res.Timer.ResetBit() {
			t.Errorf("%s: reset bit %#x does not belong to timer %s", p, uint32(res.CounterReset), res.Timer)
		}
		// outputs 1 and 2 of unit n sit on bits 2n and 2n+1
		if res.Output>>(2*uint(res.Timer)) > 3 || res.Output>>(2*uint(res.Timer)) == 0 {
			t.Errorf("%s: output %#x is not an output of timer %s", p, uint32(res.Output), res.Timer)
		}
		if got, _ := core.ParsePin(p.String()); got != p {
			t.Errorf("%s does not parse back", p)
		}
	}
	if len(seen) != 12 {
		t.Errorf("expected 12 outputs, got %d", len(seen))
	}
	if _, ok := core.Lookup(core.PinNone); ok {
		t.Error("PinNone must not be bound")
	}
}
