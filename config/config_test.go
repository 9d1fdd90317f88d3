package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"hrpwm/core"
	"hrpwm/hal/sim"
)

const halfBridge = `
system_clock: 170000000
channels:
  - name: high
    pin: PWM2_OUT
    deadtime: 0.01
    duty: 0.5
  - name: low
    pin: DIO7
    inverted: true
    deadtime: 0.01
    duty: 0.5
  - name: fan
    pin: PB12
    frequency: 25000
sync:
  - [high, fan]
adc_trigger: high
`

func TestLoad(t *testing.T) {
	b, err := Load([]byte(halfBridge))
	if err != nil {
		t.Fatal(err)
	}
	if b.DLLTimeoutMs != 10 {
		t.Errorf("expected default DLL timeout 10ms, got %d", b.DLLTimeoutMs)
	}
	if b.Channels[0].Frequency != core.DefaultFrequency || b.Channels[2].Frequency != 25000 {
		t.Errorf("unexpected frequencies %d %d", b.Channels[0].Frequency, b.Channels[2].Frequency)
	}
	if !b.Channels[1].Inverted || b.Channels[1].Deadtime != 0.01 {
		t.Errorf("channel low parsed as %+v", b.Channels[1])
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.yaml")
	if err := os.WriteFile(path, []byte(halfBridge), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
		msg  string
	}{
		{"no channels", "channels: []", "no channels"},
		{"unknown pin", "channels: [{name: a, pin: PA0}]", "unknown pin"},
		{"duplicate name", "channels: [{name: a, pin: PB12}, {name: a, pin: PB14}]", "duplicate channel"},
		{"shared pin", "channels: [{name: a, pin: PB12}, {name: b, pin: PWM1_OUT}]", "both use pin"},
		{"duty", "channels: [{name: a, pin: PB12, duty: 1.5}]", "duty"},
		{"deadtime", "channels: [{name: a, pin: PB12, deadtime: -0.1}]", "deadtime"},
		{"sync too small", "channels: [{name: a, pin: PB12}]\nsync: [[a]]", "expected 2 or 3"},
		{"sync unknown", "channels: [{name: a, pin: PB12}]\nsync: [[a, b]]", "unknown channel"},
		{"adc unknown", "channels: [{name: a, pin: PB12}]\nadc_trigger: b", "adc_trigger"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load([]byte(tc.yaml))
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.msg) {
				t.Errorf("error %q does not mention %q", err, tc.msg)
			}
		})
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	if _, err := Load([]byte("channels: [{name: a, pin: PB12, frequncy: 1000}]")); err == nil {
		t.Error("a misspelled key must be rejected")
	}
}

func TestDefaultNames(t *testing.T) {
	b, err := Load([]byte("channels: [{pin: DIO8}]"))
	if err != nil {
		t.Fatal(err)
	}
	if b.Channels[0].Name != "dio8" {
		t.Errorf("expected name dio8, got %q", b.Channels[0].Name)
	}
}

func TestDefaultBoardRoundTrip(t *testing.T) {
	data, err := DefaultBoard().Marshal()
	if err != nil {
		t.Fatal(err)
	}
	b, err := Load(data)
	if err != nil {
		t.Fatalf("default board does not reload: %v\n%s", err, data)
	}
	if len(b.Channels) != 3 || len(b.Sync) != 1 || b.ADCTrigger != "phase1" {
		t.Errorf("unexpected default board %+v", b)
	}
}

func TestBuild(t *testing.T) {
	b, err := Load([]byte(halfBridge))
	if err != nil {
		t.Fatal(err)
	}
	hw := sim.New()
	logger, hook := test.NewNullLogger()

	s, err := b.Build(hw, logger)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Order) != 3 || s.Order[2] != "fan" {
		t.Errorf("unexpected order %v", s.Order)
	}

	high, low, fan := s.Channel("high"), s.Channel("low"), s.Channel("fan")
	for _, ch := range []*core.Channel{high, low, fan} {
		if !ch.Running() {
			t.Errorf("%s not running", ch.Pin())
		}
	}
	if high.Read() != 0.5 || low.Duty() <= high.Duty() {
		t.Errorf("deadtime not applied: high %d low %d", high.Duty(), low.Duty())
	}
	if fan.Timing().Target != 25000 {
		t.Errorf("fan at %d Hz", fan.Timing().Target)
	}
	if hw.Timer(core.TimerC).LastReset == 0 || hw.Timer(core.TimerC).LastReset != hw.Timer(core.TimerD).LastReset {
		t.Error("sync group not applied")
	}
	if adc, ok := hw.ADCTrigger(); !ok || adc.Source != core.TimerD {
		t.Errorf("ADC trigger %+v", adc)
	}
	// every sibling is configured before the first start
	for _, e := range hook.AllEntries() {
		if strings.Contains(e.Message, "already running") {
			t.Errorf("start-order warning: %s", e.Message)
		}
	}
}

func TestBuildFrequencyTooLow(t *testing.T) {
	b, err := Load([]byte("channels: [{name: a, pin: PB12, frequency: 100}]"))
	if err != nil {
		t.Fatal(err)
	}
	logger, _ := test.NewNullLogger()
	if _, err := b.Build(sim.New(), logger); !errors.Is(err, core.ErrFrequencyTooLow) {
		t.Errorf("expected ErrFrequencyTooLow, got %v", err)
	}
}
