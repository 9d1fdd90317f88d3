// Package config describes an HRTIM board in YAML and builds its channels.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"hrpwm/core"
)

// Channel is one PWM output of the board.
type Channel struct {
	Name      string  `yaml:"name"`
	Pin       string  `yaml:"pin"`
	Frequency uint32  `yaml:"frequency,omitempty"`
	Inverted  bool    `yaml:"inverted,omitempty"`
	Rollover  bool    `yaml:"rollover,omitempty"`
	Deadtime  float32 `yaml:"deadtime,omitempty"`
	Duty      float32 `yaml:"duty,omitempty"` // written after start
}

// Board is the YAML board description.
type Board struct {
	SystemClock  uint32     `yaml:"system_clock,omitempty"`
	DLLTimeoutMs uint32     `yaml:"dll_timeout_ms,omitempty"`
	Channels     []Channel  `yaml:"channels"`
	Sync         [][]string `yaml:"sync,omitempty"`
	// ADCTrigger names the channel whose timer paces the ADC
	ADCTrigger string `yaml:"adc_trigger,omitempty"`
}

var ErrInvalid = errors.New("invalid board config")

// Load parses a YAML board description, applies defaults and validates it.
func Load(data []byte) (*Board, error) {
	var b Board
	if err := yaml.UnmarshalStrict(data, &b); err != nil {
		return nil, fmt.Errorf("parse board config: %w", err)
	}
	applyDefaults(&b)
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// LoadFile reads and parses a board description.
func LoadFile(path string) (*Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(data)
}

// Marshal renders b as YAML.
func (b *Board) Marshal() ([]byte, error) {
	return yaml.Marshal(b)
}

func applyDefaults(b *Board) {
	if b.SystemClock == 0 {
		b.SystemClock = core.DefaultSystemClock
	}
	if b.DLLTimeoutMs == 0 {
		b.DLLTimeoutMs = uint32(core.DefaultDLLTimeout / time.Millisecond)
	}
	for i := range b.Channels {
		ch := &b.Channels[i]
		if ch.Frequency == 0 {
			ch.Frequency = core.DefaultFrequency
		}
		if ch.Name == "" {
			ch.Name = strings.ToLower(ch.Pin)
		}
	}
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Validate checks names, pins and sync groups. Frequencies are checked when
// the channels are built, against the resolved clock.
func (b *Board) Validate() error {
	if len(b.Channels) == 0 {
		return invalid("no channels")
	}
	names := make(map[string]bool, len(b.Channels))
	pins := make(map[core.Pin]string, len(b.Channels))
	for _, ch := range b.Channels {
		if ch.Name == "" {
			return invalid("channel without a name")
		}
		if names[ch.Name] {
			return invalid("duplicate channel %q", ch.Name)
		}
		names[ch.Name] = true

		pin, ok := core.ParsePin(ch.Pin)
		if !ok {
			return invalid("channel %q: unknown pin %q", ch.Name, ch.Pin)
		}
		if other, dup := pins[pin]; dup {
			return invalid("channels %q and %q both use pin %s", other, ch.Name, pin)
		}
		pins[pin] = ch.Name

		if ch.Deadtime < 0 || ch.Deadtime > 1 {
			return invalid("channel %q: deadtime %v outside [0,1]", ch.Name, ch.Deadtime)
		}
		if ch.Duty < 0 || ch.Duty > 1 {
			return invalid("channel %q: duty %v outside [0,1]", ch.Name, ch.Duty)
		}
	}
	for i, group := range b.Sync {
		if len(group) < 2 || len(group) > 3 {
			return invalid("sync group %d: %d channels, expected 2 or 3", i, len(group))
		}
		for _, name := range group {
			if !names[name] {
				return invalid("sync group %d: unknown channel %q", i, name)
			}
		}
	}
	if b.ADCTrigger != "" && !names[b.ADCTrigger] {
		return invalid("adc_trigger: unknown channel %q", b.ADCTrigger)
	}
	return nil
}

// DefaultBoard describes the ZEST half-bridge actuator: three phases at the
// default frequency, started in phase, ADC paced by phase 1.
func DefaultBoard() *Board {
	b := &Board{
		Channels: []Channel{
			{Name: "phase1", Pin: "PWM1_OUT"},
			{Name: "phase2", Pin: "PWM2_OUT"},
			{Name: "phase3", Pin: "PWM3_OUT"},
		},
		Sync:       [][]string{{"phase1", "phase2", "phase3"}},
		ADCTrigger: "phase1",
	}
	applyDefaults(b)
	return b
}
