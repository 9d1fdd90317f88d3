package config

import (
	"fmt"
	"time"

	"hrpwm/core"
)

// Setup is a board brought up from its description.
type Setup struct {
	Complex  *core.Complex
	Channels map[string]*core.Channel
	// Order lists channel names as configured
	Order []string
}

// Channel returns the named channel or nil.
func (s *Setup) Channel(name string) *core.Channel {
	return s.Channels[name]
}

// Build configures every channel, then starts them all, then runs the sync
// groups and finally writes the initial duty cycles. Every sibling of a timer
// is configured before any of them starts.
func (b *Board) Build(hal core.HAL, log core.Logger) (*Setup, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	cx := core.NewComplex(hal, core.ComplexConfig{
		SystemClock: b.SystemClock,
		DLLTimeout:  time.Duration(b.DLLTimeoutMs) * time.Millisecond,
		Logger:      log,
	})
	s := &Setup{Complex: cx, Channels: make(map[string]*core.Channel, len(b.Channels))}

	for _, c := range b.Channels {
		pin, ok := core.ParsePin(c.Pin)
		if !ok {
			return nil, fmt.Errorf("channel %q: %w: %s", c.Name, core.ErrUnknownPin, c.Pin)
		}
		ch, err := core.NewChannel(cx, pin, core.Config{
			Frequency: c.Frequency,
			Inverted:  c.Inverted,
			Rollover:  c.Rollover,
			Deadtime:  c.Deadtime,
		})
		if err != nil {
			return nil, fmt.Errorf("channel %q: %w", c.Name, err)
		}
		s.Channels[c.Name] = ch
		s.Order = append(s.Order, c.Name)
	}

	if b.ADCTrigger != "" {
		s.Channels[b.ADCTrigger].EnableADCTrigger()
	}

	for _, name := range s.Order {
		s.Channels[name].Start()
	}

	for _, group := range b.Sync {
		first := s.Channels[group[0]]
		others := make([]*core.Channel, 0, len(group)-1)
		for _, name := range group[1:] {
			others = append(others, s.Channels[name])
		}
		first.SyncWith(others...)
	}

	for _, c := range b.Channels {
		s.Channels[c.Name].Write(c.Duty)
	}
	return s, nil
}
