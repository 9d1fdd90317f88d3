package core

import (
	"errors"
	"time"
)

var (
	ErrUnknownPin = errors.New("pin has no HRTIM binding")
	ErrPinInUse   = errors.New("pin already bound to a channel")
)

// Mode is the counting mode of a timing unit, shared by all its outputs.
type Mode uint8

const (
	ModeUnset Mode = iota
	ModeNormal
	ModeRollover
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeRollover:
		return "rollover"
	}
	return "unset"
}

func modeOf(rollover bool) Mode {
	if rollover {
		return ModeRollover
	}
	return ModeNormal
}

// ComplexConfig holds the one-time settings of the HRTIM complex.
type ComplexConfig struct {
	// SystemClock is read once and used by the frequency resolver (0 = 170MHz)
	SystemClock uint32
	// DLLTimeout bounds the calibration poll (0 = DefaultDLLTimeout)
	DLLTimeout time.Duration
	Logger     Logger
}

type unitState struct {
	mode       Mode
	configured bool
	owner      Pin
	timing     Timing
	running    bool
}

// Complex is the HRTIM1 peripheral shared by every channel: it owns the
// one-time bring-up and the per-unit bookkeeping that keeps channels on the
// same counter consistent.
//
// A Complex is not safe for concurrent use. Construct every channel before
// any channel's Write or SyncWith runs.
type Complex struct {
	hal        HAL
	log        Logger
	sysClock   uint32
	dllTimeout time.Duration

	initialized bool
	calibrated  bool
	resolver    *Resolver

	units      [NumTimerUnits]unitState
	channels   [numPins]*Channel
	adcTrigger *Channel
	halErrors  uint32
}

// NewComplex wraps a HAL. Nothing touches the hardware until the first
// channel is constructed.
func NewComplex(hal HAL, cfg ComplexConfig) *Complex {
	cx := &Complex{
		hal:        hal,
		log:        cfg.Logger,
		sysClock:   cfg.SystemClock,
		dllTimeout: cfg.DLLTimeout,
	}
	if cx.log == nil {
		cx.log = NopLogger
	}
	if cx.sysClock == 0 {
		cx.sysClock = DefaultSystemClock
	}
	if cx.dllTimeout <= 0 {
		cx.dllTimeout = DefaultDLLTimeout
	}
	return cx
}

// Initialized reports whether peripheral bring-up has run
func (cx *Complex) Initialized() bool { return cx.initialized }

// Calibrated reports whether the DLL locked during bring-up
func (cx *Complex) Calibrated() bool { return cx.calibrated }

// SystemClock returns the clock rate used for frequency resolution
func (cx *Complex) SystemClock() uint32 { return cx.sysClock }

// Resolver returns the frequency resolver built at bring-up, nil before.
func (cx *Complex) Resolver() *Resolver { return cx.resolver }

// HALErrors counts HAL calls that reported failure.
func (cx *Complex) HALErrors() uint32 { return cx.halErrors }

// Mode returns the counting mode of a timing unit.
func (cx *Complex) Mode(t TimerUnit) Mode {
	if !t.Valid() {
		return ModeUnset
	}
	return cx.units[t].mode
}

// Owner returns the pin that configured the unit's time base.
func (cx *Complex) Owner(t TimerUnit) (Pin, bool) {
	if !t.Valid() || !cx.units[t].configured {
		return PinNone, false
	}
	return cx.units[t].owner, true
}

// UnitTiming returns the timing a unit was configured with.
func (cx *Complex) UnitTiming(t TimerUnit) (Timing, bool) {
	if !t.Valid() || !cx.units[t].configured {
		return Timing{}, false
	}
	return cx.units[t].timing, true
}

// Channel returns the channel bound to p, if any.
func (cx *Complex) Channel(p Pin) *Channel {
	if p >= numPins {
		return nil
	}
	return cx.channels[p]
}

// Channels returns every bound channel in pin order.
func (cx *Complex) Channels() []*Channel {
	var out []*Channel
	for _, ch := range cx.channels {
		if ch != nil {
			out = append(out, ch)
		}
	}
	return out
}

// check logs and counts a failed HAL call. Configuration continues either way.
func (cx *Complex) check(err error, format string, args ...interface{}) {
	if err == nil {
		return
	}
	cx.halErrors++
	cx.log.Errorf("HRTIM: error while "+format+": %v", append(args, err)...)
}

// bringUp initializes the peripheral once. The first caller wins; failures
// are logged and later hardware calls will surface them again.
func (cx *Complex) bringUp() {
	if cx.initialized {
		return
	}
	cx.initialized = true

	cx.check(cx.hal.Init(), "initializing HRTIM1")
	cx.check(cx.hal.StartDLLCalibration(), "calibrating HRTIM1 DLL")

	deadline := time.Now().Add(cx.dllTimeout)
	for {
		if cx.hal.DLLCalibrated() {
			cx.calibrated = true
			break
		}
		if time.Now().After(deadline) {
			cx.halErrors++
			cx.log.Errorf("HRTIM: DLL calibration did not complete within %v", cx.dllTimeout)
			break
		}
	}

	cx.resolver = NewResolver(cx.sysClock)
	cx.log.Debugf("HRTIM: initialized, system clock %d Hz, lowest frequency %d Hz", cx.sysClock, cx.resolver.Lowest())
}

// effectiveRollover applies the unit-wide mode to a channel request.
func (cx *Complex) effectiveRollover(pin Pin, t TimerUnit, requested bool) (rollover, coerced bool) {
	switch cx.units[t].mode {
	case ModeRollover:
		if !requested {
			cx.log.Warnf("HRTIM: timer %s already runs in rollover mode, pin %s is switched to rollover mode", t, pin)
			return true, true
		}
	case ModeNormal:
		if requested {
			cx.log.Warnf("HRTIM: timer %s already runs in normal mode, pin %s can't use rollover mode", t, pin)
			return false, true
		}
	}
	return requested, false
}

// configureTimer applies the timer-wide configuration. It runs once per unit.
func (cx *Complex) configureTimer(t TimerUnit, tm Timing) {
	cx.check(cx.hal.ConfigureTimeBase(t, TimeBase{
		Period:     tm.Period,
		Prescaler:  tm.Prescaler,
		Continuous: true,
	}), "configuring timer %s time base", t)

	cx.check(cx.hal.ConfigureWaveform(t, Waveform{
		UpDown:      tm.Rollover,
		Rollover:    tm.Rollover,
		Preload:     true,
		ResetUpdate: true,
	}), "configuring timer %s waveform", t)
}

// configureOutput applies the per-output configuration of ch.
func (cx *Complex) configureOutput(ch *Channel) {
	r := ch.res
	cx.check(cx.hal.ConfigureCompare(r.Timer, r.Compare, 0), "configuring timer %s %s", r.Timer, r.Compare)

	cfg := OutputConfig{Polarity: PolarityHigh, Set: EventPeriod, Reset: r.OutputReset}
	if ch.cfg.Inverted {
		cfg.Polarity = PolarityLow
	}
	if ch.cfg.Rollover {
		cfg.Set = EventNone
	}
	cx.check(cx.hal.ConfigureOutput(r.Timer, r.Output, cfg), "configuring output of pin %s", ch.pin)
	cx.check(cx.hal.ConfigureGPIO(r.GPIO()), "configuring GPIO %s", ch.pin)
}

// unitRunning recomputes whether any channel of t still drives its output.
func (cx *Complex) unitRunning(t TimerUnit) bool {
	for _, ch := range cx.channels {
		if ch != nil && ch.res.Timer == t && ch.running {
			return true
		}
	}
	return false
}
