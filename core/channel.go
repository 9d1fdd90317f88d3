package core

import (
	"fmt"

	"hrpwm/internal/mathx"
)

// Config is the requested configuration of a channel.
type Config struct {
	// Frequency in Hz, 0 selects DefaultFrequency
	Frequency uint32
	// Inverted drives the output active low
	Inverted bool
	// Rollover selects the up/down (center-aligned) counting mode
	Rollover bool
	// Deadtime is a duty fraction removed from a non-inverted output and
	// added to an inverted one, for complementary pairs
	Deadtime float32
}

// Adjust records where the effective configuration differs from the request.
type Adjust uint8

const (
	// AdjustRollover: the unit's counting mode overrode the request
	AdjustRollover Adjust = 1 << iota
	// AdjustInherited: the unit was already configured by another pin
	AdjustInherited
	// AdjustFrequency: the inherited frequency differs from the request
	AdjustFrequency
	// AdjustClamped: the request exceeded the system clock
	AdjustClamped
	// AdjustDegenerate: the period leaves no room for the duty dead zones
	AdjustDegenerate
)

// Has reports whether every flag of f is set
func (a Adjust) Has(f Adjust) bool { return a&f == f }

// Channel is one PWM output of the HRTIM.
type Channel struct {
	cx  *Complex
	pin Pin
	res Resource

	requested Config
	cfg       Config
	adjust    Adjust
	timing    Timing

	pwm     float32
	duty    uint32
	running bool
}

// NewChannel binds pin to an HRTIM output and configures it.
//
// The first channel of a Complex brings the peripheral up. The first channel
// of a timing unit resolves the frequency and configures the unit; later
// channels of that unit inherit its mode, period and prescaler. Outputs are
// left stopped: construct every channel of a unit before starting any.
//
// An unknown pin and a frequency the HRTIM cannot produce are fatal.
func NewChannel(cx *Complex, pin Pin, cfg Config) (*Channel, error) {
	res, ok := Lookup(pin)
	if !ok {
		return nil, fmt.Errorf("%w: pin %s", ErrUnknownPin, pin)
	}
	if cx.channels[pin] != nil {
		return nil, fmt.Errorf("%w: pin %s", ErrPinInUse, pin)
	}
	if cfg.Frequency == 0 {
		cfg.Frequency = DefaultFrequency
	}
	if mathx.IsNaN(cfg.Deadtime) {
		cfg.Deadtime = 0
	}

	ch := &Channel{cx: cx, pin: pin, res: res, requested: cfg}
	ch.cfg = cfg
	ch.cfg.Deadtime = mathx.Clamp(cfg.Deadtime, 0, 1)

	cx.bringUp()

	unit := &cx.units[res.Timer]
	rollover, coerced := cx.effectiveRollover(pin, res.Timer, cfg.Rollover)
	ch.cfg.Rollover = rollover
	if coerced {
		ch.adjust |= AdjustRollover
	}

	if unit.configured {
		cx.log.Warnf("HRTIM: timer %s has already been configured by pin %s and can't be set up again", res.Timer, unit.owner)
		cx.log.Warnf("HRTIM: pin %s will share frequency/period, prescaler and mode of pin %s", pin, unit.owner)
		ch.timing = unit.timing
		ch.adjust |= AdjustInherited
		if unit.timing.Target != cfg.Frequency {
			ch.adjust |= AdjustFrequency
		}
	} else {
		tm, err := cx.resolver.Resolve(cfg.Frequency, rollover)
		if err != nil {
			return nil, fmt.Errorf("pin %s: %w (use a general purpose timer instead)", pin, err)
		}
		if tm.Degenerate {
			cx.log.Warnf("HRTIM: pin %s at %d Hz leaves no room for duty-cycle dead zones", pin, tm.Target)
		}
		ch.timing = tm
	}
	if ch.timing.Clamped {
		ch.adjust |= AdjustClamped
	}
	if ch.timing.Degenerate {
		ch.adjust |= AdjustDegenerate
	}
	ch.cfg.Frequency = ch.timing.Target

	unit.mode = modeOf(rollover)
	if !unit.configured {
		cx.configureTimer(res.Timer, ch.timing)
		unit.configured = true
		unit.owner = pin
		unit.timing = ch.timing
	}
	if unit.running {
		cx.log.Warnf("HRTIM: timer %s is already running, polarity of pin %s may be wrong until it restarts", res.Timer, pin)
	}

	cx.configureOutput(ch)
	cx.channels[pin] = ch

	cx.log.Debugf("HRTIM: pin %s on timer %s: %s period=%d duty=[%d,%d] mode=%s",
		pin, res.Timer, ch.timing.Prescaler, ch.timing.Period, ch.timing.DutyMin, ch.timing.DutyMax, unit.mode)
	return ch, nil
}

// MustChannel is NewChannel for static board setup: a configuration the
// hardware cannot realize halts the caller.
func MustChannel(cx *Complex, pin Pin, cfg Config) *Channel {
	ch, err := NewChannel(cx, pin, cfg)
	if err != nil {
		panic("HRTIM: " + err.Error())
	}
	return ch
}

// Pin returns the output pin
func (c *Channel) Pin() Pin { return c.pin }

// Resource returns the hardware binding
func (c *Channel) Resource() Resource { return c.res }

// Timer returns the timing unit driving the output
func (c *Channel) Timer() TimerUnit { return c.res.Timer }

// Config returns the effective configuration.
func (c *Channel) Config() Config { return c.cfg }

// Requested returns the configuration as passed to NewChannel.
func (c *Channel) Requested() Config { return c.requested }

// Adjustments reports how the effective configuration differs from the request.
func (c *Channel) Adjustments() Adjust { return c.adjust }

// Rollover reports the effective counting mode
func (c *Channel) Rollover() bool { return c.cfg.Rollover }

// Timing returns the resolved timing of the output.
func (c *Channel) Timing() Timing { return c.timing }

// Read returns the last duty fraction written, after saturation
func (c *Channel) Read() float32 { return c.pwm }

// Duty returns the last compare value written
func (c *Channel) Duty() uint32 { return c.duty }

// Running reports whether the output is enabled
func (c *Channel) Running() bool { return c.running }

// Write sets the duty cycle as a fraction in [0, 1]; values outside are
// saturated. Zero is a true 0% duty cycle, below the hardware minimum.
// Other values are rounded to counter ticks and kept inside the dead zones.
//
// Write does not block, lock or allocate and may be called from a control loop.
func (c *Channel) Write(pwm float32) {
	if mathx.IsNaN(pwm) {
		pwm = 0
	}
	pwm = mathx.Clamp(pwm, 0, 1)
	c.pwm = pwm

	var duty uint32
	if pwm != 0 {
		if dt := c.cfg.Deadtime; dt != 0 {
			if c.cfg.Inverted {
				pwm += dt
			} else {
				pwm -= dt
			}
			pwm = mathx.Clamp(pwm, 0, 1)
		}
		duty = uint32(float32(c.timing.Period)*pwm + 0.5)
		duty = mathx.Clamp(duty, c.timing.DutyMin, c.timing.DutyMax)
	}
	c.duty = duty

	c.cx.hal.SetCompare(c.res.Timer, c.res.Compare, duty)
}

// Start arms the unit's counter and enables this output.
// Call it only once every channel sharing the unit has been constructed.
func (c *Channel) Start() {
	cx := c.cx
	cx.check(cx.hal.StartCounter(c.res.Timer), "starting timer %s counter", c.res.Timer)
	cx.check(cx.hal.StartOutputs(c.res.Output), "starting output of pin %s", c.pin)
	c.running = true
	cx.units[c.res.Timer].running = true
}

// Stop disables this output only; siblings on the same unit keep running.
func (c *Channel) Stop() {
	cx := c.cx
	cx.check(cx.hal.StopOutputs(c.res.Output), "stopping output of pin %s", c.pin)
	c.running = false
	cx.units[c.res.Timer].running = cx.unitRunning(c.res.Timer)
}
