package core

import (
	"errors"
	"fmt"
	"math"
)

const (
	// DefaultFrequency is the PWM frequency used when none is requested
	DefaultFrequency = 42000

	// DefaultSystemClock is the STM32G474 core clock
	DefaultSystemClock = 170000000

	counterMax = 0xFFFF
)

var ErrFrequencyTooLow = errors.New("frequency below HRTIM minimum")

// Prescaler is the HRTIM clock prescaler ratio (CKPSC), finest first.
type Prescaler uint8

const (
	PrescalerMul32 Prescaler = iota // 184ps resolution at 170MHz
	PrescalerMul16                  // 368ps
	PrescalerMul8                   // 735ps
	PrescalerMul4                   // 1.47ns
	PrescalerMul2                   // 2.94ns
	PrescalerDiv1                   // 5.88ns
	PrescalerDiv2                   // 11.76ns
	PrescalerDiv4                   // 23.53ns

	NumPrescalers = 8
)

var prescalerNames = [NumPrescalers]string{"MUL32", "MUL16", "MUL8", "MUL4", "MUL2", "DIV1", "DIV2", "DIV4"}

func (p Prescaler) String() string {
	if p >= NumPrescalers {
		return "CKPSC?"
	}
	return prescalerNames[p]
}

// TickRate returns the counter clock for a given system clock.
func (p Prescaler) TickRate(sysClock uint32) uint64 {
	return uint64(sysClock) * 32 >> uint(p)
}

// Hardware dead zones per prescaler, RM0440 table 214.
var dutyBounds = [NumPrescalers]struct{ min, max uint32 }{
	PrescalerMul32: {0x0060, 0xFFDF},
	PrescalerMul16: {0x0030, 0xFFEF},
	PrescalerMul8:  {0x0018, 0xFFF7},
	PrescalerMul4:  {0x000C, 0xFFFB},
	PrescalerMul2:  {0x0006, 0xFFFD},
	PrescalerDiv1:  {0x0003, 0xFFFD},
	PrescalerDiv2:  {0x0003, 0xFFFD},
	PrescalerDiv4:  {0x0003, 0xFFFD},
}

// Timing is the hardware representation of a PWM frequency.
type Timing struct {
	Target    uint32 // requested frequency after clamping to the system clock
	Floor     uint32 // minimum frequency of the chosen prescaler
	Prescaler Prescaler
	Period    uint32 // counter ticks; half the cycle in rollover mode
	DutyMin   uint32
	DutyMax   uint32
	Rollover  bool

	// Clamped is set when the request exceeded the system clock.
	Clamped bool
	// Degenerate is set when the period is too short for the dead zones.
	Degenerate bool
}

// Frequency decodes the period back to Hz.
func (t Timing) Frequency() float64 {
	ticks := float64(t.Period)
	if t.Rollover {
		ticks *= 2
	}
	if ticks == 0 {
		return 0
	}
	return float64(counterMax) * float64(t.Floor) / ticks
}

// Resolver maps frequencies to prescaler, period and duty bounds for a
// fixed system clock.
type Resolver struct {
	sysClock uint32
	minFreq  [NumPrescalers]uint32
}

// NewResolver precomputes the minimum frequency of every prescaler, at 1%
// precision (RM0440 table 213).
func NewResolver(sysClock uint32) *Resolver {
	if sysClock == 0 {
		sysClock = DefaultSystemClock
	}
	r := &Resolver{sysClock: sysClock}
	for i := range r.minFreq {
		r.minFreq[i] = uint32(uint64(sysClock/100) * uint64(32*100>>uint(i)) / counterMax)
	}
	return r
}

// SystemClock returns the clock the table was built for
func (r *Resolver) SystemClock() uint32 {
	return r.sysClock
}

// MinFrequency returns the lowest frequency reachable with p
func (r *Resolver) MinFrequency(p Prescaler) uint32 {
	if p >= NumPrescalers {
		return 0
	}
	return r.minFreq[p]
}

// Lowest returns the lowest frequency the HRTIM can produce at all
func (r *Resolver) Lowest() uint32 {
	return r.minFreq[PrescalerDiv4]
}

// Resolve picks the finest prescaler able to produce freq and derives the
// period and duty bounds. A frequency below Lowest cannot be produced by the
// HRTIM and yields ErrFrequencyTooLow.
func (r *Resolver) Resolve(freq uint32, rollover bool) (Timing, error) {
	t := Timing{Target: freq, Rollover: rollover}
	if t.Target > r.sysClock {
		t.Target = r.sysClock
		t.Clamped = true
	}

	found := false
	for p := PrescalerMul32; p < NumPrescalers; p++ {
		if t.Target >= r.minFreq[p] {
			t.Prescaler = p
			found = true
			break
		}
	}
	if !found || t.Target == 0 {
		return Timing{}, fmt.Errorf("%w: %d Hz requested, minimum is %d Hz", ErrFrequencyTooLow, freq, r.Lowest())
	}
	t.Floor = r.minFreq[t.Prescaler]

	period := uint32(math.Round(float64(counterMax) / float64(t.Target) * float64(t.Floor)))
	// Keep the period even so rollover halves it exactly.
	if period%2 != 0 {
		if period == counterMax {
			period--
		} else {
			period++
		}
	}
	if rollover {
		period /= 2
	}
	t.Period = period

	t.DutyMin = dutyBounds[t.Prescaler].min
	t.DutyMax = dutyBounds[t.Prescaler].max
	if t.DutyMax > t.Period {
		// DutyMin is three HRTIM clock periods; rollover spends two of them per cycle.
		margin := t.DutyMin / 3
		if rollover {
			margin *= 2
		}
		if margin > t.Period {
			t.DutyMax = 0
		} else {
			t.DutyMax = t.Period - margin
		}
	}
	if t.DutyMin > t.DutyMax {
		t.DutyMin = t.DutyMax
		t.Degenerate = true
	}
	return t, nil
}
