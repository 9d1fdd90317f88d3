package core

import "time"

// TimerUnit identifies one of the six HRTIM1 timing units (A..F).
type TimerUnit uint8

const (
	TimerA TimerUnit = iota
	TimerB
	TimerC
	TimerD
	TimerE
	TimerF

	NumTimerUnits = 6
)

var timerNames = [NumTimerUnits]string{"A", "B", "C", "D", "E", "F"}

func (t TimerUnit) String() string {
	if t >= NumTimerUnits {
		return "?"
	}
	return timerNames[t]
}

// Valid reports whether t names an existing timing unit.
func (t TimerUnit) Valid() bool {
	return t < NumTimerUnits
}

// ResetBit returns the software counter reset bit of the unit (HRTIM_CR2 TxRST).
func (t TimerUnit) ResetBit() TimerReset {
	return TimerReset(1) << (9 + uint(t))
}

// Output is a bitmask of HRTIM outputs, laid out like HRTIM_OENR:
// bit 2*unit is output 1 of that unit, bit 2*unit+1 is output 2.
type Output uint32

const (
	OutputTA1 Output = 1 << iota
	OutputTA2
	OutputTB1
	OutputTB2
	OutputTC1
	OutputTC2
	OutputTD1
	OutputTD2
	OutputTE1
	OutputTE2
	OutputTF1
	OutputTF2
)

// TimerReset is a bitmask of counter software-reset requests (HRTIM_CR2 layout).
type TimerReset uint32

const (
	ResetTimerA TimerReset = 1 << (9 + iota)
	ResetTimerB
	ResetTimerC
	ResetTimerD
	ResetTimerE
	ResetTimerF
)

// CompareUnit selects a compare register of a timing unit.
type CompareUnit uint8

const (
	Compare1 CompareUnit = 1 << iota
	Compare2
	Compare3
	Compare4
)

func (c CompareUnit) String() string {
	switch c {
	case Compare1:
		return "CMP1"
	case Compare2:
		return "CMP2"
	case Compare3:
		return "CMP3"
	case Compare4:
		return "CMP4"
	}
	return "CMP?"
}

// OutputEvent is a timer event that can set or reset an output (HRTIM_SETxyR layout).
type OutputEvent uint32

const (
	EventNone     OutputEvent = 0
	EventPeriod   OutputEvent = 1 << 2
	EventCompare1 OutputEvent = 1 << 3
	EventCompare2 OutputEvent = 1 << 4
	EventCompare3 OutputEvent = 1 << 5
	EventCompare4 OutputEvent = 1 << 6
)

// Polarity of an output's active level.
type Polarity uint8

const (
	PolarityHigh Polarity = iota
	PolarityLow
)

// GPIOPort identifies a GPIO bank.
type GPIOPort uint8

const (
	PortA GPIOPort = iota
	PortB
	PortC
	PortD
	PortE
	PortF
	PortG
)

func (p GPIOPort) String() string {
	if p > PortG {
		return "P?"
	}
	return "P" + string(rune('A'+p))
}

// TimeBase is the timer-wide counter configuration.
type TimeBase struct {
	Period     uint32
	Repetition uint32
	Prescaler  Prescaler
	Continuous bool
}

// Waveform is the timer-wide waveform control.
type Waveform struct {
	// UpDown selects the triangular (rollover) counting mode.
	UpDown bool
	// Rollover applies the rollover event options (fault/burst/output on both
	// edges, ADC on crest). Only meaningful with UpDown.
	Rollover bool
	// Preload buffers register writes until the next update event.
	Preload bool
	// ResetUpdate triggers an update on every counter reset.
	ResetUpdate bool
}

// OutputConfig is the per-output waveform configuration.
type OutputConfig struct {
	Polarity Polarity
	Set      OutputEvent
	Reset    OutputEvent
}

// GPIOConfig routes a pin to its HRTIM alternate function.
type GPIOConfig struct {
	Port    GPIOPort
	Pin     uint8
	AltFunc uint8
}

// ADCTriggerConfig routes a timer event to one of the HRTIM ADC triggers.
type ADCTriggerConfig struct {
	Trigger    uint8
	Source     TimerUnit
	Update     TimerUnit
	Postscaler uint8
}

// HAL is the HRTIM peripheral interface that core code uses.
// Platform-specific implementations handle actual register access.
//
// Every configuration call reports failure through its error; core logs
// those and carries on. SetCompare sits on the duty-cycle hot path and
// must not block or allocate.
type HAL interface {
	// Init enables the HRTIM clock and initializes the peripheral
	Init() error

	// StartDLLCalibration starts the delay-locked loop calibration
	StartDLLCalibration() error

	// DLLCalibrated reports whether the DLL has locked
	DLLCalibrated() bool

	ConfigureTimeBase(t TimerUnit, tb TimeBase) error
	ConfigureWaveform(t TimerUnit, wf Waveform) error
	ConfigureCompare(t TimerUnit, cu CompareUnit, value uint32) error
	ConfigureOutput(t TimerUnit, out Output, cfg OutputConfig) error
	ConfigureGPIO(g GPIOConfig) error
	ConfigureADCTrigger(cfg ADCTriggerConfig) error

	// StartCounter arms the unit's counter. Starting a running counter is a no-op.
	StartCounter(t TimerUnit) error

	// StartOutputs enables every output in the mask
	StartOutputs(outs Output) error

	// StopOutputs disables every output in the mask
	StopOutputs(outs Output) error

	// ResetCounters issues one combined software reset
	ResetCounters(resets TimerReset) error

	// SetCompare writes a compare register
	SetCompare(t TimerUnit, cu CompareUnit, value uint32)
}

// DefaultDLLTimeout bounds the calibration poll during bring-up.
const DefaultDLLTimeout = 10 * time.Millisecond
