// Package sim is an in-memory HRTIM1 model implementing core.HAL. It keeps
// the register-level state the driver touches so host tools and tests can
// inspect what a board would be doing.
package sim

import (
	"fmt"
	"sync"

	"hrpwm/core"
)

// HAL operation names, used for fault injection and call counting.
const (
	OpInit          = "init"
	OpDLLStart      = "dll_start"
	OpTimeBase      = "time_base"
	OpWaveform      = "waveform"
	OpCompareConfig = "compare_config"
	OpOutputConfig  = "output_config"
	OpGPIO          = "gpio"
	OpADCTrigger    = "adc_trigger"
	OpStartCounter  = "start_counter"
	OpStartOutputs  = "start_outputs"
	OpStopOutputs   = "stop_outputs"
	OpResetCounters = "reset_counters"
	OpSetCompare    = "set_compare"
)

// Timer is the state of one timing unit.
type Timer struct {
	TimeBase core.TimeBase
	Waveform core.Waveform
	Compare  [4]uint32 // CMP1..CMP4
	Running  bool

	TimeBaseWrites int
	WaveformWrites int
	Resets         int
	// LastReset is the sequence number of the ResetCounters call that last
	// reset this unit; units reset together share it.
	LastReset uint64
}

// HRTIM is a simulated HRTIM1. It is safe for concurrent use.
type HRTIM struct {
	mu sync.Mutex

	initialized   bool
	dllStarted    bool
	dllPolls      int
	dllReadyAfter int

	timers   [core.NumTimerUnits]Timer
	outputs  map[core.Output]core.OutputConfig
	enabled  core.Output
	gpio     []core.GPIOConfig
	adc      *core.ADCTriggerConfig
	resetSeq uint64

	faults map[string]error
	counts map[string]int
	calls  []string
}

// New returns a simulated HRTIM whose DLL locks on the first poll.
func New() *HRTIM {
	return &HRTIM{
		outputs: make(map[core.Output]core.OutputConfig),
		faults:  make(map[string]error),
		counts:  make(map[string]int),
	}
}

// FailOn makes every later call of op return err. A nil err clears the fault.
func (h *HRTIM) FailOn(op string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err == nil {
		delete(h.faults, op)
		return
	}
	h.faults[op] = err
}

// SetDLLReadyAfter makes the DLL lock after n polls; a negative n never locks.
func (h *HRTIM) SetDLLReadyAfter(n int) {
	h.mu.Lock()
	h.dllReadyAfter = n
	h.mu.Unlock()
}

// record logs a call and returns the injected fault for op. Callers hold mu.
func (h *HRTIM) record(op, detail string) error {
	h.counts[op]++
	if detail != "" {
		h.calls = append(h.calls, op+" "+detail)
	} else {
		h.calls = append(h.calls, op)
	}
	return h.faults[op]
}

func compareIndex(cu core.CompareUnit) (int, bool) {
	switch cu {
	case core.Compare1:
		return 0, true
	case core.Compare2:
		return 1, true
	case core.Compare3:
		return 2, true
	case core.Compare4:
		return 3, true
	}
	return 0, false
}

func (h *HRTIM) Init() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.record(OpInit, ""); err != nil {
		return err
	}
	h.initialized = true
	return nil
}

func (h *HRTIM) StartDLLCalibration() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.record(OpDLLStart, ""); err != nil {
		return err
	}
	h.dllStarted = true
	h.dllPolls = 0
	return nil
}

// DLLCalibrated is not recorded in the call log; it is polled in a loop.
func (h *HRTIM) DLLCalibrated() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.dllStarted || h.dllReadyAfter < 0 {
		return false
	}
	h.dllPolls++
	return h.dllPolls > h.dllReadyAfter
}

func (h *HRTIM) ConfigureTimeBase(t core.TimerUnit, tb core.TimeBase) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !t.Valid() {
		return fmt.Errorf("sim: invalid timer %d", t)
	}
	if err := h.record(OpTimeBase, fmt.Sprintf("%s period=%d prescaler=%s", t, tb.Period, tb.Prescaler)); err != nil {
		return err
	}
	h.timers[t].TimeBase = tb
	h.timers[t].TimeBaseWrites++
	return nil
}

func (h *HRTIM) ConfigureWaveform(t core.TimerUnit, wf core.Waveform) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !t.Valid() {
		return fmt.Errorf("sim: invalid timer %d", t)
	}
	if err := h.record(OpWaveform, fmt.Sprintf("%s updown=%t", t, wf.UpDown)); err != nil {
		return err
	}
	h.timers[t].Waveform = wf
	h.timers[t].WaveformWrites++
	return nil
}

func (h *HRTIM) ConfigureCompare(t core.TimerUnit, cu core.CompareUnit, value uint32) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	idx, ok := compareIndex(cu)
	if !t.Valid() || !ok {
		return fmt.Errorf("sim: invalid compare %s/%s", t, cu)
	}
	if err := h.record(OpCompareConfig, fmt.Sprintf("%s %s=%d", t, cu, value)); err != nil {
		return err
	}
	h.timers[t].Compare[idx] = value
	return nil
}

func (h *HRTIM) ConfigureOutput(t core.TimerUnit, out core.Output, cfg core.OutputConfig) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.record(OpOutputConfig, fmt.Sprintf("%s %#x", t, uint32(out))); err != nil {
		return err
	}
	h.outputs[out] = cfg
	return nil
}

func (h *HRTIM) ConfigureGPIO(g core.GPIOConfig) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.record(OpGPIO, fmt.Sprintf("%s%d af%d", g.Port, g.Pin, g.AltFunc)); err != nil {
		return err
	}
	h.gpio = append(h.gpio, g)
	return nil
}

func (h *HRTIM) ConfigureADCTrigger(cfg core.ADCTriggerConfig) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.record(OpADCTrigger, fmt.Sprintf("trig%d src=%s", cfg.Trigger, cfg.Source)); err != nil {
		return err
	}
	h.adc = &cfg
	return nil
}

func (h *HRTIM) StartCounter(t core.TimerUnit) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !t.Valid() {
		return fmt.Errorf("sim: invalid timer %d", t)
	}
	if err := h.record(OpStartCounter, t.String()); err != nil {
		return err
	}
	h.timers[t].Running = true
	return nil
}

func (h *HRTIM) StartOutputs(outs core.Output) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.record(OpStartOutputs, fmt.Sprintf("%#x", uint32(outs))); err != nil {
		return err
	}
	h.enabled |= outs
	return nil
}

func (h *HRTIM) StopOutputs(outs core.Output) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.record(OpStopOutputs, fmt.Sprintf("%#x", uint32(outs))); err != nil {
		return err
	}
	h.enabled &^= outs
	return nil
}

func (h *HRTIM) ResetCounters(resets core.TimerReset) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.record(OpResetCounters, fmt.Sprintf("%#x", uint32(resets))); err != nil {
		return err
	}
	h.resetSeq++
	for t := core.TimerA; t < core.NumTimerUnits; t++ {
		if resets&t.ResetBit() != 0 {
			h.timers[t].Resets++
			h.timers[t].LastReset = h.resetSeq
		}
	}
	return nil
}

// SetCompare only counts the call, it is on the duty-cycle hot path.
func (h *HRTIM) SetCompare(t core.TimerUnit, cu core.CompareUnit, value uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	idx, ok := compareIndex(cu)
	if !t.Valid() || !ok {
		return
	}
	h.counts[OpSetCompare]++
	h.timers[t].Compare[idx] = value
}

// Initialized reports whether Init succeeded
func (h *HRTIM) Initialized() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.initialized
}

// Timer returns a copy of a unit's state
func (h *HRTIM) Timer(t core.TimerUnit) Timer {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !t.Valid() {
		return Timer{}
	}
	return h.timers[t]
}

// CompareValue returns the compare register of a unit
func (h *HRTIM) CompareValue(t core.TimerUnit, cu core.CompareUnit) uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	idx, ok := compareIndex(cu)
	if !t.Valid() || !ok {
		return 0
	}
	return h.timers[t].Compare[idx]
}

// OutputConfig returns the configuration written for an output
func (h *HRTIM) OutputConfig(out core.Output) (core.OutputConfig, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cfg, ok := h.outputs[out]
	return cfg, ok
}

// Enabled returns the output-enable mask
func (h *HRTIM) Enabled() core.Output {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.enabled
}

// GPIO returns every alternate-function routing applied, in order
func (h *HRTIM) GPIO() []core.GPIOConfig {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]core.GPIOConfig(nil), h.gpio...)
}

// ADCTrigger returns the ADC trigger routing, if configured
func (h *HRTIM) ADCTrigger() (core.ADCTriggerConfig, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.adc == nil {
		return core.ADCTriggerConfig{}, false
	}
	return *h.adc, true
}

// Count returns how many times op was called
func (h *HRTIM) Count(op string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts[op]
}

// Calls returns the call log, SetCompare and DLL polls excluded
func (h *HRTIM) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

var _ core.HAL = (*HRTIM)(nil)
