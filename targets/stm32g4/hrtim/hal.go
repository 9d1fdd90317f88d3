//go:build stm32g4

package hrtim

import (
	"runtime/volatile"
	"unsafe"

	"hrpwm/core"
)

func reg(addr uintptr) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(addr))
}

// HAL is core.HAL on the HRTIM1 registers.
type HAL struct{}

func New() *HAL {
	return &HAL{}
}

func (h *HAL) Init() error {
	reg(rccAPB2ENR).SetBits(apb2HRTIMEN)
	// read back so the clock is running before the first register access
	_ = reg(rccAPB2ENR).Get()
	return nil
}

func (h *HAL) StartDLLCalibration() error {
	reg(comDLLCR).Set(dllCAL | dllCALEN | dllCALRTE3)
	return nil
}

func (h *HAL) DLLCalibrated() bool {
	return reg(comISR).HasBits(isrDLLRDY)
}

func (h *HAL) ConfigureTimeBase(t core.TimerUnit, tb core.TimeBase) error {
	if err := validTimer(t); err != nil {
		return err
	}
	reg(timerReg(t, timPER)).Set(tb.Period)
	reg(timerReg(t, timREP)).Set(tb.Repetition)

	cr := reg(timerReg(t, timCR))
	v := cr.Get()&^(crCKPSC|crCONT) | uint32(tb.Prescaler)&crCKPSC
	if tb.Continuous {
		v |= crCONT
	}
	cr.Set(v)
	return nil
}

func (h *HAL) ConfigureWaveform(t core.TimerUnit, wf core.Waveform) error {
	if err := validTimer(t); err != nil {
		return err
	}
	cr := reg(timerReg(t, timCR))
	v := cr.Get() &^ (crPREEN | crRSTU)
	if wf.Preload {
		v |= crPREEN
	}
	if wf.ResetUpdate {
		v |= crRSTU
	}
	cr.Set(v)

	// rollover options left at 00 act on both crest and valley
	cr2 := reg(timerReg(t, timCR2))
	v = cr2.Get() &^ (cr2UDM | cr2ROM | cr2OUTRO | cr2ADROM | cr2BMROM | cr2FEROM)
	if wf.UpDown {
		v |= cr2UDM
	}
	if wf.Rollover {
		v |= adromPER
	}
	cr2.Set(v)
	return nil
}

func (h *HAL) ConfigureCompare(t core.TimerUnit, cu core.CompareUnit, value uint32) error {
	if err := validTimer(t); err != nil {
		return err
	}
	off, err := compareOffset(cu)
	if err != nil {
		return err
	}
	reg(timerReg(t, off)).Set(value)
	return nil
}

func (h *HAL) ConfigureOutput(t core.TimerUnit, out core.Output, cfg core.OutputConfig) error {
	if err := validTimer(t); err != nil {
		return err
	}
	set, rst, pol, err := outputSlot(t, out)
	if err != nil {
		return err
	}
	reg(timerReg(t, set)).Set(uint32(cfg.Set))
	reg(timerReg(t, rst)).Set(uint32(cfg.Reset))
	if cfg.Polarity == core.PolarityLow {
		reg(timerReg(t, timOUT)).SetBits(pol)
	} else {
		reg(timerReg(t, timOUT)).ClearBits(pol)
	}
	return nil
}

func (h *HAL) ConfigureGPIO(g core.GPIOConfig) error {
	if g.Port > core.PortG || g.Pin > 15 || g.AltFunc > 15 {
		return errInvalidGPIO
	}
	reg(rccAHB2ENR).SetBits(1 << uint32(g.Port))
	_ = reg(rccAHB2ENR).Get()

	pos := uint8(g.Pin) * 2
	reg(gpioReg(g.Port, gpioOSPEEDR)).ReplaceBits(speedVHigh, 0x3, pos)
	off, afPos := afField(g.Pin)
	reg(gpioReg(g.Port, off)).ReplaceBits(uint32(g.AltFunc), 0xF, afPos)
	reg(gpioReg(g.Port, gpioMODER)).ReplaceBits(modeAF, 0x3, pos)
	return nil
}

func (h *HAL) ConfigureADCTrigger(cfg core.ADCTriggerConfig) error {
	if cfg.Trigger != 1 {
		return errADCTrigger
	}
	bit, err := adc1PeriodBit(cfg.Source)
	if err != nil {
		return err
	}
	reg(comADC1R).SetBits(bit)
	// update source: 0 is the master timer, 1 timer A
	reg(comADCUR).ReplaceBits(uint32(cfg.Update)+1, adcUSRCMask, 0)
	reg(comADCPS1).ReplaceBits(uint32(cfg.Postscaler), adcPSCMask, 0)
	return nil
}

func (h *HAL) StartCounter(t core.TimerUnit) error {
	if err := validTimer(t); err != nil {
		return err
	}
	reg(mcr).SetBits(1 << (mcrTACEN + uint32(t)))
	return nil
}

func (h *HAL) StartOutputs(outs core.Output) error {
	reg(comOENR).Set(uint32(outs))
	return nil
}

func (h *HAL) StopOutputs(outs core.Output) error {
	reg(comODISR).Set(uint32(outs))
	return nil
}

func (h *HAL) ResetCounters(resets core.TimerReset) error {
	reg(comCR2).Set(uint32(resets))
	return nil
}

func (h *HAL) SetCompare(t core.TimerUnit, cu core.CompareUnit, value uint32) {
	off, err := compareOffset(cu)
	if err != nil || !t.Valid() {
		return
	}
	reg(timerReg(t, off)).Set(value)
}

var _ core.HAL = (*HAL)(nil)
