// Package hrtim drives the STM32G474 HRTIM1 registers directly.
package hrtim

import (
	"errors"
	"fmt"

	"hrpwm/core"
)

var (
	errInvalidGPIO = errors.New("hrtim: invalid GPIO routing")
	errADCTrigger  = errors.New("hrtim: only ADC trigger 1 is supported")
)

// Peripheral base addresses
const (
	hrtimBase  = 0x40016800
	commonBase = hrtimBase + 0x380
	rccBase    = 0x40021000
	gpioBase   = 0x48000000
)

// Master timer
const (
	mcr       = hrtimBase + 0x00
	mcrTACEN  = 17 // counter enable of timer A, B..F follow
	timerSize = 0x80
)

// Timing unit register offsets
const (
	timCR    = 0x00
	timPER   = 0x14
	timREP   = 0x18
	timCMP1  = 0x1C
	timCMP2  = 0x24
	timCMP3  = 0x28
	timCMP4  = 0x2C
	timSET1  = 0x3C
	timRST1  = 0x40
	timSET2  = 0x44
	timRST2  = 0x48
	timOUT   = 0x64
	timCR2   = 0x6C
	crCKPSC  = 0x7
	crCONT   = 1 << 3
	crRSTU   = 1 << 18
	crPREEN  = 1 << 27
	cr2UDM   = 1 << 4
	cr2ROM   = 0x3 << 6
	cr2OUTRO = 0x3 << 8
	cr2ADROM = 0x3 << 10
	cr2BMROM = 0x3 << 12
	cr2FEROM = 0x3 << 14
	adromPER = 0x2 << 10 // ADC trigger on the crest only
	outPOL1  = 1 << 1
	outPOL2  = 1 << 17
)

// Common block
const (
	comCR2    = commonBase + 0x04
	comISR    = commonBase + 0x08
	comOENR   = commonBase + 0x14
	comODISR  = commonBase + 0x18
	comADC1R  = commonBase + 0x3C
	comDLLCR  = commonBase + 0x4C
	comADCUR  = commonBase + 0x7C
	comADCPS1 = commonBase + 0x80

	isrDLLRDY   = 1 << 16
	dllCAL      = 1 << 0
	dllCALEN    = 1 << 1
	dllCALRTE3  = 0x3 << 2
	adcPSCMask  = 0x1F
	adcUSRCMask = 0x7
)

// RCC
const (
	rccAHB2ENR  = rccBase + 0x4C
	rccAPB2ENR  = rccBase + 0x60
	apb2HRTIMEN = 1 << 26
)

// GPIO register offsets
const (
	gpioMODER   = 0x00
	gpioOSPEEDR = 0x08
	gpioAFRL    = 0x20
	gpioAFRH    = 0x24
	modeAF      = 0x2
	speedVHigh  = 0x3
)

func timerReg(t core.TimerUnit, off uintptr) uintptr {
	return hrtimBase + timerSize*(uintptr(t)+1) + off
}

func compareOffset(cu core.CompareUnit) (uintptr, error) {
	switch cu {
	case core.Compare1:
		return timCMP1, nil
	case core.Compare2:
		return timCMP2, nil
	case core.Compare3:
		return timCMP3, nil
	case core.Compare4:
		return timCMP4, nil
	}
	return 0, fmt.Errorf("hrtim: invalid compare unit %d", cu)
}

// outputSlot locates a single output of timer t: its set and reset
// registers and its polarity bit in OUTxR.
func outputSlot(t core.TimerUnit, out core.Output) (set, rst uintptr, pol uint32, err error) {
	switch out {
	case core.OutputTA1 << (2 * uint(t)):
		return timSET1, timRST1, outPOL1, nil
	case core.OutputTA2 << (2 * uint(t)):
		return timSET2, timRST2, outPOL2, nil
	}
	return 0, 0, 0, fmt.Errorf("hrtim: output %#x does not belong to timer %s", uint32(out), t)
}

// adc1PeriodBit is the HRTIM_ADC1R bit routing the period event of t.
// Timer F events reach ADC trigger 1 through ADCER only.
func adc1PeriodBit(t core.TimerUnit) (uint32, error) {
	bits := [...]uint32{1 << 13, 1 << 18, 1 << 22, 1 << 26, 1 << 30}
	if int(t) >= len(bits) {
		return 0, fmt.Errorf("hrtim: timer %s period cannot trigger ADC1", t)
	}
	return bits[t], nil
}

func gpioReg(port core.GPIOPort, off uintptr) uintptr {
	return gpioBase + 0x400*uintptr(port) + off
}

// afField returns the AFR register and bit position of a pin's 4-bit field.
func afField(pin uint8) (off uintptr, pos uint8) {
	if pin < 8 {
		return gpioAFRL, pin * 4
	}
	return gpioAFRH, (pin - 8) * 4
}

func validTimer(t core.TimerUnit) error {
	if !t.Valid() {
		return fmt.Errorf("hrtim: invalid timer %d", t)
	}
	return nil
}
