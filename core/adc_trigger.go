package core

const (
	// ADCTrigger1 is the HRTIM ADC trigger routed by EnableADCTrigger
	ADCTrigger1 = 1

	// ADCTriggerPostscaler fires the ADC on every 10th period event
	ADCTriggerPostscaler = 10
)

// EnableADCTrigger routes this channel's period event to ADC trigger 1, so
// conversions stay aligned with the switching edges. The trigger is shared by
// the whole complex: only the first call configures it.
func (c *Channel) EnableADCTrigger() bool {
	cx := c.cx
	if cx.adcTrigger != nil {
		cx.log.Warnf("HRTIM: ADC trigger already driven by pin %s, pin %s ignored", cx.adcTrigger.pin, c.pin)
		return false
	}
	cx.check(cx.hal.ConfigureADCTrigger(ADCTriggerConfig{
		Trigger:    ADCTrigger1,
		Source:     c.res.Timer,
		Update:     c.res.Timer,
		Postscaler: ADCTriggerPostscaler,
	}), "configuring ADC trigger from timer %s", c.res.Timer)
	cx.adcTrigger = c
	return true
}

// ADCTriggerSource returns the pin driving the ADC trigger, if any.
func (cx *Complex) ADCTriggerSource() (Pin, bool) {
	if cx.adcTrigger == nil {
		return PinNone, false
	}
	return cx.adcTrigger.pin, true
}
