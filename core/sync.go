package core

// SyncWith restarts c and others in phase: their outputs are stopped, their
// counters reset together and the outputs restarted, with interrupts masked
// for the whole sequence. Channels sharing one counter are already in phase,
// so a set on a single unit is left untouched.
//
// Every channel must have been started; the hardware effect is unspecified
// otherwise.
func (c *Channel) SyncWith(others ...*Channel) {
	cx := c.cx
	outputs := c.res.Output
	resets := c.res.CounterReset
	shared := true
	started := c.running

	for _, o := range others {
		if o == nil {
			continue
		}
		if o.cx != cx {
			cx.log.Errorf("HRTIM: pin %s and pin %s belong to different HRTIM complexes, not synced", c.pin, o.pin)
			return
		}
		if o.res.Timer != c.res.Timer {
			shared = false
		}
		outputs |= o.res.Output
		resets |= o.res.CounterReset
		started = started && o.running
	}
	if shared {
		return
	}
	if !started {
		cx.log.Warnf("HRTIM: syncing pin %s with outputs that were never started", c.pin)
	}

	state := disableInterrupts()
	errStop := cx.hal.StopOutputs(outputs)
	errReset := cx.hal.ResetCounters(resets)
	errStart := cx.hal.StartOutputs(outputs)
	restoreInterrupts(state)

	cx.check(errStop, "stopping outputs %#x", uint32(outputs))
	cx.check(errReset, "resetting counters %#x", uint32(resets))
	cx.check(errStart, "starting outputs %#x", uint32(outputs))

	c.running = true
	cx.units[c.res.Timer].running = true
	for _, o := range others {
		if o != nil {
			o.running = true
			cx.units[o.res.Timer].running = true
		}
	}
}
