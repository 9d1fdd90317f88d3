//go:build tinygo

package core

import "runtime/interrupt"

// disableInterrupts masks interrupts for the multi-channel sync sequence
func disableInterrupts() interrupt.State {
	return interrupt.Disable()
}

// restoreInterrupts restores the interrupt state
func restoreInterrupts(state interrupt.State) {
	interrupt.Restore(state)
}
