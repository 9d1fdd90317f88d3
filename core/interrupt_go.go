//go:build !tinygo

package core

type interruptState uintptr

// disableInterrupts is a no-op on regular Go (host tools and tests)
func disableInterrupts() interruptState {
	return 0
}

func restoreInterrupts(interruptState) {}
