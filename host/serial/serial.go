// Package serial opens the UART link to an HRTIM board.
package serial

import "io"

// Port is an open serial link.
type Port interface {
	io.ReadWriteCloser

	// Flush discards data received but not yet read
	Flush() error
}

// Config holds serial port settings.
type Config struct {
	Device string // "/dev/ttyUSB0", "COM3"
	Baud   int
	// ReadTimeout in milliseconds, 0 blocks
	ReadTimeout int
}

// DefaultBaud matches the board firmware's UART setting.
const DefaultBaud = 115200

// DefaultConfig returns the settings the board firmware expects.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 100,
	}
}
