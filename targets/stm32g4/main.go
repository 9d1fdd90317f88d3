//go:build stm32g4

// Firmware serving the HRTIM1 of an STM32G474 to a host over the default
// UART. The host runs the driver core through the bridge protocol.
package main

import (
	"context"
	"machine"
	"time"

	"hrpwm/bridge"
	"hrpwm/targets/stm32g4/hrtim"
)

const baudRate = 115200

func main() {
	uart := machine.DefaultUART
	uart.Configure(machine.UARTConfig{BaudRate: baudRate})

	hal := hrtim.New()
	for {
		// Serve only returns on a UART error; start over with a fresh link
		if err := bridge.Serve(context.Background(), uart, hal, nil); err != nil {
			time.Sleep(10 * time.Millisecond)
		}
	}
}
