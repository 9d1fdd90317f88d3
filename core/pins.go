package core

import "strings"

// Pin identifies an HRTIM1-capable output pin of the STM32G474.
type Pin uint8

const (
	PinNone Pin = iota
	PA8         // TA1
	PA9         // TA2
	PA10        // TB1
	PA11        // TB2
	PB12        // TC1
	PB13        // TC2
	PB14        // TD1
	PB15        // TD2
	PC8         // TE1
	PC9         // TE2
	PC6         // TF1
	PC7         // TF2

	numPins
)

// Board aliases of the ZEST half-bridge actuator board.
const (
	PWM1Out = PB12
	PWM2Out = PB14
	PWM3Out = PC6
	DIO7    = PB15 // shares timer D with PWM2Out
	DIO8    = PC7  // shares timer F with PWM3Out
)

// Resource is the hardware binding of one output pin.
type Resource struct {
	Timer        TimerUnit
	Compare      CompareUnit
	Output       Output
	CounterReset TimerReset  // software reset bit of Timer
	OutputReset  OutputEvent // compare event that resets the output
	Port         GPIOPort
	PortPin      uint8
	AltFunc      uint8
}

// GPIO returns the alternate-function routing of the pin.
func (r Resource) GPIO() GPIOConfig {
	return GPIOConfig{Port: r.Port, Pin: r.PortPin, AltFunc: r.AltFunc}
}

const (
	af3  = 3
	af13 = 13
)

// Output 1 of a unit compares on CMP1, output 2 on CMP3. Timer F output 2
// compares on CMP2, matching the board wiring of DIO8.
var resources = [numPins]Resource{
	PA8:  {TimerA, Compare1, OutputTA1, ResetTimerA, EventCompare1, PortA, 8, af13},
	PA9:  {TimerA, Compare3, OutputTA2, ResetTimerA, EventCompare3, PortA, 9, af13},
	PA10: {TimerB, Compare1, OutputTB1, ResetTimerB, EventCompare1, PortA, 10, af13},
	PA11: {TimerB, Compare3, OutputTB2, ResetTimerB, EventCompare3, PortA, 11, af13},
	PB12: {TimerC, Compare1, OutputTC1, ResetTimerC, EventCompare1, PortB, 12, af13},
	PB13: {TimerC, Compare3, OutputTC2, ResetTimerC, EventCompare3, PortB, 13, af13},
	PB14: {TimerD, Compare1, OutputTD1, ResetTimerD, EventCompare1, PortB, 14, af13},
	PB15: {TimerD, Compare3, OutputTD2, ResetTimerD, EventCompare3, PortB, 15, af13},
	PC8:  {TimerE, Compare1, OutputTE1, ResetTimerE, EventCompare1, PortC, 8, af3},
	PC9:  {TimerE, Compare3, OutputTE2, ResetTimerE, EventCompare3, PortC, 9, af3},
	PC6:  {TimerF, Compare1, OutputTF1, ResetTimerF, EventCompare1, PortC, 6, af13},
	PC7:  {TimerF, Compare2, OutputTF2, ResetTimerF, EventCompare2, PortC, 7, af13},
}

var pinNames = [numPins]string{
	PinNone: "NC",
	PA8:     "PA8",
	PA9:     "PA9",
	PA10:    "PA10",
	PA11:    "PA11",
	PB12:    "PB12",
	PB13:    "PB13",
	PB14:    "PB14",
	PB15:    "PB15",
	PC8:     "PC8",
	PC9:     "PC9",
	PC6:     "PC6",
	PC7:     "PC7",
}

var pinAliases = [...]struct {
	name string
	pin  Pin
}{
	{"PWM1_OUT", PWM1Out},
	{"PWM2_OUT", PWM2Out},
	{"PWM3_OUT", PWM3Out},
	{"DIO7", DIO7},
	{"DIO8", DIO8},
}

func (p Pin) String() string {
	if p >= numPins {
		return "P?"
	}
	return pinNames[p]
}

// Lookup returns the hardware binding of p.
func Lookup(p Pin) (Resource, bool) {
	if p == PinNone || p >= numPins {
		return Resource{}, false
	}
	return resources[p], true
}

// ParsePin resolves a GPIO name ("PB12") or a board alias ("PWM1_OUT").
func ParsePin(name string) (Pin, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for p := PA8; p < numPins; p++ {
		if pinNames[p] == name {
			return p, true
		}
	}
	for _, a := range pinAliases {
		if a.name == name {
			return a.pin, true
		}
	}
	return PinNone, false
}

// Pins returns every pin with an HRTIM binding.
func Pins() []Pin {
	out := make([]Pin, 0, numPins-1)
	for p := PA8; p < numPins; p++ {
		out = append(out, p)
	}
	return out
}
