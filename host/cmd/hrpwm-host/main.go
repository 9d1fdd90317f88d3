package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"hrpwm/bridge"
	"hrpwm/config"
	"hrpwm/core"
	"hrpwm/hal/sim"
	"hrpwm/host/serial"
)

var (
	configPath   = flag.String("config", "", "Board description (YAML); the ZEST half-bridge board when empty")
	device       = flag.String("device", "/dev/ttyUSB0", "Serial device of the board")
	baud         = flag.Int("baud", serial.DefaultBaud, "Baud rate")
	useSim       = flag.Bool("sim", false, "Drive a simulated HRTIM instead of a board")
	verbose      = flag.Bool("verbose", false, "Enable debug logging")
	printDefault = flag.Bool("print-default", false, "Print the default board description and exit")
)

func main() {
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if *printDefault {
		data, err := config.DefaultBoard().Marshal()
		if err != nil {
			log.Fatal(err)
		}
		os.Stdout.Write(data)
		return
	}

	board := config.DefaultBoard()
	if *configPath != "" {
		var err error
		if board, err = config.LoadFile(*configPath); err != nil {
			log.WithError(err).Fatal("loading board description")
		}
	}

	var hal core.HAL
	if *useSim {
		log.Info("using the simulated HRTIM")
		hal = sim.New()
	} else {
		cfg := serial.DefaultConfig(*device)
		cfg.Baud = *baud
		port, err := serial.Open(cfg)
		if err != nil {
			log.WithError(err).Fatal("opening board link")
		}
		client := bridge.NewClient(port, bridge.DefaultTimeout)
		defer client.Close()
		log.WithField("device", *device).Info("connected")
		hal = client
	}

	start := time.Now()
	setup, err := board.Build(hal, log)
	if err != nil {
		log.WithError(err).Fatal("bringing up the board")
	}
	if n := setup.Complex.HALErrors(); n > 0 {
		log.Warnf("%d HAL operations failed during bring-up", n)
	}
	log.Debugf("board up in %v", time.Since(start))

	sh := newShell(setup, os.Stdout)
	sh.show()
	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")
	if err := sh.run(os.Stdin); err != nil {
		log.WithError(err).Fatal("reading input")
	}
}
