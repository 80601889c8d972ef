// get-temp reports the LR1120 die temperature every few seconds on the log
// and on the serial port when one is configured.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/TheClams/lr1120-apps/config"
	"github.com/TheClams/lr1120-apps/lr1120"
	"github.com/TheClams/lr1120-apps/monitor"
	"github.com/TheClams/lr1120-apps/outside"
	"github.com/TheClams/lr1120-apps/simradio"
	"github.com/TheClams/lr1120-apps/uart"
)

var (
	configFile = flag.String("c", "", "configuration file (JSON5)")
	sim        = flag.Bool("sim", false, "use an in-memory radio")
	verbose    = flag.Bool("v", false, "debug logging")
)

var log = logrus.New()

func main() {
	flag.Parse()
	log.Formatter = new(logrus.TextFormatter)
	log.Out = os.Stdout
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}

func run() error {
	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.LoadFromFile(*configFile); err != nil {
			return err
		}
	}
	log.Level = cfg.Level()
	if *verbose {
		log.Level = logrus.DebugLevel
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks := outside.Multi{outside.LogSink{Log: log.WithField("component", "outside")}}
	if cfg.Uart.Port != "" {
		framing, _ := uart.ParseFraming(cfg.Uart.Framing)
		s, err := uart.Open(uart.Settings{PortName: cfg.Uart.Port, Speed: cfg.Uart.Baud, Framing: framing}, log.WithField("component", "uart"))
		if err != nil {
			return err
		}
		defer s.Close()
		sinks = append(sinks, s)
	}

	var radio monitor.Thermometer
	if *sim {
		radio = simradio.NewAir().NewRadio("node", log.WithField("component", "sim"))
	} else {
		dev, err := lr1120.Open(cfg.RadioSettings(), log.WithField("component", "lr1120"))
		if err != nil {
			return err
		}
		defer dev.Close()
		radio = dev
	}

	log.Info("Starting get_temp")
	return monitor.New(radio, sinks, cfg.MonitorInterval(), log.WithField("component", "monitor")).Run(ctx)
}
