// lora-txrx runs a LoRa link node. A long press on the button switches
// between TX and RX, a short press sends a packet in TX or shows and clears
// the reception counters in RX. The green LED blinks in RX, the red one in TX.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/TheClams/lr1120-apps/board"
	"github.com/TheClams/lr1120-apps/config"
	"github.com/TheClams/lr1120-apps/lr1120"
	"github.com/TheClams/lr1120-apps/node"
	"github.com/TheClams/lr1120-apps/outside"
	"github.com/TheClams/lr1120-apps/redis"
	"github.com/TheClams/lr1120-apps/simradio"
	"github.com/TheClams/lr1120-apps/transceiver"
	"github.com/TheClams/lr1120-apps/uart"
)

var (
	configFile = flag.String("c", "", "configuration file (JSON5)")
	sim        = flag.Bool("sim", false, "use an in-memory radio with a beacon peer, presses are read from stdin (s, l, x)")
	beacon     = flag.Duration("beacon", 2*time.Second, "beacon period in -sim mode")
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
	log.Info("lora-txrx stopped")
}

func openSinks(cfg config.Config) (outside.Multi, <-chan outside.SubMessage, func()) {
	sinks := outside.Multi{outside.LogSink{Log: log.WithField("component", "outside")}}
	var remote <-chan outside.SubMessage
	var closers []func()
	if cfg.Redis.Address != "" {
		r := &redis.Interface{}
		if err := redis.Init(r, cfg.Redis.Address, cfg.Redis.Prefix, log.WithField("component", "redis")); err != nil {
			log.Warnf("redis disabled: %v", err)
		} else {
			sinks = append(sinks, r)
			remote = r.RegisterWritableComponent("button")
			closers = append(closers, func() { r.Close() })
		}
	}
	if cfg.Uart.Port != "" {
		framing, _ := uart.ParseFraming(cfg.Uart.Framing)
		s, err := uart.Open(uart.Settings{PortName: cfg.Uart.Port, Speed: cfg.Uart.Baud, Framing: framing}, log.WithField("component", "uart"))
		if err != nil {
			log.Warnf("uart disabled: %v", err)
		} else {
			sinks = append(sinks, s)
			closers = append(closers, func() { s.Close() })
		}
	}
	return sinks, remote, func() {
		for _, c := range closers {
			c()
		}
	}
}

// forwardRemote turns values written to the button component into presses.
func forwardRemote(remote <-chan outside.SubMessage, presses *board.Presses) {
	for m := range remote {
		kind, err := board.ParsePressKind(m.Value)
		if err != nil {
			log.Warnf("remote button: %v", err)
			continue
		}
		presses.Publish(kind)
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
	nodeCfg, err := cfg.Node()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks, remote, closeSinks := openSinks(cfg)
	defer closeSinks()

	var (
		radio   transceiver.Radio
		irq     node.InterruptLine
		leds    node.Indicators
		presses = board.NewPresses()
	)
	if *sim {
		air := simradio.NewAir()
		r := air.NewRadio("node", log.WithField("component", "sim"))
		radio, irq = r, r
		leds = board.LogLeds{Log: log.WithField("component", "board")}
		peer := &simradio.Beacon{
			Radio:         air.NewRadio("beacon", log.WithField("component", "sim")),
			PayloadLength: nodeCfg.PayloadLength,
			Period:        *beacon,
			Log:           log.WithField("component", "beacon"),
		}
		if err := peer.Configure(ctx, nodeCfg.FrequencyHz, nodeCfg.Modulation); err != nil {
			return err
		}
		go peer.Run(ctx)
		go func() {
			if err := board.ConsoleButton(ctx, os.Stdin, presses, log.WithField("component", "console")); err != nil {
				log.Warnf("console: %v", err)
			}
		}()
	} else {
		dev, err := lr1120.Open(cfg.RadioSettings(), log.WithField("component", "lr1120"))
		if err != nil {
			return err
		}
		defer dev.Close()
		b, err := board.Open(cfg.BoardSettings(), log.WithField("component", "board"))
		if err != nil {
			return err
		}
		defer b.Close()
		radio, irq, leds, presses = dev, b.Irq, b.Leds, b.Presses
	}
	if remote != nil {
		go forwardRemote(remote, presses)
	}

	log.Info("Starting lora_txrx")
	n := node.New(nodeCfg, radio, leds, sinks, log.WithField("component", "node"))
	if err := n.Setup(ctx); err != nil {
		return err
	}
	return n.Run(ctx, presses, irq)
}
