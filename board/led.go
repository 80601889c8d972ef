// Package board wraps the node's GPIOs: two indicator LEDs, the user button
// and the radio IRQ line.
package board

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/periph/conn/gpio"
)

// Led is an indicator channel.
type Led int

const (
	LedRx Led = iota // green
	LedTx            // red
)

func (l Led) String() string {
	switch l {
	case LedRx:
		return "rx"
	case LedTx:
		return "tx"
	}
	return fmt.Sprintf("Led(%d)", int(l))
}

// LedMode is what an indicator shows.
type LedMode int

const (
	LedOff LedMode = iota
	LedOn
	LedBlinkSlow
	// LedFlash lights the LED briefly then resumes the previous mode.
	LedFlash
)

func (m LedMode) String() string {
	switch m {
	case LedOff:
		return "off"
	case LedOn:
		return "on"
	case LedBlinkSlow:
		return "blink"
	case LedFlash:
		return "flash"
	}
	return fmt.Sprintf("LedMode(%d)", int(m))
}

const (
	BlinkPeriod = 500 * time.Millisecond
	FlashTime   = 50 * time.Millisecond
)

type outPin interface {
	Out(l gpio.Level) error
}

type ledDriver struct {
	name   Led
	pin    outPin
	log    *logrus.Entry
	mu     sync.Mutex
	steady LedMode
	flash  bool
	notify chan struct{}
}

func (d *ledDriver) set(mode LedMode) {
	d.mu.Lock()
	if mode == LedFlash {
		d.flash = true
	} else {
		d.steady = mode
	}
	d.mu.Unlock()
	select {
	case d.notify <- struct{}{}:
	default:
	}
}

func (d *ledDriver) out(on bool) {
	if err := d.pin.Out(gpio.Level(on)); err != nil {
		d.log.Warnf("led %s: %v", d.name, err)
	}
}

func (d *ledDriver) run(ctx context.Context, done func()) {
	defer done()
	level := false
	for {
		d.mu.Lock()
		steady, flash := d.steady, d.flash
		d.flash = false
		d.mu.Unlock()

		var wait <-chan time.Time
		switch {
		case flash:
			d.out(true)
			wait = time.After(FlashTime)
		case steady == LedBlinkSlow:
			level = !level
			d.out(level)
			wait = time.After(BlinkPeriod)
		default:
			level = steady == LedOn
			d.out(level)
		}
		select {
		case <-ctx.Done():
			d.out(false)
			return
		case <-d.notify:
		case <-wait:
		}
	}
}

// Leds drives the indicator GPIOs. Set never blocks: each LED has its own
// goroutine handling blinking and flashes.
type Leds struct {
	drivers map[Led]*ledDriver
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewLeds starts the LED goroutines. Missing pins are ignored.
func NewLeds(rx, tx gpio.PinOut, log *logrus.Entry) *Leds {
	pins := map[Led]outPin{}
	if rx != nil {
		pins[LedRx] = rx
	}
	if tx != nil {
		pins[LedTx] = tx
	}
	return newLeds(pins, log)
}

func newLeds(pins map[Led]outPin, log *logrus.Entry) *Leds {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Leds{drivers: map[Led]*ledDriver{}, cancel: cancel}
	for led, pin := range pins {
		d := &ledDriver{name: led, pin: pin, log: log, notify: make(chan struct{}, 1)}
		l.drivers[led] = d
		l.wg.Add(1)
		go d.run(ctx, l.wg.Done)
	}
	return l
}

func (l *Leds) Set(led Led, mode LedMode) {
	if d, ok := l.drivers[led]; ok {
		d.set(mode)
	}
}

// Close turns every LED off and stops the goroutines.
func (l *Leds) Close() {
	l.cancel()
	l.wg.Wait()
}

// LogLeds reports indicator changes in the log, for runs without a board.
type LogLeds struct {
	Log *logrus.Entry
}

func (l LogLeds) Set(led Led, mode LedMode) {
	l.Log.Debugf("led %s %s", led, mode)
}
