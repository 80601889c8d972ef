package board

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
)

// Settings name the board GPIOs in the periph.io registry.
type Settings struct {
	IrqPin     string
	ButtonPin  string
	LedRxPin   string
	LedTxPin   string
	Thresholds Thresholds
}

// Board groups the node peripherals.
type Board struct {
	Leds    *Leds
	Presses *Presses
	Button  *Button
	Irq     *IrqLine
}

func pinByName(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("pin <%s> was not initialized", name)
	}
	return p, nil
}

// Open initialises periph.io and the board pins. The LED pins are optional.
func Open(s Settings, log *logrus.Entry) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host.Init: %w", err)
	}
	irqPin, err := pinByName(s.IrqPin)
	if err != nil {
		return nil, err
	}
	buttonPin, err := pinByName(s.ButtonPin)
	if err != nil {
		return nil, err
	}
	var rx, tx gpio.PinOut
	if s.LedRxPin != "" {
		if rx, err = pinByName(s.LedRxPin); err != nil {
			return nil, err
		}
	}
	if s.LedTxPin != "" {
		if tx, err = pinByName(s.LedTxPin); err != nil {
			return nil, err
		}
	}

	b := &Board{Presses: NewPresses()}
	if b.Irq, err = NewIrqLine(irqPin, log); err != nil {
		return nil, err
	}
	if b.Button, err = NewButton(buttonPin, s.Thresholds, b.Presses, log); err != nil {
		b.Irq.Close()
		return nil, err
	}
	b.Leds = NewLeds(rx, tx, log)
	return b, nil
}

func (b *Board) Close() {
	if err := b.Button.Close(); err != nil {
		b.Irq.log.Warnf("button close: %v", err)
	}
	if err := b.Irq.Close(); err != nil {
		b.Irq.log.Warnf("irq close: %v", err)
	}
	b.Leds.Close()
}
