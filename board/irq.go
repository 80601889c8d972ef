package board

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"periph.io/x/periph/conn/gpio"
)

// IrqLine watches the radio IRQ pin. Rising edges seen while the previous
// one is still unread coalesce into a single notification.
type IrqLine struct {
	pin   edgePin
	log   *logrus.Entry
	edges chan struct{}

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewIrqLine configures pin for rising edges and starts waiting on it.
func NewIrqLine(pin gpio.PinIn, log *logrus.Entry) (*IrqLine, error) {
	return newIrqLine(pin, log)
}

func newIrqLine(pin edgePin, log *logrus.Entry) (*IrqLine, error) {
	if err := pin.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		return nil, fmt.Errorf("initialization IRQ, PinIn.In: %w", err)
	}
	l := &IrqLine{pin: pin, log: log, edges: make(chan struct{}, 1), done: make(chan struct{})}
	go l.run()
	return l, nil
}

func (l *IrqLine) run() {
	defer close(l.done)
	for {
		if !l.pin.WaitForEdge(-1) {
			l.mu.Lock()
			closed := l.closed
			l.mu.Unlock()
			if closed {
				return
			}
			continue
		}
		l.log.Trace("irq edge")
		select {
		case l.edges <- struct{}{}:
		default:
		}
	}
}

func (l *IrqLine) Edges() <-chan struct{} { return l.edges }

// Close switches the pin edge detection off, which releases WaitForEdge.
func (l *IrqLine) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	err := l.pin.In(gpio.PullNoChange, gpio.NoEdge)
	<-l.done
	return err
}
