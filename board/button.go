package board

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/periph/conn/gpio"
)

// PressKind classifies a button press by its length.
type PressKind int

const (
	PressShort PressKind = iota
	PressLong
	PressExtraLong
)

func (k PressKind) String() string {
	switch k {
	case PressShort:
		return "Short"
	case PressLong:
		return "Long"
	case PressExtraLong:
		return "ExtraLong"
	}
	return fmt.Sprintf("PressKind(%d)", int(k))
}

// ParsePressKind accepts the names used by the console and remote sources.
func ParsePressKind(s string) (PressKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "s", "short":
		return PressShort, nil
	case "l", "long":
		return PressLong, nil
	case "x", "extra", "extralong":
		return PressExtraLong, nil
	}
	return 0, fmt.Errorf("unknown press %q", s)
}

// Thresholds split press durations into kinds.
type Thresholds struct {
	Debounce  time.Duration
	Long      time.Duration
	ExtraLong time.Duration
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Debounce:  18 * time.Millisecond,
		Long:      550 * time.Millisecond,
		ExtraLong: 1500 * time.Millisecond,
	}
}

// Classify returns the kind of a press held for d, false for a bounce.
func Classify(d time.Duration, t Thresholds) (PressKind, bool) {
	switch {
	case d < t.Debounce:
		return 0, false
	case d < t.Long:
		return PressShort, true
	case d < t.ExtraLong:
		return PressLong, true
	}
	return PressExtraLong, true
}

// Presses holds at most one unread press. A press published while one is
// pending replaces it. Publish is safe from several producers.
type Presses struct {
	mu sync.Mutex
	ch chan PressKind
}

func NewPresses() *Presses {
	return &Presses{ch: make(chan PressKind, 1)}
}

func (p *Presses) Publish(k PressKind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.ch:
	default:
	}
	select {
	case p.ch <- k:
	default:
	}
}

func (p *Presses) Presses() <-chan PressKind { return p.ch }

type edgePin interface {
	In(pull gpio.Pull, edge gpio.Edge) error
	WaitForEdge(timeout time.Duration) bool
	Read() gpio.Level
}

// Button measures how long an active-low push button is held.
type Button struct {
	pin     edgePin
	thr     Thresholds
	log     *logrus.Entry
	presses *Presses

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewButton configures pin as a pulled-up input on both edges and starts
// classifying presses into presses.
func NewButton(pin gpio.PinIn, thr Thresholds, presses *Presses, log *logrus.Entry) (*Button, error) {
	return newButton(pin, thr, presses, log)
}

func newButton(pin edgePin, thr Thresholds, presses *Presses, log *logrus.Entry) (*Button, error) {
	if err := pin.In(gpio.PullUp, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("initialization button, PinIn.In: %w", err)
	}
	b := &Button{pin: pin, thr: thr, log: log, presses: presses, done: make(chan struct{})}
	go b.run()
	return b, nil
}

func (b *Button) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Button) run() {
	defer close(b.done)
	var pressedAt time.Time
	for {
		if !b.pin.WaitForEdge(-1) {
			if b.isClosed() {
				return
			}
			continue
		}
		now := time.Now()
		if b.pin.Read() == gpio.Low {
			pressedAt = now
			continue
		}
		if pressedAt.IsZero() {
			continue
		}
		kind, ok := Classify(now.Sub(pressedAt), b.thr)
		pressedAt = time.Time{}
		if !ok {
			continue
		}
		b.log.Debugf("button %s press", kind)
		b.presses.Publish(kind)
	}
}

// Close releases the edge waiter and waits for the goroutine to stop.
func (b *Button) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	err := b.pin.In(gpio.PullNoChange, gpio.NoEdge)
	<-b.done
	return err
}

// ConsoleButton turns lines read from r (s, l or x) into presses. Used when
// running without a board.
func ConsoleButton(ctx context.Context, r io.Reader, presses *Presses, log *logrus.Entry) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		kind, err := ParsePressKind(line)
		if err != nil {
			log.Warnf("console: %v (use s, l or x)", err)
			continue
		}
		presses.Publish(kind)
	}
	return scanner.Err()
}
