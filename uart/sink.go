// Package uart reports node components on a serial console.
package uart

import (
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tarm/serial"
)

// Framing selects how updates are written on the port.
type Framing int

const (
	// FramingLine writes "key = value\r\n" for a terminal.
	FramingLine Framing = iota
	// FramingSlip writes SLIP frames for a program.
	FramingSlip
)

func ParseFraming(s string) (Framing, error) {
	switch s {
	case "line", "":
		return FramingLine, nil
	case "slip":
		return FramingSlip, nil
	}
	return 0, fmt.Errorf("unknown framing %q", s)
}

// Settings of the serial port.
type Settings struct {
	PortName string
	Speed    int
	Framing  Framing
}

// Sink writes component updates to a serial port. It is safe for concurrent
// use.
type Sink struct {
	port    io.WriteCloser
	framing Framing
	log     *logrus.Entry
	mutex   sync.Mutex
}

func Open(settings Settings, log *logrus.Entry) (*Sink, error) {
	c := &serial.Config{Name: settings.PortName, Baud: settings.Speed}
	port, err := serial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("serial.OpenPort(%v): %w", settings.PortName, err)
	}
	log.Infof("serial %s open at %d bauds", settings.PortName, settings.Speed)
	return NewSink(port, settings.Framing, log), nil
}

// NewSink writes to an already open port.
func NewSink(port io.WriteCloser, framing Framing, log *logrus.Entry) *Sink {
	return &Sink{port: port, framing: framing, log: log}
}

func (s *Sink) encode(key string, value string) ([]byte, error) {
	if s.framing == FramingLine {
		return []byte(key + " = " + value + "\r\n"), nil
	}
	record, err := createRecord(key, value)
	if err != nil {
		return nil, err
	}
	return stuffPacket(record), nil
}

func (s *Sink) UpdateComponent(key string, value string) {
	data, err := s.encode(key, value)
	if err != nil {
		s.log.Warnf("uart: %v", err)
		return
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, err := s.port.Write(data); err != nil {
		s.log.Errorf("uart write: %v", err)
	}
}

// Writeln sends a free text line, used for banners.
func (s *Sink) Writeln(text string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, err := io.WriteString(s.port, text+"\r\n"); err != nil {
		s.log.Errorf("uart write: %v", err)
	}
}

func (s *Sink) Close() error {
	return s.port.Close()
}
