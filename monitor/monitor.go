// Package monitor periodically samples the radio die temperature.
package monitor

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/TheClams/lr1120-apps/outside"
	"github.com/TheClams/lr1120-apps/transceiver"
)

// Thermometer is the part of the radio the monitor uses.
type Thermometer interface {
	Reset(ctx context.Context) error
	GetVersion(ctx context.Context) (transceiver.Version, error)
	GetStatus(ctx context.Context) (transceiver.Status, transceiver.Intr, error)
	GetTemperature(ctx context.Context) (uint16, error)
}

type Sample struct {
	Raw     uint16
	Celsius int
	At      time.Time
}

// Celsius converts the 11-bit GetTemp reading.
func Celsius(raw uint16) int {
	return 25 + 429 - int((794*uint32(raw)+1024)>>11)
}

type Monitor struct {
	radio    Thermometer
	out      outside.Interface
	log      *logrus.Entry
	interval time.Duration

	mu   sync.Mutex
	last Sample
	ok   bool
}

func New(radio Thermometer, out outside.Interface, interval time.Duration, log *logrus.Entry) *Monitor {
	if out == nil {
		out = outside.Multi{}
	}
	return &Monitor{radio: radio, out: out, log: log, interval: interval}
}

// Start resets the chip and reports its version and status. Failures are
// logged only.
func (m *Monitor) Start(ctx context.Context) {
	if err := m.radio.Reset(ctx); err != nil {
		m.log.Errorf("Unable to reset chip ! %v", err)
	}
	if v, err := m.radio.GetVersion(ctx); err != nil {
		m.log.Error(err)
	} else {
		m.log.Infof("FW Version %02x.%02x", v.Major, v.Minor)
		m.out.UpdateComponent("version", fmt.Sprintf("%d.%d", v.Major, v.Minor))
	}
	if status, intr, err := m.radio.GetStatus(ctx); err != nil {
		m.log.Error(err)
	} else {
		m.log.Infof("%s | Intr=%08x", status, intr.Value())
	}
}

// Sample reads the temperature once and reports it.
func (m *Monitor) Sample(ctx context.Context) (Sample, error) {
	raw, err := m.radio.GetTemperature(ctx)
	if err != nil {
		return Sample{}, err
	}
	s := Sample{Raw: raw, Celsius: Celsius(raw), At: time.Now()}
	m.mu.Lock()
	m.last, m.ok = s, true
	m.mu.Unlock()
	m.log.Infof("%d =>  %d", s.Raw, s.Celsius)
	m.out.UpdateComponent("temperature/raw", strconv.Itoa(int(s.Raw)))
	m.out.UpdateComponent("temperature/celsius", strconv.Itoa(s.Celsius))
	return s, nil
}

// Last is the most recent successful sample.
func (m *Monitor) Last() (Sample, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, m.ok
}

// Run calls Start then samples every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	m.Start(ctx)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := m.Sample(ctx); err != nil {
				m.log.Error(err)
			}
		}
	}
}
