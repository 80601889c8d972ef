// Package simradio is an in-memory LR1120 model. Radios attached to the same
// Air hear each other when they share a frequency, which is enough to run the
// link node without hardware.
package simradio

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/TheClams/lr1120-apps/transceiver"
)

// Air is the shared medium.
type Air struct {
	mu     sync.Mutex
	radios []*Radio

	// Corrupt makes every delivered packet fail its CRC.
	Corrupt bool
	// Packet status reported to receivers.
	RssiPkt uint8
	SnrPkt  int8
}

func NewAir() *Air {
	return &Air{RssiPkt: 80, SnrPkt: 29}
}

// NewRadio attaches a radio to the air. It starts in standby, like after a
// reset.
func (a *Air) NewRadio(name string, log *logrus.Entry) *Radio {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	r := &Radio{
		air:         a,
		name:        name,
		log:         log.WithField("radio", name),
		mode:        transceiver.ChipModeStandbyRC,
		edges:       make(chan struct{}, 1),
		Temperature: 1106,
	}
	a.mu.Lock()
	a.radios = append(a.radios, r)
	a.mu.Unlock()
	return r
}

// transmit delivers payload to every other radio listening on freq with the
// same spreading factor and bandwidth, and returns how many heard it.
func (a *Air) transmit(from *Radio, freq uint32, mod transceiver.LoraModulationParams, payload []byte) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	heard := 0
	status := transceiver.LoraPacketStatus{RssiPkt: a.RssiPkt, SnrPkt: a.SnrPkt, SignalRssiPkt: a.RssiPkt}
	for _, r := range a.radios {
		if r == from {
			continue
		}
		if r.receive(freq, mod, payload, status, a.Corrupt) {
			heard++
		}
	}
	return heard
}
