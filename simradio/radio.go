package simradio

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/TheClams/lr1120-apps/transceiver"
)

// Radio models the parts of an LR1120 the link node uses: chip mode, IRQ
// flags and routing, the RX/TX data buffer and the reception counters.
type Radio struct {
	air  *Air
	name string
	log  *logrus.Entry

	// Temperature is the raw value returned by GetTemperature.
	Temperature uint16

	mu       sync.Mutex
	mode     transceiver.ChipMode
	irq      transceiver.Intr
	dio9     transceiver.Intr
	freq     uint32
	pktType  transceiver.PacketType
	mod      transceiver.LoraModulationParams
	pkt      transceiver.LoraPacketParams
	power    int8
	ramp     transceiver.RampTime
	rfSwitch transceiver.DioRfSwitchCfg
	txLen    int
	rxStatus transceiver.RxBufferStatus
	pktStat  transceiver.LoraPacketStatus
	stats    transceiver.RxStats
	data     [transceiver.BufferSize]byte // chip side buffer

	edges chan struct{}
	buf   [transceiver.BufferSize]byte
}

var _ transceiver.Radio = (*Radio)(nil)

// Edges pulses when a flag routed to DIO9 is raised. Pulses coalesce.
func (r *Radio) Edges() <-chan struct{} { return r.edges }

func (r *Radio) pulse() {
	select {
	case r.edges <- struct{}{}:
	default:
	}
}

// raise latches flags and pulses the IRQ line when one of them is routed.
// r.mu must be held.
func (r *Radio) raise(flags transceiver.Intr) {
	r.irq |= flags
	if flags&r.dio9 != 0 {
		r.pulse()
	}
}

func (r *Radio) receive(freq uint32, mod transceiver.LoraModulationParams, payload []byte, status transceiver.LoraPacketStatus, corrupt bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mode != transceiver.ChipModeRx || r.freq != freq {
		return false
	}
	if r.mod.Sf != mod.Sf || r.mod.Bw != mod.Bw {
		return false
	}
	n := copy(r.data[:], payload)
	r.rxStatus = transceiver.RxBufferStatus{PldLen: uint8(n), Offset: 0}
	r.pktStat = status
	// two status bytes trail the payload in the buffer
	if n+2 <= len(r.data) {
		r.data[n] = status.RssiPkt
		r.data[n+1] = byte(status.SnrPkt)
	}
	r.stats.PktRx++
	if corrupt {
		r.stats.CrcError++
		r.raise(transceiver.IntrRxDone | transceiver.IntrCrcErr)
	} else {
		r.raise(transceiver.IntrRxDone)
	}
	r.log.Debugf("received %d bytes", n)
	return true
}

func (r *Radio) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode = transceiver.ChipModeStandbyRC
	r.irq = transceiver.IntrNone
	r.dio9 = transceiver.IntrNone
	r.stats = transceiver.RxStats{}
	return nil
}

func (r *Radio) GetVersion(ctx context.Context) (transceiver.Version, error) {
	return transceiver.Version{Hw: 0x22, UseCase: 0x03, Major: 0x01, Minor: 0x01}, nil
}

func (r *Radio) GetStatus(ctx context.Context) (transceiver.Status, transceiver.Intr, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := transceiver.Status{Cmd: transceiver.CmdOk, IntActive: r.irq != 0, Mode: r.mode}
	return st, r.irq, nil
}

func (r *Radio) SetRf(ctx context.Context, freqHz uint32) error {
	r.mu.Lock()
	r.freq = freqHz
	r.mu.Unlock()
	return nil
}

func (r *Radio) Calibrate(ctx context.Context, flags transceiver.CalibFlags) error {
	return nil
}

func (r *Radio) SetPacketType(ctx context.Context, pt transceiver.PacketType) error {
	r.mu.Lock()
	r.pktType = pt
	r.mu.Unlock()
	return nil
}

func (r *Radio) SetLoraModulation(ctx context.Context, mod transceiver.LoraModulationParams) error {
	r.mu.Lock()
	r.mod = mod
	r.mu.Unlock()
	return nil
}

func (r *Radio) SetLoraPacket(ctx context.Context, pkt transceiver.LoraPacketParams) error {
	r.mu.Lock()
	r.pkt = pkt
	r.mu.Unlock()
	return nil
}

func (r *Radio) SetTxParams(ctx context.Context, powerDbm int8, ramp transceiver.RampTime) error {
	r.mu.Lock()
	r.power, r.ramp = powerDbm, ramp
	r.mu.Unlock()
	return nil
}

func (r *Radio) SetDioIrq(ctx context.Context, dio9, dio11 transceiver.Intr) error {
	r.mu.Lock()
	r.dio9 = dio9
	r.mu.Unlock()
	return nil
}

func (r *Radio) SetDioRfSwitch(ctx context.Context, cfg transceiver.DioRfSwitchCfg) error {
	r.mu.Lock()
	r.rfSwitch = cfg
	r.mu.Unlock()
	return nil
}

func (r *Radio) SetChipMode(ctx context.Context, mode transceiver.ChipMode) error {
	switch mode {
	case transceiver.ChipModeFs, transceiver.ChipModeStandbyRC, transceiver.ChipModeStandbyXosc, transceiver.ChipModeSleep:
	default:
		return &transceiver.Error{Type: transceiver.EBadParameter, Cmd: "SetChipMode", Err: fmt.Errorf("mode %s", mode)}
	}
	r.mu.Lock()
	r.mode = mode
	r.mu.Unlock()
	return nil
}

// SetRx listens until the next mode change. Timeouts are ignored.
func (r *Radio) SetRx(ctx context.Context, timeout uint32) error {
	r.mu.Lock()
	r.mode = transceiver.ChipModeRx
	r.mu.Unlock()
	return nil
}

// SetTx sends the last written TX buffer and goes back to FS.
func (r *Radio) SetTx(ctx context.Context, timeout uint32) error {
	r.mu.Lock()
	if r.pktType != transceiver.PacketTypeLora {
		r.mu.Unlock()
		return &transceiver.Error{Type: transceiver.ECommandFailed, Cmd: "SetTx", Code: byte(transceiver.CmdFail)}
	}
	r.mode = transceiver.ChipModeTx
	n := r.txLen
	if r.pkt.Header == transceiver.HeaderImplicit {
		n = int(r.pkt.PayloadLen)
	}
	payload := append([]byte(nil), r.data[:n]...)
	freq, mod := r.freq, r.mod
	r.mu.Unlock()

	heard := r.air.transmit(r, freq, mod, payload)
	r.log.Debugf("sent %d bytes, heard by %d", n, heard)

	r.mu.Lock()
	r.mode = transceiver.ChipModeFs
	r.raise(transceiver.IntrTxDone)
	r.mu.Unlock()
	return nil
}

func bounded(cmd string, offset, n int) error {
	if n < 0 || offset+n > transceiver.BufferSize {
		return &transceiver.Error{Type: transceiver.EBadParameter, Cmd: cmd, Err: transceiver.ErrBufferOverflow}
	}
	return nil
}

func (r *Radio) WrTxBuffer(ctx context.Context, n int) error {
	if err := bounded("WriteBuffer8", 0, n); err != nil {
		return err
	}
	r.mu.Lock()
	copy(r.data[:n], r.buf[:n])
	r.txLen = n
	r.mu.Unlock()
	return nil
}

func (r *Radio) RdRxBuffer(ctx context.Context, offset uint8, n int) error {
	if err := bounded("ReadBuffer8", int(offset), n); err != nil {
		return err
	}
	r.mu.Lock()
	copy(r.buf[:n], r.data[int(offset):int(offset)+n])
	r.mu.Unlock()
	return nil
}

func (r *Radio) ClearRxBuffer(ctx context.Context) error {
	r.mu.Lock()
	r.rxStatus = transceiver.RxBufferStatus{}
	r.mu.Unlock()
	return nil
}

func (r *Radio) ClearIrqs(ctx context.Context, mask transceiver.Intr) error {
	r.mu.Lock()
	r.irq &^= mask
	r.mu.Unlock()
	return nil
}

func (r *Radio) GetRxBufferStatus(ctx context.Context) (transceiver.RxBufferStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rxStatus, nil
}

func (r *Radio) GetLoraPacketStatus(ctx context.Context) (transceiver.LoraPacketStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pktStat, nil
}

func (r *Radio) GetRxStats(ctx context.Context) (transceiver.RxStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats, nil
}

func (r *Radio) ClearRxStats(ctx context.Context) error {
	r.mu.Lock()
	r.stats = transceiver.RxStats{}
	r.mu.Unlock()
	return nil
}

func (r *Radio) GetTemperature(ctx context.Context) (uint16, error) {
	return r.Temperature, nil
}

func (r *Radio) Buffer() []byte { return r.buf[:] }

// Mode is the current chip mode.
func (r *Radio) Mode() transceiver.ChipMode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}
