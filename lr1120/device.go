// Package lr1120 drives a Semtech LR1120 transceiver over SPI with periph.io.
package lr1120

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"

	"github.com/TheClams/lr1120-apps/transceiver"
)

const (
	defaultBusyTimeout = 100 * time.Millisecond
	resetBusyTimeout   = 500 * time.Millisecond
	busyPollInterval   = 50 * time.Microsecond
)

// bus, outPin and inPin are the parts of periph.io connections the driver uses,
// narrowed so tests can substitute them.
type bus interface {
	Tx(w, r []byte) error
}

type outPin interface {
	Out(l gpio.Level) error
}

type inPin interface {
	Read() gpio.Level
}

// Settings name the SPI port and pins in the periph.io registries.
type Settings struct {
	PortName string
	SpiHz    int64
	ResetPin string
	BusyPin  string
}

// Device is an LR1120 reached through SPI. It implements transceiver.Radio.
type Device struct {
	conn        bus
	port        spi.PortCloser
	reset       outPin
	busy        inPin
	log         *logrus.Entry
	BusyTimeout time.Duration

	buf   [transceiver.BufferSize]byte
	stat1 byte
	stat2 byte
}

var _ transceiver.Radio = (*Device)(nil)

// Open initialises periph.io, opens the SPI port and the control pins.
func Open(settings Settings, log *logrus.Entry) (*Device, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host.Init: %w", err)
	}
	port, err := spireg.Open(settings.PortName)
	if err != nil {
		return nil, fmt.Errorf("spireg.Open of port %q: %w", settings.PortName, err)
	}
	hz := settings.SpiHz
	if hz == 0 {
		hz = 4000000
	}
	conn, err := port.Connect(physic.Frequency(hz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("port.Connect: %w", err)
	}
	reset := gpioreg.ByName(settings.ResetPin)
	if reset == nil {
		port.Close()
		return nil, fmt.Errorf("reset pin <%s> was not initialized", settings.ResetPin)
	}
	if err := reset.Out(gpio.High); err != nil {
		port.Close()
		return nil, fmt.Errorf("initialization NRESET, PinOut.Out: %w", err)
	}
	busy := gpioreg.ByName(settings.BusyPin)
	if busy == nil {
		port.Close()
		return nil, fmt.Errorf("busy pin <%s> was not initialized", settings.BusyPin)
	}
	if err := busy.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		port.Close()
		return nil, fmt.Errorf("initialization BUSY, PinIn.In: %w", err)
	}
	d := New(conn, reset, busy, log)
	d.port = port
	return d, nil
}

// New builds a driver on already configured connections.
func New(conn bus, reset outPin, busy inPin, log *logrus.Entry) *Device {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Device{
		conn:        conn,
		reset:       reset,
		busy:        busy,
		log:         log,
		BusyTimeout: defaultBusyTimeout,
	}
}

// Close releases the SPI port.
func (d *Device) Close() error {
	if d.port != nil {
		return d.port.Close()
	}
	return nil
}

func (d *Device) waitBusy(ctx context.Context, cmd Command, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for d.busy.Read() == gpio.High {
		if time.Now().After(deadline) {
			return &transceiver.Error{Type: transceiver.EBusyTimeout, Cmd: cmd.String(), Err: transceiver.ErrBusyTimeout}
		}
		select {
		case <-ctx.Done():
			return &transceiver.Error{Type: transceiver.EGeneral, Cmd: cmd.String(), Err: ctx.Err()}
		case <-time.After(busyPollInterval):
		}
	}
	return nil
}

func (d *Device) transfer(ctx context.Context, cmd Command, w []byte) ([]byte, error) {
	if err := d.waitBusy(ctx, cmd, d.BusyTimeout); err != nil {
		return nil, err
	}
	r := make([]byte, len(w))
	if err := d.conn.Tx(w, r); err != nil {
		return nil, &transceiver.Error{Type: transceiver.EGeneral, Cmd: cmd.String(), Err: err}
	}
	d.log.Tracef("%s w=[%s] r=[%s]", cmd, transceiver.Dump(w), transceiver.Dump(r))
	return r, nil
}

// sendCommand writes the opcode followed by its parameters.
func (d *Device) sendCommand(ctx context.Context, cmd Command, params ...byte) ([]byte, error) {
	w := make([]byte, 0, 2+len(params))
	w = append(w, byte(cmd>>8), byte(cmd))
	w = append(w, params...)
	r, err := d.transfer(ctx, cmd, w)
	if err != nil {
		return nil, err
	}
	d.stat1 = r[0]
	if len(r) > 1 {
		d.stat2 = r[1]
	}
	return r, nil
}

// readCommand sends cmd then clocks out its answer once the chip is ready.
// The first byte of the answer is Stat1, the rest is returned.
func (d *Device) readCommand(ctx context.Context, cmd Command, n int, params ...byte) ([]byte, error) {
	if _, err := d.sendCommand(ctx, cmd, params...); err != nil {
		return nil, err
	}
	r, err := d.transfer(ctx, cmd, make([]byte, 1+n))
	if err != nil {
		return nil, err
	}
	d.stat1 = r[0]
	switch st := transceiver.CmdStatus((r[0] >> 1) & 0x07); st {
	case transceiver.CmdFail, transceiver.CmdPErr:
		return nil, &transceiver.Error{Type: transceiver.ECommandFailed, Cmd: cmd.String(), Code: byte(st)}
	}
	return r[1:], nil
}

func (d *Device) writeCommand(ctx context.Context, cmd Command, params ...byte) error {
	_, err := d.sendCommand(ctx, cmd, params...)
	return err
}

func sleepCtx(ctx context.Context, dur time.Duration) error {
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reset pulses NRESET and waits for the chip to boot.
func (d *Device) Reset(ctx context.Context) error {
	if err := d.reset.Out(gpio.Low); err != nil {
		return &transceiver.Error{Type: transceiver.EGeneral, Cmd: "Reset", Err: err}
	}
	if err := sleepCtx(ctx, time.Millisecond); err != nil {
		return &transceiver.Error{Type: transceiver.EGeneral, Cmd: "Reset", Err: err}
	}
	if err := d.reset.Out(gpio.High); err != nil {
		return &transceiver.Error{Type: transceiver.EGeneral, Cmd: "Reset", Err: err}
	}
	if err := sleepCtx(ctx, 5*time.Millisecond); err != nil {
		return &transceiver.Error{Type: transceiver.EGeneral, Cmd: "Reset", Err: err}
	}
	return d.waitBusy(ctx, CReboot, resetBusyTimeout)
}

func (d *Device) GetVersion(ctx context.Context) (transceiver.Version, error) {
	r, err := d.readCommand(ctx, CGetVersion, responseLengths[CGetVersion])
	if err != nil {
		return transceiver.Version{}, err
	}
	return transceiver.Version{Hw: r[0], UseCase: r[1], Major: r[2], Minor: r[3]}, nil
}

// GetStatus answers in the same transfer: Stat1, Stat2 then the IRQ word.
func (d *Device) GetStatus(ctx context.Context) (transceiver.Status, transceiver.Intr, error) {
	r, err := d.sendCommand(ctx, CGetStatus, 0, 0, 0, 0)
	if err != nil {
		return transceiver.Status{}, 0, err
	}
	status := transceiver.ParseStatus(r[0], r[1])
	intr := transceiver.Intr(binary.BigEndian.Uint32(r[2:6]))
	return status, intr, nil
}

func (d *Device) SetRf(ctx context.Context, freqHz uint32) error {
	return d.writeCommand(ctx, CSetRfFrequency, be32(freqHz)...)
}

func (d *Device) Calibrate(ctx context.Context, flags transceiver.CalibFlags) error {
	return d.writeCommand(ctx, CCalibrate, flags.Mask())
}

func (d *Device) SetPacketType(ctx context.Context, pt transceiver.PacketType) error {
	return d.writeCommand(ctx, CSetPacketType, byte(pt))
}

func (d *Device) SetLoraModulation(ctx context.Context, mod transceiver.LoraModulationParams) error {
	return d.writeCommand(ctx, CSetModulationParams, byte(mod.Sf), byte(mod.Bw), byte(mod.Cr), bool2byte(mod.Ldro))
}

func (d *Device) SetLoraPacket(ctx context.Context, pkt transceiver.LoraPacketParams) error {
	params := be16(pkt.PreambleLen)
	params = append(params, byte(pkt.Header), pkt.PayloadLen, bool2byte(pkt.Crc), bool2byte(pkt.InvertIQ))
	return d.writeCommand(ctx, CSetPacketParams, params...)
}

func (d *Device) SetTxParams(ctx context.Context, powerDbm int8, ramp transceiver.RampTime) error {
	return d.writeCommand(ctx, CSetTxParams, byte(powerDbm), byte(ramp))
}

func (d *Device) SetDioIrq(ctx context.Context, dio9, dio11 transceiver.Intr) error {
	params := append(be32(dio9.Value()), be32(dio11.Value())...)
	return d.writeCommand(ctx, CSetDioIrqParams, params...)
}

func (d *Device) SetDioRfSwitch(ctx context.Context, cfg transceiver.DioRfSwitchCfg) error {
	return d.writeCommand(ctx, CSetDioAsRfSwitch, cfg.Bytes()...)
}

// SetChipMode moves the chip to one of the idle modes. RX and TX are entered
// through SetRx and SetTx.
func (d *Device) SetChipMode(ctx context.Context, mode transceiver.ChipMode) error {
	switch mode {
	case transceiver.ChipModeFs:
		return d.writeCommand(ctx, CSetFs)
	case transceiver.ChipModeStandbyRC:
		return d.writeCommand(ctx, CSetStandby, standbyRC)
	case transceiver.ChipModeStandbyXosc:
		return d.writeCommand(ctx, CSetStandby, standbyXosc)
	case transceiver.ChipModeSleep:
		return d.writeCommand(ctx, CSetSleep, 0, 0, 0, 0, 0)
	}
	return &transceiver.Error{Type: transceiver.EBadParameter, Cmd: "SetChipMode", Err: fmt.Errorf("mode %s", mode)}
}

func (d *Device) SetRx(ctx context.Context, timeout uint32) error {
	return d.writeCommand(ctx, CSetRx, timeout24(timeout)...)
}

func (d *Device) SetTx(ctx context.Context, timeout uint32) error {
	return d.writeCommand(ctx, CSetTx, timeout24(timeout)...)
}

func checkLength(cmd Command, n int) error {
	if n < 0 || n > 0xFF {
		return &transceiver.Error{Type: transceiver.EBadParameter, Cmd: cmd.String(), Err: transceiver.ErrBufferOverflow}
	}
	return nil
}

func (d *Device) WrTxBuffer(ctx context.Context, n int) error {
	if err := checkLength(CWriteBuffer8, n); err != nil {
		return err
	}
	return d.writeCommand(ctx, CWriteBuffer8, d.buf[:n]...)
}

func (d *Device) RdRxBuffer(ctx context.Context, offset uint8, n int) error {
	if err := checkLength(CReadBuffer8, n); err != nil {
		return err
	}
	r, err := d.readCommand(ctx, CReadBuffer8, n, offset, byte(n))
	if err != nil {
		return err
	}
	copy(d.buf[:n], r)
	return nil
}

func (d *Device) ClearRxBuffer(ctx context.Context) error {
	return d.writeCommand(ctx, CClearRxBuffer)
}

func (d *Device) ClearIrqs(ctx context.Context, mask transceiver.Intr) error {
	return d.writeCommand(ctx, CClearIrq, be32(mask.Value())...)
}

func (d *Device) GetRxBufferStatus(ctx context.Context) (transceiver.RxBufferStatus, error) {
	r, err := d.readCommand(ctx, CGetRxBufferStatus, responseLengths[CGetRxBufferStatus])
	if err != nil {
		return transceiver.RxBufferStatus{}, err
	}
	return transceiver.RxBufferStatus{PldLen: r[0], Offset: r[1]}, nil
}

func (d *Device) GetLoraPacketStatus(ctx context.Context) (transceiver.LoraPacketStatus, error) {
	r, err := d.readCommand(ctx, CGetPacketStatus, responseLengths[CGetPacketStatus])
	if err != nil {
		return transceiver.LoraPacketStatus{}, err
	}
	return transceiver.LoraPacketStatus{RssiPkt: r[0], SnrPkt: int8(r[1]), SignalRssiPkt: r[2]}, nil
}

func (d *Device) GetRxStats(ctx context.Context) (transceiver.RxStats, error) {
	r, err := d.readCommand(ctx, CGetStats, responseLengths[CGetStats])
	if err != nil {
		return transceiver.RxStats{}, err
	}
	return transceiver.RxStats{
		PktRx:     binary.BigEndian.Uint16(r[0:2]),
		CrcError:  binary.BigEndian.Uint16(r[2:4]),
		HeaderErr: binary.BigEndian.Uint16(r[4:6]),
		FalseSync: binary.BigEndian.Uint16(r[6:8]),
	}, nil
}

func (d *Device) ClearRxStats(ctx context.Context) error {
	return d.writeCommand(ctx, CResetStats)
}

func (d *Device) GetTemperature(ctx context.Context) (uint16, error) {
	r, err := d.readCommand(ctx, CGetTemp, responseLengths[CGetTemp])
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(r) & 0x07FF, nil
}

func (d *Device) Buffer() []byte { return d.buf[:] }
