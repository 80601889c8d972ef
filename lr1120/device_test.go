package lr1120

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"periph.io/x/periph/conn/gpio"

	"github.com/TheClams/lr1120-apps/transceiver"
)

func Assert(t *testing.T, condition bool, errorMessage string) {
	t.Helper()
	if !condition {
		t.Error(errorMessage)
	}
}

// fakeBus records every write and answers with queued responses, zeros
// once the queue is empty.
type fakeBus struct {
	writes    [][]byte
	responses [][]byte
	err       error
}

func (b *fakeBus) Tx(w, r []byte) error {
	if b.err != nil {
		return b.err
	}
	b.writes = append(b.writes, append([]byte(nil), w...))
	if len(b.responses) > 0 {
		copy(r, b.responses[0])
		b.responses = b.responses[1:]
	}
	return nil
}

type fakePin struct {
	level  gpio.Level
	levels []gpio.Level
}

func (p *fakePin) Read() gpio.Level { return p.level }

func (p *fakePin) Out(l gpio.Level) error {
	p.levels = append(p.levels, l)
	return nil
}

func newTestDevice() (*Device, *fakeBus, *fakePin) {
	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.TraceLevel)
	b := &fakeBus{}
	reset := &fakePin{}
	d := New(b, reset, &fakePin{level: gpio.Low}, logrus.NewEntry(logger))
	return d, b, reset
}

// okStat is Stat1 with CMD_OK and no pending interrupt.
const okStat = byte(transceiver.CmdOk) << 1

func TestCommandEncoding(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		run  func(d *Device) error
		want []byte
	}{
		{"set rf 901MHz", func(d *Device) error { return d.SetRf(ctx, 901000000) },
			[]byte{0x02, 0x0B, 0x35, 0xB4, 0x2B, 0x40}},
		{"set rx continuous", func(d *Device) error { return d.SetRx(ctx, transceiver.RxContinuous) },
			[]byte{0x02, 0x09, 0xFF, 0xFF, 0xFF}},
		{"set tx no timeout", func(d *Device) error { return d.SetTx(ctx, 0) },
			[]byte{0x02, 0x0A, 0x00, 0x00, 0x00}},
		{"calibrate front end", func(d *Device) error { return d.Calibrate(ctx, transceiver.CalibFrontEnd()) },
			[]byte{0x01, 0x0F, 0x3C}},
		{"packet type lora", func(d *Device) error { return d.SetPacketType(ctx, transceiver.PacketTypeLora) },
			[]byte{0x02, 0x0E, 0x02}},
		{"modulation sf5 bw500", func(d *Device) error {
			return d.SetLoraModulation(ctx, transceiver.LoraModulationBasic(transceiver.Sf5, transceiver.LoraBw500))
		}, []byte{0x02, 0x0F, 0x05, 0x06, 0x01, 0x00}},
		{"packet params", func(d *Device) error {
			mod := transceiver.LoraModulationBasic(transceiver.Sf5, transceiver.LoraBw500)
			return d.SetLoraPacket(ctx, transceiver.LoraPacketBasic(10, mod))
		}, []byte{0x02, 0x10, 0x00, 0x0C, 0x00, 0x0A, 0x01, 0x00}},
		{"tx params", func(d *Device) error { return d.SetTxParams(ctx, -9, transceiver.Ramp48u) },
			[]byte{0x02, 0x11, 0xF7, 0x02}},
		{"dio irq", func(d *Device) error { return d.SetDioIrq(ctx, transceiver.IntrTxRx(), transceiver.IntrNone) },
			[]byte{0x01, 0x13, 0x00, 0x00, 0x04, 0xCC, 0x00, 0x00, 0x00, 0x00}},
		{"clear all irqs", func(d *Device) error { return d.ClearIrqs(ctx, transceiver.IntrAll) },
			[]byte{0x01, 0x14, 0xFF, 0xFF, 0xFF, 0xFF}},
		{"fs mode", func(d *Device) error { return d.SetChipMode(ctx, transceiver.ChipModeFs) },
			[]byte{0x01, 0x1D}},
		{"standby xosc", func(d *Device) error { return d.SetChipMode(ctx, transceiver.ChipModeStandbyXosc) },
			[]byte{0x01, 0x1C, 0x01}},
		{"clear rx buffer", func(d *Device) error { return d.ClearRxBuffer(ctx) },
			[]byte{0x01, 0x0B}},
		{"reset stats", func(d *Device) error { return d.ClearRxStats(ctx) },
			[]byte{0x02, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, b, _ := newTestDevice()
			if err := tt.run(d); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(b.writes) != 1 {
				t.Fatalf("got %d transfers, want 1", len(b.writes))
			}
			if !reflect.DeepEqual(b.writes[0], tt.want) {
				t.Errorf("wrote [%s], want [%s]", transceiver.Dump(b.writes[0]), transceiver.Dump(tt.want))
			}
		})
	}
}

func TestChipModeRejected(t *testing.T) {
	d, b, _ := newTestDevice()
	err := d.SetChipMode(context.Background(), transceiver.ChipModeRx)
	var terr *transceiver.Error
	Assert(t, errors.As(err, &terr) && terr.Type == transceiver.EBadParameter, "RX mode should be a bad parameter")
	Assert(t, len(b.writes) == 0, "nothing should be sent for a rejected mode")
}

func TestWriteTxBuffer(t *testing.T) {
	d, b, _ := newTestDevice()
	buf := d.Buffer()
	for i := 0; i < 4; i++ {
		buf[i] = byte(0xA0 + i)
	}
	Assert(t, d.WrTxBuffer(context.Background(), 4) == nil, "write failed")
	want := []byte{0x01, 0x09, 0xA0, 0xA1, 0xA2, 0xA3}
	Assert(t, reflect.DeepEqual(b.writes[0], want), "wrong write: "+transceiver.Dump(b.writes[0]))

	err := d.WrTxBuffer(context.Background(), transceiver.BufferSize)
	Assert(t, errors.Is(err, transceiver.ErrBufferOverflow), "overflow not reported")
	Assert(t, len(b.writes) == 1, "overflowing write reached the bus")
}

func TestReadRxBuffer(t *testing.T) {
	d, b, _ := newTestDevice()
	b.responses = [][]byte{nil, {okStat, 1, 2, 3}}
	Assert(t, d.RdRxBuffer(context.Background(), 0x10, 3) == nil, "read failed")
	Assert(t, reflect.DeepEqual(b.writes[0], []byte{0x01, 0x0A, 0x10, 0x03}), "wrong read command: "+transceiver.Dump(b.writes[0]))
	Assert(t, len(b.writes[1]) == 4, "response transfer should be status + 3 bytes")
	Assert(t, reflect.DeepEqual(d.Buffer()[:3], []byte{1, 2, 3}), "payload not copied: "+transceiver.Dump(d.Buffer()[:3]))
}

func TestGetRxStats(t *testing.T) {
	d, b, _ := newTestDevice()
	b.responses = [][]byte{nil, {okStat, 0x01, 0x02, 0x00, 0x03, 0x00, 0x04, 0x00, 0x05}}
	st, err := d.GetRxStats(context.Background())
	Assert(t, err == nil, "GetRxStats failed")
	want := transceiver.RxStats{PktRx: 0x0102, CrcError: 3, HeaderErr: 4, FalseSync: 5}
	if st != want {
		t.Errorf("GetRxStats() = %+v, want %+v", st, want)
	}
}

func TestGetStatus(t *testing.T) {
	d, b, _ := newTestDevice()
	b.responses = [][]byte{{0x05, 0x16, 0x00, 0x00, 0x00, 0x08}}
	st, intr, err := d.GetStatus(context.Background())
	Assert(t, err == nil, "GetStatus failed")
	Assert(t, st.Cmd == transceiver.CmdOk && st.Mode == transceiver.ChipModeFs, "status not decoded: "+st.String())
	Assert(t, intr == transceiver.IntrRxDone, "irq word not decoded: "+intr.String())
	Assert(t, len(b.writes) == 1 && len(b.writes[0]) == 6, "GetStatus is a single 6 byte transfer")
}

func TestPacketStatusAndVersion(t *testing.T) {
	d, b, _ := newTestDevice()
	b.responses = [][]byte{nil, {okStat, 90, 0xFB, 88}, nil, {okStat, 0x22, 0x01, 0x01, 0x02}}
	ps, err := d.GetLoraPacketStatus(context.Background())
	Assert(t, err == nil && ps.RssiDbm() == -45 && ps.SnrPkt == -5, "packet status not decoded")
	v, err := d.GetVersion(context.Background())
	Assert(t, err == nil && v == transceiver.Version{Hw: 0x22, UseCase: 1, Major: 1, Minor: 2}, "version not decoded: "+v.String())
}

func TestCommandFailure(t *testing.T) {
	d, b, _ := newTestDevice()
	b.responses = [][]byte{nil, {byte(transceiver.CmdFail) << 1}}
	_, err := d.GetRxBufferStatus(context.Background())
	var terr *transceiver.Error
	if !errors.As(err, &terr) {
		t.Fatalf("expected a transceiver error, got %v", err)
	}
	Assert(t, terr.Type == transceiver.ECommandFailed, "wrong error type")
	Assert(t, terr.Error() == "GetRxBufferStatus: command failed (CMD_FAIL)", "unexpected message: "+terr.Error())
}

func TestBusError(t *testing.T) {
	d, b, _ := newTestDevice()
	b.err = errors.New("spi gone")
	err := d.SetChipMode(context.Background(), transceiver.ChipModeFs)
	Assert(t, err != nil && errors.Is(err, b.err), "bus error not wrapped")
}

func TestBusyTimeout(t *testing.T) {
	d, b, _ := newTestDevice()
	d.busy = &fakePin{level: gpio.High}
	d.BusyTimeout = time.Millisecond
	err := d.SetRx(context.Background(), transceiver.RxContinuous)
	Assert(t, errors.Is(err, transceiver.ErrBusyTimeout), "busy timeout not reported")
	Assert(t, len(b.writes) == 0, "command sent while busy")
}

func TestBusyCancelled(t *testing.T) {
	d, _, _ := newTestDevice()
	d.busy = &fakePin{level: gpio.High}
	d.BusyTimeout = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := d.SetTx(ctx, 0)
	Assert(t, errors.Is(err, context.Canceled), "cancellation not reported")
}

func TestReset(t *testing.T) {
	d, _, reset := newTestDevice()
	Assert(t, d.Reset(context.Background()) == nil, "reset failed")
	Assert(t, reflect.DeepEqual(reset.levels, []gpio.Level{gpio.Low, gpio.High}), "NRESET not pulsed")
}

func TestTemperature(t *testing.T) {
	d, b, _ := newTestDevice()
	b.responses = [][]byte{nil, {okStat, 0xF9, 0x10}}
	raw, err := d.GetTemperature(context.Background())
	Assert(t, err == nil && raw == 0x0110, "temperature not masked to 11 bits")
}
