// Package transceiver describes the radio driver contract used by the link node
// and the LR1120 data types exchanged through it.
package transceiver

import "context"

// BufferSize is the capacity of the internal packet buffer lent by a Radio.
const BufferSize = 256

// RxContinuous is the receive timeout meaning "no timeout".
const RxContinuous uint32 = 0xFFFFFFFF

// Radio is a command/response transceiver. Every command is a round trip over
// the control bus and may block until the chip is ready again.
//
// A Radio is owned by a single goroutine; implementations are not required to
// be safe for concurrent use.
type Radio interface {
	Reset(ctx context.Context) error
	GetVersion(ctx context.Context) (Version, error)
	GetStatus(ctx context.Context) (Status, Intr, error)

	SetRf(ctx context.Context, freqHz uint32) error
	Calibrate(ctx context.Context, flags CalibFlags) error
	SetPacketType(ctx context.Context, pt PacketType) error
	SetLoraModulation(ctx context.Context, mod LoraModulationParams) error
	SetLoraPacket(ctx context.Context, pkt LoraPacketParams) error
	SetTxParams(ctx context.Context, powerDbm int8, ramp RampTime) error
	SetDioIrq(ctx context.Context, dio9, dio11 Intr) error
	SetDioRfSwitch(ctx context.Context, cfg DioRfSwitchCfg) error

	SetChipMode(ctx context.Context, mode ChipMode) error
	SetRx(ctx context.Context, timeout uint32) error
	SetTx(ctx context.Context, timeout uint32) error

	// WrTxBuffer sends the first n bytes of Buffer() to the chip.
	WrTxBuffer(ctx context.Context, n int) error
	// RdRxBuffer copies n bytes at offset from the chip into Buffer()[:n].
	RdRxBuffer(ctx context.Context, offset uint8, n int) error
	ClearRxBuffer(ctx context.Context) error
	// ClearIrqs clears the flags set in mask; IntrAll clears everything.
	ClearIrqs(ctx context.Context, mask Intr) error

	GetRxBufferStatus(ctx context.Context) (RxBufferStatus, error)
	GetLoraPacketStatus(ctx context.Context) (LoraPacketStatus, error)
	GetRxStats(ctx context.Context) (RxStats, error)
	ClearRxStats(ctx context.Context) error

	GetTemperature(ctx context.Context) (uint16, error)

	// Buffer gives direct access to the packet buffer. The slice must not be
	// retained across commands.
	Buffer() []byte
}
