package simradio

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/TheClams/lr1120-apps/transceiver"
)

// Beacon is a remote transmitter sending the same numbered payloads as a
// link node in TX role. It lets a single node be exercised in RX role.
type Beacon struct {
	Radio         *Radio
	PayloadLength int
	Period        time.Duration
	Log           *logrus.Entry

	id uint8
}

// Configure puts the beacon radio on the same channel as the node.
func (b *Beacon) Configure(ctx context.Context, freqHz uint32, mod transceiver.LoraModulationParams) error {
	if err := b.Radio.SetRf(ctx, freqHz); err != nil {
		return err
	}
	if err := b.Radio.SetPacketType(ctx, transceiver.PacketTypeLora); err != nil {
		return err
	}
	if err := b.Radio.SetLoraModulation(ctx, mod); err != nil {
		return err
	}
	if err := b.Radio.SetLoraPacket(ctx, transceiver.LoraPacketBasic(uint8(b.PayloadLength), mod)); err != nil {
		return err
	}
	return b.Radio.SetChipMode(ctx, transceiver.ChipModeFs)
}

// Send transmits one payload and advances the id.
func (b *Beacon) Send(ctx context.Context) error {
	buf := b.Radio.Buffer()
	for i := 0; i < b.PayloadLength; i++ {
		buf[i] = b.id + uint8(i)
	}
	b.id++
	if err := b.Radio.WrTxBuffer(ctx, b.PayloadLength); err != nil {
		return err
	}
	if err := b.Radio.SetTx(ctx, 0); err != nil {
		return err
	}
	return b.Radio.ClearIrqs(ctx, transceiver.IntrAll)
}

// Run sends a payload every Period until ctx is done.
func (b *Beacon) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.Period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := b.Send(ctx); err != nil && b.Log != nil {
				b.Log.Errorf("beacon send: %v", err)
			}
		}
	}
}
