package node

import (
	"context"
	"fmt"
	"strconv"

	"github.com/TheClams/lr1120-apps/transceiver"
)

// HandleInterrupt reads the IRQ flags and reports a received packet or a
// completed transmission. Flags are always cleared before returning.
func (n *Node) HandleInterrupt(ctx context.Context) {
	defer func() {
		if err := n.radio.ClearIrqs(ctx, transceiver.IntrAll); err != nil {
			n.log.Errorf("Clear IRQs: %v", err)
		}
	}()
	_, intr, err := n.radio.GetStatus(ctx)
	if err != nil {
		n.log.Errorf("Getting intr: %v", err)
		return
	}
	switch {
	case intr.RxDone():
		n.readPacket(ctx, intr)
	case intr.TxDone():
		n.log.Info("[TX] Packet sent")
	}
}

func (n *Node) readPacket(ctx context.Context, intr transceiver.Intr) {
	defer func() {
		if err := n.radio.ClearRxBuffer(ctx); err != nil {
			n.log.Errorf("Clear Rx Buffer: %v", err)
		}
	}()
	status, err := n.radio.GetRxBufferStatus(ctx)
	if err != nil {
		n.log.Errorf("RX Fifo level: %v", err)
		return
	}
	if intr.RxError() {
		n.log.Warnf("[RX] intr=%s | %d bytes @ %d", intr, status.PldLen, status.Offset)
		return
	}
	length := int(status.PldLen)
	if length > n.cfg.PayloadLength {
		n.log.Warnf("[RX] %d bytes @ %d exceeds the %d bytes payload", length, status.Offset, n.cfg.PayloadLength)
		return
	}
	// the radio appends 2 status bytes to the payload
	if err := n.radio.RdRxBuffer(ctx, status.Offset, length+2); err != nil {
		n.log.Errorf("RdRxBuffer: %v", err)
		return
	}
	pkt, err := n.radio.GetLoraPacketStatus(ctx)
	if err != nil {
		n.log.Errorf("RX status: %v", err)
		return
	}
	data := n.radio.Buffer()[:length+2]
	snr, snrFrac := pkt.SnrParts()
	n.log.Infof("[RX] Payload = [%s] | intr=%08x | RSSI=%ddBm, SNR=%d.%02d",
		transceiver.Dump(data), intr.Value(), pkt.RssiDbm(), snr, snrFrac)

	missed, ok := n.seq.check(data[:length])
	if !ok {
		n.log.Warnf("[RX] Payload is not a packet sequence")
	} else if missed > 0 {
		n.log.Warnf("[RX] %d packets missed", missed)
	}
	n.out.UpdateComponent("rx/payload", transceiver.Dump(data[:length]))
	n.out.UpdateComponent("rx/rssi", strconv.Itoa(pkt.RssiDbm()))
	n.out.UpdateComponent("rx/snr", fmt.Sprintf("%d.%02d", snr, snrFrac))
	n.out.UpdateComponent("rx/missed", strconv.Itoa(n.seq.missed))
}

// sequence follows the packet ids sent by a node in TX role: each payload
// holds id, id+1, ... and ids increase by one per packet.
type sequence struct {
	started bool
	next    uint8
	missed  int
	corrupt int
}

// check returns how many packets were skipped before payload, and false
// when the payload is not a run of consecutive bytes.
func (s *sequence) check(payload []byte) (int, bool) {
	if len(payload) == 0 {
		return 0, true
	}
	id := payload[0]
	for i, b := range payload {
		if b != id+uint8(i) {
			s.corrupt++
			return 0, false
		}
	}
	missed := 0
	if s.started {
		missed = int(id - s.next)
	}
	s.started = true
	s.next = id + 1
	s.missed += missed
	return missed, true
}
