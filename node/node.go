// Package node is the LoRa link demonstrator: a node that is either a
// transmitter of numbered packets or a receiver reporting them, switching
// role on a long button press.
package node

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/TheClams/lr1120-apps/board"
	"github.com/TheClams/lr1120-apps/outside"
	"github.com/TheClams/lr1120-apps/transceiver"
)

// Config is the radio setup of the link. Both ends must agree on it.
type Config struct {
	FrequencyHz   uint32
	Modulation    transceiver.LoraModulationParams
	PreambleLen   uint16 // 0 keeps the default for the spreading factor
	PayloadLength int
	TxPowerDbm    int8
	RampTime      transceiver.RampTime
	RfSwitch      transceiver.DioRfSwitchCfg
}

func DefaultConfig() Config {
	return Config{
		FrequencyHz:   901000000,
		Modulation:    transceiver.LoraModulationBasic(transceiver.Sf5, transceiver.LoraBw500),
		PayloadLength: 10,
		TxPowerDbm:    0,
		RampTime:      transceiver.Ramp16u,
		RfSwitch:      transceiver.NewLfHf(transceiver.Dio6, transceiver.Dio5, transceiver.Dio8, transceiver.Dio8).WithGnss(transceiver.Dio7),
	}
}

// PacketParams are the LoRa framing parameters derived from the config.
func (c Config) PacketParams() transceiver.LoraPacketParams {
	p := transceiver.LoraPacketBasic(uint8(c.PayloadLength), c.Modulation)
	if c.PreambleLen != 0 {
		p.PreambleLen = c.PreambleLen
	}
	return p
}

// Indicators set the mode of the RX and TX LEDs.
type Indicators interface {
	Set(led board.Led, mode board.LedMode)
}

// PressSource delivers classified button presses.
type PressSource interface {
	Presses() <-chan board.PressKind
}

// InterruptLine delivers radio IRQ rising edges.
type InterruptLine interface {
	Edges() <-chan struct{}
}

// Node owns the radio, the role and the packet counter. All its methods must
// be called from the goroutine running Run.
type Node struct {
	cfg   Config
	radio transceiver.Radio
	leds  Indicators
	out   outside.Interface
	log   *logrus.Entry

	role     Role
	packetID uint8
	seq      sequence
}

func New(cfg Config, radio transceiver.Radio, leds Indicators, out outside.Interface, log *logrus.Entry) *Node {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if out == nil {
		out = outside.Multi{}
	}
	return &Node{
		cfg:   cfg,
		radio: radio,
		leds:  leds,
		out:   out,
		log:   log,
		role:  RoleRx,
	}
}

func (n *Node) Role() Role { return n.role }

// PacketID is the first byte of the next packet sent.
func (n *Node) PacketID() uint8 { return n.packetID }

// Setup resets and configures the radio, then starts listening.
func (n *Node) Setup(ctx context.Context) error {
	n.leds.Set(board.LedRx, board.LedBlinkSlow)
	n.leds.Set(board.LedTx, board.LedOff)
	if err := n.radio.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	if v, err := n.radio.GetVersion(ctx); err != nil {
		n.log.Warnf("Unable to read version: %v", err)
	} else {
		n.log.Infof("LR1120 %s", v)
	}

	if err := n.radio.SetRf(ctx, n.cfg.FrequencyHz); err != nil {
		return fmt.Errorf("setting RF to %dHz: %w", n.cfg.FrequencyHz, err)
	}
	if err := n.radio.Calibrate(ctx, transceiver.CalibFrontEnd()); err != nil {
		return fmt.Errorf("front-end calibration: %w", err)
	}
	if status, intr, err := n.radio.GetStatus(ctx); err != nil {
		n.log.Warnf("Calibration Failed: %v", err)
	} else {
		n.log.Infof("Calibration Done: %s | %s", status, intr)
	}

	pkt := n.cfg.PacketParams()
	if err := n.radio.SetPacketType(ctx, transceiver.PacketTypeLora); err != nil {
		return fmt.Errorf("setting packet type: %w", err)
	}
	if err := n.radio.SetLoraModulation(ctx, n.cfg.Modulation); err != nil {
		return fmt.Errorf("setting modulation %s: %w", n.cfg.Modulation, err)
	}
	if err := n.radio.SetLoraPacket(ctx, pkt); err != nil {
		return fmt.Errorf("setting packet parameters: %w", err)
	}
	if err := n.radio.SetTxParams(ctx, n.cfg.TxPowerDbm, n.cfg.RampTime); err != nil {
		return fmt.Errorf("setting TX parameters: %w", err)
	}
	if err := n.radio.SetDioIrq(ctx, transceiver.IntrTxRx(), transceiver.IntrNone); err != nil {
		return fmt.Errorf("setting DIO9 as IRQ: %w", err)
	}
	if err := n.radio.SetDioRfSwitch(ctx, n.cfg.RfSwitch); err != nil {
		return fmt.Errorf("setting RF switch: %w", err)
	}
	n.log.Infof("%s, %d bytes payload, preamble %d, %ddBm", n.cfg.Modulation, n.cfg.PayloadLength, pkt.PreambleLen, n.cfg.TxPowerDbm)

	n.role = RoleRx
	if err := n.radio.SetRx(ctx, transceiver.RxContinuous); err != nil {
		n.log.Errorf("Fail while SetRx: %v", err)
	} else {
		n.log.Info("[RX] Searching Preamble")
	}
	n.out.UpdateComponent("role", n.role.String())
	return nil
}

// Run waits for a button press or a radio interrupt, whichever comes first,
// and handles it. It returns when ctx is done.
func (n *Node) Run(ctx context.Context, presses PressSource, irq InterruptLine) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case press := <-presses.Presses():
			n.HandlePress(ctx, press)
		case <-irq.Edges():
			n.leds.Set(board.LedRx, board.LedFlash)
			n.HandleInterrupt(ctx)
		}
	}
}

// HandlePress routes a press according to the current role.
func (n *Node) HandlePress(ctx context.Context, press board.PressKind) {
	switch {
	case press == board.PressShort && n.role == RoleRx:
		n.showAndClearRxStats(ctx)
	case press == board.PressShort && n.role == RoleTx:
		n.sendPacket(ctx)
		n.leds.Set(board.LedTx, board.LedFlash)
	case press == board.PressLong:
		n.role.Toggle()
		n.applyRole(ctx)
	default:
		n.log.Warnf("%s in role %s not implemented !", press, n.role)
	}
}

func (n *Node) showAndClearRxStats(ctx context.Context) {
	stats, err := n.radio.GetRxStats(ctx)
	if err != nil {
		n.log.Errorf("RX stats: %v", err)
		return
	}
	n.log.Infof("[RX] Clearing stats | RX=%d, CRC Err=%d, HdrErr=%d, FalseSync=%d",
		stats.PktRx, stats.CrcError, stats.HeaderErr, stats.FalseSync)
	n.out.UpdateComponent("stats/rx", strconv.Itoa(int(stats.PktRx)))
	n.out.UpdateComponent("stats/crc_error", strconv.Itoa(int(stats.CrcError)))
	n.out.UpdateComponent("stats/header_error", strconv.Itoa(int(stats.HeaderErr)))
	n.out.UpdateComponent("stats/false_sync", strconv.Itoa(int(stats.FalseSync)))
	if err := n.radio.ClearRxStats(ctx); err != nil {
		n.log.Errorf("Clear stats: %v", err)
	}
}

// sendPacket fills the payload with id, id+1, ... and transmits it. The id
// advances once the send has been attempted, even when it failed.
func (n *Node) sendPacket(ctx context.Context) {
	n.log.Infof("[TX] Sending packet %d", n.packetID)
	defer func() {
		n.packetID++
		n.out.UpdateComponent("tx/packet_id", strconv.Itoa(int(n.packetID)))
	}()
	length := n.cfg.PayloadLength
	buf := n.radio.Buffer()
	for i := 0; i < length; i++ {
		buf[i] = n.packetID + uint8(i)
	}
	if err := n.radio.WrTxBuffer(ctx, length); err != nil {
		n.log.Errorf("FIFO write: %v", err)
		return
	}
	if err := n.radio.SetTx(ctx, 0); err != nil {
		n.log.Errorf("SetTx: %v", err)
	}
}

// applyRole puts the radio in the mode matching the role. On failure the
// role is kept, so another long press retries.
func (n *Node) applyRole(ctx context.Context) {
	n.out.UpdateComponent("role", n.role.String())
	if err := n.radio.SetChipMode(ctx, transceiver.ChipModeFs); err != nil {
		n.log.Errorf("SetFs: %v", err)
		return
	}
	if n.role.IsRx() {
		if err := n.radio.SetRx(ctx, transceiver.RxContinuous); err != nil {
			n.log.Errorf("SetRx: %v", err)
			return
		}
		n.leds.Set(board.LedTx, board.LedOff)
		n.leds.Set(board.LedRx, board.LedBlinkSlow)
		n.log.Info(" -> Switched to RX")
		return
	}
	n.leds.Set(board.LedTx, board.LedBlinkSlow)
	n.leds.Set(board.LedRx, board.LedOff)
	n.log.Info(" -> Switching to FS: ready for TX")
}
