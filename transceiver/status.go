package transceiver

import (
	"fmt"
	"strings"
)

// Intr is the 32-bit interrupt status word.
type Intr uint32

// Interrupt bits
const (
	IntrTxDone      Intr = 1 << 2
	IntrRxDone      Intr = 1 << 3
	IntrPreamble    Intr = 1 << 4
	IntrHeaderValid Intr = 1 << 5
	IntrHeaderErr   Intr = 1 << 6
	IntrCrcErr      Intr = 1 << 7
	IntrCadDone     Intr = 1 << 8
	IntrCadDetected Intr = 1 << 9
	IntrTimeout     Intr = 1 << 10
	IntrCmdError    Intr = 1 << 22
	IntrError       Intr = 1 << 23

	IntrNone Intr = 0
	IntrAll  Intr = 0xFFFFFFFF
)

// IntrTxRx is the mask routed to the IRQ line for a TX/RX application.
func IntrTxRx() Intr {
	return IntrTxDone | IntrRxDone | IntrTimeout | IntrHeaderErr | IntrCrcErr
}

func (i Intr) TxDone() bool  { return i&IntrTxDone != 0 }
func (i Intr) RxDone() bool  { return i&IntrRxDone != 0 }
func (i Intr) Timeout() bool { return i&IntrTimeout != 0 }

// RxError reports a header or CRC error on the last reception.
func (i Intr) RxError() bool { return i&(IntrHeaderErr|IntrCrcErr) != 0 }

func (i Intr) Value() uint32 { return uint32(i) }

var intrNames = []struct {
	bit  Intr
	name string
}{
	{IntrTxDone, "TxDone"},
	{IntrRxDone, "RxDone"},
	{IntrPreamble, "Preamble"},
	{IntrHeaderValid, "HeaderValid"},
	{IntrHeaderErr, "HeaderErr"},
	{IntrCrcErr, "CrcErr"},
	{IntrCadDone, "CadDone"},
	{IntrCadDetected, "CadDetected"},
	{IntrTimeout, "Timeout"},
	{IntrCmdError, "CmdError"},
	{IntrError, "Error"},
}

func (i Intr) String() string {
	var names []string
	for _, n := range intrNames {
		if i&n.bit != 0 {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return fmt.Sprintf("%08x", uint32(i))
	}
	return fmt.Sprintf("%08x(%s)", uint32(i), strings.Join(names, "|"))
}

// CmdStatus is the status of the last command, reported in Stat1 bits 3:1.
type CmdStatus uint8

const (
	CmdFail CmdStatus = 0
	CmdPErr CmdStatus = 1
	CmdOk   CmdStatus = 2
	CmdDat  CmdStatus = 3
)

func (c CmdStatus) String() string {
	switch c {
	case CmdFail:
		return "CMD_FAIL"
	case CmdPErr:
		return "CMD_PERR"
	case CmdOk:
		return "CMD_OK"
	case CmdDat:
		return "CMD_DAT"
	}
	return fmt.Sprintf("CMD_%d", uint8(c))
}

// ChipMode is the operating mode of the transceiver.
type ChipMode uint8

const (
	ChipModeSleep ChipMode = iota
	ChipModeStandbyRC
	ChipModeStandbyXosc
	ChipModeFs
	ChipModeRx
	ChipModeTx
	ChipModeLoc
)

func (m ChipMode) String() string {
	switch m {
	case ChipModeSleep:
		return "Sleep"
	case ChipModeStandbyRC:
		return "StandbyRC"
	case ChipModeStandbyXosc:
		return "StandbyXosc"
	case ChipModeFs:
		return "Fs"
	case ChipModeRx:
		return "Rx"
	case ChipModeTx:
		return "Tx"
	case ChipModeLoc:
		return "Loc"
	}
	return fmt.Sprintf("ChipMode(%d)", uint8(m))
}

// Status is decoded from the two status bytes returned on every transfer.
type Status struct {
	Cmd         CmdStatus
	IntActive   bool
	Mode        ChipMode
	ResetSource uint8
	Bootloader  bool
}

// ParseStatus decodes Stat1 and Stat2.
func ParseStatus(stat1, stat2 byte) Status {
	return Status{
		Cmd:         CmdStatus((stat1 >> 1) & 0x07),
		IntActive:   stat1&0x01 != 0,
		Mode:        ChipMode((stat2 >> 1) & 0x07),
		ResetSource: stat2 >> 4,
		Bootloader:  stat2&0x01 != 0,
	}
}

func (s Status) String() string {
	return fmt.Sprintf("%s mode=%s irq=%t reset=%d", s.Cmd, s.Mode, s.IntActive, s.ResetSource)
}

// Version is the hardware and firmware identification.
type Version struct {
	Hw      uint8
	UseCase uint8
	Major   uint8
	Minor   uint8
}

func (v Version) String() string {
	return fmt.Sprintf("hw=%02x type=%02x fw=%02x.%02x", v.Hw, v.UseCase, v.Major, v.Minor)
}

// RxBufferStatus locates the last received payload in the chip buffer.
type RxBufferStatus struct {
	PldLen uint8
	Offset uint8
}

// RxStats are the chip reception counters, cleared with ClearRxStats.
type RxStats struct {
	PktRx     uint16
	CrcError  uint16
	HeaderErr uint16
	FalseSync uint16
}

// LoraPacketStatus is the metadata of the last received LoRa packet.
type LoraPacketStatus struct {
	RssiPkt       uint8 // -RssiPkt/2 dBm
	SnrPkt        int8  // SnrPkt/4 dB
	SignalRssiPkt uint8
}

// RssiDbm is the packet RSSI in dBm.
func (p LoraPacketStatus) RssiDbm() int {
	return -int(p.RssiPkt >> 1)
}

// SnrParts splits the SNR register into an integer part and a fractional part
// in hundredths: the low 2 bits scaled by 25.
func (p LoraPacketStatus) SnrParts() (int, int) {
	return int(p.SnrPkt >> 2), int(p.SnrPkt&3) * 25
}
