package transceiver

import "fmt"

// PacketType selects the modem.
type PacketType uint8

const (
	PacketTypeNone PacketType = 0x00
	PacketTypeGfsk PacketType = 0x01
	PacketTypeLora PacketType = 0x02
)

// Sf is the LoRa spreading factor.
type Sf uint8

const (
	Sf5  Sf = 5
	Sf6  Sf = 6
	Sf7  Sf = 7
	Sf8  Sf = 8
	Sf9  Sf = 9
	Sf10 Sf = 10
	Sf11 Sf = 11
	Sf12 Sf = 12
)

// ParseSf validates a spreading factor number.
func ParseSf(n int) (Sf, error) {
	if n < int(Sf5) || n > int(Sf12) {
		return 0, fmt.Errorf("spreading factor %d out of range 5..12", n)
	}
	return Sf(n), nil
}

// LoraBw is the LoRa bandwidth register code.
type LoraBw uint8

const (
	LoraBw62  LoraBw = 0x03
	LoraBw125 LoraBw = 0x04
	LoraBw250 LoraBw = 0x05
	LoraBw500 LoraBw = 0x06
)

// Hz is the bandwidth in Hertz.
func (b LoraBw) Hz() uint32 {
	switch b {
	case LoraBw62:
		return 62500
	case LoraBw125:
		return 125000
	case LoraBw250:
		return 250000
	case LoraBw500:
		return 500000
	}
	return 0
}

// ParseLoraBw maps a bandwidth in kHz to its code.
func ParseLoraBw(khz int) (LoraBw, error) {
	switch khz {
	case 62:
		return LoraBw62, nil
	case 125:
		return LoraBw125, nil
	case 250:
		return LoraBw250, nil
	case 500:
		return LoraBw500, nil
	}
	return 0, fmt.Errorf("unsupported LoRa bandwidth %d kHz", khz)
}

// LoraCr is the coding rate code.
type LoraCr uint8

const (
	LoraCr4_5 LoraCr = 0x01
	LoraCr4_6 LoraCr = 0x02
	LoraCr4_7 LoraCr = 0x03
	LoraCr4_8 LoraCr = 0x04
)

// LoraModulationParams are the SetModulationParams arguments in LoRa mode.
type LoraModulationParams struct {
	Sf   Sf
	Bw   LoraBw
	Cr   LoraCr
	Ldro bool
}

// LoraModulationBasic uses CR 4/5 and enables low data rate optimisation when
// a symbol lasts 16 ms or more.
func LoraModulationBasic(sf Sf, bw LoraBw) LoraModulationParams {
	return LoraModulationParams{
		Sf:   sf,
		Bw:   bw,
		Cr:   LoraCr4_5,
		Ldro: symbolTimeUs(sf, bw) >= 16000,
	}
}

func symbolTimeUs(sf Sf, bw LoraBw) uint32 {
	hz := bw.Hz()
	if hz == 0 {
		return 0
	}
	return uint32((uint64(1) << sf) * 1000000 / uint64(hz))
}

func (m LoraModulationParams) String() string {
	return fmt.Sprintf("SF%d BW%dk CR4/%d ldro=%t", m.Sf, m.Bw.Hz()/1000, 4+uint8(m.Cr), m.Ldro)
}

// HeaderType selects explicit or implicit LoRa header.
type HeaderType uint8

const (
	HeaderExplicit HeaderType = 0x00
	HeaderImplicit HeaderType = 0x01
)

// LoraPacketParams are the SetPacketParams arguments in LoRa mode.
type LoraPacketParams struct {
	PreambleLen uint16
	Header      HeaderType
	PayloadLen  uint8
	Crc         bool
	InvertIQ    bool
}

// LoraPacketBasic is an explicit header, CRC on, standard IQ packet. SF5 and
// SF6 need a 12 symbol preamble, 8 symbols otherwise.
func LoraPacketBasic(payloadLen uint8, mod LoraModulationParams) LoraPacketParams {
	preamble := uint16(8)
	if mod.Sf < Sf7 {
		preamble = 12
	}
	return LoraPacketParams{
		PreambleLen: preamble,
		Header:      HeaderExplicit,
		PayloadLen:  payloadLen,
		Crc:         true,
	}
}

// RampTime is the PA ramp time code.
type RampTime uint8

const (
	Ramp16u  RampTime = 0x00
	Ramp32u  RampTime = 0x01
	Ramp48u  RampTime = 0x02
	Ramp64u  RampTime = 0x03
	Ramp80u  RampTime = 0x04
	Ramp96u  RampTime = 0x05
	Ramp112u RampTime = 0x06
	Ramp128u RampTime = 0x07
	Ramp144u RampTime = 0x08
	Ramp160u RampTime = 0x09
	Ramp176u RampTime = 0x0A
	Ramp192u RampTime = 0x0B
	Ramp208u RampTime = 0x0C
	Ramp240u RampTime = 0x0D
	Ramp272u RampTime = 0x0E
	Ramp304u RampTime = 0x0F
)

var rampMicros = []int{16, 32, 48, 64, 80, 96, 112, 128, 144, 160, 176, 192, 208, 240, 272, 304}

// ParseRampTime picks the ramp code for a duration in microseconds.
func ParseRampTime(us int) (RampTime, error) {
	for i, v := range rampMicros {
		if v == us {
			return RampTime(i), nil
		}
	}
	return 0, fmt.Errorf("unsupported ramp time %dus", us)
}

// DioNum is a DIO usable for RF switch control.
type DioNum uint8

const (
	Dio5 DioNum = iota
	Dio6
	Dio7
	Dio8
	Dio10
)

func (d DioNum) mask() uint8 { return 1 << d }

// DioRfSwitchCfg gives, for each radio state, the DIOs driven high.
type DioRfSwitchCfg struct {
	Enable uint8
	Stby   uint8
	Rx     uint8
	Tx     uint8
	TxHp   uint8
	TxHf   uint8
	Gnss   uint8
	Wifi   uint8
}

// NewLfHf builds a switch config for a board with separate sub-GHz and 2.4 GHz
// paths.
func NewLfHf(lfTx, lfRx, hfTx, hfRx DioNum) DioRfSwitchCfg {
	c := DioRfSwitchCfg{
		Rx:   lfRx.mask() | hfRx.mask(),
		Tx:   lfTx.mask(),
		TxHp: lfTx.mask(),
		TxHf: hfTx.mask(),
	}
	c.Enable = c.Rx | c.Tx | c.TxHf
	return c
}

// WithGnss adds a DIO driven while the GNSS scanner runs.
func (c DioRfSwitchCfg) WithGnss(d DioNum) DioRfSwitchCfg {
	c.Gnss = d.mask()
	c.Enable |= c.Gnss
	return c
}

// Bytes is the SetDioAsRfSwitch parameter block.
func (c DioRfSwitchCfg) Bytes() []byte {
	return []byte{c.Enable, c.Stby, c.Rx, c.Tx, c.TxHp, c.TxHf, c.Gnss, c.Wifi}
}

// CalibFlags selects the blocks run by Calibrate.
type CalibFlags struct {
	LfRc  bool
	HfRc  bool
	Pll   bool
	Adc   bool
	Image bool
	PllTx bool
}

// CalibFrontEnd calibrates everything but the RC oscillators.
func CalibFrontEnd() CalibFlags {
	return CalibFlags{Pll: true, Adc: true, Image: true, PllTx: true}
}

func (c CalibFlags) Mask() uint8 {
	var m uint8
	for i, on := range []bool{c.LfRc, c.HfRc, c.Pll, c.Adc, c.Image, c.PllTx} {
		if on {
			m |= 1 << i
		}
	}
	return m
}
