package lr1120

import "fmt"

// LR1120 commands
type Command uint16

// system commands
const (
	CGetStatus        Command = 0x0100
	CGetVersion       Command = 0x0101
	CWriteBuffer8     Command = 0x0109
	CReadBuffer8      Command = 0x010A
	CClearRxBuffer    Command = 0x010B
	CGetErrors        Command = 0x010D
	CClearErrors      Command = 0x010E
	CCalibrate        Command = 0x010F
	CSetRegMode       Command = 0x0110
	CCalibImage       Command = 0x0111
	CSetDioAsRfSwitch Command = 0x0112
	CSetDioIrqParams  Command = 0x0113
	CClearIrq         Command = 0x0114
	CConfigLfClock    Command = 0x0116
	CSetTcxoMode      Command = 0x0117
	CReboot           Command = 0x0118
	CGetVbat          Command = 0x0119
	CGetTemp          Command = 0x011A
	CSetSleep         Command = 0x011B
	CSetStandby       Command = 0x011C
	CSetFs            Command = 0x011D
)

// radio commands
const (
	CResetStats          Command = 0x0200
	CGetStats            Command = 0x0201
	CGetPacketType       Command = 0x0202
	CGetRxBufferStatus   Command = 0x0203
	CGetPacketStatus     Command = 0x0204
	CGetRssiInst         Command = 0x0205
	CSetRx               Command = 0x0209
	CSetTx               Command = 0x020A
	CSetRfFrequency      Command = 0x020B
	CSetPacketType       Command = 0x020E
	CSetModulationParams Command = 0x020F
	CSetPacketParams     Command = 0x0210
	CSetTxParams         Command = 0x0211
	CSetLoraSyncWord     Command = 0x022B
)

var commandNames = map[Command]string{
	CGetStatus:           "GetStatus",
	CGetVersion:          "GetVersion",
	CWriteBuffer8:        "WriteBuffer8",
	CReadBuffer8:         "ReadBuffer8",
	CClearRxBuffer:       "ClearRxBuffer",
	CGetErrors:           "GetErrors",
	CClearErrors:         "ClearErrors",
	CCalibrate:           "Calibrate",
	CSetRegMode:          "SetRegMode",
	CCalibImage:          "CalibImage",
	CSetDioAsRfSwitch:    "SetDioAsRfSwitch",
	CSetDioIrqParams:     "SetDioIrqParams",
	CClearIrq:            "ClearIrq",
	CConfigLfClock:       "ConfigLfClock",
	CSetTcxoMode:         "SetTcxoMode",
	CReboot:              "Reboot",
	CGetVbat:             "GetVbat",
	CGetTemp:             "GetTemp",
	CSetSleep:            "SetSleep",
	CSetStandby:          "SetStandby",
	CSetFs:               "SetFs",
	CResetStats:          "ResetStats",
	CGetStats:            "GetStats",
	CGetPacketType:       "GetPacketType",
	CGetRxBufferStatus:   "GetRxBufferStatus",
	CGetPacketStatus:     "GetPacketStatus",
	CGetRssiInst:         "GetRssiInst",
	CSetRx:               "SetRx",
	CSetTx:               "SetTx",
	CSetRfFrequency:      "SetRfFrequency",
	CSetPacketType:       "SetPacketType",
	CSetModulationParams: "SetModulationParams",
	CSetPacketParams:     "SetPacketParams",
	CSetTxParams:         "SetTxParams",
	CSetLoraSyncWord:     "SetLoraSyncWord",
}

func (c Command) String() string {
	if n, ok := commandNames[c]; ok {
		return n
	}
	return fmt.Sprintf("Command(%04x)", uint16(c))
}

// answer lengths of read commands, status byte excluded
var responseLengths = map[Command]int{
	CGetVersion:        4,
	CGetErrors:         2,
	CGetVbat:           1,
	CGetTemp:           2,
	CGetStats:          8,
	CGetPacketType:     1,
	CGetRxBufferStatus: 2,
	CGetPacketStatus:   3,
	CGetRssiInst:       1,
}

// standby configurations
const (
	standbyRC   byte = 0x00
	standbyXosc byte = 0x01
)

// timeout24 encodes a radio timeout on 24 bits, RxContinuous maps to 0xFFFFFF.
func timeout24(t uint32) []byte {
	if t > 0xFFFFFF {
		t = 0xFFFFFF
	}
	return []byte{byte(t >> 16), byte(t >> 8), byte(t)}
}

func be16(v uint16) []byte { return []byte{byte(v >> 8), byte(v)} }

func be32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func bool2byte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
