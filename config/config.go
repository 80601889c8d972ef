// Package config reads the node configuration from a JSON5 file.
package config

import (
	"errors"
	"fmt"
	"io/ioutil"
	"time"

	"github.com/flynn/json5"
	"github.com/sirupsen/logrus"

	"github.com/TheClams/lr1120-apps/board"
	"github.com/TheClams/lr1120-apps/lr1120"
	"github.com/TheClams/lr1120-apps/node"
	"github.com/TheClams/lr1120-apps/transceiver"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Radio struct {
	FrequencyHz     uint32 `json:"frequency_hz"`
	SpreadingFactor int    `json:"spreading_factor"`
	BandwidthKHz    int    `json:"bandwidth_khz"`
	CodingRate      int    `json:"coding_rate"` // 5..8 for 4/5..4/8
	PreambleLength  uint16 `json:"preamble_length"`
	PayloadLength   int    `json:"payload_length"`
	TxPowerDbm      int8   `json:"tx_power_dbm"`
	RampTimeUs      int    `json:"ramp_time_us"`
}

type Board struct {
	SpiPort          string `json:"spi_port"`
	SpiHz            int64  `json:"spi_hz"`
	ResetPin         string `json:"reset_pin"`
	BusyPin          string `json:"busy_pin"`
	IrqPin           string `json:"irq_pin"`
	ButtonPin        string `json:"button_pin"`
	LedRxPin         string `json:"led_rx_pin"`
	LedTxPin         string `json:"led_tx_pin"`
	DebounceMs       int    `json:"debounce_ms"`
	LongPressMs      int    `json:"long_press_ms"`
	ExtraLongPressMs int    `json:"extra_long_press_ms"`
}

// Redis is disabled when Address is empty.
type Redis struct {
	Address string `json:"address"`
	Prefix  string `json:"prefix"`
}

// Uart is disabled when Port is empty.
type Uart struct {
	Port    string `json:"port"`
	Baud    int    `json:"baud"`
	Framing string `json:"framing"`
}

type Monitor struct {
	IntervalS int `json:"interval_s"`
}

type Config struct {
	LogLevel string  `json:"log_level"`
	Radio    Radio   `json:"radio"`
	Board    Board   `json:"board"`
	Redis    Redis   `json:"redis"`
	Uart     Uart    `json:"uart"`
	Monitor  Monitor `json:"monitor"`
}

func Default() Config {
	return Config{
		LogLevel: "info",
		Radio: Radio{
			FrequencyHz:     901000000,
			SpreadingFactor: 5,
			BandwidthKHz:    500,
			CodingRate:      5,
			PayloadLength:   10,
			TxPowerDbm:      0,
			RampTimeUs:      16,
		},
		Board: Board{
			SpiPort:          "/dev/spidev0.0",
			SpiHz:            4000000,
			ResetPin:         "GPIO17",
			BusyPin:          "GPIO27",
			IrqPin:           "GPIO22",
			ButtonPin:        "GPIO23",
			LedRxPin:         "GPIO5",
			LedTxPin:         "GPIO6",
			DebounceMs:       18,
			LongPressMs:      550,
			ExtraLongPressMs: 1500,
		},
		Redis:   Redis{Prefix: "lora"},
		Uart:    Uart{Baud: 115200, Framing: "line"},
		Monitor: Monitor{IntervalS: 10},
	}
}

// LoadFromFile applies the file over the defaults and validates the result.
func LoadFromFile(fileName string) (Config, error) {
	cfg := Default()
	jsonData, err := ioutil.ReadFile(fileName)
	if err != nil {
		return cfg, fmt.Errorf("config: ioutil.ReadFile: %w", err)
	}
	if err := json5.Unmarshal(jsonData, &cfg); err != nil {
		return cfg, fmt.Errorf("config: json5.Unmarshal of %s: %w", fileName, err)
	}
	return cfg, cfg.Validate()
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func (c Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return invalid("log_level: %v", err)
	}
	if _, err := c.Node(); err != nil {
		return err
	}
	if c.Board.DebounceMs < 0 || c.Board.LongPressMs <= c.Board.DebounceMs || c.Board.ExtraLongPressMs <= c.Board.LongPressMs {
		return invalid("press thresholds must increase: %d, %d, %d ms", c.Board.DebounceMs, c.Board.LongPressMs, c.Board.ExtraLongPressMs)
	}
	if c.Uart.Framing != "line" && c.Uart.Framing != "slip" {
		return invalid("uart framing %q, expected line or slip", c.Uart.Framing)
	}
	if c.Uart.Port != "" && c.Uart.Baud <= 0 {
		return invalid("uart baud %d", c.Uart.Baud)
	}
	if c.Monitor.IntervalS <= 0 {
		return invalid("monitor interval %ds", c.Monitor.IntervalS)
	}
	return nil
}

// Level is the logrus level, info when unparsable.
func (c Config) Level() logrus.Level {
	l, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return l
}

// Node converts the radio section to the link configuration.
func (c Config) Node() (node.Config, error) {
	r := c.Radio
	sf, err := transceiver.ParseSf(r.SpreadingFactor)
	if err != nil {
		return node.Config{}, invalid("%v", err)
	}
	bw, err := transceiver.ParseLoraBw(r.BandwidthKHz)
	if err != nil {
		return node.Config{}, invalid("%v", err)
	}
	if r.CodingRate < 5 || r.CodingRate > 8 {
		return node.Config{}, invalid("coding rate 4/%d", r.CodingRate)
	}
	ramp, err := transceiver.ParseRampTime(r.RampTimeUs)
	if err != nil {
		return node.Config{}, invalid("%v", err)
	}
	// the receiver reads the payload plus 2 status bytes
	if r.PayloadLength < 1 || r.PayloadLength+2 > 0xFF {
		return node.Config{}, invalid("payload length %d out of range 1..253", r.PayloadLength)
	}
	if r.FrequencyHz == 0 {
		return node.Config{}, invalid("frequency_hz is required")
	}
	if r.TxPowerDbm < -17 || r.TxPowerDbm > 22 {
		return node.Config{}, invalid("tx power %ddBm out of range -17..22", r.TxPowerDbm)
	}

	cfg := node.DefaultConfig()
	cfg.FrequencyHz = r.FrequencyHz
	cfg.Modulation = transceiver.LoraModulationBasic(sf, bw)
	cfg.Modulation.Cr = transceiver.LoraCr(r.CodingRate - 4)
	cfg.PreambleLen = r.PreambleLength
	cfg.PayloadLength = r.PayloadLength
	cfg.TxPowerDbm = r.TxPowerDbm
	cfg.RampTime = ramp
	return cfg, nil
}

func (c Config) Thresholds() board.Thresholds {
	return board.Thresholds{
		Debounce:  time.Duration(c.Board.DebounceMs) * time.Millisecond,
		Long:      time.Duration(c.Board.LongPressMs) * time.Millisecond,
		ExtraLong: time.Duration(c.Board.ExtraLongPressMs) * time.Millisecond,
	}
}

func (c Config) BoardSettings() board.Settings {
	return board.Settings{
		IrqPin:     c.Board.IrqPin,
		ButtonPin:  c.Board.ButtonPin,
		LedRxPin:   c.Board.LedRxPin,
		LedTxPin:   c.Board.LedTxPin,
		Thresholds: c.Thresholds(),
	}
}

func (c Config) RadioSettings() lr1120.Settings {
	return lr1120.Settings{
		PortName: c.Board.SpiPort,
		SpiHz:    c.Board.SpiHz,
		ResetPin: c.Board.ResetPin,
		BusyPin:  c.Board.BusyPin,
	}
}

func (c Config) MonitorInterval() time.Duration {
	return time.Duration(c.Monitor.IntervalS) * time.Second
}
