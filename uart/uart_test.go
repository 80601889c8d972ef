package uart

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func Assert(t *testing.T, condition bool, errorMessage string) {
	t.Helper()
	if !condition {
		t.Error(errorMessage)
	}
}

func TestStuffPacket(t *testing.T) {
	tests := []struct {
		name  string
		input packet
		want  packet
	}{
		{"empty", packet{}, packet{0xC0, 0xC0}},
		{"plain", packet{0x01, 0x02}, packet{0xC0, 0x01, 0x02, 0xC0}},
		{"end byte", packet{0xC0}, packet{0xC0, 0xDB, 0xDC, 0xC0}},
		{"esc byte", packet{0xDB, 0x00}, packet{0xC0, 0xDB, 0xDD, 0x00, 0xC0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stuffPacket(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("stuffPacket(%v) = %v, want %v", tt.input, got, tt.want)
			}
			back, err := unstuffPacket(got)
			if err != nil || !bytes.Equal(back, tt.input) {
				t.Errorf("unstuffPacket(%v) = %v, %v", got, back, err)
			}
		})
	}
}

func TestUnstuffErrors(t *testing.T) {
	tests := []struct {
		name  string
		input packet
	}{
		{"empty", packet{}},
		{"no start", packet{0x01, 0xC0}},
		{"end inside", packet{0xC0, 0x01, 0xC0, 0x02}},
		{"bad escape", packet{0xC0, 0xDB, 0x01}},
		{"unfinished escape", packet{0xC0, 0x01, 0xDB}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := unstuffPacket(tt.input)
			Assert(t, errors.Is(err, ErrBadFrame), "expected ErrBadFrame")
		})
	}
	// trailing END is optional
	data, err := unstuffPacket(packet{0xC0, 0x05})
	Assert(t, err == nil && bytes.Equal(data, []byte{0x05}), "frame without trailing END rejected")
}

func TestRecords(t *testing.T) {
	_, _, err := parseRecord(packet{0x02, 0x00})
	Assert(t, errors.Is(err, ErrBadRecord), "wrong version accepted")
	_, _, err = parseRecord(packet{0x01, 0x05, 'a'})
	Assert(t, errors.Is(err, ErrBadRecord), "truncated key accepted")
	_, err = createRecord(string(make([]byte, 256)), "")
	Assert(t, errors.Is(err, ErrBadRecord), "long key accepted")
}

type buffer struct {
	bytes.Buffer
	closed bool
}

func (b *buffer) Close() error {
	b.closed = true
	return nil
}

func nullLog() *logrus.Entry {
	logger, _ := test.NewNullLogger()
	return logrus.NewEntry(logger)
}

func TestLineSink(t *testing.T) {
	var port buffer
	s := NewSink(&port, FramingLine, nullLog())
	s.Writeln("FW Version 1.1!")
	s.UpdateComponent("temperature/celsius", "25")
	Assert(t, port.String() == "FW Version 1.1!\r\ntemperature/celsius = 25\r\n", "line output: "+port.String())
	Assert(t, s.Close() == nil && port.closed, "port not closed")
}

func TestSlipSink(t *testing.T) {
	var port buffer
	s := NewSink(&port, FramingSlip, nullLog())
	s.UpdateComponent("rx/raw", "\xc0-\xdb")
	key, value, err := DecodeFrame(port.Bytes())
	Assert(t, err == nil, "frame not decodable")
	Assert(t, key == "rx/raw" && value == "\xc0-\xdb", "decoded "+key+"="+value)
	Assert(t, bytes.Count(port.Bytes(), []byte{0xC0}) == 2, "END bytes not escaped in the value")
}

func TestParseFraming(t *testing.T) {
	f, err := ParseFraming("slip")
	Assert(t, err == nil && f == FramingSlip, "slip not parsed")
	f, err = ParseFraming("")
	Assert(t, err == nil && f == FramingLine, "default framing is not line")
	_, err = ParseFraming("hdlc")
	Assert(t, err != nil, "unknown framing accepted")
}
