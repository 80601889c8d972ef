package uart

import (
	"errors"
	"fmt"
)

type packet []byte

const (
	slipEnd    byte = 0xC0
	slipEsc    byte = 0xDB
	slipEscEnd byte = 0xDC
	slipEscEsc byte = 0xDD

	recordVersion byte = 0x01
)

var (
	ErrBadFrame  = errors.New("bad SLIP frame")
	ErrBadRecord = errors.New("bad record")
)

// stuffPacket SLIP encodes data between two END bytes.
func stuffPacket(data packet) (ret packet) {
	ret = packet{slipEnd}
	for _, v := range data {
		switch v {
		case slipEnd:
			ret = append(ret, slipEsc, slipEscEnd)
		case slipEsc:
			ret = append(ret, slipEsc, slipEscEsc)
		default:
			ret = append(ret, v)
		}
	}
	return append(ret, slipEnd)
}

// unstuffPacket decodes a frame produced by stuffPacket. The trailing END is
// optional.
func unstuffPacket(data packet) (packet, error) {
	if len(data) == 0 || data[0] != slipEnd {
		return nil, fmt.Errorf("%w: packet does not begin with 0xC0", ErrBadFrame)
	}
	body := data[1:]
	if len(body) > 0 && body[len(body)-1] == slipEnd {
		body = body[:len(body)-1]
	}
	esc := false
	ret := packet{}
	for _, v := range body {
		if v == slipEnd {
			return nil, fmt.Errorf("%w: extra 0xC0 inside a single packet", ErrBadFrame)
		}
		if !esc {
			if v == slipEsc {
				esc = true
			} else {
				ret = append(ret, v)
			}
			continue
		}
		switch v {
		case slipEscEnd:
			ret = append(ret, slipEnd)
		case slipEscEsc:
			ret = append(ret, slipEsc)
		default:
			return nil, fmt.Errorf("%w: unexpected escape sequence %02X", ErrBadFrame, v)
		}
		esc = false
	}
	if esc {
		return nil, fmt.Errorf("%w: unfinished escape sequence at the end of a packet", ErrBadFrame)
	}
	return ret, nil
}

// createRecord lays out a component update as version, key length, key,
// value.
func createRecord(key string, value string) (packet, error) {
	if len(key) > 0xFF {
		return nil, fmt.Errorf("%w: key %q longer than 255 bytes", ErrBadRecord, key)
	}
	ret := packet{recordVersion, byte(len(key))}
	ret = append(ret, key...)
	return append(ret, value...), nil
}

func parseRecord(data packet) (key string, value string, err error) {
	if len(data) < 2 {
		return "", "", fmt.Errorf("%w: too short", ErrBadRecord)
	}
	if data[0] != recordVersion {
		return "", "", fmt.Errorf("%w: version %d", ErrBadRecord, data[0])
	}
	n := int(data[1])
	if 2+n > len(data) {
		return "", "", fmt.Errorf("%w: key length %d exceeds record", ErrBadRecord, n)
	}
	return string(data[2 : 2+n]), string(data[2+n:]), nil
}

// DecodeFrame returns the component update carried by a SLIP frame.
func DecodeFrame(frame []byte) (key string, value string, err error) {
	data, err := unstuffPacket(frame)
	if err != nil {
		return "", "", err
	}
	return parseRecord(data)
}
