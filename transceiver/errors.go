package transceiver

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorType string

const (
	EGeneral       ErrorType = "general error"
	EBadParameter  ErrorType = "bad parameter"
	EBadResponse   ErrorType = "bad response"
	EBusyTimeout   ErrorType = "busy timeout"
	ECommandFailed ErrorType = "command failed"
)

var (
	ErrBusyTimeout    = errors.New("chip stayed busy")
	ErrBufferOverflow = errors.New("length exceeds packet buffer")
)

// Error is a failed radio command.
type Error struct {
	Type ErrorType
	Cmd  string
	Code byte
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Cmd)
	b.WriteString(": ")
	b.WriteString(string(e.Type))
	if e.Type == ECommandFailed {
		fmt.Fprintf(&b, " (%s)", CmdStatus(e.Code))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Dump formats bytes as space separated upper case hex.
func Dump(b []byte) string {
	var ret strings.Builder
	for i, c := range b {
		if i > 0 {
			ret.WriteByte(' ')
		}
		fmt.Fprintf(&ret, "%02X", c)
	}
	return ret.String()
}
