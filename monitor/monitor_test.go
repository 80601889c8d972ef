package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/TheClams/lr1120-apps/outside"
	"github.com/TheClams/lr1120-apps/transceiver"
)

type fakeThermometer struct {
	raw     uint16
	err     error
	resets  int
	samples int
}

func (f *fakeThermometer) Reset(ctx context.Context) error {
	f.resets++
	return nil
}

func (f *fakeThermometer) GetVersion(ctx context.Context) (transceiver.Version, error) {
	return transceiver.Version{Major: 1, Minor: 2}, nil
}

func (f *fakeThermometer) GetStatus(ctx context.Context) (transceiver.Status, transceiver.Intr, error) {
	return transceiver.Status{Cmd: transceiver.CmdOk}, transceiver.IntrNone, nil
}

func (f *fakeThermometer) GetTemperature(ctx context.Context) (uint16, error) {
	f.samples++
	return f.raw, f.err
}

func TestCelsius(t *testing.T) {
	tests := []struct {
		raw  uint16
		want int
	}{
		{1106, 25},
		{1058, 44},
		{1200, -11},
		{0, 454},
	}
	for _, tt := range tests {
		if got := Celsius(tt.raw); got != tt.want {
			t.Errorf("Celsius(%d) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestSample(t *testing.T) {
	logger, hook := test.NewNullLogger()
	radio := &fakeThermometer{raw: 1106}
	out := outside.NewMemory()
	m := New(radio, out, time.Second, logrus.NewEntry(logger))

	_, ok := m.Last()
	if ok {
		t.Fatal("Last() before any sample")
	}
	s, err := m.Sample(context.Background())
	if err != nil || s.Celsius != 25 {
		t.Fatalf("Sample() = %+v, %v", s, err)
	}
	last, ok := m.Last()
	if !ok || last.Raw != 1106 {
		t.Errorf("Last() = %+v, %t", last, ok)
	}
	if v, _ := out.Get("temperature/celsius"); v != "25" {
		t.Errorf("temperature/celsius = %q", v)
	}
	if hook.LastEntry().Message != "1106 =>  25" {
		t.Errorf("log = %q", hook.LastEntry().Message)
	}

	radio.err = errors.New("busy")
	if _, err := m.Sample(context.Background()); err == nil {
		t.Error("read failure not returned")
	}
	if last, _ := m.Last(); last.Raw != 1106 {
		t.Error("failed read replaced the last sample")
	}
}

func TestRun(t *testing.T) {
	logger, _ := test.NewNullLogger()
	radio := &fakeThermometer{raw: 1058, err: nil}
	out := outside.NewMemory()
	m := New(radio, out, 10*time.Millisecond, logrus.NewEntry(logger))
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := m.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() = %v", err)
	}
	if radio.resets != 1 {
		t.Errorf("chip reset %d times", radio.resets)
	}
	if v, _ := out.Get("version"); v != "1.2" {
		t.Errorf("version = %q", v)
	}
	if radio.samples < 2 {
		t.Errorf("only %d samples in 100ms", radio.samples)
	}
	if last, ok := m.Last(); !ok || last.Celsius != 44 {
		t.Errorf("Last() = %+v, %t", last, ok)
	}
}
