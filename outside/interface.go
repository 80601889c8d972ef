// Package outside is how the node reports its state to the world.
package outside

import (
	"sort"

	"github.com/sirupsen/logrus"
)

type SubMessage struct {
	Value string
	Key   string
}

// Interface receives component values, keys are slash separated paths like
// "rx/rssi".
type Interface interface {
	UpdateComponent(key string, value string)
}

// Writable is an Interface that can also deliver values written from outside.
type Writable interface {
	Interface
	RegisterWritableComponent(key string) <-chan SubMessage
}

// Multi forwards every update to all its sinks.
type Multi []Interface

func (m Multi) UpdateComponent(key string, value string) {
	for _, i := range m {
		i.UpdateComponent(key, value)
	}
}

// LogSink writes updates to the log at debug level.
type LogSink struct {
	Log *logrus.Entry
}

func (s LogSink) UpdateComponent(key string, value string) {
	s.Log.WithField("key", key).Debug(value)
}

// Memory keeps the last value of every key.
type Memory struct {
	values map[string]string
	order  []string
}

func NewMemory() *Memory {
	return &Memory{values: map[string]string{}}
}

func (m *Memory) UpdateComponent(key string, value string) {
	m.values[key] = value
	m.order = append(m.order, key)
}

func (m *Memory) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys are the distinct keys seen, sorted.
func (m *Memory) Keys() []string {
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Updates is the number of updates received.
func (m *Memory) Updates() int { return len(m.order) }
