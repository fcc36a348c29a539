package poller

import (
	"context"
	"sync"
	"time"

	"github.com/NotCoffee418/p1_meter/pkg/types"
	"github.com/sirupsen/logrus"
)

const DefaultInterval = 10 * time.Second

type State int

const (
	StateCreated State = iota
	StateInitialized
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// TelegramSource yields one raw telegram per call.
// port_reader.Source opens and closes the serial port on every call.
type TelegramSource interface {
	ReadTelegram() (types.RawTelegram, error)
}

type Options struct {
	Interval         time.Duration
	ValidateChecksum bool
	ShowRaw          bool
}

// Poller runs one read/decode cycle per interval for a single meter.
type Poller struct {
	source   TelegramSource
	opts     Options
	log      logrus.FieldLogger
	handlers []func(reading *types.Reading)
	now      func() time.Time

	stateMutex sync.Mutex
	state      State
	cycle      uint64
	cancel     context.CancelFunc
	done       chan struct{}

	readingMutex  sync.RWMutex
	latestReading *types.Reading
}
