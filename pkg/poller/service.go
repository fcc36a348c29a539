package poller

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/NotCoffee418/p1_meter/pkg/calculator"
	"github.com/NotCoffee418/p1_meter/pkg/checksum"
	"github.com/NotCoffee418/p1_meter/pkg/interpreter"
	"github.com/NotCoffee418/p1_meter/pkg/port_reader"
	"github.com/NotCoffee418/p1_meter/pkg/types"
	"github.com/sirupsen/logrus"
)

var ErrInvalidState = errors.New("invalid poller state")

func New(source TelegramSource, opts Options, logger logrus.FieldLogger) *Poller {
	return &Poller{
		source: source,
		opts:   opts,
		log:    logger,
		now:    time.Now,
		state:  StateCreated,
	}
}

// OnReading registers a handler for every successfully decoded reading.
// Handlers run on the polling goroutine, register them before Start.
func (p *Poller) OnReading(handler func(reading *types.Reading)) {
	p.handlers = append(p.handlers, handler)
}

func (p *Poller) State() State {
	p.stateMutex.Lock()
	defer p.stateMutex.Unlock()
	return p.state
}

func (p *Poller) Init() error {
	p.stateMutex.Lock()
	defer p.stateMutex.Unlock()

	if p.state != StateCreated {
		return fmt.Errorf("%w: cannot initialize a %s poller", ErrInvalidState, p.state)
	}
	if p.source == nil {
		return fmt.Errorf("%w: no telegram source", ErrInvalidState)
	}
	if p.opts.Interval <= 0 {
		p.opts.Interval = DefaultInterval
	}

	p.state = StateInitialized
	p.log.WithFields(logrus.Fields{
		"interval":          p.opts.Interval,
		"validate_checksum": p.opts.ValidateChecksum,
		"show_raw":          p.opts.ShowRaw,
	}).Debug("Poller initialized")
	return nil
}

// Start polling in a goroutine. The first cycle runs immediately.
func (p *Poller) Start(ctx context.Context) error {
	p.stateMutex.Lock()
	defer p.stateMutex.Unlock()

	if p.state != StateInitialized {
		return fmt.Errorf("%w: cannot start a %s poller", ErrInvalidState, p.state)
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	p.state = StateRunning

	go p.run(ctx, p.done)
	return nil
}

// Stop waits for a running cycle to finish. Safe to call more than once.
func (p *Poller) Stop() {
	p.stateMutex.Lock()
	cancel, done := p.cancel, p.done
	p.state = StateStopped
	p.stateMutex.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.log.Debug("Poller stopped")
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	for {
		if _, err := p.RunCycle(); err != nil {
			p.log.WithFields(logrus.Fields{
				"cycle":  atomic.LoadUint64(&p.cycle),
				"reason": Reason(err),
			}).WithError(err).Warn("Skipping cycle")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunCycle reads, optionally validates, decodes and derives one reading.
func (p *Poller) RunCycle() (*types.Reading, error) {
	cycle := atomic.AddUint64(&p.cycle, 1)
	log := p.log.WithField("cycle", cycle)

	raw, err := p.source.ReadTelegram()
	if err != nil {
		return nil, fmt.Errorf("failed to read telegram: %w", err)
	}
	if p.opts.ShowRaw {
		log.Infof("Raw telegram:\n%s", raw)
	}

	if p.opts.ValidateChecksum {
		if err := checksum.Validate(raw); err != nil {
			return nil, err
		}
	}

	record, err := interpreter.Decode(raw)
	if err != nil {
		return nil, err
	}

	reading := &types.Reading{
		ReceivedAt: p.now(),
		Record:     record,
		Derived:    calculator.Derive(record),
	}
	if p.opts.ShowRaw {
		reading.Raw = raw.String()
	}
	log.Debug(reading.Derived.Summary())

	p.readingMutex.Lock()
	p.latestReading = reading
	p.readingMutex.Unlock()

	for _, handle := range p.handlers {
		handle(reading)
	}
	return reading, nil
}

func (p *Poller) GetLatestReading() *types.Reading {
	p.readingMutex.RLock()
	defer p.readingMutex.RUnlock()
	return p.latestReading
}

// Reason names the failure class of a cycle error for logs.
func Reason(err error) string {
	switch {
	case errors.Is(err, port_reader.ErrConnection):
		return "connection"
	case errors.Is(err, port_reader.ErrReadTimeout):
		return "timeout"
	case errors.Is(err, port_reader.ErrFraming):
		return "framing"
	case errors.Is(err, checksum.ErrChecksumMismatch):
		return "checksum"
	case errors.Is(err, interpreter.ErrMalformedTelegram):
		return "malformed"
	}
	return "unknown"
}
