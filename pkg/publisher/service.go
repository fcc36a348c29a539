// Package publisher sends every reading to a Kafka topic.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NotCoffee418/p1_meter/pkg/types"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

var ErrEmptyReading = errors.New("reading could not be encoded")

const writeTimeout = 10 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	writer messageWriter
	topic  string
	log    logrus.FieldLogger
}

func New(broker, topic string, logger logrus.FieldLogger) *Publisher {
	log := logger.WithFields(logrus.Fields{"broker": broker, "topic": topic})
	return newPublisher(newWriter(broker, log), topic, log)
}

// newWriter flushes every message on its own so Publish never waits for a
// batch to fill.
func newWriter(broker string, log logrus.FieldLogger) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Balancer:     &kafka.Hash{}, // same meter, same partition
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
		ErrorLogger:  kafka.LoggerFunc(log.Errorf),
	}
}

func newPublisher(writer messageWriter, topic string, log logrus.FieldLogger) *Publisher {
	return &Publisher{writer: writer, topic: topic, log: log}
}

// Publish writes one reading keyed by the meter id.
func (p *Publisher) Publish(ctx context.Context, reading *types.Reading) error {
	value := reading.ToJsonBytes()
	if value == nil {
		return ErrEmptyReading
	}

	var key []byte
	if reading.Record.MeterID != nil {
		key = []byte(*reading.Record.MeterID)
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	err := p.writer.WriteMessages(writeCtx, kafka.Message{
		Topic: p.topic,
		Key:   key,
		Value: value,
		Time:  reading.ReceivedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to publish reading to %s: %w", p.topic, err)
	}
	return nil
}

// Handle is a poller.OnReading callback. Errors are logged, never fatal.
func (p *Publisher) Handle(reading *types.Reading) {
	if err := p.Publish(context.Background(), reading); err != nil {
		p.log.WithError(err).Warn("Kafka publish failed")
	}
}

func (p *Publisher) Close() error {
	p.log.Debug("Closing Kafka producer")
	return p.writer.Close()
}
