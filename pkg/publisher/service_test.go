package publisher

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/NotCoffee418/p1_meter/pkg/types"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestPublish(t *testing.T) {
	writer := &fakeWriter{}
	p := newPublisher(writer, "p1-readings", testLogger())

	meterID := "E0048000025128418"
	receivedAt := time.Date(2020, 4, 11, 17, 15, 30, 0, time.UTC)
	reading := &types.Reading{
		ReceivedAt: receivedAt,
		Record:     types.Record{MeterID: &meterID},
		Derived:    types.DerivedState{NetPowerWatts: 2403, Direction: types.Producing},
	}

	require.NoError(t, p.Publish(context.Background(), reading))
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	require.Equal(t, "p1-readings", msg.Topic)
	require.Equal(t, meterID, string(msg.Key))
	require.Equal(t, receivedAt, msg.Time)

	decoded := types.ReadingFromJsonBytes(msg.Value)
	require.NotNil(t, decoded)
	require.Equal(t, int64(2403), decoded.Derived.NetPowerWatts)

	require.NoError(t, p.Close())
	require.True(t, writer.closed)
}

func TestPublishWithoutMeterID(t *testing.T) {
	writer := &fakeWriter{}
	p := newPublisher(writer, "p1-readings", testLogger())

	require.NoError(t, p.Publish(context.Background(), &types.Reading{}))
	require.Nil(t, writer.messages[0].Key)
}

func TestPublishError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker unreachable")}
	p := newPublisher(writer, "p1-readings", testLogger())

	err := p.Publish(context.Background(), &types.Reading{})
	require.ErrorContains(t, err, "broker unreachable")

	// Handle only logs
	p.Handle(&types.Reading{})
}

func TestWriterDoesNotWaitForBatch(t *testing.T) {
	w := newWriter("localhost:9092", testLogger())
	defer w.Close()

	require.Equal(t, 1, w.BatchSize)
	require.Less(t, w.BatchTimeout, 100*time.Millisecond)
	require.Equal(t, kafka.RequireAll, w.RequiredAcks)
}
