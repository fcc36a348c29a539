package listener

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/NotCoffee418/p1_meter/pkg/types"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestListenReceivesReadings(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		reading := &types.Reading{Derived: types.DerivedState{NetPowerWatts: -653, Direction: types.Consuming}}
		conn.WriteMessage(websocket.TextMessage, reading.ToJsonBytes())

		// Keep the connection open until the client closes it
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var received []*types.Reading
	opts := Options{Host: strings.TrimPrefix(server.URL, "http://")}
	err := Listen(ctx, opts, func(reading *types.Reading) {
		received = append(received, reading)
		cancel()
	}, testLogger())

	require.NoError(t, err)
	require.Len(t, received, 1)
	require.Equal(t, int64(-653), received[0].Derived.NetPowerWatts)
	require.Equal(t, types.Consuming, received[0].Derived.Direction)
}

func TestListenGivesUp(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	host := strings.TrimPrefix(server.URL, "http://")
	server.Close()

	opts := Options{Host: host, MaxRetries: 2, BaseRetryDelay: time.Millisecond}
	err := Listen(context.Background(), opts, func(*types.Reading) {}, testLogger())
	require.ErrorIs(t, err, ErrMaxRetries)
}

func TestListenStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := Options{Host: "127.0.0.1:1", BaseRetryDelay: time.Hour}
	require.NoError(t, Listen(ctx, opts, func(*types.Reading) {}, testLogger()))
}

func TestOptionsURL(t *testing.T) {
	u := Options{Host: "meter.local:9039"}.URL()
	require.Equal(t, "ws://meter.local:9039/ws", u.String())

	u = Options{Host: "meter.local", TLSEnabled: true}.URL()
	require.Equal(t, "wss://meter.local/ws", u.String())
}
