package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/NotCoffee418/p1_meter/pkg/types"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type fakeReadings struct {
	mu      sync.Mutex
	reading *types.Reading
}

func (f *fakeReadings) GetLatestReading() *types.Reading {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reading
}

type fakeSolar struct {
	watt int32
	err  error
}

func (f fakeSolar) ReadSolarData() (int32, error) {
	return f.watt, f.err
}

func testServer(t *testing.T, readings *fakeReadings, solar fakeSolar) (*httptest.Server, *hub) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	h := newHub(logger)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "p1_net_power_watts 0\n")
	})
	srv := httptest.NewServer(newServer(readings, solar, metrics, h, logger).routes())
	t.Cleanup(srv.Close)
	return srv, h
}

func getJSON(t *testing.T, url string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestStatus(t *testing.T) {
	srv, _ := testServer(t, &fakeReadings{}, fakeSolar{})

	status, body := getJSON(t, srv.URL+"/")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "running", body["status"])
	require.Equal(t, false, body["has_reading"])

	status, _ = getJSON(t, srv.URL+"/nope")
	require.Equal(t, http.StatusNotFound, status)
}

func TestLatest(t *testing.T) {
	readings := &fakeReadings{}
	srv, _ := testServer(t, readings, fakeSolar{})

	status, body := getJSON(t, srv.URL+"/latest")
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "No readings available yet", body["error"])

	readings.mu.Lock()
	readings.reading = &types.Reading{Derived: types.DerivedState{NetPowerWatts: -653, Direction: types.Consuming}}
	readings.mu.Unlock()
	status, body = getJSON(t, srv.URL+"/latest")
	require.Equal(t, http.StatusOK, status)
	derived := body["derived"].(map[string]any)
	require.Equal(t, "consuming", derived["direction"])
}

func TestSolar(t *testing.T) {
	srv, _ := testServer(t, &fakeReadings{}, fakeSolar{watt: 3000})
	status, body := getJSON(t, srv.URL+"/solar")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, float64(3000), body["currentProduction"])

	srv, _ = testServer(t, &fakeReadings{}, fakeSolar{err: errors.New("modbus not configured")})
	status, body = getJSON(t, srv.URL+"/solar")
	require.Equal(t, http.StatusInternalServerError, status)
	require.Equal(t, "modbus not configured", body["error"])
}

func TestMetricsRoute(t *testing.T) {
	srv, _ := testServer(t, &fakeReadings{}, fakeSolar{})
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(data), "p1_net_power_watts")
}

func TestWebSocketBroadcast(t *testing.T) {
	readings := &fakeReadings{reading: &types.Reading{Derived: types.DerivedState{NetPowerWatts: 1, Direction: types.Producing}}}
	srv, h := testServer(t, readings, fakeSolar{})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// Current reading is sent on connect
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, int64(1), types.ReadingFromJsonBytes(message).Derived.NetPowerWatts)

	require.Eventually(t, func() bool { return h.Count() == 1 }, 5*time.Second, 5*time.Millisecond)
	h.Broadcast(&types.Reading{Derived: types.DerivedState{NetPowerWatts: -20, Direction: types.Consuming}})

	_, message, err = conn.ReadMessage()
	require.NoError(t, err)
	reading := types.ReadingFromJsonBytes(message)
	require.NotNil(t, reading)
	require.Equal(t, int64(-20), reading.Derived.NetPowerWatts)

	conn.Close()
	require.Eventually(t, func() bool { return h.Count() == 0 }, 5*time.Second, 5*time.Millisecond)
}
