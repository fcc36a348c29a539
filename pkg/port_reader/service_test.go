package port_reader

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/NotCoffee418/p1_meter/internal/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakePort serves chunks one read at a time. Once the chunks run out it
// behaves like an idle serial port and returns empty reads.
type fakePort struct {
	chunks  []string
	readErr error
	closed  int
}

func (f *fakePort) Read(p []byte) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	if len(f.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, f.chunks[0])
	f.chunks[0] = f.chunks[0][n:]
	if f.chunks[0] == "" {
		f.chunks = f.chunks[1:]
	}
	return n, nil
}

func (f *fakePort) Close() error {
	f.closed++
	return nil
}

func serialConnection(port *fakePort, maxLines int) *Connection {
	return newConnection("fake", port, timeoutReader{r: port}, maxLines, testLogger())
}

func useFakeBackend(t *testing.T, port *fakePort) {
	t.Helper()
	backends["fake"] = func(cfg SerialConfig) (io.ReadCloser, error) {
		return port, nil
	}
	t.Cleanup(func() { delete(backends, "fake") })
}

func TestReadOneTelegram(t *testing.T) {
	telegram := testutil.DSMR50()
	port := &fakePort{chunks: []string{string(telegram)}}

	got, err := serialConnection(port, 0).ReadOneTelegram()
	require.NoError(t, err)
	require.Equal(t, string(telegram), string(got))
}

func TestReadOneTelegramStartsMidStream(t *testing.T) {
	telegram := testutil.DSMR42()
	port := &fakePort{chunks: []string{
		"1-0:2.7.0(00.000*kW)\r\n",
		"!1234\r\n",
		"\r\n",
		string(telegram),
	}}

	got, err := serialConnection(port, 0).ReadOneTelegram()
	require.NoError(t, err)
	require.Equal(t, string(telegram), string(got))
}

func TestReadOneTelegramStartLineResetsBuffer(t *testing.T) {
	port := &fakePort{chunks: []string{
		"/AAA5 first\r\n",
		"1-0:1.8.1(000001.000*kWh)\r\n",
		"/BBB5 second\r\n",
		"1-0:1.8.1(000002.000*kWh)\r\n",
		"!\r\n",
	}}

	got, err := serialConnection(port, 0).ReadOneTelegram()
	require.NoError(t, err)
	require.Equal(t, "/BBB5 second\r\n1-0:1.8.1(000002.000*kWh)\r\n!\r\n", string(got))
}

func TestReadOneTelegramStopsAtEndLine(t *testing.T) {
	port := &fakePort{chunks: []string{
		string(testutil.DSMR42()),
		string(testutil.DSMR50()),
	}}
	conn := serialConnection(port, 0)

	first, err := conn.ReadOneTelegram()
	require.NoError(t, err)
	require.Equal(t, string(testutil.DSMR42()), string(first))

	// Nothing from the next telegram may be consumed by the first read
	second, err := conn.ReadOneTelegram()
	require.NoError(t, err)
	require.Equal(t, string(testutil.DSMR50()), string(second))
}

func TestReadOneTelegramLineGuard(t *testing.T) {
	noise := strings.Repeat("1-0:1.7.0(00.100*kW)\r\n", 20)
	port := &fakePort{chunks: []string{noise}}

	_, err := serialConnection(port, 10).ReadOneTelegram()
	require.ErrorIs(t, err, ErrFraming)
}

func TestReadOneTelegramLineGuardAfterStart(t *testing.T) {
	lines := "/XMX5 meter\r\n" + strings.Repeat("1-0:1.7.0(00.100*kW)\r\n", 20)
	port := &fakePort{chunks: []string{lines}}

	_, err := serialConnection(port, 10).ReadOneTelegram()
	require.ErrorIs(t, err, ErrFraming)
}

func TestReadOneTelegramTimeout(t *testing.T) {
	port := &fakePort{chunks: []string{"/XMX5 meter\r\n1-0:1.7.0(00.100*kW)\r\n"}}

	_, err := serialConnection(port, 0).ReadOneTelegram()
	require.ErrorIs(t, err, ErrReadTimeout)
}

func TestReadOneTelegramDeviceError(t *testing.T) {
	port := &fakePort{readErr: errors.New("device unplugged")}

	_, err := serialConnection(port, 0).ReadOneTelegram()
	require.ErrorIs(t, err, ErrConnection)
	require.NotErrorIs(t, err, ErrReadTimeout)
}

func TestNewConnectionStreamEnd(t *testing.T) {
	t.Run("complete telegram without trailing newline", func(t *testing.T) {
		stream := io.NopCloser(strings.NewReader("/XMX5 meter\r\n1-0:1.7.0(00.100*kW)\r\n!"))
		got, err := NewConnection("file", stream, 0, testLogger()).ReadOneTelegram()
		require.NoError(t, err)
		require.Equal(t, "/XMX5 meter\r\n1-0:1.7.0(00.100*kW)\r\n!", string(got))
	})

	t.Run("truncated telegram", func(t *testing.T) {
		stream := io.NopCloser(strings.NewReader("/XMX5 meter\r\n1-0:1.7.0(00.100*kW)\r\n"))
		_, err := NewConnection("file", stream, 0, testLogger()).ReadOneTelegram()
		require.ErrorIs(t, err, ErrFraming)
		require.ErrorIs(t, err, io.EOF)
	})
}

func TestReadTelegramClosesConnection(t *testing.T) {
	cfg := SerialConfig{Device: "/dev/fake", Backend: "fake", MaxLines: 10}

	t.Run("success", func(t *testing.T) {
		port := &fakePort{chunks: []string{string(testutil.DSMR42())}}
		useFakeBackend(t, port)

		_, err := ReadTelegram(cfg, testLogger())
		require.NoError(t, err)
		require.Equal(t, 1, port.closed)
	})

	t.Run("timeout", func(t *testing.T) {
		port := &fakePort{}
		useFakeBackend(t, port)

		_, err := ReadTelegram(cfg, testLogger())
		require.ErrorIs(t, err, ErrReadTimeout)
		require.Equal(t, 1, port.closed)
	})

	t.Run("framing", func(t *testing.T) {
		port := &fakePort{chunks: []string{strings.Repeat("garbage\r\n", 50)}}
		useFakeBackend(t, port)

		_, err := ReadTelegram(cfg, testLogger())
		require.ErrorIs(t, err, ErrFraming)
		require.Equal(t, 1, port.closed)
	})
}

func TestOpenErrors(t *testing.T) {
	_, err := Open(SerialConfig{}, testLogger())
	require.ErrorIs(t, err, ErrConnection)

	_, err = Open(SerialConfig{Device: "/dev/ttyUSB0", Backend: "carrier-pigeon"}, testLogger())
	require.ErrorIs(t, err, ErrConnection)

	backends["broken"] = func(cfg SerialConfig) (io.ReadCloser, error) {
		return nil, errors.New("permission denied")
	}
	defer delete(backends, "broken")
	_, err = Open(SerialConfig{Device: "/dev/ttyUSB0", Backend: "broken"}, testLogger())
	require.ErrorIs(t, err, ErrConnection)
	require.ErrorContains(t, err, "permission denied")
}

func TestClosedConnection(t *testing.T) {
	port := &fakePort{chunks: []string{string(testutil.DSMR42())}}
	conn := serialConnection(port, 0)
	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	require.Equal(t, 1, port.closed)

	_, err := conn.ReadOneTelegram()
	require.ErrorIs(t, err, ErrConnection)
}

func TestProfileForVersion(t *testing.T) {
	cfg, err := ProfileForVersion("2")
	require.NoError(t, err)
	require.Equal(t, uint(9600), cfg.BaudRate)
	require.Equal(t, uint(7), cfg.DataBits)
	require.Equal(t, ParityEven, cfg.Parity)

	for _, version := range []string{"4", "5", "5.0"} {
		cfg, err = ProfileForVersion(version)
		require.NoError(t, err)
		require.Equal(t, uint(115200), cfg.BaudRate)
		require.Equal(t, uint(8), cfg.DataBits)
		require.Equal(t, ParityNone, cfg.Parity)
		require.Equal(t, uint(1), cfg.StopBits)
	}

	_, err = ProfileForVersion("3")
	require.ErrorIs(t, err, ErrUnknownVersion)
}

func TestTimeoutMillis(t *testing.T) {
	require.Equal(t, uint(100), timeoutMillis(10*time.Millisecond))
	require.Equal(t, uint(10000), timeoutMillis(10*time.Second))
	require.Equal(t, uint(25500), timeoutMillis(time.Minute))
}
