package main

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/NotCoffee418/p1_meter/internal/testutil"
	"github.com/NotCoffee418/p1_meter/pkg/checksum"
	"github.com/NotCoffee418/p1_meter/pkg/port_reader"
	"github.com/NotCoffee418/p1_meter/pkg/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func input(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}

func readings(t *testing.T, out *bytes.Buffer) []*types.Reading {
	t.Helper()
	var result []*types.Reading
	scanner := bufio.NewScanner(out)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		reading := types.ReadingFromJsonBytes(scanner.Bytes())
		require.NotNil(t, reading)
		result = append(result, reading)
	}
	require.NoError(t, scanner.Err())
	return result
}

func TestDecodeFirstTelegram(t *testing.T) {
	var out bytes.Buffer
	capture := "garbage before\r\n" + testutil.DSMR50().String() + testutil.DSMR42().String()

	err := runDecode(input(capture), "capture", &out, decodeOptions{validate: true}, testLogger())
	require.NoError(t, err)

	got := readings(t, &out)
	require.Len(t, got, 1)
	require.Equal(t, "E0048000025128418", *got[0].Record.MeterID)
	require.Equal(t, int64(2403), got[0].Derived.NetPowerWatts)
	require.Empty(t, got[0].Raw)
}

func TestDecodeAllTelegrams(t *testing.T) {
	var out bytes.Buffer
	capture := testutil.DSMR50().String() + testutil.DSMR42().String() + testutil.DSMR22().String()

	err := runDecode(input(capture), "capture", &out, decodeOptions{all: true, raw: true}, testLogger())
	require.NoError(t, err)

	got := readings(t, &out)
	require.Len(t, got, 3)
	require.Equal(t, "42", *got[1].Record.Header.DSMRVersion)
	require.Equal(t, testutil.DSMR22().String(), got[2].Raw)
}

func TestDecodeAllSkipsBadChecksum(t *testing.T) {
	var out bytes.Buffer
	corrupted := strings.Replace(testutil.DSMR50().String(), "00.768", "00.769", 1)
	capture := corrupted + testutil.DSMR42().String()

	err := runDecode(input(capture), "capture", &out, decodeOptions{all: true, validate: true}, testLogger())
	require.NoError(t, err)
	require.Len(t, readings(t, &out), 1)
}

func TestDecodeChecksumError(t *testing.T) {
	var out bytes.Buffer
	corrupted := strings.Replace(testutil.DSMR50().String(), "00.768", "00.769", 1)

	err := runDecode(input(corrupted), "capture", &out, decodeOptions{validate: true}, testLogger())
	require.ErrorIs(t, err, checksum.ErrChecksumMismatch)
	require.Zero(t, out.Len())
}

func TestDecodeEmptyInput(t *testing.T) {
	var out bytes.Buffer
	err := runDecode(input("no telegram here\r\n"), "capture", &out, decodeOptions{all: true}, testLogger())
	require.ErrorIs(t, err, port_reader.ErrFraming)
}

func TestPrintRules(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printRules(&out))

	table := out.String()
	require.True(t, strings.HasPrefix(table, "OBIS"))
	require.Contains(t, table, "1-0:1.8.1")
	require.Contains(t, table, "0-1:24.2.1")
}
