package checksum

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/NotCoffee418/p1_meter/internal/testutil"
	"github.com/NotCoffee418/p1_meter/pkg/types"
)

func TestCompute(t *testing.T) {
	// CRC-16/ARC check value
	require.Equal(t, "BB3D", Compute([]byte("123456789")))
}

func TestValidateAcceptsMatchingCRC(t *testing.T) {
	require.NoError(t, Validate(testutil.DSMR50()))
}

func TestValidateIsCaseInsensitive(t *testing.T) {
	raw := bytes.Replace(testutil.DSMR50(), []byte("!5C2B"), []byte("!5c2b"), 1)
	require.NoError(t, Validate(types.RawTelegram(raw)))
}

func TestValidateRejectsWrongCRC(t *testing.T) {
	raw := bytes.Replace(testutil.DSMR50(), []byte("!5C2B"), []byte("!5C2C"), 1)
	require.ErrorIs(t, Validate(types.RawTelegram(raw)), ErrChecksumMismatch)
}

func TestValidateRejectsChangedBody(t *testing.T) {
	raw := bytes.Replace(testutil.DSMR50(), []byte("02.403*kW"), []byte("02.404*kW"), 1)
	require.ErrorIs(t, Validate(types.RawTelegram(raw)), ErrChecksumMismatch)
}

func TestValidateAcceptsMissingCRC(t *testing.T) {
	require.NoError(t, Validate(testutil.DSMR42()))
	require.NoError(t, Validate(types.RawTelegram("/X\r\n1-0:1.7.0(00.653*kW)\r\n!")))
}

func TestValidateRejectsGarbageTrailer(t *testing.T) {
	require.ErrorIs(t, Validate(types.RawTelegram("/X\r\n!ZZ\r\n")), ErrChecksumMismatch)
	require.ErrorIs(t, Validate(types.RawTelegram("/X\r\n")), ErrChecksumMismatch)
}
