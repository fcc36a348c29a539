// Package checksum validates the CRC16 trailer of a telegram.
package checksum

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/NotCoffee418/p1_meter/pkg/types"
	"github.com/sigurn/crc16"
)

var ErrChecksumMismatch = fmt.Errorf("checksum mismatch")

// CRC16_ARC: reflected polynomial 0xA001, initial value 0x0000
var table = crc16.MakeTable(crc16.CRC16_ARC)

var trailerPattern = regexp.MustCompile(`^[0-9A-Fa-f]{4}$`)

// Compute returns the CRC as four upper case hex digits.
func Compute(data []byte) string {
	return fmt.Sprintf("%04X", crc16.Checksum(data, table))
}

// Validate checks the CRC over everything up to and including the "!".
// Telegrams without CRC digits after the "!" are accepted.
func Validate(raw types.RawTelegram) error {
	end := bytes.LastIndexByte(raw, '!')
	if end < 0 {
		return fmt.Errorf("%w: no end of telegram", ErrChecksumMismatch)
	}

	given := strings.TrimSpace(string(raw[end+1:]))
	if given == "" {
		return nil
	}
	if !trailerPattern.MatchString(given) {
		return fmt.Errorf("%w: invalid checksum %q", ErrChecksumMismatch, given)
	}

	calculated := Compute(raw[:end+1])
	if !strings.EqualFold(given, calculated) {
		return fmt.Errorf("%w: given=%s, calculated=%s", ErrChecksumMismatch, strings.ToUpper(given), calculated)
	}
	return nil
}
