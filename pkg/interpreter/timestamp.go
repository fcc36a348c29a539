package interpreter

import (
	"encoding/hex"
	"fmt"
	"unicode/utf8"
)

// NormalizeTimestamp turns a meter timestamp "YYMMDDhhmmss[S|W]" into
// "20YY-MM-DDThh:mm:ss". The summer/winter flag is dropped.
func NormalizeTimestamp(v string) (string, bool) {
	m := timestampPattern.FindStringSubmatch(v)
	if m == nil {
		return "", false
	}
	d := m[1]
	return fmt.Sprintf("20%s-%s-%sT%s:%s:%s", d[0:2], d[2:4], d[4:6], d[6:8], d[8:10], d[10:12]), true
}

// DecodeHexName decodes hex encoded equipment identifiers and messages.
// Values that are not valid hex, or do not decode to valid UTF-8, are
// returned unchanged.
func DecodeHexName(v string) string {
	if !hexPattern.MatchString(v) {
		return v
	}
	decoded, err := hex.DecodeString(v)
	if err != nil || !utf8.Valid(decoded) {
		return v
	}
	return string(decoded)
}
