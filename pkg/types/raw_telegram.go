package types

import "bytes"

// RawTelegram holds one framed telegram, from the `/` header line up to and
// including the `!` line, with line endings exactly as received.
type RawTelegram []byte

func (t RawTelegram) String() string {
	return string(t)
}

// Lines splits the telegram on LF and strips the trailing CR of each line.
func (t RawTelegram) Lines() []string {
	parts := bytes.Split(t, []byte("\n"))
	lines := make([]string, 0, len(parts))
	for _, p := range parts {
		p = bytes.TrimRight(p, "\r")
		if len(p) == 0 {
			continue
		}
		lines = append(lines, string(p))
	}
	return lines
}
