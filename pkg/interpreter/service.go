package interpreter

import (
	"errors"
	"regexp"
	"strings"

	"github.com/NotCoffee418/p1_meter/pkg/types"
)

var ErrMalformedTelegram = errors.New("malformed telegram: no OBIS lines found")

var (
	obisRefPattern = regexp.MustCompile(`^\d+-\d+:\d+\.\d+\.\d+$`)
	groupPattern   = regexp.MustCompile(`\(([^()]*)\)`)
)

// Decode maps the OBIS lines of a telegram onto a Record.
// Every field is optional. An error is only returned when the telegram
// contains no OBIS data line at all.
func Decode(raw types.RawTelegram) (types.Record, error) {
	var record types.Record
	obisLines := 0

	for _, line := range joinContinuations(raw.Lines()) {
		if strings.HasPrefix(line, "/") {
			parseHeader(line, &record)
			continue
		}

		ref, groups, ok := splitDataLine(line)
		if !ok {
			continue
		}
		obisLines++

		for _, rule := range rulesByOBIS[ref] {
			rule.apply(&record, groups)
		}
	}

	if obisLines == 0 {
		return types.Record{}, ErrMalformedTelegram
	}
	return record, nil
}

// Lines starting with "(" continue the previous data line (DSMR 2.2 gas).
func joinContinuations(lines []string) []string {
	joined := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "(") && len(joined) > 0 {
			joined[len(joined)-1] += line
			continue
		}
		joined = append(joined, line)
	}
	return joined
}

// "1-0:1.8.1(004486.031*kWh)" -> "1-0:1.8.1", ["004486.031*kWh"]
func splitDataLine(line string) (string, []string, bool) {
	open := strings.IndexByte(line, '(')
	if open <= 0 {
		return "", nil, false
	}
	ref := line[:open]
	if !obisRefPattern.MatchString(ref) {
		return "", nil, false
	}

	matches := groupPattern.FindAllStringSubmatch(line[open:], -1)
	if len(matches) == 0 {
		return "", nil, false
	}
	groups := make([]string, len(matches))
	for i, m := range matches {
		groups[i] = m[1]
	}
	return ref, groups, true
}

// Header line "/Ene5\T210-D ESMR5.0" gives net manager "Ene" and meter type "T210-D".
func parseHeader(line string, record *types.Record) {
	body := strings.TrimLeft(strings.TrimPrefix(line, "/"), " \t")
	if len(body) < 3 {
		return
	}
	netManager := body[:3]
	record.Header.NetManager = &netManager

	if len(body) <= 5 {
		return
	}
	if fields := strings.Fields(body[5:]); len(fields) > 0 {
		meterType := fields[0]
		record.Header.MeterType = &meterType
	}
}
