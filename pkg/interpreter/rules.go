package interpreter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/NotCoffee418/p1_meter/pkg/types"
	"github.com/shopspring/decimal"
)

type ValueKind int

const (
	KindInteger ValueKind = iota
	KindDecimal
	KindTimestamp
	KindHexName
	KindText
	KindUnit
)

func (k ValueKind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindDecimal:
		return "decimal"
	case KindTimestamp:
		return "timestamp"
	case KindHexName:
		return "hex"
	case KindText:
		return "text"
	case KindUnit:
		return "unit"
	}
	return fmt.Sprintf("ValueKind(%d)", int(k))
}

// FieldRule binds an OBIS reference to one value inside its payload groups.
// Group indexes the parenthesized groups of the line; negative values count
// from the end, so -1 is the last group.
type FieldRule struct {
	Name  string
	OBIS  string
	Kind  ValueKind
	Unit  string
	Group int

	extract func(r *types.Record, value, unit string) bool
}

var (
	integerPattern   = regexp.MustCompile(`^\d+$`)
	decimalPattern   = regexp.MustCompile(`^\d+\.\d+$`)
	timestampPattern = regexp.MustCompile(`^(\d{12})[SW]?$`)
	hexPattern       = regexp.MustCompile(`^(?:[0-9A-Fa-f]{2})+$`)
)

// apply extracts the rule's value from the groups of a matching line.
// Returns false when the value is absent or malformed.
func (f FieldRule) apply(r *types.Record, groups []string) bool {
	idx := f.Group
	if idx < 0 {
		idx = len(groups) + idx
	}
	if idx < 0 || idx >= len(groups) {
		return false
	}
	value, unit := splitUnit(groups[idx])
	if f.Unit != "" && unit != "" && !strings.EqualFold(unit, f.Unit) {
		return false
	}
	return f.extract(r, value, unit)
}

// "00889.906*m3" -> "00889.906", "m3"
func splitUnit(payload string) (string, string) {
	if i := strings.IndexByte(payload, '*'); i >= 0 {
		return payload[:i], payload[i+1:]
	}
	return payload, ""
}

func integerRule(name, obis, unit string, group int, field func(*types.Record) **uint64) FieldRule {
	return FieldRule{
		Name: name, OBIS: obis, Kind: KindInteger, Unit: unit, Group: group,
		extract: func(r *types.Record, value, _ string) bool {
			if !integerPattern.MatchString(value) {
				return false
			}
			v, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				return false
			}
			*field(r) = &v
			return true
		},
	}
}

// truncatedIntegerRule is an integerRule that also accepts a decimal value
// and drops its fraction. Some meters report phase current as 001.23*A.
func truncatedIntegerRule(name, obis, unit string, group int, field func(*types.Record) **uint64) FieldRule {
	rule := integerRule(name, obis, unit, group, field)
	extractInteger := rule.extract
	rule.extract = func(r *types.Record, value, u string) bool {
		if decimalPattern.MatchString(value) {
			value = value[:strings.IndexByte(value, '.')]
		}
		return extractInteger(r, value, u)
	}
	return rule
}

func decimalRule(name, obis, unit string, group int, field func(*types.Record) **decimal.Decimal) FieldRule {
	return FieldRule{
		Name: name, OBIS: obis, Kind: KindDecimal, Unit: unit, Group: group,
		extract: func(r *types.Record, value, _ string) bool {
			if !decimalPattern.MatchString(value) {
				return false
			}
			v, err := decimal.NewFromString(value)
			if err != nil {
				return false
			}
			*field(r) = &v
			return true
		},
	}
}

func timestampRule(name, obis string, group int, field func(*types.Record) **string) FieldRule {
	return FieldRule{
		Name: name, OBIS: obis, Kind: KindTimestamp, Group: group,
		extract: func(r *types.Record, value, _ string) bool {
			ts, ok := NormalizeTimestamp(value)
			if !ok {
				return false
			}
			*field(r) = &ts
			return true
		},
	}
}

func hexNameRule(name, obis string, field func(*types.Record) **string) FieldRule {
	return FieldRule{
		Name: name, OBIS: obis, Kind: KindHexName, Group: 0,
		extract: func(r *types.Record, value, _ string) bool {
			if value == "" {
				return false
			}
			decoded := DecodeHexName(value)
			*field(r) = &decoded
			return true
		},
	}
}

func textRule(name, obis string, group int, field func(*types.Record) **string) FieldRule {
	return FieldRule{
		Name: name, OBIS: obis, Kind: KindText, Group: group,
		extract: func(r *types.Record, value, _ string) bool {
			value = strings.TrimSpace(value)
			if value == "" {
				return false
			}
			*field(r) = &value
			return true
		},
	}
}

// unitRule stores the `*unit` suffix of a group rather than its value.
func unitRule(name, obis string, group int, field func(*types.Record) **string) FieldRule {
	return FieldRule{
		Name: name, OBIS: obis, Kind: KindUnit, Group: group,
		extract: func(r *types.Record, _, unit string) bool {
			if unit == "" {
				return false
			}
			*field(r) = &unit
			return true
		},
	}
}

var fieldRules = buildRules()

// OBIS reference -> rules applied to that line
var rulesByOBIS = indexRules(fieldRules)

func buildRules() []FieldRule {
	rules := []FieldRule{
		// Header
		textRule("header.dsmr_version", "1-3:0.2.8", 0, func(r *types.Record) **string { return &r.Header.DSMRVersion }),
		timestampRule("header.measured_at", "0-0:1.0.0", 0, func(r *types.Record) **string { return &r.Header.MeasuredAt }),
		hexNameRule("meter_id", "0-0:96.1.1", func(r *types.Record) **string { return &r.MeterID }),

		// Electricity
		integerRule("energy.tariff", "0-0:96.14.0", "", 0, func(r *types.Record) **uint64 { return &r.Energy.Tariff }),
		integerRule("energy.switch_position", "0-0:96.3.10", "", 0, func(r *types.Record) **uint64 { return &r.Energy.SwitchPosition }),
		decimalRule("energy.threshold", "0-0:17.0.0", "kW", 0, func(r *types.Record) **decimal.Decimal { return &r.Energy.Threshold }),
		decimalRule("energy.low_consumed", "1-0:1.8.1", "kWh", 0, func(r *types.Record) **decimal.Decimal { return &r.Energy.LowConsumed }),
		decimalRule("energy.high_consumed", "1-0:1.8.2", "kWh", 0, func(r *types.Record) **decimal.Decimal { return &r.Energy.HighConsumed }),
		decimalRule("energy.low_produced", "1-0:2.8.1", "kWh", 0, func(r *types.Record) **decimal.Decimal { return &r.Energy.LowProduced }),
		decimalRule("energy.high_produced", "1-0:2.8.2", "kWh", 0, func(r *types.Record) **decimal.Decimal { return &r.Energy.HighProduced }),
		decimalRule("energy.current_consumed", "1-0:1.7.0", "kW", 0, func(r *types.Record) **decimal.Decimal { return &r.Energy.CurrentConsumed }),
		decimalRule("energy.current_produced", "1-0:2.7.0", "kW", 0, func(r *types.Record) **decimal.Decimal { return &r.Energy.CurrentProduced }),

		// Outages. The event log line carries both the timestamp and the duration
		// of the most recent long outage:
		// 1-0:99.97.0(1)(0-0:96.7.19)(180806173744S)(0000000737*s)
		integerRule("outages.short_count", "0-0:96.7.21", "", 0, func(r *types.Record) **uint64 { return &r.Outages.ShortCount }),
		integerRule("outages.long_count", "0-0:96.7.9", "", 0, func(r *types.Record) **uint64 { return &r.Outages.LongCount }),
		timestampRule("outages.last_timestamp", "1-0:99.97.0", 2, func(r *types.Record) **string { return &r.Outages.LastTimestamp }),
		integerRule("outages.last_duration", "1-0:99.97.0", "s", 3, func(r *types.Record) **uint64 { return &r.Outages.LastDuration }),

		// Gas
		textRule("gas.eid", "0-1:96.1.0", 0, func(r *types.Record) **string { return &r.Gas.EID }),
		hexNameRule("gas_meter_id", "0-1:96.1.0", func(r *types.Record) **string { return &r.GasMeterID }),
		integerRule("gas.device_type", "0-1:24.1.0", "", 0, func(r *types.Record) **uint64 { return &r.Gas.DeviceType }),
		integerRule("gas.valve", "0-1:24.4.0", "", 0, func(r *types.Record) **uint64 { return &r.Gas.Valve }),

		// DSMR 2.2 puts the volume on a continuation line:
		// 0-1:24.3.0(121030140000)(00)(60)(1)(0-1:24.2.1)(m3)
		// (00000.142)
		timestampRule("gas.measured_at", "0-1:24.3.0", 0, func(r *types.Record) **string { return &r.Gas.MeasuredAt }),
		textRule("gas.unit", "0-1:24.3.0", 5, func(r *types.Record) **string { return &r.Gas.Unit }),
		decimalRule("gas.total", "0-1:24.3.0", "", -1, func(r *types.Record) **decimal.Decimal { return &r.Gas.Total }),

		// Message
		textRule("message.code", "0-0:96.13.1", 0, func(r *types.Record) **string { return &r.Message.Code }),
		hexNameRule("message.text", "0-0:96.13.0", func(r *types.Record) **string { return &r.Message.Text }),
	}

	// 0-1:24.2.1(200411171500S)(00889.906*m3) or 0-1:24.2.1(00889.906*m3).
	// 24.2.3 is used by Belgian meters.
	for _, obis := range []string{"0-1:24.2.1", "0-1:24.2.3"} {
		rules = append(rules,
			timestampRule("gas.measured_at", obis, 0, func(r *types.Record) **string { return &r.Gas.MeasuredAt }),
			decimalRule("gas.total", obis, "m3", -1, func(r *types.Record) **decimal.Decimal { return &r.Gas.Total }),
			unitRule("gas.unit", obis, -1, func(r *types.Record) **string { return &r.Gas.Unit }),
		)
	}

	// Per phase values. L1/L2/L3 are 20 apart in the C group.
	for i := 0; i < 3; i++ {
		phase := i
		c := func(base int) string { return fmt.Sprintf("1-0:%d", base+20*phase) }
		name := func(field string) string { return fmt.Sprintf("phase%d.%s", phase+1, field) }
		rules = append(rules,
			decimalRule(name("volt"), c(32)+".7.0", "V", 0, func(r *types.Record) **decimal.Decimal { return &r.Phases[phase].Volt }),
			truncatedIntegerRule(name("amps"), c(31)+".7.0", "A", 0, func(r *types.Record) **uint64 { return &r.Phases[phase].Amps }),
			decimalRule(name("used_now"), c(21)+".7.0", "kW", 0, func(r *types.Record) **decimal.Decimal { return &r.Phases[phase].UsedNow }),
			decimalRule(name("produced_now"), c(22)+".7.0", "kW", 0, func(r *types.Record) **decimal.Decimal { return &r.Phases[phase].ProducedNow }),
			integerRule(name("sag_count"), c(32)+".32.0", "", 0, func(r *types.Record) **uint64 { return &r.Phases[phase].SagCount }),
			integerRule(name("swell_count"), c(32)+".36.0", "", 0, func(r *types.Record) **uint64 { return &r.Phases[phase].SwellCount }),
		)
	}

	return rules
}

func indexRules(rules []FieldRule) map[string][]FieldRule {
	index := make(map[string][]FieldRule)
	for _, rule := range rules {
		index[rule.OBIS] = append(index[rule.OBIS], rule)
	}
	return index
}

// Rules returns a copy of the field rule table.
func Rules() []FieldRule {
	out := make([]FieldRule, len(fieldRules))
	copy(out, fieldRules)
	return out
}
