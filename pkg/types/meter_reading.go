package types

import "github.com/shopspring/decimal"

// Record is the decoded content of a single telegram.
// Every field is optional; nil means the telegram did not carry it.
// A Record is built once by the interpreter and not modified afterwards.
type Record struct {
	Header  Header   `json:"header"`
	Energy  Energy   `json:"energy"`
	Phases  [3]Phase `json:"phases"`
	Outages Outages  `json:"outages"`
	Gas     Gas      `json:"gas"`
	Message Message  `json:"message"`

	// Hex decoded equipment identifiers
	MeterID    *string `json:"meter_id,omitempty"`
	GasMeterID *string `json:"gas_meter_id,omitempty"`
}

type Header struct {
	NetManager  *string `json:"net_manager,omitempty"`
	MeterType   *string `json:"meter_type,omitempty"`
	DSMRVersion *string `json:"dsmr_version,omitempty"`
	MeasuredAt  *string `json:"measured_at,omitempty"`
}

// Energy values are in kWh for totals and kW for current/threshold values.
type Energy struct {
	Tariff         *uint64          `json:"tariff,omitempty"`
	SwitchPosition *uint64          `json:"switch_position,omitempty"`
	Threshold      *decimal.Decimal `json:"threshold_kw,omitempty"`

	LowConsumed  *decimal.Decimal `json:"low_consumed_kwh,omitempty"`
	LowProduced  *decimal.Decimal `json:"low_produced_kwh,omitempty"`
	HighConsumed *decimal.Decimal `json:"high_consumed_kwh,omitempty"`
	HighProduced *decimal.Decimal `json:"high_produced_kwh,omitempty"`

	CurrentConsumed *decimal.Decimal `json:"current_consumed_kw,omitempty"`
	CurrentProduced *decimal.Decimal `json:"current_produced_kw,omitempty"`
}

type Phase struct {
	Volt        *decimal.Decimal `json:"volt,omitempty"`
	Amps        *uint64          `json:"amps,omitempty"`
	UsedNow     *decimal.Decimal `json:"used_now_kw,omitempty"`
	ProducedNow *decimal.Decimal `json:"produced_now_kw,omitempty"`
	SagCount    *uint64          `json:"sag_count,omitempty"`
	SwellCount  *uint64          `json:"swell_count,omitempty"`
}

type Outages struct {
	ShortCount *uint64 `json:"short_count,omitempty"`
	LongCount  *uint64 `json:"long_count,omitempty"`

	// Most recent entry of the long outage log. Duration in seconds.
	LastDuration  *uint64 `json:"last_duration_s,omitempty"`
	LastTimestamp *string `json:"last_timestamp,omitempty"`
}

type Gas struct {
	// Raw hex EID as sent by the meter, see Record.GasMeterID for the decoded name.
	EID        *string          `json:"eid,omitempty"`
	DeviceType *uint64          `json:"device_type,omitempty"`
	MeasuredAt *string          `json:"measured_at,omitempty"`
	Total      *decimal.Decimal `json:"total,omitempty"`
	Unit       *string          `json:"unit,omitempty"`
	Valve      *uint64          `json:"valve,omitempty"`
}

type Message struct {
	Code *string `json:"code,omitempty"`
	Text *string `json:"text,omitempty"`
}
