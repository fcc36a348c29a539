package types

import "fmt"

type Direction string

const (
	Producing Direction = "producing"
	Consuming Direction = "consuming"
)

// DerivedState holds presentation values computed from a Record.
// All power values are whole watts.
type DerivedState struct {
	NetPowerWatts int64     `json:"net_power_watts"`
	Direction     Direction `json:"direction"`

	CurrentUsageWatts      *int64    `json:"current_usage_watts,omitempty"`
	CurrentProductionWatts *int64    `json:"current_production_watts,omitempty"`
	PhaseUsedWatts         [3]*int64 `json:"phase_used_watts"`
	PhaseProducedWatts     [3]*int64 `json:"phase_produced_watts"`
}

// Summary renders the state the way it is shown on the meter device,
// e.g. "Producing 2403 W".
func (d DerivedState) Summary() string {
	if d.Direction == Producing {
		return fmt.Sprintf("Producing %d W", d.NetPowerWatts)
	}
	return fmt.Sprintf("Consuming %d W", -d.NetPowerWatts)
}
