package meterdb

import (
	"fmt"
	"strconv"

	"github.com/NotCoffee418/p1_meter/pkg/esmutils"
	"github.com/NotCoffee418/p1_meter/pkg/types"
	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
)

// StatesFromReading flattens a reading into state key/value pairs.
func StatesFromReading(reading *types.Reading) (string, map[string]string, error) {
	record := reading.Record
	derived := reading.Derived

	meterID := UnknownMeterID
	if record.MeterID != nil && *record.MeterID != "" {
		meterID = *record.MeterID
	}

	ds := DeviceStates{
		MeterType:   str(record.Header.MeterType),
		NetManager:  str(record.Header.NetManager),
		DSMRVersion: str(record.Header.DSMRVersion),
		Timestamp:   str(record.Header.MeasuredAt),
		MasterState: derived.Summary(),
		TextMessage: str(record.Message.Text),
		MeterID:     str(record.MeterID),

		CurrentTariff: uintStr(record.Energy.Tariff),
		UsedT1:        decStr(record.Energy.LowConsumed),
		UsedT2:        decStr(record.Energy.HighConsumed),
		GeneratedT1:   decStr(record.Energy.LowProduced),
		GeneratedT2:   decStr(record.Energy.HighProduced),
		NowUsage:      wattStr(derived.CurrentUsageWatts),
		NowGenerated:  wattStr(derived.CurrentProductionWatts),
		NowSum:        strconv.FormatInt(derived.NetPowerWatts, 10),
		NowDirection:  string(derived.Direction),

		OutagesShortCount:    uintStr(record.Outages.ShortCount),
		OutagesLongCount:     uintStr(record.Outages.LongCount),
		OutagesLongDuration:  uintStr(record.Outages.LastDuration),
		OutagesLongTimestamp: str(record.Outages.LastTimestamp),

		GasMeterID:   str(record.GasMeterID),
		GasMeterType: uintStr(record.Gas.DeviceType),
		GasTimestamp: str(record.Gas.MeasuredAt),
		GasUsed:      decStr(record.Gas.Total),
		GasUnit:      str(record.Gas.Unit),
		GasValve:     uintStr(record.Gas.Valve),
	}

	if record.Gas.Total != nil {
		ds.GasUsedDM3 = strconv.FormatUint(uint64(esmutils.M3ToDM3(*record.Gas.Total)), 10)
	}

	phases := []struct {
		current, voltage, used, generated, low, high *string
	}{
		{&ds.CurrentNowPhase1, &ds.VoltageNowPhase1, &ds.UsedNowPhase1, &ds.GeneratedNowPhase1, &ds.VoltageLowPhase1, &ds.VoltageHighPhase1},
		{&ds.CurrentNowPhase2, &ds.VoltageNowPhase2, &ds.UsedNowPhase2, &ds.GeneratedNowPhase2, &ds.VoltageLowPhase2, &ds.VoltageHighPhase2},
		{&ds.CurrentNowPhase3, &ds.VoltageNowPhase3, &ds.UsedNowPhase3, &ds.GeneratedNowPhase3, &ds.VoltageLowPhase3, &ds.VoltageHighPhase3},
	}
	for i, phase := range record.Phases {
		*phases[i].current = uintStr(phase.Amps)
		*phases[i].voltage = decStr(phase.Volt)
		*phases[i].used = wattStr(derived.PhaseUsedWatts[i])
		*phases[i].generated = wattStr(derived.PhaseProducedWatts[i])
		*phases[i].low = uintStr(phase.SagCount)
		*phases[i].high = uintStr(phase.SwellCount)
	}

	var flat map[string]interface{}
	if err := mapstructure.Decode(ds, &flat); err != nil {
		return "", nil, fmt.Errorf("failed to flatten device states: %w", err)
	}

	states := make(map[string]string, len(flat))
	for key, value := range flat {
		if s, ok := value.(string); ok && s != "" {
			states[key] = s
		}
	}
	return meterID, states, nil
}

// DecodeStates turns stored state pairs back into DeviceStates.
func DecodeStates(states map[string]string) (*DeviceStates, error) {
	var ds DeviceStates
	if err := mapstructure.Decode(states, &ds); err != nil {
		return nil, fmt.Errorf("failed to decode device states: %w", err)
	}
	return &ds, nil
}

func str(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func uintStr(v *uint64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatUint(*v, 10)
}

func decStr(v *decimal.Decimal) string {
	if v == nil {
		return ""
	}
	return v.String()
}

func wattStr(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
