package calculator

import (
	"github.com/NotCoffee418/p1_meter/pkg/esmutils"
	"github.com/NotCoffee418/p1_meter/pkg/types"
	"github.com/shopspring/decimal"
)

// Derive computes net power and direction from the current power values.
// Missing current values count as zero.
func Derive(record types.Record) types.DerivedState {
	produced := valueOrZero(record.Energy.CurrentProduced)
	consumed := valueOrZero(record.Energy.CurrentConsumed)

	state := types.DerivedState{
		NetPowerWatts:          esmutils.KwToW(produced.Sub(consumed)),
		Direction:              types.Consuming,
		CurrentUsageWatts:      esmutils.KwToWPtr(record.Energy.CurrentConsumed),
		CurrentProductionWatts: esmutils.KwToWPtr(record.Energy.CurrentProduced),
	}
	if state.NetPowerWatts > 0 {
		state.Direction = types.Producing
	}

	for i, phase := range record.Phases {
		state.PhaseUsedWatts[i] = esmutils.KwToWPtr(phase.UsedNow)
		state.PhaseProducedWatts[i] = esmutils.KwToWPtr(phase.ProducedNow)
	}
	return state
}

func valueOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
