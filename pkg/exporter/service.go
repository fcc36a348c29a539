// Package exporter exposes the latest reading as Prometheus metrics.
package exporter

import (
	"strconv"

	"github.com/NotCoffee418/p1_meter/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

var (
	netPower = prometheus.NewDesc(
		"p1_net_power_watts",
		"Net power in watt, positive while producing",
		nil, nil,
	)
	currentPower = prometheus.NewDesc(
		"p1_power_watts",
		"Current power in watt by direction",
		[]string{"direction"}, nil,
	)
	energyTotal = prometheus.NewDesc(
		"p1_energy_kwh",
		"Meter reading in kilowatt.hour by direction and tariff",
		[]string{"direction", "tariff"}, nil,
	)
	activeTariff = prometheus.NewDesc(
		"p1_active_tariff",
		"Tariff indicator reported by the meter",
		nil, nil,
	)
	phaseVoltage = prometheus.NewDesc(
		"p1_phase_voltage_volts",
		"Instantaneous voltage per phase",
		[]string{"phase"}, nil,
	)
	phaseCurrent = prometheus.NewDesc(
		"p1_phase_current_amperes",
		"Instantaneous current per phase",
		[]string{"phase"}, nil,
	)
	phasePower = prometheus.NewDesc(
		"p1_phase_power_watts",
		"Instantaneous power per phase and direction",
		[]string{"phase", "direction"}, nil,
	)
	voltageSags = prometheus.NewDesc(
		"p1_voltage_sags_total",
		"Number of voltage sags per phase",
		[]string{"phase"}, nil,
	)
	voltageSwells = prometheus.NewDesc(
		"p1_voltage_swells_total",
		"Number of voltage swells per phase",
		[]string{"phase"}, nil,
	)
	powerFailures = prometheus.NewDesc(
		"p1_power_failures_total",
		"Number of power failures by kind",
		[]string{"kind"}, nil,
	)
	gasDelivered = prometheus.NewDesc(
		"p1_gas_delivered_cubic_meters",
		"Gas meter reading in cubic meter",
		nil, nil,
	)
	lastReading = prometheus.NewDesc(
		"p1_last_reading_timestamp_seconds",
		"Time the latest reading was received",
		nil, nil,
	)
)

// ReadingSource is satisfied by poller.Poller.
type ReadingSource interface {
	GetLatestReading() *types.Reading
}

type Collector struct {
	source ReadingSource
}

func NewCollector(source ReadingSource, reg prometheus.Registerer) *Collector {
	c := &Collector{source: source}
	reg.MustRegister(c)
	return c
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, desc := range []*prometheus.Desc{
		netPower, currentPower, energyTotal, activeTariff,
		phaseVoltage, phaseCurrent, phasePower, voltageSags, voltageSwells,
		powerFailures, gasDelivered, lastReading,
	} {
		ch <- desc
	}
}

// Collect reports nothing until a first reading is available.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	reading := c.source.GetLatestReading()
	if reading == nil {
		return
	}
	record := reading.Record
	derived := reading.Derived

	ch <- prometheus.MustNewConstMetric(lastReading, prometheus.GaugeValue, float64(reading.ReceivedAt.Unix()))
	ch <- prometheus.MustNewConstMetric(netPower, prometheus.GaugeValue, float64(derived.NetPowerWatts))
	watts(ch, currentPower, derived.CurrentUsageWatts, "consumed")
	watts(ch, currentPower, derived.CurrentProductionWatts, "produced")

	dec(ch, energyTotal, prometheus.CounterValue, record.Energy.LowConsumed, "consumed", "low")
	dec(ch, energyTotal, prometheus.CounterValue, record.Energy.HighConsumed, "consumed", "high")
	dec(ch, energyTotal, prometheus.CounterValue, record.Energy.LowProduced, "produced", "low")
	dec(ch, energyTotal, prometheus.CounterValue, record.Energy.HighProduced, "produced", "high")
	count(ch, activeTariff, prometheus.GaugeValue, record.Energy.Tariff)

	for i, phase := range record.Phases {
		label := strconv.Itoa(i + 1)
		dec(ch, phaseVoltage, prometheus.GaugeValue, phase.Volt, label)
		count(ch, phaseCurrent, prometheus.GaugeValue, phase.Amps, label)
		watts(ch, phasePower, derived.PhaseUsedWatts[i], label, "consumed")
		watts(ch, phasePower, derived.PhaseProducedWatts[i], label, "produced")
		count(ch, voltageSags, prometheus.CounterValue, phase.SagCount, label)
		count(ch, voltageSwells, prometheus.CounterValue, phase.SwellCount, label)
	}

	count(ch, powerFailures, prometheus.CounterValue, record.Outages.ShortCount, "short")
	count(ch, powerFailures, prometheus.CounterValue, record.Outages.LongCount, "long")
	dec(ch, gasDelivered, prometheus.CounterValue, record.Gas.Total)
}

func dec(ch chan<- prometheus.Metric, desc *prometheus.Desc, kind prometheus.ValueType, v *decimal.Decimal, labels ...string) {
	if v != nil {
		ch <- prometheus.MustNewConstMetric(desc, kind, v.InexactFloat64(), labels...)
	}
}

func count(ch chan<- prometheus.Metric, desc *prometheus.Desc, kind prometheus.ValueType, v *uint64, labels ...string) {
	if v != nil {
		ch <- prometheus.MustNewConstMetric(desc, kind, float64(*v), labels...)
	}
}

func watts(ch chan<- prometheus.Metric, desc *prometheus.Desc, v *int64, labels ...string) {
	if v != nil {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(*v), labels...)
	}
}
