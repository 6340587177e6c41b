package dataset

import (
	"fmt"
	"math"
	"strings"
)

// SOC bins run 0..100 in steps of 5; a sample contributes to the bin whose
// center lies within +/- half a step of its SOC reading.
const (
	socBinStep   = 5.0
	socBinWindow = socBinStep / 2
)

// SOCTemperatureProfile is the mean temperature observed per SOC bin for one
// dataset. Temperatures are nil for bins with no samples.
type SOCTemperatureProfile struct {
	Label             string     `json:"label"`
	SOCColumn         string     `json:"soc_column"`
	TemperatureColumn string     `json:"temperature_column"`
	Bins              []float64  `json:"bins"`
	Temperatures      []*float64 `json:"temperatures"`
	Samples           []int      `json:"samples"`
}

// SOCTemperature correlates state of charge with temperature. tempColumn may
// be empty, in which case the first temperature-classified column is used.
func SOCTemperature(label string, f *Frame, tempColumn string) (SOCTemperatureProfile, error) {
	groups := Classify(f.Columns())

	socCol := ""
	for _, name := range groups.SOCSOH {
		if strings.Contains(strings.ToLower(name), "soc") {
			socCol = name
			break
		}
	}
	if socCol == "" && len(groups.SOCSOH) > 0 {
		socCol = groups.SOCSOH[0]
	}
	if socCol == "" {
		return SOCTemperatureProfile{}, fmt.Errorf("dataset %q has no SOC column", label)
	}

	if tempColumn == "" {
		temps := groups.Temperature()
		if len(temps) == 0 {
			return SOCTemperatureProfile{}, fmt.Errorf("dataset %q has no temperature column", label)
		}
		tempColumn = temps[0]
	} else if !f.Has(tempColumn) {
		return SOCTemperatureProfile{}, fmt.Errorf("dataset %q has no column %q", label, tempColumn)
	}

	soc, _ := f.Column(socCol)
	temp, _ := f.Column(tempColumn)

	profile := SOCTemperatureProfile{
		Label:             label,
		SOCColumn:         socCol,
		TemperatureColumn: tempColumn,
	}
	for bin := 0.0; bin <= 100.0; bin += socBinStep {
		var (
			sum float64
			n   int
		)
		for i := range soc {
			if math.IsNaN(soc[i]) || math.IsNaN(temp[i]) {
				continue
			}
			if math.Abs(soc[i]-bin) <= socBinWindow {
				sum += temp[i]
				n++
			}
		}
		profile.Bins = append(profile.Bins, bin)
		profile.Samples = append(profile.Samples, n)
		if n > 0 {
			mean := sum / float64(n)
			profile.Temperatures = append(profile.Temperatures, &mean)
		} else {
			profile.Temperatures = append(profile.Temperatures, nil)
		}
	}
	return profile, nil
}

// Efficiency is a round-trip energy accounting for one test: instantaneous
// power split by sign into charge and discharge energy.
type Efficiency struct {
	CurrentColumn     string  `json:"current_column"`
	VoltageColumn     string  `json:"voltage_column"`
	ChargeEnergyWh    float64 `json:"charge_energy_wh"`
	DischargeEnergyWh float64 `json:"discharge_energy_wh"`
	RoundTrip         float64 `json:"round_trip_efficiency"`
	NoChargeEnergy    bool    `json:"no_charge_energy,omitempty"`
	Points            int     `json:"points"`
}

// RoundTripEfficiency integrates P = I*V over the test. Positive power counts
// as charging. Sample spacing comes from the Time column when present and
// defaults to one second otherwise. Efficiency is capped at 1.0; a test with
// no charging energy reports 0 and sets NoChargeEnergy.
func RoundTripEfficiency(f *Frame) (Efficiency, error) {
	groups := Classify(f.Columns())
	if len(groups.Current) == 0 {
		return Efficiency{}, fmt.Errorf("no current column found")
	}
	currentCol := groups.Current[0]

	voltageCol := findVoltageColumn(f.Columns(), groups)
	if voltageCol == "" {
		return Efficiency{}, fmt.Errorf("no voltage column found")
	}

	current, _ := f.Column(currentCol)
	voltage, _ := f.Column(voltageCol)
	times, hasTime := f.TimeValues()

	eff := Efficiency{CurrentColumn: currentCol, VoltageColumn: voltageCol}
	var chargeWs, dischargeWs float64
	for i := range current {
		if math.IsNaN(current[i]) || math.IsNaN(voltage[i]) {
			continue
		}
		dt := 1.0
		if hasTime && i > 0 && !math.IsNaN(times[i]) && !math.IsNaN(times[i-1]) {
			if d := times[i] - times[i-1]; d > 0 {
				dt = d
			}
		}
		p := current[i] * voltage[i]
		if p > 0 {
			chargeWs += p * dt
		} else {
			dischargeWs += -p * dt
		}
		eff.Points++
	}

	eff.ChargeEnergyWh = chargeWs / 3600
	eff.DischargeEnergyWh = dischargeWs / 3600
	if eff.ChargeEnergyWh > 0 {
		eff.RoundTrip = math.Min(eff.DischargeEnergyWh/eff.ChargeEnergyWh, 1.0)
	} else {
		eff.NoChargeEnergy = true
	}
	return eff, nil
}

// findVoltageColumn prefers a pack-level voltage channel over per-cell ones.
func findVoltageColumn(names []string, groups Groups) string {
	cellVolts := make(map[string]struct{}, len(groups.CellVoltages))
	for _, name := range groups.CellVoltages {
		cellVolts[name] = struct{}{}
	}
	for _, name := range names {
		if _, isCell := cellVolts[name]; isCell {
			continue
		}
		if strings.Contains(strings.ToLower(name), "voltage") {
			return name
		}
	}
	if len(groups.CellVoltages) > 0 {
		return groups.CellVoltages[0]
	}
	return ""
}

// Duration is the wall-clock extent of a test.
type Duration struct {
	StartSeconds  float64 `json:"start_seconds"`
	EndSeconds    float64 `json:"end_seconds"`
	Seconds       float64 `json:"duration_seconds"`
	Hours         float64 `json:"duration_hours"`
	Points        int     `json:"points"`
	HasTimeColumn bool    `json:"has_time_column"`
}

// TestDuration reports the time range of a frame. Without a Time column the
// duration falls back to the row count at one sample per second.
func TestDuration(f *Frame) Duration {
	times, ok := f.TimeValues()
	if !ok {
		secs := float64(0)
		if f.NumRows() > 1 {
			secs = float64(f.NumRows() - 1)
		}
		return Duration{
			EndSeconds: secs,
			Seconds:    secs,
			Hours:      secs / 3600,
			Points:     f.NumRows(),
		}
	}

	tr, have := timeRange(times)
	if !have {
		return Duration{Points: f.NumRows(), HasTimeColumn: true}
	}
	return Duration{
		StartSeconds:  tr.Start,
		EndSeconds:    tr.End,
		Seconds:       tr.End - tr.Start,
		Hours:         tr.DurationHours,
		Points:        f.NumRows(),
		HasTimeColumn: true,
	}
}
