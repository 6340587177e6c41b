package dataset

import (
	"sort"
	"strconv"
	"strings"
)

// Groups buckets column names by what the channel measures. The rule set
// mirrors the naming conventions of the battery test loggers feeding the
// dashboard (BMS exports with _avg suffixes, LH-/RH- thermocouple banks,
// per-cell voltage and balancing channels).
type Groups struct {
	Time          []string `json:"time"`
	Current       []string `json:"current"`
	Power         []string `json:"power"`
	CellVoltages  []string `json:"cell_voltages"`
	TempStats     []string `json:"temp_stats"`
	BMSTemps      []string `json:"bms_temps"`
	Thermocouples []string `json:"thermocouples"`
	SOCSOH        []string `json:"soc_soh"`
	Balancing     []string `json:"balancing"`
	Other         []string `json:"other"`
}

// Temperature is the union of all temperature-bearing groups, in group order.
func (g Groups) Temperature() []string {
	out := make([]string, 0, len(g.TempStats)+len(g.BMSTemps)+len(g.Thermocouples))
	out = append(out, g.TempStats...)
	out = append(out, g.BMSTemps...)
	out = append(out, g.Thermocouples...)
	return out
}

type groupKind int

const (
	kindOther groupKind = iota
	kindTime
	kindCurrent
	kindPower
	kindCellVoltage
	kindTempStats
	kindBMSTemp
	kindThermocouple
	kindSOCSOH
	kindBalancing
)

// Classify assigns every column name to exactly one group.
func Classify(names []string) Groups {
	var g Groups
	for _, name := range names {
		switch classifyName(name) {
		case kindTime:
			g.Time = append(g.Time, name)
		case kindCurrent:
			g.Current = append(g.Current, name)
		case kindPower:
			g.Power = append(g.Power, name)
		case kindCellVoltage:
			g.CellVoltages = append(g.CellVoltages, name)
		case kindTempStats:
			g.TempStats = append(g.TempStats, name)
		case kindBMSTemp:
			g.BMSTemps = append(g.BMSTemps, name)
		case kindThermocouple:
			g.Thermocouples = append(g.Thermocouples, name)
		case kindSOCSOH:
			g.SOCSOH = append(g.SOCSOH, name)
		case kindBalancing:
			g.Balancing = append(g.Balancing, name)
		default:
			g.Other = append(g.Other, name)
		}
	}
	return g
}

// classifyName applies the matching rules in priority order; the first rule
// that matches wins. Matching runs on the lowercased name with a trailing
// "_avg" stripped, so "Battery_Temperature_Max_avg" and
// "battery_temperature_max" classify identically.
func classifyName(name string) groupKind {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimSuffix(n, "_avg")

	switch {
	case strings.Contains(n, "battery_temperature_m") || strings.Contains(n, "effective_battery"):
		return kindTempStats
	case strings.Contains(n, "pack_s"):
		return kindSOCSOH
	case strings.Contains(n, "cell_voltage_cell"):
		return kindCellVoltage
	case strings.Contains(n, "bms00_pack_"):
		return kindBMSTemp
	case (strings.HasPrefix(n, "lh-") || strings.HasPrefix(n, "rh-")) && strings.Contains(n, "t"):
		return kindThermocouple
	case strings.Contains(n, "_balancing_status_"):
		return kindBalancing
	case n == "time" || n == "timestamp" || n == "index" || strings.Contains(n, "time"):
		return kindTime
	case strings.Contains(n, "current") || strings.Contains(n, "amp"):
		return kindCurrent
	case strings.Contains(n, "power") || strings.Contains(n, "watt"):
		return kindPower
	default:
		return kindOther
	}
}

// CellNumbers extracts the trailing integer of each name (e.g. cell or sensor
// index), deduplicated and sorted ascending. Names without digits are skipped.
func CellNumbers(names []string) []int {
	seen := make(map[int]struct{})
	for _, name := range names {
		if n, ok := lastNumber(name); ok {
			seen[n] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

func lastNumber(name string) (int, bool) {
	end := -1
	for i := len(name) - 1; i >= 0; i-- {
		c := name[i]
		if c >= '0' && c <= '9' {
			if end == -1 {
				end = i + 1
			}
			continue
		}
		if end != -1 {
			n, err := strconv.Atoi(name[i+1 : end])
			return n, err == nil
		}
	}
	if end != -1 {
		n, err := strconv.Atoi(name[:end])
		return n, err == nil
	}
	return 0, false
}
