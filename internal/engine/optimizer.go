package engine

import (
	"fmt"
	"math"
)

// voltageTolerance absorbs float noise when testing divisibility
const voltageTolerance = 1e-9

// SelectKit picks the cheapest sufficient line item of every family for each
// tier. Families are optimized independently. Every tier gets a kit; families
// with no eligible entry resolve to a sentinel line item.
func SelectKit(catalog Catalog, req KitRequest, cfg Config) map[Tier]Kit {
	kits := make(map[Tier]Kit, len(Tiers))
	for _, t := range Tiers {
		kits[t] = SelectTierKit(catalog, t, req, cfg)
	}
	return kits
}

// SelectTierKit builds the kit for a single tier
func SelectTierKit(catalog Catalog, t Tier, req KitRequest, cfg Config) Kit {
	kit := Kit{
		FamilyPanels:      SelectPanels(catalog.Entries(FamilyPanels, t), req.PanelWatts),
		FamilyInverters:   SelectInverter(catalog.Entries(FamilyInverters, t), req.PeakDemandW),
		FamilyControllers: SelectController(catalog.Entries(FamilyControllers, t)),
	}

	batteries := catalog.Entries(FamilyBatteries, t)
	if cfg.BatteryPolicy == BatterySimple {
		kit[FamilyBatteries] = SelectBatteriesSimple(batteries, req.BatteryAh)
	} else {
		voltage := cfg.SystemVoltage
		if voltage <= 0 {
			voltage = SystemVoltage(req.PanelWatts)
		}
		requiredAh := RequiredBankAh(req.NightWh, voltage, cfg.DoD(t))
		kit[FamilyBatteries] = SelectBatteryBank(batteries, requiredAh, voltage)
	}

	return kit
}

// SelectPanels minimizes ceil(panelWatts/capacity) * price
func SelectPanels(entries []CatalogEntry, panelWatts float64) KitLineItem {
	return selectByUnits(FamilyPanels, entries, panelWatts)
}

// SelectBatteriesSimple minimizes ceil(batteryAh/capacity) * price, ignoring voltage
func SelectBatteriesSimple(entries []CatalogEntry, batteryAh float64) KitLineItem {
	return selectByUnits(FamilyBatteries, entries, batteryAh)
}

func selectByUnits(f Family, entries []CatalogEntry, required float64) KitLineItem {
	best := sentinel(f)
	found := false
	for _, e := range entries {
		if e.Capacity <= 0 {
			continue
		}
		units, ok := unitsFor(required, e.Capacity)
		if !ok {
			continue
		}
		cost := float64(units) * e.Price
		if !found || cost < best.Price {
			best = KitLineItem{
				Family:      f,
				Description: fmt.Sprintf("%d x %s", units, e.Name),
				Model:       e.Name,
				Quantity:    units,
				Price:       cost,
			}
			found = true
		}
	}
	return best
}

// SelectBatteryBank builds a series/parallel bank at systemVoltage. Only
// entries whose voltage evenly divides the system voltage are eligible.
func SelectBatteryBank(entries []CatalogEntry, requiredAh, systemVoltage float64) KitLineItem {
	best := sentinel(FamilyBatteries)
	found := false
	for _, e := range entries {
		series, ok := seriesCount(systemVoltage, e.Voltage)
		if e.Capacity <= 0 || !ok {
			continue
		}
		parallel, ok := unitsFor(requiredAh, e.Capacity)
		if !ok {
			continue
		}
		units := series * parallel
		cost := float64(units) * e.Price
		if !found || cost < best.Price {
			best = KitLineItem{
				Family:      FamilyBatteries,
				Description: fmt.Sprintf("%d x %s (%dS%dP)", units, e.Name, series, parallel),
				Model:       e.Name,
				Quantity:    units,
				Series:      series,
				Parallel:    parallel,
				Price:       cost,
			}
			found = true
		}
	}
	return best
}

// SelectInverter picks the cheapest inverter rated for the peak demand
func SelectInverter(entries []CatalogEntry, peakDemandW float64) KitLineItem {
	return selectCheapest(FamilyInverters, entries, func(e CatalogEntry) bool {
		return e.Capacity >= peakDemandW
	})
}

// SelectController picks the cheapest controller. Amperage options are
// expected to be pre-filtered by whoever supplies the catalog.
func SelectController(entries []CatalogEntry) KitLineItem {
	return selectCheapest(FamilyControllers, entries, nil)
}

func selectCheapest(f Family, entries []CatalogEntry, eligible func(CatalogEntry) bool) KitLineItem {
	best := sentinel(f)
	found := false
	for _, e := range entries {
		if e.Capacity <= 0 || (eligible != nil && !eligible(e)) {
			continue
		}
		if !found || e.Price < best.Price {
			best = KitLineItem{
				Family:      f,
				Description: fmt.Sprintf("1 x %s", e.Name),
				Model:       e.Name,
				Quantity:    1,
				Price:       e.Price,
			}
			found = true
		}
	}
	return best
}

func sentinel(f Family) KitLineItem {
	return KitLineItem{Family: f, Description: NoData, NoData: true}
}

// unitsFor is the whole number of units covering required. Counts that do
// not fit a sane integer make the entry ineligible.
func unitsFor(required, capacity float64) (int, bool) {
	if required <= 0 {
		return 0, true
	}
	n := math.Ceil(required / capacity)
	if math.IsNaN(n) || math.IsInf(n, 0) || n > math.MaxInt32 {
		return 0, false
	}
	return int(n), true
}

// seriesCount returns how many cells of entryVoltage make up systemVoltage
func seriesCount(systemVoltage, entryVoltage float64) (int, bool) {
	if entryVoltage <= 0 || systemVoltage <= 0 || entryVoltage > systemVoltage {
		return 0, false
	}
	ratio := systemVoltage / entryVoltage
	n := math.Round(ratio)
	if math.Abs(ratio-n) > voltageTolerance {
		return 0, false
	}
	return int(n), true
}
