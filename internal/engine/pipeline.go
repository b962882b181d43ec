package engine

// TierReport is the kit and financial summary of one tier
type TierReport struct {
	Tier      Tier             `json:"tier"`
	Kit       Kit              `json:"kit"`
	Financial FinancialSummary `json:"financial"`
	Missing   []Family         `json:"missing,omitempty"`
}

// Report is the full output of a sizing run
type Report struct {
	Profile       LoadProfile  `json:"profile"`
	SunHours      float64      `json:"sun_hours"`
	Sizing        SizingResult `json:"sizing"`
	SystemVoltage float64      `json:"system_voltage,omitempty"`
	DailyKWh      float64      `json:"daily_kwh"`
	Currency      string       `json:"currency"`
	Tiers         []TierReport `json:"tiers"`
}

// Run aggregates the loads, sizes the system, selects a kit per tier and
// amortizes each kit against the grid tariff
func Run(loads []ApplianceLoad, catalog Catalog, curve IrradianceCurve, cfg Config) Report {
	profile := Aggregate(loads, curve)
	sunHours := cfg.SunHours(curve)
	sizing := Size(profile.EnergyDayWh, profile.EnergyNightWh, sunHours, cfg.ReferenceVoltage)

	report := Report{
		Profile:  profile,
		SunHours: sunHours,
		Sizing:   sizing,
		DailyKWh: profile.DailyKWh(),
		Currency: cfg.Currency,
	}
	if cfg.BatteryPolicy == BatteryTopology {
		report.SystemVoltage = cfg.SystemVoltage
		if report.SystemVoltage <= 0 {
			report.SystemVoltage = SystemVoltage(sizing.PanelWatts)
		}
	}

	kits := SelectKit(catalog, KitRequest{
		PanelWatts:  sizing.PanelWatts,
		BatteryAh:   sizing.BatteryAh,
		NightWh:     profile.EnergyNightWh,
		PeakDemandW: profile.PeakDemandW,
	}, cfg)

	for _, t := range Tiers {
		kit := kits[t]
		report.Tiers = append(report.Tiers, TierReport{
			Tier:      t,
			Kit:       kit,
			Financial: Amortize(kit, report.DailyKWh, cfg.GridCostPerKWh, cfg.LifetimeYears),
			Missing:   kit.Missing(),
		})
	}

	return report
}
