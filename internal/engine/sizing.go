package engine

// Size converts daily energy into the required panel wattage and battery
// capacity. The battery only covers the night deficit, expressed at the
// reference voltage.
func Size(energyDayWh, energyNightWh, sunHours, referenceVoltage float64) SizingResult {
	var r SizingResult
	if sunHours != 0 {
		r.PanelWatts = (energyDayWh + energyNightWh) / sunHours
	}
	if referenceVoltage != 0 {
		r.BatteryAh = energyNightWh / referenceVoltage
	}
	return r
}

// SystemVoltage picks the bank voltage for an array size
func SystemVoltage(panelWatts float64) float64 {
	switch {
	case panelWatts <= 1500:
		return 12
	case panelWatts <= 5000:
		return 24
	default:
		return 48
	}
}

// RequiredBankAh is the bank capacity at a system voltage that covers the
// night energy without discharging beyond dod
func RequiredBankAh(nightWh, systemVoltage, dod float64) float64 {
	if systemVoltage <= 0 || dod <= 0 {
		return 0
	}
	return nightWh / (systemVoltage * dod)
}
