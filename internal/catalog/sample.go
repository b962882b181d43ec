package catalog

import "github.com/awaistahir/offgrid/internal/engine"

// SampleCatalog is a small priced catalog with one option per family and tier,
// plus a few alternates so the optimizer has something to choose between
func SampleCatalog() engine.Catalog {
	c := engine.Catalog{}

	c.Add(engine.FamilyPanels, engine.TierEconomy, engine.CatalogEntry{Name: "PanelCheap 100W", Capacity: 100, Price: 100})
	c.Add(engine.FamilyPanels, engine.TierEconomy, engine.CatalogEntry{Name: "PanelCheap 330W", Capacity: 330, Price: 290})
	c.Add(engine.FamilyPanels, engine.TierMid, engine.CatalogEntry{Name: "PanelMid 150W", Capacity: 150, Price: 150})
	c.Add(engine.FamilyPanels, engine.TierMid, engine.CatalogEntry{Name: "PanelMid 450W", Capacity: 450, Price: 420})
	c.Add(engine.FamilyPanels, engine.TierPremium, engine.CatalogEntry{Name: "PanelPremium 200W", Capacity: 200, Price: 200})
	c.Add(engine.FamilyPanels, engine.TierPremium, engine.CatalogEntry{Name: "PanelPremium 550W", Capacity: 550, Price: 610})

	c.Add(engine.FamilyInverters, engine.TierEconomy, engine.CatalogEntry{Name: "InvCheap 1000W", Capacity: 1000, Price: 180})
	c.Add(engine.FamilyInverters, engine.TierEconomy, engine.CatalogEntry{Name: "InvCheap 3000W", Capacity: 3000, Price: 420})
	c.Add(engine.FamilyInverters, engine.TierMid, engine.CatalogEntry{Name: "InvMid 1500W", Capacity: 1500, Price: 250})
	c.Add(engine.FamilyInverters, engine.TierMid, engine.CatalogEntry{Name: "InvMid 3000W", Capacity: 3000, Price: 540})
	c.Add(engine.FamilyInverters, engine.TierPremium, engine.CatalogEntry{Name: "InvPremium 2000W", Capacity: 2000, Price: 350})
	c.Add(engine.FamilyInverters, engine.TierPremium, engine.CatalogEntry{Name: "InvPremium 5000W", Capacity: 5000, Price: 900})

	c.Add(engine.FamilyBatteries, engine.TierEconomy, engine.CatalogEntry{Name: "BatCheap 100Ah", Capacity: 100, Voltage: 12, Price: 160})
	c.Add(engine.FamilyBatteries, engine.TierEconomy, engine.CatalogEntry{Name: "BatCheap 200Ah", Capacity: 200, Voltage: 6, Price: 150})
	c.Add(engine.FamilyBatteries, engine.TierMid, engine.CatalogEntry{Name: "BatMid 100Ah", Capacity: 100, Voltage: 12, Price: 240})
	c.Add(engine.FamilyBatteries, engine.TierPremium, engine.CatalogEntry{Name: "BatPremium 100Ah", Capacity: 100, Voltage: 12, Price: 400})
	c.Add(engine.FamilyBatteries, engine.TierPremium, engine.CatalogEntry{Name: "BatPremium 200Ah", Capacity: 200, Voltage: 24, Price: 1400})

	c.Add(engine.FamilyControllers, engine.TierEconomy, engine.CatalogEntry{Name: "CtrlCheap 20A", Capacity: 20, Price: 50})
	c.Add(engine.FamilyControllers, engine.TierMid, engine.CatalogEntry{Name: "CtrlMid 30A", Capacity: 30, Price: 100})
	c.Add(engine.FamilyControllers, engine.TierPremium, engine.CatalogEntry{Name: "CtrlPremium 40A", Capacity: 40, Price: 150})

	return c
}

// SampleLoads is a household load list mixing both schedule forms
func SampleLoads() []engine.ApplianceLoad {
	return assignIDs([]engine.ApplianceLoad{
		{Name: "LED bulb", Quantity: 6, PowerW: 10, Enabled: true, Schedule: engine.Intervals(5, 7, 18, 23)},
		{Name: "Fridge", Quantity: 1, PowerW: 150, Enabled: true, Schedule: engine.Durations(8, 8)},
		{Name: "TV", Quantity: 1, PowerW: 80, Enabled: true, Schedule: engine.Intervals(0, 0, 19, 22)},
		{Name: "Laptop", Quantity: 2, PowerW: 65, Enabled: true, Schedule: engine.Durations(4, 2)},
		{Name: "Water pump", Quantity: 1, PowerW: 750, Enabled: false, Schedule: engine.Intervals(10, 11, 0, 0)},
	})
}
