package engine

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func durationLoad(qty int, power, day, night float64) ApplianceLoad {
	return ApplianceLoad{Name: "load", Quantity: qty, PowerW: power, Enabled: true, Schedule: Durations(day, night)}
}

func intervalLoad(qty int, power float64, amStart, amEnd, pmStart, pmEnd int) ApplianceLoad {
	return ApplianceLoad{Name: "load", Quantity: qty, PowerW: power, Enabled: true, Schedule: Intervals(amStart, amEnd, pmStart, pmEnd)}
}

func TestReferenceCurve(t *testing.T) {
	curve := ReferenceCurve()
	require.Len(t, curve, 14)
	assert.Equal(t, 0.0, curve[6])
	assert.Equal(t, 1000.0, curve[12])
	assert.Equal(t, 0.0, curve[19])
	assert.InDelta(t, 7.0, CurveSunHours(curve), 1e-9)

	curve[12] = 0
	assert.Equal(t, 1000.0, ReferenceCurve()[12], "reference data must not be shared")
}

func TestSunHoursMode(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultSunHours, cfg.SunHours(ReferenceCurve()))

	cfg.SunHoursMode = SunHoursCurve
	assert.InDelta(t, 7.0, cfg.SunHours(ReferenceCurve()), 1e-9)
}

func TestAggregateDurationScenario(t *testing.T) {
	p := Aggregate([]ApplianceLoad{durationLoad(4, 10, 4, 2)}, ReferenceCurve())
	assert.Equal(t, 160.0, p.EnergyDayWh)
	assert.Equal(t, 80.0, p.EnergyNightWh)
	assert.Equal(t, 40.0, p.PeakDemandW)

	s := Size(p.EnergyDayWh, p.EnergyNightWh, 5, 12)
	assert.InDelta(t, 48.0, s.PanelWatts, 1e-9)

	item := SelectPanels([]CatalogEntry{{Name: "P1", Capacity: 50, Price: 60}}, s.PanelWatts)
	assert.Equal(t, 1, item.Quantity)
	assert.Equal(t, 60.0, item.Price)
	assert.Equal(t, "1 x P1", item.Description)
}

func TestAggregateIntervals(t *testing.T) {
	loads := []ApplianceLoad{
		// 5 and 6 are night (missing / zero irradiance), 7 is day; 18 day, 19 and 20 night
		intervalLoad(2, 100, 5, 8, 18, 21),
		intervalLoad(1, 50, 7, 10, 0, 0),
		durationLoad(1, 30, 2, 0),
	}
	p := Aggregate(loads, ReferenceCurve())

	assert.Equal(t, 400.0+150.0+60.0, p.EnergyDayWh)
	assert.Equal(t, 800.0, p.EnergyNightWh)
	assert.Equal(t, 250.0, p.Hourly[7])
	assert.Equal(t, 200.0, p.Hourly[20])
	assert.Equal(t, 0.0, p.Hourly[12])
	assert.Equal(t, 280.0, p.PeakDemandW)
}

func TestAggregateEdgeCases(t *testing.T) {
	tests := []struct {
		name  string
		loads []ApplianceLoad
		want  LoadProfile
	}{
		{
			name:  "end before start is unused",
			loads: []ApplianceLoad{intervalLoad(1, 100, 10, 8, 20, 20)},
		},
		{
			name:  "zero quantity contributes nothing",
			loads: []ApplianceLoad{intervalLoad(0, 100, 8, 12, 0, 0), durationLoad(0, 100, 3, 3)},
		},
		{
			name: "disabled load is skipped",
			loads: []ApplianceLoad{{
				Quantity: 1, PowerW: 100, Enabled: false, Schedule: Durations(5, 5),
			}},
		},
		{
			name:  "missing schedule payload is skipped",
			loads: []ApplianceLoad{{Quantity: 1, PowerW: 100, Enabled: true, Schedule: Schedule{Kind: ScheduleInterval}}},
		},
		{
			name:  "unused duration load does not raise peak",
			loads: []ApplianceLoad{durationLoad(1, 500, 0, 0)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Aggregate(tt.loads, ReferenceCurve()))
		})
	}
}

func TestAggregateConservesEnergy(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	curve := ReferenceCurve()

	for i := 0; i < 200; i++ {
		var loads []ApplianceLoad
		expected := 0.0
		for j := 0; j < 1+rng.Intn(6); j++ {
			var l ApplianceLoad
			if rng.Intn(2) == 0 {
				l = intervalLoad(rng.Intn(5), float64(rng.Intn(500)), rng.Intn(24), rng.Intn(24), rng.Intn(24), rng.Intn(24))
			} else {
				l = durationLoad(rng.Intn(5), float64(rng.Intn(500)), rng.Float64()*12, rng.Float64()*12)
			}
			loads = append(loads, l)
			expected += l.RatedPowerW() * UsedHours(l.Schedule)
		}

		p := Aggregate(loads, curve)
		assert.InDelta(t, expected, p.TotalWh(), 1e-6)
	}
}

func TestSize(t *testing.T) {
	assert.Equal(t, SizingResult{}, Size(100, 50, 0, 0))
	assert.Equal(t, SizingResult{PanelWatts: 30, BatteryAh: 5}, Size(90, 60, 5, 12))

	// monotone in energy, antitone in sun-hours
	prev := 0.0
	for e := 0.0; e <= 5000; e += 250 {
		w := Size(e, e/2, 4.5, 12).PanelWatts
		assert.GreaterOrEqual(t, w, prev)
		prev = w
	}
	prev = math.Inf(1)
	for h := 0.5; h <= 10; h += 0.5 {
		w := Size(1000, 500, h, 12).PanelWatts
		assert.LessOrEqual(t, w, prev)
		prev = w
	}
}

func TestSystemVoltage(t *testing.T) {
	assert.Equal(t, 12.0, SystemVoltage(0))
	assert.Equal(t, 12.0, SystemVoltage(1500))
	assert.Equal(t, 24.0, SystemVoltage(1500.1))
	assert.Equal(t, 24.0, SystemVoltage(5000))
	assert.Equal(t, 48.0, SystemVoltage(5001))
}

func TestSelectBatteriesSimpleScenario(t *testing.T) {
	item := SelectBatteriesSimple([]CatalogEntry{
		{Name: "B1", Capacity: 40, Price: 40},
		{Name: "B2", Capacity: 60, Price: 55},
	}, 100)
	assert.Equal(t, "B2", item.Model)
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, 110.0, item.Price)
}

func TestSelectPanelsGlobalMinimum(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		watts := rng.Float64() * 4000
		var entries []CatalogEntry
		for j := 0; j < 1+rng.Intn(8); j++ {
			entries = append(entries, CatalogEntry{
				Name:     "P",
				Capacity: float64(rng.Intn(500)),
				Price:    float64(rng.Intn(400)),
			})
		}

		item := SelectPanels(entries, watts)
		eligible := false
		for _, e := range entries {
			if e.Capacity <= 0 {
				continue
			}
			eligible = true
			assert.LessOrEqual(t, item.Price, math.Ceil(watts/e.Capacity)*e.Price)
		}
		assert.Equal(t, !eligible, item.NoData)
	}
}

func TestSelectSkipsUnitCountsThatOverflow(t *testing.T) {
	item := SelectPanels([]CatalogEntry{
		{Name: "Real", Capacity: 100, Price: 100},
		{Name: "Tiny", Capacity: 1e-300, Price: 1},
	}, 500)
	assert.Equal(t, "5 x Real", item.Description)
	assert.Equal(t, 500.0, item.Price)

	bank := SelectBatteryBank([]CatalogEntry{
		{Name: "Tiny", Capacity: 1e-300, Voltage: 12, Price: 1},
		{Name: "Real", Capacity: 100, Voltage: 12, Price: 100},
	}, 150, 12)
	assert.Equal(t, "2 x Real (1S2P)", bank.Description)

	assert.True(t, SelectPanels([]CatalogEntry{{Name: "Tiny", Capacity: 1e-300, Price: 1}}, 500).NoData)
}

func TestSelectTiesKeepInputOrder(t *testing.T) {
	item := SelectPanels([]CatalogEntry{
		{Name: "First", Capacity: 100, Price: 50},
		{Name: "Second", Capacity: 200, Price: 100},
	}, 200)
	assert.Equal(t, "First", item.Model)
	assert.Equal(t, 100.0, item.Price)
}

func TestSelectBatteryBank(t *testing.T) {
	entries := []CatalogEntry{
		{Name: "B12", Capacity: 100, Voltage: 12, Price: 100},
		{Name: "B6", Capacity: 200, Voltage: 6, Price: 90},
		{Name: "B5", Capacity: 100, Voltage: 5, Price: 1},
		{Name: "B48", Capacity: 100, Voltage: 48, Price: 1},
	}
	required := RequiredBankAh(2400, 24, 0.5)
	require.Equal(t, 200.0, required)

	item := SelectBatteryBank(entries, required, 24)
	assert.Equal(t, "B6", item.Model)
	assert.Equal(t, 4, item.Series)
	assert.Equal(t, 1, item.Parallel)
	assert.Equal(t, 4, item.Quantity)
	assert.Equal(t, 360.0, item.Price)
	assert.Equal(t, "4 x B6 (4S1P)", item.Description)
	assert.Equal(t, 24.0, float64(item.Series)*6)

	none := SelectBatteryBank([]CatalogEntry{{Name: "B5", Capacity: 100, Voltage: 5, Price: 1}}, required, 24)
	assert.True(t, none.NoData)
	assert.Equal(t, NoData, none.Description)
}

func TestSelectInverter(t *testing.T) {
	entries := []CatalogEntry{
		{Name: "Inv1", Capacity: 500, Price: 100},
		{Name: "Inv2", Capacity: 1000, Price: 150},
		{Name: "Inv3", Capacity: 2000, Price: 120},
	}
	item := SelectInverter(entries, 800)
	assert.Equal(t, "1 x Inv3", item.Description)
	assert.Equal(t, 120.0, item.Price)

	item = SelectInverter(entries, 5000)
	assert.True(t, item.NoData)
	assert.Equal(t, 0.0, item.Price)
}

func TestSelectController(t *testing.T) {
	item := SelectController([]CatalogEntry{
		{Name: "Broken", Capacity: 0, Price: 1},
		{Name: "C30", Capacity: 30, Price: 80},
		{Name: "C20", Capacity: 20, Price: 60},
	})
	assert.Equal(t, "C20", item.Model)
	assert.Equal(t, 60.0, item.Price)
}

func sampleCatalog() Catalog {
	c := Catalog{}
	for i, tier := range Tiers {
		k := float64(i + 1)
		c.Add(FamilyPanels, tier, CatalogEntry{Name: "Panel" + string(tier), Capacity: 100 * k, Price: 100 * k})
		c.Add(FamilyInverters, tier, CatalogEntry{Name: "Inv" + string(tier), Capacity: 1000 * k, Price: 180 * k})
		c.Add(FamilyBatteries, tier, CatalogEntry{Name: "Bat" + string(tier), Capacity: 100, Voltage: 12, Price: 160 * k})
		c.Add(FamilyControllers, tier, CatalogEntry{Name: "Ctrl" + string(tier), Capacity: 20 * k, Price: 50 * k})
	}
	return c
}

func TestSelectKitSentinels(t *testing.T) {
	kits := SelectKit(Catalog{}, KitRequest{PanelWatts: 100, BatteryAh: 10, NightWh: 100, PeakDemandW: 50}, DefaultConfig())
	require.Len(t, kits, len(Tiers))
	for _, tier := range Tiers {
		kit := kits[tier]
		assert.Equal(t, Families, kit.Missing())
		assert.Equal(t, 0.0, kit.SystemCost())
	}
}

func TestSelectKitIdempotent(t *testing.T) {
	req := KitRequest{PanelWatts: 1800, BatteryAh: 150, NightWh: 1800, PeakDemandW: 900}
	for _, policy := range []BatteryPolicy{BatterySimple, BatteryTopology} {
		cfg := DefaultConfig()
		cfg.BatteryPolicy = policy
		first := SelectKit(sampleCatalog(), req, cfg)
		second := SelectKit(sampleCatalog(), req, cfg)
		assert.Equal(t, first, second)

		a, err := json.Marshal(first)
		require.NoError(t, err)
		b, err := json.Marshal(second)
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b))
	}
}

func TestSelectKitDepthOfDischargePerTier(t *testing.T) {
	// 1800 W array -> 24 V bank; economy needs 1500/(24*0.5)=125 Ah, premium 1500/(24*0.9)=69.4 Ah
	req := KitRequest{PanelWatts: 1800, NightWh: 1500, PeakDemandW: 100}
	kits := SelectKit(sampleCatalog(), req, DefaultConfig())

	assert.Equal(t, "4 x BatEconomy (2S2P)", kits[TierEconomy][FamilyBatteries].Description)
	assert.Equal(t, "2 x BatPremium (2S1P)", kits[TierPremium][FamilyBatteries].Description)

	cfg := DefaultConfig()
	cfg.SystemVoltage = 48
	kits = SelectKit(sampleCatalog(), req, cfg)
	assert.Equal(t, 4, kits[TierMid][FamilyBatteries].Series)
}

func TestAmortize(t *testing.T) {
	kit := Kit{
		FamilyPanels:    {Price: 600},
		FamilyBatteries: {Price: 400},
		FamilyInverters: {Description: NoData, NoData: true},
	}
	s := Amortize(kit, 2, 0.5, 10)
	assert.Equal(t, 1000.0, s.SystemCost)
	assert.Equal(t, 365.0, s.AnnualGridCost)
	assert.Equal(t, 1000.0/365.0, s.PaybackYears)
	assert.InDelta(t, 1000.0/7300.0, s.CostPerKWh, 1e-12)
	assert.Equal(t, 2650.0, s.LifetimeSavings)

	zero := Amortize(kit, 0, 0.5, 10)
	assert.True(t, math.IsInf(zero.PaybackYears, 1))
	assert.True(t, math.IsInf(zero.CostPerKWh, 1))
	assert.Equal(t, -1000.0, zero.LifetimeSavings)

	free := Amortize(kit, 2, 0, 10)
	assert.True(t, math.IsInf(free.PaybackYears, 1))
	assert.False(t, math.IsInf(free.CostPerKWh, 0))
}

func TestFinancialSummaryJSON(t *testing.T) {
	b, err := json.Marshal(Amortize(Kit{}, 0, 0.83, 20))
	require.NoError(t, err)
	assert.JSONEq(t, `{"system_cost":0,"annual_grid_cost":0,"cost_per_kwh":null,"payback_years":null,"lifetime_savings":0}`, string(b))
}

func TestCumulativeCosts(t *testing.T) {
	points := CumulativeCosts(1000, 2, 0.5, 3)
	require.Len(t, points, 4)
	assert.Equal(t, CostPoint{Year: 0}, points[0])
	assert.Equal(t, CostPoint{Year: 3, Grid: 1095, Solar: 1000}, points[3])
}

func TestRun(t *testing.T) {
	loads := []ApplianceLoad{
		intervalLoad(4, 10, 7, 11, 18, 22),
		durationLoad(1, 150, 6, 6),
	}
	cfg := DefaultConfig()
	report := Run(loads, sampleCatalog(), ReferenceCurve(), cfg)

	// interval: 7-10 and 18 day (5h), 19-21 night (3h) at 40 W
	assert.Equal(t, 200.0+900.0, report.Profile.EnergyDayWh)
	assert.Equal(t, 120.0+900.0, report.Profile.EnergyNightWh)
	assert.Equal(t, 190.0, report.Profile.PeakDemandW)
	assert.Equal(t, DefaultSunHours, report.SunHours)
	assert.InDelta(t, 2120.0/5, report.Sizing.PanelWatts, 1e-9)
	assert.InDelta(t, 1020.0/12, report.Sizing.BatteryAh, 1e-9)
	assert.Equal(t, 12.0, report.SystemVoltage)
	assert.InDelta(t, 2.12, report.DailyKWh, 1e-9)
	require.Len(t, report.Tiers, 3)

	eco := report.Tiers[0]
	assert.Equal(t, TierEconomy, eco.Tier)
	assert.Empty(t, eco.Missing)
	assert.Equal(t, "5 x PanelEconomy", eco.Kit[FamilyPanels].Description)
	// 1020 Wh / (12 V * 0.5) = 170 Ah -> 2 strings of one 12 V battery
	assert.Equal(t, "2 x BatEconomy (1S2P)", eco.Kit[FamilyBatteries].Description)
	assert.Equal(t, 500.0+180+320+50, eco.Financial.SystemCost)
}

func TestParseNames(t *testing.T) {
	tier, ok := ParseTier(" barato ")
	assert.True(t, ok)
	assert.Equal(t, TierEconomy, tier)
	_, ok = ParseTier("luxury")
	assert.False(t, ok)

	fam, ok := ParseFamily("Baterias")
	assert.True(t, ok)
	assert.Equal(t, FamilyBatteries, fam)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.BatteryPolicy = "magic"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.DepthOfDischarge[TierMid] = 1.5
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}
