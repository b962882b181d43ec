package engine

// Tier is a pricing category of the catalog
type Tier string

const (
	TierEconomy Tier = "Economy"
	TierMid     Tier = "Mid"
	TierPremium Tier = "Premium"
)

// Tiers lists every tier in presentation order
var Tiers = []Tier{TierEconomy, TierMid, TierPremium}

// Family is a component family of the catalog
type Family string

const (
	FamilyPanels      Family = "Panels"
	FamilyInverters   Family = "Inverters"
	FamilyBatteries   Family = "Batteries"
	FamilyControllers Family = "Controllers"
)

// Families lists every component family in presentation order
var Families = []Family{FamilyPanels, FamilyInverters, FamilyBatteries, FamilyControllers}

// ParseTier matches a tier name case-insensitively, accepting the legacy
// Spanish workbook names as well
func ParseTier(s string) (Tier, bool) {
	switch normalize(s) {
	case "economy", "barato":
		return TierEconomy, true
	case "mid", "intermedio":
		return TierMid, true
	case "premium":
		return TierPremium, true
	}
	return "", false
}

// ParseFamily matches a family name case-insensitively, accepting the legacy
// Spanish sheet names as well
func ParseFamily(s string) (Family, bool) {
	switch normalize(s) {
	case "panels", "paneles":
		return FamilyPanels, true
	case "inverters", "inversores":
		return FamilyInverters, true
	case "batteries", "baterias":
		return FamilyBatteries, true
	case "controllers", "controladores":
		return FamilyControllers, true
	}
	return "", false
}

// ScheduleKind tags which schedule representation a load carries
type ScheduleKind string

const (
	ScheduleInterval ScheduleKind = "interval" // absolute AM/PM start-end hours
	ScheduleDuration ScheduleKind = "duration" // hours of daytime and nighttime use
)

// IntervalSchedule gives two usage intervals in hours of the day [0,24).
// An interval whose end is not after its start is unused.
type IntervalSchedule struct {
	AMStart int `json:"am_start" yaml:"am_start"`
	AMEnd   int `json:"am_end" yaml:"am_end"`
	PMStart int `json:"pm_start" yaml:"pm_start"`
	PMEnd   int `json:"pm_end" yaml:"pm_end"`
}

// DurationSchedule gives total hours of use without an absolute schedule
type DurationSchedule struct {
	DayHours   float64 `json:"day_hours" yaml:"day_hours"`
	NightHours float64 `json:"night_hours" yaml:"night_hours"`
}

// Schedule is a tagged union of the two schedule forms
type Schedule struct {
	Kind     ScheduleKind      `json:"kind" yaml:"kind"`
	Interval *IntervalSchedule `json:"interval,omitempty" yaml:"interval,omitempty"`
	Duration *DurationSchedule `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// Intervals returns a schedule in interval form
func Intervals(amStart, amEnd, pmStart, pmEnd int) Schedule {
	return Schedule{
		Kind:     ScheduleInterval,
		Interval: &IntervalSchedule{AMStart: amStart, AMEnd: amEnd, PMStart: pmStart, PMEnd: pmEnd},
	}
}

// Durations returns a schedule in duration form
func Durations(dayHours, nightHours float64) Schedule {
	return Schedule{
		Kind:     ScheduleDuration,
		Duration: &DurationSchedule{DayHours: dayHours, NightHours: nightHours},
	}
}

// ApplianceLoad is one entry of the load list
type ApplianceLoad struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Quantity int      `json:"quantity" yaml:"quantity"`
	PowerW   float64  `json:"power_w" yaml:"power_w"`
	Enabled  bool     `json:"enabled" yaml:"enabled"`
	Schedule Schedule `json:"schedule" yaml:"schedule"`
}

// RatedPowerW is the combined power of all units of the load
func (l ApplianceLoad) RatedPowerW() float64 {
	return float64(l.Quantity) * l.PowerW
}

// IrradianceCurve maps hour of day to solar irradiance in W/m²
type IrradianceCurve map[int]float64

// CatalogEntry is one purchasable option. Capacity is watts for panels and
// inverters, amp-hours for batteries and amps for controllers. Voltage is
// only meaningful for batteries.
type CatalogEntry struct {
	Name     string  `json:"name" yaml:"name"`
	Capacity float64 `json:"capacity" yaml:"capacity"`
	Voltage  float64 `json:"voltage,omitempty" yaml:"voltage,omitempty"`
	Price    float64 `json:"price" yaml:"price"`
}

// Catalog holds the ordered options per family and tier
type Catalog map[Family]map[Tier][]CatalogEntry

// Add appends an entry to the family/tier list, keeping input order
func (c Catalog) Add(f Family, t Tier, e CatalogEntry) {
	if c[f] == nil {
		c[f] = make(map[Tier][]CatalogEntry)
	}
	c[f][t] = append(c[f][t], e)
}

// Entries returns the options for a family and tier
func (c Catalog) Entries(f Family, t Tier) []CatalogEntry {
	return c[f][t]
}

// LoadProfile is the aggregated demand of a load list
type LoadProfile struct {
	EnergyDayWh   float64     `json:"energy_day_wh"`
	EnergyNightWh float64     `json:"energy_night_wh"`
	PeakDemandW   float64     `json:"peak_demand_w"`
	Hourly        [24]float64 `json:"hourly_w"`
}

// TotalWh is the total daily energy
func (p LoadProfile) TotalWh() float64 {
	return p.EnergyDayWh + p.EnergyNightWh
}

// DailyKWh is the total daily energy in kWh
func (p LoadProfile) DailyKWh() float64 {
	return p.TotalWh() / 1000
}

// SizingResult holds the required array and bank size
type SizingResult struct {
	PanelWatts float64 `json:"panel_watts"`
	BatteryAh  float64 `json:"battery_ah"`
}

// KitRequest carries everything the optimizer needs from sizing
type KitRequest struct {
	PanelWatts  float64
	BatteryAh   float64 // at the reference voltage, used by the simple policy
	NightWh     float64 // used by the topology policy
	PeakDemandW float64
}

// NoData is the description of a sentinel line item
const NoData = "no data"

// KitLineItem is the chosen option for one family
type KitLineItem struct {
	Family      Family  `json:"family"`
	Description string  `json:"description"`
	Model       string  `json:"model,omitempty"`
	Quantity    int     `json:"quantity"`
	Series      int     `json:"series,omitempty"`
	Parallel    int     `json:"parallel,omitempty"`
	Price       float64 `json:"price"`
	NoData      bool    `json:"no_data,omitempty"`
}

// Kit maps each family to its chosen line item
type Kit map[Family]KitLineItem

// Missing lists the families that resolved to a sentinel
func (k Kit) Missing() []Family {
	var missing []Family
	for _, f := range Families {
		if item, ok := k[f]; ok && item.NoData {
			missing = append(missing, f)
		}
	}
	return missing
}

// FinancialSummary compares a kit against grid electricity
type FinancialSummary struct {
	SystemCost      float64 `json:"system_cost"`
	AnnualGridCost  float64 `json:"annual_grid_cost"`
	CostPerKWh      float64 `json:"cost_per_kwh"`
	PaybackYears    float64 `json:"payback_years"`
	LifetimeSavings float64 `json:"lifetime_savings"`
}
