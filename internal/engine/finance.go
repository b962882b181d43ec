package engine

import (
	"encoding/json"
	"math"
)

// SystemCost sums the price of every line item. Sentinels price at zero.
func (k Kit) SystemCost() float64 {
	total := 0.0
	for _, f := range Families {
		total += k[f].Price
	}
	return total
}

// Amortize compares the kit cost against buying the same energy from the
// grid. Degenerate inputs resolve to +Inf instead of failing.
func Amortize(kit Kit, dailyKWh, gridCostPerKWh, lifetimeYears float64) FinancialSummary {
	s := FinancialSummary{
		SystemCost:     kit.SystemCost(),
		AnnualGridCost: dailyKWh * gridCostPerKWh * 365,
	}

	if s.AnnualGridCost != 0 {
		s.PaybackYears = s.SystemCost / s.AnnualGridCost
	} else {
		s.PaybackYears = math.Inf(1)
	}

	if dailyKWh != 0 && lifetimeYears != 0 {
		s.CostPerKWh = s.SystemCost / (dailyKWh * 365 * lifetimeYears)
	} else {
		s.CostPerKWh = math.Inf(1)
	}

	s.LifetimeSavings = s.AnnualGridCost*lifetimeYears - s.SystemCost
	return s
}

// CostPoint is the cumulative spend of both options after a number of years
type CostPoint struct {
	Year  int     `json:"year"`
	Grid  float64 `json:"grid"`
	Solar float64 `json:"solar"`
}

// CumulativeCosts charts cumulative grid spend against the one-off system
// cost for years 0 through lifetimeYears
func CumulativeCosts(systemCost, dailyKWh, gridCostPerKWh float64, lifetimeYears int) []CostPoint {
	if lifetimeYears < 0 {
		lifetimeYears = 0
	}
	points := make([]CostPoint, 0, lifetimeYears+1)
	annual := dailyKWh * gridCostPerKWh * 365
	for y := 0; y <= lifetimeYears; y++ {
		p := CostPoint{Year: y, Grid: annual * float64(y)}
		if y > 0 {
			p.Solar = systemCost
		}
		points = append(points, p)
	}
	return points
}

// MarshalJSON encodes infinite ratios as null since JSON has no infinity
func (s FinancialSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		SystemCost      float64  `json:"system_cost"`
		AnnualGridCost  float64  `json:"annual_grid_cost"`
		CostPerKWh      *float64 `json:"cost_per_kwh"`
		PaybackYears    *float64 `json:"payback_years"`
		LifetimeSavings float64  `json:"lifetime_savings"`
	}{
		SystemCost:      s.SystemCost,
		AnnualGridCost:  s.AnnualGridCost,
		CostPerKWh:      finite(s.CostPerKWh),
		PaybackYears:    finite(s.PaybackYears),
		LifetimeSavings: s.LifetimeSavings,
	})
}

func finite(f float64) *float64 {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil
	}
	return &f
}
