package engine

import (
	"errors"
	"fmt"
	"strings"
)

// BatteryPolicy selects how the battery bank is sized
type BatteryPolicy string

const (
	// BatterySimple sizes the bank in amp-hours at the reference voltage, ignoring entry voltage
	BatterySimple BatteryPolicy = "simple"
	// BatteryTopology builds a series/parallel bank at the system voltage with depth of discharge
	BatteryTopology BatteryPolicy = "topology"
)

// SunHoursMode selects the effective sun-hours formula
type SunHoursMode string

const (
	SunHoursCurve SunHoursMode = "curve" // sum of the irradiance curve / 1000
	SunHoursFixed SunHoursMode = "fixed" // a conservative constant
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config carries the tunable constants of a sizing run
type Config struct {
	GridCostPerKWh   float64
	Currency         string
	LifetimeYears    float64
	ReferenceVoltage float64
	SystemVoltage    float64 // 0 derives the voltage from panel wattage
	BatteryPolicy    BatteryPolicy
	SunHoursMode     SunHoursMode
	FixedSunHours    float64
	DepthOfDischarge map[Tier]float64
}

// DefaultConfig returns the reference tariff, lifetime and battery settings
func DefaultConfig() Config {
	return Config{
		GridCostPerKWh:   0.83,
		Currency:         "PEN",
		LifetimeYears:    20,
		ReferenceVoltage: 12,
		BatteryPolicy:    BatteryTopology,
		SunHoursMode:     SunHoursFixed,
		FixedSunHours:    DefaultSunHours,
		DepthOfDischarge: map[Tier]float64{
			TierEconomy: 0.5,
			TierMid:     0.5,
			TierPremium: 0.9,
		},
	}
}

// DoD returns the depth of discharge for a tier, 1 when unset
func (c Config) DoD(t Tier) float64 {
	if d, ok := c.DepthOfDischarge[t]; ok && d > 0 {
		return d
	}
	return 1
}

// SunHours resolves effective sun-hours for the configured mode
func (c Config) SunHours(curve IrradianceCurve) float64 {
	if c.SunHoursMode == SunHoursCurve {
		return CurveSunHours(curve)
	}
	return c.FixedSunHours
}

// Validate checks that the configuration can drive a sizing run
func (c Config) Validate() error {
	switch c.BatteryPolicy {
	case BatterySimple, BatteryTopology:
	default:
		return fmt.Errorf("%w: unknown battery policy %q", ErrInvalidConfig, c.BatteryPolicy)
	}
	switch c.SunHoursMode {
	case SunHoursCurve, SunHoursFixed:
	default:
		return fmt.Errorf("%w: unknown sun-hours mode %q", ErrInvalidConfig, c.SunHoursMode)
	}
	if c.ReferenceVoltage <= 0 {
		return fmt.Errorf("%w: reference voltage must be positive", ErrInvalidConfig)
	}
	if c.LifetimeYears <= 0 {
		return fmt.Errorf("%w: lifetime must be positive", ErrInvalidConfig)
	}
	if c.GridCostPerKWh < 0 {
		return fmt.Errorf("%w: grid cost cannot be negative", ErrInvalidConfig)
	}
	for t, d := range c.DepthOfDischarge {
		if d <= 0 || d > 1 {
			return fmt.Errorf("%w: depth of discharge for %s must be in (0,1]", ErrInvalidConfig, t)
		}
	}
	return nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
