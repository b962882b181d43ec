package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/awaistahir/offgrid/internal/engine"
	"github.com/spf13/viper"
)

// Keys understood in the config file and as OFFGRID_* environment variables
const (
	KeyGridCost         = "grid_cost_per_kwh"
	KeyCurrency         = "currency"
	KeyLifetimeYears    = "lifetime_years"
	KeyReferenceVoltage = "reference_voltage"
	KeySystemVoltage    = "system_voltage"
	KeyBatteryPolicy    = "battery_policy"
	KeySunHoursMode     = "sun_hours_mode"
	KeyFixedSunHours    = "fixed_sun_hours"
	KeyDoDEconomy       = "dod.economy"
	KeyDoDMid           = "dod.mid"
	KeyDoDPremium       = "dod.premium"
	KeyLatitude         = "site.latitude"
	KeyLongitude        = "site.longitude"
)

// Dir returns the default directory holding config.yaml and the database
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".offgrid"
	}
	return filepath.Join(home, ".offgrid")
}

// New returns a viper instance with defaults, env binding and, when cfgFile
// is empty, the default config search path
func New(cfgFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(Dir())
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("offgrid")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Read loads the config file if one exists. A missing default file is not
// an error; a missing explicit file is.
func Read(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// SetDefaults registers the reference values for every key
func SetDefaults(v *viper.Viper) {
	d := engine.DefaultConfig()
	v.SetDefault(KeyGridCost, d.GridCostPerKWh)
	v.SetDefault(KeyCurrency, d.Currency)
	v.SetDefault(KeyLifetimeYears, d.LifetimeYears)
	v.SetDefault(KeyReferenceVoltage, d.ReferenceVoltage)
	v.SetDefault(KeySystemVoltage, d.SystemVoltage)
	v.SetDefault(KeyBatteryPolicy, string(d.BatteryPolicy))
	v.SetDefault(KeySunHoursMode, string(d.SunHoursMode))
	v.SetDefault(KeyFixedSunHours, d.FixedSunHours)
	v.SetDefault(KeyDoDEconomy, d.DepthOfDischarge[engine.TierEconomy])
	v.SetDefault(KeyDoDMid, d.DepthOfDischarge[engine.TierMid])
	v.SetDefault(KeyDoDPremium, d.DepthOfDischarge[engine.TierPremium])
	v.SetDefault(KeyLatitude, -13.5319)
	v.SetDefault(KeyLongitude, -71.9675)
}

// Engine builds and validates the engine configuration
func Engine(v *viper.Viper) (engine.Config, error) {
	cfg := engine.Config{
		GridCostPerKWh:   v.GetFloat64(KeyGridCost),
		Currency:         v.GetString(KeyCurrency),
		LifetimeYears:    v.GetFloat64(KeyLifetimeYears),
		ReferenceVoltage: v.GetFloat64(KeyReferenceVoltage),
		SystemVoltage:    v.GetFloat64(KeySystemVoltage),
		BatteryPolicy:    engine.BatteryPolicy(strings.ToLower(v.GetString(KeyBatteryPolicy))),
		SunHoursMode:     engine.SunHoursMode(strings.ToLower(v.GetString(KeySunHoursMode))),
		FixedSunHours:    v.GetFloat64(KeyFixedSunHours),
		DepthOfDischarge: map[engine.Tier]float64{
			engine.TierEconomy: v.GetFloat64(KeyDoDEconomy),
			engine.TierMid:     v.GetFloat64(KeyDoDMid),
			engine.TierPremium: v.GetFloat64(KeyDoDPremium),
		},
	}
	if err := cfg.Validate(); err != nil {
		return engine.Config{}, err
	}
	return cfg, nil
}

// Site returns the configured latitude and longitude
func Site(v *viper.Viper) (lat, lon float64) {
	return v.GetFloat64(KeyLatitude), v.GetFloat64(KeyLongitude)
}
