package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/awaistahir/offgrid/internal/catalog"
	"github.com/awaistahir/offgrid/internal/config"
	"github.com/awaistahir/offgrid/internal/engine"
	"github.com/awaistahir/offgrid/internal/tariff"
	"github.com/awaistahir/offgrid/internal/weather"
	"github.com/spf13/cobra"
)

func sizeCmd() *cobra.Command {
	var curveSource string
	var octopusRegion string
	var octopusProduct string
	var asJSON bool
	var xlsxPath string

	cmd := &cobra.Command{
		Use:   "size",
		Short: "Size the system and select a kit for every tier",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Engine(v)
			if err != nil {
				return err
			}

			curve, err := irradiance(ctx, curveSource)
			if err != nil {
				return err
			}

			if octopusRegion != "" {
				cost, err := gridCost(ctx, octopusProduct, octopusRegion)
				if err != nil {
					return fmt.Errorf("fetching tariff: %w", err)
				}
				cfg.GridCostPerKWh = cost
				cfg.Currency = "GBP"
			}

			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			loads, err := st.GetLoads(ctx)
			if err != nil {
				return err
			}
			if len(loads) == 0 {
				return fmt.Errorf("no loads configured (use 'offgrid load add' or 'offgrid init')")
			}
			c, err := st.GetCatalog(ctx)
			if err != nil {
				return err
			}

			report := engine.Run(loads, c, curve, cfg)
			logger.Debug("sizing run",
				slog.Int("loads", len(loads)),
				slog.Float64("sunHours", report.SunHours),
				slog.Float64("gridCost", cfg.GridCostPerKWh),
			)

			if xlsxPath != "" {
				if err := writeReportWorkbook(xlsxPath, report); err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", xlsxPath)
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(report)
			return nil
		},
	}

	cmd.Flags().StringVar(&curveSource, "curve", "reference", "Irradiance curve: reference or site (last year's Open-Meteo archive)")
	cmd.Flags().StringVar(&octopusRegion, "octopus-region", "", "Use the Octopus Energy average unit rate of this region (A-P) as grid cost")
	cmd.Flags().StringVar(&octopusProduct, "octopus-product", "", "Octopus product code (default Agile)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full report as JSON")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Also write the report to an .xlsx workbook")

	return cmd
}

func irradiance(ctx context.Context, source string) (engine.IrradianceCurve, error) {
	switch source {
	case "", "reference":
		return engine.ReferenceCurve(), nil
	case "site":
		lat, lon := config.Site(v)
		start, end := weather.LastYear(time.Now())
		curve, err := weather.NewOpenMeteoClient(lat, lon).Curve(ctx, start, end)
		if err != nil {
			return nil, fmt.Errorf("fetching irradiance: %w", err)
		}
		logger.Debug("site irradiance",
			slog.Float64("lat", lat),
			slog.Float64("lon", lon),
			slog.Float64("sunHours", engine.CurveSunHours(curve)),
		)
		return curve, nil
	}
	return nil, fmt.Errorf("unknown curve source %q (use reference or site)", source)
}

// gridCost averages the last 30 days of unit rates
func gridCost(ctx context.Context, product, region string) (float64, error) {
	to := time.Now().UTC().Truncate(time.Hour)
	from := to.AddDate(0, 0, -30)
	return tariff.NewOctopusClient(product, region).AveragePerKWh(ctx, from, to)
}

func printReport(r engine.Report) {
	fmt.Printf("Daily energy:   %.0f Wh day + %.0f Wh night = %.2f kWh\n",
		r.Profile.EnergyDayWh, r.Profile.EnergyNightWh, r.DailyKWh)
	fmt.Printf("Peak demand:    %.0f W\n", r.Profile.PeakDemandW)
	fmt.Printf("Sun hours:      %.2f\n", r.SunHours)
	fmt.Printf("Array:          %.0f W\n", r.Sizing.PanelWatts)
	fmt.Printf("Bank:           %.1f Ah\n", r.Sizing.BatteryAh)
	if r.SystemVoltage > 0 {
		fmt.Printf("System voltage: %.0f V\n", r.SystemVoltage)
	}

	for _, t := range r.Tiers {
		fmt.Printf("\n%s\n", t.Tier)
		fmt.Println("--------------------------------------------------------------------------------")
		for _, f := range engine.Families {
			item := t.Kit[f]
			fmt.Printf("  %-12s %-40s %10.2f\n", f, item.Description, item.Price)
		}
		fin := t.Financial
		fmt.Printf("  %-12s %-40s %10.2f %s\n", "Total", "", fin.SystemCost, r.Currency)
		fmt.Printf("  Grid cost %.2f %s/year, solar %s %s/kWh, payback %s years, lifetime savings %.2f\n",
			fin.AnnualGridCost, r.Currency, ratio(fin.CostPerKWh), r.Currency, ratio(fin.PaybackYears), fin.LifetimeSavings)
		if len(t.Missing) > 0 {
			fmt.Printf("  Warning: no catalog data for %v\n", t.Missing)
		}
	}
}

func ratio(f float64) string {
	if math.IsInf(f, 0) {
		return "∞"
	}
	return fmt.Sprintf("%.2f", f)
}

func writeReportWorkbook(path string, r engine.Report) error {
	summary := [][]any{
		{"metric", "value"},
		{"energy_day_wh", r.Profile.EnergyDayWh},
		{"energy_night_wh", r.Profile.EnergyNightWh},
		{"peak_demand_w", r.Profile.PeakDemandW},
		{"sun_hours", r.SunHours},
		{"panel_watts", r.Sizing.PanelWatts},
		{"battery_ah", r.Sizing.BatteryAh},
		{"system_voltage", r.SystemVoltage},
		{"daily_kwh", r.DailyKWh},
	}
	kits := [][]any{{"tier", "family", "description", "quantity", "price"}}
	finance := [][]any{{"tier", "system_cost", "annual_grid_cost", "cost_per_kwh", "payback_years", "lifetime_savings"}}
	for _, t := range r.Tiers {
		for _, f := range engine.Families {
			item := t.Kit[f]
			kits = append(kits, []any{string(t.Tier), string(f), item.Description, item.Quantity, item.Price})
		}
		fin := t.Financial
		finance = append(finance, []any{string(t.Tier), fin.SystemCost, fin.AnnualGridCost, ratio(fin.CostPerKWh), ratio(fin.PaybackYears), fin.LifetimeSavings})
	}

	return catalog.WriteWorkbook(path, []string{"Summary", "Kits", "Finance"}, map[string][][]any{
		"Summary": summary,
		"Kits":    kits,
		"Finance": finance,
	})
}
