package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/awaistahir/offgrid/internal/catalog"
	"github.com/awaistahir/offgrid/internal/config"
	"github.com/awaistahir/offgrid/internal/engine"
	"github.com/awaistahir/offgrid/internal/inventory"
	"github.com/awaistahir/offgrid/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	dbPath  string
	verbose bool

	v      *viper.Viper
	logger *slog.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "offgrid",
		Short: "Offgrid - size an off-grid solar system and pick a kit per tier",
		Long: `Offgrid sizes a photovoltaic array and battery bank for a list of
household loads, selects the cheapest kit per tier from a priced catalog
and compares it against buying the same energy from the grid.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.offgrid/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default is $HOME/.offgrid/offgrid.db)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(loadCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(sizeCmd())
	rootCmd.AddCommand(inventoryCmd())
	rootCmd.AddCommand(sellCmd())
	rootCmd.AddCommand(salesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig() error {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	v = config.New(cfgFile)
	if err := config.Read(v); err != nil {
		return err
	}
	if f := v.ConfigFileUsed(); f != "" {
		logger.Debug("config loaded", slog.String("file", f))
	}

	if dbPath == "" {
		dbPath = filepath.Join(config.Dir(), "offgrid.db")
	}
	return nil
}

func openStore() (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	st, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return st, nil
}

func initCmd() *cobra.Command {
	var samples string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the database with the sample catalog and loads",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			existing, err := st.GetCatalog(ctx)
			if err != nil {
				return err
			}
			if len(existing) == 0 || force {
				if err := st.ReplaceCatalog(ctx, catalog.SampleCatalog()); err != nil {
					return err
				}
				fmt.Println("✓ Loaded sample catalog")
			}

			loads, err := st.GetLoads(ctx)
			if err != nil {
				return err
			}
			if len(loads) == 0 || force {
				if err := st.ReplaceLoads(ctx, catalog.SampleLoads()); err != nil {
					return err
				}
				fmt.Println("✓ Loaded sample loads")
			}

			c, err := st.GetCatalog(ctx)
			if err != nil {
				return err
			}
			if err := st.SeedStock(ctx, inventory.Seed(c, inventory.DefaultStock)); err != nil {
				return err
			}
			fmt.Printf("✓ Seeded stock (%d units per product)\n", inventory.DefaultStock)

			if samples != "" {
				if err := writeSamples(samples); err != nil {
					return err
				}
				fmt.Printf("✓ Wrote sample files to %s\n", samples)
			}

			fmt.Printf("Database: %s\n", dbPath)
			fmt.Println("\nNext steps:")
			fmt.Println("  1. Review loads: offgrid load list")
			fmt.Println("  2. Size the system: offgrid size")

			return nil
		},
	}

	cmd.Flags().StringVar(&samples, "samples", "", "Directory to write sample catalog and load files to")
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing catalog and load list")

	return cmd
}

func writeSamples(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for _, name := range []string{"catalog.xlsx", "catalog.csv", "catalog.yaml"} {
		if err := catalog.SaveCatalog(filepath.Join(dir, name), catalog.SampleCatalog()); err != nil {
			return err
		}
	}
	for _, name := range []string{"loads.xlsx", "loads.csv", "loads.yaml"} {
		if err := catalog.SaveLoads(filepath.Join(dir, name), catalog.SampleLoads()); err != nil {
			return err
		}
	}
	return nil
}

func loadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Manage appliance loads",
	}

	cmd.AddCommand(loadAddCmd())
	cmd.AddCommand(loadListCmd())
	cmd.AddCommand(loadToggleCmd())
	cmd.AddCommand(loadRemoveCmd())
	cmd.AddCommand(loadImportCmd())
	cmd.AddCommand(loadExportCmd())

	return cmd
}

func loadAddCmd() *cobra.Command {
	var name string
	var quantity int
	var power float64
	var am, pm []int
	var dayHours, nightHours float64

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a load with either --am/--pm intervals or --day/--night hours",
		RunE: func(cmd *cobra.Command, args []string) error {
			load := engine.ApplianceLoad{
				Name:     name,
				Quantity: quantity,
				PowerW:   power,
				Enabled:  true,
			}

			if cmd.Flags().Changed("am") || cmd.Flags().Changed("pm") {
				if cmd.Flags().Changed("day") || cmd.Flags().Changed("night") {
					return fmt.Errorf("use either --am/--pm or --day/--night, not both")
				}
				amS, amE, err := interval(am)
				if err != nil {
					return fmt.Errorf("--am: %w", err)
				}
				pmS, pmE, err := interval(pm)
				if err != nil {
					return fmt.Errorf("--pm: %w", err)
				}
				load.Schedule = engine.Intervals(amS, amE, pmS, pmE)
			} else {
				load.Schedule = engine.Durations(dayHours, nightHours)
			}

			if err := catalog.ValidateLoads([]engine.ApplianceLoad{load}); err != nil {
				return err
			}
			load.ID = uuid.NewString()

			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.SaveLoad(cmd.Context(), load); err != nil {
				return err
			}

			fmt.Printf("✓ Added load: %s\n", name)
			fmt.Printf("  ID: %s\n", load.ID)
			fmt.Printf("  Power: %d x %.0f W\n", quantity, power)
			fmt.Printf("  Energy: %.0f Wh/day\n", load.RatedPowerW()*engine.UsedHours(load.Schedule))

			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Load name (required)")
	cmd.Flags().IntVarP(&quantity, "quantity", "q", 1, "Number of units")
	cmd.Flags().Float64VarP(&power, "power", "p", 0, "Power per unit in watts (required)")
	cmd.Flags().IntSliceVar(&am, "am", nil, "Morning interval as start,end hours")
	cmd.Flags().IntSliceVar(&pm, "pm", nil, "Evening interval as start,end hours")
	cmd.Flags().Float64Var(&dayHours, "day", 0, "Daytime hours of use")
	cmd.Flags().Float64Var(&nightHours, "night", 0, "Nighttime hours of use")

	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("power")

	return cmd
}

func interval(hours []int) (int, int, error) {
	switch len(hours) {
	case 0:
		return 0, 0, nil
	case 2:
		return hours[0], hours[1], nil
	}
	return 0, 0, fmt.Errorf("expected start,end but got %d values", len(hours))
}

func loadListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all loads",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			loads, err := st.GetLoads(cmd.Context())
			if err != nil {
				return err
			}

			if len(loads) == 0 {
				fmt.Println("No loads configured")
				return nil
			}

			fmt.Printf("%-20s %-10s %4s %8s %-18s %8s\n", "NAME", "ID", "QTY", "WATTS", "SCHEDULE", "ENABLED")
			fmt.Println("--------------------------------------------------------------------------------")

			for _, l := range loads {
				enabled := "Yes"
				if !l.Enabled {
					enabled = "No"
				}
				fmt.Printf("%-20s %-10s %4d %8.0f %-18s %8s\n",
					l.Name, l.ID[:min(8, len(l.ID))], l.Quantity, l.PowerW, describeSchedule(l.Schedule), enabled)
			}

			return nil
		},
	}
}

func describeSchedule(s engine.Schedule) string {
	switch {
	case s.Kind == engine.ScheduleInterval && s.Interval != nil:
		return fmt.Sprintf("%02d-%02d, %02d-%02d", s.Interval.AMStart, s.Interval.AMEnd, s.Interval.PMStart, s.Interval.PMEnd)
	case s.Kind == engine.ScheduleDuration && s.Duration != nil:
		return fmt.Sprintf("%gh day, %gh night", s.Duration.DayHours, s.Duration.NightHours)
	}
	return "-"
}

// resolveLoad finds a load by full ID or by a unique ID prefix
func resolveLoad(cmd *cobra.Command, st *store.Store, ref string) (engine.ApplianceLoad, error) {
	loads, err := st.GetLoads(cmd.Context())
	if err != nil {
		return engine.ApplianceLoad{}, err
	}
	var matches []engine.ApplianceLoad
	for _, l := range loads {
		if l.ID == ref {
			return l, nil
		}
		if len(ref) > 0 && len(l.ID) >= len(ref) && l.ID[:len(ref)] == ref {
			matches = append(matches, l)
		}
	}
	switch len(matches) {
	case 0:
		return engine.ApplianceLoad{}, fmt.Errorf("load not found: %s", ref)
	case 1:
		return matches[0], nil
	}
	return engine.ApplianceLoad{}, fmt.Errorf("ambiguous load id: %s", ref)
}

func loadToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Enable or disable a load",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			load, err := resolveLoad(cmd, st, args[0])
			if err != nil {
				return err
			}
			if err := st.SetLoadEnabled(cmd.Context(), load.ID, !load.Enabled); err != nil {
				return err
			}

			state := "enabled"
			if load.Enabled {
				state = "disabled"
			}
			fmt.Printf("✓ %s %s\n", load.Name, state)
			return nil
		},
	}
}

func loadRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a load",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			load, err := resolveLoad(cmd, st, args[0])
			if err != nil {
				return err
			}
			if err := st.DeleteLoad(cmd.Context(), load.ID); err != nil {
				return err
			}
			fmt.Printf("✓ Removed %s\n", load.Name)
			return nil
		},
	}
}

func loadImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the load list from an .xlsx, .csv or .yaml file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loads, err := catalog.LoadLoads(args[0])
			if err != nil {
				return err
			}

			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.ReplaceLoads(cmd.Context(), loads); err != nil {
				return err
			}
			fmt.Printf("✓ Imported %d loads from %s\n", len(loads), args[0])
			return nil
		},
	}
}

func loadExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write the load list to an .xlsx, .csv or .yaml file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			loads, err := st.GetLoads(cmd.Context())
			if err != nil {
				return err
			}
			if err := catalog.SaveLoads(args[0], loads); err != nil {
				return err
			}
			fmt.Printf("✓ Exported %d loads to %s\n", len(loads), args[0])
			return nil
		},
	}
}

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the priced component catalog",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Replace the catalog from an .xlsx, .csv or .yaml file and seed stock for new products",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := catalog.LoadCatalog(args[0])
			if err != nil {
				return err
			}

			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.ReplaceCatalog(cmd.Context(), c); err != nil {
				return err
			}
			if err := st.SeedStock(cmd.Context(), inventory.Seed(c, inventory.DefaultStock)); err != nil {
				return err
			}
			fmt.Printf("✓ Imported catalog from %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "export <file>",
		Short: "Write the catalog to an .xlsx, .csv or .yaml file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			c, err := st.GetCatalog(cmd.Context())
			if err != nil {
				return err
			}
			if err := catalog.SaveCatalog(args[0], c); err != nil {
				return err
			}
			fmt.Printf("✓ Exported catalog to %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List catalog entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			c, err := st.GetCatalog(cmd.Context())
			if err != nil {
				return err
			}
			if len(c) == 0 {
				fmt.Println("Catalog is empty (run 'offgrid init' or 'offgrid catalog import')")
				return nil
			}

			fmt.Printf("%-12s %-8s %-24s %10s %8s %10s\n", "FAMILY", "TIER", "NAME", "CAPACITY", "VOLTS", "PRICE")
			fmt.Println("--------------------------------------------------------------------------------")
			for _, f := range engine.Families {
				for _, t := range engine.Tiers {
					for _, e := range c.Entries(f, t) {
						fmt.Printf("%-12s %-8s %-24s %10.0f %8.0f %10.2f\n", f, t, e.Name, e.Capacity, e.Voltage, e.Price)
					}
				}
			}
			return nil
		},
	})

	return cmd
}
