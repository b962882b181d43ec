package main

import (
	"fmt"

	"github.com/awaistahir/offgrid/internal/catalog"
	"github.com/awaistahir/offgrid/internal/config"
	"github.com/awaistahir/offgrid/internal/engine"
	"github.com/awaistahir/offgrid/internal/inventory"
	"github.com/spf13/cobra"
)

func inventoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Track component stock",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stock per product",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			items, err := inventory.NewService(st).Stock(cmd.Context())
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Println("No stock recorded (run 'offgrid inventory seed')")
				return nil
			}

			fmt.Printf("%-12s %-30s %8s\n", "FAMILY", "PRODUCT", "QTY")
			fmt.Println("----------------------------------------------------")
			for _, it := range items {
				fmt.Printf("%-12s %-30s %8d\n", it.Family, it.Product, it.Quantity)
			}
			return nil
		},
	})

	cmd.AddCommand(movementCmd("receive", "Add units of a product to stock"))
	cmd.AddCommand(movementCmd("issue", "Remove units of a product from stock"))

	var stock int
	seed := &cobra.Command{
		Use:   "seed",
		Short: "Stock every catalog product that has no stock record yet",
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
			items := inventory.Seed(c, stock)
			if err := st.SeedStock(cmd.Context(), items); err != nil {
				return err
			}
			fmt.Printf("✓ Seeded %d products\n", len(items))
			return nil
		},
	}
	seed.Flags().IntVar(&stock, "stock", inventory.DefaultStock, "Initial units per product")
	cmd.AddCommand(seed)

	cmd.AddCommand(&cobra.Command{
		Use:   "export <file.xlsx>",
		Short: "Write stock and the sales ledger to a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			svc := inventory.NewService(st)
			items, err := svc.Stock(cmd.Context())
			if err != nil {
				return err
			}
			sales, err := svc.Sales(cmd.Context())
			if err != nil {
				return err
			}

			stockRows := [][]any{{"family", "product", "quantity"}}
			for _, it := range items {
				stockRows = append(stockRows, []any{string(it.Family), it.Product, it.Quantity})
			}
			salesRows := [][]any{{"id", "date", "tier", "customer", "total", "currency", "items"}}
			for _, s := range sales {
				salesRows = append(salesRows, []any{s.ID, s.CreatedAt.Format("2006-01-02 15:04"), string(s.Tier), s.Customer, s.Total.String(), s.Currency, describeItems(s.Items)})
			}

			if err := catalog.WriteWorkbook(args[0], []string{"Stock", "Sales"}, map[string][][]any{
				"Stock": stockRows,
				"Sales": salesRows,
			}); err != nil {
				return err
			}
			fmt.Printf("✓ Exported %d products and %d sales to %s\n", len(items), len(sales), args[0])
			return nil
		},
	})

	return cmd
}

func movementCmd(direction, short string) *cobra.Command {
	var family string
	var product string
	var quantity int

	cmd := &cobra.Command{
		Use:   direction,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, ok := engine.ParseFamily(family)
			if !ok {
				return fmt.Errorf("unknown family: %s", family)
			}

			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			svc := inventory.NewService(st)
			var qty int
			if direction == "receive" {
				qty, err = svc.Receive(cmd.Context(), f, product, quantity)
			} else {
				qty, err = svc.Issue(cmd.Context(), f, product, quantity)
			}
			if err != nil {
				return err
			}
			fmt.Printf("✓ %s %s: %d in stock\n", f, product, qty)
			return nil
		},
	}

	cmd.Flags().StringVarP(&family, "family", "f", "", "Component family (required)")
	cmd.Flags().StringVarP(&product, "product", "p", "", "Product name (required)")
	cmd.Flags().IntVarP(&quantity, "quantity", "q", 1, "Units to move")
	cmd.MarkFlagRequired("family")
	cmd.MarkFlagRequired("product")

	return cmd
}

func sellCmd() *cobra.Command {
	var tierName string
	var customer string

	cmd := &cobra.Command{
		Use:   "sell",
		Short: "Sell the kit selected for a tier and take it out of stock",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			tier, ok := engine.ParseTier(tierName)
			if !ok {
				return fmt.Errorf("unknown tier: %s", tierName)
			}
			cfg, err := config.Engine(v)
			if err != nil {
				return err
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
			c, err := st.GetCatalog(ctx)
			if err != nil {
				return err
			}

			var kit engine.Kit
			for _, t := range engine.Run(loads, c, engine.ReferenceCurve(), cfg).Tiers {
				if t.Tier == tier {
					kit = t.Kit
				}
			}

			sale, err := inventory.NewService(st).Sell(ctx, tier, kit, customer, cfg.Currency)
			if err != nil {
				return err
			}

			fmt.Printf("✓ Sold %s kit to %s\n", tier, customerName(customer))
			fmt.Printf("  Sale: %s\n", sale.ID)
			for _, item := range sale.Items {
				fmt.Printf("  %-12s %s\n", item.Family, item.Description)
			}
			fmt.Printf("  Total: %s %s\n", sale.Total.StringFixed(2), sale.Currency)
			return nil
		},
	}

	cmd.Flags().StringVarP(&tierName, "tier", "t", "", "Tier to sell (required)")
	cmd.Flags().StringVarP(&customer, "customer", "c", "", "Customer name")
	cmd.MarkFlagRequired("tier")

	return cmd
}

func salesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sales",
		Short: "List the sales ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			sales, err := inventory.NewService(st).Sales(cmd.Context())
			if err != nil {
				return err
			}
			if len(sales) == 0 {
				fmt.Println("No sales recorded")
				return nil
			}

			fmt.Printf("%-17s %-8s %-20s %12s\n", "DATE", "TIER", "CUSTOMER", "TOTAL")
			fmt.Println("------------------------------------------------------------")
			for _, s := range sales {
				fmt.Printf("%-17s %-8s %-20s %12s %s\n",
					s.CreatedAt.Local().Format("2006-01-02 15:04"), s.Tier, customerName(s.Customer), s.Total.StringFixed(2), s.Currency)
			}
			return nil
		},
	}
}

func customerName(c string) string {
	if c == "" {
		return "walk-in"
	}
	return c
}

func describeItems(items []engine.KitLineItem) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += "; "
		}
		out += item.Description
	}
	return out
}
