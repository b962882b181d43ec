package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/awaistahir/offgrid/internal/engine"
	"github.com/awaistahir/offgrid/internal/inventory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := NewStore(filepath.Join(t.TempDir(), "offgrid.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestLoads(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	bulb := engine.ApplianceLoad{ID: "bulb", Name: "Bulb", Quantity: 4, PowerW: 10, Enabled: true, Schedule: engine.Intervals(6, 8, 18, 22)}
	fridge := engine.ApplianceLoad{ID: "fridge", Name: "Fridge", Quantity: 1, PowerW: 150, Enabled: true, Schedule: engine.Durations(8, 8)}
	require.NoError(t, st.SaveLoad(ctx, bulb))
	require.NoError(t, st.SaveLoad(ctx, fridge))

	// updating keeps list position
	bulb.Quantity = 6
	require.NoError(t, st.SaveLoad(ctx, bulb))

	loads, err := st.GetLoads(ctx)
	require.NoError(t, err)
	assert.Equal(t, []engine.ApplianceLoad{bulb, fridge}, loads)

	require.NoError(t, st.SetLoadEnabled(ctx, "fridge", false))
	got, err := st.GetLoad(ctx, "fridge")
	require.NoError(t, err)
	assert.False(t, got.Enabled)

	require.NoError(t, st.DeleteLoad(ctx, "bulb"))
	_, err = st.GetLoad(ctx, "bulb")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, st.DeleteLoad(ctx, "bulb"), ErrNotFound)
	assert.ErrorIs(t, st.SetLoadEnabled(ctx, "missing", true), ErrNotFound)
}

func TestReplaceLoads(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	require.NoError(t, st.SaveLoad(ctx, engine.ApplianceLoad{ID: "old", Name: "Old", Schedule: engine.Durations(1, 1)}))

	want := []engine.ApplianceLoad{
		{ID: "a", Name: "A", Quantity: 1, PowerW: 5, Enabled: true, Schedule: engine.Durations(2, 0)},
		{ID: "b", Name: "B", Quantity: 2, PowerW: 7, Enabled: false, Schedule: engine.Intervals(0, 0, 18, 20)},
	}
	require.NoError(t, st.ReplaceLoads(ctx, want))

	loads, err := st.GetLoads(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, loads)
}

func TestCatalog(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	c := engine.Catalog{}
	c.Add(engine.FamilyPanels, engine.TierEconomy, engine.CatalogEntry{Name: "P2", Capacity: 200, Price: 150})
	c.Add(engine.FamilyPanels, engine.TierEconomy, engine.CatalogEntry{Name: "P1", Capacity: 100, Price: 90})
	c.Add(engine.FamilyBatteries, engine.TierPremium, engine.CatalogEntry{Name: "B1", Capacity: 100, Voltage: 12, Price: 400})
	require.NoError(t, st.ReplaceCatalog(ctx, c))

	got, err := st.GetCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, c, got)

	require.NoError(t, st.ReplaceCatalog(ctx, engine.Catalog{}))
	got, err = st.GetCatalog(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStock(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	require.NoError(t, st.SeedStock(ctx, []inventory.Item{
		{Family: engine.FamilyPanels, Product: "P1", Quantity: 10},
	}))
	// seeding again does not reset quantities
	_, err := st.AdjustStock(ctx, inventory.Change{Family: engine.FamilyPanels, Product: "P1", Delta: -3})
	require.NoError(t, err)
	require.NoError(t, st.SeedStock(ctx, []inventory.Item{{Family: engine.FamilyPanels, Product: "P1", Quantity: 10}}))

	qty, err := st.AdjustStock(ctx, inventory.Change{Family: engine.FamilyInverters, Product: "I1", Delta: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, qty)

	_, err = st.AdjustStock(ctx, inventory.Change{Family: engine.FamilyInverters, Product: "I1", Delta: -5})
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

	items, err := st.ListStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, []inventory.Item{
		{Family: engine.FamilyInverters, Product: "I1", Quantity: 2},
		{Family: engine.FamilyPanels, Product: "P1", Quantity: 7},
	}, items)
}

func TestRecordSale(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	require.NoError(t, st.SeedStock(ctx, []inventory.Item{
		{Family: engine.FamilyPanels, Product: "P1", Quantity: 10},
		{Family: engine.FamilyBatteries, Product: "B1", Quantity: 1},
	}))

	sale := inventory.Sale{
		ID:        "sale-1",
		Tier:      engine.TierEconomy,
		Customer:  "Ana",
		Total:     decimal.RequireFromString("460.50"),
		Currency:  "PEN",
		Items:     []engine.KitLineItem{{Family: engine.FamilyPanels, Description: "3 x P1", Model: "P1", Quantity: 3, Price: 300.5}},
		CreatedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.RecordSale(ctx, sale, []inventory.Change{
		{Family: engine.FamilyPanels, Product: "P1", Delta: -3},
	}))

	// a sale that cannot be fulfilled leaves stock and ledger untouched
	failed := sale
	failed.ID = "sale-2"
	err := st.RecordSale(ctx, failed, []inventory.Change{
		{Family: engine.FamilyPanels, Product: "P1", Delta: -3},
		{Family: engine.FamilyBatteries, Product: "B1", Delta: -2},
	})
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

	items, err := st.ListStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, []inventory.Item{
		{Family: engine.FamilyBatteries, Product: "B1", Quantity: 1},
		{Family: engine.FamilyPanels, Product: "P1", Quantity: 7},
	}, items)

	sales, err := st.ListSales(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, "sale-1", sales[0].ID)
	assert.True(t, sale.Total.Equal(sales[0].Total))
	assert.Equal(t, sale.Items, sales[0].Items)
	assert.True(t, sale.CreatedAt.Equal(sales[0].CreatedAt))
	assert.Equal(t, "Ana", sales[0].Customer)
}

func TestSellThroughService(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := inventory.NewService(st)

	kits := engine.SelectKit(sampleCatalog(), engine.KitRequest{PanelWatts: 250, BatteryAh: 50, NightWh: 600, PeakDemandW: 300}, engine.DefaultConfig())
	require.NoError(t, st.SeedStock(ctx, inventory.Seed(sampleCatalog(), inventory.DefaultStock)))

	sale, err := svc.Sell(ctx, engine.TierEconomy, kits[engine.TierEconomy], "", "PEN")
	require.NoError(t, err)
	assert.Equal(t, "580", sale.Total.String())

	items, err := svc.Stock(ctx)
	require.NoError(t, err)
	stock := map[string]int{}
	for _, it := range items {
		stock[it.Product] = it.Quantity
	}
	assert.Equal(t, 7, stock["P"])
	assert.Equal(t, 9, stock["I"])
	assert.Equal(t, 9, stock["B"])
	assert.Equal(t, 9, stock["C"])
}

func sampleCatalog() engine.Catalog {
	c := engine.Catalog{}
	c.Add(engine.FamilyPanels, engine.TierEconomy, engine.CatalogEntry{Name: "P", Capacity: 100, Price: 100})
	c.Add(engine.FamilyInverters, engine.TierEconomy, engine.CatalogEntry{Name: "I", Capacity: 500, Price: 180})
	c.Add(engine.FamilyBatteries, engine.TierEconomy, engine.CatalogEntry{Name: "B", Capacity: 100, Voltage: 12, Price: 50})
	c.Add(engine.FamilyControllers, engine.TierEconomy, engine.CatalogEntry{Name: "C", Capacity: 20, Price: 50})
	return c
}
