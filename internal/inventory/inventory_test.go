package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/awaistahir/offgrid/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) AdjustStock(ctx context.Context, change Change) (int, error) {
	args := m.Called(ctx, change)
	return args.Int(0), args.Error(1)
}

func (m *mockRepository) ListStock(ctx context.Context) ([]Item, error) {
	args := m.Called(ctx)
	return args.Get(0).([]Item), args.Error(1)
}

func (m *mockRepository) RecordSale(ctx context.Context, sale Sale, changes []Change) error {
	args := m.Called(ctx, sale, changes)
	return args.Error(0)
}

func (m *mockRepository) ListSales(ctx context.Context) ([]Sale, error) {
	args := m.Called(ctx)
	return args.Get(0).([]Sale), args.Error(1)
}

func TestParseLineItem(t *testing.T) {
	tests := []struct {
		desc    string
		qty     int
		product string
		ok      bool
	}{
		{desc: "4 x ModelX", qty: 4, product: "ModelX", ok: true},
		{desc: "2 x ModelY (2S1P)", qty: 2, product: "ModelY", ok: true},
		{desc: "12 x Box 100W (4S3P)", qty: 12, product: "Box 100W", ok: true},
		{desc: "1 x Inverter (Pure Sine)", qty: 1, product: "Inverter (Pure Sine)", ok: true},
		{desc: engine.NoData, ok: false},
		{desc: "ModelX", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			qty, product, ok := ParseLineItem(tt.desc)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.qty, qty)
			assert.Equal(t, tt.product, product)
		})
	}
}

func TestSeed(t *testing.T) {
	c := engine.Catalog{}
	c.Add(engine.FamilyPanels, engine.TierEconomy, engine.CatalogEntry{Name: "P1"})
	c.Add(engine.FamilyPanels, engine.TierMid, engine.CatalogEntry{Name: "P1"})
	c.Add(engine.FamilyBatteries, engine.TierPremium, engine.CatalogEntry{Name: "B1"})

	assert.Equal(t, []Item{
		{Family: engine.FamilyPanels, Product: "P1", Quantity: DefaultStock},
		{Family: engine.FamilyBatteries, Product: "B1", Quantity: DefaultStock},
	}, Seed(c, DefaultStock))
}

func TestReceiveIssue(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepository{}
	repo.On("AdjustStock", ctx, Change{Family: engine.FamilyPanels, Product: "P1", Delta: 5}).Return(15, nil)
	repo.On("AdjustStock", ctx, Change{Family: engine.FamilyPanels, Product: "P1", Delta: -20}).Return(0, ErrInsufficientStock)
	s := NewService(repo)

	qty, err := s.Receive(ctx, engine.FamilyPanels, "P1", 5)
	require.NoError(t, err)
	assert.Equal(t, 15, qty)

	_, err = s.Issue(ctx, engine.FamilyPanels, "P1", 20)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	_, err = s.Receive(ctx, engine.FamilyPanels, "P1", -1)
	assert.ErrorIs(t, err, ErrNegativeQuantity)
	_, err = s.Issue(ctx, engine.FamilyPanels, "P1", -1)
	assert.ErrorIs(t, err, ErrNegativeQuantity)

	repo.AssertExpectations(t)
}

func testKit() engine.Kit {
	return engine.Kit{
		engine.FamilyPanels:      {Family: engine.FamilyPanels, Description: "3 x P1", Model: "P1", Quantity: 3, Price: 300.1},
		engine.FamilyInverters:   {Family: engine.FamilyInverters, Description: "1 x I1", Model: "I1", Quantity: 1, Price: 180},
		engine.FamilyBatteries:   {Family: engine.FamilyBatteries, Description: "4 x B1 (2S2P)", Model: "B1", Quantity: 4, Price: 640.2},
		engine.FamilyControllers: {Family: engine.FamilyControllers, Description: "1 x C1", Model: "C1", Quantity: 1, Price: 50},
	}
}

func TestSell(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepository{}
	wantChanges := []Change{
		{Family: engine.FamilyPanels, Product: "P1", Delta: -3},
		{Family: engine.FamilyInverters, Product: "I1", Delta: -1},
		{Family: engine.FamilyBatteries, Product: "B1", Delta: -4},
		{Family: engine.FamilyControllers, Product: "C1", Delta: -1},
	}
	repo.On("RecordSale", ctx, mock.AnythingOfType("Sale"), wantChanges).Return(nil)

	s := NewService(repo)
	s.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

	sale, err := s.Sell(ctx, engine.TierEconomy, testKit(), "Ana", "PEN")
	require.NoError(t, err)
	assert.NotEmpty(t, sale.ID)
	assert.Equal(t, "1170.3", sale.Total.String())
	assert.Equal(t, "PEN", sale.Currency)
	assert.Len(t, sale.Items, 4)
	assert.Equal(t, s.now(), sale.CreatedAt)
	repo.AssertExpectations(t)
}

func TestSellRejectsIncompleteKit(t *testing.T) {
	kit := testKit()
	kit[engine.FamilyInverters] = engine.KitLineItem{Family: engine.FamilyInverters, Description: engine.NoData, NoData: true}

	repo := &mockRepository{}
	_, err := NewService(repo).Sell(context.Background(), engine.TierMid, kit, "", "PEN")
	assert.ErrorIs(t, err, ErrIncompleteKit)
	repo.AssertNotCalled(t, "RecordSale", mock.Anything, mock.Anything, mock.Anything)
}

func TestSellPropagatesRepositoryError(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepository{}
	repo.On("RecordSale", ctx, mock.Anything, mock.Anything).Return(ErrInsufficientStock)

	_, err := NewService(repo).Sell(ctx, engine.TierMid, testKit(), "", "PEN")
	assert.True(t, errors.Is(err, ErrInsufficientStock))
}

func TestChangesSkipsZeroQuantity(t *testing.T) {
	kit := testKit()
	kit[engine.FamilyPanels] = engine.KitLineItem{Description: "0 x P1", Model: "P1"}

	changes, err := Changes(kit)
	require.NoError(t, err)
	assert.Len(t, changes, 3)
}

func TestChangesUseModelName(t *testing.T) {
	kit := engine.Kit{
		engine.FamilyPanels:    {Family: engine.FamilyPanels, Description: "2 x  Padded ", Model: " Padded ", Quantity: 2},
		engine.FamilyBatteries: {Family: engine.FamilyBatteries, Description: "2 x Pack (2S1P) (2S1P)", Model: "Pack (2S1P)", Quantity: 2, Series: 2, Parallel: 1},
		engine.FamilyInverters: {Family: engine.FamilyInverters, Description: "1 x Legacy"},
	}

	changes, err := Changes(kit)
	require.NoError(t, err)
	assert.Equal(t, []Change{
		{Family: engine.FamilyPanels, Product: " Padded ", Delta: -2},
		{Family: engine.FamilyInverters, Product: "Legacy", Delta: -1},
		{Family: engine.FamilyBatteries, Product: "Pack (2S1P)", Delta: -2},
	}, changes)
}
