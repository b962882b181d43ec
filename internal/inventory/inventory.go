package inventory

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/awaistahir/offgrid/internal/engine"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultStock is the quantity every catalog product starts with when seeded
const DefaultStock = 10

var (
	ErrNegativeQuantity  = errors.New("quantity cannot be negative")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrIncompleteKit     = errors.New("kit has families without catalog data")
)

// Item is the stocked quantity of one product
type Item struct {
	Family   engine.Family `json:"family"`
	Product  string        `json:"product"`
	Quantity int           `json:"quantity"`
}

// Change is a stock delta for one product
type Change struct {
	Family  engine.Family `json:"family"`
	Product string        `json:"product"`
	Delta   int           `json:"delta"`
}

// Sale is a kit sold to a customer, kept in the ledger
type Sale struct {
	ID        string               `json:"id"`
	Tier      engine.Tier          `json:"tier"`
	Customer  string               `json:"customer,omitempty"`
	Total     decimal.Decimal      `json:"total"`
	Currency  string               `json:"currency"`
	Items     []engine.KitLineItem `json:"items"`
	CreatedAt time.Time            `json:"created_at"`
}

// Repository persists stock and the sales ledger
type Repository interface {
	AdjustStock(ctx context.Context, change Change) (int, error)
	ListStock(ctx context.Context) ([]Item, error)
	RecordSale(ctx context.Context, sale Sale, changes []Change) error
	ListSales(ctx context.Context) ([]Sale, error)
}

var lineItemPattern = regexp.MustCompile(`^\s*(\d+)\s*x\s+(.+?)(?:\s+\(\d+S\d+P\))?\s*$`)

// ParseLineItem extracts the unit count and product name from a kit
// description such as "4 x ModelX" or "2 x ModelY (2S1P)"
func ParseLineItem(description string) (int, string, bool) {
	m := lineItemPattern.FindStringSubmatch(description)
	if m == nil {
		return 0, "", false
	}
	qty, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	return qty, strings.TrimSpace(m[2]), true
}

// Seed lists every distinct catalog product at the given stock level
func Seed(c engine.Catalog, stock int) []Item {
	var items []Item
	seen := map[engine.Family]map[string]bool{}
	for _, f := range engine.Families {
		seen[f] = map[string]bool{}
		for _, t := range engine.Tiers {
			for _, e := range c.Entries(f, t) {
				if seen[f][e.Name] {
					continue
				}
				seen[f][e.Name] = true
				items = append(items, Item{Family: f, Product: e.Name, Quantity: stock})
			}
		}
	}
	return items
}

// Service applies stock movements and sales
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates an inventory service over a repository
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Receive adds stock of a product
func (s *Service) Receive(ctx context.Context, family engine.Family, product string, qty int) (int, error) {
	if qty < 0 {
		return 0, ErrNegativeQuantity
	}
	return s.repo.AdjustStock(ctx, Change{Family: family, Product: product, Delta: qty})
}

// Issue removes stock of a product, failing when not enough is on hand
func (s *Service) Issue(ctx context.Context, family engine.Family, product string, qty int) (int, error) {
	if qty < 0 {
		return 0, ErrNegativeQuantity
	}
	return s.repo.AdjustStock(ctx, Change{Family: family, Product: product, Delta: -qty})
}

// Stock lists the current stock
func (s *Service) Stock(ctx context.Context) ([]Item, error) {
	return s.repo.ListStock(ctx)
}

// Sales lists the ledger
func (s *Service) Sales(ctx context.Context) ([]Sale, error) {
	return s.repo.ListSales(ctx)
}

// Changes converts a kit into the stock decrements needed to ship it.
// Sentinel and zero-quantity line items are skipped. Items without a model,
// such as ones built outside the optimizer, fall back to their description.
func Changes(kit engine.Kit) ([]Change, error) {
	var changes []Change
	for _, f := range engine.Families {
		item, ok := kit[f]
		if !ok || item.NoData {
			continue
		}
		qty, product := item.Quantity, item.Model
		if product == "" {
			if qty, product, ok = ParseLineItem(item.Description); !ok {
				return nil, fmt.Errorf("unrecognised %s line item %q", f, item.Description)
			}
		}
		if qty == 0 {
			continue
		}
		changes = append(changes, Change{Family: f, Product: product, Delta: -qty})
	}
	return changes, nil
}

// Total sums the line item prices, rounded to cents
func Total(kit engine.Kit) decimal.Decimal {
	total := decimal.Zero
	for _, f := range engine.Families {
		total = total.Add(decimal.NewFromFloat(kit[f].Price))
	}
	return total.Round(2)
}

// Sell records a sale of the kit and decrements stock. A kit with sentinel
// line items cannot be sold.
func (s *Service) Sell(ctx context.Context, tier engine.Tier, kit engine.Kit, customer, currency string) (Sale, error) {
	if missing := kit.Missing(); len(missing) > 0 {
		return Sale{}, fmt.Errorf("%w: %v", ErrIncompleteKit, missing)
	}
	changes, err := Changes(kit)
	if err != nil {
		return Sale{}, err
	}

	sale := Sale{
		ID:        uuid.NewString(),
		Tier:      tier,
		Customer:  customer,
		Total:     Total(kit),
		Currency:  currency,
		CreatedAt: s.now().UTC(),
	}
	for _, f := range engine.Families {
		if item, ok := kit[f]; ok {
			sale.Items = append(sale.Items, item)
		}
	}

	if err := s.repo.RecordSale(ctx, sale, changes); err != nil {
		return Sale{}, fmt.Errorf("recording sale: %w", err)
	}
	return sale, nil
}
