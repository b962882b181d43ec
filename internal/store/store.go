package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/awaistahir/offgrid/internal/engine"
	"github.com/awaistahir/offgrid/internal/inventory"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

// Store handles persistent storage using SQLite
type Store struct {
	db *sql.DB
}

// NewStore creates a new store and initializes the database
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// initialize creates the database schema
func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS loads (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		power_w REAL NOT NULL,
		enabled INTEGER DEFAULT 1,
		schedule TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS catalog_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		family TEXT NOT NULL,
		tier TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		capacity REAL NOT NULL,
		voltage REAL DEFAULT 0,
		price REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS inventory (
		family TEXT NOT NULL,
		product TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity >= 0),
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (family, product)
	);

	CREATE TABLE IF NOT EXISTS sales (
		id TEXT PRIMARY KEY,
		tier TEXT NOT NULL,
		customer TEXT,
		total TEXT NOT NULL,
		currency TEXT NOT NULL,
		items TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_loads_position ON loads(position);
	CREATE INDEX IF NOT EXISTS idx_catalog_family_tier ON catalog_entries(family, tier, position);
	CREATE INDEX IF NOT EXISTS idx_sales_created ON sales(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveLoad saves or updates a load, keeping its position when it already exists
func (s *Store) SaveLoad(ctx context.Context, l engine.ApplianceLoad) error {
	scheduleJSON, err := json.Marshal(l.Schedule)
	if err != nil {
		return fmt.Errorf("encoding schedule: %w", err)
	}

	query := `INSERT INTO loads (id, position, name, quantity, power_w, enabled, schedule, updated_at)
		VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM loads), ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			quantity = excluded.quantity,
			power_w = excluded.power_w,
			enabled = excluded.enabled,
			schedule = excluded.schedule,
			updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, query, l.ID, l.Name, l.Quantity, l.PowerW, boolToInt(l.Enabled), string(scheduleJSON), time.Now())
	return err
}

// ReplaceLoads swaps the whole load list for a new one
func (s *Store) ReplaceLoads(ctx context.Context, loads []engine.ApplianceLoad) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM loads`); err != nil {
		return err
	}
	for i, l := range loads {
		scheduleJSON, err := json.Marshal(l.Schedule)
		if err != nil {
			return fmt.Errorf("encoding schedule: %w", err)
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO loads (id, position, name, quantity, power_w, enabled, schedule)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			l.ID, i+1, l.Name, l.Quantity, l.PowerW, boolToInt(l.Enabled), string(scheduleJSON))
		if err != nil {
			return fmt.Errorf("inserting load %s: %w", l.Name, err)
		}
	}
	return tx.Commit()
}

// GetLoads retrieves all loads in list order
func (s *Store) GetLoads(ctx context.Context) ([]engine.ApplianceLoad, error) {
	query := `SELECT id, name, quantity, power_w, enabled, schedule FROM loads ORDER BY position`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loads := []engine.ApplianceLoad{}
	for rows.Next() {
		l, err := scanLoad(rows)
		if err != nil {
			return nil, err
		}
		loads = append(loads, l)
	}
	return loads, rows.Err()
}

// GetLoad retrieves a single load by ID
func (s *Store) GetLoad(ctx context.Context, id string) (engine.ApplianceLoad, error) {
	query := `SELECT id, name, quantity, power_w, enabled, schedule FROM loads WHERE id = ?`

	l, err := scanLoad(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return l, fmt.Errorf("load %s: %w", id, ErrNotFound)
	}
	return l, err
}

// SetLoadEnabled toggles a load on or off
func (s *Store) SetLoadEnabled(ctx context.Context, id string, enabled bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE loads SET enabled = ?, updated_at = ? WHERE id = ?`, boolToInt(enabled), time.Now(), id)
	if err != nil {
		return err
	}
	return expectRow(res, "load "+id)
}

// DeleteLoad deletes a load by ID
func (s *Store) DeleteLoad(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM loads WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectRow(res, "load "+id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLoad(row scanner) (engine.ApplianceLoad, error) {
	var l engine.ApplianceLoad
	var enabledInt int
	var scheduleJSON string

	if err := row.Scan(&l.ID, &l.Name, &l.Quantity, &l.PowerW, &enabledInt, &scheduleJSON); err != nil {
		return l, err
	}
	if err := json.Unmarshal([]byte(scheduleJSON), &l.Schedule); err != nil {
		return l, fmt.Errorf("decoding schedule of load %s: %w", l.ID, err)
	}
	l.Enabled = enabledInt == 1
	return l, nil
}

// ReplaceCatalog swaps the stored catalog for a new one, keeping entry order
func (s *Store) ReplaceCatalog(ctx context.Context, c engine.Catalog) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_entries`); err != nil {
		return err
	}

	query := `INSERT INTO catalog_entries (family, tier, position, name, capacity, voltage, price)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	for _, f := range engine.Families {
		for _, t := range engine.Tiers {
			for i, e := range c.Entries(f, t) {
				if _, err := tx.ExecContext(ctx, query, string(f), string(t), i, e.Name, e.Capacity, e.Voltage, e.Price); err != nil {
					return fmt.Errorf("inserting %s/%s %s: %w", f, t, e.Name, err)
				}
			}
		}
	}
	return tx.Commit()
}

// GetCatalog retrieves the stored catalog
func (s *Store) GetCatalog(ctx context.Context) (engine.Catalog, error) {
	query := `SELECT family, tier, name, capacity, voltage, price FROM catalog_entries
		ORDER BY family, tier, position`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	c := engine.Catalog{}
	for rows.Next() {
		var family, tier string
		var e engine.CatalogEntry
		if err := rows.Scan(&family, &tier, &e.Name, &e.Capacity, &e.Voltage, &e.Price); err != nil {
			return nil, err
		}
		c.Add(engine.Family(family), engine.Tier(tier), e)
	}
	return c, rows.Err()
}

// SeedStock inserts items that are not stocked yet, leaving existing quantities alone
func (s *Store) SeedStock(ctx context.Context, items []inventory.Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, it := range items {
		_, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO inventory (family, product, quantity) VALUES (?, ?, ?)`,
			string(it.Family), it.Product, it.Quantity)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AdjustStock applies a delta to a product and returns the new quantity.
// Unknown products start at zero.
func (s *Store) AdjustStock(ctx context.Context, change inventory.Change) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	qty, err := applyChange(ctx, tx, change)
	if err != nil {
		return 0, err
	}
	return qty, tx.Commit()
}

func applyChange(ctx context.Context, tx *sql.Tx, change inventory.Change) (int, error) {
	var current int
	err := tx.QueryRowContext(ctx, `SELECT quantity FROM inventory WHERE family = ? AND product = ?`,
		string(change.Family), change.Product).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	next := current + change.Delta
	if next < 0 {
		return 0, fmt.Errorf("%w: %s %q has %d, need %d", inventory.ErrInsufficientStock, change.Family, change.Product, current, -change.Delta)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO inventory (family, product, quantity, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(family, product) DO UPDATE SET quantity = excluded.quantity, updated_at = excluded.updated_at`,
		string(change.Family), change.Product, next, time.Now())
	if err != nil {
		return 0, err
	}
	return next, nil
}

// ListStock retrieves all stocked products
func (s *Store) ListStock(ctx context.Context) ([]inventory.Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT family, product, quantity FROM inventory ORDER BY family, product`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []inventory.Item{}
	for rows.Next() {
		var it inventory.Item
		var family string
		if err := rows.Scan(&family, &it.Product, &it.Quantity); err != nil {
			return nil, err
		}
		it.Family = engine.Family(family)
		items = append(items, it)
	}
	return items, rows.Err()
}

// RecordSale decrements stock and appends the sale to the ledger atomically
func (s *Store) RecordSale(ctx context.Context, sale inventory.Sale, changes []inventory.Change) error {
	itemsJSON, err := json.Marshal(sale.Items)
	if err != nil {
		return fmt.Errorf("encoding sale items: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, c := range changes {
		if _, err := applyChange(ctx, tx, c); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO sales (id, tier, customer, total, currency, items, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sale.ID, string(sale.Tier), sale.Customer, sale.Total.String(), sale.Currency, string(itemsJSON),
		sale.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting sale: %w", err)
	}
	return tx.Commit()
}

// ListSales retrieves the ledger, oldest first
func (s *Store) ListSales(ctx context.Context) ([]inventory.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, tier, customer, total, currency, items, created_at
		FROM sales ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := []inventory.Sale{}
	for rows.Next() {
		var sale inventory.Sale
		var tier, total, itemsJSON, createdAt string
		var customer sql.NullString
		if err := rows.Scan(&sale.ID, &tier, &customer, &total, &sale.Currency, &itemsJSON, &createdAt); err != nil {
			return nil, err
		}
		sale.Tier = engine.Tier(tier)
		sale.Customer = customer.String
		if sale.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("decoding total of sale %s: %w", sale.ID, err)
		}
		if err := json.Unmarshal([]byte(itemsJSON), &sale.Items); err != nil {
			return nil, fmt.Errorf("decoding items of sale %s: %w", sale.ID, err)
		}
		if sale.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("decoding time of sale %s: %w", sale.ID, err)
		}
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

func expectRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
