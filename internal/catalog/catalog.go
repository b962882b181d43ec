package catalog

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/awaistahir/offgrid/internal/engine"
	"github.com/google/uuid"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrHeaderMismatch    = errors.New("header mismatch")
	ErrInvalidLoad       = errors.New("invalid load")
	ErrInvalidEntry      = errors.New("invalid catalog entry")
)

// Columns of a catalog sheet; CSV files prefix them with a family column
var catalogHeader = []string{"tier", "name", "capacity", "voltage", "price"}

// Columns of a load list
var loadHeader = []string{"name", "quantity", "power_w", "am_start", "am_end", "pm_start", "pm_end", "day_hours", "night_hours", "enabled"}

// LoadCatalog reads a catalog from an .xlsx, .csv or .yaml file
func LoadCatalog(path string) (engine.Catalog, error) {
	var c engine.Catalog
	var err error
	switch ext(path) {
	case ".xlsx":
		c, err = readCatalogWorkbook(path)
	case ".csv":
		c, err = readCatalogCSV(path)
	case ".yaml", ".yml":
		c, err = readCatalogYAML(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, err
	}
	if err := ValidateCatalog(c); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ValidateCatalog rejects negative prices and voltages. Entries without
// capacity are left to the optimizer, which never selects them.
func ValidateCatalog(c engine.Catalog) error {
	for _, f := range engine.Families {
		for _, t := range engine.Tiers {
			for i, e := range c.Entries(f, t) {
				if e.Price < 0 || math.IsNaN(e.Price) {
					return fmt.Errorf("%w: %s %s row %d (%s): negative price", ErrInvalidEntry, f, t, i+1, e.Name)
				}
				if e.Voltage < 0 || math.IsNaN(e.Voltage) {
					return fmt.Errorf("%w: %s %s row %d (%s): negative voltage", ErrInvalidEntry, f, t, i+1, e.Name)
				}
			}
		}
	}
	return nil
}

// SaveCatalog writes a catalog to an .xlsx, .csv or .yaml file
func SaveCatalog(path string, c engine.Catalog) error {
	switch ext(path) {
	case ".xlsx":
		return writeCatalogWorkbook(path, c)
	case ".csv":
		return writeCatalogCSV(path, c)
	case ".yaml", ".yml":
		return writeCatalogYAML(path, c)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// LoadLoads reads a load list from an .xlsx, .csv or .yaml file
func LoadLoads(path string) ([]engine.ApplianceLoad, error) {
	switch ext(path) {
	case ".xlsx":
		return readLoadsWorkbook(path)
	case ".csv":
		return readLoadsCSV(path)
	case ".yaml", ".yml":
		return readLoadsYAML(path)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// ValidateLoads rejects negative quantities, powers and hours. The engine
// itself never validates, so producers of load lists call this.
func ValidateLoads(loads []engine.ApplianceLoad) error {
	for i, l := range loads {
		if l.Quantity < 0 {
			return fmt.Errorf("%w: load %d (%s): negative quantity", ErrInvalidLoad, i+1, l.Name)
		}
		if l.PowerW < 0 {
			return fmt.Errorf("%w: load %d (%s): negative power", ErrInvalidLoad, i+1, l.Name)
		}
		switch l.Schedule.Kind {
		case engine.ScheduleInterval:
			s := l.Schedule.Interval
			if s == nil {
				return fmt.Errorf("%w: load %d (%s): missing interval schedule", ErrInvalidLoad, i+1, l.Name)
			}
			for _, h := range []int{s.AMStart, s.AMEnd, s.PMStart, s.PMEnd} {
				if h < 0 || h > 24 {
					return fmt.Errorf("%w: load %d (%s): hour %d out of range", ErrInvalidLoad, i+1, l.Name, h)
				}
			}
		case engine.ScheduleDuration:
			d := l.Schedule.Duration
			if d == nil {
				return fmt.Errorf("%w: load %d (%s): missing duration schedule", ErrInvalidLoad, i+1, l.Name)
			}
			if d.DayHours < 0 || d.NightHours < 0 {
				return fmt.Errorf("%w: load %d (%s): negative hours", ErrInvalidLoad, i+1, l.Name)
			}
		default:
			return fmt.Errorf("%w: load %d (%s): unknown schedule kind %q", ErrInvalidLoad, i+1, l.Name, l.Schedule.Kind)
		}
	}
	return nil
}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// assignIDs gives every load without an ID a fresh one
func assignIDs(loads []engine.ApplianceLoad) []engine.ApplianceLoad {
	for i := range loads {
		if loads[i].ID == "" {
			loads[i].ID = uuid.NewString()
		}
	}
	return loads
}

func validateHeader(header, expected []string) bool {
	if len(header) < len(expected) {
		return false
	}
	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(header[i])) != col {
			return false
		}
	}
	return true
}

// parseEntry reads tier,name,capacity,voltage,price. Blank voltage is zero.
func parseEntry(fields []string) (engine.Tier, engine.CatalogEntry, error) {
	if len(fields) < len(catalogHeader) {
		return "", engine.CatalogEntry{}, fmt.Errorf("expected %d columns, got %d", len(catalogHeader), len(fields))
	}
	tier, ok := engine.ParseTier(fields[0])
	if !ok {
		return "", engine.CatalogEntry{}, fmt.Errorf("unknown tier %q", fields[0])
	}
	e := engine.CatalogEntry{Name: strings.TrimSpace(fields[1])}
	var err error
	if e.Capacity, err = parseFloat(fields[2]); err != nil {
		return "", engine.CatalogEntry{}, fmt.Errorf("capacity: %w", err)
	}
	if e.Voltage, err = parseFloat(fields[3]); err != nil {
		return "", engine.CatalogEntry{}, fmt.Errorf("voltage: %w", err)
	}
	if e.Price, err = parseFloat(fields[4]); err != nil {
		return "", engine.CatalogEntry{}, fmt.Errorf("price: %w", err)
	}
	return tier, e, nil
}

func entryFields(t engine.Tier, e engine.CatalogEntry) []string {
	return []string{string(t), e.Name, formatFloat(e.Capacity), formatFloat(e.Voltage), formatFloat(e.Price)}
}

// parseLoad reads one load row. Any interval column switches the row to
// interval form.
func parseLoad(fields []string) (engine.ApplianceLoad, error) {
	for len(fields) < len(loadHeader) {
		fields = append(fields, "")
	}
	l := engine.ApplianceLoad{Name: strings.TrimSpace(fields[0]), Enabled: true}

	qty, err := parseInt(fields[1])
	if err != nil {
		return l, fmt.Errorf("quantity: %w", err)
	}
	l.Quantity = qty
	if l.PowerW, err = parseFloat(fields[2]); err != nil {
		return l, fmt.Errorf("power_w: %w", err)
	}

	interval := false
	for _, f := range fields[3:7] {
		if strings.TrimSpace(f) != "" {
			interval = true
		}
	}
	if interval {
		var hours [4]int
		for i, f := range fields[3:7] {
			if hours[i], err = parseInt(f); err != nil {
				return l, fmt.Errorf("%s: %w", loadHeader[3+i], err)
			}
		}
		l.Schedule = engine.Intervals(hours[0], hours[1], hours[2], hours[3])
	} else {
		day, err := parseFloat(fields[7])
		if err != nil {
			return l, fmt.Errorf("day_hours: %w", err)
		}
		night, err := parseFloat(fields[8])
		if err != nil {
			return l, fmt.Errorf("night_hours: %w", err)
		}
		l.Schedule = engine.Durations(day, night)
	}

	if s := strings.TrimSpace(fields[9]); s != "" {
		if l.Enabled, err = strconv.ParseBool(s); err != nil {
			return l, fmt.Errorf("enabled: %w", err)
		}
	}
	return l, nil
}

func loadFields(l engine.ApplianceLoad) []string {
	fields := make([]string, len(loadHeader))
	fields[0] = l.Name
	fields[1] = strconv.Itoa(l.Quantity)
	fields[2] = formatFloat(l.PowerW)
	switch {
	case l.Schedule.Kind == engine.ScheduleInterval && l.Schedule.Interval != nil:
		s := l.Schedule.Interval
		fields[3] = strconv.Itoa(s.AMStart)
		fields[4] = strconv.Itoa(s.AMEnd)
		fields[5] = strconv.Itoa(s.PMStart)
		fields[6] = strconv.Itoa(s.PMEnd)
	case l.Schedule.Duration != nil:
		fields[7] = formatFloat(l.Schedule.Duration.DayHours)
		fields[8] = formatFloat(l.Schedule.Duration.NightHours)
	}
	fields[9] = strconv.FormatBool(l.Enabled)
	return fields
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
