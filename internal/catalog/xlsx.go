package catalog

import (
	"fmt"

	"github.com/awaistahir/offgrid/internal/engine"
	"github.com/xuri/excelize/v2"
)

// LoadsSheet is the sheet holding a load list inside a workbook
const LoadsSheet = "Loads"

// readCatalogWorkbook reads one sheet per family. Sheets that are not a
// known family are ignored.
func readCatalogWorkbook(path string) (engine.Catalog, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	c := engine.Catalog{}
	for _, sheet := range f.GetSheetList() {
		family, ok := engine.ParseFamily(sheet)
		if !ok {
			continue
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %s: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		if !validateHeader(rows[0], catalogHeader) {
			return nil, fmt.Errorf("%w: sheet %s expected %v, got %v", ErrHeaderMismatch, sheet, catalogHeader, rows[0])
		}
		for i, row := range rows[1:] {
			if len(row) == 0 {
				continue
			}
			tier, entry, err := parseEntry(row)
			if err != nil {
				return nil, fmt.Errorf("sheet %s row %d: %w", sheet, i+2, err)
			}
			c.Add(family, tier, entry)
		}
	}
	return c, nil
}

func writeCatalogWorkbook(path string, c engine.Catalog) error {
	sheets := make(map[string][][]any, len(engine.Families))
	var order []string
	for _, family := range engine.Families {
		rows := [][]any{toRow(catalogHeader)}
		for _, tier := range engine.Tiers {
			for _, e := range c.Entries(family, tier) {
				rows = append(rows, []any{string(tier), e.Name, e.Capacity, e.Voltage, e.Price})
			}
		}
		sheets[string(family)] = rows
		order = append(order, string(family))
	}
	return WriteWorkbook(path, order, sheets)
}

func readLoadsWorkbook(path string) ([]engine.ApplianceLoad, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(LoadsSheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", LoadsSheet, err)
	}
	if len(rows) == 0 || !validateHeader(rows[0], loadHeader[:3]) {
		return nil, fmt.Errorf("%w: sheet %s expected %v", ErrHeaderMismatch, LoadsSheet, loadHeader)
	}

	var loads []engine.ApplianceLoad
	for i, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		l, err := parseLoad(row)
		if err != nil {
			return nil, fmt.Errorf("sheet %s row %d: %w", LoadsSheet, i+2, err)
		}
		loads = append(loads, l)
	}
	return assignIDs(loads), nil
}

func writeLoadsWorkbook(path string, loads []engine.ApplianceLoad) error {
	rows := [][]any{toRow(loadHeader)}
	for _, l := range loads {
		rows = append(rows, toRow(loadFields(l)))
	}
	return WriteWorkbook(path, []string{LoadsSheet}, map[string][][]any{LoadsSheet: rows})
}

// WriteWorkbook saves the given sheets, in order, to a new workbook
func WriteWorkbook(path string, order []string, sheets map[string][][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		idx, err := f.NewSheet(name)
		if err != nil {
			return fmt.Errorf("creating sheet %s: %w", name, err)
		}
		if i == 0 {
			f.SetActiveSheet(idx)
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				return fmt.Errorf("writing sheet %s row %d: %w", name, r+1, err)
			}
		}
	}
	// NewFile always starts with a default sheet
	if _, ok := sheets["Sheet1"]; !ok {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return fmt.Errorf("removing default sheet: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func toRow(fields []string) []any {
	row := make([]any, len(fields))
	for i, f := range fields {
		row[i] = f
	}
	return row
}
