package catalog

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/awaistahir/offgrid/internal/engine"
)

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return records, nil
}

func writeCSV(path string, records [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}

func readCatalogCSV(path string) (engine.Catalog, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	expected := append([]string{"family"}, catalogHeader...)
	if len(records) == 0 || !validateHeader(records[0], expected) {
		return nil, fmt.Errorf("%w: catalog CSV expected %v", ErrHeaderMismatch, expected)
	}

	c := engine.Catalog{}
	for i, record := range records[1:] {
		if len(record) == 0 {
			continue
		}
		family, ok := engine.ParseFamily(record[0])
		if !ok {
			return nil, fmt.Errorf("catalog CSV row %d: unknown family %q", i+2, record[0])
		}
		tier, entry, err := parseEntry(record[1:])
		if err != nil {
			return nil, fmt.Errorf("catalog CSV row %d: %w", i+2, err)
		}
		c.Add(family, tier, entry)
	}
	return c, nil
}

func writeCatalogCSV(path string, c engine.Catalog) error {
	records := [][]string{append([]string{"family"}, catalogHeader...)}
	for _, f := range engine.Families {
		for _, t := range engine.Tiers {
			for _, e := range c.Entries(f, t) {
				records = append(records, append([]string{string(f)}, entryFields(t, e)...))
			}
		}
	}
	return writeCSV(path, records)
}

func readLoadsCSV(path string) ([]engine.ApplianceLoad, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || !validateHeader(records[0], loadHeader[:3]) {
		return nil, fmt.Errorf("%w: loads CSV expected %v", ErrHeaderMismatch, loadHeader)
	}

	var loads []engine.ApplianceLoad
	for i, record := range records[1:] {
		if len(record) == 0 {
			continue
		}
		l, err := parseLoad(record)
		if err != nil {
			return nil, fmt.Errorf("loads CSV row %d: %w", i+2, err)
		}
		loads = append(loads, l)
	}
	return assignIDs(loads), nil
}

// SaveLoads writes a load list to .csv, .xlsx or .yaml
func SaveLoads(path string, loads []engine.ApplianceLoad) error {
	switch ext(path) {
	case ".csv":
		records := [][]string{loadHeader}
		for _, l := range loads {
			records = append(records, loadFields(l))
		}
		return writeCSV(path, records)
	case ".xlsx":
		return writeLoadsWorkbook(path, loads)
	case ".yaml", ".yml":
		return writeLoadsYAML(path, loads)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}
