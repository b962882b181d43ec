package catalog

import (
	"fmt"
	"os"

	"github.com/awaistahir/offgrid/internal/engine"
	"gopkg.in/yaml.v3"
)

// catalogFile is the YAML layout: families -> tiers -> ordered entries
type catalogFile struct {
	Families map[string]map[string][]engine.CatalogEntry `yaml:"families"`
}

type loadsFile struct {
	Loads []yamlLoad `yaml:"loads"`
}

// yamlLoad lets a file omit enabled (defaults to true) and the schedule kind
type yamlLoad struct {
	ID       string          `yaml:"id,omitempty"`
	Name     string          `yaml:"name"`
	Quantity int             `yaml:"quantity"`
	PowerW   float64         `yaml:"power_w"`
	Enabled  *bool           `yaml:"enabled,omitempty"`
	Schedule engine.Schedule `yaml:"schedule"`
}

func (y yamlLoad) load() engine.ApplianceLoad {
	l := engine.ApplianceLoad{
		ID:       y.ID,
		Name:     y.Name,
		Quantity: y.Quantity,
		PowerW:   y.PowerW,
		Enabled:  y.Enabled == nil || *y.Enabled,
		Schedule: y.Schedule,
	}
	if l.Schedule.Kind == "" {
		switch {
		case l.Schedule.Interval != nil:
			l.Schedule.Kind = engine.ScheduleInterval
		case l.Schedule.Duration != nil:
			l.Schedule.Kind = engine.ScheduleDuration
		}
	}
	return l
}

func readCatalogYAML(path string) (engine.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	c := engine.Catalog{}
	for familyName, tiers := range f.Families {
		family, ok := engine.ParseFamily(familyName)
		if !ok {
			return nil, fmt.Errorf("%s: unknown family %q", path, familyName)
		}
		for tierName, entries := range tiers {
			tier, ok := engine.ParseTier(tierName)
			if !ok {
				return nil, fmt.Errorf("%s: unknown tier %q", path, tierName)
			}
			for _, e := range entries {
				c.Add(family, tier, e)
			}
		}
	}
	return c, nil
}

func writeCatalogYAML(path string, c engine.Catalog) error {
	f := catalogFile{Families: map[string]map[string][]engine.CatalogEntry{}}
	for family, tiers := range c {
		f.Families[string(family)] = map[string][]engine.CatalogEntry{}
		for tier, entries := range tiers {
			f.Families[string(family)][string(tier)] = entries
		}
	}
	return writeYAML(path, f)
}

func readLoadsYAML(path string) ([]engine.ApplianceLoad, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var f loadsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	loads := make([]engine.ApplianceLoad, 0, len(f.Loads))
	for _, y := range f.Loads {
		loads = append(loads, y.load())
	}
	return assignIDs(loads), nil
}

func writeLoadsYAML(path string, loads []engine.ApplianceLoad) error {
	f := loadsFile{Loads: make([]yamlLoad, 0, len(loads))}
	for _, l := range loads {
		enabled := l.Enabled
		f.Loads = append(f.Loads, yamlLoad{
			ID:       l.ID,
			Name:     l.Name,
			Quantity: l.Quantity,
			PowerW:   l.PowerW,
			Enabled:  &enabled,
			Schedule: l.Schedule,
		})
	}
	return writeYAML(path, f)
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
