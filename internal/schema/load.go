package schema

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed default_schema.yaml
var defaultSchema []byte

var yearPattern = regexp.MustCompile(`^\d{4}$`)

// ValidYear reports whether s is a four digit event year.
func ValidYear(s string) bool { return yearPattern.MatchString(s) }

type fileSchema struct {
	Settings *struct {
		Table  string            `yaml:"table"`
		Fields map[string]string `yaml:"fields"`
	} `yaml:"settings"`
	Years map[string]struct {
		Table        string            `yaml:"table"`
		Verification *bool             `yaml:"verification"`
		Fields       map[string]string `yaml:"fields"`
	} `yaml:"years"`
}

// Default returns the registry built from the embedded schema.
func Default() (*Registry, error) {
	return Parse(defaultSchema)
}

// LoadFile reads a YAML schema from path. An empty path means the embedded
// default.
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema file: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (*Registry, error) {
	var fs fileSchema
	if err := yaml.Unmarshal(b, &fs); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	if len(fs.Years) == 0 {
		return nil, fmt.Errorf("schema: no years defined")
	}

	tables := map[string]string{}
	years := make([]YearSchema, 0, len(fs.Years))
	for year, ys := range fs.Years {
		if !ValidYear(year) {
			return nil, fmt.Errorf("schema: year %q is not a 4-digit year", year)
		}
		if ys.Table == "" {
			return nil, fmt.Errorf("schema: year %s has no table id", year)
		}
		if other, dup := tables[ys.Table]; dup {
			return nil, fmt.Errorf("schema: table %s used by both %s and %s", ys.Table, other, year)
		}
		tables[ys.Table] = year

		fields, err := parseFields(ys.Fields)
		if err != nil {
			return nil, fmt.Errorf("schema: year %s: %w", year, err)
		}
		years = append(years, YearSchema{
			Year:                year,
			TableID:             ys.Table,
			Fields:              fields,
			DisableVerification: ys.Verification != nil && !*ys.Verification,
		})
	}

	var settings SettingsSchema
	if fs.Settings != nil && fs.Settings.Table != "" {
		fields, err := parseFields(fs.Settings.Fields)
		if err != nil {
			return nil, fmt.Errorf("schema: settings: %w", err)
		}
		settings = SettingsSchema{TableID: fs.Settings.Table, Fields: fields}
	}
	return NewRegistry(years, settings), nil
}

func parseFields(raw map[string]string) (map[Field]string, error) {
	out := make(map[Field]string, len(raw))
	for name, id := range raw {
		f, ok := ParseField(name)
		if !ok {
			return nil, fmt.Errorf("unknown field %q", name)
		}
		out[f] = id
	}
	return out, nil
}
