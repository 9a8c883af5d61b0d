package analyzer

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PatternPack is a YAML document mapping pattern type names to pattern
// rows. Packs let operators add or override security checks without a
// rebuild.
type PatternPack struct {
	Patterns map[string]SecurityPattern `yaml:"patterns"`
}

// LoadPatternPack loads a pattern pack from a YAML file and validates
// every row. Returns nil pack and nil error when path is empty.
func LoadPatternPack(path string) (*PatternPack, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pattern pack: %w", err)
	}

	var pack PatternPack
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&pack); err != nil {
		return nil, fmt.Errorf("parsing pattern pack YAML: %w", err)
	}

	for name, p := range pack.Patterns {
		if len(p.Indicators) == 0 {
			return nil, fmt.Errorf("pattern %q has no indicators", name)
		}
		switch p.Severity {
		case "Critical", "High", "Medium", "Low":
		default:
			return nil, fmt.Errorf("pattern %q has unknown severity %q", name, p.Severity)
		}
	}

	return &pack, nil
}
