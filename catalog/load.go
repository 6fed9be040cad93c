package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a template catalog.
type File struct {
	Templates []Template `yaml:"templates"`
}

// Parse decodes YAML catalog data and registers each template into a new
// catalog. The first rejected template aborts the load.
func Parse(data []byte) (*Catalog, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	c := New()
	for _, t := range f.Templates {
		if err := c.Register(t); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// LoadFile reads a YAML catalog from path.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("templates %s: %w", path, err)
	}
	return c, nil
}
