package entities

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed seed_catalog.yaml
var seedCatalogYAML []byte

var validate = validator.New()

var defaultSeed = MustParseSeed(seedCatalogYAML)

// DefaultSeedCatalog returns a fresh copy of the built-in catalog.
func DefaultSeedCatalog() Catalog {
	return defaultSeed.Clone()
}

// MustParseSeed is like ParseSeed but panics on error.
func MustParseSeed(data []byte) Catalog {
	c, err := ParseSeed(data)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseSeed decodes a YAML item list into a validated catalog. Items with a
// zero threshold start visible.
func ParseSeed(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	for i := range c {
		if c[i].Threshold == 0 {
			c[i].Visible = true
		}
	}
	if err := ValidateCatalog(c); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadSeedFile reads a YAML seed catalog from disk.
func LoadSeedFile(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed catalog: %w", err)
	}
	return ParseSeed(data)
}

// ValidateCatalog checks that the catalog is non-empty, that every id equals
// its position and that every item satisfies its field constraints.
func ValidateCatalog(c Catalog) error {
	if len(c) == 0 {
		return fmt.Errorf("%w: no items", ErrInvalidCatalog)
	}
	for i, item := range c {
		if item.ID != i {
			return fmt.Errorf("%w: item at position %d has id %d", ErrInvalidCatalog, i, item.ID)
		}
		if err := validate.Struct(item); err != nil {
			return fmt.Errorf("%w: item %d: %v", ErrInvalidCatalog, i, err)
		}
	}
	return nil
}
