package main

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

//go:embed data/neighborhoods.yaml
var defaultCatalog []byte

// Catalog is the city to neighborhoods table of the selection form.
type Catalog struct {
	cities map[string][]string
	// lowercase name -> canonical name
	index map[string]string
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var cities map[string][]string
	if err := yaml.Unmarshal(data, &cities); err != nil {
		return nil, fmt.Errorf("parse neighborhood catalog: %w", err)
	}
	c := &Catalog{cities: make(map[string][]string, len(cities)), index: make(map[string]string, len(cities))}
	for city, hoods := range cities {
		c.cities[city] = lo.Uniq(hoods)
		c.index[foldName(city)] = city
	}
	return c, nil
}

// LoadCatalog reads the catalog from path, or the embedded one when path
// is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return ParseCatalog(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCatalog(data)
}

func foldName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Cities lists the known cities in order.
func (c *Catalog) Cities() []string {
	cities := lo.Keys(c.cities)
	sort.Strings(cities)
	return cities
}

// Neighborhoods of city, matched ignoring case and spacing. An unknown city
// has none.
func (c *Catalog) Neighborhoods(city string) []string {
	name, ok := c.index[foldName(city)]
	if !ok {
		return []string{}
	}
	return append([]string(nil), c.cities[name]...)
}

// City returns the canonical spelling of city.
func (c *Catalog) City(city string) (string, bool) {
	name, ok := c.index[foldName(city)]
	return name, ok
}
