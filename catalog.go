/*
Copyright © 2018 the permeate authors.
This file is part of permeate.

permeate is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

permeate is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with permeate.  If not, see <http://www.gnu.org/licenses/>.
*/

package permeate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gocarina/gocsv"
)

// Molecular weights [g/mol] of the species in the default catalog.
const (
	mwH2O = 18.01528
	mwCO2 = 44.0095
	mwN2  = 28.0134
)

// Catalog is a set of named mixtures.
type Catalog struct {
	Mixtures []*Mixture `toml:"Mixture"`
}

// DefaultCatalog returns a catalog with a humid carbon dioxide
// "reactant" mixture and a humid nitrogen "permeate" sweep mixture.
// Water is the first species of both.
func DefaultCatalog() *Catalog {
	return &Catalog{Mixtures: []*Mixture{
		{Name: "reactant", Species: []Species{{"H2O", mwH2O}, {"CO2", mwCO2}}},
		{Name: "permeate", Species: []Species{{"H2O", mwH2O}, {"N2", mwN2}}},
	}}
}

// Mixture returns the mixture with the given name.
func (c *Catalog) Mixture(name string) (*Mixture, error) {
	for _, m := range c.Mixtures {
		if m.Name == name {
			return m, nil
		}
	}
	return nil, &ConfigError{Zone: name, Reason: "mixture is not in the species catalog"}
}

// Check returns an error if any mixture is unnamed, duplicated, empty or
// has a species with a non-positive molecular weight.
func (c *Catalog) Check() error {
	names := make(map[string]bool)
	for _, m := range c.Mixtures {
		if m.Name == "" {
			return &ConfigError{Reason: "species catalog contains an unnamed mixture"}
		}
		if names[m.Name] {
			return &ConfigError{Zone: m.Name, Reason: "duplicate mixture in species catalog"}
		}
		names[m.Name] = true
		if len(m.Species) == 0 {
			return &ConfigError{Zone: m.Name, Reason: "mixture has no species"}
		}
		for i := range m.Species {
			if _, err := m.MolecularWeight(i); err != nil {
				return err
			}
		}
	}
	return nil
}

// catalogRecord is one row of a CSV species catalog.
type catalogRecord struct {
	Mixture         string  `csv:"Mixture"`
	Species         string  `csv:"Species"`
	MolecularWeight float64 `csv:"MolecularWeight"`
}

// ReadCatalog reads a species catalog in the given format, either "toml"
// or "csv". CSV catalogs have one row per species with the columns
// Mixture, Species and MolecularWeight; species keep their row order.
func ReadCatalog(r io.Reader, format string) (*Catalog, error) {
	c := new(Catalog)
	switch strings.ToLower(format) {
	case "toml":
		if _, err := toml.DecodeReader(r, c); err != nil {
			return nil, fmt.Errorf("permeate: reading species catalog: %v", err)
		}
	case "csv":
		var rows []*catalogRecord
		if err := gocsv.Unmarshal(r, &rows); err != nil {
			return nil, fmt.Errorf("permeate: reading species catalog: %v", err)
		}
		index := make(map[string]*Mixture)
		for _, row := range rows {
			m, ok := index[row.Mixture]
			if !ok {
				m = &Mixture{Name: row.Mixture}
				index[row.Mixture] = m
				c.Mixtures = append(c.Mixtures, m)
			}
			m.Species = append(m.Species, Species{Name: row.Species, MolecularWeight: row.MolecularWeight})
		}
	default:
		return nil, fmt.Errorf("permeate: invalid species catalog format %q", format)
	}
	if err := c.Check(); err != nil {
		return nil, err
	}
	return c, nil
}

// ReadCatalogFile reads a species catalog from a file whose format is
// given by its extension (.toml or .csv).
func ReadCatalogFile(filename string) (*Catalog, error) {
	f, err := os.Open(os.ExpandEnv(filename))
	if err != nil {
		return nil, fmt.Errorf("permeate: opening species catalog: %v", err)
	}
	defer f.Close()
	return ReadCatalog(f, strings.TrimPrefix(filepath.Ext(filename), "."))
}

// Write writes the catalog to w in the given format, "toml" or "csv".
func (c *Catalog) Write(w io.Writer, format string) error {
	switch strings.ToLower(format) {
	case "toml":
		return toml.NewEncoder(w).Encode(c)
	case "csv":
		var rows []*catalogRecord
		for _, m := range c.Mixtures {
			for _, s := range m.Species {
				rows = append(rows, &catalogRecord{Mixture: m.Name, Species: s.Name, MolecularWeight: s.MolecularWeight})
			}
		}
		return gocsv.Marshal(rows, w)
	default:
		return fmt.Errorf("permeate: invalid species catalog format %q", format)
	}
}
