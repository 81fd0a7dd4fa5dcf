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
	"math"
	"strings"
)

// Zone and membrane names used by ChannelConfig.
const (
	ReactantZone = "reactant"
	PermeateZone = "permeate"
	MembraneZone = "membrane"
)

// ChannelConfig describes a parallel-plate membrane module: a reactant
// channel and a permeate channel of equal length and width separated by
// a membrane, each divided into Cells control volumes along its length.
type ChannelConfig struct {
	Length float64 // m
	Width  float64 // m
	Cells  int

	Reactant, Permeate ChannelSide

	// EndFaces adds an exterior membrane face at each end of the channel
	// with no permeate-side cell.
	EndFaces bool
}

// ChannelSide describes the inlet state of one side of a channel.
type ChannelSide struct {
	Mixture  string  // name of a mixture in the species catalog
	Height   float64 // m
	Pressure float64 // gauge pressure, Pa
	Density  float64 // kg/m³

	// MassFractions are keyed by species name, matched without regard
	// to case if there is no exact match. Missing species have a mass
	// fraction of zero.
	MassFractions map[string]float64
}

// Check returns an error if the configuration cannot produce a mesh.
func (cfg *ChannelConfig) Check() error {
	if !(cfg.Length > 0) || !(cfg.Width > 0) {
		return fmt.Errorf("permeate: channel length and width must be positive; got %g m and %g m",
			cfg.Length, cfg.Width)
	}
	if cfg.Cells < 1 {
		return fmt.Errorf("permeate: channel must have at least one cell; got %d", cfg.Cells)
	}
	for _, s := range []struct {
		name string
		side *ChannelSide
	}{{ReactantZone, &cfg.Reactant}, {PermeateZone, &cfg.Permeate}} {
		if !(s.side.Height > 0) {
			return fmt.Errorf("permeate: %s channel height must be positive; got %g m", s.name, s.side.Height)
		}
		if !(s.side.Density > 0) {
			return fmt.Errorf("permeate: %s density must be positive; got %g kg/m³", s.name, s.side.Density)
		}
	}
	return nil
}

func (s *ChannelSide) massFractions(mix *Mixture) ([]float64, error) {
	y := make([]float64, len(mix.Species))
	var sum float64
	for name, v := range s.MassFractions {
		i := mix.Index(name)
		if i < 0 {
			// Configuration layers may fold key case.
			for j, sp := range mix.Species {
				if strings.EqualFold(sp.Name, name) {
					i = j
				}
			}
		}
		if i < 0 {
			return nil, &ConfigError{Zone: mix.Name, Reason: fmt.Sprintf("species %s is not in the mixture", name)}
		}
		if v < 0 || v > 1 {
			return nil, &ConfigError{Zone: mix.Name, Reason: fmt.Sprintf("mass fraction of %s is %g", name, v)}
		}
		y[i] = v
		sum += v
	}
	if math.Abs(sum-1) > 1e-6 {
		return nil, &ConfigError{Zone: mix.Name, Reason: fmt.Sprintf("mass fractions sum to %g", sum)}
	}
	return y, nil
}

// Mesh creates the channel mesh using mixtures from cat.
func (cfg *ChannelConfig) Mesh(cat *Catalog) (*Mesh, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	dx := cfg.Length / float64(cfg.Cells)
	zone := func(name string, role Role, s *ChannelSide) (*Zone, error) {
		mix, err := cat.Mixture(s.Mixture)
		if err != nil {
			return nil, err
		}
		y, err := s.massFractions(mix)
		if err != nil {
			return nil, err
		}
		z := &Zone{Name: name, Role: role, Mixture: mix, Storage: true}
		for i := 0; i < cfg.Cells; i++ {
			yc := make([]float64, len(y))
			copy(yc, y)
			z.Cells = append(z.Cells, &Cell{
				X:             (float64(i) + 0.5) * dx,
				Volume:        dx * cfg.Width * s.Height,
				Pressure:      s.Pressure,
				Density:       s.Density,
				MassFractions: yc,
			})
		}
		return z, nil
	}
	r, err := zone(ReactantZone, Reactant, &cfg.Reactant)
	if err != nil {
		return nil, err
	}
	p, err := zone(PermeateZone, Permeate, &cfg.Permeate)
	if err != nil {
		return nil, err
	}
	fz := &FaceZone{Name: MembraneZone, Upstream: r, Downstream: p}
	if cfg.EndFaces {
		fz.Faces = append(fz.Faces, &Face{Upstream: r.Cells[0], X: 0})
	}
	for i := 0; i < cfg.Cells; i++ {
		fz.Faces = append(fz.Faces, &Face{
			Upstream:   r.Cells[i],
			Downstream: p.Cells[i],
			Area:       [3]float64{0, -dx * cfg.Width, 0},
			X:          r.Cells[i].X,
		})
	}
	if cfg.EndFaces {
		fz.Faces = append(fz.Faces, &Face{Upstream: r.Cells[cfg.Cells-1], X: cfg.Length})
	}
	return NewMesh([]*Zone{r, p}, []*FaceZone{fz})
}

// RegularChannel returns a function that creates the channel mesh and
// sets it as the simulation mesh.
func (cfg *ChannelConfig) RegularChannel(cat *Catalog) DomainManipulator {
	return func(d *Membrane) error {
		m, err := cfg.Mesh(cat)
		if err != nil {
			return err
		}
		d.Mesh = m
		d.Acc = nil
		return nil
	}
}

// ChannelTestData returns a small channel with a humid reactant stream
// and a drier sweep stream at equal pressure, so water permeates from the
// reactant side everywhere.
func ChannelTestData() *ChannelConfig {
	return &ChannelConfig{
		Length: 0.1,
		Width:  0.1,
		Cells:  10,
		Reactant: ChannelSide{
			Mixture:       ReactantZone,
			Height:        0.002,
			Pressure:      0,
			Density:       1.6,
			MassFractions: map[string]float64{"H2O": 0.2, "CO2": 0.8},
		},
		Permeate: ChannelSide{
			Mixture:       PermeateZone,
			Height:        0.002,
			Pressure:      0,
			Density:       1.1,
			MassFractions: map[string]float64{"H2O": 0.01, "N2": 0.99},
		},
	}
}
