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

	"gonum.org/v1/gonum/floats"
)

// Species is a chemical species with its molecular weight [g/mol].
type Species struct {
	Name            string
	MolecularWeight float64
}

// Mixture is a named set of species. Cell mass fractions are indexed
// like Species.
type Mixture struct {
	Name    string
	Species []Species
}

// MolecularWeight returns the molecular weight [g/mol] of species i.
func (m *Mixture) MolecularWeight(i int) (float64, error) {
	if i < 0 || i >= len(m.Species) {
		return 0, &ConfigError{Zone: m.Name,
			Reason: fmt.Sprintf("species index %d out of range for %d species", i, len(m.Species))}
	}
	mw := m.Species[i].MolecularWeight
	if !(mw > 0) {
		return 0, &ConfigError{Zone: m.Name,
			Reason: fmt.Sprintf("species %s has non-positive molecular weight %g", m.Species[i].Name, mw)}
	}
	return mw, nil
}

// Index returns the index of the named species, or -1 if the mixture
// does not contain it.
func (m *Mixture) Index(name string) int {
	for i, s := range m.Species {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// Role identifies which side of the membrane a zone is on.
type Role int

// Zone roles.
const (
	Bulk     Role = iota // not adjacent to a membrane
	Reactant             // upstream side, loses the permeating species
	Permeate             // downstream side, gains the permeating species
)

func (r Role) String() string {
	switch r {
	case Reactant:
		return "reactant"
	case Permeate:
		return "permeate"
	default:
		return "bulk"
	}
}

// Zone is a group of cells sharing a mixture.
type Zone struct {
	Name    string
	Role    Role
	Mixture *Mixture

	// Storage specifies whether the zone's cells have accumulator slots.
	Storage bool

	Cells []*Cell
}

// Cell is a control volume of the host mesh.
type Cell struct {
	// Row is the stable handle of the cell within its Mesh.
	Row  int
	Zone *Zone

	// X is the position of the cell centroid along the channel.
	X float64 `desc:"Distance along channel" units:"m"`

	Volume   float64 `desc:"Cell volume" units:"m³"`
	Pressure float64 `desc:"Gauge pressure" units:"Pa"`
	Density  float64 `desc:"Mixture density" units:"kg/m³"`

	// MassFractions are indexed like Zone.Mixture.Species.
	MassFractions []float64

	Source  float64 `desc:"Permeating species volumetric source" units:"kg/m³/s"`
	DSource float64 `desc:"Source derivative with respect to mass fraction" units:"kg/m³/s"`
}

// Face is an interface element of a membrane.
type Face struct {
	Index int
	Zone  *FaceZone

	// Upstream and Downstream are the adjacent cells. Either may be nil
	// on exterior faces, which are skipped.
	Upstream, Downstream *Cell

	// Area is the face area vector [m²].
	Area [3]float64

	// X is the position of the face centroid along the channel [m].
	X float64

	// Profile is the mass flux of the permeating species [kg/m²/s]
	// written by the most recent evaluation.
	Profile float64

	// Flux holds the details of the most recent evaluation.
	Flux FaceFlux
}

// AreaMagnitude returns the Euclidean norm of the face area vector [m²].
func (f *Face) AreaMagnitude() float64 {
	return floats.Norm(f.Area[:], 2)
}

// FaceZone is a membrane: a set of faces separating an upstream zone
// from a downstream zone.
type FaceZone struct {
	Name                 string
	Upstream, Downstream *Zone
	Faces                []*Face
}

// Mesh holds the zones and membranes of a simulation.
type Mesh struct {
	Zones     []*Zone
	FaceZones []*FaceZone

	cells []*Cell
	faces []*Face
}

// NewMesh links the given zones and face zones into a Mesh, assigning
// each cell a stable row handle in zone order.
func NewMesh(zones []*Zone, faceZones []*FaceZone) (*Mesh, error) {
	m := &Mesh{Zones: zones, FaceZones: faceZones}
	names := make(map[string]bool)
	for _, z := range zones {
		if names[z.Name] {
			return nil, &ConfigError{Zone: z.Name, Reason: "duplicate zone name"}
		}
		names[z.Name] = true
		if z.Mixture == nil {
			return nil, &ConfigError{Zone: z.Name, Reason: "zone has no mixture"}
		}
		for _, c := range z.Cells {
			if len(c.MassFractions) != len(z.Mixture.Species) {
				return nil, &ConfigError{Zone: z.Name, Reason: fmt.Sprintf(
					"cell has %d mass fractions but mixture %s has %d species",
					len(c.MassFractions), z.Mixture.Name, len(z.Mixture.Species))}
			}
			c.Zone = z
			c.Row = len(m.cells)
			m.cells = append(m.cells, c)
		}
	}
	for _, fz := range faceZones {
		if fz.Upstream == nil || fz.Downstream == nil ||
			!names[fz.Upstream.Name] || !names[fz.Downstream.Name] {
			return nil, &ConfigError{Zone: fz.Name, Reason: "face zone refers to a zone outside the mesh"}
		}
		for i, f := range fz.Faces {
			f.Zone = fz
			f.Index = i
			if f.Upstream != nil && f.Upstream.Zone != fz.Upstream {
				return nil, &ConfigError{Zone: fz.Name,
					Reason: fmt.Sprintf("face %d upstream cell is not in zone %s", i, fz.Upstream.Name)}
			}
			if f.Downstream != nil && f.Downstream.Zone != fz.Downstream {
				return nil, &ConfigError{Zone: fz.Name,
					Reason: fmt.Sprintf("face %d downstream cell is not in zone %s", i, fz.Downstream.Name)}
			}
			m.faces = append(m.faces, f)
		}
	}
	return m, nil
}

// Cells returns all cells in the mesh, ordered by Row.
func (m *Mesh) Cells() []*Cell { return m.cells }

// Faces returns all membrane faces in the mesh.
func (m *Mesh) Faces() []*Face { return m.faces }

// Zone returns the zone with the given name, or nil.
func (m *Mesh) Zone(name string) *Zone {
	for _, z := range m.Zones {
		if z.Name == name {
			return z
		}
	}
	return nil
}
