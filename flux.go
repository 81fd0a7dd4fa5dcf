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
)

// Compiled-in defaults.
const (
	// DefaultPermeance is the membrane permeance [mol/(m² s Pa)].
	DefaultPermeance = 1e-5

	// DefaultTrackedSpecies is the index of the permeating species in
	// each side's mixture.
	DefaultTrackedSpecies = 0

	// DefaultOperatingPressure [Pa] is added to cell gauge pressures.
	DefaultOperatingPressure = 101325.
)

const gPerKg = 1000.

// Properties holds the global membrane configuration.
type Properties struct {
	// OperatingPressure [Pa] converts gauge to absolute pressure.
	OperatingPressure float64

	// Permeance [mol/(m² s Pa)] relates the partial pressure
	// difference to the molar flux.
	Permeance float64

	// TrackedSpecies is the index of the permeating species.
	TrackedSpecies int
}

// DefaultProperties returns the compiled-in membrane configuration.
func DefaultProperties() Properties {
	return Properties{
		OperatingPressure: DefaultOperatingPressure,
		Permeance:         DefaultPermeance,
		TrackedSpecies:    DefaultTrackedSpecies,
	}
}

// Check returns an error if the properties are not usable.
func (p Properties) Check() error {
	if !(p.Permeance > 0) || math.IsInf(p.Permeance, 0) {
		return &ConfigError{Reason: fmt.Sprintf("permeance must be positive and finite, got %g", p.Permeance)}
	}
	if math.IsNaN(p.OperatingPressure) || math.IsInf(p.OperatingPressure, 0) {
		return &ConfigError{Reason: fmt.Sprintf("invalid operating pressure %g", p.OperatingPressure)}
	}
	if p.TrackedSpecies < 0 {
		return &ConfigError{Reason: fmt.Sprintf("invalid tracked species index %d", p.TrackedSpecies)}
	}
	return nil
}

// PartialPressure returns the partial pressure [Pa] of species tracked in
// a mixture with mass fractions y at gauge pressure p:
//
//	(p + pOp) × (y[t]/M[t]) / Σ(y[i]/M[i])
func PartialPressure(mix *Mixture, y []float64, tracked int, p, pOp float64) (float64, error) {
	if len(y) != len(mix.Species) {
		return 0, &ConfigError{Zone: mix.Name, Reason: fmt.Sprintf(
			"%d mass fractions for %d species", len(y), len(mix.Species))}
	}
	mwt, err := mix.MolecularWeight(tracked)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i, s := range mix.Species {
		if !(s.MolecularWeight > 0) {
			return 0, &ConfigError{Zone: mix.Name, Reason: fmt.Sprintf(
				"species %s has non-positive molecular weight %g", s.Name, s.MolecularWeight)}
		}
		sum += y[i] / s.MolecularWeight
	}
	if sum == 0 {
		return 0, &MixtureError{Row: -1, Zone: mix.Name, Reason: "sum of mass fraction over molecular weight is zero"}
	}
	pp := (p + pOp) * (y[tracked] / mwt) / sum
	if math.IsNaN(pp) || math.IsInf(pp, 0) {
		return 0, &MixtureError{Row: -1, Zone: mix.Name, Reason: fmt.Sprintf("non-finite partial pressure %g", pp)}
	}
	return pp, nil
}

// MolarFlux returns the molar flux [mol/(m² s)] driven by the partial
// pressure difference dp [Pa]. Transport is one-directional: the flux is
// zero unless dp is positive.
func MolarFlux(permeance, dp float64) float64 {
	if dp > 0 {
		return permeance * dp
	}
	return 0
}

// FaceFlux holds the result of evaluating one membrane face.
type FaceFlux struct {
	// Skipped is true for faces lacking an adjacent cell.
	Skipped bool

	UpstreamPartialPressure   float64 // Pa
	DownstreamPartialPressure float64 // Pa

	MolarFlux float64 // mol/(m² s)
	MassFlux  float64 // kg/(m² s)
	MassFlow  float64 // kg/s

	// Clamped is true when the partial pressure difference was negative
	// and the back-permeation was discarded.
	Clamped bool
}

// cellPartialPressure evaluates PartialPressure for a cell, attaching its
// identity to any error.
func cellPartialPressure(c *Cell, props Properties) (float64, error) {
	pp, err := PartialPressure(c.Zone.Mixture, c.MassFractions, props.TrackedSpecies,
		c.Pressure, props.OperatingPressure)
	switch e := err.(type) {
	case nil:
	case *MixtureError:
		e.Row = c.Row
		e.Zone = c.Zone.Name
	case *ConfigError:
		e.Zone = c.Zone.Name + "/" + c.Zone.Mixture.Name
	}
	return pp, err
}

// EvaluateFace computes the permeating species flux across f, sets
// f.Profile and f.Flux, and adds the resulting mass flow to the
// ReactantLoss slot of the upstream cell and the PermeateGain slot of the
// downstream cell. Faces lacking either cell are skipped and left
// unchanged. Nothing is written unless the evaluation succeeds.
func EvaluateFace(f *Face, acc *Accumulator, props Properties) (FaceFlux, error) {
	if f.Upstream == nil || f.Downstream == nil {
		return FaceFlux{Skipped: true}, nil
	}
	wrap := func(err error) error {
		var name string
		if f.Zone != nil {
			name = f.Zone.Name
		}
		return &FaceError{FaceZone: name, Face: f.Index, Err: err}
	}
	up, down := f.Upstream, f.Downstream
	if !acc.Allocated(up) {
		return FaceFlux{}, wrap(&ConfigError{Zone: up.Zone.Name, Reason: "upstream zone has no accumulator storage"})
	}
	if !acc.Allocated(down) {
		return FaceFlux{}, wrap(&ConfigError{Zone: down.Zone.Name, Reason: "downstream zone has no accumulator storage"})
	}

	var r FaceFlux
	var err error
	if r.UpstreamPartialPressure, err = cellPartialPressure(up, props); err != nil {
		return FaceFlux{}, wrap(err)
	}
	if r.DownstreamPartialPressure, err = cellPartialPressure(down, props); err != nil {
		return FaceFlux{}, wrap(err)
	}
	mw, err := up.Zone.Mixture.MolecularWeight(props.TrackedSpecies)
	if err != nil {
		return FaceFlux{}, wrap(err)
	}

	dp := r.UpstreamPartialPressure - r.DownstreamPartialPressure
	r.Clamped = dp < 0
	r.MolarFlux = MolarFlux(props.Permeance, dp)
	r.MassFlux = r.MolarFlux * mw / gPerKg
	r.MassFlow = r.MassFlux * f.AreaMagnitude()
	if math.IsNaN(r.MassFlow) || math.IsInf(r.MassFlow, 0) {
		return FaceFlux{}, wrap(fmt.Errorf("non-finite mass flow %g", r.MassFlow))
	}

	f.Profile = r.MassFlux
	f.Flux = r
	if err := acc.Add(up, ReactantLoss, r.MassFlow); err != nil {
		return r, wrap(err)
	}
	if err := acc.Add(down, PermeateGain, r.MassFlow); err != nil {
		return r, wrap(err)
	}
	return r, nil
}

// MembraneFlux returns a function that evaluates every membrane face of
// the mesh concurrently and records the totals in the iteration Summary.
// The accumulator must have been reset since it was last filled.
func MembraneFlux() DomainManipulator {
	return func(d *Membrane) error {
		if err := d.Acc.begin(); err != nil {
			return err
		}
		faces := d.Mesh.Faces()
		nprocs := numProcs(len(faces))
		partial := make([]Summary, nprocs)
		err := parallel(nprocs, len(faces), func(pp, i int) error {
			r, err := EvaluateFace(faces[i], d.Acc, d.Props)
			if err != nil {
				return err
			}
			partial[pp].addFace(r)
			return nil
		})
		if err != nil {
			return err
		}
		d.Acc.complete()
		for _, s := range partial {
			d.Summary.merge(s)
		}
		return nil
	}
}
