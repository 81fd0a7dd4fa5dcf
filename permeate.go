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

// Package permeate simulates the transport of a single species, typically
// water vapour, across selective membranes separating two regions of a
// mesh-based flow simulation.
//
// Each membrane face carries a one-directional, pressure-driven flux
// proportional to the difference between the species partial pressures in
// the adjacent cells. The resulting mass flow is collected in an
// Accumulator and returned to the bulk equations of both sides as
// volumetric sink and source terms. The steps of an iteration are
// DomainManipulators run in order by a Membrane.
package permeate

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Version gives the version number.
const Version = "0.1.0"

// Membrane holds the current state of a membrane transport simulation.
type Membrane struct {
	Mesh  *Mesh
	Acc   *Accumulator
	Props Properties

	// InitFuncs are functions to be called in the given order
	// at the beginning of the simulation.
	InitFuncs []DomainManipulator

	// RunFuncs are functions to be called in the given order repeatedly
	// until "Done" is true. Therefore, the simulation will not end until
	// one of the RunFuncs sets "Done" to true.
	RunFuncs []DomainManipulator

	// CleanupFuncs are functions to be called in the given order
	// at the end of the simulation.
	CleanupFuncs []DomainManipulator

	// Dt is the pseudo-time step of the host relaxation [s].
	Dt float64

	// Done specifies whether the simulation is finished.
	Done bool

	// Iteration is the number of the current iteration, starting at 1.
	Iteration int

	// Summary holds diagnostics for the current iteration.
	Summary *Summary

	// Log receives status messages. It defaults to the standard logrus
	// logger.
	Log logrus.FieldLogger
}

// DomainManipulator is a class of functions that operate on the entire
// simulation.
type DomainManipulator func(d *Membrane) error

// CellManipulator is a class of functions that operate on a single cell
// using the given time step Δt [s].
type CellManipulator func(c *Cell, Δt float64) error

// Init runs the InitFuncs and prepares the accumulator. One of the
// InitFuncs must provide the mesh unless d.Mesh is already set.
func (d *Membrane) Init() error {
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	for _, f := range d.InitFuncs {
		if err := f(d); err != nil {
			return err
		}
	}
	if d.Mesh == nil {
		return fmt.Errorf("permeate: no mesh was provided during initialization")
	}
	if err := d.Props.Check(); err != nil {
		return err
	}
	if err := d.checkMembranes(); err != nil {
		return err
	}
	if d.Acc == nil {
		d.Acc = NewAccumulator(d.Mesh)
	}
	d.Summary = new(Summary)
	return nil
}

// checkMembranes verifies that every zone adjacent to a membrane can
// take part in the flux evaluation.
func (d *Membrane) checkMembranes() error {
	for _, fz := range d.Mesh.FaceZones {
		for _, z := range []*Zone{fz.Upstream, fz.Downstream} {
			if !z.Storage {
				return &ConfigError{Zone: z.Name,
					Reason: fmt.Sprintf("zone is adjacent to membrane %s but has no storage", fz.Name)}
			}
			if _, err := z.Mixture.MolecularWeight(d.Props.TrackedSpecies); err != nil {
				return fmt.Errorf("permeate: zone %s: %w", z.Name, err)
			}
		}
	}
	return nil
}

// Run carries out the simulation by running RunFuncs until Done is true.
// It stops at the first error.
func (d *Membrane) Run() error {
	for !d.Done {
		for _, f := range d.RunFuncs {
			if err := f(d); err != nil {
				return fmt.Errorf("permeate: iteration %d: %w", d.Iteration, err)
			}
		}
	}
	return nil
}

// Cleanup runs the CleanupFuncs.
func (d *Membrane) Cleanup() error {
	for _, f := range d.CleanupFuncs {
		if err := f(d); err != nil {
			return err
		}
	}
	return nil
}
