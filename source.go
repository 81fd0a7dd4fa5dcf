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

// SourceTerm computes a volumetric source of the permeating species for a
// cell, returning the source [kg/(m³ s)] and its derivative with respect to
// the species mass fraction.
type SourceTerm interface {
	Source(c *Cell) (value, derivative float64, err error)
}

// SourceFunc adapts a function to the SourceTerm interface.
type SourceFunc func(c *Cell) (value, derivative float64, err error)

// Source calls f(c).
func (f SourceFunc) Source(c *Cell) (float64, float64, error) { return f(c) }

// ReactantSink returns the sink on the upstream side of a membrane:
// the accumulated ReactantLoss divided by the cell volume, negated.
// The derivative is zero, so the host treats the term explicitly.
func ReactantSink(acc *Accumulator) SourceTerm {
	return slotSource(acc, ReactantLoss, -1)
}

// PermeateSource returns the source on the downstream side of a membrane:
// the accumulated PermeateGain divided by the cell volume.
func PermeateSource(acc *Accumulator) SourceTerm {
	return slotSource(acc, PermeateGain, 1)
}

func slotSource(acc *Accumulator, s Slot, sign float64) SourceTerm {
	return SourceFunc(func(c *Cell) (float64, float64, error) {
		if !(c.Volume > 0) {
			var zone string
			if c.Zone != nil {
				zone = c.Zone.Name
			}
			return 0, 0, &GeometryError{Zone: zone, Row: c.Row, Volume: c.Volume}
		}
		v, err := acc.Value(c, s)
		if err != nil {
			return 0, 0, err
		}
		return sign * v / c.Volume, 0, nil
	})
}

// SourceTerms returns a function that sets Source and DSource of every
// cell: the reactant sink in Reactant zones, the permeate source in
// Permeate zones and zero elsewhere. Flux evaluation must have completed
// for the current iteration.
func SourceTerms() DomainManipulator {
	return func(d *Membrane) error {
		if err := d.Acc.ready(); err != nil {
			return err
		}
		sink, source := ReactantSink(d.Acc), PermeateSource(d.Acc)
		return Calculations(func(c *Cell, _ float64) error {
			var term SourceTerm
			switch c.Zone.Role {
			case Reactant:
				term = sink
			case Permeate:
				term = source
			default:
				c.Source, c.DSource = 0, 0
				return nil
			}
			var err error
			c.Source, c.DSource, err = term.Source(c)
			return err
		})(d)
	}
}
