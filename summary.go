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

	"github.com/ctessum/unit"
	"gonum.org/v1/gonum/floats"
)

// kgPerSecond is the dimension of a mass flow rate.
var kgPerSecond = unit.Dimensions{unit.MassDim: 1, unit.TimeDim: -1}

// Summary holds diagnostics for one iteration.
type Summary struct {
	Iteration int

	// Faces is the number of membrane faces evaluated; Skipped faces
	// lacked an adjacent cell and Clamped faces had a negative partial
	// pressure difference that was discarded.
	Faces, Skipped, Clamped int

	// TransferRate is the total mass flow across all membranes [kg/s].
	TransferRate float64

	// Loss and Gain are the accumulator totals [kg/s] on the
	// reactant and permeate sides.
	Loss, Gain float64
}

func (s *Summary) addFace(r FaceFlux) {
	if r.Skipped {
		s.Skipped++
		return
	}
	s.Faces++
	if r.Clamped {
		s.Clamped++
	}
	s.TransferRate += r.MassFlow
}

func (s *Summary) merge(o Summary) {
	s.Faces += o.Faces
	s.Skipped += o.Skipped
	s.Clamped += o.Clamped
	s.TransferRate += o.TransferRate
}

// Rate returns the total transfer rate as a dimensioned quantity.
func (s *Summary) Rate() *unit.Unit {
	return unit.New(s.TransferRate, kgPerSecond)
}

// Residual returns the mass-balance residual Loss - Gain [kg/s], which
// is zero to within rounding.
func (s *Summary) Residual() float64 {
	return s.Loss - s.Gain
}

func (s *Summary) String() string {
	return fmt.Sprintf("iteration %d: %d faces (%d skipped, %d clamped), transfer rate %.4g, residual %.3g kg/s",
		s.Iteration, s.Faces, s.Skipped, s.Clamped, s.Rate(), s.Residual())
}

// MassBalance returns a function that totals the accumulator slots
// into the iteration Summary. It returns an error if the totals differ
// by more than the relative tolerance.
func MassBalance(tolerance float64) DomainManipulator {
	return func(d *Membrane) error {
		if err := d.Acc.ready(); err != nil {
			return err
		}
		d.Summary.Loss = floats.Sum(d.Acc.Totals(ReactantLoss))
		d.Summary.Gain = floats.Sum(d.Acc.Totals(PermeateGain))
		if !floats.EqualWithinRel(d.Summary.Loss, d.Summary.Gain, tolerance) {
			return fmt.Errorf("permeate: mass balance residual %g kg/s exceeds tolerance (loss %g, gain %g)",
				d.Summary.Residual(), d.Summary.Loss, d.Summary.Gain)
		}
		return nil
	}
}
