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
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// numProcs returns the number of goroutines to use for n items.
func numProcs(n int) int {
	nprocs := runtime.GOMAXPROCS(0)
	if n < nprocs {
		nprocs = n
	}
	if nprocs < 1 {
		nprocs = 1
	}
	return nprocs
}

// parallel calls f(pp, i) for i in [0, n), with item i handled by
// goroutine pp = i mod nprocs. It returns the first error encountered;
// each goroutine stops at its own first error.
func parallel(nprocs, n int, f func(pp, i int) error) error {
	var wg sync.WaitGroup
	errs := make([]error, nprocs)
	wg.Add(nprocs)
	for pp := 0; pp < nprocs; pp++ {
		go func(pp int) {
			defer wg.Done()
			for ii := pp; ii < n; ii += nprocs {
				if err := f(pp, ii); err != nil {
					errs[pp] = err
					return
				}
			}
		}(pp)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Calculations returns a function that concurrently runs a series of calculations
// on all of the mesh cells.
func Calculations(calculators ...CellManipulator) DomainManipulator {
	return func(d *Membrane) error {
		cells := d.Mesh.Cells()
		return parallel(numProcs(len(cells)), len(cells), func(_, ii int) error {
			c := cells[ii]
			for _, f := range calculators {
				if err := f(c, d.Dt); err != nil {
					return err
				}
			}
			return nil
		})
	}
}

// ResetAccumulators starts a new iteration by clearing the accumulator and
// the iteration Summary. It must run before MembraneFlux.
func ResetAccumulators() DomainManipulator {
	return func(d *Membrane) error {
		d.Acc.Reset()
		d.Iteration++
		d.Summary = &Summary{Iteration: d.Iteration}
		return nil
	}
}

// SetTimestep sets the pseudo-time step of the host relaxation.
func SetTimestep(dt float64) DomainManipulator {
	return func(d *Membrane) error {
		if !(dt > 0) || math.IsInf(dt, 0) {
			return fmt.Errorf("permeate: invalid time step %g s", dt)
		}
		d.Dt = dt
		return nil
	}
}

// ApplySources returns a function that advances the tracked species mass
// fraction of every cell by Source×Dt/Density. The result is clamped to
// [0, 1] and the other species are rescaled so that the mass fractions
// still sum to one.
func ApplySources() DomainManipulator {
	return func(d *Membrane) error {
		t := d.Props.TrackedSpecies
		return Calculations(func(c *Cell, Δt float64) error {
			if c.Source == 0 {
				return nil
			}
			if !(c.Density > 0) {
				return &ConfigError{Zone: c.Zone.Name,
					Reason: fmt.Sprintf("cell %d has non-positive density %g", c.Row, c.Density)}
			}
			y := c.MassFractions
			old := y[t]
			y[t] = math.Max(0, math.Min(1, old+c.Source*Δt/c.Density))
			rest := 1 - old
			if rest > 0 {
				scale := (1 - y[t]) / rest
				for i := range y {
					if i != t {
						y[i] *= scale
					}
				}
				return nil
			}
			for i := range y {
				if i != t {
					y[i] = 1 - y[t]
					break
				}
			}
			return nil
		})(d)
	}
}

// SteadyStateConvergenceCheck checks whether a steady-state
// simulation is finished and sets the Done
// flag if it is. If numIterations > 0, the simulation is finished after
// that number of iterations have completed. Otherwise, the simulation has
// finished when the change in the total membrane transfer rate since the
// previous iteration is less than tolerance times the largest transfer
// rate seen so far.
func SteadyStateConvergenceCheck(numIterations int, tolerance float64) DomainManipulator {
	oldRate := math.NaN()
	var maxRate float64
	return func(d *Membrane) error {
		if numIterations > 0 {
			if d.Iteration >= numIterations {
				d.Done = true
			}
			return nil
		}
		newRate := d.Summary.TransferRate
		maxRate = math.Max(maxRate, math.Abs(newRate))
		if !math.IsNaN(oldRate) && checkConvergence(d.Log, newRate, oldRate, maxRate, tolerance) {
			d.Done = true
		}
		oldRate = newRate
		return nil
	}
}

func checkConvergence(log logrus.FieldLogger, newRate, oldRate, scale, tolerance float64) bool {
	if newRate == oldRate {
		return true
	}
	bias := (newRate - oldRate) / scale
	log.WithField("change", fmt.Sprintf("%3.2g%%", bias*100)).Debug("transfer rate difference from last iteration")
	if math.Abs(bias) > tolerance || math.IsInf(bias, 0) || math.IsNaN(bias) {
		return false
	}
	return true
}

// Log writes simulation status messages to d.Log.
func Log() DomainManipulator {
	startTime := time.Now()
	iterationTime := time.Now()
	return func(d *Membrane) error {
		d.Log.WithFields(logrus.Fields{
			"iteration":     d.Iteration,
			"walltime":      time.Since(startTime).Round(time.Millisecond).String(),
			"Δwalltime":     time.Since(iterationTime).Round(time.Microsecond).String(),
			"transfer_rate": fmt.Sprintf("%.4g", d.Summary.Rate()),
			"faces":         d.Summary.Faces,
			"skipped":       d.Summary.Skipped,
			"clamped":       d.Summary.Clamped,
		}).Info("iteration complete")
		iterationTime = time.Now()
		return nil
	}
}

// DefaultRunFuncs returns the steps of one steady-state iteration in the
// order they must run.
func DefaultRunFuncs(numIterations int, tolerance float64) []DomainManipulator {
	return []DomainManipulator{
		ResetAccumulators(),
		MembraneFlux(),
		SourceTerms(),
		MassBalance(1e-9),
		ApplySources(),
		SteadyStateConvergenceCheck(numIterations, tolerance),
		Log(),
	}
}
