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
	"sync/atomic"
)

// Slot identifies one of the two per-cell accumulator values.
type Slot int

// Accumulator slots. A reactant-side cell only uses ReactantLoss and a
// permeate-side cell only uses PermeateGain.
const (
	ReactantLoss Slot = iota // mass flow leaving the cell [kg/s]
	PermeateGain             // mass flow entering the cell [kg/s]
	numSlots
)

func (s Slot) String() string {
	switch s {
	case ReactantLoss:
		return "ReactantLoss"
	case PermeateGain:
		return "PermeateGain"
	default:
		return fmt.Sprintf("Slot(%d)", int(s))
	}
}

// Pipeline phases of an Accumulator.
const (
	phaseReset int32 = iota
	phaseAccumulating
	phaseComplete
)

// Accumulator holds the membrane mass flow collected into each cell during
// a single iteration. It is indexed by Cell.Row. Additions are atomic, so
// faces may be evaluated concurrently and in any order.
type Accumulator struct {
	zones   []*Zone
	storage []bool   // per row
	bits    []uint64 // float64 bit patterns, numSlots per row
	phase   int32
}

// NewAccumulator allocates accumulator storage for every cell of m whose
// zone has Storage set.
func NewAccumulator(m *Mesh) *Accumulator {
	a := &Accumulator{
		zones:   m.Zones,
		storage: make([]bool, len(m.Cells())),
		bits:    make([]uint64, len(m.Cells())*int(numSlots)),
	}
	for _, z := range m.Zones {
		if !z.Storage {
			continue
		}
		for _, c := range z.Cells {
			a.storage[c.Row] = true
		}
	}
	return a
}

// Reset sets both slots of every cell in every zone with storage to zero.
// Zones without storage are skipped.
func (a *Accumulator) Reset() {
	for _, z := range a.zones {
		if !z.Storage {
			continue
		}
		for _, c := range z.Cells {
			i := c.Row * int(numSlots)
			for s := 0; s < int(numSlots); s++ {
				atomic.StoreUint64(&a.bits[i+s], 0)
			}
		}
	}
	atomic.StoreInt32(&a.phase, phaseReset)
}

// Allocated returns whether c has accumulator storage.
func (a *Accumulator) Allocated(c *Cell) bool {
	return c.Row >= 0 && c.Row < len(a.storage) && a.storage[c.Row]
}

func (a *Accumulator) index(c *Cell, s Slot) (int, error) {
	if s < 0 || s >= numSlots {
		return 0, fmt.Errorf("permeate: invalid accumulator slot %d", int(s))
	}
	if !a.Allocated(c) {
		var zone string
		if c.Zone != nil {
			zone = c.Zone.Name
		}
		return 0, &ConfigError{Zone: zone,
			Reason: fmt.Sprintf("cell %d has no accumulator storage", c.Row)}
	}
	return c.Row*int(numSlots) + int(s), nil
}

// Add adds v to slot s of cell c.
func (a *Accumulator) Add(c *Cell, s Slot, v float64) error {
	i, err := a.index(c, s)
	if err != nil {
		return err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("permeate: non-finite accumulator increment %g for cell %d", v, c.Row)
	}
	p := &a.bits[i]
	for {
		old := atomic.LoadUint64(p)
		sum := math.Float64bits(math.Float64frombits(old) + v)
		if atomic.CompareAndSwapUint64(p, old, sum) {
			return nil
		}
	}
}

// Value returns the current contents of slot s of cell c.
func (a *Accumulator) Value(c *Cell, s Slot) (float64, error) {
	i, err := a.index(c, s)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(atomic.LoadUint64(&a.bits[i])), nil
}

// Totals returns the values of slot s for every cell with storage.
func (a *Accumulator) Totals(s Slot) []float64 {
	var o []float64
	for row, ok := range a.storage {
		if ok {
			o = append(o, math.Float64frombits(atomic.LoadUint64(&a.bits[row*int(numSlots)+int(s)])))
		}
	}
	return o
}

// begin marks the start of flux accumulation. It fails unless the
// accumulator has been reset since it was last filled.
func (a *Accumulator) begin() error {
	if !atomic.CompareAndSwapInt32(&a.phase, phaseReset, phaseAccumulating) {
		return fmt.Errorf("permeate: accumulator was not reset before flux evaluation")
	}
	return nil
}

// complete marks the end of flux accumulation.
func (a *Accumulator) complete() { atomic.StoreInt32(&a.phase, phaseComplete) }

// ready returns an error unless flux accumulation has completed for the
// current iteration.
func (a *Accumulator) ready() error {
	if atomic.LoadInt32(&a.phase) != phaseComplete {
		return fmt.Errorf("permeate: accumulator read before flux evaluation completed")
	}
	return nil
}
