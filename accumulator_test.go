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
	"errors"
	"math"
	"sync"
	"testing"
)

func TestAccumulatorReset(t *testing.T) {
	m, _, acc := twoCellMesh(t, 200, 50, [3]float64{0.01, 0, 0})
	up, down := m.Zones[0].Cells[0], m.Zones[1].Cells[0]
	for _, c := range []*Cell{up, down} {
		for _, s := range []Slot{ReactantLoss, PermeateGain} {
			if err := acc.Add(c, s, 3.5); err != nil {
				t.Fatal(err)
			}
		}
	}
	// Resetting twice must give the same result as resetting once.
	for i := 0; i < 2; i++ {
		acc.Reset()
		for _, c := range []*Cell{up, down} {
			for _, s := range []Slot{ReactantLoss, PermeateGain} {
				v, err := acc.Value(c, s)
				if err != nil {
					t.Fatal(err)
				}
				if v != 0 {
					t.Errorf("reset %d: cell %d slot %v = %g", i, c.Row, s, v)
				}
			}
		}
	}
}

func TestAccumulatorNoStorage(t *testing.T) {
	bulk := &Cell{Volume: 1, MassFractions: []float64{1}}
	z := &Zone{Name: "bulk", Mixture: water, Cells: []*Cell{bulk}}
	m, err := NewMesh([]*Zone{z}, nil)
	if err != nil {
		t.Fatal(err)
	}
	acc := NewAccumulator(m)
	acc.Reset() // skips the zone silently

	var cerr *ConfigError
	if err := acc.Add(bulk, ReactantLoss, 1); !errors.As(err, &cerr) {
		t.Errorf("Add: expected ConfigError, got %v", err)
	}
	if _, err := acc.Value(bulk, PermeateGain); !errors.As(err, &cerr) {
		t.Errorf("Value: expected ConfigError, got %v", err)
	}
	if acc.Allocated(bulk) {
		t.Error("cell should not have storage")
	}
}

func TestAccumulatorNonFinite(t *testing.T) {
	m, _, acc := twoCellMesh(t, 200, 50, [3]float64{0.01, 0, 0})
	c := m.Zones[0].Cells[0]
	for _, v := range []float64{math.NaN(), math.Inf(1)} {
		if err := acc.Add(c, ReactantLoss, v); err == nil {
			t.Errorf("adding %g should fail", v)
		}
	}
	if v, _ := acc.Value(c, ReactantLoss); v != 0 {
		t.Errorf("slot should be unchanged, got %g", v)
	}
}

// Concurrent additions must total the same as sequential additions.
func TestAccumulatorConcurrent(t *testing.T) {
	const (
		goroutines = 16
		adds       = 1000
	)
	m, _, acc := twoCellMesh(t, 200, 50, [3]float64{0.01, 0, 0})
	c := m.Zones[0].Cells[0]
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < adds; i++ {
				if err := acc.Add(c, ReactantLoss, 0.25); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()
	v, err := acc.Value(c, ReactantLoss)
	if err != nil {
		t.Fatal(err)
	}
	if want := 0.25 * goroutines * adds; v != want {
		t.Errorf("have %g, want %g", v, want)
	}
	if v, _ := acc.Value(c, PermeateGain); v != 0 {
		t.Errorf("other slot changed to %g", v)
	}
}

func TestAccumulatorPhases(t *testing.T) {
	m, _, acc := twoCellMesh(t, 200, 50, [3]float64{0.01, 0, 0})
	d := &Membrane{Mesh: m, Acc: acc, Props: testProps, Summary: new(Summary)}
	if err := SourceTerms()(d); err == nil {
		t.Error("reading sources before flux evaluation should fail")
	}
	if err := MembraneFlux()(d); err != nil {
		t.Fatal(err)
	}
	if err := MembraneFlux()(d); err == nil {
		t.Error("evaluating flux twice without a reset should fail")
	}
	if err := SourceTerms()(d); err != nil {
		t.Error(err)
	}
	if err := ResetAccumulators()(d); err != nil {
		t.Fatal(err)
	}
	if err := MembraneFlux()(d); err != nil {
		t.Error(err)
	}
}
