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
	"fmt"
	"testing"
)

func TestPartialPressure(t *testing.T) {
	mix := &Mixture{Name: "humid air", Species: []Species{
		{Name: "H2O", MolecularWeight: 18},
		{Name: "N2", MolecularWeight: 28},
	}}
	y := []float64{0.1, 0.9}
	have, err := PartialPressure(mix, y, 0, 1000, 100000)
	if err != nil {
		t.Fatal(err)
	}
	want := 101000 * (0.1 / 18) / (0.1/18 + 0.9/28)
	if different(have, want, 1e-12) {
		t.Errorf("have %g, want %g", have, want)
	}
}

func TestPartialPressureErrors(t *testing.T) {
	var (
		cerr *ConfigError
		merr *MixtureError
	)
	tests := []struct {
		mix     *Mixture
		y       []float64
		tracked int
		target  interface{}
	}{
		{mix: water, y: []float64{0}, tracked: 0, target: &merr},
		{mix: water, y: []float64{1}, tracked: 1, target: &cerr},
		{mix: water, y: []float64{0.5, 0.5}, tracked: 0, target: &cerr},
		{mix: &Mixture{Name: "bad", Species: []Species{{Name: "X", MolecularWeight: 0}}},
			y: []float64{1}, tracked: 0, target: &cerr},
	}
	for i, test := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			_, err := PartialPressure(test.mix, test.y, test.tracked, 100, 0)
			if !errors.As(err, test.target) {
				t.Errorf("unexpected error %v", err)
			}
		})
	}
}

func TestMolarFlux(t *testing.T) {
	for _, dp := range []float64{-150, 0} {
		if v := MolarFlux(1e-5, dp); v != 0 {
			t.Errorf("dp=%g: flux %g should be zero", dp, v)
		}
	}
	prev := 0.
	for _, dp := range []float64{1, 10, 100, 1000} {
		v := MolarFlux(1e-5, dp)
		if !(v > prev) {
			t.Errorf("dp=%g: flux %g is not increasing", dp, v)
		}
		prev = v
	}
}

func TestEvaluateFace(t *testing.T) {
	m, f, acc := twoCellMesh(t, 200, 50, [3]float64{0.01, 0, 0})
	up, down := m.Zones[0].Cells[0], m.Zones[1].Cells[0]
	r, err := EvaluateFace(f, acc, testProps)
	if err != nil {
		t.Fatal(err)
	}
	const tol = 1e-12
	if different(r.MolarFlux, 1.5e-3, tol) {
		t.Errorf("molar flux: have %g, want 1.5e-3", r.MolarFlux)
	}
	if different(r.MassFlux, 2.7e-5, tol) || different(f.Profile, 2.7e-5, tol) {
		t.Errorf("mass flux: have %g (profile %g), want 2.7e-5", r.MassFlux, f.Profile)
	}
	if different(r.MassFlow, 2.7e-7, tol) {
		t.Errorf("mass flow: have %g, want 2.7e-7", r.MassFlow)
	}
	loss, _ := acc.Value(up, ReactantLoss)
	gain, _ := acc.Value(down, PermeateGain)
	if different(loss, 2.7e-7, tol) || loss != gain {
		t.Errorf("loss %g and gain %g should both be 2.7e-7", loss, gain)
	}
	// Slots are disjoint.
	if v, _ := acc.Value(up, PermeateGain); v != 0 {
		t.Errorf("upstream gain slot = %g", v)
	}
	if v, _ := acc.Value(down, ReactantLoss); v != 0 {
		t.Errorf("downstream loss slot = %g", v)
	}
}

func TestEvaluateFaceReverse(t *testing.T) {
	m, f, acc := twoCellMesh(t, 50, 200, [3]float64{0.01, 0, 0})
	r, err := EvaluateFace(f, acc, testProps)
	if err != nil {
		t.Fatal(err)
	}
	if r.MolarFlux != 0 || r.MassFlux != 0 || r.MassFlow != 0 || f.Profile != 0 {
		t.Errorf("back-permeation should be discarded: %+v", r)
	}
	if !r.Clamped {
		t.Error("face should be marked as clamped")
	}
	for _, c := range m.Cells() {
		for _, s := range []Slot{ReactantLoss, PermeateGain} {
			if v, _ := acc.Value(c, s); v != 0 {
				t.Errorf("cell %d slot %v = %g", c.Row, s, v)
			}
		}
	}
}

func TestEvaluateFaceEqualPressure(t *testing.T) {
	_, f, acc := twoCellMesh(t, 120, 120, [3]float64{0.01, 0, 0})
	r, err := EvaluateFace(f, acc, testProps)
	if err != nil {
		t.Fatal(err)
	}
	if r.MassFlow != 0 || r.Clamped {
		t.Errorf("equal pressures should give zero, unclamped flux: %+v", r)
	}
}

func TestEvaluateFaceMonotonic(t *testing.T) {
	prev := -1.
	for _, p := range []float64{60, 100, 200, 400} {
		_, f, acc := twoCellMesh(t, p, 50, [3]float64{0, 0.02, 0})
		r, err := EvaluateFace(f, acc, testProps)
		if err != nil {
			t.Fatal(err)
		}
		if !(r.MassFlux > prev) {
			t.Errorf("p=%g: mass flux %g is not increasing", p, r.MassFlux)
		}
		prev = r.MassFlux
	}
}

func TestEvaluateFaceDegenerate(t *testing.T) {
	_, f, acc := twoCellMesh(t, 200, 50, [3]float64{0.01, 0, 0})
	f.Downstream = nil
	f.Profile = 7
	r, err := EvaluateFace(f, acc, testProps)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Skipped || f.Profile != 7 {
		t.Errorf("face should be skipped and unchanged: %+v, profile %g", r, f.Profile)
	}
}

func TestEvaluateFaceMixtureError(t *testing.T) {
	m, f, acc := twoCellMesh(t, 200, 50, [3]float64{0.01, 0, 0})
	m.Zones[1].Cells[0].MassFractions[0] = 0
	_, err := EvaluateFace(f, acc, testProps)
	var (
		merr *MixtureError
		ferr *FaceError
	)
	if !errors.As(err, &merr) || !errors.As(err, &ferr) {
		t.Fatalf("expected MixtureError located at a face, got %v", err)
	}
	if merr.Zone != "permeate" || merr.Row != 1 || ferr.FaceZone != "membrane" {
		t.Errorf("wrong location: %v", err)
	}
	for _, c := range m.Cells() {
		for _, s := range []Slot{ReactantLoss, PermeateGain} {
			if v, _ := acc.Value(c, s); v != 0 {
				t.Errorf("cell %d slot %v = %g after failed evaluation", c.Row, s, v)
			}
		}
	}
}

// Evaluating a membrane concurrently must give the same totals as
// evaluating each face in turn.
func TestMembraneFluxAdditive(t *testing.T) {
	cfg := ChannelTestData()
	cfg.Cells = 200
	m, err := cfg.Mesh(DefaultCatalog())
	if err != nil {
		t.Fatal(err)
	}
	props := DefaultProperties()

	seq := NewAccumulator(m)
	var want float64
	for _, f := range m.Faces() {
		r, err := EvaluateFace(f, seq, props)
		if err != nil {
			t.Fatal(err)
		}
		want += r.MassFlow
	}

	d := &Membrane{Mesh: m, Acc: NewAccumulator(m), Props: props, Summary: new(Summary)}
	if err := MembraneFlux()(d); err != nil {
		t.Fatal(err)
	}
	if different(d.Summary.TransferRate, want, 1e-12) {
		t.Errorf("transfer rate: have %g, want %g", d.Summary.TransferRate, want)
	}
	for _, c := range m.Cells() {
		for _, s := range []Slot{ReactantLoss, PermeateGain} {
			a, _ := seq.Value(c, s)
			b, _ := d.Acc.Value(c, s)
			if a != b {
				t.Errorf("cell %d slot %v: sequential %g, concurrent %g", c.Row, s, a, b)
			}
		}
	}
}
