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
	"testing"
)

func TestSourceTerms(t *testing.T) {
	m, _, acc := twoCellMesh(t, 200, 50, [3]float64{0.01, 0, 0})
	up, down := m.Zones[0].Cells[0], m.Zones[1].Cells[0]
	if err := acc.Add(up, ReactantLoss, 4e-6); err != nil {
		t.Fatal(err)
	}
	if err := acc.Add(down, PermeateGain, 4e-6); err != nil {
		t.Fatal(err)
	}

	v, dv, err := ReactantSink(acc).Source(up)
	if err != nil {
		t.Fatal(err)
	}
	if different(v, -2e-6, 1e-12) || dv != 0 {
		t.Errorf("sink: have (%g, %g), want (-2e-6, 0)", v, dv)
	}

	v, dv, err = PermeateSource(acc).Source(down)
	if err != nil {
		t.Fatal(err)
	}
	if different(v, 4e-6, 1e-12) || dv != 0 {
		t.Errorf("source: have (%g, %g), want (4e-6, 0)", v, dv)
	}
}

func TestSourceTermsZero(t *testing.T) {
	m, _, acc := twoCellMesh(t, 200, 50, [3]float64{0.01, 0, 0})
	up, down := m.Zones[0].Cells[0], m.Zones[1].Cells[0]
	if v, _, err := ReactantSink(acc).Source(up); err != nil || v != 0 {
		t.Errorf("sink of a reset cell: %g, %v", v, err)
	}
	if v, _, err := PermeateSource(acc).Source(down); err != nil || v != 0 {
		t.Errorf("source of a reset cell: %g, %v", v, err)
	}
}

func TestSourceTermsGeometryError(t *testing.T) {
	m, _, acc := twoCellMesh(t, 200, 50, [3]float64{0.01, 0, 0})
	for _, vol := range []float64{0, -1} {
		c := m.Zones[0].Cells[0]
		c.Volume = vol
		_, _, err := ReactantSink(acc).Source(c)
		var gerr *GeometryError
		if !errors.As(err, &gerr) {
			t.Errorf("volume %g: expected GeometryError, got %v", vol, err)
		}
	}
}

func TestSourceTermsPipeline(t *testing.T) {
	m, _, acc := twoCellMesh(t, 200, 50, [3]float64{0.01, 0, 0})
	d := &Membrane{Mesh: m, Acc: acc, Props: testProps, Summary: new(Summary)}
	for _, f := range []DomainManipulator{MembraneFlux(), SourceTerms(), MassBalance(1e-12)} {
		if err := f(d); err != nil {
			t.Fatal(err)
		}
	}
	up, down := m.Zones[0].Cells[0], m.Zones[1].Cells[0]
	if different(up.Source, -2.7e-7/2, 1e-12) {
		t.Errorf("reactant source %g", up.Source)
	}
	if different(down.Source, 2.7e-7, 1e-12) {
		t.Errorf("permeate source %g", down.Source)
	}
	// The volume integrals of the two sources cancel.
	if absDifferent(up.Source*up.Volume+down.Source*down.Volume, 0, 1e-20) {
		t.Errorf("sources do not cancel: %g, %g", up.Source, down.Source)
	}
	if d.Summary.Residual() != 0 {
		t.Errorf("residual %g", d.Summary.Residual())
	}
}

func TestSourceFunc(t *testing.T) {
	var s SourceTerm = SourceFunc(func(c *Cell) (float64, float64, error) {
		return c.Volume, 1, nil
	})
	if v, dv, _ := s.Source(&Cell{Volume: 3}); v != 3 || dv != 1 {
		t.Errorf("have (%g, %g)", v, dv)
	}
}
