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
	"io"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"github.com/gocarina/gocsv"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// massFractionPrefix prefixes species names to form mass fraction
// variable names, e.g. Y_H2O.
const massFractionPrefix = "Y_"

// OutputOptions returns the names of the cell variables available for
// output along with their descriptions and units.
func (d *Membrane) OutputOptions() (names []string, descriptions []string, units []string) {
	names = append(names, ReactantLoss.String(), PermeateGain.String(), "PartialPressure")
	descriptions = append(descriptions, "Membrane mass flow out of the cell",
		"Membrane mass flow into the cell", "Permeating species partial pressure")
	units = append(units, "kg/s", "kg/s", "Pa")

	for _, s := range d.species() {
		names = append(names, massFractionPrefix+s)
		descriptions = append(descriptions, s+" mass fraction")
		units = append(units, "kg/kg")
	}

	t := reflect.TypeOf(Cell{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if desc := f.Tag.Get("desc"); desc != "" {
			names = append(names, f.Name)
			descriptions = append(descriptions, desc)
			units = append(units, f.Tag.Get("units"))
		}
	}
	return
}

// species returns the sorted names of all species in the mesh.
func (d *Membrane) species() []string {
	seen := make(map[string]bool)
	var o []string
	for _, z := range d.Mesh.Zones {
		for _, s := range z.Mixture.Species {
			if !seen[s.Name] {
				seen[s.Name] = true
				o = append(o, s.Name)
			}
		}
	}
	sort.Strings(o)
	return o
}

// CellValue returns the value of the named variable in cell c. Accumulator
// slots of cells without storage are zero.
func (d *Membrane) CellValue(c *Cell, name string) (float64, error) {
	switch name {
	case ReactantLoss.String(), PermeateGain.String():
		if !d.Acc.Allocated(c) {
			return 0, nil
		}
		s := ReactantLoss
		if name == PermeateGain.String() {
			s = PermeateGain
		}
		return d.Acc.Value(c, s)
	case "PartialPressure":
		return cellPartialPressure(c, d.Props)
	}
	if strings.HasPrefix(name, massFractionPrefix) {
		if i := c.Zone.Mixture.Index(strings.TrimPrefix(name, massFractionPrefix)); i >= 0 {
			return c.MassFractions[i], nil
		}
		return 0, nil
	}
	f, ok := reflect.TypeOf(*c).FieldByName(name)
	if !ok || f.Tag.Get("desc") == "" {
		return 0, fmt.Errorf("permeate: undefined variable name '%s'", name)
	}
	return reflect.ValueOf(*c).FieldByIndex(f.Index).Float(), nil
}

// Outputter is a holder for output parameters.
//
// outputVariables maps the names of the variables for which data
// should be written to expressions that define how the
// requested data should be calculated. These expressions can utilize cell
// variables, other output variables, and functions.
type Outputter struct {
	fileName string

	expressions map[string]*govaluate.EvaluableExpression
	sources     map[string]string

	// order lists the output variables so that each comes after the
	// output variables it refers to.
	order []string

	// modelVariables are the cell variables required by the expressions.
	modelVariables []string

	attributes map[string]string
}

// NewOutputter initializes a new Outputter holder and adds a set of default
// output functions. Default functions include:
//
// 'exp(x)' which applies the exponential function e^x.
//
// 'abs(x)' which returns the absolute value of x.
func NewOutputter(fileName string, outputVariables map[string]string, outputFunctions map[string]govaluate.ExpressionFunction) (*Outputter, error) {
	funcs := map[string]govaluate.ExpressionFunction{
		"exp": unaryFunc("exp", math.Exp),
		"abs": unaryFunc("abs", math.Abs),
	}
	for key, val := range outputFunctions {
		funcs[key] = val
	}

	o := &Outputter{
		fileName:    fileName,
		expressions: make(map[string]*govaluate.EvaluableExpression),
		sources:     outputVariables,
		attributes:  make(map[string]string),
	}
	for name, val := range outputVariables {
		e, err := govaluate.NewEvaluableExpressionWithFunctions(val, funcs)
		if err != nil {
			return nil, fmt.Errorf("permeate: output variable %s: %v", name, err)
		}
		o.expressions[name] = e
	}
	if err := o.sortVariables(); err != nil {
		return nil, err
	}
	return o, nil
}

func unaryFunc(name string, f func(float64) float64) govaluate.ExpressionFunction {
	return func(arg ...interface{}) (interface{}, error) {
		if len(arg) != 1 {
			return nil, fmt.Errorf("permeate: got %d arguments for function '%s', but needs 1", len(arg), name)
		}
		v, ok := arg[0].(float64)
		if !ok {
			return nil, fmt.Errorf("permeate: invalid argument %v for function '%s'", arg[0], name)
		}
		return f(v), nil
	}
}

// sortVariables orders the output variables by dependency and identifies
// the cell variables they require.
func (o *Outputter) sortVariables() error {
	names := make([]string, 0, len(o.expressions))
	for n := range o.expressions {
		names = append(names, n)
	}
	sort.Strings(names)

	const (
		unvisited = iota
		visiting
		visited
	)
	state := make(map[string]int)
	model := make(map[string]bool)
	var visit func(n string) error
	visit = func(n string) error {
		switch state[n] {
		case visiting:
			return fmt.Errorf("permeate: output variable %s refers to itself", n)
		case visited:
			return nil
		}
		state[n] = visiting
		for _, v := range o.expressions[n].Vars() {
			if _, ok := o.expressions[v]; ok {
				if err := visit(v); err != nil {
					return err
				}
			} else {
				model[v] = true
			}
		}
		state[n] = visited
		o.order = append(o.order, n)
		return nil
	}
	for _, n := range names {
		if err := visit(n); err != nil {
			return err
		}
	}
	for v := range model {
		o.modelVariables = append(o.modelVariables, v)
	}
	sort.Strings(o.modelVariables)
	return nil
}

// SetAttribute sets a global attribute to be written to the output file.
func (o *Outputter) SetAttribute(name, value string) { o.attributes[name] = value }

var outputNameRegexp = regexp.MustCompile(`^[A-Za-z]\w*$`)

// CheckOutputVars ensures the output variables can be calculated.
func (o *Outputter) CheckOutputVars() DomainManipulator {
	return func(d *Membrane) error {
		available, _, _ := d.OutputOptions()
		ok := make(map[string]bool)
		for _, n := range available {
			ok[n] = true
		}
		for _, v := range o.modelVariables {
			if !ok[v] {
				return fmt.Errorf("permeate: undefined variable name '%s'", v)
			}
		}
		for n := range o.expressions {
			if !outputNameRegexp.MatchString(n) {
				return fmt.Errorf("permeate: output variable name '%s' includes unsupported characters", n)
			}
		}
		return nil
	}
}

// Results evaluates the output variables for every cell, in Row order.
func (o *Outputter) Results(d *Membrane) (map[string][]float64, error) {
	cells := d.Mesh.Cells()
	r := make(map[string][]float64, len(o.order))
	for _, n := range o.order {
		r[n] = make([]float64, len(cells))
	}
	params := make(map[string]interface{}, len(o.modelVariables)+len(o.order))
	for i, c := range cells {
		for _, v := range o.modelVariables {
			val, err := d.CellValue(c, v)
			if err != nil {
				return nil, err
			}
			params[v] = val
		}
		for _, n := range o.order {
			v, err := o.expressions[n].Evaluate(params)
			if err != nil {
				return nil, fmt.Errorf("permeate: evaluating output variable %s: %v", n, err)
			}
			f, ok := v.(float64)
			if !ok {
				return nil, fmt.Errorf("permeate: output variable %s evaluates to %v, not a number", n, v)
			}
			params[n] = f
			r[n][i] = f
		}
	}
	return r, nil
}

// Output returns a function that writes the output variables of every
// cell to a NetCDF file, along with the cell zone and position.
func (o *Outputter) Output() DomainManipulator {
	return func(d *Membrane) error {
		results, err := o.Results(d)
		if err != nil {
			return err
		}
		cells := d.Mesh.Cells()
		zone := sparse.ZerosDense(len(cells))
		x := sparse.ZerosDense(len(cells))
		for i, c := range cells {
			x.Elements[i] = c.X
			for j, z := range d.Mesh.Zones {
				if z == c.Zone {
					zone.Elements[i] = float64(j)
				}
			}
		}

		h := cdf.NewHeader([]string{"cell"}, []int{len(cells)})
		h.AddAttribute("", "comment", "permeate membrane transport results")
		h.AddAttribute("", "version", Version)
		attrs := make([]string, 0, len(o.attributes))
		for k := range o.attributes {
			attrs = append(attrs, k)
		}
		sort.Strings(attrs)
		for _, k := range attrs {
			h.AddAttribute("", k, o.attributes[k])
		}
		var zoneNames []string
		for _, z := range d.Mesh.Zones {
			zoneNames = append(zoneNames, z.Name)
		}
		h.AddVariable("Zone", []string{"cell"}, []float64{0})
		h.AddAttribute("Zone", "description", "Zone index: "+strings.Join(zoneNames, ", "))
		h.AddVariable("X", []string{"cell"}, []float64{0})
		h.AddAttribute("X", "description", "Distance along channel")
		h.AddAttribute("X", "units", "m")

		// Sort the names so they write in the same order every time.
		names := make([]string, 0, len(results))
		for n := range results {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			h.AddVariable(n, []string{"cell"}, []float64{0})
			h.AddAttribute(n, "description", o.sources[n])
		}
		h.Define()

		ff, err := os.Create(os.ExpandEnv(o.fileName))
		if err != nil {
			return fmt.Errorf("permeate: creating output file: %v", err)
		}
		f, err := cdf.Create(ff, h) // writes the header to ff
		if err != nil {
			ff.Close()
			return err
		}
		data := map[string]*sparse.DenseArray{"Zone": zone, "X": x}
		for _, n := range names {
			a := sparse.ZerosDense(len(cells))
			copy(a.Elements, results[n])
			data[n] = a
		}
		for _, n := range append([]string{"Zone", "X"}, names...) {
			if err := writeNCF(f, n, data[n]); err != nil {
				ff.Close()
				return fmt.Errorf("permeate: writing variable %s to netcdf file: %v", n, err)
			}
		}
		if err := cdf.UpdateNumRecs(ff); err != nil {
			ff.Close()
			return err
		}
		return ff.Close()
	}
}

func writeNCF(f *cdf.File, name string, data *sparse.DenseArray) error {
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	w := f.Writer(name, start, end)
	_, err := w.Write(data.Elements)
	return err
}

// FaceRecord is one row of a membrane face report.
type FaceRecord struct {
	Membrane                  string  `csv:"Membrane"`
	Face                      int     `csv:"Face"`
	X                         float64 `csv:"X_m"`
	Skipped                   bool    `csv:"Skipped"`
	UpstreamPartialPressure   float64 `csv:"UpstreamPartialPressure_Pa"`
	DownstreamPartialPressure float64 `csv:"DownstreamPartialPressure_Pa"`
	MolarFlux                 float64 `csv:"MolarFlux_mol_m2_s"`
	MassFlux                  float64 `csv:"MassFlux_kg_m2_s"`
	MassFlow                  float64 `csv:"MassFlow_kg_s"`
	Clamped                   bool    `csv:"Clamped"`
}

// FaceRecords returns the most recent evaluation of each membrane face.
// Faces lacking an adjacent cell are marked as skipped.
func (d *Membrane) FaceRecords() []*FaceRecord {
	var o []*FaceRecord
	for _, fz := range d.Mesh.FaceZones {
		for _, f := range fz.Faces {
			r := f.Flux
			o = append(o, &FaceRecord{
				Membrane:                  fz.Name,
				Face:                      f.Index,
				X:                         f.X,
				Skipped:                   f.Upstream == nil || f.Downstream == nil,
				UpstreamPartialPressure:   r.UpstreamPartialPressure,
				DownstreamPartialPressure: r.DownstreamPartialPressure,
				MolarFlux:                 r.MolarFlux,
				MassFlux:                  r.MassFlux,
				MassFlow:                  r.MassFlow,
				Clamped:                   r.Clamped,
			})
		}
	}
	return o
}

// WriteFaceReport writes the membrane face report to w as CSV.
func (d *Membrane) WriteFaceReport(w io.Writer) error {
	return gocsv.Marshal(d.FaceRecords(), w)
}

// FaceOutput returns a function that writes the membrane face report to
// the named CSV file.
func FaceOutput(fileName string) DomainManipulator {
	return func(d *Membrane) error {
		f, err := os.Create(os.ExpandEnv(fileName))
		if err != nil {
			return fmt.Errorf("permeate: creating face report: %v", err)
		}
		if err := d.WriteFaceReport(f); err != nil {
			f.Close()
			return fmt.Errorf("permeate: writing face report: %v", err)
		}
		return f.Close()
	}
}

// ProfilePlot returns a plot of membrane mass flux against distance along
// the channel, with one line per membrane.
func (d *Membrane) ProfilePlot() (*plot.Plot, error) {
	p, err := plot.New()
	if err != nil {
		return nil, err
	}
	p.Title.Text = "Membrane mass flux"
	p.X.Label.Text = "Distance along channel (m)"
	p.Y.Label.Text = "kg/m²/s"
	var lines []interface{}
	for _, fz := range d.Mesh.FaceZones {
		var faces []*Face
		for _, f := range fz.Faces {
			if f.Upstream != nil && f.Downstream != nil {
				faces = append(faces, f)
			}
		}
		xy := make(plotter.XYs, len(faces))
		for i, f := range faces {
			xy[i].X = f.X
			xy[i].Y = f.Profile
		}
		lines = append(lines, fz.Name, xy)
	}
	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		return nil, err
	}
	p.Y.Min = 0.
	return p, nil
}

// PlotProfile returns a function that saves the membrane mass flux
// profile plot to the named image file. The format is determined by the
// file extension.
func PlotProfile(fileName string) DomainManipulator {
	return func(d *Membrane) error {
		p, err := d.ProfilePlot()
		if err != nil {
			return fmt.Errorf("permeate: creating profile plot: %v", err)
		}
		ww, hh := 5*vg.Inch, 3*vg.Inch
		wt, err := p.WriterTo(ww, hh, strings.TrimPrefix(filepath.Ext(fileName), "."))
		if err != nil {
			return fmt.Errorf("permeate: creating profile plot: %v", err)
		}
		f, err := os.Create(os.ExpandEnv(fileName))
		if err != nil {
			return fmt.Errorf("permeate: creating profile plot: %v", err)
		}
		if _, err := wt.WriteTo(f); err != nil {
			f.Close()
			return fmt.Errorf("permeate: writing profile plot: %v", err)
		}
		return f.Close()
	}
}
