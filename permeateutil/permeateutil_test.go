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

package permeateutil

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spatialmodel/permeate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const configExample = "../cmd/permeate/configExample.toml"

// outputDir creates a temporary output directory and points the example
// configuration at it.
func outputDir(t *testing.T) string {
	dir, err := ioutil.TempDir("", "permeateutil")
	require.NoError(t, err)
	os.Setenv("PERMEATE_OUTPUT", dir)
	return dir
}

func TestVersion(t *testing.T) {
	b := new(bytes.Buffer)
	Root.SetOutput(b)
	defer Root.SetOutput(nil)
	Root.SetArgs([]string{"version"})
	require.NoError(t, Root.Execute())
	assert.Equal(t, "permeate v"+permeate.Version+"\n", b.String())
}

func TestSteady(t *testing.T) {
	dir := outputDir(t)
	defer os.RemoveAll(dir)

	Cfg.Set("config", configExample)
	Root.SetArgs([]string{"run", "steady"})
	b := new(bytes.Buffer)
	Root.SetOutput(b)
	defer Root.SetOutput(nil)
	require.NoError(t, Root.Execute())

	for _, f := range []string{"permeate.nc", "permeate.log", "faces.csv", "profile.png"} {
		fi, err := os.Stat(filepath.Join(dir, f))
		if assert.NoError(t, err, f) {
			assert.NotZero(t, fi.Size(), f)
		}
	}
	assert.Contains(t, b.String(), "fingerprint")
	assert.Contains(t, b.String(), "iteration complete")

	log, err := ioutil.ReadFile(filepath.Join(dir, "permeate.log"))
	require.NoError(t, err)
	assert.Contains(t, string(log), "Elapsed time")
}

func TestMesh(t *testing.T) {
	Cfg.Set("config", configExample)
	Root.SetArgs([]string{"mesh"})
	b := new(bytes.Buffer)
	Root.SetOutput(b)
	defer Root.SetOutput(nil)
	require.NoError(t, Root.Execute())

	out := b.String()
	assert.Contains(t, out, "reactant")
	assert.Contains(t, out, "membrane")
	// 20 interior faces and 2 exterior faces.
	lines := strings.Split(out, "\n")
	var found bool
	for _, l := range lines {
		if strings.HasPrefix(l, "membrane") {
			found = true
			assert.Contains(t, strings.Fields(l), "22")
		}
	}
	assert.True(t, found, out)
}

func TestCatalogCommand(t *testing.T) {
	Cfg.Set("config", "")
	Cfg.Set("format", "csv")
	defer Cfg.Set("format", "toml")
	Root.SetArgs([]string{"catalog"})
	b := new(bytes.Buffer)
	Root.SetOutput(b)
	defer Root.SetOutput(nil)
	require.NoError(t, Root.Execute())

	c, err := permeate.ReadCatalog(b, "csv")
	require.NoError(t, err)
	assert.Equal(t, permeate.DefaultCatalog(), c)
}

func TestChannelConfig(t *testing.T) {
	Cfg.Set("config", configExample)
	require.NoError(t, setConfig())
	c, err := ChannelConfig(Cfg)
	require.NoError(t, err)
	assert.Equal(t, 20, c.Cells)
	assert.True(t, c.EndFaces)
	assert.InDelta(t, 500, c.Reactant.Pressure, 1e-12)
	assert.Len(t, c.Permeate.MassFractions, 2)

	_, err = c.Mesh(permeate.DefaultCatalog())
	assert.NoError(t, err)
}

func TestChannelConfigFlags(t *testing.T) {
	Cfg.Set("Channel.Reactant.MassFractions", `{"H2O": 0.5, "CO2": 0.5}`)
	defer Cfg.Set("Channel.Reactant.MassFractions", `{"H2O": 0.2, "CO2": 0.8}`)
	c, err := ChannelConfig(Cfg)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"H2O": 0.5, "CO2": 0.5}, c.Reactant.MassFractions)
}

func TestChannelConfigErrors(t *testing.T) {
	Cfg.Set("Channel.Width", -1.0)
	_, err := ChannelConfig(Cfg)
	Cfg.Set("Channel.Width", 0.05)
	assert.Error(t, err)

	Cfg.Set("Channel.Reactant.MassFractions", `{"H2O": "a lot"}`)
	_, err = ChannelConfig(Cfg)
	Cfg.Set("Channel.Reactant.MassFractions", `{"H2O": 0.2, "CO2": 0.8}`)
	assert.Error(t, err)
}

func TestProperties(t *testing.T) {
	p, err := Properties(Cfg)
	require.NoError(t, err)
	assert.Equal(t, permeate.DefaultProperties(), p)

	Cfg.Set("Permeance", 0.0)
	defer Cfg.Set("Permeance", permeate.DefaultPermeance)
	_, err = Properties(Cfg)
	assert.Error(t, err)
}

func TestCatalogFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "permeateutil")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	f := filepath.Join(dir, "catalog.csv")
	require.NoError(t, ioutil.WriteFile(f, []byte("Mixture,Species,MolecularWeight\nwet,H2O,18.01528\nwet,Ar,39.948\n"), 0644))

	Cfg.Set("Catalog", f)
	defer Cfg.Set("Catalog", "")
	c, err := Catalog(Cfg)
	require.NoError(t, err)
	m, err := c.Mixture("wet")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Index("Ar"))
}

func TestCheckOutputVars(t *testing.T) {
	_, err := checkOutputVars(nil)
	assert.Error(t, err)

	os.Setenv("PERMEATE_TEST_VAR", "Y_H2O")
	v, err := checkOutputVars(map[string]string{"Water": "$PERMEATE_TEST_VAR\n* 2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Water": "Y_H2O * 2"}, v)
}

func TestCheckLogFile(t *testing.T) {
	assert.Equal(t, "out/permeate.log", checkLogFile("", "out/permeate.nc"))
	assert.Equal(t, "my.log", checkLogFile("my.log", "out/permeate.nc"))
}
