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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/permeate"
	"github.com/spf13/cast"
)

// checkOutputVars removes end lines and expands environment
// variables in the output variables.
func checkOutputVars(vars map[string]string) (map[string]string, error) {
	if len(vars) == 0 {
		return nil, fmt.Errorf("there are no variables specified for output. Please fill in " +
			"the OutputVariables configuration and try again.")
	}
	o := make(map[string]string, len(vars))
	for k, v := range vars {
		v = strings.Replace(v, "\r\n", " ", -1)
		v = strings.Replace(v, "\n", " ", -1)
		o[os.ExpandEnv(k)] = os.ExpandEnv(v)
	}
	return o, nil
}

// expandPath expands any environment variables in a file path.
func expandPath(f string) string { return os.ExpandEnv(f) }

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expand any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an output file configuration variable (for example: OutputFile="output.nc")`)
	}
	f = os.ExpandEnv(f)
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("permeate: the OutputFile directory doesn't exist: %v", err)
	}
	return f, nil
}

// checkLogFile fills in a default value for the log file path if one isn't
// specified.
func checkLogFile(logFile, outputFile string) string {
	if logFile == "" {
		logFile = strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + ".log"
	}
	return os.ExpandEnv(logFile)
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) map[string]string {
	i := cfg.Get(varName)
	switch i.(type) {
	case map[string]string:
		return i.(map[string]string)
	case map[string]interface{}:
		return cast.ToStringMapString(i)
	case string:
		b := bytes.NewBuffer(([]byte)(i.(string)))
		d := json.NewDecoder(b)
		o := make(map[string]string)
		if err := d.Decode(&o); err != nil {
			panic(err)
		}
		return o
	default:
		panic(fmt.Errorf("invalid type for getStringMapString variable %s: %#v", varName, i))
	}
}

// getStringMapFloat returns a map[string]float64 from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func getStringMapFloat(varName string, cfg *viper.Viper) (map[string]float64, error) {
	i := cfg.Get(varName)
	switch v := i.(type) {
	case map[string]float64:
		return v, nil
	case map[string]interface{}:
		o := make(map[string]float64, len(v))
		for k, val := range v {
			f, err := cast.ToFloat64E(val)
			if err != nil {
				return nil, fmt.Errorf("%s: %s: %v", varName, k, err)
			}
			o[k] = f
		}
		return o, nil
	case string:
		if v == "" {
			return make(map[string]float64), nil
		}
		o := make(map[string]float64)
		if err := json.NewDecoder(strings.NewReader(v)).Decode(&o); err != nil {
			return nil, fmt.Errorf("%s: %v", varName, err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("invalid type for getStringMapFloat variable %s: %#v", varName, i)
	}
}

// channelSide unmarshals the configuration of one side of the channel.
func channelSide(cfg *viper.Viper, prefix string) (permeate.ChannelSide, error) {
	y, err := getStringMapFloat(prefix+".MassFractions", cfg)
	if err != nil {
		return permeate.ChannelSide{}, err
	}
	s := permeate.ChannelSide{
		Mixture:       os.ExpandEnv(cfg.GetString(prefix + ".Mixture")),
		Height:        cfg.GetFloat64(prefix + ".Height"),
		Pressure:      cfg.GetFloat64(prefix + ".Pressure"),
		Density:       cfg.GetFloat64(prefix + ".Density"),
		MassFractions: y,
	}
	vars := []float64{s.Height, s.Density}
	varNames := []string{prefix + ".Height", prefix + ".Density"}
	for i, v := range vars {
		if !(v > 0) {
			return s, fmt.Errorf("parsing channel configuration: %s=%g but should be >0", varNames[i], v)
		}
	}
	if s.Mixture == "" {
		return s, fmt.Errorf("parsing channel configuration: %s.Mixture is not specified", prefix)
	}
	return s, nil
}

// ChannelConfig unmarshals a viper configuration for a membrane channel.
func ChannelConfig(cfg *viper.Viper) (*permeate.ChannelConfig, error) {
	c := permeate.ChannelConfig{
		Length:   cfg.GetFloat64("Channel.Length"),
		Width:    cfg.GetFloat64("Channel.Width"),
		Cells:    cfg.GetInt("Channel.Cells"),
		EndFaces: cfg.GetBool("Channel.EndFaces"),
	}
	vars := []float64{c.Length, c.Width}
	varNames := []string{"Channel.Length", "Channel.Width"}
	for i, v := range vars {
		if !(v > 0) {
			return nil, fmt.Errorf("parsing channel configuration: %s=%g but should be >0", varNames[i], v)
		}
	}
	if c.Cells < 1 {
		return nil, fmt.Errorf("parsing channel configuration: Channel.Cells=%d but should be >0", c.Cells)
	}
	var err error
	if c.Reactant, err = channelSide(cfg, "Channel.Reactant"); err != nil {
		return nil, err
	}
	if c.Permeate, err = channelSide(cfg, "Channel.Permeate"); err != nil {
		return nil, err
	}
	return &c, nil
}

// Properties unmarshals the membrane properties from a viper configuration.
func Properties(cfg *viper.Viper) (permeate.Properties, error) {
	p := permeate.Properties{
		OperatingPressure: cfg.GetFloat64("OperatingPressure"),
		Permeance:         cfg.GetFloat64("Permeance"),
		TrackedSpecies:    cfg.GetInt("TrackedSpecies"),
	}
	if err := p.Check(); err != nil {
		return p, err
	}
	return p, nil
}

// Catalog returns the species catalog given by the Catalog configuration
// variable, or the built-in catalog if it is empty.
func Catalog(cfg *viper.Viper) (*permeate.Catalog, error) {
	f := os.ExpandEnv(cfg.GetString("Catalog"))
	if f == "" {
		return permeate.DefaultCatalog(), nil
	}
	return permeate.ReadCatalogFile(f)
}
