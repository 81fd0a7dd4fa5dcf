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
	"text/tabwriter"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/permeate"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	channelFlags := []*pflag.FlagSet{runCmd.PersistentFlags(), meshCmd.Flags()}

	// Options are the configuration options available to permeate.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "OperatingPressure",
			usage: `
              OperatingPressure is added to cell gauge pressures to give
              absolute pressures [Pa].`,
			defaultVal: permeate.DefaultOperatingPressure,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Permeance",
			usage: `
              Permeance relates the water partial pressure difference across
              the membrane to the molar flux through it [mol/(m² s Pa)].`,
			defaultVal: permeate.DefaultPermeance,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "TrackedSpecies",
			usage: `
              TrackedSpecies is the index of the permeating species in the
              mixture of each side of the membrane.`,
			defaultVal: permeate.DefaultTrackedSpecies,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Catalog",
			usage: `
              Catalog is the path to a species catalog file in TOML or CSV
              format. If it is empty, the built-in catalog is used. It can
              contain environment variables.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags(), meshCmd.Flags(), catalogCmd.Flags()},
		},
		{
			name: "format",
			usage: `
              format specifies the output format of the species catalog,
              either toml or csv.`,
			defaultVal: "toml",
			flagsets:   []*pflag.FlagSet{catalogCmd.Flags()},
		},
		{
			name: "Channel.Length",
			usage: `
              Channel.Length is the length of the membrane channel [m].`,
			defaultVal: 0.5,
			flagsets:   channelFlags,
		},
		{
			name: "Channel.Width",
			usage: `
              Channel.Width is the width of the membrane channel [m].`,
			defaultVal: 0.1,
			flagsets:   channelFlags,
		},
		{
			name: "Channel.Cells",
			usage: `
              Channel.Cells is the number of cells along each side of the
              channel.`,
			defaultVal: 50,
			flagsets:   channelFlags,
		},
		{
			name: "Channel.EndFaces",
			usage: `
              Channel.EndFaces specifies whether to add exterior membrane
              faces at the channel ends. These faces have no permeate-side
              cell and are skipped.`,
			defaultVal: false,
			flagsets:   channelFlags,
		},
		{
			name: "Channel.Reactant.Mixture",
			usage: `
              Channel.Reactant.Mixture is the name of the catalog mixture
              on the reactant side of the membrane.`,
			defaultVal: "reactant",
			flagsets:   channelFlags,
		},
		{
			name: "Channel.Reactant.Height",
			usage: `
              Channel.Reactant.Height is the height of the reactant channel [m].`,
			defaultVal: 0.002,
			flagsets:   channelFlags,
		},
		{
			name: "Channel.Reactant.Pressure",
			usage: `
              Channel.Reactant.Pressure is the gauge pressure of the reactant
              stream [Pa].`,
			defaultVal: 0.0,
			flagsets:   channelFlags,
		},
		{
			name: "Channel.Reactant.Density",
			usage: `
              Channel.Reactant.Density is the density of the reactant stream
              [kg/m³].`,
			defaultVal: 1.6,
			flagsets:   channelFlags,
		},
		{
			name: "Channel.Reactant.MassFractions",
			usage: `
              Channel.Reactant.MassFractions maps species names to their mass
              fractions in the reactant stream.`,
			defaultVal: map[string]float64{"H2O": 0.2, "CO2": 0.8},
			flagsets:   channelFlags,
		},
		{
			name: "Channel.Permeate.Mixture",
			usage: `
              Channel.Permeate.Mixture is the name of the catalog mixture
              on the permeate side of the membrane.`,
			defaultVal: "permeate",
			flagsets:   channelFlags,
		},
		{
			name: "Channel.Permeate.Height",
			usage: `
              Channel.Permeate.Height is the height of the permeate channel [m].`,
			defaultVal: 0.002,
			flagsets:   channelFlags,
		},
		{
			name: "Channel.Permeate.Pressure",
			usage: `
              Channel.Permeate.Pressure is the gauge pressure of the permeate
              stream [Pa].`,
			defaultVal: 0.0,
			flagsets:   channelFlags,
		},
		{
			name: "Channel.Permeate.Density",
			usage: `
              Channel.Permeate.Density is the density of the permeate stream
              [kg/m³].`,
			defaultVal: 1.1,
			flagsets:   channelFlags,
		},
		{
			name: "Channel.Permeate.MassFractions",
			usage: `
              Channel.Permeate.MassFractions maps species names to their mass
              fractions in the permeate stream.`,
			defaultVal: map[string]float64{"H2O": 0.01, "N2": 0.99},
			flagsets:   channelFlags,
		},
		{
			name: "NumIterations",
			usage: `
              NumIterations is the number of iterations to calculate. If < 1,
              the simulation runs until the total transfer rate converges.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Timestep",
			usage: `
              Timestep is the pseudo-time step used to relax cell composition
              toward equilibrium [s].`,
			defaultVal: 0.001,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Tolerance",
			usage: `
              Tolerance is the relative change in total transfer rate between
              iterations below which the simulation has converged.`,
			defaultVal: 0.001,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile specifies the path to the desired output NetCDF file
              location. It can include environment variables.`,
			defaultVal: "permeate.nc",
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "FaceFile",
			usage: `
              FaceFile specifies the path to a CSV file for the membrane face
              report. If it is empty, no report is written.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "PlotFile",
			usage: `
              PlotFile specifies the path to an image file (for example
              profile.png) for the mass flux profile plot. If it is empty,
              no plot is written.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile specifies the path to the desired logfile location. It
              can include environment variables. If LogFile is left blank,
              the logfile will be saved in the same location as the
              OutputFile.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables specifies which cell variables should be
              included in the output file. Each output variable is defined
              by the desired name and an expression that can be used to
              calculate it (in the form VariableName = "Expression").
              These expressions can utilize variables built into the model,
              user-defined variables, and functions.`,
			defaultVal: map[string]string{
				"Water":  "Y_H2O",
				"Loss":   "ReactantLoss",
				"Gain":   "PermeateGain",
				"Source": "Source",
			},
			flagsets: []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("PERMEATE")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			case map[string]string, map[string]float64:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				s := string(b.Bytes())
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	runCmd.AddCommand(steadyCmd)
	Root.AddCommand(meshCmd)
	Root.AddCommand(catalogCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("permeate: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "permeate",
	Short: "A selective membrane water transport model.",
	Long: `permeate simulates pressure-driven transport of water vapour across a
selective membrane separating a reactant stream from a permeate sweep stream.
Use the subcommands specified below to access the model functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'PERMEATE_var' where 'var' is the
name of the variable to be set. Many configuration variables are additionally
allowed to contain environment variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of permeate.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("permeate v%s\n", permeate.Version)
	},
	DisableAutoGenTag: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the model.",
	Long: `run runs a permeate simulation. Use the subcommands specified below to
choose a run mode. (Currently 'steady' is the only available run mode.)`,
	DisableAutoGenTag: true,
}

// steadyCmd is a command that runs a steady-state simulation.
var steadyCmd = &cobra.Command{
	Use:   "steady",
	Short: "Run permeate in steady-state mode.",
	Long: `steady iterates the membrane flux and the resulting sources until the
total transfer rate stops changing, or for NumIterations iterations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		channel, err := ChannelConfig(Cfg)
		if err != nil {
			return err
		}
		catalog, err := Catalog(Cfg)
		if err != nil {
			return err
		}
		props, err := Properties(Cfg)
		if err != nil {
			return err
		}
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		outputVars, err := checkOutputVars(GetStringMapString("OutputVariables", Cfg))
		if err != nil {
			return err
		}
		dt := Cfg.GetFloat64("Timestep")
		if !(dt > 0) {
			return fmt.Errorf("permeate: Timestep=%g but should be >0", dt)
		}

		return Run(
			cmd,
			checkLogFile(Cfg.GetString("LogFile"), outputFile),
			outputFile,
			expandPath(Cfg.GetString("FaceFile")),
			expandPath(Cfg.GetString("PlotFile")),
			outputVars,
			channel,
			catalog,
			props,
			dt,
			Cfg.GetInt("NumIterations"),
			Cfg.GetFloat64("Tolerance"),
			nil, nil, nil,
		)
	},
	DisableAutoGenTag: true,
}

// meshCmd is a command that describes the channel mesh.
var meshCmd = &cobra.Command{
	Use:   "mesh",
	Short: "Describe the channel mesh",
	Long: `mesh creates the membrane channel mesh as specified by the configuration
and prints a summary of its zones and membranes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		channel, err := ChannelConfig(Cfg)
		if err != nil {
			return err
		}
		catalog, err := Catalog(Cfg)
		if err != nil {
			return err
		}
		m, err := channel.Mesh(catalog)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "ZONE\tROLE\tMIXTURE\tCELLS\tVOLUME (m³)")
		for _, z := range m.Zones {
			var v float64
			for _, c := range z.Cells {
				v += c.Volume
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.4g\n", z.Name, z.Role, z.Mixture.Name, len(z.Cells), v)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "MEMBRANE\tUPSTREAM\tDOWNSTREAM\tFACES\tAREA (m²)")
		for _, fz := range m.FaceZones {
			var a float64
			for _, f := range fz.Faces {
				a += f.AreaMagnitude()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.4g\n", fz.Name, fz.Upstream.Name, fz.Downstream.Name, len(fz.Faces), a)
		}
		return w.Flush()
	},
	DisableAutoGenTag: true,
}

// catalogCmd is a command that prints the species catalog.
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the species catalog",
	Long: `catalog prints the species catalog in use, either the built-in catalog
or the one given by the Catalog configuration variable, in TOML or CSV format.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := Catalog(Cfg)
		if err != nil {
			return err
		}
		return catalog.Write(cmd.OutOrStdout(), Cfg.GetString("format"))
	},
	DisableAutoGenTag: true,
}
