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
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/permeate"
	"github.com/spatialmodel/permeate/internal/hash"
	"github.com/spf13/cobra"
)

// Run runs the model.
//
// CobraCommand is the cobra.Command instance where Run is called from.
// Log messages are written to its output as well as to LogFile.
//
// LogFile is the path to the desired logfile location.
//
// OutputFile is the path to the desired output NetCDF file location.
// FaceFile and PlotFile are the paths for the membrane face report and
// the mass flux profile plot; each is skipped if empty.
//
// OutputVariables specifies which cell variables should be included in the
// output file.
//
// Channel and Catalog define the mesh, and Props the membrane.
//
// Dt is the relaxation time step [s]. NumIterations is the number of
// iterations to calculate. If < 1, convergence is determined by Tolerance.
//
// addInit, addRun, and addCleanup specify functions beyond the default
// functions to run at initialization, runtime, and cleanup, respectively.
func Run(CobraCommand *cobra.Command, LogFile, OutputFile, FaceFile, PlotFile string,
	OutputVariables map[string]string, Channel *permeate.ChannelConfig, Catalog *permeate.Catalog,
	Props permeate.Properties, Dt float64, NumIterations int, Tolerance float64,
	addInit, addRun, addCleanup []permeate.DomainManipulator) error {

	startTime := time.Now()

	logfile, err := os.Create(LogFile)
	if err != nil {
		return fmt.Errorf("permeate: problem creating log file: %v", err)
	}
	defer logfile.Close()
	log := logrus.New()
	log.Out = io.MultiWriter(CobraCommand.OutOrStdout(), logfile)

	o, err := permeate.NewOutputter(OutputFile, OutputVariables, nil)
	if err != nil {
		return err
	}
	fingerprint := hash.Fingerprint(Channel, Catalog, Props, Dt, NumIterations, Tolerance, OutputVariables)
	o.SetAttribute("fingerprint", fingerprint)
	log.WithField("fingerprint", fingerprint).Info("parsed configuration")

	cleanup := []permeate.DomainManipulator{o.Output()}
	if FaceFile != "" {
		cleanup = append(cleanup, permeate.FaceOutput(FaceFile))
	}
	if PlotFile != "" {
		cleanup = append(cleanup, permeate.PlotProfile(PlotFile))
	}

	d := &permeate.Membrane{
		Props: Props,
		Log:   log,
		InitFuncs: append([]permeate.DomainManipulator{
			Channel.RegularChannel(Catalog),
			permeate.SetTimestep(Dt),
			o.CheckOutputVars(),
		}, addInit...),
		RunFuncs:     append(permeate.DefaultRunFuncs(NumIterations, Tolerance), addRun...),
		CleanupFuncs: append(cleanup, addCleanup...),
	}

	log.Info("initializing model")
	if err = d.Init(); err != nil {
		return fmt.Errorf("permeate: problem initializing model: %v", err)
	}
	log.WithFields(logrus.Fields{
		"cells":     len(d.Mesh.Cells()),
		"membranes": len(d.Mesh.FaceZones),
		"faces":     len(d.Mesh.Faces()),
	}).Info("created mesh")

	if err = d.Run(); err != nil {
		return fmt.Errorf("permeate: problem running simulation: %v", err)
	}
	log.Info(d.Summary.String())

	if err = d.Cleanup(); err != nil {
		return fmt.Errorf("permeate: problem shutting down model: %v", err)
	}

	log.Infof("Elapsed time: %v", time.Since(startTime))
	return nil
}
