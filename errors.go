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

import "fmt"

// ConfigError reports an inconsistency between the configuration and the
// mesh or species catalog, such as a tracked species missing from a
// mixture or a zone without storage being asked to accumulate.
type ConfigError struct {
	Zone   string // zone or mixture name, if known
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Zone == "" {
		return "permeate: configuration error: " + e.Reason
	}
	return fmt.Sprintf("permeate: configuration error in %q: %s", e.Zone, e.Reason)
}

// GeometryError reports a cell whose volume cannot be used to convert an
// accumulated mass flow into a volumetric source.
type GeometryError struct {
	Zone   string
	Row    int
	Volume float64
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("permeate: geometry error: cell %d in zone %q has non-positive volume %g m³",
		e.Row, e.Zone, e.Volume)
}

// MixtureError reports a cell whose composition gives an undefined
// partial pressure, for example when Σ(Y/M) is zero.
type MixtureError struct {
	Zone   string
	Row    int
	Reason string
}

func (e *MixtureError) Error() string {
	return fmt.Sprintf("permeate: mixture error: cell %d in zone %q: %s", e.Row, e.Zone, e.Reason)
}

// FaceError locates an error that occurred while evaluating a membrane face.
type FaceError struct {
	FaceZone string
	Face     int
	Err      error
}

func (e *FaceError) Error() string {
	return fmt.Sprintf("permeate: face %d of %q: %v", e.Face, e.FaceZone, e.Err)
}

// Unwrap returns the underlying error so that errors.As can find it.
func (e *FaceError) Unwrap() error { return e.Err }
