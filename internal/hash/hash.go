/*
Copyright © 2019 the permeate authors.
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

// Package hash computes stable fingerprints of configuration values.
package hash

import (
	"fmt"
	"hash/fnv"

	"github.com/davecgh/go-spew/spew"
)

// printer renders values in a deterministic form. Map keys are sorted and
// pointer addresses omitted.
var printer = spew.ConfigState{
	Indent:                  " ",
	SortKeys:                true,
	DisableMethods:          true,
	SpewKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// Fingerprint returns a hexadecimal FNV-128a hash of the given values,
// taken in order. Equal values give equal fingerprints.
func Fingerprint(values ...interface{}) string {
	h := fnv.New128a()
	for i, v := range values {
		fmt.Fprintf(h, "%d:", i)
		printer.Fprintf(h, "%#v\n", v)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
