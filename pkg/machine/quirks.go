// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package machine

import (
	"fmt"
	"strings"
)

var (
	// QuirksModern matches the later interpreters most ROMs are written
	// for: shifts operate on Vx in place and I is left unchanged by bulk
	// register transfers.
	QuirksModern = Quirks{
		VBlankWait: true,
	}

	// QuirksCOSMAC matches the original COSMAC VIP interpreter.
	QuirksCOSMAC = Quirks{
		ShiftUsesVY:            true,
		LoadStoreAdvancesIndex: true,
		VBlankWait:             true,
	}
)

var quirkPresets = map[string]Quirks{
	"modern": QuirksModern,
	"cosmac": QuirksCOSMAC,
	"vip":    QuirksCOSMAC,
}

func QuirksByName(name string) (Quirks, error) {
	if quirks, ok := quirkPresets[strings.ToLower(name)]; ok {
		return quirks, nil
	}

	return Quirks{}, fmt.Errorf("unknown quirks preset '%s'", name)
}
