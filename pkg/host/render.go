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

package host

import "strings"

// Half-block glyphs indexed by (top << 1) | bottom
var blockGlyphs = [4]rune{' ', '▄', '▀', '█'}

// RenderBlocks renders a frame as text, two pixel rows per line. An odd
// final row is paired with an unset row.
func RenderBlocks(frame []uint8, cols, rows int) string {
	var builder strings.Builder

	for y := 0; y < rows; y += 2 {
		for x := range cols {
			top := frame[y*cols+x] & 1
			bottom := uint8(0)

			if y+1 < rows {
				bottom = frame[(y+1)*cols+x] & 1
			}

			builder.WriteRune(blockGlyphs[top<<1|bottom])
		}

		builder.WriteByte('\n')
	}

	return builder.String()
}
