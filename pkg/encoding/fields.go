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

package encoding

// Instruction word fields
// ---- [ F F F F X X X X Y Y Y Y N N N N ]
//                       [ N N N N N N N N ] NN
//               [ N N N N N N N N N N N N ] NNN

func Family(instruction uint16) uint16 {
	return instruction >> 12
}

func X(instruction uint16) uint8 {
	return uint8((instruction >> 8) & 0xF)
}

func Y(instruction uint16) uint8 {
	return uint8((instruction >> 4) & 0xF)
}

func N(instruction uint16) uint8 {
	return uint8(instruction & 0xF)
}

func NN(instruction uint16) uint8 {
	return uint8(instruction & 0xFF)
}

func NNN(instruction uint16) uint16 {
	return instruction & 0xFFF
}
