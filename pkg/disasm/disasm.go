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

// Package disasm renders CHIP-8 instruction words as assembly text.
//
// The output uses the mnemonics of Cowgod's technical reference with
// $-prefixed hex operands and is accepted unchanged by the assembler.
package disasm

import (
	"fmt"

	"github.com/lassandro/gochip8/pkg/encoding"
)

type Line struct {
	Address uint16
	Opcode  uint16
	Text    string
}

// Instruction disassembles a single instruction word. Words that do not
// decode are rendered as a .DW directive.
func Instruction(opcode uint16) string {
	x := encoding.X(opcode)
	y := encoding.Y(opcode)
	n := encoding.N(opcode)
	nn := encoding.NN(opcode)
	nnn := encoding.NNN(opcode)

	switch encoding.Family(opcode) {
	case 0x0:
		switch opcode {
		case 0x00E0:
			return "CLS"
		case 0x00EE:
			return "RET"
		}
		return fmt.Sprintf("SYS $%03X", nnn)

	case 0x1:
		return fmt.Sprintf("JP $%03X", nnn)

	case 0x2:
		return fmt.Sprintf("CALL $%03X", nnn)

	case 0x3:
		return fmt.Sprintf("SE V%X, $%02X", x, nn)

	case 0x4:
		return fmt.Sprintf("SNE V%X, $%02X", x, nn)

	case 0x5:
		if n == 0 {
			return fmt.Sprintf("SE V%X, V%X", x, y)
		}

	case 0x6:
		return fmt.Sprintf("LD V%X, $%02X", x, nn)

	case 0x7:
		return fmt.Sprintf("ADD V%X, $%02X", x, nn)

	case 0x8:
		if name, ok := aluNames[n]; ok {
			return fmt.Sprintf("%s V%X, V%X", name, x, y)
		}

		// Shifts only name Vy when it is in use
		if n == 0x6 || n == 0xE {
			name := "SHR"
			if n == 0xE {
				name = "SHL"
			}

			if y == 0 {
				return fmt.Sprintf("%s V%X", name, x)
			}

			return fmt.Sprintf("%s V%X, V%X", name, x, y)
		}

	case 0x9:
		if n == 0 {
			return fmt.Sprintf("SNE V%X, V%X", x, y)
		}

	case 0xA:
		return fmt.Sprintf("LD I, $%03X", nnn)

	case 0xB:
		return fmt.Sprintf("JP V0, $%03X", nnn)

	case 0xC:
		return fmt.Sprintf("RND V%X, $%02X", x, nn)

	case 0xD:
		return fmt.Sprintf("DRW V%X, V%X, $%X", x, y, n)

	case 0xE:
		switch nn {
		case 0x9E:
			return fmt.Sprintf("SKP V%X", x)
		case 0xA1:
			return fmt.Sprintf("SKNP V%X", x)
		}

	case 0xF:
		if format, ok := miscFormats[nn]; ok {
			return fmt.Sprintf(format, x)
		}
	}

	return fmt.Sprintf(".DW $%04X", opcode)
}

var aluNames = map[uint8]string{
	0x0: "LD",
	0x1: "OR",
	0x2: "AND",
	0x3: "XOR",
	0x4: "ADD",
	0x5: "SUB",
	0x7: "SUBN",
}

var miscFormats = map[uint8]string{
	0x07: "LD V%X, DT",
	0x0A: "LD V%X, K",
	0x15: "LD DT, V%X",
	0x18: "LD ST, V%X",
	0x1E: "ADD I, V%X",
	0x29: "LD F, V%X",
	0x33: "LD B, V%X",
	0x55: "LD [I], V%X",
	0x65: "LD V%X, [I]",
}

// Listing disassembles count consecutive words of mem starting at start.
func Listing(mem []byte, start uint16, count int) []Line {
	lines := make([]Line, 0, count)

	for i := 0; i < count; i++ {
		addr := start + uint16(i*2)
		opcode := encoding.Word(mem, addr)

		lines = append(lines, Line{
			Address: addr,
			Opcode:  opcode,
			Text:    Instruction(opcode),
		})
	}

	return lines
}

func (l Line) String() string {
	return fmt.Sprintf("0x%03x  %04X  %s", l.Address, l.Opcode, l.Text)
}
