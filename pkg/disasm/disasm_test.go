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

package disasm_test

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"

	"github.com/lassandro/gochip8/pkg/disasm"
)

func TestInstruction(t *testing.T) {
	tests := map[uint16]string{
		0x00E0: "CLS",
		0x00EE: "RET",
		0x0123: "SYS $123",
		0x1ABC: "JP $ABC",
		0x2206: "CALL $206",
		0x3342: "SE V3, $42",
		0x4A00: "SNE VA, $00",
		0x5120: "SE V1, V2",
		0x5121: ".DW $5121",
		0x6A42: "LD VA, $42",
		0x7105: "ADD V1, $05",
		0x8120: "LD V1, V2",
		0x8121: "OR V1, V2",
		0x8122: "AND V1, V2",
		0x8123: "XOR V1, V2",
		0x8124: "ADD V1, V2",
		0x8125: "SUB V1, V2",
		0x8106: "SHR V1",
		0x8126: "SHR V1, V2",
		0x8127: "SUBN V1, V2",
		0x810E: "SHL V1",
		0x812E: "SHL V1, V2",
		0x8128: ".DW $8128",
		0x9120: "SNE V1, V2",
		0x9121: ".DW $9121",
		0xA123: "LD I, $123",
		0xB300: "JP V0, $300",
		0xC10F: "RND V1, $0F",
		0xD015: "DRW V0, V1, $5",
		0xE19E: "SKP V1",
		0xE1A1: "SKNP V1",
		0xE100: ".DW $E100",
		0xF107: "LD V1, DT",
		0xF10A: "LD V1, K",
		0xF115: "LD DT, V1",
		0xF118: "LD ST, V1",
		0xF11E: "ADD I, V1",
		0xF129: "LD F, V1",
		0xF133: "LD B, V1",
		0xF155: "LD [I], V1",
		0xF165: "LD V1, [I]",
		0xF1FF: ".DW $F1FF",
	}

	for opcode, want := range tests {
		t.Run(want, func(t *testing.T) {
			assert.Equal(t, want, disasm.Instruction(opcode))
		})
	}
}

func TestListing(t *testing.T) {
	mem := []byte{0x00, 0xE0, 0x12, 0x00}

	lines := disasm.Listing(mem, 0, 3)

	assert.Len(t, lines, 3)
	assert.Equal(t, "CLS", lines[0].Text)
	assert.Equal(t, uint16(0x0002), lines[1].Address)
	assert.Equal(t, uint16(0x1200), lines[1].Opcode)

	// Listing wraps around the end of memory
	assert.Equal(t, uint16(0x00E0), lines[2].Opcode)
	assert.Equal(t, "0x002  1200  JP $200", lines[1].String())
}
