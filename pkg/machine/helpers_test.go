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

package machine_test

import (
	"testing"

	"github.com/retroenv/retrogolib/log"

	"github.com/lassandro/gochip8/pkg/encoding"
	"github.com/lassandro/gochip8/pkg/machine"
)

type testMachineState struct {
	Registers  [16]uint8
	Index      uint16
	Program    uint16
	Stack      []uint16
	DelayTimer uint8
	SoundTimer uint8
	Keys       [16]bool
	VBlank     bool
	Memory     map[uint16]uint8
	Video      map[int]uint8
}

type testCase struct {
	Name   string
	Steps  uint
	Quirks machine.Quirks
	Rom    []uint16
	Input  testMachineState
	Output testMachineState
}

func romBytes(words []uint16) []byte {
	rom := make([]byte, len(words)*2)

	for i, word := range words {
		encoding.PutWord(rom, uint16(i*2), word)
	}

	return rom
}

func newTestMachine(t *testing.T, quirks machine.Quirks, rom ...uint16) *machine.Machine {
	t.Helper()

	mc := machine.New(machine.Config{
		Quirks: quirks,
		Seed:   1,
		Logger: log.NewTestLogger(t),
	})

	if err := mc.Load(romBytes(rom)); err != nil {
		t.Fatal(err)
	}

	return mc
}

func testMachineSuccess(t *testing.T, test *testCase) {
	if len(test.Rom) == 0 {
		panic("No program provided")
	}

	mc := newTestMachine(t, test.Quirks, test.Rom...)
	rom := romBytes(test.Rom)

	mc.State.Registers = test.Input.Registers
	mc.State.Index = test.Input.Index
	mc.State.DelayTimer = test.Input.DelayTimer
	mc.State.SoundTimer = test.Input.SoundTimer
	mc.State.VBlank = test.Input.VBlank
	mc.WriteKeys(test.Input.Keys)

	if test.Input.Program != 0 {
		mc.State.Program = test.Input.Program
	}

	for i, addr := range test.Input.Stack {
		mc.State.Stack[i] = addr
	}
	mc.State.StackPointer = uint8(len(test.Input.Stack))

	for addr, value := range test.Input.Memory {
		mc.State.Memory[addr] = value
	}

	for pos, value := range test.Input.Video {
		mc.State.Video[pos] = value
	}

	if test.Steps == 0 {
		test.Steps = 1
	}

	for i := uint(0); i < test.Steps; i++ {
		if _, err := mc.Tick(); err != nil {
			t.Fatal(err)
		}
	}

	for i := 0; i < 16; i++ {
		want := test.Output.Registers[i]
		have := mc.State.Registers[i]
		if have != want {
			t.Errorf(
				"Register mismatch"+
					"\nwant:%#02x (test.Output.Registers[%#x])\nhave:%#02x",
				want,
				i,
				have,
			)
		}
	}

	if mc.State.Program != test.Output.Program {
		t.Errorf(
			"Program register mismatch"+
				"\nwant:%#04x (test.Output.Program)\nhave:%#04x",
			test.Output.Program,
			mc.State.Program,
		)
	}

	if mc.State.Index != test.Output.Index {
		t.Errorf(
			"Index register mismatch"+
				"\nwant:%#04x (test.Output.Index)\nhave:%#04x",
			test.Output.Index,
			mc.State.Index,
		)
	}

	if have := int(mc.State.StackPointer); have != len(test.Output.Stack) {
		t.Errorf(
			"Stack depth mismatch"+
				"\nwant:%d (len(test.Output.Stack))\nhave:%d",
			len(test.Output.Stack),
			have,
		)
	} else {
		for i, want := range test.Output.Stack {
			if have := mc.State.Stack[i]; have != want {
				t.Errorf(
					"Stack mismatch"+
						"\nwant:%#04x (test.Output.Stack[%d])\nhave:%#04x",
					want,
					i,
					have,
				)
			}
		}
	}

	if mc.State.DelayTimer != test.Output.DelayTimer {
		t.Errorf(
			"Delay timer mismatch"+
				"\nwant:%d (test.Output.DelayTimer)\nhave:%d",
			test.Output.DelayTimer,
			mc.State.DelayTimer,
		)
	}

	if mc.State.SoundTimer != test.Output.SoundTimer {
		t.Errorf(
			"Sound timer mismatch"+
				"\nwant:%d (test.Output.SoundTimer)\nhave:%d",
			test.Output.SoundTimer,
			mc.State.SoundTimer,
		)
	}

	for i, value := range mc.State.Memory {
		addr := uint16(i)
		output, expectingOutput := test.Output.Memory[addr]
		input, expectingInput := test.Input.Memory[addr]

		var want uint8

		switch {
		case expectingOutput:
			// Value was supposed to change
			want = output
		case expectingInput:
			// Value was supposed to remain
			want = input
		case i >= machine.PROGRAM_START && i < machine.PROGRAM_START+len(rom):
			want = rom[i-machine.PROGRAM_START]
		case i < len(machine.FontSet):
			want = machine.FontSet[i]
		}

		if value != want {
			t.Fatalf(
				"Memory value mismatch"+
					"\nwant:%#02x (memory[%#04x])\nhave:%#02x",
				want,
				i,
				value,
			)
		}
	}

	for pos, value := range mc.State.Video {
		var want uint8

		if output, exists := test.Output.Video[pos]; exists {
			want = output
		}

		if value != want {
			t.Fatalf(
				"Pixel mismatch"+
					"\nwant:%d (test.Output.Video[%d] = x:%d y:%d)\nhave:%d",
				want,
				pos,
				pos%machine.VIDEO_COLS,
				pos/machine.VIDEO_COLS,
				value,
			)
		}
	}
}

func testSuccess(t *testing.T, tests []testCase) {
	t.Run("Success", func(t *testing.T) {
		for _, test := range tests {
			t.Run(test.Name, func(t *testing.T) {
				testMachineSuccess(t, &test)
			})
		}
	})
}
