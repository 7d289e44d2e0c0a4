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
	"bytes"
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"

	"github.com/lassandro/gochip8/pkg/machine"
)

func TestNew(t *testing.T) {
	mc := machine.New(machine.Config{Logger: log.NewTestLogger(t)})

	assert.Equal(t, machine.MEMSPACE_PROGRAM, mc.State.Program)
	assert.Equal(t, uint8(0), mc.State.StackPointer)
	assert.Equal(t, machine.FontSet[:], mc.State.Memory[:len(machine.FontSet)])
	assert.Equal(t, 64, mc.Cols())
	assert.Equal(t, 32, mc.Rows())
	assert.False(t, mc.SoundActive())
}

func TestNewDefaultLogger(t *testing.T) {
	mc := machine.New(machine.Config{})

	assert.NoError(t, mc.Load(romBytes([]uint16{0x00E0})))

	_, err := mc.Tick()
	assert.NoError(t, err)
}

func TestLoad(t *testing.T) {
	mc := newTestMachine(t, machine.Quirks{}, 0x1234, 0xABCD)

	assert.Equal(t, uint8(0x12), mc.State.Memory[0x200])
	assert.Equal(t, uint8(0x34), mc.State.Memory[0x201])
	assert.Equal(t, uint8(0xAB), mc.State.Memory[0x202])
	assert.Equal(t, uint8(0xCD), mc.State.Memory[0x203])
	assert.Equal(t, uint16(0x1234), mc.Opcode())
}

func TestLoadLimit(t *testing.T) {
	mc := machine.New(machine.Config{Logger: log.NewTestLogger(t)})

	full := make([]byte, machine.MEMORY_SIZE-machine.PROGRAM_START)
	full[len(full)-1] = 0xEE

	assert.NoError(t, mc.Load(full))
	assert.Equal(t, uint8(0xEE), mc.State.Memory[machine.MEMORY_SIZE-1])

	err := mc.Load(make([]byte, len(full)+1))
	assert.True(t, errors.Is(err, machine.ErrProgramTooLarge))
}

func TestLoadFrom(t *testing.T) {
	mc := machine.New(machine.Config{Logger: log.NewTestLogger(t)})

	assert.NoError(t, mc.LoadFrom(bytes.NewReader([]byte{0x00, 0xE0})))
	assert.Equal(t, uint16(0x00E0), mc.Opcode())

	oversized := bytes.NewReader(make([]byte, machine.MEMORY_SIZE))
	err := mc.LoadFrom(oversized)
	assert.True(t, errors.Is(err, machine.ErrProgramTooLarge))
}

func TestFetchWraps(t *testing.T) {
	mc := newTestMachine(t, machine.Quirks{}, 0x00E0)

	// JP $200 split across the end of memory
	mc.State.Memory[0xFFF] = 0x12
	mc.State.Memory[0x000] = 0x00
	mc.State.Program = 0xFFF

	assert.Equal(t, uint16(0x1200), mc.Opcode())
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		Name   string
		Opcode uint16
	}{
		{Name: "SE Register Tail", Opcode: 0x5121},
		{Name: "SNE Register Tail", Opcode: 0x9121},
		{Name: "ALU 8", Opcode: 0x8128},
		{Name: "ALU F", Opcode: 0x812F},
		{Name: "Key", Opcode: 0xE000},
		{Name: "Misc", Opcode: 0xF0FF},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			mc := newTestMachine(t, machine.Quirks{}, 0x6001, test.Opcode)

			_, err := mc.Tick()
			assert.NoError(t, err)

			before := mc.State
			_, err = mc.Tick()

			var decodeErr *machine.DecodeError
			assert.True(t, errors.As(err, &decodeErr))
			assert.Equal(t, test.Opcode, decodeErr.Opcode)
			assert.Equal(t, uint16(0x202), decodeErr.Address)
			assert.Equal(t, before.Program, mc.State.Program)
			assert.Equal(t, before.Registers, mc.State.Registers)
		})
	}
}

func TestDecodeErrorMessage(t *testing.T) {
	err := &machine.DecodeError{Opcode: 0xF0FF, Address: 0x204}

	assert.Equal(t, "unknown instruction 0xf0ff at 0x204", err.Error())

	err = &machine.DecodeError{Opcode: 0x00E1, Address: 0x02A}

	assert.Equal(t, "unknown instruction 0x00e1 at 0x02a", err.Error())
}

func TestStackOverflow(t *testing.T) {
	// CALL $200 recurses until the stack runs out
	mc := newTestMachine(t, machine.Quirks{}, 0x2200)

	for i := 0; i < machine.STACK_DEPTH; i++ {
		_, err := mc.Tick()
		assert.NoError(t, err)
	}

	_, err := mc.Tick()
	assert.True(t, errors.Is(err, machine.ErrStackOverflow))
	assert.ErrorContains(t, err, "CALL $200")
	assert.Equal(t, uint8(machine.STACK_DEPTH), mc.State.StackPointer)
	assert.Equal(t, uint16(0x200), mc.State.Program)
}

func TestStackUnderflow(t *testing.T) {
	mc := newTestMachine(t, machine.Quirks{}, 0x00EE)

	_, err := mc.Tick()
	assert.True(t, errors.Is(err, machine.ErrStackUnderflow))
	assert.Equal(t, uint16(0x200), mc.State.Program)
}

func TestKeyWait(t *testing.T) {
	mc := newTestMachine(t, machine.Quirks{}, 0xF30A, 0x00E0)

	var keys [16]bool

	// Nothing held
	outcome, err := mc.Tick()
	assert.NoError(t, err)
	assert.Equal(t, machine.Retry, outcome)
	assert.Equal(t, uint16(0x200), mc.State.Program)

	// Key 7 pressed, waiting for release
	keys[7] = true
	mc.WriteKeys(keys)

	outcome, err = mc.Tick()
	assert.NoError(t, err)
	assert.Equal(t, machine.Retry, outcome)
	assert.True(t, mc.State.KeyLatched)

	// Another key pressed while 7 is still down
	keys[2] = true
	mc.WriteKeys(keys)

	outcome, err = mc.Tick()
	assert.NoError(t, err)
	assert.Equal(t, machine.Retry, outcome)

	// Key 2 released, 7 still down
	keys[2] = false
	mc.WriteKeys(keys)

	outcome, err = mc.Tick()
	assert.NoError(t, err)
	assert.Equal(t, machine.Retry, outcome)
	assert.Equal(t, uint16(0x200), mc.State.Program)

	// Key 7 released
	keys[7] = false
	mc.WriteKeys(keys)

	outcome, err = mc.Tick()
	assert.NoError(t, err)
	assert.Equal(t, machine.Completed, outcome)
	assert.Equal(t, uint8(7), mc.State.Registers[3])
	assert.Equal(t, uint16(0x202), mc.State.Program)
	assert.False(t, mc.State.KeyLatched)
}

func TestKeyIndexMasked(t *testing.T) {
	mc := newTestMachine(t, machine.Quirks{}, 0xE19E)

	mc.State.Registers[1] = 0x1A
	mc.WriteKeys([16]bool{0xA: true})

	_, err := mc.Tick()
	assert.NoError(t, err)
	assert.Equal(t, uint16(0x204), mc.State.Program)
}

func TestVBlankConsumed(t *testing.T) {
	mc := newTestMachine(t, machine.QuirksModern, 0xD001, 0xD001)

	outcome, err := mc.Tick()
	assert.NoError(t, err)
	assert.Equal(t, machine.Retry, outcome)

	mc.SetVBlank(true)

	outcome, err = mc.Tick()
	assert.NoError(t, err)
	assert.Equal(t, machine.Completed, outcome)
	assert.False(t, mc.State.VBlank)

	// Second draw in the same frame waits again
	outcome, err = mc.Tick()
	assert.NoError(t, err)
	assert.Equal(t, machine.Retry, outcome)
	assert.Equal(t, uint16(0x202), mc.State.Program)
}

func TestTimers(t *testing.T) {
	mc := newTestMachine(t, machine.Quirks{}, 0x00E0)

	mc.State.DelayTimer = 2
	mc.State.SoundTimer = 1

	assert.True(t, mc.SoundActive())

	mc.AdvanceTimers()
	assert.Equal(t, uint8(1), mc.State.DelayTimer)
	assert.Equal(t, uint8(0), mc.State.SoundTimer)
	assert.False(t, mc.SoundActive())

	mc.AdvanceTimers()
	mc.AdvanceTimers()
	assert.Equal(t, uint8(0), mc.State.DelayTimer)
	assert.Equal(t, uint8(0), mc.State.SoundTimer)
}

func TestRandom(t *testing.T) {
	rom := []uint16{0xC1FF, 0xC2FF, 0xC30F, 0xC4F0}

	a := newTestMachine(t, machine.Quirks{}, rom...)
	b := newTestMachine(t, machine.Quirks{}, rom...)

	for range rom {
		_, err := a.Tick()
		assert.NoError(t, err)

		_, err = b.Tick()
		assert.NoError(t, err)
	}

	assert.Equal(t, a.State.Registers, b.State.Registers)
	assert.Equal(t, uint8(0), a.State.Registers[3]&0xF0)
	assert.Equal(t, uint8(0), a.State.Registers[4]&0x0F)
}

func TestStoreLoadRoundTrip(t *testing.T) {
	tests := []struct {
		Name   string
		Quirks machine.Quirks
		Index  uint16
	}{
		{"Modern", machine.QuirksModern, 0x300},
		{"COSMAC", machine.QuirksCOSMAC, 0x310},
	}

	want := [16]uint8{
		0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77,
		0x88, 0x99, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF,
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			// LD [I], VF; LD I, $300; LD VF, [I]
			mc := newTestMachine(t, test.Quirks, 0xFF55, 0xA300, 0xFF65)

			mc.State.Registers = want
			mc.State.Index = 0x300

			_, err := mc.Tick()
			assert.NoError(t, err)
			assert.Equal(t, want[:], mc.State.Memory[0x300:0x310])
			assert.Equal(t, test.Index, mc.State.Index)

			mc.State.Registers = [16]uint8{}

			_, err = mc.Tick()
			assert.NoError(t, err)
			assert.Equal(t, uint16(0x300), mc.State.Index)
			assert.Equal(t, [16]uint8{}, mc.State.Registers)

			_, err = mc.Tick()
			assert.NoError(t, err)
			assert.Equal(t, want, mc.State.Registers)
			assert.Equal(t, test.Index, mc.State.Index)
		})
	}
}

func TestFramebufferCopy(t *testing.T) {
	mc := newTestMachine(t, machine.Quirks{}, 0xD001)

	mc.State.Memory[0x300] = 0x80
	mc.State.Index = 0x300

	_, err := mc.Tick()
	assert.NoError(t, err)

	frame := mc.Framebuffer()
	assert.Equal(t, uint8(1), frame[0])

	frame[0] = 0
	assert.Equal(t, uint8(1), mc.State.Video[0])
}

func TestTrace(t *testing.T) {
	mc := machine.New(machine.Config{
		Logger: log.NewTestLogger(t),
		Trace:  true,
	})

	assert.NoError(t, mc.Load(romBytes([]uint16{0x6005})))

	outcome, err := mc.Tick()
	assert.NoError(t, err)
	assert.Equal(t, machine.Completed, outcome)
	assert.Equal(t, "completed", outcome.String())
	assert.Equal(t, "retry", machine.Retry.String())
}

func TestQuirksByName(t *testing.T) {
	quirks, err := machine.QuirksByName("modern")
	assert.NoError(t, err)
	assert.Equal(t, machine.QuirksModern, quirks)

	quirks, err = machine.QuirksByName("COSMAC")
	assert.NoError(t, err)
	assert.Equal(t, machine.QuirksCOSMAC, quirks)

	quirks, err = machine.QuirksByName("vip")
	assert.NoError(t, err)
	assert.True(t, quirks.ShiftUsesVY)
	assert.True(t, quirks.LoadStoreAdvancesIndex)

	_, err = machine.QuirksByName("schip")
	assert.Error(t, err)
}

type recordingDebugger struct {
	steps  int
	reads  []uint16
	writes []uint16
}

func (d *recordingDebugger) Step(mc *machine.Machine) {
	d.steps++
}

func (d *recordingDebugger) Read(addr uint16, mc *machine.Machine) {
	d.reads = append(d.reads, addr)
}

func (d *recordingDebugger) Write(addr uint16, mc *machine.Machine) {
	d.writes = append(d.writes, addr)
}

func TestDebuggerHooks(t *testing.T) {
	// LD B, V0; LD V1, [I]
	mc := newTestMachine(t, machine.Quirks{}, 0xF033, 0xF165)
	dbg := &recordingDebugger{}

	mc.Debugger = dbg
	mc.State.Index = 0xFFF
	mc.State.Registers[0] = 42

	for i := 0; i < 2; i++ {
		_, err := mc.Tick()
		assert.NoError(t, err)
	}

	assert.Equal(t, 2, dbg.steps)
	assert.Equal(t, []uint16{0xFFF, 0x000, 0x001}, dbg.writes)
	assert.Equal(t, []uint16{0xFFF, 0x000}, dbg.reads)
	assert.Equal(t, uint8(0), mc.State.Registers[0])
	assert.Equal(t, uint8(4), mc.State.Registers[1])
}
