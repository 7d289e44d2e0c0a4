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
	"math/rand/v2"

	"github.com/retroenv/retrogolib/log"
)

// Outcome reports whether a tick made forward progress.
type Outcome uint

const (
	// Completed means exactly one instruction was executed.
	Completed Outcome = iota
	// Retry means the instruction at pc could not finish yet and will be
	// fetched again on the next tick.
	Retry
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Retry:
		return "retry"
	default:
		return "<invalid>"
	}
}

type MachineState struct {
	Registers [NUM_REGISTERS]uint8

	// Index register (I)
	Index uint16

	Program uint16

	Stack        [STACK_DEPTH]uint16
	StackPointer uint8

	Memory [MEMORY_SIZE]uint8

	// One byte per pixel, row-major, each 0 or 1
	Video [VIDEO_SIZE]uint8

	Keys [NUM_KEYS]bool

	DelayTimer uint8
	SoundTimer uint8

	// Key held down while an LD Vx, K instruction waits for its release
	KeyLatch   uint8
	KeyLatched bool

	VBlank bool
}

// Quirks selects between the behaviours that differ across historical
// interpreters.
type Quirks struct {
	// 8XY6/8XYE shift Vy into Vx instead of shifting Vx in place.
	ShiftUsesVY bool

	// FX55/FX65 leave I pointing past the last register transferred.
	LoadStoreAdvancesIndex bool

	// DXYN waits for the vblank flag before drawing.
	VBlankWait bool

	// FX1E sets VF when I leaves the 12-bit address space.
	IndexOverflowFlag bool
}

type Config struct {
	Quirks Quirks
	Seed   uint64
	Logger *log.Logger

	// Log every executed instruction at debug level.
	Trace bool
}

type MachineDebugger interface {
	Step(mc *Machine)
	Read(addr uint16, mc *Machine)
	Write(addr uint16, mc *Machine)
}

type Machine struct {
	State    MachineState
	Quirks   Quirks
	Debugger MachineDebugger

	logger *log.Logger
	trace  bool
	rng    *rand.Rand
}
