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
	"io"
	"math/rand/v2"

	"github.com/retroenv/retrogolib/log"

	"github.com/lassandro/gochip8/pkg/disasm"
	"github.com/lassandro/gochip8/pkg/encoding"
)

// New creates a machine with zeroed state and the font loaded into low
// memory.
func New(cfg Config) *Machine {
	mc := &Machine{
		Quirks: cfg.Quirks,
		logger: cfg.Logger,
		trace:  cfg.Trace,
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9E3779B97F4A7C15)),
	}

	if mc.logger == nil {
		mc.logger = log.NewWithConfig(log.DefaultConfig())
	}

	mc.State.Reset()

	return mc
}

func (mc *MachineState) Reset() {
	*mc = MachineState{}

	copy(mc.Memory[MEMSPACE_FONT:], FontSet[:])

	mc.Program = MEMSPACE_PROGRAM
}

// Load copies program into memory at the program start address and points
// pc at it. Registers, stack and timers are left as they are.
func (mc *Machine) Load(program []byte) error {
	available := MEMORY_SIZE - PROGRAM_START

	if len(program) > available {
		return fmt.Errorf(
			"%w: %d bytes, %d available",
			ErrProgramTooLarge, len(program), available,
		)
	}

	mc.logger.Info("Loading program", log.Int("bytes", len(program)))

	copy(mc.State.Memory[MEMSPACE_PROGRAM:], program)
	mc.State.Program = MEMSPACE_PROGRAM

	return nil
}

func (mc *Machine) LoadFrom(reader io.Reader) error {
	limit := int64(MEMORY_SIZE-PROGRAM_START) + 1

	program, err := io.ReadAll(io.LimitReader(reader, limit))

	if err != nil {
		return err
	}

	return mc.Load(program)
}

// WriteKeys replaces the whole key state.
func (mc *Machine) WriteKeys(keys [NUM_KEYS]bool) {
	mc.State.Keys = keys
}

// AdvanceTimers counts both timers down by one, stopping at zero. It is
// meant to be called at 60Hz independently of the tick rate.
func (mc *Machine) AdvanceTimers() {
	if mc.State.DelayTimer > 0 {
		mc.State.DelayTimer--
	}

	if mc.State.SoundTimer > 0 {
		mc.State.SoundTimer--
	}
}

func (mc *Machine) SetVBlank(vblank bool) {
	mc.State.VBlank = vblank
}

// Framebuffer returns a copy of the pixel grid.
func (mc *Machine) Framebuffer() [VIDEO_SIZE]uint8 {
	return mc.State.Video
}

func (mc *Machine) SoundActive() bool {
	return mc.State.SoundTimer > 0
}

func (mc *Machine) Cols() int {
	return VIDEO_COLS
}

func (mc *Machine) Rows() int {
	return VIDEO_ROWS
}

// Opcode returns the instruction word at pc without executing it.
func (mc *Machine) Opcode() uint16 {
	return encoding.Word(mc.State.Memory[:], mc.State.Program&ADDRESS_MASK)
}

func (mc *Machine) push(value uint16) error {
	if int(mc.State.StackPointer) >= STACK_DEPTH {
		return ErrStackOverflow
	}

	mc.State.Stack[mc.State.StackPointer] = value
	mc.State.StackPointer++

	return nil
}

func (mc *Machine) pop() (uint16, error) {
	if mc.State.StackPointer == 0 {
		return 0, ErrStackUnderflow
	}

	mc.State.StackPointer--

	return mc.State.Stack[mc.State.StackPointer], nil
}

func (mc *Machine) read(addr uint16) uint8 {
	addr &= ADDRESS_MASK

	if mc.Debugger != nil {
		mc.Debugger.Read(addr, mc)
	}

	return mc.State.Memory[addr]
}

func (mc *Machine) write(addr uint16, value uint8) {
	addr &= ADDRESS_MASK

	mc.State.Memory[addr] = value

	if mc.Debugger != nil {
		mc.Debugger.Write(addr, mc)
	}
}

func (mc *Machine) fetch() uint16 {
	instruction := mc.Opcode()
	mc.State.Program += INSTRUCTION_SIZE

	return instruction
}

// Tick fetches, decodes and executes the instruction at pc. A Retry outcome
// leaves pc on the same instruction. On error pc is left on the faulting
// instruction and the machine must not be ticked again.
func (mc *Machine) Tick() (Outcome, error) {
	addr := mc.State.Program
	instruction := mc.fetch()

	outcome, err := mc.execute(instruction)

	if err != nil {
		mc.State.Program = addr

		if decodeErr, ok := err.(*DecodeError); ok {
			decodeErr.Address = addr
			return outcome, decodeErr
		}

		return outcome, fmt.Errorf(
			"%s at 0x%03x: %w", disasm.Instruction(instruction), addr, err,
		)
	}

	if outcome == Retry {
		mc.State.Program -= INSTRUCTION_SIZE
	}

	if mc.trace {
		mc.logger.Debug("Step",
			log.Hex("pc", addr),
			log.Hex("opcode", instruction),
			log.String("instruction", disasm.Instruction(instruction)),
			log.Hex("i", mc.State.Index),
			log.String("v", fmt.Sprintf("% X", mc.State.Registers[:])),
			log.String("outcome", outcome.String()),
		)
	}

	if mc.Debugger != nil {
		mc.Debugger.Step(mc)
	}

	return outcome, nil
}

func (mc *Machine) execute(instruction uint16) (Outcome, error) {
	v := &mc.State.Registers

	x := encoding.X(instruction)
	y := encoding.Y(instruction)

	switch encoding.Family(instruction) {
	// CLS  |0000    |0000   |1110   |0000   | Clear display
	// RET  |0000    |0000   |1110   |1110   | Return from subroutine
	// SYS  |0000    |NNN                    | Machine code routine
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_SYS:
		switch instruction {
		case SYS_CLS:
			mc.State.Video = [VIDEO_SIZE]uint8{}

		case SYS_RET:
			addr, err := mc.pop()

			if err != nil {
				return Completed, err
			}

			mc.State.Program = addr

		default:
			// Only meaningful on the original hardware, ignored here
			mc.logger.Debug("Ignoring machine code routine",
				log.Hex("addr", encoding.NNN(instruction)),
			)
		}

	// JP   |0001    |NNN                    | Jump
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_JP:
		mc.State.Program = encoding.NNN(instruction)

	// CALL |0010    |NNN                    | Call subroutine
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_CALL:
		if err := mc.push(mc.State.Program); err != nil {
			return Completed, err
		}

		mc.State.Program = encoding.NNN(instruction)

	// SE   |0011    |X      |NN             | Skip if Vx == NN
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_SEI:
		if v[x] == encoding.NN(instruction) {
			mc.State.Program += INSTRUCTION_SIZE
		}

	// SNE  |0100    |X      |NN             | Skip if Vx != NN
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_SNEI:
		if v[x] != encoding.NN(instruction) {
			mc.State.Program += INSTRUCTION_SIZE
		}

	// SE   |0101    |X      |Y      |0000   | Skip if Vx == Vy
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_SER:
		if encoding.N(instruction) != 0 {
			return Completed, &DecodeError{Opcode: instruction}
		}

		if v[x] == v[y] {
			mc.State.Program += INSTRUCTION_SIZE
		}

	// LD   |0110    |X      |NN             | Load immediate
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_LDI:
		v[x] = encoding.NN(instruction)

	// ADD  |0111    |X      |NN             | Add immediate, no carry
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_ADDI:
		v[x] += encoding.NN(instruction)

	// LD   |1000    |X      |Y      |0000   | Vx = Vy
	// OR   |1000    |X      |Y      |0001   | Vx |= Vy
	// AND  |1000    |X      |Y      |0010   | Vx &= Vy
	// XOR  |1000    |X      |Y      |0011   | Vx ^= Vy
	// ADD  |1000    |X      |Y      |0100   | Vx += Vy, VF = carry
	// SUB  |1000    |X      |Y      |0101   | Vx -= Vy, VF = !borrow
	// SHR  |1000    |X      |Y      |0110   | Vx >>= 1, VF = lsb
	// SUBN |1000    |X      |Y      |0111   | Vx = Vy - Vx, VF = !borrow
	// SHL  |1000    |X      |Y      |1110   | Vx <<= 1, VF = msb
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_ALU:
		return mc.executeALU(instruction, x, y)

	// SNE  |1001    |X      |Y      |0000   | Skip if Vx != Vy
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_SNER:
		if encoding.N(instruction) != 0 {
			return Completed, &DecodeError{Opcode: instruction}
		}

		if v[x] != v[y] {
			mc.State.Program += INSTRUCTION_SIZE
		}

	// LD   |1010    |NNN                    | I = NNN
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_LDIX:
		mc.State.Index = encoding.NNN(instruction)

	// JP   |1011    |NNN                    | Jump to NNN + V0
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_JPV0:
		mc.State.Program = encoding.NNN(instruction) + uint16(v[0])

	// RND  |1100    |X      |NN             | Vx = random & NN
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_RND:
		v[x] = uint8(mc.rng.Uint32()) & encoding.NN(instruction)

	// DRW  |1101    |X      |Y      |N      | Draw N byte sprite at Vx, Vy
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_DRW:
		if mc.Quirks.VBlankWait && !mc.State.VBlank {
			return Retry, nil
		}

		mc.draw(v[x], v[y], encoding.N(instruction))

		if mc.Quirks.VBlankWait {
			mc.State.VBlank = false
		}

	// SKP  |1110    |X      |10011110       | Skip if key Vx down
	// SKNP |1110    |X      |10100001       | Skip if key Vx up
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_KEY:
		down := mc.State.Keys[v[x]&0xF]

		switch uint16(encoding.NN(instruction)) {
		case KEY_SKP:
			if down {
				mc.State.Program += INSTRUCTION_SIZE
			}
		case KEY_SKNP:
			if !down {
				mc.State.Program += INSTRUCTION_SIZE
			}
		default:
			return Completed, &DecodeError{Opcode: instruction}
		}

	// LD   |1111    |X      |00000111       | Vx = DT
	// LD   |1111    |X      |00001010       | Vx = K (blocking)
	// LD   |1111    |X      |00010101       | DT = Vx
	// LD   |1111    |X      |00011000       | ST = Vx
	// ADD  |1111    |X      |00011110       | I += Vx
	// LD   |1111    |X      |00101001       | I = glyph Vx
	// LD   |1111    |X      |00110011       | [I] = BCD Vx
	// LD   |1111    |X      |01010101       | [I] = V0..Vx
	// LD   |1111    |X      |01100101       | V0..Vx = [I]
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case OP_MISC:
		return mc.executeMisc(instruction, x)
	}

	return Completed, nil
}

func (mc *Machine) executeALU(instruction uint16, x, y uint8) (Outcome, error) {
	v := &mc.State.Registers

	switch uint16(encoding.N(instruction)) {
	case ALU_LD:
		v[x] = v[y]

	case ALU_OR:
		v[x] |= v[y]

	case ALU_AND:
		v[x] &= v[y]

	case ALU_XOR:
		v[x] ^= v[y]

	case ALU_ADD:
		sum := uint16(v[x]) + uint16(v[y])

		v[x] = uint8(sum)
		v[FLAG_REGISTER] = boolToFlag(sum > 0xFF)

	case ALU_SUB:
		minuend, subtrahend := v[x], v[y]

		v[x] = minuend - subtrahend
		v[FLAG_REGISTER] = boolToFlag(minuend >= subtrahend)

	case ALU_SUBN:
		minuend, subtrahend := v[y], v[x]

		v[x] = minuend - subtrahend
		v[FLAG_REGISTER] = boolToFlag(minuend >= subtrahend)

	case ALU_SHR:
		source := mc.shiftSource(x, y)

		v[x] = source >> 1
		v[FLAG_REGISTER] = source & 0x1

	case ALU_SHL:
		source := mc.shiftSource(x, y)

		v[x] = source << 1
		v[FLAG_REGISTER] = source >> 7

	default:
		return Completed, &DecodeError{Opcode: instruction}
	}

	return Completed, nil
}

func (mc *Machine) shiftSource(x, y uint8) uint8 {
	if mc.Quirks.ShiftUsesVY {
		return mc.State.Registers[y]
	}

	return mc.State.Registers[x]
}

func (mc *Machine) executeMisc(instruction uint16, x uint8) (Outcome, error) {
	v := &mc.State.Registers

	switch uint16(encoding.NN(instruction)) {
	case MISC_LD_VX_DT:
		v[x] = mc.State.DelayTimer

	case MISC_LD_VX_K:
		return mc.waitKey(x), nil

	case MISC_LD_DT_VX:
		mc.State.DelayTimer = v[x]

	case MISC_LD_ST_VX:
		mc.State.SoundTimer = v[x]

	case MISC_ADD_I_VX:
		mc.State.Index += uint16(v[x])

		if mc.Quirks.IndexOverflowFlag {
			v[FLAG_REGISTER] = boolToFlag(mc.State.Index > ADDRESS_MASK)
		}

	case MISC_LD_F_VX:
		mc.State.Index = uint16(v[x]) * FONT_BYTES_PER_GLYPH

	case MISC_LD_B_VX:
		value := v[x]

		mc.write(mc.State.Index, value/100)
		mc.write(mc.State.Index+1, value/10%10)
		mc.write(mc.State.Index+2, value%10)

	case MISC_LD_I_VX:
		for i := uint16(0); i <= uint16(x); i++ {
			mc.write(mc.State.Index+i, v[i])
		}

		if mc.Quirks.LoadStoreAdvancesIndex {
			mc.State.Index += uint16(x) + 1
		}

	case MISC_LD_VX_I:
		for i := uint16(0); i <= uint16(x); i++ {
			v[i] = mc.read(mc.State.Index + i)
		}

		if mc.Quirks.LoadStoreAdvancesIndex {
			mc.State.Index += uint16(x) + 1
		}

	default:
		return Completed, &DecodeError{Opcode: instruction}
	}

	return Completed, nil
}

// waitKey completes only once a key seen held down has been released, so
// one press is never consumed by two consecutive waits.
func (mc *Machine) waitKey(x uint8) Outcome {
	if mc.State.KeyLatched {
		if mc.State.Keys[mc.State.KeyLatch] {
			return Retry
		}

		mc.State.Registers[x] = mc.State.KeyLatch
		mc.State.KeyLatched = false

		return Completed
	}

	for key, down := range mc.State.Keys {
		if down {
			mc.State.KeyLatch = uint8(key)
			mc.State.KeyLatched = true
			break
		}
	}

	return Retry
}

// draw XORs an 8 pixel wide sprite of height rows onto the display. The
// origin wraps around the screen but the sprite itself is clipped at the
// right and bottom edges.
func (mc *Machine) draw(vx, vy uint8, height uint8) {
	col := int(vx) % VIDEO_COLS
	row := int(vy) % VIDEO_ROWS

	var collision uint8

	for dy := 0; dy < int(height) && row+dy < VIDEO_ROWS; dy++ {
		sprite := mc.read(mc.State.Index + uint16(dy))

		for dx := 0; dx < 8 && col+dx < VIDEO_COLS; dx++ {
			if sprite&(0x80>>dx) == 0 {
				continue
			}

			pixel := &mc.State.Video[(row+dy)*VIDEO_COLS+col+dx]

			if *pixel == 1 {
				collision = 1
			}

			*pixel ^= 1
		}
	}

	mc.State.Registers[FLAG_REGISTER] = collision
}

func boolToFlag(value bool) uint8 {
	if value {
		return 1
	}

	return 0
}
