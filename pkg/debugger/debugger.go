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

package debugger

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/lassandro/gochip8/pkg/disasm"
	"github.com/lassandro/gochip8/pkg/encoding"
	"github.com/lassandro/gochip8/pkg/machine"
)

func (dbg *Debugger) Step(mc *machine.Machine) {
	if dbg.HandleBreak == nil {
		return
	}

	if dbg.Break {
		dbg.HandleBreak(dbg, mc)
		return
	}

	for _, breakpoint := range dbg.Breakpoints {
		if mc.State.Program == breakpoint.Addr {
			dbg.HandleBreak(dbg, mc)
			break
		}
	}
}

func (dbg *Debugger) Read(addr uint16, mc *machine.Machine) {
	if dbg.HandleRead == nil {
		return
	}

	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Type == WriteWatch {
			continue
		}

		if addr == watchpoint.Addr {
			dbg.HandleRead(addr, dbg, mc)
			break
		}
	}
}

func (dbg *Debugger) Write(addr uint16, mc *machine.Machine) {
	if dbg.HandleWrite == nil {
		return
	}

	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Type == ReadWatch {
			continue
		}

		if addr == watchpoint.Addr {
			dbg.HandleWrite(addr, dbg, mc)
			break
		}
	}
}

// AddBreakpoint reports false if a breakpoint already exists at addr.
func (dbg *Debugger) AddBreakpoint(addr uint16) bool {
	for _, breakpoint := range dbg.Breakpoints {
		if breakpoint.Addr == addr {
			return false
		}
	}

	dbg.Breakpoints = append(dbg.Breakpoints, Breakpoint{addr})

	return true
}

func (dbg *Debugger) RemoveBreakpoint(i int) error {
	if i < 0 || i >= len(dbg.Breakpoints) {
		return ErrInvalidIndex
	}

	dbg.Breakpoints = append(dbg.Breakpoints[:i], dbg.Breakpoints[i+1:]...)

	return nil
}

// AddWatchpoint reports false if an identical watchpoint already exists.
func (dbg *Debugger) AddWatchpoint(addr uint16, wtype WatchpointType) bool {
	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Addr == addr && watchpoint.Type == wtype {
			return false
		}
	}

	dbg.Watchpoints = append(dbg.Watchpoints, Watchpoint{addr, wtype})

	return true
}

func (dbg *Debugger) RemoveWatchpoint(i int) error {
	if i < 0 || i >= len(dbg.Watchpoints) {
		return ErrInvalidIndex
	}

	dbg.Watchpoints = append(dbg.Watchpoints[:i], dbg.Watchpoints[i+1:]...)

	return nil
}

// Resolve turns a label name or numeric literal into an address.
func (dbg *Debugger) Resolve(arg string) (uint16, error) {
	if dbg.SymTable != nil {
		for addr, label := range dbg.SymTable.Labels {
			if label == arg {
				return addr, nil
			}
		}
	}

	value, err := encoding.DecodeLiteral(arg)

	if err != nil || value < 0 || value > 0xFFFF {
		return 0, fmt.Errorf("Unable to find '%s'", arg)
	}

	return uint16(value), nil
}

func (dbg *Debugger) Labels() []uint16 {
	if dbg.SymTable == nil {
		return nil
	}

	keys := make([]uint16, 0, len(dbg.SymTable.Labels))

	for addr := range dbg.SymTable.Labels {
		keys = append(keys, addr)
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	return keys
}

func (dbg *Debugger) PrintLabels(w io.Writer) {
	if dbg.SymTable == nil {
		fmt.Fprintln(w, ErrNoSymTable)
		return
	}

	for _, addr := range dbg.Labels() {
		fmt.Fprintf(
			w, "\033[1m[0x%03x]\033[0m %s\n", addr, dbg.SymTable.Labels[addr],
		)
	}
}

func (dbg *Debugger) PrintSource(w io.Writer, addr uint16, count int) {
	if dbg.Source == nil {
		fmt.Fprintln(w, "No source file loaded")
		return
	}

	if dbg.SymTable == nil {
		fmt.Fprintln(w, ErrNoSymTable)
		return
	}

	offset, exists := dbg.SymTable.Symbols[addr]

	if !exists {
		fmt.Fprintf(w, "No instruction found at 0x%03x\n", addr)
		return
	}

	if _, err := dbg.Source.Seek(offset, io.SeekStart); err != nil {
		fmt.Fprintln(w, err)
		return
	}

	lineAddrs := make(map[int64]uint16, len(dbg.SymTable.Symbols))

	for lineaddr, linebyte := range dbg.SymTable.Symbols {
		lineAddrs[linebyte] = lineaddr
	}

	scanner := bufio.NewScanner(dbg.Source)
	scanner.Split(bufio.ScanLines)

	for i := 0; i < count; i++ {
		if !scanner.Scan() {
			break
		}

		line := scanner.Text()

		if lineaddr, found := lineAddrs[offset]; found {
			fmt.Fprintf(w, "\033[1m[0x%03x]\033[0m ", lineaddr)
		} else {
			fmt.Fprint(w, "\033[1;30m~~~~~~~~\033[0m ")
		}

		fmt.Fprintln(w, line)

		offset += int64(len(line) + 1)
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintln(w, err)
	}
}

func (dbg *Debugger) PrintDisasm(
	w io.Writer, mc *machine.MachineState, addr uint16, count int,
) {
	for _, line := range disasm.Listing(mc.Memory[:], addr, count) {
		if dbg.SymTable != nil {
			if label, exists := dbg.SymTable.Labels[line.Address]; exists {
				fmt.Fprintf(w, "\033[1;30m%s:\033[0m\n", label)
			}
		}

		if line.Address == mc.Program {
			fmt.Fprintf(w, "\033[1m=>\033[0m %s\n", line)
		} else {
			fmt.Fprintf(w, "   %s\n", line)
		}
	}
}

func (dbg *Debugger) PrintMem(w io.Writer, mc *machine.MachineState, addr, count uint16) {
	for i := uint16(0); i < count; i++ {
		at := (addr + i) & machine.ADDRESS_MASK

		if i == 0 {
			fmt.Fprintf(w, "\033[1m[0x%03x]\033[0m ", at)
		} else if i%8 == 0 {
			fmt.Fprintln(w)
			fmt.Fprintf(w, "\033[1m[0x%03x]\033[0m ", at)
		}

		result := mc.Memory[at]

		if result == 0 {
			fmt.Fprintf(w, "\033[1;30m0x%02x\033[0m ", result)
		} else {
			fmt.Fprintf(w, "0x%02x ", result)
		}
	}

	fmt.Fprintln(w)
}

func (dbg *Debugger) PrintRegs(w io.Writer, mc *machine.MachineState) {
	for i, register := range mc.Registers {
		fmt.Fprintf(w, "\033[1mV%X:\033[0m 0x%02x\t", i, register)

		if i%8 == 7 {
			fmt.Fprintln(w)
		}
	}

	fmt.Fprintf(
		w,
		"\033[1mI:\033[0m 0x%03x\t\033[1mPC:\033[0m 0x%03x\t"+
			"\033[1mDT:\033[0m %d\t\033[1mST:\033[0m %d\n",
		mc.Index,
		mc.Program,
		mc.DelayTimer,
		mc.SoundTimer,
	)

	fmt.Fprintf(w, "\033[1mStack:\033[0m")

	for i := uint8(0); i < mc.StackPointer; i++ {
		fmt.Fprintf(w, " 0x%03x", mc.Stack[i])
	}

	fmt.Fprintln(w)
}
