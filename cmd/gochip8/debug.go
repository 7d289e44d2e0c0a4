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

package main

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/retroenv/retrogolib/log"

	"github.com/lassandro/gochip8/pkg/assembler"
	"github.com/lassandro/gochip8/pkg/debugger"
	"github.com/lassandro/gochip8/pkg/encoding"
	"github.com/lassandro/gochip8/pkg/host"
	"github.com/lassandro/gochip8/pkg/machine"
)

var lastcmd []string
var shouldexit bool
var romImage []byte
var input *debugInput

// debugInput adds keys held from the debug CLI to the frontend's keys and
// turns a CLI quit into a driver quit.
type debugInput struct {
	host.Input
	held [machine.NUM_KEYS]bool
}

func (in *debugInput) Poll() ([machine.NUM_KEYS]bool, bool) {
	keys, quit := in.Input.Poll()

	for key, held := range in.held {
		keys[key] = keys[key] || held
	}

	return keys, quit || shouldexit
}

func attachDebugger(
	driver *host.Driver, filename string, rom []byte, logger *log.Logger,
) {
	var dbg debugger.Debugger
	dbg.HandleBreak = handleBreak
	dbg.HandleRead = handleRead
	dbg.HandleWrite = handleWrite
	driver.Machine.Debugger = &dbg

	romImage = rom
	input = &debugInput{Input: driver.Input}
	driver.Input = input

	symfile := strings.TrimSuffix(filename, filepath.Ext(filename)) + ".c8db"

	if file, err := os.Open(symfile); err == nil {
		var symtable assembler.SymTable

		if err := gob.NewDecoder(file).Decode(&symtable); err == nil {
			dbg.SymTable = &symtable
		} else {
			logger.Warn("Error loading symbol file", log.Err(err))
		}

		file.Close()
	} else {
		logger.Debug("No symbol file", log.String("path", symfile))
	}

	if dbg.SymTable != nil && dbg.SymTable.Source != "" {
		if file, err := os.Open(dbg.SymTable.Source); err == nil {
			dbg.Source = file
		} else {
			logger.Warn("Error loading source file", log.Err(err))
		}
	}

	c := make(chan os.Signal, 1)

	signal.Notify(c, os.Interrupt)
	go func() {
		for range c {
			fmt.Println()
			dbg.Break = true
		}
	}()

	debugREPL(&dbg, driver.Machine)
}

func listFormat(count int, suffix string) string {
	digits := math.Floor(math.Log10(float64(count + 1)))
	return fmt.Sprintf("#%%0%dd: %s\n", int64(digits)+1, suffix)
}

func debugBreak(dbg *debugger.Debugger, args []string) {
	const usage = "break [add|list|remove|clear]"

	if len(args) == 0 {
		args = append(args, "l")
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "a", "add":
		const usage = "break add [0x###|label]"

		if len(args) != 1 {
			fmt.Println(usage)
			return
		}

		addr, err := dbg.Resolve(args[0])

		if err != nil {
			fmt.Println(err)
			return
		}

		if dbg.AddBreakpoint(addr) {
			fmt.Printf("Breakpoint added [0x%03x]\n", addr)
		}

	case "l", "ls", "list":
		fmtstring := listFormat(len(dbg.Breakpoints), "0x%03x")

		for i, breakpoint := range dbg.Breakpoints {
			fmt.Printf(fmtstring, i, breakpoint.Addr)
		}

	case "r", "rm", "remove":
		const usage = "break remove [#]"

		if len(args) != 1 {
			fmt.Println(usage)
			return
		}

		i, err := strconv.Atoi(args[0])

		if err != nil {
			fmt.Println(err)
			return
		}

		if err := dbg.RemoveBreakpoint(i); err != nil {
			fmt.Println(err)
			return
		}

		fmt.Printf("Breakpoint removed [%d]\n", i)

	case "clear":
		dbg.Breakpoints = nil
		fmt.Println("Breakpoints reset")

	default:
		fmt.Printf("break: '%s' is not a valid command\n", cmd)
		fmt.Println(usage)
	}
}

func debugWatch(dbg *debugger.Debugger, args []string) {
	const usage = "watch [add|list|remove|clear]"

	if len(args) == 0 {
		args = append(args, "l")
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "a", "add":
		const usage = "watch add [0x###|label] [read|write|readwrite]"

		if len(args) != 2 {
			fmt.Println(usage)
			return
		}

		addr, err := dbg.Resolve(args[0])

		if err != nil {
			fmt.Println(err)
			return
		}

		var wtype debugger.WatchpointType

		switch args[1] {
		case "r", "read":
			wtype = debugger.ReadWatch
		case "w", "write":
			wtype = debugger.WriteWatch
		case "rw", "readwrite":
			wtype = debugger.ReadWriteWatch
		default:
			fmt.Println(usage)
			return
		}

		if dbg.AddWatchpoint(addr, wtype) {
			fmt.Printf("Watchpoint added [0x%03x] (%s)\n", addr, wtype)
		}

	case "l", "ls", "list":
		fmtstring := listFormat(len(dbg.Watchpoints), "0x%03x %s")

		for i, watchpoint := range dbg.Watchpoints {
			fmt.Printf(fmtstring, i, watchpoint.Addr, watchpoint.Type)
		}

	case "r", "rm", "remove":
		const usage = "watch remove [#]"

		if len(args) != 1 {
			fmt.Println(usage)
			return
		}

		i, err := strconv.Atoi(args[0])

		if err != nil {
			fmt.Println(err)
			return
		}

		if err := dbg.RemoveWatchpoint(i); err != nil {
			fmt.Println(err)
			return
		}

		fmt.Printf("Watchpoint removed [%d]\n", i)

	case "clear":
		dbg.Watchpoints = nil
		fmt.Println("Watchpoints reset")

	default:
		fmt.Printf("watch: '%s' is not a valid command\n", cmd)
		fmt.Println(usage)
	}
}

func debugReg(dbg *debugger.Debugger, mc *machine.MachineState, args []string) {
	const usage = "register [V#|I|PC] [value]"

	if len(args) == 0 {
		dbg.PrintRegs(os.Stdout, mc)
		return
	}

	if len(args) != 2 {
		fmt.Println(usage)
		return
	}

	value, err := encoding.DecodeLiteral(args[1])

	if err != nil {
		fmt.Println(err)
		return
	}

	name := strings.ToUpper(args[0])

	switch {
	case name == "I":
		mc.Index = uint16(value) & machine.ADDRESS_MASK
	case name == "PC":
		mc.Program = uint16(value) & machine.ADDRESS_MASK
	case len(name) == 2 && name[0] == 'V':
		register, err := strconv.ParseUint(name[1:], 16, 8)

		if err != nil {
			fmt.Println("Invalid register")
			return
		}

		mc.Registers[register] = uint8(value)
	default:
		fmt.Println("Invalid register")
		return
	}

	dbg.PrintRegs(os.Stdout, mc)
}

// parseRange reads the optional "[addr] [count]" arguments shared by the
// listing commands. A lone decimal number is taken as a count.
func parseRange(
	dbg *debugger.Debugger, args []string, addr uint16, count int,
) (uint16, int, bool) {
	if len(args) > 2 {
		return 0, 0, false
	}

	if len(args) > 0 {
		if value, err := strconv.Atoi(args[0]); err == nil && len(args) == 1 {
			return addr, value, true
		}

		resolved, err := dbg.Resolve(args[0])

		if err != nil {
			fmt.Println(err)
			return 0, 0, false
		}

		addr = resolved
	}

	if len(args) > 1 {
		value, err := strconv.Atoi(args[1])

		if err != nil {
			fmt.Println(err)
			return 0, 0, false
		}

		count = value
	}

	return addr, count, true
}

func debugSource(dbg *debugger.Debugger, mc *machine.MachineState, args []string) {
	const usage = "source [0x###|label] [#]"

	addr, count, ok := parseRange(dbg, args, mc.Program, 3)

	if !ok {
		fmt.Println(usage)
		return
	}

	dbg.PrintSource(os.Stdout, addr, count)
}

func debugDisasm(dbg *debugger.Debugger, mc *machine.MachineState, args []string) {
	const usage = "disasm [0x###|label] [#]"

	addr, count, ok := parseRange(dbg, args, mc.Program, 8)

	if !ok {
		fmt.Println(usage)
		return
	}

	dbg.PrintDisasm(os.Stdout, mc, addr, count)
}

func debugMemory(dbg *debugger.Debugger, mc *machine.MachineState, args []string) {
	const usage = "memory [0x###|label] [#]"

	addr, count, ok := parseRange(dbg, args, mc.Index, 8)

	if !ok || count < 0 || count > machine.MEMORY_SIZE {
		fmt.Println(usage)
		return
	}

	dbg.PrintMem(os.Stdout, mc, addr, uint16(count))
}

func debugLabels(dbg *debugger.Debugger, args []string) {
	const usage = "labels"

	if len(args) > 0 {
		fmt.Println(usage)
		return
	}

	dbg.PrintLabels(os.Stdout)
}

func debugJump(dbg *debugger.Debugger, mc *machine.MachineState, args []string) {
	const usage = "jump [0x###|label]"

	if len(args) != 1 {
		fmt.Println(usage)
		return
	}

	addr, err := dbg.Resolve(args[0])

	if err != nil {
		fmt.Println(err)
		return
	}

	mc.Program = addr & machine.ADDRESS_MASK
	fmt.Printf("\033[1mPC:\033[0m 0x%03x\n", mc.Program)
}

func debugSet(dbg *debugger.Debugger, mc *machine.MachineState, args []string) {
	const usage = "set [0x###|label] [value]"

	if len(args) != 2 {
		fmt.Println(usage)
		return
	}

	addr, err := dbg.Resolve(args[0])

	if err != nil {
		fmt.Println(err)
		return
	}

	value, err := encoding.DecodeLiteral(args[1])

	if err != nil || value < -0x80 || value > 0xFF {
		fmt.Println(usage)
		return
	}

	addr &= machine.ADDRESS_MASK
	mc.Memory[addr] = uint8(value)
	dbg.PrintMem(os.Stdout, mc, addr, 1)
}

func debugKeys(mc *machine.MachineState, args []string) {
	const usage = "keys [hold|release] [0-F]"

	if len(args) == 0 {
		for key, down := range mc.Keys {
			state := "\033[1;30mup\033[0m"

			if down {
				state = "down"
			}

			if input.held[key] {
				state += " (held)"
			}

			fmt.Printf("\033[1m%X:\033[0m %s\n", key, state)
		}

		if mc.KeyLatched {
			fmt.Printf("Waiting for release of %X\n", mc.KeyLatch)
		}

		return
	}

	if len(args) != 2 {
		fmt.Println(usage)
		return
	}

	key, err := strconv.ParseUint(args[1], 16, 8)

	if err != nil || key >= machine.NUM_KEYS {
		fmt.Println(usage)
		return
	}

	switch args[0] {
	case "h", "hold":
		input.held[key] = true
		fmt.Printf("Holding %X\n", key)
	case "r", "release":
		input.held[key] = false
		fmt.Printf("Released %X\n", key)
	default:
		fmt.Println(usage)
	}
}

func debugTimers(mc *machine.MachineState, args []string) {
	const usage = "timers [dt|st] [value]"

	if len(args) == 0 {
		fmt.Printf(
			"\033[1mDT:\033[0m %d\t\033[1mST:\033[0m %d\n",
			mc.DelayTimer,
			mc.SoundTimer,
		)
		return
	}

	if len(args) != 2 {
		fmt.Println(usage)
		return
	}

	value, err := encoding.DecodeLiteral(args[1])

	if err != nil || value < 0 || value > 0xFF {
		fmt.Println(usage)
		return
	}

	switch strings.ToUpper(args[0]) {
	case "DT":
		mc.DelayTimer = uint8(value)
	case "ST":
		mc.SoundTimer = uint8(value)
	default:
		fmt.Println(usage)
		return
	}

	debugTimers(mc, nil)
}

func debugReset(mc *machine.Machine) {
	mc.State.Reset()

	if err := mc.Load(romImage); err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println("Machine reset")
}

func debugREPL(dbg *debugger.Debugger, mc *machine.Machine) {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("\033[1;30m(dbg)\033[0m ")

		if !scanner.Scan() {
			fmt.Println()
			shouldexit = true
			return
		}

		args := strings.Fields(scanner.Text())

		if len(args) == 0 {
			if len(lastcmd) == 0 {
				continue
			}
			args = lastcmd
		} else {
			lastcmd = make([]string, len(args))
			copy(lastcmd, args)
		}

		cmd := args[0]
		args = args[1:]

		switch cmd {
		case "b", "bp", "break", "breakpoint":
			debugBreak(dbg, args)

		case "w", "wp", "watch", "watchpoint":
			debugWatch(dbg, args)

		case "r", "reg", "register", "registers":
			debugReg(dbg, &mc.State, args)

		case "s", "src", "source":
			debugSource(dbg, &mc.State, args)

		case "d", "dis", "disasm":
			debugDisasm(dbg, &mc.State, args)

		case "l", "label", "labels":
			debugLabels(dbg, args)

		case "j", "jmp", "jump":
			debugJump(dbg, &mc.State, args)

		case "m", "mem", "memory":
			debugMemory(dbg, &mc.State, args)

		case "set":
			debugSet(dbg, &mc.State, args)

		case "k", "key", "keys":
			debugKeys(&mc.State, args)

		case "t", "timer", "timers":
			debugTimers(&mc.State, args)

		case "c", "continue":
			dbg.Break = false
			return

		case "n", "next":
			dbg.Break = true
			return

		case "q", "quit", "exit":
			shouldexit = true
			dbg.Break = false
			return

		case "clear":
			fmt.Print("\033[H\033[2J")

		case "reset":
			debugReset(mc)

		default:
			fmt.Printf("error: '%s' is not a valid command\n", cmd)
		}
	}
}

func handleBreak(dbg *debugger.Debugger, mc *machine.Machine) {
	if !dbg.Break {
		fmt.Println()
		fmt.Println("Program stopped")
	}

	dbg.PrintDisasm(os.Stdout, &mc.State, mc.State.Program, 1)
	debugREPL(dbg, mc)
}

func handleRead(addr uint16, dbg *debugger.Debugger, mc *machine.Machine) {
	fmt.Println()
	fmt.Println("Program stopped on read")
	dbg.PrintMem(os.Stdout, &mc.State, addr, 1)
	debugREPL(dbg, mc)
}

func handleWrite(addr uint16, dbg *debugger.Debugger, mc *machine.Machine) {
	fmt.Println()
	fmt.Println("Program stopped on write")
	dbg.PrintMem(os.Stdout, &mc.State, addr, 1)
	debugREPL(dbg, mc)
}
