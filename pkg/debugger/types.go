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
	"errors"
	"io"

	"github.com/lassandro/gochip8/pkg/assembler"
	"github.com/lassandro/gochip8/pkg/machine"
)

var (
	ErrInvalidIndex = errors.New("Invalid breakpoint number")
	ErrNoSymTable   = errors.New("No symbol table loaded")
)

type WatchpointType uint

const (
	ReadWatch WatchpointType = iota + 1
	WriteWatch
	ReadWriteWatch
)

func (wtype WatchpointType) String() string {
	switch wtype {
	case ReadWatch:
		return "read"
	case WriteWatch:
		return "write"
	case ReadWriteWatch:
		return "readwrite"
	default:
		return "<invalid>"
	}
}

type Watchpoint struct {
	Addr uint16
	Type WatchpointType
}

type Breakpoint struct {
	Addr uint16
}

type Debugger struct {
	// Stop before the next instruction regardless of breakpoints
	Break bool

	Breakpoints []Breakpoint
	Watchpoints []Watchpoint

	Source   io.ReadSeeker
	SymTable *assembler.SymTable

	HandleBreak func(*Debugger, *machine.Machine)
	HandleRead  func(uint16, *Debugger, *machine.Machine)
	HandleWrite func(uint16, *Debugger, *machine.Machine)
}
