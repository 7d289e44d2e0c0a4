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
	"errors"
	"fmt"
)

var (
	ErrProgramTooLarge = errors.New("program too large to fit in memory")
	ErrStackOverflow   = errors.New("stack overflow")
	ErrStackUnderflow  = errors.New("stack underflow")
)

// DecodeError is returned for an instruction word that matches no known
// instruction.
type DecodeError struct {
	Opcode  uint16
	Address uint16
}

func (err *DecodeError) Error() string {
	return fmt.Sprintf(
		"unknown instruction 0x%04x at 0x%03x", err.Opcode, err.Address,
	)
}
