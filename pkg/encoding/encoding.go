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

package encoding

import (
	"errors"
	"strconv"
	"strings"
)

var ErrInvalidLiteral = errors.New("Invalid numeric literal")

// DecodeHex accepts 0x2A, x2A and $2A.
func DecodeHex(s string) (uint16, error) {
	if strings.HasPrefix(s, "$") {
		s = "0x" + s[1:]
	} else if i := strings.IndexAny(s, "xX"); i == 0 {
		s = "0" + s
	} else if i == -1 || i != 1 {
		return 0, errors.New("Invalid hex string")
	}

	result, err := strconv.ParseUint(s, 0, 16)

	if err != nil {
		return 0, err
	}

	return uint16(result), nil
}

// DecodeInt accepts #42 and 42.
func DecodeInt(s string) (int16, error) {
	if i := strings.Index(s, "#"); i == 0 {
		s = s[1:]
	}

	result, err := strconv.ParseInt(s, 10, 16)

	if err != nil {
		return 0, err
	}

	return int16(result), nil
}

// DecodeBin accepts %0101 and 0b0101.
func DecodeBin(s string) (uint16, error) {
	if strings.HasPrefix(s, "%") {
		s = s[1:]
	} else if strings.HasPrefix(s, "0b") || strings.HasPrefix(s, "0B") {
		s = s[2:]
	} else {
		return 0, errors.New("Invalid binary string")
	}

	result, err := strconv.ParseUint(s, 2, 16)

	if err != nil {
		return 0, err
	}

	return uint16(result), nil
}

// DecodeLiteral decodes any of the hex, binary or decimal forms. Decimal
// literals may be negative.
func DecodeLiteral(s string) (int, error) {
	switch {
	case s == "":
		return 0, ErrInvalidLiteral

	case strings.HasPrefix(s, "%"),
		strings.HasPrefix(s, "0b"),
		strings.HasPrefix(s, "0B"):
		result, err := DecodeBin(s)
		if err != nil {
			return 0, ErrInvalidLiteral
		}
		return int(result), nil

	case strings.HasPrefix(s, "$"),
		strings.HasPrefix(s, "0x"),
		strings.HasPrefix(s, "0X"),
		strings.HasPrefix(s, "x"),
		strings.HasPrefix(s, "X"):
		result, err := DecodeHex(s)
		if err != nil {
			return 0, ErrInvalidLiteral
		}
		return int(result), nil
	}

	result, err := DecodeInt(s)

	if err != nil {
		return 0, ErrInvalidLiteral
	}

	return int(result), nil
}

// Word reads the big-endian word at addr, wrapping at the end of mem.
func Word(mem []byte, addr uint16) uint16 {
	hi := mem[int(addr)%len(mem)]
	lo := mem[(int(addr)+1)%len(mem)]

	return uint16(hi)<<8 | uint16(lo)
}

// PutWord stores value big-endian at addr, wrapping at the end of mem.
func PutWord(mem []byte, addr uint16, value uint16) {
	mem[int(addr)%len(mem)] = byte(value >> 8)
	mem[(int(addr)+1)%len(mem)] = byte(value)
}
