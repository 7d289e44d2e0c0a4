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

package host

import (
	"unicode"

	"github.com/lassandro/gochip8/pkg/machine"
)

// Host keys for each keypad key, indexed by keypad value.
//
//	1 2 3 4        1 2 3 C
//	Q W E R   ->   4 5 6 D
//	A S D F        7 8 9 E
//	Z X C V        A 0 B F
var KeypadRunes = [machine.NUM_KEYS]rune{
	'x', '1', '2', '3',
	'q', 'w', 'e', 'a',
	's', 'd', 'z', 'c',
	'4', 'r', 'f', 'v',
}

// KeyForRune returns the keypad key mapped to r, ignoring case.
func KeyForRune(r rune) (uint8, bool) {
	r = unicode.ToLower(r)

	for key, mapped := range KeypadRunes {
		if mapped == r {
			return uint8(key), true
		}
	}

	return 0, false
}

// KeyHold keeps a key down for a number of frames after it was pressed, for
// hosts that only report presses.
type KeyHold struct {
	Frames    int
	remaining [machine.NUM_KEYS]int
}

func (h *KeyHold) Press(key uint8) {
	h.remaining[key&0xF] = max(h.Frames, 1)
}

func (h *KeyHold) Keys() (keys [machine.NUM_KEYS]bool) {
	for key, frames := range h.remaining {
		keys[key] = frames > 0
	}

	return keys
}

// Advance counts every held key down by one frame.
func (h *KeyHold) Advance() {
	for key := range h.remaining {
		if h.remaining[key] > 0 {
			h.remaining[key]--
		}
	}
}
