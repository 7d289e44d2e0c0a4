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

package host_test

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"

	"github.com/lassandro/gochip8/pkg/host"
)

func TestKeyForRune(t *testing.T) {
	layout := map[rune]uint8{
		'1': 0x1, '2': 0x2, '3': 0x3, '4': 0xC,
		'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0xD,
		'a': 0x7, 's': 0x8, 'd': 0x9, 'f': 0xE,
		'z': 0xA, 'x': 0x0, 'c': 0xB, 'v': 0xF,
		'Q': 0x4, 'V': 0xF,
	}

	for r, want := range layout {
		have, ok := host.KeyForRune(r)

		if !ok || have != want {
			t.Fatalf("%q: want %X, have %X (%v)", r, want, have, ok)
		}
	}

	for _, r := range "05tgbp \x1b" {
		if _, ok := host.KeyForRune(r); ok {
			t.Fatalf("%q: expected no key", r)
		}
	}
}

func TestKeyHold(t *testing.T) {
	hold := host.KeyHold{Frames: 2}

	hold.Press(0xA)
	assert.True(t, hold.Keys()[0xA])

	hold.Advance()
	assert.True(t, hold.Keys()[0xA])

	hold.Advance()
	assert.False(t, hold.Keys()[0xA])

	hold.Advance()
	assert.False(t, hold.Keys()[0xA])
}

func TestKeyHoldMinimum(t *testing.T) {
	var hold host.KeyHold

	hold.Press(0x13)
	assert.True(t, hold.Keys()[0x3])

	hold.Advance()
	assert.False(t, hold.Keys()[0x3])
}

func TestBeeperSilent(t *testing.T) {
	beeper := host.NewBeeper()
	samples := []float32{1, 1, 1, 1}

	beeper.Fill(samples)
	assert.Equal(t, []float32{0, 0, 0, 0}, samples)
	assert.False(t, beeper.Playing())
}

func TestBeeperTone(t *testing.T) {
	beeper := host.NewBeeper()
	beeper.Play(true)
	assert.True(t, beeper.Playing())

	// One full period at 200Hz is 220.5 samples
	samples := make([]float32, 441)
	beeper.Fill(samples)

	high, low := 0, 0

	for _, sample := range samples {
		switch sample {
		case host.TONE_VOLUME:
			high++
		case -host.TONE_VOLUME:
			low++
		default:
			t.Fatalf("unexpected sample %f", sample)
		}
	}

	assert.Equal(t, float32(host.TONE_VOLUME), samples[0])
	assert.Equal(t, float32(-host.TONE_VOLUME), samples[111])
	assert.Equal(t, 441, high+low)
	assert.True(t, high >= 220 && high <= 222)
}

func TestBeeperRead(t *testing.T) {
	beeper := host.NewBeeper()
	beeper.Play(true)

	buffer := make([]byte, 10)
	n, err := beeper.Read(buffer)

	assert.NoError(t, err)
	assert.Equal(t, 8, n)
	// 0.25 as float32, little-endian
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3E}, buffer[:4])
}

func TestRenderBlocks(t *testing.T) {
	frame := []uint8{
		1, 0, 1, 0,
		1, 0, 0, 1,
		0, 1, 0, 0,
	}

	assert.Equal(t, "█ ▀▄\n ▀  \n", host.RenderBlocks(frame, 4, 3))
}
