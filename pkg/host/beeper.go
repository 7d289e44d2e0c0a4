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
	"encoding/binary"
	"math"
	"sync"
)

const (
	SAMPLE_RATE    = 44100
	TONE_FREQUENCY = 200
	TONE_VOLUME    = 0.25
)

// Beeper generates the square wave tone gated by the sound timer. It is an
// Audio and an io.Reader of mono float32 little-endian samples.
type Beeper struct {
	mutex  sync.Mutex
	on     bool
	phase  float64
	step   float64
	volume float32
}

func NewBeeper() *Beeper {
	return &Beeper{
		step:   float64(TONE_FREQUENCY) / SAMPLE_RATE,
		volume: TONE_VOLUME,
	}
}

func (b *Beeper) Play(on bool) {
	b.mutex.Lock()
	b.on = on
	b.mutex.Unlock()
}

func (b *Beeper) Playing() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return b.on
}

// Fill writes the next len(samples) samples. Silence keeps the phase still
// so the tone always restarts on a rising edge.
func (b *Beeper) Fill(samples []float32) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if !b.on {
		clear(samples)
		b.phase = 0
		return
	}

	for i := range samples {
		if b.phase < 0.5 {
			samples[i] = b.volume
		} else {
			samples[i] = -b.volume
		}

		b.phase += b.step

		if b.phase >= 1 {
			b.phase -= 1
		}
	}
}

func (b *Beeper) Read(p []byte) (int, error) {
	samples := make([]float32, len(p)/4)
	b.Fill(samples)

	for i, sample := range samples {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(sample))
	}

	return len(samples) * 4, nil
}
