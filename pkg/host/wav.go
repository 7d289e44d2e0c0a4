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
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	WAV_BIT_DEPTH  = 16
	WAV_SAMPLE_MAX = 1<<(WAV_BIT_DEPTH-1) - 1
)

// WavRecorder records the tone to a 16-bit mono WAV stream, one frame of
// samples per Play call, and forwards Play to Next.
type WavRecorder struct {
	Next Audio

	beeper  *Beeper
	encoder *wav.Encoder
	samples []float32
	buffer  *audio.IntBuffer
	err     error
}

func NewWavRecorder(output io.WriteSeeker, next Audio) *WavRecorder {
	count := SAMPLE_RATE / FRAME_RATE

	return &WavRecorder{
		Next:    next,
		beeper:  NewBeeper(),
		encoder: wav.NewEncoder(output, SAMPLE_RATE, WAV_BIT_DEPTH, 1, 1),
		samples: make([]float32, count),
		buffer: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: 1,
				SampleRate:  SAMPLE_RATE,
			},
			Data:           make([]int, count),
			SourceBitDepth: WAV_BIT_DEPTH,
		},
	}
}

func (w *WavRecorder) Play(on bool) {
	if w.Next != nil {
		w.Next.Play(on)
	}

	if w.err != nil {
		return
	}

	w.beeper.Play(on)
	w.beeper.Fill(w.samples)

	for i, sample := range w.samples {
		w.buffer.Data[i] = int(sample * WAV_SAMPLE_MAX)
	}

	w.err = w.encoder.Write(w.buffer)
}

// Close finishes the WAV header. The first write error, if any, is returned
// instead.
func (w *WavRecorder) Close() error {
	if err := w.encoder.Close(); err != nil && w.err == nil {
		w.err = err
	}

	return w.err
}
