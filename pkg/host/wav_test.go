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
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/retroenv/retrogolib/assert"

	"github.com/lassandro/gochip8/pkg/host"
)

type recordingAudio struct {
	calls []bool
}

func (r *recordingAudio) Play(on bool) {
	r.calls = append(r.calls, on)
}

func TestWavRecorder(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "tone.wav")

	file, err := os.Create(filename)
	assert.NoError(t, err)

	next := &recordingAudio{}
	recorder := host.NewWavRecorder(file, next)

	for frame := range 6 {
		recorder.Play(frame < 3)
	}

	assert.NoError(t, recorder.Close())
	assert.NoError(t, file.Close())
	assert.Equal(t, []bool{true, true, true, false, false, false}, next.calls)

	file, err = os.Open(filename)
	assert.NoError(t, err)
	defer file.Close()

	decoder := wav.NewDecoder(file)
	assert.True(t, decoder.IsValidFile())
	assert.Equal(t, uint32(host.SAMPLE_RATE), decoder.SampleRate)
	assert.Equal(t, uint16(1), decoder.NumChans)
	assert.Equal(t, uint16(host.WAV_BIT_DEPTH), decoder.BitDepth)

	buffer, err := decoder.FullPCMBuffer()
	assert.NoError(t, err)

	perFrame := host.SAMPLE_RATE / host.FRAME_RATE
	assert.Len(t, buffer.Data, 6*perFrame)

	assert.Equal(t, 8191, buffer.Data[0])
	assert.Equal(t, 0, buffer.Data[3*perFrame])
}

func TestWavRecorderNoNext(t *testing.T) {
	file, err := os.Create(filepath.Join(t.TempDir(), "silence.wav"))
	assert.NoError(t, err)
	defer file.Close()

	recorder := host.NewWavRecorder(file, nil)
	recorder.Play(false)

	assert.NoError(t, recorder.Close())
}
