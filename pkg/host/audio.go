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

//go:build !headless

package host

import (
	"time"

	"github.com/ebitengine/oto/v3"
)

// OtoAudio plays the beeper tone through the system audio device.
type OtoAudio struct {
	beeper *Beeper
	player *oto.Player
}

func NewOtoAudio() (*OtoAudio, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   SAMPLE_RATE,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   50 * time.Millisecond,
	})

	if err != nil {
		return nil, err
	}

	<-ready

	a := &OtoAudio{beeper: NewBeeper()}
	a.player = ctx.NewPlayer(a.beeper)
	a.player.Play()

	return a, nil
}

func (a *OtoAudio) Play(on bool) {
	a.beeper.Play(on)
}

func (a *OtoAudio) Close() error {
	return a.player.Close()
}
