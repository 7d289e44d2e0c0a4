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

//go:build headless

package host

import (
	"errors"

	"github.com/lassandro/gochip8/pkg/machine"
)

var ErrHeadless = errors.New("built without window and audio support")

type Window struct {
	Title string
	Scale int
}

func NewWindow(driver *Driver, title string, scale int) *Window {
	return &Window{Title: title, Scale: scale}
}

func (w *Window) Run() error {
	return ErrHeadless
}

func (w *Window) Poll() (keys [machine.NUM_KEYS]bool, quit bool) {
	return keys, true
}

func (w *Window) Draw(frame []uint8, cols, rows int) error {
	return ErrHeadless
}

type OtoAudio struct{}

func NewOtoAudio() (*OtoAudio, error) {
	return nil, ErrHeadless
}

func (a *OtoAudio) Play(on bool) {}

func (a *OtoAudio) Close() error {
	return nil
}
