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
	"context"
	"errors"
	"time"

	"github.com/retroenv/retrogolib/log"

	"github.com/lassandro/gochip8/pkg/machine"
)

const (
	FRAME_RATE    = 60
	DEFAULT_CLOCK = 600
)

// ErrQuit is returned by the driver when the input reports a quit request.
var ErrQuit = errors.New("quit requested")

type Display interface {
	Draw(frame []uint8, cols, rows int) error
}

type Audio interface {
	Play(on bool)
}

// Input reports the current keypad state. The quit flag is handled by the
// driver and never reaches the machine.
type Input interface {
	Poll() (keys [machine.NUM_KEYS]bool, quit bool)
}

type Stats struct {
	Frames  uint64
	Ticks   uint64
	Retries uint64
}

// Driver paces a machine at a fixed clock, split into 60Hz frames.
type Driver struct {
	Machine *machine.Machine
	Display Display
	Audio   Audio
	Input   Input

	logger *log.Logger
	clock  int
	stats  Stats
}

func NewDriver(mc *machine.Machine, clock int, logger *log.Logger) *Driver {
	if clock < FRAME_RATE {
		clock = FRAME_RATE
	}

	if logger == nil {
		logger = log.NewWithConfig(log.DefaultConfig())
	}

	return &Driver{
		Machine: mc,
		Display: nullDevice{},
		Audio:   nullDevice{},
		Input:   nullDevice{},
		logger:  logger,
		clock:   clock,
	}
}

func (d *Driver) TicksPerFrame() int {
	return d.clock / FRAME_RATE
}

func (d *Driver) Stats() Stats {
	return d.stats
}

// Frame runs one frame: timers and vblank first, then the frame's ticks with
// fresh input before each one, then audio and video.
func (d *Driver) Frame() error {
	d.Machine.AdvanceTimers()
	d.Machine.SetVBlank(true)

	for range d.TicksPerFrame() {
		keys, quit := d.Input.Poll()

		if quit {
			return ErrQuit
		}

		d.Machine.WriteKeys(keys)

		outcome, err := d.Machine.Tick()

		if err != nil {
			d.logger.Error("Machine halted",
				log.Hex("pc", d.Machine.State.Program),
				log.Hex("opcode", d.Machine.Opcode()),
				log.Err(err),
			)
			return err
		}

		d.stats.Ticks++

		if outcome == machine.Retry {
			d.stats.Retries++
		}
	}

	d.stats.Frames++

	d.Audio.Play(d.Machine.SoundActive())

	frame := d.Machine.Framebuffer()

	return d.Display.Draw(frame[:], d.Machine.Cols(), d.Machine.Rows())
}

// Run calls Frame at 60Hz until ctx is cancelled or a frame fails.
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / FRAME_RATE)
	defer ticker.Stop()

	d.logger.Debug("Driver started",
		log.Int("clock", d.clock),
		log.Int("ticks_per_frame", d.TicksPerFrame()),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if err := d.Frame(); err != nil {
			return err
		}
	}
}

type nullDevice struct{}

func (nullDevice) Draw(frame []uint8, cols, rows int) error {
	return nil
}

func (nullDevice) Play(on bool) {}

func (nullDevice) Poll() (keys [machine.NUM_KEYS]bool, quit bool) {
	return keys, false
}
