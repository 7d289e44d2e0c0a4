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
	"bufio"
	"errors"
	"os"
	"strings"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/lassandro/gochip8/pkg/machine"
)

const DEFAULT_HOLD_FRAMES = 6

const (
	termClear      = "\033[2J"
	termHome       = "\033[H"
	termHideCursor = "\033[?25l"
	termShowCursor = "\033[?25h"
)

// Terminal runs the machine in a raw mode terminal. Terminals only report
// key presses, so each press is held down for Hold.Frames frames.
type Terminal struct {
	Hold KeyHold

	fd      int
	restore *term.State
	output  *bufio.Writer
	input   [64]byte
	quit    bool
	escape  escapeState
	beeping bool
}

type escapeState uint

const (
	escapeNone escapeState = iota
	escapeStart
	escapeSequence
)

func NewTerminal(input, output *os.File) (*Terminal, error) {
	fd := int(input.Fd())

	if !term.IsTerminal(fd) {
		return nil, errors.New("standard input is not a terminal")
	}

	if cols, rows, err := term.GetSize(int(output.Fd())); err == nil {
		if cols < machine.VIDEO_COLS || rows < machine.VIDEO_ROWS/2 {
			return nil, errors.New("terminal is smaller than 64x16")
		}
	}

	restore, err := term.MakeRaw(fd)

	if err != nil {
		return nil, err
	}

	t := &Terminal{
		Hold:    KeyHold{Frames: DEFAULT_HOLD_FRAMES},
		fd:      fd,
		restore: restore,
		output:  bufio.NewWriter(output),
	}

	t.output.WriteString(termHideCursor + termClear)

	return t, t.output.Flush()
}

func (t *Terminal) Close() error {
	t.output.WriteString(termShowCursor + "\r\n")
	t.output.Flush()

	return term.Restore(t.fd, t.restore)
}

// Poll drains pending input. Escape or Ctrl+C requests a quit; escape
// sequences such as arrow keys are skipped, even when split across reads.
func (t *Terminal) Poll() ([machine.NUM_KEYS]bool, bool) {
	received := false

	for t.pending() {
		n, err := unix.Read(t.fd, t.input[:])

		if err != nil || n <= 0 {
			break
		}

		received = true
		t.handleInput(t.input[:n])
	}

	if !received {
		t.idle()
	}

	return t.Hold.Keys(), t.quit
}

func (t *Terminal) pending() bool {
	fds := []unix.PollFd{{Fd: int32(t.fd), Events: unix.POLLIN}}

	n, err := unix.Poll(fds, 0)

	return err == nil && n > 0 && fds[0].Revents&unix.POLLIN != 0
}

func (t *Terminal) handleInput(data []byte) {
	for _, char := range data {
		switch t.escape {
		case escapeStart:
			t.escape = escapeNone

			if char == '[' {
				t.escape = escapeSequence
				continue
			}

			t.quit = true

		case escapeSequence:
			// CSI ends on its final byte
			if char >= 0x40 && char <= 0x7E {
				t.escape = escapeNone
			}

			continue
		}

		switch char {
		case 0x03:
			t.quit = true
		case 0x1B:
			t.escape = escapeStart
		default:
			if key, ok := KeyForRune(rune(char)); ok {
				t.Hold.Press(key)
			}
		}
	}
}

// idle resolves an escape left at the end of the previous read: with
// nothing following it, it was the Escape key.
func (t *Terminal) idle() {
	if t.escape == escapeStart {
		t.escape = escapeNone
		t.quit = true
	}
}

func (t *Terminal) Draw(frame []uint8, cols, rows int) error {
	t.Hold.Advance()

	t.output.WriteString(termHome)
	t.output.WriteString(
		strings.ReplaceAll(RenderBlocks(frame, cols, rows), "\n", "\r\n"),
	)

	return t.output.Flush()
}

// Play rings the terminal bell when the tone starts.
func (t *Terminal) Play(on bool) {
	if on && !t.beeping {
		t.output.WriteByte('\a')
	}

	t.beeping = on
}
