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
	"errors"
	"fmt"
	"image/color"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/retroenv/retrogolib/log"
	"golang.design/x/clipboard"
	"golang.org/x/image/font/basicfont"

	"github.com/lassandro/gochip8/pkg/machine"
)

// Window keys for each keypad key, matching KeypadRunes.
var windowKeys = [machine.NUM_KEYS]ebiten.Key{
	ebiten.KeyX, ebiten.KeyDigit1, ebiten.KeyDigit2, ebiten.KeyDigit3,
	ebiten.KeyQ, ebiten.KeyW, ebiten.KeyE, ebiten.KeyA,
	ebiten.KeyS, ebiten.KeyD, ebiten.KeyZ, ebiten.KeyC,
	ebiten.KeyDigit4, ebiten.KeyR, ebiten.KeyF, ebiten.KeyV,
}

var (
	pixelOn  = color.RGBA{0xE0, 0xE0, 0xE0, 0xFF}
	pixelOff = color.RGBA{0x10, 0x10, 0x10, 0xFF}
)

var (
	clipboardOnce sync.Once
	clipboardOK   bool
)

// Window runs the driver inside an ebiten game loop. It is the driver's
// Display and Input.
type Window struct {
	Title string
	Scale int

	driver  *Driver
	logger  *log.Logger
	image   *ebiten.Image
	pixels  []byte
	frame   []uint8
	keys    [machine.NUM_KEYS]bool
	quit    bool
	overlay bool
	err     error
}

func NewWindow(driver *Driver, title string, scale int) *Window {
	cols, rows := driver.Machine.Cols(), driver.Machine.Rows()

	w := &Window{
		Title:  title,
		Scale:  max(scale, 1),
		driver: driver,
		logger: driver.logger,
		pixels: make([]byte, cols*rows*4),
		frame:  make([]uint8, cols*rows),
	}

	driver.Display = w
	driver.Input = w

	return w
}

// Run blocks until the window is closed, the quit key is pressed or the
// machine halts. Only a halt is reported as an error.
func (w *Window) Run() error {
	cols, rows := w.driver.Machine.Cols(), w.driver.Machine.Rows()

	w.image = ebiten.NewImage(cols, rows)

	ebiten.SetWindowSize(cols*w.Scale, rows*w.Scale)
	ebiten.SetWindowTitle(w.Title)
	ebiten.SetWindowResizable(true)
	ebiten.SetWindowClosingHandled(true)
	ebiten.SetTPS(FRAME_RATE)

	if err := ebiten.RunGame(&windowGame{w}); err != nil &&
		!errors.Is(err, ebiten.Termination) {
		return err
	}

	return w.err
}

func (w *Window) Poll() ([machine.NUM_KEYS]bool, bool) {
	return w.keys, w.quit
}

func (w *Window) Draw(frame []uint8, cols, rows int) error {
	copy(w.frame, frame)

	for i, pixel := range frame {
		c := pixelOff

		if pixel != 0 {
			c = pixelOn
		}

		w.pixels[i*4+0] = c.R
		w.pixels[i*4+1] = c.G
		w.pixels[i*4+2] = c.B
		w.pixels[i*4+3] = c.A
	}

	return nil
}

func (w *Window) copyScreen() {
	clipboardOnce.Do(func() {
		clipboardOK = clipboard.Init() == nil
	})

	if !clipboardOK {
		w.logger.Warn("Clipboard unavailable")
		return
	}

	screen := RenderBlocks(w.frame, w.driver.Machine.Cols(), w.driver.Machine.Rows())
	clipboard.Write(clipboard.FmtText, []byte(screen))

	w.logger.Info("Screen copied to clipboard")
}

func (w *Window) update() error {
	if ebiten.IsWindowBeingClosed() {
		return ebiten.Termination
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		w.overlay = !w.overlay
	}

	ctrl := ebiten.IsKeyPressed(ebiten.KeyControlLeft) ||
		ebiten.IsKeyPressed(ebiten.KeyControlRight)
	shift := ebiten.IsKeyPressed(ebiten.KeyShiftLeft) ||
		ebiten.IsKeyPressed(ebiten.KeyShiftRight)

	if ctrl && shift && inpututil.IsKeyJustPressed(ebiten.KeyC) {
		w.copyScreen()
	}

	for key, mapped := range windowKeys {
		w.keys[key] = ebiten.IsKeyPressed(mapped)
	}

	w.quit = ebiten.IsKeyPressed(ebiten.KeyEscape)

	if err := w.driver.Frame(); err != nil {
		if !errors.Is(err, ErrQuit) {
			w.err = err
		}

		return ebiten.Termination
	}

	return nil
}

func (w *Window) draw(screen *ebiten.Image) {
	w.image.WritePixels(w.pixels)

	bounds := screen.Bounds()
	options := &ebiten.DrawImageOptions{}
	options.GeoM.Scale(
		float64(bounds.Dx())/float64(w.image.Bounds().Dx()),
		float64(bounds.Dy())/float64(w.image.Bounds().Dy()),
	)

	screen.DrawImage(w.image, options)

	if w.overlay {
		w.drawOverlay(screen)
	}
}

func (w *Window) drawOverlay(screen *ebiten.Image) {
	mc := w.driver.Machine
	stats := w.driver.Stats()

	lines := []string{
		fmt.Sprintf("PC %03X  I %03X  OP %04X", mc.State.Program, mc.State.Index, mc.Opcode()),
		fmt.Sprintf("V % X", mc.State.Registers[:]),
		fmt.Sprintf("DT %02X  ST %02X  SP %d", mc.State.DelayTimer, mc.State.SoundTimer, mc.State.StackPointer),
		fmt.Sprintf("frames %d  ticks %d  retries %d", stats.Frames, stats.Ticks, stats.Retries),
		fmt.Sprintf("%.1f fps", ebiten.ActualFPS()),
	}

	face := basicfont.Face7x13
	height := face.Height + 2

	ebitenutil.DrawRect(
		screen, 4, 4, float64(screen.Bounds().Dx()-8),
		float64(len(lines)*height+8), color.RGBA{0, 0, 0, 180},
	)

	for i, line := range lines {
		text.Draw(screen, line, face, 10, 8+face.Ascent+i*height, color.White)
	}
}

type windowGame struct {
	window *Window
}

func (g *windowGame) Update() error {
	return g.window.update()
}

func (g *windowGame) Draw(screen *ebiten.Image) {
	g.window.draw(screen)
}

func (g *windowGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	mc := g.window.driver.Machine
	return mc.Cols() * g.window.Scale, mc.Rows() * g.window.Scale
}
