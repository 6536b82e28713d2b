//go:build ebiten

package app

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/gogpu/life"
	"github.com/gogpu/life/internal/frame"
)

// Viewer adapts a Simulation to the ebiten.Game interface.
//
// Keys: Space start/pause, N single step, R reset, Left/Right hue,
// Up/Down brightness, C toggle colour, Tab toggle the status line, Q/Esc quit.
type Viewer struct {
	sim   *life.Simulation
	timer *FixedStep
	scale int

	width, height int
	pixels        []byte
	canvas        *ebiten.Image
	last          *image.Gray // last good frame

	palette    frame.Palette
	hue        float64
	brightness float64
	tinted     bool

	paused    bool
	tickOnce  bool
	showHUD   bool
	renderErr error
}

// NewViewer constructs a Viewer for sim advancing tps generations per second.
func NewViewer(sim *life.Simulation, scale, tps int) *Viewer {
	w, h := sim.Size()
	v := &Viewer{
		sim:        sim,
		timer:      NewFixedStep(tps),
		scale:      scale,
		width:      w,
		height:     h,
		pixels:     make([]byte, w*h*4),
		canvas:     ebiten.NewImage(w, h),
		palette:    frame.DefaultPalette,
		hue:        120,
		brightness: 1,
		paused:     true,
		showHUD:    true,
	}
	return v
}

// Update handles input and advances the simulation on timer ticks.
func (v *Viewer) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		v.paused = !v.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyN) {
		v.tickOnce = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		if err := v.sim.Reset(); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyTab) {
		v.showHUD = !v.showHUD
	}
	v.updateColour()

	if (v.timer.ShouldStep() && !v.paused) || v.tickOnce {
		v.tickOnce = false
		if err := v.sim.Advance(); err != nil {
			return fmt.Errorf("advance: %w", err)
		}
	}
	return v.render()
}

func (v *Viewer) updateColour() {
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		v.tinted = !v.tinted
	}
	if ebiten.IsKeyPressed(ebiten.KeyLeft) {
		v.hue -= 2
	}
	if ebiten.IsKeyPressed(ebiten.KeyRight) {
		v.hue += 2
	}
	if ebiten.IsKeyPressed(ebiten.KeyUp) {
		v.brightness = min(v.brightness+0.01, 1)
	}
	if ebiten.IsKeyPressed(ebiten.KeyDown) {
		v.brightness = max(v.brightness-0.01, 0.1)
	}
	saturation := 0.0
	if v.tinted {
		saturation = 1
	}
	v.palette.On = frame.Tint(v.hue, saturation, v.brightness)
}

// render pulls the current frame. A failed readback keeps the last good
// frame on screen and is retried next update.
func (v *Viewer) render() error {
	img, err := v.sim.RenderImage()
	switch {
	case err == nil:
		v.last = img
		v.renderErr = nil
	case errors.Is(err, life.ErrImageUnavailable):
		if v.renderErr == nil {
			slog.Warn("frame unavailable, keeping previous image", "err", err)
		}
		v.renderErr = err
	default:
		return err
	}
	if v.last != nil {
		v.palette.Fill(v.pixels, v.last)
		v.canvas.WritePixels(v.pixels)
	}
	return nil
}

// Draw scales the grid canvas onto the screen.
func (v *Viewer) Draw(screen *ebiten.Image) {
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(v.scale), float64(v.scale))
	screen.DrawImage(v.canvas, op)

	if v.showHUD {
		state := "running"
		if v.paused {
			state = "paused"
		}
		msg := fmt.Sprintf("gen %d  %s  %.0f TPS  %s",
			v.sim.Generation(), state, ebiten.ActualTPS(), v.sim.Device())
		if v.renderErr != nil {
			msg += "\nframe unavailable"
		}
		ebitenutil.DebugPrint(screen, msg)
	}
}

// Layout returns the logical screen size.
func (v *Viewer) Layout(_, _ int) (int, int) {
	return v.width * v.scale, v.height * v.scale
}
