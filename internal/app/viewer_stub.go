//go:build !ebiten

package app

import (
	"errors"

	"github.com/gogpu/life"
)

// ErrNoGUI is returned by the viewer in builds without the ebiten tag.
var ErrNoGUI = errors.New("app: viewer requires the ebiten build tag")

// Viewer is a placeholder for the GUI build.
type Viewer struct{}

// NewViewer returns a Viewer whose Update always fails.
func NewViewer(*life.Simulation, int, int) *Viewer { return &Viewer{} }

// Update always reports that the GUI build tag is missing.
func (v *Viewer) Update() error { return ErrNoGUI }

// Draw is a no-op placeholder.
func (v *Viewer) Draw(any) {}

// Layout returns zeros in the headless build.
func (v *Viewer) Layout(int, int) (int, int) { return 0, 0 }
