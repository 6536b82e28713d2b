// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package kernel holds the per-cell functions of the Life pipeline.
//
// Every kernel is a pure function of (x, y, grid): it reads the current
// generation and returns one value for one cell. Backends map these onto
// their own execution model. The CPU backend calls the Go functions here
// directly, while the GPU and OpenCL backends run the equivalent WGSL and
// OpenCL C sources embedded in this package.
//
// The grid is toroidal: coordinates past an edge wrap to the opposite edge.
package kernel

// Alive and Dead are the canonical cell states written by Transition.
const (
	Dead  int8 = 0
	Alive int8 = 1
)

// MaxIntensity is the grayscale value of a live cell.
const MaxIntensity uint8 = 255

// Grid is a read-only view over a row-major cell slice.
type Grid struct {
	Cells  []int8
	Width  int
	Height int
}

// At returns the cell at (x, y) with toroidal wrap in both axes.
// Any x or y, including negative values, is accepted.
func (g Grid) At(x, y int) int8 {
	x = wrap(x, g.Width)
	y = wrap(y, g.Height)
	return g.Cells[y*g.Width+x]
}

// Contains reports whether (x, y) lies inside the domain.
func (g Grid) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Width && y < g.Height
}

func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}

// LiveNeighbors counts the live cells among the eight toroidal neighbors of
// (x, y). Any nonzero state counts as live.
func LiveNeighbors(x, y int, g Grid) int {
	n := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if g.At(x+dx, y+dy) != Dead {
				n++
			}
		}
	}
	return n
}

// Rule applies B3/S23 to one cell given its live neighbor count.
// The result is always Dead or Alive.
func Rule(state int8, neighbors int) int8 {
	if state != Dead {
		if neighbors == 2 || neighbors == 3 {
			return Alive
		}
		return Dead
	}
	if neighbors == 3 {
		return Alive
	}
	return Dead
}

// Transition returns the next-generation state of (x, y).
func Transition(x, y int, g Grid) int8 {
	return Rule(g.At(x, y), LiveNeighbors(x, y, g))
}

// Grayscale returns the display intensity of (x, y): 255 for a live cell,
// 0 for a dead one.
func Grayscale(x, y int, g Grid) uint8 {
	if g.Cells[y*g.Width+x] != Dead {
		return MaxIntensity
	}
	return 0
}

// StepCell is one transition invocation. Positions outside the domain are
// ignored so callers may launch a grid of invocations rounded up past the edge.
func StepCell(x, y int, src Grid, dst []int8) {
	if !src.Contains(x, y) {
		return
	}
	dst[y*src.Width+x] = Transition(x, y, src)
}

// ShadeCell is one grayscale invocation with the same clipping as StepCell.
func ShadeCell(x, y int, src Grid, dst []byte) {
	if !src.Contains(x, y) {
		return
	}
	dst[y*src.Width+x] = Grayscale(x, y, src)
}
