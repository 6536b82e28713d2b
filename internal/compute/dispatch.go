// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compute

import (
	"fmt"
	"math"
)

// TileSize is the edge length of the square tile (workgroup) every backend
// dispatches. Matches @workgroup_size(16, 16, 1) in the WGSL kernels.
const TileSize = 16

// Workgroups returns the tile counts covering a width x height domain,
// rounding up so partial tiles at the right and bottom edges are included.
func Workgroups(width, height int) (x, y int) {
	return (width + TileSize - 1) / TileSize, (height + TileSize - 1) / TileSize
}

// CellCount returns width*height, or an error wrapping ErrAllocation when
// a side is non-positive or the product overflows int.
func CellCount(width, height int) (int, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("%w: %dx%d", ErrAllocation, width, height)
	}
	if width > math.MaxInt/height {
		return 0, fmt.Errorf("%w: %dx%d cells overflow int", ErrAllocation, width, height)
	}
	return width * height, nil
}

// Tile is one TileSize x TileSize block of invocations.
// X0, Y0 is the first invocation; the block may extend past the domain.
type Tile struct {
	X0, Y0 int
}

// Tiles lists every tile of a width x height domain in row-major order.
func Tiles(width, height int) []Tile {
	gx, gy := Workgroups(width, height)
	tiles := make([]Tile, 0, gx*gy)
	for ty := range gy {
		for tx := range gx {
			tiles = append(tiles, Tile{X0: tx * TileSize, Y0: ty * TileSize})
		}
	}
	return tiles
}

// CheckDomain validates a RunOverDomain request against the buffer length
// the backend recorded for the bindings.
func CheckDomain(width, height, srcLen, dstLen int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrDomainMismatch, width, height)
	}
	n := width * height
	if srcLen != n || dstLen != n {
		return fmt.Errorf("%w: domain %dx%d, src %d, dst %d", ErrDomainMismatch, width, height, srcLen, dstLen)
	}
	return nil
}
