// Package frame turns the device image buffer into host images: readback
// into a reused grayscale array, palette expansion for display, and
// upscaling for export.
package frame

import (
	"fmt"
	"image"

	"github.com/gogpu/life/internal/compute"
)

// Readback owns the host pixel array for one grid size. The array is
// allocated once and overwritten by every Read, so the image returned by
// Read is only valid until the next call.
type Readback struct {
	pix []byte
	img *image.Gray
}

// NewReadback allocates the host array for a width x height image.
func NewReadback(width, height int) *Readback {
	pix := make([]byte, width*height)
	return &Readback{
		pix: pix,
		img: &image.Gray{
			Pix:    pix,
			Stride: width,
			Rect:   image.Rect(0, 0, width, height),
		},
	}
}

// Read copies the image buffer from dev into the host array and returns it
// wrapped as an 8-bit grayscale image. On error the array keeps whatever the
// device managed to write and should be treated as stale.
func (r *Readback) Read(dev compute.Device, id compute.BufferID) (*image.Gray, error) {
	if err := dev.ReadImage(id, r.pix); err != nil {
		return nil, fmt.Errorf("frame: read image buffer %d: %w", id, err)
	}
	return r.img, nil
}

// Pix exposes the host array.
func (r *Readback) Pix() []byte { return r.pix }
