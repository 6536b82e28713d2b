//go:build !opencl

package opencl

import (
	"errors"
	"testing"

	"github.com/gogpu/life/internal/compute"
)

func TestOpenWithoutTag(t *testing.T) {
	_, err := compute.Open(Name, compute.Config{})
	if !errors.Is(err, compute.ErrUnavailable) {
		t.Errorf("Open = %v, want ErrUnavailable", err)
	}
}
