// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compute

import (
	"errors"
	"slices"
	"testing"
)

type stubDevice struct{ name string }

func (d *stubDevice) Name() string                                   { return d.name }
func (d *stubDevice) CreateCellBuffer(int, int) (BufferID, error)    { return 1, nil }
func (d *stubDevice) CreateImageBuffer(int, int) (BufferID, error)   { return 2, nil }
func (d *stubDevice) DestroyBuffer(BufferID)                         {}
func (d *stubDevice) WriteCells(BufferID, []int8) error              { return nil }
func (d *stubDevice) ReadCells(BufferID, []int8) error               { return nil }
func (d *stubDevice) ReadImage(BufferID, []byte) error               { return nil }
func (d *stubDevice) RunOverDomain(int, int, Kernel, Bindings) error { return nil }
func (d *stubDevice) Close() error                                   { return nil }

func init() {
	Register("test-ok", func(Config) (Device, error) { return &stubDevice{name: "test-ok"}, nil })
	Register("test-fail", func(Config) (Device, error) { return nil, ErrUnavailable })
}

func withAutoOrder(t *testing.T, order ...string) {
	t.Helper()
	saved := AutoOrder
	AutoOrder = order
	t.Cleanup(func() { AutoOrder = saved })
}

func TestOpenNamed(t *testing.T) {
	dev, err := Open("test-ok", Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if dev.Name() != "test-ok" {
		t.Errorf("Name() = %q, want test-ok", dev.Name())
	}
}

func TestOpenUnknown(t *testing.T) {
	_, err := Open("no-such-backend", Config{})
	if !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("Open unknown = %v, want ErrUnknownBackend", err)
	}
}

func TestOpenFailureWraps(t *testing.T) {
	_, err := Open("test-fail", Config{})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Open test-fail = %v, want ErrUnavailable", err)
	}
}

func TestOpenAutoFallsBack(t *testing.T) {
	withAutoOrder(t, "test-fail", "missing", "test-ok")
	dev, err := Open(Auto, Config{})
	if err != nil {
		t.Fatalf("Open auto: %v", err)
	}
	if dev.Name() != "test-ok" {
		t.Errorf("auto selected %q, want test-ok", dev.Name())
	}
}

func TestOpenAutoAllFail(t *testing.T) {
	withAutoOrder(t, "test-fail")
	_, err := Open("", Config{})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Open auto = %v, want wrapped ErrUnavailable", err)
	}
}

func TestOpenAutoNoneRegistered(t *testing.T) {
	withAutoOrder(t, "missing")
	if _, err := Open(Auto, Config{}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Open auto = %v, want ErrUnavailable", err)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("duplicate Register did not panic")
		}
	}()
	Register("test-ok", nil)
}

func TestBackendsSorted(t *testing.T) {
	names := Backends()
	if !slices.IsSorted(names) {
		t.Errorf("Backends() not sorted: %v", names)
	}
	if !slices.Contains(names, "test-ok") {
		t.Errorf("Backends() = %v, missing test-ok", names)
	}
}
