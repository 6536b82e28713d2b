// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compute

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Opener constructs a Device.
type Opener func(Config) (Device, error)

// Auto selects the first backend in AutoOrder that opens successfully.
const Auto = "auto"

// AutoOrder is the preference order used for Auto.
var AutoOrder = []string{"gpu", "opencl", "cpu"}

var (
	registryMu sync.RWMutex
	registry   = map[string]Opener{}
)

// Register makes a backend available under name.
// Registering the same name twice panics.
func Register(name string, open Opener) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic("compute: duplicate backend " + name)
	}
	registry[name] = open
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookup(name string) (Opener, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	open, ok := registry[name]
	return open, ok
}

// Open constructs the named backend. With Auto it tries AutoOrder and
// returns the first device that opens, joining the errors if none does.
func Open(name string, cfg Config) (Device, error) {
	if name == "" || name == Auto {
		return openAuto(cfg)
	}
	open, ok := lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	dev, err := open(cfg)
	if err != nil {
		return nil, fmt.Errorf("compute: open %s: %w", name, err)
	}
	Logger().Info("compute: device opened", "backend", name, "device", dev.Name())
	return dev, nil
}

func openAuto(cfg Config) (Device, error) {
	var errs []error
	for _, name := range AutoOrder {
		open, ok := lookup(name)
		if !ok {
			continue
		}
		dev, err := open(cfg)
		if err != nil {
			Logger().Warn("compute: backend unavailable, trying next", "backend", name, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		Logger().Info("compute: device opened", "backend", name, "device", dev.Name())
		return dev, nil
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: no backends registered", ErrUnavailable)
	}
	return nil, fmt.Errorf("compute: no backend could be opened: %w", errors.Join(errs...))
}
