// Package app holds the pieces shared by the life commands: flag-bound
// configuration, logger setup, pattern selection and the frame timer.
package app

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gogpu/life"
	"github.com/gogpu/life/internal/pattern"
)

// Config represents the command-line parameters shared by the commands.
type Config struct {
	Width   int
	Height  int
	Backend string
	Workers int
	Seed    int64
	Pattern string
	Scale   int
	TPS     int
	Log     string
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Width:   256,
		Height:  256,
		Backend: "auto",
		Seed:    -1,
		Scale:   3,
		TPS:     30,
		Log:     "warn",
	}
}

// Bind attaches the configuration to the provided FlagSet.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.IntVar(&c.Width, "width", c.Width, "grid width in cells")
	fs.IntVar(&c.Height, "height", c.Height, "grid height in cells")
	fs.StringVar(&c.Backend, "backend", c.Backend, "compute backend: auto, gpu, opencl or cpu")
	fs.IntVar(&c.Workers, "workers", c.Workers, "cpu backend goroutines (0 = GOMAXPROCS)")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "random seed; negative seeds from the runtime")
	fs.StringVar(&c.Pattern, "pattern", c.Pattern, "built-in pattern name or .cells file instead of random cells")
	fs.IntVar(&c.Scale, "scale", c.Scale, "pixels per cell")
	fs.IntVar(&c.TPS, "tps", c.TPS, "generations per second")
	fs.StringVar(&c.Log, "log", c.Log, "log level: debug, info, warn or error")
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("grid size %dx%d must be positive", c.Width, c.Height)
	case c.Scale <= 0:
		return fmt.Errorf("scale %d must be positive", c.Scale)
	case c.TPS <= 0:
		return fmt.Errorf("tps %d must be positive", c.TPS)
	}
	return nil
}

// Options converts the configuration into Simulation options.
func (c *Config) Options() []life.Option {
	opts := []life.Option{life.WithBackend(c.Backend), life.WithWorkers(c.Workers)}
	if c.Seed >= 0 {
		opts = append(opts, life.WithSeed(uint64(c.Seed)))
	}
	return opts
}

// Logger builds a text logger at the configured level writing to w.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", c.Log, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// Start configures logging, creates the Simulation and loads the
// configured pattern, if any.
func (c *Config) Start() (*life.Simulation, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	logger, err := c.Logger(os.Stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	life.SetLogger(logger)

	sim, err := life.New(c.Width, c.Height, c.Options()...)
	if err != nil {
		return nil, err
	}
	if c.Pattern == "" {
		return sim, nil
	}
	cells, err := c.patternCells()
	if err == nil {
		err = sim.Load(cells)
	}
	if err != nil {
		_ = sim.Close()
		return nil, err
	}
	return sim, nil
}

func (c *Config) patternCells() ([]int8, error) {
	p, ok := pattern.Builtin(c.Pattern)
	if !ok {
		var err error
		if p, err = pattern.Load(c.Pattern); err != nil {
			return nil, err
		}
	}
	slog.Info("pattern loaded", "name", p.Name, "width", p.Width, "height", p.Height, "population", p.Population())
	return p.Center(c.Width, c.Height)
}
