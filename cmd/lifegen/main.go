// Command lifegen runs a Life simulation without a window and writes the
// final generation as a PNG.
//
//	lifegen -width 128 -height 128 -pattern gosper-glider-gun -generations 500 -out gun.png
package main

import (
	"errors"
	"flag"
	"fmt"
	"image/png"
	"log"
	"os"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/life/internal/app"
	"github.com/gogpu/life/internal/frame"
)

func main() {
	cfg := app.NewConfig()
	cfg.Bind(flag.CommandLine)
	generations := flag.Int("generations", 100, "generations to advance before rendering")
	out := flag.String("out", "life.png", "output PNG path")
	flag.Parse()

	if err := run(cfg, *generations, *out); err != nil {
		log.Fatal(err)
	}
}

func run(cfg *app.Config, generations int, out string) (err error) {
	if generations < 0 {
		return fmt.Errorf("generations %d must not be negative", generations)
	}
	sim, err := cfg.Start()
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, sim.Close()) }()

	start := time.Now()
	if err := sim.AdvanceN(generations); err != nil {
		return err
	}
	elapsed := time.Since(start)

	img, err := sim.RenderImage()
	if err != nil {
		return err
	}
	pop, err := sim.Population()
	if err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := png.Encode(f, frame.Scale(img, cfg.Scale)); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", out, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	w, h := sim.Size()
	p := message.NewPrinter(language.English)
	p.Printf("%d generations of %dx%d on %s in %v (%.0f gen/s), population %d, wrote %s\n",
		sim.Generation(), w, h, sim.Device(), elapsed.Round(time.Millisecond),
		float64(generations)/max(elapsed.Seconds(), 1e-9), pop, out)
	return nil
}
