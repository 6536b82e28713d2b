//go:build ebiten

// Command lifeview shows a Life simulation in a window.
package main

import (
	"errors"
	"flag"
	"log"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/gogpu/life/internal/app"
)

func main() {
	cfg := app.NewConfig()
	cfg.Bind(flag.CommandLine)
	flag.Parse()

	sim, err := cfg.Start()
	if err != nil {
		log.Fatal(err)
	}
	defer sim.Close()

	viewer := app.NewViewer(sim, cfg.Scale, cfg.TPS)
	w, h := sim.Size()

	ebiten.SetWindowTitle("life (" + sim.Device() + ")")
	ebiten.SetWindowSize(w*cfg.Scale, h*cfg.Scale)

	if err := ebiten.RunGame(viewer); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Print(err)
	}
}
