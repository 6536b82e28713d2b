package pattern

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	src := "!Name: Glider\n!comment\n.O.\n..O\nOOO\n\n"
	p, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Name != "Glider" || p.Width != 3 || p.Height != 3 {
		t.Fatalf("got %q %dx%d", p.Name, p.Width, p.Height)
	}
	want := []int8{0, 1, 0, 0, 0, 1, 1, 1, 1}
	for i := range want {
		if p.Cells[i] != want[i] {
			t.Errorf("cell %d = %d, want %d", i, p.Cells[i], want[i])
		}
	}
	if p.Population() != 5 {
		t.Errorf("Population() = %d, want 5", p.Population())
	}
}

func TestParsePadsShortRows(t *testing.T) {
	p, err := Parse(strings.NewReader("*\n..*\n"))
	if err != nil {
		t.Fatal(err)
	}
	if p.Width != 3 || p.Height != 2 {
		t.Fatalf("size %dx%d, want 3x2", p.Width, p.Height)
	}
	if !p.At(0, 0) || p.At(1, 0) || p.At(2, 0) || !p.At(2, 1) {
		t.Errorf("cells = %v", p.Cells)
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{"", "!only comments\n", ".O.\n.X.\n"} {
		if _, err := Parse(strings.NewReader(src)); !errors.Is(err, ErrFormat) {
			t.Errorf("Parse(%q) = %v, want ErrFormat", src, err)
		}
	}
}

func TestBuiltins(t *testing.T) {
	names := Names()
	if len(names) < 4 {
		t.Fatalf("Names() = %v", names)
	}
	for _, name := range names {
		p, ok := Builtin(name)
		if !ok || p.Name != name || p.Population() == 0 {
			t.Errorf("Builtin(%q) = %+v, %v", name, p, ok)
		}
	}
	if _, ok := Builtin("nope"); ok {
		t.Error("Builtin(nope) should not exist")
	}
	if gun, _ := Builtin("gosper-glider-gun"); gun.Width != 36 || gun.Height != 9 || gun.Population() != 36 {
		t.Errorf("gosper gun %dx%d pop %d", gun.Width, gun.Height, gun.Population())
	}
}

func TestPlaceWraps(t *testing.T) {
	p, _ := Builtin("blinker")
	grid, err := p.Place(5, 4, 4, 3)
	if err != nil {
		t.Fatal(err)
	}
	// Row 3, columns 4, 0 and 1.
	for _, i := range []int{3*5 + 4, 3*5 + 0, 3*5 + 1} {
		if grid[i] != 1 {
			t.Errorf("index %d not live", i)
		}
	}
	live := 0
	for _, c := range grid {
		live += int(c)
	}
	if live != 3 {
		t.Errorf("live = %d, want 3", live)
	}
}

func TestCenterAndTooLarge(t *testing.T) {
	p, _ := Builtin("block")
	grid, err := p.Center(6, 6)
	if err != nil {
		t.Fatal(err)
	}
	for _, i := range []int{2*6 + 2, 2*6 + 3, 3*6 + 2, 3*6 + 3} {
		if grid[i] != 1 {
			t.Errorf("index %d not live", i)
		}
	}
	gun, _ := Builtin("gosper-glider-gun")
	if _, err := gun.Center(20, 20); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Center too small = %v, want ErrTooLarge", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blk.cells")
	if err := os.WriteFile(path, []byte("OO\nOO\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != path || p.Population() != 4 {
		t.Errorf("Load = %+v", p)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.cells")); err == nil {
		t.Error("Load missing file succeeded")
	}
}
