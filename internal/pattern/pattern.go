// Package pattern provides starting configurations for a Life grid: a few
// built-in patterns and a reader for the plaintext .cells format.
package pattern

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// ErrFormat is wrapped by Parse for malformed input.
var ErrFormat = errors.New("pattern: malformed .cells input")

// ErrTooLarge means a pattern does not fit the target grid.
var ErrTooLarge = errors.New("pattern: larger than grid")

// Pattern is a rectangular block of cells, row-major, 1 for live.
type Pattern struct {
	Name   string
	Width  int
	Height int
	Cells  []int8
}

// At reports whether (x, y) inside the pattern is live.
func (p *Pattern) At(x, y int) bool {
	return p.Cells[y*p.Width+x] != 0
}

// Population returns the number of live cells.
func (p *Pattern) Population() int {
	n := 0
	for _, c := range p.Cells {
		if c != 0 {
			n++
		}
	}
	return n
}

// Place returns a gridW x gridH grid with the pattern stamped at (x, y).
// Coordinates wrap, so a pattern may straddle an edge.
func (p *Pattern) Place(gridW, gridH, x, y int) ([]int8, error) {
	if p.Width > gridW || p.Height > gridH {
		return nil, fmt.Errorf("%w: %s is %dx%d, grid is %dx%d", ErrTooLarge, p.Name, p.Width, p.Height, gridW, gridH)
	}
	grid := make([]int8, gridW*gridH)
	for py := range p.Height {
		for px := range p.Width {
			if !p.At(px, py) {
				continue
			}
			gx := ((x+px)%gridW + gridW) % gridW
			gy := ((y+py)%gridH + gridH) % gridH
			grid[gy*gridW+gx] = 1
		}
	}
	return grid, nil
}

// Center stamps the pattern in the middle of a gridW x gridH grid.
func (p *Pattern) Center(gridW, gridH int) ([]int8, error) {
	return p.Place(gridW, gridH, (gridW-p.Width)/2, (gridH-p.Height)/2)
}

// Parse reads the plaintext .cells format: lines starting with '!' are
// comments ("!Name: ..." sets Name), '.' is dead and 'O' or '*' is live.
// Short rows are padded with dead cells.
func Parse(r io.Reader) (*Pattern, error) {
	p := &Pattern{}
	var rows []string
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), " \t\r")
		if strings.HasPrefix(text, "!") {
			if name, ok := strings.CutPrefix(text, "!Name:"); ok {
				p.Name = strings.TrimSpace(name)
			}
			continue
		}
		for i, ch := range text {
			if ch != '.' && ch != 'O' && ch != '*' {
				return nil, fmt.Errorf("%w: line %d column %d: unexpected %q", ErrFormat, line, i+1, ch)
			}
		}
		rows = append(rows, text)
		p.Width = max(p.Width, len(text))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("pattern: read: %w", err)
	}
	for len(rows) > 0 && rows[len(rows)-1] == "" {
		rows = rows[:len(rows)-1]
	}
	if len(rows) == 0 || p.Width == 0 {
		return nil, fmt.Errorf("%w: no cells", ErrFormat)
	}

	p.Height = len(rows)
	p.Cells = make([]int8, p.Width*p.Height)
	for y, row := range rows {
		for x := 0; x < len(row); x++ {
			if row[x] != '.' {
				p.Cells[y*p.Width+x] = 1
			}
		}
	}
	return p, nil
}

// Load reads a .cells file. The file name is used when the file has no
// !Name line.
func Load(path string) (*Pattern, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pattern: %w", err)
	}
	defer f.Close()
	p, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if p.Name == "" {
		p.Name = path
	}
	return p, nil
}

var builtins = map[string]string{
	"block":       "OO\nOO",
	"blinker":     "OOO",
	"glider":      ".O.\n..O\nOOO",
	"lwss":        ".O..O\nO....\nO...O\nOOOO.",
	"r-pentomino": ".OO\nOO.\n.O.",
	"gosper-glider-gun": "" +
		"........................O...........\n" +
		"......................O.O...........\n" +
		"............OO......OO............OO\n" +
		"...........O...O....OO............OO\n" +
		"OO........O.....O...OO..............\n" +
		"OO........O...O.OO....O.O...........\n" +
		"..........O.....O.......O...........\n" +
		"...........O...O....................\n" +
		"............OO......................",
}

// Builtin returns a built-in pattern by name.
func Builtin(name string) (*Pattern, bool) {
	src, ok := builtins[name]
	if !ok {
		return nil, false
	}
	p, err := Parse(strings.NewReader(src))
	if err != nil {
		panic("pattern: bad builtin " + name + ": " + err.Error())
	}
	p.Name = name
	return p, true
}

// Names lists the built-in patterns, sorted.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
