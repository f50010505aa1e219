// Package trackio loads a racetrack from a PNG image: the four reference
// colors map to cells, and any other color is a fatal config error.
package trackio

import (
	"fmt"
	"image"
	_ "image/png"
	"os"

	"github.com/lox/gridrace/internal/circuit"
)

type colorCell struct {
	r, g, b uint32
	cell    circuit.Cell
}

// colorTable is the fixed RGB -> Cell mapping: red is wall, white is empty,
// green is a start cell, blue is the goal.
var colorTable = []colorCell{
	{0xff, 0x00, 0x00, circuit.Wall},
	{0xff, 0xff, 0xff, circuit.Empty},
	{0x00, 0xff, 0x00, circuit.Start},
	{0x00, 0x00, 0xff, circuit.Goal},
}

// LoadFile decodes a PNG track image and builds a Track plus its ordered
// start positions.
func LoadFile(filename string) (*circuit.Track, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("trackio: open %s: %w", filename, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("trackio: decode %s: %w", filename, err)
	}

	bounds := img.Bounds()
	height := bounds.Dy()
	width := bounds.Dx()
	rows := make([][]int, height)
	var starts []circuit.Pos

	for y := 0; y < height; y++ {
		row := make([]int, width)
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// image.Color.RGBA() returns 16-bit-per-channel values; PNG is
			// 8-bit, so the high byte mirrors the low byte and a right shift
			// recovers the original 0-255 component.
			r8, g8, b8 := r>>8, g>>8, b>>8

			cell, ok := lookupColor(r8, g8, b8)
			if !ok {
				return nil, fmt.Errorf("trackio: %s contains a colour I cannot decipher at (%d,%d): rgb(%d,%d,%d)",
					filename, y, x, r8, g8, b8)
			}
			row[x] = int(cell)
			if cell == circuit.Start {
				starts = append(starts, circuit.Pos{Row: y, Col: x})
			}
		}
		rows[y] = row
	}

	return circuit.NewTrack(rows, starts)
}

func lookupColor(r, g, b uint32) (circuit.Cell, bool) {
	for _, cc := range colorTable {
		if cc.r == r && cc.g == g && cc.b == b {
			return cc.cell, true
		}
	}
	return 0, false
}

// LoadNamed resolves the match config's "track" shortcut ("minimal" or
// "playable") to a built-in fixture, skipping PNG loading entirely.
func LoadNamed(name string) (*circuit.Track, error) {
	switch name {
	case "minimal":
		return circuit.MinimalTrack(), nil
	case "playable":
		return circuit.PlayableMap(), nil
	default:
		return nil, fmt.Errorf("trackio: unknown built-in track %q", name)
	}
}
