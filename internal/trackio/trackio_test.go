package trackio

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/gridrace/internal/circuit"
)

func writeTestPNG(t *testing.T, grid [][]color.RGBA) string {
	t.Helper()
	height := len(grid)
	width := len(grid[0])
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y, row := range grid {
		for x, c := range row {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(t.TempDir(), "track.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

var (
	red   = color.RGBA{R: 255, A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
)

func TestLoadFileDecodesKnownColours(t *testing.T) {
	grid := [][]color.RGBA{
		{red, red, red},
		{red, green, blue},
		{red, red, red},
	}
	path := writeTestPNG(t, grid)

	track, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, track.Height)
	assert.Equal(t, 3, track.Width)

	cell, ok := track.At(circuit.Pos{Row: 1, Col: 1})
	require.True(t, ok)
	assert.Equal(t, circuit.Start, cell)

	cell, ok = track.At(circuit.Pos{Row: 1, Col: 2})
	require.True(t, ok)
	assert.Equal(t, circuit.Goal, cell)

	require.Len(t, track.Starts, 1)
	assert.Equal(t, circuit.Pos{Row: 1, Col: 1}, track.Starts[0])
}

func TestLoadFileRejectsUnknownColour(t *testing.T) {
	grid := [][]color.RGBA{
		{red, {R: 10, G: 20, B: 30, A: 255}},
	}
	path := writeTestPNG(t, grid)

	_, err := LoadFile(path)
	require.Error(t, err)
}

func TestLoadNamedFixtures(t *testing.T) {
	track, err := LoadNamed("minimal")
	require.NoError(t, err)
	assert.Equal(t, circuit.MinimalTrack(), track)

	track, err = LoadNamed("playable")
	require.NoError(t, err)
	assert.Equal(t, circuit.PlayableMap(), track)

	_, err = LoadNamed("bogus")
	require.Error(t, err)
}
