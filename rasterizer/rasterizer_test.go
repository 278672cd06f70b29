package rasterizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtrender/vtrender/rasterizer"
)

func gradientPixels(width, height int) []byte {
	px := make([]byte, width*height*3)

	for y := range height {
		for x := range width {
			off := (y*width + x) * 3
			px[off] = byte(y * 4 % 256)
			px[off+1] = byte(x * 4 % 256)
			px[off+2] = byte((x + y) % 256)
		}
	}

	return px
}

func TestRenderIntoBijection(t *testing.T) {
	t.Parallel()

	const width, height = 8, 6

	px := gradientPixels(width, height)
	r := rasterizer.NewWithWorkers(4)
	defer r.Close()

	grid := rasterizer.NewCellGrid(width, height/2)
	require.NoError(t, r.RenderInto(px, width, height, grid))

	for row := 0; row < height/2; row++ {
		topY := row * 2
		botY := topY + 1

		for col := 0; col < width; col++ {
			cell := grid.At(col, row)
			assert.Equal(t, rasterizer.UpperHalfBlock, cell.Glyph)

			topOff := (topY*width + col) * 3
			botOff := (botY*width + col) * 3

			assert.Equal(t, rasterizer.RGB{R: px[topOff], G: px[topOff+1], B: px[topOff+2]}, cell.FG)
			assert.Equal(t, rasterizer.RGB{R: px[botOff], G: px[botOff+1], B: px[botOff+2]}, cell.BG)
		}
	}
}

func TestRenderIntoDeterministicAcrossPoolWidth(t *testing.T) {
	t.Parallel()

	const width, height = 40, 32

	px := gradientPixels(width, height)

	var reference []rasterizer.Cell

	for _, workers := range []int{1, 2, 3, 8} {
		r := rasterizer.NewWithWorkers(workers)

		grid := rasterizer.NewCellGrid(width, height/2)
		require.NoError(t, r.RenderInto(px, width, height, grid))
		r.Close()

		if reference == nil {
			reference = grid.Cells

			continue
		}

		assert.Equal(t, reference, grid.Cells, "workers=%d produced different output", workers)
	}
}

func TestRenderIntoRejectsOddHeight(t *testing.T) {
	t.Parallel()

	r := rasterizer.NewWithWorkers(1)
	defer r.Close()

	grid := rasterizer.NewCellGrid(4, 2)
	err := r.RenderInto(make([]byte, 4*5*3), 4, 5, grid)
	require.Error(t, err)
	assert.ErrorIs(t, err, rasterizer.ErrDimensionMismatch)
}
