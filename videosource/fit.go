package videosource

import (
	"errors"
	"image"
	"image/draw"

	ximage "golang.org/x/image/draw"
)

// FitMode selects how a source frame is mapped onto the target content
// rectangle when its aspect ratio doesn't match the target's.
type FitMode int

const (
	// Letterbox scales the source to fit entirely inside the target,
	// padding the remainder with black.
	Letterbox FitMode = iota
	// Fill scales the source to cover the target entirely, center-cropping
	// whatever doesn't fit.
	Fill
)

// ErrUnknownFitMode is returned by ParseFitMode for any string other than
// "letterbox" or "fill".
var ErrUnknownFitMode = errors.New("videosource: unknown fit mode")

// ParseFitMode parses the CLI/YAML representation of a FitMode.
func ParseFitMode(s string) (FitMode, error) {
	switch s {
	case "letterbox":
		return Letterbox, nil
	case "fill":
		return Fill, nil
	default:
		return 0, ErrUnknownFitMode
	}
}

func (m FitMode) String() string {
	switch m {
	case Letterbox:
		return "letterbox"
	case Fill:
		return "fill"
	default:
		return "unknown"
	}
}

// contentRect computes the sub-rectangle of a dstW x dstH plane into which a
// srcW x srcH source should be drawn under the given fit mode. For
// Letterbox the rectangle is entirely inside the destination (the
// complement is padding); for Fill the rectangle always equals the full
// destination, since a cover-scaled, center-cropped source fills every
// pixel of the plane (excess source is cropped, not padded).
func contentRect(srcW, srcH, dstW, dstH int, mode FitMode) image.Rectangle {
	if mode == Fill {
		return image.Rect(0, 0, dstW, dstH)
	}

	scale := min(float64(dstW)/float64(srcW), float64(dstH)/float64(srcH))

	w := int(float64(srcW)*scale + 0.5)
	h := int(float64(srcH)*scale + 0.5)

	w = max(w, 1)
	h = max(h, 1)

	x0 := (dstW - w) / 2
	y0 := (dstH - h) / 2

	return image.Rect(x0, y0, x0+w, y0+h)
}

// compose resizes srcRGBA (stride srcW*4, RGBA) into the plane's content
// rectangle under mode and writes the result into dstRGB (row-major RGB,
// size dstW*dstH*3). Letterbox scales the source down to fit entirely
// inside the plane; compose only repaints that content rectangle, so the
// caller is responsible for having the surrounding pixels already black
// (VideoSource.DecodeLoop does this by copying a zeroed blank plane into a
// fresh per-frame buffer before calling compose). Fill scales the source to
// cover the plane in both dimensions — preserving its aspect ratio — and
// center-crops whatever overflows, so it repaints every pixel and never
// relies on pre-zeroed padding.
func compose(srcRGBA []byte, srcW, srcH int, dstRGB []byte, dstW, dstH int, mode FitMode) {
	srcImg := &image.RGBA{
		Pix:    srcRGBA,
		Stride: srcW * 4,
		Rect:   image.Rect(0, 0, srcW, srcH),
	}

	if mode == Fill {
		composeFill(srcImg, srcW, srcH, dstRGB, dstW, dstH)

		return
	}

	rect := contentRect(srcW, srcH, dstW, dstH, mode)

	scratch := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	ximage.ApproxBiLinear.Scale(scratch, scratch.Bounds(), srcImg, srcImg.Bounds(), draw.Src, nil)

	copyRGBAtoRGB(dstRGB, dstW, scratch, 0, 0, rect.Min.X, rect.Min.Y, rect.Dx(), rect.Dy())
}

// composeFill scales srcImg so it covers a dstW x dstH plane in both
// dimensions (scale = max(dstW/srcW, dstH/srcH)) and center-crops whatever
// overflows. Unlike an anamorphic stretch to dstW x dstH, this preserves
// the source's aspect ratio.
func composeFill(srcImg *image.RGBA, srcW, srcH int, dstRGB []byte, dstW, dstH int) {
	scale := max(float64(dstW)/float64(srcW), float64(dstH)/float64(srcH))

	scaledW := max(int(float64(srcW)*scale+0.5), dstW)
	scaledH := max(int(float64(srcH)*scale+0.5), dstH)

	scratch := image.NewRGBA(image.Rect(0, 0, scaledW, scaledH))
	ximage.ApproxBiLinear.Scale(scratch, scratch.Bounds(), srcImg, srcImg.Bounds(), draw.Src, nil)

	cropX := (scaledW - dstW) / 2
	cropY := (scaledH - dstH) / 2

	copyRGBAtoRGB(dstRGB, dstW, scratch, cropX, cropY, 0, 0, dstW, dstH)
}

// copyRGBAtoRGB drops the alpha channel while copying a w x h region of
// scratch, starting at (srcX, srcY), into dstRGB starting at (dstX, dstY).
func copyRGBAtoRGB(dstRGB []byte, dstW int, scratch *image.RGBA, srcX, srcY, dstX, dstY, w, h int) {
	for y := 0; y < h; y++ {
		srcOff := scratch.PixOffset(srcX, srcY+y)
		srcRow := scratch.Pix[srcOff : srcOff+w*4]

		rowDstY := dstY + y
		if rowDstY < 0 {
			continue
		}

		for x := 0; x < w; x++ {
			rowDstX := dstX + x
			if rowDstX < 0 {
				continue
			}

			d := (rowDstY*dstW + rowDstX) * 3
			s := x * 4

			dstRGB[d] = srcRow[s]
			dstRGB[d+1] = srcRow[s+1]
			dstRGB[d+2] = srcRow[s+2]
		}
	}
}
