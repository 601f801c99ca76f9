package orient

import (
	"image"
	"image/color"
	"image/draw"
)

// gray is a compact grayscale frame used for rotation scoring.
type gray struct {
	w, h int
	pix  []uint8
}

func newGray(img image.Image) *gray {
	bounds := img.Bounds()
	g := &gray{w: bounds.Dx(), h: bounds.Dy(), pix: make([]uint8, bounds.Dx()*bounds.Dy())}
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			g.pix[i] = c.Y
			i++
		}
	}
	return g
}

// rotate returns the frame rotated clockwise by angle in {0, 90, 180, 270}.
func (g *gray) rotate(angle int) *gray {
	switch angle {
	case 90:
		out := &gray{w: g.h, h: g.w, pix: make([]uint8, len(g.pix))}
		for dy := 0; dy < out.h; dy++ {
			for dx := 0; dx < out.w; dx++ {
				out.pix[dy*out.w+dx] = g.pix[(g.h-1-dx)*g.w+dy]
			}
		}
		return out
	case 180:
		out := &gray{w: g.w, h: g.h, pix: make([]uint8, len(g.pix))}
		for dy := 0; dy < out.h; dy++ {
			for dx := 0; dx < out.w; dx++ {
				out.pix[dy*out.w+dx] = g.pix[(g.h-1-dy)*g.w+(g.w-1-dx)]
			}
		}
		return out
	case 270:
		out := &gray{w: g.h, h: g.w, pix: make([]uint8, len(g.pix))}
		for dy := 0; dy < out.h; dy++ {
			for dx := 0; dx < out.w; dx++ {
				out.pix[dy*out.w+dx] = g.pix[dx*g.w+(g.w-1-dy)]
			}
		}
		return out
	}
	return g
}

// Rotate returns the image rotated clockwise by angle in {0, 90, 180, 270}.
// The pixel format is preserved as RGBA; inputs are drawn through the
// standard draw path so any source image type is accepted.
func Rotate(img image.Image, angle int) image.Image {
	if angle == 0 {
		return img
	}

	bounds := img.Bounds()
	src := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(src, src.Bounds(), img, bounds.Min, draw.Src)

	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	var out *image.RGBA
	switch angle {
	case 90:
		out = image.NewRGBA(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Set(h-1-y, x, src.At(x, y))
			}
		}
	case 180:
		out = image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Set(w-1-x, h-1-y, src.At(x, y))
			}
		}
	case 270:
		out = image.NewRGBA(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Set(y, w-1-x, src.At(x, y))
			}
		}
	default:
		return img
	}
	return out
}
