package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gen2brain/go-fitz"

	"patro/internal/port"
)

// Rasterizer renders PDF pages through MuPDF and decodes raster images
// directly. It implements port.Rasterizer.
type Rasterizer struct{}

// New creates a Rasterizer.
func New() *Rasterizer {
	return &Rasterizer{}
}

func (r *Rasterizer) PageCount(src port.RenderSource) (int, error) {
	if src.ContentType != "application/pdf" {
		// A raster image is a single page; decode the header to make sure it
		// is readable at all.
		if _, _, err := image.DecodeConfig(bytes.NewReader(src.Data)); err != nil {
			return 0, &DecodeError{ContentType: src.ContentType, Err: err}
		}
		return 1, nil
	}

	doc, err := fitz.NewFromMemory(src.Data)
	if err != nil {
		return 0, &DecodeError{ContentType: src.ContentType, Err: err}
	}
	defer doc.Close()
	return doc.NumPage(), nil
}

func (r *Rasterizer) Render(src port.RenderSource, pageIndex, dpi int) (image.Image, error) {
	if src.ContentType != "application/pdf" {
		if pageIndex != 0 {
			return nil, &DecodeError{ContentType: src.ContentType, Err: fmt.Errorf("page %d out of range for single-page image", pageIndex)}
		}
		img, _, err := image.Decode(bytes.NewReader(src.Data))
		if err != nil {
			return nil, &DecodeError{ContentType: src.ContentType, Err: err}
		}
		// Raster sources have a fixed resolution; the DPI parameter only
		// affects PDF rendering.
		return FlattenAlpha(img), nil
	}

	doc, err := fitz.NewFromMemory(src.Data)
	if err != nil {
		return nil, &DecodeError{ContentType: src.ContentType, Err: err}
	}
	defer doc.Close()

	if pageIndex < 0 || pageIndex >= doc.NumPage() {
		return nil, &DecodeError{ContentType: src.ContentType, Err: fmt.Errorf("page %d out of range (%d pages)", pageIndex, doc.NumPage())}
	}

	img, err := doc.ImageDPI(pageIndex, float64(dpi))
	if err != nil {
		return nil, &DecodeError{ContentType: src.ContentType, Err: err}
	}
	return FlattenAlpha(img), nil
}

// FlattenAlpha composites an image onto a white background, discarding
// transparency. Downstream JPEG encoding cannot represent alpha, so no
// pipeline stage ever receives an unflattened image.
func FlattenAlpha(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Over)
	return out
}
