package port

import "image"

// RenderSource is an in-memory source file to rasterize.
type RenderSource struct {
	Data        []byte
	ContentType string
}

// Rasterizer renders document pages to images. Implementations must support
// PDF and common raster formats and must report unreadable input via
// raster.DecodeError, never a blank page.
type Rasterizer interface {
	// PageCount returns the number of renderable pages in the source.
	PageCount(src RenderSource) (int, error)
	// Render rasterizes the 0-based pageIndex at the given DPI. The returned
	// image has any alpha already composited onto a white background.
	Render(src RenderSource, pageIndex, dpi int) (image.Image, error)
}
