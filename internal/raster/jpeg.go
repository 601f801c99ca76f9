package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

const jpegQuality = 95

// EncodeJPEG encodes a page image for storage and for the extraction API.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encoding page image: %w", err)
	}
	return buf.Bytes(), nil
}
