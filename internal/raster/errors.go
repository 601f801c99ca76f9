package raster

import "fmt"

// DecodeError indicates the source file or a page of it could not be
// decoded. It is fatal to the owning document's run; the rasterizer never
// masks a corrupt upload behind a blank page or a default rotation.
type DecodeError struct {
	ContentType string
	Err         error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s source: %v", e.ContentType, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
