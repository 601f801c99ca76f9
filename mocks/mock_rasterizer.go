package mocks

import (
	"image"

	"github.com/stretchr/testify/mock"

	"patro/internal/port"
)

// MockRasterizer is a mock implementation of port.Rasterizer.
type MockRasterizer struct {
	mock.Mock
}

func (m *MockRasterizer) PageCount(src port.RenderSource) (int, error) {
	args := m.Called(src)
	return args.Int(0), args.Error(1)
}

func (m *MockRasterizer) Render(src port.RenderSource, pageIndex, dpi int) (image.Image, error) {
	args := m.Called(src, pageIndex, dpi)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(image.Image), args.Error(1)
}
