package renderer

import (
	"fmt"
	"image"
	"image/png"
	"io"
)

// ImagePresenter keeps a copy of the last presented frame.
type ImagePresenter struct {
	frame  *image.RGBA
	frames int
}

// Create a presenter for headless rendering.
func NewImagePresenter() *ImagePresenter {
	return &ImagePresenter{}
}

func (p *ImagePresenter) Present(width, height int, pixels []byte) error {
	if len(pixels) < width*height*4 {
		return fmt.Errorf("renderer: frame data size %d too small for %dx%d pixels", len(pixels), width, height)
	}
	if p.frame == nil || p.frame.Rect.Dx() != width || p.frame.Rect.Dy() != height {
		p.frame = image.NewRGBA(image.Rect(0, 0, width, height))
	}
	copy(p.frame.Pix, pixels[:width*height*4])
	p.frames++
	return nil
}

// Get the number of presented frames.
func (p *ImagePresenter) Frames() int {
	return p.frames
}

// Get the last presented frame or nil if nothing was presented.
func (p *ImagePresenter) Image() *image.RGBA {
	return p.frame
}

// Encode the last presented frame as a PNG.
func (p *ImagePresenter) WritePNG(w io.Writer) error {
	if p.frame == nil {
		return fmt.Errorf("renderer: no frame has been presented")
	}
	return png.Encode(w, p.frame)
}
