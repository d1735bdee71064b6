package rimg

import (
	"fmt"
	"image"
	"time"
)

// Frame is one decoded raster frame: an RGBA8 pixel buffer plus the delay
// the source authored for it (zero for still images). Frames are produced
// by a decode collaborator and never mutated by this package; operations
// that change pixels (cropping, compositing) return a new Frame.
type Frame struct {
	Pixels *image.RGBA
	Delay  time.Duration
}

// NewFrame wraps an RGBA image in a Frame, validating its geometry.
func NewFrame(img *image.RGBA, delay time.Duration) (*Frame, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidFrame)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidFrame, b.Dx(), b.Dy())
	}
	if len(img.Pix) < img.PixOffset(b.Max.X-1, b.Max.Y-1)+4 {
		return nil, fmt.Errorf("%w: buffer holds %d bytes for %dx%d", ErrInvalidFrame, len(img.Pix), b.Dx(), b.Dy())
	}
	return &Frame{Pixels: img, Delay: delay}, nil
}

// FrameFromBytes builds a Frame from a raw row-major RGBA8 buffer. The
// buffer length must be exactly width*height*4.
func FrameFromBytes(width, height int, pix []byte, delay time.Duration) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidFrame, width, height)
	}
	if len(pix) != width*height*4 {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidFrame, len(pix), width*height*4)
	}
	img := &image.RGBA{
		Pix:    pix,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}
	return &Frame{Pixels: img, Delay: delay}, nil
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int { return f.Pixels.Bounds().Dx() }

// Height returns the frame height in pixels.
func (f *Frame) Height() int { return f.Pixels.Bounds().Dy() }

// clone returns a deep copy of the frame's pixel data normalized to a
// zero-origin rectangle.
func (f *Frame) clone() *Frame {
	b := f.Pixels.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		srcOff := f.Pixels.PixOffset(b.Min.X, b.Min.Y+y)
		dstOff := dst.PixOffset(0, y)
		copy(dst.Pix[dstOff:dstOff+b.Dx()*4], f.Pixels.Pix[srcOff:srcOff+b.Dx()*4])
	}
	return &Frame{Pixels: dst, Delay: f.Delay}
}

// FrameSequence is an ordered list of frames decoded from one source,
// tagged with an identifier used for title formatting.
type FrameSequence struct {
	Source string
	Frames []*Frame
}

// FirstFrame returns the first frame, or nil for an empty sequence.
func (s *FrameSequence) FirstFrame() *Frame {
	if len(s.Frames) == 0 {
		return nil
	}
	return s.Frames[0]
}
