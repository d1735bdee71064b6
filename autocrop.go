package rimg

import (
	"image"
	"image/color"
)

// cropTolerance is the per-channel threshold for treating a pixel as part
// of the border color.
const cropTolerance = 10

// CropBorder removes n pixels from every edge of the frame. If n exceeds
// half of either dimension it is clamped to the largest value that still
// leaves at least one pixel per axis.
func CropBorder(f *Frame, n int) *Frame {
	if n <= 0 {
		return f
	}
	w, h := f.Width(), f.Height()
	if 2*n >= w {
		n = (w - 1) / 2
	}
	if 2*n >= h {
		n = (h - 1) / 2
	}
	if n <= 0 {
		return f
	}
	return cropRect(f, image.Rect(n, n, w-n, h-n))
}

// DetectBackgroundColor samples the four corner pixels and returns the
// consensus color when at least three of the four agree within tolerance.
// The second return value is false when no consensus exists.
func DetectBackgroundColor(f *Frame) (color.RGBA, bool) {
	w, h := f.Width(), f.Height()
	corners := [4]color.RGBA{
		f.Pixels.RGBAAt(f.Pixels.Bounds().Min.X, f.Pixels.Bounds().Min.Y),
		f.Pixels.RGBAAt(f.Pixels.Bounds().Min.X+w-1, f.Pixels.Bounds().Min.Y),
		f.Pixels.RGBAAt(f.Pixels.Bounds().Min.X, f.Pixels.Bounds().Min.Y+h-1),
		f.Pixels.RGBAAt(f.Pixels.Bounds().Min.X+w-1, f.Pixels.Bounds().Min.Y+h-1),
	}
	for _, candidate := range corners {
		agree := 0
		for _, other := range corners {
			if colorsSimilar(candidate, other, cropTolerance) {
				agree++
			}
		}
		if agree >= 3 {
			return candidate, true
		}
	}
	return color.RGBA{}, false
}

// AutoCrop strips a detected uniform border from the frame. Each edge is
// advanced inward independently while every pixel on the current edge line
// matches the background within tolerance, so asymmetric borders crop
// asymmetrically. When no background color can be detected the frame is
// returned unchanged. The result is never smaller than 1x1, and applying
// AutoCrop twice makes no further changes.
func AutoCrop(f *Frame) *Frame {
	bg, ok := DetectBackgroundColor(f)
	if !ok {
		return f
	}

	w, h := f.Width(), f.Height()
	left, top := 0, 0
	right, bottom := w, h

	for left < right-1 && columnUniform(f, left, top, bottom, bg) {
		left++
	}
	for right-1 > left && columnUniform(f, right-1, top, bottom, bg) {
		right--
	}
	for top < bottom-1 && rowUniform(f, top, left, right, bg) {
		top++
	}
	for bottom-1 > top && rowUniform(f, bottom-1, left, right, bg) {
		bottom--
	}

	if left == 0 && top == 0 && right == w && bottom == h {
		return f
	}
	return cropRect(f, image.Rect(left, top, right, bottom))
}

func columnUniform(f *Frame, x, yMin, yMax int, bg color.RGBA) bool {
	min := f.Pixels.Bounds().Min
	for y := yMin; y < yMax; y++ {
		if !colorsSimilar(f.Pixels.RGBAAt(min.X+x, min.Y+y), bg, cropTolerance) {
			return false
		}
	}
	return true
}

func rowUniform(f *Frame, y, xMin, xMax int, bg color.RGBA) bool {
	min := f.Pixels.Bounds().Min
	for x := xMin; x < xMax; x++ {
		if !colorsSimilar(f.Pixels.RGBAAt(min.X+x, min.Y+y), bg, cropTolerance) {
			return false
		}
	}
	return true
}

func colorsSimilar(a, b color.RGBA, tolerance int) bool {
	return absInt(int(a.R)-int(b.R)) <= tolerance &&
		absInt(int(a.G)-int(b.G)) <= tolerance &&
		absInt(int(a.B)-int(b.B)) <= tolerance &&
		absInt(int(a.A)-int(b.A)) <= tolerance
}

// cropRect copies the given sub-rectangle (in frame-local coordinates)
// into a fresh frame.
func cropRect(f *Frame, r image.Rectangle) *Frame {
	min := f.Pixels.Bounds().Min
	src := f.Pixels.SubImage(r.Add(min)).(*image.RGBA)
	out := &Frame{Pixels: src, Delay: f.Delay}
	return out.clone()
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
