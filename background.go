package rimg

import (
	"image"
	"image/color"
)

// BackgroundMode selects how transparent pixels are resolved.
type BackgroundMode int

const (
	// BackgroundAuto keeps alpha for backends with native transparency
	// and substitutes a checkerboard for the Unicode backend.
	BackgroundAuto BackgroundMode = iota
	// BackgroundNone keeps raw pixel values and ignores alpha entirely.
	BackgroundNone
	// BackgroundSolid blends every pixel over a solid color.
	BackgroundSolid
)

// BackgroundStyle describes the transparency policy for a render. At most
// one of the solid color and the checkerboard is visually dominant: the
// checkerboard only applies in Auto mode on backends without native alpha.
type BackgroundStyle struct {
	Mode BackgroundMode

	// Color is the blend target for BackgroundSolid.
	Color color.RGBA

	// Pattern and PatternDark are the two checkerboard tiles used in Auto
	// mode; PatternSize is the tile edge in pixels.
	Pattern     color.RGBA
	PatternDark color.RGBA
	PatternSize int
}

// DefaultBackground returns the Auto policy with the conventional
// light/dark gray checkerboard.
func DefaultBackground() BackgroundStyle {
	return BackgroundStyle{
		Mode:        BackgroundAuto,
		Pattern:     color.RGBA{R: 204, G: 204, B: 204, A: 255},
		PatternDark: color.RGBA{R: 136, G: 136, B: 136, A: 255},
		PatternSize: 4,
	}
}

// checkerAt returns the checkerboard tile color covering pixel (x, y).
func (s BackgroundStyle) checkerAt(x, y int) color.RGBA {
	size := s.PatternSize
	if size < 1 {
		size = 1
	}
	if ((x/size)+(y/size))%2 == 0 {
		return s.Pattern
	}
	return s.PatternDark
}

// Composite resolves transparency in a frame according to the style and
// the target backend's alpha support, returning an opaque-equivalent
// frame. A frame that needs no work is returned as-is, never copied.
//
//	mode  | native alpha backends | unicode backend
//	Auto  | preserve alpha        | blend over checkerboard
//	None  | preserve raw pixels   | preserve raw pixels, alpha ignored
//	Solid | blend over color      | blend over color
func Composite(f *Frame, style BackgroundStyle, nativeAlpha bool) *Frame {
	switch style.Mode {
	case BackgroundNone:
		return f
	case BackgroundAuto:
		if nativeAlpha {
			return f
		}
		if frameOpaque(f) {
			return f
		}
		return blendFrame(f, func(x, y int) color.RGBA { return style.checkerAt(x, y) })
	case BackgroundSolid:
		if frameOpaque(f) {
			return f
		}
		return blendFrame(f, func(int, int) color.RGBA { return style.Color })
	}
	return f
}

func frameOpaque(f *Frame) bool {
	b := f.Pixels.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := f.Pixels.Pix[f.Pixels.PixOffset(b.Min.X, y):f.Pixels.PixOffset(b.Max.X, y)]
		for i := 3; i < len(row); i += 4 {
			if row[i] != 255 {
				return false
			}
		}
	}
	return true
}

// blendFrame composites src over the background color chosen per pixel:
// out = src*alpha + bg*(1-alpha), output alpha forced opaque.
func blendFrame(f *Frame, bg func(x, y int) color.RGBA) *Frame {
	b := f.Pixels.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px := f.Pixels.RGBAAt(b.Min.X+x, b.Min.Y+y)
			if px.A == 255 {
				dst.SetRGBA(x, y, px)
				continue
			}
			back := bg(x, y)
			alpha := uint32(px.A)
			inv := 255 - alpha
			dst.SetRGBA(x, y, color.RGBA{
				R: uint8((uint32(px.R)*alpha + uint32(back.R)*inv + 127) / 255),
				G: uint8((uint32(px.G)*alpha + uint32(back.G)*inv + 127) / 255),
				B: uint8((uint32(px.B)*alpha + uint32(back.B)*inv + 127) / 255),
				A: 255,
			})
		}
	}
	return &Frame{Pixels: dst, Delay: f.Delay}
}
