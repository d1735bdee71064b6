package rimg

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// scaleRGBA resizes an RGBA image to the exact target size. Antialiased
// scaling uses an approximated bilinear kernel; otherwise nearest
// neighbor keeps hard pixel edges (useful for pixel art).
func scaleRGBA(src *image.RGBA, width, height int, antialias bool) *image.RGBA {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	b := src.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	var scaler xdraw.Scaler = xdraw.NearestNeighbor
	if antialias {
		scaler = xdraw.ApproxBiLinear
	}
	scaler.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

// cellBounds clamps the requested cell budget against the terminal size,
// defaulting to "as much as fits" when the caller left a bound unset.
func cellBounds(s Sizing, terminal TerminalProfile, frameW, frameH int) (maxWidthCells, maxHeightCells int) {
	maxWidthCells = s.WidthCells
	if maxWidthCells <= 0 {
		maxWidthCells = minInt(frameW, terminal.Columns)
	}
	maxWidthCells = clampInt(maxWidthCells, 1, terminal.Columns)

	maxHeightCells = s.HeightCells
	if maxHeightCells <= 0 {
		maxHeightCells = minInt(frameH, terminal.Rows)
	}
	maxHeightCells = clampInt(maxHeightCells, 1, terminal.Rows)
	return maxWidthCells, maxHeightCells
}

// effectiveStretch resolves the horizontal stretch factor, deferring to
// the terminal profile's recommendation when the caller left it unset.
func effectiveStretch(opts *RenderOptions) float64 {
	if opts.Sizing.WidthStretch > 0 {
		return opts.Sizing.WidthStretch
	}
	return opts.Terminal.RecommendedWidthStretch()
}

// fitScale picks the scale factor that honors the fit flags and the
// upscale policy.
func fitScale(s Sizing, scaleW, scaleH float64) float64 {
	var scale float64
	switch {
	case s.FitWidth:
		scale = scaleW
	case s.FitHeight:
		scale = scaleH
	default:
		scale = minFloat(scaleW, scaleH)
	}
	if scale > 1 {
		if !s.Upscale {
			return 1
		}
		if s.UpscaleInteger {
			return float64(int(scale))
		}
	}
	return scale
}

// graphicsCellAllocation computes how many terminal cells a pixel-perfect
// graphics protocol should claim for a frame, preserving the image aspect
// ratio against cells that are roughly twice as tall as wide.
func graphicsCellAllocation(frame *Frame, opts *RenderOptions) (widthCells, heightCells int) {
	maxW, maxH := cellBounds(opts.Sizing, opts.Terminal, frame.Width(), frame.Height())
	if opts.Sizing.WidthCells > 0 && opts.Sizing.HeightCells > 0 {
		return maxW, maxH
	}

	cellAspect := 1.0 / opts.Terminal.RecommendedWidthStretch()
	imgAspect := float64(frame.Width()) / float64(frame.Height())

	widthIfHeightBound := int(float64(maxH) * imgAspect / cellAspect)
	heightIfWidthBound := int(float64(maxW) * cellAspect / imgAspect)
	if widthIfHeightBound <= maxW {
		return maxInt(widthIfHeightBound, 1), maxH
	}
	return maxW, maxInt(heightIfWidthBound, 1)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
