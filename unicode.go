package rimg

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// UnicodeBackend rasterizes frames into half/quarter block glyphs with
// SGR foreground/background colors. It is the universal fallback: every
// terminal that can show colored text can show its output.
type UnicodeBackend struct{}

func (b *UnicodeBackend) Protocol() Protocol { return Unicode }

func (b *UnicodeBackend) Render(frame *Frame, opts *RenderOptions) (*Rendered, error) {
	resolved := Composite(frame, opts.Background, false)
	if opts.Pixelation == PixelationHalf {
		return b.renderHalf(resolved, opts)
	}
	return b.renderQuarter(resolved, opts)
}

// renderHalf maps every cell to a vertical pixel pair: the top sample
// becomes the foreground of an upper-half-block glyph, the bottom sample
// its background.
func (b *UnicodeBackend) renderHalf(frame *Frame, opts *RenderOptions) (*Rendered, error) {
	maxWidthCells, maxHeightCells := cellBounds(opts.Sizing, opts.Terminal, frame.Width(), frame.Height())
	maxHeightPixels := maxHeightCells * 2

	scaleW := float64(maxWidthCells) / float64(frame.Width())
	scaleH := float64(maxHeightPixels) / float64(frame.Height())
	scale := fitScale(opts.Sizing, scaleW, scaleH)

	baseWidth := int(float64(frame.Width())*scale + 0.5)
	baseHeight := int(float64(frame.Height())*scale + 0.5)
	targetWidth := clampInt(int(float64(baseWidth)*effectiveStretch(opts)+0.5), 1, maxWidthCells)
	targetHeight := maxInt(baseHeight, 1)
	if targetHeight%2 != 0 {
		targetHeight++
	}

	scaled := scaleRGBA(frame.Pixels, targetWidth, targetHeight, opts.Sizing.Antialias)

	lines := make([]string, 0, targetHeight/2)
	for y := 0; y < targetHeight; y += 2 {
		var line strings.Builder
		var run sgrRun
		for x := 0; x < targetWidth; x++ {
			top := scaled.RGBAAt(x, y)
			bottom := scaled.RGBAAt(x, y+1)
			run.emit(&line, top, bottom, opts.Use8BitColor)
			line.WriteRune('▀')
		}
		line.WriteString("\x1b[0m")
		lines = append(lines, line.String())
	}

	return &Rendered{
		Lines:        lines,
		WidthCells:   targetWidth,
		RowsOccupied: targetHeight / 2,
		Delay:        frame.Delay,
	}, nil
}

// renderQuarter maps every cell to a 2x2 pixel block, reduced to two
// dominant colors and the quadrant glyph whose fill pattern best matches
// the cluster assignment.
func (b *UnicodeBackend) renderQuarter(frame *Frame, opts *RenderOptions) (*Rendered, error) {
	maxWidthCells, maxHeightCells := cellBounds(opts.Sizing, opts.Terminal, frame.Width(), frame.Height())
	maxHeightPixels := maxHeightCells * 2

	// Quarter blocks pack two pixels per cell horizontally.
	scaleW := float64(maxWidthCells*2) / float64(frame.Width())
	scaleH := float64(maxHeightPixels) / float64(frame.Height())
	scale := fitScale(opts.Sizing, scaleW, scaleH)

	baseWidth := int(float64(frame.Width())*scale + 0.5)
	baseHeight := int(float64(frame.Height())*scale + 0.5)
	targetWidth := clampInt(int(float64(baseWidth)*effectiveStretch(opts)+0.5), 2, maxWidthCells*2)
	targetHeight := maxInt(baseHeight, 2)
	if targetWidth%2 != 0 {
		targetWidth++
	}
	if targetHeight%2 != 0 {
		targetHeight++
	}

	scaled := scaleRGBA(frame.Pixels, targetWidth, targetHeight, opts.Sizing.Antialias)

	lines := make([]string, 0, targetHeight/2)
	for y := 0; y < targetHeight; y += 2 {
		var line strings.Builder
		var run sgrRun
		for x := 0; x < targetWidth; x += 2 {
			quad := [4]color.RGBA{
				scaled.RGBAAt(x, y),
				scaled.RGBAAt(x+1, y),
				scaled.RGBAAt(x, y+1),
				scaled.RGBAAt(x+1, y+1),
			}
			glyph, fg, bg := bestQuarterBlock(quad)
			run.emit(&line, fg, bg, opts.Use8BitColor)
			line.WriteRune(glyph)
		}
		line.WriteString("\x1b[0m")
		lines = append(lines, line.String())
	}

	return &Rendered{
		Lines:        lines,
		WidthCells:   targetWidth / 2,
		RowsOccupied: targetHeight / 2,
		Delay:        frame.Delay,
	}, nil
}

// sgrRun coalesces color escapes: adjacent cells sharing the same
// foreground and background reuse the previous SGR run instead of
// re-emitting it.
type sgrRun struct {
	active bool
	fg, bg color.RGBA
}

func (r *sgrRun) emit(out *strings.Builder, fg, bg color.RGBA, use8bit bool) {
	if r.active && r.fg == fg && r.bg == bg {
		return
	}
	writeFg(out, fg, use8bit)
	writeBg(out, bg, use8bit)
	r.active = true
	r.fg = fg
	r.bg = bg
}

func writeFg(out *strings.Builder, c color.RGBA, use8bit bool) {
	if use8bit {
		fmt.Fprintf(out, "\x1b[38;5;%dm", QuantizeColor(c.R, c.G, c.B))
		return
	}
	fmt.Fprintf(out, "\x1b[38;2;%d;%d;%dm", c.R, c.G, c.B)
}

func writeBg(out *strings.Builder, c color.RGBA, use8bit bool) {
	if use8bit {
		fmt.Fprintf(out, "\x1b[48;5;%dm", QuantizeColor(c.R, c.G, c.B))
		return
	}
	fmt.Fprintf(out, "\x1b[48;2;%d;%d;%dm", c.R, c.G, c.B)
}

// quarterPattern describes one quadrant glyph: mask bit i is set when
// quadrant i (tl, tr, bl, br) belongs to the foreground.
type quarterPattern struct {
	glyph rune
	mask  [4]bool
}

// Patterns are tried in declaration order; ties in the error metric keep
// the earliest, which makes glyph choice deterministic.
var quarterPatterns = []quarterPattern{
	{' ', [4]bool{false, false, false, false}},
	{'▘', [4]bool{true, false, false, false}},
	{'▝', [4]bool{false, true, false, false}},
	{'▖', [4]bool{false, false, true, false}},
	{'▗', [4]bool{false, false, false, true}},
	{'▀', [4]bool{true, true, false, false}},
	{'▄', [4]bool{false, false, true, true}},
	{'▌', [4]bool{true, false, true, false}},
	{'▐', [4]bool{false, true, false, true}},
	{'▚', [4]bool{true, false, false, true}},
	{'▞', [4]bool{false, true, true, false}},
	{'█', [4]bool{true, true, true, true}},
}

// bestQuarterBlock reduces four quadrant samples to two cluster averages
// and picks the glyph whose fill assignment minimizes total color error.
func bestQuarterBlock(quad [4]color.RGBA) (glyph rune, fg, bg color.RGBA) {
	// Fast path: a near-uniform block is a full block of the average.
	avg := averageRGBA(quad[:])
	uniform := true
	for _, c := range quad {
		if colorDistance(c, avg) >= 0.12 {
			uniform = false
			break
		}
	}
	if uniform {
		return '█', avg, avg
	}

	bestErr := -1.0
	glyph = ' '
	for _, p := range quarterPatterns {
		var fgSamples, bgSamples []color.RGBA
		for i, c := range quad {
			if p.mask[i] {
				fgSamples = append(fgSamples, c)
			} else {
				bgSamples = append(bgSamples, c)
			}
		}

		fgAvg := averageRGBA(fgSamples)
		bgAvg := averageRGBA(bgSamples)

		errSum := 0.0
		for i, c := range quad {
			if p.mask[i] {
				errSum += colorDistance(c, fgAvg)
			} else {
				errSum += colorDistance(c, bgAvg)
			}
		}

		if bestErr < 0 || errSum < bestErr {
			bestErr = errSum
			glyph = p.glyph
			if len(fgSamples) == 0 {
				fgAvg = bgAvg
			}
			if len(bgSamples) == 0 {
				bgAvg = fgAvg
			}
			fg, bg = fgAvg, bgAvg
		}
	}
	return glyph, fg, bg
}

func averageRGBA(colors []color.RGBA) color.RGBA {
	if len(colors) == 0 {
		return color.RGBA{A: 255}
	}
	var r, g, b int
	for _, c := range colors {
		r += int(c.R)
		g += int(c.G)
		b += int(c.B)
	}
	n := len(colors)
	return color.RGBA{
		R: uint8(r / n),
		G: uint8(g / n),
		B: uint8(b / n),
		A: 255,
	}
}

func colorDistance(a, b color.RGBA) float64 {
	ca := colorful.Color{R: float64(a.R) / 255, G: float64(a.G) / 255, B: float64(a.B) / 255}
	cb := colorful.Color{R: float64(b.R) / 255, G: float64(b.G) / 255, B: float64(b.B) / 255}
	return ca.DistanceRgb(cb)
}
