//go:build !nosixel

package rimg

import (
	"bytes"
	"image"

	"github.com/makeworld-the-better-one/dither/v2"
	"github.com/mattn/go-sixel"
	"github.com/soniakeys/quant/median"
)

// sixelMaxColors is the palette budget for sixel output. Most sixel
// terminals register at most 256 colors; one slot is left for the
// encoder's transparent entry.
const sixelMaxColors = 255

func init() {
	backendRegistry[Sixel] = func() Backend { return &SixelBackend{} }
}

// SixelBackend emits DECSIXEL raster data. Frames are median-cut
// quantized to a terminal-sized palette and error-diffused before
// encoding, which beats the encoder's built-in ordered dither on
// photographic input.
type SixelBackend struct{}

func (b *SixelBackend) Protocol() Protocol { return Sixel }

func (b *SixelBackend) Render(frame *Frame, opts *RenderOptions) (*Rendered, error) {
	// Sixel carries no alpha channel, so transparency is resolved here
	// like for block rendering.
	resolved := Composite(frame, opts.Background, false)
	cols, _ := graphicsCellAllocation(resolved, opts)

	var src image.Image = resolved.Pixels
	q := median.Quantizer(sixelMaxColors)
	palette := q.Palette(resolved.Pixels).ColorPalette()
	if len(palette) > 0 {
		d := dither.NewDitherer(palette)
		d.Matrix = dither.FloydSteinberg
		src = d.Dither(resolved.Pixels)
	}

	var buf bytes.Buffer
	enc := sixel.NewEncoder(&buf)
	enc.Dither = false
	enc.Colors = sixelMaxColors
	if err := enc.Encode(src); err != nil {
		return nil, encodingError(Sixel, err)
	}

	seq := WrapPassthrough(buf.String(), opts.Terminal.Mux)
	return &Rendered{
		Lines:      []string{seq},
		WidthCells: cols,
		Delay:      frame.Delay,
	}, nil
}
