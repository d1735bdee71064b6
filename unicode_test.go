package rimg

import (
	"fmt"
	"image/color"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTerminal() TerminalProfile {
	return TerminalProfile{Columns: 80, Rows: 24}
}

func halfBlockOpts(widthCells, heightCells int) *RenderOptions {
	return &RenderOptions{
		Sizing: Sizing{
			WidthCells:   widthCells,
			HeightCells:  heightCells,
			WidthStretch: 1,
		},
		Terminal:   testTerminal(),
		Background: BackgroundStyle{Mode: BackgroundNone},
		Pixelation: PixelationHalf,
	}
}

var sgrFgRe = regexp.MustCompile(`\x1b\[38;2;(\d+);(\d+);(\d+)m`)
var sgrBgRe = regexp.MustCompile(`\x1b\[48;2;(\d+);(\d+);(\d+)m`)

func TestHalfBlockSingleCell(t *testing.T) {
	// 1x2 frame, red over blue, at one target cell: the glyph's
	// foreground is the top pixel, its background the bottom pixel.
	frame := solidFrame(t, 1, 2, color.RGBA{R: 255, A: 255})
	frame.Pixels.SetRGBA(0, 1, color.RGBA{B: 255, A: 255})

	backend := &UnicodeBackend{}
	rendered, err := backend.Render(frame, halfBlockOpts(1, 1))
	require.NoError(t, err)

	require.Len(t, rendered.Lines, 1)
	assert.Equal(t, 1, rendered.WidthCells)
	assert.Equal(t, 1, rendered.RowsOccupied)
	assert.Equal(t, "\x1b[38;2;255;0;0m\x1b[48;2;0;0;255m▀\x1b[0m", rendered.Lines[0])
}

func TestHalfBlockAveragesSubPixels(t *testing.T) {
	// Red/green top row, blue/white bottom row, squeezed into one cell:
	// fg approximates avg(red, green), bg approximates avg(blue, white).
	frame := solidFrame(t, 2, 2, color.RGBA{R: 255, A: 255})
	frame.Pixels.SetRGBA(1, 0, color.RGBA{G: 255, A: 255})
	frame.Pixels.SetRGBA(0, 1, color.RGBA{B: 255, A: 255})
	frame.Pixels.SetRGBA(1, 1, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	opts := halfBlockOpts(1, 1)
	opts.Sizing.Antialias = true

	backend := &UnicodeBackend{}
	rendered, err := backend.Render(frame, opts)
	require.NoError(t, err)
	require.Len(t, rendered.Lines, 1)

	fg := sgrFgRe.FindStringSubmatch(rendered.Lines[0])
	bg := sgrBgRe.FindStringSubmatch(rendered.Lines[0])
	require.NotNil(t, fg)
	require.NotNil(t, bg)

	assertChannel := func(match string, want int) {
		var v int
		_, err := fmt.Sscanf(match, "%d", &v)
		require.NoError(t, err)
		assert.InDelta(t, want, v, 2)
	}
	assertChannel(fg[1], 128) // avg(255, 0)
	assertChannel(fg[2], 128) // avg(0, 255)
	assertChannel(fg[3], 0)
	assertChannel(bg[1], 128) // avg(0, 255)
	assertChannel(bg[2], 128)
	assertChannel(bg[3], 255) // avg(255, 255)
}

func TestHalfBlockCoalescesRuns(t *testing.T) {
	frame := solidFrame(t, 4, 2, color.RGBA{R: 255, A: 255})
	rendered, err := (&UnicodeBackend{}).Render(frame, halfBlockOpts(4, 1))
	require.NoError(t, err)
	require.Len(t, rendered.Lines, 1)

	line := rendered.Lines[0]
	assert.Equal(t, 1, strings.Count(line, "\x1b[38;2;"), "one fg escape for a uniform run")
	assert.Equal(t, 1, strings.Count(line, "\x1b[48;2;"), "one bg escape for a uniform run")
	assert.Equal(t, 4, strings.Count(line, "▀"))
	assert.True(t, strings.HasSuffix(line, "\x1b[0m"))
}

func TestHalfBlock8BitColor(t *testing.T) {
	frame := solidFrame(t, 1, 2, color.RGBA{R: 255, A: 255})
	frame.Pixels.SetRGBA(0, 1, color.RGBA{B: 255, A: 255})

	opts := halfBlockOpts(1, 1)
	opts.Use8BitColor = true

	rendered, err := (&UnicodeBackend{}).Render(frame, opts)
	require.NoError(t, err)
	assert.Equal(t, "\x1b[38;5;196m\x1b[48;5;21m▀\x1b[0m", rendered.Lines[0])
}

func TestQuarterBlockGlyphSelection(t *testing.T) {
	tests := []struct {
		name      string
		quad      [4]color.RGBA
		wantGlyph rune
	}{
		{
			name: "uniform block",
			quad: [4]color.RGBA{
				{R: 10, G: 10, B: 10, A: 255}, {R: 10, G: 10, B: 10, A: 255},
				{R: 10, G: 10, B: 10, A: 255}, {R: 10, G: 10, B: 10, A: 255},
			},
			wantGlyph: '█',
		},
		{
			name: "top-left stands out",
			quad: [4]color.RGBA{
				{R: 255, A: 255}, {B: 255, A: 255},
				{B: 255, A: 255}, {B: 255, A: 255},
			},
			wantGlyph: '▘',
		},
		{
			name: "top half vs bottom half",
			quad: [4]color.RGBA{
				{R: 255, A: 255}, {R: 255, A: 255},
				{B: 255, A: 255}, {B: 255, A: 255},
			},
			wantGlyph: '▀',
		},
		{
			name: "left vs right",
			quad: [4]color.RGBA{
				{R: 255, A: 255}, {B: 255, A: 255},
				{R: 255, A: 255}, {B: 255, A: 255},
			},
			wantGlyph: '▌',
		},
		{
			name: "diagonal",
			quad: [4]color.RGBA{
				{R: 255, A: 255}, {B: 255, A: 255},
				{B: 255, A: 255}, {R: 255, A: 255},
			},
			wantGlyph: '▚',
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			glyph, fg, bg := bestQuarterBlock(tt.quad)
			assert.Equal(t, string(tt.wantGlyph), string(glyph))
			assert.Equal(t, uint8(255), fg.A)
			assert.Equal(t, uint8(255), bg.A)
		})
	}
}

func TestQuarterBlockDeterministic(t *testing.T) {
	quad := [4]color.RGBA{
		{R: 200, G: 30, B: 10, A: 255}, {R: 10, G: 180, B: 40, A: 255},
		{R: 10, G: 30, B: 220, A: 255}, {R: 240, G: 240, B: 240, A: 255},
	}
	glyph1, fg1, bg1 := bestQuarterBlock(quad)
	for i := 0; i < 5; i++ {
		glyph2, fg2, bg2 := bestQuarterBlock(quad)
		assert.Equal(t, glyph1, glyph2)
		assert.Equal(t, fg1, fg2)
		assert.Equal(t, bg1, bg2)
	}
}

func TestQuarterBlockRender(t *testing.T) {
	// 2x2 frame at one cell: red top-left quadrant over blue picks the
	// top-left quadrant glyph with exact cluster colors.
	frame := solidFrame(t, 2, 2, color.RGBA{B: 255, A: 255})
	frame.Pixels.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})

	opts := halfBlockOpts(1, 1)
	opts.Pixelation = PixelationQuarter

	rendered, err := (&UnicodeBackend{}).Render(frame, opts)
	require.NoError(t, err)
	require.Len(t, rendered.Lines, 1)
	assert.Equal(t, 1, rendered.WidthCells)
	assert.Contains(t, rendered.Lines[0], "▘")
	assert.Contains(t, rendered.Lines[0], "\x1b[38;2;255;0;0m")
	assert.Contains(t, rendered.Lines[0], "\x1b[48;2;0;0;255m")
}

func TestUnicodeRenderTransparencyUsesChecker(t *testing.T) {
	frame := solidFrame(t, 2, 2, color.RGBA{})

	opts := halfBlockOpts(1, 1)
	opts.Background = DefaultBackground()

	rendered, err := (&UnicodeBackend{}).Render(frame, opts)
	require.NoError(t, err)
	// Fully transparent input renders checkerboard grays, never black.
	assert.NotContains(t, rendered.Lines[0], "38;2;0;0;0")
}

func TestUnicodeRespectsWidthBudget(t *testing.T) {
	frame := solidFrame(t, 100, 40, color.RGBA{R: 128, G: 64, B: 32, A: 255})

	opts := &RenderOptions{
		Sizing:     Sizing{WidthCells: 10, WidthStretch: 1},
		Terminal:   testTerminal(),
		Background: BackgroundStyle{Mode: BackgroundNone},
		Pixelation: PixelationHalf,
	}
	rendered, err := (&UnicodeBackend{}).Render(frame, opts)
	require.NoError(t, err)
	assert.LessOrEqual(t, rendered.WidthCells, 10)
	assert.Equal(t, len(rendered.Lines), rendered.RowsOccupied)
}
