package rimg

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graphicsOpts() *RenderOptions {
	return &RenderOptions{
		Terminal:   testTerminal(),
		Background: BackgroundStyle{Mode: BackgroundNone},
	}
}

// kittyChunks splits rendered output back into individual APC sequences.
func kittyChunks(t *testing.T, out string) []string {
	t.Helper()
	var seqs []string
	for _, part := range strings.Split(out, "\x1b\\") {
		if part == "" {
			continue
		}
		require.True(t, strings.HasPrefix(part, "\x1b_G"), "sequence %q", part)
		seqs = append(seqs, strings.TrimPrefix(part, "\x1b_G"))
	}
	return seqs
}

func TestKittyRenderFraming(t *testing.T) {
	frame := solidFrame(t, 3, 2, color.RGBA{R: 255, A: 255})

	rendered, err := (&KittyBackend{}).Render(frame, graphicsOpts())
	require.NoError(t, err)
	require.Len(t, rendered.Lines, 1)

	out := rendered.Lines[0]
	assert.True(t, strings.HasPrefix(out, "\x1b_G"))
	assert.True(t, strings.HasSuffix(out, "\x1b\\"))

	seqs := kittyChunks(t, out)
	require.NotEmpty(t, seqs)

	ctrl, payload, found := strings.Cut(seqs[0], ";")
	require.True(t, found)
	assert.Contains(t, ctrl, "a=T")
	assert.Contains(t, ctrl, "f=100")
	assert.Contains(t, ctrl, "q=2")
	assert.Contains(t, ctrl, "s=3")
	assert.Contains(t, ctrl, "v=2")
	assert.Contains(t, ctrl, "i=")
	assert.NotContains(t, ctrl, "o=z")

	// The reassembled payload is a decodable PNG of the frame.
	var b64 strings.Builder
	b64.WriteString(payload)
	for _, seq := range seqs[1:] {
		_, data, _ := strings.Cut(seq, ";")
		b64.WriteString(data)
	}
	raw, err := base64.StdEncoding.DecodeString(b64.String())
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 3, img.Bounds().Dx())
	assert.Equal(t, 2, img.Bounds().Dy())
}

func TestKittyRenderDeterministic(t *testing.T) {
	frame := solidFrame(t, 4, 4, color.RGBA{G: 200, A: 255})
	backend := &KittyBackend{}

	first, err := backend.Render(frame, graphicsOpts())
	require.NoError(t, err)
	second, err := backend.Render(frame, graphicsOpts())
	require.NoError(t, err)
	assert.Equal(t, first.Lines, second.Lines)
}

func TestKittyChunkContinuationMarkers(t *testing.T) {
	// Noise does not compress, so the PNG payload spans several chunks.
	frame := solidFrame(t, 64, 64, color.RGBA{A: 255})
	seed := uint32(2463534242)
	for i := 0; i < len(frame.Pixels.Pix); i++ {
		seed ^= seed << 13
		seed ^= seed >> 17
		seed ^= seed << 5
		frame.Pixels.Pix[i] = byte(seed)
		if i%4 == 3 {
			frame.Pixels.Pix[i] = 255
		}
	}

	rendered, err := (&KittyBackend{}).Render(frame, graphicsOpts())
	require.NoError(t, err)

	seqs := kittyChunks(t, rendered.Lines[0])
	require.Greater(t, len(seqs), 1, "expected a multi-chunk transmission")

	for i, seq := range seqs {
		ctrl, _, _ := strings.Cut(seq, ";")
		switch {
		case i == 0:
			assert.Contains(t, ctrl, "a=T")
			assert.Contains(t, ctrl, "m=1")
		case i == len(seqs)-1:
			assert.Equal(t, "m=0", ctrl)
		default:
			assert.Equal(t, "m=1", ctrl)
		}
	}
}

func TestKittyCompression(t *testing.T) {
	frame := solidFrame(t, 8, 8, color.RGBA{B: 180, A: 255})

	opts := graphicsOpts()
	opts.CompressLevel = 6

	rendered, err := (&KittyBackend{}).Render(frame, opts)
	require.NoError(t, err)

	seqs := kittyChunks(t, rendered.Lines[0])
	ctrl, payload, _ := strings.Cut(seqs[0], ";")
	assert.Contains(t, ctrl, "o=z")

	var b64 strings.Builder
	b64.WriteString(payload)
	for _, seq := range seqs[1:] {
		_, data, _ := strings.Cut(seq, ";")
		b64.WriteString(data)
	}
	raw, err := base64.StdEncoding.DecodeString(b64.String())
	require.NoError(t, err)

	zr, err := zlib.NewReader(bytes.NewReader(raw))
	require.NoError(t, err)
	inflated, err := io.ReadAll(zr)
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(inflated))
	assert.NoError(t, err)
}

func TestKittyTmuxPassthrough(t *testing.T) {
	frame := solidFrame(t, 2, 2, color.RGBA{R: 9, A: 255})

	opts := graphicsOpts()
	opts.Terminal.Mux = MuxTmux

	rendered, err := (&KittyBackend{}).Render(frame, opts)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rendered.Lines[0], "\x1bPtmux;"))

	// A small frame fits one chunk, so the line is a single envelope
	// that unwraps back to the raw APC sequence.
	inner := UnwrapPassthrough(rendered.Lines[0])
	assert.True(t, strings.HasPrefix(inner, "\x1b_G"))
	assert.NotContains(t, inner, "\x1b\x1b")
}

func TestKittyImageIDStable(t *testing.T) {
	a := kittyImageID([]byte("payload"))
	b := kittyImageID([]byte("payload"))
	c := kittyImageID([]byte("other"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotZero(t, kittyImageID(nil))
}
