package cmd

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blacktop/rimg"
)

// decodeImage is the decode collaborator handed to rimg.DecodeAll. It
// understands the stdlib formats; GIFs decode to full frame sequences
// with authored delays.
func decodeImage(ctx context.Context, path string) (*rimg.FrameSequence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var frames []*rimg.Frame
	if strings.EqualFold(filepath.Ext(path), ".gif") {
		frames, err = decodeGIF(f)
	} else {
		frames, err = decodeStill(f)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	seq := &rimg.FrameSequence{Source: path, Frames: frames}
	return postProcess(seq), nil
}

func decodeStill(f *os.File) ([]*rimg.Frame, error) {
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	frame, err := rimg.NewFrame(toRGBA(img), 0)
	if err != nil {
		return nil, err
	}
	return []*rimg.Frame{frame}, nil
}

// decodeGIF flattens each frame onto the accumulated canvas so partial
// frames (common in optimized GIFs) render complete.
func decodeGIF(f *os.File) ([]*rimg.Frame, error) {
	g, err := gif.DecodeAll(f)
	if err != nil {
		return nil, err
	}
	if len(g.Image) == 0 {
		return nil, fmt.Errorf("gif has no frames")
	}

	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = g.Image[0].Bounds()
	}
	canvas := image.NewRGBA(bounds)

	frames := make([]*rimg.Frame, 0, len(g.Image))
	for i, src := range g.Image {
		var restore []uint8
		if g.Disposal[i] == gif.DisposalPrevious {
			restore = append([]uint8(nil), canvas.Pix...)
		}

		draw.Draw(canvas, src.Bounds(), src, src.Bounds().Min, draw.Over)

		snapshot := image.NewRGBA(bounds)
		copy(snapshot.Pix, canvas.Pix)

		delay := time.Duration(g.Delay[i]) * 10 * time.Millisecond
		frame, err := rimg.NewFrame(snapshot, delay)
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)

		switch g.Disposal[i] {
		case gif.DisposalBackground:
			draw.Draw(canvas, src.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			copy(canvas.Pix, restore)
		}
	}
	return frames, nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba
}

// postProcess applies the crop flags to every frame.
func postProcess(seq *rimg.FrameSequence) *rimg.FrameSequence {
	if flags.cropBorder <= 0 && !flags.autoCrop {
		return seq
	}
	for i, frame := range seq.Frames {
		if flags.cropBorder > 0 {
			frame = rimg.CropBorder(frame, flags.cropBorder)
		}
		if flags.autoCrop {
			frame = rimg.AutoCrop(frame)
		}
		seq.Frames[i] = frame
	}
	return seq
}
