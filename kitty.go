package rimg

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"hash/fnv"
	"image/png"
	"strings"
)

// kittyChunkSize is the base64 payload budget per graphics escape.
const kittyChunkSize = 4096

// KittyBackend emits the kitty graphics protocol (APC G sequences).
// Pixels travel as base64 PNG, split across continuation chunks.
type KittyBackend struct{}

func (b *KittyBackend) Protocol() Protocol { return Kitty }

func (b *KittyBackend) Render(frame *Frame, opts *RenderOptions) (*Rendered, error) {
	resolved := Composite(frame, opts.Background, true)

	var buf bytes.Buffer
	if err := png.Encode(&buf, resolved.Pixels); err != nil {
		return nil, encodingError(Kitty, err)
	}
	payload := buf.Bytes()

	format := 100 // PNG
	if opts.CompressLevel > 0 {
		compressed, err := zlibCompress(payload, opts.CompressLevel)
		if err != nil {
			return nil, encodingError(Kitty, err)
		}
		payload = compressed
	}

	cols, rows := graphicsCellAllocation(resolved, opts)
	imageID := kittyImageID(payload)

	chunks := ChunkPayload(payload, kittyChunkSize)

	var out strings.Builder
	for i, chunk := range chunks {
		var ctrl strings.Builder
		if i == 0 {
			fmt.Fprintf(&ctrl, "a=T,f=%d,q=2,i=%d,s=%d,v=%d,c=%d,r=%d",
				format, imageID, resolved.Width(), resolved.Height(), cols, rows)
			if opts.CompressLevel > 0 {
				ctrl.WriteString(",o=z")
			}
		}
		if !chunk.Last {
			if ctrl.Len() > 0 {
				ctrl.WriteString(",")
			}
			ctrl.WriteString("m=1")
		} else if i > 0 {
			ctrl.WriteString("m=0")
		}
		seq := "\x1b_G" + ctrl.String() + ";" + chunk.Data + "\x1b\\"
		out.WriteString(WrapPassthrough(seq, opts.Terminal.Mux))
	}

	return &Rendered{
		Lines:      []string{out.String()},
		WidthCells: cols,
		Delay:      frame.Delay,
	}, nil
}

// kittyImageID derives a stable image id from the payload so repeated
// renders of the same frame reuse the terminal's cached transmission.
func kittyImageID(payload []byte) uint32 {
	h := fnv.New32a()
	h.Write(payload)
	id := h.Sum32()
	if id == 0 {
		id = 1
	}
	return id
}

func zlibCompress(data []byte, level int) ([]byte, error) {
	if level > zlib.BestCompression {
		level = zlib.BestCompression
	}
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
