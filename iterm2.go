package rimg

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"
)

// iterm2ChunkSize is the base64 payload budget per OSC 1337 part.
const iterm2ChunkSize = 4096

// ITerm2Backend emits OSC 1337 inline images. Small payloads go out as a
// single File sequence; larger ones use the MultipartFile framing so no
// single escape grows unbounded.
type ITerm2Backend struct{}

func (b *ITerm2Backend) Protocol() Protocol { return ITerm2 }

func (b *ITerm2Backend) Render(frame *Frame, opts *RenderOptions) (*Rendered, error) {
	resolved := Composite(frame, opts.Background, true)

	var buf bytes.Buffer
	if err := png.Encode(&buf, resolved.Pixels); err != nil {
		return nil, encodingError(ITerm2, err)
	}
	payload := buf.Bytes()

	cols, rows := graphicsCellAllocation(resolved, opts)
	args := fmt.Sprintf("inline=1;size=%d;width=%d;height=%d;preserveAspectRatio=1",
		len(payload), cols, rows)

	chunks := ChunkPayload(payload, iterm2ChunkSize)
	mux := opts.Terminal.Mux

	var out strings.Builder
	if len(chunks) == 1 {
		seq := "\x1b]1337;File=" + args + ":" + chunks[0].Data + "\x07"
		out.WriteString(WrapPassthrough(seq, mux))
	} else {
		out.WriteString(WrapPassthrough("\x1b]1337;MultipartFile="+args+"\x07", mux))
		for _, chunk := range chunks {
			out.WriteString(WrapPassthrough("\x1b]1337;FilePart="+chunk.Data+"\x07", mux))
		}
		out.WriteString(WrapPassthrough("\x1b]1337;FileEnd\x07", mux))
	}

	return &Rendered{
		Lines:      []string{out.String()},
		WidthCells: cols,
		Delay:      frame.Delay,
	}, nil
}
