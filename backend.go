package rimg

import (
	"fmt"
	"strings"
	"time"
)

// Protocol identifies a terminal graphics protocol.
type Protocol int

const (
	// Auto resolves to the detected terminal preference at selection time.
	Auto Protocol = iota
	// Unicode renders with half/quarter block glyphs and SGR colors.
	Unicode
	// Kitty uses the Kitty graphics protocol (APC transmission commands).
	Kitty
	// ITerm2 uses the OSC 1337 inline-image protocol.
	ITerm2
	// Sixel uses DEC Sixel escape sequences.
	Sixel
)

func (p Protocol) String() string {
	switch p {
	case Auto:
		return "auto"
	case Unicode:
		return "unicode"
	case Kitty:
		return "kitty"
	case ITerm2:
		return "iterm2"
	case Sixel:
		return "sixel"
	default:
		return fmt.Sprintf("Protocol(%d)", int(p))
	}
}

// ParseProtocol maps a user-facing name to a Protocol.
func ParseProtocol(name string) (Protocol, error) {
	switch strings.ToLower(name) {
	case "auto":
		return Auto, nil
	case "unicode", "block", "blocks":
		return Unicode, nil
	case "kitty":
		return Kitty, nil
	case "iterm2", "iterm":
		return ITerm2, nil
	case "sixel":
		return Sixel, nil
	default:
		return Auto, fmt.Errorf("unsupported backend %q (valid: auto, unicode, kitty, iterm2, sixel)", name)
	}
}

// PixelationMode selects the sub-cell sampling density of the Unicode
// backend.
type PixelationMode int

const (
	// PixelationQuarter maps each cell to a 2x2 pixel block.
	PixelationQuarter PixelationMode = iota
	// PixelationHalf maps each cell to a vertical pixel pair.
	PixelationHalf
)

// Sizing bounds the rendered output in character cells.
type Sizing struct {
	// WidthCells / HeightCells cap the output size; zero means "use the
	// terminal dimension".
	WidthCells  int
	HeightCells int

	// FitWidth scales to the width bound and lets height overflow;
	// FitHeight is the transpose.
	FitWidth  bool
	FitHeight bool

	// Upscale allows enlarging frames smaller than the target;
	// UpscaleInteger restricts enlargement to whole multiples.
	Upscale        bool
	UpscaleInteger bool

	// WidthStretch compensates for non-square character cells. Zero means
	// "use the profile's recommendation".
	WidthStretch float64

	// Antialias picks the high-quality scaling kernel; off means nearest
	// neighbor.
	Antialias bool
}

// RenderOptions carries everything a backend needs to turn one frame into
// terminal output. Value semantics; backends never mutate it.
type RenderOptions struct {
	Sizing     Sizing
	Terminal   TerminalProfile
	Background BackgroundStyle
	Pixelation PixelationMode
	// Use8BitColor emits 256-color SGR sequences instead of 24-bit.
	Use8BitColor bool
	// CompressLevel enables zlib compression of protocol payloads where
	// supported (0 disables).
	CompressLevel int
}

// Rendered is terminal-ready output for one frame: the escape-sequence
// lines to write plus the cell footprint needed for in-place overwrite.
// Graphics-protocol backends report zero RowsOccupied because the image
// is placed by the terminal, not by line flow.
type Rendered struct {
	Lines        []string
	WidthCells   int
	RowsOccupied int
	Delay        time.Duration
}

// Bytes joins the rendered lines, newline-terminated, into one writable
// byte sequence.
func (r *Rendered) Bytes() []byte {
	var b strings.Builder
	for _, line := range r.Lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// Backend turns one frame plus render options into terminal byte output
// under one specific protocol. Implementations are stateless and safe for
// sequential reuse; identical inputs produce byte-identical output except
// where the Sixel encoder's palette construction is itself not fixed.
type Backend interface {
	Protocol() Protocol
	Render(frame *Frame, opts *RenderOptions) (*Rendered, error)
}

// backendRegistry holds the protocol variants compiled into this build.
// Unicode, Kitty and iTerm2 are always present; Sixel registers itself
// unless built with the nosixel tag.
var backendRegistry = map[Protocol]func() Backend{
	Unicode: func() Backend { return &UnicodeBackend{} },
	Kitty:   func() Backend { return &KittyBackend{} },
	ITerm2:  func() Backend { return &ITerm2Backend{} },
}

// Registered reports whether the protocol was compiled into this build.
func Registered(p Protocol) bool {
	_, ok := backendRegistry[p]
	return ok
}

// Operation flags describing what the caller is about to ask of the
// backend. Grid and scroll can only be satisfied by character-cell
// output.
type Operation struct {
	Grid   bool
	Scroll bool
}

func (o Operation) unicodeOnly() bool { return o.Grid || o.Scroll }

// Selection is the result of backend selection. Advisory carries a
// human-readable note when the selector silently substituted Unicode.
type Selection struct {
	Backend  Backend
	Advisory string
}

// SelectBackend chooses a concrete backend for the requested protocol.
// Auto resolves to the profile's detected preference. A requested (not
// forced) protocol that is unavailable, or structurally incompatible with
// a unicode-only operation, is substituted with Unicode and reported as a
// non-fatal advisory. A forced protocol that cannot serve the operation
// fails with ErrUnsupportedCombination instead.
func SelectBackend(requested Protocol, forced bool, profile TerminalProfile, op Operation) (Selection, error) {
	kind := requested
	if kind == Auto {
		kind = profile.Preferred
		forced = false
	}

	if op.unicodeOnly() && kind != Unicode {
		if forced {
			return Selection{}, fmt.Errorf("%w: %s cannot serve grid or scroll output", ErrUnsupportedCombination, kind)
		}
		return Selection{
			Backend:  backendRegistry[Unicode](),
			Advisory: fmt.Sprintf("%s backend cannot serve grid/scroll layout, using unicode", kind),
		}, nil
	}

	build, ok := backendRegistry[kind]
	if !ok {
		if forced {
			return Selection{}, fmt.Errorf("%w: %s support is not compiled in", ErrUnsupportedCombination, kind)
		}
		return Selection{
			Backend:  backendRegistry[Unicode](),
			Advisory: fmt.Sprintf("%s support is not compiled in, using unicode", kind),
		}, nil
	}
	return Selection{Backend: build()}, nil
}
