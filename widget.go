package rimg

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Widget is a Bubble Tea model that displays a single frame, re-rendered
// lazily when the size or frame changes. It always renders through the
// unicode backend because graphics escapes do not survive a TUI
// framework's own screen diffing.
type Widget struct {
	frame   *Frame
	backend Backend
	opts    RenderOptions

	cache string
	dirty bool
	err   error
}

// NewWidget wraps a frame for TUI embedding. The terminal profile
// supplies cell geometry; sizing starts unconstrained until the first
// WindowSizeMsg or SetSize call.
func NewWidget(frame *Frame, profile TerminalProfile) *Widget {
	return &Widget{
		frame:   frame,
		backend: &UnicodeBackend{},
		opts: RenderOptions{
			Terminal:   profile,
			Background: DefaultBackground(),
		},
		dirty: true,
	}
}

// SetFrame swaps the displayed frame and invalidates the cache.
func (w *Widget) SetFrame(frame *Frame) {
	w.frame = frame
	w.dirty = true
}

// SetSize constrains the widget to a cell box.
func (w *Widget) SetSize(cols, rows int) {
	if w.opts.Sizing.WidthCells == cols && w.opts.Sizing.HeightCells == rows {
		return
	}
	w.opts.Sizing.WidthCells = cols
	w.opts.Sizing.HeightCells = rows
	w.dirty = true
}

// SetPixelation switches between half and quarter block rendering.
func (w *Widget) SetPixelation(mode PixelationMode) {
	if w.opts.Pixelation == mode {
		return
	}
	w.opts.Pixelation = mode
	w.dirty = true
}

// Err reports the last render failure, if any. View cannot return an
// error, so it is surfaced here.
func (w *Widget) Err() error { return w.err }

func (w *Widget) Init() tea.Cmd { return nil }

func (w *Widget) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		w.SetSize(size.Width, size.Height)
	}
	return w, nil
}

func (w *Widget) View() string {
	if !w.dirty {
		return w.cache
	}
	w.dirty = false

	if w.frame == nil {
		w.cache = ""
		return w.cache
	}
	rendered, err := w.backend.Render(w.frame, &w.opts)
	if err != nil {
		w.err = err
		w.cache = ""
		return w.cache
	}
	w.err = nil
	w.cache = strings.Join(rendered.Lines, "\n")
	return w.cache
}
