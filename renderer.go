package rimg

import (
	"context"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// GridOptions lays pre-rendered images out as a row/column matrix.
type GridOptions struct {
	Columns int
	// Spacing is the inter-column gap in cells.
	Spacing int
	// MaxRows caps the number of grid rows; 0 means unlimited.
	MaxRows int
}

// ScrollOptions pans an oversized image through the viewport.
type ScrollOptions struct {
	// DX, DY is the per-tick step in cells. At least one must be nonzero
	// for any motion to happen.
	DX, DY int
	// Interval is the pause between ticks.
	Interval time.Duration
}

// PlaybackOptions bound animated playback. All limits combine; the
// first one reached stops playback.
type PlaybackOptions struct {
	// Loops is the number of full passes; 0 means once. Ignored when
	// LoopForever is set.
	Loops       int
	LoopForever bool
	// MaxFrames trims the frame window per pass; 0 means all frames.
	MaxFrames int
	// FrameOffset skips this many frames before playback begins.
	FrameOffset int
	// MaxDuration caps total elapsed playback time; 0 means unlimited.
	MaxDuration time.Duration
	// DelayOverride replaces every frame's authored delay when nonzero.
	DelayOverride time.Duration
}

// RendererConfig is the resolved configuration for one render pass.
type RendererConfig struct {
	// Protocol is the requested backend; Auto follows detection.
	Protocol Protocol
	// Force turns an incompatible protocol request into an error instead
	// of a silent unicode fallback.
	Force bool

	Render   RenderOptions
	Playback PlaybackOptions
	Grid     *GridOptions
	Scroll   *ScrollOptions

	// Center indents output to the middle of the terminal. Ignored under
	// grid layout.
	Center     bool
	HideCursor bool
	AltScreen  bool

	ClearOnce    bool
	ClearBetween bool

	WaitBetweenImages time.Duration
	WaitBetweenRows   time.Duration

	// TitleFormat is printed above each image when set. Placeholders:
	// %f full path, %b basename, %w/%h pixel dimensions, %n 1-based
	// index, %% literal percent.
	TitleFormat string
	// Quiet suppresses titles entirely.
	Quiet bool
}

// Renderer owns the output sink and cursor for the duration of a render
// pass. Construct with NewRenderer; zero value is not usable.
type Renderer struct {
	cfg     RendererConfig
	backend Backend
	profile TerminalProfile
	out     io.Writer
	log     zerolog.Logger

	// Injectable time sources so playback limits are testable without
	// real sleeps.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRenderer selects a backend for the configured protocol and
// operation and binds the renderer to an output sink. Selection
// advisories are logged, never returned as errors.
func NewRenderer(out io.Writer, profile TerminalProfile, cfg RendererConfig, log zerolog.Logger) (*Renderer, error) {
	op := Operation{Grid: cfg.Grid != nil, Scroll: cfg.Scroll != nil}
	sel, err := SelectBackend(cfg.Protocol, cfg.Force, profile, op)
	if err != nil {
		return nil, err
	}
	if sel.Advisory != "" {
		log.Warn().Str("advisory", sel.Advisory).Msg("backend fallback")
	}

	cfg.Render.Terminal = profile
	return &Renderer{
		cfg:     cfg,
		backend: sel.Backend,
		profile: profile,
		out:     out,
		log:     log,
		now:     time.Now,
		sleep:   sleepContext,
	}, nil
}

// Backend exposes the backend the selector settled on.
func (r *Renderer) Backend() Backend { return r.backend }

// Run renders every sequence, honoring layout, pacing and limit options.
// Cursor and alternate-screen state acquired here is restored on every
// exit path.
func (r *Renderer) Run(ctx context.Context, sequences []*FrameSequence) error {
	if len(sequences) == 0 {
		return ErrMissingInput
	}

	release, err := r.acquireScreen()
	if err != nil {
		return err
	}
	defer release()

	if r.cfg.ClearOnce {
		if err := r.write("\x1b[2J\x1b[H"); err != nil {
			return err
		}
	}

	if r.cfg.Grid != nil {
		return r.renderGrid(ctx, sequences)
	}

	for idx, seq := range sequences {
		if err := ctx.Err(); err != nil {
			return err
		}

		if r.cfg.ClearBetween && (idx > 0 || !r.cfg.ClearOnce) {
			if err := r.write("\x1b[2J\x1b[H"); err != nil {
				return err
			}
		}

		if title := r.makeTitle(idx, seq); title != "" {
			if err := r.write(title + "\n"); err != nil {
				return err
			}
		}

		if r.cfg.Scroll != nil {
			err = r.renderScroll(ctx, seq)
		} else {
			err = r.renderSequence(ctx, seq)
		}
		if err != nil {
			return err
		}

		if r.cfg.WaitBetweenImages > 0 && idx+1 < len(sequences) {
			if err := r.sleep(ctx, r.cfg.WaitBetweenImages); err != nil {
				return err
			}
		}
	}
	return nil
}

// renderSequence plays one sequence with in-place overwrite pacing.
func (r *Renderer) renderSequence(ctx context.Context, seq *FrameSequence) error {
	frames := playbackWindow(seq.Frames, r.cfg.Playback)
	if len(frames) == 0 {
		return nil
	}

	if len(frames) == 1 {
		return r.printFrame(frames[0])
	}

	loops := 1
	if r.cfg.Playback.Loops > 0 {
		loops = r.cfg.Playback.Loops
	}

	start := r.now()
	lastRows := 0
	first := true

	for pass := 0; r.cfg.Playback.LoopForever || pass < loops; pass++ {
		for _, frame := range frames {
			if err := ctx.Err(); err != nil {
				return err
			}
			if exceeded, _ := r.durationLeft(start); exceeded {
				return nil
			}

			rendered, err := r.backend.Render(frame, &r.cfg.Render)
			if err != nil {
				return err
			}

			if !first && lastRows > 0 {
				if err := r.write(fmt.Sprintf("\x1b[%dA", lastRows)); err != nil {
					return err
				}
			}
			if err := r.writeRendered(rendered); err != nil {
				return err
			}
			lastRows = rendered.RowsOccupied
			first = false

			delay := frame.Delay
			if r.cfg.Playback.DelayOverride > 0 {
				delay = r.cfg.Playback.DelayOverride
			}
			if delay <= 0 {
				continue
			}
			if exceeded, left := r.durationLeft(start); exceeded {
				return nil
			} else if left > 0 && delay > left {
				// Truncate the final wait so the duration limit cuts a
				// long frame delay short.
				delay = left
			}
			if err := r.sleep(ctx, delay); err != nil {
				return err
			}
		}
	}
	return nil
}

// durationLeft reports whether the configured duration budget is spent
// and, if not, how much remains (0 meaning unlimited).
func (r *Renderer) durationLeft(start time.Time) (exceeded bool, left time.Duration) {
	max := r.cfg.Playback.MaxDuration
	if max <= 0 {
		return false, 0
	}
	elapsed := r.now().Sub(start)
	if elapsed >= max {
		return true, 0
	}
	return false, max - elapsed
}

// playbackWindow applies the frame offset and max-frame limit.
func playbackWindow(frames []*Frame, p PlaybackOptions) []*Frame {
	if len(frames) == 0 {
		return nil
	}
	offset := minInt(p.FrameOffset, len(frames)-1)
	if offset < 0 {
		offset = 0
	}
	window := frames[offset:]
	if p.MaxFrames > 0 && p.MaxFrames < len(window) {
		window = window[:p.MaxFrames]
	}
	return window
}

// renderScroll pans a sub-rectangle of the first frame through the
// viewport, advancing by the configured step each tick and clamping at
// the source boundaries.
func (r *Renderer) renderScroll(ctx context.Context, seq *FrameSequence) error {
	if r.backend.Protocol() != Unicode {
		return fmt.Errorf("%w: scroll output requires the unicode backend", ErrUnsupportedCombination)
	}
	frame := seq.FirstFrame()
	if frame == nil {
		return nil
	}

	// Viewport capacity in source pixels: one pixel per cell column,
	// two per cell row, matching the half-block raster.
	viewW := maxInt(r.profile.Columns, 1)
	viewH := maxInt((r.profile.Rows-1)*2, 2)
	if frame.Width() <= viewW && frame.Height() <= viewH {
		return r.printFrame(frame)
	}

	rangeX := maxInt(frame.Width()-viewW, 0)
	rangeY := maxInt(frame.Height()-viewH, 0)
	sizing := r.cfg.Render
	sizing.Sizing.FitWidth = false
	sizing.Sizing.FitHeight = false

	loops := 1
	if r.cfg.Playback.LoopForever {
		loops = -1
	} else if r.cfg.Playback.Loops > 0 {
		loops = r.cfg.Playback.Loops
	}

	start := r.now()
	first := true
	lastRows := 0
	for pass := 0; loops < 0 || pass < loops; pass++ {
		x, y := 0, 0
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			if exceeded, _ := r.durationLeft(start); exceeded {
				return nil
			}

			window := cropRect(frame, image.Rect(x, y, minInt(x+viewW, frame.Width()), minInt(y+viewH, frame.Height())))
			rendered, err := r.backend.Render(window, &sizing)
			if err != nil {
				return err
			}

			if !first && lastRows > 0 {
				if err := r.write(fmt.Sprintf("\x1b[%dA", lastRows)); err != nil {
					return err
				}
			}
			if err := r.writeRendered(rendered); err != nil {
				return err
			}
			lastRows = rendered.RowsOccupied
			first = false

			nextX := clampInt(x+r.cfg.Scroll.DX, 0, rangeX)
			nextY := clampInt(y+r.cfg.Scroll.DY, 0, rangeY)
			if nextX == x && nextY == y {
				break
			}
			x, y = nextX, nextY

			if r.cfg.Scroll.Interval > 0 {
				if err := r.sleep(ctx, r.cfg.Scroll.Interval); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// renderGrid tiles first frames into rows of fixed column count. Cell
// widths divide the terminal evenly after subtracting gap space.
func (r *Renderer) renderGrid(ctx context.Context, sequences []*FrameSequence) error {
	grid := r.cfg.Grid
	if r.backend.Protocol() != Unicode {
		return fmt.Errorf("%w: grid output requires the unicode backend", ErrUnsupportedCombination)
	}
	if grid.Columns < 1 {
		return fmt.Errorf("%w: grid requires at least one column", ErrUnsupportedCombination)
	}

	gap := strings.Repeat(" ", grid.Spacing)
	rowIndex := 0
	for offset := 0; offset < len(sequences); offset += grid.Columns {
		if grid.MaxRows > 0 && rowIndex >= grid.MaxRows {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		row := sequences[offset:minInt(offset+grid.Columns, len(sequences))]
		gapCells := grid.Spacing * (len(row) - 1)
		perColumn := maxInt((r.profile.Columns-gapCells)/maxInt(len(row), 1), 1)

		rendered := make([]*Rendered, 0, len(row))
		for _, seq := range row {
			frame := seq.FirstFrame()
			if frame == nil {
				return fmt.Errorf("%w: sequence %q has no frames", ErrInvalidFrame, seq.Source)
			}
			opts := r.cfg.Render
			if opts.Sizing.WidthCells == 0 || opts.Sizing.WidthCells > perColumn {
				opts.Sizing.WidthCells = perColumn
			}
			out, err := r.backend.Render(frame, &opts)
			if err != nil {
				return err
			}
			rendered = append(rendered, out)
		}

		maxLines := 0
		for _, out := range rendered {
			maxLines = maxInt(maxLines, len(out.Lines))
		}
		for line := 0; line < maxLines; line++ {
			var b strings.Builder
			for col, out := range rendered {
				if line < len(out.Lines) {
					b.WriteString(out.Lines[line])
				} else {
					b.WriteString("\x1b[0m")
					b.WriteString(strings.Repeat(" ", out.WidthCells))
				}
				if col+1 < len(rendered) {
					b.WriteString(gap)
				}
			}
			b.WriteByte('\n')
			if err := r.write(b.String()); err != nil {
				return err
			}
		}
		if err := r.write("\n"); err != nil {
			return err
		}

		rowIndex++
		moreRows := offset+grid.Columns < len(sequences) &&
			(grid.MaxRows == 0 || rowIndex < grid.MaxRows)
		if r.cfg.WaitBetweenRows > 0 && moreRows {
			if err := r.sleep(ctx, r.cfg.WaitBetweenRows); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Renderer) printFrame(frame *Frame) error {
	rendered, err := r.backend.Render(frame, &r.cfg.Render)
	if err != nil {
		return err
	}
	return r.writeRendered(rendered)
}

func (r *Renderer) writeRendered(rendered *Rendered) error {
	indent := r.indentFor(rendered)
	pad := ""
	if indent > 0 {
		pad = strings.Repeat(" ", indent)
	}
	for _, line := range rendered.Lines {
		if err := r.write(pad + line + "\n"); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) indentFor(rendered *Rendered) int {
	if !r.cfg.Center || r.cfg.Grid != nil {
		return 0
	}
	available := r.profile.Columns - rendered.WidthCells
	if available > 0 {
		return available / 2
	}
	return 0
}

// makeTitle expands the title format for one sequence; empty means no
// title line.
func (r *Renderer) makeTitle(index int, seq *FrameSequence) string {
	if r.cfg.Quiet {
		return ""
	}
	format := r.cfg.TitleFormat
	if format == "" {
		return fmt.Sprintf("# %d - %s", index+1, seq.Source)
	}

	width, height := 0, 0
	if frame := seq.FirstFrame(); frame != nil {
		width, height = frame.Width(), frame.Height()
	}

	var out strings.Builder
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			out.WriteByte(format[i])
			continue
		}
		i++
		if i >= len(format) {
			out.WriteByte('%')
			break
		}
		switch format[i] {
		case 'f':
			out.WriteString(seq.Source)
		case 'b':
			out.WriteString(filepath.Base(seq.Source))
		case 'w':
			fmt.Fprintf(&out, "%d", width)
		case 'h':
			fmt.Fprintf(&out, "%d", height)
		case 'n':
			fmt.Fprintf(&out, "%d", index+1)
		case '%':
			out.WriteByte('%')
		default:
			out.WriteByte('%')
			out.WriteByte(format[i])
		}
	}
	return out.String()
}

// acquireScreen hides the cursor and enters the alternate screen buffer
// as configured, returning a release that restores both in reverse
// order. Release is safe to call on partially acquired state.
func (r *Renderer) acquireScreen() (func(), error) {
	var restore []string
	if r.cfg.HideCursor {
		if err := r.write("\x1b[?25l"); err != nil {
			return nil, err
		}
		restore = append(restore, "\x1b[?25h")
	}
	if r.cfg.AltScreen {
		if err := r.write("\x1b[?1049h"); err != nil {
			// Undo the cursor hide before reporting failure.
			for i := len(restore) - 1; i >= 0; i-- {
				_ = r.write(restore[i])
			}
			return nil, err
		}
		restore = append(restore, "\x1b[?1049l")
	}
	return func() {
		for i := len(restore) - 1; i >= 0; i-- {
			_ = r.write(restore[i])
		}
	}, nil
}

func (r *Renderer) write(s string) error {
	if _, err := io.WriteString(r.out, s); err != nil {
		return ioError(err)
	}
	return nil
}

// LogProfile emits the detected terminal characteristics at info level,
// for verbose runs.
func (r *Renderer) LogProfile() {
	r.log.Info().
		Int("columns", r.profile.Columns).
		Int("rows", r.profile.Rows).
		Float64("cell_aspect", r.profile.CellAspectRatio()).
		Float64("width_stretch", r.profile.RecommendedWidthStretch()).
		Stringer("backend", r.backend.Protocol()).
		Stringer("multiplexer", r.profile.Mux).
		Bool("color_8bit", r.cfg.Render.Use8BitColor).
		Msg("terminal profile")
}

// sleepContext waits for d or context cancellation, whichever comes
// first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
