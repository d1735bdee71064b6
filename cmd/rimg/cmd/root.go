package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/apex/log"
	clihander "github.com/apex/log/handlers/cli"
	"github.com/blacktop/rimg"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var flags struct {
	protocol   string
	force      bool
	width      int
	height     int
	fitWidth   bool
	fitHeight  bool
	upscale    bool
	integer    bool
	stretch    float64
	antialias  bool
	pixelation string
	use8bit    bool
	compress   int

	background  string
	patternSize int

	autoCrop   bool
	cropBorder int

	grid    int
	spacing int
	rows    int

	scroll      bool
	scrollDX    int
	scrollDY    int
	scrollDelay time.Duration

	loops       int
	loopForever bool
	maxFrames   int
	frameOffset int
	maxDuration time.Duration
	delay       time.Duration

	center       bool
	hideCursor   bool
	altScreen    bool
	clearOnce    bool
	clearBetween bool
	waitImages   time.Duration
	waitRows     time.Duration
	title        string
	quiet        bool

	output  string
	threads int
	verbose bool
}

func init() {
	log.SetHandler(clihander.Default)

	f := rootCmd.Flags()
	f.StringVarP(&flags.protocol, "protocol", "p", "auto", "Backend protocol (auto, unicode, kitty, iterm2, sixel)")
	f.BoolVar(&flags.force, "force", false, "Error instead of falling back when the protocol cannot be used")
	f.IntVarP(&flags.width, "width", "W", 0, "Maximum width in cells")
	f.IntVarP(&flags.height, "height", "H", 0, "Maximum height in cells")
	f.BoolVar(&flags.fitWidth, "fit-width", false, "Fit to terminal width only")
	f.BoolVar(&flags.fitHeight, "fit-height", false, "Fit to terminal height only")
	f.BoolVar(&flags.upscale, "upscale", false, "Enlarge images smaller than the target")
	f.BoolVar(&flags.integer, "integer", false, "Restrict upscaling to integer factors")
	f.Float64Var(&flags.stretch, "stretch", 0, "Width stretch factor (0 = terminal recommendation)")
	f.BoolVar(&flags.antialias, "antialias", true, "Bilinear scaling instead of nearest neighbor")
	f.StringVar(&flags.pixelation, "pixelation", "quarter", "Unicode pixelation (half, quarter)")
	f.BoolVar(&flags.use8bit, "8bit", false, "Use 256-color SGR output")
	f.IntVar(&flags.compress, "compress", 0, "zlib level for kitty payloads (0 disables)")

	f.StringVarP(&flags.background, "background", "b", "auto", "Background for transparency (auto, none, or #rrggbb)")
	f.IntVar(&flags.patternSize, "pattern-size", 4, "Checkerboard square size in pixels")

	f.BoolVar(&flags.autoCrop, "auto-crop", false, "Trim uniform borders before rendering")
	f.IntVar(&flags.cropBorder, "crop-border", 0, "Trim a fixed border of N pixels")

	f.IntVarP(&flags.grid, "grid", "g", 0, "Arrange images in a grid with N columns")
	f.IntVar(&flags.spacing, "spacing", 2, "Grid inter-column spacing in cells")
	f.IntVar(&flags.rows, "rows", 0, "Maximum grid rows (0 = unlimited)")

	f.BoolVar(&flags.scroll, "scroll", false, "Pan oversized images through the viewport")
	f.IntVar(&flags.scrollDX, "scroll-dx", 1, "Horizontal scroll step in cells")
	f.IntVar(&flags.scrollDY, "scroll-dy", 0, "Vertical scroll step in cells")
	f.DurationVar(&flags.scrollDelay, "scroll-delay", 50*time.Millisecond, "Pause between scroll steps")

	f.IntVarP(&flags.loops, "loops", "l", 0, "Animation loop count (0 = once)")
	f.BoolVar(&flags.loopForever, "loop", false, "Loop animations until interrupted")
	f.IntVar(&flags.maxFrames, "max-frames", 0, "Limit animation frames per pass")
	f.IntVar(&flags.frameOffset, "frame-offset", 0, "Skip N frames before playback")
	f.DurationVar(&flags.maxDuration, "max-duration", 0, "Stop playback after this much time")
	f.DurationVar(&flags.delay, "delay", 0, "Override per-frame delay")

	f.BoolVar(&flags.center, "center", false, "Center output horizontally")
	f.BoolVar(&flags.hideCursor, "hide-cursor", true, "Hide the cursor while rendering")
	f.BoolVar(&flags.altScreen, "alt-screen", false, "Render in the alternate screen buffer")
	f.BoolVar(&flags.clearOnce, "clear", false, "Clear the screen before the first image")
	f.BoolVar(&flags.clearBetween, "clear-between", false, "Clear the screen between images")
	f.DurationVar(&flags.waitImages, "wait", 0, "Pause between images")
	f.DurationVar(&flags.waitRows, "wait-rows", 0, "Pause between grid rows")
	f.StringVarP(&flags.title, "title", "t", "", "Title format (%f %b %w %h %n %%)")
	f.BoolVarP(&flags.quiet, "quiet", "q", false, "Suppress title lines")

	f.StringVarP(&flags.output, "output", "o", "", "Write escape output to a file instead of stdout")
	f.IntVar(&flags.threads, "threads", 4, "Parallel image decode workers")
	f.BoolVarP(&flags.verbose, "verbose", "V", false, "Enable verbose logging")
}

var rootCmd = &cobra.Command{
	Use:   "rimg [flags] <image>...",
	Short: "Render images in your terminal",
	Long: `rimg renders raster images in the terminal over the best protocol the
emulator supports: kitty graphics, iTerm2 inline images, sixel, or
Unicode block glyphs as a universal fallback. Animated GIFs play in
place; multiple images can be tiled into a grid.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		if flags.verbose {
			log.SetLevel(log.DebugLevel)
		}
		applyConfigFile()
		return run(cmd.Context(), args)
	},
}

func run(ctx context.Context, inputs []string) error {
	profile, err := rimg.DetectProfile(rimg.SnapshotEnv(), rimg.IsStdoutTTY(), rimg.DetectOptions{
		FileSink: flags.output != "",
	})
	if err != nil {
		return err
	}
	rimg.EnablePassthrough(profile.Mux)

	out := os.Stdout
	if flags.output != "" {
		f, err := os.Create(flags.output)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	logger := zerolog.Nop()
	if flags.verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	cfg, err := buildConfig(profile)
	if err != nil {
		return err
	}

	renderer, err := rimg.NewRenderer(out, profile, cfg, logger)
	if err != nil {
		return err
	}
	if flags.verbose {
		renderer.LogProfile()
	}

	start := time.Now()
	sequences, err := rimg.DecodeAll(ctx, inputs, flags.threads, decodeImage)
	if err != nil {
		return err
	}
	if flags.verbose {
		total := 0
		for _, seq := range sequences {
			total += len(seq.Frames)
		}
		log.Debugf("loaded %d images (%d frames) in %s", len(sequences), total, time.Since(start).Round(time.Millisecond))
	}

	return renderer.Run(ctx, sequences)
}

func buildConfig(profile rimg.TerminalProfile) (rimg.RendererConfig, error) {
	protocol, err := rimg.ParseProtocol(flags.protocol)
	if err != nil {
		return rimg.RendererConfig{}, err
	}

	background, err := parseBackground(flags.background)
	if err != nil {
		return rimg.RendererConfig{}, err
	}

	pixelation := rimg.PixelationQuarter
	switch strings.ToLower(flags.pixelation) {
	case "quarter", "":
	case "half":
		pixelation = rimg.PixelationHalf
	default:
		return rimg.RendererConfig{}, fmt.Errorf("unknown pixelation mode %q", flags.pixelation)
	}

	cfg := rimg.RendererConfig{
		Protocol: protocol,
		Force:    flags.force,
		Render: rimg.RenderOptions{
			Sizing: rimg.Sizing{
				WidthCells:     flags.width,
				HeightCells:    flags.height,
				FitWidth:       flags.fitWidth,
				FitHeight:      flags.fitHeight,
				Upscale:        flags.upscale,
				UpscaleInteger: flags.integer,
				WidthStretch:   flags.stretch,
				Antialias:      flags.antialias,
			},
			Terminal:      profile,
			Background:    background,
			Pixelation:    pixelation,
			Use8BitColor:  flags.use8bit,
			CompressLevel: flags.compress,
		},
		Playback: rimg.PlaybackOptions{
			Loops:         flags.loops,
			LoopForever:   flags.loopForever,
			MaxFrames:     flags.maxFrames,
			FrameOffset:   flags.frameOffset,
			MaxDuration:   flags.maxDuration,
			DelayOverride: flags.delay,
		},
		Center:            flags.center,
		HideCursor:        flags.hideCursor && flags.output == "",
		AltScreen:         flags.altScreen,
		ClearOnce:         flags.clearOnce,
		ClearBetween:      flags.clearBetween,
		WaitBetweenImages: flags.waitImages,
		WaitBetweenRows:   flags.waitRows,
		TitleFormat:       flags.title,
		Quiet:             flags.quiet,
	}

	if flags.grid > 0 {
		cfg.Grid = &rimg.GridOptions{
			Columns: flags.grid,
			Spacing: flags.spacing,
			MaxRows: flags.rows,
		}
	}
	if flags.scroll {
		cfg.Scroll = &rimg.ScrollOptions{
			DX:       flags.scrollDX,
			DY:       flags.scrollDY,
			Interval: flags.scrollDelay,
		}
	}
	return cfg, nil
}

func parseBackground(spec string) (rimg.BackgroundStyle, error) {
	switch strings.ToLower(spec) {
	case "", "auto":
		return rimg.DefaultBackground(), nil
	case "none":
		return rimg.BackgroundStyle{Mode: rimg.BackgroundNone}, nil
	}

	var r, g, b uint8
	if _, err := fmt.Sscanf(spec, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return rimg.BackgroundStyle{}, fmt.Errorf("bad background %q: want auto, none, or #rrggbb", spec)
	}
	style := rimg.DefaultBackground()
	style.Mode = rimg.BackgroundSolid
	style.Color.R, style.Color.G, style.Color.B, style.Color.A = r, g, b, 255
	style.PatternSize = flags.patternSize
	return style, nil
}

// Execute runs the root command with signal-driven cancellation so
// long-running playback stops cleanly on Ctrl-C.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if ctx.Err() == nil {
			log.Error(err.Error())
		}
		stop()
		os.Exit(1)
	}
}
