/*
Package rimg renders decoded raster frames in terminal emulators over the
Kitty graphics protocol, iTerm2 inline images, Sixel, or Unicode
half/quarter blocks as a universal fallback.

The package detects terminal capabilities from an explicit environment
snapshot, selects a backend with safe fallback semantics, and lays frames
out as single images, animated playback, scrolling panes, or grids.
Multiplexers (tmux, GNU screen) are handled transparently via DCS
passthrough wrapping.

Basic usage:

	profile, err := rimg.DetectProfile(rimg.SnapshotEnv(), rimg.IsStdoutTTY(), rimg.DetectOptions{})
	if err != nil {
	    log.Fatal(err)
	}

	r, err := rimg.NewRenderer(os.Stdout, profile, rimg.RendererConfig{
	    Protocol: rimg.Auto,
	}, zerolog.Nop())
	if err != nil {
	    log.Fatal(err)
	}

	err = r.Run(ctx, sequences)

Capability detection is pure over the snapshot, so every rule can be
exercised with synthetic inputs:

	env := rimg.EnvSnapshot{"TERM": "xterm-kitty"}
	proto := rimg.DetectProtocol(env) // rimg.Kitty

Frame decoding is the caller's concern; DecodeAll schedules a
caller-supplied decoder over a bounded pool while preserving input
order. For TUI applications, Widget wraps a frame as a Bubble Tea model.
*/
package rimg
