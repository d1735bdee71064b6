package rimg

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// EnvSnapshot is a point-in-time copy of the environment variables the
// detector consults. Detection never reads the live process environment,
// so every rule stays unit-testable with synthetic snapshots.
type EnvSnapshot map[string]string

// SnapshotEnv captures the current process environment once.
func SnapshotEnv() EnvSnapshot {
	snap := make(EnvSnapshot)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			snap[kv[:i]] = kv[i+1:]
		}
	}
	return snap
}

func (e EnvSnapshot) get(key string) string { return e[key] }

func (e EnvSnapshot) has(key string) bool {
	_, ok := e[key]
	return ok
}

// TerminalProfile is the resolved view of the host terminal for one run:
// its size in cells, the preferred graphics protocol, and the multiplexer
// wrapping the session. Constructed once and read-only afterward.
type TerminalProfile struct {
	Columns int
	Rows    int

	// Pixel dimensions of the text area when the terminal reported them,
	// zero otherwise.
	WidthPixels  int
	HeightPixels int

	Preferred Protocol
	Mux       Multiplexer
}

// CellAspectRatio returns the width/height ratio of one character cell,
// or 0 when pixel dimensions are unavailable.
func (p TerminalProfile) CellAspectRatio() float64 {
	if p.WidthPixels == 0 || p.HeightPixels == 0 || p.Columns == 0 || p.Rows == 0 {
		return 0
	}
	cellW := float64(p.WidthPixels) / float64(p.Columns)
	cellH := float64(p.HeightPixels) / float64(p.Rows)
	return cellW / cellH
}

// RecommendedWidthStretch derives the horizontal stretch factor that
// compensates for non-square cells. Falls back to 2.0, the common case of
// cells twice as tall as wide. Reported ratios outside the plausible
// character-cell range (0.3, 0.7) are treated as a bogus pixel report.
func (p TerminalProfile) RecommendedWidthStretch() float64 {
	if ratio := p.CellAspectRatio(); ratio > 0.3 && ratio < 0.7 {
		return 1.0 / ratio
	}
	return 2.0
}

// DetectOptions tweak profile detection.
type DetectOptions struct {
	// FileSink indicates the caller redirected output to a file, which
	// bypasses the TTY requirement.
	FileSink bool
}

// DetectProfile inspects an environment snapshot and the TTY state of the
// output and produces a TerminalProfile. It is pure given its inputs apart
// from the live window-size queries: cell geometry falls back to 80x24 on
// failure, pixel geometry to zero (which keeps the default width stretch).
// A non-TTY output without a file sink yields ErrNotATTY.
func DetectProfile(env EnvSnapshot, isStdoutTTY bool, opts DetectOptions) (TerminalProfile, error) {
	if !isStdoutTTY && !opts.FileSink {
		return TerminalProfile{}, ErrNotATTY
	}

	profile := TerminalProfile{
		Preferred: DetectProtocol(env),
		Mux:       DetectMultiplexer(env),
	}
	profile.Columns, profile.Rows = currentTerminalSize()
	profile.WidthPixels, profile.HeightPixels = currentWindowPixels(int(os.Stdout.Fd()))
	return profile, nil
}

// DetectProtocol applies the backend preference rules in order, first
// match wins:
//
//  1. a Kitty window-id signal (or a kitty/ghostty TERM) prefers Kitty
//  2. a terminal-program identity matching iTerm2, VS Code, or WezTerm
//     prefers the OSC inline-image protocol
//  3. a terminal-type signal naming a Sixel-capable terminal prefers
//     Sixel, when compiled in
//  4. anything else falls back to Unicode block rendering
func DetectProtocol(env EnvSnapshot) Protocol {
	termName := strings.ToLower(env.get("TERM"))

	if env.get("KITTY_WINDOW_ID") != "" ||
		strings.Contains(termName, "kitty") ||
		strings.Contains(termName, "ghostty") {
		return Kitty
	}

	if env.get("ITERM_SESSION_ID") != "" {
		return ITerm2
	}
	switch env.get("TERM_PROGRAM") {
	case "iTerm.app", "vscode", "WezTerm":
		return ITerm2
	}
	if strings.Contains(strings.ToLower(env.get("LC_TERMINAL")), "iterm") {
		return ITerm2
	}

	if sixelCapable(env) && Registered(Sixel) {
		return Sixel
	}

	return Unicode
}

func sixelCapable(env EnvSnapshot) bool {
	termName := strings.ToLower(env.get("TERM"))
	switch {
	case strings.Contains(termName, "sixel"):
		return true
	case strings.Contains(termName, "mlterm"):
		return true
	case strings.Contains(termName, "foot"):
		return true
	case env.has("WT_SESSION") || env.has("WT_PROFILE_ID"):
		// Windows Terminal supports Sixel as of 1.22.
		return true
	}
	return false
}

// DetectMultiplexer checks the marker variables tmux and screen export.
func DetectMultiplexer(env EnvSnapshot) Multiplexer {
	if env.get("TMUX") != "" {
		return MuxTmux
	}
	if env.get("STY") != "" {
		return MuxScreen
	}
	return MuxNone
}

// IsStdoutTTY reports whether standard output is an interactive terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func currentTerminalSize() (cols, rows int) {
	cols, rows, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || cols <= 0 || rows <= 0 {
		return 80, 24
	}
	return cols, rows
}
