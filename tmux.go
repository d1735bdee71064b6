package rimg

import (
	"os/exec"
	"strings"
	"sync"
)

// Multiplexer identifies the terminal multiplexer wrapping the session.
type Multiplexer int

const (
	MuxNone Multiplexer = iota
	MuxTmux
	MuxScreen
)

func (m Multiplexer) String() string {
	switch m {
	case MuxTmux:
		return "tmux"
	case MuxScreen:
		return "screen"
	default:
		return "none"
	}
}

const dcsPassthroughStart = "\x1bPtmux;"

// WrapPassthrough wraps an escape sequence in a DCS passthrough envelope
// so it survives a terminal multiplexer. For MuxNone the sequence is
// returned unchanged. Every embedded ESC is doubled per the passthrough
// escaping rule; screen accepts the same envelope as tmux.
//
// Wrapping is idempotent at the caller boundary: a sequence already
// carrying the envelope is returned as-is rather than double-wrapped.
func WrapPassthrough(seq string, mux Multiplexer) string {
	if mux == MuxNone {
		return seq
	}
	if strings.HasPrefix(seq, dcsPassthroughStart) {
		return seq
	}
	var b strings.Builder
	b.Grow(len(seq)*2 + len(dcsPassthroughStart) + 2)
	b.WriteString(dcsPassthroughStart)
	for i := 0; i < len(seq); i++ {
		if seq[i] == 0x1b {
			b.WriteByte(0x1b)
		}
		b.WriteByte(seq[i])
	}
	b.WriteString("\x1b\\")
	return b.String()
}

// UnwrapPassthrough reverses WrapPassthrough. It exists so tests can check
// the envelope round-trips; real terminals do the unwrapping themselves.
func UnwrapPassthrough(seq string) string {
	inner, ok := strings.CutPrefix(seq, dcsPassthroughStart)
	if !ok {
		return seq
	}
	inner = strings.TrimSuffix(inner, "\x1b\\")
	return strings.ReplaceAll(inner, "\x1b\x1b", "\x1b")
}

var (
	passthroughOnce    sync.Once
	passthroughEnabled bool

	// enablePassthroughCmd runs the multiplexer configuration command.
	// Swapped out in tests so no shell command executes there.
	enablePassthroughCmd = func() error {
		// -p scopes the option to the current pane.
		cmd := exec.Command("tmux", "set", "-p", "allow-passthrough", "on")
		cmd.Stdin = nil
		cmd.Stdout = nil
		cmd.Stderr = nil
		return cmd.Run()
	}
)

// EnablePassthrough makes a one-time, best-effort attempt to turn on the
// multiplexer's passthrough allowance (tmux >= 3.3). Older tmux versions
// lack the option; failure never affects rendering and is reported only
// through the return value.
func EnablePassthrough(mux Multiplexer) bool {
	if mux != MuxTmux {
		return false
	}
	passthroughOnce.Do(func() {
		passthroughEnabled = enablePassthroughCmd() == nil
	})
	return passthroughEnabled
}
