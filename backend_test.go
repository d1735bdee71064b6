package rimg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProtocol(t *testing.T) {
	tests := []struct {
		in      string
		want    Protocol
		wantErr bool
	}{
		{"auto", Auto, false},
		{"unicode", Unicode, false},
		{"kitty", Kitty, false},
		{"iterm2", ITerm2, false},
		{"sixel", Sixel, false},
		{"KITTY", Kitty, false},
		{"block", Unicode, false},
		{"framebuffer", Auto, true},
		{"", Auto, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProtocol(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectBackendAuto(t *testing.T) {
	profile := TerminalProfile{Columns: 80, Rows: 24, Preferred: Kitty}
	sel, err := SelectBackend(Auto, false, profile, Operation{})
	require.NoError(t, err)
	assert.Equal(t, Kitty, sel.Backend.Protocol())
	assert.Empty(t, sel.Advisory)
}

func TestSelectBackendGridFallsBackToUnicode(t *testing.T) {
	profile := TerminalProfile{Columns: 80, Rows: 24, Preferred: Kitty}

	sel, err := SelectBackend(Kitty, false, profile, Operation{Grid: true})
	require.NoError(t, err)
	assert.Equal(t, Unicode, sel.Backend.Protocol())
	assert.NotEmpty(t, sel.Advisory)
}

func TestSelectBackendAutoNeverErrsOnGrid(t *testing.T) {
	// Auto resolving to a graphics protocol still falls back silently
	// for unicode-only operations, even when the caller set force.
	profile := TerminalProfile{Columns: 80, Rows: 24, Preferred: ITerm2}
	sel, err := SelectBackend(Auto, true, profile, Operation{Scroll: true})
	require.NoError(t, err)
	assert.Equal(t, Unicode, sel.Backend.Protocol())
}

func TestSelectBackendForcedIncompatible(t *testing.T) {
	profile := TerminalProfile{Columns: 80, Rows: 24, Preferred: Unicode}

	_, err := SelectBackend(Kitty, true, profile, Operation{Grid: true})
	require.ErrorIs(t, err, ErrUnsupportedCombination)

	_, err = SelectBackend(Sixel, true, profile, Operation{Scroll: true})
	require.ErrorIs(t, err, ErrUnsupportedCombination)
}

func TestSelectBackendUnicodeAlwaysWorks(t *testing.T) {
	profile := TerminalProfile{Columns: 80, Rows: 24, Preferred: Unicode}
	for _, op := range []Operation{{}, {Grid: true}, {Scroll: true}} {
		sel, err := SelectBackend(Unicode, true, profile, op)
		require.NoError(t, err)
		assert.Equal(t, Unicode, sel.Backend.Protocol())
	}
}

func TestProtocolString(t *testing.T) {
	assert.Equal(t, "auto", Auto.String())
	assert.Equal(t, "unicode", Unicode.String())
	assert.Equal(t, "kitty", Kitty.String())
	assert.Equal(t, "iterm2", ITerm2.String())
	assert.Equal(t, "sixel", Sixel.String())
}

func TestRenderedBytes(t *testing.T) {
	r := &Rendered{Lines: []string{"a", "b"}}
	assert.Equal(t, []byte("a\nb\n"), r.Bytes())
}
