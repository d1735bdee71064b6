package rimg

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkPayload(t *testing.T) {
	tests := []struct {
		name       string
		payloadLen int
		chunkSize  int
		wantChunks int
	}{
		{"single chunk", 100, 4096, 1},
		{"exact fit", 3072, 4096, 1},
		{"two chunks", 3073, 4096, 2},
		{"many chunks", 10000, 1024, 14},
		{"one byte", 1, 4096, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := bytes.Repeat([]byte{0xAB}, tt.payloadLen)
			chunks := ChunkPayload(payload, tt.chunkSize)
			require.Len(t, chunks, tt.wantChunks)

			terminal := 0
			var encoded strings.Builder
			for i, chunk := range chunks {
				assert.LessOrEqual(t, len(chunk.Data), tt.chunkSize)
				if i < len(chunks)-1 {
					assert.Len(t, chunk.Data, tt.chunkSize)
				}
				if chunk.Last {
					terminal++
				}
				encoded.WriteString(chunk.Data)
			}
			assert.Equal(t, 1, terminal, "exactly one terminal chunk")
			assert.True(t, chunks[len(chunks)-1].Last)

			decoded, err := base64.StdEncoding.DecodeString(encoded.String())
			require.NoError(t, err)
			assert.Equal(t, payload, decoded)
		})
	}
}

func TestChunkPayloadEmpty(t *testing.T) {
	chunks := ChunkPayload(nil, 4096)
	require.Len(t, chunks, 1)
	assert.Empty(t, chunks[0].Data)
	assert.True(t, chunks[0].Last)
}

func TestChunkPayloadEachChunkValidBase64(t *testing.T) {
	payload := bytes.Repeat([]byte{0x01, 0x02, 0x03}, 1000)
	chunks := ChunkPayload(payload, 256)
	for i, chunk := range chunks {
		_, err := base64.StdEncoding.DecodeString(chunk.Data)
		assert.NoError(t, err, "chunk %d", i)
	}
}

func TestSanitizeChunkSize(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-1, 4},
		{0, 4},
		{3, 4},
		{4, 4},
		{5, 8},
		{4095, 4096},
		{4096, 4096},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeChunkSize(tt.in), "size %d", tt.in)
	}
}
