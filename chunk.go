package rimg

import "encoding/base64"

// Chunk is one printable slice of a base64 payload. Last marks the final
// chunk of the transmission.
type Chunk struct {
	Data string
	Last bool
}

// ChunkPayload base64-encodes data once and slices the encoded text into
// chunks of at most maxChunkSize bytes. The chunk size is rounded up to a
// multiple of 4 so every slice stays valid base64 on its own. An empty
// payload yields a single empty terminal chunk so protocol framing always
// has something to terminate.
func ChunkPayload(data []byte, maxChunkSize int) []Chunk {
	size := sanitizeChunkSize(maxChunkSize)
	encoded := base64.StdEncoding.EncodeToString(data)

	if len(encoded) == 0 {
		return []Chunk{{Data: "", Last: true}}
	}

	count := (len(encoded) + size - 1) / size
	chunks := make([]Chunk, 0, count)
	for off := 0; off < len(encoded); off += size {
		end := off + size
		if end > len(encoded) {
			end = len(encoded)
		}
		chunks = append(chunks, Chunk{Data: encoded[off:end], Last: end == len(encoded)})
	}
	return chunks
}

// sanitizeChunkSize rounds the requested size up to a multiple of 4, with
// a floor of 4.
func sanitizeChunkSize(size int) int {
	if size < 4 {
		return 4
	}
	if rem := size % 4; rem != 0 {
		return size + (4 - rem)
	}
	return size
}
