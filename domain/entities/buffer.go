package entities

import (
	"fmt"
	"sync"
)

// DefaultMaxBufferBytes bounds a session buffer at roughly five minutes of
// 16kHz 16-bit mono PCM. The transport orders frames, so the buffer is a
// plain accumulator; the cap is the only guard against a client that
// streams forever without ever requesting processing.
const DefaultMaxBufferBytes = 5 * 1024 * 1024

// AudioBuffer accumulates binary audio chunks for one streaming session
// into a single contiguous byte sequence. Chunks are appended in arrival
// order and consumed all at once by Take.
type AudioBuffer struct {
	max  int
	data []byte
	mu   sync.Mutex
}

// NewAudioBuffer creates an empty buffer capped at maxBytes. A
// non-positive maxBytes falls back to DefaultMaxBufferBytes.
func NewAudioBuffer(maxBytes int) *AudioBuffer {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBufferBytes
	}
	return &AudioBuffer{
		max:  maxBytes,
		data: make([]byte, 0, 16*1024),
	}
}

// Append adds a chunk at the end of the buffer. It fails when the chunk
// would push the buffer past its cap; the buffered audio is kept so the
// session can still process what it has.
func (b *AudioBuffer) Append(chunk []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.data)+len(chunk) > b.max {
		return fmt.Errorf("audio buffer full: %d bytes buffered, cap %d", len(b.data), b.max)
	}
	b.data = append(b.data, chunk...)
	return nil
}

// Take returns the buffered bytes and resets the buffer to empty in one
// step, so chunks arriving concurrently start a fresh accumulation for
// the next cycle.
func (b *AudioBuffer) Take() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	taken := b.data
	b.data = make([]byte, 0, 16*1024)
	return taken
}

// Len returns the number of buffered bytes.
func (b *AudioBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}
