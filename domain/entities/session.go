package entities

import (
	"strings"

	"github.com/google/uuid"
)

// AudioFormat tags the shape of the audio a session is streaming.
type AudioFormat string

const (
	// FormatPCM16 is headerless little-endian 16-bit mono PCM, the
	// streaming default.
	FormatPCM16 AudioFormat = "pcm16"
	// FormatWebmOpus is an Opus stream in a WebM container, as produced
	// by browser MediaRecorder uploads.
	FormatWebmOpus AudioFormat = "webm_opus"
)

// DefaultSampleRate is the sample rate assumed until the client sends
// metadata.
const DefaultSampleRate = 16000

// MinPCMBytes is the smallest payload worth transcribing: ~100ms of
// 16-bit mono PCM at the given sample rate. Anything shorter is treated
// as a stray click and answered with an empty result instead of burning
// a backend call.
func MinPCMBytes(sampleRate int) int {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return sampleRate / 10 * 2
}

// StreamSession is the server-side state bound to one streaming
// connection. It owns its audio buffer exclusively; it is created on
// connect, fed by audio frames and metadata messages, consumed by
// processing requests, and discarded on disconnect. Nothing here is
// persisted.
type StreamSession struct {
	ID         string
	SampleRate int
	Format     AudioFormat

	buffer *AudioBuffer
}

// NewStreamSession creates a session with an empty buffer and default
// audio configuration.
func NewStreamSession(maxBufferBytes int) *StreamSession {
	return &StreamSession{
		ID:         uuid.NewString(),
		SampleRate: DefaultSampleRate,
		Format:     FormatPCM16,
		buffer:     NewAudioBuffer(maxBufferBytes),
	}
}

// SetMetadata updates the session audio configuration. It may be called
// any number of times; the last write wins. The buffer is untouched.
func (s *StreamSession) SetMetadata(sampleRate int, format string) {
	if sampleRate > 0 {
		s.SampleRate = sampleRate
	}
	if f := strings.TrimSpace(format); f != "" {
		s.Format = AudioFormat(f)
	}
}

// AppendAudio adds a chunk to the session buffer in arrival order.
func (s *StreamSession) AppendAudio(chunk []byte) error {
	return s.buffer.Append(chunk)
}

// TakeAudio removes and returns everything buffered so far. The buffer is
// cleared exactly once per processing cycle, success or failure, so stale
// audio is never reprocessed.
func (s *StreamSession) TakeAudio() []byte {
	return s.buffer.Take()
}

// BufferedBytes returns the current buffer size.
func (s *StreamSession) BufferedBytes() int {
	return s.buffer.Len()
}

// MinProcessBytes is the minimum-duration threshold for this session's
// configured sample rate.
func (s *StreamSession) MinProcessBytes() int {
	return MinPCMBytes(s.SampleRate)
}
