package repositories

import "context"

// Encoding tags understood by the transcription backend.
const (
	// EncodingLinear16 means headerless little-endian 16-bit mono PCM.
	// The streaming path must send exactly this: adding a WAV/RIFF
	// header here is a known source of backend misdetection.
	EncodingLinear16 = "LINEAR16"
	// EncodingWebmOpus is Opus in a WebM container, passed through to
	// the backend undecoded.
	EncodingWebmOpus = "WEBM_OPUS"
	EncodingOggOpus  = "OGG_OPUS"
	EncodingFlac     = "FLAC"
)

// TranscriptionRequest is the immutable unit handed to the transcription
// backend: audio bytes plus the descriptor the backend needs to decode
// them. Produced by the decode adapter, consumed once.
type TranscriptionRequest struct {
	Audio      []byte `json:"-"`
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
}

// SpeechToText abstracts the speech recognition backend.
type SpeechToText interface {
	// Transcribe converts audio to text. An empty string with a nil
	// error is the normal outcome for silence or noise; errors are
	// reserved for authentication and backend failures.
	Transcribe(ctx context.Context, req TranscriptionRequest) (string, error)
}
