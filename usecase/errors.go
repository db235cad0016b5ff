package usecase

import "errors"

// ErrNoAudio is returned when a processing cycle is triggered on an
// empty buffer. The session stays usable.
var ErrNoAudio = errors.New("no audio data buffered")

// TranscriptionError wraps any transcription backend failure, including
// the cached authentication-setup failure. It is fatal to the processing
// cycle: the client gets no transcript at all.
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string {
	return "transcription backend error: " + e.Err.Error()
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}

// DecodeError wraps a local audio normalization failure that survived
// the fallback decode path. Fatal to the cycle, not to the session.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "audio decode error: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
