package websocket

import (
	"errors"

	"github.com/siseonlab/voicecoach/domain/entities"
	"github.com/siseonlab/voicecoach/usecase"
)

// Client -> server control commands.
const (
	// CommandAudio updates session metadata (sample rate, format).
	CommandAudio = "audio"
	// CommandProcess triggers one processing cycle over the buffered
	// audio.
	CommandProcess = "process"
)

// ControlMessage is the JSON text frame a client sends; binary frames
// carry raw audio and have no envelope.
type ControlMessage struct {
	Command    string `json:"command"`
	SampleRate int    `json:"sampleRate,omitempty"`
	Format     string `json:"format,omitempty"`
}

// ResultMessage is the server -> client response for one completed
// processing cycle.
type ResultMessage struct {
	Type       string           `json:"type"`
	Message    string           `json:"message"`
	Action     *entities.Action `json:"action"`
	Confidence float64          `json:"confidence"`
}

// ErrorMessage is the server -> client response when a cycle fails. The
// session itself stays usable.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// User-facing error strings, kept stable for the clients that match on
// them.
const (
	ErrMsgNoAudio       = "오디오 데이터가 없습니다."
	ErrMsgDecode        = "오디오 처리 중 오류가 발생했습니다."
	ErrMsgTranscription = "음성 인식 중 오류가 발생했습니다."
	ErrMsgBufferFull    = "오디오 버퍼가 가득 찼습니다."
	ErrMsgInternal      = "서버 처리 중 오류가 발생했습니다."
)

// NewResultMessage wraps a recognition result for delivery.
func NewResultMessage(result entities.RecognitionResult) ResultMessage {
	return ResultMessage{
		Type:       "result",
		Message:    result.Transcript,
		Action:     result.Action,
		Confidence: result.Confidence,
	}
}

// NewErrorMessage wraps a user-facing error string for delivery.
func NewErrorMessage(message string) ErrorMessage {
	return ErrorMessage{Type: "error", Message: message}
}

// ErrorMessageFor maps a pipeline error onto its user-facing message.
func ErrorMessageFor(err error) ErrorMessage {
	var transcriptionErr *usecase.TranscriptionError
	var decodeErr *usecase.DecodeError

	switch {
	case errors.Is(err, usecase.ErrNoAudio):
		return NewErrorMessage(ErrMsgNoAudio)
	case errors.As(err, &transcriptionErr):
		return NewErrorMessage(ErrMsgTranscription)
	case errors.As(err, &decodeErr):
		return NewErrorMessage(ErrMsgDecode)
	default:
		return NewErrorMessage(ErrMsgInternal)
	}
}
