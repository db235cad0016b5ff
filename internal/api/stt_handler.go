package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/siseonlab/voicecoach/domain/entities"
	"github.com/siseonlab/voicecoach/domain/repositories"
	"github.com/siseonlab/voicecoach/internal/audio"
	"github.com/siseonlab/voicecoach/internal/wake"
	"github.com/siseonlab/voicecoach/usecase"
)

// DefaultMaxUploadBytes matches the synchronous recognition limit of the
// transcription backend; larger uploads are rejected before any call.
const DefaultMaxUploadBytes = 10 * 1024 * 1024

const nluTimeout = 10 * time.Second

// User-facing error strings for the single-shot API.
const (
	errMsgNoFile        = "오디오 파일이 없습니다."
	errMsgFileTooLarge  = "오디오 파일이 너무 큽니다. (최대 10MB)"
	errMsgInvalidMode   = "유효하지 않은 mode 입니다. 허용: form, listen, command, full_command, stt"
	errMsgNoSpeech      = "음성을 감지할 수 없습니다."
	errMsgTranscription = "음성 인식 중 오류가 발생했습니다."
	errMsgInternal      = "서버 오류가 발생했습니다."
)

var allowedModes = map[string]bool{
	"form":         true,
	"listen":       true,
	"command":      true,
	"full_command": true,
	"stt":          true,
}

// STTHandler serves the single-shot recognition API: one uploaded audio
// file in, one mode-specific recognition out. It shares the recognition
// pipeline with the streaming transport.
type STTHandler struct {
	recognition    *usecase.RecognitionService
	nlu            repositories.LanguageUnderstanding
	decoder        *audio.Decoder
	maxUploadBytes int64
	logger         *zap.Logger
}

func NewSTTHandler(
	recognition *usecase.RecognitionService,
	nlu repositories.LanguageUnderstanding,
	decoder *audio.Decoder,
	maxUploadBytes int64,
	logger *zap.Logger,
) *STTHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &STTHandler{
		recognition:    recognition,
		nlu:            nlu,
		decoder:        decoder,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Handle processes POST /api/v1/stt/:mode. Validation happens before the
// audio ever reaches a backend: missing file, size ceiling, then mode.
func (h *STTHandler) Handle(c echo.Context) error {
	mode := c.Param("mode")

	// Recommended field name first, then the legacy one.
	file, err := c.FormFile("userinfo_stt")
	if err != nil {
		file, err = c.FormFile("audio")
	}
	if err != nil || file == nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: errMsgNoFile})
	}

	if file.Size > h.maxUploadBytes {
		h.recognition.Metrics().UploadsRejected.WithLabelValues("too_large").Inc()
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: errMsgFileTooLarge})
	}

	if !allowedModes[mode] {
		h.recognition.Metrics().UploadsRejected.WithLabelValues("invalid_mode").Inc()
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: errMsgInvalidMode})
	}

	h.recognition.Metrics().APIRequests.WithLabelValues(mode).Inc()

	src, err := file.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded audio", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: errMsgInternal})
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		h.logger.Error("Failed to read uploaded audio", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: errMsgInternal})
	}

	// Browser uploads arrive as Opus in a WebM container; the backend
	// decodes those directly, so the bytes pass through untouched.
	req := h.decoder.PassthroughContainer(data)

	ctx := c.Request().Context()
	transcript, err := h.recognition.Transcribe(ctx, req)
	if err != nil {
		h.logger.Error("Single-shot transcription failed",
			zap.String("mode", mode),
			zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: errMsgTranscription})
	}

	// Silence or noise. Reported in-band with a 200, the way existing
	// clients expect it.
	if transcript == "" {
		return c.JSON(http.StatusOK, ErrorResponse{Error: errMsgNoSpeech})
	}

	result := echo.Map{
		"mode":    mode,
		"stt_raw": transcript,
	}

	logged := entities.RecognitionResult{Transcript: transcript}

	switch mode {
	case "listen":
		result["wake_detected"] = wake.Detect(transcript)
		result["message"] = transcript

	case "form":
		field := c.FormValue("field")
		if field == "" {
			result["normalized"] = nil
			result["raw"] = transcript
			break
		}
		value, err := h.normalize(ctx, transcript, field)
		if err != nil {
			h.logger.Warn("Form normalization failed",
				zap.String("field", field),
				zap.Error(err))
			result["normalized"] = nil
			result["raw"] = transcript
			break
		}
		result["normalized"] = value.Normalized
		result["raw"] = value.Raw

	case "command":
		classification := h.parseNavCommand(ctx, transcript)
		result["action"] = classification.Action
		result["raw"] = transcript
		result["message"] = transcript
		logged.Action = classification.Action
		logged.Confidence = classification.Confidence

	case "full_command":
		classification := h.recognition.Classify(ctx, transcript)
		result["action"] = classification.Action
		result["raw"] = transcript
		logged.Action = classification.Action
		logged.Confidence = classification.Confidence

	default: // stt
		result["message"] = transcript
	}

	h.recognition.LogRecognition("", mode, logged)

	return c.JSON(http.StatusOK, result)
}

// parseNavCommand classifies against the navigation vocabulary. Failures
// degrade to a nil action; the transcript is the dominant value.
func (h *STTHandler) parseNavCommand(ctx context.Context, transcript string) entities.Classification {
	ctx, cancel := context.WithTimeout(ctx, nluTimeout)
	defer cancel()

	classification, err := h.nlu.ParseNavCommand(ctx, transcript)
	if err != nil {
		h.logger.Warn("Navigation command parsing failed",
			zap.String("transcript", transcript),
			zap.Error(err))
		return entities.Classification{}
	}
	return classification
}

func (h *STTHandler) normalize(ctx context.Context, transcript, field string) (entities.FormValue, error) {
	ctx, cancel := context.WithTimeout(ctx, nluTimeout)
	defer cancel()
	return h.nlu.Normalize(ctx, transcript, field)
}
