package usecase

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/siseonlab/voicecoach/domain/entities"
	"github.com/siseonlab/voicecoach/domain/repositories"
	"github.com/siseonlab/voicecoach/internal/audio"
	"github.com/siseonlab/voicecoach/internal/metrics"
)

const (
	defaultTranscribeTimeout = 30 * time.Second
	defaultClassifyTimeout   = 10 * time.Second
	logTimeout               = 5 * time.Second
)

// RecognitionService orchestrates one recognition:
// decode -> transcribe -> classify. It is shared by the streaming
// sessions and the single-shot API; all collaborators are injected at
// construction and safe for concurrent use.
type RecognitionService struct {
	stt        repositories.SpeechToText
	classifier repositories.CommandClassifier
	decoder    *audio.Decoder
	logRepo    repositories.RecognitionLogRepository // nil disables logging
	metrics    *metrics.Metrics
	logger     *zap.Logger

	transcribeTimeout time.Duration
	classifyTimeout   time.Duration
}

// NewRecognitionService wires the pipeline. logRepo may be nil; zero
// timeouts fall back to defaults.
func NewRecognitionService(
	stt repositories.SpeechToText,
	classifier repositories.CommandClassifier,
	decoder *audio.Decoder,
	logRepo repositories.RecognitionLogRepository,
	m *metrics.Metrics,
	logger *zap.Logger,
	transcribeTimeout time.Duration,
	classifyTimeout time.Duration,
) *RecognitionService {
	if transcribeTimeout <= 0 {
		transcribeTimeout = defaultTranscribeTimeout
	}
	if classifyTimeout <= 0 {
		classifyTimeout = defaultClassifyTimeout
	}
	return &RecognitionService{
		stt:               stt,
		classifier:        classifier,
		decoder:           decoder,
		logRepo:           logRepo,
		metrics:           m,
		logger:            logger,
		transcribeTimeout: transcribeTimeout,
		classifyTimeout:   classifyTimeout,
	}
}

// ProcessStream runs one full processing cycle over audio taken from a
// streaming session. The caller has already taken exclusive ownership of
// pcm; the session buffer is independent by the time this runs.
//
// Behaviors, in order:
//   - nothing buffered: ErrNoAudio
//   - below the minimum-duration threshold: empty result, no backend call
//   - transcription failure: *TranscriptionError, cycle fatal
//   - classification failure: degraded to a nil action, never fatal
func (s *RecognitionService) ProcessStream(ctx context.Context, sessionID string, pcm []byte, sampleRate int, format entities.AudioFormat) (entities.RecognitionResult, error) {
	s.metrics.ProcessCycles.Inc()

	if len(pcm) == 0 {
		s.metrics.EmptyBufferErrors.Inc()
		return entities.RecognitionResult{}, ErrNoAudio
	}

	if len(pcm) < entities.MinPCMBytes(sampleRate) {
		s.metrics.ShortAudioSkips.Inc()
		s.logger.Info("audio below minimum duration, skipping backends",
			zap.String("sessionID", sessionID),
			zap.Int("bytes", len(pcm)))
		return entities.RecognitionResult{}, nil
	}

	req, err := s.buildRequest(ctx, pcm, sampleRate, format)
	if err != nil {
		return entities.RecognitionResult{}, &DecodeError{Err: err}
	}

	transcript, err := s.Transcribe(ctx, req)
	if err != nil {
		return entities.RecognitionResult{}, err
	}

	result := entities.RecognitionResult{Transcript: transcript}
	classification := s.Classify(ctx, transcript)
	result.Action = classification.Action
	result.Confidence = classification.Confidence

	s.logger.Info("processing cycle completed",
		zap.String("sessionID", sessionID),
		zap.String("transcript", transcript),
		zap.Any("action", result.Action),
		zap.Float64("confidence", result.Confidence))

	s.LogRecognition(sessionID, "stream", result)
	return result, nil
}

// buildRequest normalizes session audio into a transcription request.
// The two dominant formats pass through untouched; anything else is
// materialized to WAV locally, fallback decoder included.
func (s *RecognitionService) buildRequest(ctx context.Context, pcm []byte, sampleRate int, format entities.AudioFormat) (repositories.TranscriptionRequest, error) {
	switch format {
	case entities.FormatPCM16, "":
		return s.decoder.PassthroughPCM(pcm, sampleRate), nil
	case entities.FormatWebmOpus:
		return s.decoder.PassthroughContainer(pcm), nil
	default:
		wav, err := s.decoder.MaterializeWAV(ctx, pcm, sampleRate)
		if err != nil {
			return repositories.TranscriptionRequest{}, err
		}
		return repositories.TranscriptionRequest{
			Audio:      wav,
			SampleRate: sampleRate,
			Encoding:   repositories.EncodingLinear16,
		}, nil
	}
}

// Transcribe calls the speech backend with the service timeout. Errors
// are wrapped in *TranscriptionError; an empty transcript is a normal
// outcome, not a failure.
func (s *RecognitionService) Transcribe(ctx context.Context, req repositories.TranscriptionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.transcribeTimeout)
	defer cancel()

	s.metrics.TranscriptionRequests.Inc()
	start := time.Now()
	transcript, err := s.stt.Transcribe(ctx, req)
	s.metrics.TranscriptionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.TranscriptionFailures.Inc()
		return "", &TranscriptionError{Err: err}
	}
	return transcript, nil
}

// Classify maps a transcript to an exercise-control action. Backend
// failure degrades to a nil action with zero confidence: the transcript
// is the dominant value and must survive a lost enrichment.
func (s *RecognitionService) Classify(ctx context.Context, transcript string) entities.Classification {
	if strings.TrimSpace(transcript) == "" {
		return entities.Classification{}
	}

	ctx, cancel := context.WithTimeout(ctx, s.classifyTimeout)
	defer cancel()

	s.metrics.ClassificationRequests.Inc()
	classification, err := s.classifier.Classify(ctx, transcript)
	if err != nil {
		s.metrics.ClassificationFailures.Inc()
		s.logger.Warn("classification failed, degrading to nil action",
			zap.String("transcript", transcript),
			zap.Error(err))
		return entities.Classification{}
	}
	return classification
}

// LogRecognition persists a completed recognition in the background.
// Best-effort: a missing repository or a failed insert is logged and
// otherwise ignored.
func (s *RecognitionService) LogRecognition(sessionID, mode string, result entities.RecognitionResult) {
	if s.logRepo == nil {
		return
	}

	entry := &entities.RecognitionLog{
		SessionID:  sessionID,
		Mode:       mode,
		Transcript: result.Transcript,
		Action:     result.Action,
		Confidence: result.Confidence,
		CreatedAt:  time.Now(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), logTimeout)
		defer cancel()
		if err := s.logRepo.Insert(ctx, entry); err != nil {
			s.logger.Warn("failed to persist recognition log",
				zap.String("sessionID", sessionID),
				zap.Error(err))
		}
	}()
}

// Metrics exposes the pipeline metrics for transport-level counters.
func (s *RecognitionService) Metrics() *metrics.Metrics {
	return s.metrics
}
