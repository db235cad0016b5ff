package stt

import (
	"context"
	"fmt"
	"strings"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/siseonlab/voicecoach/domain/repositories"
)

// ErrAuthSetup is returned by every Transcribe call once client
// initialization has failed; callers fail fast instead of re-running
// credential discovery per request.
var ErrAuthSetup = fmt.Errorf("speech recognition authentication setup failed")

// GoogleSpeechToText implements repositories.SpeechToText against Google
// Cloud Speech-to-Text. The underlying client is created lazily, exactly
// once, and shared by all sessions; it is safe for concurrent use.
//
// Credential resolution order:
//  1. default discovery (GOOGLE_APPLICATION_CREDENTIALS et al.)
//  2. a local service-account file at credentialsFile
//
// An initialization failure is cached so later calls fail fast.
type GoogleSpeechToText struct {
	logger          *zap.Logger
	language        string
	credentialsFile string

	once    sync.Once
	client  *speech.Client
	initErr error
}

// NewGoogleSpeechToText creates the adapter. No credentials are touched
// until the first Transcribe call.
func NewGoogleSpeechToText(logger *zap.Logger, language, credentialsFile string) *GoogleSpeechToText {
	if language == "" {
		language = "ko-KR"
	}
	if credentialsFile == "" {
		credentialsFile = "google-credentials.json"
	}
	return &GoogleSpeechToText{
		logger:          logger,
		language:        language,
		credentialsFile: credentialsFile,
	}
}

func (g *GoogleSpeechToText) getClient(ctx context.Context) (*speech.Client, error) {
	g.once.Do(func() {
		client, err := speech.NewClient(ctx)
		if err == nil {
			g.logger.Info("speech client initialized with default credentials")
			g.client = client
			return
		}

		// Default discovery failed; retry with the local file.
		client, fileErr := speech.NewClient(ctx, option.WithCredentialsFile(g.credentialsFile))
		if fileErr != nil {
			g.logger.Error("speech client initialization failed",
				zap.NamedError("defaultCredentialsError", err),
				zap.NamedError("credentialsFileError", fileErr))
			g.initErr = fmt.Errorf("%w: %v", ErrAuthSetup, err)
			return
		}

		g.logger.Warn("speech client initialized with local credentials file",
			zap.String("file", g.credentialsFile))
		g.client = client
	})
	return g.client, g.initErr
}

// Transcribe sends one recognition request and returns the concatenated
// best-alternative transcript. An empty backend result means silence or
// noise and returns "" with no error.
func (g *GoogleSpeechToText) Transcribe(ctx context.Context, req repositories.TranscriptionRequest) (string, error) {
	client, err := g.getClient(ctx)
	if err != nil {
		return "", err
	}

	encoding, err := audioEncoding(req.Encoding)
	if err != nil {
		return "", err
	}

	resp, err := client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   encoding,
			SampleRateHertz:            int32(req.SampleRate),
			LanguageCode:               g.language,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: req.Audio},
		},
	})
	if err != nil {
		return "", fmt.Errorf("speech recognition request failed: %w", err)
	}

	if len(resp.Results) == 0 {
		g.logger.Info("no speech detected", zap.Int("audioBytes", len(req.Audio)))
		return "", nil
	}

	var transcript strings.Builder
	for _, result := range resp.Results {
		if len(result.Alternatives) > 0 {
			transcript.WriteString(result.Alternatives[0].Transcript)
		}
	}

	recognized := strings.TrimSpace(transcript.String())
	g.logger.Info("transcription completed",
		zap.Int("audioBytes", len(req.Audio)),
		zap.Int("transcriptLength", len(recognized)))
	return recognized, nil
}

// audioEncoding converts an encoding tag to the Speech API enum.
func audioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch encoding {
	case repositories.EncodingLinear16, "WAV":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case repositories.EncodingWebmOpus:
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	case repositories.EncodingOggOpus:
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case repositories.EncodingFlac:
		return speechpb.RecognitionConfig_FLAC, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED,
			fmt.Errorf("unsupported audio encoding: %s", encoding)
	}
}
