package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"go.uber.org/zap"

	"github.com/siseonlab/voicecoach/domain/repositories"
)

// containerSampleRate is what browser MediaRecorder produces for
// WebM/Opus uploads; the backend decodes the container itself so the rate
// here is descriptive, not a resample target.
const containerSampleRate = 48000

// CommandRunner abstracts subprocess execution so the ffmpeg fallback can
// be tested without the binary.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Decoder normalizes whatever a client sent into the byte stream and
// format descriptor the transcription backend expects. It has two
// passthrough paths (streaming PCM, uploaded containers) and one local
// materialization path with a subprocess fallback. The passthrough paths
// never touch the bytes.
type Decoder struct {
	runner CommandRunner
	ffmpeg string
	logger *zap.Logger
}

// NewDecoder creates a decoder using the ffmpeg binary on PATH for the
// fallback path.
func NewDecoder(logger *zap.Logger) *Decoder {
	return &Decoder{
		runner: execRunner{},
		ffmpeg: "ffmpeg",
		logger: logger,
	}
}

// PassthroughPCM wraps streamed raw PCM for the backend. No container
// header is added: the backend must receive headerless PCM on this path.
func (d *Decoder) PassthroughPCM(pcm []byte, sampleRate int) repositories.TranscriptionRequest {
	return repositories.TranscriptionRequest{
		Audio:      pcm,
		SampleRate: sampleRate,
		Encoding:   repositories.EncodingLinear16,
	}
}

// PassthroughContainer forwards an uploaded container file unmodified,
// deferring decoding to the backend. This avoids a local transcode
// dependency on the common single-shot path.
func (d *Decoder) PassthroughContainer(data []byte) repositories.TranscriptionRequest {
	return repositories.TranscriptionRequest{
		Audio:      data,
		SampleRate: containerSampleRate,
		Encoding:   repositories.EncodingWebmOpus,
	}
}

// MaterializeWAV produces a WAV byte stream from input audio for code
// paths that need a real file (diagnostics, backends that reject raw
// streams). It tries the in-process PCM encode first; on a decode error
// it falls back to an ffmpeg subprocess fed via a temp file. When the
// subprocess also fails, the original in-process error is surfaced, since
// it is the more diagnostic of the two.
func (d *Decoder) MaterializeWAV(ctx context.Context, data []byte, sampleRate int) ([]byte, error) {
	if IsWAV(data) {
		return data, nil
	}

	wav, encErr := EncodePCM16(data, sampleRate)
	if encErr == nil {
		return wav, nil
	}

	d.logger.Warn("in-process WAV encode failed, falling back to ffmpeg",
		zap.Error(encErr))

	out, ffErr := d.ffmpegToWAV(ctx, data)
	if ffErr != nil {
		d.logger.Error("ffmpeg fallback decode failed",
			zap.NamedError("decodeError", encErr),
			zap.NamedError("ffmpegError", ffErr))
		return nil, fmt.Errorf("audio decode failed: %w", encErr)
	}
	return out, nil
}

// ffmpegToWAV shells out to ffmpeg, feeding the input through a temp file
// and capturing 16kHz mono PCM WAV on stdout.
func (d *Decoder) ffmpegToWAV(ctx context.Context, data []byte) ([]byte, error) {
	tmp, err := os.CreateTemp("", "voicecoach-*.audio")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}

	out, err := d.runner.Run(ctx, d.ffmpeg,
		"-hide_banner", "-loglevel", "error",
		"-i", tmp.Name(),
		"-ar", "16000", "-ac", "1", "-c:a", "pcm_s16le",
		"-f", "wav", "-",
	)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode failed: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output")
	}
	return out, nil
}
