package stt

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/siseonlab/voicecoach/domain/repositories"
)

// MockSpeechToText is a recording stand-in for the Google backend, used
// in tests and for backend-free local runs. It returns a fixed
// transcript and remembers every request it receives.
type MockSpeechToText struct {
	logger *zap.Logger

	mu       sync.Mutex
	requests []repositories.TranscriptionRequest

	// Transcript is returned from every call unless Err is set.
	Transcript string
	Err        error
}

// NewMockSpeechToText creates a mock that transcribes everything to
// transcript.
func NewMockSpeechToText(logger *zap.Logger, transcript string) *MockSpeechToText {
	return &MockSpeechToText{
		logger:     logger,
		Transcript: transcript,
	}
}

// Transcribe implements repositories.SpeechToText.
func (m *MockSpeechToText) Transcribe(ctx context.Context, req repositories.TranscriptionRequest) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	m.logger.Info("mock transcription",
		zap.Int("audioBytes", len(req.Audio)),
		zap.String("encoding", req.Encoding))

	if m.Err != nil {
		return "", m.Err
	}
	return m.Transcript, nil
}

// Requests returns a copy of every request seen so far.
func (m *MockSpeechToText) Requests() []repositories.TranscriptionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]repositories.TranscriptionRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// CallCount returns how many times Transcribe ran.
func (m *MockSpeechToText) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
