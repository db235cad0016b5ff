package nlu

import (
	"context"
	"sync"

	"github.com/siseonlab/voicecoach/domain/entities"
)

// MockClassifier is a scriptable stand-in for the language-understanding
// backend.
type MockClassifier struct {
	mu    sync.Mutex
	calls int

	Result    entities.Classification
	NavResult entities.Classification
	Form      entities.FormValue
	Err       error
}

// NewMockClassifier creates a mock returning result from Classify.
func NewMockClassifier(result entities.Classification) *MockClassifier {
	return &MockClassifier{Result: result}
}

// Classify implements repositories.CommandClassifier.
func (m *MockClassifier) Classify(ctx context.Context, transcript string) (entities.Classification, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.Err != nil {
		return entities.Classification{}, m.Err
	}
	return m.Result, nil
}

// ParseNavCommand implements repositories.LanguageUnderstanding.
func (m *MockClassifier) ParseNavCommand(ctx context.Context, transcript string) (entities.Classification, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.Err != nil {
		return entities.Classification{}, m.Err
	}
	return m.NavResult, nil
}

// Normalize implements repositories.LanguageUnderstanding.
func (m *MockClassifier) Normalize(ctx context.Context, transcript, field string) (entities.FormValue, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.Err != nil {
		return entities.FormValue{Raw: transcript}, m.Err
	}
	return m.Form, nil
}

// CallCount returns how many backend calls the mock has seen.
func (m *MockClassifier) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
