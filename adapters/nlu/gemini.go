// Package nlu holds the language-understanding adapters: a Gemini-backed
// classifier, a local rule-based alternative, and a mock for tests.
package nlu

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/siseonlab/voicecoach/domain/entities"
)

const defaultModel = "gemini-2.0-flash"

// GeminiClassifier implements repositories.LanguageUnderstanding using
// the Gemini API. One instance is shared by all sessions; the underlying
// client is safe for concurrent use.
type GeminiClassifier struct {
	client *genai.Client
	logger *zap.Logger
	model  string
}

// NewGeminiClassifier creates a classifier from an API key.
func NewGeminiClassifier(ctx context.Context, apiKey string, logger *zap.Logger) (*GeminiClassifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClassifier{
		client: client,
		logger: logger,
		model:  defaultModel,
	}, nil
}

// Classify maps a transcript to one exercise-control action. An empty or
// whitespace-only transcript short-circuits without a backend call.
func (g *GeminiClassifier) Classify(ctx context.Context, transcript string) (entities.Classification, error) {
	if strings.TrimSpace(transcript) == "" {
		return entities.Classification{}, nil
	}

	prompt := fmt.Sprintf(`음성 인식 결과를 운동 명령어로 분류해주세요.

**입력**: "%s"

**지원 명령어**:
- pause: 멈춤, 정지, 스톱, 멈춰, 그만, 잠깐 등
- resume: 시작, 계속, 다시, 재개, 진행 등
- next: 다음, 넘어가, 스킵, 다음 동작 등
- previous: 이전, 뒤로, 다시 해줘 등
- faster: 빠르게, 빨리, 속도 올려 등
- slower: 느리게, 천천히, 속도 내려 등
- none: 명령어가 아닌 경우

**응답 형식** (JSON만):
{"action": "pause", "confidence": 0.95}

명령어가 아니면:
{"action": null, "confidence": 0.0}

JSON만 출력:`, transcript)

	raw, err := g.generate(ctx, prompt)
	if err != nil {
		return entities.Classification{}, err
	}

	result, err := parseClassification(raw, entities.ParseCommandAction)
	if err != nil {
		return entities.Classification{}, fmt.Errorf("failed to parse classification response: %w", err)
	}

	g.logger.Info("command classified",
		zap.String("transcript", transcript),
		zap.Any("action", result.Action),
		zap.Float64("confidence", result.Confidence))
	return result, nil
}

// ParseNavCommand classifies a transcript against the navigation
// vocabulary used outside exercise playback.
func (g *GeminiClassifier) ParseNavCommand(ctx context.Context, transcript string) (entities.Classification, error) {
	if strings.TrimSpace(transcript) == "" {
		return entities.Classification{}, nil
	}

	prompt := fmt.Sprintf(`You are a system command interpreter.
Input text: "%s"
Available actions:
- navigate_home: "홈으로", "메인으로"
- navigate_profile: "프로필", "내 정보"
- navigate_exercise: "운동", "운동 목록"
- stop_listening: "그만", "꺼줘", "중지"

Output JSON format only: {"action": "action_name", "confidence": 0.95}
If no matching action, set action to null and confidence to 0.0.`, transcript)

	raw, err := g.generate(ctx, prompt)
	if err != nil {
		return entities.Classification{}, err
	}

	result, err := parseClassification(raw, entities.ParseNavAction)
	if err != nil {
		return entities.Classification{}, fmt.Errorf("failed to parse nav command response: %w", err)
	}
	return result, nil
}

// formHints are the field-specific extraction instructions for form mode.
var formHints = map[string]string{
	"name":   "Extract the person's name.",
	"height": "Extract height in cm as integer. Remove units.",
	"weight": "Extract weight in kg as integer. Remove units.",
	"gender": "Extract gender as 'M', 'F', or null.",
	"birth":  "Extract birthdate in 'YYYY-MM-DD' format.",
	"phone":  "Extract phone number in '010-XXXX-XXXX' format.",
}

// Normalize extracts a structured value from a transcript for one signup
// form field.
func (g *GeminiClassifier) Normalize(ctx context.Context, transcript, field string) (entities.FormValue, error) {
	if strings.TrimSpace(transcript) == "" {
		return entities.FormValue{Raw: transcript}, nil
	}

	hint, ok := formHints[field]
	if !ok {
		hint = "Extract the value."
	}

	prompt := fmt.Sprintf(`You are a smart data extractor.
Input text: "%s"
Task: %s
Output JSON format only: {"normalized": "value", "raw": "%s"}
If value is not found or unclear, set normalized to null.
Example for height "백칠십오": {"normalized": "175", "raw": "백칠십오"}`,
		transcript, hint, transcript)

	raw, err := g.generate(ctx, prompt)
	if err != nil {
		return entities.FormValue{Raw: transcript}, err
	}

	value, err := parseFormValue(raw, transcript)
	if err != nil {
		return entities.FormValue{Raw: transcript}, fmt.Errorf("failed to parse normalization response: %w", err)
	}
	return value, nil
}

// generate runs one prompt and returns the concatenated text parts.
func (g *GeminiClassifier) generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	response, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil ||
		len(response.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no content")
	}

	var text strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
	}
	return text.String(), nil
}
