package nlu

import (
	"context"
	"strings"

	"github.com/siseonlab/voicecoach/domain/entities"
)

// localKeywords maps exercise-control actions to the spoken keywords that
// trigger them. Matching is whitespace-insensitive substring, so "속도
// 올려" matches "속도올려" and vice versa. Order matters: earlier entries
// win when a transcript contains keywords from several actions.
var localKeywords = []struct {
	action   entities.Action
	keywords []string
}{
	{entities.ActionPause, []string{"멈춰", "정지", "스톱", "그만", "잠깐", "쉬자"}},
	{entities.ActionNext, []string{"다음", "넘어가", "넘겨", "스킵", "패스"}},
	{entities.ActionPrevious, []string{"이전", "뒤로"}},
	{entities.ActionFaster, []string{"빠르게", "빨리", "속도올려"}},
	{entities.ActionSlower, []string{"느리게", "천천히", "속도내려"}},
	{entities.ActionResume, []string{"계속", "다시", "시작", "재개", "진행"}},
}

// localNavKeywords is the navigation counterpart, matched against the
// second closed vocabulary.
var localNavKeywords = []struct {
	action   entities.Action
	keywords []string
}{
	{entities.ActionNavigateHome, []string{"홈으로", "메인으로"}},
	{entities.ActionNavigateProfile, []string{"프로필", "내정보"}},
	{entities.ActionNavigateExercise, []string{"운동"}},
	{entities.ActionStopListening, []string{"그만", "꺼줘", "중지"}},
}

// localConfidence is reported for every keyword hit; a binary matcher has
// no graded score to offer.
const localConfidence = 0.9

// LocalClassifier is a rule-based implementation of the classifier
// contract: a fixed keyword table instead of a language-model call. It
// trades recall for zero latency and backend independence, and honors
// the same closed output vocabulary.
type LocalClassifier struct{}

// NewLocalClassifier creates the rule-based classifier.
func NewLocalClassifier() *LocalClassifier {
	return &LocalClassifier{}
}

// Classify implements repositories.CommandClassifier.
func (l *LocalClassifier) Classify(ctx context.Context, transcript string) (entities.Classification, error) {
	clean := strings.ToLower(strings.ReplaceAll(transcript, " ", ""))
	if clean == "" {
		return entities.Classification{}, nil
	}

	for _, entry := range localKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(clean, keyword) {
				action := entry.action
				return entities.Classification{
					Action:     &action,
					Confidence: localConfidence,
				}, nil
			}
		}
	}
	return entities.Classification{}, nil
}

// ParseNavCommand implements repositories.LanguageUnderstanding with the
// same keyword-table approach over the navigation vocabulary.
func (l *LocalClassifier) ParseNavCommand(ctx context.Context, transcript string) (entities.Classification, error) {
	clean := strings.ToLower(strings.ReplaceAll(transcript, " ", ""))
	if clean == "" {
		return entities.Classification{}, nil
	}

	for _, entry := range localNavKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(clean, keyword) {
				action := entry.action
				return entities.Classification{
					Action:     &action,
					Confidence: localConfidence,
				}, nil
			}
		}
	}
	return entities.Classification{}, nil
}

// Normalize implements repositories.LanguageUnderstanding. Rules cannot
// extract structured values, so the transcript comes back unnormalized.
func (l *LocalClassifier) Normalize(ctx context.Context, transcript, field string) (entities.FormValue, error) {
	return entities.FormValue{Raw: transcript}, nil
}
